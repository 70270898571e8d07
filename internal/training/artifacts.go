package training

import (
	"encoding/csv"
	"os"
	"sort"
	"strconv"

	"github.com/tphakala/rainforest-sed/internal/errors"
	"github.com/tphakala/rainforest-sed/internal/events"
)

// Aggregator folds the many windows of one recording into a single score
// row by taking the per-class maximum.
type Aggregator struct {
	classes int
	rows    map[string][]float64
}

// NewAggregator returns an empty per-recording score accumulator.
func NewAggregator(classes int) *Aggregator {
	return &Aggregator{classes: classes, rows: make(map[string][]float64)}
}

// Update merges one window's class scores into its recording's row.
func (a *Aggregator) Update(recordingID string, scores []float64) {
	row, ok := a.rows[recordingID]
	if !ok {
		row = make([]float64, a.classes)
		for k := range row {
			row[k] = scores[k]
		}
		a.rows[recordingID] = row
		return
	}
	for k := range row {
		if scores[k] > row[k] {
			row[k] = scores[k]
		}
	}
}

// Row returns the aggregated scores for a recording.
func (a *Aggregator) Row(recordingID string) ([]float64, bool) {
	row, ok := a.rows[recordingID]
	return row, ok
}

// Recordings returns the aggregated recording ids in sorted order.
func (a *Aggregator) Recordings() []string {
	ids := make([]string, 0, len(a.rows))
	for id := range a.rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// WriteTable writes a `{recording_id, s0..s{K-1}}` CSV with one row per
// listed recording. Recordings without an aggregated row get zeros.
func (a *Aggregator) WriteTable(path string, recordings []string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.New(err).
			Component("training").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := make([]string, 1, a.classes+1)
	header[0] = "recording_id"
	for k := range a.classes {
		header = append(header, "s"+strconv.Itoa(k))
	}
	if err := w.Write(header); err != nil {
		return err
	}
	record := make([]string, a.classes+1)
	for _, id := range recordings {
		row, ok := a.rows[id]
		record[0] = id
		for k := range a.classes {
			v := 0.0
			if ok {
				v = row[k]
			}
			record[k+1] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Sync()
}

// ValidateSubmission checks the aggregated rows against the sample
// submission schema. A mismatch in class count or recording set is fatal;
// the pipeline stops rather than emit a malformed table.
func (a *Aggregator) ValidateSubmission(schema *events.SubmissionSchema) error {
	if schema.NumClasses() != a.classes {
		return errors.Newf("submission has %d score columns, schema expects %d", a.classes, schema.NumClasses()).
			Component("training").
			Category(errors.CategoryValidation).
			Build()
	}
	for _, id := range schema.RecordingIDs {
		if _, ok := a.rows[id]; !ok {
			return errors.Newf("submission is missing recording %q required by the schema", id).
				Component("training").
				Category(errors.CategoryValidation).
				Context("recording_id", id).
				Build()
		}
	}
	if len(a.rows) != len(schema.RecordingIDs) {
		return errors.Newf("submission has %d recordings, schema expects %d", len(a.rows), len(schema.RecordingIDs)).
			Component("training").
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}

package events

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/tphakala/rainforest-sed/internal/errors"
)

// Metadata bundles everything the dataset layer needs from the input tables:
// the true-positive and false-positive stores, the recordings that carry
// at least one TP annotation, and the FP-only recordings used for background
// mixing.
type Metadata struct {
	TP *Store
	FP *Store

	// TPRecordings are recordings present in both the audio directory
	// listing and the TP table. Training examples are drawn from these.
	TPRecordings []string

	// FPOnlyRecordings carry FP annotations but no TP annotations. They
	// supply negative-background windows for FP mixup.
	FPOnlyRecordings []string
}

// BuildMetadata loads both event tables and intersects them against the
// recording ids found in the audio directory, mirroring the dataset
// constructor contract: only recordings with audio and TP annotations
// participate in training.
func BuildMetadata(tpPath, fpPath string, audioRecordings []string) (*Metadata, error) {
	tpEvents, err := LoadCSV(tpPath)
	if err != nil {
		return nil, err
	}
	fpEvents, err := LoadCSV(fpPath)
	if err != nil {
		return nil, err
	}
	return buildMetadata(tpEvents, fpEvents, audioRecordings), nil
}

func buildMetadata(tpEvents, fpEvents []Event, audioRecordings []string) *Metadata {
	available := make(map[string]bool, len(audioRecordings))
	for _, id := range audioRecordings {
		available[id] = true
	}

	// The joint class enumeration is derived from the union of both tables
	// before any filtering so fold subsets agree on class indices.
	classMap := NewStore(append(append([]Event{}, tpEvents...), fpEvents...)).ClassMap()

	tp := NewStore(tpEvents)
	tp.SetClassMap(classMap)
	tp = tp.Filter(available)

	hasTP := make(map[string]bool)
	for _, id := range tp.Recordings() {
		hasTP[id] = true
	}

	fpKeep := make(map[string]bool)
	for i := range fpEvents {
		id := fpEvents[i].RecordingID
		if available[id] && !hasTP[id] {
			fpKeep[id] = true
		}
	}
	fp := NewStore(fpEvents)
	fp.SetClassMap(classMap)
	fp = fp.Filter(fpKeep)

	return &Metadata{
		TP:               tp,
		FP:               fp,
		TPRecordings:     tp.Recordings(),
		FPOnlyRecordings: fp.Recordings(),
	}
}

// AdditionalLabel is one auxiliary weak-label row: the named recording is
// known to contain the species even though no interval was annotated.
type AdditionalLabel struct {
	RecordingID string
	SpeciesID   int
}

// LoadAdditionalLabels reads the optional auxiliary weak-label table
// ({filename, species} rows). Returns labels grouped by recording id.
func LoadAdditionalLabels(path string) (map[string][]AdditionalLabel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component("events").
			Category(errors.CategoryFileIO).
			Context("operation", "load_additional_labels").
			Context("path", path).
			Build()
	}
	defer f.Close() //nolint:errcheck // read-only file

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"filename", "species"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing column %q in %s", required, path)
		}
	}

	out := make(map[string][]AdditionalLabel)
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		species, err := strconv.Atoi(record[col["species"]])
		if err != nil {
			return nil, fmt.Errorf("parsing species in %s: %w", path, err)
		}
		id := record[col["filename"]]
		out[id] = append(out[id], AdditionalLabel{RecordingID: id, SpeciesID: species})
	}
	return out, nil
}

// SubmissionSchema is the expected output shape taken from the sample
// submission table: the ordered recording ids and the score column names.
type SubmissionSchema struct {
	RecordingIDs []string
	Columns      []string // s0..s{K-1}
}

// NumClasses returns the number of score columns.
func (s *SubmissionSchema) NumClasses() int {
	return len(s.Columns)
}

// LoadSubmissionSchema reads the sample submission table and returns the
// schema the final prediction table must match.
func LoadSubmissionSchema(path string) (*SubmissionSchema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component("events").
			Category(errors.CategoryFileIO).
			Context("operation", "load_sample_submission").
			Context("path", path).
			Build()
	}
	defer f.Close() //nolint:errcheck // read-only file

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if len(header) < 2 || header[0] != "recording_id" {
		return nil, fmt.Errorf("unexpected sample submission header: %v", header)
	}
	for i, name := range header[1:] {
		if name != "s"+strconv.Itoa(i) {
			return nil, fmt.Errorf("unexpected score column %q at position %d", name, i+1)
		}
	}

	schema := &SubmissionSchema{Columns: header[1:]}
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		schema.RecordingIDs = append(schema.RecordingIDs, record[0])
	}
	return schema, nil
}

// ListRecordings scans an audio directory for recordings, preferring the
// given suffix. Returns recording ids (file names without extension).
func ListRecordings(dir, suffix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.New(err).
			Component("events").
			Category(errors.CategoryFileIO).
			Context("operation", "list_recordings").
			Context("dir", dir).
			Build()
	}
	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, suffix) {
			ids = append(ids, strings.TrimSuffix(name, suffix))
		}
	}
	return ids, nil
}

package training

import (
	"context"
	"path/filepath"

	"github.com/tphakala/rainforest-sed/internal/audio"
	"github.com/tphakala/rainforest-sed/internal/conf"
	"github.com/tphakala/rainforest-sed/internal/dataset"
	"github.com/tphakala/rainforest-sed/internal/errors"
	"github.com/tphakala/rainforest-sed/internal/events"
	"github.com/tphakala/rainforest-sed/internal/features"
	"github.com/tphakala/rainforest-sed/internal/logging"
	"github.com/tphakala/rainforest-sed/internal/model"
)

// Predict runs the model over every test recording in sequential windows,
// aggregates window scores per recording by per-class max and writes a
// submission table validated against the sample submission schema.
func Predict(ctx context.Context, settings *conf.Settings, m *model.Model) (string, error) {
	logger := logging.ForService("predict")

	schema, err := events.LoadSubmissionSchema(settings.Data.SampleSubmissionPath)
	if err != nil {
		return "", err
	}
	reader, err := audio.NewReader(settings.Data.TestAudioPath, settings.Audio.SampleRate)
	if err != nil {
		return "", err
	}
	recordings, err := events.ListRecordings(settings.Data.TestAudioPath, reader.Suffix())
	if err != nil {
		return "", err
	}
	if len(recordings) == 0 {
		return "", errors.Newf("no recordings found in %s", settings.Data.TestAudioPath).
			Component("training").
			Category(errors.CategoryValidation).
			Build()
	}

	// Test recordings carry no annotations; an empty event store still
	// satisfies the sequential dataset, which only needs the recording list.
	meta := &events.Metadata{
		TP:           events.NewStore(nil),
		FP:           events.NewStore(nil),
		TPRecordings: recordings,
	}
	ds, err := dataset.NewKind(dataset.KindSequential, settings, meta, reader, features.NewExtractor(settings), nil)
	if err != nil {
		return "", err
	}
	loader := NewLoader(ds, settings.Training.Workers, settings.Training.Seed)

	preds := NewAggregator(m.Head.Classes)
	batchSize := settings.Training.BatchSize
	indices := make([]int, ds.Len())
	for i := range indices {
		indices[i] = i
	}
	for start := 0; start < len(indices); start += batchSize {
		end := min(start+batchSize, len(indices))
		examples, err := loader.Load(ctx, 0, indices[start:end])
		if err != nil {
			return "", err
		}
		for _, ex := range examples {
			clipwise, _, err := m.TrainForward(ex.Image)
			if err != nil {
				return "", err
			}
			preds.Update(ex.RecordingID, clipwise)
		}
	}

	if err := preds.ValidateSubmission(schema); err != nil {
		return "", err
	}
	path := filepath.Join(settings.Output.Dir, "submission.csv")
	if err := preds.WriteTable(path, schema.RecordingIDs); err != nil {
		return "", err
	}
	logger.Info("submission written", "path", path, "recordings", len(schema.RecordingIDs))
	return path, nil
}

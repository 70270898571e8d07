// Package pipeline wires the configured components into runnable training
// and prediction flows so the CLI commands stay thin.
package pipeline

import (
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tphakala/rainforest-sed/internal/audio"
	"github.com/tphakala/rainforest-sed/internal/conf"
	"github.com/tphakala/rainforest-sed/internal/dataset"
	"github.com/tphakala/rainforest-sed/internal/errors"
	"github.com/tphakala/rainforest-sed/internal/events"
	"github.com/tphakala/rainforest-sed/internal/features"
	"github.com/tphakala/rainforest-sed/internal/logging"
	"github.com/tphakala/rainforest-sed/internal/model"
	"github.com/tphakala/rainforest-sed/internal/training"
)

// Reference backbone geometry. The head's hidden width follows the original
// classifier head.
const (
	backboneGroups = 21
	backboneStride = 8
	headHiddenDim  = 128
	headDropout    = 0.5
)

// Bootstrap loads settings, configures logging and prepares the output
// directory. Every command calls this first. The returned close function
// releases the log file when file logging is enabled.
func Bootstrap() (*conf.Settings, func() error, error) {
	settings, err := conf.Load()
	if err != nil {
		return nil, nil, err
	}
	logging.Init()
	level := slog.LevelInfo
	if settings.Debug {
		level = slog.LevelDebug
		logging.SetLevel(level)
	}
	closeLogs := func() error { return nil }
	if settings.Main.Log.Enabled {
		closeLogs, err = logging.SetFileOutput(settings.Main.Log.Path, level)
		if err != nil {
			return nil, nil, errors.New(err).
				Component("pipeline").
				Category(errors.CategoryFileIO).
				Context("log_path", settings.Main.Log.Path).
				Build()
		}
	}
	if err := os.MkdirAll(settings.Output.Dir, 0o755); err != nil {
		return nil, nil, errors.New(err).
			Component("pipeline").
			Category(errors.CategoryFileIO).
			Context("dir", settings.Output.Dir).
			Build()
	}
	// Persist the effective settings so the run is reproducible from its
	// artifacts alone.
	if err := settings.SaveYAML(filepath.Join(settings.Output.Dir, "config.yaml")); err != nil {
		return nil, nil, err
	}
	logging.Info("configuration loaded",
		"output_dir", settings.Output.Dir,
		"dataset_kind", settings.Dataset.Kind)
	return settings, closeLogs, nil
}

// NewModel builds a fresh model seeded from the training seed.
func NewModel(settings *conf.Settings) (*model.Model, error) {
	backbone := model.NewSpectralBackbone(3, backboneGroups, backboneStride)
	rng := rand.New(rand.NewPCG(uint64(settings.Training.Seed), 0))
	head := model.NewHead(backbone.EmbedDim(), headHiddenDim, conf.NumClasses, model.PoolingAttention, headDropout, rng)
	return model.New(backbone, head)
}

// NewTrainer assembles the full training flow: audio reader, event
// metadata, train and validation datasets, metrics store and telemetry.
func NewTrainer(settings *conf.Settings, m *model.Model) (*training.Trainer, error) {
	reader, err := audio.NewReader(settings.Data.TrainAudioPath, settings.Audio.SampleRate)
	if err != nil {
		return nil, err
	}
	recordings, err := events.ListRecordings(settings.Data.TrainAudioPath, reader.Suffix())
	if err != nil {
		return nil, err
	}
	meta, err := events.BuildMetadata(settings.Data.TrainTPPath, settings.Data.TrainFPPath, recordings)
	if err != nil {
		return nil, err
	}
	if n := len(meta.TP.ClassMap()); n != conf.NumSongtypeClasses {
		return nil, errors.Newf("derived %d joint classes, expected %d", n, conf.NumSongtypeClasses).
			Component("pipeline").
			Category(errors.CategoryValidation).
			Context("tp_path", settings.Data.TrainTPPath).
			Build()
	}

	var additional map[string][]events.AdditionalLabel
	if settings.Data.AdditionalLabelPath != "" {
		additional, err = events.LoadAdditionalLabels(settings.Data.AdditionalLabelPath)
		if err != nil {
			return nil, err
		}
	}

	extractor := features.NewExtractor(settings)
	trainDS, err := dataset.New(settings, meta, reader, extractor, additional)
	if err != nil {
		return nil, err
	}
	valDS, err := dataset.NewKind(dataset.KindSequential, settings, meta, reader, extractor, nil)
	if err != nil {
		return nil, err
	}

	logger := logging.Structured().With("service", "pipeline")
	logger.Info("training data ready",
		"recordings", len(meta.TPRecordings),
		"events", meta.TP.Len(),
		"fp_only_recordings", len(meta.FPOnlyRecordings))

	if settings.Output.DatabasePath == "" {
		logging.Warn("run metrics persistence disabled", "reason", "output.databasepath is empty")
	}
	store, err := training.OpenStore(settings.Output.DatabasePath)
	if err != nil {
		return nil, err
	}
	telemetry := training.NewTelemetry(prometheus.DefaultRegisterer)
	return training.NewTrainer(settings, m, training.BCEWeak{}, trainDS, valDS, store, telemetry), nil
}

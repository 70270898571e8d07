package training

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/tphakala/rainforest-sed/internal/conf"
	"github.com/tphakala/rainforest-sed/internal/dataset"
	"github.com/tphakala/rainforest-sed/internal/logging"
	"github.com/tphakala/rainforest-sed/internal/metrics"
	"github.com/tphakala/rainforest-sed/internal/model"
)

// Trainer owns one training run: the model, the train and validation
// loaders and the run's persistence and telemetry sinks.
type Trainer struct {
	settings  *conf.Settings
	model     *model.Model
	criterion Criterion
	train     *Loader
	val       *Loader
	store     *Store
	telemetry *Telemetry
	logger    *slog.Logger
}

// Summary reports a finished run.
type Summary struct {
	RunID          string
	BestEpoch      int
	BestScore      float64
	CheckpointPath string
}

// NewTrainer assembles a trainer. store and telemetry may be nil.
func NewTrainer(settings *conf.Settings, m *model.Model, criterion Criterion, trainDS, valDS dataset.Dataset, store *Store, telemetry *Telemetry) *Trainer {
	return &Trainer{
		settings:  settings,
		model:     m,
		criterion: criterion,
		train:     NewLoader(trainDS, settings.Training.Workers, settings.Training.Seed),
		val:       NewLoader(valDS, settings.Training.Workers, settings.Training.Seed),
		store:     store,
		telemetry: telemetry,
		logger:    logging.ForService("training"),
	}
}

// Run executes the configured number of epochs, tracking the best epoch by
// validation score, checkpointing it and writing the out-of-fold tables.
func (t *Trainer) Run(ctx context.Context) (*Summary, error) {
	runID, err := t.store.CreateRun(t.settings.Main.Name, t.settings.Dataset.Kind, t.settings.Training.Seed)
	if err != nil {
		return nil, err
	}
	checkpoint := filepath.Join(t.settings.Output.Dir, "best_model.gob")

	summary := &Summary{RunID: runID, BestEpoch: -1, CheckpointPath: checkpoint}
	for epoch := range t.settings.Training.Epochs {
		start := time.Now()
		trainLoss, err := t.trainEpoch(ctx, epoch)
		if err != nil {
			return nil, err
		}
		score, preds, targets, err := t.validate(ctx)
		if err != nil {
			return nil, err
		}
		elapsed := time.Since(start)
		if t.telemetry != nil {
			t.telemetry.EpochDuration.Observe(elapsed.Seconds())
		}
		t.logger.Info("epoch finished",
			"run_id", runID,
			"epoch", epoch,
			"train_loss", trainLoss,
			"val_lwlrap", score,
			"duration", elapsed)
		if err := t.store.RecordEpoch(runID, epoch, trainLoss, score, elapsed); err != nil {
			return nil, err
		}

		if score > summary.BestScore || summary.BestEpoch < 0 {
			summary.BestEpoch = epoch
			summary.BestScore = score
			if err := t.model.Save(checkpoint); err != nil {
				return nil, err
			}
			if err := t.writeOOF(preds, targets); err != nil {
				return nil, err
			}
			t.logger.Info("new best checkpoint", "epoch", epoch, "val_lwlrap", score)
		}
	}

	if err := t.store.CompleteRun(runID, summary.BestEpoch, summary.BestScore); err != nil {
		return nil, err
	}
	return summary, nil
}

// trainEpoch runs one pass over the shuffled training set, taking one SGD
// step per batch.
func (t *Trainer) trainEpoch(ctx context.Context, epoch int) (float64, error) {
	perm := t.train.Permutation(epoch)
	batchSize := t.settings.Training.BatchSize
	var meter metrics.AverageMeter

	for start := 0; start < len(perm); start += batchSize {
		end := min(start+batchSize, len(perm))
		examples, err := t.train.Load(ctx, epoch, perm[start:end])
		if err != nil {
			if t.telemetry != nil {
				t.telemetry.FetchErrors.Inc()
			}
			return 0, err
		}
		if t.telemetry != nil {
			t.telemetry.ExamplesFetched.Add(float64(len(examples)))
			t.telemetry.BatchesTotal.Inc()
		}

		grads := model.NewGradients(t.model.Head)
		for _, ex := range examples {
			clipwise, state, err := t.model.TrainForward(ex.Image)
			if err != nil {
				return 0, err
			}
			meter.Update(t.criterion.Loss(clipwise, ex.Targets.Weak), 1)
			t.model.TrainBackward(grads, state, ex.Targets.Weak)
		}
		t.model.ApplyGradients(grads, t.settings.Training.LearningRate/float64(len(examples)))
	}
	return meter.Average(), nil
}

// validate runs the sequential validation set, aggregates window scores and
// targets per recording by per-class max and reports LWLRAP over
// recordings.
func (t *Trainer) validate(ctx context.Context) (float64, *Aggregator, *Aggregator, error) {
	classes := t.model.Head.Classes
	preds := NewAggregator(classes)
	targets := NewAggregator(classes)
	batchSize := t.settings.Training.BatchSize

	indices := make([]int, t.val.Len())
	for i := range indices {
		indices[i] = i
	}
	for start := 0; start < len(indices); start += batchSize {
		end := min(start+batchSize, len(indices))
		examples, err := t.val.Load(ctx, 0, indices[start:end])
		if err != nil {
			return 0, nil, nil, err
		}
		for _, ex := range examples {
			clipwise, _, err := t.model.TrainForward(ex.Image)
			if err != nil {
				return 0, nil, nil, err
			}
			preds.Update(ex.RecordingID, clipwise)
			targets.Update(ex.RecordingID, float32sTo64(ex.Targets.Weak))
		}
	}

	recordings := preds.Recordings()
	truth := mat.NewDense(max(len(recordings), 1), classes, nil)
	scores := mat.NewDense(max(len(recordings), 1), classes, nil)
	for i, id := range recordings {
		if row, ok := targets.Row(id); ok {
			truth.SetRow(i, row)
		}
		if row, ok := preds.Row(id); ok {
			scores.SetRow(i, row)
		}
	}
	perClass, weights, err := metrics.LWLRAP(truth, scores)
	if err != nil {
		return 0, nil, nil, err
	}
	return metrics.Overall(perClass, weights), preds, targets, nil
}

// writeOOF writes the out-of-fold prediction and target tables for the
// current best epoch.
func (t *Trainer) writeOOF(preds, targets *Aggregator) error {
	recordings := preds.Recordings()
	if err := preds.WriteTable(filepath.Join(t.settings.Output.Dir, "oof_pred.csv"), recordings); err != nil {
		return err
	}
	return targets.WriteTable(filepath.Join(t.settings.Output.Dir, "oof_target.csv"), recordings)
}

func float32sTo64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

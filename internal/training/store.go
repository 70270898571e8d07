package training

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tphakala/rainforest-sed/internal/errors"
)

// Run is one training run's row in the metrics database.
type Run struct {
	ID          string `gorm:"primaryKey"`
	Name        string
	DatasetKind string
	Seed        int64
	StartedAt   time.Time
	CompletedAt *time.Time
	BestEpoch   int
	BestScore   float64
}

// EpochRecord stores one epoch's metrics.
type EpochRecord struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	RunID     string `gorm:"index"`
	Epoch     int
	TrainLoss float64
	ValScore  float64
	Duration  float64 // seconds
	CreatedAt time.Time
}

// Store persists run metrics to SQLite. A nil store is valid and records
// nothing, so runs without a configured database path skip persistence.
type Store struct {
	db *gorm.DB
}

// OpenStore opens or creates the metrics database and migrates the schema.
// An empty path returns a nil store.
func OpenStore(path string) (*Store, error) {
	if path == "" {
		return nil, nil
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.New(err).
			Component("training").
			Category(errors.CategoryDatabase).
			Context("path", path).
			Build()
	}
	if err := db.AutoMigrate(&Run{}, &EpochRecord{}); err != nil {
		return nil, errors.New(err).
			Component("training").
			Category(errors.CategoryDatabase).
			Context("operation", "migrate").
			Build()
	}
	return &Store{db: db}, nil
}

// CreateRun inserts a new run row and returns its id.
func (s *Store) CreateRun(name, datasetKind string, seed int64) (string, error) {
	id := uuid.New().String()
	if s == nil {
		return id, nil
	}
	run := Run{
		ID:          id,
		Name:        name,
		DatasetKind: datasetKind,
		Seed:        seed,
		StartedAt:   time.Now(),
	}
	if err := s.db.Create(&run).Error; err != nil {
		return "", errors.New(err).
			Component("training").
			Category(errors.CategoryDatabase).
			Context("operation", "create_run").
			Build()
	}
	return id, nil
}

// RecordEpoch appends one epoch's metrics to a run.
func (s *Store) RecordEpoch(runID string, epoch int, trainLoss, valScore float64, duration time.Duration) error {
	if s == nil {
		return nil
	}
	record := EpochRecord{
		RunID:     runID,
		Epoch:     epoch,
		TrainLoss: trainLoss,
		ValScore:  valScore,
		Duration:  duration.Seconds(),
		CreatedAt: time.Now(),
	}
	if err := s.db.Create(&record).Error; err != nil {
		return errors.New(err).
			Component("training").
			Category(errors.CategoryDatabase).
			Context("operation", "record_epoch").
			Build()
	}
	return nil
}

// CompleteRun stamps the run with its best epoch and score.
func (s *Store) CompleteRun(runID string, bestEpoch int, bestScore float64) error {
	if s == nil {
		return nil
	}
	now := time.Now()
	err := s.db.Model(&Run{}).Where("id = ?", runID).Updates(map[string]any{
		"completed_at": &now,
		"best_epoch":   bestEpoch,
		"best_score":   bestScore,
	}).Error
	if err != nil {
		return errors.New(err).
			Component("training").
			Category(errors.CategoryDatabase).
			Context("operation", "complete_run").
			Build()
	}
	return nil
}

// Package conf defines the settings for the rainforest-sed pipeline and the
// functions to load and validate them.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// LogConfig defines the configuration for logging
type LogConfig struct {
	Enabled bool   // true to enable logging to file
	Path    string // path to log file
}

// MainSettings contains general application settings.
type MainSettings struct {
	Name string    // name of the run, used for output directory naming
	Log  LogConfig // logging configuration
}

// DataSettings holds the paths to the input tables and audio directories.
type DataSettings struct {
	TrainTPPath          string // true-positive event table (CSV)
	TrainFPPath          string // false-positive event table (CSV)
	TrainAudioPath       string // directory with training audio files
	TestAudioPath        string // directory with test audio files
	SampleSubmissionPath string // sample submission table defining output schema
	AdditionalLabelPath  string // optional auxiliary weak-label table
}

// AudioSettings contains settings for audio loading and windowing.
type AudioSettings struct {
	SampleRate     int     // target sample rate, files are resampled on load
	ClipDuration   float64 // fixed duration of every source recording in seconds
	WindowDuration float64 // extracted window length in seconds
}

// MelSettings are the mel spectrogram parameters.
type MelSettings struct {
	NFFT      int     // FFT window size
	HopLength int     // hop between frames in samples
	NMels     int     // number of mel bands
	FMin      float64 // lowest filter bank frequency in Hz
	FMax      float64 // highest filter bank frequency in Hz, 0 means sampleRate/2
}

// PCENSettings are the per-channel energy normalization parameters.
type PCENSettings struct {
	Gain         float64 // AGC strength
	Bias         float64 // bias point of the nonlinear compression
	Power        float64 // compression exponent
	TimeConstant float64 // smoother time constant in seconds
	Eps          float64 // small constant to avoid division by zero
}

// ImageSettings control the shape of the extracted feature tensor.
type ImageSettings struct {
	Size  int // target height (frequency axis) in pixels
	Width int // explicit width, 0 preserves time-axis aspect ratio
}

// DatasetSettings select the dataset variant and its sampling behavior.
type DatasetSettings struct {
	Kind                 string  // dataset kind, see dataset.ParseKind
	MixupProb            float64 // probability of blending a second window
	MixupAlpha           float64 // Beta distribution parameter for lam
	FloatLabel           bool    // true to emit lam/1-lam partial-credit labels
	NoLambda             bool    // spectrogram mixup: unweighted sum, hard labels
	Centering            bool    // centered variant: deterministic event centering
	AdditionalLabelValue float64 // confidence assigned to auxiliary weak labels
}

// TrainingSettings contains the epoch loop parameters.
type TrainingSettings struct {
	Epochs       int     // number of training epochs
	BatchSize    int     // examples per batch
	Workers      int     // concurrent example fetches in the batch loader
	Seed         int64   // base seed for per-worker random sources
	LearningRate float64 // SGD step size for the pooling head
}

// OutputSettings define where run artifacts land.
type OutputSettings struct {
	Dir          string // output directory for checkpoints and tables
	DatabasePath string // sqlite database for run metrics, empty disables
}

// Settings is the root configuration object. It is loaded once and passed by
// reference into component constructors; components never reach into a
// shared global for their parameters.
type Settings struct {
	Debug bool // true to enable debug level logging

	Main     MainSettings
	Data     DataSettings
	Audio    AudioSettings
	Mel      MelSettings
	PCEN     PCENSettings
	Image    ImageSettings
	Dataset  DatasetSettings
	Training TrainingSettings
	Output   OutputSettings
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration into a Settings struct. It is safe to call
// more than once; the first successful load wins.
func Load() (*Settings, error) {
	var loadErr error
	once.Do(func() {
		settings := &Settings{}

		if err := initViper(); err != nil {
			loadErr = fmt.Errorf("error initializing viper: %w", err)
			return
		}

		if err := viper.Unmarshal(settings); err != nil {
			loadErr = fmt.Errorf("error unmarshaling config into struct: %w", err)
			return
		}

		if err := ValidateSettings(settings); err != nil {
			loadErr = err
			return
		}

		settingsMutex.Lock()
		settingsInstance = settings
		settingsMutex.Unlock()
	})
	if loadErr != nil {
		return nil, loadErr
	}
	return Setting(), nil
}

// Setting returns the loaded settings instance, or nil before Load.
func Setting() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

func initViper() error {
	viper.SetConfigType("yaml")

	configPath := viper.GetString("config")
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("config/")
	}

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && configPath == "" {
			// No config file is fine, run on defaults and flags.
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// SaveYAML writes the effective settings to a YAML file in the output
// directory so a run is reproducible from its artifacts.
func (s *Settings) SaveYAML(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("error marshaling settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("error writing settings file: %w", err)
	}
	return nil
}

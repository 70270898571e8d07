package conf

import (
	"errors"
	"fmt"
)

// ValidateSettings checks the loaded configuration for values the pipeline
// cannot run with. All problems are reported at once.
func ValidateSettings(s *Settings) error {
	var errs []error

	if s.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.samplerate must be positive, got %d", s.Audio.SampleRate))
	}
	if s.Audio.ClipDuration <= 0 {
		errs = append(errs, fmt.Errorf("audio.clipduration must be positive, got %g", s.Audio.ClipDuration))
	}
	if s.Audio.WindowDuration <= 0 {
		errs = append(errs, fmt.Errorf("audio.windowduration must be positive, got %g", s.Audio.WindowDuration))
	}
	if s.Audio.WindowDuration > s.Audio.ClipDuration {
		errs = append(errs, fmt.Errorf("audio.windowduration %g exceeds clip duration %g",
			s.Audio.WindowDuration, s.Audio.ClipDuration))
	}

	if s.Mel.NFFT <= 0 {
		errs = append(errs, fmt.Errorf("mel.nfft must be positive, got %d", s.Mel.NFFT))
	}
	if s.Mel.HopLength <= 0 {
		errs = append(errs, fmt.Errorf("mel.hoplength must be positive, got %d", s.Mel.HopLength))
	}
	if s.Mel.NMels <= 0 {
		errs = append(errs, fmt.Errorf("mel.nmels must be positive, got %d", s.Mel.NMels))
	}
	if s.Mel.FMax != 0 && s.Mel.FMax <= s.Mel.FMin {
		errs = append(errs, fmt.Errorf("mel.fmax %g must exceed mel.fmin %g", s.Mel.FMax, s.Mel.FMin))
	}

	if s.PCEN.Power <= 0 {
		errs = append(errs, fmt.Errorf("pcen.power must be positive, got %g", s.PCEN.Power))
	}
	if s.PCEN.TimeConstant <= 0 {
		errs = append(errs, fmt.Errorf("pcen.timeconstant must be positive, got %g", s.PCEN.TimeConstant))
	}

	if s.Image.Size <= 0 {
		errs = append(errs, fmt.Errorf("image.size must be positive, got %d", s.Image.Size))
	}
	if s.Image.Width < 0 {
		errs = append(errs, fmt.Errorf("image.width must not be negative, got %d", s.Image.Width))
	}

	if s.Dataset.MixupProb < 0 || s.Dataset.MixupProb > 1 {
		errs = append(errs, fmt.Errorf("dataset.mixupprob must be in [0,1], got %g", s.Dataset.MixupProb))
	}
	if s.Dataset.MixupAlpha <= 0 {
		errs = append(errs, fmt.Errorf("dataset.mixupalpha must be positive, got %g", s.Dataset.MixupAlpha))
	}
	if s.Dataset.AdditionalLabelValue < 0 || s.Dataset.AdditionalLabelValue > 1 {
		errs = append(errs, fmt.Errorf("dataset.additionallabelvalue must be in [0,1], got %g",
			s.Dataset.AdditionalLabelValue))
	}

	if s.Training.Epochs <= 0 {
		errs = append(errs, fmt.Errorf("training.epochs must be positive, got %d", s.Training.Epochs))
	}
	if s.Training.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("training.batchsize must be positive, got %d", s.Training.BatchSize))
	}
	if s.Training.Workers <= 0 {
		errs = append(errs, fmt.Errorf("training.workers must be positive, got %d", s.Training.Workers))
	}
	if s.Training.LearningRate <= 0 {
		errs = append(errs, fmt.Errorf("training.learningrate must be positive, got %g", s.Training.LearningRate))
	}

	if s.Output.Dir == "" {
		errs = append(errs, fmt.Errorf("output.dir must not be empty"))
	}

	return errors.Join(errs...)
}

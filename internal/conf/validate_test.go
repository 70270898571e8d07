package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	s := &Settings{}
	s.Audio.SampleRate = 32000
	s.Audio.ClipDuration = 60
	s.Audio.WindowDuration = 10
	s.Mel.NFFT = 2048
	s.Mel.HopLength = 512
	s.Mel.NMels = 128
	s.PCEN.Power = 0.5
	s.PCEN.TimeConstant = 0.4
	s.Image.Size = 224
	s.Dataset.MixupProb = 0.5
	s.Dataset.MixupAlpha = 5
	s.Training.Epochs = 50
	s.Training.BatchSize = 32
	s.Training.Workers = 4
	s.Training.LearningRate = 0.01
	s.Output.Dir = "output"
	return s
}

func TestValidateSettingsOK(t *testing.T) {
	t.Parallel()
	require.NoError(t, ValidateSettings(validSettings()))
}

func TestValidateSettingsReportsAllProblems(t *testing.T) {
	t.Parallel()
	s := validSettings()
	s.Audio.SampleRate = 0
	s.Mel.NFFT = -1
	s.Output.Dir = ""

	err := ValidateSettings(s)
	require.Error(t, err)
	assert.ErrorContains(t, err, "audio.samplerate")
	assert.ErrorContains(t, err, "mel.nfft")
	assert.ErrorContains(t, err, "output.dir")
}

func TestValidateSettingsWindowVsClip(t *testing.T) {
	t.Parallel()
	s := validSettings()
	s.Audio.WindowDuration = 90
	err := ValidateSettings(s)
	require.Error(t, err)
	assert.ErrorContains(t, err, "exceeds clip duration")
}

func TestValidateSettingsMixupBounds(t *testing.T) {
	t.Parallel()
	s := validSettings()
	s.Dataset.MixupProb = 1.5
	require.Error(t, ValidateSettings(s))

	s = validSettings()
	s.Dataset.MixupProb = 1
	require.NoError(t, ValidateSettings(s))
}

// Package features turns raw waveform windows into the 3-channel
// time-frequency representation the model trains on: log-mel, PCEN mel and
// a power-compressed "clean" mel, each independently normalized to 8-bit
// range and resized to a fixed spatial shape.
package features

import (
	"math"

	"github.com/tphakala/rainforest-sed/internal/conf"
	"github.com/tphakala/rainforest-sed/internal/dsp"
	"github.com/tphakala/rainforest-sed/internal/errors"
)

// cleanMelExponent is the fixed power-compression exponent of the third
// channel; raising mel power to 1.5 before log compression suppresses
// low-energy noise relative to plain log-mel.
const cleanMelExponent = 1.5

// Extractor computes feature images from waveform windows.
type Extractor struct {
	sampleRate int
	mel        dsp.MelParams
	pcen       dsp.PCENParams
	imageSize  int
	imageWidth int // 0 preserves time-axis aspect ratio
}

// NewExtractor builds an extractor from the configured parameters.
func NewExtractor(s *conf.Settings) *Extractor {
	return &Extractor{
		sampleRate: s.Audio.SampleRate,
		mel: dsp.MelParams{
			NFFT:      s.Mel.NFFT,
			HopLength: s.Mel.HopLength,
			NMels:     s.Mel.NMels,
			FMin:      s.Mel.FMin,
			FMax:      s.Mel.FMax,
		},
		pcen: dsp.PCENParams{
			Gain:         s.PCEN.Gain,
			Bias:         s.PCEN.Bias,
			Power:        s.PCEN.Power,
			TimeConstant: s.PCEN.TimeConstant,
			Eps:          s.PCEN.Eps,
		},
		imageSize:  s.Image.Size,
		imageWidth: s.Image.Width,
	}
}

// MelPower computes the raw power mel spectrogram of a window. Exposed
// separately so spectrogram-domain mixup can blend two of these before the
// rest of the feature chain runs.
func (e *Extractor) MelPower(samples []float64) ([][]float64, error) {
	mel, err := dsp.MelSpectrogram(samples, e.sampleRate, e.mel)
	if err != nil {
		return nil, errors.New(err).
			Component("features").
			Category(errors.CategoryAudio).
			Context("operation", "mel_spectrogram").
			Build()
	}
	return mel, nil
}

// Extract runs the full feature chain on a waveform window.
func (e *Extractor) Extract(samples []float64) (*Image, error) {
	mel, err := e.MelPower(samples)
	if err != nil {
		return nil, err
	}
	return e.FromMelPower(mel)
}

// FromMelPower computes the 3-channel image from a power mel spectrogram.
func (e *Extractor) FromMelPower(mel [][]float64) (*Image, error) {
	pcen, err := dsp.PCEN(mel, e.sampleRate, e.mel.HopLength, e.pcen)
	if err != nil {
		return nil, errors.New(err).
			Component("features").
			Category(errors.CategoryAudio).
			Context("operation", "pcen").
			Build()
	}
	cleanMel := dsp.PowerToDBExp(mel, cleanMelExponent)
	melDB := dsp.PowerToDB(mel)

	channels := [][][]uint8{
		dsp.NormalizeToBytes(melDB),
		dsp.NormalizeToBytes(pcen),
		dsp.NormalizeToBytes(cleanMel),
	}

	srcH := len(mel)
	srcW := 0
	if srcH > 0 {
		srcW = len(mel[0])
	}
	if srcH == 0 || srcW == 0 {
		return nil, errors.Newf("empty mel spectrogram").
			Component("features").
			Category(errors.CategoryProcessing).
			Build()
	}

	dstH := e.imageSize
	dstW := e.imageWidth
	if dstW == 0 {
		// Aspect-preserving resize of the time axis.
		dstW = int(float64(srcW) * float64(e.imageSize) / float64(srcH))
	}

	img := NewImage(len(channels), dstH, dstW)
	for c, plane := range channels {
		asFloat := make([][]float64, srcH)
		for y := range plane {
			asFloat[y] = make([]float64, srcW)
			for x, v := range plane[y] {
				asFloat[y][x] = float64(v)
			}
		}
		resized := dsp.ResizeBilinear(asFloat, dstH, dstW)
		for y := range dstH {
			for x := range dstW {
				v := math.Round(resized[y][x])
				if v < 0 {
					v = 0
				} else if v > 255 {
					v = 255
				}
				img.Set(c, y, x, float32(v)/255.0)
			}
		}
	}
	return img, nil
}

package dsp

import (
	"fmt"
	"math"
)

// PCENParams are the per-channel energy normalization parameters.
type PCENParams struct {
	Gain         float64 // AGC exponent on the smoothed energy
	Bias         float64 // bias point of the compression
	Power        float64 // compression exponent
	TimeConstant float64 // smoother time constant in seconds
	Eps          float64 // numerical floor for the smoother division
}

// PCEN applies per-channel energy normalization to a power mel spectrogram
// indexed [mel][frame]. Each band is smoothed with a one-pole IIR filter
// whose coefficient derives from the time constant, then compressed:
//
//	out = (E / (eps + M)^gain + bias)^power − bias^power
//
// The smoother is initialized with the first frame so short windows do not
// start from a zero state.
func PCEN(mel [][]float64, sampleRate, hopLength int, p PCENParams) ([][]float64, error) {
	if len(mel) == 0 {
		return nil, fmt.Errorf("empty spectrogram")
	}
	if p.TimeConstant <= 0 {
		return nil, fmt.Errorf("time constant must be positive, got %g", p.TimeConstant)
	}
	eps := p.Eps
	if eps <= 0 {
		eps = 1e-6
	}

	// Frames per time constant; the smoothing coefficient follows the
	// librosa derivation from the equivalent exponential window length.
	tFrames := p.TimeConstant * float64(sampleRate) / float64(hopLength)
	b := (math.Sqrt(1+4*tFrames*tFrames) - 1) / (2 * tFrames * tFrames)

	biasTerm := math.Pow(p.Bias, p.Power)

	out := make([][]float64, len(mel))
	for band := range mel {
		row := mel[band]
		out[band] = make([]float64, len(row))
		if len(row) == 0 {
			continue
		}
		m := row[0]
		for t, e := range row {
			if t > 0 {
				m = (1-b)*m + b*e
			}
			agc := e / math.Pow(eps+m, p.Gain)
			out[band][t] = math.Pow(agc+p.Bias, p.Power) - biasTerm
		}
	}
	return out, nil
}

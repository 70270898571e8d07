package dsp

import (
	"fmt"
	"math"
)

// HzToMel converts frequency in Hz to mel scale.
func HzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// MelToHz converts mel scale to frequency in Hz.
func MelToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// MelFilterBank builds a bank of triangular mel filters. The result is
// indexed [filter][bin] with fftSize/2+1 bins per filter.
func MelFilterBank(numFilters, fftSize, sampleRate int, lowFreq, highFreq float64) [][]float64 {
	if numFilters <= 0 || fftSize <= 0 {
		return nil
	}
	if highFreq <= 0 {
		highFreq = float64(sampleRate) / 2
	}

	lowMel := HzToMel(lowFreq)
	highMel := HzToMel(highFreq)

	melPoints := make([]float64, numFilters+2)
	melStep := (highMel - lowMel) / float64(numFilters+1)
	for i := range melPoints {
		melPoints[i] = lowMel + float64(i)*melStep
	}

	binPoints := make([]int, len(melPoints))
	for i, mel := range melPoints {
		hz := MelToHz(mel)
		binPoints[i] = int(math.Floor((float64(fftSize)+1.0)*hz/float64(sampleRate) + 0.5))
		binPoints[i] = min(binPoints[i], fftSize/2)
	}

	numBins := fftSize/2 + 1
	filterBank := make([][]float64, numFilters)
	for i := range filterBank {
		filterBank[i] = make([]float64, numBins)
	}

	for m := 1; m <= numFilters; m++ {
		leftBin := binPoints[m-1]
		centerBin := binPoints[m]
		rightBin := binPoints[m+1]

		for k := leftBin; k < centerBin && k < numBins; k++ {
			if centerBin != leftBin {
				filterBank[m-1][k] = float64(k-leftBin) / float64(centerBin-leftBin)
			}
		}
		for k := centerBin; k < rightBin && k < numBins; k++ {
			if rightBin != centerBin {
				filterBank[m-1][k] = float64(rightBin-k) / float64(rightBin-centerBin)
			}
		}
	}
	return filterBank
}

// MelParams are the mel spectrogram parameters.
type MelParams struct {
	NFFT      int
	HopLength int
	NMels     int
	FMin      float64
	FMax      float64
}

// MelSpectrogram computes a power mel spectrogram indexed [mel][frame].
func MelSpectrogram(signal []float64, sampleRate int, p MelParams) ([][]float64, error) {
	power, err := PowerSpectrogram(signal, p.NFFT, p.HopLength)
	if err != nil {
		return nil, err
	}
	bank := MelFilterBank(p.NMels, p.NFFT, sampleRate, p.FMin, p.FMax)
	if bank == nil {
		return nil, fmt.Errorf("invalid mel filter bank parameters: nmels=%d nfft=%d", p.NMels, p.NFFT)
	}

	numFrames := len(power[0])
	mel := make([][]float64, p.NMels)
	for m := range mel {
		mel[m] = make([]float64, numFrames)
		filter := bank[m]
		for b, weight := range filter {
			if weight == 0 {
				continue
			}
			row := power[b]
			for t := range numFrames {
				mel[m][t] += weight * row[t]
			}
		}
	}
	return mel, nil
}

// BlendSpectrograms returns a*x + b*y elementwise. The inputs must have
// identical shapes.
func BlendSpectrograms(x, y [][]float64, a, b float64) ([][]float64, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("shape mismatch: %d vs %d rows", len(x), len(y))
	}
	out := make([][]float64, len(x))
	for i := range x {
		if len(x[i]) != len(y[i]) {
			return nil, fmt.Errorf("shape mismatch in row %d: %d vs %d", i, len(x[i]), len(y[i]))
		}
		out[i] = make([]float64, len(x[i]))
		for j := range x[i] {
			out[i][j] = a*x[i][j] + b*y[i][j]
		}
	}
	return out, nil
}

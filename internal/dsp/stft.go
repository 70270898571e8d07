// Package dsp implements the spectral primitives the feature extractor is
// built on: short-time Fourier transform, mel filter banks, PCEN and the
// normalization helpers.
package dsp

import (
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/fft"
)

// HannWindow returns a periodic Hann window of the given size.
func HannWindow(size int) []float64 {
	w := make([]float64, size)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(size))
	}
	return w
}

// PowerSpectrogram computes the squared-magnitude STFT of a signal with a
// periodic Hann window and centered reflect padding. The result is indexed
// [bin][frame] with nfft/2+1 bins and 1 + len(signal)/hop frames.
func PowerSpectrogram(signal []float64, nfft, hop int) ([][]float64, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}
	if nfft <= 0 || hop <= 0 {
		return nil, fmt.Errorf("nfft and hop must be positive, got %d and %d", nfft, hop)
	}

	padded := reflectPad(signal, nfft/2)
	numFrames := 1 + len(signal)/hop
	numBins := nfft/2 + 1
	window := HannWindow(nfft)

	spec := make([][]float64, numBins)
	for b := range spec {
		spec[b] = make([]float64, numFrames)
	}

	frame := make([]float64, nfft)
	for t := range numFrames {
		start := t * hop
		for i := range nfft {
			if start+i < len(padded) {
				frame[i] = padded[start+i] * window[i]
			} else {
				frame[i] = 0
			}
		}
		coeffs := fft.FFTReal(frame)
		for b := range numBins {
			re := real(coeffs[b])
			im := imag(coeffs[b])
			spec[b][t] = re*re + im*im
		}
	}
	return spec, nil
}

// reflectPad pads the signal by n samples on both sides mirroring around the
// edge samples. Signals shorter than the pad fall back to edge replication
// for the out-of-range part.
func reflectPad(signal []float64, n int) []float64 {
	out := make([]float64, 0, len(signal)+2*n)
	for i := n; i > 0; i-- {
		out = append(out, signal[reflectIndex(i, len(signal))])
	}
	out = append(out, signal...)
	for i := 1; i <= n; i++ {
		out = append(out, signal[reflectIndex(len(signal)-1-i, len(signal))])
	}
	return out
}

func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * (n - 1)
	i = ((i % period) + period) % period
	if i >= n {
		i = period - i
	}
	return i
}

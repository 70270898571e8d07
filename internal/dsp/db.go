package dsp

import "math"

const (
	dbAmin  = 1e-10
	dbTopDB = 80.0
)

// PowerToDB converts a power spectrogram to decibel scale (10*log10 with a
// 1e-10 floor) and clamps every value to at most 80 dB below the
// spectrogram's peak.
func PowerToDB(spec [][]float64) [][]float64 {
	return PowerToDBExp(spec, 1.0)
}

// PowerToDBExp raises the power spectrogram to the given exponent before dB
// conversion. An exponent above 1 suppresses low-energy noise relative to
// plain log scaling ("clean mel" uses 1.5).
func PowerToDBExp(spec [][]float64, exponent float64) [][]float64 {
	out := make([][]float64, len(spec))
	maxDB := math.Inf(-1)
	for i, row := range spec {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			if exponent != 1.0 {
				v = math.Pow(v, exponent)
			}
			db := 10 * math.Log10(math.Max(v, dbAmin))
			out[i][j] = db
			if db > maxDB {
				maxDB = db
			}
		}
	}
	floor := maxDB - dbTopDB
	for i := range out {
		for j := range out[i] {
			if out[i][j] < floor {
				out[i][j] = floor
			}
		}
	}
	return out
}

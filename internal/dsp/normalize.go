package dsp

import "math"

const normEps = 1e-6

// NormalizeToBytes standardizes a 2-D array (subtract mean, divide by
// std+eps) and rescales it linearly to the 8-bit range, truncating to
// integers. When the standardized dynamic range collapses (max-min below
// eps, e.g. a constant-valued or silent window) the result is all zeros
// rather than a division by a near-zero range; NaN/inf never propagate.
func NormalizeToBytes(x [][]float64) [][]uint8 {
	rows := len(x)
	out := make([][]uint8, rows)
	if rows == 0 {
		return out
	}

	var sum float64
	var count int
	for _, row := range x {
		for _, v := range row {
			sum += v
			count++
		}
	}
	if count == 0 {
		return out
	}
	mean := sum / float64(count)

	var sqsum float64
	for _, row := range x {
		for _, v := range row {
			d := v - mean
			sqsum += d * d
		}
	}
	std := math.Sqrt(sqsum / float64(count))

	normMin := math.Inf(1)
	normMax := math.Inf(-1)
	standardized := make([][]float64, rows)
	for i, row := range x {
		standardized[i] = make([]float64, len(row))
		for j, v := range row {
			s := (v - mean) / (std + normEps)
			standardized[i][j] = s
			if s < normMin {
				normMin = s
			}
			if s > normMax {
				normMax = s
			}
		}
	}

	for i := range out {
		out[i] = make([]uint8, len(x[i]))
	}
	if normMax-normMin <= normEps {
		// Degenerate dynamic range: just zero.
		return out
	}

	scale := 255 / (normMax - normMin)
	for i, row := range standardized {
		for j, s := range row {
			out[i][j] = uint8(scale * (s - normMin))
		}
	}
	return out
}

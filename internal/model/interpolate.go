package model

// Interpolate upsamples a [segments][classes] sequence to frame resolution
// by repeating each segment ratio times along time. The caller pads the
// remainder with PadFramewise.
func Interpolate(segmentwise [][]float64, ratio int) [][]float64 {
	if ratio < 1 {
		ratio = 1
	}
	out := make([][]float64, 0, len(segmentwise)*ratio)
	for _, row := range segmentwise {
		for range ratio {
			frame := make([]float64, len(row))
			copy(frame, row)
			out = append(out, frame)
		}
	}
	return out
}

// PadFramewise right-pads a frame sequence to the target length by
// replicating the final frame. A floor-division upsample ratio leaves a
// short tail; duplicating the last value is the intended edge fill, not an
// error.
func PadFramewise(frames [][]float64, targetLen int) [][]float64 {
	if len(frames) == 0 || len(frames) >= targetLen {
		return frames
	}
	last := frames[len(frames)-1]
	for len(frames) < targetLen {
		frame := make([]float64, len(last))
		copy(frame, last)
		frames = append(frames, frame)
	}
	return frames
}

// upsample runs the repeat-and-pad chain for one example.
func upsample(segmentwise [][]float64, framesNum int) [][]float64 {
	if len(segmentwise) == 0 {
		return segmentwise
	}
	ratio := framesNum / len(segmentwise)
	return PadFramewise(Interpolate(segmentwise, ratio), framesNum)
}

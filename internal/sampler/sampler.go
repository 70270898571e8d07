// Package sampler picks time offsets for extracting fixed-length audio
// windows around annotated events. All randomness comes from an injected
// random source so fetches are reproducible under a fixed seed.
package sampler

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/tphakala/rainforest-sed/internal/conf"
	"github.com/tphakala/rainforest-sed/internal/errors"
)

// Window is a sampled sub-interval of a recording. Ephemeral, created per
// example fetch.
type Window struct {
	RecordingID string
	Offset      float64
	Duration    float64
}

// End returns the exclusive end of the window in seconds.
func (w Window) End() float64 {
	return w.Offset + w.Duration
}

// RandomOffset draws a window offset on a 0.1 s grid around an event.
//
// Short events (call shorter than the window) draw uniformly from
// [max(t_max - duration, 0), t_min) so the whole call lands inside the
// window. Long events draw from [max(t_min - call/2, 0), t_min + call/2) so
// the window can land inside the call. The result is clamped to
// clipDuration - duration so the window never runs past the recording end.
//
// An empty sampling interval (an event starting at time zero whose grid
// degenerates) returns an error instead of panicking; callers treat it as a
// fatal fetch error.
func RandomOffset(rng *rand.Rand, tMin, tMax, duration, clipDuration float64) (float64, error) {
	callDuration := tMax - tMin

	var start, stop float64
	if callDuration > duration {
		start = math.Max(tMin-callDuration/2, 0)
		stop = tMin + callDuration/2
	} else {
		start = math.Max(tMax-duration, 0)
		stop = tMin
	}

	offset, err := choiceOnGrid(rng, start, stop)
	if err != nil {
		return 0, errors.New(err).
			Component("sampler").
			Category(errors.CategoryDataset).
			Context("operation", "random_offset").
			Context("t_min", tMin).
			Context("t_max", tMax).
			Context("duration", duration).
			Build()
	}
	return math.Min(clipDuration-duration, offset), nil
}

// CenteredOffset deterministically centers the event in the window when it
// fits, clamped to the valid offset range.
func CenteredOffset(tMin, tMax, duration, clipDuration float64) float64 {
	callDuration := tMax - tMin
	relativeOffset := (duration - callDuration) / 2
	return clamp(tMin-relativeOffset, 0, clipDuration-duration)
}

// SequentialOffset enumerates non-overlapping chunks of a recording:
// segment i starts at i * duration.
func SequentialOffset(segmentIndex int, duration float64) float64 {
	return float64(segmentIndex) * duration
}

// SegmentsPerClip returns how many non-overlapping windows of the given
// duration fit a clip, the sequential dataset's chunk count.
func SegmentsPerClip(clipDuration, duration float64) int {
	return int(clipDuration / duration)
}

// UniformOffset draws an offset on the grid over the full valid range
// [0, clipDuration - duration). Used for background windows that are not
// tied to an event.
func UniformOffset(rng *rand.Rand, duration, clipDuration float64) (float64, error) {
	offset, err := choiceOnGrid(rng, 0, clipDuration-duration)
	if err != nil {
		return 0, errors.New(err).
			Component("sampler").
			Category(errors.CategoryDataset).
			Context("operation", "uniform_offset").
			Context("duration", duration).
			Build()
	}
	return offset, nil
}

// choiceOnGrid draws uniformly from {start, start+g, ...} < stop where g is
// the offset granularity. An empty grid is an error.
func choiceOnGrid(rng *rand.Rand, start, stop float64) (float64, error) {
	// Small epsilon keeps a stop value that lands exactly on the grid out
	// of the candidate set, matching half-open interval semantics.
	n := int(math.Ceil((stop-start)/conf.OffsetGranularity - 1e-9))
	if n <= 0 {
		return 0, fmt.Errorf("empty sampling interval [%g, %g)", start, stop)
	}
	return start + conf.OffsetGranularity*float64(rng.IntN(n)), nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

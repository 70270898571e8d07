package sampler

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomOffsetBounds(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(42, 0))

	cases := []struct {
		name       string
		tMin, tMax float64
	}{
		{"short event mid clip", 12.0, 12.4},
		{"short event near end", 57.0, 59.5},
		{"long event", 5.0, 25.0},
		{"event longer than clip tail", 45.0, 59.9},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for range 500 {
				offset, err := RandomOffset(rng, tc.tMin, tc.tMax, 10, 60)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, offset, 0.0)
				assert.LessOrEqual(t, offset, 50.0)
			}
		})
	}
}

func TestRandomOffsetShortEventCoversCall(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(7, 0))
	for range 500 {
		offset, err := RandomOffset(rng, 12.0, 12.4, 10, 60)
		require.NoError(t, err)
		// The whole call must land inside the window.
		assert.LessOrEqual(t, offset, 12.0)
		assert.GreaterOrEqual(t, offset+10, 12.4)
	}
}

func TestRandomOffsetEmptyInterval(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(1, 0))
	// An event starting at time zero shorter than the window degenerates to
	// an empty grid under the [max(t_max - duration, 0), t_min) rule.
	_, err := RandomOffset(rng, 0, 0.5, 10, 60)
	require.Error(t, err)
	assert.ErrorContains(t, err, "empty sampling interval")
}

func TestRandomOffsetOnGrid(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(3, 0))
	for range 200 {
		offset, err := RandomOffset(rng, 12.0, 12.4, 10, 60)
		require.NoError(t, err)
		steps := offset / 0.1
		assert.InDelta(t, math.Round(steps), steps, 1e-9)
	}
}

func TestCenteredOffset(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name       string
		tMin, tMax float64
		want       float64
	}{
		{"event centered mid clip", 12.0, 12.4, 7.2},
		{"event at clip start clamps to zero", 0.2, 0.6, 0},
		{"event at clip end clamps to max offset", 59.0, 59.8, 50},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CenteredOffset(tc.tMin, tc.tMax, 10, 60)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestSequentialOffsets(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 6, SegmentsPerClip(60, 10))
	for i := range 6 {
		assert.InDelta(t, float64(i)*10, SequentialOffset(i, 10), 1e-9)
	}
}

func TestUniformOffsetBounds(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(11, 0))
	for range 500 {
		offset, err := UniformOffset(rng, 10, 60)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, offset, 0.0)
		assert.Less(t, offset, 50.0)
	}
}

func TestWindowEnd(t *testing.T) {
	t.Parallel()
	w := Window{RecordingID: "rec", Offset: 7.2, Duration: 10}
	assert.InDelta(t, 17.2, w.End(), 1e-9)
}

package mixup

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBetaRange(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(5, 0))
	for _, alpha := range []float64{0.2, 1, 5} {
		for range 1000 {
			lam := Beta(rng, alpha, alpha)
			assert.GreaterOrEqual(t, lam, 0.0)
			assert.LessOrEqual(t, lam, 1.0)
		}
	}
}

func TestBetaSymmetricMean(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(9, 0))
	sum := 0.0
	const n = 20000
	for range n {
		sum += Beta(rng, 5, 5)
	}
	assert.InDelta(t, 0.5, sum/n, 0.01)
}

func TestShouldMix(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(1, 0))

	never := New(0, 5)
	always := New(1, 5)
	for range 100 {
		assert.False(t, never.ShouldMix(rng))
		assert.True(t, always.ShouldMix(rng))
	}
}

func TestPickSecondaryDiffers(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(2, 0))
	c := New(1, 5)
	for range 200 {
		assert.NotEqual(t, 3, c.PickSecondary(rng, 5, 3))
	}
}

func TestBlendWaveforms(t *testing.T) {
	t.Parallel()
	primary := []float64{1, 1, 1, 1}
	secondary := []float64{0, 2, 0, 2}

	out := BlendWaveforms(primary, secondary, 0.75)
	assert.InDeltaSlice(t, []float64{0.75, 1.25, 0.75, 1.25}, out, 1e-12)

	// The shorter input bounds the output.
	short := BlendWaveforms(primary, secondary[:2], 0.5)
	assert.Len(t, short, 2)
}

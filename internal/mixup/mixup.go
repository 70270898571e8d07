// Package mixup blends a second sampled window into a training example and
// tracks the blend coefficient so labels are split proportionally.
package mixup

import (
	"math"
	"math/rand/v2"
)

// Compositor decides whether an example gets mixed and draws the blend
// coefficient. All randomness comes from the per-fetch random source.
type Compositor struct {
	probability float64
	alpha       float64
}

// New returns a compositor with the given mixing probability and Beta
// distribution parameter.
func New(probability, alpha float64) *Compositor {
	return &Compositor{probability: probability, alpha: alpha}
}

// ShouldMix reports whether this fetch blends a second window.
func (c *Compositor) ShouldMix(rng *rand.Rand) bool {
	return rng.Float64() < c.probability
}

// Lambda draws the blend coefficient lam ~ Beta(alpha, alpha).
func (c *Compositor) Lambda(rng *rand.Rand) float64 {
	return Beta(rng, c.alpha, c.alpha)
}

// PickSecondary draws a secondary event index uniformly from [0, n),
// re-drawing until it differs from the primary index. n must exceed 1.
func (c *Compositor) PickSecondary(rng *rand.Rand, n, primary int) int {
	for {
		idx := rng.IntN(n)
		if idx != primary {
			return idx
		}
	}
}

// BlendWaveforms mixes raw samples lam*primary + (1-lam)*secondary. The
// shorter input bounds the output length.
func BlendWaveforms(primary, secondary []float64, lam float64) []float64 {
	n := min(len(primary), len(secondary))
	out := make([]float64, n)
	for i := range n {
		out[i] = lam*primary[i] + (1-lam)*secondary[i]
	}
	return out
}

// Beta draws from a Beta(a, b) distribution via two Gamma draws.
func Beta(rng *rand.Rand, a, b float64) float64 {
	x := gamma(rng, a)
	y := gamma(rng, b)
	if x+y == 0 {
		return 0.5
	}
	return x / (x + y)
}

// gamma draws from a Gamma(shape, 1) distribution with the
// Marsaglia-Tsang squeeze method; shapes below 1 use the boost
// Gamma(a) = Gamma(a+1) * U^(1/a).
func gamma(rng *rand.Rand, shape float64) float64 {
	if shape < 1 {
		u := rng.Float64()
		for u == 0 {
			u = rng.Float64()
		}
		return gamma(rng, shape+1) * math.Pow(u, 1/shape)
	}

	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9.0*d)
	for {
		x := rng.NormFloat64()
		v := 1.0 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		u := rng.Float64()
		if u < 1.0-0.0331*x*x*x*x {
			return d * v
		}
		if u > 0 && math.Log(u) < 0.5*x*x+d*(1.0-v+math.Log(v)) {
			return d * v
		}
	}
}

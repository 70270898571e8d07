// Package training runs the epoch loop: concurrent example loading,
// gradient steps on the pooling head, ranking-metric evaluation, checkpoint
// tracking and the end-of-run prediction tables.
package training

import "math"

const bceEps = 1e-7

// Criterion scores a clipwise prediction against weak targets. It is an
// interface so model variants can swap the loss without touching the loop.
type Criterion interface {
	Name() string
	Loss(pred []float64, target []float32) float64
}

// BCEWeak is the default criterion: mean binary cross entropy between the
// clipwise probabilities and the weak label vector.
type BCEWeak struct{}

func (BCEWeak) Name() string { return "bce_weak" }

func (BCEWeak) Loss(pred []float64, target []float32) float64 {
	if len(pred) == 0 {
		return 0
	}
	sum := 0.0
	for k, p := range pred {
		p = math.Min(math.Max(p, bceEps), 1-bceEps)
		y := float64(target[k])
		sum += -(y*math.Log(p) + (1-y)*math.Log(1-p))
	}
	return sum / float64(len(pred))
}

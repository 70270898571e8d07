package model

import (
	"gonum.org/v1/gonum/mat"
)

const gradEps = 1e-7

// Gradients accumulates head parameter gradients over a batch.
type Gradients struct {
	fc1W *mat.Dense
	fc1B []float64
	attW *mat.Dense
	attB []float64
	claW *mat.Dense
	claB []float64
}

// NewGradients allocates a zeroed gradient accumulator for the head.
func NewGradients(h *Head) *Gradients {
	return &Gradients{
		fc1W: mat.NewDense(h.HiddenDim, h.InDim, nil),
		fc1B: make([]float64, h.HiddenDim),
		attW: mat.NewDense(h.Classes, h.HiddenDim, nil),
		attB: make([]float64, h.Classes),
		claW: mat.NewDense(h.Classes, h.HiddenDim, nil),
		claB: make([]float64, h.Classes),
	}
}

// TrainBackward accumulates the gradient of the mean binary cross entropy
// between one example's clipwise output and its weak targets. The backbone
// is frozen; gradients stop at the head's input.
func (m *Model) TrainBackward(g *Gradients, state *TrainState, target []float32) {
	h := m.Head
	c := state.cache
	T, _ := c.hidden.Dims()
	K := h.Classes

	// dL/d claLogit, and for attention pooling dL/d attention logit.
	dCla := mat.NewDense(T, K, nil)
	var dAtt *mat.Dense

	switch h.Pooling {
	case PoolingAttention:
		dAtt = mat.NewDense(T, K, nil)
		for k := range K {
			p := c.clipwise[k]
			gp := (p - float64(target[k])) / max(p*(1-p), gradEps) / float64(K)

			// Softmax over time per class: dz = a * (dA - sum(a*dA)).
			dot := 0.0
			for t := range T {
				dot += c.normAtt.At(t, k) * gp * c.cla.At(t, k)
			}
			for t := range T {
				a := c.normAtt.At(t, k)
				cla := c.cla.At(t, k)
				dCla.Set(t, k, gp*a*cla*(1-cla))

				dz := a * (gp*cla - dot)
				tanh := c.attTanh.At(t, k)
				dAtt.Set(t, k, dz*(1-tanh*tanh))
			}
		}
	case PoolingMax:
		// With sigmoid-of-max the BCE gradient collapses to p - y, routed
		// to the winning segment only.
		for k := range K {
			dCla.Set(c.maxArg[k], k, (c.clipwise[k]-float64(target[k]))/float64(K))
		}
	}

	accumulate(g.claW, g.claB, dCla, c.hidden)
	dHidden := mat.NewDense(T, h.HiddenDim, nil)
	dHidden.Mul(dCla, h.ClaW.Dense())
	if dAtt != nil {
		accumulate(g.attW, g.attB, dAtt, c.hidden)
		var viaAtt mat.Dense
		viaAtt.Mul(dAtt, h.AttW.Dense())
		dHidden.Add(dHidden, &viaAtt)
	}

	// ReLU gate.
	for t := range T {
		for j := range h.HiddenDim {
			if c.hidden.At(t, j) <= 0 {
				dHidden.Set(t, j, 0)
			}
		}
	}
	accumulate(g.fc1W, g.fc1B, dHidden, c.pooled)
}

// accumulate adds dOutᵀ·input to the weight gradient and the column sums of
// dOut to the bias gradient.
func accumulate(gw *mat.Dense, gb []float64, dOut, input *mat.Dense) {
	var delta mat.Dense
	delta.Mul(dOut.T(), input)
	gw.Add(gw, &delta)
	T, K := dOut.Dims()
	for k := range K {
		for t := range T {
			gb[k] += dOut.At(t, k)
		}
	}
}

// ApplyGradients takes one SGD step, scaling the accumulated gradients by
// lr. Callers fold the batch-size average into lr.
func (m *Model) ApplyGradients(g *Gradients, lr float64) {
	step(m.Head.FC1W.Dense(), m.Head.FC1B, g.fc1W, g.fc1B, lr)
	step(m.Head.AttW.Dense(), m.Head.AttB, g.attW, g.attB, lr)
	step(m.Head.ClaW.Dense(), m.Head.ClaB, g.claW, g.claB, lr)
}

func step(w *mat.Dense, b []float64, gw *mat.Dense, gb []float64, lr float64) {
	rows, cols := w.Dims()
	for r := range rows {
		for c := range cols {
			w.Set(r, c, w.At(r, c)-lr*gw.At(r, c))
		}
	}
	for i := range b {
		b[i] -= lr * gb[i]
	}
}

// Package model implements the attention pooling head that turns a
// backbone's segment embeddings into clip, segment and frame level class
// scores, plus gob checkpointing and the gradient step used in training.
package model

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/tphakala/rainforest-sed/internal/errors"
)

// PoolingKind selects how segment scores collapse into a clip score.
type PoolingKind int

const (
	// PoolingAttention weights each segment by a learned per-class
	// attention distribution over time.
	PoolingAttention PoolingKind = iota

	// PoolingMax takes the per-class maximum logit over segments.
	PoolingMax
)

// Head is the pooling classifier on top of a backbone. Fields are exported
// for gob checkpoints.
type Head struct {
	InDim     int
	HiddenDim int
	Classes   int
	Pooling   PoolingKind
	Dropout   float64

	FC1W *Tensor // [hidden, in]
	FC1B []float64
	AttW *Tensor // [classes, hidden]
	AttB []float64
	ClaW *Tensor // [classes, hidden]
	ClaB []float64
}

// NewHead initializes a head with Glorot weights from the given source.
func NewHead(inDim, hiddenDim, classes int, pooling PoolingKind, dropout float64, rng *rand.Rand) *Head {
	h := &Head{
		InDim:     inDim,
		HiddenDim: hiddenDim,
		Classes:   classes,
		Pooling:   pooling,
		Dropout:   dropout,
		FC1W:      NewTensor(hiddenDim, inDim),
		FC1B:      make([]float64, hiddenDim),
		AttW:      NewTensor(classes, hiddenDim),
		AttB:      make([]float64, classes),
		ClaW:      NewTensor(classes, hiddenDim),
		ClaB:      make([]float64, classes),
	}
	h.FC1W.xavierInit(rng)
	h.AttW.xavierInit(rng)
	h.ClaW.xavierInit(rng)
	return h
}

// Validate checks the weight shapes after a checkpoint load.
func (h *Head) Validate() error {
	if err := checkShape("fc1", h.FC1W, h.HiddenDim, h.InDim); err != nil {
		return err
	}
	if err := checkShape("att", h.AttW, h.Classes, h.HiddenDim); err != nil {
		return err
	}
	if err := checkShape("cla", h.ClaW, h.Classes, h.HiddenDim); err != nil {
		return err
	}
	if len(h.FC1B) != h.HiddenDim || len(h.AttB) != h.Classes || len(h.ClaB) != h.Classes {
		return errors.Newf("head bias length mismatch").
			Component("model").
			Category(errors.CategoryModelInit).
			Build()
	}
	return nil
}

// forwardCache keeps the intermediates of one example's forward pass so the
// backward pass does not recompute them.
type forwardCache struct {
	pooled   *mat.Dense // [T, in] smoothed embeddings
	hidden   *mat.Dense // [T, hidden] post-ReLU
	attTanh  *mat.Dense // [T, classes] tanh of attention logits
	normAtt  *mat.Dense // [T, classes] softmax over time per class
	claLogit *mat.Dense // [T, classes]
	cla      *mat.Dense // [T, classes] sigmoid
	clipwise []float64  // [classes]
	logit    []float64  // [classes]
	maxArg   []int      // argmax segment per class, max pooling only
}

// forward runs one example through the head. embeddings is [T, in].
func (h *Head) forward(embeddings *mat.Dense) (*forwardCache, error) {
	T, in := embeddings.Dims()
	if in != h.InDim {
		return nil, errors.Newf("head expects embedding dim %d, got %d", h.InDim, in).
			Component("model").
			Category(errors.CategoryModelInit).
			Build()
	}

	c := &forwardCache{}
	c.pooled = smoothTime(embeddings)

	// Hidden projection with ReLU. Dropout is inert here; the head runs in
	// eval mode and training perturbs via the data pipeline instead.
	c.hidden = mat.NewDense(T, h.HiddenDim, nil)
	c.hidden.Mul(c.pooled, h.FC1W.Dense().T())
	for t := range T {
		for j := range h.HiddenDim {
			v := c.hidden.At(t, j) + h.FC1B[j]
			if v < 0 {
				v = 0
			}
			c.hidden.Set(t, j, v)
		}
	}

	c.claLogit = mat.NewDense(T, h.Classes, nil)
	c.claLogit.Mul(c.hidden, h.ClaW.Dense().T())
	c.cla = mat.NewDense(T, h.Classes, nil)
	for t := range T {
		for k := range h.Classes {
			z := c.claLogit.At(t, k) + h.ClaB[k]
			c.claLogit.Set(t, k, z)
			c.cla.Set(t, k, sigmoid(z))
		}
	}

	c.clipwise = make([]float64, h.Classes)
	c.logit = make([]float64, h.Classes)

	switch h.Pooling {
	case PoolingAttention:
		c.attTanh = mat.NewDense(T, h.Classes, nil)
		c.attTanh.Mul(c.hidden, h.AttW.Dense().T())
		for t := range T {
			for k := range h.Classes {
				c.attTanh.Set(t, k, math.Tanh(c.attTanh.At(t, k)+h.AttB[k]))
			}
		}
		c.normAtt = softmaxOverTime(c.attTanh)
		for k := range h.Classes {
			for t := range T {
				a := c.normAtt.At(t, k)
				c.clipwise[k] += a * c.cla.At(t, k)
				c.logit[k] += a * c.claLogit.At(t, k)
			}
		}
	case PoolingMax:
		c.maxArg = make([]int, h.Classes)
		for k := range h.Classes {
			best, arg := math.Inf(-1), 0
			for t := range T {
				if z := c.claLogit.At(t, k); z > best {
					best, arg = z, t
				}
			}
			c.logit[k] = best
			c.clipwise[k] = sigmoid(best)
			c.maxArg[k] = arg
		}
	default:
		return nil, errors.Newf("unsupported pooling kind %d", int(h.Pooling)).
			Component("model").
			Category(errors.CategoryModelInit).
			Build()
	}
	return c, nil
}

// smoothTime sums a local max pool and a local average pool along time,
// window 3, stride 1, same-length padding.
func smoothTime(x *mat.Dense) *mat.Dense {
	T, D := x.Dims()
	out := mat.NewDense(T, D, nil)
	for t := range T {
		lo := max(t-1, 0)
		hi := min(t+1, T-1)
		for d := range D {
			peak := math.Inf(-1)
			sum := 0.0
			for s := lo; s <= hi; s++ {
				v := x.At(s, d)
				sum += v
				if v > peak {
					peak = v
				}
			}
			// The average divides by the full window so edge positions see
			// implicit zero padding, matching the usual pooling convention.
			out.Set(t, d, peak+sum/3)
		}
	}
	return out
}

// softmaxOverTime normalizes each class column over the time axis.
func softmaxOverTime(z *mat.Dense) *mat.Dense {
	T, K := z.Dims()
	out := mat.NewDense(T, K, nil)
	for k := range K {
		peak := math.Inf(-1)
		for t := range T {
			if v := z.At(t, k); v > peak {
				peak = v
			}
		}
		sum := 0.0
		for t := range T {
			e := math.Exp(z.At(t, k) - peak)
			out.Set(t, k, e)
			sum += e
		}
		for t := range T {
			out.Set(t, k, out.At(t, k)/sum)
		}
	}
	return out
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

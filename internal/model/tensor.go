package model

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/tphakala/rainforest-sed/internal/errors"
)

// Tensor is a dense row-major matrix with exported fields so checkpoints
// can be gob encoded. Dense() wraps the same backing slice, so writes
// through the gonum view mutate the tensor.
type Tensor struct {
	Rows, Cols int
	Data       []float64
}

// NewTensor allocates a zeroed tensor.
func NewTensor(rows, cols int) *Tensor {
	return &Tensor{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

// Dense returns a gonum view over the tensor's backing slice.
func (t *Tensor) Dense() *mat.Dense {
	return mat.NewDense(t.Rows, t.Cols, t.Data)
}

// At returns element (r, c).
func (t *Tensor) At(r, c int) float64 {
	return t.Data[r*t.Cols+c]
}

// Set assigns element (r, c).
func (t *Tensor) Set(r, c int, v float64) {
	t.Data[r*t.Cols+c] = v
}

// xavierInit fills the tensor with uniform Glorot weights from the given
// random source.
func (t *Tensor) xavierInit(rng *rand.Rand) {
	limit := math.Sqrt(6.0 / float64(t.Rows+t.Cols))
	for i := range t.Data {
		t.Data[i] = (rng.Float64()*2 - 1) * limit
	}
}

func checkShape(component string, t *Tensor, rows, cols int) error {
	if t == nil || t.Rows != rows || t.Cols != cols {
		return errors.Newf("%s: tensor shape mismatch", component).
			Component("model").
			Category(errors.CategoryModelInit).
			Context("want_rows", rows).
			Context("want_cols", cols).
			Build()
	}
	return nil
}

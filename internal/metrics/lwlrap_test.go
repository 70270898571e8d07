package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestLWLRAPPerfectRanking(t *testing.T) {
	t.Parallel()
	truth := mat.NewDense(2, 3, []float64{
		1, 0, 0,
		0, 1, 1,
	})
	scores := mat.NewDense(2, 3, []float64{
		0.9, 0.1, 0.2,
		0.1, 0.8, 0.7,
	})
	perClass, weights, err := LWLRAP(truth, scores)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, Overall(perClass, weights), 1e-12)
}

func TestLWLRAPKnownCase(t *testing.T) {
	t.Parallel()
	// One sample, the single positive ranked second: precision 1/2.
	truth := mat.NewDense(1, 3, []float64{0, 0, 1})
	scores := mat.NewDense(1, 3, []float64{0.9, 0.1, 0.5})
	perClass, weights, err := LWLRAP(truth, scores)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, perClass[2], 1e-12)
	assert.InDelta(t, 1.0, weights[2], 1e-12)
	assert.InDelta(t, 0.5, Overall(perClass, weights), 1e-12)
}

func TestLWLRAPTwoPositives(t *testing.T) {
	t.Parallel()
	// Positives ranked first and third: precisions 1/1 and 2/3.
	truth := mat.NewDense(1, 3, []float64{1, 0, 1})
	scores := mat.NewDense(1, 3, []float64{0.9, 0.5, 0.1})
	perClass, weights, err := LWLRAP(truth, scores)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, perClass[0], 1e-12)
	assert.InDelta(t, 2.0/3.0, perClass[2], 1e-12)
	assert.InDelta(t, 0.5, weights[0], 1e-12)
	assert.InDelta(t, (1.0+2.0/3.0)/2, Overall(perClass, weights), 1e-12)
}

func TestLWLRAPWeightsSumToOne(t *testing.T) {
	t.Parallel()
	truth := mat.NewDense(3, 4, []float64{
		1, 0, 1, 0,
		0, 1, 0, 0,
		1, 1, 0, 1,
	})
	scores := mat.NewDense(3, 4, []float64{
		0.1, 0.2, 0.3, 0.4,
		0.4, 0.3, 0.2, 0.1,
		0.25, 0.5, 0.75, 0.9,
	})
	_, weights, err := LWLRAP(truth, scores)
	require.NoError(t, err)
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
}

func TestLWLRAPShapeMismatch(t *testing.T) {
	t.Parallel()
	_, _, err := LWLRAP(mat.NewDense(1, 2, nil), mat.NewDense(1, 3, nil))
	require.Error(t, err)
}

func TestAverageMeter(t *testing.T) {
	t.Parallel()
	var m AverageMeter
	assert.Zero(t, m.Average())

	m.Update(2, 1)
	m.Update(4, 3)
	assert.InDelta(t, 3.5, m.Average(), 1e-12)

	m.Reset()
	assert.Zero(t, m.Average())
}

// Package metrics implements the ranking metric the training loop reports
// and small bookkeeping helpers.
package metrics

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/tphakala/rainforest-sed/internal/errors"
)

// LWLRAP computes label-weighted label-ranking average precision. Given a
// binary truth matrix and a score matrix of identical [samples, classes]
// shape it returns the per-class score vector and the per-class weight
// vector; their dot product is the reported metric.
func LWLRAP(truth, scores *mat.Dense) (perClass, weights []float64, err error) {
	tr, tc := truth.Dims()
	sr, sc := scores.Dims()
	if tr != sr || tc != sc {
		return nil, nil, errors.Newf("truth shape [%d,%d] does not match scores [%d,%d]", tr, tc, sr, sc).
			Component("metrics").
			Category(errors.CategoryValidation).
			Build()
	}

	precisionSums := make([]float64, tc)
	labelCounts := make([]float64, tc)

	for i := range tr {
		hits := samplePrecisions(truth.RawRowView(i), scores.RawRowView(i))
		for _, h := range hits {
			precisionSums[h.class] += h.precision
			labelCounts[h.class]++
		}
	}

	total := 0.0
	for _, n := range labelCounts {
		total += n
	}
	perClass = make([]float64, tc)
	weights = make([]float64, tc)
	for k := range tc {
		if labelCounts[k] > 0 {
			perClass[k] = precisionSums[k] / labelCounts[k]
		}
		if total > 0 {
			weights[k] = labelCounts[k] / total
		}
	}
	return perClass, weights, nil
}

// Overall reduces the per-class vectors to the single reported number.
func Overall(perClass, weights []float64) float64 {
	sum := 0.0
	for k := range perClass {
		sum += perClass[k] * weights[k]
	}
	return sum
}

type classPrecision struct {
	class     int
	precision float64
}

// samplePrecisions returns, for each positive class of one sample, the
// precision of the score ranking truncated at that class's rank.
func samplePrecisions(truth, scores []float64) []classPrecision {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	var out []classPrecision
	positivesSeen := 0
	for rank, class := range order {
		if truth[class] > 0 {
			positivesSeen++
			out = append(out, classPrecision{
				class:     class,
				precision: float64(positivesSeen) / float64(rank+1),
			})
		}
	}
	return out
}

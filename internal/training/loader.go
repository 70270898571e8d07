package training

import (
	"context"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/rainforest-sed/internal/dataset"
)

// Loader fetches batches of examples concurrently. Each fetch gets its own
// random source derived from the base seed, the epoch and the example
// index, so results are reproducible regardless of which goroutine runs
// which fetch. Output order is positional: slot i of a batch holds the
// example for indices[i]. Any fetch error fails the whole batch.
type Loader struct {
	ds      dataset.Dataset
	workers int
	seed    uint64
}

// NewLoader wraps a dataset with a bounded-concurrency fetcher.
func NewLoader(ds dataset.Dataset, workers int, seed int64) *Loader {
	if workers < 1 {
		workers = 1
	}
	return &Loader{ds: ds, workers: workers, seed: uint64(seed)}
}

// Load fetches the given example indices as one batch.
func (l *Loader) Load(ctx context.Context, epoch int, indices []int) ([]*dataset.Example, error) {
	out := make([]*dataset.Example, len(indices))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for slot, index := range indices {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(l.seed, fetchStream(epoch, index)))
			example, err := l.ds.Get(index, rng)
			if err != nil {
				return err
			}
			out[slot] = example
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Permutation returns the epoch's shuffled index order, deterministic under
// the base seed.
func (l *Loader) Permutation(epoch int) []int {
	rng := rand.New(rand.NewPCG(l.seed, fetchStream(epoch, -1)))
	return rng.Perm(l.ds.Len())
}

// Len returns the underlying dataset length.
func (l *Loader) Len() int { return l.ds.Len() }

// fetchStream folds epoch and index into the second PCG stream word.
func fetchStream(epoch, index int) uint64 {
	return uint64(epoch)*0x9e3779b97f4a7c15 ^ uint64(index+1)
}

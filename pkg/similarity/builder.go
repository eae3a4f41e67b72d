// Package similarity assembles pairwise fiber similarity matrices and
// combines them into a single weighted affinity.
//
// Square construction holds the full N×N matrix in memory, so N around 10⁴
// is the practical ceiling on commodity hardware. There is no sparse or
// approximate path.
package similarity

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/khanlab/neurobeer/internal/matutil"
	"github.com/khanlab/neurobeer/pkg/distance"
	"github.com/khanlab/neurobeer/pkg/fibers"
	"github.com/khanlab/neurobeer/pkg/observability"
)

// diagTol is the tolerance used for the diagonal invariant checks.
const diagTol = 1e-12

// Builder constructs similarity matrices from fiber stores. Row assembly
// fans out across up to Workers goroutines; each worker writes disjoint
// rows, so the result is deterministic for a given input.
type Builder struct {
	workers int
	log     *observability.Logger
}

// NewBuilder creates a builder running at most workers concurrent rows.
// A nil logger discards output.
func NewBuilder(workers int, log *observability.Logger) *Builder {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = observability.Nop()
	}
	return &Builder{workers: workers, log: log}
}

// Geometric computes the N×N geometric similarity matrix of a store:
// pairwise mean closest-point distances, per-column min-max normalization,
// then the Gaussian kernel with bandwidth sigma.
func (b *Builder) Geometric(ctx context.Context, store *fibers.Store, sigma float64) (*mat.Dense, error) {
	d, err := b.pairwise(ctx, store.Count(), func(i, j int) float64 {
		return distance.Fiber(store.Fiber(i), store.Fiber(j))
	})
	if err != nil {
		return nil, err
	}
	return b.finishSquare(d, sigma, "geometry")
}

// ScalarChannel computes the N×N similarity matrix of one scalar channel.
func (b *Builder) ScalarChannel(ctx context.Context, store *fibers.Store, name string, sigma float64) (*mat.Dense, error) {
	n := store.Count()
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		values, err := store.Scalar(i, name)
		if err != nil {
			return nil, err
		}
		rows[i] = values
	}
	d, err := b.pairwise(ctx, n, func(i, j int) float64 {
		return distance.Scalar(rows[i], rows[j])
	})
	if err != nil {
		return nil, err
	}
	return b.finishSquare(d, sigma, name)
}

// GeometricBetween computes the rectangular similarity matrix of a new
// store against a prior store, one row per new fiber. No diagonal
// invariants apply.
func (b *Builder) GeometricBetween(ctx context.Context, store, prior *fibers.Store, sigma float64) (*mat.Dense, error) {
	d, err := b.rectangular(ctx, store.Count(), prior.Count(), func(i, j int) float64 {
		return distance.Fiber(store.Fiber(i), prior.Fiber(j))
	})
	if err != nil {
		return nil, err
	}
	matutil.MinMaxColumns(d)
	return distance.ApplyKernel(d, sigma), nil
}

// ScalarBetween computes the rectangular similarity matrix of one scalar
// channel of a new store against a prior store.
func (b *Builder) ScalarBetween(ctx context.Context, store, prior *fibers.Store, name string, sigma float64) (*mat.Dense, error) {
	n, m := store.Count(), prior.Count()
	newRows := make([][]float64, n)
	for i := 0; i < n; i++ {
		values, err := store.Scalar(i, name)
		if err != nil {
			return nil, err
		}
		newRows[i] = values
	}
	priorRows := make([][]float64, m)
	for j := 0; j < m; j++ {
		values, err := prior.Scalar(j, name)
		if err != nil {
			return nil, err
		}
		priorRows[j] = values
	}
	d, err := b.rectangular(ctx, n, m, func(i, j int) float64 {
		return distance.Scalar(newRows[i], priorRows[j])
	})
	if err != nil {
		return nil, err
	}
	matutil.MinMaxColumns(d)
	return distance.ApplyKernel(d, sigma), nil
}

// pairwise builds a symmetric N×N distance matrix. Only the upper triangle
// is computed; the lower triangle mirrors it.
func (b *Builder) pairwise(ctx context.Context, n int, dist func(i, j int) float64) (*mat.Dense, error) {
	d := mat.NewDense(n, n, nil)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for j := i; j < n; j++ {
				d.Set(i, j, dist(i, j))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i := 1; i < n; i++ {
		for j := 0; j < i; j++ {
			d.Set(i, j, d.At(j, i))
		}
	}
	return d, nil
}

// rectangular builds an n×m distance matrix, one parallel task per row.
func (b *Builder) rectangular(ctx context.Context, n, m int, dist func(i, j int) float64) (*mat.Dense, error) {
	d := mat.NewDense(n, m, nil)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for j := 0; j < m; j++ {
				d.Set(i, j, dist(i, j))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}

// finishSquare normalizes a square distance matrix, checks its diagonal,
// applies the kernel and checks the similarity diagonal.
func (b *Builder) finishSquare(d *mat.Dense, sigma float64, kind string) (*mat.Dense, error) {
	matutil.MinMaxColumns(d)

	n, _ := d.Dims()
	for i := 0; i < n; i++ {
		if math.Abs(d.At(i, i)) > diagTol {
			return nil, fmt.Errorf("%w: distance diagonal [%d] = %g, want 0", ErrInvariant, i, d.At(i, i))
		}
	}

	s := distance.ApplyKernel(d, sigma)
	for i := 0; i < n; i++ {
		if math.Abs(s.At(i, i)-1) > diagTol {
			return nil, fmt.Errorf("%w: similarity diagonal [%d] = %g, want 1", ErrInvariant, i, s.At(i, i))
		}
	}

	b.log.Debug("similarity matrix built", "kind", kind, "fibers", n, "sigma", sigma)
	return s, nil
}

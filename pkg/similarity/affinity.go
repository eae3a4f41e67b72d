package similarity

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// DefaultWeightTol is the tolerance on sum(weights) == 1 used when a
// combiner is built with tol <= 0.
const DefaultWeightTol = 1e-9

// Combiner fuses a geometric similarity matrix with zero or more scalar
// similarity matrices into a single weighted affinity. The first weight
// applies to geometry, the rest to the scalar matrices in order.
type Combiner struct {
	tol float64
}

// NewCombiner creates a combiner with the given weight-sum tolerance.
func NewCombiner(tol float64) *Combiner {
	if tol <= 0 {
		tol = DefaultWeightTol
	}
	return &Combiner{tol: tol}
}

// Validate checks the weight specification against the number of scalar
// channels without touching any matrices. Either both lists are empty, or
// the weights have length channels+1 and sum to 1.
func (c *Combiner) Validate(weights []float64, channels int) error {
	if channels == 0 && (len(weights) == 0 || (len(weights) == 1 && weights[0] == 1)) {
		return nil
	}
	if len(weights) == 0 || channels == 0 {
		return fmt.Errorf("%w: %d weights for %d scalar channels", ErrWeightSpec, len(weights), channels)
	}
	if len(weights) != channels+1 {
		return fmt.Errorf("%w: got %d weights, want %d (geometry + %d channels)",
			ErrWeightSpec, len(weights), channels+1, channels)
	}
	var sum float64
	for _, w := range weights {
		sum += w
	}
	if math.Abs(sum-1) > c.tol {
		return fmt.Errorf("%w: sum = %g", ErrWeightSum, sum)
	}
	return nil
}

// Combine produces W = weights[0]·geom + Σ weights[c+1]·scalars[c].
//
// With no scalar matrices and no weights (or a single weight of 1), the
// geometric similarity is returned as-is. checkDiag enables the unit
// diagonal post-condition; it holds for square affinities only.
func (c *Combiner) Combine(geom *mat.Dense, scalars []*mat.Dense, weights []float64, checkDiag bool) (*mat.Dense, error) {
	if err := c.Validate(weights, len(scalars)); err != nil {
		return nil, err
	}

	var w *mat.Dense
	if len(scalars) == 0 || weights[0] == 1 {
		w = geom
	} else {
		r, cols := geom.Dims()
		w = mat.NewDense(r, cols, nil)
		w.Scale(weights[0], geom)
		var term mat.Dense
		for i, s := range scalars {
			sr, sc := s.Dims()
			if sr != r || sc != cols {
				return nil, fmt.Errorf("scalar similarity %d is %d×%d, want %d×%d", i, sr, sc, r, cols)
			}
			term.Scale(weights[i+1], s)
			w.Add(w, &term)
		}
	}

	if checkDiag {
		n, _ := w.Dims()
		for i := 0; i < n; i++ {
			if math.Abs(w.At(i, i)-1) > diagTol {
				return nil, fmt.Errorf("%w: affinity diagonal [%d] = %g, want 1", ErrInvariant, i, w.At(i, i))
			}
		}
	}
	return w, nil
}

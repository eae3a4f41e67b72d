// Package distance implements fiber-to-fiber distance measures and the
// Gaussian kernel that converts normalized distances into similarities.
package distance

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/khanlab/neurobeer/pkg/fibers"
)

// Fiber computes the mean closest-point distance between two fibers.
//
// Fibers are geometric curves with arbitrary traversal direction, so the
// distance is the minimum of the forward and point-reversed pairings:
//
//	d_fwd = mean_p ||a[p] - b[p]||
//	d_rev = mean_p ||a[p] - b[P-1-p]||
//
// Both fibers must have the same number of points.
func Fiber(a, b []fibers.Point) float64 {
	n := len(a)
	var fwd, rev float64
	for p := 0; p < n; p++ {
		fwd += pointDistance(a[p], b[p])
		rev += pointDistance(a[p], b[n-1-p])
	}
	fwd /= float64(n)
	rev /= float64(n)
	return math.Min(fwd, rev)
}

// Scalar computes the mean absolute difference between two per-point scalar
// sequences, taking the minimum over the forward and reversed pairings so
// the measure stays orientation-invariant like the geometric distance.
func Scalar(a, b []float64) float64 {
	n := len(a)
	var fwd, rev float64
	for p := 0; p < n; p++ {
		fwd += math.Abs(a[p] - b[p])
		rev += math.Abs(a[p] - b[n-1-p])
	}
	fwd /= float64(n)
	rev /= float64(n)
	return math.Min(fwd, rev)
}

// ApplyKernel converts a normalized distance matrix into a similarity
// matrix via the Gaussian kernel exp(-d²/σ²), elementwise. Zero distances
// map to similarity 1.
func ApplyKernel(d mat.Matrix, sigma float64) *mat.Dense {
	r, c := d.Dims()
	sigmaSq := sigma * sigma
	s := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := d.At(i, j)
			s.Set(i, j, math.Exp(-(v*v)/sigmaSq))
		}
	}
	return s
}

func pointDistance(a, b fibers.Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

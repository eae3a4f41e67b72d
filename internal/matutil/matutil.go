// Package matutil holds dense-matrix helpers shared by the similarity and
// clustering stages.
package matutil

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// MinMaxColumns rescales each column of m to [0,1] in place, matching
// feature-wise min-max scaling. A constant column becomes all zeros.
func MinMaxColumns(m *mat.Dense) {
	r, c := m.Dims()
	for j := 0; j < c; j++ {
		lo, hi := m.At(0, j), m.At(0, j)
		for i := 1; i < r; i++ {
			v := m.At(i, j)
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		span := hi - lo
		for i := 0; i < r; i++ {
			if span == 0 {
				m.Set(i, j, 0)
			} else {
				m.Set(i, j, (m.At(i, j)-lo)/span)
			}
		}
	}
}

// MeanStd returns the mean and population standard deviation of xs.
func MeanStd(xs []float64) (mean, std float64) {
	mean = stat.Mean(xs, nil)
	std = stat.PopStdDev(xs, nil)
	return mean, std
}

// RowSums returns the per-row sums of m. For a symmetric matrix these equal
// the column sums used as vertex degrees.
func RowSums(m *mat.Dense) []float64 {
	r, c := m.Dims()
	sums := make([]float64, r)
	for i := 0; i < r; i++ {
		var s float64
		for j := 0; j < c; j++ {
			s += m.At(i, j)
		}
		sums[i] = s
	}
	return sums
}

// DeleteRowsCols returns a copy of the square matrix m with the given rows
// and columns removed. The removed set must be sorted ascending.
func DeleteRowsCols(m *mat.Dense, removed []int) *mat.Dense {
	n, _ := m.Dims()
	keep := keepIndices(n, removed)
	out := mat.NewDense(len(keep), len(keep), nil)
	for i, ri := range keep {
		for j, rj := range keep {
			out.Set(i, j, m.At(ri, rj))
		}
	}
	return out
}

// DeleteRows returns a copy of m with the given rows removed. The removed
// set must be sorted ascending.
func DeleteRows(m *mat.Dense, removed []int) *mat.Dense {
	n, c := m.Dims()
	keep := keepIndices(n, removed)
	out := mat.NewDense(len(keep), c, nil)
	for i, ri := range keep {
		for j := 0; j < c; j++ {
			out.Set(i, j, m.At(ri, j))
		}
	}
	return out
}

func keepIndices(n int, removed []int) []int {
	drop := make(map[int]struct{}, len(removed))
	for _, idx := range removed {
		drop[idx] = struct{}{}
	}
	keep := make([]int, 0, n-len(removed))
	for i := 0; i < n; i++ {
		if _, ok := drop[i]; !ok {
			keep = append(keep, i)
		}
	}
	return keep
}

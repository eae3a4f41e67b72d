package cluster

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Canonicalize relabels clusters so that label 0 is the largest by fiber
// count, label 1 the next largest, and so on, with ties broken by the
// original label order. The centroid rows are reordered to match. Labels
// are rewritten in place; a new centroid matrix is returned.
func Canonicalize(centroids *mat.Dense, labels []int) *mat.Dense {
	k, dim := centroids.Dims()

	counts := make([]int, k)
	for _, l := range labels {
		counts[l]++
	}

	// order[i] = old label that becomes new label i.
	order := make([]int, k)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return counts[order[a]] > counts[order[b]]
	})

	remap := make([]int, k)
	for newLabel, oldLabel := range order {
		remap[oldLabel] = newLabel
	}

	for i, l := range labels {
		labels[i] = remap[l]
	}

	sorted := mat.NewDense(k, dim, nil)
	for newLabel, oldLabel := range order {
		sorted.SetRow(newLabel, centroids.RawRowView(oldLabel))
	}
	return sorted
}

// Colors derives a K×3 RGB matrix from the first three components of each
// source row: the row triple is normalized to unit length and mapped to
// [0,255] via 127.5 + 127.5·v. For K ≥ 3 the source is the canonicalized
// centroid matrix; for K = 2 the caller passes the three leading
// eigenvectors instead.
func Colors(source *mat.Dense, k int) ([][3]int, error) {
	rows, cols := source.Dims()
	if k <= 1 {
		return nil, fmt.Errorf("%w: need at least 2 clusters for colors, got %d", ErrDegenerate, k)
	}
	if rows < k || cols < 3 {
		return nil, fmt.Errorf("%w: color source is %d×%d, need %d×3", ErrDegenerate, rows, cols, k)
	}

	colors := make([][3]int, k)
	for c := 0; c < k; c++ {
		v := [3]float64{source.At(c, 0), source.At(c, 1), source.At(c, 2)}
		mag := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
		for ch := 0; ch < 3; ch++ {
			u := 0.0
			if mag > 0 {
				u = v[ch] / mag
			}
			scaled := 127.5 + 127.5*u
			if scaled < 0 {
				scaled = 0
			}
			if scaled > 255 {
				scaled = 255
			}
			colors[c][ch] = int(scaled)
		}
	}
	return colors, nil
}

// ExtractLabel returns the indices of fibers carrying the given label, in
// ascending order.
func ExtractLabel(labels []int, label int) []int {
	var out []int
	for i, l := range labels {
		if l == label {
			out = append(out, i)
		}
	}
	return out
}

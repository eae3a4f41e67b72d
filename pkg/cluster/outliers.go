package cluster

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/khanlab/neurobeer/internal/matutil"
)

// outlierSigma is the number of standard deviations beyond the mean at
// which a fiber is rejected.
const outlierSigma = 2.0

// RowSumOutliers rejects weakly connected fibers before embedding: any
// fiber whose affinity row sum falls below mean − 2·std is removed, along
// with its row and column of W. Returns the reduced matrix and the sorted
// rejected indices.
func RowSumOutliers(w *mat.Dense) (*mat.Dense, []int) {
	sums := matutil.RowSums(w)
	mean, std := matutil.MeanStd(sums)
	threshold := mean - outlierSigma*std

	var rejected []int
	for i, s := range sums {
		if s < threshold {
			rejected = append(rejected, i)
		}
	}
	sort.Ints(rejected)

	if len(rejected) == 0 {
		return w, nil
	}
	return matutil.DeleteRowsCols(w, rejected), rejected
}

// CentroidDistOutliers rejects extension fibers whose embedding sits far
// from its assigned centroid: any fiber with distance above mean + 2·std is
// removed, along with its row of W and its label. Returns the reduced
// matrix, the surviving labels and the sorted rejected indices.
func CentroidDistOutliers(w *mat.Dense, dists []float64, labels []int) (*mat.Dense, []int, []int) {
	mean, std := matutil.MeanStd(dists)
	threshold := mean + outlierSigma*std

	var rejected []int
	for i, d := range dists {
		if d > threshold {
			rejected = append(rejected, i)
		}
	}
	sort.Ints(rejected)

	if len(rejected) == 0 {
		return w, labels, nil
	}

	kept := make([]int, 0, len(labels)-len(rejected))
	drop := make(map[int]struct{}, len(rejected))
	for _, idx := range rejected {
		drop[idx] = struct{}{}
	}
	for i, l := range labels {
		if _, ok := drop[i]; !ok {
			kept = append(kept, l)
		}
	}
	return matutil.DeleteRows(w, rejected), kept, rejected
}

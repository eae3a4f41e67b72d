// Package cluster partitions the spectral embedding with k-means and
// post-processes the result: label canonicalization, cluster colors,
// outlier rejection and per-cluster scalar statistics.
package cluster

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrDegenerate is returned when fewer than two clusters are
	// requested or the embedding is too narrow to cluster.
	ErrDegenerate = errors.New("degenerate clustering")

	// ErrNumeric is returned when k-means cannot run on the given
	// embedding, e.g. fewer points than clusters.
	ErrNumeric = errors.New("numeric failure")
)

// kmeansMaxIter bounds the number of Lloyd iterations.
const kmeansMaxIter = 50

// convergenceTol is the centroid movement below which k-means stops early.
const convergenceTol = 1e-6

// KMeans runs Lloyd's algorithm on the rows of the embedding.
//
// Initialization samples k distinct rows uniformly without replacement
// using the given seed, so a fixed (input, seed) pair reproduces the same
// partition. Returns the k×M centroid matrix, the per-row labels and the
// number of iterations used.
func KMeans(embedding *mat.Dense, k int, seed int64) (*mat.Dense, []int, int, error) {
	n, dim := embedding.Dims()
	if k < 1 {
		return nil, nil, 0, fmt.Errorf("%w: k = %d", ErrDegenerate, k)
	}
	if n < k {
		return nil, nil, 0, fmt.Errorf("%w: %d points for %d clusters", ErrNumeric, n, k)
	}

	rng := rand.New(rand.NewSource(seed))

	// Points initialization: k distinct rows of the embedding.
	centroids := mat.NewDense(k, dim, nil)
	for c, idx := range rng.Perm(n)[:k] {
		centroids.SetRow(c, embedding.RawRowView(idx))
	}

	labels := make([]int, n)
	iters := 0
	for iter := 0; iter < kmeansMaxIter; iter++ {
		iters = iter + 1

		// Assignment step.
		for i := 0; i < n; i++ {
			labels[i], _ = nearestRow(embedding.RawRowView(i), centroids)
		}

		// Update step; an empty cluster keeps its previous centroid.
		sums := mat.NewDense(k, dim, nil)
		counts := make([]int, k)
		for i := 0; i < n; i++ {
			c := labels[i]
			counts[c]++
			row := embedding.RawRowView(i)
			for d := 0; d < dim; d++ {
				sums.Set(c, d, sums.At(c, d)+row[d])
			}
		}

		converged := true
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				continue
			}
			var moved float64
			for d := 0; d < dim; d++ {
				nv := sums.At(c, d) / float64(counts[c])
				diff := nv - centroids.At(c, d)
				moved += diff * diff
				centroids.Set(c, d, nv)
			}
			if math.Sqrt(moved) > convergenceTol {
				converged = false
			}
		}
		if converged {
			break
		}
	}

	// Final assignment against the converged centroids.
	for i := 0; i < n; i++ {
		labels[i], _ = nearestRow(embedding.RawRowView(i), centroids)
	}

	return centroids, labels, iters, nil
}

// Assign labels each embedding row with its nearest centroid and returns
// the Euclidean distance to it. Centroids are not modified; this is the
// extension-path assignment against a prior training run.
func Assign(embedding, centroids *mat.Dense) ([]int, []float64, error) {
	n, dim := embedding.Dims()
	_, cdim := centroids.Dims()
	if dim != cdim {
		return nil, nil, fmt.Errorf("embedding width %d does not match centroid width %d", dim, cdim)
	}

	labels := make([]int, n)
	dists := make([]float64, n)
	for i := 0; i < n; i++ {
		labels[i], dists[i] = nearestRow(embedding.RawRowView(i), centroids)
	}
	return labels, dists, nil
}

// nearestRow returns the index of the centroid row closest to x and the
// distance to it.
func nearestRow(x []float64, centroids *mat.Dense) (int, float64) {
	k, dim := centroids.Dims()
	best, bestDist := 0, math.Inf(1)
	for c := 0; c < k; c++ {
		var sum float64
		row := centroids.RawRowView(c)
		for d := 0; d < dim; d++ {
			diff := x[d] - row[d]
			sum += diff * diff
		}
		if sum < bestDist {
			best, bestDist = c, sum
		}
	}
	return best, math.Sqrt(bestDist)
}

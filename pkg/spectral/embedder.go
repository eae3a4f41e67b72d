// Package spectral computes the random-walk Laplacian embedding of a fiber
// affinity matrix and the Nyström-style projection of new fibers onto a
// stored eigenbasis.
package spectral

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/khanlab/neurobeer/internal/matutil"
	"github.com/khanlab/neurobeer/pkg/observability"
)

var (
	// ErrNumeric is returned when the eigendecomposition fails to
	// converge or the affinity yields a degenerate degree.
	ErrNumeric = errors.New("numeric failure")

	// ErrMissingEigenbasis is returned by the projection path when no
	// stored eigenbasis is available.
	ErrMissingEigenbasis = errors.New("missing eigenbasis")
)

// Eigenbasis is the persisted result of a Laplacian eigendecomposition:
// eigenvalues sorted ascending with their eigenvectors as columns.
type Eigenbasis struct {
	Values  []float64
	Vectors *mat.Dense
}

// Embedder turns a square affinity matrix into a spectral embedding.
type Embedder struct {
	log *observability.Logger
}

// NewEmbedder creates an embedder. A nil logger discards output.
func NewEmbedder(log *observability.Logger) *Embedder {
	if log == nil {
		log = observability.Nop()
	}
	return &Embedder{log: log}
}

// Embed decomposes the random-walk Laplacian of W and selects the embedding
// columns for k clusters.
//
// The degree is d_i = Σ_j W[i][j] and L = D − W. The random-walk Laplacian
// D⁻¹L shares its eigenvalues with the symmetric matrix D^{-1/2}·L·D^{-1/2},
// so the decomposition runs on the symmetric form and the eigenvectors are
// mapped back through D^{-1/2}. Eigenvalues come out ascending.
//
// The embedding drops the first (constant) eigenvector and takes the next k
// columns. If k exceeds the available eigenvectors the embedding is capped
// at the maximum available and a warning is logged.
func (e *Embedder) Embed(w *mat.Dense, k int) (*Eigenbasis, *mat.Dense, error) {
	n, c := w.Dims()
	if n != c {
		return nil, nil, fmt.Errorf("affinity must be square, got %d×%d", n, c)
	}

	deg := matutil.RowSums(w)
	invSqrt := make([]float64, n)
	for i, d := range deg {
		if d <= 0 {
			return nil, nil, fmt.Errorf("%w: degree of fiber %d is %g", ErrNumeric, i, d)
		}
		invSqrt[i] = 1 / math.Sqrt(d)
	}

	// B = D^{-1/2} (D - W) D^{-1/2}, symmetric by construction.
	b := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			l := -w.At(i, j)
			if i == j {
				l += deg[i]
			}
			b.SetSym(i, j, l*invSqrt[i]*invSqrt[j])
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(b, true); !ok {
		return nil, nil, fmt.Errorf("%w: eigendecomposition did not converge", ErrNumeric)
	}

	values := eig.Values(nil)
	var sym mat.Dense
	eig.VectorsTo(&sym)

	// Map eigenvectors of the symmetric form back to eigenvectors of
	// D⁻¹L: v = D^{-1/2} u, renormalized per column.
	vectors := mat.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		var norm float64
		for i := 0; i < n; i++ {
			v := sym.At(i, j) * invSqrt[i]
			vectors.Set(i, j, v)
			norm += v * v
		}
		norm = math.Sqrt(norm)
		if norm == 0 {
			continue
		}
		for i := 0; i < n; i++ {
			vectors.Set(i, j, vectors.At(i, j)/norm)
		}
	}

	basis := &Eigenbasis{Values: values, Vectors: vectors}
	embedding := e.selectColumns(basis.Vectors, k)
	return basis, embedding, nil
}

// selectColumns drops the first eigenvector and takes the next k columns,
// capped at what is available.
func (e *Embedder) selectColumns(vectors *mat.Dense, k int) *mat.Dense {
	n, cols := vectors.Dims()
	lo, hi := 1, k+1
	if hi > cols {
		e.log.Warn("requested clusters exceed available eigenvectors, capping",
			"k_clusters", k, "eigenvectors", cols)
		hi = cols
	}
	width := hi - lo
	out := mat.NewDense(n, width, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < width; j++ {
			out.Set(i, j, vectors.At(i, lo+j))
		}
	}
	return out
}

package spectral

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// blockAffinity builds a two-block affinity: strong similarity inside each
// block, weak similarity across.
func blockAffinity(n int, cross float64) *mat.Dense {
	w := mat.NewDense(n, n, nil)
	half := n / 2
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			switch {
			case i == j:
				w.Set(i, j, 1)
			case (i < half) == (j < half):
				w.Set(i, j, 0.9)
			default:
				w.Set(i, j, cross)
			}
		}
	}
	return w
}

func TestEmbedEigenvaluesAscending(t *testing.T) {
	w := blockAffinity(12, 0.01)
	e := NewEmbedder(nil)

	basis, _, err := e.Embed(w, 2)
	require.NoError(t, err)

	for i := 1; i < len(basis.Values); i++ {
		assert.LessOrEqual(t, basis.Values[i-1], basis.Values[i])
	}
	// The random-walk Laplacian always has eigenvalue 0.
	assert.InDelta(t, 0.0, basis.Values[0], 1e-10)
}

func TestEmbedFiedlerSeparatesBlocks(t *testing.T) {
	w := blockAffinity(16, 0.001)
	e := NewEmbedder(nil)

	_, embedding, err := e.Embed(w, 2)
	require.NoError(t, err)

	n, cols := embedding.Dims()
	require.Equal(t, 16, n)
	require.Equal(t, 2, cols)

	// The first embedding column is the Fiedler vector: one sign per
	// block for a near-disconnected graph.
	for i := 1; i < 8; i++ {
		assert.Equal(t, embedding.At(0, 0) > 0, embedding.At(i, 0) > 0,
			"fibers 0 and %d in the same block must share sign", i)
	}
	for i := 8; i < 16; i++ {
		assert.Equal(t, embedding.At(8, 0) > 0, embedding.At(i, 0) > 0,
			"fibers 8 and %d in the same block must share sign", i)
	}
	assert.NotEqual(t, embedding.At(0, 0) > 0, embedding.At(8, 0) > 0,
		"blocks must take opposite sign in the Fiedler vector")
}

func TestEmbedCapsWideRequests(t *testing.T) {
	w := blockAffinity(6, 0.2)
	e := NewEmbedder(nil)

	basis, embedding, err := e.Embed(w, 10)
	require.NoError(t, err)

	_, cols := embedding.Dims()
	assert.Equal(t, 5, cols, "capped at n-1 columns after dropping the first")
	assert.Len(t, basis.Values, 6)
}

func TestEmbedRejectsNonSquare(t *testing.T) {
	w := mat.NewDense(3, 4, nil)
	e := NewEmbedder(nil)
	_, _, err := e.Embed(w, 2)
	require.Error(t, err)
}

func TestEmbedZeroDegree(t *testing.T) {
	w := mat.NewDense(3, 3, nil)
	e := NewEmbedder(nil)
	_, _, err := e.Embed(w, 2)
	assert.ErrorIs(t, err, ErrNumeric)
}

func TestProjectShapeAndConsistency(t *testing.T) {
	w := blockAffinity(12, 0.01)
	e := NewEmbedder(nil)

	basis, _, err := e.Embed(w, 3)
	require.NoError(t, err)

	p := NewProjector(nil)
	projected, err := p.Project(w, basis, 3)
	require.NoError(t, err)

	rows, cols := projected.Dims()
	assert.Equal(t, 12, rows)
	assert.Equal(t, 3, cols)

	// Projecting the training affinity keeps the block structure: rows
	// from the same block share the sign of the leading projected column.
	sameBlock := projected.At(0, 0)*projected.At(5, 0) > 0
	assert.True(t, sameBlock, "same-block rows share sign after projection")
}

func TestProjectMissingBasis(t *testing.T) {
	p := NewProjector(nil)
	w := mat.NewDense(2, 2, []float64{1, 0, 0, 1})

	_, err := p.Project(w, nil, 2)
	assert.ErrorIs(t, err, ErrMissingEigenbasis)

	_, err = p.Project(w, &Eigenbasis{}, 2)
	assert.ErrorIs(t, err, ErrMissingEigenbasis)
}

func TestProjectDimensionMismatch(t *testing.T) {
	w := blockAffinity(8, 0.1)
	e := NewEmbedder(nil)
	basis, _, err := e.Embed(w, 2)
	require.NoError(t, err)

	p := NewProjector(nil)
	bad := mat.NewDense(4, 5, nil)
	_, err = p.Project(bad, basis, 2)
	require.Error(t, err)
}

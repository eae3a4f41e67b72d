package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/khanlab/neurobeer/pkg/spectral"
)

func TestEigenbasisRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewNpyStore(dir)
	require.NoError(t, err)

	basis := &spectral.Eigenbasis{
		Values:  []float64{0, 0.1, 0.5},
		Vectors: mat.NewDense(3, 3, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}),
	}
	require.NoError(t, store.SaveEigenbasis(basis))

	back, err := store.LoadEigenbasis()
	require.NoError(t, err)

	assert.Equal(t, basis.Values, back.Values)
	assert.True(t, mat.Equal(basis.Vectors, back.Vectors))
}

func TestLoadEigenbasisMissing(t *testing.T) {
	store, err := NewNpyStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.LoadEigenbasis()
	assert.ErrorIs(t, err, spectral.ErrMissingEigenbasis)
}

func TestSaveMatrix(t *testing.T) {
	dir := t.TempDir()
	store, err := NewNpyStore(dir)
	require.NoError(t, err)

	m := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	require.NoError(t, store.SaveMatrix("weighted", m))

	info, err := os.Stat(filepath.Join(dir, "matrices", "weighted.npy"))
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

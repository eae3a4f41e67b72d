package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func unitDiagonal(n int, off float64) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				m.Set(i, j, 1)
			} else {
				m.Set(i, j, off)
			}
		}
	}
	return m
}

func TestCombineGeometryOnly(t *testing.T) {
	c := NewCombiner(0)
	geom := unitDiagonal(4, 0.5)

	w, err := c.Combine(geom, nil, nil, true)
	require.NoError(t, err)
	assert.True(t, mat.Equal(geom, w))

	w, err = c.Combine(geom, nil, []float64{1}, true)
	require.NoError(t, err)
	assert.True(t, mat.Equal(geom, w))
}

func TestCombineWeighted(t *testing.T) {
	c := NewCombiner(0)
	geom := unitDiagonal(3, 0.4)
	fa := unitDiagonal(3, 0.8)

	w, err := c.Combine(geom, []*mat.Dense{fa}, []float64{0.75, 0.25}, true)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, w.At(0, 0), 1e-15)
	assert.InDelta(t, 0.75*0.4+0.25*0.8, w.At(0, 1), 1e-15)
}

func TestCombineWeightSpecMismatch(t *testing.T) {
	c := NewCombiner(0)
	geom := unitDiagonal(3, 0.4)
	fa := unitDiagonal(3, 0.8)

	// Scalars given, no weights.
	_, err := c.Combine(geom, []*mat.Dense{fa}, nil, true)
	assert.ErrorIs(t, err, ErrWeightSpec)

	// Weights given, no scalars.
	_, err = c.Combine(geom, nil, []float64{0.5, 0.5}, true)
	assert.ErrorIs(t, err, ErrWeightSpec)

	// Wrong weight count.
	_, err = c.Combine(geom, []*mat.Dense{fa}, []float64{0.3, 0.3, 0.4}, true)
	assert.ErrorIs(t, err, ErrWeightSpec)
}

func TestCombineWeightSum(t *testing.T) {
	c := NewCombiner(0)
	geom := unitDiagonal(3, 0.4)
	fa := unitDiagonal(3, 0.8)

	_, err := c.Combine(geom, []*mat.Dense{fa}, []float64{0.5, 0.4}, true)
	assert.ErrorIs(t, err, ErrWeightSum)

	// Within the default tolerance.
	_, err = c.Combine(geom, []*mat.Dense{fa}, []float64{0.5, 0.5 + 1e-12}, true)
	assert.NoError(t, err)
}

func TestCombineGeometryWeightOne(t *testing.T) {
	c := NewCombiner(0)
	geom := unitDiagonal(3, 0.4)
	fa := unitDiagonal(3, 0.8)

	// A geometry weight of exactly 1 short-circuits to geometry only.
	w, err := c.Combine(geom, []*mat.Dense{fa}, []float64{1, 0}, true)
	require.NoError(t, err)
	assert.True(t, mat.Equal(geom, w))
}

func TestCombineDiagonalInvariant(t *testing.T) {
	c := NewCombiner(0)
	bad := unitDiagonal(3, 0.4)
	bad.Set(1, 1, 0.9)

	_, err := c.Combine(bad, nil, nil, true)
	assert.ErrorIs(t, err, ErrInvariant)

	// Rectangular mode skips the diagonal check.
	_, err = c.Combine(bad, nil, nil, false)
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	c := NewCombiner(0)

	assert.NoError(t, c.Validate(nil, 0))
	assert.NoError(t, c.Validate([]float64{1}, 0))
	assert.ErrorIs(t, c.Validate([]float64{0.5, 0.5}, 0), ErrWeightSpec)
	assert.ErrorIs(t, c.Validate(nil, 1), ErrWeightSpec)
	assert.ErrorIs(t, c.Validate([]float64{0.6, 0.3}, 1), ErrWeightSum)
	assert.NoError(t, c.Validate([]float64{0.6, 0.4}, 1))
}

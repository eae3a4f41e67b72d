package matutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestMinMaxColumns(t *testing.T) {
	m := mat.NewDense(3, 2, []float64{
		0, 5,
		2, 5,
		4, 5,
	})
	MinMaxColumns(m)

	assert.Equal(t, 0.0, m.At(0, 0))
	assert.Equal(t, 0.5, m.At(1, 0))
	assert.Equal(t, 1.0, m.At(2, 0))
	// A constant column collapses to zero.
	for i := 0; i < 3; i++ {
		assert.Equal(t, 0.0, m.At(i, 1))
	}
}

func TestMeanStd(t *testing.T) {
	mean, std := MeanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5.0, mean, 1e-12)
	// Population standard deviation, not the sample estimate.
	assert.InDelta(t, 2.0, std, 1e-12)
}

func TestRowSums(t *testing.T) {
	m := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	assert.Equal(t, []float64{6, 15}, RowSums(m))
}

func TestDeleteRowsCols(t *testing.T) {
	m := mat.NewDense(4, 4, []float64{
		0, 1, 2, 3,
		4, 5, 6, 7,
		8, 9, 10, 11,
		12, 13, 14, 15,
	})
	out := DeleteRowsCols(m, []int{1, 3})

	r, c := out.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, 0.0, out.At(0, 0))
	assert.Equal(t, 2.0, out.At(0, 1))
	assert.Equal(t, 8.0, out.At(1, 0))
	assert.Equal(t, 10.0, out.At(1, 1))
}

func TestDeleteRows(t *testing.T) {
	m := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	out := DeleteRows(m, []int{0})

	r, c := out.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, 3.0, out.At(0, 0))
	assert.Equal(t, 6.0, out.At(1, 1))
}

package cluster

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/khanlab/neurobeer/pkg/fibers"
)

// ScalarProfile is the per-sample-point mean and population standard
// deviation of one scalar channel across a set of fibers. Both slices have
// length pts_per_fiber.
type ScalarProfile struct {
	Mean   []float64
	StdDev []float64
}

// ChannelProfile computes the scalar profile of the named channel over the
// fibers at the given indices. A nil index slice means all fibers.
func ChannelProfile(store *fibers.Store, name string, indices []int) (*ScalarProfile, error) {
	if indices == nil {
		indices = make([]int, store.Count())
		for i := range indices {
			indices[i] = i
		}
	}

	rows, err := store.Scalars(indices, name)
	if err != nil {
		return nil, err
	}

	p := store.PtsPerFiber()
	profile := &ScalarProfile{
		Mean:   make([]float64, p),
		StdDev: make([]float64, p),
	}
	column := make([]float64, len(rows))
	for pt := 0; pt < p; pt++ {
		for i, row := range rows {
			column[i] = row[pt]
		}
		profile.Mean[pt] = stat.Mean(column, nil)
		profile.StdDev[pt] = stat.PopStdDev(column, nil)
	}
	return profile, nil
}

// LabelProfile computes the scalar profile of one cluster.
func LabelProfile(store *fibers.Store, name string, labels []int, label int) (*ScalarProfile, error) {
	indices := ExtractLabel(labels, label)
	if len(indices) == 0 {
		return nil, fmt.Errorf("no fibers carry label %d", label)
	}
	return ChannelProfile(store, name, indices)
}

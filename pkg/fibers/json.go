package fibers

import (
	"encoding/json"
	"fmt"
	"io"
)

// Bundle is the JSON interchange format for a fiber set. Mesh-format
// conversion (e.g. VTK polylines) happens upstream of this package.
type Bundle struct {
	PtsPerFiber int           `json:"pts_per_fiber"`
	Fibers      []BundleFiber `json:"fibers"`
}

// BundleFiber is a single fiber in a Bundle: pts_per_fiber [x,y,z] triples
// plus optional named scalar channels of the same length.
type BundleFiber struct {
	Points  [][3]float64         `json:"points"`
	Scalars map[string][]float64 `json:"scalars,omitempty"`
}

// ReadBundle decodes a JSON bundle into a Store.
func ReadBundle(r io.Reader) (*Store, error) {
	var b Bundle
	dec := json.NewDecoder(r)
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("decode fiber bundle: %w", err)
	}
	return b.ToStore()
}

// ToStore converts a decoded bundle into a Store, validating point and
// channel counts.
func (b *Bundle) ToStore() (*Store, error) {
	store, err := NewStore(b.PtsPerFiber)
	if err != nil {
		return nil, err
	}
	for i, f := range b.Fibers {
		points := make([]Point, len(f.Points))
		for p, xyz := range f.Points {
			points[p] = Point{X: xyz[0], Y: xyz[1], Z: xyz[2]}
		}
		if err := store.Append(points, f.Scalars); err != nil {
			return nil, fmt.Errorf("fiber %d: %w", i, err)
		}
	}
	return store, nil
}

// WriteBundle encodes a Store as a JSON bundle.
func WriteBundle(w io.Writer, s *Store) error {
	b := Bundle{
		PtsPerFiber: s.PtsPerFiber(),
		Fibers:      make([]BundleFiber, s.Count()),
	}
	for i := 0; i < s.Count(); i++ {
		points := s.Fiber(i)
		bf := BundleFiber{Points: make([][3]float64, len(points))}
		for p, pt := range points {
			bf.Points[p] = [3]float64{pt.X, pt.Y, pt.Z}
		}
		if types := s.ScalarTypes(); len(types) > 0 {
			bf.Scalars = make(map[string][]float64, len(types))
			for _, name := range types {
				values, err := s.Scalar(i, name)
				if err != nil {
					return err
				}
				vals := make([]float64, len(values))
				copy(vals, values)
				bf.Scalars[name] = vals
			}
		}
		b.Fibers[i] = bf
	}
	enc := json.NewEncoder(w)
	return enc.Encode(&b)
}

package fibers

import (
	"fmt"
	"sort"
)

// Point is a single 3D sample along a fiber.
type Point struct {
	X, Y, Z float64
}

type fiber struct {
	points  []Point
	scalars map[string][]float64
}

// Store is an in-memory collection of fibers sampled at a fixed number of
// points per fiber. Each fiber may carry named scalar channels (e.g. "FA",
// "T1") with one value per sample point. The channel set is uniform across
// all fibers in a store.
//
// A Store is populated with Append and treated as read-only afterwards; the
// clustering pipeline never mutates it, so concurrent readers need no
// locking.
type Store struct {
	ptsPerFiber int
	fibers      []fiber
	channels    []string
}

// NewStore creates an empty store for fibers with ptsPerFiber samples each.
func NewStore(ptsPerFiber int) (*Store, error) {
	if ptsPerFiber <= 0 {
		return nil, fmt.Errorf("pts_per_fiber must be positive, got %d", ptsPerFiber)
	}
	return &Store{ptsPerFiber: ptsPerFiber}, nil
}

// Append adds a fiber and its scalar channels to the store. The first
// appended fiber fixes the channel set; subsequent fibers must carry the
// same channels.
func (s *Store) Append(points []Point, scalars map[string][]float64) error {
	if len(points) != s.ptsPerFiber {
		return fmt.Errorf("fiber has %d points, store expects %d", len(points), s.ptsPerFiber)
	}

	for name, values := range scalars {
		if len(values) != s.ptsPerFiber {
			return fmt.Errorf("scalar channel %q has %d samples, store expects %d",
				name, len(values), s.ptsPerFiber)
		}
	}

	if len(s.fibers) == 0 {
		s.channels = make([]string, 0, len(scalars))
		for name := range scalars {
			s.channels = append(s.channels, name)
		}
		sort.Strings(s.channels)
	} else {
		if len(scalars) != len(s.channels) {
			return fmt.Errorf("fiber carries %d scalar channels, store expects %d",
				len(scalars), len(s.channels))
		}
		for _, name := range s.channels {
			if _, ok := scalars[name]; !ok {
				return fmt.Errorf("fiber missing scalar channel %q", name)
			}
		}
	}

	f := fiber{points: make([]Point, len(points))}
	copy(f.points, points)
	if len(scalars) > 0 {
		f.scalars = make(map[string][]float64, len(scalars))
		for name, values := range scalars {
			vals := make([]float64, len(values))
			copy(vals, values)
			f.scalars[name] = vals
		}
	}

	s.fibers = append(s.fibers, f)
	return nil
}

// Count returns the number of fibers in the store.
func (s *Store) Count() int { return len(s.fibers) }

// PtsPerFiber returns the number of sample points per fiber.
func (s *Store) PtsPerFiber() int { return s.ptsPerFiber }

// ScalarTypes returns the names of the scalar channels, sorted.
func (s *Store) ScalarTypes() []string {
	out := make([]string, len(s.channels))
	copy(out, s.channels)
	return out
}

// HasScalar reports whether the store carries the named channel.
func (s *Store) HasScalar(name string) bool {
	for _, c := range s.channels {
		if c == name {
			return true
		}
	}
	return false
}

// Fiber returns the points of fiber i. The returned slice is shared with
// the store and must not be modified.
func (s *Store) Fiber(i int) []Point {
	return s.fibers[i].points
}

// Fibers returns the points of the fibers at the given indices.
func (s *Store) Fibers(indices []int) [][]Point {
	out := make([][]Point, len(indices))
	for k, idx := range indices {
		out[k] = s.fibers[idx].points
	}
	return out
}

// Scalar returns the named channel of fiber i. The returned slice is shared
// with the store and must not be modified.
func (s *Store) Scalar(i int, name string) ([]float64, error) {
	values, ok := s.fibers[i].scalars[name]
	if !ok {
		return nil, fmt.Errorf("unknown scalar channel %q", name)
	}
	return values, nil
}

// Scalars returns the named channel for the fibers at the given indices.
func (s *Store) Scalars(indices []int, name string) ([][]float64, error) {
	out := make([][]float64, len(indices))
	for k, idx := range indices {
		values, ok := s.fibers[idx].scalars[name]
		if !ok {
			return nil, fmt.Errorf("unknown scalar channel %q", name)
		}
		out[k] = values
	}
	return out, nil
}

// Retained returns a new store without the fibers at the given indices;
// with no rejected indices it returns the receiver itself. Used to keep the
// post-rejection fiber set aligned with a persisted eigenbasis.
func (s *Store) Retained(rejected []int) (*Store, error) {
	if len(rejected) == 0 {
		return s, nil
	}
	drop := make(map[int]struct{}, len(rejected))
	for _, idx := range rejected {
		drop[idx] = struct{}{}
	}
	keep := make([]int, 0, len(s.fibers)-len(rejected))
	for i := range s.fibers {
		if _, ok := drop[i]; !ok {
			keep = append(keep, i)
		}
	}
	return s.Subset(keep)
}

// Subset returns a new store containing the fibers at the given indices, in
// order. Used to extract single clusters after labeling.
func (s *Store) Subset(indices []int) (*Store, error) {
	sub, err := NewStore(s.ptsPerFiber)
	if err != nil {
		return nil, err
	}
	for _, idx := range indices {
		if idx < 0 || idx >= len(s.fibers) {
			return nil, fmt.Errorf("fiber index %d out of range [0,%d)", idx, len(s.fibers))
		}
		if err := sub.Append(s.fibers[idx].points, s.fibers[idx].scalars); err != nil {
			return nil, err
		}
	}
	return sub, nil
}

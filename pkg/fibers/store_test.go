package fibers

import (
	"bytes"
	"testing"
)

func testPoints(p int, offset float64) []Point {
	pts := make([]Point, p)
	for i := range pts {
		pts[i] = Point{X: float64(i), Y: offset, Z: 0}
	}
	return pts
}

func TestNewStoreRejectsBadPts(t *testing.T) {
	if _, err := NewStore(0); err == nil {
		t.Error("expected error for pts_per_fiber = 0")
	}
	if _, err := NewStore(-3); err == nil {
		t.Error("expected error for negative pts_per_fiber")
	}
}

func TestAppendValidatesPointCount(t *testing.T) {
	s, _ := NewStore(5)
	if err := s.Append(testPoints(4, 0), nil); err == nil {
		t.Error("expected error for wrong point count")
	}
	if err := s.Append(testPoints(5, 0), nil); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if s.Count() != 1 {
		t.Errorf("expected 1 fiber, got %d", s.Count())
	}
}

func TestAppendValidatesScalarLength(t *testing.T) {
	s, _ := NewStore(5)
	err := s.Append(testPoints(5, 0), map[string][]float64{"FA": {1, 2, 3}})
	if err == nil {
		t.Error("expected error for short scalar channel")
	}
}

func TestAppendEnforcesUniformChannels(t *testing.T) {
	s, _ := NewStore(3)
	if err := s.Append(testPoints(3, 0), map[string][]float64{"FA": {1, 2, 3}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Append(testPoints(3, 1), nil); err == nil {
		t.Error("expected error for missing channel")
	}
	if err := s.Append(testPoints(3, 1), map[string][]float64{"T1": {1, 2, 3}}); err == nil {
		t.Error("expected error for wrong channel name")
	}
	if err := s.Append(testPoints(3, 1), map[string][]float64{"FA": {4, 5, 6}}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAccessors(t *testing.T) {
	s, _ := NewStore(3)
	for i := 0; i < 4; i++ {
		err := s.Append(testPoints(3, float64(i)), map[string][]float64{
			"FA": {float64(i), float64(i), float64(i)},
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	if s.PtsPerFiber() != 3 {
		t.Errorf("expected 3 pts per fiber, got %d", s.PtsPerFiber())
	}
	if got := s.Fiber(2)[0].Y; got != 2 {
		t.Errorf("expected fiber 2 at offset 2, got %g", got)
	}

	group := s.Fibers([]int{1, 3})
	if len(group) != 2 || group[1][0].Y != 3 {
		t.Errorf("unexpected group: %v", group)
	}

	fa, err := s.Scalar(1, "FA")
	if err != nil || fa[0] != 1 {
		t.Errorf("unexpected scalar: %v, %v", fa, err)
	}
	if _, err := s.Scalar(1, "T1"); err == nil {
		t.Error("expected error for unknown channel")
	}

	rows, err := s.Scalars([]int{0, 2}, "FA")
	if err != nil || rows[1][0] != 2 {
		t.Errorf("unexpected scalars: %v, %v", rows, err)
	}

	types := s.ScalarTypes()
	if len(types) != 1 || types[0] != "FA" {
		t.Errorf("unexpected types: %v", types)
	}
}

func TestSubsetAndRetained(t *testing.T) {
	s, _ := NewStore(3)
	for i := 0; i < 5; i++ {
		if err := s.Append(testPoints(3, float64(i)), nil); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	sub, err := s.Subset([]int{4, 0})
	if err != nil {
		t.Fatalf("subset: %v", err)
	}
	if sub.Count() != 2 || sub.Fiber(0)[0].Y != 4 {
		t.Errorf("unexpected subset order")
	}

	if _, err := s.Subset([]int{7}); err == nil {
		t.Error("expected range error")
	}

	kept, err := s.Retained([]int{1, 3})
	if err != nil {
		t.Fatalf("retained: %v", err)
	}
	if kept.Count() != 3 {
		t.Errorf("expected 3 retained, got %d", kept.Count())
	}
	want := []float64{0, 2, 4}
	for i, y := range want {
		if kept.Fiber(i)[0].Y != y {
			t.Errorf("retained fiber %d at offset %g, want %g", i, kept.Fiber(i)[0].Y, y)
		}
	}

	same, err := s.Retained(nil)
	if err != nil || same.Count() != 5 {
		t.Errorf("retained with no rejections should keep all fibers")
	}
}

func TestBundleRoundTrip(t *testing.T) {
	s, _ := NewStore(2)
	_ = s.Append([]Point{{1, 2, 3}, {4, 5, 6}}, map[string][]float64{"FA": {0.1, 0.2}})
	_ = s.Append([]Point{{7, 8, 9}, {1, 1, 1}}, map[string][]float64{"FA": {0.3, 0.4}})

	var buf bytes.Buffer
	if err := WriteBundle(&buf, s); err != nil {
		t.Fatalf("write: %v", err)
	}
	back, err := ReadBundle(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if back.Count() != 2 || back.PtsPerFiber() != 2 {
		t.Fatalf("unexpected shape: %d fibers, %d pts", back.Count(), back.PtsPerFiber())
	}
	if back.Fiber(1)[0].X != 7 {
		t.Errorf("points not preserved")
	}
	fa, err := back.Scalar(0, "FA")
	if err != nil || fa[1] != 0.2 {
		t.Errorf("scalars not preserved: %v, %v", fa, err)
	}
}

package geom

import (
	"math"
	"testing"
)

func TestAngleBetween_ClampsDot(t *testing.T) {
	// A unit vector dotted with itself can land a hair above 1.
	v := Vec2{X: 0.6, Y: 0.8}
	got := AngleBetween(v, v)
	if math.IsNaN(got) {
		t.Fatal("AngleBetween returned NaN for identical vectors")
	}
	if got != 0 {
		t.Errorf("AngleBetween(v, v) = %v, want 0", got)
	}

	got = AngleBetween(v, v.Neg())
	if math.Abs(got-math.Pi) > 1e-12 {
		t.Errorf("AngleBetween(v, -v) = %v, want π", got)
	}
}

func TestClampUnit(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{1.0000000000000002, 1},
		{-1.0000000000000002, -1},
		{0.5, 0.5},
	}
	for _, tt := range tests {
		if got := ClampUnit(tt.in); got != tt.want {
			t.Errorf("ClampUnit(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestVec2_Rotate(t *testing.T) {
	v := Vec2{X: 1, Y: 0}.Rotate(math.Cos(math.Pi/2), math.Sin(math.Pi/2))
	if math.Abs(v.X) > 1e-15 || math.Abs(v.Y-1) > 1e-15 {
		t.Errorf("rotate (1,0) by 90° = %v, want (0,1)", v)
	}
	if p := (Vec2{X: 1, Y: 0}).Perp(); p != (Vec2{X: 0, Y: 1}) {
		t.Errorf("Perp = %v, want (0,1)", p)
	}
}

func TestRect(t *testing.T) {
	r := R(0, 0, 10, 5)
	if !r.Contains(Pt(0, 0)) {
		t.Error("min corner should be inside")
	}
	if r.Contains(Pt(10, 1)) {
		t.Error("max edge should be outside")
	}
	if r.Empty() {
		t.Error("rect should not be empty")
	}
	if !R(1, 1, 1, 4).Empty() {
		t.Error("zero-width rect should be empty")
	}
	got := r.Intersect(R(5, -5, 20, 3))
	if got != R(5, 0, 10, 3) {
		t.Errorf("Intersect = %v", got)
	}
}

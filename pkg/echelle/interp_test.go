package echelle

import (
	"errors"
	"math"
	"testing"
)

func TestInterpAtNodesAndBetween(t *testing.T) {
	in, err := NewInterp([]float64{0, 1, 2, 4}, []float64{10, 20, 30, 50})
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct{ q, want float64 }{
		{0, 10},
		{1, 20},
		{4, 50},
		{0.5, 15},
		{3, 40},
	}
	for _, c := range cases {
		if got := in.At(c.q); math.Abs(got-c.want) > 1e-12 {
			t.Errorf("At(%g) = %g, want %g", c.q, got, c.want)
		}
	}
}

// Out-of-range queries must continue the boundary segment, not clamp
// to the boundary value.
func TestInterpExtrapolates(t *testing.T) {
	in, err := NewInterp([]float64{0, 1, 2}, []float64{0, 1, 3})
	if err != nil {
		t.Fatal(err)
	}
	if got := in.At(-2); math.Abs(got-(-2)) > 1e-12 {
		t.Errorf("left extrapolation At(-2) = %g, want -2", got)
	}
	if got := in.At(3); math.Abs(got-5) > 1e-12 {
		t.Errorf("right extrapolation At(3) = %g, want 5", got)
	}
}

func TestInterpRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		x, y []float64
	}{
		{"too short", []float64{1}, []float64{1}},
		{"length mismatch", []float64{1, 2}, []float64{1}},
		{"duplicate", []float64{1, 1, 2}, []float64{1, 2, 3}},
		{"descending", []float64{2, 1}, []float64{1, 2}},
	}
	for _, c := range cases {
		_, err := NewInterp(c.x, c.y)
		if err == nil {
			t.Errorf("%s: expected error", c.name)
			continue
		}
		var iie *InvalidInputError
		if !errors.As(err, &iie) {
			t.Errorf("%s: got %T, want *InvalidInputError", c.name, err)
		}
	}
}

func TestInterpEval(t *testing.T) {
	in, _ := NewInterp([]float64{0, 1}, []float64{0, 2})
	got := in.Eval([]float64{0, 0.25, 1, 2})
	want := []float64{0, 0.5, 2, 4}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("Eval[%d] = %g, want %g", i, got[i], want[i])
		}
	}
}

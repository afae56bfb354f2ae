package echelle

import (
	"sort"
)

// An Interp is a piecewise-linear interpolant over strictly ascending
// sample positions. Queries outside the sample domain continue the
// boundary segment rather than clamping - both the blaze shift and
// the order-overlap resampling rely on that extrapolation, so it is
// part of the contract, not a convenience.
type Interp struct {
	x []float64
	y []float64
}

// NewInterp builds an interpolant over the given samples. The x
// values must be strictly ascending and there must be at least two of
// them; anything else is an *InvalidInputError.
func NewInterp(x, y []float64) (*Interp, error) {
	if len(x) != len(y) {
		return nil, invalidf("interp has %d positions but %d values", len(x), len(y))
	}
	if len(x) < 2 {
		return nil, invalidf("interp needs at least 2 samples, got %d", len(x))
	}
	for i := 1; i < len(x); i++ {
		if x[i] <= x[i-1] {
			return nil, invalidf("interp positions not strictly ascending at index %d", i)
		}
	}
	return &Interp{x: x, y: y}, nil
}

// At evaluates the interpolant at q. For q outside [x[0], x[n-1]] the
// nearest boundary segment is extended.
func (in *Interp) At(q float64) float64 {
	n := len(in.x)

	// Index of the segment [x[i], x[i+1]] to evaluate on. SearchFloat64s
	// returns the insertion point; shift down one to get the left node,
	// then clamp so out-of-range queries reuse the boundary segment.
	i := sort.SearchFloat64s(in.x, q) - 1
	if i < 0 {
		i = 0
	} else if i > n-2 {
		i = n - 2
	}

	t := (q - in.x[i]) / (in.x[i+1] - in.x[i])
	return in.y[i] + t*(in.y[i+1]-in.y[i])
}

// Eval evaluates the interpolant at each query position.
func (in *Interp) Eval(qs []float64) []float64 {
	out := make([]float64, len(qs))
	for i, q := range qs {
		out[i] = in.At(q)
	}
	return out
}

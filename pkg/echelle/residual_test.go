package echelle

import (
	"math"
	"testing"
)

func TestResidCalcShapes(t *testing.T) {
	for _, norders := range []int{2, 3, 7} {
		exp := synthExposure(norders, 64, make([]float64, norders))
		rs := ResidCalc(exp, nil, nil, DefaultNTrim, nil)
		if len(rs.Resids) != norders-1 {
			t.Errorf("%d orders: got %d residuals, want %d", norders, len(rs.Resids), norders-1)
		}
		if len(rs.Errs) != len(rs.Resids) {
			t.Errorf("%d orders: %d errors for %d residuals", norders, len(rs.Errs), len(rs.Resids))
		}
	}
}

// An aligned exposure should show near-zero residuals; a misaligned
// one should not.
func TestResidCalcSeesMisalignment(t *testing.T) {
	aligned := synthExposure(4, 256, []float64{0, 0, 0, 0})
	skewed := synthExposure(4, 256, []float64{0, 3, 6, 9})

	ra := ResidCalc(aligned, nil, nil, DefaultNTrim, nil)
	rk := ResidCalc(skewed, nil, nil, DefaultNTrim, nil)

	if ma, mk := meanAbs(ra.Resids), meanAbs(rk.Resids); ma > mk/5 {
		t.Errorf("aligned mean |resid| %g not clearly below misaligned %g", ma, mk)
	}
}

// A pair with no signal in the overlap must come back as exactly
// residual 0, error 1 - the fit's weighting depends on these values.
func TestResidCalcDegenerateOverlapFallback(t *testing.T) {
	exp := synthExposure(3, 64, []float64{0, 0, 0})
	for o := 0; o < 2; o++ { // zero out flux everywhere in orders 0,1
		for i := range exp.Flux[o] {
			exp.Flux[o][i] = 0
			exp.Err[o][i] = 0
		}
	}

	rs := ResidCalc(exp, nil, nil, DefaultNTrim, nil)
	if rs.Resids[0] != 0 || rs.Errs[0] != 1 {
		t.Errorf("degenerate pair: got (%g, %g), want exactly (0, 1)", rs.Resids[0], rs.Errs[0])
	}
}

// Trimming more pixels than the overlap holds is the same degenerate
// case: no information, defined fallback.
func TestResidCalcOvertrimmedOverlap(t *testing.T) {
	exp := synthExposure(2, 64, []float64{0, 0})
	rs := ResidCalc(exp, nil, nil, 1000, nil)
	if rs.Resids[0] != 0 || rs.Errs[0] != 1 {
		t.Errorf("overtrimmed pair: got (%g, %g), want (0, 1)", rs.Resids[0], rs.Errs[0])
	}
}

func TestResidCalcErrorPropagation(t *testing.T) {
	exp := synthExposure(2, 256, []float64{0, 0})
	rs := ResidCalc(exp, nil, nil, DefaultNTrim, nil)
	if rs.Errs[0] <= 0 || !finite(rs.Errs[0]) {
		t.Fatalf("residual error %g, want finite positive", rs.Errs[0])
	}
	// Scaling all errors up by 10x should scale the residual error by
	// roughly 10x too (ratio-of-sums propagation is linear in the
	// per-pixel errors).
	for o := range exp.Err {
		for i := range exp.Err[o] {
			exp.Err[o][i] *= 10
		}
	}
	rs10 := ResidCalc(exp, nil, nil, DefaultNTrim, nil)
	if ratio := rs10.Errs[0] / rs.Errs[0]; math.Abs(ratio-10) > 0.5 {
		t.Errorf("error scaling ratio %g, want ~10", ratio)
	}
}

func TestResidCalcHonorsMask(t *testing.T) {
	exp := synthExposure(2, 256, []float64{0, 0})

	// Poison a pixel inside the overlap, then mask it out; the
	// residual should stay close to the clean value.
	clean := ResidCalc(exp, nil, nil, DefaultNTrim, nil)
	exp.Flux[0][20] *= 100

	mask := make(Mask, 2)
	mask[0] = make([]bool, exp.NPix())
	mask[1] = make([]bool, exp.NPix())
	mask[0][20] = true

	masked := ResidCalc(exp, nil, nil, DefaultNTrim, mask)
	if math.Abs(masked.Resids[0]-clean.Resids[0]) > 1e-2 {
		t.Errorf("masked residual %g strayed from clean %g", masked.Resids[0], clean.Resids[0])
	}
}

package echelle

import (
	"math"
)

// DefaultNTrim pixels are dropped from each end of an overlap region
// before summation, to keep extraction edge artifacts out of the
// flux ratios.
const DefaultNTrim = 5

// A ResidualSet holds one normalized flux-ratio residual per adjacent
// order pair, with its propagated error. For an N-order exposure both
// slices have length N-1, ordered by ascending relative order.
type ResidualSet struct {
	Resids []float64
	Errs   []float64
}

// Weighted returns |resid/err| per pair - the quantity the shift fit
// drives toward zero. A zero error contributes zero, by the same
// no-information policy as the degenerate-overlap fallback.
func (rs ResidualSet) Weighted() []float64 {
	w := make([]float64, len(rs.Resids))
	for i := range rs.Resids {
		if rs.Errs[i] == 0 {
			continue
		}
		w[i] = math.Abs(rs.Resids[i] / rs.Errs[i])
	}
	return w
}

// ResidCalc computes the overlap residual for every adjacent order
// pair. flux and errv default to the exposure's own arrays when nil,
// so the same routine serves both the "before" and "after" views.
//
// For pair (i, i+1): order i+1's flux and error are interpolated onto
// order i's wavelength grid over the overlap region (the pixels of
// order i at or below order i+1's last wavelength), the flux in each
// order is summed with ntrim pixels trimmed from both ends of the
// overlap, and the residual is 1 - fluxsum0/fluxsum1. Errors add in
// quadrature and propagate through the ratio of sums.
//
// A pair whose denominator sum is zero carries no information: it
// gets residual 0 with error 1, exactly, instead of a numeric
// failure. Downstream weighting depends on those two values.
//
// Masked pixels of order i are skipped in the sums, and masked pixels
// of order i+1 are left out of its interpolants. Non-finite samples
// (e.g. flux recomputed through a zero-flux pixel) are skipped the
// same way, so one dead pixel can't turn a whole pair into NaN.
func ResidCalc(exp *Exposure, flux, errv [][]float64, ntrim int, excl Mask) ResidualSet {
	if flux == nil {
		flux = exp.Flux
	}
	if errv == nil {
		errv = exp.Err
	}
	norders := exp.NOrders()
	rs := ResidualSet{
		Resids: make([]float64, norders-1),
		Errs:   make([]float64, norders-1),
	}

	for o := 0; o < norders-1; o++ {
		f, g := overlapInterps(exp, flux, errv, o+1, excl)

		// Overlap region: pixels of order o that order o+1 still covers.
		wl := exp.Wavelength[o]
		wlMax := exp.Wavelength[o+1][exp.NPix()-1]
		overlap := make([]int, 0, exp.NPix())
		for i, w := range wl {
			if w <= wlMax {
				overlap = append(overlap, i)
			}
		}

		var fluxsum0, fluxsum1, errsum0, errsum1 float64
		if f != nil {
			for k := ntrim; k < len(overlap)-ntrim; k++ {
				i := overlap[k]
				if excl.Excluded(o, i) {
					continue
				}
				f0 := flux[o][i]
				f1 := f.At(wl[i])
				g0 := errv[o][i]
				g1 := g.At(wl[i])
				if !finite(f0) || !finite(f1) || !finite(g0) || !finite(g1) {
					continue
				}
				fluxsum0 += f0
				fluxsum1 += f1
				errsum0 += g0 * g0
				errsum1 += g1 * g1
			}
		}

		if fluxsum1 == 0 {
			rs.Resids[o] = 0
			rs.Errs[o] = 1
			continue
		}
		resid := 1 - fluxsum0/fluxsum1
		rs.Resids[o] = resid

		// Ratio-of-sums propagation. A zero numerator sum would make
		// its term 0/0; such a term carries no error information and
		// is dropped.
		t0 := 0.0
		if fluxsum0 != 0 {
			t0 = errsum0 / (fluxsum0 * fluxsum0)
		}
		t1 := errsum1 / (fluxsum1 * fluxsum1)
		rs.Errs[o] = math.Abs(1-resid) * math.Sqrt(t0+t1)
	}

	return rs
}

// overlapInterps builds the flux and error interpolants for order o
// over its own wavelength grid, extrapolation included. Returns nils
// when too few unmasked pixels remain; the caller treats that pair as
// carrying no information.
func overlapInterps(exp *Exposure, flux, errv [][]float64, o int, excl Mask) (*Interp, *Interp) {
	npix := exp.NPix()
	xs := make([]float64, 0, npix)
	fs := make([]float64, 0, npix)
	gs := make([]float64, 0, npix)
	for i := 0; i < npix; i++ {
		if excl.Excluded(o, i) {
			continue
		}
		xs = append(xs, exp.Wavelength[o][i])
		fs = append(fs, flux[o][i])
		gs = append(gs, errv[o][i])
	}
	if len(xs) < 2 {
		return nil, nil
	}
	f, err1 := NewInterp(xs, fs)
	g, err2 := NewInterp(xs, gs)
	if err1 != nil || err2 != nil {
		return nil, nil
	}
	return f, g
}

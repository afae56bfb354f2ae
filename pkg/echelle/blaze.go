package echelle

import (
	"math"
)

// FluxCorrect recomputes flux and error after shifting the blaze
// function by pixshift[order] pixels in each order.
//
// The original sensitivity curve is backed out of the existing
// calibration as net/flux, elementwise. Pixels where flux is zero get
// a non-finite sensitivity; that's propagated, not fatal. An
// interpolant over pixel index vs sensitivity is evaluated at
// (index - pixshift) to produce the shifted curve. Corrected flux is
// net divided by the shifted curve. Err is in flux units, so it is
// first backed out to counts with the original per-pixel sensitivity
// and then divided by the shifted curve; a zero shift reproduces the
// input error array.
//
// Pixels excluded by the mask are left out of the interpolation nodes
// so a flagged pixel can't drag the shifted curve around; the output
// arrays still cover every pixel. Inputs are never mutated.
func FluxCorrect(exp *Exposure, pixshift []float64, excl Mask) (newflux, newerr [][]float64, err error) {
	norders, npix := exp.NOrders(), exp.NPix()
	if len(pixshift) != norders {
		return nil, nil, invalidf("pixshift has %d entries for %d orders", len(pixshift), norders)
	}

	newflux = make([][]float64, norders)
	newerr = make([][]float64, norders)

	xs := make([]float64, 0, npix)
	ys := make([]float64, 0, npix)

	for o := 0; o < norders; o++ {
		newflux[o] = make([]float64, npix)
		newerr[o] = make([]float64, npix)

		xs, ys = xs[:0], ys[:0]
		for i := 0; i < npix; i++ {
			if excl.Excluded(o, i) {
				continue
			}
			xs = append(xs, float64(i))
			ys = append(ys, exp.Net[o][i]/exp.Flux[o][i])
		}

		if len(xs) < 2 {
			// Not enough usable pixels to build a curve; leave the order
			// uncorrected rather than destabilizing the whole exposure.
			copy(newflux[o], exp.Flux[o])
			copy(newerr[o], exp.Err[o])
			continue
		}

		blaze, ierr := NewInterp(xs, ys)
		if ierr != nil {
			return nil, nil, ierr
		}

		for i := 0; i < npix; i++ {
			shifted := blaze.At(float64(i) - pixshift[o])
			newflux[o][i] = exp.Net[o][i] / shifted
			neterr := exp.Err[o][i] * (exp.Net[o][i] / exp.Flux[o][i])
			newerr[o][i] = neterr / shifted
		}
	}

	return newflux, newerr, nil
}

// Sensitivity backs out the blaze curve for one order, net/flux
// elementwise. Zero flux gives ±Inf or NaN, which the caller is
// expected to tolerate.
func Sensitivity(exp *Exposure, order int) []float64 {
	npix := exp.NPix()
	s := make([]float64, npix)
	for i := 0; i < npix; i++ {
		s[i] = exp.Net[order][i] / exp.Flux[order][i]
	}
	return s
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

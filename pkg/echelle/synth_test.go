package echelle

import (
	"math"
)

// synthExposure builds an echelle exposure with a known blaze
// misregistration per order, so tests know the shift a fit should
// recover.
//
// Orders follow the instrument convention: ascending relative order
// means descending wavelength, with each order overlapping the next
// by 20% of its span. The "true" spectrum is a smooth continuum, the
// blaze is a broad Gaussian, and the stored flux is deliberately
// calibrated with the blaze shifted by shift[o] pixels - so a fit
// should come back with pixshift ~= shift.
func synthExposure(norders, npix int, shift []float64) *Exposure {
	const dlam = 0.05
	span := float64(npix) * dlam

	blaze := func(x float64) float64 {
		c := float64(npix) / 2
		w := float64(npix) / 6
		return 1 + 0.8*math.Exp(-(x-c)*(x-c)/(2*w*w))
	}
	continuum := func(lam float64) float64 {
		return 10 + math.Sin(lam/30)
	}

	cols := Columns{
		Wavelength: make([][]float64, norders),
		Net:        make([][]float64, norders),
		Flux:       make([][]float64, norders),
		Err:        make([][]float64, norders),
	}
	for o := 0; o < norders; o++ {
		lam0 := 3000 - float64(o)*0.8*span
		wl := make([]float64, npix)
		net := make([]float64, npix)
		flux := make([]float64, npix)
		errv := make([]float64, npix)
		for i := 0; i < npix; i++ {
			x := float64(i)
			wl[i] = lam0 + x*dlam
			net[i] = continuum(wl[i]) * blaze(x)
			flux[i] = net[i] / blaze(x+shift[o])
			errv[i] = 0.01 * flux[i]
		}
		cols.Wavelength[o] = wl
		cols.Net[o] = net
		cols.Flux[o] = flux
		cols.Err[o] = errv
	}

	exp, err := NewExposure(cols)
	if err != nil {
		panic(err)
	}
	return exp
}

func meanAbs(vs []float64) float64 {
	sum := 0.0
	for _, v := range vs {
		sum += math.Abs(v)
	}
	return sum / float64(len(vs))
}

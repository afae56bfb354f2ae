package echelle

import (
	"fmt"
)

// An InvalidInputError means the caller handed us arrays we can't
// work with - wrong shapes, too few points, a wavelength grid that
// isn't ascending. The core never tries to repair these.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string { return "invalid input: " + e.Reason }

func invalidf(format string, args ...interface{}) error {
	return &InvalidInputError{Reason: fmt.Sprintf(format, args...)}
}

// Columns is the input record handed over by the file-reading
// collaborator: one 2D array per column, shaped orders x pixels.
// Err is the flux uncertainty (the x1d ERROR column, or NET_ERROR
// when ERROR is absent). DQ is optional and may be nil.
type Columns struct {
	Wavelength [][]float64
	Net        [][]float64
	Flux       [][]float64
	Err        [][]float64
	DQ         [][]int32
}

// An Exposure is one echelle observation: N relative spectral orders,
// each with the same fixed pixel count. Orders are indexed 0..N-1 in
// the order they came out of the extraction, and every per-order
// array runs in parallel by pixel position.
type Exposure struct {
	Wavelength [][]float64
	Net        [][]float64
	Flux       [][]float64
	Err        [][]float64
	DQ         [][]int32 // nil when the input record had no DQ column
}

// NewExposure validates an input record and wraps it up. The arrays
// are NOT copied; the core treats them as read-only from here on.
func NewExposure(cols Columns) (*Exposure, error) {
	norders := len(cols.Wavelength)
	if norders < 1 {
		return nil, invalidf("exposure has no orders")
	}
	if len(cols.Net) != norders || len(cols.Flux) != norders || len(cols.Err) != norders {
		return nil, invalidf("column order counts differ: wavelength %d, net %d, flux %d, error %d",
			norders, len(cols.Net), len(cols.Flux), len(cols.Err))
	}
	if cols.DQ != nil && len(cols.DQ) != norders {
		return nil, invalidf("dq has %d orders, expected %d", len(cols.DQ), norders)
	}

	npix := len(cols.Wavelength[0])
	if npix < 2 {
		return nil, invalidf("orders have %d pixels, need at least 2", npix)
	}

	for o := 0; o < norders; o++ {
		if len(cols.Wavelength[o]) != npix || len(cols.Net[o]) != npix ||
			len(cols.Flux[o]) != npix || len(cols.Err[o]) != npix {
			return nil, invalidf("order %d arrays are not all %d pixels long", o, npix)
		}
		if cols.DQ != nil && len(cols.DQ[o]) != npix {
			return nil, invalidf("order %d dq is %d pixels long, expected %d", o, len(cols.DQ[o]), npix)
		}
		wl := cols.Wavelength[o]
		for i := 1; i < npix; i++ {
			if wl[i] <= wl[i-1] {
				return nil, invalidf("order %d wavelength not strictly ascending at pixel %d", o, i)
			}
		}
	}

	return &Exposure{
		Wavelength: cols.Wavelength,
		Net:        cols.Net,
		Flux:       cols.Flux,
		Err:        cols.Err,
		DQ:         cols.DQ,
	}, nil
}

func (e *Exposure) NOrders() int { return len(e.Wavelength) }
func (e *Exposure) NPix() int    { return len(e.Wavelength[0]) }

func (e *Exposure) String() string {
	return fmt.Sprintf("Exposure[%d orders x %d pixels, %.1f-%.1fA]",
		e.NOrders(), e.NPix(), e.Wavelength[0][0], e.Wavelength[e.NOrders()-1][e.NPix()-1])
}

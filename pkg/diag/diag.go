// Package diag renders the corrector's diagnostic sheets as PNGs: the
// spectrum before and after correction, the overlap residuals, and
// the fitted pixel shift per order.
package diag

import (
	"fmt"
	"math"

	"github.com/fogleman/gg"
	colorful "github.com/lucasb-eyer/go-colorful"

	"blazefix/pkg/echelle"
)

const (
	sheetW = 1400
	sheetH = 1000
	margin = 60.0
)

type Plotter struct {
	NTrim int // pixels hidden at order edges when drawing spectra
}

func NewPlotter() Plotter { return Plotter{NTrim: echelle.DefaultNTrim} }

// Diagnostic renders the four-panel sheet for one corrected exposure:
// spectrum before, spectrum after, residuals before/after with error
// bars, and the pixel shift per relative order.
func (p Plotter) Diagnostic(filename, title string, exp *echelle.Exposure,
	newflux [][]float64, fit *echelle.FitResult, before, after echelle.ResidualSet) error {

	dc := gg.NewContext(sheetW, sheetH)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored(title, sheetW/2, 20, 0.5, 0.5)

	// Left column gets the two spectra, right column the residual and
	// pixshift panels.
	lw := float64(sheetW) * 5 / 7
	specTop := panel{x0: margin, y0: 40, x1: lw - 20, y1: sheetH/2 - 20, title: "Spectrum Before Correction"}
	specBot := panel{x0: margin, y0: sheetH/2 + 40, x1: lw - 20, y1: sheetH - margin, title: "Spectrum After Correction"}
	residP := panel{x0: lw + margin, y0: 40, x1: sheetW - 30, y1: sheetH/2 - 20, title: "Flux Overlap"}
	shiftP := panel{x0: lw + margin, y0: sheetH/2 + 40, x1: sheetW - 30, y1: sheetH - margin, title: "Pixshift"}

	p.drawSpectrum(dc, specTop, exp, exp.Flux)
	p.drawSpectrum(dc, specBot, exp, newflux)
	drawResiduals(dc, residP, before, after)
	drawShift(dc, shiftP, fit)

	return dc.SavePNG(filename)
}

// Blaze renders the backed-out sensitivity curve for every order of
// an exposure on one canvas.
func (p Plotter) Blaze(filename, title string, exp *echelle.Exposure) error {
	dc := gg.NewContext(sheetW, sheetH)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored(title, sheetW/2, 20, 0.5, 0.5)

	pn := panel{x0: margin, y0: 40, x1: sheetW - 30, y1: sheetH - margin, title: "Blaze Function"}

	blaze := make([][]float64, exp.NOrders())
	for o := range blaze {
		blaze[o] = echelle.Sensitivity(exp, o)
	}
	p.drawSpectrum(dc, pn, exp, blaze)

	return dc.SavePNG(filename)
}

// A panel is a plot area in canvas coordinates plus the data range
// mapped onto it.
type panel struct {
	x0, y0, x1, y1         float64
	title                  string
	xmin, xmax, ymin, ymax float64
}

func (pn *panel) px(x float64) float64 {
	return pn.x0 + (x-pn.xmin)/(pn.xmax-pn.xmin)*(pn.x1-pn.x0)
}
func (pn *panel) py(y float64) float64 {
	return pn.y1 - (y-pn.ymin)/(pn.ymax-pn.ymin)*(pn.y1-pn.y0)
}

func (pn *panel) frame(dc *gg.Context) {
	if pn.xmax <= pn.xmin {
		pn.xmax = pn.xmin + 1
	}
	if pn.ymax <= pn.ymin {
		pn.ymax = pn.ymin + 1
	}
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1)
	dc.DrawRectangle(pn.x0, pn.y0, pn.x1-pn.x0, pn.y1-pn.y0)
	dc.Stroke()
	dc.DrawStringAnchored(pn.title, (pn.x0+pn.x1)/2, pn.y0-10, 0.5, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%.6g", pn.ymin), pn.x0-5, pn.y1, 1, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%.6g", pn.ymax), pn.x0-5, pn.y0, 1, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%.6g", pn.xmin), pn.x0, pn.y1+12, 0.5, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%.6g", pn.xmax), pn.x1, pn.y1+12, 0.5, 0.5)
}

// orderColor spreads the orders over a hue ramp so adjacent orders
// are distinguishable where they overlap.
func orderColor(o, norders int) colorful.Color {
	hue := 360 * float64(o) / float64(norders)
	return colorful.Hsv(hue, 0.85, 0.75)
}

func (p Plotter) drawSpectrum(dc *gg.Context, pn panel, exp *echelle.Exposure, vals [][]float64) {
	lo, hi := p.NTrim, exp.NPix()-p.NTrim
	if hi <= lo {
		lo, hi = 0, exp.NPix()
	}

	pn.xmin, pn.xmax = math.Inf(1), math.Inf(-1)
	pn.ymin, pn.ymax = math.Inf(1), math.Inf(-1)
	for o := 0; o < exp.NOrders(); o++ {
		for i := lo; i < hi; i++ {
			v := vals[o][i]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			pn.xmin = math.Min(pn.xmin, exp.Wavelength[o][i])
			pn.xmax = math.Max(pn.xmax, exp.Wavelength[o][i])
			pn.ymin = math.Min(pn.ymin, v)
			pn.ymax = math.Max(pn.ymax, v)
		}
	}
	if math.IsInf(pn.xmin, 0) {
		pn.xmin, pn.xmax, pn.ymin, pn.ymax = 0, 1, 0, 1
	}
	pn.frame(dc)

	dc.SetLineWidth(0.5)
	for o := 0; o < exp.NOrders(); o++ {
		dc.SetColor(orderColor(o, exp.NOrders()))
		started := false
		for i := lo; i < hi; i++ {
			v := vals[o][i]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				started = false
				continue
			}
			if !started {
				dc.MoveTo(pn.px(exp.Wavelength[o][i]), pn.py(v))
				started = true
			} else {
				dc.LineTo(pn.px(exp.Wavelength[o][i]), pn.py(v))
			}
		}
		dc.Stroke()
	}
}

func drawResiduals(dc *gg.Context, pn panel, before, after echelle.ResidualSet) {
	pn.xmin, pn.xmax = -0.5, float64(len(before.Resids))-0.5
	pn.ymin, pn.ymax = math.Inf(1), math.Inf(-1)
	for _, rs := range []echelle.ResidualSet{before, after} {
		for i := range rs.Resids {
			pn.ymin = math.Min(pn.ymin, rs.Resids[i]-rs.Errs[i])
			pn.ymax = math.Max(pn.ymax, rs.Resids[i]+rs.Errs[i])
		}
	}
	if math.IsInf(pn.ymin, 0) {
		pn.ymin, pn.ymax = -1, 1
	}
	pn.frame(dc)

	// zero line
	dc.SetRGBA(0, 0, 0, 0.4)
	dc.DrawLine(pn.px(pn.xmin), pn.py(0), pn.px(pn.xmax), pn.py(0))
	dc.Stroke()

	for pass, rs := range []echelle.ResidualSet{before, after} {
		if pass == 0 {
			dc.SetRGBA(0.8, 0.3, 0.2, 0.8) // before
		} else {
			dc.SetRGBA(0.2, 0.4, 0.8, 0.8) // after
		}
		for i := range rs.Resids {
			x := pn.px(float64(i))
			dc.DrawLine(x, pn.py(rs.Resids[i]-rs.Errs[i]), x, pn.py(rs.Resids[i]+rs.Errs[i]))
			dc.Stroke()
			dc.DrawCircle(x, pn.py(rs.Resids[i]), 3)
			dc.Fill()
		}
	}
}

func drawShift(dc *gg.Context, pn panel, fit *echelle.FitResult) {
	pn.xmin, pn.xmax = -0.5, float64(len(fit.PixShift))-0.5
	pn.ymin, pn.ymax = math.Inf(1), math.Inf(-1)
	for i := range fit.PixShift {
		pn.ymin = math.Min(pn.ymin, fit.PixShift[i]-fit.PixShiftErr[i])
		pn.ymax = math.Max(pn.ymax, fit.PixShift[i]+fit.PixShiftErr[i])
	}
	pn.frame(dc)

	dc.SetRGB(0.1, 0.5, 0.3)
	for i := range fit.PixShift {
		x := pn.px(float64(i))
		if fit.PixShiftErr[i] > 0 {
			dc.DrawLine(x, pn.py(fit.PixShift[i]-fit.PixShiftErr[i]), x, pn.py(fit.PixShift[i]+fit.PixShiftErr[i]))
			dc.Stroke()
		}
		dc.DrawCircle(x, pn.py(fit.PixShift[i]), 3)
		dc.Fill()
	}

	dc.SetRGB(0, 0, 0)
	label := fmt.Sprintf("a=%.3f b=%.3f", fit.A, fit.B)
	if !fit.Converged {
		label += " (nonconverged)"
	}
	dc.DrawStringAnchored(label, (pn.x0+pn.x1)/2, pn.y1+26, 0.5, 0.5)
}

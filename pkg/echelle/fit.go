package echelle

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/maorshutman/lm"
	"gonum.org/v1/gonum/mat"
)

// FitConfig carries everything a caller may tune about a shift fit.
// The zero value is not useful; start from DefaultFitConfig.
type FitConfig struct {
	Guess    [2]float64    // starting (a, b) for pixshift = a + b*order
	Iterate  bool          // false = hold the guess fixed, just evaluate it
	NTrim    int           // overlap edge trim, in pixels
	MaxIter  int           // iteration cap for the minimizer
	Timeout  time.Duration // wall-clock bound for one fit; 0 = none
	BadFlags DQFlag        // dq bits that exclude a pixel from sums and fits
}

func DefaultFitConfig() FitConfig {
	return FitConfig{
		Guess:    [2]float64{1, 0.5},
		Iterate:  true,
		NTrim:    DefaultNTrim,
		MaxIter:  100,
		Timeout:  30 * time.Second,
		BadFlags: DefaultBadFlags,
	}
}

// A FitResult is a frozen ShiftModel plus everything derived from it.
// PixShift[k] = A + B*k; PixShiftErr propagates the parameter standard
// errors through the linear model, ignoring the covariance cross-term.
// AErr and BErr are zero when the parameters were held fixed.
type FitResult struct {
	A, B        float64
	AErr, BErr  float64
	PixShift    []float64
	PixShiftErr []float64

	Converged bool
	TimedOut  bool
	Warning   string
}

func (r *FitResult) String() string {
	s := fmt.Sprintf("Fit[a=%.4f+/-%.4f b=%.4f+/-%.4f", r.A, r.AErr, r.B, r.BErr)
	if !r.Converged {
		s += " NONCONVERGED"
	}
	if r.TimedOut {
		s += " TIMEDOUT"
	}
	return s + "]"
}

// WeightedResiduals is the objective: map shift-model parameters
// (a, b) to |resid/residerr| across all adjacent order pairs, by
// shifting the blaze, recomputing flux/error, and re-evaluating the
// overlap residuals.
func WeightedResiduals(exp *Exposure, a, b float64, ntrim int, excl Mask) ([]float64, error) {
	pixshift := evalShiftModel(a, b, exp.NOrders())
	newflux, newerr, err := FluxCorrect(exp, pixshift, excl)
	if err != nil {
		return nil, err
	}
	rs := ResidCalc(exp, newflux, newerr, ntrim, excl)
	return rs.Weighted(), nil
}

// FindShift fits the two-parameter shift model to an exposure. With
// cfg.Iterate false the guess is evaluated as-is and the parameters
// come back frozen, errors zero. Otherwise a Levenberg-Marquardt
// search minimizes the weighted overlap residuals, bounded by
// cfg.MaxIter iterations and cfg.Timeout of wall clock.
//
// Non-convergence and timeouts are reported on the result - the
// parameters are still the minimizer's best effort, but Converged is
// false and Warning says why. Callers must not treat such a result as
// a clean fit.
func FindShift(exp *Exposure, cfg FitConfig) (*FitResult, error) {
	norders := exp.NOrders()
	npairs := norders - 1
	excl := BadPix(exp.DQ, cfg.BadFlags)

	r := &FitResult{A: cfg.Guess[0], B: cfg.Guess[1], Converged: true}

	if !cfg.Iterate {
		r.finish(norders)
		return r, nil
	}
	if npairs < 1 {
		r.Converged = false
		r.Warning = "no adjacent order pairs to fit; returning the guess"
		r.finish(norders)
		return r, nil
	}

	var deadline time.Time
	if cfg.Timeout > 0 {
		deadline = time.Now().Add(cfg.Timeout)
	}

	var objErr error
	frozen := make([]float64, npairs)

	obj := func(dst, p []float64) {
		// Once past the deadline the residuals are frozen, so the
		// minimizer sees a stationary point and terminates.
		if r.TimedOut || (!deadline.IsZero() && time.Now().After(deadline)) {
			r.TimedOut = true
			copy(dst, frozen)
			return
		}
		w, err := WeightedResiduals(exp, p[0], p[1], cfg.NTrim, excl)
		if err != nil {
			objErr = err
			for i := range dst {
				dst[i] = 0
			}
			return
		}
		copy(dst, w)
		copy(frozen, w)
	}

	jac := lm.NumJac{Func: obj}
	prob := lm.LMProblem{
		Dim:        2,
		Size:       npairs,
		Func:       obj,
		Jac:        jac.Jac,
		InitParams: []float64{cfg.Guess[0], cfg.Guess[1]},
		Tau:        1e-6,
		Eps1:       1e-8,
		Eps2:       1e-8,
	}

	results, err := lm.LM(prob, &lm.Settings{Iterations: cfg.MaxIter, ObjectiveTol: 1e-16})
	if objErr != nil {
		return nil, objErr
	}
	if results != nil && len(results.X) == 2 {
		r.A, r.B = results.X[0], results.X[1]
	}
	if err != nil {
		r.Converged = false
		r.Warning = fmt.Sprintf("minimizer did not converge within %d iterations: %v", cfg.MaxIter, err)
		log.Printf("Warning: %s\n", r.Warning)
	}
	if r.TimedOut {
		r.Converged = false
		r.Warning = fmt.Sprintf("fit hit the %s wall-clock bound", cfg.Timeout)
		log.Printf("Warning: %s\n", r.Warning)
	}

	r.AErr, r.BErr = paramStderr(obj, []float64{r.A, r.B}, npairs)
	r.finish(norders)
	return r, nil
}

// finish expands the model parameters into the per-order shift vector
// and its propagated uncertainty.
func (r *FitResult) finish(norders int) {
	r.PixShift = evalShiftModel(r.A, r.B, norders)
	r.PixShiftErr = make([]float64, norders)
	for k := 0; k < norders; k++ {
		r.PixShiftErr[k] = math.Sqrt(r.AErr*r.AErr + float64(k)*r.BErr*float64(k)*r.BErr)
	}
}

func evalShiftModel(a, b float64, norders int) []float64 {
	ps := make([]float64, norders)
	for k := 0; k < norders; k++ {
		ps[k] = a + b*float64(k)
	}
	return ps
}

// paramStderr estimates the standard errors of the fitted parameters
// from a forward-difference Jacobian at the solution: the covariance
// is s^2 * (J^T J)^-1 with s^2 the reduced sum of squares. Returns
// zeros when the problem is degenerate (too few pairs, singular
// normal matrix).
func paramStderr(obj func(dst, p []float64), p []float64, m int) (aerr, berr float64) {
	const n = 2
	if m <= n {
		return 0, 0
	}

	r0 := make([]float64, m)
	obj(r0, p)
	rss := 0.0
	for _, v := range r0 {
		rss += v * v
	}
	s2 := rss / float64(m-n)

	jac := mat.NewDense(m, n, nil)
	rj := make([]float64, m)
	pj := make([]float64, n)
	for j := 0; j < n; j++ {
		h := 1e-6 * math.Max(1, math.Abs(p[j]))
		copy(pj, p)
		pj[j] += h
		obj(rj, pj)
		for i := 0; i < m; i++ {
			jac.Set(i, j, (rj[i]-r0[i])/h)
		}
	}

	var jtj mat.Dense
	jtj.Mul(jac.T(), jac)
	var cov mat.Dense
	if err := cov.Inverse(&jtj); err != nil {
		return 0, 0
	}

	va := s2 * cov.At(0, 0)
	vb := s2 * cov.At(1, 1)
	if va < 0 || vb < 0 || !finite(va) || !finite(vb) {
		return 0, 0
	}
	return math.Sqrt(va), math.Sqrt(vb)
}

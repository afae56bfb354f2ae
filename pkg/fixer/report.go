package fixer

import (
	"fmt"
	"log"
	"time"

	"github.com/codahale/hdrhistogram"
	"gonum.org/v1/gonum/stat"
)

// A BatchReport summarizes one FixFiles run: how far the overlap
// residuals moved, how long the fits took, and which fits can't be
// trusted.
type BatchReport struct {
	Results      []FileResult
	Failed       int
	NonConverged int

	MeanWResidBefore float64
	MeanWResidAfter  float64

	fitTimes *hdrhistogram.Histogram // in microseconds

	wbefore, wafter []float64
}

func newBatchReport() *BatchReport {
	return &BatchReport{
		// 1us .. 10min covers anything a sane fit does.
		fitTimes: hdrhistogram.New(1, int64(10*time.Minute/time.Microsecond), 3),
	}
}

func (r *BatchReport) add(fr FileResult) {
	r.Results = append(r.Results, fr)
	if fr.Err != nil {
		r.Failed++
		return
	}
	for _, er := range fr.Exts {
		if !er.Fit.Converged {
			r.NonConverged++
		}
		if err := r.fitTimes.RecordValue(int64(er.Elapsed / time.Microsecond)); err != nil {
			log.Printf("Warning: fit time %s outside histogram range, not in timing stats: %v\n", er.Elapsed, err)
		}
		r.wbefore = append(r.wbefore, er.Before.Weighted()...)
		r.wafter = append(r.wafter, er.After.Weighted()...)
	}
}

func (r *BatchReport) finish() {
	if len(r.wbefore) > 0 {
		r.MeanWResidBefore = stat.Mean(r.wbefore, nil)
		r.MeanWResidAfter = stat.Mean(r.wafter, nil)
	}
}

func (r *BatchReport) String() string {
	nExts := 0
	for _, fr := range r.Results {
		nExts += len(fr.Exts)
	}
	str := fmt.Sprintf("BatchReport[%d files (%d failed), %d extensions, %d nonconverged fits\n",
		len(r.Results), r.Failed, nExts, r.NonConverged)
	str += fmt.Sprintf("  mean |weighted resid|: %.3f -> %.3f\n", r.MeanWResidBefore, r.MeanWResidAfter)
	if r.fitTimes.TotalCount() > 0 {
		str += fmt.Sprintf("  fit wall time: p50 %s, p99 %s, max %s\n",
			time.Duration(r.fitTimes.ValueAtQuantile(50))*time.Microsecond,
			time.Duration(r.fitTimes.ValueAtQuantile(99))*time.Microsecond,
			time.Duration(r.fitTimes.Max())*time.Microsecond)
	}
	return str + "]"
}

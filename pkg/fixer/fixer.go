// Package fixer runs the blaze correction over batches of exposure
// files: fit a shift model per table extension, recompute flux and
// error, and hand the results to the persistence and plotting
// collaborators.
package fixer

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"blazefix/pkg/echelle"
)

// Reader loads the per-order arrays for every table extension of one
// input file. Implemented by pkg/x1d; tests substitute fakes.
type Reader interface {
	ReadExposures(filename string) ([]*echelle.Exposure, error)
}

// Writer persists corrected flux/error alongside the original
// columns. It gets a collision-free filename; shapes match the input.
type Writer interface {
	WriteCorrected(filename string, exps []*echelle.Exposure, flux, errv [][][]float64) error
}

// Plotter renders a diagnostic sheet for one corrected extension.
type Plotter interface {
	Diagnostic(filename, title string, exp *echelle.Exposure, newflux [][]float64,
		fit *echelle.FitResult, before, after echelle.ResidualSet) error
}

type Fixer struct {
	Config
	Reader  Reader
	Writer  Writer
	Plotter Plotter // may be nil when PlotDir is empty
}

func New(cfg Config, r Reader, w Writer, p Plotter) *Fixer {
	return &Fixer{Config: cfg, Reader: r, Writer: w, Plotter: p}
}

// An ExtensionResult is everything one fit produced, kept for the
// batch report after the corrected arrays have been written out.
type ExtensionResult struct {
	File    string
	Ext     int
	Fit     *echelle.FitResult
	Before  echelle.ResidualSet
	After   echelle.ResidualSet
	Elapsed time.Duration
}

type FileResult struct {
	File    string
	OutFile string
	Exts    []ExtensionResult
	Err     error
}

// FixFiles corrects each input file. Files are independent - no state
// is shared between fits - so they go through a worker pool; within
// one fit the minimizer's iterations stay sequential.
func (fx *Fixer) FixFiles(files ...string) (*BatchReport, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files")
	}

	var wg sync.WaitGroup
	jobsChan := make(chan string, len(files))
	resultsChan := make(chan FileResult, len(files))

	for i := 0; i < fx.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range jobsChan {
				resultsChan <- fx.fixFile(file)
			}
		}()
	}

	for _, file := range files {
		jobsChan <- file
	}
	close(jobsChan)
	wg.Wait()
	close(resultsChan)

	report := newBatchReport()
	for result := range resultsChan {
		report.add(result)
	}
	report.finish()
	return report, nil
}

func (fx *Fixer) fixFile(file string) FileResult {
	fr := FileResult{File: file}

	exps, err := fx.Reader.ReadExposures(file)
	if err != nil {
		fr.Err = err
		return fr
	}

	base := filepath.Base(file)
	flux := make([][][]float64, len(exps))
	errv := make([][][]float64, len(exps))

	for x, exp := range exps {
		cfg := fx.fitConfig(base)
		start := time.Now()
		fit, err := echelle.FindShift(exp, cfg)
		if err != nil {
			fr.Err = fmt.Errorf("%s extension %d: %v", file, x+1, err)
			return fr
		}

		mask := echelle.BadPix(exp.DQ, cfg.BadFlags)
		newflux, newerr, err := echelle.FluxCorrect(exp, fit.PixShift, mask)
		if err != nil {
			fr.Err = fmt.Errorf("%s extension %d: %v", file, x+1, err)
			return fr
		}
		flux[x], errv[x] = newflux, newerr

		er := ExtensionResult{
			File:    file,
			Ext:     x + 1,
			Fit:     fit,
			Before:  echelle.ResidCalc(exp, nil, nil, cfg.NTrim, mask),
			After:   echelle.ResidCalc(exp, newflux, newerr, cfg.NTrim, mask),
			Elapsed: time.Since(start),
		}
		fr.Exts = append(fr.Exts, er)

		if fx.Verbosity > 0 {
			log.Printf("%s ext %d: %s in %s\n", base, x+1, fit, er.Elapsed.Round(time.Millisecond))
		}

		if fx.Plotter != nil && fx.PlotDir != "" {
			stem := strings.TrimSuffix(base, filepath.Ext(base))
			pngName := filepath.Join(fx.PlotDir, fmt.Sprintf("%s_ext%d.png", stem, x+1))
			title := fmt.Sprintf("%s Extension: %d", stem, x+1)
			if err := fx.Plotter.Diagnostic(pngName, title, exp, newflux, fit, er.Before, er.After); err != nil {
				log.Printf("Warning: diagnostic plot %s: %v\n", pngName, err)
			}
		}
	}

	out, err := uniqueName(outputName(fx.OutDir, file))
	if err != nil {
		fr.Err = err
		return fr
	}
	if err := fx.Writer.WriteCorrected(out, exps, flux, errv); err != nil {
		fr.Err = fmt.Errorf("write %s: %v", out, err)
		return fr
	}
	fr.OutFile = out

	return fr
}

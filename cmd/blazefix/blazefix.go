package main

import (
	"flag"
	"log"
	"os"

	"blazefix/pkg/diag"
	"blazefix/pkg/fixer"
	"blazefix/pkg/x1d"
)

var (
	fVerbosity int
	fConfig    string
	fOutDir    string
	fPlotDir   string
	fGuessA    float64
	fGuessB    float64
	fIterate   bool
	fNTrim     int
	fWorkers   int
)

func init() {
	flag.IntVar(&fVerbosity, "v", 0, "how verbose to get")
	flag.StringVar(&fConfig, "config", "", "YAML config file (flags override it)")
	flag.StringVar(&fOutDir, "o", ".", "directory for corrected x1f files")
	flag.StringVar(&fPlotDir, "plots", "", "directory for diagnostic sheets; empty disables them")
	flag.Float64Var(&fGuessA, "guessa", 1, "initial shift-model intercept a")
	flag.Float64Var(&fGuessB, "guessb", 0.5, "initial shift-model slope b")
	flag.BoolVar(&fIterate, "iterate", true, "refit the shift model; false just evaluates the guess")
	flag.IntVar(&fNTrim, "ntrim", 5, "pixels trimmed from each end of an overlap region")
	flag.IntVar(&fWorkers, "workers", 0, "parallel file fits; 0 = one per CPU")
	flag.Parse()

	log.Printf("blazefix starting\n")
}

func main() {
	cfg := fixer.NewConfig()
	if fConfig != "" {
		var err error
		if cfg, err = fixer.LoadConfig(fConfig); err != nil {
			log.Fatal(err)
		}
	}

	cfg.Guess = [2]float64{fGuessA, fGuessB}
	cfg.Iterate = fIterate
	cfg.NTrim = fNTrim
	cfg.OutDir = fOutDir
	cfg.PlotDir = fPlotDir
	cfg.Verbosity = fVerbosity
	if fWorkers > 0 {
		cfg.Workers = fWorkers
	}
	if err := cfg.FinalizeConfig(); err != nil {
		log.Fatal(err)
	}

	if cfg.PlotDir != "" {
		if err := os.MkdirAll(cfg.PlotDir, 0755); err != nil {
			log.Fatal(err)
		}
	}
	if err := os.MkdirAll(cfg.OutDir, 0755); err != nil {
		log.Fatal(err)
	}

	if cfg.Verbosity > 0 {
		log.Printf("Final configuration:-\n\n%s\n", cfg.AsYaml())
	}

	fx := fixer.New(cfg, x1d.Reader{}, x1d.Writer{}, diag.NewPlotter())
	report, err := fx.FixFiles(flag.Args()...)
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("%s\n", report)
	for _, fr := range report.Results {
		if fr.Err != nil {
			log.Printf("FAILED %s: %v\n", fr.File, fr.Err)
		} else if fVerbosity > 0 {
			log.Printf("wrote %s\n", fr.OutFile)
		}
	}
	if report.Failed > 0 {
		os.Exit(1)
	}
}

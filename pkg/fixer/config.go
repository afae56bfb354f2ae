package fixer

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v2"

	"blazefix/pkg/echelle"
)

/* Example config file ...

guess: [1, 0.5]
iterate: true
ntrim: 5
workers: 4
badflags: [large_blemish, vignetted]
outdir: corrected
plotdir: plots

guesses:
  od1v01020_x1d.fits: [2.5, 0.1]

*/

type Config struct {
	Guess         [2]float64 // starting (a, b) for pixshift = a + b*order
	Iterate       bool
	NTrim         int
	Workers       int // 0 = one per CPU
	MaxIter       int
	FitTimeoutSec int
	BadFlags      []string // dq flag names to exclude, per the handbook
	OutDir        string
	PlotDir       string // empty = no diagnostic sheets
	Verbosity     int

	// Per-file overrides of the initial guess, keyed by basename.
	Guesses map[string][2]float64

	// Derived during FinalizeConfig
	badFlags echelle.DQFlag
}

func NewConfig() Config {
	return Config{
		Guess:         [2]float64{1, 0.5},
		Iterate:       true,
		NTrim:         echelle.DefaultNTrim,
		MaxIter:       100,
		FitTimeoutSec: 30,
		BadFlags:      []string{"large_blemish", "vignetted"},
		Guesses:       map[string][2]float64{},
	}
}

func LoadConfig(filename string) (Config, error) {
	c := NewConfig()
	contents, err := os.ReadFile(filename)
	if err != nil {
		return c, fmt.Errorf("config read %s: %v", filename, err)
	}
	if err := yaml.Unmarshal(contents, &c); err != nil {
		return c, fmt.Errorf("config parse %s: %v", filename, err)
	}
	return c, c.FinalizeConfig()
}

// FinalizeConfig does sanity checks and resolves the dq flag names.
func (c *Config) FinalizeConfig() error {
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.NTrim < 0 {
		return fmt.Errorf("ntrim must be >= 0, got %d", c.NTrim)
	}
	c.badFlags = 0
	for _, name := range c.BadFlags {
		f, ok := echelle.ParseDQFlag(name)
		if !ok {
			return fmt.Errorf("no dq flag named '%s'", name)
		}
		c.badFlags |= f
	}
	return nil
}

func (c Config) AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		log.Fatalf("Can't marshal config yaml: %v\n", err)
	}
	return string(b)
}

// fitConfig builds the per-exposure fit configuration, applying any
// per-file guess override.
func (c Config) fitConfig(basename string) echelle.FitConfig {
	fc := echelle.FitConfig{
		Guess:    c.Guess,
		Iterate:  c.Iterate,
		NTrim:    c.NTrim,
		MaxIter:  c.MaxIter,
		Timeout:  time.Duration(c.FitTimeoutSec) * time.Second,
		BadFlags: c.badFlags,
	}
	if g, ok := c.Guesses[basename]; ok {
		fc.Guess = g
	}
	return fc
}

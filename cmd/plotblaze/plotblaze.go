package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"blazefix/pkg/diag"
	"blazefix/pkg/x1d"
)

var (
	fOutDir string
	fNTrim  int
)

func init() {
	flag.StringVar(&fOutDir, "o", ".", "directory for blaze sheets")
	flag.IntVar(&fNTrim, "ntrim", 7, "pixels trimmed from each end of an overlap region")
	flag.Parse()
}

// Renders the derived sensitivity curves of each extension of the named
// x1d files, one PNG per extension. Useful for eyeballing whether the
// blaze shape looks sane before or after a correction run.
func main() {
	if flag.NArg() == 0 {
		log.Fatal("usage: plotblaze [-o dir] [-ntrim n] file.fits ...")
	}

	p := diag.NewPlotter()
	p.NTrim = fNTrim

	for _, file := range flag.Args() {
		exps, err := x1d.Reader{}.ReadExposures(file)
		if err != nil {
			log.Fatalf("read %s: %v", file, err)
		}

		stem := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		for x, exp := range exps {
			name := filepath.Join(fOutDir, fmt.Sprintf("%s_blaze_ext%d.png", stem, x+1))
			title := fmt.Sprintf("%s Extension: %d", stem, x+1)
			if err := p.Blaze(name, title, exp); err != nil {
				log.Fatalf("plot %s: %v", name, err)
			}
			log.Printf("wrote %s\n", name)
		}
	}
}

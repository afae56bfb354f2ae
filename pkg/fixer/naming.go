package fixer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// maxNameAttempts bounds the collision-avoidance loop; running out is
// an error, not a longer loop.
const maxNameAttempts = 100

// outputName maps an input x1d filename to its corrected x1f
// counterpart in dir.
func outputName(dir, input string) string {
	base := filepath.Base(input)
	if strings.HasSuffix(base, "_x1d.fits") {
		base = strings.TrimSuffix(base, "_x1d.fits") + "_x1f.fits"
	} else {
		ext := filepath.Ext(base)
		base = strings.TrimSuffix(base, ext) + "_x1f" + ext
	}
	return filepath.Join(dir, base)
}

// uniqueName returns path if it is free, otherwise the first numbered
// variant (name1.fits, name2.fits, ...) that is.
func uniqueName(path string) (string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path, nil
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; i <= maxNameAttempts; i++ {
		cand := fmt.Sprintf("%s%d%s", stem, i, ext)
		if _, err := os.Stat(cand); os.IsNotExist(err) {
			return cand, nil
		}
	}
	return "", fmt.Errorf("no free name for %s after %d attempts", path, maxNameAttempts)
}

package x1d

import (
	"math"
	"path/filepath"
	"testing"

	"blazefix/pkg/echelle"
)

// One small exposure with enough structure to catch column mixups.
func testExposure(t *testing.T, norders, npix int) *echelle.Exposure {
	t.Helper()
	cols := echelle.Columns{}
	for o := 0; o < norders; o++ {
		wl := make([]float64, npix)
		net := make([]float64, npix)
		flux := make([]float64, npix)
		errv := make([]float64, npix)
		dq := make([]int32, npix)
		for i := 0; i < npix; i++ {
			wl[i] = 3000 - float64(o)*20 + float64(i)*0.05
			net[i] = 100 + float64(o*npix+i)
			flux[i] = net[i] / 1.5
			errv[i] = math.Sqrt(net[i])
			dq[i] = int32((o + i) % 3 * 32)
		}
		cols.Wavelength = append(cols.Wavelength, wl)
		cols.Net = append(cols.Net, net)
		cols.Flux = append(cols.Flux, flux)
		cols.Err = append(cols.Err, errv)
		cols.DQ = append(cols.DQ, dq)
	}
	exp, err := echelle.NewExposure(cols)
	if err != nil {
		t.Fatalf("building exposure: %v", err)
	}
	return exp
}

func TestWriteReadRoundTrip(t *testing.T) {
	exp1 := testExposure(t, 3, 16)
	exp2 := testExposure(t, 2, 16)
	exps := []*echelle.Exposure{exp1, exp2}

	flux := make([][][]float64, len(exps))
	errv := make([][][]float64, len(exps))
	for x, exp := range exps {
		flux[x] = make([][]float64, exp.NOrders())
		errv[x] = make([][]float64, exp.NOrders())
		for o := 0; o < exp.NOrders(); o++ {
			flux[x][o] = make([]float64, exp.NPix())
			errv[x][o] = make([]float64, exp.NPix())
			for i := range flux[x][o] {
				flux[x][o][i] = exp.Flux[o][i] * 1.01
				errv[x][o][i] = exp.Err[o][i] * 1.01
			}
		}
	}

	name := filepath.Join(t.TempDir(), "roundtrip_x1f.fits")
	if err := (Writer{}).WriteCorrected(name, exps, flux, errv); err != nil {
		t.Fatalf("WriteCorrected: %v", err)
	}

	got, err := Reader{}.ReadExposures(name)
	if err != nil {
		t.Fatalf("ReadExposures: %v", err)
	}
	if len(got) != len(exps) {
		t.Fatalf("got %d exposures, want %d", len(got), len(exps))
	}

	for x, g := range got {
		want := exps[x]
		if g.NOrders() != want.NOrders() || g.NPix() != want.NPix() {
			t.Fatalf("exposure %d: got %dx%d, want %dx%d",
				x, g.NOrders(), g.NPix(), want.NOrders(), want.NPix())
		}
		for o := 0; o < g.NOrders(); o++ {
			for i := 0; i < g.NPix(); i++ {
				if g.Wavelength[o][i] != want.Wavelength[o][i] {
					t.Fatalf("exposure %d order %d pix %d: wavelength %v != %v",
						x, o, i, g.Wavelength[o][i], want.Wavelength[o][i])
				}
				if g.Net[o][i] != want.Net[o][i] {
					t.Fatalf("exposure %d order %d pix %d: net %v != %v",
						x, o, i, g.Net[o][i], want.Net[o][i])
				}
				if g.Flux[o][i] != flux[x][o][i] {
					t.Fatalf("exposure %d order %d pix %d: flux %v != %v",
						x, o, i, g.Flux[o][i], flux[x][o][i])
				}
				if g.Err[o][i] != errv[x][o][i] {
					t.Fatalf("exposure %d order %d pix %d: err %v != %v",
						x, o, i, g.Err[o][i], errv[x][o][i])
				}
				if g.DQ[o][i] != want.DQ[o][i] {
					t.Fatalf("exposure %d order %d pix %d: dq %v != %v",
						x, o, i, g.DQ[o][i], want.DQ[o][i])
				}
			}
		}
	}
}

func TestReadMissingFile(t *testing.T) {
	if _, err := (Reader{}).ReadExposures(filepath.Join(t.TempDir(), "nope.fits")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestWriteShapeMismatch(t *testing.T) {
	exp := testExposure(t, 2, 8)
	name := filepath.Join(t.TempDir(), "bad_x1f.fits")
	err := (Writer{}).WriteCorrected(name, []*echelle.Exposure{exp}, nil, nil)
	if err == nil {
		t.Fatal("expected an error when flux/error sets are missing")
	}
}

func TestVecF64Coercion(t *testing.T) {
	cell := map[string]interface{}{
		"D":      []float64{1, 2},
		"E":      []float32{1.5, 2.5},
		"SCALAR": float64(7),
		"DFIXED": [3]float64{1, 2, 3},
		"JFIXED": [2]int32{5, 6},
	}
	if v, err := vecF64(cell, "D"); err != nil || len(v) != 2 || v[1] != 2 {
		t.Fatalf("float64 vector: %v %v", v, err)
	}
	if v, err := vecF64(cell, "E"); err != nil || v[0] != 1.5 {
		t.Fatalf("float32 vector: %v %v", v, err)
	}
	if v, err := vecF64(cell, "SCALAR"); err != nil || len(v) != 1 || v[0] != 7 {
		t.Fatalf("scalar: %v %v", v, err)
	}
	// Fixed-repeat columns scan as array values, not slices.
	if v, err := vecF64(cell, "DFIXED"); err != nil || len(v) != 3 || v[2] != 3 {
		t.Fatalf("fixed float64 vector: %v %v", v, err)
	}
	if v, err := vecI32(cell, "JFIXED"); err != nil || len(v) != 2 || v[1] != 6 {
		t.Fatalf("fixed int32 vector: %v %v", v, err)
	}
	if _, err := vecF64(cell, "MISSING"); err == nil {
		t.Fatal("expected an error for a missing column")
	}
}

package x1d

import (
	"fmt"
	"os"
	"reflect"
	"time"

	"github.com/astrogo/fitsio"

	"blazefix/pkg/echelle"
)

type Writer struct{}

// WriteCorrected writes an x1f product: one binary table extension
// per exposure, carrying the original wavelength/net/dq columns with
// the corrected flux and error. The primary header records when the
// correction ran.
func (Writer) WriteCorrected(filename string, exps []*echelle.Exposure, flux, errv [][][]float64) error {
	if len(exps) != len(flux) || len(exps) != len(errv) {
		return fmt.Errorf("have %d exposures but %d flux / %d error sets", len(exps), len(flux), len(errv))
	}

	w, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create %s: %v", filename, err)
	}
	defer w.Close()

	f, err := fitsio.Create(w)
	if err != nil {
		return fmt.Errorf("fits create %s: %v", filename, err)
	}
	defer f.Close()

	phdu, err := fitsio.NewPrimaryHDU(nil)
	if err != nil {
		return fmt.Errorf("primary hdu: %v", err)
	}
	err = phdu.Header().Append(fitsio.Card{
		Name:  "COMMENT",
		Value: "Blaze function realigned " + time.Now().Format("02/01/2006"),
	})
	if err != nil {
		return fmt.Errorf("primary header: %v", err)
	}
	if err := f.Write(phdu); err != nil {
		return fmt.Errorf("write primary hdu: %v", err)
	}

	for x, exp := range exps {
		if err := writeTable(f, fmt.Sprintf("SCI%d", x+1), exp, flux[x], errv[x]); err != nil {
			return fmt.Errorf("%s extension %d: %v", filename, x+1, err)
		}
	}
	return nil
}

func writeTable(f *fitsio.File, name string, exp *echelle.Exposure, flux, errv [][]float64) error {
	npix := exp.NPix()
	vec := fmt.Sprintf("%dD", npix)
	tbl, err := fitsio.NewTable(name, []fitsio.Column{
		{Name: "WAVELENGTH", Format: vec},
		{Name: "NET", Format: vec},
		{Name: "FLUX", Format: vec},
		{Name: "ERROR", Format: vec},
		{Name: "DQ", Format: fmt.Sprintf("%dJ", npix)},
	}, fitsio.BINARY_TBL)
	if err != nil {
		return fmt.Errorf("new table: %v", err)
	}
	defer tbl.Close()

	// Fixed-repeat vector cells ("1024D") marshal from array values;
	// fitsio treats a slice as a variable-length heap column. The
	// repeat count is only known at run time, so the arrays are built
	// through reflect.
	f64Arr := reflect.ArrayOf(npix, reflect.TypeOf(float64(0)))
	i32Arr := reflect.ArrayOf(npix, reflect.TypeOf(int32(0)))
	arrF64 := func(v []float64) interface{} {
		arr := reflect.New(f64Arr)
		reflect.Copy(arr.Elem(), reflect.ValueOf(v))
		return arr.Interface()
	}
	arrI32 := func(v []int32) interface{} {
		arr := reflect.New(i32Arr)
		reflect.Copy(arr.Elem(), reflect.ValueOf(v))
		return arr.Interface()
	}

	for o := 0; o < exp.NOrders(); o++ {
		dq := make([]int32, npix)
		if exp.DQ != nil {
			copy(dq, exp.DQ[o])
		}
		err := tbl.Write(
			arrF64(exp.Wavelength[o]),
			arrF64(exp.Net[o]),
			arrF64(flux[o]),
			arrF64(errv[o]),
			arrI32(dq),
		)
		if err != nil {
			return fmt.Errorf("order %d: %v", o, err)
		}
	}

	return f.Write(tbl)
}

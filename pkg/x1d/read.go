// Package x1d reads and writes the extracted-spectrum tables the
// corrector works on: x1d FITS files with one binary table HDU per
// exposure, one row per spectral order, and vector cells for the
// WAVELENGTH / NET / FLUX / ERROR / DQ columns.
package x1d

import (
	"fmt"
	"os"
	"reflect"

	"github.com/astrogo/fitsio"

	"blazefix/pkg/echelle"
)

type Reader struct{}

// ReadExposures loads every binary-table extension of an x1d file as
// an exposure. The flux uncertainty comes from the ERROR column, or
// NET_ERROR when ERROR is absent; DQ is optional.
func (Reader) ReadExposures(filename string) ([]*echelle.Exposure, error) {
	r, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open %s: %v", filename, err)
	}
	defer r.Close()

	f, err := fitsio.Open(r)
	if err != nil {
		return nil, fmt.Errorf("fits open %s: %v", filename, err)
	}
	defer f.Close()

	var exps []*echelle.Exposure
	for i := 0; i < len(f.HDUs()); i++ {
		tbl, ok := f.HDU(i).(*fitsio.Table)
		if !ok {
			continue
		}
		exp, err := readTable(tbl)
		if err != nil {
			return nil, fmt.Errorf("%s HDU %d: %v", filename, i, err)
		}
		exps = append(exps, exp)
	}
	if len(exps) == 0 {
		return nil, fmt.Errorf("%s: no binary table extensions", filename)
	}
	return exps, nil
}

func readTable(tbl *fitsio.Table) (*echelle.Exposure, error) {
	nrows := int(tbl.NumRows())
	cols := echelle.Columns{}

	rows, err := tbl.Read(0, int64(nrows))
	if err != nil {
		return nil, fmt.Errorf("read rows: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		cell := make(map[string]interface{})
		if err := rows.Scan(&cell); err != nil {
			return nil, fmt.Errorf("scan row: %v", err)
		}

		wl, err := vecF64(cell, "WAVELENGTH")
		if err != nil {
			return nil, err
		}
		net, err := vecF64(cell, "NET")
		if err != nil {
			return nil, err
		}
		flux, err := vecF64(cell, "FLUX")
		if err != nil {
			return nil, err
		}
		errv, err := vecF64(cell, "ERROR")
		if err != nil {
			// Older products carry the uncertainty as NET_ERROR.
			errv, err = vecF64(cell, "NET_ERROR")
			if err != nil {
				return nil, fmt.Errorf("no ERROR or NET_ERROR column")
			}
		}

		cols.Wavelength = append(cols.Wavelength, wl)
		cols.Net = append(cols.Net, net)
		cols.Flux = append(cols.Flux, flux)
		cols.Err = append(cols.Err, errv)

		if dq, err := vecI32(cell, "DQ"); err == nil {
			cols.DQ = append(cols.DQ, dq)
		}
	}

	if len(cols.DQ) != 0 && len(cols.DQ) != len(cols.Wavelength) {
		return nil, fmt.Errorf("DQ present for %d of %d orders", len(cols.DQ), len(cols.Wavelength))
	}

	return echelle.NewExposure(cols)
}

// vecF64 pulls a vector cell out of a scanned row, coping with the
// cell types FITS tables actually use: fixed-repeat columns ("1024D")
// scan as array values, variable-length columns as slices, and
// single-pixel rows as scalars.
func vecF64(cell map[string]interface{}, name string) ([]float64, error) {
	v, ok := cell[name]
	if !ok {
		return nil, fmt.Errorf("no %s column", name)
	}
	switch vv := v.(type) {
	case []float64:
		out := make([]float64, len(vv))
		copy(out, vv)
		return out, nil
	case []float32:
		out := make([]float64, len(vv))
		for i, x := range vv {
			out[i] = float64(x)
		}
		return out, nil
	case float64:
		return []float64{vv}, nil
	case float32:
		return []float64{float64(vv)}, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Array {
		switch rv.Type().Elem().Kind() {
		case reflect.Float64, reflect.Float32:
			out := make([]float64, rv.Len())
			for i := range out {
				out[i] = rv.Index(i).Float()
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("%s: unsupported cell type %T", name, v)
}

func vecI32(cell map[string]interface{}, name string) ([]int32, error) {
	v, ok := cell[name]
	if !ok {
		return nil, fmt.Errorf("no %s column", name)
	}
	switch vv := v.(type) {
	case []int32:
		out := make([]int32, len(vv))
		copy(out, vv)
		return out, nil
	case []int16:
		out := make([]int32, len(vv))
		for i, x := range vv {
			out[i] = int32(x)
		}
		return out, nil
	case []int64:
		out := make([]int32, len(vv))
		for i, x := range vv {
			out[i] = int32(x)
		}
		return out, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Array {
		switch rv.Type().Elem().Kind() {
		case reflect.Int16, reflect.Int32, reflect.Int64:
			out := make([]int32, rv.Len())
			for i := range out {
				out[i] = int32(rv.Index(i).Int())
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("%s: unsupported cell type %T", name, v)
}

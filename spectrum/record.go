// Package spectrum extracts spectra from catalogue tables and converts them
// to the representation a caller asked for.
package spectrum

import (
	"fmt"
	"slices"
	"strings"

	"github.com/astrogo/fitsio"

	"github.com/kamusis/pyckles/errdefs"
)

// Column names and unit cards of a spectrum table.
const (
	ColWavelength  = "wavelength"
	ColFlux        = "flux"
	KeyWaveUnit    = "TUNIT1"
	KeyFluxUnit    = "TUNIT2"
	waveUnitColumn = 0
	fluxUnitColumn = 1
)

// Record is one spectrum as stored in its catalogue table.
type Record struct {
	Name       string
	Wavelength []float64
	Flux       []float64
	// WaveUnit and FluxUnit are the unit strings exactly as declared.
	WaveUnit string
	FluxUnit string
	// Table is the table the record was read from.
	Table *fitsio.Table
}

// Style reports StyleFITS.
func (r *Record) Style() Style { return StyleFITS }

// Len returns the number of samples.
func (r *Record) Len() int { return len(r.Wavelength) }

// RecordFromTable reads the wavelength and flux columns of tbl. Cells may
// be scalars or vectors of any numeric type. Units come from the TUNIT1 and
// TUNIT2 cards, or failing those from the first two columns; a spectrum
// without units is rejected.
func RecordFromTable(tbl *fitsio.Table) (*Record, error) {
	for _, col := range []string{ColWavelength, ColFlux} {
		if tbl.Index(col) < 0 {
			return nil, fmt.Errorf("table %q lacks column %q: %w", tbl.Name(), col, errdefs.ErrInvalidValue)
		}
	}
	waveUnit, err := unitOf(tbl, KeyWaveUnit, waveUnitColumn)
	if err != nil {
		return nil, err
	}
	fluxUnit, err := unitOf(tbl, KeyFluxUnit, fluxUnitColumn)
	if err != nil {
		return nil, err
	}

	rec := &Record{Name: tbl.Name(), WaveUnit: waveUnit, FluxUnit: fluxUnit, Table: tbl}
	rows, err := tbl.Read(0, tbl.NumRows())
	if err != nil {
		return nil, fmt.Errorf("cannot read table %q: %w", tbl.Name(), err)
	}
	defer rows.Close()
	for i := 0; rows.Next(); i++ {
		data := map[string]interface{}{}
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("table %q row %d: %w", tbl.Name(), i, err)
		}
		var ok bool
		if rec.Wavelength, ok = appendFloats(rec.Wavelength, data[ColWavelength]); !ok {
			return nil, fmt.Errorf("table %q row %d: wavelength is %T: %w", tbl.Name(), i, data[ColWavelength], errdefs.ErrInvalidValue)
		}
		if rec.Flux, ok = appendFloats(rec.Flux, data[ColFlux]); !ok {
			return nil, fmt.Errorf("table %q row %d: flux is %T: %w", tbl.Name(), i, data[ColFlux], errdefs.ErrInvalidValue)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cannot read table %q: %w", tbl.Name(), err)
	}
	if len(rec.Wavelength) != len(rec.Flux) {
		return nil, fmt.Errorf("table %q: %d wavelengths but %d fluxes: %w", tbl.Name(), len(rec.Wavelength), len(rec.Flux), errdefs.ErrInvalidValue)
	}
	return rec, nil
}

func unitOf(tbl *fitsio.Table, key string, col int) (string, error) {
	if card := tbl.Header().Get(key); card != nil {
		if s, ok := card.Value.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s), nil
		}
	}
	if col < tbl.NumCols() {
		if u := strings.TrimSpace(tbl.Col(col).Unit); u != "" {
			return u, nil
		}
	}
	return "", fmt.Errorf("table %q declares no %s: %w", tbl.Name(), key, errdefs.ErrInvalidValue)
}

func appendFloats(dst []float64, v interface{}) ([]float64, bool) {
	switch x := v.(type) {
	case float64:
		return append(dst, x), true
	case float32:
		return append(dst, float64(x)), true
	case int8, int16, int32, int64, int, uint8, uint16, uint32, uint64:
		return append(dst, toFloat(x)), true
	case []float64:
		return append(dst, x...), true
	case []float32:
		return appendSlice(dst, x), true
	case []int16:
		return appendSlice(dst, x), true
	case []int32:
		return appendSlice(dst, x), true
	case []int64:
		return appendSlice(dst, x), true
	case []uint8:
		return appendSlice(dst, x), true
	}
	return dst, false
}

type number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~int | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

func appendSlice[T number](dst []float64, src []T) []float64 {
	dst = slices.Grow(dst, len(src))
	for _, v := range src {
		dst = append(dst, float64(v))
	}
	return dst
}

func toFloat(v interface{}) float64 {
	switch x := v.(type) {
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case int:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	}
	return 0
}

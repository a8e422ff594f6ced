// Package testutil builds catalogue fixtures and serves them from a local
// HTTP origin.
package testutil

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/astrogo/fitsio"
)

// Units declared by the fixture spectra.
const (
	WavelengthUnit = "Angstrom"
	FluxUnit       = "erg s-1 angstrom-1 cm-2"
)

// Spectrum is one fixture spectrum. Name is written to the summary table
// verbatim, padding included.
type Spectrum struct {
	Name       string
	Wavelength []float64
	Flux       []float64
	WaveUnit   string
	FluxUnit   string
}

// PicklesSpectra returns a miniature Pickles-like library. M25V carries the
// trailing padding the published catalogue has.
func PicklesSpectra() []Spectrum {
	wl := []float64{1150, 1155, 1160, 1165, 1170, 1175}
	mk := func(name string, scale float64) Spectrum {
		flux := make([]float64, len(wl))
		for i := range wl {
			flux[i] = scale * float64(i+1) * 1e-12
		}
		return Spectrum{Name: name, Wavelength: wl, Flux: flux, WaveUnit: WavelengthUnit, FluxUnit: FluxUnit}
	}
	return []Spectrum{mk("A0V", 3), mk("G2V", 2), mk("M25V   ", 0.5)}
}

type summaryRow struct {
	Name string `fits:"name"`
	Ext  int32  `fits:"ext"`
}

type sampleRow struct {
	Wavelength float64 `fits:"wavelength"`
	Flux       float64 `fits:"flux"`
}

// WriteCatalog writes a catalogue file: an empty primary HDU, a summary
// table (name, ext) and one binary table per spectrum.
func WriteCatalog(w io.Writer, specs []Spectrum) error {
	f, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer f.Close()

	phdu, err := fitsio.NewPrimaryHDU(nil)
	if err != nil {
		return err
	}
	if err := f.Write(phdu); err != nil {
		return fmt.Errorf("cannot write primary HDU: %w", err)
	}

	summary, err := fitsio.NewTable("SUMMARY", []fitsio.Column{
		{Name: "name", Format: "16A"},
		{Name: "ext", Format: "J"},
	}, fitsio.BINARY_TBL)
	if err != nil {
		return err
	}
	defer summary.Close()
	for i, s := range specs {
		row := summaryRow{Name: s.Name, Ext: int32(i + 2)}
		if err := summary.Write(&row); err != nil {
			return fmt.Errorf("cannot write summary row %q: %w", s.Name, err)
		}
	}
	if err := f.Write(summary); err != nil {
		return fmt.Errorf("cannot write summary table: %w", err)
	}

	for _, s := range specs {
		if len(s.Wavelength) != len(s.Flux) {
			return fmt.Errorf("spectrum %q: %d wavelengths, %d fluxes", s.Name, len(s.Wavelength), len(s.Flux))
		}
		tbl, err := fitsio.NewTable(strings.TrimSpace(s.Name), []fitsio.Column{
			{Name: "wavelength", Format: "D", Unit: s.WaveUnit},
			{Name: "flux", Format: "D", Unit: s.FluxUnit},
		}, fitsio.BINARY_TBL)
		if err != nil {
			return err
		}
		for i := range s.Wavelength {
			row := sampleRow{Wavelength: s.Wavelength[i], Flux: s.Flux[i]}
			if err := tbl.Write(&row); err != nil {
				tbl.Close()
				return fmt.Errorf("spectrum %q row %d: %w", s.Name, i, err)
			}
		}
		err = f.Write(tbl)
		tbl.Close()
		if err != nil {
			return fmt.Errorf("cannot write spectrum %q: %w", s.Name, err)
		}
	}
	return nil
}

// CatalogBytes returns the encoded catalogue for specs, failing t on error.
func CatalogBytes(t testing.TB, specs []Spectrum) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := WriteCatalog(&buf, specs); err != nil {
		t.Fatalf("cannot build catalogue fixture: %v", err)
	}
	return buf.Bytes()
}

package spectrum

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kamusis/pyckles/catalog"
	"github.com/kamusis/pyckles/errdefs"
	"github.com/kamusis/pyckles/internal/testutil"
	"github.com/kamusis/pyckles/units"
)

func openFixture(t *testing.T, specs []testutil.Spectrum) *catalog.Catalog {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.fits")
	require.NoError(t, os.WriteFile(path, testutil.CatalogBytes(t, specs), 0o644))
	c, err := catalog.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func a0v(t *testing.T) *Record {
	t.Helper()
	c := openFixture(t, testutil.PicklesSpectra())
	tbl, err := c.Table(2)
	require.NoError(t, err)
	rec, err := RecordFromTable(tbl)
	require.NoError(t, err)
	return rec
}

func withoutModel(t *testing.T) {
	t.Helper()
	modelMu.RLock()
	prev := modelBuilder
	modelMu.RUnlock()
	RegisterModelBuilder(nil)
	t.Cleanup(func() { RegisterModelBuilder(prev) })
}

func TestRecordFromTable(t *testing.T) {
	r := require.New(t)
	rec := a0v(t)
	want := testutil.PicklesSpectra()[0]
	r.Equal(want.Wavelength, rec.Wavelength)
	r.Equal(want.Flux, rec.Flux)
	r.Equal(testutil.WavelengthUnit, rec.WaveUnit)
	r.Equal(testutil.FluxUnit, rec.FluxUnit)
	r.Equal(6, rec.Len())
}

func TestRecordFromTable_MissingUnit(t *testing.T) {
	specs := testutil.PicklesSpectra()[:1]
	specs[0].FluxUnit = ""
	c := openFixture(t, specs)
	tbl, err := c.Table(2)
	require.NoError(t, err)
	_, err = RecordFromTable(tbl)
	require.ErrorIs(t, err, errdefs.ErrInvalidValue)
}

func TestConvert_FITSIsPassthrough(t *testing.T) {
	rec := a0v(t)
	out, err := Convert(rec, StyleFITS)
	require.NoError(t, err)
	require.Same(t, rec, out)
	require.Equal(t, StyleFITS, out.Style())
}

func TestConvert_ArrayCopies(t *testing.T) {
	r := require.New(t)
	rec := a0v(t)
	out, err := Convert(rec, StyleArray)
	r.NoError(err)
	arr, ok := out.(Arrays)
	r.True(ok)
	r.Len(arr.Wavelength, len(arr.Flux))
	r.Equal(rec.Flux, arr.Flux)

	arr.Flux[0] = -1
	r.NotEqual(-1.0, rec.Flux[0])
}

func TestConvert_Quantity(t *testing.T) {
	r := require.New(t)
	out, err := Convert(a0v(t), StyleQuantity)
	r.NoError(err)
	q, ok := out.(Quantities)
	r.True(ok)
	r.True(q.Flux.Unit.Equal(units.MustParse("erg s^-1 angstrom^-1 cm^-2")))
	r.True(q.Wavelength.Unit.Equal(units.MustParse("AA")))
	r.Equal(testutil.FluxUnit, q.Flux.Unit.Raw())
}

func TestConvert_BadUnit(t *testing.T) {
	rec := &Record{Name: "X", Wavelength: []float64{1}, Flux: []float64{2}, WaveUnit: "Angstrom", FluxUnit: "furlongs"}
	_, err := Convert(rec, StyleQuantity)
	require.ErrorIs(t, err, errdefs.ErrInvalidValue)
}

func TestConvert_SynphotNeedsBuilder(t *testing.T) {
	withoutModel(t)
	require.False(t, ModelAvailable())
	_, err := Convert(a0v(t), StyleSynphot)
	require.ErrorIs(t, err, errdefs.ErrDependencyMissing)
}

type fakeModel struct{ n int }

func (fakeModel) Style() Style { return StyleSynphot }

func TestConvert_SynphotWithBuilder(t *testing.T) {
	withoutModel(t)
	RegisterModelBuilder(func(w, f Quantity) (Spectrum, error) {
		return fakeModel{n: len(w.Values)}, nil
	})
	require.True(t, ModelAvailable())

	out, err := Convert(a0v(t), StyleSynphot)
	require.NoError(t, err)
	require.Equal(t, fakeModel{n: 6}, out)
}

func TestParseStyle(t *testing.T) {
	for in, want := range map[string]Style{
		"fits":     StyleFITS,
		"ARRAY":    StyleArray,
		"Quantity": StyleQuantity,
		" synphot": StyleSynphot,
		"":         StyleFITS,
		"table":    StyleFITS,
	} {
		require.Equal(t, want, ParseStyle(in), in)
	}
	_, ok := LookupStyle("table")
	require.False(t, ok)
}

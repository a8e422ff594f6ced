package units_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kamusis/pyckles/errdefs"
	"github.com/kamusis/pyckles/units"
)

func TestParse_EquivalentSpellings(t *testing.T) {
	want := units.MustParse("erg s^-1 angstrom^-1 cm^-2")

	for _, in := range []string{
		"erg s-1 angstrom-1 cm-2",
		"erg / (Angstrom cm2 s)",
		"erg/s/cm2/Angstrom",
		"erg.s**-1.AA-1.cm^(-2)",
		"erg * cm^-2 * s^-1 * Å^-1",
		"cm-2 erg Angstrom-1 s-1",
	} {
		t.Run(in, func(t *testing.T) {
			r := require.New(t)
			u, err := units.Parse(in)
			r.NoError(err)
			r.True(want.Equal(u), "%q parsed as %q", in, u.String())
			r.Equal(in, u.Raw())
		})
	}
}

func TestParse_Canonical(t *testing.T) {
	r := require.New(t)
	u, err := units.Parse("erg / (Angstrom cm2 s)")
	r.NoError(err)
	r.Equal("Angstrom-1 cm-2 erg s-1", u.String())
	r.Equal([]units.Factor{
		{Symbol: "Angstrom", Power: -1},
		{Symbol: "cm", Power: -2},
		{Symbol: "erg", Power: 1},
		{Symbol: "s", Power: -1},
	}, u.Factors())
}

func TestParse_ScaleFactor(t *testing.T) {
	r := require.New(t)
	a, err := units.Parse("10**-17 erg/s/cm2/Angstrom")
	r.NoError(err)
	b, err := units.Parse("1e-17 erg s-1 cm-2 AA-1")
	r.NoError(err)
	r.True(a.Equal(b))
	r.InDelta(1e-17, a.Scale(), 1e-30)
	r.False(a.Equal(units.MustParse("erg s-1 cm-2 AA-1")))
}

func TestParse_Prefixes(t *testing.T) {
	for in, sym := range map[string]string{
		"Angstrom": "Angstrom",
		"micron":   "um",
		"um":       "um",
		"µm":       "um",
		"nm":       "nm",
		"mJy":      "mJy",
		"kpc":      "kpc",
		"mag":      "mag",
		"GHz":      "GHz",
		"keV":      "keV",
		"photon":   "ph",
	} {
		u, err := units.Parse(in)
		require.NoError(t, err, in)
		require.Equal(t, []units.Factor{{Symbol: sym, Power: 1}}, u.Factors(), in)
	}
}

func TestParse_DistinctUnitsDiffer(t *testing.T) {
	require.False(t, units.MustParse("erg/s/cm2").Equal(units.MustParse("erg/s/m2")))
	require.False(t, units.MustParse("Angstrom").Equal(units.MustParse("nm")))
}

func TestParse_Errors(t *testing.T) {
	for _, in := range []string{
		"",
		"   ",
		"bogus",
		"erg / (s",
		"erg s^x",
		"erg s^0.5",
		"cm1.5",
		"* erg",
		"erg $",
		"/",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := units.Parse(in)
			require.Error(t, err)
			require.True(t, errors.Is(err, errdefs.ErrInvalidValue))
			var perr *units.ParseError
			require.ErrorAs(t, err, &perr)
		})
	}
}

func TestMustParse_Panics(t *testing.T) {
	require.Panics(t, func() { units.MustParse("not-a-unit") })
}

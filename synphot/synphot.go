// Package synphot provides an empirical source spectrum model.
//
// Importing the package registers it as the builder of "synphot" style
// spectra:
//
//	import _ "github.com/kamusis/pyckles/synphot"
package synphot

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/interp"

	"github.com/kamusis/pyckles/errdefs"
	"github.com/kamusis/pyckles/spectrum"
	"github.com/kamusis/pyckles/units"
)

func init() {
	spectrum.RegisterModelBuilder(func(w, f spectrum.Quantity) (spectrum.Spectrum, error) {
		return NewSourceSpectrum(w, f)
	})
}

// Empirical1D interpolates linearly between sampled points and is zero
// outside the sampled range.
type Empirical1D struct {
	points []float64
	pl     interp.PiecewiseLinear
}

// NewEmpirical1D returns the model through (points[i], lookup[i]). At least
// two points are needed and they must be strictly increasing.
func NewEmpirical1D(points, lookup []float64) (*Empirical1D, error) {
	if len(points) != len(lookup) {
		return nil, fmt.Errorf("%d points but %d values: %w", len(points), len(lookup), errdefs.ErrInvalidValue)
	}
	if len(points) < 2 {
		return nil, fmt.Errorf("need at least 2 sample points, got %d: %w", len(points), errdefs.ErrInvalidValue)
	}
	for i := 1; i < len(points); i++ {
		if points[i] <= points[i-1] {
			return nil, fmt.Errorf("points not strictly increasing at %d (%g after %g): %w", i, points[i], points[i-1], errdefs.ErrInvalidValue)
		}
	}
	m := &Empirical1D{points: slices.Clone(points)}
	if err := m.pl.Fit(m.points, slices.Clone(lookup)); err != nil {
		return nil, fmt.Errorf("cannot fit model: %w: %w", err, errdefs.ErrInvalidValue)
	}
	return m, nil
}

// At evaluates the model at x.
func (m *Empirical1D) At(x float64) float64 {
	if x < m.points[0] || x > m.points[len(m.points)-1] {
		return 0
	}
	return m.pl.Predict(x)
}

// Points returns a copy of the sample points.
func (m *Empirical1D) Points() []float64 { return slices.Clone(m.points) }

// SourceSpectrum is an empirical flux density model over wavelength.
type SourceSpectrum struct {
	model    *Empirical1D
	waveUnit units.Unit
	fluxUnit units.Unit
}

// NewSourceSpectrum builds the model from sampled wavelengths and fluxes.
func NewSourceSpectrum(wavelength, flux spectrum.Quantity) (*SourceSpectrum, error) {
	m, err := NewEmpirical1D(wavelength.Values, flux.Values)
	if err != nil {
		return nil, err
	}
	return &SourceSpectrum{model: m, waveUnit: wavelength.Unit, fluxUnit: flux.Unit}, nil
}

// Style reports spectrum.StyleSynphot.
func (s *SourceSpectrum) Style() spectrum.Style { return spectrum.StyleSynphot }

// Waveset returns the sampled wavelengths.
func (s *SourceSpectrum) Waveset() spectrum.Quantity {
	return spectrum.Quantity{Values: s.model.Points(), Unit: s.waveUnit}
}

// Eval evaluates the flux at each wavelength. The wavelengths must be in
// the model's wavelength unit.
func (s *SourceSpectrum) Eval(wavelength spectrum.Quantity) (spectrum.Quantity, error) {
	if !wavelength.Unit.Equal(s.waveUnit) {
		return spectrum.Quantity{}, fmt.Errorf("wavelengths in %q, model is in %q: %w", wavelength.Unit.Raw(), s.waveUnit.Raw(), errdefs.ErrInvalidValue)
	}
	out := make([]float64, len(wavelength.Values))
	for i, x := range wavelength.Values {
		out[i] = s.model.At(x)
	}
	return spectrum.Quantity{Values: out, Unit: s.fluxUnit}, nil
}

package spectrum

import (
	"fmt"
	"slices"
	"sync"

	"github.com/kamusis/pyckles/errdefs"
	"github.com/kamusis/pyckles/units"
)

// Spectrum is any representation Convert returns: *Record, Arrays,
// Quantities or a model produced by the registered ModelBuilder.
type Spectrum interface {
	Style() Style
}

// Arrays is a spectrum as bare values.
type Arrays struct {
	Wavelength []float64
	Flux       []float64
}

func (Arrays) Style() Style { return StyleArray }

// Quantity is a slice of values in one unit.
type Quantity struct {
	Values []float64
	Unit   units.Unit
}

// Quantities is a spectrum with units attached to both axes.
type Quantities struct {
	Wavelength Quantity
	Flux       Quantity
}

func (Quantities) Style() Style { return StyleQuantity }

// ModelBuilder constructs a spectral model from unit-tagged samples.
type ModelBuilder func(wavelength, flux Quantity) (Spectrum, error)

var (
	modelMu      sync.RWMutex
	modelBuilder ModelBuilder
)

// RegisterModelBuilder installs b as the builder of StyleSynphot spectra,
// replacing any earlier one. A nil b unregisters.
func RegisterModelBuilder(b ModelBuilder) {
	modelMu.Lock()
	modelBuilder = b
	modelMu.Unlock()
}

// ModelAvailable reports whether a ModelBuilder is registered.
func ModelAvailable() bool {
	modelMu.RLock()
	defer modelMu.RUnlock()
	return modelBuilder != nil
}

// Convert returns rec in the given style. Slices in the result are copies
// and never alias rec.
func Convert(rec *Record, style Style) (Spectrum, error) {
	switch style {
	case StyleArray:
		return Arrays{Wavelength: slices.Clone(rec.Wavelength), Flux: slices.Clone(rec.Flux)}, nil
	case StyleQuantity:
		return quantities(rec)
	case StyleSynphot:
		modelMu.RLock()
		build := modelBuilder
		modelMu.RUnlock()
		if build == nil {
			return nil, fmt.Errorf("style %q needs a spectral model builder (import github.com/kamusis/pyckles/synphot): %w", style, errdefs.ErrDependencyMissing)
		}
		q, err := quantities(rec)
		if err != nil {
			return nil, err
		}
		m, err := build(q.Wavelength, q.Flux)
		if err != nil {
			return nil, fmt.Errorf("cannot build model for %q: %w", rec.Name, err)
		}
		return m, nil
	}
	return rec, nil
}

func quantities(rec *Record) (Quantities, error) {
	wu, err := units.Parse(rec.WaveUnit)
	if err != nil {
		return Quantities{}, fmt.Errorf("wavelength unit of %q: %w", rec.Name, err)
	}
	fu, err := units.Parse(rec.FluxUnit)
	if err != nil {
		return Quantities{}, fmt.Errorf("flux unit of %q: %w", rec.Name, err)
	}
	return Quantities{
		Wavelength: Quantity{Values: slices.Clone(rec.Wavelength), Unit: wu},
		Flux:       Quantity{Values: slices.Clone(rec.Flux), Unit: fu},
	}, nil
}

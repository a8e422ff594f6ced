package pyckles

import (
	"fmt"

	"github.com/kamusis/pyckles/errdefs"
)

// SpectrumNotFoundError reports a spectrum name absent from the loaded
// catalogue.
type SpectrumNotFoundError struct {
	Name    string
	Catalog string
}

func (e *SpectrumNotFoundError) Error() string {
	return fmt.Sprintf("no spectrum found for name %q in catalogue %q", e.Name, e.Catalog)
}

func (e *SpectrumNotFoundError) Unwrap() []error {
	return []error{errdefs.ErrNotFound, errdefs.ErrInvalidValue}
}

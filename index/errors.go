package index

import (
	"fmt"

	"github.com/kamusis/pyckles/errdefs"
)

// LookupError reports a name that resolved to zero or several entries.
// It unwraps to errdefs.ErrNotFound or errdefs.ErrAmbiguous.
type LookupError struct {
	Name    string
	Matches int
}

func (e *LookupError) Error() string {
	if e.Matches == 0 {
		return fmt.Sprintf("no catalogue named %q", e.Name)
	}
	return fmt.Sprintf("catalogue name %q matches %d entries", e.Name, e.Matches)
}

func (e *LookupError) Unwrap() error {
	if e.Matches == 0 {
		return errdefs.ErrNotFound
	}
	return errdefs.ErrAmbiguous
}

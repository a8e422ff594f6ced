package retrieve

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/kamusis/pyckles/errdefs"
)

// RetrievalError is returned when a file could not be downloaded, either
// because the origin answered with a non-transient failure or because the
// retry budget was spent. It unwraps to errdefs.ErrRetrieval and the last
// underlying failure.
type RetrievalError struct {
	Filename string
	URL      string
	Attempts int
	Err      error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("cannot retrieve %s from %s after %d attempt(s): %v", e.Filename, e.URL, e.Attempts, e.Err)
}

func (e *RetrievalError) Unwrap() []error {
	if e.Err == nil {
		return []error{errdefs.ErrRetrieval}
	}
	return []error{errdefs.ErrRetrieval, e.Err}
}

// IntegrityError reports content whose hash does not match the expected one.
type IntegrityError struct {
	Filename string
	Expected string
	Got      string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("content hash mismatch for %s\nexpected: %s\nactual:   %s", e.Filename, e.Expected, e.Got)
}

// Unwrap returns errdefs.ErrIntegrity so callers can use errors.Is.
func (e *IntegrityError) Unwrap() error { return errdefs.ErrIntegrity }

// StatusError is a non-2xx answer from the origin.
type StatusError struct {
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return "origin answered " + e.Status
	}
	return fmt.Sprintf("origin answered %s\n%s", e.Status, e.Body)
}

// Transient reports whether repeating the request may succeed.
func (e *StatusError) Transient() bool {
	switch e.Code {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return true
	}
	return e.Code >= 500
}

// transientError marks transport and streaming failures that are worth
// another attempt.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func isTransient(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Transient()
	}
	var te *transientError
	return errors.As(err, &te)
}

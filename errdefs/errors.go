// Package errdefs defines the error kinds shared by every layer of pyckles.
//
// Concrete errors returned by the library carry details in their own types
// and unwrap to one or more of these kinds, so callers classify failures
// with errors.Is.
package errdefs

import "errors"

var (
	// ErrNotFound indicates a name absent from the catalogue index or from a
	// catalogue's summary table.
	ErrNotFound = errors.New("not found")

	// ErrAmbiguous indicates a name that matches more than one entry. Indexes
	// are expected to be unique, so this signals an internal consistency fault.
	ErrAmbiguous = errors.New("ambiguous name")

	// ErrRetrieval indicates a transport failure after the retry budget was spent.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrIntegrity indicates downloaded content that failed hash verification.
	ErrIntegrity = errors.New("integrity check failed")

	// ErrDependencyMissing indicates an optional capability that is not registered.
	ErrDependencyMissing = errors.New("dependency missing")

	// ErrNotLoaded indicates an operation on a library with no catalogue attached.
	ErrNotLoaded = errors.New("no catalogue loaded")

	// ErrAlreadyLoaded indicates an attempt to load a catalogue into a library
	// that already holds one.
	ErrAlreadyLoaded = errors.New("catalogue already loaded")

	// ErrInvalidValue indicates a caller-supplied value that cannot be used:
	// unknown names, malformed hashes, unparseable unit symbols.
	ErrInvalidValue = errors.New("invalid value")
)

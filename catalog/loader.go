package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	slogcontext "github.com/veqryn/slog-context"

	"github.com/kamusis/pyckles/errdefs"
	"github.com/kamusis/pyckles/index"
	"github.com/kamusis/pyckles/retrieve"
)

type (
	// IndexSource yields the catalogue index. *index.Memo implements it.
	IndexSource interface {
		Get(ctx context.Context) (*index.Index, error)
		Refresh(ctx context.Context) (*index.Index, error)
	}

	// Fetcher guarantees a local copy of a remote file. *retrieve.Retriever
	// implements it.
	Fetcher interface {
		Fetch(ctx context.Context, req retrieve.Request) (string, error)
	}

	// LoadOptions tune a single Load.
	LoadOptions struct {
		// UseCache allows cached copies of the index and the catalogue file
		// to be used. When false both are downloaded again.
		UseCache bool
	}

	// Loader resolves catalogue names and opens the matching files.
	Loader struct {
		index IndexSource
		fetch Fetcher
	}
)

// NewLoader returns a Loader resolving names against idx and retrieving
// files through f.
func NewLoader(idx IndexSource, f Fetcher) *Loader {
	return &Loader{index: idx, fetch: f}
}

// NameError reports a catalogue name that does not resolve to exactly one
// index entry. Its message lists the available catalogues.
type NameError struct {
	Name      string
	Available *index.Index
	Err       error
}

func (e *NameError) Error() string {
	var b strings.Builder
	if errors.Is(e.Err, errdefs.ErrAmbiguous) {
		fmt.Fprintf(&b, "catalogue name %q is ambiguous", e.Name)
	} else {
		fmt.Fprintf(&b, "%q is not a valid catalogue name", e.Name)
	}
	if e.Available != nil {
		b.WriteString("; available catalogues:\n")
		b.WriteString(e.Available.Table())
	}
	return b.String()
}

func (e *NameError) Unwrap() []error {
	return []error{errdefs.ErrInvalidValue, e.Err}
}

// Catalogs returns the catalogue index, loading it on first use.
func (l *Loader) Catalogs(ctx context.Context) (*index.Index, error) {
	return l.index.Get(ctx)
}

// RefreshCatalogs downloads the catalogue index again.
func (l *Loader) RefreshCatalogs(ctx context.Context) (*index.Index, error) {
	return l.index.Refresh(ctx)
}

// Resolve returns the index entry for name.
func (l *Loader) Resolve(ctx context.Context, name string, opts LoadOptions) (index.Entry, error) {
	var (
		ix  *index.Index
		err error
	)
	if opts.UseCache {
		ix, err = l.index.Get(ctx)
	} else {
		ix, err = l.index.Refresh(ctx)
	}
	if err != nil {
		return index.Entry{}, err
	}
	e, err := ix.Resolve(name)
	if err != nil {
		return index.Entry{}, &NameError{Name: name, Available: ix, Err: err}
	}
	return e, nil
}

// Fetch resolves name and returns the local path of its catalogue file.
func (l *Loader) Fetch(ctx context.Context, name string, opts LoadOptions) (string, error) {
	e, err := l.Resolve(ctx, name, opts)
	if err != nil {
		return "", err
	}
	ctx = slogcontext.With(ctx, "catalogue", e.Name)
	slogcontext.Debug(ctx, "resolved catalogue", "filename", e.Filename, "hash", e.Hash)
	return l.fetch.Fetch(ctx, retrieve.Request{Filename: e.Filename, Hash: e.Hash, UseCache: opts.UseCache})
}

// Load resolves name, retrieves its file and opens it. Every call opens the
// file anew; callers own the returned Catalog.
func (l *Loader) Load(ctx context.Context, name string, opts LoadOptions) (*Catalog, error) {
	path, err := l.Fetch(ctx, name, opts)
	if err != nil {
		return nil, err
	}
	return Open(path)
}

package pyckles

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/kamusis/pyckles/catalog"
	"github.com/kamusis/pyckles/index"
	"github.com/kamusis/pyckles/internal/config"
	"github.com/kamusis/pyckles/retrieve"
)

var (
	defaultMu     sync.Mutex
	defaultLoader *catalog.Loader
)

// NewLoader returns a loader whose index is the listing file fetched
// through ret and memoized for the loader's lifetime. An absolute listing
// path naming an existing local file is read from disk instead.
func NewLoader(ret *retrieve.Retriever, listing string) *catalog.Loader {
	if localListing(listing) {
		return catalog.NewLoader(index.NewMemo(index.FromFile(listing)), ret)
	}
	fetch := func(ctx context.Context, name string, useCache bool) (string, error) {
		return ret.Fetch(ctx, retrieve.Request{Filename: name, UseCache: useCache})
	}
	return catalog.NewLoader(index.NewMemo(index.RemoteSource(fetch, listing)), ret)
}

func localListing(p string) bool {
	if !filepath.IsAbs(p) {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

// DefaultLoader returns the process-wide loader, building it on first use
// from ~/.pyckles/pyckles.yaml and the PYCKLES_* environment variables.
func DefaultLoader() (*catalog.Loader, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLoader != nil {
		return defaultLoader, nil
	}
	cfg, err := config.Resolve()
	if err != nil {
		return nil, err
	}
	ret, err := retrieve.New(
		retrieve.WithBaseURL(cfg.ServerURL),
		retrieve.WithCacheDir(cfg.CacheDir),
		retrieve.WithAttempts(cfg.Attempts),
		retrieve.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	)
	if err != nil {
		return nil, err
	}
	defaultLoader = NewLoader(ret, cfg.IndexFile)
	return defaultLoader, nil
}

// SetDefaultLoader replaces the process-wide loader. A nil l makes the next
// DefaultLoader call build a fresh one from the configuration.
func SetDefaultLoader(l *catalog.Loader) {
	defaultMu.Lock()
	defaultLoader = l
	defaultMu.Unlock()
}

// Catalogs returns the catalogue index of the default loader.
func Catalogs(ctx context.Context) (*index.Index, error) {
	l, err := DefaultLoader()
	if err != nil {
		return nil, err
	}
	return l.Catalogs(ctx)
}

// RefreshCatalogs downloads the catalogue index of the default loader again.
func RefreshCatalogs(ctx context.Context) (*index.Index, error) {
	l, err := DefaultLoader()
	if err != nil {
		return nil, err
	}
	return l.RefreshCatalogs(ctx)
}

// LoadCatalog opens the named catalogue through the default loader.
func LoadCatalog(ctx context.Context, name string) (*catalog.Catalog, error) {
	l, err := DefaultLoader()
	if err != nil {
		return nil, err
	}
	return l.Load(ctx, name, catalog.LoadOptions{UseCache: true})
}

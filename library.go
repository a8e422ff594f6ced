package pyckles

import (
	"context"
	"fmt"
	"slices"
	"sync"

	slogcontext "github.com/veqryn/slog-context"

	"github.com/kamusis/pyckles/catalog"
	"github.com/kamusis/pyckles/errdefs"
	"github.com/kamusis/pyckles/spectrum"
)

// Recognised WithConfig keys.
const (
	ConfigReturnStyle = "return_style"
	ConfigUseCache    = "use_cache"
)

// SpectralLibrary is a catalogue of spectra. It is either unloaded, holding
// no catalogue, or loaded with exactly one.
type SpectralLibrary struct {
	mu       sync.RWMutex
	style    spectrum.Style
	useCache bool
	loader   *catalog.Loader

	name    string
	cat     *catalog.Catalog
	summary []catalog.SummaryRow
	byName  map[string]int

	// read serializes table decoding; catalogue HDUs are not safe for
	// concurrent reads.
	read sync.Mutex
}

// Option configures a SpectralLibrary.
type Option func(*SpectralLibrary) error

// WithReturnStyle sets the representation Get returns.
func WithReturnStyle(s spectrum.Style) Option {
	return func(l *SpectralLibrary) error {
		l.style = spectrum.ParseStyle(string(s))
		return nil
	}
}

// WithUseCache controls whether cached copies of the index and catalogue
// file may be used.
func WithUseCache(b bool) Option {
	return func(l *SpectralLibrary) error {
		l.useCache = b
		return nil
	}
}

// WithLoader sets the loader used to resolve and open catalogues. Without
// it the process-wide DefaultLoader is used.
func WithLoader(ld *catalog.Loader) Option {
	return func(l *SpectralLibrary) error {
		l.loader = ld
		return nil
	}
}

// WithConfig applies a configuration mapping with the keys return_style
// (string or spectrum.Style) and use_cache (bool). Unknown keys and values
// of the wrong type are rejected.
func WithConfig(cfg map[string]any) Option {
	return func(l *SpectralLibrary) error {
		for k, v := range cfg {
			switch k {
			case ConfigReturnStyle:
				switch s := v.(type) {
				case string:
					l.style = spectrum.ParseStyle(s)
				case spectrum.Style:
					l.style = spectrum.ParseStyle(string(s))
				default:
					return fmt.Errorf("config %s must be a string, got %T: %w", k, v, errdefs.ErrInvalidValue)
				}
			case ConfigUseCache:
				b, ok := v.(bool)
				if !ok {
					return fmt.Errorf("config %s must be a bool, got %T: %w", k, v, errdefs.ErrInvalidValue)
				}
				l.useCache = b
			default:
				return fmt.Errorf("unknown config key %q: %w", k, errdefs.ErrInvalidValue)
			}
		}
		return nil
	}
}

// New returns a library. With an empty name the library starts unloaded;
// otherwise the catalogue is loaded immediately and any failure is
// returned without a library.
func New(ctx context.Context, name string, opts ...Option) (*SpectralLibrary, error) {
	l := &SpectralLibrary{style: spectrum.StyleFITS, useCache: true}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	if name == "" {
		return l, nil
	}
	if err := l.Load(ctx, name); err != nil {
		return nil, err
	}
	return l, nil
}

// Load attaches the named catalogue to an unloaded library. A loaded
// library rejects it with errdefs.ErrAlreadyLoaded; Close it first to
// switch catalogues. On failure the library stays unloaded.
func (l *SpectralLibrary) Load(ctx context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cat != nil {
		return fmt.Errorf("cannot load %q: library holds %q: %w", name, l.name, errdefs.ErrAlreadyLoaded)
	}

	ld := l.loader
	if ld == nil {
		var err error
		if ld, err = DefaultLoader(); err != nil {
			return err
		}
	}
	ctx = slogcontext.With(ctx, "catalogue", name)
	cat, err := ld.Load(ctx, name, catalog.LoadOptions{UseCache: l.useCache})
	if err != nil {
		return err
	}
	summary, err := cat.Summary()
	if err != nil {
		cat.Close()
		return fmt.Errorf("invalid catalogue %q: %w", name, err)
	}
	byName := make(map[string]int, len(summary))
	for _, row := range summary {
		byName[row.Name] = row.Ext
	}

	l.name, l.cat, l.summary, l.byName = name, cat, summary, byName
	slogcontext.Debug(ctx, "catalogue loaded", "path", cat.Filename(), "spectra", len(summary))
	return nil
}

// Loaded reports whether a catalogue is attached.
func (l *SpectralLibrary) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cat != nil
}

// CatalogName returns the name the catalogue was loaded by, or "".
func (l *SpectralLibrary) CatalogName() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.name
}

// Catalog returns the attached catalogue, or nil.
func (l *SpectralLibrary) Catalog() *catalog.Catalog {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cat
}

// AvailableSpectra returns the spectrum names in summary table order.
func (l *SpectralLibrary) AvailableSpectra() ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.cat == nil {
		return nil, errdefs.ErrNotLoaded
	}
	names := make([]string, len(l.summary))
	for i, row := range l.summary {
		names[i] = row.Name
	}
	return names, nil
}

// Get returns the named spectrum in the current return style. The name is
// matched exactly against the trimmed summary names.
//
// The catalogue stays attached for the whole read: Close waits for Get.
func (l *SpectralLibrary) Get(name string) (spectrum.Spectrum, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	cat, catName, style := l.cat, l.name, l.style
	ext, found := l.byName[name]

	if cat == nil {
		return nil, fmt.Errorf("cannot get %q: %w", name, errdefs.ErrNotLoaded)
	}
	if !found {
		return nil, &SpectrumNotFoundError{Name: name, Catalog: catName}
	}

	l.read.Lock()
	defer l.read.Unlock()
	tbl, err := cat.Table(ext)
	if err != nil {
		return nil, fmt.Errorf("spectrum %q: %w", name, err)
	}
	rec, err := spectrum.RecordFromTable(tbl)
	if err != nil {
		return nil, fmt.Errorf("spectrum %q: %w", name, err)
	}
	rec.Name = name
	return spectrum.Convert(rec, style)
}

// SetReturnStyle changes the representation of later Get calls.
// Unrecognised styles select spectrum.StyleFITS.
func (l *SpectralLibrary) SetReturnStyle(s spectrum.Style) {
	l.mu.Lock()
	l.style = spectrum.ParseStyle(string(s))
	l.mu.Unlock()
}

// ReturnStyle returns the current representation.
func (l *SpectralLibrary) ReturnStyle() spectrum.Style {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.style
}

// UseCache reports whether cached files may be used.
func (l *SpectralLibrary) UseCache() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.useCache
}

// Meta returns a copy of the configuration mapping.
func (l *SpectralLibrary) Meta() map[string]any {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return map[string]any{
		ConfigReturnStyle: string(l.style),
		ConfigUseCache:    l.useCache,
	}
}

// Summary returns the summary table rows.
func (l *SpectralLibrary) Summary() ([]catalog.SummaryRow, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.cat == nil {
		return nil, errdefs.ErrNotLoaded
	}
	return slices.Clone(l.summary), nil
}

// Close detaches the catalogue, returning the library to the unloaded
// state. Closing an unloaded library is a no-op.
func (l *SpectralLibrary) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cat == nil {
		return nil
	}
	err := l.cat.Close()
	l.name, l.cat, l.summary, l.byName = "", nil, nil, nil
	return err
}

package retrieve

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kamusis/pyckles/errdefs"
	"github.com/kamusis/pyckles/internal/config"
)

const (
	defaultAttempts    = 3
	defaultBackoff     = 500 * time.Millisecond
	defaultLockTimeout = 2 * time.Minute
	defaultUserAgent   = "pyckles"
)

type (
	// Retriever resolves file names to verified local paths.
	Retriever struct {
		baseURL     string
		cacheDir    string
		client      *http.Client
		attempts    int
		backoff     time.Duration
		userAgent   string
		lockTimeout time.Duration

		group   singleflight.Group
		mu      sync.Mutex
		flights map[string]*flight
	}

	// Option configures a Retriever during construction.
	Option func(*Retriever)

	// Request names a file to retrieve.
	Request struct {
		Filename string
		// Hash is the expected content hash in any form ParseChecksum
		// accepts. Empty disables verification.
		Hash string
		// UseCache allows an existing cached copy to satisfy the request.
		UseCache bool
	}
)

// WithBaseURL sets the origin the files are downloaded from.
func WithBaseURL(u string) Option {
	return func(r *Retriever) { r.baseURL = u }
}

// WithCacheDir sets the directory downloaded files are stored in.
func WithCacheDir(dir string) Option {
	return func(r *Retriever) { r.cacheDir = dir }
}

// WithHTTPClient sets the client used for downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Retriever) { r.client = c }
}

// WithAttempts sets how many times a transient failure is attempted in total.
func WithAttempts(n int) Option {
	return func(r *Retriever) { r.attempts = n }
}

// WithBackoff sets the wait before the second attempt. Each further attempt
// waits twice as long as the one before.
func WithBackoff(d time.Duration) Option {
	return func(r *Retriever) { r.backoff = d }
}

// WithUserAgent sets the User-Agent header sent to the origin.
func WithUserAgent(ua string) Option {
	return func(r *Retriever) { r.userAgent = ua }
}

// WithLockTimeout bounds how long Fetch waits for another process holding
// the lock of the same file.
func WithLockTimeout(d time.Duration) Option {
	return func(r *Retriever) { r.lockTimeout = d }
}

// New returns a Retriever. Without options it downloads from
// config.DefaultServerURL into ~/.pyckles/cache.
func New(opts ...Option) (*Retriever, error) {
	r := &Retriever{
		baseURL:     config.DefaultServerURL,
		client:      &http.Client{},
		attempts:    defaultAttempts,
		backoff:     defaultBackoff,
		userAgent:   defaultUserAgent,
		lockTimeout: defaultLockTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.cacheDir == "" {
		dir, err := config.PycklesDir()
		if err != nil {
			return nil, err
		}
		r.cacheDir = filepath.Join(dir, "cache")
	}
	u, err := url.Parse(r.baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: %w", r.baseURL, errdefs.ErrInvalidValue)
	}
	if r.attempts < 1 {
		return nil, fmt.Errorf("attempts must be at least 1, got %d: %w", r.attempts, errdefs.ErrInvalidValue)
	}
	if r.client == nil {
		r.client = &http.Client{}
	}
	if err := os.MkdirAll(r.cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create cache directory %s: %w", r.cacheDir, err)
	}
	return r, nil
}

// CacheDir returns the directory files are cached in.
func (r *Retriever) CacheDir() string { return r.cacheDir }

// BaseURL returns the origin files are downloaded from.
func (r *Retriever) BaseURL() string { return r.baseURL }

// URL returns the remote location of filename.
func (r *Retriever) URL(filename string) string {
	u, err := url.JoinPath(r.baseURL, filename)
	if err != nil {
		return strings.TrimSuffix(r.baseURL, "/") + "/" + filename
	}
	return u
}

// sanitizeFilename rejects absolute paths and traversal sequences and returns
// the cleaned, slash-separated cache key.
func sanitizeFilename(name string) (string, error) {
	orig := name
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	name = strings.TrimPrefix(name, "./")
	bad := func(reason string) (string, error) {
		return "", fmt.Errorf("invalid file name %q: %s: %w", orig, reason, errdefs.ErrInvalidValue)
	}
	if name == "" {
		return bad("empty")
	}
	if strings.HasPrefix(name, "/") || filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return bad("absolute path")
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return bad("parent directory reference")
		}
	}
	clean := filepath.ToSlash(filepath.Clean(name))
	if clean == "." || strings.HasPrefix(clean, lockDirName+"/") || clean == lockDirName {
		return bad("reserved name")
	}
	return clean, nil
}

package retrieve

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gofrs/flock"
	slogcontext "github.com/veqryn/slog-context"
)

const (
	lockDirName   = ".locks"
	partialSuffix = ".part"
	lockPoll      = 200 * time.Millisecond
)

// CacheEntry describes one file in the cache directory.
type CacheEntry struct {
	Name    string
	Size    int64
	ModTime time.Time
}

func (r *Retriever) localPath(name string) string {
	return filepath.Join(r.cacheDir, filepath.FromSlash(name))
}

// CachedPath returns where filename is cached and whether a copy is present.
// The copy is not verified.
func (r *Retriever) CachedPath(filename string) (string, bool, error) {
	name, err := sanitizeFilename(filename)
	if err != nil {
		return "", false, err
	}
	p := r.localPath(name)
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return p, false, nil
		}
		return p, false, fmt.Errorf("cannot stat %s: %w", p, err)
	}
	return p, info.Mode().IsRegular(), nil
}

// Invalidate removes the cached copy of filename, if any, so the next Fetch
// downloads it again.
func (r *Retriever) Invalidate(ctx context.Context, filename string) error {
	name, err := sanitizeFilename(filename)
	if err != nil {
		return err
	}
	unlock, err := r.lock(ctx, name)
	if err != nil {
		return err
	}
	defer unlock()
	if err := removeFile(r.localPath(name)); err != nil {
		return fmt.Errorf("cannot invalidate %s: %w", name, err)
	}
	return nil
}

// Clear removes every cached file. Lock files are kept since other processes
// may hold them.
func (r *Retriever) Clear(ctx context.Context) error {
	des, err := os.ReadDir(r.cacheDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("cannot read cache directory %s: %w", r.cacheDir, err)
	}
	var errs []error
	for _, de := range des {
		if de.Name() == lockDirName {
			continue
		}
		if err := os.RemoveAll(filepath.Join(r.cacheDir, de.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	slogcontext.Debug(ctx, "cache cleared", "dir", r.cacheDir, "entries", len(des))
	return errors.Join(errs...)
}

// Entries lists the cached files, sorted by name. Temporary files of
// downloads in progress are left out.
func (r *Retriever) Entries() ([]CacheEntry, error) {
	var out []CacheEntry
	err := filepath.WalkDir(r.cacheDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == lockDirName {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), partialSuffix) || !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(r.cacheDir, p)
		if err != nil {
			return err
		}
		out = append(out, CacheEntry{Name: filepath.ToSlash(rel), Size: info.Size(), ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cannot list cache directory %s: %w", r.cacheDir, err)
	}
	slices.SortFunc(out, func(a, b CacheEntry) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// lock takes the advisory lock for name, polling until it is free, the lock
// timeout passes or ctx is done.
func (r *Retriever) lock(ctx context.Context, name string) (func(), error) {
	lockPath := filepath.Join(r.cacheDir, lockDirName, filepath.FromSlash(name)+".lock")
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return func() {}, fmt.Errorf("cannot create lock directory: %w", err)
	}
	l := flock.New(lockPath)
	deadline := time.Now().Add(r.lockTimeout)
	for {
		locked, err := l.TryLock()
		if err != nil {
			return func() {}, fmt.Errorf("cannot acquire cache lock %s: %w", lockPath, err)
		}
		if locked {
			return func() { _ = l.Unlock() }, nil
		}
		if time.Now().After(deadline) {
			return func() {}, fmt.Errorf("another process is fetching %s (lock: %s)", name, lockPath)
		}
		if err := sleep(ctx, lockPoll); err != nil {
			return func() {}, fmt.Errorf("waiting for cache lock %s: %w", lockPath, err)
		}
	}
}

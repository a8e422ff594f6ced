package retrieve

import (
	"context"
	"errors"
	"fmt"
	"hash"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	slogcontext "github.com/veqryn/slog-context"
)

// Fetch returns the local path of req.Filename, downloading it when it is
// not cached, when req.UseCache is false, or when the cached copy fails
// verification against req.Hash.
//
// A download that does not match req.Hash fails with an *IntegrityError and
// leaves nothing in the cache. Transient transport failures are retried;
// when the budget is spent, or on a non-transient answer, Fetch fails with a
// *RetrievalError.
//
// Concurrent calls for the same request share one download. A caller whose
// ctx ends stops waiting with a *RetrievalError; the shared download is
// only cancelled once every caller waiting on it has gone.
func (r *Retriever) Fetch(ctx context.Context, req Request) (string, error) {
	name, err := sanitizeFilename(req.Filename)
	if err != nil {
		return "", err
	}
	sum, err := ParseChecksum(req.Hash)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("%s\x00%t\x00%s", name, req.UseCache, sum)
	fl := r.join(ctx, key)
	ch := r.group.DoChan(key, func() (any, error) {
		return r.fetch(fl.ctx, name, sum, req.UseCache)
	})

	select {
	case res := <-ch:
		r.leave(key, fl, nil)
		if res.Shared {
			slogcontext.Debug(ctx, "joined in-flight fetch", "filename", name)
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		if r.leave(key, fl, context.Cause(ctx)) {
			// Last waiter: the download was cancelled, wait for it to unwind.
			res := <-ch
			if res.Err != nil {
				return "", res.Err
			}
			return res.Val.(string), nil
		}
		return "", &RetrievalError{Filename: name, URL: r.URL(name), Err: context.Cause(ctx)}
	}
}

// flight is the context a shared download runs under, with the number of
// callers waiting on it.
type flight struct {
	ctx     context.Context
	cancel  context.CancelCauseFunc
	waiters int
}

func (r *Retriever) join(ctx context.Context, key string) *flight {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fl, ok := r.flights[key]; ok {
		fl.waiters++
		return fl
	}
	fctx, cancel := context.WithCancelCause(context.WithoutCancel(ctx))
	fl := &flight{ctx: fctx, cancel: cancel, waiters: 1}
	if r.flights == nil {
		r.flights = map[string]*flight{}
	}
	r.flights[key] = fl
	return fl
}

// leave drops one waiter and reports whether it was the last. The last
// waiter cancels the flight with cause and forgets the key so later callers
// start a fresh download.
func (r *Retriever) leave(key string, fl *flight, cause error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	fl.waiters--
	if fl.waiters > 0 {
		return false
	}
	if r.flights[key] == fl {
		delete(r.flights, key)
	}
	r.group.Forget(key)
	fl.cancel(cause)
	return true
}

func (r *Retriever) fetch(ctx context.Context, name string, sum Checksum, useCache bool) (string, error) {
	ctx = slogcontext.With(ctx, "filename", name)

	unlock, err := r.lock(ctx, name)
	if err != nil {
		return "", err
	}
	defer unlock()

	dest := r.localPath(name)
	if useCache {
		ok, err := r.cached(ctx, name, dest, sum)
		if err != nil {
			return "", err
		}
		if ok {
			slogcontext.Debug(ctx, "cache hit", "path", dest)
			return dest, nil
		}
	}

	if err := r.download(ctx, name, dest, sum); err != nil {
		return "", err
	}
	return dest, nil
}

// cached reports whether dest holds a usable copy. A copy that fails
// verification is removed.
func (r *Retriever) cached(ctx context.Context, name, dest string, sum Checksum) (bool, error) {
	info, err := os.Stat(dest)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("cannot stat cached %s: %w", dest, err)
	}
	if !info.Mode().IsRegular() {
		return false, fmt.Errorf("cached %s is not a regular file", dest)
	}
	if sum.IsZero() {
		return true, nil
	}

	err = sum.verifyFile(name, dest)
	if err == nil {
		return true, nil
	}
	var ierr *IntegrityError
	if !errors.As(err, &ierr) {
		return false, err
	}
	slogcontext.Warn(ctx, "discarding corrupt cached copy", "expected", ierr.Expected, "actual", ierr.Got)
	if err := removeFile(dest); err != nil {
		return false, fmt.Errorf("cannot discard corrupt %s: %w", dest, err)
	}
	return false, nil
}

// download tries the origin up to r.attempts times, waiting r.backoff before
// the second attempt and doubling the wait each time after.
func (r *Retriever) download(ctx context.Context, name, dest string, sum Checksum) error {
	src := r.URL(name)
	var lastErr error
	for attempt := range r.attempts {
		if attempt > 0 {
			wait := r.backoff * time.Duration(1<<(attempt-1))
			slogcontext.Warn(ctx, "download failed, retrying",
				"attempt", attempt, "maxAttempts", r.attempts, "wait", wait, "error", lastErr)
			if err := sleep(ctx, wait); err != nil {
				return &RetrievalError{Filename: name, URL: src, Attempts: attempt, Err: err}
			}
		}

		slogcontext.Debug(ctx, "downloading", "url", src, "attempt", attempt+1)
		err := r.downloadOnce(ctx, src, name, dest, sum)
		if err == nil {
			return nil
		}
		var ierr *IntegrityError
		if errors.As(err, &ierr) {
			return err
		}
		if ctx.Err() != nil {
			return &RetrievalError{Filename: name, URL: src, Attempts: attempt + 1, Err: context.Cause(ctx)}
		}
		if !isTransient(err) {
			return &RetrievalError{Filename: name, URL: src, Attempts: attempt + 1, Err: err}
		}
		lastErr = err
	}
	return &RetrievalError{Filename: name, URL: src, Attempts: r.attempts, Err: lastErr}
}

// downloadOnce streams src into a temporary file next to dest, verifies it
// and renames it into place.
func (r *Retriever) downloadOnce(ctx context.Context, src, name, dest string, sum Checksum) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return &transientError{fmt.Errorf("download failed: %w", err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return &StatusError{Code: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(string(body))}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", filepath.Dir(dest), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*"+partialSuffix)
	if err != nil {
		return fmt.Errorf("cannot create temp file for %s: %w", dest, err)
	}
	tmpPath := tmp.Name()
	published := false
	defer func() {
		if !published {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	var w io.Writer = tmp
	var h hash.Hash
	if !sum.IsZero() {
		h = sum.newHash()
		w = io.MultiWriter(tmp, h)
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return &transientError{fmt.Errorf("download read failed: %w", err)}
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		return &transientError{fmt.Errorf("download truncated: got %d of %d bytes", n, resp.ContentLength)}
	}
	if h != nil {
		if err := sum.verify(name, h); err != nil {
			return err
		}
	}

	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("cannot sync %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cannot close %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("cannot publish %s: %w", dest, err)
	}
	published = true
	slogcontext.Debug(ctx, "downloaded", "path", dest, "bytes", n)
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-t.C:
		return nil
	}
}

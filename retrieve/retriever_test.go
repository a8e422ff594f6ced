package retrieve

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kamusis/pyckles/errdefs"
	"github.com/kamusis/pyckles/internal/testutil"
)

var payload = []byte("SIMPLE  =                    T / fixture bytes")

func newRetriever(t *testing.T, o *testutil.Origin, opts ...Option) *Retriever {
	t.Helper()
	opts = append([]Option{
		WithBaseURL(o.BaseURL()),
		WithCacheDir(t.TempDir()),
		WithBackoff(time.Millisecond),
	}, opts...)
	r, err := New(opts...)
	require.NoError(t, err)
	return r
}

func sha256Of(t *testing.T, b []byte) string {
	t.Helper()
	s, err := Sum("sha256", bytes.NewReader(b))
	require.NoError(t, err)
	return s
}

func TestFetch_DownloadsThenHitsCache(t *testing.T) {
	r := require.New(t)
	o := testutil.NewOrigin(t)
	o.Put("cat.fits", payload)
	ret := newRetriever(t, o)
	ctx := context.Background()

	p, err := ret.Fetch(ctx, Request{Filename: "cat.fits", UseCache: true})
	r.NoError(err)
	r.Equal(filepath.Join(ret.CacheDir(), "cat.fits"), p)
	got, err := os.ReadFile(p)
	r.NoError(err)
	r.Equal(payload, got)

	_, err = ret.Fetch(ctx, Request{Filename: "cat.fits", UseCache: true})
	r.NoError(err)
	r.Equal(1, o.Hits("cat.fits"))

	_, err = ret.Fetch(ctx, Request{Filename: "cat.fits", UseCache: false})
	r.NoError(err)
	r.Equal(2, o.Hits("cat.fits"))
}

func TestFetch_CorruptCacheIsReplaced(t *testing.T) {
	r := require.New(t)
	o := testutil.NewOrigin(t)
	o.Put("cat.fits", payload)
	ret := newRetriever(t, o)
	ctx := context.Background()
	req := Request{Filename: "cat.fits", Hash: sha256Of(t, payload), UseCache: true}

	p, err := ret.Fetch(ctx, req)
	r.NoError(err)
	r.NoError(os.WriteFile(p, []byte("garbage"), 0o644))

	p, err = ret.Fetch(ctx, req)
	r.NoError(err)
	got, err := os.ReadFile(p)
	r.NoError(err)
	r.Equal(payload, got)
	r.Equal(2, o.Hits("cat.fits"))
}

func TestFetch_IntegrityFailureLeavesNothing(t *testing.T) {
	r := require.New(t)
	o := testutil.NewOrigin(t)
	o.Put("cat.fits", payload)
	ret := newRetriever(t, o)

	_, err := ret.Fetch(context.Background(), Request{
		Filename: "cat.fits",
		Hash:     sha256Of(t, []byte("something else")),
		UseCache: true,
	})
	r.ErrorIs(err, errdefs.ErrIntegrity)
	var ierr *IntegrityError
	r.ErrorAs(err, &ierr)
	r.Equal(sha256Of(t, payload), ierr.Got)
	r.Equal(1, o.Hits("cat.fits"))

	_, ok, err := ret.CachedPath("cat.fits")
	r.NoError(err)
	r.False(ok)
	entries, err := ret.Entries()
	r.NoError(err)
	r.Empty(entries)
}

func TestFetch_RetriesTransientFailures(t *testing.T) {
	r := require.New(t)
	o := testutil.NewOrigin(t)
	o.Put("cat.fits", payload)
	o.FailNext("cat.fits", http.StatusServiceUnavailable, http.StatusTooManyRequests)
	ret := newRetriever(t, o)

	_, err := ret.Fetch(context.Background(), Request{Filename: "cat.fits", UseCache: true})
	r.NoError(err)
	r.Equal(3, o.Hits("cat.fits"))
}

func TestFetch_StopsAfterThreeAttempts(t *testing.T) {
	r := require.New(t)
	o := testutil.NewOrigin(t)
	o.Put("cat.fits", payload)
	o.FailNext("cat.fits", 500, 502, 503, 504)
	ret := newRetriever(t, o)

	_, err := ret.Fetch(context.Background(), Request{Filename: "cat.fits", UseCache: true})
	r.ErrorIs(err, errdefs.ErrRetrieval)
	var rerr *RetrievalError
	r.ErrorAs(err, &rerr)
	r.Equal(3, rerr.Attempts)
	r.Equal(3, o.Hits("cat.fits"))

	var serr *StatusError
	r.ErrorAs(err, &serr)
	r.Equal(503, serr.Code)
}

func TestFetch_NotFoundIsNotRetried(t *testing.T) {
	r := require.New(t)
	o := testutil.NewOrigin(t)
	ret := newRetriever(t, o)

	_, err := ret.Fetch(context.Background(), Request{Filename: "missing.fits", UseCache: true})
	r.ErrorIs(err, errdefs.ErrRetrieval)
	r.Equal(1, o.Hits("missing.fits"))
}

func TestFetch_CanceledDuringBackoff(t *testing.T) {
	o := testutil.NewOrigin(t)
	o.Put("cat.fits", payload)
	o.FailNext("cat.fits", 503, 503, 503)
	ret := newRetriever(t, o, WithBackoff(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := ret.Fetch(ctx, Request{Filename: "cat.fits", UseCache: true})
	require.ErrorIs(t, err, errdefs.ErrRetrieval)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 1, o.Hits("cat.fits"))
}

func TestFetch_CanceledCallerLeavesSharedDownloadRunning(t *testing.T) {
	o := testutil.NewOrigin(t)
	o.Put("cat.fits", payload)
	o.FailNext("cat.fits", 503)
	ret := newRetriever(t, o, WithBackoff(300*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	first := make(chan error, 1)
	go func() {
		_, err := ret.Fetch(ctx, Request{Filename: "cat.fits", UseCache: true})
		first <- err
	}()
	time.Sleep(20 * time.Millisecond)

	path, err := ret.Fetch(context.Background(), Request{Filename: "cat.fits", UseCache: true})
	require.NoError(t, err)
	require.FileExists(t, path)

	err = <-first
	require.ErrorIs(t, err, errdefs.ErrRetrieval)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 2, o.Hits("cat.fits"))
}

func TestFetch_ConcurrentCallersShareOneDownload(t *testing.T) {
	o := testutil.NewOrigin(t)
	o.Put("cat.fits", payload)
	ret := newRetriever(t, o)

	var wg sync.WaitGroup
	paths := make([]string, 8)
	errs := make([]error, 8)
	for i := range paths {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			paths[i], errs[i] = ret.Fetch(context.Background(), Request{Filename: "cat.fits", UseCache: true})
		}(i)
	}
	wg.Wait()
	for i := range paths {
		require.NoError(t, errs[i])
		require.Equal(t, paths[0], paths[i])
	}
	require.Equal(t, 1, o.Hits("cat.fits"))
}

func TestFetch_RejectsUnsafeNames(t *testing.T) {
	o := testutil.NewOrigin(t)
	ret := newRetriever(t, o)
	for _, name := range []string{"", "/etc/passwd", "../escape.fits", "a/../../b", ".locks/x"} {
		_, err := ret.Fetch(context.Background(), Request{Filename: name, UseCache: true})
		require.ErrorIs(t, err, errdefs.ErrInvalidValue, name)
	}
}

func TestFetch_Subdirectory(t *testing.T) {
	o := testutil.NewOrigin(t)
	o.Put("spectra/cat.fits", payload)
	ret := newRetriever(t, o)

	p, err := ret.Fetch(context.Background(), Request{Filename: "spectra/cat.fits", UseCache: true})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(ret.CacheDir(), "spectra", "cat.fits"), p)

	entries, err := ret.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "spectra/cat.fits", entries[0].Name)
	require.EqualValues(t, len(payload), entries[0].Size)
}

func TestInvalidateAndClear(t *testing.T) {
	r := require.New(t)
	o := testutil.NewOrigin(t)
	o.Put("a.fits", payload)
	o.Put("b.fits", payload)
	ret := newRetriever(t, o)
	ctx := context.Background()

	for _, n := range []string{"a.fits", "b.fits"} {
		_, err := ret.Fetch(ctx, Request{Filename: n, UseCache: true})
		r.NoError(err)
	}

	r.NoError(ret.Invalidate(ctx, "a.fits"))
	_, ok, err := ret.CachedPath("a.fits")
	r.NoError(err)
	r.False(ok)
	r.NoError(ret.Invalidate(ctx, "a.fits"))

	r.NoError(ret.Clear(ctx))
	entries, err := ret.Entries()
	r.NoError(err)
	r.Empty(entries)
	_, err = os.Stat(filepath.Join(ret.CacheDir(), lockDirName))
	r.NoError(err)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(WithBaseURL("ftp://example.org/"), WithCacheDir(t.TempDir()))
	require.ErrorIs(t, err, errdefs.ErrInvalidValue)
	_, err = New(WithAttempts(0), WithCacheDir(t.TempDir()))
	require.ErrorIs(t, err, errdefs.ErrInvalidValue)
}

func TestURL(t *testing.T) {
	ret, err := New(WithBaseURL("https://example.org/pyckles"), WithCacheDir(t.TempDir()))
	require.NoError(t, err)
	require.Equal(t, "https://example.org/pyckles/index.dat", ret.URL("index.dat"))
}

func TestParseChecksum(t *testing.T) {
	hex64 := strings.Repeat("ab", 32)
	hex128 := strings.Repeat("cd", 64)

	for in, want := range map[string]string{
		"":                     "",
		hex64:                  "sha256:" + hex64,
		strings.ToUpper(hex64): "sha256:" + hex64,
		hex128:                 "sha512:" + hex128,
		"sha256:" + hex64:      "sha256:" + hex64,
		"blake3:" + hex64:      "blake3:" + hex64,
	} {
		c, err := ParseChecksum(in)
		require.NoError(t, err, in)
		require.Equal(t, want, c.String(), in)
	}

	for _, in := range []string{"abc", "md5:" + hex64, "sha256:zz", "blake3:abcd"} {
		_, err := ParseChecksum(in)
		require.ErrorIs(t, err, errdefs.ErrInvalidValue, in)
	}
}

func TestChecksum_Blake3(t *testing.T) {
	sum, err := Sum("blake3", bytes.NewReader(payload))
	require.NoError(t, err)
	c, err := ParseChecksum(sum)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, payload, 0o644))
	require.NoError(t, c.verifyFile("f", path))

	require.NoError(t, os.WriteFile(path, []byte("other"), 0o644))
	err = c.verifyFile("f", path)
	require.True(t, errors.Is(err, errdefs.ErrIntegrity))
}

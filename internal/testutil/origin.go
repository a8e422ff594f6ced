package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Origin is an in-process file server standing in for the remote catalogue
// server. Requests are counted per file and failures can be queued.
type Origin struct {
	*httptest.Server

	mu       sync.Mutex
	files    map[string][]byte
	hits     map[string]int
	failures map[string][]int
}

// NewOrigin starts an Origin that is shut down when t finishes.
func NewOrigin(t testing.TB) *Origin {
	t.Helper()
	o := &Origin{
		files:    map[string][]byte{},
		hits:     map[string]int{},
		failures: map[string][]int{},
	}
	o.Server = httptest.NewServer(http.HandlerFunc(o.serve))
	t.Cleanup(o.Close)
	return o
}

// BaseURL returns the URL files are served under, with a trailing slash.
func (o *Origin) BaseURL() string { return o.URL + "/pyckles/" }

// Put publishes data under name.
func (o *Origin) Put(name string, data []byte) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.files[name] = append([]byte(nil), data...)
}

// FailNext makes the next len(codes) requests for name answer with the
// given status codes, in order.
func (o *Origin) FailNext(name string, codes ...int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures[name] = append(o.failures[name], codes...)
}

// Hits returns how many requests for name were received.
func (o *Origin) Hits(name string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.hits[name]
}

func (o *Origin) serve(w http.ResponseWriter, r *http.Request) {
	name, ok := strings.CutPrefix(r.URL.Path, "/pyckles/")
	if !ok {
		http.NotFound(w, r)
		return
	}

	o.mu.Lock()
	o.hits[name]++
	var code int
	if q := o.failures[name]; len(q) > 0 {
		code, o.failures[name] = q[0], q[1:]
	}
	data, found := o.files[name]
	o.mu.Unlock()

	switch {
	case code != 0:
		http.Error(w, fmt.Sprintf("injected failure %d", code), code)
	case !found:
		http.NotFound(w, r)
	default:
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(data)
	}
}

// Listing renders an index listing with one row per name/filename pair;
// hashes may be empty.
func Listing(rows ...[3]string) []byte {
	var b strings.Builder
	b.WriteString("name filename hash\n")
	for _, r := range rows {
		h := r[2]
		if h == "" {
			h = "-"
		}
		fmt.Fprintf(&b, "%s %s %s\n", r[0], r[1], h)
	}
	return []byte(b.String())
}

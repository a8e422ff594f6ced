package index

import (
	"context"
	"fmt"
	"sync"
)

// LoadFunc produces a freshly parsed index. fresh asks the source to bypass
// any local cache it keeps.
type LoadFunc func(ctx context.Context, fresh bool) (*Index, error)

// FetchFunc returns the local path of a remote file, consulting the local
// cache only when useCache is set.
type FetchFunc func(ctx context.Context, filename string, useCache bool) (string, error)

// FromFile loads the listing at path.
func FromFile(path string) LoadFunc {
	return func(ctx context.Context, _ bool) (*Index, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return Load(path)
	}
}

// RemoteSource retrieves the listing file through fetch and parses it.
func RemoteSource(fetch FetchFunc, listing string) LoadFunc {
	return func(ctx context.Context, fresh bool) (*Index, error) {
		path, err := fetch(ctx, listing, !fresh)
		if err != nil {
			return nil, fmt.Errorf("cannot retrieve catalogue listing %s: %w", listing, err)
		}
		return Load(path)
	}
}

// Memo holds a lazily loaded index for the lifetime of the process. The
// index is loaded on the first successful Get and never reloaded unless
// Refresh or Reset is called. Failed loads are not remembered.
type Memo struct {
	mu   sync.Mutex
	load LoadFunc
	idx  *Index
}

// NewMemo returns a Memo backed by load.
func NewMemo(load LoadFunc) *Memo {
	return &Memo{load: load}
}

// Get returns the memoized index, loading it on first use.
func (m *Memo) Get(ctx context.Context) (*Index, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.idx != nil {
		return m.idx, nil
	}
	return m.loadLocked(ctx, false)
}

// Refresh reloads the index from its source, bypassing caches, and replaces
// the memoized copy on success. On failure the previous index is kept.
func (m *Memo) Refresh(ctx context.Context) (*Index, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked(ctx, true)
}

// Reset drops the memoized index; the next Get loads it again.
func (m *Memo) Reset() {
	m.mu.Lock()
	m.idx = nil
	m.mu.Unlock()
}

func (m *Memo) loadLocked(ctx context.Context, fresh bool) (*Index, error) {
	idx, err := m.load(ctx, fresh)
	if err != nil {
		return nil, err
	}
	m.idx = idx
	return idx, nil
}

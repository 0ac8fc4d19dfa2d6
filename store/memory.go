package store

import (
	"context"
	"sort"
	"sync"
)

// Memory is a map backed store.  It is the target of Preload and is
// safe for concurrent use.
type Memory struct {
	mu        sync.RWMutex
	lookups   map[string]LookupEntry
	redirects map[string]string
}

// NewMemory gets an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		lookups:   map[string]LookupEntry{},
		redirects: map[string]string{},
	}
}

func (m *Memory) PutLookup(ctx context.Context, e LookupEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.lookups[e.Title]; exists {
		return ErrDuplicateKey
	}
	m.lookups[e.Title] = e
	return nil
}

func (m *Memory) PutRedirect(ctx context.Context, e RedirectEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.redirects[e.From]; exists {
		return ErrDuplicateKey
	}
	m.redirects[e.From] = e.To
	return nil
}

func (m *Memory) Lookup(ctx context.Context, title string) (LookupEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.lookups[title]
	if !ok {
		return LookupEntry{}, ErrNotFound
	}
	return e, nil
}

func (m *Memory) Redirect(ctx context.Context, from string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	to, ok := m.redirects[from]
	if !ok {
		return "", ErrNotFound
	}
	return to, nil
}

// EachLookup visits lookup entries in title order.
func (m *Memory) EachLookup(ctx context.Context, fn func(LookupEntry) error) error {
	m.mu.RLock()
	entries := make([]LookupEntry, 0, len(m.lookups))
	for _, e := range m.lookups {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].Title < entries[j].Title })
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

// EachRedirect visits redirect entries in source title order.
func (m *Memory) EachRedirect(ctx context.Context, fn func(RedirectEntry) error) error {
	m.mu.RLock()
	entries := make([]RedirectEntry, 0, len(m.redirects))
	for from, to := range m.redirects {
		entries = append(entries, RedirectEntry{From: from, To: to})
	}
	m.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].From < entries[j].From })
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of lookup and redirect entries.
func (m *Memory) Len() (lookups, redirects int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.lookups), len(m.redirects)
}

// Titles builds the reverse index from node offset to title.
func (m *Memory) Titles() map[uint32]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rv := make(map[uint32]string, len(m.lookups))
	for title, e := range m.lookups {
		rv[e.Offset] = title
	}
	return rv
}

func (m *Memory) Close() error { return nil }

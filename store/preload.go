package store

import (
	"context"

	"github.com/pkg/errors"
)

// Preload copies every entry of src into a new Memory store.
//
// This is a one-shot bulk load: it trades memory (tens of millions of
// keys fit in a few GB) for avoiding a round trip per link while
// compiling.  A sorted on-disk index searched by binary search is the
// alternative if that stops fitting.
func Preload(ctx context.Context, src Scanner) (*Memory, error) {
	m := NewMemory()
	err := src.EachLookup(ctx, func(e LookupEntry) error {
		m.lookups[e.Title] = e
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "loading lookup entries")
	}
	err = src.EachRedirect(ctx, func(e RedirectEntry) error {
		m.redirects[e.From] = e.To
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "loading redirect entries")
	}
	return m, nil
}

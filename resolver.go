package wikigraph

import (
	"context"

	"github.com/pkg/errors"

	"github.com/dustin/go-wikigraph/store"
)

// A Resolver finds the node offset a title currently occupies.
//
// Redirects are followed one hop only; a redirect to another redirect
// is not chased further.
type Resolver struct {
	st store.Reader
}

// NewResolver gets a resolver over st.  Resolve is as safe for
// concurrent use as st is.
func NewResolver(st store.Reader) *Resolver {
	return &Resolver{st: st}
}

// Resolve sanitizes a raw title and resolves it.  ok is false if the
// title names no node.
func (r *Resolver) Resolve(ctx context.Context, raw string) (offset uint32, ok bool, err error) {
	return r.ResolveKey(ctx, Sanitize(raw))
}

// ResolveKey resolves an already sanitized key.
//
// A redirect whose target has no node falls back to a direct lookup
// of the key itself.
func (r *Resolver) ResolveKey(ctx context.Context, key string) (offset uint32, ok bool, err error) {
	to, err := r.st.Redirect(ctx, key)
	switch {
	case err == nil:
		offset, ok, err = r.lookup(ctx, to)
		if ok || err != nil {
			return offset, ok, err
		}
	case !errors.Is(err, store.ErrNotFound):
		return 0, false, errors.Wrapf(err, "redirect lookup of %q", key)
	}
	return r.lookup(ctx, key)
}

func (r *Resolver) lookup(ctx context.Context, key string) (uint32, bool, error) {
	e, err := r.st.Lookup(ctx, key)
	switch {
	case err == nil:
		return e.Offset, true, nil
	case errors.Is(err, store.ErrNotFound):
		return DanglingOffset, false, nil
	}
	return 0, false, errors.Wrapf(err, "lookup of %q", key)
}

// Package store persists the title lookup and redirect tables built
// while planning a graph.
//
// Two keyspaces are kept: sanitized article titles map to the byte
// offset and length their node will occupy, and sanitized redirect
// titles map to the title they point at.  Inserts are idempotent: the
// first insert for a key wins and later ones report ErrDuplicateKey.
package store

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// ErrDuplicateKey is returned by inserts when the key already
	// exists.  Callers treat it as a no-op.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrNotFound is returned by lookups for unknown keys.
	ErrNotFound = errors.New("not found")
)

// A LookupEntry places an article's node in the graph file.
type LookupEntry struct {
	Title  string `json:"title" bson:"_id"`
	Offset uint32 `json:"offset" bson:"offset"`
	Length uint32 `json:"length" bson:"length"`
}

// A RedirectEntry points one title at another.
type RedirectEntry struct {
	From string `json:"from" bson:"_id"`
	To   string `json:"to" bson:"to"`
}

// Reader answers exact-key lookups.
type Reader interface {
	Lookup(ctx context.Context, title string) (LookupEntry, error)
	Redirect(ctx context.Context, from string) (string, error)
}

// Writer performs idempotent inserts.
type Writer interface {
	PutLookup(ctx context.Context, e LookupEntry) error
	PutRedirect(ctx context.Context, e RedirectEntry) error
}

// Store is a persistent lookup/redirect store.
type Store interface {
	Reader
	Writer
	Close() error
}

// Scanner is implemented by stores that can enumerate their contents
// for bulk loading.
type Scanner interface {
	EachLookup(ctx context.Context, fn func(LookupEntry) error) error
	EachRedirect(ctx context.Context, fn func(RedirectEntry) error) error
}

// Config selects and addresses a store backend.
type Config struct {
	Backend  string
	DSN      string
	Database string
	Bucket   string
}

// Backends lists the accepted values of Config.Backend.
var Backends = []string{"memory", "sqlite", "mongo", "couchbase", "couchdb", "redis"}

// Open connects to the backend named by cfg.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemory(), nil
	case "sqlite":
		return OpenSQLite(cfg.DSN)
	case "mongo":
		return OpenMongo(cfg.DSN, cfg.Database)
	case "couchbase":
		return OpenCouchbase(cfg.DSN, cfg.Bucket)
	case "couchdb":
		return OpenCouchDB(cfg.DSN)
	case "redis":
		return OpenRedis(ctx, cfg.DSN)
	}
	return nil, errors.Errorf("unknown store backend %q", cfg.Backend)
}

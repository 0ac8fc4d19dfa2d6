package store

import (
	"context"
	"crypto/md5"
	"encoding/hex"

	"github.com/couchbase/go-couchbase"
	"github.com/couchbase/gomemcached"
	"github.com/pkg/errors"
)

// memcached rejects keys longer than this.
const maxCouchbaseKey = 250

// Couchbase keeps both keyspaces in one bucket, separated by a key
// prefix.  It cannot enumerate its contents, so compiling against it
// resolves each link with a Get.
type Couchbase struct {
	bucket *couchbase.Bucket
}

// OpenCouchbase connects to the named bucket in the default pool.
func OpenCouchbase(url, bucket string) (*Couchbase, error) {
	if bucket == "" {
		bucket = "default"
	}
	b, err := couchbase.GetBucket(url, "default", bucket)
	if err != nil {
		return nil, errors.Wrapf(err, "connect to couchbase %s", url)
	}
	return &Couchbase{bucket: b}, nil
}

// couchbaseKey builds the document key for a title.  Titles too long
// for a memcached key are replaced by their md5; the full title is
// kept in the document and checked on read.
func couchbaseKey(prefix, title string) string {
	k := prefix + title
	if len(k) <= maxCouchbaseKey {
		return k
	}
	m := md5.New()
	m.Write([]byte(title))
	return prefix + "md5:" + hex.EncodeToString(m.Sum(nil))
}

func (c *Couchbase) add(key string, v interface{}) error {
	added, err := c.bucket.Add(key, 0, v)
	if err != nil {
		return err
	}
	if !added {
		return ErrDuplicateKey
	}
	return nil
}

func (c *Couchbase) get(key string, v interface{}) error {
	err := c.bucket.Get(key, v)
	if gomemcached.IsNotFound(err) {
		return ErrNotFound
	}
	return err
}

func (c *Couchbase) PutLookup(ctx context.Context, e LookupEntry) error {
	return c.add(couchbaseKey("l:", e.Title), e)
}

func (c *Couchbase) PutRedirect(ctx context.Context, e RedirectEntry) error {
	return c.add(couchbaseKey("r:", e.From), e)
}

func (c *Couchbase) Lookup(ctx context.Context, title string) (LookupEntry, error) {
	var e LookupEntry
	if err := c.get(couchbaseKey("l:", title), &e); err != nil {
		return LookupEntry{}, err
	}
	if e.Title != title {
		return LookupEntry{}, ErrNotFound
	}
	return e, nil
}

func (c *Couchbase) Redirect(ctx context.Context, from string) (string, error) {
	var e RedirectEntry
	if err := c.get(couchbaseKey("r:", from), &e); err != nil {
		return "", err
	}
	if e.From != from {
		return "", ErrNotFound
	}
	return e.To, nil
}

func (c *Couchbase) Close() error {
	c.bucket.Close()
	return nil
}

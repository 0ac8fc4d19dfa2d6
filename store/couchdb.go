package store

import (
	"context"
	"encoding/json"

	"github.com/dustin/go-couch"
	"github.com/pkg/errors"
)

const (
	couchLookupPrefix   = "lookup:"
	couchRedirectPrefix = "redirect:"
)

// Rows fetched per _all_docs request while scanning.
var couchPageSize = 1000

// CouchDB stores one document per entry, using the key as document
// id.  Documents go in through _bulk_docs and come back through
// _all_docs, so ids travel in JSON bodies and query values and are
// never part of a URL path.  A second insert of the same id gets a
// per-document "conflict", which is the duplicate-key contract.
type CouchDB struct {
	db couch.Database
}

type couchLookup struct {
	ID     string `json:"_id"`
	Title  string `json:"title"`
	Offset uint32 `json:"offset"`
	Length uint32 `json:"length"`
}

type couchRedirect struct {
	ID   string `json:"_id"`
	From string `json:"from"`
	To   string `json:"to"`
}

// couchKey is JSON encoded as a view parameter, unlike a plain string.
type couchKey string

type couchRows struct {
	Rows []struct {
		ID  string          `json:"id"`
		Doc json.RawMessage `json:"doc"`
	} `json:"rows"`
}

// OpenCouchDB connects to the database at dburl.
func OpenCouchDB(dburl string) (*CouchDB, error) {
	db, err := couch.Connect(dburl)
	if err != nil {
		return nil, errors.Wrapf(err, "connect to couchdb %s", dburl)
	}
	return &CouchDB{db: db}, nil
}

func (c *CouchDB) insert(id string, doc interface{}) error {
	res, err := c.db.Bulk([]interface{}{doc})
	if err != nil {
		return errors.Wrapf(err, "insert %q", id)
	}
	if len(res) != 1 {
		return errors.Errorf("insert %q: %d results", id, len(res))
	}
	switch res[0].Error {
	case "":
		return nil
	case "conflict":
		return ErrDuplicateKey
	}
	return errors.Errorf("insert %q: %s: %s", id, res[0].Error, res[0].Reason)
}

func (c *CouchDB) retrieve(id string, doc interface{}) error {
	var rows couchRows
	err := c.db.Query("_all_docs", map[string]interface{}{
		"key":          couchKey(id),
		"include_docs": true,
	}, &rows)
	if err != nil {
		return errors.Wrapf(err, "retrieve %q", id)
	}
	for _, row := range rows.Rows {
		if row.ID == id && len(row.Doc) > 0 && string(row.Doc) != "null" {
			return json.Unmarshal(row.Doc, doc)
		}
	}
	return ErrNotFound
}

// each pages through every document whose id starts with prefix.
func (c *CouchDB) each(ctx context.Context, prefix string, fn func(json.RawMessage) error) error {
	start := prefix
	skip := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var rows couchRows
		err := c.db.Query("_all_docs", map[string]interface{}{
			"startkey":     couchKey(start),
			"endkey":       couchKey(prefix + "\ufff0"),
			"skip":         skip,
			"limit":        couchPageSize,
			"include_docs": true,
		}, &rows)
		if err != nil {
			return errors.Wrapf(err, "scan %s", prefix)
		}
		for _, row := range rows.Rows {
			if len(row.Doc) == 0 || string(row.Doc) == "null" {
				continue
			}
			if err := fn(row.Doc); err != nil {
				return err
			}
		}
		if len(rows.Rows) < couchPageSize {
			return nil
		}
		start, skip = rows.Rows[len(rows.Rows)-1].ID, 1
	}
}

func (c *CouchDB) PutLookup(ctx context.Context, e LookupEntry) error {
	id := couchLookupPrefix + e.Title
	return c.insert(id, &couchLookup{ID: id, Title: e.Title, Offset: e.Offset, Length: e.Length})
}

func (c *CouchDB) PutRedirect(ctx context.Context, e RedirectEntry) error {
	id := couchRedirectPrefix + e.From
	return c.insert(id, &couchRedirect{ID: id, From: e.From, To: e.To})
}

func (c *CouchDB) Lookup(ctx context.Context, title string) (LookupEntry, error) {
	var doc couchLookup
	if err := c.retrieve(couchLookupPrefix+title, &doc); err != nil {
		return LookupEntry{}, err
	}
	return LookupEntry{Title: doc.Title, Offset: doc.Offset, Length: doc.Length}, nil
}

func (c *CouchDB) Redirect(ctx context.Context, from string) (string, error) {
	var doc couchRedirect
	if err := c.retrieve(couchRedirectPrefix+from, &doc); err != nil {
		return "", err
	}
	return doc.To, nil
}

func (c *CouchDB) EachLookup(ctx context.Context, fn func(LookupEntry) error) error {
	return c.each(ctx, couchLookupPrefix, func(raw json.RawMessage) error {
		var doc couchLookup
		if err := json.Unmarshal(raw, &doc); err != nil {
			return err
		}
		return fn(LookupEntry{Title: doc.Title, Offset: doc.Offset, Length: doc.Length})
	})
}

func (c *CouchDB) EachRedirect(ctx context.Context, fn func(RedirectEntry) error) error {
	return c.each(ctx, couchRedirectPrefix, func(raw json.RawMessage) error {
		var doc couchRedirect
		if err := json.Unmarshal(raw, &doc); err != nil {
			return err
		}
		return fn(RedirectEntry{From: doc.From, To: doc.To})
	})
}

func (c *CouchDB) Close() error { return nil }

package store

import (
	"context"

	"github.com/pkg/errors"
	"gopkg.in/mgo.v2"
)

// Collection names; both are keyed by _id, so MongoDB enforces key
// uniqueness without an extra index.
const (
	mongoLookup   = "lookup"
	mongoRedirect = "redirect"
)

// Mongo stores entries in two collections of one database.
type Mongo struct {
	session *mgo.Session
	db      *mgo.Database
}

// OpenMongo dials the given MongoDB url(s) and uses database dbname.
func OpenMongo(url, dbname string) (*Mongo, error) {
	session, err := mgo.Dial(url)
	if err != nil {
		return nil, errors.Wrapf(err, "dial mongo %s", url)
	}
	if dbname == "" {
		dbname = "wikigraph"
	}
	return &Mongo{session: session, db: session.DB(dbname)}, nil
}

func mongoInsert(c *mgo.Collection, doc interface{}) error {
	err := c.Insert(doc)
	if mgo.IsDup(err) {
		return ErrDuplicateKey
	}
	return err
}

func (m *Mongo) PutLookup(ctx context.Context, e LookupEntry) error {
	return mongoInsert(m.db.C(mongoLookup), &e)
}

func (m *Mongo) PutRedirect(ctx context.Context, e RedirectEntry) error {
	return mongoInsert(m.db.C(mongoRedirect), &e)
}

func (m *Mongo) Lookup(ctx context.Context, title string) (LookupEntry, error) {
	var e LookupEntry
	err := m.db.C(mongoLookup).FindId(title).One(&e)
	if err == mgo.ErrNotFound {
		return LookupEntry{}, ErrNotFound
	}
	return e, err
}

func (m *Mongo) Redirect(ctx context.Context, from string) (string, error) {
	var e RedirectEntry
	err := m.db.C(mongoRedirect).FindId(from).One(&e)
	if err == mgo.ErrNotFound {
		return "", ErrNotFound
	}
	return e.To, err
}

func (m *Mongo) EachLookup(ctx context.Context, fn func(LookupEntry) error) error {
	iter := m.db.C(mongoLookup).Find(nil).Iter()
	var e LookupEntry
	for iter.Next(&e) {
		if err := ctx.Err(); err != nil {
			iter.Close()
			return err
		}
		if err := fn(e); err != nil {
			iter.Close()
			return err
		}
	}
	return iter.Close()
}

func (m *Mongo) EachRedirect(ctx context.Context, fn func(RedirectEntry) error) error {
	iter := m.db.C(mongoRedirect).Find(nil).Iter()
	var e RedirectEntry
	for iter.Next(&e) {
		if err := ctx.Err(); err != nil {
			iter.Close()
			return err
		}
		if err := fn(e); err != nil {
			iter.Close()
			return err
		}
	}
	return iter.Close()
}

func (m *Mongo) Close() error {
	m.session.Close()
	return nil
}

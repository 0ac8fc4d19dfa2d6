package store

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS lookup (
	title      TEXT PRIMARY KEY,
	byteoffset INTEGER NOT NULL,
	length     INTEGER NOT NULL
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS redirect (
	redirect_from TEXT PRIMARY KEY,
	redirect_to   TEXT NOT NULL
) WITHOUT ROWID;
`

// SQLite keeps both tables in a single embedded database file.
type SQLite struct {
	db           *sql.DB
	stmtLookup   *sql.Stmt
	stmtRedirect *sql.Stmt
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open sqlite %s", path)
	}
	// The driver serializes writers anyway; one connection keeps the
	// pragmas below in effect for every statement.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA synchronous = OFF",
		"PRAGMA journal_mode = MEMORY",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, pragma)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create schema")
	}

	s := &SQLite{db: db}
	s.stmtLookup, err = db.Prepare(`INSERT INTO lookup (title, byteoffset, length)
		VALUES (?, ?, ?) ON CONFLICT (title) DO NOTHING`)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.stmtRedirect, err = db.Prepare(`INSERT INTO redirect (redirect_from, redirect_to)
		VALUES (?, ?) ON CONFLICT (redirect_from) DO NOTHING`)
	if err != nil {
		_ = s.stmtLookup.Close()
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func insertOnce(ctx context.Context, stmt *sql.Stmt, args ...interface{}) error {
	res, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrDuplicateKey
	}
	return nil
}

func (s *SQLite) PutLookup(ctx context.Context, e LookupEntry) error {
	return insertOnce(ctx, s.stmtLookup, e.Title, e.Offset, e.Length)
}

func (s *SQLite) PutRedirect(ctx context.Context, e RedirectEntry) error {
	return insertOnce(ctx, s.stmtRedirect, e.From, e.To)
}

func (s *SQLite) Lookup(ctx context.Context, title string) (LookupEntry, error) {
	e := LookupEntry{Title: title}
	err := s.db.QueryRowContext(ctx,
		`SELECT byteoffset, length FROM lookup WHERE title = ?`, title).Scan(&e.Offset, &e.Length)
	if err == sql.ErrNoRows {
		return LookupEntry{}, ErrNotFound
	}
	return e, err
}

func (s *SQLite) Redirect(ctx context.Context, from string) (string, error) {
	var to string
	err := s.db.QueryRowContext(ctx,
		`SELECT redirect_to FROM redirect WHERE redirect_from = ?`, from).Scan(&to)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return to, err
}

func (s *SQLite) EachLookup(ctx context.Context, fn func(LookupEntry) error) error {
	rows, err := s.db.QueryContext(ctx, `SELECT title, byteoffset, length FROM lookup`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var e LookupEntry
		if err := rows.Scan(&e.Title, &e.Offset, &e.Length); err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *SQLite) EachRedirect(ctx context.Context, fn func(RedirectEntry) error) error {
	rows, err := s.db.QueryContext(ctx, `SELECT redirect_from, redirect_to FROM redirect`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var e RedirectEntry
		if err := rows.Scan(&e.From, &e.To); err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *SQLite) Close() error {
	_ = s.stmtLookup.Close()
	_ = s.stmtRedirect.Close()
	return s.db.Close()
}

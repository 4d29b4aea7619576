// Package sqlite3 implements an object store in a SQLite database.
package sqlite3

import (
	"context"
	"database/sql"
	stderrs "errors"

	"github.com/bobg/sqlutil"
	_ "github.com/mattn/go-sqlite3" // register the sqlite3 type for sql.Open
	"github.com/pkg/errors"

	"github.com/gitblobsdb/gitblobs"
	"github.com/gitblobsdb/gitblobs/store"
)

var _ gitblobs.ExtStore = &Store{}

// Store is a Sqlite-based object store.
type Store struct {
	db *sql.DB
}

// Schema is the SQL that New executes.
// It creates the `objects`, `refs`, and `head` tables if they do not exist.
// (If they do exist, they must have the columns, constraints, and indexing described here.)
const Schema = `
CREATE TABLE IF NOT EXISTS objects (
  hash TEXT PRIMARY KEY NOT NULL,
  type TEXT NOT NULL,
  data BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS refs (
  name TEXT PRIMARY KEY NOT NULL,
  commit_hash TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS head (
  id INTEGER PRIMARY KEY NOT NULL CHECK (id = 1),
  type TEXT NOT NULL,
  value TEXT NOT NULL
);
`

// New produces a new Store using `db` for storage.
// It expects to create tables `objects`, `refs`, and `head`,
// or for those tables already to exist with the correct schema.
// (See variable Schema.)
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	_, err := db.ExecContext(ctx, Schema)
	return &Store{db: db}, errors.Wrap(err, "creating schema")
}

// GetObject gets the object with the given hash.
func (s *Store) GetObject(ctx context.Context, h gitblobs.Hash) (gitblobs.Object, error) {
	const q = `SELECT data FROM objects WHERE hash = $1`

	var data []byte
	err := s.db.QueryRowContext(ctx, q, string(h)).Scan(&data)
	if stderrs.Is(err, sql.ErrNoRows) {
		return nil, gitblobs.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "querying object %s", h)
	}
	return gitblobs.UnmarshalObject(data)
}

type execer interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
}

// PutObject adds an object to the store if it wasn't already present.
func (s *Store) PutObject(ctx context.Context, obj gitblobs.Object) error {
	return putObject(ctx, s.db, obj)
}

func putObject(ctx context.Context, db execer, obj gitblobs.Object) error {
	const q = `INSERT INTO objects (hash, type, data) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`

	data, err := gitblobs.MarshalObject(obj)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, q, string(obj.ObjectHash()), string(obj.ObjectType()), data)
	return errors.Wrapf(err, "inserting %s %s", obj.ObjectType(), obj.ObjectHash())
}

// HasObject tells whether the object with the given hash is present.
func (s *Store) HasObject(ctx context.Context, h gitblobs.Hash) (bool, error) {
	const q = `SELECT COUNT(*) FROM objects WHERE hash = $1`

	var n int
	err := s.db.QueryRowContext(ctx, q, string(h)).Scan(&n)
	return n > 0, errors.Wrapf(err, "counting object %s", h)
}

// DeleteObject removes an object.
func (s *Store) DeleteObject(ctx context.Context, h gitblobs.Hash) error {
	const q = `DELETE FROM objects WHERE hash = $1`
	_, err := s.db.ExecContext(ctx, q, string(h))
	return errors.Wrapf(err, "deleting object %s", h)
}

// GetRef gets the named ref.
func (s *Store) GetRef(ctx context.Context, name string) (gitblobs.Ref, error) {
	const q = `SELECT commit_hash FROM refs WHERE name = $1`

	var h string
	err := s.db.QueryRowContext(ctx, q, name).Scan(&h)
	if stderrs.Is(err, sql.ErrNoRows) {
		return gitblobs.Ref{}, gitblobs.ErrNotFound
	}
	return gitblobs.Ref{Name: name, CommitHash: gitblobs.Hash(h)}, errors.Wrapf(err, "querying ref %s", name)
}

// UpdateRef creates or moves the named ref.
func (s *Store) UpdateRef(ctx context.Context, name string, h gitblobs.Hash) error {
	const q = `INSERT INTO refs (name, commit_hash) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET commit_hash = excluded.commit_hash`

	if err := gitblobs.CheckRefName(name); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, q, name, string(h))
	return errors.Wrapf(err, "updating ref %s", name)
}

// ListRefs calls f for each ref, in name order.
func (s *Store) ListRefs(ctx context.Context, f func(gitblobs.Ref) error) error {
	const q = `SELECT name, commit_hash FROM refs ORDER BY name`
	return sqlutil.ForQueryRows(ctx, s.db, q, func(name, h string) error {
		return f(gitblobs.Ref{Name: name, CommitHash: gitblobs.Hash(h)})
	})
}

// GetHead gets the store's HEAD.
func (s *Store) GetHead(ctx context.Context) (gitblobs.Head, error) {
	const q = `SELECT type, value FROM head WHERE id = 1`

	var typ, value string
	err := s.db.QueryRowContext(ctx, q).Scan(&typ, &value)
	if stderrs.Is(err, sql.ErrNoRows) {
		return gitblobs.Head{}, gitblobs.ErrNotFound
	}
	return gitblobs.Head{Type: gitblobs.HeadType(typ), Value: value}, errors.Wrap(err, "querying HEAD")
}

// SetHead sets the store's HEAD.
func (s *Store) SetHead(ctx context.Context, head gitblobs.Head) error {
	return setHead(ctx, s.db, head)
}

func setHead(ctx context.Context, db execer, head gitblobs.Head) error {
	const q = `INSERT INTO head (id, type, value) VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET type = excluded.type, value = excluded.value`
	_, err := db.ExecContext(ctx, q, string(head.Type), head.Value)
	return errors.Wrap(err, "setting HEAD")
}

// Scan calls f on each object in the store, in hash order.
// Rows are decoded one at a time as they are read.
func (s *Store) Scan(ctx context.Context, f func(gitblobs.Object) error) error {
	const q = `SELECT data FROM objects ORDER BY hash`
	return sqlutil.ForQueryRows(ctx, s.db, q, func(data []byte) error {
		obj, err := gitblobs.UnmarshalObject(data)
		if err != nil {
			return err
		}
		return f(obj)
	})
}

// Replace discards the store's contents and loads b,
// in a single transaction.
func (s *Store) Replace(ctx context.Context, b *gitblobs.Bundle) (err error) {
	head, ok := gitblobs.BundleHead(b)
	if !ok {
		return gitblobs.ErrMissingHeadPointer
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, q := range []string{`DELETE FROM objects`, `DELETE FROM refs`, `DELETE FROM head`} {
		if _, err = tx.ExecContext(ctx, q); err != nil {
			return errors.Wrapf(err, "executing %s", q)
		}
	}
	for _, obj := range b.Objects() {
		if err = putObject(ctx, tx, obj); err != nil {
			return err
		}
	}
	if err = setHead(ctx, tx, gitblobs.HeadFromCommit(head)); err != nil {
		return err
	}
	err = tx.Commit()
	return errors.Wrap(err, "committing transaction")
}

func init() {
	store.Register("sqlite3", func(ctx context.Context, conf map[string]interface{}) (gitblobs.Store, error) {
		conn, ok := conf["conn"].(string)
		if !ok {
			return nil, errors.New(`missing "conn" parameter`)
		}
		db, err := sql.Open("sqlite3", conn)
		if err != nil {
			return nil, errors.Wrap(err, "opening db")
		}
		return New(ctx, db)
	})
}

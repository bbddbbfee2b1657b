// Package sqlite3 implements a blob store in a Sqlite database.
package sqlite3

import (
	"context"
	"database/sql"
	stderrs "errors"

	"github.com/bobg/sqlutil"
	_ "github.com/mattn/go-sqlite3" // register the sqlite3 type for sql.Open
	"github.com/pkg/errors"

	"github.com/bobg/lds"
	"github.com/bobg/lds/store"
)

var _ lds.HeadStore = &Store{}

// Store is a Sqlite-based blob store.
type Store struct {
	db *sql.DB
}

// Schema is the SQL that New executes.
// It creates the `blobs` and `heads` tables if they do not exist.
// (If they do exist, they must have the columns, constraints, and indexing described here.)
const Schema = `
CREATE TABLE IF NOT EXISTS blobs (
  ref BLOB PRIMARY KEY NOT NULL,
  data BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS heads (
  name TEXT PRIMARY KEY NOT NULL,
  ref BLOB NOT NULL
);
`

// New produces a new Store using `db` for storage.
// It expects to create tables `blobs` and `heads`,
// or for those tables already to exist with the correct schema.
// (See variable Schema.)
//
// Sqlite permits one writer at a time,
// so callers sharing `db` among goroutines should limit it to a single open connection.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	_, err := db.ExecContext(ctx, Schema)
	return &Store{db: db}, errors.Wrap(err, "creating schema")
}

// Get gets the blob with hash `ref`.
func (s *Store) Get(ctx context.Context, ref lds.Ref) (lds.Blob, error) {
	const q = `SELECT data FROM blobs WHERE ref = $1`

	var b []byte
	err := s.db.QueryRowContext(ctx, q, ref).Scan(&b)
	if stderrs.Is(err, sql.ErrNoRows) {
		return nil, lds.ErrNotFound
	}
	return b, lds.StorageErr(errors.Wrapf(err, "getting blob %s", ref), "sqlite3 get")
}

// Put adds a blob to the store if it wasn't already present.
func (s *Store) Put(ctx context.Context, b lds.Blob) (lds.Ref, bool, error) {
	const q = `INSERT INTO blobs (ref, data) VALUES ($1, $2) ON CONFLICT DO NOTHING`

	ref := b.Ref()
	res, err := s.db.ExecContext(ctx, q, ref, []byte(b))
	if err != nil {
		return lds.Zero, false, lds.StorageErr(errors.Wrap(err, "inserting blob"), "sqlite3 put")
	}

	aff, err := res.RowsAffected()
	if err != nil {
		return lds.Zero, false, lds.StorageErr(errors.Wrap(err, "counting affected rows"), "sqlite3 put")
	}

	return ref, aff > 0, nil
}

// Delete removes the blob with hash `ref`.
// It is not an error if there is none.
func (s *Store) Delete(ctx context.Context, ref lds.Ref) error {
	const q = `DELETE FROM blobs WHERE ref = $1`
	_, err := s.db.ExecContext(ctx, q, ref)
	return lds.StorageErr(errors.Wrapf(err, "deleting blob %s", ref), "sqlite3 delete")
}

// ListRefs produces all blob refs in the store, in lexicographic order.
func (s *Store) ListRefs(ctx context.Context, start lds.Ref, f func(lds.Ref) error) error {
	const q = `SELECT ref FROM blobs WHERE ref > $1 ORDER BY ref`
	return sqlutil.ForQueryRows(ctx, s.db, q, start, func(ref lds.Ref) error {
		return f(ref)
	})
}

// GetHead gets the current ref for the given name.
func (s *Store) GetHead(ctx context.Context, name string) (lds.Ref, error) {
	const q = `SELECT ref FROM heads WHERE name = $1`

	var result lds.Ref
	err := s.db.QueryRowContext(ctx, q, name).Scan(&result)
	if stderrs.Is(err, sql.ErrNoRows) {
		return lds.Zero, lds.ErrNotFound
	}
	return result, lds.StorageErr(errors.Wrapf(err, "getting head %s", name), "sqlite3 gethead")
}

// SwapHead sets the head for name to newRef if its current value is oldRef.
// Each case is a single conditional statement,
// so the database serializes competing swaps.
func (s *Store) SwapHead(ctx context.Context, name string, oldRef, newRef lds.Ref) error {
	var (
		res sql.Result
		err error
	)
	if oldRef.IsZero() {
		const q = `INSERT INTO heads (name, ref) VALUES ($1, $2) ON CONFLICT DO NOTHING`
		res, err = s.db.ExecContext(ctx, q, name, newRef)
	} else {
		const q = `UPDATE heads SET ref = $1 WHERE name = $2 AND ref = $3`
		res, err = s.db.ExecContext(ctx, q, newRef, name, oldRef)
	}
	if err != nil {
		return lds.StorageErr(errors.Wrapf(err, "swapping head %s", name), "sqlite3 swaphead")
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return lds.StorageErr(errors.Wrap(err, "counting affected rows"), "sqlite3 swaphead")
	}
	if aff == 0 {
		return lds.ErrConflict
	}
	return nil
}

// ListHeads lists all head names in the store, in lexicographic order.
func (s *Store) ListHeads(ctx context.Context, start string, f func(string, lds.Ref) error) error {
	const q = `SELECT name, ref FROM heads WHERE name > $1 ORDER BY name`
	return sqlutil.ForQueryRows(ctx, s.db, q, start, func(name string, ref lds.Ref) error {
		return f(name, ref)
	})
}

func init() {
	store.Register("sqlite3", func(ctx context.Context, conf map[string]interface{}) (lds.HeadStore, error) {
		conn, ok := conf["conn"].(string)
		if !ok {
			return nil, errors.New(`missing "conn" parameter`)
		}
		db, err := sql.Open("sqlite3", conn)
		if err != nil {
			return nil, errors.Wrap(err, "opening db")
		}
		db.SetMaxOpenConns(1)
		return New(ctx, db)
	})
}

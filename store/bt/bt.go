// Package bt implements a blob store on Google Cloud Bigtable.
package bt

import (
	"context"
	"fmt"
	"regexp"

	"cloud.google.com/go/bigtable"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/bobg/lds"
	"github.com/bobg/lds/store"
)

var _ lds.HeadStore = &Store{}

// Store is a Google Cloud Bigtable-backed implementation of lds.HeadStore.
// Its table must have the column families named by BlobFamily and HeadFamily.
type Store struct {
	t *bigtable.Table
}

// Column families.
const (
	BlobFamily = "blob"
	HeadFamily = "head"
)

const (
	blobcol = "blob"
	headcol = "ref"
)

// New produces a new Store.
func New(t *bigtable.Table) *Store {
	return &Store{t: t}
}

// Get implements lds.Getter.
func (s *Store) Get(ctx context.Context, ref lds.Ref) (lds.Blob, error) {
	row, err := s.t.ReadRow(ctx, blobKey(ref), bigtable.RowFilter(bigtable.LatestNFilter(1)))
	if err != nil {
		return nil, lds.StorageErr(errors.Wrapf(err, "reading row %s", ref), "get")
	}
	items := row[BlobFamily]
	if len(items) == 0 {
		return nil, lds.ErrNotFound
	}
	return lds.Blob(items[0].Value), nil
}

// ListRefs implements lds.Getter.
func (s *Store) ListRefs(ctx context.Context, start lds.Ref, f func(lds.Ref) error) error {
	var innerErr error
	rowFn := func(row bigtable.Row) bool {
		key := row.Key()
		ref, err := refFromKey(key)
		if err != nil {
			innerErr = errors.Wrapf(err, "extracting ref from key %s", key)
			return false
		}
		err = f(ref)
		if err != nil {
			innerErr = err
			return false
		}
		return true
	}
	startKey := blobKey(start) + "0"
	err := s.t.ReadRows(ctx, bigtable.NewRange(startKey, "b;"), rowFn, bigtable.RowFilter(bigtable.StripValueFilter()))
	if err != nil {
		return lds.StorageErr(err, "listing refs")
	}
	return innerErr
}

// Put implements lds.Store.
func (s *Store) Put(ctx context.Context, blob lds.Blob) (lds.Ref, bool, error) {
	mut := bigtable.NewMutation()
	mut.Set(BlobFamily, blobcol, bigtable.Now(), blob)

	cmut := bigtable.NewCondMutation(bigtable.LatestNFilter(1), nil, mut)

	var alreadyPresent bool
	ref := blob.Ref()
	err := s.t.Apply(ctx, blobKey(ref), cmut, bigtable.GetCondMutationResult(&alreadyPresent))
	if err != nil {
		return lds.Zero, false, lds.StorageErr(errors.Wrapf(err, "writing row %s", ref), "put")
	}
	return ref, !alreadyPresent, nil
}

// Delete implements lds.Deleter.
func (s *Store) Delete(ctx context.Context, ref lds.Ref) error {
	mut := bigtable.NewMutation()
	mut.DeleteRow()
	err := s.t.Apply(ctx, blobKey(ref), mut)
	return lds.StorageErr(errors.Wrapf(err, "deleting row %s", ref), "delete")
}

// GetHead implements lds.HeadStore.
func (s *Store) GetHead(ctx context.Context, name string) (lds.Ref, error) {
	row, err := s.t.ReadRow(ctx, headKey(name), bigtable.RowFilter(bigtable.LatestNFilter(1)))
	if err != nil {
		return lds.Zero, lds.StorageErr(errors.Wrapf(err, "reading head %s", name), "get head")
	}
	items := row[HeadFamily]
	if len(items) == 0 {
		return lds.Zero, lds.ErrNotFound
	}
	return lds.RefFromHex(string(items[0].Value))
}

// SwapHead implements lds.HeadStore.
// The comparison and the write are one conditional mutation.
func (s *Store) SwapHead(ctx context.Context, name string, oldRef, newRef lds.Ref) error {
	mut := bigtable.NewMutation()
	mut.DeleteCellsInColumn(HeadFamily, headcol)
	mut.Set(HeadFamily, headcol, bigtable.Now(), []byte(newRef.Hex()))

	var (
		cmut    *bigtable.Mutation
		want    bool
		matched bool
	)
	if oldRef.IsZero() {
		cmut = bigtable.NewCondMutation(bigtable.FamilyFilter(HeadFamily), nil, mut)
	} else {
		filter := bigtable.ChainFilters(
			bigtable.FamilyFilter(HeadFamily),
			bigtable.ColumnFilter(headcol),
			bigtable.LatestNFilter(1),
			bigtable.ValueFilter("^"+regexp.QuoteMeta(oldRef.Hex())+"$"),
		)
		cmut = bigtable.NewCondMutation(filter, mut, nil)
		want = true
	}

	err := s.t.Apply(ctx, headKey(name), cmut, bigtable.GetCondMutationResult(&matched))
	if err != nil {
		return lds.StorageErr(errors.Wrapf(err, "writing head %s", name), "swap head")
	}
	if matched != want {
		return errors.Wrapf(lds.ErrConflict, "head %s", name)
	}
	return nil
}

// ListHeads implements lds.HeadStore.
func (s *Store) ListHeads(ctx context.Context, start string, f func(string, lds.Ref) error) error {
	var innerErr error
	rowFn := func(row bigtable.Row) bool {
		key := row.Key()
		items := row[HeadFamily]
		if len(items) == 0 {
			return true
		}
		ref, err := lds.RefFromHex(string(items[0].Value))
		if err != nil {
			innerErr = errors.Wrapf(err, "parsing head %s", key)
			return false
		}
		err = f(key[2:], ref)
		if err != nil {
			innerErr = err
			return false
		}
		return true
	}
	err := s.t.ReadRows(ctx, bigtable.NewRange(headKey(start)+"\x00", "h;"), rowFn, bigtable.RowFilter(bigtable.LatestNFilter(1)))
	if err != nil {
		return lds.StorageErr(err, "listing heads")
	}
	return innerErr
}

func blobKey(ref lds.Ref) string {
	return fmt.Sprintf("b:%x", ref[:])
}

func refFromKey(key string) (lds.Ref, error) {
	return lds.RefFromHex(key[2:])
}

func headKey(name string) string {
	return "h:" + name
}

func init() {
	store.Register("bt", func(ctx context.Context, conf map[string]interface{}) (lds.HeadStore, error) {
		project, ok := conf["project"].(string)
		if !ok {
			return nil, errors.New(`missing "project" parameter`)
		}
		instance, ok := conf["instance"].(string)
		if !ok {
			return nil, errors.New(`missing "instance" parameter`)
		}
		table, ok := conf["table"].(string)
		if !ok {
			return nil, errors.New(`missing "table" parameter`)
		}

		var options []option.ClientOption

		creds, ok := conf["creds"].(string)
		if !ok {
			return nil, errors.New(`missing "creds" parameter`)
		}
		options = append(options, option.WithCredentialsFile(creds))
		c, err := bigtable.NewClient(ctx, project, instance, options...)
		if err != nil {
			return nil, errors.Wrap(err, "creating bigtable client")
		}
		t := c.Open(table)
		return New(t), nil
	})
}

// Package lru implements a blob store that acts as a least-recently-used cache for a nested blob store.
package lru

import (
	"context"
	"encoding/json"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/bobg/lds"
	"github.com/bobg/lds/store"
)

var _ lds.HeadStore = &Store{}

// Store implements a memory-based least-recently-used cache for a blob store.
// It caches only blobs, not heads:
// a head can change underneath the cache,
// but a blob's content never changes.
// Writes pass through to the underlying blob store.
type Store struct {
	c *lru.Cache // Ref->Blob
	s lds.HeadStore
}

// New produces a new Store backed by `s` and caching up to `size` blobs.
func New(s lds.HeadStore, size int) (*Store, error) {
	c, err := lru.New(size)
	return &Store{s: s, c: c}, err
}

// Get gets the blob with hash `ref`.
func (s *Store) Get(ctx context.Context, ref lds.Ref) (lds.Blob, error) {
	if got, ok := s.c.Get(ref); ok {
		return got.(lds.Blob), nil
	}
	blob, err := s.s.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	s.c.Add(ref, blob)
	return blob, nil
}

// Put adds a blob to the store if it wasn't already present.
func (s *Store) Put(ctx context.Context, b lds.Blob) (lds.Ref, bool, error) {
	ref, added, err := s.s.Put(ctx, b)
	if err != nil {
		return ref, added, err
	}
	s.c.Add(ref, b)
	return ref, added, nil
}

// Delete removes the blob with hash `ref` from the cache and from the nested store.
// The nested store must implement lds.Deleter.
func (s *Store) Delete(ctx context.Context, ref lds.Ref) error {
	s.c.Remove(ref)
	d, ok := s.s.(lds.Deleter)
	if !ok {
		return errors.Errorf("nested %T does not support deletion", s.s)
	}
	return d.Delete(ctx, ref)
}

// ListRefs produces all blob refs in the store, in lexicographic order.
func (s *Store) ListRefs(ctx context.Context, start lds.Ref, f func(lds.Ref) error) error {
	return s.s.ListRefs(ctx, start, f)
}

// GetHead implements lds.HeadStore.
func (s *Store) GetHead(ctx context.Context, name string) (lds.Ref, error) {
	return s.s.GetHead(ctx, name)
}

// SwapHead implements lds.HeadStore.
func (s *Store) SwapHead(ctx context.Context, name string, oldRef, newRef lds.Ref) error {
	return s.s.SwapHead(ctx, name, oldRef, newRef)
}

// ListHeads implements lds.HeadStore.
func (s *Store) ListHeads(ctx context.Context, start string, f func(string, lds.Ref) error) error {
	return s.s.ListHeads(ctx, start, f)
}

// Len tells how many blobs are in the cache.
func (s *Store) Len() int {
	return s.c.Len()
}

func confInt(v interface{}) (int, bool) {
	switch v := v.(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	}
	return 0, false
}

func init() {
	store.Register("lru", func(ctx context.Context, conf map[string]interface{}) (lds.HeadStore, error) {
		size, ok := confInt(conf["size"])
		if !ok {
			return nil, errors.New(`missing "size" parameter`)
		}
		nested, ok := conf["nested"].(map[string]interface{})
		if !ok {
			return nil, errors.New(`missing "nested" parameter`)
		}
		nestedType, ok := nested["type"].(string)
		if !ok {
			return nil, errors.New(`"nested" parameter missing "type"`)
		}
		nestedStore, err := store.Create(ctx, nestedType, nested)
		if err != nil {
			return nil, errors.Wrap(err, "creating nested store")
		}
		return New(nestedStore, size)
	})
}

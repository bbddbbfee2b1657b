// Package mem implements an in-memory blob store.
package mem

import (
	"context"
	"sort"
	"sync"

	"github.com/bobg/lds"
	"github.com/bobg/lds/store"
)

var _ lds.HeadStore = &Store{}

// Store is a memory-based implementation of a blob store.
type Store struct {
	mu    sync.Mutex
	blobs map[lds.Ref]lds.Blob
	heads map[string]lds.Ref
}

// New produces a new Store.
func New() *Store {
	return &Store{
		blobs: make(map[lds.Ref]lds.Blob),
		heads: make(map[string]lds.Ref),
	}
}

// Get gets the blob with hash `ref`.
func (s *Store) Get(_ context.Context, ref lds.Ref) (lds.Blob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.blobs[ref]; ok {
		return b, nil
	}
	return nil, lds.ErrNotFound
}

// Put adds a blob to the store if it wasn't already present.
func (s *Store) Put(_ context.Context, b lds.Blob) (lds.Ref, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var added bool

	r := b.Ref()
	if _, ok := s.blobs[r]; !ok {
		s.blobs[r] = append(lds.Blob(nil), b...)
		added = true
	}

	return r, added, nil
}

// Delete removes the blob with hash `ref`.
// It is not an error if there is none.
func (s *Store) Delete(_ context.Context, ref lds.Ref) error {
	s.mu.Lock()
	delete(s.blobs, ref)
	s.mu.Unlock()
	return nil
}

// GetHead gets the current ref for the given name.
func (s *Store) GetHead(_ context.Context, name string) (lds.Ref, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ref, ok := s.heads[name]; ok {
		return ref, nil
	}
	return lds.Zero, lds.ErrNotFound
}

// SwapHead sets the head for name to newRef if its current value is oldRef.
func (s *Store) SwapHead(_ context.Context, name string, oldRef, newRef lds.Ref) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.heads[name] != oldRef {
		return lds.ErrConflict
	}
	s.heads[name] = newRef
	return nil
}

// ListRefs produces all blob refs in the store, in lexicographic order.
func (s *Store) ListRefs(ctx context.Context, start lds.Ref, f func(lds.Ref) error) error {
	s.mu.Lock()
	refs := make([]lds.Ref, 0, len(s.blobs))
	for ref := range s.blobs {
		refs = append(refs, ref)
	}
	s.mu.Unlock()

	sort.Slice(refs, func(i, j int) bool { return refs[i].Less(refs[j]) })
	index := sort.Search(len(refs), func(n int) bool {
		return start.Less(refs[n])
	})

	for i := index; i < len(refs); i++ {
		err := f(refs[i])
		if err != nil {
			return err
		}
	}
	return nil
}

// ListHeads lists all head names in the store, in lexicographic order.
func (s *Store) ListHeads(ctx context.Context, start string, f func(string, lds.Ref) error) error {
	s.mu.Lock()
	names := make([]string, 0, len(s.heads))
	for name := range s.heads {
		names = append(names, name)
	}
	s.mu.Unlock()

	sort.Strings(names)
	index := sort.Search(len(names), func(n int) bool {
		return names[n] > start
	})

	for i := index; i < len(names); i++ {
		name := names[i]
		s.mu.Lock()
		ref := s.heads[name]
		s.mu.Unlock()
		err := f(name, ref)
		if err != nil {
			return err
		}
	}
	return nil
}

func init() {
	store.Register("mem", func(context.Context, map[string]interface{}) (lds.HeadStore, error) {
		return New(), nil
	})
}

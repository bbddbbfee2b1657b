// Package version keeps a linear history of canonical graphs for each resource URI.
//
// Every write produces an immutable version record,
// stored as a blob in an lds.HeadStore and chained to its predecessor.
// The store's head for the URI names the newest record.
// Advancing the head is a compare-and-swap,
// so two writers that read the same head cannot both win:
// Put re-reads and re-parents its record when it loses,
// while PutIf reports lds.ErrConflict and leaves the decision to its caller.
package version

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/bobg/lds"
	"github.com/bobg/lds/canon"
	"github.com/bobg/lds/rdf"
	"github.com/bobg/lds/split"
)

// Version is one immutable snapshot of a URI's content.
type Version struct {
	URI string

	// Hash is the ref of the canonical bytes.
	// It is the version's identity.
	Hash lds.Ref

	// Parent is the Hash of the preceding version,
	// or lds.Zero for the first version.
	Parent lds.Ref

	// Prev is the ref of the preceding version record,
	// or lds.Zero for the first version.
	Prev lds.Ref

	// Content is the ref under which the canonical bytes are stored.
	// It equals Hash unless Chunked is true,
	// in which case it is the root of a split tree.
	Content lds.Ref
	Chunked bool

	Time time.Time

	// Ref is the ref of this record.
	// It is not stored in the record.
	Ref lds.Ref
}

// DefaultChunkThreshold is the canonical-form size
// at or above which content is stored as a split tree.
const DefaultChunkThreshold = 64 * 1024

// Store is a version store.
type Store struct {
	hs             lds.HeadStore
	canon          canon.Canonicalizer
	chunkThreshold int
	now            func() time.Time
}

// Option is the type of an option that can be passed to New.
type Option func(*Store)

// WithCanonicalizer sets the canonicalizer,
// and so the bounds on canonicalization.
func WithCanonicalizer(c canon.Canonicalizer) Option {
	return func(s *Store) {
		s.canon = c
	}
}

// WithChunkThreshold sets the size at or above which canonical bytes are split into chunks.
// Zero or a negative number disables chunking.
func WithChunkThreshold(n int) Option {
	return func(s *Store) {
		s.chunkThreshold = n
	}
}

// WithClock sets the source of version timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New produces a new Store on top of hs.
func New(hs lds.HeadStore, opts ...Option) *Store {
	s := &Store{
		hs:             hs,
		chunkThreshold: DefaultChunkThreshold,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HeadStore returns the underlying head store.
func (s *Store) HeadStore() lds.HeadStore {
	return s.hs
}

// Put stores g as the newest version of uri and returns its hash.
// If another writer advances the head first,
// Put retries on top of the other writer's version,
// so no version is lost from the history,
// though the other writer's content is not merged into g.
func (s *Store) Put(ctx context.Context, uri string, g rdf.Graph) (lds.Ref, error) {
	b, err := s.canon.Canonicalize(g)
	if err != nil {
		return lds.Zero, err
	}
	return s.put(ctx, uri, b, nil)
}

// PutIf is like Put,
// but it stores g only if the hash of uri's current version is expectedParent.
// An expectedParent of lds.Zero means uri must have no versions yet.
// Otherwise it returns lds.ErrConflict.
func (s *Store) PutIf(ctx context.Context, uri string, g rdf.Graph, expectedParent lds.Ref) (lds.Ref, error) {
	b, err := s.canon.Canonicalize(g)
	if err != nil {
		return lds.Zero, err
	}
	return s.put(ctx, uri, b, &expectedParent)
}

func (s *Store) put(ctx context.Context, uri string, canonical []byte, expectedParent *lds.Ref) (lds.Ref, error) {
	hash, content, chunked, err := s.storeContent(ctx, canonical)
	if err != nil {
		return lds.Zero, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return lds.Zero, err
		}

		head, err := s.Head(ctx, uri)
		if errors.Is(err, lds.ErrNotFound) {
			head = nil
		} else if err != nil {
			return lds.Zero, errors.Wrapf(err, "getting head of %s", uri)
		}

		v := &Version{
			URI:     uri,
			Hash:    hash,
			Content: content,
			Chunked: chunked,
			Time:    s.now(),
		}
		if head != nil {
			v.Parent = head.Hash
			v.Prev = head.Ref
		}
		if expectedParent != nil && v.Parent != *expectedParent {
			return lds.Zero, errors.Wrapf(lds.ErrConflict, "%s has moved past %s", uri, *expectedParent)
		}

		rec, err := v.Marshal()
		if err != nil {
			return lds.Zero, errors.Wrap(err, "encoding version record")
		}
		recRef, _, err := s.hs.Put(ctx, rec)
		if err != nil {
			return lds.Zero, errors.Wrap(err, "storing version record")
		}

		err = s.hs.SwapHead(ctx, uri, v.Prev, recRef)
		if errors.Is(err, lds.ErrConflict) {
			if expectedParent != nil {
				return lds.Zero, errors.Wrapf(err, "advancing head of %s", uri)
			}
			continue
		}
		if err != nil {
			return lds.Zero, errors.Wrapf(err, "advancing head of %s", uri)
		}
		return hash, nil
	}
}

// Stores canonical bytes, returning their hash and the ref they are stored under.
func (s *Store) storeContent(ctx context.Context, canonical []byte) (hash, content lds.Ref, chunked bool, err error) {
	hash = lds.Blob(canonical).Ref()
	if s.chunkThreshold > 0 && len(canonical) >= s.chunkThreshold {
		content, err = split.Write(ctx, s.hs, canonical)
		return hash, content, true, errors.Wrap(err, "storing chunked content")
	}
	content, _, err = s.hs.Put(ctx, canonical)
	return hash, content, false, errors.Wrap(err, "storing content")
}

// Record loads the version record with the given ref.
func (s *Store) Record(ctx context.Context, ref lds.Ref) (*Version, error) {
	b, err := s.hs.Get(ctx, ref)
	if err != nil {
		return nil, errors.Wrapf(err, "getting version record %s", ref)
	}
	v := new(Version)
	if err = v.Unmarshal(b); err != nil {
		return nil, lds.StorageErr(errors.Wrapf(err, "decoding version record %s", ref), "version record")
	}
	v.Ref = ref
	return v, nil
}

// Head returns the newest version of uri.
// It returns lds.ErrNotFound if uri has no versions.
func (s *Store) Head(ctx context.Context, uri string) (*Version, error) {
	ref, err := s.hs.GetHead(ctx, uri)
	if err != nil {
		return nil, err
	}
	return s.Record(ctx, ref)
}

// Bytes returns the canonical bytes of v.
func (s *Store) Bytes(ctx context.Context, v *Version) ([]byte, error) {
	var (
		b   []byte
		err error
	)
	if v.Chunked {
		b, err = split.ReadAll(ctx, s.hs, v.Content)
	} else {
		b, err = s.hs.Get(ctx, v.Content)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "getting content of %s at %s", v.URI, v.Hash)
	}
	if lds.Blob(b).Ref() != v.Hash {
		return nil, lds.StorageErr(errors.Errorf("content of %s does not match hash %s", v.URI, v.Hash), "version content")
	}
	return b, nil
}

// Graph returns the graph of v.
func (s *Store) Graph(ctx context.Context, v *Version) (rdf.Graph, error) {
	b, err := s.Bytes(ctx, v)
	if err != nil {
		return nil, err
	}
	return canon.Decanonicalize(b)
}

// Get returns the graph of the newest version of uri.
// It returns lds.ErrNotFound if uri has no versions.
func (s *Store) Get(ctx context.Context, uri string) (rdf.Graph, error) {
	v, err := s.Head(ctx, uri)
	if err != nil {
		return nil, err
	}
	return s.Graph(ctx, v)
}

// GetBytes returns the canonical bytes of the newest version of uri.
func (s *Store) GetBytes(ctx context.Context, uri string) ([]byte, error) {
	v, err := s.Head(ctx, uri)
	if err != nil {
		return nil, err
	}
	return s.Bytes(ctx, v)
}

// Find returns the version of uri with the given hash.
// If the same content was written more than once,
// the newest such version is returned.
// It returns lds.ErrNotFound if no version of uri has that hash.
func (s *Store) Find(ctx context.Context, uri string, hash lds.Ref) (*Version, error) {
	var found *Version
	err := s.walk(ctx, uri, func(v *Version) (bool, error) {
		if v.Hash == hash {
			found = v
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, errors.Wrapf(lds.ErrNotFound, "no version of %s has hash %s", uri, hash)
	}
	return found, nil
}

// GetAt returns the graph of the version of uri with the given hash,
// whether or not it is the newest.
func (s *Store) GetAt(ctx context.Context, uri string, hash lds.Ref) (rdf.Graph, error) {
	v, err := s.Find(ctx, uri, hash)
	if err != nil {
		return nil, err
	}
	return s.Graph(ctx, v)
}

// History returns the versions of uri, oldest first.
// It returns lds.ErrNotFound if uri has no versions.
func (s *Store) History(ctx context.Context, uri string) ([]*Version, error) {
	var result []*Version
	err := s.walk(ctx, uri, func(v *Version) (bool, error) {
		result = append(result, v)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result, nil
}

// Calls f on each version of uri, newest first,
// until f returns false or an error.
func (s *Store) walk(ctx context.Context, uri string, f func(*Version) (bool, error)) error {
	v, err := s.Head(ctx, uri)
	if err != nil {
		return err
	}
	for {
		ok, err := f(v)
		if err != nil || !ok {
			return err
		}
		if v.IsFirst() {
			return nil
		}
		prev, err := s.Record(ctx, v.Prev)
		if err != nil {
			return errors.Wrapf(err, "following history of %s", uri)
		}
		if prev.URI != uri || prev.Hash != v.Parent {
			return lds.StorageErr(errors.Errorf("version record %s does not continue the history of %s", v.Prev, uri), "version history")
		}
		v = prev
	}
}

// List calls f with the newest version of each URI in the store,
// in lexicographic URI order,
// beginning with the first URI after start.
func (s *Store) List(ctx context.Context, start string, f func(*Version) error) error {
	return s.hs.ListHeads(ctx, start, func(uri string, ref lds.Ref) error {
		v, err := s.Record(ctx, ref)
		if err != nil {
			return err
		}
		return f(v)
	})
}

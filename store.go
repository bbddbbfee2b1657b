package lds

import (
	"context"
)

// Getter is a read-only Store (qv).
type Getter interface {
	// Get gets a blob by its ref.
	Get(context.Context, Ref) (Blob, error)

	// ListRefs calls a function for each blob ref in the store in lexicographic order,
	// beginning with the first ref _after_ the specified one.
	//
	// The calls reflect at least the set of refs
	// known at the moment ListRefs was called.
	// It is unspecified whether later changes,
	// that happen concurrently with ListRefs,
	// are reflected.
	//
	// If the callback function returns an error,
	// ListRefs exits with that error.
	ListRefs(context.Context, Ref, func(r Ref) error) error
}

// Store is a blob store.
// It stores byte sequences - "blobs" - of arbitrary length.
// Each blob can be retrieved using its "ref" as a lookup key.
// A ref is simply the SHA2-256 hash of the blob's content.
type Store interface {
	Getter

	// Put adds b to the store if it was not already present.
	// It returns b's ref and a boolean that is true iff the blob had to be added.
	Put(ctx context.Context, b Blob) (ref Ref, added bool, err error)
}

// HeadStore is a Store that also keeps one mutable pointer, or "head," per name.
// The version package uses the name of a resource (its URI) as the head name,
// and the ref of the newest version record as the head value.
type HeadStore interface {
	Store

	// GetHead returns the current ref for the given name.
	// It returns ErrNotFound if the name has no head.
	GetHead(ctx context.Context, name string) (Ref, error)

	// SwapHead sets the head for name to newRef,
	// but only if its current value is oldRef.
	// An oldRef of Zero means the name must not have a head yet.
	// If the current value differs, SwapHead returns ErrConflict and changes nothing.
	SwapHead(ctx context.Context, name string, oldRef, newRef Ref) error

	// ListHeads calls a function for each name in the store that has a head,
	// in lexicographic order,
	// beginning with the first name _after_ start.
	ListHeads(ctx context.Context, start string, f func(name string, ref Ref) error) error
}

// Deleter is implemented by stores from which blobs can be removed.
// Deleting a missing blob is not an error.
// Nothing but garbage collection should delete:
// a version whose blobs are gone cannot be read.
type Deleter interface {
	Delete(ctx context.Context, ref Ref) error
}

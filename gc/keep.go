package gc

import (
	"context"

	"github.com/pkg/errors"

	"github.com/bobg/lds"
	"github.com/bobg/lds/split"
	"github.com/bobg/lds/version"
)

// Keep is a set of refs to protect from garbage collection.
type Keep interface {
	// Add adds a single ref to the Keep.
	// It returns true if it was newly added and false if it was already present.
	Add(context.Context, lds.Ref) (bool, error)

	// Contains tells whether a ref is in the Keep.
	Contains(context.Context, lds.Ref) (bool, error)
}

// MemKeep is an in-memory Keep.
type MemKeep map[lds.Ref]struct{}

// Add implements Keep.
func (k MemKeep) Add(_ context.Context, ref lds.Ref) (bool, error) {
	if _, ok := k[ref]; ok {
		return false, nil
	}
	k[ref] = struct{}{}
	return true, nil
}

// Contains implements Keep.
func (k MemKeep) Contains(_ context.Context, ref lds.Ref) (bool, error) {
	_, ok := k[ref]
	return ok, nil
}

// AddVersion adds to k the refs of v's record and its content.
// Chunked content adds every node and chunk of its tree.
func AddVersion(ctx context.Context, k Keep, g lds.Getter, v *version.Version) error {
	if _, err := k.Add(ctx, v.Ref); err != nil {
		return errors.Wrapf(err, "adding %s", v.Ref)
	}
	if !v.Chunked {
		_, err := k.Add(ctx, v.Content)
		return errors.Wrapf(err, "adding %s", v.Content)
	}
	added, err := k.Add(ctx, v.Content)
	if err != nil {
		return errors.Wrapf(err, "adding %s", v.Content)
	}
	if !added {
		// Another version has the same content.
		return nil
	}
	return split.Refs(ctx, g, v.Content, func(ref lds.Ref) error {
		_, err := k.Add(ctx, ref)
		return err
	})
}

// AddAll adds to k everything reachable from the heads of vs:
// every version of every URI,
// with its content.
func AddAll(ctx context.Context, k Keep, vs *version.Store) error {
	g := vs.HeadStore()
	return vs.List(ctx, "", func(head *version.Version) error {
		hist, err := vs.History(ctx, head.URI)
		if err != nil {
			return errors.Wrapf(err, "getting history of %s", head.URI)
		}
		for _, v := range hist {
			if err = AddVersion(ctx, k, g, v); err != nil {
				return errors.Wrapf(err, "keeping %s at %s", v.URI, v.Hash)
			}
		}
		return nil
	})
}

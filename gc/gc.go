// Package gc removes blobs that no resource version can reach.
//
// Blobs become unreachable when a writer stores a version record
// and then loses the race to advance the head,
// or when content is stored for a write that fails later.
package gc

import (
	"context"

	"github.com/pkg/errors"

	"github.com/bobg/lds"
)

// Store is a blob store from which blobs can be deleted.
type Store interface {
	lds.Getter
	lds.Deleter
}

// Run runs a garbage collection on s,
// with k the set of refs to keep.
// It returns the number of blobs deleted.
//
// Run must not overlap with writes to s.
// A blob stored for a version whose head has not yet advanced
// is not reachable and would be deleted.
func Run(ctx context.Context, s Store, k Keep) (int, error) {
	var doomed []lds.Ref
	err := s.ListRefs(ctx, lds.Zero, func(ref lds.Ref) error {
		found, err := k.Contains(ctx, ref)
		if err != nil {
			return err
		}
		if !found {
			doomed = append(doomed, ref)
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "listing refs")
	}

	for i, ref := range doomed {
		if err = s.Delete(ctx, ref); err != nil {
			return i, errors.Wrapf(err, "deleting %s", ref)
		}
	}
	return len(doomed), nil
}

package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/bobg/lds"
)

// Deletable is a store that testutil.Delete can exercise.
type Deletable interface {
	lds.Store
	lds.Deleter
}

// Delete checks that a deleted blob is gone,
// that its neighbors are not,
// and that deleting it again is not an error.
func Delete(ctx context.Context, t *testing.T, s Deletable) {
	var refs []lds.Ref
	for _, b := range []string{"keep 1", "doomed", "keep 2"} {
		ref, _, err := s.Put(ctx, lds.Blob(b))
		if err != nil {
			t.Fatal(err)
		}
		refs = append(refs, ref)
	}

	if err := s.Delete(ctx, refs[1]); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, refs[1]); !errors.Is(err, lds.ErrNotFound) {
		t.Errorf("got error %v after deleting, want ErrNotFound", err)
	}
	for _, i := range []int{0, 2} {
		if _, err := s.Get(ctx, refs[i]); err != nil {
			t.Errorf("getting undeleted blob %d: %s", i, err)
		}
	}

	err := s.ListRefs(ctx, lds.Zero, func(ref lds.Ref) error {
		if ref == refs[1] {
			t.Errorf("deleted ref %s still listed", ref)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Delete(ctx, refs[1]); err != nil {
		t.Errorf("deleting twice: %s", err)
	}
}

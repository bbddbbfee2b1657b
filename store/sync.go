package store

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/bobg/lds"
)

// Sync synchronizes the blobs of two or more stores.
// It runs ListRefs on all input stores.
// When a ref is found to be in some but not all stores,
// its blob is added to the stores where it's missing.
func Sync(ctx context.Context, stores []lds.Store) error {
	if len(stores) < 2 {
		return nil
	}

	type tuple struct {
		s   lds.Store
		ch  <-chan lds.Ref
		ref *lds.Ref // nil at end of input
	}

	ctx2, cancel := context.WithCancel(ctx)
	eg, ctx2 := errgroup.WithContext(ctx2)
	defer func() {
		cancel()
		eg.Wait()
	}()

	tuples := make([]*tuple, 0, len(stores))
	for _, s := range stores {
		s := s
		ch := make(chan lds.Ref)
		eg.Go(func() error {
			defer close(ch)
			return s.ListRefs(ctx2, lds.Zero, func(ref lds.Ref) error {
				select {
				case <-ctx2.Done():
					return ctx2.Err()
				case ch <- ref:
				}
				return nil
			})
		})
		tuples = append(tuples, &tuple{s: s, ch: ch})
	}

	advance := func(tup *tuple) {
		if ref, ok := <-tup.ch; ok {
			tup.ref = &ref
		} else {
			tup.ref = nil
		}
	}
	for _, tup := range tuples {
		advance(tup)
	}

	for {
		sort.Slice(tuples, func(i, j int) bool {
			ri := tuples[i].ref
			rj := tuples[j].ref
			if ri != nil {
				if rj != nil {
					return ri.Less(*rj)
				}
				return true
			}
			return false
		})

		if tuples[0].ref == nil {
			// We've reached the end of input on all channels.
			break
		}

		ref := *(tuples[0].ref)

		i := 1
		for i < len(tuples) && tuples[i].ref != nil && *(tuples[i].ref) == ref {
			i++
		}
		havers, needers := tuples[:i], tuples[i:]

		if len(needers) > 0 {
			blob, err := havers[0].s.Get(ctx, ref)
			if err != nil {
				return errors.Wrapf(err, "getting blob for %s", ref)
			}
			for _, tup := range needers {
				if _, _, err = tup.s.Put(ctx, blob); err != nil {
					return errors.Wrapf(err, "storing blob for %s", ref)
				}
			}
		}

		for _, tup := range havers {
			advance(tup)
		}
	}

	return eg.Wait()
}

// SyncHeads copies the heads of src that dst lacks into dst.
// It should follow a Sync that gave dst the blobs those heads refer to.
// A head present in both stores with different refs is left alone
// and reported in the resulting lds.MultiErr as an lds.ErrConflict.
func SyncHeads(ctx context.Context, dst, src lds.HeadStore) error {
	errs := make(lds.MultiErr)
	err := src.ListHeads(ctx, "", func(name string, ref lds.Ref) error {
		err := dst.SwapHead(ctx, name, lds.Zero, ref)
		if !errors.Is(err, lds.ErrConflict) {
			return errors.Wrapf(err, "copying head %s", name)
		}
		cur, err := dst.GetHead(ctx, name)
		if err != nil {
			return errors.Wrapf(err, "getting head %s", name)
		}
		if cur != ref {
			errs[name] = errors.Wrapf(lds.ErrConflict, "head is %s in one store and %s in the other", cur, ref)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

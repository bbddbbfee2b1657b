package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/lds"
)

// Heads tests the head operations of a HeadStore.
// The store must have no heads to begin with.
func Heads(ctx context.Context, t *testing.T, store lds.HeadStore) {
	var (
		n1 = "https://example.org/a"
		n2 = "https://example.org/b"
		n3 = "https://example.org/c"

		r1a = lds.Ref{0x1a}
		r1b = lds.Ref{0x1b}
		r2  = lds.Ref{0x2}
	)

	if _, err := store.GetHead(ctx, n1); !errors.Is(err, lds.ErrNotFound) {
		t.Fatalf("got error %v, want ErrNotFound", err)
	}

	steps := []struct {
		name         string
		oldRef, newR lds.Ref
		wantErr      error
	}{
		{name: n1, oldRef: lds.Zero, newR: r1a},
		{name: n1, oldRef: lds.Zero, newR: r1b, wantErr: lds.ErrConflict},
		{name: n1, oldRef: r2, newR: r1b, wantErr: lds.ErrConflict},
		{name: n1, oldRef: r1a, newR: r1b},
		{name: n2, oldRef: lds.Zero, newR: r2},
		{name: n3, oldRef: r1a, newR: r2, wantErr: lds.ErrConflict},
	}

	for i, s := range steps {
		t.Run(fmt.Sprintf("case_%02d", i+1), func(t *testing.T) {
			err := store.SwapHead(ctx, s.name, s.oldRef, s.newR)
			if s.wantErr != nil {
				if !errors.Is(err, s.wantErr) {
					t.Fatalf("got error %v, want %v", err, s.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
		})
	}

	got, err := store.GetHead(ctx, n1)
	if err != nil {
		t.Fatal(err)
	}
	if got != r1b {
		t.Errorf("got head %s, want %s", got, r1b)
	}
	if _, err := store.GetHead(ctx, n3); !errors.Is(err, lds.ErrNotFound) {
		t.Errorf("got error %v for a name whose only swap failed, want ErrNotFound", err)
	}

	type pair struct {
		Name string
		Ref  lds.Ref
	}
	var pairs []pair
	err = store.ListHeads(ctx, "", func(name string, ref lds.Ref) error {
		pairs = append(pairs, pair{Name: name, Ref: ref})
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]pair{{n1, r1b}, {n2, r2}}, pairs); diff != "" {
		t.Errorf("ListHeads mismatch (-want +got):\n%s", diff)
	}

	pairs = nil
	err = store.ListHeads(ctx, n1, func(name string, ref lds.Ref) error {
		pairs = append(pairs, pair{Name: name, Ref: ref})
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]pair{{n2, r2}}, pairs); diff != "" {
		t.Errorf("ListHeads after %s mismatch (-want +got):\n%s", n1, diff)
	}

	concurrentSwaps(ctx, t, store)
}

// Many goroutines race to advance one head.
// Each swap that succeeds must have seen the value the previous winner wrote,
// so the winners form a single chain.
func concurrentSwaps(ctx context.Context, t *testing.T, store lds.HeadStore) {
	const (
		name    = "https://example.org/contended"
		workers = 8
		each    = 10
	)

	var (
		mu   sync.Mutex
		next = make(map[lds.Ref]lds.Ref) // old -> new, for each successful swap
		wg   sync.WaitGroup
	)

	for w := 0; w < workers; w++ {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				newRef := lds.Blob(fmt.Sprintf("%d-%d", w, i)).Ref()
				for {
					cur, err := store.GetHead(ctx, name)
					if errors.Is(err, lds.ErrNotFound) {
						cur = lds.Zero
					} else if err != nil {
						t.Error(err)
						return
					}
					err = store.SwapHead(ctx, name, cur, newRef)
					if errors.Is(err, lds.ErrConflict) {
						continue
					}
					if err != nil {
						t.Error(err)
						return
					}
					mu.Lock()
					if _, ok := next[cur]; ok {
						t.Errorf("two swaps succeeded from %s", cur)
					}
					next[cur] = newRef
					mu.Unlock()
					break
				}
			}
		}()
	}
	wg.Wait()

	if len(next) != workers*each {
		t.Fatalf("got %d successful swaps, want %d", len(next), workers*each)
	}

	final, err := store.GetHead(ctx, name)
	if err != nil {
		t.Fatal(err)
	}
	var (
		ref   = lds.Zero
		steps int
	)
	for ref != final {
		nxt, ok := next[ref]
		if !ok {
			t.Fatalf("chain broken after %d steps", steps)
		}
		ref = nxt
		steps++
	}
	if steps != workers*each {
		t.Errorf("chain has %d steps, want %d", steps, workers*each)
	}
}

package testutil

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/bobg/lds"
	"github.com/bobg/lds/split"
)

// Data produces a deterministic pseudorandom test payload.
func Data(t *testing.T) []byte {
	t.Helper()
	data := make([]byte, 512*1024)
	if _, err := rand.New(rand.NewSource(1)).Read(data); err != nil {
		t.Fatal(err)
	}
	return data
}

// ReadWrite permits testing a Store implementation
// by split-writing some data to it,
// then reading it back out to make sure it's the same.
// It also checks that Put is idempotent
// and that a missing blob produces lds.ErrNotFound.
func ReadWrite(ctx context.Context, t *testing.T, store lds.Store, data []byte) {
	t1 := time.Now()
	ref, err := split.Write(ctx, store, data)
	if err != nil {
		t.Fatal(err)
	}
	t.Logf("wrote %d bytes in %s", len(data), time.Since(t1))

	t2 := time.Now()
	got, err := split.ReadAll(ctx, store, ref)
	if err != nil {
		t.Fatal(err)
	}
	t.Logf("read %d bytes in %s", len(got), time.Since(t2))

	if len(got) != len(data) {
		t.Errorf("got length %d, want %d", len(got), len(data))
	} else {
		for i := 0; i < len(got); i++ {
			if got[i] != data[i] {
				t.Fatalf("mismatch at position %d (of %d)", i, len(got))
			}
		}
	}

	blob := lds.Blob("the quick brown fox")
	ref1, added, err := store.Put(ctx, blob)
	if err != nil {
		t.Fatal(err)
	}
	if !added {
		t.Error("first Put of a new blob reported added=false")
	}
	ref2, added, err := store.Put(ctx, blob)
	if err != nil {
		t.Fatal(err)
	}
	if added {
		t.Error("second Put of the same blob reported added=true")
	}
	if ref1 != ref2 {
		t.Errorf("got refs %s and %s for the same blob", ref1, ref2)
	}
	b, err := store.Get(ctx, ref1)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b, blob) {
		t.Errorf("got %q, want %q", b, blob)
	}

	_, err = store.Get(ctx, lds.Blob("never stored").Ref())
	if !errors.Is(err, lds.ErrNotFound) {
		t.Errorf("got error %v, want ErrNotFound", err)
	}
}

package lru

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/bobg/lds"
	"github.com/bobg/lds/store"
	"github.com/bobg/lds/store/mem"
	"github.com/bobg/lds/testutil"
)

func TestStore(t *testing.T) {
	s, err := New(mem.New(), 1000)
	if err != nil {
		t.Fatal(err)
	}
	testutil.ReadWrite(context.Background(), t, s, testutil.Data(t))
}

func TestHeads(t *testing.T) {
	s, err := New(mem.New(), 1000)
	if err != nil {
		t.Fatal(err)
	}
	testutil.Heads(context.Background(), t, s)
}

func TestEviction(t *testing.T) {
	ctx := context.Background()
	s, err := New(mem.New(), 2)
	if err != nil {
		t.Fatal(err)
	}
	var refs []lds.Ref
	for _, b := range []string{"one", "two", "three"} {
		ref, _, err := s.Put(ctx, lds.Blob(b))
		if err != nil {
			t.Fatal(err)
		}
		refs = append(refs, ref)
	}
	if s.Len() != 2 {
		t.Errorf("got cache length %d, want 2", s.Len())
	}

	// The evicted blob is still in the nested store.
	got, err := s.Get(ctx, refs[0])
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "one" {
		t.Errorf("got %q, want %q", got, "one")
	}
}

func TestRegistry(t *testing.T) {
	var conf map[string]interface{}
	dec := json.NewDecoder(strings.NewReader(`{"size": 10, "nested": {"type": "mem"}}`))
	dec.UseNumber()
	if err := dec.Decode(&conf); err != nil {
		t.Fatal(err)
	}
	s, err := store.Create(context.Background(), "lru", conf)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*Store); !ok {
		t.Errorf("got %T, want *Store", s)
	}
}

func TestDelete(t *testing.T) {
	s, err := New(mem.New(), 1000)
	if err != nil {
		t.Fatal(err)
	}
	testutil.Delete(context.Background(), t, s)
	if s.Len() != 2 {
		t.Errorf("got cache length %d after delete, want 2", s.Len())
	}
}

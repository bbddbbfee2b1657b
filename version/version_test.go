package version

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/lds"
	"github.com/bobg/lds/canon"
	"github.com/bobg/lds/rdf"
	"github.com/bobg/lds/store/mem"
)

var (
	schemaName = rdf.IRI("http://schema.org/name")
	knows      = rdf.IRI("http://xmlns.com/foaf/0.1/knows")
)

func person(uri, name string) rdf.Graph {
	return rdf.Graph{
		rdf.Triple(rdf.IRI(uri), rdf.IRI(rdf.RDFType), rdf.IRI("http://schema.org/Person")),
		rdf.Triple(rdf.IRI(uri), schemaName, rdf.Literal(name, "")),
	}
}

func mustCanon(t *testing.T, g rdf.Graph) []byte {
	t.Helper()
	b, err := canon.Canonicalize(g)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	s := New(mem.New())

	g := rdf.Graph{
		rdf.Triple(rdf.IRI("urn:a"), knows, rdf.Blank("friend")),
		rdf.Triple(rdf.Blank("friend"), schemaName, rdf.Literal("Bob", "")),
	}
	hash, err := s.Put(ctx, "urn:a", g)
	if err != nil {
		t.Fatal(err)
	}
	if want := lds.Blob(mustCanon(t, g)).Ref(); hash != want {
		t.Errorf("got hash %s, want %s", hash, want)
	}

	got, err := s.Get(ctx, "urn:a")
	if err != nil {
		t.Fatal(err)
	}
	eq, err := canon.Equal(g, got)
	if err != nil {
		t.Fatal(err)
	}
	if !eq {
		t.Errorf("got graph\n%s\nnot isomorphic to the one stored", rdf.MarshalNQuads(got))
	}

	_, err = s.Get(ctx, "urn:nonesuch")
	if !errors.Is(err, lds.ErrNotFound) {
		t.Errorf("got error %v, want ErrNotFound", err)
	}
}

func TestHistory(t *testing.T) {
	ctx := context.Background()

	var (
		clock = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		s     = New(mem.New(), WithClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}))
		hashes []lds.Ref
	)

	names := []string{"Alice", "Alicia", "Alice", "Ali"}
	for _, name := range names {
		hash, err := s.Put(ctx, "urn:a", person("urn:a", name))
		if err != nil {
			t.Fatal(err)
		}
		hashes = append(hashes, hash)
	}

	hist, err := s.History(ctx, "urn:a")
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != len(names) {
		t.Fatalf("got %d versions, want %d", len(hist), len(names))
	}
	for i, v := range hist {
		if v.Hash != hashes[i] {
			t.Errorf("version %d: got hash %s, want %s", i, v.Hash, hashes[i])
		}
		if i == 0 {
			if !v.Parent.IsZero() || !v.IsFirst() {
				t.Errorf("first version has parent %s", v.Parent)
			}
			continue
		}
		if v.Parent != hist[i-1].Hash {
			t.Errorf("version %d: got parent %s, want %s", i, v.Parent, hist[i-1].Hash)
		}
		if v.Prev != hist[i-1].Ref {
			t.Errorf("version %d: got prev %s, want %s", i, v.Prev, hist[i-1].Ref)
		}
		if !v.Time.After(hist[i-1].Time) {
			t.Errorf("version %d: time %s is not after %s", i, v.Time, hist[i-1].Time)
		}
	}

	// Writing the same content twice still makes two versions.
	if hashes[0] != hashes[2] {
		t.Error("same content produced different hashes")
	}

	old, err := s.GetAt(ctx, "urn:a", hashes[1])
	if err != nil {
		t.Fatal(err)
	}
	if got := old.Objects(rdf.IRI("urn:a"), schemaName); len(got) != 1 || got[0].Value != "Alicia" {
		t.Errorf("got names %v at %s, want Alicia", got, hashes[1])
	}

	_, err = s.GetAt(ctx, "urn:a", lds.Blob("nope").Ref())
	if !errors.Is(err, lds.ErrNotFound) {
		t.Errorf("got error %v, want ErrNotFound", err)
	}
}

func TestPutIf(t *testing.T) {
	ctx := context.Background()
	s := New(mem.New())

	h1, err := s.PutIf(ctx, "urn:a", person("urn:a", "Alice"), lds.Zero)
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.PutIf(ctx, "urn:a", person("urn:a", "Eve"), lds.Zero)
	if !errors.Is(err, lds.ErrConflict) {
		t.Fatalf("got error %v, want ErrConflict", err)
	}

	h2, err := s.PutIf(ctx, "urn:a", person("urn:a", "Alicia"), h1)
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.PutIf(ctx, "urn:a", person("urn:a", "Eve"), h1)
	if !errors.Is(err, lds.ErrConflict) {
		t.Fatalf("got error %v, want ErrConflict", err)
	}

	head, err := s.Head(ctx, "urn:a")
	if err != nil {
		t.Fatal(err)
	}
	if head.Hash != h2 {
		t.Errorf("got head %s, want %s", head.Hash, h2)
	}
}

func TestConcurrentPut(t *testing.T) {
	ctx := context.Background()
	s := New(mem.New())

	const n = 20

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Put(ctx, "urn:a", person("urn:a", fmt.Sprintf("writer %d", i))); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	hist, err := s.History(ctx, "urn:a")
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != n {
		t.Errorf("got %d versions, want %d", len(hist), n)
	}
}

func TestChunked(t *testing.T) {
	ctx := context.Background()
	s := New(mem.New(), WithChunkThreshold(4096))

	var g rdf.Graph
	for i := 0; i < 500; i++ {
		g = append(g, rdf.Triple(rdf.IRI("urn:big"), rdf.IRI(fmt.Sprintf("urn:p%d", i)), rdf.Literal(fmt.Sprintf("value number %d", i), "")))
	}
	hash, err := s.Put(ctx, "urn:big", g)
	if err != nil {
		t.Fatal(err)
	}

	head, err := s.Head(ctx, "urn:big")
	if err != nil {
		t.Fatal(err)
	}
	if !head.Chunked {
		t.Error("large content was not chunked")
	}
	if head.Content == hash {
		t.Error("chunked content is stored under its own hash")
	}

	got, err := s.GetBytes(ctx, "urn:big")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(string(mustCanon(t, g)), string(got)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestList(t *testing.T) {
	ctx := context.Background()
	s := New(mem.New())

	for _, uri := range []string{"urn:c", "urn:a", "urn:b"} {
		if _, err := s.Put(ctx, uri, person(uri, uri)); err != nil {
			t.Fatal(err)
		}
	}

	var got []string
	err := s.List(ctx, "urn:a", func(v *Version) error {
		got = append(got, v.URI)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"urn:b", "urn:c"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordEncoding(t *testing.T) {
	v := &Version{
		URI:     "https://example.org/a#id",
		Hash:    lds.Blob("hash").Ref(),
		Parent:  lds.Blob("parent").Ref(),
		Prev:    lds.Blob("prev").Ref(),
		Content: lds.Blob("content").Ref(),
		Chunked: true,
		Time:    time.Date(2024, 5, 6, 7, 8, 9, 10, time.UTC),
	}
	b, err := v.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	var got Version
	if err = got.Unmarshal(b); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(*v, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	if err = got.Unmarshal([]byte{0x0a, 0x05, 'a'}); err == nil {
		t.Error("expected an error decoding a truncated record")
	}
}

func TestCanonicalizationFailure(t *testing.T) {
	ctx := context.Background()
	s := New(mem.New(), WithCanonicalizer(canon.Canonicalizer{MaxBranches: -1}))

	ring := rdf.Graph{
		rdf.Triple(rdf.Blank("a"), knows, rdf.Blank("b")),
		rdf.Triple(rdf.Blank("b"), knows, rdf.Blank("c")),
		rdf.Triple(rdf.Blank("c"), knows, rdf.Blank("a")),
	}
	_, err := s.Put(ctx, "urn:ring", ring)
	if !errors.Is(err, lds.ErrCanonicalization) {
		t.Fatalf("got error %v, want ErrCanonicalization", err)
	}
	if _, err = s.Head(ctx, "urn:ring"); !errors.Is(err, lds.ErrNotFound) {
		t.Errorf("got error %v after a failed put, want ErrNotFound", err)
	}
}

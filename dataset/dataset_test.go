package dataset

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/lds"
	"github.com/bobg/lds/canon"
	"github.com/bobg/lds/ldp"
	"github.com/bobg/lds/rdf"
	"github.com/bobg/lds/store/mem"
	"github.com/bobg/lds/version"
	"github.com/bobg/lds/vocab"
)

const (
	person    = vocab.Schema + "Person"
	name      = vocab.Schema + "name"
	publicKey = vocab.SEC + "publicKey"
)

func newDataset(opts ...Option) *Dataset {
	return New(version.New(mem.New()), opts...)
}

func alice() map[string]interface{} {
	return map[string]interface{}{
		"@id":   "urn:a",
		"@type": person,
		name:    "Alice",
	}
}

func TestCreateGet(t *testing.T) {
	ctx := context.Background()
	d := newDataset()

	hash, err := d.CreateResource(ctx, "urn:a", alice())
	if err != nil {
		t.Fatal(err)
	}

	g, err := d.Graph(ctx, "urn:a")
	if err != nil {
		t.Fatal(err)
	}
	want := rdf.Graph{
		rdf.Triple(rdf.IRI("urn:a"), rdf.IRI(rdf.RDFType), rdf.IRI(person)),
		rdf.Triple(rdf.IRI("urn:a"), rdf.IRI(name), rdf.Literal("Alice", "")),
	}.Normalize()
	if diff := cmp.Diff(want, g); diff != "" {
		t.Errorf("graph mismatch (-want +got):\n%s", diff)
	}

	b, err := canon.Canonicalize(want)
	if err != nil {
		t.Fatal(err)
	}
	if hash != lds.Blob(b).Ref() {
		t.Errorf("got hash %s, want %s", hash, lds.Blob(b).Ref())
	}

	doc, err := d.GetResource(ctx, "urn:a")
	if err != nil {
		t.Fatal(err)
	}
	wantDoc := []interface{}{
		map[string]interface{}{
			"@id":   "urn:a",
			"@type": []interface{}{person},
			name:    []interface{}{map[string]interface{}{"@value": "Alice"}},
		},
	}
	if diff := cmp.Diff(wantDoc, doc); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}

	compacted, err := d.GetResourceCompacted(ctx, "urn:a", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := compacted["schema:name"]; got != "Alice" {
		t.Errorf("got compacted name %v, want Alice", got)
	}

	_, err = d.CreateResource(ctx, "urn:a", alice())
	if !errors.Is(err, lds.ErrAlreadyExists) {
		t.Errorf("got error %v, want ErrAlreadyExists", err)
	}

	_, err = d.GetResource(ctx, "urn:nonesuch")
	if !errors.Is(err, lds.ErrNotFound) {
		t.Errorf("got error %v, want ErrNotFound", err)
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	d := newDataset()

	h1, err := d.CreateResource(ctx, "urn:a", alice())
	if err != nil {
		t.Fatal(err)
	}
	h2, err := d.UpdateResource(ctx, "urn:a", map[string]interface{}{"@id": "urn:a", name: "Alicia"})
	if err != nil {
		t.Fatal(err)
	}

	g, err := d.Graph(ctx, "urn:a")
	if err != nil {
		t.Fatal(err)
	}
	want := rdf.Graph{rdf.Triple(rdf.IRI("urn:a"), rdf.IRI(name), rdf.Literal("Alicia", ""))}
	if diff := cmp.Diff(want, g); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	hist, err := d.History(ctx, "urn:a")
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 2 || hist[0].Hash != h1 || hist[1].Hash != h2 || hist[1].Parent != h1 {
		t.Errorf("unexpected history %v", hist)
	}

	old, err := d.GetResourceAt(ctx, "urn:a", h1)
	if err != nil {
		t.Fatal(err)
	}
	if len(old) != 1 {
		t.Fatalf("got %d nodes in old version, want 1", len(old))
	}
	if got := old[0].(map[string]interface{})["@type"]; !cmp.Equal(got, []interface{}{person}) {
		t.Errorf("got old type %v, want %s", got, person)
	}
}

func TestAppend(t *testing.T) {
	ctx := context.Background()
	d := newDataset()

	if _, err := d.CreateResource(ctx, "urn:a", alice()); err != nil {
		t.Fatal(err)
	}
	docA := map[string]interface{}{"@id": "urn:a", vocab.FOAF + "nick": "al"}
	docB := map[string]interface{}{"@id": "urn:a", vocab.FOAF + "nick": "ally", name: "Alice"}
	if _, err := d.AppendToResource(ctx, "urn:a", docA); err != nil {
		t.Fatal(err)
	}
	if _, err := d.AppendToResource(ctx, "urn:a", docB); err != nil {
		t.Fatal(err)
	}

	g, err := d.Graph(ctx, "urn:a")
	if err != nil {
		t.Fatal(err)
	}
	a := rdf.IRI("urn:a")
	want := rdf.Graph{
		rdf.Triple(a, rdf.IRI(rdf.RDFType), rdf.IRI(person)),
		rdf.Triple(a, rdf.IRI(name), rdf.Literal("Alice", "")),
		rdf.Triple(a, rdf.IRI(vocab.FOAF+"nick"), rdf.Literal("al", "")),
		rdf.Triple(a, rdf.IRI(vocab.FOAF+"nick"), rdf.Literal("ally", "")),
	}.Normalize()
	if diff := cmp.Diff(want, g); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	// Appending to a missing resource creates it.
	if _, err := d.AppendToResource(ctx, "urn:b", map[string]interface{}{"@id": "urn:b", name: "Bob"}); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Graph(ctx, "urn:b"); err != nil {
		t.Error(err)
	}
}

func TestConcurrentAppend(t *testing.T) {
	const n = 10

	ctx := context.Background()
	d := newDataset(MaxRetries(100))

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			doc := map[string]interface{}{"@id": "urn:a", name: fmt.Sprintf("name %d", i)}
			_, errs[i] = d.AppendToResource(ctx, "urn:a", doc)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("writer %d: %s", i, err)
		}
	}

	g, err := d.Graph(ctx, "urn:a")
	if err != nil {
		t.Fatal(err)
	}
	if len(g) != n {
		t.Errorf("got %d statements, want %d (lost update)", len(g), n)
	}
}

func TestLinkedContainer(t *testing.T) {
	ctx := context.Background()
	d := newDataset()

	if _, err := d.CreateResource(ctx, "urn:a", alice()); err != nil {
		t.Fatal(err)
	}
	link := ldp.Link{Relation: []string{publicKey}}
	if _, err := d.CreateLinkedContainer(ctx, "urn:c", "urn:a#id", link); err != nil {
		t.Fatal(err)
	}

	got, err := d.GetLinkedContainerURI(ctx, "urn:a", link)
	if err != nil {
		t.Fatal(err)
	}
	if got != "urn:c" {
		t.Errorf("got container %s, want urn:c", got)
	}

	doc, err := d.GetLinkedContainer(ctx, "urn:a", link)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc) != 1 || doc[0].(map[string]interface{})["@id"] != "urn:c" {
		t.Errorf("unexpected container document %v", doc)
	}

	_, err = d.GetLinkedContainerURI(ctx, "urn:a", ldp.Link{Relation: []string{vocab.AS + "actor"}})
	if !errors.Is(err, lds.ErrLinkNotFound) {
		t.Errorf("got error %v, want ErrLinkNotFound", err)
	}

	_, err = d.CreateLinkedContainer(ctx, "urn:c", "urn:a#id", link)
	if !errors.Is(err, lds.ErrAlreadyExists) {
		t.Errorf("got error %v, want ErrAlreadyExists", err)
	}

	// Back-reference elsewhere.
	ws := ldp.Link{ReverseRelation: []string{vocab.AS + "actor", vocab.Schema + "agent"}}
	if _, err := d.CreateLinkedContainer(ctx, "urn:ws", "urn:a#id", ws, BackReference("urn:profile")); err != nil {
		t.Fatal(err)
	}
	if got, err := d.GetLinkedContainerURI(ctx, "urn:profile", ws); err != nil || got != "urn:ws" {
		t.Errorf("got %s, %v; want urn:ws", got, err)
	}
	if _, err := d.GetLinkedContainerURI(ctx, "urn:a", ws); !errors.Is(err, lds.ErrLinkNotFound) {
		t.Errorf("got error %v, want ErrLinkNotFound", err)
	}

	if _, err := d.CreateLinkedContainer(ctx, "urn:lonely", "urn:a#id", link, NoBackReference()); err != nil {
		t.Fatal(err)
	}
	if got, err := d.GetLinkedContainerURI(ctx, "urn:a", link); err != nil || got != "urn:c" {
		t.Errorf("got %s, %v; want urn:c", got, err)
	}
}

func TestAddMember(t *testing.T) {
	ctx := context.Background()
	d := newDataset()

	link := ldp.Link{Relation: []string{publicKey}}
	if _, err := d.CreateLinkedContainer(ctx, "urn:c", "urn:a#id", link, NoBackReference()); err != nil {
		t.Fatal(err)
	}

	m, err := d.Members(ctx, "urn:c")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := m.(ldp.Empty); !ok {
		t.Fatalf("got %T, want Empty", m)
	}

	if _, err = d.AddMemberToContainer(ctx, "urn:c", "urn:k2"); err != nil {
		t.Fatal(err)
	}
	if m, err = d.Members(ctx, "urn:c"); err != nil {
		t.Fatal(err)
	}
	if m != ldp.Single("urn:k2") {
		t.Fatalf("got %v, want Single(urn:k2)", m)
	}

	h, err := d.AddMemberToContainer(ctx, "urn:c", "urn:k1")
	if err != nil {
		t.Fatal(err)
	}
	if m, err = d.Members(ctx, "urn:c"); err != nil {
		t.Fatal(err)
	}
	// Added k2 then k1, but a stored container reads back sorted.
	if diff := cmp.Diff(ldp.Many{"urn:k1", "urn:k2"}, m); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	g, err := d.Graph(ctx, "urn:c")
	if err != nil {
		t.Fatal(err)
	}
	if got := g.Objects(rdf.IRI("urn:c"), rdf.IRI(publicKey)); len(got) != 2 {
		t.Errorf("got %d membership triples, want 2", len(got))
	}

	// Adding again writes nothing.
	h2, err := d.AddMemberToContainer(ctx, "urn:c", "urn:k1")
	if err != nil {
		t.Fatal(err)
	}
	if h2 != h {
		t.Errorf("got hash %s after duplicate add, want %s", h2, h)
	}
	hist, err := d.History(ctx, "urn:c")
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 3 {
		t.Errorf("got %d versions, want 3", len(hist))
	}

	if _, err = d.AddMemberToContainer(ctx, "urn:nonesuch", "urn:k1"); !errors.Is(err, lds.ErrNotFound) {
		t.Errorf("got error %v, want ErrNotFound", err)
	}

	if _, err = d.CreateResource(ctx, "urn:a", alice()); err != nil {
		t.Fatal(err)
	}
	if _, err = d.AddMemberToContainer(ctx, "urn:a", "urn:k1"); !errors.Is(err, lds.ErrLinkNotFound) {
		t.Errorf("got error %v, want ErrLinkNotFound", err)
	}
}

func TestImport(t *testing.T) {
	ctx := context.Background()

	// No tie-breaking, so symmetric blank nodes cannot be canonicalized.
	vs := version.New(mem.New(), version.WithCanonicalizer(canon.Canonicalizer{MaxBranches: -1}))
	d := New(vs)

	const p = "urn:p"
	doc := []interface{}{
		map[string]interface{}{
			"@id": "urn:x",
			"@graph": []interface{}{
				map[string]interface{}{"@id": "urn:x", name: "X"},
			},
		},
		map[string]interface{}{
			"@id": "urn:y",
			"@graph": []interface{}{
				map[string]interface{}{"@id": "_:b0", p: map[string]interface{}{"@id": "_:b1"}},
				map[string]interface{}{"@id": "_:b1", p: map[string]interface{}{"@id": "_:b2"}},
				map[string]interface{}{"@id": "_:b2", p: map[string]interface{}{"@id": "_:b0"}},
			},
		},
		map[string]interface{}{
			"@id": "urn:z",
			"@graph": []interface{}{
				map[string]interface{}{"@id": "urn:z", name: "Z"},
			},
		},
	}

	written, err := d.Import(ctx, doc)

	var merr lds.MultiErr
	if !errors.As(err, &merr) {
		t.Fatalf("got error %v, want MultiErr", err)
	}
	if len(merr) != 1 || merr["urn:y"] == nil {
		t.Fatalf("got errors %v, want one for urn:y", merr)
	}
	if !errors.Is(err, lds.ErrCanonicalization) {
		t.Errorf("got error %v, want ErrCanonicalization", err)
	}
	if diff := cmp.Diff([]string{"urn:x", "urn:z"}, written); diff != "" {
		t.Errorf("written mismatch (-want +got):\n%s", diff)
	}

	g, err := d.Graph(ctx, "urn:x")
	if err != nil {
		t.Fatal(err)
	}
	want := rdf.Graph{rdf.Triple(rdf.IRI("urn:x"), rdf.IRI(name), rdf.Literal("X", ""))}
	if diff := cmp.Diff(want, g); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	if _, err = d.Graph(ctx, "urn:y"); !errors.Is(err, lds.ErrNotFound) {
		t.Errorf("got error %v, want ErrNotFound for urn:y", err)
	}
}

func TestImportDefaultGraph(t *testing.T) {
	ctx := context.Background()
	d := newDataset(ImportLimit(1))

	doc := []interface{}{
		map[string]interface{}{"@id": "urn:stray", name: "stray"},
		map[string]interface{}{
			"@id":    "urn:x",
			"@graph": []interface{}{map[string]interface{}{"@id": "urn:x", name: "X"}},
		},
	}
	written, err := d.Import(ctx, doc)
	var merr lds.MultiErr
	if !errors.As(err, &merr) {
		t.Fatalf("got error %v, want MultiErr", err)
	}
	if merr[DefaultGraphKey] == nil {
		t.Errorf("got errors %v, want one under %s", merr, DefaultGraphKey)
	}
	if diff := cmp.Diff([]string{"urn:x"}, written); diff != "" {
		t.Errorf("written mismatch (-want +got):\n%s", diff)
	}
}

func TestResourceURI(t *testing.T) {
	cases := []struct{ inp, want string }{
		{"https://example.org/u/1#id", "https://example.org/u/1"},
		{"https://example.org/u/1", "https://example.org/u/1"},
		{"urn:a#", "urn:a"},
	}
	for i, c := range cases {
		t.Run(fmt.Sprintf("case_%02d", i+1), func(t *testing.T) {
			if got := ResourceURI(c.inp); got != c.want {
				t.Errorf("got %s, want %s", got, c.want)
			}
		})
	}
}

package provision

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/lds"
	"github.com/bobg/lds/dataset"
	"github.com/bobg/lds/ldp"
	"github.com/bobg/lds/rdf"
	"github.com/bobg/lds/store/mem"
	"github.com/bobg/lds/version"
	"github.com/bobg/lds/vocab"
)

const base = "https://example.org/"

// Produces id1, id2, ...
func counter() func() string {
	var n int
	return func() string {
		n++
		return fmt.Sprintf("id%d", n)
	}
}

func newProvisioner() (*Provisioner, *dataset.Dataset) {
	ds := dataset.New(version.New(mem.New()))
	return New(ds, BaseURI(base), IDs(counter())), ds
}

func TestNewIdentity(t *testing.T) {
	ctx := context.Background()
	p, ds := newProvisioner()

	rep, err := p.NewIdentity(ctx, "Alice")
	if err != nil {
		t.Fatal(err)
	}

	if rep.Identity != base+"id1#id" {
		t.Errorf("got identity %s, want %sid1#id", rep.Identity, base)
	}
	if rep.Resource != base+"id1" {
		t.Errorf("got resource %s, want %sid1", rep.Resource, base)
	}
	if rep.Container != base+"id1/id2" {
		t.Errorf("got container %s, want %sid1/id2", rep.Container, base)
	}
	var steps []string
	for _, s := range rep.Steps {
		steps = append(steps, s.Step)
	}
	if diff := cmp.Diff([]string{"create identity resource", "create key container"}, steps); diff != "" {
		t.Errorf("steps mismatch (-want +got):\n%s", diff)
	}

	g, err := ds.Graph(ctx, rep.Resource)
	if err != nil {
		t.Fatal(err)
	}
	id := rdf.IRI(rep.Identity)
	for _, typ := range []string{vocab.FOAF + "Person", vocab.Schema + "Person", vocab.AS + "Person"} {
		if !g.Has(rdf.Triple(id, rdf.IRI(rdf.RDFType), rdf.IRI(typ))) {
			t.Errorf("identity is missing type %s", typ)
		}
	}
	if !g.Has(rdf.Triple(id, rdf.IRI(vocab.Schema+"name"), rdf.Literal("Alice", ""))) {
		t.Error("identity is missing its name")
	}

	link, err := p.KeyLink()
	if err != nil {
		t.Fatal(err)
	}
	c, err := ds.GetLinkedContainerURI(ctx, rep.Resource, link)
	if err != nil {
		t.Fatal(err)
	}
	if c != rep.Container {
		t.Errorf("got container %s, want %s", c, rep.Container)
	}
	cg, err := ds.Graph(ctx, c)
	if err != nil {
		t.Fatal(err)
	}
	if got := ldp.StateOf(cg, c); got != ldp.LinkedEmpty {
		t.Errorf("got container state %s, want %s", got, ldp.LinkedEmpty)
	}
}

func TestAddKey(t *testing.T) {
	ctx := context.Background()
	p, ds := newProvisioner()

	idRep, err := p.NewIdentity(ctx, "Alice")
	if err != nil {
		t.Fatal(err)
	}

	const pem = "-----BEGIN PUBLIC KEY-----\nMFkw\n-----END PUBLIC KEY-----\n"

	rep1, err := p.AddKey(ctx, idRep.Identity, pem)
	if err != nil {
		t.Fatal(err)
	}
	if rep1.Key != base+"id1/id3#id" {
		t.Errorf("got key %s, want %sid1/id3#id", rep1.Key, base)
	}
	if rep1.Container != idRep.Container {
		t.Errorf("got container %s, want %s", rep1.Container, idRep.Container)
	}

	kg, err := ds.Graph(ctx, dataset.ResourceURI(rep1.Key))
	if err != nil {
		t.Fatal(err)
	}
	key := rdf.IRI(rep1.Key)
	want := rdf.Graph{
		rdf.Triple(key, rdf.IRI(rdf.RDFType), rdf.IRI(vocab.SEC+"Key")),
		rdf.Triple(key, rdf.IRI(vocab.SEC+"owner"), rdf.IRI(idRep.Identity)),
		rdf.Triple(key, rdf.IRI(vocab.SEC+"publicKeyPem"), rdf.Literal(pem, "")),
	}.Normalize()
	if diff := cmp.Diff(want, kg); diff != "" {
		t.Errorf("key mismatch (-want +got):\n%s", diff)
	}

	m, err := ds.Members(ctx, idRep.Container)
	if err != nil {
		t.Fatal(err)
	}
	if m != ldp.Single(rep1.Key) {
		t.Errorf("got members %v, want Single(%s)", m, rep1.Key)
	}

	rep2, err := p.AddKey(ctx, idRep.Identity, pem)
	if err != nil {
		t.Fatal(err)
	}
	if m, err = ds.Members(ctx, idRep.Container); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(ldp.Many{rep1.Key, rep2.Key}, m); diff != "" {
		t.Errorf("members mismatch (-want +got):\n%s", diff)
	}
}

func TestAddKeyFailures(t *testing.T) {
	ctx := context.Background()
	p, ds := newProvisioner()

	t.Run("namespace", func(t *testing.T) {
		_, err := p.AddKey(ctx, "https://elsewhere.example/x#id", "pem")
		var serr *StepError
		if !errors.As(err, &serr) {
			t.Fatalf("got error %v, want StepError", err)
		}
		if serr.Step != "check identity" || len(serr.Completed) != 0 {
			t.Errorf("got step %q after %v", serr.Step, serr.Completed)
		}
		if !errors.Is(err, ErrNamespace) {
			t.Errorf("got error %v, want ErrNamespace", err)
		}
	})

	t.Run("no container", func(t *testing.T) {
		if _, err := ds.CreateResource(ctx, base+"bare", map[string]interface{}{"@id": base + "bare#id", vocab.Schema + "name": "Bare"}); err != nil {
			t.Fatal(err)
		}
		rep, err := p.AddKey(ctx, base+"bare#id", "pem")
		var serr *StepError
		if !errors.As(err, &serr) {
			t.Fatalf("got error %v, want StepError", err)
		}
		if serr.Operation != OpAddKey || serr.Step != "find key container" {
			t.Errorf("got %s/%s, want %s/find key container", serr.Operation, serr.Step, OpAddKey)
		}
		if diff := cmp.Diff([]string{"check identity", "create key resource"}, serr.Completed); diff != "" {
			t.Errorf("completed mismatch (-want +got):\n%s", diff)
		}
		if !errors.Is(err, lds.ErrLinkNotFound) {
			t.Errorf("got error %v, want ErrLinkNotFound", err)
		}

		// No rollback.
		if _, err := ds.Graph(ctx, dataset.ResourceURI(rep.Key)); err != nil {
			t.Errorf("key resource is gone: %s", err)
		}
	})
}

func TestNewIdentityCollision(t *testing.T) {
	ctx := context.Background()
	ds := dataset.New(version.New(mem.New()))

	p1 := New(ds, BaseURI(base), IDs(counter()))
	if _, err := p1.NewIdentity(ctx, "Alice"); err != nil {
		t.Fatal(err)
	}

	p2 := New(ds, BaseURI(base), IDs(counter()))
	_, err := p2.NewIdentity(ctx, "Mallory")
	if !errors.Is(err, lds.ErrAlreadyExists) {
		t.Errorf("got error %v, want ErrAlreadyExists", err)
	}
	var serr *StepError
	if errors.As(err, &serr) && serr.Step != "create identity resource" {
		t.Errorf("got step %q, want create identity resource", serr.Step)
	}

	p3 := New(ds)
	if _, err = p3.NewIdentity(ctx, "Nobody"); err == nil {
		t.Error("got no error minting without a base URI")
	}
}

func TestAddProfile(t *testing.T) {
	ctx := context.Background()
	p, ds := newProvisioner()

	idRep, err := p.NewIdentity(ctx, "Alice")
	if err != nil {
		t.Fatal(err)
	}
	const profile = "https://alice.example/profile"
	if _, err = p.AddProfile(ctx, idRep.Identity, profile); err != nil {
		t.Fatal(err)
	}

	g, err := ds.Graph(ctx, idRep.Resource)
	if err != nil {
		t.Fatal(err)
	}
	pr := rdf.IRI(profile)
	for _, q := range []rdf.Quad{
		rdf.Triple(pr, rdf.IRI(rdf.RDFType), rdf.IRI(vocab.FOAF+"ProfileDocument")),
		rdf.Triple(pr, rdf.IRI(rdf.RDFType), rdf.IRI(vocab.AS+"Profile")),
		rdf.Triple(pr, rdf.IRI(vocab.FOAF+"primaryTopic"), rdf.IRI(idRep.Identity)),
		rdf.Triple(rdf.IRI(idRep.Identity), rdf.IRI(vocab.Schema+"name"), rdf.Literal("Alice", "")),
	} {
		if !g.Has(q) {
			t.Errorf("identity resource is missing %s", q)
		}
	}
}

func TestNewWorkspace(t *testing.T) {
	ctx := context.Background()
	p, ds := newProvisioner()

	idRep, err := p.NewIdentity(ctx, "Alice")
	if err != nil {
		t.Fatal(err)
	}
	rep, err := p.NewWorkspace(ctx, idRep.Identity)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Profile != base+"id3/id4" || rep.Container != base+"id3/id5" {
		t.Errorf("got profile %s and container %s", rep.Profile, rep.Container)
	}

	link, err := p.WorkspaceLink()
	if err != nil {
		t.Fatal(err)
	}
	c, err := ds.GetLinkedContainerURI(ctx, rep.Profile, link)
	if err != nil {
		t.Fatal(err)
	}
	if c != rep.Container {
		t.Errorf("got container %s, want %s", c, rep.Container)
	}

	cg, err := ds.Graph(ctx, rep.Container)
	if err != nil {
		t.Fatal(err)
	}
	if !cg.Has(rdf.Triple(rdf.IRI(c), rdf.IRI(vocab.MembershipResource), rdf.IRI(idRep.Identity))) {
		t.Error("workspace container does not point at the identity")
	}

	// The identity's own resource is untouched.
	if _, err = ds.GetLinkedContainerURI(ctx, idRep.Resource, link); !errors.Is(err, lds.ErrLinkNotFound) {
		t.Errorf("got error %v, want ErrLinkNotFound", err)
	}
}

package ldp

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/lds/rdf"
)

func TestAdd(t *testing.T) {
	var m Membership = Empty{}
	if got := m.Members(); len(got) != 0 {
		t.Fatalf("got members %v, want none", got)
	}

	m = Add(m, "urn:k2")
	if _, ok := m.(Single); !ok {
		t.Fatalf("got %T after one add, want Single", m)
	}

	m = Add(m, "urn:k2")
	if _, ok := m.(Single); !ok {
		t.Fatalf("got %T after duplicate add, want Single", m)
	}

	m = Add(m, "urn:k1")
	many, ok := m.(Many)
	if !ok {
		t.Fatalf("got %T after two adds, want Many", m)
	}
	if diff := cmp.Diff(Many{"urn:k2", "urn:k1"}, many); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	before := m
	m = Add(m, "urn:k3")
	m = Add(m, "urn:k1")
	if diff := cmp.Diff([]string{"urn:k2", "urn:k1", "urn:k3"}, m.Members()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Many{"urn:k2", "urn:k1"}, before); diff != "" {
		t.Errorf("earlier value changed (-want +got):\n%s", diff)
	}
}

func TestMembershipOf(t *testing.T) {
	const pred = publicKey

	g := ContainerGraph("urn:c", "urn:x", Link{Relation: []string{pred}})
	if _, ok := MembershipOf(g, "urn:c").(Empty); !ok {
		t.Fatalf("got %T, want Empty", MembershipOf(g, "urn:c"))
	}

	m := Add(Empty{}, "urn:k2")
	g = g.Union(Triples(m, "urn:c", pred))
	if got := MembershipOf(g, "urn:c"); got != Single("urn:k2") {
		t.Errorf("got %v, want Single(urn:k2)", got)
	}
	if got := StateOf(g, "urn:c"); got != LinkedNonEmpty {
		t.Errorf("got state %s, want %s", got, LinkedNonEmpty)
	}

	m = Add(m, "urn:k1")
	g = g.Union(Triples(m, "urn:c", pred))

	// Read back in canonical order.
	got := MembershipOf(g, "urn:c")
	if diff := cmp.Diff(Many{"urn:k1", "urn:k2"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	// Triples of the other shape are ignored.
	g = append(g, rdf.Triple(rdf.IRI("urn:c"), rdf.IRI(pred), rdf.Literal("not a member", "")))
	if diff := cmp.Diff(Many{"urn:k1", "urn:k2"}, MembershipOf(g, "urn:c")); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

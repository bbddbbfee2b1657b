package ldp

import (
	"github.com/bobg/lds/rdf"
)

// Membership is the value of a container's membership predicate:
// one of Empty, Single, or Many.
type Membership interface {
	// Members lists the member IRIs.
	Members() []string

	isMembership()
}

// Empty is the membership of a container with no members.
// Its graph has no membership triples.
type Empty struct{}

// Single is the membership of a container with one member.
type Single string

// Many is the membership of a container with two or more members.
type Many []string

func (Empty) Members() []string    { return nil }
func (s Single) Members() []string { return []string{string(s)} }
func (m Many) Members() []string   { return append([]string(nil), m...) }

func (Empty) isMembership()  {}
func (Single) isMembership() {}
func (Many) isMembership()   {}

// Add returns the membership m with member added at the end.
// Adding to Empty gives Single;
// adding to Single gives Many, in append order.
// Adding a member already present returns m unchanged.
func Add(m Membership, member string) Membership {
	switch m := m.(type) {
	case Single:
		if string(m) == member {
			return m
		}
		return Many{string(m), member}

	case Many:
		for _, existing := range m {
			if existing == member {
				return m
			}
		}
		out := make(Many, 0, len(m)+1)
		out = append(out, m...)
		return append(out, member)
	}
	return Single(member)
}

// Triples produces the membership triples of container,
// using predicate as the membership predicate.
func Triples(m Membership, container, predicate string) rdf.Graph {
	var (
		c = rdf.IRI(container)
		p = rdf.IRI(predicate)
		g rdf.Graph
	)
	for _, member := range m.Members() {
		g = append(g, rdf.Triple(c, p, rdf.IRI(member)))
	}
	return g
}

// MembershipOf reads the membership of container in g.
// A stored graph is a set,
// so members come back in canonical order rather than append order.
func MembershipOf(g rdf.Graph, container string) Membership {
	var (
		c       = rdf.IRI(container)
		p       = rdf.IRI(MembershipPredicate(g, container))
		members []string
	)
	for _, o := range g.Objects(c, p) {
		if o.IsIRI() {
			members = append(members, o.Value)
		}
	}
	return membershipFrom(members)
}

func membershipFrom(members []string) Membership {
	switch len(members) {
	case 0:
		return Empty{}
	case 1:
		return Single(members[0])
	}
	return Many(members)
}

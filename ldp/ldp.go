// Package ldp implements the container-linking convention.
//
// A container is a resource whose graph declares
// a membership resource (ldp:membershipResource),
// the relations by which it holds members (ldp:hasMemberRelation),
// and the relations by which members point back to it (ldp:isMemberOfRelation).
// Its members are the objects of its membership predicate.
//
// Nothing here touches storage.
// These are the graph shapes and the transitions between them;
// the dataset package reads and writes them.
package ldp

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/bobg/lds"
	"github.com/bobg/lds/rdf"
	"github.com/bobg/lds/vocab"
)

var (
	hasMemberRelation  = rdf.IRI(vocab.HasMemberRelation)
	isMemberOfRelation = rdf.IRI(vocab.IsMemberOfRelation)
	membershipResource = rdf.IRI(vocab.MembershipResource)
)

// Link is the pair of relation sets that identifies a container.
type Link struct {
	// Relation lists the container's ldp:hasMemberRelation values.
	Relation []string

	// ReverseRelation lists the container's ldp:isMemberOfRelation values.
	ReverseRelation []string
}

// IsZero tells whether l names no relations at all.
func (l Link) IsZero() bool {
	return len(l.Relation) == 0 && len(l.ReverseRelation) == 0
}

// ContainerGraph is the graph of a new container for target.
func ContainerGraph(container, target string, link Link) rdf.Graph {
	c := rdf.IRI(container)
	g := rdf.Graph{rdf.Triple(c, membershipResource, rdf.IRI(target))}
	for _, r := range link.Relation {
		g = append(g, rdf.Triple(c, hasMemberRelation, rdf.IRI(r)))
	}
	for _, r := range link.ReverseRelation {
		g = append(g, rdf.Triple(c, isMemberOfRelation, rdf.IRI(r)))
	}
	return g.Normalize()
}

// LinkOf reads the link that container declares in g.
func LinkOf(g rdf.Graph, container string) Link {
	var (
		c    = rdf.IRI(container)
		link Link
	)
	for _, o := range g.Objects(c, hasMemberRelation) {
		if o.IsIRI() {
			link.Relation = append(link.Relation, o.Value)
		}
	}
	for _, o := range g.Objects(c, isMemberOfRelation) {
		if o.IsIRI() {
			link.ReverseRelation = append(link.ReverseRelation, o.Value)
		}
	}
	return link
}

func covers(have []rdf.Term, want []string) bool {
	set := make(map[string]bool, len(have))
	for _, t := range have {
		if t.IsIRI() {
			set[t.Value] = true
		}
	}
	for _, w := range want {
		if !set[w] {
			return false
		}
	}
	return true
}

// FindContainer finds a subject in g that declares every relation in link.
// If more than one does, the least in lexicographic order is returned.
// It returns lds.ErrLinkNotFound if there is none.
func FindContainer(g rdf.Graph, link Link) (string, error) {
	if link.IsZero() {
		return "", errors.Wrap(lds.ErrLinkNotFound, "empty link")
	}

	candidates := make(map[string]bool)
	for _, q := range g {
		if !q.Subject.IsIRI() {
			continue
		}
		if q.Predicate == hasMemberRelation || q.Predicate == isMemberOfRelation {
			candidates[q.Subject.Value] = true
		}
	}

	var found []string
	for c := range candidates {
		subj := rdf.IRI(c)
		if covers(g.Objects(subj, hasMemberRelation), link.Relation) && covers(g.Objects(subj, isMemberOfRelation), link.ReverseRelation) {
			found = append(found, c)
		}
	}
	if len(found) == 0 {
		return "", lds.ErrLinkNotFound
	}
	sort.Strings(found)
	return found[0], nil
}

// MembershipPredicate is the predicate by which container holds its members:
// its first declared ldp:hasMemberRelation,
// or ldp:contains if it declares none.
func MembershipPredicate(g rdf.Graph, container string) string {
	if rels := LinkOf(g, container).Relation; len(rels) > 0 {
		return rels[0]
	}
	return vocab.Contains
}

// State is where a container stands relative to its members.
type State int

// Values for State.
const (
	Unlinked State = iota
	LinkedEmpty
	LinkedNonEmpty
)

func (s State) String() string {
	switch s {
	case Unlinked:
		return "unlinked"
	case LinkedEmpty:
		return "linked-empty"
	case LinkedNonEmpty:
		return "linked-nonempty"
	}
	return "unknown"
}

// StateOf reports the state of container in g.
// A container is linked once it names its membership resource.
func StateOf(g rdf.Graph, container string) State {
	c := rdf.IRI(container)
	if len(g.Objects(c, membershipResource)) == 0 {
		return Unlinked
	}
	if _, ok := MembershipOf(g, container).(Empty); ok {
		return LinkedEmpty
	}
	return LinkedNonEmpty
}

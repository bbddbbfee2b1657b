// Package rdf is a minimal RDF data model:
// terms, quads, and graphs as sets of quads,
// plus the N-Quads byte grammar used for canonical storage.
package rdf

import (
	"sort"
	"strings"
)

// Well-known IRIs.
const (
	RDFType       = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
	RDFLangString = "http://www.w3.org/1999/02/22-rdf-syntax-ns#langString"
	XSDString     = "http://www.w3.org/2001/XMLSchema#string"
)

// Kind is the kind of a Term.
type Kind uint8

// Values for Kind.
const (
	KindNone Kind = iota
	KindIRI
	KindBlank
	KindLiteral
)

// Term is an RDF term: an IRI, a blank node, or a literal.
// The zero Term stands for "absent,"
// e.g. the graph label of a quad in the default graph.
type Term struct {
	Kind  Kind
	Value string // the IRI, the blank node's label (without "_:"), or the literal's lexical form

	// Literals only.
	Datatype string
	Language string
}

// IRI produces an IRI term.
func IRI(v string) Term {
	return Term{Kind: KindIRI, Value: v}
}

// Blank produces a blank-node term with the given label.
func Blank(label string) Term {
	return Term{Kind: KindBlank, Value: label}
}

// Literal produces a literal with the given datatype.
// An empty datatype means xsd:string.
func Literal(v, datatype string) Term {
	if datatype == "" {
		datatype = XSDString
	}
	return Term{Kind: KindLiteral, Value: v, Datatype: datatype}
}

// LangLiteral produces a language-tagged literal.
// Language tags are case-insensitive, so lang is lowercased.
func LangLiteral(v, lang string) Term {
	return Term{Kind: KindLiteral, Value: v, Datatype: RDFLangString, Language: strings.ToLower(lang)}
}

func (t Term) IsZero() bool    { return t.Kind == KindNone }
func (t Term) IsIRI() bool     { return t.Kind == KindIRI }
func (t Term) IsBlank() bool   { return t.Kind == KindBlank }
func (t Term) IsLiteral() bool { return t.Kind == KindLiteral }

// String renders t in N-Quads syntax.
// The zero Term renders as the empty string.
func (t Term) String() string {
	var b strings.Builder
	writeTerm(&b, t)
	return b.String()
}

// Quad is a triple plus an optional graph label.
type Quad struct {
	Subject, Predicate, Object Term
	Graph                      Term
}

// Triple produces a Quad in the default graph.
func Triple(s, p, o Term) Quad {
	return Quad{Subject: s, Predicate: p, Object: o}
}

// String renders q as one N-Quads statement, without the trailing newline.
func (q Quad) String() string {
	var b strings.Builder
	writeQuad(&b, q)
	return b.String()
}

// Less orders quads by subject, then predicate, then object, then graph label,
// comparing the N-Quads renderings of the terms.
func (q Quad) Less(other Quad) bool {
	return compareQuads(q, other) < 0
}

func compareQuads(a, b Quad) int {
	if c := strings.Compare(a.Subject.String(), b.Subject.String()); c != 0 {
		return c
	}
	if c := strings.Compare(a.Predicate.String(), b.Predicate.String()); c != 0 {
		return c
	}
	if c := strings.Compare(a.Object.String(), b.Object.String()); c != 0 {
		return c
	}
	return strings.Compare(a.Graph.String(), b.Graph.String())
}

// Graph is a set of quads.
// Operations that produce a Graph remove duplicates,
// but a Graph built by hand may contain them;
// Normalize fixes that.
type Graph []Quad

// Normalize returns the quads of g sorted (see Quad.Less) and without duplicates.
// It does not modify g.
func (g Graph) Normalize() Graph {
	out := make(Graph, len(g))
	copy(out, g)
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	n := 0
	for i, q := range out {
		if i > 0 && q == out[n-1] {
			continue
		}
		out[n] = q
		n++
	}
	return out[:n]
}

// Has tells whether g contains q.
func (g Graph) Has(q Quad) bool {
	for _, qq := range g {
		if qq == q {
			return true
		}
	}
	return false
}

// Union returns the set union of g and the others, normalized.
func (g Graph) Union(others ...Graph) Graph {
	all := append(Graph(nil), g...)
	for _, o := range others {
		all = append(all, o...)
	}
	return all.Normalize()
}

// Objects returns the distinct objects of the quads in g
// with the given subject and predicate,
// in Quad.Less order.
func (g Graph) Objects(subject, predicate Term) []Term {
	var out []Term
	for _, q := range g.Normalize() {
		if q.Subject == subject && q.Predicate == predicate {
			if len(out) > 0 && out[len(out)-1] == q.Object {
				continue
			}
			out = append(out, q.Object)
		}
	}
	return out
}

// Subjects returns the distinct subjects of the quads in g
// with the given predicate and object,
// in Quad.Less order.
func (g Graph) Subjects(predicate, object Term) []Term {
	var out []Term
	for _, q := range g.Normalize() {
		if q.Predicate == predicate && q.Object == object {
			if len(out) > 0 && out[len(out)-1] == q.Subject {
				continue
			}
			out = append(out, q.Subject)
		}
	}
	return out
}

// Graphs partitions g by graph label.
// The default graph is under the zero Term.
// Each partition has its graph labels cleared.
func (g Graph) Graphs() map[Term]Graph {
	out := make(map[Term]Graph)
	for _, q := range g {
		label := q.Graph
		q.Graph = Term{}
		out[label] = append(out[label], q)
	}
	return out
}

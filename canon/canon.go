// Package canon puts RDF graphs into canonical form.
//
// The canonical form of a graph is its N-Quads serialization
// after blank nodes have been relabeled _:c14n0, _:c14n1, ...
// in an order that depends only on the structure of the graph,
// with statements sorted by subject, predicate, object, and graph label,
// and duplicates removed.
// Graphs that are the same up to the renaming of blank nodes
// have byte-identical canonical forms.
//
// Blank nodes are labeled in three stages.
// First, each gets a "color":
// the hash of the statements that mention it,
// written with the node itself as _:a and every other blank node as _:z.
// Second, colors are refined:
// each round rehashes a node's color together with
// the sorted statements that mention it,
// this time writing each other blank node by its current color.
// Refinement stops when a round fails to split any group of same-colored nodes.
// Third, if some nodes still share a color,
// the tie is broken by trying each member of the first tied group in turn
// as "the distinguished one,"
// refining again,
// and keeping whichever choice yields the smallest serialization.
// Two choices that yield the same serialization reveal a symmetry of the graph.
// A member that such symmetries map onto an already-tried member
// cannot produce anything new, so it is skipped,
// and a search that turns out to be symmetric to an earlier one is abandoned.
// This keeps interchangeable siblings
// (several identical blank nodes hanging off one subject)
// to a handful of choices per group.
//
// Refinement on n blank nodes settles within n rounds.
// The number of tie-breaking choices is bounded;
// a graph that exceeds the bound produces a *Error rather than a guess.
package canon

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/bobg/lds"
	"github.com/bobg/lds/rdf"
)

// Defaults for Canonicalizer.
const (
	DefaultMaxRounds   = 128
	DefaultMaxBranches = 4096
)

// Canonicalizer computes canonical forms.
// The zero value uses the default bounds.
type Canonicalizer struct {
	// MaxRounds bounds the number of refinement rounds in each refinement pass.
	// The bound is never less than one more than the number of blank nodes,
	// which is always enough.
	MaxRounds int

	// MaxBranches bounds the number of tie-breaking choices explored for one graph.
	// A negative value permits none:
	// any graph whose blank nodes cannot be told apart by refinement alone is an error.
	MaxBranches int
}

// Error is the error produced when a graph cannot be canonicalized.
// It matches lds.ErrCanonicalization with errors.Is.
type Error struct {
	Msg string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return "canonicalizing: " + e.Msg + ": " + e.Err.Error()
	}
	return "canonicalizing: " + e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements the interface used by errors.Is.
func (e *Error) Is(target error) bool {
	return target == lds.ErrCanonicalization
}

// Canonicalize computes the canonical form of g using the default bounds.
func Canonicalize(g rdf.Graph) ([]byte, error) {
	var c Canonicalizer
	return c.Canonicalize(g)
}

// Decanonicalize parses canonical bytes back into a graph.
// Any N-Quads input is accepted.
func Decanonicalize(b []byte) (rdf.Graph, error) {
	g, err := rdf.ParseNQuads(b)
	if err != nil {
		return nil, &Error{Msg: "parsing N-Quads", Err: err}
	}
	return g.Normalize(), nil
}

// Canonicalize computes the canonical form of g.
func (c Canonicalizer) Canonicalize(g rdf.Graph) ([]byte, error) {
	g = g.Normalize()

	for _, q := range g {
		if err := check(q); err != nil {
			return nil, &Error{Msg: fmt.Sprintf("invalid statement %s", q), Err: err}
		}
	}

	st := newState(c, g)
	if len(st.nodes) == 0 {
		return rdf.MarshalNQuads(g), nil
	}

	colors := st.initialColors()
	return st.search(colors)
}

func check(q rdf.Quad) error {
	switch {
	case !q.Subject.IsIRI() && !q.Subject.IsBlank():
		return errors.New("subject must be an IRI or blank node")
	case !q.Predicate.IsIRI():
		return errors.New("predicate must be an IRI")
	case q.Object.IsZero():
		return errors.New("missing object")
	case q.Graph.IsLiteral():
		return errors.New("graph label may not be a literal")
	}
	return nil
}

type color [sha256.Size]byte

func (c color) less(other color) bool {
	return bytes.Compare(c[:], other[:]) < 0
}

type state struct {
	maxRounds, branchesLeft int

	g     rdf.Graph
	nodes []string         // blank node labels, sorted
	quads map[string][]int // blank node label -> indexes into g of the quads mentioning it

	first, best *leaf
	auts        []map[string]string // known automorphisms, as node -> node
	explored    [][]string          // per search depth, the choices tried so far
	abortTo     int                 // when non-negative, unwind the search to this depth
}

// A discrete labeling reached by the search.
type leaf struct {
	out   []byte
	order []string // blank node labels in canonical order
}

func newState(c Canonicalizer, g rdf.Graph) *state {
	st := &state{
		maxRounds:    c.MaxRounds,
		branchesLeft: c.MaxBranches,
		g:            g,
		quads:        make(map[string][]int),
	}
	if st.maxRounds == 0 {
		st.maxRounds = DefaultMaxRounds
	}
	if st.branchesLeft == 0 {
		st.branchesLeft = DefaultMaxBranches
	}
	st.abortTo = -1

	for i, q := range g {
		seen := make(map[string]bool)
		for _, t := range []rdf.Term{q.Subject, q.Object, q.Graph} {
			if t.IsBlank() && !seen[t.Value] {
				seen[t.Value] = true
				st.quads[t.Value] = append(st.quads[t.Value], i)
			}
		}
	}
	for label := range st.quads {
		st.nodes = append(st.nodes, label)
	}
	sort.Strings(st.nodes)
	if st.maxRounds < len(st.nodes)+1 {
		st.maxRounds = len(st.nodes) + 1
	}

	return st
}

// The first-degree hash of each blank node.
func (st *state) initialColors() map[string]color {
	colors := make(map[string]color, len(st.nodes))
	for _, n := range st.nodes {
		colors[n] = st.hashNode(n, nil, color{})
	}
	return colors
}

// Computes the hash of the statements mentioning node n.
// When colors is nil, other blank nodes are written as _:z;
// otherwise they are written by their color.
// The result also depends on prev, the node's previous color.
func (st *state) hashNode(n string, colors map[string]color, prev color) color {
	lines := make([]string, 0, len(st.quads[n]))
	for _, i := range st.quads[n] {
		q := st.g[i]
		q.Subject = st.relabel(q.Subject, n, colors)
		q.Object = st.relabel(q.Object, n, colors)
		q.Graph = st.relabel(q.Graph, n, colors)
		lines = append(lines, q.String())
	}
	sort.Strings(lines)

	h := sha256.New()
	h.Write(prev[:])
	for _, line := range lines {
		h.Write([]byte(line))
		h.Write([]byte{'\n'})
	}
	var out color
	h.Sum(out[:0])
	return out
}

func (st *state) relabel(t rdf.Term, self string, colors map[string]color) rdf.Term {
	if !t.IsBlank() {
		return t
	}
	if t.Value == self {
		return rdf.Blank("a")
	}
	if colors == nil {
		return rdf.Blank("z")
	}
	c := colors[t.Value]
	return rdf.Blank(fmt.Sprintf("h%x", c[:]))
}

func countColors(colors map[string]color) int {
	distinct := make(map[color]struct{}, len(colors))
	for _, c := range colors {
		distinct[c] = struct{}{}
	}
	return len(distinct)
}

// Refines colors until a round produces no new distinctions.
// Every new color incorporates the node's old one,
// so a round can only split groups, never merge them.
func (st *state) refine(colors map[string]color) (map[string]color, error) {
	count := countColors(colors)
	for round := 0; count < len(st.nodes); round++ {
		if round >= st.maxRounds {
			return nil, &Error{Msg: fmt.Sprintf("blank node labeling did not converge in %d rounds", st.maxRounds)}
		}
		next := make(map[string]color, len(colors))
		for _, n := range st.nodes {
			next[n] = st.hashNode(n, colors, colors[n])
		}
		nextCount := countColors(next)
		if nextCount == count {
			return colors, nil
		}
		colors, count = next, nextCount
	}
	return colors, nil
}

// Searches for the minimal serialization reachable from colors.
func (st *state) search(colors map[string]color) ([]byte, error) {
	if err := st.visit(colors, nil); err != nil {
		return nil, err
	}
	return st.best.out, nil
}

// Visits one node of the search tree.
// Path is the sequence of nodes individualized to get here.
func (st *state) visit(colors map[string]color, path []string) error {
	colors, err := st.refine(colors)
	if err != nil {
		return err
	}

	tied := st.firstTie(colors)
	if len(tied) == 0 {
		st.addLeaf(st.serialize(colors), path)
		return nil
	}

	depth := len(path)
	st.explored = append(st.explored[:depth], nil)

	for _, n := range tied {
		if st.sameOrbit(n, st.explored[depth], path) {
			continue
		}
		if st.branchesLeft <= 0 {
			return &Error{Msg: fmt.Sprintf("too many symmetric blank nodes (%d tied)", len(tied))}
		}
		st.branchesLeft--
		st.explored[depth] = append(st.explored[depth], n)

		next := make(map[string]color, len(colors))
		for k, v := range colors {
			next[k] = v
		}
		next[n] = individualize(colors[n])

		if err := st.visit(next, append(path[:depth:depth], n)); err != nil {
			return err
		}
		if st.abortTo >= 0 {
			if st.abortTo < depth {
				return nil
			}
			st.abortTo = -1
		}
	}
	return nil
}

// Records a leaf of the search tree.
// A leaf with the same serialization as an earlier one yields an automorphism,
// which may show that some choice on the current path
// repeats an earlier choice at the same depth.
// If so, the search unwinds to that depth.
func (st *state) addLeaf(lf *leaf, path []string) {
	var found bool
	for _, known := range []*leaf{st.first, st.best} {
		if known != nil && bytes.Equal(known.out, lf.out) {
			found = st.addAut(known, lf) || found
		}
		if st.first == st.best {
			break
		}
	}

	if st.first == nil {
		st.first = lf
	}
	if st.best == nil || bytes.Compare(lf.out, st.best.out) < 0 {
		st.best = lf
	}

	if !found {
		return
	}
	for j := range path {
		if st.sameOrbit(path[j], st.explored[j], path[:j]) {
			st.abortTo = j
			return
		}
	}
}

// Records the automorphism mapping leaf a's labeling onto leaf b's.
// It reports whether it was new (not the identity).
func (st *state) addAut(a, b *leaf) bool {
	aut := make(map[string]string, len(a.order))
	var moved bool
	for i, n := range a.order {
		aut[n] = b.order[i]
		if n != b.order[i] {
			moved = true
		}
	}
	if !moved {
		return false
	}
	st.auts = append(st.auts, aut)
	return true
}

// Tells whether some member of others other than n
// is in the same orbit as n
// under the known automorphisms that fix every node of prefix.
func (st *state) sameOrbit(n string, others []string, prefix []string) bool {
	if len(others) == 0 || len(st.auts) == 0 {
		return false
	}

	parent := make(map[string]string)
	var find func(string) string
	find = func(x string) string {
		p, ok := parent[x]
		if !ok || p == x {
			return x
		}
		r := find(p)
		parent[x] = r
		return r
	}

	for _, aut := range st.auts {
		if !fixes(aut, prefix) {
			continue
		}
		for x, y := range aut {
			if rx, ry := find(x), find(y); rx != ry {
				parent[rx] = ry
			}
		}
	}

	root := find(n)
	for _, o := range others {
		if o != n && find(o) == root {
			return true
		}
	}
	return false
}

func fixes(aut map[string]string, nodes []string) bool {
	for _, n := range nodes {
		if aut[n] != n {
			return false
		}
	}
	return true
}

func individualize(c color) color {
	h := sha256.New()
	h.Write(c[:])
	h.Write([]byte("individualized"))
	var out color
	h.Sum(out[:0])
	return out
}

// Returns the members, sorted by label, of the smallest-colored group of nodes sharing a color.
// Returns nil if all colors are distinct.
func (st *state) firstTie(colors map[string]color) []string {
	groups := make(map[color][]string)
	for _, n := range st.nodes {
		groups[colors[n]] = append(groups[colors[n]], n)
	}
	var (
		found bool
		min   color
	)
	for c, members := range groups {
		if len(members) < 2 {
			continue
		}
		if !found || c.less(min) {
			found, min = true, c
		}
	}
	if !found {
		return nil
	}
	return groups[min]
}

// Serializes the graph with blank nodes labeled in ascending color order.
// Colors must be distinct.
func (st *state) serialize(colors map[string]color) *leaf {
	order := make([]string, len(st.nodes))
	copy(order, st.nodes)
	sort.Slice(order, func(i, j int) bool {
		return colors[order[i]].less(colors[order[j]])
	})
	labels := make(map[string]string, len(order))
	for i, n := range order {
		labels[n] = fmt.Sprintf("c14n%d", i)
	}

	relabel := func(t rdf.Term) rdf.Term {
		if t.IsBlank() {
			return rdf.Blank(labels[t.Value])
		}
		return t
	}

	out := make(rdf.Graph, 0, len(st.g))
	for _, q := range st.g {
		out = append(out, rdf.Quad{
			Subject:   relabel(q.Subject),
			Predicate: q.Predicate,
			Object:    relabel(q.Object),
			Graph:     relabel(q.Graph),
		})
	}
	return &leaf{out: rdf.MarshalNQuads(out), order: order}
}

// Equal tells whether a and b have the same canonical form.
func Equal(a, b rdf.Graph) (bool, error) {
	ca, err := Canonicalize(a)
	if err != nil {
		return false, err
	}
	cb, err := Canonicalize(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(ca, cb), nil
}

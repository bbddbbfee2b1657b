// Package vocab holds the prefix and alias tables used to write IRIs briefly.
//
// A Vocabulary is a value, not a global:
// callers construct one (usually with Default, perhaps extended from a config file)
// and pass it to whatever needs to expand terms.
package vocab

import (
	"fmt"
	"sort"
	"strings"
)

// Namespaces of the default prefixes.
const (
	SEC    = "https://w3id.org/security#"
	LDP    = "http://www.w3.org/ns/ldp#"
	AS     = "http://www.w3.org/ns/activitystreams#"
	FOAF   = "http://xmlns.com/foaf/0.1/"
	Schema = "http://schema.org/"
)

// Terms of the linking vocabulary.
// These are fixed IRIs, not configurable,
// since existing data depends on them.
const (
	HasMemberRelation  = LDP + "hasMemberRelation"
	IsMemberOfRelation = LDP + "isMemberOfRelation"
	MembershipResource = LDP + "membershipResource"
	Contains           = LDP + "contains"
)

// Vocabulary maps prefixes to namespace IRIs
// and short aliases to full IRIs.
type Vocabulary struct {
	Prefixes map[string]string `json:"prefixes"`
	Aliases  map[string]string `json:"aliases"`
}

// Default returns the standard vocabulary:
// prefixes sec, ldp, as, foaf, and schema,
// and aliases rel, rev, and resource for the linking terms.
func Default() *Vocabulary {
	return &Vocabulary{
		Prefixes: map[string]string{
			"sec":    SEC,
			"ldp":    LDP,
			"as":     AS,
			"foaf":   FOAF,
			"schema": Schema,
		},
		Aliases: map[string]string{
			"rel":      HasMemberRelation,
			"rev":      IsMemberOfRelation,
			"resource": MembershipResource,
		},
	}
}

// UnknownTermError is the error produced when a term is neither an alias nor prefixed.
type UnknownTermError struct {
	Term string
}

func (e *UnknownTermError) Error() string {
	return fmt.Sprintf("unknown term %q", e.Term)
}

// Expand produces the full IRI for term.
// An alias expands to its IRI.
// A term of the form prefix:suffix with a known prefix expands to the namespace plus suffix.
// Any other term containing a colon is taken to be an IRI already
// and is returned unchanged.
// Anything else is an *UnknownTermError.
func (v *Vocabulary) Expand(term string) (string, error) {
	if iri, ok := v.Aliases[term]; ok {
		return iri, nil
	}
	if prefix, suffix, ok := strings.Cut(term, ":"); ok {
		if ns, ok := v.Prefixes[prefix]; ok {
			return ns + suffix, nil
		}
		return term, nil
	}
	return "", &UnknownTermError{Term: term}
}

// MustExpand is like Expand but panics on error.
// It is meant for terms known at compile time.
func (v *Vocabulary) MustExpand(term string) string {
	iri, err := v.Expand(term)
	if err != nil {
		panic(err)
	}
	return iri
}

// Compact produces the shortest form of iri:
// an alias if there is one,
// otherwise prefix:suffix for the longest matching namespace,
// otherwise iri itself.
func (v *Vocabulary) Compact(iri string) string {
	var aliases []string
	for alias, full := range v.Aliases {
		if full == iri {
			aliases = append(aliases, alias)
		}
	}
	if len(aliases) > 0 {
		sort.Strings(aliases)
		return aliases[0]
	}

	var best, bestNS string
	for prefix, ns := range v.Prefixes {
		if !strings.HasPrefix(iri, ns) || len(ns) < len(bestNS) {
			continue
		}
		if len(ns) == len(bestNS) && prefix > best {
			continue
		}
		best, bestNS = prefix, ns
	}
	if best == "" {
		return iri
	}
	return best + ":" + strings.TrimPrefix(iri, bestNS)
}

// Merge returns a new Vocabulary with the entries of v,
// overridden and extended by those of other.
func (v *Vocabulary) Merge(other *Vocabulary) *Vocabulary {
	out := &Vocabulary{
		Prefixes: make(map[string]string),
		Aliases:  make(map[string]string),
	}
	for _, src := range []*Vocabulary{v, other} {
		if src == nil {
			continue
		}
		for k, val := range src.Prefixes {
			out.Prefixes[k] = val
		}
		for k, val := range src.Aliases {
			out.Aliases[k] = val
		}
	}
	return out
}

// Context renders v as a JSON-LD @context value,
// suitable for compacting documents.
// Aliases map to {"@id": iri, "@type": "@id"},
// since every alias in use names a predicate whose values are IRIs.
func (v *Vocabulary) Context() map[string]interface{} {
	ctx := make(map[string]interface{}, len(v.Prefixes)+len(v.Aliases))
	for prefix, ns := range v.Prefixes {
		ctx[prefix] = ns
	}
	for alias, iri := range v.Aliases {
		ctx[alias] = map[string]interface{}{
			"@id":   iri,
			"@type": "@id",
		}
	}
	return ctx
}

package vocab

import (
	"errors"
	"fmt"
	"testing"
)

func TestExpand(t *testing.T) {
	v := Default()

	cases := []struct {
		term    string
		want    string
		wantErr bool
	}{
		{term: "sec:publicKey", want: "https://w3id.org/security#publicKey"},
		{term: "foaf:Person", want: "http://xmlns.com/foaf/0.1/Person"},
		{term: "as:actor", want: "http://www.w3.org/ns/activitystreams#actor"},
		{term: "schema:name", want: "http://schema.org/name"},
		{term: "rel", want: "http://www.w3.org/ns/ldp#hasMemberRelation"},
		{term: "rev", want: "http://www.w3.org/ns/ldp#isMemberOfRelation"},
		{term: "resource", want: "http://www.w3.org/ns/ldp#membershipResource"},
		{term: "https://example.org/x", want: "https://example.org/x"},
		{term: "urn:a", want: "urn:a"},
		{term: "nonesuch", wantErr: true},
	}

	for i, c := range cases {
		t.Run(fmt.Sprintf("case_%02d", i+1), func(t *testing.T) {
			got, err := v.Expand(c.term)
			if c.wantErr {
				var uerr *UnknownTermError
				if !errors.As(err, &uerr) {
					t.Fatalf("got error %v, want UnknownTermError", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != c.want {
				t.Errorf("got %s, want %s", got, c.want)
			}
		})
	}
}

func TestCompact(t *testing.T) {
	v := Default()
	cases := map[string]string{
		HasMemberRelation:                   "rel",
		"http://schema.org/name":            "schema:name",
		"https://w3id.org/security#Key":     "sec:Key",
		"https://example.org/not/a/prefix":  "https://example.org/not/a/prefix",
		"http://www.w3.org/ns/ldp#contains": "ldp:contains",
	}
	for iri, want := range cases {
		if got := v.Compact(iri); got != want {
			t.Errorf("Compact(%s): got %s, want %s", iri, got, want)
		}
	}
}

func TestMerge(t *testing.T) {
	// Two vocabularies can coexist.
	a := Default()
	b := a.Merge(&Vocabulary{
		Prefixes: map[string]string{"ex": "https://example.org/ns#"},
		Aliases:  map[string]string{"rel": "https://example.org/ns#rel"},
	})

	if got := a.MustExpand("rel"); got != HasMemberRelation {
		t.Errorf("original vocabulary changed: rel is %s", got)
	}
	if got := b.MustExpand("rel"); got != "https://example.org/ns#rel" {
		t.Errorf("got %s, want the overriding alias", got)
	}
	if got := b.MustExpand("ex:thing"); got != "https://example.org/ns#thing" {
		t.Errorf("got %s, want https://example.org/ns#thing", got)
	}
	if got := b.MustExpand("foaf:name"); got != "http://xmlns.com/foaf/0.1/name" {
		t.Errorf("got %s, want the default prefix to survive", got)
	}
}

func TestContext(t *testing.T) {
	ctx := Default().Context()
	if ctx["schema"] != Schema {
		t.Errorf("got schema prefix %v, want %s", ctx["schema"], Schema)
	}
	rel, ok := ctx["rel"].(map[string]interface{})
	if !ok {
		t.Fatalf("got rel entry %T, want a map", ctx["rel"])
	}
	if rel["@id"] != HasMemberRelation || rel["@type"] != "@id" {
		t.Errorf("got rel entry %v", rel)
	}
}

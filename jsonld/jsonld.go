// Package jsonld converts between JSON-LD documents and RDF graphs.
// The JSON-LD algorithms themselves come from github.com/piprate/json-gold;
// graphs cross the boundary as N-Quads.
package jsonld

import (
	"github.com/piprate/json-gold/ld"
	"github.com/pkg/errors"

	"github.com/bobg/lds"
	"github.com/bobg/lds/rdf"
)

const nquadsFormat = "application/n-quads"

// Error is the error produced when a document cannot be processed.
// A malformed document is malformed graph input,
// so Error matches lds.ErrCanonicalization with errors.Is.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return "jsonld " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements the interface used by errors.Is.
func (e *Error) Is(target error) bool {
	return target == lds.ErrCanonicalization
}

// Processor performs JSON-LD conversions.
type Processor struct {
	proc   *ld.JsonLdProcessor
	base   string
	loader ld.DocumentLoader
}

// Option is the type of an option that can be passed to New.
type Option func(*Processor)

// Base sets the base IRI against which relative IRIs in documents are resolved.
func Base(iri string) Option {
	return func(p *Processor) {
		p.base = iri
	}
}

// Loader sets the loader for remote contexts.
// The default is json-gold's, which fetches them over HTTP.
func Loader(l ld.DocumentLoader) Option {
	return func(p *Processor) {
		p.loader = l
	}
}

// New produces a new Processor.
func New(opts ...Option) *Processor {
	p := &Processor{proc: ld.NewJsonLdProcessor()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Processor) options() *ld.JsonLdOptions {
	opts := ld.NewJsonLdOptions(p.base)
	if p.loader != nil {
		opts.DocumentLoader = p.loader
	}
	return opts
}

// Expand expands doc,
// removing its context and writing every term as a full IRI.
func (p *Processor) Expand(doc interface{}) ([]interface{}, error) {
	out, err := p.proc.Expand(doc, p.options())
	if err != nil {
		return nil, &Error{Op: "expand", Err: err}
	}
	return out, nil
}

// Compact compacts doc against the given context.
func (p *Processor) Compact(doc, context interface{}) (map[string]interface{}, error) {
	out, err := p.proc.Compact(doc, context, p.options())
	if err != nil {
		return nil, &Error{Op: "compact", Err: err}
	}
	return out, nil
}

// ToGraph converts doc to an RDF graph.
// Quads in named graphs keep their graph labels.
func (p *Processor) ToGraph(doc interface{}) (rdf.Graph, error) {
	opts := p.options()
	opts.Format = nquadsFormat
	out, err := p.proc.ToRDF(doc, opts)
	if err != nil {
		return nil, &Error{Op: "to RDF", Err: err}
	}
	s, ok := out.(string)
	if !ok {
		return nil, &Error{Op: "to RDF", Err: errors.Errorf("got %T, want N-Quads", out)}
	}
	g, err := rdf.ParseNQuads([]byte(s))
	if err != nil {
		return nil, &Error{Op: "parsing N-Quads", Err: err}
	}
	return g.Normalize(), nil
}

// FromGraph converts g to an expanded JSON-LD document.
func (p *Processor) FromGraph(g rdf.Graph) ([]interface{}, error) {
	if len(g) == 0 {
		return []interface{}{}, nil
	}
	opts := p.options()
	opts.Format = nquadsFormat
	out, err := p.proc.FromRDF(string(rdf.MarshalNQuads(g)), opts)
	if err != nil {
		return nil, &Error{Op: "from RDF", Err: err}
	}
	doc, ok := out.([]interface{})
	if !ok {
		return nil, &Error{Op: "from RDF", Err: errors.Errorf("got %T, want an expanded document", out)}
	}
	return doc, nil
}

// Package dataset reads and writes JSON-LD resources in a version store.
//
// A resource is the graph stored under one URI.
// Documents come in as JSON-LD, in any form json-gold accepts,
// and go out in expanded form.
package dataset

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/bobg/lds"
	"github.com/bobg/lds/jsonld"
	"github.com/bobg/lds/rdf"
	"github.com/bobg/lds/version"
	"github.com/bobg/lds/vocab"
)

// Defaults for Dataset.
const (
	DefaultMaxRetries  = 8
	DefaultImportLimit = 8
)

// Dataset is a collection of resources.
type Dataset struct {
	vs          *version.Store
	proc        *jsonld.Processor
	vocab       *vocab.Vocabulary
	maxRetries  int
	importLimit int
}

// Option is the type of an option that can be passed to New.
type Option func(*Dataset)

// WithProcessor sets the JSON-LD processor.
func WithProcessor(p *jsonld.Processor) Option {
	return func(d *Dataset) {
		d.proc = p
	}
}

// WithVocabulary sets the vocabulary used for compacting output.
func WithVocabulary(v *vocab.Vocabulary) Option {
	return func(d *Dataset) {
		d.vocab = v
	}
}

// MaxRetries sets how many times a read-modify-write operation
// is retried after losing a race with another writer.
func MaxRetries(n int) Option {
	return func(d *Dataset) {
		d.maxRetries = n
	}
}

// ImportLimit sets how many graphs Import writes at once.
func ImportLimit(n int) Option {
	return func(d *Dataset) {
		d.importLimit = n
	}
}

// New produces a new Dataset on top of vs.
func New(vs *version.Store, opts ...Option) *Dataset {
	d := &Dataset{
		vs:          vs,
		maxRetries:  DefaultMaxRetries,
		importLimit: DefaultImportLimit,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.proc == nil {
		d.proc = jsonld.New()
	}
	if d.vocab == nil {
		d.vocab = vocab.Default()
	}
	if d.importLimit < 1 {
		d.importLimit = 1
	}
	return d
}

// Versions returns the underlying version store.
func (d *Dataset) Versions() *version.Store {
	return d.vs
}

// Vocabulary returns the dataset's vocabulary.
func (d *Dataset) Vocabulary() *vocab.Vocabulary {
	return d.vocab
}

// ResourceURI is the URI of the resource holding the subject uri:
// uri without its fragment.
func ResourceURI(uri string) string {
	if i := strings.IndexByte(uri, '#'); i >= 0 {
		return uri[:i]
	}
	return uri
}

// CreateResource stores doc as the first version of uri
// and returns its hash.
// It returns lds.ErrAlreadyExists if uri already has a version,
// even if another writer created it concurrently.
func (d *Dataset) CreateResource(ctx context.Context, uri string, doc interface{}) (lds.Ref, error) {
	g, err := d.proc.ToGraph(doc)
	if err != nil {
		return lds.Zero, errors.Wrapf(err, "converting document for %s", uri)
	}
	hash, err := d.vs.PutIf(ctx, uri, g, lds.Zero)
	if errors.Is(err, lds.ErrConflict) {
		return lds.Zero, errors.Wrapf(lds.ErrAlreadyExists, "creating %s", uri)
	}
	return hash, errors.Wrapf(err, "creating %s", uri)
}

// GetResource returns the newest version of uri as an expanded document.
// It returns lds.ErrNotFound if uri has no versions.
func (d *Dataset) GetResource(ctx context.Context, uri string) ([]interface{}, error) {
	g, err := d.vs.Get(ctx, uri)
	if err != nil {
		return nil, errors.Wrapf(err, "getting %s", uri)
	}
	return d.proc.FromGraph(g)
}

// GetResourceCompacted returns the newest version of uri compacted against context.
// A nil context means the dataset vocabulary's.
func (d *Dataset) GetResourceCompacted(ctx context.Context, uri string, context interface{}) (map[string]interface{}, error) {
	doc, err := d.GetResource(ctx, uri)
	if err != nil {
		return nil, err
	}
	return d.Compact(doc, context)
}

// Compact compacts doc against context,
// or against the dataset vocabulary's context if context is nil.
func (d *Dataset) Compact(doc, context interface{}) (map[string]interface{}, error) {
	if context == nil {
		context = d.vocab.Context()
	}
	return d.proc.Compact(doc, context)
}

// Graph returns the graph of the newest version of uri.
func (d *Dataset) Graph(ctx context.Context, uri string) (rdf.Graph, error) {
	g, err := d.vs.Get(ctx, uri)
	return g, errors.Wrapf(err, "getting %s", uri)
}

// UpdateResource stores doc as the newest version of uri,
// replacing whatever was there.
func (d *Dataset) UpdateResource(ctx context.Context, uri string, doc interface{}) (lds.Ref, error) {
	g, err := d.proc.ToGraph(doc)
	if err != nil {
		return lds.Zero, errors.Wrapf(err, "converting document for %s", uri)
	}
	hash, err := d.vs.Put(ctx, uri, g)
	return hash, errors.Wrapf(err, "updating %s", uri)
}

// AppendToResource stores the union of uri's current graph and doc's
// as the newest version of uri.
// A uri with no versions is treated as empty.
// If another writer advances uri in the meantime,
// the union is recomputed against the new version.
func (d *Dataset) AppendToResource(ctx context.Context, uri string, doc interface{}) (lds.Ref, error) {
	add, err := d.proc.ToGraph(doc)
	if err != nil {
		return lds.Zero, errors.Wrapf(err, "converting document for %s", uri)
	}
	return d.appendGraph(ctx, uri, add)
}

func (d *Dataset) appendGraph(ctx context.Context, uri string, add rdf.Graph) (lds.Ref, error) {
	hash, err := d.modify(ctx, uri, true, func(g rdf.Graph) (rdf.Graph, bool, error) {
		return g.Union(add), true, nil
	})
	return hash, errors.Wrapf(err, "appending to %s", uri)
}

// Reads the newest version of uri, transforms it with f, and writes the result
// conditionally on the version read,
// starting over when that condition fails.
// If create is true, a missing uri reads as the empty graph.
// If f reports no change, nothing is written and the current hash is returned.
func (d *Dataset) modify(ctx context.Context, uri string, create bool, f func(rdf.Graph) (rdf.Graph, bool, error)) (lds.Ref, error) {
	for attempt := 0; ; attempt++ {
		var (
			g      rdf.Graph
			parent lds.Ref
		)
		v, err := d.vs.Head(ctx, uri)
		switch {
		case errors.Is(err, lds.ErrNotFound) && create:
		case err != nil:
			return lds.Zero, err
		default:
			parent = v.Hash
			if g, err = d.vs.Graph(ctx, v); err != nil {
				return lds.Zero, err
			}
		}

		next, changed, err := f(g)
		if err != nil {
			return lds.Zero, err
		}
		if !changed {
			return parent, nil
		}

		hash, err := d.vs.PutIf(ctx, uri, next, parent)
		if errors.Is(err, lds.ErrConflict) && attempt < d.maxRetries {
			continue
		}
		if errors.Is(err, lds.ErrConflict) {
			return lds.Zero, errors.Wrapf(err, "giving up after %d attempts", attempt+1)
		}
		return hash, err
	}
}

// History returns the versions of uri, oldest first.
func (d *Dataset) History(ctx context.Context, uri string) ([]*version.Version, error) {
	h, err := d.vs.History(ctx, uri)
	return h, errors.Wrapf(err, "getting history of %s", uri)
}

// GetResourceAt returns the version of uri with the given hash as an expanded document,
// whether or not it is the newest.
func (d *Dataset) GetResourceAt(ctx context.Context, uri string, hash lds.Ref) ([]interface{}, error) {
	g, err := d.vs.GetAt(ctx, uri, hash)
	if err != nil {
		return nil, errors.Wrapf(err, "getting %s at %s", uri, hash)
	}
	return d.proc.FromGraph(g)
}

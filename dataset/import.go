package dataset

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/bobg/lds"
)

// DefaultGraphKey is the MultiErr key under which Import reports a non-empty default graph.
const DefaultGraphKey = "@default"

// Import writes each named graph in doc as the newest version of the resource it names.
// Graphs are written concurrently, at most ImportLimit at a time,
// and independently:
// one graph's failure neither stops nor undoes the others.
// Import returns the URIs written, in order,
// and, if any graph failed, an lds.MultiErr keyed by graph name.
// Statements in the default graph belong to no resource
// and are reported as an error under DefaultGraphKey.
func (d *Dataset) Import(ctx context.Context, doc interface{}) ([]string, error) {
	g, err := d.proc.ToGraph(doc)
	if err != nil {
		return nil, errors.Wrap(err, "converting document for import")
	}

	var (
		mu      sync.Mutex
		written []string
		errs    = make(lds.MultiErr)
		eg      errgroup.Group
	)
	eg.SetLimit(d.importLimit)

	for label, part := range g.Graphs() {
		switch {
		case label.IsZero():
			errs[DefaultGraphKey] = errors.Errorf("%d statement(s) outside any named graph", len(part))
			continue

		case !label.IsIRI():
			errs[label.String()] = errors.New("graph name is not an IRI")
			continue
		}

		var (
			uri  = label.Value
			part = part
		)
		eg.Go(func() error {
			_, err := d.vs.Put(ctx, uri, part)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				errs[uri] = errors.Wrapf(err, "importing %s", uri)
			} else {
				written = append(written, uri)
			}
			return nil
		})
	}
	eg.Wait()

	sort.Strings(written)
	if len(errs) > 0 {
		return written, errs
	}
	return written, nil
}

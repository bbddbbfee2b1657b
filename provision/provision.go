// Package provision creates identities, their keys and profiles, and workspaces.
//
// Each operation is a fixed sequence of named steps
// run one after another against a dataset.
// The first failing step ends the operation with a *StepError;
// the steps before it stay done.
package provision

import (
	"context"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/bobg/lds"
	"github.com/bobg/lds/dataset"
)

// ErrNamespace is the error for an identity outside the provisioner's base URI.
var ErrNamespace = errors.New("outside namespace")

// Provisioner runs provisioning operations.
type Provisioner struct {
	ds    *dataset.Dataset
	base  string
	newID func() string
}

// Option is the type of an option that can be passed to New.
type Option func(*Provisioner)

// BaseURI sets the namespace under which new URIs are minted.
// Operations on existing identities check that they lie within it.
func BaseURI(uri string) Option {
	return func(p *Provisioner) {
		if uri != "" && !strings.HasSuffix(uri, "/") {
			uri += "/"
		}
		p.base = uri
	}
}

// IDs sets the source of the unique path segments in minted URIs.
// The default is random UUIDs.
func IDs(f func() string) Option {
	return func(p *Provisioner) {
		p.newID = f
	}
}

// New produces a new Provisioner on top of ds.
func New(ds *dataset.Dataset, opts ...Option) *Provisioner {
	p := &Provisioner{
		ds:    ds,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// StepResult records one completed step.
type StepResult struct {
	Step string
	URI  string
	Hash lds.Ref // zero for steps that write nothing
}

// Report describes the outcome of an operation.
// On failure it holds the steps completed before the failing one.
type Report struct {
	Operation string
	Steps     []StepResult

	Identity  string
	Resource  string
	Container string
	Key       string
	Profile   string
}

// StepError is the error from a failed step.
type StepError struct {
	Operation string
	Step      string
	Completed []string
	Err       error
}

func (e *StepError) Error() string {
	return e.Operation + ": " + e.Step + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error {
	return e.Err
}

type step struct {
	name string
	run  func(context.Context) (uri string, hash lds.Ref, err error)
}

func run(ctx context.Context, rep *Report, steps []step) error {
	var completed []string
	for _, s := range steps {
		uri, hash, err := s.run(ctx)
		if err != nil {
			return &StepError{
				Operation: rep.Operation,
				Step:      s.name,
				Completed: completed,
				Err:       err,
			}
		}
		rep.Steps = append(rep.Steps, StepResult{Step: s.name, URI: uri, Hash: hash})
		completed = append(completed, s.name)
		log.Printf("%s: %s: %s", rep.Operation, s.name, uri)
	}
	return nil
}

// Mints a fresh URI space under the base URI.
func (p *Provisioner) uriSpace() (string, error) {
	if p.base == "" {
		return "", errors.New("no base URI for new identifiers")
	}
	return p.base + p.newID() + "/", nil
}

func (p *Provisioner) checkNamespace(uri string) error {
	if p.base == "" || strings.HasPrefix(uri, p.base) {
		return nil
	}
	return errors.Wrapf(ErrNamespace, "%s is not under %s", uri, p.base)
}

func (p *Provisioner) expand(terms ...string) ([]string, error) {
	v := p.ds.Vocabulary()
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		iri, err := v.Expand(term)
		if err != nil {
			return nil, err
		}
		out = append(out, iri)
	}
	return out, nil
}

func typesOf(iris []string) []interface{} {
	out := make([]interface{}, 0, len(iris))
	for _, iri := range iris {
		out = append(out, iri)
	}
	return out
}

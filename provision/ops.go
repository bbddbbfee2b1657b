package provision

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/bobg/lds"
	"github.com/bobg/lds/dataset"
	"github.com/bobg/lds/ldp"
)

// Operation names.
const (
	OpNewIdentity  = "idp:new"
	OpAddKey       = "idp:add:key"
	OpAddProfile   = "idp:add:profile"
	OpNewWorkspace = "ws:new"
)

// NewIdentity creates an identity named name,
// with an empty container for its public keys.
//
// The identity is <base>/<id>#id,
// stored in the resource <base>/<id>.
// The key container is <base>/<id>/<id2>,
// and its declaration is appended to the identity's resource.
func (p *Provisioner) NewIdentity(ctx context.Context, name string) (*Report, error) {
	rep := &Report{Operation: OpNewIdentity}

	space, err := p.uriSpace()
	if err != nil {
		return rep, &StepError{Operation: rep.Operation, Step: "mint identifiers", Err: err}
	}
	iris, err := p.expand("foaf:Person", "schema:Person", "as:Person", "schema:name", "sec:publicKey")
	if err != nil {
		return rep, &StepError{Operation: rep.Operation, Step: "mint identifiers", Err: err}
	}

	rep.Identity = strings.TrimSuffix(space, "/") + "#id"
	rep.Resource = dataset.ResourceURI(rep.Identity)
	rep.Container = space + p.newID()

	identity := map[string]interface{}{
		"@id":   rep.Identity,
		"@type": typesOf(iris[:3]),
		iris[3]: name,
	}
	link := ldp.Link{Relation: []string{iris[4]}}

	err = run(ctx, rep, []step{
		{
			name: "create identity resource",
			run: func(ctx context.Context) (string, lds.Ref, error) {
				hash, err := p.ds.CreateResource(ctx, rep.Resource, identity)
				return rep.Resource, hash, err
			},
		},
		{
			name: "create key container",
			run: func(ctx context.Context) (string, lds.Ref, error) {
				hash, err := p.ds.CreateLinkedContainer(ctx, rep.Container, rep.Identity, link)
				return rep.Container, hash, err
			},
		},
	})
	return rep, err
}

// AddKey stores pem as a new public key owned by identity
// and adds it to identity's key container.
func (p *Provisioner) AddKey(ctx context.Context, identity, pem string) (*Report, error) {
	rep := &Report{
		Operation: OpAddKey,
		Identity:  identity,
		Resource:  dataset.ResourceURI(identity),
	}

	iris, err := p.expand("sec:Key", "sec:owner", "sec:publicKeyPem", "sec:publicKey")
	if err != nil {
		return rep, &StepError{Operation: rep.Operation, Step: "mint identifiers", Err: err}
	}

	rep.Key = rep.Resource + "/" + p.newID() + "#id"
	key := map[string]interface{}{
		"@id":   rep.Key,
		"@type": iris[0],
		iris[1]: map[string]interface{}{"@id": identity},
		iris[2]: pem,
	}
	link := ldp.Link{Relation: []string{iris[3]}}

	err = run(ctx, rep, []step{
		{
			name: "check identity",
			run: func(ctx context.Context) (string, lds.Ref, error) {
				return identity, lds.Zero, p.checkNamespace(identity)
			},
		},
		{
			name: "create key resource",
			run: func(ctx context.Context) (string, lds.Ref, error) {
				uri := dataset.ResourceURI(rep.Key)
				hash, err := p.ds.CreateResource(ctx, uri, key)
				return uri, hash, err
			},
		},
		{
			name: "find key container",
			run: func(ctx context.Context) (string, lds.Ref, error) {
				c, err := p.ds.GetLinkedContainerURI(ctx, rep.Resource, link)
				rep.Container = c
				return c, lds.Zero, err
			},
		},
		{
			name: "add key to container",
			run: func(ctx context.Context) (string, lds.Ref, error) {
				hash, err := p.ds.AddMemberToContainer(ctx, rep.Container, rep.Key)
				return rep.Container, hash, err
			},
		},
	})
	return rep, err
}

// AddProfile records in identity's resource that profile is a profile document about identity.
func (p *Provisioner) AddProfile(ctx context.Context, identity, profile string) (*Report, error) {
	rep := &Report{
		Operation: OpAddProfile,
		Identity:  identity,
		Resource:  dataset.ResourceURI(identity),
		Profile:   profile,
	}

	iris, err := p.expand("foaf:ProfileDocument", "as:Profile", "foaf:primaryTopic")
	if err != nil {
		return rep, &StepError{Operation: rep.Operation, Step: "mint identifiers", Err: err}
	}
	doc := map[string]interface{}{
		"@id":   profile,
		"@type": typesOf(iris[:2]),
		iris[2]: map[string]interface{}{"@id": identity},
	}

	err = run(ctx, rep, []step{
		{
			name: "check identity",
			run: func(ctx context.Context) (string, lds.Ref, error) {
				return identity, lds.Zero, p.checkNamespace(identity)
			},
		},
		{
			name: "append profile",
			run: func(ctx context.Context) (string, lds.Ref, error) {
				hash, err := p.ds.AppendToResource(ctx, rep.Resource, doc)
				return rep.Resource, hash, err
			},
		},
	})
	return rep, err
}

// NewWorkspace creates a workspace for identity:
// a new profile document about identity,
// plus a container whose members point back at identity
// as their actor and agent.
// The container's declaration is appended to the profile.
func (p *Provisioner) NewWorkspace(ctx context.Context, identity string) (*Report, error) {
	rep := &Report{
		Operation: OpNewWorkspace,
		Identity:  identity,
	}

	space, err := p.uriSpace()
	if err != nil {
		return rep, &StepError{Operation: rep.Operation, Step: "mint identifiers", Err: err}
	}
	iris, err := p.expand("foaf:ProfileDocument", "as:Profile", "foaf:primaryTopic", "as:actor", "schema:agent")
	if err != nil {
		return rep, &StepError{Operation: rep.Operation, Step: "mint identifiers", Err: err}
	}

	rep.Profile = space + p.newID()
	rep.Resource = rep.Profile
	rep.Container = space + p.newID()

	profile := map[string]interface{}{
		"@id":   rep.Profile,
		"@type": typesOf(iris[:2]),
		iris[2]: map[string]interface{}{"@id": identity},
	}
	link := ldp.Link{ReverseRelation: iris[3:5]}

	err = run(ctx, rep, []step{
		{
			name: "create profile",
			run: func(ctx context.Context) (string, lds.Ref, error) {
				hash, err := p.ds.CreateResource(ctx, rep.Profile, profile)
				return rep.Profile, hash, err
			},
		},
		{
			name: "create workspace container",
			run: func(ctx context.Context) (string, lds.Ref, error) {
				hash, err := p.ds.CreateLinkedContainer(ctx, rep.Container, identity, link, dataset.BackReference(rep.Profile))
				return rep.Container, hash, err
			},
		},
	})
	return rep, err
}

// WorkspaceLink is the link that identifies a workspace container.
func (p *Provisioner) WorkspaceLink() (ldp.Link, error) {
	iris, err := p.expand("as:actor", "schema:agent")
	if err != nil {
		return ldp.Link{}, errors.Wrap(err, "expanding workspace relations")
	}
	return ldp.Link{ReverseRelation: iris}, nil
}

// KeyLink is the link that identifies an identity's key container.
func (p *Provisioner) KeyLink() (ldp.Link, error) {
	iris, err := p.expand("sec:publicKey")
	if err != nil {
		return ldp.Link{}, errors.Wrap(err, "expanding key relation")
	}
	return ldp.Link{Relation: iris}, nil
}

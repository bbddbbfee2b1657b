package dataset

import (
	"context"

	"github.com/pkg/errors"

	"github.com/bobg/lds"
	"github.com/bobg/lds/ldp"
	"github.com/bobg/lds/rdf"
)

type containerConfig struct {
	backRef   string
	noBackRef bool
}

// ContainerOption is the type of an option that can be passed to CreateLinkedContainer.
type ContainerOption func(*containerConfig)

// BackReference names the resource that receives the container's declaration,
// in place of the target's own resource.
func BackReference(uri string) ContainerOption {
	return func(c *containerConfig) {
		c.backRef = uri
	}
}

// NoBackReference skips copying the container's declaration anywhere.
// The container can then be found only by its own URI.
func NoBackReference() ContainerOption {
	return func(c *containerConfig) {
		c.noBackRef = true
	}
}

// CreateLinkedContainer creates a container resource at containerURI
// whose membership resource is targetURI
// and whose relations are those of link.
// It then appends the container's declaration to the resource of targetURI
// (see ResourceURI and BackReference),
// so the container can be found from there with GetLinkedContainerURI.
// It returns the hash of the container's first version.
//
// It returns lds.ErrAlreadyExists if containerURI already has a version.
// If the back-reference fails,
// the container has still been created.
func (d *Dataset) CreateLinkedContainer(ctx context.Context, containerURI, targetURI string, link ldp.Link, opts ...ContainerOption) (lds.Ref, error) {
	if link.IsZero() {
		return lds.Zero, errors.New("link names no relations")
	}

	var conf containerConfig
	for _, opt := range opts {
		opt(&conf)
	}

	g := ldp.ContainerGraph(containerURI, targetURI, link)

	hash, err := d.vs.PutIf(ctx, containerURI, g, lds.Zero)
	if errors.Is(err, lds.ErrConflict) {
		return lds.Zero, errors.Wrapf(lds.ErrAlreadyExists, "creating container %s", containerURI)
	}
	if err != nil {
		return lds.Zero, errors.Wrapf(err, "creating container %s", containerURI)
	}

	if conf.noBackRef {
		return hash, nil
	}
	backRef := conf.backRef
	if backRef == "" {
		backRef = ResourceURI(targetURI)
	}
	if _, err = d.appendGraph(ctx, backRef, g); err != nil {
		return hash, errors.Wrapf(err, "linking container %s from %s", containerURI, backRef)
	}
	return hash, nil
}

// GetLinkedContainerURI finds, in the graph of uri,
// a container declaring every relation of link.
// It returns lds.ErrLinkNotFound if there is none.
func (d *Dataset) GetLinkedContainerURI(ctx context.Context, uri string, link ldp.Link) (string, error) {
	g, err := d.vs.Get(ctx, uri)
	if err != nil {
		return "", errors.Wrapf(err, "getting %s", uri)
	}
	c, err := ldp.FindContainer(g, link)
	return c, errors.Wrapf(err, "finding container in %s", uri)
}

// GetLinkedContainer is like GetLinkedContainerURI
// but returns the container's own resource as an expanded document.
func (d *Dataset) GetLinkedContainer(ctx context.Context, uri string, link ldp.Link) ([]interface{}, error) {
	c, err := d.GetLinkedContainerURI(ctx, uri, link)
	if err != nil {
		return nil, err
	}
	return d.GetResource(ctx, c)
}

// AddMemberToContainer adds memberURI to the container at containerURI
// and returns the hash of the container's resulting version.
// Adding an existing member writes nothing.
// It returns lds.ErrNotFound if the container does not exist.
func (d *Dataset) AddMemberToContainer(ctx context.Context, containerURI, memberURI string) (lds.Ref, error) {
	hash, err := d.modify(ctx, containerURI, false, func(g rdf.Graph) (rdf.Graph, bool, error) {
		if ldp.StateOf(g, containerURI) == ldp.Unlinked {
			return nil, false, errors.Wrapf(lds.ErrLinkNotFound, "%s is not a container", containerURI)
		}
		var (
			pred   = ldp.MembershipPredicate(g, containerURI)
			before = ldp.MembershipOf(g, containerURI)
			after  = ldp.Add(before, memberURI)
		)
		if len(after.Members()) == len(before.Members()) {
			return g, false, nil
		}
		return g.Union(ldp.Triples(after, containerURI, pred)), true, nil
	})
	return hash, errors.Wrapf(err, "adding %s to %s", memberURI, containerURI)
}

// Members returns the membership of the container at containerURI.
// A stored container is a set of triples,
// so a Many value lists its members in canonical (sorted) order,
// not the order in which they were added.
// Only ldp.Add keeps append order.
func (d *Dataset) Members(ctx context.Context, containerURI string) (ldp.Membership, error) {
	g, err := d.vs.Get(ctx, containerURI)
	if err != nil {
		return nil, errors.Wrapf(err, "getting %s", containerURI)
	}
	return ldp.MembershipOf(g, containerURI), nil
}

// Package lds is a content-addressed, versioned store for linked data.
//
// A linked-data resource is an RDF graph named by a URI.
// Every time a resource is written,
// its graph is first put into canonical form:
// a sorted N-Quads serialization in which blank nodes get labels
// that depend only on the shape of the graph,
// never on the order in which triples arrived
// or the labels some serializer happened to pick.
// Two graphs that mean the same thing therefore have the same bytes,
// and the same hash.
//
// The canonical bytes are stored in a blob store,
// indexed by their SHA2-256 hash,
// which is rendered for humans as a content identifier (a CIDv1).
// A write never changes an existing blob.
// Instead it adds a small version record
// naming the resource,
// the hash of its new content,
// and the hash of the content it replaces,
// and then moves the resource's "head" to point at that record.
// Following the records backward from the head
// yields the resource's complete, linear history.
//
// Moving a head is a compare-and-swap.
// That keeps each history a single chain even when writers race,
// and it lets read-modify-write operations
// (appending triples, adding a member to a container)
// detect that someone else got there first and try again.
//
// On top of the version store sit
// a resource access layer that speaks JSON-LD (package dataset),
// a Linked Data Platform-style container convention (package ldp)
// that lets one resource enumerate others and be found from them,
// and identity and workspace provisioning (package provision)
// built as ordered sequences of those operations.
//
// Storage backends live in the store subpackages
// and are selected by configuration through store.Create.
package lds

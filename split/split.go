// Package split implements reading and writing of hashsplit trees in a blob store.
// See github.com/bobg/hashsplit for more information.
//
// The version store uses it for large canonical documents.
// Consecutive versions of a growing resource share most of their lines,
// and hashsplitting finds the shared chunks,
// so each new version costs only the blobs that actually changed.
package split

import (
	"bytes"
	"context"
	"io"

	"github.com/bobg/hashsplit"
	"github.com/pkg/errors"

	"github.com/bobg/lds"
)

// Writer is an io.WriteCloser that splits its input with a hashsplit.Splitter,
// writing the chunks to an lds.Store as separate blobs.
// It additionally assembles those chunks into a tree with a hashsplit.TreeBuilder.
// The tree nodes are also written to the lds.Store as serialized Node objects.
// The lds.Ref of the tree root is available as Writer.Root after a call to Close.
// Writing no data at all produces a Root of lds.Zero.
type Writer struct {
	Ctx    context.Context
	Root   lds.Ref // populated by Close
	st     lds.Store
	spl    *hashsplit.Splitter
	tb     *hashsplit.TreeBuilder
	fanout uint
	chunks int
}

// NewWriter produces a new Writer writing to the given blob store.
// The given context object is stored in the Writer and used in subsequent calls to Write and Close.
// This is an antipattern but acceptable when an object must adhere to a context-free stdlib interface
// (https://github.com/golang/go/wiki/CodeReviewComments#contexts).
// Callers may replace the context object during the lifetime of the Writer as needed.
func NewWriter(ctx context.Context, st lds.Store, opts ...Option) *Writer {
	tb := hashsplit.NewTreeBuilder()
	w := &Writer{
		Ctx:    ctx,
		st:     st,
		tb:     tb,
		fanout: 4,
	}
	spl := hashsplit.NewSplitter(func(chunk []byte, level uint) error {
		ref, _, err := st.Put(w.Ctx, chunk)
		if err != nil {
			return errors.Wrap(err, "writing split chunk to store")
		}
		w.chunks++
		tb.Add(ref[:], len(chunk), level/w.fanout)
		return nil
	})
	spl.MinSize = 1024
	spl.SplitBits = 14
	w.spl = spl
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write implements io.Writer.
func (w *Writer) Write(inp []byte) (int, error) {
	return w.spl.Write(inp)
}

// Close implements io.Closer.
func (w *Writer) Close() error {
	if w.tb == nil {
		return nil
	}
	err := w.spl.Close()
	if err != nil {
		return err
	}
	if w.chunks > 0 {
		rootRef, err := storeTree(w.Ctx, w.st, w.tb.Root())
		if err != nil {
			return err
		}
		w.Root = rootRef
	}
	w.tb = nil
	return nil
}

func storeTree(ctx context.Context, s lds.Store, n *hashsplit.Node) (lds.Ref, error) {
	tn := &Node{Size: n.Size}
	if len(n.Leaves) > 0 {
		tn.Leaves = n.Leaves
	} else {
		for _, child := range n.Nodes {
			childRef, err := storeTree(ctx, s, child)
			if err != nil {
				return lds.Zero, err
			}
			tn.Nodes = append(tn.Nodes, childRef[:])
		}
	}
	ref, _, err := s.Put(ctx, tn.Marshal())
	return ref, errors.Wrap(err, "storing tree node")
}

type Option func(*Writer)

func Bits(n uint) Option {
	return func(w *Writer) {
		w.spl.SplitBits = n
	}
}

func MinSize(n int) Option {
	return func(w *Writer) {
		w.spl.MinSize = n
	}
}

func Fanout(n uint) Option {
	return func(w *Writer) {
		w.fanout = n
	}
}

// Write splits data into a tree of blobs in st and returns the ref of the tree's root.
func Write(ctx context.Context, st lds.Store, data []byte, opts ...Option) (lds.Ref, error) {
	w := NewWriter(ctx, st, opts...)
	if _, err := w.Write(data); err != nil {
		return lds.Zero, errors.Wrap(err, "splitting data")
	}
	if err := w.Close(); err != nil {
		return lds.Zero, errors.Wrap(err, "finishing split tree")
	}
	return w.Root, nil
}

// Read reads blobs from `g`,
// reassembling the content of the blob tree created with Write
// and writing it to `w`.
// The ref of the root Node is given by `ref`.
// A ref of lds.Zero denotes empty content.
func Read(ctx context.Context, g lds.Getter, ref lds.Ref, w io.Writer) error {
	if ref.IsZero() {
		return nil
	}
	tn, err := getNode(ctx, g, ref)
	if err != nil {
		return err
	}
	return splitRead(ctx, g, tn, w)
}

// ReadAll is like Read but returns the reassembled content.
func ReadAll(ctx context.Context, g lds.Getter, ref lds.Ref) ([]byte, error) {
	buf := new(bytes.Buffer)
	err := Read(ctx, g, ref, buf)
	return buf.Bytes(), err
}

// Refs calls f on the ref of every node and chunk in the tree rooted at ref,
// depth first.
func Refs(ctx context.Context, g lds.Getter, ref lds.Ref, f func(lds.Ref) error) error {
	if ref.IsZero() {
		return nil
	}
	if err := f(ref); err != nil {
		return err
	}
	tn, err := getNode(ctx, g, ref)
	if err != nil {
		return err
	}
	for _, l := range tn.Leaves {
		if err = f(lds.RefFromBytes(l)); err != nil {
			return err
		}
	}
	for _, n := range tn.Nodes {
		if err = Refs(ctx, g, lds.RefFromBytes(n), f); err != nil {
			return err
		}
	}
	return nil
}

func getNode(ctx context.Context, g lds.Getter, ref lds.Ref) (*Node, error) {
	b, err := g.Get(ctx, ref)
	if err != nil {
		return nil, errors.Wrapf(err, "getting tree node %s", ref)
	}
	var tn Node
	err = tn.Unmarshal(b)
	return &tn, errors.Wrapf(err, "decoding tree node %s", ref)
}

func splitRead(ctx context.Context, g lds.Getter, n *Node, w io.Writer) error {
	if len(n.Leaves) > 0 {
		return splitReadHelper(ctx, g, n.Leaves, func(m []byte) error {
			_, err := w.Write(m)
			return err
		})
	}
	return splitReadHelper(ctx, g, n.Nodes, func(m []byte) error {
		var tn Node
		err := tn.Unmarshal(m)
		if err != nil {
			return errors.Wrap(err, "decoding tree node")
		}
		return splitRead(ctx, g, &tn, w)
	})
}

func splitReadHelper(ctx context.Context, g lds.Getter, subrefsBytes [][]byte, do func([]byte) error) error {
	for _, s := range subrefsBytes {
		b, err := g.Get(ctx, lds.RefFromBytes(s))
		if err != nil {
			return errors.Wrapf(err, "getting %x", s)
		}
		err = do(b)
		if err != nil {
			return err
		}
	}
	return nil
}

package split

import (
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// Node is a node in a split tree.
// Interior nodes have Nodes, the refs of their children;
// leaf nodes have Leaves, the refs of chunks.
// Size is the total length of the content beneath the node.
//
// Nodes are stored in protobuf wire format:
// field 1 is Size, field 2 repeats Leaves, field 3 repeats Nodes.
type Node struct {
	Size   uint64
	Leaves [][]byte
	Nodes  [][]byte
}

const (
	nodeSizeField   protowire.Number = 1
	nodeLeavesField protowire.Number = 2
	nodeNodesField  protowire.Number = 3
)

// Marshal encodes n.
func (n *Node) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, nodeSizeField, protowire.VarintType)
	b = protowire.AppendVarint(b, n.Size)
	for _, leaf := range n.Leaves {
		b = protowire.AppendTag(b, nodeLeavesField, protowire.BytesType)
		b = protowire.AppendBytes(b, leaf)
	}
	for _, node := range n.Nodes {
		b = protowire.AppendTag(b, nodeNodesField, protowire.BytesType)
		b = protowire.AppendBytes(b, node)
	}
	return b
}

// Unmarshal decodes b into n.
func (n *Node) Unmarshal(b []byte) error {
	*n = Node{}
	for len(b) > 0 {
		num, typ, k := protowire.ConsumeTag(b)
		if k < 0 {
			return errors.Wrap(protowire.ParseError(k), "parsing tag")
		}
		b = b[k:]

		switch {
		case num == nodeSizeField && typ == protowire.VarintType:
			v, k := protowire.ConsumeVarint(b)
			if k < 0 {
				return errors.Wrap(protowire.ParseError(k), "parsing size")
			}
			n.Size = v
			b = b[k:]

		case (num == nodeLeavesField || num == nodeNodesField) && typ == protowire.BytesType:
			v, k := protowire.ConsumeBytes(b)
			if k < 0 {
				return errors.Wrap(protowire.ParseError(k), "parsing ref")
			}
			v = append([]byte(nil), v...)
			if num == nodeLeavesField {
				n.Leaves = append(n.Leaves, v)
			} else {
				n.Nodes = append(n.Nodes, v)
			}
			b = b[k:]

		default:
			k := protowire.ConsumeFieldValue(num, typ, b)
			if k < 0 {
				return errors.Wrap(protowire.ParseError(k), "skipping unknown field")
			}
			b = b[k:]
		}
	}
	return nil
}

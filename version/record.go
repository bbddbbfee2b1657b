package version

import (
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/bobg/lds"
)

// Field numbers of the version record's wire format.
const (
	uriField     protowire.Number = 1
	hashField    protowire.Number = 2
	parentField  protowire.Number = 3
	prevField    protowire.Number = 4
	contentField protowire.Number = 5
	chunkedField protowire.Number = 6
	timeField    protowire.Number = 7
)

func appendRef(b []byte, num protowire.Number, ref lds.Ref) []byte {
	if ref.IsZero() {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, ref[:])
}

// Marshal encodes v in protobuf wire format.
// The Ref field is not part of the encoding;
// it is the ref of the encoding.
func (v *Version) Marshal() ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, uriField, protowire.BytesType)
	b = protowire.AppendString(b, v.URI)
	b = appendRef(b, hashField, v.Hash)
	b = appendRef(b, parentField, v.Parent)
	b = appendRef(b, prevField, v.Prev)
	b = appendRef(b, contentField, v.Content)
	if v.Chunked {
		b = protowire.AppendTag(b, chunkedField, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(true))
	}
	ts, err := proto.MarshalOptions{Deterministic: true}.Marshal(timestamppb.New(v.Time))
	if err != nil {
		return nil, errors.Wrap(err, "marshaling timestamp")
	}
	b = protowire.AppendTag(b, timeField, protowire.BytesType)
	b = protowire.AppendBytes(b, ts)
	return b, nil
}

// Unmarshal decodes a version record produced by Marshal.
func (v *Version) Unmarshal(b []byte) error {
	*v = Version{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errors.Wrap(protowire.ParseError(n), "parsing tag")
		}
		b = b[n:]

		if typ == protowire.VarintType {
			x, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errors.Wrapf(protowire.ParseError(n), "parsing field %d", num)
			}
			b = b[n:]
			if num == chunkedField {
				v.Chunked = protowire.DecodeBool(x)
			}
			continue
		}
		if typ != protowire.BytesType {
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return errors.Wrapf(protowire.ParseError(n), "skipping field %d", num)
			}
			b = b[n:]
			continue
		}

		val, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return errors.Wrapf(protowire.ParseError(n), "parsing field %d", num)
		}
		b = b[n:]

		switch num {
		case uriField:
			v.URI = string(val)
		case hashField:
			v.Hash = lds.RefFromBytes(val)
		case parentField:
			v.Parent = lds.RefFromBytes(val)
		case prevField:
			v.Prev = lds.RefFromBytes(val)
		case contentField:
			v.Content = lds.RefFromBytes(val)
		case timeField:
			var ts timestamppb.Timestamp
			if err := proto.Unmarshal(val, &ts); err != nil {
				return errors.Wrap(err, "unmarshaling timestamp")
			}
			v.Time = ts.AsTime()
		}
	}
	if v.URI == "" {
		return errors.New("version record has no URI")
	}
	return nil
}

// IsFirst tells whether v begins its URI's history.
func (v *Version) IsFirst() bool {
	return v.Prev.IsZero()
}

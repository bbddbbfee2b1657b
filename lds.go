// Package lds describes a content-addressed, versioned store for linked-data resources.
package lds

import (
	"bytes"
	"crypto/sha256"
	"database/sql/driver"
	"encoding/hex"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/pkg/errors"
)

type (
	// Blob is the type of a blob.
	Blob []byte

	// Ref is the ref of a blob: its sha256 hash.
	Ref [sha256.Size]byte
)

// Ref computes the Ref of a blob.
func (b Blob) Ref() Ref {
	return sha256.Sum256(b)
}

// Zero is the zero value of a Ref.
var Zero Ref

// IsZero tells whether r is the zero Ref.
func (r Ref) IsZero() bool {
	return r == Zero
}

// String renders r as a content identifier:
// a CIDv1 with the raw codec and a sha2-256 multihash.
func (r Ref) String() string {
	mh, err := multihash.Encode(r[:], multihash.SHA2_256)
	if err != nil {
		// Encode fails only for unknown codes.
		return hex.EncodeToString(r[:])
	}
	return cid.NewCidV1(cid.Raw, mh).String()
}

// Hex renders r in hexadecimal.
func (r Ref) Hex() string {
	return hex.EncodeToString(r[:])
}

func (r Ref) Less(other Ref) bool {
	return bytes.Compare(r[:], other[:]) < 0
}

func (r *Ref) FromHex(s string) error {
	if len(s) != 2*sha256.Size {
		return errors.New("wrong length")
	}
	_, err := hex.Decode(r[:], []byte(s))
	return err
}

// Value implements driver.Valuer.
func (r Ref) Value() (driver.Value, error) {
	return r[:], nil
}

// Scan implements sql.Scanner.
func (r *Ref) Scan(src interface{}) error {
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into a Ref", src)
	}
	if len(b) != sha256.Size {
		return fmt.Errorf("scanned ref has length %d, want %d", len(b), sha256.Size)
	}
	copy(r[:], b)
	return nil
}

func RefFromBytes(b []byte) Ref {
	var out Ref
	copy(out[:], b)
	return out
}

func RefFromHex(s string) (Ref, error) {
	var out Ref
	err := out.FromHex(s)
	return out, err
}

// ParseRef parses a Ref from its content-identifier form (see Ref.String).
// For convenience it also accepts a 64-character hex string.
func ParseRef(s string) (Ref, error) {
	if len(s) == 2*sha256.Size {
		if ref, err := RefFromHex(s); err == nil {
			return ref, nil
		}
	}
	c, err := cid.Decode(s)
	if err != nil {
		return Zero, errors.Wrapf(err, "decoding content identifier %s", s)
	}
	dec, err := multihash.Decode(c.Hash())
	if err != nil {
		return Zero, errors.Wrapf(err, "decoding multihash of %s", s)
	}
	if dec.Code != multihash.SHA2_256 || len(dec.Digest) != sha256.Size {
		return Zero, fmt.Errorf("content identifier %s is not sha2-256", s)
	}
	return RefFromBytes(dec.Digest), nil
}

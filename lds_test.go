package lds

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestRef(t *testing.T) {
	cases := []string{"", "hello", strings.Repeat("x", 10000)}
	for i, c := range cases {
		t.Run(fmt.Sprintf("case_%02d", i+1), func(t *testing.T) {
			ref := Blob(c).Ref()

			got, err := ParseRef(ref.String())
			if err != nil {
				t.Fatal(err)
			}
			if got != ref {
				t.Errorf("got %s from content identifier, want %s", got.Hex(), ref.Hex())
			}

			got, err = ParseRef(ref.Hex())
			if err != nil {
				t.Fatal(err)
			}
			if got != ref {
				t.Errorf("got %s from hex, want %s", got.Hex(), ref.Hex())
			}
		})
	}

	if _, err := ParseRef("not a ref"); err == nil {
		t.Error("got no error parsing garbage")
	}
	if _, err := RefFromHex("abcd"); err == nil {
		t.Error("got no error parsing short hex")
	}
	if !Zero.IsZero() || Blob("x").Ref().IsZero() {
		t.Error("IsZero mismatch")
	}
}

func TestStorageErr(t *testing.T) {
	if StorageErr(nil, "op") != nil {
		t.Error("got non-nil error wrapping nil")
	}
	if err := StorageErr(ErrNotFound, "op"); err != ErrNotFound {
		t.Errorf("got %v, want ErrNotFound unchanged", err)
	}

	base := errors.New("disk on fire")
	err := StorageErr(base, "writing")
	if !errors.Is(err, ErrStorage) {
		t.Error("storage error does not match ErrStorage")
	}
	if !errors.Is(err, base) {
		t.Error("storage error does not expose the backend error")
	}
	if err.Error() != "writing: disk on fire" {
		t.Errorf("got message %q", err.Error())
	}
}

func TestMultiErr(t *testing.T) {
	err := MultiErr{
		"urn:b": ErrConflict,
		"urn:a": ErrCanonicalization,
	}
	const want = "error(s): urn:a: canonicalization failed; urn:b: conflict"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, ErrConflict) || !errors.Is(err, ErrCanonicalization) {
		t.Error("MultiErr does not expose its members")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("MultiErr matches an error it does not contain")
	}
}

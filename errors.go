package lds

import (
	"github.com/pkg/errors"
)

var (
	// ErrNotFound is the error returned
	// when a resource, version, blob, or head does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is the error returned
	// when creating a resource whose URI already has a version.
	ErrAlreadyExists = errors.New("already exists")

	// ErrLinkNotFound is the error returned
	// when a resource declares no container matching a link.
	ErrLinkNotFound = errors.New("link not found")

	// ErrConflict is the error returned
	// when a head changed between being read and being swapped.
	ErrConflict = errors.New("conflict")

	// ErrCanonicalization is the error
	// that every canonicalization failure matches with errors.Is.
	ErrCanonicalization = errors.New("canonicalization failed")

	// ErrStorage is the error
	// that every backend I/O failure matches with errors.Is.
	ErrStorage = errors.New("storage failure")
)

// StorageError wraps an error from a storage backend.
// It matches ErrStorage with errors.Is,
// and its Unwrap method exposes the backend's own error.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is implements the interface used by errors.Is.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// StorageErr wraps err in a StorageError,
// unless err is nil
// or is already one of the sentinel errors a backend is expected to return
// (ErrNotFound, ErrConflict),
// in which case it is returned as is.
func StorageErr(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) || errors.Is(err, ErrStorage) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// Package gcs implements a blob store on Google Cloud Storage.
package gcs

import (
	"bytes"
	"context"
	"encoding/hex"
	stderrs "errors"
	"io"
	"net/http"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/bobg/lds"
	"github.com/bobg/lds/store"
)

var _ lds.HeadStore = &Store{}

// Store is a Google Cloud Storage-based implementation of a blob store.
//
// A blob is stored in an object named "b:" plus its hex ref.
// A head is stored in an object named "h:" plus the hex encoding of its name,
// whose content is the 32-byte ref.
// Head swaps are conditional writes on the object's generation number.
type Store struct {
	bucket *storage.BucketHandle
}

// New produces a new Store.
func New(bucket *storage.BucketHandle) *Store {
	return &Store{bucket: bucket}
}

// Get gets the blob with hash `ref`.
func (s *Store) Get(ctx context.Context, ref lds.Ref) (lds.Blob, error) {
	b, err := s.read(ctx, blobObjName(ref))
	return b, lds.StorageErr(err, "gcs get")
}

func (s *Store) read(ctx context.Context, name string) ([]byte, error) {
	r, err := s.bucket.Object(name).NewReader(ctx)
	if stderrs.Is(err, storage.ErrObjectNotExist) {
		return nil, lds.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading info of object %s", name)
	}
	defer r.Close()

	b := make([]byte, r.Attrs.Size)
	_, err = io.ReadFull(r, b)
	return b, errors.Wrapf(err, "reading contents of object %s", name)
}

func isPreconditionFailed(err error) bool {
	var e *googleapi.Error
	return stderrs.As(err, &e) && e.Code == http.StatusPreconditionFailed
}

// Writes data to obj.
// A failed precondition on obj is reported as lds.ErrConflict.
func write(ctx context.Context, obj *storage.ObjectHandle, data []byte) error {
	w := obj.NewWriter(ctx)
	_, err := w.Write(data)
	if err != nil {
		w.Close()
		if isPreconditionFailed(err) {
			return lds.ErrConflict
		}
		return errors.Wrapf(err, "writing object %s", obj.ObjectName())
	}
	err = w.Close()
	if isPreconditionFailed(err) {
		return lds.ErrConflict
	}
	return errors.Wrapf(err, "closing object %s", obj.ObjectName())
}

// Put adds a blob to the store if it wasn't already present.
func (s *Store) Put(ctx context.Context, b lds.Blob) (lds.Ref, bool, error) {
	var (
		ref  = b.Ref()
		name = blobObjName(ref)
		obj  = s.bucket.Object(name).If(storage.Conditions{DoesNotExist: true})
	)
	err := write(ctx, obj, b)
	if errors.Is(err, lds.ErrConflict) {
		return ref, false, nil
	}
	if err != nil {
		return lds.Zero, false, lds.StorageErr(err, "gcs put")
	}
	return ref, true, nil
}

// Delete implements lds.Deleter.
func (s *Store) Delete(ctx context.Context, ref lds.Ref) error {
	err := s.bucket.Object(blobObjName(ref)).Delete(ctx)
	if stderrs.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return lds.StorageErr(err, "gcs delete")
}

// ListRefs produces all blob refs in the store, in lexicographic order.
func (s *Store) ListRefs(ctx context.Context, start lds.Ref, f func(lds.Ref) error) error {
	// Google Cloud Storage iterators can filter by object-name prefix.
	// So we take (the hex encoding of) `start` and repeatedly compute prefixes for the objects we want.
	// If `start` is e67a, for example, the sequence of generated prefixes is:
	//   e67b e67c e67d e67e e67f
	//   e68 e69 e6a e6b e6c e6d e6e e6f
	//   e7 e8 e9 ea eb ec ed ee ef
	//   f
	err := eachHexPrefix(start.Hex(), false, func(prefix string) error {
		return s.listRefs(ctx, prefix, f)
	})
	return lds.StorageErr(err, "gcs listrefs")
}

func (s *Store) listRefs(ctx context.Context, prefix string, f func(lds.Ref) error) error {
	iter := s.bucket.Objects(ctx, &storage.Query{Prefix: "b:" + prefix})
	for {
		obj, err := iter.Next()
		if stderrs.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "iterating over blob objects")
		}
		ref, err := refFromBlobObjName(obj.Name)
		if err != nil {
			return errors.Wrapf(err, "decoding object name %s", obj.Name)
		}
		err = f(ref)
		if err != nil {
			return err
		}
	}
}

// GetHead gets the current ref for the given name.
func (s *Store) GetHead(ctx context.Context, name string) (lds.Ref, error) {
	b, err := s.read(ctx, headObjName(name))
	if err != nil {
		return lds.Zero, lds.StorageErr(err, "gcs gethead")
	}
	if len(b) != len(lds.Zero) {
		return lds.Zero, lds.StorageErr(errors.Errorf("head object for %s has wrong size %d", name, len(b)), "gcs gethead")
	}
	return lds.RefFromBytes(b), nil
}

// SwapHead sets the head for name to newRef if its current value is oldRef.
// The object's content is compared with oldRef,
// then rewritten on the condition that its generation has not changed since.
func (s *Store) SwapHead(ctx context.Context, name string, oldRef, newRef lds.Ref) error {
	obj := s.bucket.Object(headObjName(name))

	if oldRef.IsZero() {
		err := write(ctx, obj.If(storage.Conditions{DoesNotExist: true}), newRef[:])
		return lds.StorageErr(err, "gcs swaphead")
	}

	r, err := obj.NewReader(ctx)
	if stderrs.Is(err, storage.ErrObjectNotExist) {
		return lds.ErrConflict
	}
	if err != nil {
		return lds.StorageErr(errors.Wrapf(err, "reading head %s", name), "gcs swaphead")
	}
	gen := r.Attrs.Generation
	cur, err := io.ReadAll(r)
	r.Close()
	if err != nil {
		return lds.StorageErr(errors.Wrapf(err, "reading head %s", name), "gcs swaphead")
	}
	if !bytes.Equal(cur, oldRef[:]) {
		return lds.ErrConflict
	}

	err = write(ctx, obj.If(storage.Conditions{GenerationMatch: gen}), newRef[:])
	return lds.StorageErr(err, "gcs swaphead")
}

// ListHeads lists all head names in the store, in lexicographic order.
func (s *Store) ListHeads(ctx context.Context, start string, f func(string, lds.Ref) error) error {
	iter := s.bucket.Objects(ctx, &storage.Query{
		Prefix:      "h:",
		StartOffset: headObjName(start),
	})
	for {
		attrs, err := iter.Next()
		if stderrs.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return lds.StorageErr(errors.Wrap(err, "iterating over head objects"), "gcs listheads")
		}
		name, err := nameFromHeadObjName(attrs.Name)
		if err != nil {
			return lds.StorageErr(errors.Wrapf(err, "decoding object name %s", attrs.Name), "gcs listheads")
		}
		if name <= start {
			continue
		}
		ref, err := s.GetHead(ctx, name)
		if errors.Is(err, lds.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		err = f(name, ref)
		if err != nil {
			return err
		}
	}
}

func eachHexPrefix(prefix string, incl bool, f func(string) error) error {
	prefix = strings.ToLower(prefix)
	for len(prefix) > 0 {
		end := hexval(prefix[len(prefix)-1:][0])
		if !incl {
			end++
		}
		prefix = prefix[:len(prefix)-1]
		for c := end; c < 16; c++ {
			err := f(prefix + string(hexdigit(c)))
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func hexval(b byte) int {
	switch {
	case '0' <= b && b <= '9':
		return int(b - '0')
	case 'a' <= b && b <= 'f':
		return int(10 + b - 'a')
	case 'A' <= b && b <= 'F':
		return int(10 + b - 'A')
	}
	return 0
}

func hexdigit(n int) byte {
	if n < 10 {
		return byte(n + '0')
	}
	return byte(n - 10 + 'a')
}

func blobObjName(ref lds.Ref) string {
	return "b:" + ref.Hex()
}

func refFromBlobObjName(name string) (lds.Ref, error) {
	return lds.RefFromHex(strings.TrimPrefix(name, "b:"))
}

func headObjName(name string) string {
	return "h:" + hex.EncodeToString([]byte(name))
}

func nameFromHeadObjName(objName string) (string, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(objName, "h:"))
	return string(b), err
}

func init() {
	store.Register("gcs", func(ctx context.Context, conf map[string]interface{}) (lds.HeadStore, error) {
		var options []option.ClientOption
		creds, ok := conf["creds"].(string)
		if !ok {
			return nil, errors.New(`missing "creds" parameter`)
		}
		bucketName, ok := conf["bucket"].(string)
		if !ok {
			return nil, errors.New(`missing "bucket" parameter`)
		}
		options = append(options, option.WithCredentialsFile(creds))
		c, err := storage.NewClient(ctx, options...)
		if err != nil {
			return nil, errors.Wrap(err, "creating cloud storage client")
		}
		return New(c.Bucket(bucketName)), nil
	})
}

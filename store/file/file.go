// Package file implements a blob store as a file hierarchy.
package file

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/bobg/flock"
	"github.com/pkg/errors"

	"github.com/bobg/lds"
	"github.com/bobg/lds/store"
)

var _ lds.HeadStore = &Store{}

// Store is a file-based implementation of a blob store.
//
// Blobs live beneath root/blobs, named by their hex refs
// and fanned out into two levels of subdirectories.
// Each head lives in its own file beneath root/heads,
// named by the hash of the head's name
// and containing the 32-byte ref followed by the name itself.
// Head swaps are serialized with an flock on root/heads.lock.
type Store struct {
	root    string
	flocker flock.Locker
}

// New produces a new Store storing data beneath `root`.
func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) blobroot() string {
	return filepath.Join(s.root, "blobs")
}

func (s *Store) blobpath(ref lds.Ref) string {
	h := ref.Hex()
	return filepath.Join(s.blobroot(), h[:2], h[:4], h)
}

func (s *Store) headroot() string {
	return filepath.Join(s.root, "heads")
}

func (s *Store) headpath(name string) string {
	h := sha256.Sum256([]byte(name))
	return filepath.Join(s.headroot(), hex.EncodeToString(h[:]))
}

func (s *Store) lockpath() string {
	return filepath.Join(s.root, "heads.lock")
}

// Get gets the blob with hash `ref`.
func (s *Store) Get(_ context.Context, ref lds.Ref) (lds.Blob, error) {
	path := s.blobpath(ref)
	blob, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, lds.ErrNotFound
	}
	return blob, lds.StorageErr(errors.Wrapf(err, "opening %s", path), "file get")
}

// Put adds a blob to the store if it wasn't already present.
func (s *Store) Put(_ context.Context, b lds.Blob) (lds.Ref, bool, error) {
	var (
		ref  = b.Ref()
		path = s.blobpath(ref)
		dir  = filepath.Dir(path)
	)

	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return ref, false, lds.StorageErr(errors.Wrapf(err, "ensuring path %s exists", dir), "file put")
	}

	if _, err := os.Stat(path); err == nil {
		return ref, false, nil
	}

	// Write to a temp file and rename,
	// so a concurrent reader never sees a partial blob.
	tmp, err := os.CreateTemp(dir, ".tmp-")
	if err != nil {
		return lds.Zero, false, lds.StorageErr(errors.Wrapf(err, "creating temp file in %s", dir), "file put")
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(b)
	if err != nil {
		tmp.Close()
		return lds.Zero, false, lds.StorageErr(errors.Wrapf(err, "writing data to %s", tmp.Name()), "file put")
	}
	if err = tmp.Close(); err != nil {
		return lds.Zero, false, lds.StorageErr(errors.Wrapf(err, "closing %s", tmp.Name()), "file put")
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return lds.Zero, false, lds.StorageErr(errors.Wrapf(err, "renaming to %s", path), "file put")
	}

	return ref, true, nil
}

// Delete removes the blob with hash `ref`.
// It is not an error if there is none.
func (s *Store) Delete(_ context.Context, ref lds.Ref) error {
	path := s.blobpath(ref)
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return lds.StorageErr(errors.Wrapf(err, "removing %s", path), "file delete")
}

// ListRefs produces all blob refs in the store, in lexicographic order.
func (s *Store) ListRefs(ctx context.Context, start lds.Ref, f func(lds.Ref) error) error {
	err := os.MkdirAll(s.blobroot(), 0755)
	if err != nil {
		return lds.StorageErr(errors.Wrapf(err, "ensuring %s exists", s.blobroot()), "file listrefs")
	}

	topLevel, err := os.ReadDir(s.blobroot())
	if err != nil {
		return lds.StorageErr(errors.Wrapf(err, "reading dir %s", s.blobroot()), "file listrefs")
	}

	startHex := start.Hex()
	topIndex := sort.Search(len(topLevel), func(n int) bool {
		return topLevel[n].Name() >= startHex[:2]
	})
	for i := topIndex; i < len(topLevel); i++ {
		topInfo := topLevel[i]
		if !topInfo.IsDir() {
			continue
		}
		topName := topInfo.Name()
		if len(topName) != 2 {
			continue
		}
		if _, err = strconv.ParseInt(topName, 16, 64); err != nil {
			continue
		}

		midLevel, err := os.ReadDir(filepath.Join(s.blobroot(), topName))
		if err != nil {
			return lds.StorageErr(errors.Wrapf(err, "reading dir %s/%s", s.blobroot(), topName), "file listrefs")
		}
		midIndex := sort.Search(len(midLevel), func(n int) bool {
			return midLevel[n].Name() >= startHex[:4]
		})
		for j := midIndex; j < len(midLevel); j++ {
			midInfo := midLevel[j]
			if !midInfo.IsDir() {
				continue
			}
			midName := midInfo.Name()
			if len(midName) != 4 {
				continue
			}
			if _, err = strconv.ParseInt(midName, 16, 64); err != nil {
				continue
			}

			blobInfos, err := os.ReadDir(filepath.Join(s.blobroot(), topName, midName))
			if err != nil {
				return lds.StorageErr(errors.Wrapf(err, "reading dir %s/%s/%s", s.blobroot(), topName, midName), "file listrefs")
			}

			index := sort.Search(len(blobInfos), func(n int) bool {
				return blobInfos[n].Name() > startHex
			})
			for k := index; k < len(blobInfos); k++ {
				blobInfo := blobInfos[k]
				if blobInfo.IsDir() || strings.HasPrefix(blobInfo.Name(), ".") {
					continue
				}

				ref, err := lds.RefFromHex(blobInfo.Name())
				if err != nil {
					continue
				}

				err = f(ref)
				if err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (s *Store) lockHeads() error {
	if err := os.MkdirAll(s.headroot(), 0755); err != nil {
		return errors.Wrapf(err, "ensuring %s exists", s.headroot())
	}
	lf, err := os.OpenFile(s.lockpath(), os.O_CREATE|os.O_RDONLY, 0644)
	if err != nil {
		return errors.Wrap(err, "creating lock file")
	}
	lf.Close()
	return s.flocker.Lock(s.lockpath())
}

func (s *Store) unlockHeads() error {
	return s.flocker.Unlock(s.lockpath())
}

// Reads the head file at path, returning the ref and the name it holds.
func readHead(path string) (lds.Ref, string, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return lds.Zero, "", lds.ErrNotFound
	}
	if err != nil {
		return lds.Zero, "", errors.Wrapf(err, "reading %s", path)
	}
	if len(b) < sha256.Size {
		return lds.Zero, "", errors.Errorf("head file %s is truncated", path)
	}
	return lds.RefFromBytes(b[:sha256.Size]), string(b[sha256.Size:]), nil
}

// GetHead gets the current ref for the given name.
func (s *Store) GetHead(_ context.Context, name string) (lds.Ref, error) {
	ref, _, err := readHead(s.headpath(name))
	return ref, lds.StorageErr(err, "file gethead")
}

// SwapHead sets the head for name to newRef if its current value is oldRef.
func (s *Store) SwapHead(_ context.Context, name string, oldRef, newRef lds.Ref) error {
	err := s.lockHeads()
	if err != nil {
		return lds.StorageErr(errors.Wrap(err, "locking heads"), "file swaphead")
	}
	defer s.unlockHeads()

	path := s.headpath(name)
	cur, _, err := readHead(path)
	if errors.Is(err, lds.ErrNotFound) {
		cur = lds.Zero
	} else if err != nil {
		return lds.StorageErr(err, "file swaphead")
	}
	if cur != oldRef {
		return lds.ErrConflict
	}

	tmp := path + ".tmp"
	err = os.WriteFile(tmp, append(newRef[:], name...), 0644)
	if err != nil {
		return lds.StorageErr(errors.Wrapf(err, "writing %s", tmp), "file swaphead")
	}
	err = os.Rename(tmp, path)
	return lds.StorageErr(errors.Wrapf(err, "renaming to %s", path), "file swaphead")
}

// ListHeads lists all head names in the store, in lexicographic order.
func (s *Store) ListHeads(_ context.Context, start string, f func(string, lds.Ref) error) error {
	entries, err := os.ReadDir(s.headroot())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return lds.StorageErr(errors.Wrapf(err, "reading dir %s", s.headroot()), "file listheads")
	}

	type head struct {
		name string
		ref  lds.Ref
	}
	var heads []head
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), ".tmp") {
			continue
		}
		ref, name, err := readHead(filepath.Join(s.headroot(), entry.Name()))
		if errors.Is(err, lds.ErrNotFound) {
			continue
		}
		if err != nil {
			return lds.StorageErr(err, "file listheads")
		}
		if name > start {
			heads = append(heads, head{name: name, ref: ref})
		}
	}
	sort.Slice(heads, func(i, j int) bool { return heads[i].name < heads[j].name })

	for _, h := range heads {
		if err := f(h.name, h.ref); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	store.Register("file", func(_ context.Context, conf map[string]interface{}) (lds.HeadStore, error) {
		root, ok := conf["root"].(string)
		if !ok {
			return nil, errors.New(`missing "root" parameter`)
		}
		return New(root), nil
	})
}

// Package logging implements a store that delegates everything to a nested store,
// logging operations as they happen.
package logging

import (
	"context"
	"log"

	"github.com/pkg/errors"

	"github.com/bobg/lds"
	"github.com/bobg/lds/store"
)

var _ lds.HeadStore = &Store{}

type Store struct {
	s lds.HeadStore
}

func New(s lds.HeadStore) *Store {
	return &Store{s: s}
}

func (s *Store) Get(ctx context.Context, ref lds.Ref) (lds.Blob, error) {
	b, err := s.s.Get(ctx, ref)
	if err != nil {
		log.Printf("ERROR Get %s: %s", ref, err)
	} else {
		log.Printf("Get %s", ref)
	}
	return b, err
}

func (s *Store) Delete(ctx context.Context, ref lds.Ref) error {
	d, ok := s.s.(lds.Deleter)
	if !ok {
		err := errors.Errorf("nested %T does not support deletion", s.s)
		log.Printf("ERROR Delete %s: %s", ref, err)
		return err
	}
	err := d.Delete(ctx, ref)
	if err != nil {
		log.Printf("ERROR Delete %s: %s", ref, err)
	} else {
		log.Printf("Delete %s", ref)
	}
	return err
}

func (s *Store) ListRefs(ctx context.Context, start lds.Ref, f func(lds.Ref) error) error {
	log.Printf("ListRefs, start=%s", start)
	return s.s.ListRefs(ctx, start, func(ref lds.Ref) error {
		err := f(ref)
		if err != nil {
			log.Printf("  ERROR in ListRefs: %s: %s", ref, err)
		} else {
			log.Printf("  ListRefs: %s", ref)
		}
		return err
	})
}

func (s *Store) Put(ctx context.Context, b lds.Blob) (lds.Ref, bool, error) {
	ref, added, err := s.s.Put(ctx, b)
	if err != nil {
		log.Printf("ERROR in Put: %s", err)
	} else {
		log.Printf("Put %s, added=%v", ref, added)
	}
	return ref, added, err
}

func (s *Store) GetHead(ctx context.Context, name string) (lds.Ref, error) {
	ref, err := s.s.GetHead(ctx, name)
	if err != nil {
		log.Printf("ERROR in GetHead(%s): %s", name, err)
	} else {
		log.Printf("GetHead(%s): %s", name, ref)
	}
	return ref, err
}

func (s *Store) SwapHead(ctx context.Context, name string, oldRef, newRef lds.Ref) error {
	err := s.s.SwapHead(ctx, name, oldRef, newRef)
	if err != nil {
		log.Printf("ERROR in SwapHead(%s, %s, %s): %s", name, oldRef, newRef, err)
	} else {
		log.Printf("SwapHead(%s): %s -> %s", name, oldRef, newRef)
	}
	return err
}

func (s *Store) ListHeads(ctx context.Context, start string, f func(string, lds.Ref) error) error {
	log.Printf("ListHeads, start=%s", start)
	return s.s.ListHeads(ctx, start, func(name string, ref lds.Ref) error {
		err := f(name, ref)
		if err != nil {
			log.Printf("  ERROR in ListHeads at (%s, %s): %s", name, ref, err)
		} else {
			log.Printf("  ListHeads: (%s, %s)", name, ref)
		}
		return err
	})
}

func init() {
	store.Register("logging", func(ctx context.Context, conf map[string]interface{}) (lds.HeadStore, error) {
		nested, ok := conf["nested"].(map[string]interface{})
		if !ok {
			return nil, errors.New(`missing "nested" parameter`)
		}
		nestedType, ok := nested["type"].(string)
		if !ok {
			return nil, errors.New(`"nested" parameter missing "type"`)
		}
		nestedStore, err := store.Create(ctx, nestedType, nested)
		if err != nil {
			return nil, errors.Wrap(err, "creating nested store")
		}
		return New(nestedStore), nil
	})
}

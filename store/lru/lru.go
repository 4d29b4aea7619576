// Package lru implements an object store that acts as a least-recently-used cache for a nested object store.
package lru

import (
	"context"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/gitblobsdb/gitblobs"
	"github.com/gitblobsdb/gitblobs/store"
)

var _ gitblobs.Store = &Store{}

// Store implements a memory-based least-recently-used cache for an object store.
// It caches only objects, not refs or HEAD.
// Writes pass through to the underlying store.
//
// Store is not an ExtStore,
// even when the nested store is:
// a cache of some objects cannot stand in for a scan of all of them.
type Store struct {
	c *lru.Cache // Hash->Object
	s gitblobs.Store
}

// New produces a new Store backed by `s` and caching up to `size` objects.
func New(s gitblobs.Store, size int) (*Store, error) {
	c, err := lru.New(size)
	return &Store{s: s, c: c}, errors.Wrap(err, "creating cache")
}

// GetObject gets the object with the given hash.
func (s *Store) GetObject(ctx context.Context, h gitblobs.Hash) (gitblobs.Object, error) {
	if got, ok := s.c.Get(h); ok {
		return got.(gitblobs.Object), nil
	}
	obj, err := s.s.GetObject(ctx, h)
	if err != nil {
		return nil, err
	}
	s.c.Add(h, obj)
	return obj, nil
}

// PutObject adds an object to the store if it wasn't already present.
func (s *Store) PutObject(ctx context.Context, obj gitblobs.Object) error {
	if err := s.s.PutObject(ctx, obj); err != nil {
		return err
	}
	s.c.Add(obj.ObjectHash(), obj)
	return nil
}

// HasObject tells whether the object with the given hash is present.
func (s *Store) HasObject(ctx context.Context, h gitblobs.Hash) (bool, error) {
	if s.c.Contains(h) {
		return true, nil
	}
	return s.s.HasObject(ctx, h)
}

// DeleteObject removes an object.
func (s *Store) DeleteObject(ctx context.Context, h gitblobs.Hash) error {
	s.c.Remove(h)
	return s.s.DeleteObject(ctx, h)
}

// GetRef gets the named ref.
func (s *Store) GetRef(ctx context.Context, name string) (gitblobs.Ref, error) {
	return s.s.GetRef(ctx, name)
}

// UpdateRef creates or moves the named ref.
func (s *Store) UpdateRef(ctx context.Context, name string, h gitblobs.Hash) error {
	return s.s.UpdateRef(ctx, name, h)
}

// ListRefs calls f for each ref, in name order.
func (s *Store) ListRefs(ctx context.Context, f func(gitblobs.Ref) error) error {
	return s.s.ListRefs(ctx, f)
}

// GetHead gets the store's HEAD.
func (s *Store) GetHead(ctx context.Context) (gitblobs.Head, error) {
	return s.s.GetHead(ctx)
}

// SetHead sets the store's HEAD.
func (s *Store) SetHead(ctx context.Context, head gitblobs.Head) error {
	return s.s.SetHead(ctx, head)
}

func init() {
	store.Register("lru", func(ctx context.Context, conf map[string]interface{}) (gitblobs.Store, error) {
		size, err := store.Int(conf, "size", 0)
		if err != nil {
			return nil, err
		}
		if size <= 0 {
			return nil, errors.New(`missing "size" parameter`)
		}
		nestedStore, err := store.Nested(ctx, conf)
		if err != nil {
			return nil, errors.Wrap(err, "creating nested store")
		}
		return New(nestedStore, size)
	})
}

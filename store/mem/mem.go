// Package mem implements an in-memory object store.
package mem

import (
	"context"
	"sort"
	"sync"

	"github.com/gitblobsdb/gitblobs"
	"github.com/gitblobsdb/gitblobs/store"
)

var _ gitblobs.ExtStore = &Store{}

// Store is a memory-based implementation of an object store.
type Store struct {
	mu      sync.Mutex
	objects map[gitblobs.Hash]gitblobs.Object
	refs    map[string]gitblobs.Hash
	head    *gitblobs.Head
}

// New produces a new Store.
func New() *Store {
	return &Store{
		objects: make(map[gitblobs.Hash]gitblobs.Object),
		refs:    make(map[string]gitblobs.Hash),
	}
}

// GetObject gets the object with the given hash.
func (s *Store) GetObject(_ context.Context, h gitblobs.Hash) (gitblobs.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if obj, ok := s.objects[h]; ok {
		return obj, nil
	}
	return nil, gitblobs.ErrNotFound
}

// PutObject adds an object to the store if it wasn't already present.
func (s *Store) PutObject(_ context.Context, obj gitblobs.Object) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.put(obj)
	return nil
}

// Caller must obtain a lock.
func (s *Store) put(obj gitblobs.Object) {
	h := obj.ObjectHash()
	if _, ok := s.objects[h]; !ok {
		s.objects[h] = obj
	}
}

// HasObject tells whether the object with the given hash is present.
func (s *Store) HasObject(_ context.Context, h gitblobs.Hash) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.objects[h]
	return ok, nil
}

// DeleteObject removes an object.
func (s *Store) DeleteObject(_ context.Context, h gitblobs.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.objects, h)
	return nil
}

// GetRef gets the named ref.
func (s *Store) GetRef(_ context.Context, name string) (gitblobs.Ref, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.refs[name]
	if !ok {
		return gitblobs.Ref{}, gitblobs.ErrNotFound
	}
	return gitblobs.Ref{Name: name, CommitHash: h}, nil
}

// UpdateRef creates or moves the named ref.
func (s *Store) UpdateRef(_ context.Context, name string, h gitblobs.Hash) error {
	if err := gitblobs.CheckRefName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.refs[name] = h
	return nil
}

// ListRefs calls f for each ref, in name order.
func (s *Store) ListRefs(_ context.Context, f func(gitblobs.Ref) error) error {
	s.mu.Lock()
	refs := make([]gitblobs.Ref, 0, len(s.refs))
	for name, h := range s.refs {
		refs = append(refs, gitblobs.Ref{Name: name, CommitHash: h})
	}
	s.mu.Unlock()

	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	for _, ref := range refs {
		if err := f(ref); err != nil {
			return err
		}
	}
	return nil
}

// GetHead gets the store's HEAD.
func (s *Store) GetHead(_ context.Context) (gitblobs.Head, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.head == nil {
		return gitblobs.Head{}, gitblobs.ErrNotFound
	}
	return *s.head, nil
}

// SetHead sets the store's HEAD.
func (s *Store) SetHead(_ context.Context, head gitblobs.Head) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.head = &head
	return nil
}

// Scan calls f on each object in the store, in hash order.
// It operates on a snapshot of the store's contents taken at the start of the call.
func (s *Store) Scan(_ context.Context, f func(gitblobs.Object) error) error {
	s.mu.Lock()
	objs := make([]gitblobs.Object, 0, len(s.objects))
	for _, obj := range s.objects {
		objs = append(objs, obj)
	}
	s.mu.Unlock()

	sort.Slice(objs, func(i, j int) bool { return objs[i].ObjectHash() < objs[j].ObjectHash() })
	for _, obj := range objs {
		if err := f(obj); err != nil {
			return err
		}
	}
	return nil
}

// Replace discards the store's contents and loads b.
func (s *Store) Replace(_ context.Context, b *gitblobs.Bundle) error {
	head, ok := gitblobs.BundleHead(b)
	if !ok {
		return gitblobs.ErrMissingHeadPointer
	}

	objects := make(map[gitblobs.Hash]gitblobs.Object, b.Len())
	for _, obj := range b.Objects() {
		objects[obj.ObjectHash()] = obj
	}
	h := gitblobs.HeadFromCommit(head)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects = objects
	s.refs = make(map[string]gitblobs.Hash)
	s.head = &h
	return nil
}

func init() {
	store.Register("mem", func(context.Context, map[string]interface{}) (gitblobs.Store, error) {
		return New(), nil
	})
}

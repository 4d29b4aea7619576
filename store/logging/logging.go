// Package logging implements a store that delegates everything to a nested store,
// logging operations as they happen.
package logging

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/gitblobsdb/gitblobs"
	"github.com/gitblobsdb/gitblobs/store"
)

var (
	_ gitblobs.Store    = &Store{}
	_ gitblobs.ExtStore = &ExtStore{}
)

// Store logs each operation on a nested store.
type Store struct {
	s   gitblobs.Store
	log *zap.SugaredLogger
}

// ExtStore is a Store over a nested ExtStore.
type ExtStore struct {
	Store
	x gitblobs.ExtStore
}

// New produces a logging wrapper around s.
// The result is an *ExtStore if s is a gitblobs.ExtStore,
// and a *Store otherwise.
func New(s gitblobs.Store, log *zap.SugaredLogger) gitblobs.Store {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	base := Store{s: s, log: log}
	if x, ok := s.(gitblobs.ExtStore); ok {
		return &ExtStore{Store: base, x: x}
	}
	return &base
}

func (s *Store) done(op string, err error, kv ...interface{}) {
	switch {
	case err == nil:
		s.log.Debugw(op, kv...)
	case errors.Is(err, gitblobs.ErrNotFound):
		s.log.Debugw(op, append(kv, "found", false)...)
	default:
		s.log.Errorw(op, append(kv, "error", err)...)
	}
}

func (s *Store) GetObject(ctx context.Context, h gitblobs.Hash) (gitblobs.Object, error) {
	obj, err := s.s.GetObject(ctx, h)
	s.done("GetObject", err, "hash", h)
	return obj, err
}

func (s *Store) PutObject(ctx context.Context, obj gitblobs.Object) error {
	err := s.s.PutObject(ctx, obj)
	s.done("PutObject", err, "type", obj.ObjectType(), "hash", obj.ObjectHash())
	return err
}

func (s *Store) HasObject(ctx context.Context, h gitblobs.Hash) (bool, error) {
	ok, err := s.s.HasObject(ctx, h)
	s.done("HasObject", err, "hash", h, "present", ok)
	return ok, err
}

func (s *Store) DeleteObject(ctx context.Context, h gitblobs.Hash) error {
	err := s.s.DeleteObject(ctx, h)
	s.done("DeleteObject", err, "hash", h)
	return err
}

func (s *Store) GetRef(ctx context.Context, name string) (gitblobs.Ref, error) {
	ref, err := s.s.GetRef(ctx, name)
	s.done("GetRef", err, "name", name, "commit", ref.CommitHash)
	return ref, err
}

func (s *Store) UpdateRef(ctx context.Context, name string, h gitblobs.Hash) error {
	err := s.s.UpdateRef(ctx, name, h)
	s.done("UpdateRef", err, "name", name, "commit", h)
	return err
}

func (s *Store) ListRefs(ctx context.Context, f func(gitblobs.Ref) error) error {
	var n int
	err := s.s.ListRefs(ctx, func(ref gitblobs.Ref) error {
		n++
		return f(ref)
	})
	s.done("ListRefs", err, "count", n)
	return err
}

func (s *Store) GetHead(ctx context.Context) (gitblobs.Head, error) {
	head, err := s.s.GetHead(ctx)
	s.done("GetHead", err, "type", head.Type, "value", head.Value)
	return head, err
}

func (s *Store) SetHead(ctx context.Context, head gitblobs.Head) error {
	err := s.s.SetHead(ctx, head)
	s.done("SetHead", err, "type", head.Type, "value", head.Value)
	return err
}

func (s *ExtStore) Scan(ctx context.Context, f func(gitblobs.Object) error) error {
	var n int
	err := s.x.Scan(ctx, func(obj gitblobs.Object) error {
		n++
		return f(obj)
	})
	s.done("Scan", err, "count", n)
	return err
}

func (s *ExtStore) Replace(ctx context.Context, b *gitblobs.Bundle) error {
	err := s.x.Replace(ctx, b)
	head, _ := gitblobs.BundleHead(b)
	s.done("Replace", err, "objects", b.Len(), "head", head)
	return err
}

// Logger is the logger used by stores created from config.
// Set it before calling store.Create.
var Logger *zap.SugaredLogger

func init() {
	store.Register("logging", func(ctx context.Context, conf map[string]interface{}) (gitblobs.Store, error) {
		nestedStore, err := store.Nested(ctx, conf)
		if err != nil {
			return nil, errors.Wrap(err, "creating nested store")
		}
		return New(nestedStore, Logger), nil
	})
}

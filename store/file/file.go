// Package file implements an object store as a file hierarchy.
package file

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/renameio"
	"github.com/pkg/errors"

	"github.com/gitblobsdb/gitblobs"
	"github.com/gitblobsdb/gitblobs/store"
)

var _ gitblobs.ExtStore = &Store{}

// Store is a file-based implementation of an object store.
//
// Objects live at objects/ab/abcdef...,
// refs at refs/<name> (so refs/heads/main is refs/heads/main),
// and HEAD in the file HEAD.
// Every file is written atomically.
type Store struct {
	root string
}

// New produces a new Store storing data beneath `root`.
func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) objroot() string {
	return filepath.Join(s.root, "objects")
}

func (s *Store) objpath(h gitblobs.Hash) (string, error) {
	if !h.Valid() {
		return "", errors.Wrapf(gitblobs.ErrNotFound, "malformed hash %q", h)
	}
	return filepath.Join(s.objroot(), string(h[:2]), string(h)), nil
}

func (s *Store) refroot() string {
	return s.root
}

func (s *Store) refpath(name string) string {
	return filepath.Join(s.refroot(), filepath.FromSlash(name))
}

func (s *Store) headpath() string {
	return filepath.Join(s.root, "HEAD")
}

// GetObject gets the object with the given hash.
func (s *Store) GetObject(_ context.Context, h gitblobs.Hash) (gitblobs.Object, error) {
	path, err := s.objpath(h)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, gitblobs.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	obj, err := gitblobs.UnmarshalObject(data)
	return obj, errors.Wrapf(err, "decoding %s", path)
}

// PutObject adds an object to the store if it wasn't already present.
func (s *Store) PutObject(_ context.Context, obj gitblobs.Object) error {
	return s.put(s.root, obj)
}

func (s *Store) put(root string, obj gitblobs.Object) error {
	h := obj.ObjectHash()
	if !h.Valid() {
		return errors.Errorf("malformed hash %q", h)
	}
	path := filepath.Join(root, "objects", string(h[:2]), string(h))
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "ensuring path %s exists", dir)
	}
	data, err := gitblobs.MarshalObject(obj)
	if err != nil {
		return err
	}
	return errors.Wrapf(renameio.WriteFile(path, data, 0644), "writing %s", path)
}

// HasObject tells whether the object with the given hash is present.
func (s *Store) HasObject(_ context.Context, h gitblobs.Hash) (bool, error) {
	path, err := s.objpath(h)
	if err != nil {
		return false, nil
	}
	_, err = os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, errors.Wrapf(err, "statting %s", path)
}

// DeleteObject removes an object.
func (s *Store) DeleteObject(_ context.Context, h gitblobs.Hash) error {
	path, err := s.objpath(h)
	if err != nil {
		return nil
	}
	err = os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return errors.Wrapf(err, "removing %s", path)
}

// GetRef gets the named ref.
func (s *Store) GetRef(_ context.Context, name string) (gitblobs.Ref, error) {
	if err := gitblobs.CheckRefName(name); err != nil {
		return gitblobs.Ref{}, errors.Wrap(gitblobs.ErrNotFound, err.Error())
	}
	var ref gitblobs.Ref
	err := readJSON(s.refpath(name), &ref)
	return ref, errors.Wrapf(err, "reading ref %s", name)
}

// UpdateRef creates or moves the named ref.
func (s *Store) UpdateRef(_ context.Context, name string, h gitblobs.Hash) error {
	if err := gitblobs.CheckRefName(name); err != nil {
		return err
	}
	if name == "HEAD" || name == "objects" || strings.HasPrefix(name, "objects/") {
		return errors.Errorf("reserved ref name %q", name)
	}
	return writeJSON(s.refpath(name), gitblobs.Ref{Name: name, CommitHash: h})
}

// ListRefs calls f for each ref, in name order.
func (s *Store) ListRefs(_ context.Context, f func(gitblobs.Ref) error) error {
	var refs []gitblobs.Ref
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if errors.Is(err, fs.ErrNotExist) && path == s.root {
			return fs.SkipDir
		}
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == s.objroot() {
				return fs.SkipDir
			}
			return nil
		}
		if path == s.headpath() {
			return nil
		}
		var ref gitblobs.Ref
		if err := readJSON(path, &ref); err != nil {
			return errors.Wrapf(err, "reading ref file %s", path)
		}
		refs = append(refs, ref)
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "walking %s", s.root)
	}

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
	var head gitblobs.Head
	err := readJSON(s.headpath(), &head)
	return head, errors.Wrap(err, "reading HEAD")
}

// SetHead sets the store's HEAD.
func (s *Store) SetHead(_ context.Context, head gitblobs.Head) error {
	return writeJSON(s.headpath(), head)
}

// Scan calls f on each object in the store, in hash order.
func (s *Store) Scan(ctx context.Context, f func(gitblobs.Object) error) error {
	fanout, err := os.ReadDir(s.objroot())
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "reading dir %s", s.objroot())
	}
	for _, dir := range fanout {
		if !dir.IsDir() || len(dir.Name()) != 2 {
			continue
		}
		dirpath := filepath.Join(s.objroot(), dir.Name())
		entries, err := os.ReadDir(dirpath)
		if err != nil {
			return errors.Wrapf(err, "reading dir %s", dirpath)
		}
		for _, e := range entries {
			h := gitblobs.Hash(e.Name())
			if e.IsDir() || !h.Valid() {
				continue
			}
			obj, err := s.GetObject(ctx, h)
			if errors.Is(err, gitblobs.ErrNotFound) {
				// Deleted since the directory was read.
				continue
			}
			if err != nil {
				return err
			}
			if err := f(obj); err != nil {
				return err
			}
		}
	}
	return nil
}

// Replace discards the store's contents and loads b.
// The new contents are written to a staging directory beside the root,
// which is then swapped into place.
func (s *Store) Replace(_ context.Context, b *gitblobs.Bundle) error {
	head, ok := gitblobs.BundleHead(b)
	if !ok {
		return gitblobs.ErrMissingHeadPointer
	}

	parent := filepath.Dir(filepath.Clean(s.root))
	if err := os.MkdirAll(parent, 0755); err != nil {
		return errors.Wrapf(err, "ensuring path %s exists", parent)
	}
	staging, err := os.MkdirTemp(parent, filepath.Base(s.root)+".new-")
	if err != nil {
		return errors.Wrap(err, "creating staging dir")
	}
	defer os.RemoveAll(staging)

	for _, obj := range b.Objects() {
		if err := s.put(staging, obj); err != nil {
			return err
		}
	}
	if err := writeJSON(filepath.Join(staging, "HEAD"), gitblobs.HeadFromCommit(head)); err != nil {
		return err
	}

	old := staging + ".old"
	if err := os.Rename(s.root, old); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrapf(err, "moving %s aside", s.root)
	}
	if err := os.Rename(staging, s.root); err != nil {
		// Try to put the old contents back.
		os.Rename(old, s.root)
		return errors.Wrapf(err, "moving %s into place", staging)
	}
	return errors.Wrapf(os.RemoveAll(old), "removing %s", old)
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return gitblobs.ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func writeJSON(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encoding %s", path)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "ensuring path %s exists", dir)
	}
	return errors.Wrapf(renameio.WriteFile(path, data, 0644), "writing %s", path)
}

func init() {
	store.Register("file", func(_ context.Context, conf map[string]interface{}) (gitblobs.Store, error) {
		root, ok := conf["root"].(string)
		if !ok {
			return nil, errors.New(`missing "root" parameter`)
		}
		return New(root), nil
	})
}

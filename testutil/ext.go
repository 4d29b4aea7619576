package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/gitblobsdb/gitblobs"
)

// Replace tests replacing the whole contents of s with a bundle.
func Replace(ctx context.Context, t *testing.T, s gitblobs.ExtStore) {
	old := gitblobs.NewBlob([]byte("old"))
	if err := s.PutObject(ctx, old); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateRef(ctx, "refs/heads/main", old.Hash); err != nil {
		t.Fatal(err)
	}
	if err := s.SetHead(ctx, gitblobs.HeadFromBranch("main")); err != nil {
		t.Fatal(err)
	}

	src := gitblobs.NewBundle()
	h := NewHistory(t)
	root := h.Commit(nil, map[string]string{"a": "alpha"})
	next := h.Commit([]gitblobs.Hash{root.Hash}, map[string]string{"a": "alpha", "b": "beta"})
	for _, obj := range h.Objects.Objects() {
		src.Add(obj)
	}

	// Without a HEAD pointer, nothing changes.
	if err := s.Replace(ctx, src); !errors.Is(err, gitblobs.ErrMissingHeadPointer) {
		t.Fatalf("got %v replacing without HEAD pointer, want ErrMissingHeadPointer", err)
	}
	if ok, err := s.HasObject(ctx, old.Hash); err != nil || !ok {
		t.Fatalf("old object lost after failed replace (ok=%v, err=%v)", ok, err)
	}

	src.Header.Extra[gitblobs.ExtraCommitHead] = string(next.Hash)
	src.Header.Extra[gitblobs.ExtraTreeHead] = string(next.TreeHash)
	if err := s.Replace(ctx, src); err != nil {
		t.Fatal(err)
	}

	if ok, err := s.HasObject(ctx, old.Hash); err != nil || ok {
		t.Errorf("old object survived replace (ok=%v, err=%v)", ok, err)
	}
	if _, err := s.GetRef(ctx, "refs/heads/main"); !errors.Is(err, gitblobs.ErrNotFound) {
		t.Errorf("got %v getting ref after replace, want ErrNotFound", err)
	}
	head, err := s.GetHead(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if head != gitblobs.HeadFromCommit(next.Hash) {
		t.Errorf("got HEAD %+v after replace, want detached at %s", head, next.Hash)
	}

	var n int
	err = s.Scan(ctx, func(obj gitblobs.Object) error {
		if !src.Has(obj.ObjectHash()) {
			t.Errorf("unexpected %s %s after replace", obj.ObjectType(), obj.ObjectHash())
		}
		n++
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != src.Len() {
		t.Errorf("scanned %d objects after replace, want %d", n, src.Len())
	}
}

// All runs every conformance test.
// The factory must produce a new, empty store on each call.
func All(ctx context.Context, t *testing.T, storeFactory func() gitblobs.ExtStore) {
	t.Run("readwrite", func(t *testing.T) { ReadWrite(ctx, t, storeFactory()) })
	t.Run("refs", func(t *testing.T) { Refs(ctx, t, storeFactory()) })
	t.Run("replace", func(t *testing.T) { Replace(ctx, t, storeFactory()) })
	t.Run("allobjects", func(t *testing.T) { AllObjects(ctx, t, storeFactory) })
}

// Package testutil holds conformance tests shared by the storage backends,
// and helpers for building histories in tests.
package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"
	"testing/quick"

	"github.com/google/go-cmp/cmp"

	"github.com/gitblobsdb/gitblobs"
)

// ReadWrite stores one object of each kind in s,
// then reads them back out to make sure they're the same.
func ReadWrite(ctx context.Context, t *testing.T, s gitblobs.Store) {
	blob := gitblobs.NewBlob([]byte("hello, world\n"))
	meta, err := gitblobs.NewMetadata(map[string]interface{}{
		"mime": "text/plain",
		"size": json.Number("9007199254740993"), // 2^53+1, not representable as float64
		"tags": map[string]interface{}{"lang": "en"},
	})
	if err != nil {
		t.Fatal(err)
	}
	tree := gitblobs.NewTree(map[string]gitblobs.TreeEntry{
		"hello.txt": gitblobs.NewEntry(blob.Hash, meta.Hash),
		"bare.txt":  gitblobs.NewEntry(blob.Hash, ""),
	})
	sig := gitblobs.Signature{Name: "Ada", Email: "ada@example.com", Timestamp: "2024-01-02T03:04:05.000Z"}
	commit := gitblobs.NewCommit(gitblobs.CommitFields{
		TreeHash:  tree.Hash,
		Author:    sig,
		Committer: sig,
		Message:   "first",
	})

	objs := []gitblobs.Object{blob, meta, tree, commit}
	for _, obj := range objs {
		if err := s.PutObject(ctx, obj); err != nil {
			t.Fatalf("storing %s: %s", obj.ObjectType(), err)
		}
		// Again, to check idempotence.
		if err := s.PutObject(ctx, obj); err != nil {
			t.Fatalf("storing %s again: %s", obj.ObjectType(), err)
		}
	}

	for _, want := range objs {
		got, err := s.GetObject(ctx, want.ObjectHash())
		if err != nil {
			t.Fatalf("getting %s: %s", want.ObjectType(), err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%s mismatch (-want +got):\n%s", want.ObjectType(), diff)
		}
		if err := gitblobs.Verify(got); err != nil {
			t.Error(err)
		}
		ok, err := s.HasObject(ctx, want.ObjectHash())
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Errorf("HasObject(%s) is false", want.ObjectType())
		}
	}

	gotTree, err := gitblobs.GetTree(ctx, s, tree.Hash)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(tree, gotTree); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
	if _, err := gitblobs.GetCommit(ctx, s, tree.Hash); !errors.Is(err, gitblobs.ErrNotFound) {
		t.Errorf("got %v getting a tree as a commit, want ErrNotFound", err)
	}

	missing := gitblobs.NewBlob([]byte("never stored")).Hash
	if _, err := s.GetObject(ctx, missing); !errors.Is(err, gitblobs.ErrNotFound) {
		t.Errorf("got %v getting missing object, want ErrNotFound", err)
	}
	ok, err := s.HasObject(ctx, missing)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("HasObject of missing object is true")
	}

	if err := s.DeleteObject(ctx, blob.Hash); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetObject(ctx, blob.Hash); !errors.Is(err, gitblobs.ErrNotFound) {
		t.Errorf("got %v after deleting, want ErrNotFound", err)
	}
	if err := s.DeleteObject(ctx, blob.Hash); err != nil {
		t.Errorf("deleting absent object: %s", err)
	}
}

// AllObjects writes a random set of random blobs to an empty store
// and makes sure that the right set of hashes comes back in a call to Scan.
func AllObjects(ctx context.Context, t *testing.T, storeFactory func() gitblobs.ExtStore) {
	if err := quick.Check(allObjectsHelper(ctx, t, storeFactory), &quick.Config{MaxCount: 20}); err != nil {
		t.Error(err)
	}
}

func allObjectsHelper(ctx context.Context, t *testing.T, storeFactory func() gitblobs.ExtStore) func([][]byte) bool {
	return func(blobs [][]byte) bool {
		var (
			s    = storeFactory()
			seen = make(map[gitblobs.Hash]bool)
			want []gitblobs.Hash
		)
		for _, content := range blobs {
			b := gitblobs.NewBlob(content)
			if err := s.PutObject(ctx, b); err != nil {
				t.Fatal(err)
			}
			if !seen[b.Hash] {
				seen[b.Hash] = true
				want = append(want, b.Hash)
			}
		}
		var got []gitblobs.Hash
		err := s.Scan(ctx, func(obj gitblobs.Object) error {
			got = append(got, obj.ObjectHash())
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}

		less := func(a []gitblobs.Hash) func(i, j int) bool {
			return func(i, j int) bool { return a[i] < a[j] }
		}
		sort.Slice(want, less(want))
		sort.Slice(got, less(got))

		if diff := cmp.Diff(want, got); diff != "" {
			t.Logf("mismatch (-want +got):\n%s", diff)
			return false
		}
		return true
	}
}

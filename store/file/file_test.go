package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gitblobsdb/gitblobs"
	"github.com/gitblobsdb/gitblobs/testutil"
)

func TestStore(t *testing.T) {
	testutil.All(context.Background(), t, func() gitblobs.ExtStore {
		return New(filepath.Join(t.TempDir(), "repo"))
	})
}

func TestLayout(t *testing.T) {
	var (
		ctx  = context.Background()
		root = t.TempDir()
		s    = New(root)
		blob = gitblobs.NewBlob([]byte("layout"))
	)
	if err := s.PutObject(ctx, blob); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateRef(ctx, "refs/heads/main", blob.Hash); err != nil {
		t.Fatal(err)
	}
	if err := s.SetHead(ctx, gitblobs.HeadFromBranch("main")); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{
		filepath.Join(root, "objects", string(blob.Hash[:2]), string(blob.Hash)),
		filepath.Join(root, "refs", "heads", "main"),
		filepath.Join(root, "HEAD"),
	} {
		if _, err := os.Stat(path); err != nil {
			t.Error(err)
		}
	}

	if err := s.UpdateRef(ctx, "objects/x", blob.Hash); err == nil {
		t.Error("got no error for reserved ref name")
	}
	if err := s.UpdateRef(ctx, "refs/../../escape", blob.Hash); err == nil {
		t.Error("got no error for ref name with ..")
	}
}

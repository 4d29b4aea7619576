package sqlite3

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/gitblobsdb/gitblobs"
	"github.com/gitblobsdb/gitblobs/testutil"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	testutil.All(ctx, t, func() gitblobs.ExtStore {
		return newTestStore(ctx, t)
	})
}

func TestReplaceRollback(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(ctx, t)

	blob := gitblobs.NewBlob([]byte("keep me"))
	if err := s.PutObject(ctx, blob); err != nil {
		t.Fatal(err)
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()

	b := gitblobs.NewBundle()
	b.Header.Extra[gitblobs.ExtraCommitHead] = string(blob.Hash)
	if err := s.Replace(canceled, b); err == nil {
		t.Fatal("got no error replacing with canceled context")
	}

	ok, err := s.HasObject(ctx, blob.Hash)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("object lost after failed replace")
	}
}

func newTestStore(ctx context.Context, t *testing.T) *Store {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	s, err := New(ctx, db)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

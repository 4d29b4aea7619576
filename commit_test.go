package gitblobs_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gitblobsdb/gitblobs"
	"github.com/gitblobsdb/gitblobs/store/mem"
	"github.com/gitblobsdb/gitblobs/testutil"
)

func TestWriteCommit(t *testing.T) {
	var (
		ctx = context.Background()
		s   = mem.New()
		sig = gitblobs.Signature{Name: "Ada", Email: "ada@example.com", Timestamp: "2024-05-01T00:00:00.000Z"}
	)

	c1, err := gitblobs.WriteCommit(ctx, s, gitblobs.CommitRequest{
		Put: map[string]gitblobs.File{
			"a.txt": {Content: []byte("alpha")},
			"b.txt": {Content: []byte("beta"), Metadata: map[string]interface{}{"mime": "text/plain"}},
		},
		Author:  sig,
		Message: "first",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !c1.IsRoot() {
		t.Error("first commit has parents")
	}
	if c1.Committer != sig {
		t.Errorf("committer %+v, want author", c1.Committer)
	}

	c2, err := gitblobs.WriteCommit(ctx, s, gitblobs.CommitRequest{
		Put:     map[string]gitblobs.File{"c.txt": {Content: []byte("gamma")}},
		Remove:  []string{"a.txt"},
		Author:  sig,
		Message: "second",
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]gitblobs.Hash{c1.Hash}, c2.ParentHashes); diff != "" {
		t.Errorf("parents mismatch (-want +got):\n%s", diff)
	}
	if !gitblobs.IsFastForward(c1, c2) {
		t.Error("child is not a fast-forward of its parent")
	}
	if gitblobs.IsFastForward(c2, c1) {
		t.Error("parent is a fast-forward of its child")
	}
	if got := gitblobs.FindCommonAncestor(c1, c2); got == nil || got.Hash != c1.Hash {
		t.Errorf("common ancestor %v, want c1", got)
	}

	head, err := gitblobs.ResolveHead(ctx, s)
	if err != nil {
		t.Fatal(err)
	}
	if head != c2.Hash {
		t.Errorf("HEAD %s, want %s", head, c2.Hash)
	}

	snap, err := gitblobs.Snapshot(ctx, s, c2.Hash)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"b.txt", "c.txt"}, snap.Paths()); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}
	if got := string(snap.Files["c.txt"].Content); got != "gamma" {
		t.Errorf("c.txt is %q", got)
	}
	if m := snap.Files["b.txt"].Metadata; m == nil || m.Data["mime"] != "text/plain" {
		t.Errorf("b.txt metadata %+v", m)
	}
	if m := snap.Files["c.txt"].Metadata; m != nil {
		t.Errorf("c.txt has metadata %+v", m)
	}

	var log []string
	err = gitblobs.Log(ctx, s, c2.Hash, 0, func(c *gitblobs.Commit) error {
		log = append(log, c.Message)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"second", "first"}, log); diff != "" {
		t.Errorf("log mismatch (-want +got):\n%s", diff)
	}
}

func TestLogMerge(t *testing.T) {
	var (
		ctx = context.Background()
		s   = mem.New()
		h   = testutil.NewHistory(t)
	)
	root := h.Commit(nil, map[string]string{"a": "1"})
	left := h.Commit([]gitblobs.Hash{root.Hash}, map[string]string{"a": "2"})
	right := h.Commit([]gitblobs.Hash{root.Hash}, map[string]string{"a": "3"})
	merge := h.Commit([]gitblobs.Hash{left.Hash, right.Hash}, map[string]string{"a": "4"})
	h.Store(ctx, s)

	if gitblobs.FindCommonAncestor(left, right) != nil {
		t.Error("siblings have a direct common ancestor")
	}

	var got []gitblobs.Hash
	err := gitblobs.Log(ctx, s, merge.Hash, 0, func(c *gitblobs.Commit) error {
		got = append(got, c.Hash)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []gitblobs.Hash{merge.Hash, left.Hash, right.Hash, root.Hash}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	got = nil
	err = gitblobs.Log(ctx, s, merge.Hash, 2, func(c *gitblobs.Commit) error {
		got = append(got, c.Hash)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("got %d commits with limit 2", len(got))
	}
}

func TestWriteCommitInvalidUTF8(t *testing.T) {
	var (
		ctx = context.Background()
		s   = mem.New()
		sig = gitblobs.Signature{Name: "Ada", Email: "ada@example.com", Timestamp: "2024-05-01T00:00:00.000Z"}
	)

	reqs := map[string]gitblobs.CommitRequest{
		"path":    {Put: map[string]gitblobs.File{"a\xff": {Content: []byte("x")}}, Author: sig},
		"message": {Put: map[string]gitblobs.File{"a": {Content: []byte("x")}}, Author: sig, Message: "\xfe"},
		"author":  {Put: map[string]gitblobs.File{"a": {Content: []byte("x")}}, Author: gitblobs.Signature{Name: "\xc0"}},
	}
	for name, req := range reqs {
		t.Run(name, func(t *testing.T) {
			if _, err := gitblobs.WriteCommit(ctx, s, req); !errors.Is(err, gitblobs.ErrInvalidUTF8) {
				t.Errorf("got %v, want ErrInvalidUTF8", err)
			}
		})
	}
	if _, err := s.GetHead(ctx); !errors.Is(err, gitblobs.ErrNotFound) {
		t.Errorf("HEAD after rejected commits: got %v, want ErrNotFound", err)
	}
}

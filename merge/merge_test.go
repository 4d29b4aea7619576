package merge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/gitblobsdb/gitblobs"
	"github.com/gitblobsdb/gitblobs/diff"
	"github.com/gitblobsdb/gitblobs/store/mem"
	"github.com/gitblobsdb/gitblobs/testutil"
)

type fixture struct {
	local              *mem.Store
	d                  *gitblobs.Diff
	base, ours, theirs *gitblobs.Commit
}

// setup builds a base commit with two children.
// The local store has HEAD at ours and lacks the theirs commit,
// which arrives in d.
func setup(ctx context.Context, t *testing.T, base, ours, theirs map[string]string) fixture {
	h := testutil.NewHistory(t)
	b := h.Commit(nil, base)
	o := h.Commit([]gitblobs.Hash{b.Hash}, ours)
	th := h.Commit([]gitblobs.Hash{b.Hash}, theirs)

	remote := mem.New()
	h.Store(ctx, remote)
	d, err := diff.Walk(ctx, remote, b.Hash, th.Hash)
	if err != nil {
		t.Fatal(err)
	}

	local := mem.New()
	h.Store(ctx, local)
	if err := local.DeleteObject(ctx, th.Hash); err != nil {
		t.Fatal(err)
	}
	if err := gitblobs.AdvanceHead(ctx, local, o.Hash); err != nil {
		t.Fatal(err)
	}
	return fixture{local: local, d: d, base: b, ours: o, theirs: th}
}

func TestMergeConflict(t *testing.T) {
	ctx := context.Background()
	f := setup(ctx, t, map[string]string{"a": "X"}, map[string]string{"a": "Y"}, map[string]string{"a": "Z"})

	res, err := Merge(ctx, f.local, f.d)
	if err != nil {
		t.Fatal(err)
	}
	if res.Success {
		t.Fatal("merge succeeded")
	}
	if len(res.Conflicts) != 1 || res.Conflicts[0].Path != "a" {
		t.Errorf("got conflicts %+v", res.Conflicts)
	}
	if !errors.Is(res.Err(), gitblobs.ErrConflict) {
		t.Errorf("got %v, want ErrConflict", res.Err())
	}
	if res.Commit != nil || res.Tree != nil {
		t.Error("conflicted result has a commit")
	}

	head, err := gitblobs.ResolveHead(ctx, f.local)
	if err != nil {
		t.Fatal(err)
	}
	if head != f.ours.Hash {
		t.Errorf("HEAD moved to %s", head)
	}
	if ok, err := f.local.HasObject(ctx, f.theirs.Hash); err != nil || ok {
		t.Errorf("theirs stored after conflict (ok=%v, err=%v)", ok, err)
	}
}

func TestMergeClean(t *testing.T) {
	var (
		ctx = context.Background()
		now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		sig = gitblobs.Signature{Name: "Merger", Email: "merger@example.com"}
	)
	f := setup(ctx, t, map[string]string{}, map[string]string{"a": "1"}, map[string]string{"b": "2"})

	res, err := Merge(ctx, f.local, f.d, WithAuthor(sig), WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatal(err)
	}
	if err := res.Err(); err != nil {
		t.Fatal(err)
	}

	var paths []string
	for p := range res.Tree.Entries {
		paths = append(paths, p)
	}
	if len(paths) != 2 || res.Tree.Entries["a"].BlobHash != gitblobs.HashBytes([]byte("1")) || res.Tree.Entries["b"].BlobHash != gitblobs.HashBytes([]byte("2")) {
		t.Errorf("merged tree %+v", res.Tree.Entries)
	}

	c := res.Commit
	if diff := cmp.Diff([]gitblobs.Hash{f.theirs.Hash}, c.ParentHashes); diff != "" {
		t.Errorf("parents mismatch (-want +got):\n%s", diff)
	}
	if c.Author.Timestamp != "2024-05-01T12:00:00.000Z" {
		t.Errorf("author timestamp %s", c.Author.Timestamp)
	}
	if c.Committer != c.Author {
		t.Errorf("committer %+v, want %+v", c.Committer, c.Author)
	}
	wantMsg := "merge " + f.theirs.Hash.Short() + " into " + f.ours.Hash.Short()
	if c.Message != wantMsg {
		t.Errorf("message %q, want %q", c.Message, wantMsg)
	}
	if err := gitblobs.Verify(c); err != nil {
		t.Error(err)
	}

	head, err := gitblobs.ResolveHead(ctx, f.local)
	if err != nil {
		t.Fatal(err)
	}
	if head != c.Hash {
		t.Errorf("HEAD %s, want %s", head, c.Hash)
	}
	for _, h := range []gitblobs.Hash{f.theirs.Hash, c.Hash, c.TreeHash} {
		if ok, err := f.local.HasObject(ctx, h); err != nil || !ok {
			t.Errorf("object %s not stored (ok=%v, err=%v)", h, ok, err)
		}
	}
}

func TestMergeIncludeOurs(t *testing.T) {
	ctx := context.Background()
	f := setup(ctx, t, map[string]string{"a": "1"}, map[string]string{"a": "1", "o": "2"}, map[string]string{"a": "1", "t": "3"})

	res, err := Merge(ctx, f.local, f.d, IncludeOurs(), WithMessage("combine"))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success {
		t.Fatalf("conflicts: %+v", res.Conflicts)
	}
	if diff := cmp.Diff([]gitblobs.Hash{f.ours.Hash, f.theirs.Hash}, res.Commit.ParentHashes); diff != "" {
		t.Errorf("parents mismatch (-want +got):\n%s", diff)
	}
	if res.Commit.Message != "combine" {
		t.Errorf("message %q", res.Commit.Message)
	}
}

func TestMergeEmptyChain(t *testing.T) {
	ctx := context.Background()
	_, err := Merge(ctx, mem.New(), &gitblobs.Diff{Objects: gitblobs.NewObjectSet()})
	if !errors.Is(err, gitblobs.ErrInconsistent) {
		t.Errorf("got %v, want ErrInconsistent", err)
	}
}

package diff

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gitblobsdb/gitblobs"
	"github.com/gitblobsdb/gitblobs/store/mem"
	"github.com/gitblobsdb/gitblobs/testutil"
)

func TestWalkLinear(t *testing.T) {
	var (
		ctx = context.Background()
		s   = mem.New()
		h   = testutil.NewHistory(t)
	)
	c0 := h.Commit(nil, map[string]string{"a": "1"})
	c1 := h.CommitTree([]gitblobs.Hash{c0.Hash}, h.TreeWithMeta(map[string]string{"a": "2"}))
	c2 := h.Commit([]gitblobs.Hash{c1.Hash}, map[string]string{"a": "2", "b": "3"})
	h.Store(ctx, s)

	d, err := Walk(ctx, s, c0.Hash, c2.Hash)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]gitblobs.Hash{c0.Hash, c1.Hash, c2.Hash}, d.Chain); diff != "" {
		t.Errorf("chain mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(h.Objects, d.Objects); diff != "" {
		t.Errorf("objects mismatch (-want +got):\n%s", diff)
	}
	if d.From() != c0.Hash || d.To() != c2.Hash {
		t.Errorf("got from %s to %s", d.From(), d.To())
	}

	// A walk starting partway includes only the later commits.
	d, err = Walk(ctx, s, c1.Hash, c2.Hash)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]gitblobs.Hash{c1.Hash, c2.Hash}, d.Chain); diff != "" {
		t.Errorf("chain mismatch (-want +got):\n%s", diff)
	}
	if _, ok := d.Objects.Commits[c0.Hash]; ok {
		t.Error("walk from c1 includes c0")
	}
}

func TestWalkSame(t *testing.T) {
	var (
		ctx = context.Background()
		s   = mem.New()
		h   = testutil.NewHistory(t)
	)
	c0 := h.Commit(nil, map[string]string{"a": "1"})
	h.Store(ctx, s)

	d, err := Walk(ctx, s, c0.Hash, c0.Hash)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]gitblobs.Hash{c0.Hash}, d.Chain); diff != "" {
		t.Errorf("chain mismatch (-want +got):\n%s", diff)
	}
	if d.Objects.Len() != 3 {
		t.Errorf("got %d objects, want 3", d.Objects.Len())
	}
}

func TestWalkMerge(t *testing.T) {
	var (
		ctx = context.Background()
		s   = mem.New()
		h   = testutil.NewHistory(t)
	)
	base := h.Commit(nil, map[string]string{"a": "1"})
	other := h.Commit(nil, map[string]string{"o": "x"})
	a := h.Commit([]gitblobs.Hash{base.Hash}, map[string]string{"a": "2"})
	m := h.Commit([]gitblobs.Hash{other.Hash, a.Hash}, map[string]string{"a": "2", "o": "x"})
	h.Store(ctx, s)

	d, err := Walk(ctx, s, base.Hash, m.Hash)
	if err != nil {
		t.Fatal(err)
	}

	// The first parent leads nowhere but is kept.
	want := []gitblobs.Hash{base.Hash, a.Hash, other.Hash, m.Hash}
	if diff := cmp.Diff(want, d.Chain); diff != "" {
		t.Errorf("chain mismatch (-want +got):\n%s", diff)
	}
	if _, ok := d.Objects.Commits[other.Hash]; !ok {
		t.Error("dead-branch commit missing from objects")
	}
}

func TestWalkErrors(t *testing.T) {
	var (
		ctx = context.Background()
		s   = mem.New()
		h   = testutil.NewHistory(t)
	)
	c0 := h.Commit(nil, map[string]string{"a": "1"})
	c1 := h.Commit([]gitblobs.Hash{c0.Hash}, map[string]string{"a": "2"})
	c2 := h.Commit([]gitblobs.Hash{c1.Hash}, map[string]string{"a": "3"})
	c3 := h.Commit([]gitblobs.Hash{c2.Hash}, map[string]string{"a": "4"})
	lone := h.Commit(nil, map[string]string{"z": "26"})
	h.Store(ctx, s)

	t.Run("depth", func(t *testing.T) {
		_, err := Walk(ctx, s, c0.Hash, c3.Hash, MaxDepth(1))
		if !errors.Is(err, gitblobs.ErrDepthExceeded) {
			t.Errorf("got %v, want ErrDepthExceeded", err)
		}
		if _, err := Walk(ctx, s, c0.Hash, c3.Hash, MaxDepth(3)); err != nil {
			t.Errorf("got %v with exact depth", err)
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		_, err := Walk(ctx, s, lone.Hash, c3.Hash)
		if !errors.Is(err, gitblobs.ErrNotReachable) {
			t.Errorf("got %v, want ErrNotReachable", err)
		}
	})

	t.Run("missing_from", func(t *testing.T) {
		_, err := Walk(ctx, s, gitblobs.HashBytes([]byte("nope")), c3.Hash)
		if !errors.Is(err, gitblobs.ErrNotFound) {
			t.Errorf("got %v, want ErrNotFound", err)
		}
	})

	t.Run("missing_to", func(t *testing.T) {
		_, err := Walk(ctx, s, c0.Hash, gitblobs.HashBytes([]byte("nope")))
		if !errors.Is(err, gitblobs.ErrNotFound) {
			t.Errorf("got %v, want ErrNotFound", err)
		}
	})

	t.Run("missing_blob", func(t *testing.T) {
		s2 := mem.New()
		h.Store(ctx, s2)
		if err := s2.DeleteObject(ctx, gitblobs.NewBlob([]byte("3")).Hash); err != nil {
			t.Fatal(err)
		}
		_, err := Walk(ctx, s2, c0.Hash, c3.Hash)
		if !errors.Is(err, gitblobs.ErrNotFound) {
			t.Errorf("got %v, want ErrNotFound", err)
		}
	})
}

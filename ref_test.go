package gitblobs_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gitblobsdb/gitblobs"
	"github.com/gitblobsdb/gitblobs/store/mem"
)

func TestRefNames(t *testing.T) {
	if got := gitblobs.NewBranch("main", "h").Name; got != "refs/heads/main" {
		t.Errorf("got %s", got)
	}
	if got := gitblobs.NewBranch("refs/heads/main", "h").Name; got != "refs/heads/main" {
		t.Errorf("got %s", got)
	}
	if got := gitblobs.NewTag("v1", "h").Name; got != "refs/tags/v1" {
		t.Errorf("got %s", got)
	}

	for _, bad := range []string{"", "/abs", "trailing/", "a//b", "a/../b", "."} {
		if err := gitblobs.CheckRefName(bad); err == nil {
			t.Errorf("no error for %q", bad)
		}
	}
	if err := gitblobs.CheckRefName("refs/heads/feature/x"); err != nil {
		t.Error(err)
	}
}

func TestHead(t *testing.T) {
	h := gitblobs.HeadFromBranch("main")
	if h.Detached() {
		t.Error("branch HEAD is detached")
	}
	if name, ok := h.Branch(); !ok || name != "refs/heads/main" {
		t.Errorf("got %s, %v", name, ok)
	}
	if _, ok := h.Commit(); ok {
		t.Error("branch HEAD has a commit")
	}

	d := gitblobs.HeadFromCommit("abc")
	if !d.Detached() {
		t.Error("commit HEAD is not detached")
	}
	if c, ok := d.Commit(); !ok || c != "abc" {
		t.Errorf("got %s, %v", c, ok)
	}
}

func TestAdvanceHead(t *testing.T) {
	ctx := context.Background()

	t.Run("unset", func(t *testing.T) {
		s := mem.New()
		if _, err := gitblobs.ResolveHead(ctx, s); !errors.Is(err, gitblobs.ErrNotFound) {
			t.Fatalf("got %v, want ErrNotFound", err)
		}
		if err := gitblobs.AdvanceHead(ctx, s, "c1"); err != nil {
			t.Fatal(err)
		}
		head, err := s.GetHead(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if head != gitblobs.HeadFromCommit("c1") {
			t.Errorf("got %+v", head)
		}
	})

	t.Run("symbolic", func(t *testing.T) {
		s := mem.New()
		if err := s.SetHead(ctx, gitblobs.HeadFromBranch("main")); err != nil {
			t.Fatal(err)
		}
		if _, err := gitblobs.ResolveHead(ctx, s); !errors.Is(err, gitblobs.ErrNotFound) {
			t.Fatalf("got %v resolving HEAD to a missing ref, want ErrNotFound", err)
		}
		if err := gitblobs.AdvanceHead(ctx, s, "c2"); err != nil {
			t.Fatal(err)
		}
		head, err := s.GetHead(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if head != gitblobs.HeadFromBranch("main") {
			t.Errorf("HEAD changed to %+v", head)
		}
		got, err := gitblobs.ResolveHead(ctx, s)
		if err != nil {
			t.Fatal(err)
		}
		if got != "c2" {
			t.Errorf("HEAD resolves to %s, want c2", got)
		}
	})
}

package testutil

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gitblobsdb/gitblobs"
)

// Refs tests storing, moving, and listing refs,
// and getting and setting HEAD.
func Refs(ctx context.Context, t *testing.T, s gitblobs.Store) {
	var (
		c1 = gitblobs.NewBlob([]byte("c1")).Hash
		c2 = gitblobs.NewBlob([]byte("c2")).Hash
		c3 = gitblobs.NewBlob([]byte("c3")).Hash
	)

	if _, err := s.GetHead(ctx); !errors.Is(err, gitblobs.ErrNotFound) {
		t.Fatalf("got %v getting unset HEAD, want ErrNotFound", err)
	}
	if _, err := s.GetRef(ctx, "refs/heads/main"); !errors.Is(err, gitblobs.ErrNotFound) {
		t.Fatalf("got %v getting missing ref, want ErrNotFound", err)
	}

	updates := []struct {
		name string
		h    gitblobs.Hash
	}{
		{"refs/heads/main", c1},
		{"refs/tags/v1", c1},
		{"refs/heads/dev", c2},
		{"refs/heads/main", c3},
	}
	for _, u := range updates {
		if err := s.UpdateRef(ctx, u.name, u.h); err != nil {
			t.Fatalf("updating %s: %s", u.name, err)
		}
	}

	cases := []struct {
		name string
		want gitblobs.Hash
	}{
		{"refs/heads/main", c3},
		{"refs/heads/dev", c2},
		{"refs/tags/v1", c1},
	}
	for i, c := range cases {
		t.Run(fmt.Sprintf("case_%02d", i+1), func(t *testing.T) {
			got, err := s.GetRef(ctx, c.name)
			if err != nil {
				t.Fatal(err)
			}
			if got.Name != c.name || got.CommitHash != c.want {
				t.Errorf("got %+v, want %s at %s", got, c.name, c.want)
			}
		})
	}

	var got []gitblobs.Ref
	err := s.ListRefs(ctx, func(ref gitblobs.Ref) error {
		got = append(got, ref)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []gitblobs.Ref{
		{Name: "refs/heads/dev", CommitHash: c2},
		{Name: "refs/heads/main", CommitHash: c3},
		{Name: "refs/tags/v1", CommitHash: c1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("refs mismatch (-want +got):\n%s", diff)
	}

	heads := []gitblobs.Head{
		gitblobs.HeadFromCommit(c1),
		gitblobs.HeadFromBranch("main"),
	}
	for _, head := range heads {
		if err := s.SetHead(ctx, head); err != nil {
			t.Fatal(err)
		}
		got, err := s.GetHead(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if got != head {
			t.Errorf("got HEAD %+v, want %+v", got, head)
		}
	}

	h, err := gitblobs.ResolveHead(ctx, s)
	if err != nil {
		t.Fatal(err)
	}
	if h != c3 {
		t.Errorf("HEAD resolves to %s, want %s", h, c3)
	}
}

package testutil

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/gitblobsdb/gitblobs"
)

// History builds commits for tests.
// Every object it creates is kept in Objects.
type History struct {
	Objects gitblobs.ObjectSet

	t *testing.T
	n int
}

// NewHistory produces an empty History.
func NewHistory(t *testing.T) *History {
	return &History{Objects: gitblobs.NewObjectSet(), t: t}
}

// Tree produces a tree mapping each path to a blob with the given content.
// Metadata is omitted.
func (h *History) Tree(files map[string]string) *gitblobs.Tree {
	entries := make(map[string]gitblobs.TreeEntry, len(files))
	for path, content := range files {
		b := gitblobs.NewBlob([]byte(content))
		h.Objects.Add(b)
		entries[path] = gitblobs.NewEntry(b.Hash, "")
	}
	tree := gitblobs.NewTree(entries)
	h.Objects.Add(tree)
	return tree
}

// TreeWithMeta is like Tree but gives each file a metadata object
// recording its path.
func (h *History) TreeWithMeta(files map[string]string) *gitblobs.Tree {
	entries := make(map[string]gitblobs.TreeEntry, len(files))
	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		b := gitblobs.NewBlob([]byte(files[path]))
		m, err := gitblobs.NewMetadata(map[string]interface{}{"path": path})
		if err != nil {
			h.t.Fatal(err)
		}
		h.Objects.Add(b)
		h.Objects.Add(m)
		entries[path] = gitblobs.NewEntry(b.Hash, m.Hash)
	}
	tree := gitblobs.NewTree(entries)
	h.Objects.Add(tree)
	return tree
}

// Commit produces a commit with the given parents and files.
// Each call produces a distinct commit,
// even for the same parents and files.
func (h *History) Commit(parents []gitblobs.Hash, files map[string]string) *gitblobs.Commit {
	return h.CommitTree(parents, h.Tree(files))
}

// CommitTree produces a commit of the given tree.
func (h *History) CommitTree(parents []gitblobs.Hash, tree *gitblobs.Tree) *gitblobs.Commit {
	h.n++
	sig := gitblobs.Signature{
		Name:      "Tester",
		Email:     "tester@example.com",
		Timestamp: fmt.Sprintf("2024-01-01T00:00:%02d.000Z", h.n%60),
	}
	c := gitblobs.NewCommit(gitblobs.CommitFields{
		TreeHash:     tree.Hash,
		ParentHashes: parents,
		Author:       sig,
		Committer:    sig,
		Message:      fmt.Sprintf("commit %d", h.n),
	})
	h.Objects.Add(c)
	return c
}

// Store writes every object of h to s.
func (h *History) Store(ctx context.Context, s gitblobs.Store) {
	for _, obj := range h.Objects.Objects() {
		if err := s.PutObject(ctx, obj); err != nil {
			h.t.Fatal(err)
		}
	}
}

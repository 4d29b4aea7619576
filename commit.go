package gitblobs

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
)

// IsFastForward tells whether moving from cur to next is a fast-forward:
// next is cur, or cur is one of next's parents.
func IsFastForward(cur, next *Commit) bool {
	if cur.Hash == next.Hash {
		return true
	}
	for _, p := range next.ParentHashes {
		if p == cur.Hash {
			return true
		}
	}
	return false
}

// FindCommonAncestor returns a or b if one is the other or a direct parent of the other,
// and nil otherwise.
// It does not search deeper history;
// the diff package's walker does that.
func FindCommonAncestor(a, b *Commit) *Commit {
	if a.Hash == b.Hash {
		return a
	}
	for _, p := range a.ParentHashes {
		if p == b.Hash {
			return b
		}
	}
	for _, p := range b.ParentHashes {
		if p == a.Hash {
			return a
		}
	}
	return nil
}

// IsMergeCommit tells whether c has more than one parent.
func IsMergeCommit(c *Commit) bool {
	return len(c.ParentHashes) > 1
}

// Timestamp formats t the way commit signatures record it.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// File is the content of one path for WriteCommit.
type File struct {
	Content []byte

	// Metadata, if non-nil, is stored as a Metadata object beside the blob.
	Metadata map[string]interface{}
}

// CommitRequest describes a new commit on top of HEAD.
type CommitRequest struct {
	Put    map[string]File
	Remove []string

	Author    Signature
	Committer Signature // defaults to Author
	Message   string
}

// WriteCommit creates a commit whose tree is HEAD's tree
// with the requested paths added, replaced, or removed,
// stores it with all the new objects it needs,
// and advances HEAD to it.
// All text in req must be valid UTF-8.
// If HEAD is unset the new commit is a root commit.
func WriteCommit(ctx context.Context, s Store, req CommitRequest) (*Commit, error) {
	if err := CheckUTF8(req); err != nil {
		return nil, errors.Wrap(err, "checking commit request")
	}

	var (
		parents []Hash
		entries = make(map[string]TreeEntry)
	)

	parent, err := ResolveHead(ctx, s)
	switch {
	case errors.Is(err, ErrNotFound):
		// Root commit.
	case err != nil:
		return nil, err
	default:
		parents = []Hash{parent}
		pc, err := GetCommit(ctx, s, parent)
		if err != nil {
			return nil, err
		}
		pt, err := GetTree(ctx, s, pc.TreeHash)
		if err != nil {
			return nil, err
		}
		for path, e := range pt.Entries {
			entries[path] = e
		}
	}

	paths := make([]string, 0, len(req.Put))
	for path := range req.Put {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		f := req.Put[path]
		blob := NewBlob(f.Content)
		if _, err := PutIfAbsent(ctx, s, blob); err != nil {
			return nil, err
		}
		var metaHash Hash
		if f.Metadata != nil {
			meta, err := NewMetadata(f.Metadata)
			if err != nil {
				return nil, errors.Wrapf(err, "metadata for %s", path)
			}
			if _, err := PutIfAbsent(ctx, s, meta); err != nil {
				return nil, err
			}
			metaHash = meta.Hash
		}
		entries[path] = NewEntry(blob.Hash, metaHash)
	}
	for _, path := range req.Remove {
		delete(entries, path)
	}

	tree := NewTree(entries)
	if _, err := PutIfAbsent(ctx, s, tree); err != nil {
		return nil, err
	}

	committer := req.Committer
	if committer == (Signature{}) {
		committer = req.Author
	}
	commit := NewCommit(CommitFields{
		TreeHash:     tree.Hash,
		ParentHashes: parents,
		Author:       req.Author,
		Committer:    committer,
		Message:      req.Message,
	})
	if err := PutCommit(ctx, s, commit); err != nil {
		return nil, err
	}
	if err := AdvanceHead(ctx, s, commit.Hash); err != nil {
		return nil, err
	}
	return commit, nil
}

// Log calls f for up to limit commits reachable from the given one,
// breadth-first, visiting each commit once.
// A limit of zero or less means no limit.
func Log(ctx context.Context, s Store, from Hash, limit int, f func(*Commit) error) error {
	var (
		queue   = []Hash{from}
		visited = make(map[Hash]bool)
		n       int
	)
	for len(queue) > 0 {
		if limit > 0 && n >= limit {
			return nil
		}
		h := queue[0]
		queue = queue[1:]
		if visited[h] {
			continue
		}
		visited[h] = true

		c, err := GetCommit(ctx, s, h)
		if err != nil {
			return err
		}
		if err := f(c); err != nil {
			return err
		}
		n++
		queue = append(queue, c.ParentHashes...)
	}
	return nil
}

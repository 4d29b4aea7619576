package gitblobs

import (
	"context"
	"sort"

	"github.com/pkg/errors"
)

// SnapshotFile is one file of a TreeSnapshot.
type SnapshotFile struct {
	TreeEntry

	// Metadata is nil when the entry has none.
	Metadata *Metadata

	Content []byte
}

// TreeSnapshot is the full contents of a commit's tree.
type TreeSnapshot struct {
	Commit *Commit
	Tree   *Tree
	Files  map[string]SnapshotFile
}

// Snapshot materializes every file in the tree of the given commit.
func Snapshot(ctx context.Context, s Store, commit Hash) (*TreeSnapshot, error) {
	c, err := GetCommit(ctx, s, commit)
	if err != nil {
		return nil, err
	}
	t, err := GetTree(ctx, s, c.TreeHash)
	if err != nil {
		return nil, errors.Wrapf(err, "snapshotting commit %s", commit)
	}
	snap := &TreeSnapshot{
		Commit: c,
		Tree:   t,
		Files:  make(map[string]SnapshotFile, len(t.Entries)),
	}
	for path, e := range t.Entries {
		blob, err := GetBlob(ctx, s, e.BlobHash)
		if err != nil {
			return nil, errors.Wrapf(err, "snapshotting %s", path)
		}
		f := SnapshotFile{TreeEntry: e, Content: blob.Content}
		if e.MetadataHash != "" {
			f.Metadata, err = GetMetadata(ctx, s, e.MetadataHash)
			if err != nil {
				return nil, errors.Wrapf(err, "snapshotting %s", path)
			}
		}
		snap.Files[path] = f
	}
	return snap, nil
}

// Paths lists the snapshot's paths in sorted order.
func (ts *TreeSnapshot) Paths() []string {
	paths := make([]string, 0, len(ts.Files))
	for p := range ts.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

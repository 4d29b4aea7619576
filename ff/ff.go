// Package ff applies a linear extension of history to a store.
package ff

import (
	"context"

	"github.com/pkg/errors"

	"github.com/gitblobsdb/gitblobs"
)

// Apply fast-forwards the store's HEAD along the chain of d.
//
// HEAD must resolve to the first commit of the chain,
// or Apply returns ErrNotFastForwardable without changing anything.
// Each commit of the chain that is not already stored
// is stored together with its tree and the blobs and metadata its tree refers to,
// all of which must be carried in d (or Apply fails with ErrInconsistent).
// Objects written before a failure stay written.
// Finally HEAD is advanced to the last commit of the chain.
//
// Applying the same diff twice is harmless:
// the second time, nothing is stored
// and HEAD is set to the value it already has.
func Apply(ctx context.Context, s gitblobs.Store, d *gitblobs.Diff) error {
	if len(d.Chain) == 0 {
		return errors.Wrap(gitblobs.ErrInconsistent, "empty commit chain")
	}

	head, err := gitblobs.ResolveHead(ctx, s)
	if errors.Is(err, gitblobs.ErrNotFound) {
		return errors.Wrap(gitblobs.ErrNotFastForwardable, "HEAD is unset")
	}
	if err != nil {
		return err
	}
	if head != d.From() {
		return errors.Wrapf(gitblobs.ErrNotFastForwardable, "HEAD is %s, chain starts at %s", head, d.From())
	}

	for _, h := range d.Chain {
		if err := applyCommit(ctx, s, d.Objects, h); err != nil {
			return err
		}
	}

	return gitblobs.AdvanceHead(ctx, s, d.To())
}

func applyCommit(ctx context.Context, s gitblobs.Store, objs gitblobs.ObjectSet, h gitblobs.Hash) error {
	ok, err := s.HasObject(ctx, h)
	if err != nil {
		return errors.Wrapf(err, "checking for commit %s", h)
	}
	if ok {
		return nil
	}

	c, ok := objs.Commits[h]
	if !ok {
		return errors.Wrapf(gitblobs.ErrInconsistent, "commit %s not in bundle", h)
	}
	t, ok := objs.Trees[c.TreeHash]
	if !ok {
		return errors.Wrapf(gitblobs.ErrInconsistent, "tree %s of commit %s not in bundle", c.TreeHash, h)
	}

	for path, e := range t.Entries {
		blob, ok := objs.Blobs[e.BlobHash]
		if !ok {
			return errors.Wrapf(gitblobs.ErrInconsistent, "blob %s at %s not in bundle", e.BlobHash, path)
		}
		if _, err := gitblobs.PutIfAbsent(ctx, s, blob); err != nil {
			return err
		}
		if e.MetadataHash == "" {
			continue
		}
		meta, ok := objs.Metadata[e.MetadataHash]
		if !ok {
			return errors.Wrapf(gitblobs.ErrInconsistent, "metadata %s at %s not in bundle", e.MetadataHash, path)
		}
		if _, err := gitblobs.PutIfAbsent(ctx, s, meta); err != nil {
			return err
		}
	}
	if _, err := gitblobs.PutIfAbsent(ctx, s, t); err != nil {
		return err
	}
	return gitblobs.PutCommit(ctx, s, c)
}

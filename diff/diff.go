// Package diff computes the objects needed to move between two revisions.
package diff

import (
	"context"

	"github.com/pkg/errors"

	"github.com/gitblobsdb/gitblobs"
)

// DefaultMaxDepth is the hop limit of a walk when no MaxDepth option is given.
const DefaultMaxDepth = 1000

// Option configures Walk.
type Option func(*walker)

// MaxDepth sets the number of parent hops Walk may take
// before failing with ErrDepthExceeded.
func MaxDepth(n int) Option {
	return func(w *walker) {
		w.maxDepth = n
	}
}

type walker struct {
	s        gitblobs.Store
	from     gitblobs.Hash
	maxDepth int

	visited map[gitblobs.Hash]bool
	chain   []gitblobs.Hash
	objs    gitblobs.ObjectSet
}

type frame struct {
	commit *gitblobs.Commit
	depth  int
	next   int // index into commit.ParentHashes
}

// Walk follows parent links backward from the commit `to`
// until it reaches the commit `from`,
// and returns the commits it recorded along the way, oldest first,
// together with every tree, blob, and metadata object those commits refer to.
//
// Parents are explored depth-first in the order listed,
// stopping at the first one that leads to `from`.
// A commit is recorded when it is first visited,
// before its parents are explored,
// so commits on a merge's parent branch that turned out not to lead to `from`
// remain in the result.
//
// Walk fails with ErrNotFound if `from` or any visited commit
// (or any object of a recorded commit's tree) is missing,
// with ErrDepthExceeded if a path grows longer than the maximum depth,
// and with ErrNotReachable if every path from `to` is exhausted without meeting `from`.
func Walk(ctx context.Context, s gitblobs.Store, from, to gitblobs.Hash, opts ...Option) (*gitblobs.Diff, error) {
	w := &walker{
		s:        s,
		from:     from,
		maxDepth: DefaultMaxDepth,
		visited:  make(map[gitblobs.Hash]bool),
		objs:     gitblobs.NewObjectSet(),
	}
	for _, opt := range opts {
		opt(w)
	}

	if _, err := gitblobs.GetCommit(ctx, s, from); err != nil {
		return nil, errors.Wrap(err, "getting starting commit")
	}

	found, fr, err := w.enter(ctx, to, 0)
	if err != nil {
		return nil, err
	}

	var stack []*frame
	if fr != nil {
		stack = append(stack, fr)
	}
	for !found && len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		top := stack[len(stack)-1]
		if top.next >= len(top.commit.ParentHashes) {
			stack = stack[:len(stack)-1]
			continue
		}
		parent := top.commit.ParentHashes[top.next]
		top.next++

		found, fr, err = w.enter(ctx, parent, top.depth+1)
		if err != nil {
			return nil, err
		}
		if fr != nil {
			stack = append(stack, fr)
		}
	}
	if !found {
		return nil, errors.Wrapf(gitblobs.ErrNotReachable, "%s from %s", from, to)
	}

	chain := make([]gitblobs.Hash, len(w.chain))
	for i, h := range w.chain {
		chain[len(chain)-1-i] = h
	}
	return &gitblobs.Diff{Chain: chain, Objects: w.objs}, nil
}

// enter visits one commit.
// It reports whether the commit is the walk's destination,
// and otherwise returns a frame for exploring its parents
// (or nil if it was visited already).
func (w *walker) enter(ctx context.Context, h gitblobs.Hash, depth int) (bool, *frame, error) {
	if depth > w.maxDepth {
		return false, nil, errors.Wrapf(gitblobs.ErrDepthExceeded, "at commit %s (limit %d)", h, w.maxDepth)
	}
	c, err := gitblobs.GetCommit(ctx, w.s, h)
	if err != nil {
		return false, nil, err
	}

	if h == w.from {
		return true, nil, w.record(ctx, c)
	}

	if w.visited[h] {
		return false, nil, nil
	}
	w.visited[h] = true

	if err := w.record(ctx, c); err != nil {
		return false, nil, err
	}
	return false, &frame{commit: c, depth: depth}, nil
}

func (w *walker) record(ctx context.Context, c *gitblobs.Commit) error {
	w.chain = append(w.chain, c.Hash)
	w.objs.Add(c)
	return errors.Wrapf(gitblobs.CollectTree(ctx, w.s, w.objs, c.TreeHash), "collecting tree of commit %s", c.Hash)
}

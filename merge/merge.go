// Package merge reconciles divergent histories with a three-way merge.
package merge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/gitblobsdb/gitblobs"
)

// Result is the outcome of Merge.
type Result struct {
	Success   bool
	Conflicts []Conflict

	// Commit and Tree are the new merge commit and its tree.
	// They are nil when Success is false.
	Commit *gitblobs.Commit
	Tree   *gitblobs.Tree
}

// Err returns nil for a successful merge,
// and otherwise ErrConflict naming the conflicted paths.
func (r *Result) Err() error {
	if r.Success {
		return nil
	}
	paths := make([]string, 0, len(r.Conflicts))
	for _, c := range r.Conflicts {
		paths = append(paths, c.Path)
	}
	return errors.Wrapf(gitblobs.ErrConflict, "conflicting paths: %s", strings.Join(paths, ", "))
}

// Option configures Merge.
type Option func(*config)

type config struct {
	author, committer gitblobs.Signature
	message           string
	now               func() time.Time
	includeOurs       bool
}

// WithAuthor sets the author of the merge commit.
// It is also the committer unless WithCommitter is given.
func WithAuthor(sig gitblobs.Signature) Option {
	return func(c *config) { c.author = sig }
}

// WithCommitter sets the committer of the merge commit.
func WithCommitter(sig gitblobs.Signature) Option {
	return func(c *config) { c.committer = sig }
}

// WithMessage sets the message of the merge commit.
func WithMessage(msg string) Option {
	return func(c *config) { c.message = msg }
}

// WithClock sets the source of timestamps for signatures that lack one.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// IncludeOurs makes the merge commit's parents [ours, theirs].
// Without it the only parent is theirs,
// which is what existing bundles expect.
func IncludeOurs() Option {
	return func(c *config) { c.includeOurs = true }
}

// Merge merges the history in d into the store's HEAD.
//
// "Ours" is the HEAD commit,
// "theirs" is the last commit of d's chain,
// and the base is the first.
// Commits and trees are looked up in d first and then in the store.
//
// If any path conflicts,
// Merge returns an unsuccessful Result and changes nothing.
// Otherwise it stores every object in d,
// stores the merged tree and a new merge commit,
// and advances HEAD to that commit.
func Merge(ctx context.Context, s gitblobs.Store, d *gitblobs.Diff, opts ...Option) (*Result, error) {
	conf := config{now: time.Now}
	for _, opt := range opts {
		opt(&conf)
	}
	if len(d.Chain) == 0 {
		return nil, errors.Wrap(gitblobs.ErrInconsistent, "empty commit chain")
	}

	oursHash, err := gitblobs.ResolveHead(ctx, s)
	if err != nil {
		return nil, errors.Wrap(err, "resolving ours")
	}
	ours, oursTree, err := lookup(ctx, s, d, oursHash)
	if err != nil {
		return nil, errors.Wrap(err, "resolving ours")
	}
	theirs, theirsTree, err := lookup(ctx, s, d, d.To())
	if err != nil {
		return nil, errors.Wrap(err, "resolving theirs")
	}
	_, baseTree, err := lookup(ctx, s, d, d.From())
	if err != nil {
		return nil, errors.Wrap(err, "resolving base")
	}

	merged, conflicts := Trees(baseTree.Entries, oursTree.Entries, theirsTree.Entries)
	if len(conflicts) > 0 {
		return &Result{Conflicts: conflicts}, nil
	}

	parents := []gitblobs.Hash{theirs.Hash}
	if conf.includeOurs {
		parents = []gitblobs.Hash{ours.Hash, theirs.Hash}
	}
	author := conf.stamp(conf.author)
	committer := author
	if conf.committer != (gitblobs.Signature{}) {
		committer = conf.stamp(conf.committer)
	}
	msg := conf.message
	if msg == "" {
		msg = fmt.Sprintf("merge %s into %s", theirs.Hash.Short(), ours.Hash.Short())
	}
	fields := gitblobs.CommitFields{
		ParentHashes: parents,
		Author:       author,
		Committer:    committer,
		Message:      msg,
	}
	if err := gitblobs.CheckUTF8(fields); err != nil {
		return nil, errors.Wrap(err, "checking merge commit")
	}
	if err := gitblobs.CheckUTF8(merged); err != nil {
		return nil, errors.Wrap(err, "checking merged tree")
	}

	for _, obj := range d.Objects.Objects() {
		if _, err := gitblobs.PutIfAbsent(ctx, s, obj); err != nil {
			return nil, err
		}
	}

	tree := gitblobs.NewTree(merged)
	if _, err := gitblobs.PutIfAbsent(ctx, s, tree); err != nil {
		return nil, err
	}

	fields.TreeHash = tree.Hash
	commit := gitblobs.NewCommit(fields)
	if err := gitblobs.PutCommit(ctx, s, commit); err != nil {
		return nil, err
	}
	if err := gitblobs.AdvanceHead(ctx, s, commit.Hash); err != nil {
		return nil, err
	}
	return &Result{Success: true, Commit: commit, Tree: tree}, nil
}

func (c config) stamp(sig gitblobs.Signature) gitblobs.Signature {
	if sig.Timestamp == "" {
		sig.Timestamp = gitblobs.Timestamp(c.now())
	}
	return sig
}

func lookup(ctx context.Context, s gitblobs.Store, d *gitblobs.Diff, h gitblobs.Hash) (*gitblobs.Commit, *gitblobs.Tree, error) {
	c, ok := d.Objects.Commits[h]
	if !ok {
		var err error
		c, err = gitblobs.GetCommit(ctx, s, h)
		if err != nil {
			return nil, nil, err
		}
	}
	t, ok := d.Objects.Trees[c.TreeHash]
	if !ok {
		var err error
		t, err = gitblobs.GetTree(ctx, s, c.TreeHash)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "tree of commit %s", h)
		}
	}
	return c, t, nil
}

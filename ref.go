package gitblobs

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

const (
	BranchPrefix = "refs/heads/"
	TagPrefix    = "refs/tags/"
)

// Ref is a named pointer to a commit.
type Ref struct {
	Name       string `json:"name"`
	CommitHash Hash   `json:"commit_hash"`
}

// HeadType tells how to interpret Head.Value.
type HeadType string

const (
	// HeadRef means HEAD follows the ref named in Value.
	HeadRef HeadType = "ref"

	// HeadCommit means HEAD is detached at the commit hash in Value.
	HeadCommit HeadType = "commit"
)

// Head is the repository-wide current position.
type Head struct {
	Type  HeadType `json:"type"`
	Value string   `json:"value"`
}

// NewBranch produces a ref under refs/heads/,
// adding the prefix to name if needed.
func NewBranch(name string, commit Hash) Ref {
	return Ref{Name: BranchName(name), CommitHash: commit}
}

// NewTag produces a ref under refs/tags/,
// adding the prefix to name if needed.
func NewTag(name string, commit Hash) Ref {
	if !strings.HasPrefix(name, TagPrefix) {
		name = TagPrefix + name
	}
	return Ref{Name: name, CommitHash: commit}
}

// BranchName adds the refs/heads/ prefix to name if it lacks it.
func BranchName(name string) string {
	if strings.HasPrefix(name, BranchPrefix) {
		return name
	}
	return BranchPrefix + name
}

// HeadFromBranch produces a symbolic HEAD following the named branch.
func HeadFromBranch(name string) Head {
	return Head{Type: HeadRef, Value: BranchName(name)}
}

// HeadFromCommit produces a detached HEAD.
func HeadFromCommit(commit Hash) Head {
	return Head{Type: HeadCommit, Value: string(commit)}
}

// Detached tells whether h points directly at a commit.
func (h Head) Detached() bool {
	return h.Type == HeadCommit
}

// Branch returns the ref name h follows,
// or false if h is detached.
func (h Head) Branch() (string, bool) {
	if h.Type == HeadRef {
		return h.Value, true
	}
	return "", false
}

// Commit returns the commit hash of a detached HEAD,
// or false if h follows a ref.
func (h Head) Commit() (Hash, bool) {
	if h.Type == HeadCommit {
		return Hash(h.Value), true
	}
	return "", false
}

// CheckRefName rejects ref names that cannot be stored safely:
// empty names, absolute paths, empty or dot components.
func CheckRefName(name string) error {
	if name == "" {
		return errors.New("empty ref name")
	}
	if strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") {
		return errors.Errorf("ref name %q begins or ends with /", name)
	}
	for _, part := range strings.Split(name, "/") {
		switch part {
		case "", ".", "..":
			return errors.Errorf("ref name %q has invalid component %q", name, part)
		}
	}
	return nil
}

// ResolveHead returns the commit hash HEAD designates,
// following a symbolic HEAD through its ref.
// It returns ErrNotFound if HEAD is unset or follows a missing ref.
func ResolveHead(ctx context.Context, s Store) (Hash, error) {
	head, err := s.GetHead(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting HEAD")
	}
	switch head.Type {
	case HeadCommit:
		return Hash(head.Value), nil
	case HeadRef:
		ref, err := s.GetRef(ctx, head.Value)
		if err != nil {
			return "", errors.Wrapf(err, "resolving HEAD ref %s", head.Value)
		}
		return ref.CommitHash, nil
	default:
		return "", errors.Errorf("HEAD has unknown type %q", head.Type)
	}
}

// AdvanceHead moves HEAD to the given commit.
// A symbolic HEAD stays symbolic and the ref it follows is moved instead.
// An unset HEAD becomes a detached HEAD.
func AdvanceHead(ctx context.Context, s Store, commit Hash) error {
	head, err := s.GetHead(ctx)
	if errors.Is(err, ErrNotFound) {
		return errors.Wrap(s.SetHead(ctx, HeadFromCommit(commit)), "setting HEAD")
	}
	if err != nil {
		return errors.Wrap(err, "getting HEAD")
	}
	if name, ok := head.Branch(); ok {
		return errors.Wrapf(s.UpdateRef(ctx, name, commit), "updating ref %s", name)
	}
	return errors.Wrap(s.SetHead(ctx, HeadFromCommit(commit)), "setting HEAD")
}

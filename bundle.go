package gitblobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// BundleVersion is the Header.Version of bundles produced by this package.
const BundleVersion = "1"

// Keys of Header.Extra.
const (
	// ExtraCommitChain holds the JSON array of commit hashes of a diff bundle, oldest first.
	ExtraCommitChain = "commitChains"

	// ExtraCommitHead holds the HEAD commit of a snapshot or backup bundle.
	ExtraCommitHead = "commit_head"

	// ExtraTreeHead holds the tree of that commit.
	ExtraTreeHead = "tree_head"
)

// Header describes a Bundle.
type Header struct {
	Version   string
	Timestamp string
	Extra     map[string]string
}

// Bundle is a self-contained set of objects for transport or backup.
type Bundle struct {
	ObjectSet
	Header Header
}

// NewBundle produces an empty bundle with a fresh header.
func NewBundle() *Bundle {
	return &Bundle{
		ObjectSet: NewObjectSet(),
		Header: Header{
			Version:   BundleVersion,
			Timestamp: Timestamp(time.Now()),
			Extra:     make(map[string]string),
		},
	}
}

// BundleHead returns the HEAD commit named in b's header, if any.
func BundleHead(b *Bundle) (Hash, bool) {
	h := b.Header.Extra[ExtraCommitHead]
	return Hash(h), h != ""
}

// DiffBundle packages a Diff for transport.
func DiffBundle(d *Diff) (*Bundle, error) {
	b := NewBundle()
	for _, obj := range d.Objects.Objects() {
		b.Add(obj)
	}
	chain := d.Chain
	if chain == nil {
		chain = []Hash{}
	}
	j, err := json.Marshal(chain)
	if err != nil {
		return nil, errors.Wrap(err, "encoding commit chain")
	}
	b.Header.Extra[ExtraCommitChain] = string(j)
	return b, nil
}

// BundleDiff recovers the Diff packaged by DiffBundle.
// It returns ErrInconsistent if b carries no commit chain.
func BundleDiff(b *Bundle) (*Diff, error) {
	j, ok := b.Header.Extra[ExtraCommitChain]
	if !ok {
		return nil, errors.Wrap(ErrInconsistent, "bundle has no commit chain")
	}
	var chain []Hash
	if err := json.Unmarshal([]byte(j), &chain); err != nil {
		return nil, errors.Wrap(err, "decoding commit chain")
	}
	d := &Diff{Chain: chain, Objects: NewObjectSet()}
	for _, obj := range b.Objects() {
		d.Objects.Add(obj)
	}
	return d, nil
}

// CollectTree adds the tree with the given hash to set,
// along with every blob and metadata object its entries refer to.
// An empty metadata hash means the entry has none.
// A tree already in set is skipped.
func CollectTree(ctx context.Context, s Store, set ObjectSet, h Hash) error {
	if _, ok := set.Trees[h]; ok {
		return nil
	}
	tree, err := GetTree(ctx, s, h)
	if err != nil {
		return err
	}
	set.Add(tree)
	for path, e := range tree.Entries {
		if _, ok := set.Blobs[e.BlobHash]; !ok {
			blob, err := GetBlob(ctx, s, e.BlobHash)
			if err != nil {
				return errors.Wrapf(err, "at path %s", path)
			}
			set.Add(blob)
		}
		if e.MetadataHash == "" {
			continue
		}
		if _, ok := set.Metadata[e.MetadataHash]; !ok {
			meta, err := GetMetadata(ctx, s, e.MetadataHash)
			if err != nil {
				return errors.Wrapf(err, "at path %s", path)
			}
			set.Add(meta)
		}
	}
	return nil
}

// HeadSnapshotBundle packages the HEAD commit and its tree.
// The commit is included with its parents removed,
// so the bundle has no dangling links,
// but it keeps its original hash.
func HeadSnapshotBundle(ctx context.Context, s Store) (*Bundle, error) {
	h, err := ResolveHead(ctx, s)
	if err != nil {
		return nil, err
	}
	c, err := GetCommit(ctx, s, h)
	if err != nil {
		return nil, err
	}

	b := NewBundle()
	if err := CollectTree(ctx, s, b.ObjectSet, c.TreeHash); err != nil {
		return nil, errors.Wrapf(err, "collecting tree of commit %s", h)
	}

	trimmed := &Commit{Hash: c.Hash, CommitFields: c.CommitFields}
	trimmed.ParentHashes = []Hash{}
	b.Add(trimmed)

	b.Header.Extra[ExtraCommitHead] = string(c.Hash)
	b.Header.Extra[ExtraTreeHead] = string(c.TreeHash)
	return b, nil
}

// BackupBundle packages every object in s.
// It requires an ExtStore.
// The header names the HEAD commit and its tree when HEAD resolves.
func BackupBundle(ctx context.Context, s Store) (*Bundle, error) {
	x, err := Ext(s)
	if err != nil {
		return nil, err
	}
	b := NewBundle()
	err = x.Scan(ctx, func(obj Object) error {
		b.Add(obj)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "scanning store")
	}

	h, err := ResolveHead(ctx, s)
	if errors.Is(err, ErrNotFound) {
		return b, nil
	}
	if err != nil {
		return nil, err
	}
	b.Header.Extra[ExtraCommitHead] = string(h)
	if c, ok := b.Commits[h]; ok {
		b.Header.Extra[ExtraTreeHead] = string(c.TreeHash)
	}
	return b, nil
}

// Restore replaces the whole contents of s with b.
// It requires an ExtStore,
// and b's header must name a HEAD commit.
func Restore(ctx context.Context, s Store, b *Bundle) error {
	x, err := Ext(s)
	if err != nil {
		return err
	}
	if _, ok := BundleHead(b); !ok {
		return ErrMissingHeadPointer
	}
	return errors.Wrap(x.Replace(ctx, b), "replacing store contents")
}

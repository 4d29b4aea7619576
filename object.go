package gitblobs

import (
	"github.com/pkg/errors"
)

// ObjectType identifies the kind of an Object.
type ObjectType string

const (
	TypeBlob     ObjectType = "blob"
	TypeTree     ObjectType = "tree"
	TypeCommit   ObjectType = "commit"
	TypeMetadata ObjectType = "metadata"
)

// AllObjectTypes lists every ObjectType.
var AllObjectTypes = []ObjectType{TypeBlob, TypeTree, TypeCommit, TypeMetadata}

// Object is one of *Blob, *Tree, *Commit, or *Metadata.
// No other implementations exist;
// consumers switch on the concrete type.
type Object interface {
	ObjectType() ObjectType
	ObjectHash() Hash

	isObject()
}

// Blob is a sequence of bytes.
type Blob struct {
	Hash    Hash
	Content []byte
}

// Metadata is an arbitrary string-keyed map,
// typically describing the blob beside it in a tree entry.
type Metadata struct {
	Hash Hash
	Data map[string]interface{}
}

// EntryFile is the only TreeEntry type.
const EntryFile = "file"

// TreeEntry is the value of one path in a tree.
// The JSON field order matters: it is part of the tree's hash.
type TreeEntry struct {
	BlobHash     Hash   `json:"blob_hash"`
	MetadataHash Hash   `json:"metadata_hash"`
	Type         string `json:"type"`
}

// NewEntry produces a file TreeEntry.
// MetadataHash may be empty,
// meaning the entry has no metadata.
func NewEntry(blob, meta Hash) TreeEntry {
	return TreeEntry{BlobHash: blob, MetadataHash: meta, Type: EntryFile}
}

// Same tells whether two entries refer to the same blob and metadata.
func (e TreeEntry) Same(other TreeEntry) bool {
	return e.BlobHash == other.BlobHash && e.MetadataHash == other.MetadataHash
}

// Tree maps paths to entries.
type Tree struct {
	Hash    Hash
	Entries map[string]TreeEntry
}

// Signature identifies the author or committer of a commit.
// Timestamp is in ISO-8601 format.
type Signature struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Timestamp string `json:"timestamp"`
}

// CommitFields are the hashed contents of a commit.
type CommitFields struct {
	TreeHash     Hash
	ParentHashes []Hash
	Author       Signature
	Committer    Signature
	Message      string
}

// Commit is a tree plus its place in history.
type Commit struct {
	Hash Hash
	CommitFields
}

// commitJSON is the hashed form of CommitFields,
// with fields in sorted key order.
type commitJSON struct {
	Author       Signature `json:"author"`
	Committer    Signature `json:"committer"`
	Message      string    `json:"message"`
	ParentHashes []Hash    `json:"parent_hashes"`
	TreeHash     Hash      `json:"tree_hash"`
}

func (*Blob) ObjectType() ObjectType     { return TypeBlob }
func (*Tree) ObjectType() ObjectType     { return TypeTree }
func (*Commit) ObjectType() ObjectType   { return TypeCommit }
func (*Metadata) ObjectType() ObjectType { return TypeMetadata }

func (b *Blob) ObjectHash() Hash     { return b.Hash }
func (t *Tree) ObjectHash() Hash     { return t.Hash }
func (c *Commit) ObjectHash() Hash   { return c.Hash }
func (m *Metadata) ObjectHash() Hash { return m.Hash }

func (*Blob) isObject()     {}
func (*Tree) isObject()     {}
func (*Commit) isObject()   {}
func (*Metadata) isObject() {}

// NewBlob produces the Blob for the given content.
func NewBlob(content []byte) *Blob {
	if content == nil {
		content = []byte{}
	}
	return &Blob{Hash: HashBytes(content), Content: content}
}

// NewMetadata produces the Metadata for the given map.
// A nil map is treated as empty.
// The only possible error comes from values that have no JSON encoding.
func NewMetadata(data map[string]interface{}) (*Metadata, error) {
	if data == nil {
		data = map[string]interface{}{}
	}
	h, err := HashJSON(data)
	if err != nil {
		return nil, errors.Wrap(err, "hashing metadata")
	}
	return &Metadata{Hash: h, Data: data}, nil
}

// NewTree produces the Tree for the given entries.
// A nil map is treated as empty.
// It panics if a path or hash is not valid UTF-8;
// check untrusted input with CheckUTF8 first.
func NewTree(entries map[string]TreeEntry) *Tree {
	if entries == nil {
		entries = map[string]TreeEntry{}
	}
	h, err := treeHash(entries)
	if err != nil {
		panic(err)
	}
	return &Tree{Hash: h, Entries: entries}
}

// NewCommit produces the Commit for the given fields.
// A nil ParentHashes is treated as empty (a root commit).
// Like NewTree, it panics on strings that are not valid UTF-8.
func NewCommit(f CommitFields) *Commit {
	if f.ParentHashes == nil {
		f.ParentHashes = []Hash{}
	}
	h, err := commitHash(f)
	if err != nil {
		panic(err)
	}
	return &Commit{Hash: h, CommitFields: f}
}

// IsRoot tells whether c has no parents.
func (c *Commit) IsRoot() bool {
	return len(c.ParentHashes) == 0
}

func treeHash(entries map[string]TreeEntry) (Hash, error) {
	return HashJSON(entries)
}

func commitHash(f CommitFields) (Hash, error) {
	return HashJSON(f.toJSON())
}

func (f CommitFields) toJSON() commitJSON {
	return commitJSON{
		Author:       f.Author,
		Committer:    f.Committer,
		Message:      f.Message,
		ParentHashes: f.ParentHashes,
		TreeHash:     f.TreeHash,
	}
}

// Verify recomputes the hash of obj from its content
// and reports ErrHashMismatch if it differs from the recorded one.
func Verify(obj Object) error {
	var (
		want Hash
		err  error
	)
	switch o := obj.(type) {
	case *Blob:
		want = HashBytes(o.Content)
	case *Metadata:
		data := o.Data
		if data == nil {
			data = map[string]interface{}{}
		}
		want, err = HashJSON(data)
	case *Tree:
		entries := o.Entries
		if entries == nil {
			entries = map[string]TreeEntry{}
		}
		want, err = treeHash(entries)
	case *Commit:
		f := o.CommitFields
		if f.ParentHashes == nil {
			f.ParentHashes = []Hash{}
		}
		want, err = commitHash(f)
	default:
		return errors.Errorf("unknown object type %T", obj)
	}
	if err != nil {
		return errors.Wrapf(err, "hashing %s %s", obj.ObjectType(), obj.ObjectHash())
	}
	if want != obj.ObjectHash() {
		return errors.Wrapf(ErrHashMismatch, "%s %s hashes to %s", obj.ObjectType(), obj.ObjectHash(), want)
	}
	return nil
}

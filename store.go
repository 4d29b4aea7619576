package gitblobs

import (
	"context"

	"github.com/pkg/errors"
)

// Store is the storage contract every backend implements.
//
// Objects are immutable and content-addressed,
// so PutObject of an object that is already present is a no-op.
// Refs and HEAD are the only mutable state.
// None of the methods are compare-and-swap;
// callers sharing a Store must serialize their updates.
type Store interface {
	// GetObject gets an object by its hash.
	// It returns ErrNotFound if there is none.
	GetObject(context.Context, Hash) (Object, error)

	// PutObject adds an object to the store if it is not already present.
	PutObject(context.Context, Object) error

	// HasObject tells whether an object with the given hash is present.
	HasObject(context.Context, Hash) (bool, error)

	// DeleteObject removes an object.
	// Deleting an absent object is not an error.
	DeleteObject(context.Context, Hash) error

	// GetRef gets the ref with the given name.
	// It returns ErrNotFound if there is none.
	GetRef(ctx context.Context, name string) (Ref, error)

	// UpdateRef creates or moves the named ref.
	UpdateRef(ctx context.Context, name string, commit Hash) error

	// ListRefs calls f for each ref in the store, in name order.
	// If f returns an error,
	// ListRefs exits with that error.
	ListRefs(ctx context.Context, f func(Ref) error) error

	// GetHead gets the store's HEAD.
	// It returns ErrNotFound if HEAD was never set.
	GetHead(context.Context) (Head, error)

	// SetHead sets the store's HEAD.
	SetHead(context.Context, Head) error
}

// ExtStore is a Store with whole-store operations,
// used for backup and restore.
type ExtStore interface {
	Store

	// Scan calls f for each object in the store.
	// Objects are produced lazily;
	// each call to Scan starts over from the beginning.
	// The calls reflect at least the set of objects present when Scan was called.
	// If f returns an error,
	// Scan exits with that error.
	Scan(ctx context.Context, f func(Object) error) error

	// Replace discards every object, ref, and HEAD in the store
	// and loads the objects in b,
	// setting a detached HEAD at the commit named in b's header.
	// It returns ErrMissingHeadPointer (leaving the store untouched)
	// if the header names no HEAD commit.
	Replace(ctx context.Context, b *Bundle) error
}

// Capability is either Basic or Extended.
type Capability interface {
	isCapability()
}

// Basic is the Capability of a Store that is not an ExtStore.
type Basic struct {
	Store
}

// Extended is the Capability of an ExtStore.
type Extended struct {
	ExtStore
}

func (Basic) isCapability()    {}
func (Extended) isCapability() {}

// CapabilityOf reports what s is able to do.
func CapabilityOf(s Store) Capability {
	if x, ok := s.(ExtStore); ok {
		return Extended{ExtStore: x}
	}
	return Basic{Store: s}
}

// Ext returns s as an ExtStore,
// or ErrUnsupportedCapability if it isn't one.
func Ext(s Store) (ExtStore, error) {
	switch c := CapabilityOf(s).(type) {
	case Extended:
		return c.ExtStore, nil
	case Basic:
		return nil, errors.Wrapf(ErrUnsupportedCapability, "%T has no scan/replace", c.Store)
	default:
		return nil, errors.Errorf("unknown capability %T", c)
	}
}

// GetBlob gets the blob with the given hash.
// An object of another kind counts as not found.
func GetBlob(ctx context.Context, s Store, h Hash) (*Blob, error) {
	obj, err := getTyped(ctx, s, h, TypeBlob)
	if err != nil {
		return nil, err
	}
	return obj.(*Blob), nil
}

// GetTree gets the tree with the given hash.
// An object of another kind counts as not found.
func GetTree(ctx context.Context, s Store, h Hash) (*Tree, error) {
	obj, err := getTyped(ctx, s, h, TypeTree)
	if err != nil {
		return nil, err
	}
	return obj.(*Tree), nil
}

// GetCommit gets the commit with the given hash.
// An object of another kind counts as not found.
func GetCommit(ctx context.Context, s Store, h Hash) (*Commit, error) {
	obj, err := getTyped(ctx, s, h, TypeCommit)
	if err != nil {
		return nil, err
	}
	return obj.(*Commit), nil
}

// GetMetadata gets the metadata with the given hash.
// An object of another kind counts as not found.
func GetMetadata(ctx context.Context, s Store, h Hash) (*Metadata, error) {
	obj, err := getTyped(ctx, s, h, TypeMetadata)
	if err != nil {
		return nil, err
	}
	return obj.(*Metadata), nil
}

func getTyped(ctx context.Context, s Store, h Hash, want ObjectType) (Object, error) {
	obj, err := s.GetObject(ctx, h)
	if err != nil {
		return nil, errors.Wrapf(err, "getting %s %s", want, h)
	}
	if got := obj.ObjectType(); got != want {
		return nil, errors.Wrapf(ErrNotFound, "getting %s %s: object is a %s", want, h, got)
	}
	return obj, nil
}

// PutBlob stores a blob.
func PutBlob(ctx context.Context, s Store, b *Blob) error {
	return errors.Wrapf(s.PutObject(ctx, b), "storing blob %s", b.Hash)
}

// PutTree stores a tree.
func PutTree(ctx context.Context, s Store, t *Tree) error {
	return errors.Wrapf(s.PutObject(ctx, t), "storing tree %s", t.Hash)
}

// PutCommit stores a commit.
func PutCommit(ctx context.Context, s Store, c *Commit) error {
	return errors.Wrapf(s.PutObject(ctx, c), "storing commit %s", c.Hash)
}

// PutMetadata stores metadata.
func PutMetadata(ctx context.Context, s Store, m *Metadata) error {
	return errors.Wrapf(s.PutObject(ctx, m), "storing metadata %s", m.Hash)
}

// PutIfAbsent stores obj unless an object with its hash is already present.
// It reports whether obj was added.
func PutIfAbsent(ctx context.Context, s Store, obj Object) (bool, error) {
	h := obj.ObjectHash()
	ok, err := s.HasObject(ctx, h)
	if err != nil {
		return false, errors.Wrapf(err, "checking for %s %s", obj.ObjectType(), h)
	}
	if ok {
		return false, nil
	}
	err = s.PutObject(ctx, obj)
	return err == nil, errors.Wrapf(err, "storing %s %s", obj.ObjectType(), h)
}

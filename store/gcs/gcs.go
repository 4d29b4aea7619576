// Package gcs implements an object store on Google Cloud Storage.
package gcs

import (
	"context"
	"encoding/json"
	stderrs "errors"
	"io"
	"net/http"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/gitblobsdb/gitblobs"
	"github.com/gitblobsdb/gitblobs/store"
)

var _ gitblobs.ExtStore = &Store{}

// Store is a Google Cloud Storage-based implementation of an object store.
//
// Each object is stored as a GCS object named o:<hash>,
// each ref as r:<name>,
// and HEAD as the GCS object HEAD.
type Store struct {
	bucket *storage.BucketHandle
}

// New produces a new Store.
func New(bucket *storage.BucketHandle) *Store {
	return &Store{bucket: bucket}
}

const (
	objPrefix = "o:"
	refPrefix = "r:"
	headName  = "HEAD"

	typeKey = "type"
)

func objName(h gitblobs.Hash) string {
	return objPrefix + string(h)
}

func refName(name string) string {
	return refPrefix + name
}

// GetObject gets the object with the given hash.
func (s *Store) GetObject(ctx context.Context, h gitblobs.Hash) (gitblobs.Object, error) {
	name := objName(h)
	data, err := s.read(ctx, name)
	if err != nil {
		return nil, err
	}
	obj, err := gitblobs.UnmarshalObject(data)
	return obj, errors.Wrapf(err, "decoding object %s", name)
}

func (s *Store) read(ctx context.Context, name string) ([]byte, error) {
	r, err := s.bucket.Object(name).NewReader(ctx)
	if stderrs.Is(err, storage.ErrObjectNotExist) {
		return nil, gitblobs.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading info of object %s", name)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	return data, errors.Wrapf(err, "reading contents of object %s", name)
}

// PutObject adds an object to the store if it wasn't already present.
func (s *Store) PutObject(ctx context.Context, obj gitblobs.Object) error {
	data, err := gitblobs.MarshalObject(obj)
	if err != nil {
		return err
	}
	var (
		name = objName(obj.ObjectHash())
		w    = s.bucket.Object(name).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	)
	w.Metadata = map[string]string{typeKey: string(obj.ObjectType())}
	w.ContentType = "application/json"

	if _, err := w.Write(data); err != nil {
		w.Close()
		return errors.Wrapf(err, "writing object %s", name)
	}
	err = w.Close()
	var e *googleapi.Error
	if stderrs.As(err, &e) && e.Code == http.StatusPreconditionFailed {
		// Already present.
		return nil
	}
	return errors.Wrapf(err, "writing object %s", name)
}

// HasObject tells whether the object with the given hash is present.
func (s *Store) HasObject(ctx context.Context, h gitblobs.Hash) (bool, error) {
	name := objName(h)
	_, err := s.bucket.Object(name).Attrs(ctx)
	if stderrs.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	return err == nil, errors.Wrapf(err, "getting object attrs for %s", name)
}

// DeleteObject removes an object.
func (s *Store) DeleteObject(ctx context.Context, h gitblobs.Hash) error {
	return s.delete(ctx, objName(h))
}

func (s *Store) delete(ctx context.Context, name string) error {
	err := s.bucket.Object(name).Delete(ctx)
	if stderrs.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return errors.Wrapf(err, "deleting object %s", name)
}

// GetRef gets the named ref.
func (s *Store) GetRef(ctx context.Context, name string) (gitblobs.Ref, error) {
	var ref gitblobs.Ref
	err := s.readJSON(ctx, refName(name), &ref)
	return ref, errors.Wrapf(err, "getting ref %s", name)
}

// UpdateRef creates or moves the named ref.
func (s *Store) UpdateRef(ctx context.Context, name string, h gitblobs.Hash) error {
	if err := gitblobs.CheckRefName(name); err != nil {
		return err
	}
	return s.writeJSON(ctx, refName(name), gitblobs.Ref{Name: name, CommitHash: h})
}

// ListRefs calls f for each ref, in name order.
// Cloud Storage lists objects in name order,
// and every ref object shares the same prefix.
func (s *Store) ListRefs(ctx context.Context, f func(gitblobs.Ref) error) error {
	return s.each(ctx, refPrefix, func(name string) error {
		var ref gitblobs.Ref
		if err := s.readJSON(ctx, name, &ref); errors.Is(err, gitblobs.ErrNotFound) {
			// Deleted since listing.
			return nil
		} else if err != nil {
			return err
		}
		return f(ref)
	})
}

// GetHead gets the store's HEAD.
func (s *Store) GetHead(ctx context.Context) (gitblobs.Head, error) {
	var head gitblobs.Head
	err := s.readJSON(ctx, headName, &head)
	return head, errors.Wrap(err, "getting HEAD")
}

// SetHead sets the store's HEAD.
func (s *Store) SetHead(ctx context.Context, head gitblobs.Head) error {
	return s.writeJSON(ctx, headName, head)
}

// Scan calls f on each object in the store, in hash order.
func (s *Store) Scan(ctx context.Context, f func(gitblobs.Object) error) error {
	return s.each(ctx, objPrefix, func(name string) error {
		obj, err := s.GetObject(ctx, gitblobs.Hash(strings.TrimPrefix(name, objPrefix)))
		if errors.Is(err, gitblobs.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return f(obj)
	})
}

// Replace discards the store's contents and loads b.
// Cloud Storage has no multi-object transactions,
// so other readers may observe the store part way through.
// HEAD is written last.
func (s *Store) Replace(ctx context.Context, b *gitblobs.Bundle) error {
	head, ok := gitblobs.BundleHead(b)
	if !ok {
		return gitblobs.ErrMissingHeadPointer
	}
	if err := s.clear(ctx); err != nil {
		return err
	}
	for _, obj := range b.Objects() {
		if err := s.PutObject(ctx, obj); err != nil {
			return err
		}
	}
	return s.SetHead(ctx, gitblobs.HeadFromCommit(head))
}

// clear deletes everything in the bucket.
func (s *Store) clear(ctx context.Context) error {
	return s.each(ctx, "", func(name string) error {
		return s.delete(ctx, name)
	})
}

func (s *Store) each(ctx context.Context, prefix string, f func(name string) error) error {
	iter := s.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := iter.Next()
		if stderrs.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "listing objects with prefix %q", prefix)
		}
		if err := f(attrs.Name); err != nil {
			return err
		}
	}
}

func (s *Store) readJSON(ctx context.Context, name string, v interface{}) error {
	data, err := s.read(ctx, name)
	if err != nil {
		return err
	}
	return errors.Wrapf(json.Unmarshal(data, v), "decoding object %s", name)
}

func (s *Store) writeJSON(ctx context.Context, name string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encoding object %s", name)
	}
	w := s.bucket.Object(name).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return errors.Wrapf(err, "writing object %s", name)
	}
	return errors.Wrapf(w.Close(), "writing object %s", name)
}

func init() {
	store.Register("gcs", func(ctx context.Context, conf map[string]interface{}) (gitblobs.Store, error) {
		var options []option.ClientOption
		if creds, ok := conf["creds"].(string); ok {
			options = append(options, option.WithCredentialsFile(creds))
		}
		bucketName, ok := conf["bucket"].(string)
		if !ok {
			return nil, errors.New(`missing "bucket" parameter`)
		}
		c, err := storage.NewClient(ctx, options...)
		if err != nil {
			return nil, errors.Wrap(err, "creating cloud storage client")
		}
		return New(c.Bucket(bucketName)), nil
	})
}

package store

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/gitblobsdb/gitblobs"
)

// Parallelism bounds the concurrent writes of Copy and Sync.
var Parallelism = 8

// Copy mirrors src into dst:
// every object of src missing from dst is added,
// every ref of src is set in dst,
// and dst's HEAD is set to src's HEAD (if src has one).
// Objects are copied concurrently.
// Refs and HEAD are copied after all objects,
// so they never point at objects dst lacks.
func Copy(ctx context.Context, dst gitblobs.Store, src gitblobs.ExtStore) error {
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(Parallelism)

	err := src.Scan(ectx, func(obj gitblobs.Object) error {
		eg.Go(func() error {
			_, err := gitblobs.PutIfAbsent(ectx, dst, obj)
			return err
		})
		return nil
	})
	if werr := eg.Wait(); werr != nil {
		return werr
	}
	if err != nil {
		return errors.Wrap(err, "scanning source store")
	}

	err = src.ListRefs(ctx, func(ref gitblobs.Ref) error {
		return errors.Wrapf(dst.UpdateRef(ctx, ref.Name, ref.CommitHash), "copying ref %s", ref.Name)
	})
	if err != nil {
		return err
	}

	head, err := src.GetHead(ctx)
	if errors.Is(err, gitblobs.ErrNotFound) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "getting source HEAD")
	}
	return errors.Wrap(dst.SetHead(ctx, head), "setting HEAD")
}

// Sync synchronizes the objects of two or more stores.
// It scans all the stores concurrently,
// then adds each object to the stores where it's missing.
// Refs and HEAD are not synchronized:
// they are per-store state.
func Sync(ctx context.Context, stores []gitblobs.ExtStore) error {
	if len(stores) < 2 {
		return nil
	}

	var (
		mu     sync.Mutex
		holder = make(map[gitblobs.Hash]int) // index of one store holding each object
		has    = make([]map[gitblobs.Hash]bool, len(stores))
	)

	eg, ectx := errgroup.WithContext(ctx)
	for i, s := range stores {
		i, s := i, s
		has[i] = make(map[gitblobs.Hash]bool)
		eg.Go(func() error {
			return s.Scan(ectx, func(obj gitblobs.Object) error {
				h := obj.ObjectHash()
				mu.Lock()
				defer mu.Unlock()
				has[i][h] = true
				if _, ok := holder[h]; !ok {
					holder[h] = i
				}
				return nil
			})
		})
	}
	if err := eg.Wait(); err != nil {
		return errors.Wrap(err, "scanning stores")
	}

	eg, ectx = errgroup.WithContext(ctx)
	eg.SetLimit(Parallelism)
	for h, i := range holder {
		h, i := h, i
		eg.Go(func() error {
			var obj gitblobs.Object
			for j, s := range stores {
				if has[j][h] {
					continue
				}
				if obj == nil {
					var err error
					obj, err = stores[i].GetObject(ectx, h)
					if err != nil {
						return errors.Wrapf(err, "getting %s", h)
					}
				}
				if err := s.PutObject(ectx, obj); err != nil {
					return errors.Wrapf(err, "storing %s %s", obj.ObjectType(), h)
				}
			}
			return nil
		})
	}
	return eg.Wait()
}

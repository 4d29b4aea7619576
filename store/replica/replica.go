// Package replica implements a store that keeps several nested stores in step.
package replica

import (
	"context"
	"reflect"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/gitblobsdb/gitblobs"
	"github.com/gitblobsdb/gitblobs/store"
)

var _ gitblobs.Store = (*Store)(nil)

// Store is an object store that delegates writes to two sets of nested stores.
// One set is synchronous:
// writes to all of these must succeed before a write returns,
// and an error from any will cause the write to fail.
// The other set is asynchronous:
// a write is queued on these stores but the caller does not wait for it to finish.
// However, if any asynchronous write encounters an error,
// the whole Store is put into an error state and further operations will fail.
//
// Objects are read from whichever synchronous store answers first.
// Refs and HEAD are read from the first synchronous store.
type Store struct {
	sync   []gitblobs.Store
	async  []asyncChans
	cancel context.CancelFunc

	mu  sync.Mutex // protects err
	err error      // the error from an async goroutine, if any
}

// op is one write, replayed on each nested store.
type op func(context.Context, gitblobs.Store) error

type asyncChans struct {
	ops  chan<- op
	errs <-chan error
}

// New produces a new Store.
// The set of synchronous stores must be non-empty.
// The set of asynchronous stores may be empty.
// If there are any asynchronous stores,
// goroutines are launched for them,
// and canceling the given context object causes those to exit,
// placing the Store in an error state.
//
// Normally, writes to asynchronous stores do not block the caller,
// but the queue for each nested store has a fixed length given by n,
// which must be 1 or greater.
// If any async store falls too far behind,
// writes block until all requests can be queued.
func New(ctx context.Context, sync []gitblobs.Store, async []gitblobs.Store, n int) (*Store, error) {
	if len(sync) == 0 {
		return nil, errors.New("no synchronous stores")
	}
	if n < 1 {
		n = 1
	}
	result := &Store{sync: sync}

	if len(async) > 0 {
		ctx, result.cancel = context.WithCancel(ctx)

		selectCases := make([]reflect.SelectCase, 1+len(async))

		for i, a := range async {
			var (
				ops  = make(chan op, n)
				errs = make(chan error, 1)
			)

			result.async = append(result.async, asyncChans{ops: ops, errs: errs})

			selectCases[i].Dir = reflect.SelectRecv
			selectCases[i].Chan = reflect.ValueOf(errs)

			go runAsync(ctx, a, ops, errs)
		}

		selectCases[len(async)].Dir = reflect.SelectRecv
		selectCases[len(async)].Chan = reflect.ValueOf(ctx.Done())

		go func() {
			_, errval, ok := reflect.Select(selectCases)
			if ok {
				result.cancel()
				result.mu.Lock()
				result.err = errval.Interface().(error)
				result.mu.Unlock()
			}
		}()
	}

	return result, nil
}

// Runs as a goroutine until ctx is canceled or an error occurs (which it writes to errs).
func runAsync(ctx context.Context, s gitblobs.Store, ops <-chan op, errs chan<- error) {
	defer close(errs)

	for {
		select {
		case <-ctx.Done():
			errs <- ctx.Err()
			return

		case o := <-ops:
			if err := o(ctx, s); err != nil {
				errs <- err
				return
			}
		}
	}
}

// write performs o on every synchronous store concurrently
// and queues it for every asynchronous store.
func (s *Store) write(ctx context.Context, o op) error {
	if err := s.checkErr(); err != nil {
		return errors.Wrap(err, "in async-store goroutine")
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, nested := range s.sync {
		nested := nested
		g.Go(func() error {
			return o(gctx, nested)
		})
	}

	for _, a := range s.async {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case a.ops <- o:
		}
	}

	err := g.Wait()
	if err != nil && s.cancel != nil {
		s.cancel()
	}
	return err
}

// GetObject delegates the request to all of the synchronous stores in s,
// returning the result from the first one to respond without error
// and canceling the request to the others.
// If all synchronous stores respond with an error,
// one of those errors is returned.
func (s *Store) GetObject(ctx context.Context, h gitblobs.Hash) (gitblobs.Object, error) {
	if err := s.checkErr(); err != nil {
		return nil, errors.Wrap(err, "in async-store goroutine")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		g   errgroup.Group
		ch  = make(chan gitblobs.Object)
		err error
	)
	for _, nested := range s.sync {
		nested := nested
		g.Go(func() error {
			obj, err := nested.GetObject(ctx, h)
			if err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case ch <- obj:
			}
			return nil
		})
	}

	go func() {
		err = g.Wait()
		close(ch)
	}()

	if obj, ok := <-ch; ok {
		return obj, nil
	}
	return nil, err
}

// HasObject tells whether any synchronous store has the object.
func (s *Store) HasObject(ctx context.Context, h gitblobs.Hash) (bool, error) {
	if err := s.checkErr(); err != nil {
		return false, errors.Wrap(err, "in async-store goroutine")
	}
	for _, nested := range s.sync {
		ok, err := nested.HasObject(ctx, h)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// PutObject stores obj in all the nested stores.
func (s *Store) PutObject(ctx context.Context, obj gitblobs.Object) error {
	return s.write(ctx, func(ctx context.Context, nested gitblobs.Store) error {
		return nested.PutObject(ctx, obj)
	})
}

// DeleteObject removes an object from all the nested stores.
func (s *Store) DeleteObject(ctx context.Context, h gitblobs.Hash) error {
	return s.write(ctx, func(ctx context.Context, nested gitblobs.Store) error {
		return nested.DeleteObject(ctx, h)
	})
}

func (s *Store) GetRef(ctx context.Context, name string) (gitblobs.Ref, error) {
	if err := s.checkErr(); err != nil {
		return gitblobs.Ref{}, errors.Wrap(err, "in async-store goroutine")
	}
	return s.sync[0].GetRef(ctx, name)
}

// UpdateRef sets the named ref in all the nested stores.
func (s *Store) UpdateRef(ctx context.Context, name string, h gitblobs.Hash) error {
	return s.write(ctx, func(ctx context.Context, nested gitblobs.Store) error {
		return nested.UpdateRef(ctx, name, h)
	})
}

func (s *Store) ListRefs(ctx context.Context, f func(gitblobs.Ref) error) error {
	if err := s.checkErr(); err != nil {
		return errors.Wrap(err, "in async-store goroutine")
	}
	return s.sync[0].ListRefs(ctx, f)
}

func (s *Store) GetHead(ctx context.Context) (gitblobs.Head, error) {
	if err := s.checkErr(); err != nil {
		return gitblobs.Head{}, errors.Wrap(err, "in async-store goroutine")
	}
	return s.sync[0].GetHead(ctx)
}

// SetHead sets HEAD in all the nested stores.
func (s *Store) SetHead(ctx context.Context, head gitblobs.Head) error {
	return s.write(ctx, func(ctx context.Context, nested gitblobs.Store) error {
		return nested.SetHead(ctx, head)
	})
}

func (s *Store) checkErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// tables gets a list of config tables.
// TOML arrays of tables decode as []map[string]interface{},
// JSON arrays as []interface{}.
func tables(conf map[string]interface{}, key string) ([]map[string]interface{}, error) {
	switch v := conf[key].(type) {
	case nil:
		return nil, nil
	case []map[string]interface{}:
		return v, nil
	case []interface{}:
		result := make([]map[string]interface{}, 0, len(v))
		for _, item := range v {
			m, ok := item.(map[string]interface{})
			if !ok {
				return nil, errors.Errorf("%q item has type %T", key, item)
			}
			result = append(result, m)
		}
		return result, nil
	default:
		return nil, errors.Errorf("%q has type %T", key, v)
	}
}

func createAll(ctx context.Context, confs []map[string]interface{}) ([]gitblobs.Store, error) {
	var result []gitblobs.Store
	for _, nested := range confs {
		s, err := store.FromConfig(ctx, nested)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, nil
}

func init() {
	store.Register("replica", func(ctx context.Context, conf map[string]interface{}) (gitblobs.Store, error) {
		syncConfs, err := tables(conf, "sync")
		if err != nil {
			return nil, err
		}
		asyncConfs, err := tables(conf, "async")
		if err != nil {
			return nil, err
		}
		queueLen, err := store.Int(conf, "queuelen", 10)
		if err != nil {
			return nil, err
		}

		syncStores, err := createAll(ctx, syncConfs)
		if err != nil {
			return nil, errors.Wrap(err, "creating nested sync store")
		}
		asyncStores, err := createAll(ctx, asyncConfs)
		if err != nil {
			return nil, errors.Wrap(err, "creating nested async store")
		}

		return New(ctx, syncStores, asyncStores, queueLen)
	})
}

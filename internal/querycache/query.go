package querycache

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoFetcher is returned when a query definition carries no fetch func.
var ErrNoFetcher = errors.New("query has no fetch function")

// Definition describes an untyped query: its key, its tags, and how to
// produce its value.
type Definition struct {
	Key   Key
	Tags  []Tag
	Fetch func(ctx context.Context) (any, error)
}

// Query is the typed form of a Definition.
type Query[T any] struct {
	Key   Key
	Tags  []Tag
	Fetch func(ctx context.Context) (T, error)
}

// Definition erases the value type so the store can hold heterogeneous results.
func (q Query[T]) Definition() Definition {
	def := Definition{Key: q.Key, Tags: q.Tags}
	if q.Fetch != nil {
		fetch := q.Fetch
		def.Fetch = func(ctx context.Context) (any, error) {
			return fetch(ctx)
		}
	}
	return def
}

// Fetch returns the cached value of q, fetching it if it is absent,
// failed or stale.
func Fetch[T any](ctx context.Context, s *Store, q Query[T]) (T, error) {
	var zero T

	snap, err := s.GetOrFetch(ctx, q.Definition())
	if err != nil {
		return zero, err
	}

	v, ok := snap.Value.(T)
	if !ok {
		return zero, fmt.Errorf("query %s: unexpected value type %T", q.Key, snap.Value)
	}
	return v, nil
}

// Subscribe registers fn for every transition of q's result.
func Subscribe[T any](s *Store, q Query[T], fn func(Snapshot)) (unsubscribe func()) {
	return s.Subscribe(q.Definition(), fn)
}

// Edit adapts a typed edit function to a patch layer.
func Edit[T any](fn func(T) T) func(any) any {
	return func(v any) any {
		t, _ := v.(T)
		return fn(t)
	}
}

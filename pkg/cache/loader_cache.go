// Package cache memoises expensive string-keyed lookups in an LRU and runs at most one
// load per key at a time.
package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// LoadFunc produces the value for key on a miss.
type LoadFunc[V any] func(ctx context.Context, key string) (V, error)

// Loader is an LRU in front of a LoadFunc. Concurrent misses for one key share a single
// load; failed loads are not stored.
type Loader[V any] struct {
	entries *lru.Cache[string, V]
	flights singleflight.Group
	load    LoadFunc[V]
}

// NewLoader returns a Loader holding at most size entries.
func NewLoader[V any](size int, load LoadFunc[V]) (*Loader[V], error) {
	entries, err := lru.New[string, V](size)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}

	return &Loader[V]{entries: entries, load: load}, nil
}

// Get returns the value for key and whether it was already cached. The shared load is
// detached from the cancellation of whichever caller started it; each caller stops
// waiting when its own ctx ends.
func (l *Loader[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V

	if v, ok := l.entries.Get(key); ok {
		return v, true, nil
	}

	detached := context.WithoutCancel(ctx)

	ch := l.flights.DoChan(key, func() (any, error) {
		v, err := l.load(detached, key)
		if err != nil {
			return nil, err
		}

		l.entries.Add(key, v)

		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, false, res.Err
		}

		v, _ := res.Val.(V)

		return v, false, nil
	}
}

// Len reports the number of cached entries.
func (l *Loader[V]) Len() int {
	return l.entries.Len()
}

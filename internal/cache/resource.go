package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/logger"
	"golang.org/x/sync/singleflight"

	"w3lottery/internal/metrics"
)

// fetchTimeout bounds a shared backend fetch once it is detached from the
// request that started it.
const fetchTimeout = 30 * time.Second

// entry is the persisted envelope. Timestamp is unix milliseconds.
type entry[T any] struct {
	Data      T     `json:"data"`
	Timestamp int64 `json:"timestamp"`
}

// Loader reads and writes one kind of value under caller supplied keys.
// An entry older than TTL is treated as absent and removed, whatever the
// store's own expiry says.
type Loader[T any] struct {
	name  string
	store Store
	ttl   time.Duration
	empty func(T) bool
	now   func() time.Time
	group singleflight.Group
}

// NewLoader creates a Loader. name labels metrics and log lines.
func NewLoader[T any](store Store, name string, ttl time.Duration) *Loader[T] {
	return &Loader[T]{
		name:  name,
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

// TreatAsMiss installs a predicate for values that must not be served from
// the store, e.g. empty lists.
func (l *Loader[T]) TreatAsMiss(fn func(T) bool) *Loader[T] {
	l.empty = fn
	return l
}

// WithClock replaces the time source.
func (l *Loader[T]) WithClock(now func() time.Time) *Loader[T] {
	l.now = now
	return l
}

// TTL returns the loader's expiry.
func (l *Loader[T]) TTL() time.Duration { return l.ttl }

// Get returns the stored value if it exists, is fresh and is not empty.
func (l *Loader[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T

	raw, err := l.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			logger.Warningf("cache %s: read %s: %v", l.name, key, err)
		}
		return zero, false
	}

	var e entry[T]
	if err := json.Unmarshal(raw, &e); err != nil {
		logger.Warningf("cache %s: failed to parse stored data for %s: %v", l.name, key, err)
		return zero, false
	}

	if l.now().Sub(time.UnixMilli(e.Timestamp)) > l.ttl {
		if err := l.store.Delete(ctx, key); err != nil {
			logger.Warningf("cache %s: drop expired %s: %v", l.name, key, err)
		}
		return zero, false
	}

	if l.empty != nil && l.empty(e.Data) {
		return zero, false
	}
	return e.Data, true
}

// Put stores v under key, stamped with the current time.
func (l *Loader[T]) Put(ctx context.Context, key string, v T) error {
	raw, err := json.Marshal(entry[T]{Data: v, Timestamp: l.now().UnixMilli()})
	if err != nil {
		return fmt.Errorf("cache %s: encode %s: %w", l.name, key, err)
	}
	if err := l.store.Set(ctx, key, raw, l.ttl); err != nil {
		return fmt.Errorf("cache %s: store %s: %w", l.name, key, err)
	}
	return nil
}

// Load returns the stored value unless force is set or the entry is missing,
// expired or empty, in which case fetch is called and its result stored.
// A failed fetch leaves the stored entry untouched. Concurrent loads of the
// same key share one fetch, and a caller whose ctx ends stops waiting
// without cancelling the fetch for the others.
func (l *Loader[T]) Load(ctx context.Context, key string, force bool, fetch func(context.Context) (T, error)) (T, error) {
	if !force {
		if v, ok := l.Get(ctx, key); ok {
			metrics.CacheHits.WithLabelValues(l.name).Inc()
			return v, nil
		}
	}
	metrics.CacheMisses.WithLabelValues(l.name).Inc()

	flight := key
	if force {
		flight += "!force"
	}
	ch := l.group.DoChan(flight, func() (any, error) {
		// The fetch outlives any single caller; each waiter gives up on its own ctx.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()

		data, err := fetch(fctx)
		if err != nil {
			return data, err
		}
		if err := l.Put(fctx, key, data); err != nil {
			// The caller still gets fresh data; it just is not cached.
			logger.Warningf("%v", err)
		}
		return data, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			metrics.CacheFetchErrors.WithLabelValues(l.name).Inc()
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// Invalidate deletes the entries stored under keys.
func (l *Loader[T]) Invalidate(ctx context.Context, keys ...string) error {
	if err := l.store.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("cache %s: invalidate: %w", l.name, err)
	}
	return nil
}

// Resource is a Loader bound to one key and one fetch function.
type Resource[T any] struct {
	*Loader[T]
	key   string
	fetch func(context.Context) (T, error)
}

// NewResource creates a single-key resource.
func NewResource[T any](store Store, name, key string, ttl time.Duration, fetch func(context.Context) (T, error)) *Resource[T] {
	return &Resource[T]{
		Loader: NewLoader[T](store, name, ttl),
		key:    key,
		fetch:  fetch,
	}
}

// Key returns the storage key.
func (r *Resource[T]) Key() string { return r.key }

// Load reads through the cache, forcing a fetch when force is set.
func (r *Resource[T]) Load(ctx context.Context, force bool) (T, error) {
	return r.Loader.Load(ctx, r.key, force, r.fetch)
}

// Invalidate drops the stored value.
func (r *Resource[T]) Invalidate(ctx context.Context) error {
	return r.Loader.Invalidate(ctx, r.key)
}

// EmptySlice is a TreatAsMiss predicate for list resources.
func EmptySlice[E any](v []E) bool { return len(v) == 0 }

// EmptyMap is a TreatAsMiss predicate for map resources.
func EmptyMap[K comparable, V any](v map[K]V) bool { return len(v) == 0 }

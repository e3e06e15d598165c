package entitycache

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Fetcher loads one entity from the remote source.
type Fetcher[K comparable, V any] func(ctx context.Context, id K) (V, error)

// Cache is a typed view over a Backend namespace.
// Concurrent misses for the same id share a single fetch; failed fetches are not cached.
type Cache[K comparable, V any] struct {
	backend   *Backend
	namespace string
	fetch     Fetcher[K, V]
	group     singleflight.Group
	logger    *zap.Logger
}

// New creates a cache for one entity type. namespace must be unique per type on a backend.
func New[K comparable, V any](backend *Backend, namespace string, fetch Fetcher[K, V], logger *zap.Logger) *Cache[K, V] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache[K, V]{
		backend:   backend,
		namespace: namespace,
		fetch:     fetch,
		logger:    logger.With(zap.String("cache", namespace)),
	}
}

func (c *Cache[K, V]) key(id K) string {
	return fmt.Sprintf("%s#%v", c.namespace, id)
}

// Peek returns the cached value without fetching.
func (c *Cache[K, V]) Peek(id K) (V, bool) {
	raw, ok := c.backend.load(context.Background(), c.key(id))
	if !ok {
		var zero V
		return zero, false
	}
	v, ok := raw.(V)
	return v, ok
}

// Get returns the cached value, fetching and storing it on a miss.
// It reports false when the fetch fails or ctx is done first; a fetch already in
// flight keeps running for the other waiters and still stores its result.
func (c *Cache[K, V]) Get(ctx context.Context, id K) (V, bool) {
	if v, ok := c.Peek(id); ok {
		return v, true
	}
	var zero V
	key := c.key(id)
	ch := c.group.DoChan(key, func() (v any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("fetch panic: %v", r)
			}
		}()
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.backend.fetchTimeout)
		defer cancel()
		value, err := c.fetch(fetchCtx, id)
		if err != nil {
			return nil, err
		}
		if err := c.backend.store(fetchCtx, key, value); err != nil {
			c.logger.Debug("cache store failed", zap.String("key", key), zap.Error(err))
		}
		return value, nil
	})

	select {
	case <-ctx.Done():
		return zero, false
	case res := <-ch:
		if res.Err != nil {
			c.logger.Debug("entity fetch failed", zap.String("key", key), zap.Error(res.Err))
			return zero, false
		}
		v, ok := res.Val.(V)
		return v, ok
	}
}

// Upsert overwrites the cached value for id.
func (c *Cache[K, V]) Upsert(id K, value V) {
	key := c.key(id)
	if err := c.backend.store(context.Background(), key, value); err != nil {
		c.logger.Debug("cache store failed", zap.String("key", key), zap.Error(err))
	}
}

// Package entitycache memoizes remote entity lookups (users, teams) keyed by id.
package entitycache

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"
)

// Config sizes the shared backend.
type Config struct {
	NumCounters  int64
	MaxEntries   int64
	FetchTimeout time.Duration
}

// Backend is the process-wide store every Cache namespaces into.
type Backend struct {
	client       *ristretto.Cache
	cache        *cache.Cache[any]
	fetchTimeout time.Duration
}

// NewBackend creates the shared ristretto-backed store.
func NewBackend(cfg Config) (*Backend, error) {
	if cfg.NumCounters <= 0 {
		cfg.NumCounters = 100000
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 10000
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	client, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        cfg.NumCounters,
		MaxCost:            cfg.MaxEntries,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create ristretto: %w", err)
	}
	return &Backend{
		client:       client,
		cache:        cache.New[any](ristretto_store.NewRistretto(client)),
		fetchTimeout: cfg.FetchTimeout,
	}, nil
}

func (b *Backend) load(ctx context.Context, key string) (any, bool) {
	v, err := b.cache.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	return v, true
}

// store writes key and waits for ristretto's write buffer so the value is readable on return.
func (b *Backend) store(ctx context.Context, key string, v any) error {
	err := b.cache.Set(ctx, key, v, store.WithCost(1))
	b.client.Wait()
	return err
}

// Reset drops every cached entity in every namespace.
func (b *Backend) Reset(ctx context.Context) error {
	if err := b.cache.Clear(ctx); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

// Close releases the ristretto goroutines.
func (b *Backend) Close() {
	b.client.Close()
}

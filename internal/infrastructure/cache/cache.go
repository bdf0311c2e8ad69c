// Package cache provides the raw-history cache owned by the data
// collaborator. The scoring core never touches it; it receives snapshots as
// parameters.
package cache

import (
	"context"
	"sync"
	"time"
)

// Store is the cache abstraction injected into the collaborator: get, put
// under a TTL, explicit expire.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Expire(ctx context.Context, key string) error
}

// Populate fills a cache key under double-checked locking so concurrent
// callers of the same key trigger a single upstream fetch. The second check
// runs after the per-key lock is held because another caller may have
// populated the entry while this one waited.
type Populate struct {
	store Store
	ttl   time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewPopulate wraps a store with single-fetch population semantics.
func NewPopulate(store Store, ttl time.Duration) *Populate {
	return &Populate{store: store, ttl: ttl, locks: map[string]*sync.Mutex{}}
}

// GetOrFetch returns the cached value for key, invoking fetch at most once
// per expiry window even under concurrent access.
func (p *Populate) GetOrFetch(ctx context.Context, key string, fetch func(context.Context) ([]byte, error)) ([]byte, bool, error) {
	if value, ok, err := p.store.Get(ctx, key); err != nil || ok {
		return value, ok && err == nil, err
	}

	lock := p.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	if value, ok, err := p.store.Get(ctx, key); err != nil || ok {
		return value, ok && err == nil, err
	}

	value, err := fetch(ctx)
	if err != nil {
		return nil, false, err
	}
	if err := p.store.Put(ctx, key, value, p.ttl); err != nil {
		return nil, false, err
	}
	return value, false, nil
}

func (p *Populate) keyLock(key string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[key] = lock
	}
	return lock
}

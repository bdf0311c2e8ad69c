package cache

import (
	"context"
	"sync"
	"time"
)

// TTLStore is a thread-safe in-memory Store with time-bound expiry and a
// background janitor sweeping expired entries.
type TTLStore struct {
	mu    sync.RWMutex
	items map[string]ttlItem
	stop  chan struct{}
	once  sync.Once
}

type ttlItem struct {
	value      []byte
	expiration int64
}

// NewTTLStore creates a store whose janitor runs at the given interval.
func NewTTLStore(cleanupInterval time.Duration) *TTLStore {
	s := &TTLStore{
		items: make(map[string]ttlItem),
		stop:  make(chan struct{}),
	}
	go s.janitor(cleanupInterval)
	return s
}

func (s *TTLStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, found := s.items[key]
	if !found {
		return nil, false, nil
	}
	if item.expiration > 0 && time.Now().UnixNano() > item.expiration {
		return nil, false, nil
	}
	return item.value, true, nil
}

func (s *TTLStore) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = ttlItem{
		value:      value,
		expiration: time.Now().Add(ttl).UnixNano(),
	}
	return nil
}

func (s *TTLStore) Expire(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// Close stops the janitor.
func (s *TTLStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *TTLStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

func (s *TTLStore) sweep() {
	now := time.Now().UnixNano()
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, item := range s.items {
		if item.expiration > 0 && now > item.expiration {
			delete(s.items, key)
		}
	}
}

package store

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/layer-3/aeralogin/ports"
)

type memoryEntry struct {
	value    []byte
	consumed bool
}

// MemoryStore is an in-memory implementation of the Store interface
type MemoryStore struct {
	cache *ttlcache.Cache[string, *memoryEntry]
	mu    sync.Mutex
}

// NewMemoryStore creates a new in-memory store and starts its expiry loop.
// Call Close to stop it.
func NewMemoryStore() *MemoryStore {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, *memoryEntry](),
	)
	go cache.Start()

	return &MemoryStore{cache: cache}
}

var _ ports.Store = (*MemoryStore)(nil)

// Put stores value under key for ttl
func (s *MemoryStore) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Set(key, &memoryEntry{value: value}, ttl)
	return nil
}

// PutIfAbsent stores value under key unless the key is already held
func (s *MemoryStore) PutIfAbsent(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache.Get(key) != nil {
		return ports.ErrKeyExists
	}
	s.cache.Set(key, &memoryEntry{value: value}, ttl)
	return nil
}

// Get returns the stored value
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.cache.Get(key)
	if item == nil {
		return nil, ports.ErrNotFound
	}
	return item.Value().value, nil
}

// Consume marks key as used and returns its value
func (s *MemoryStore) Consume(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.cache.Get(key)
	if item == nil {
		return nil, ports.ErrNotFound
	}

	entry := item.Value()
	if entry.consumed {
		return nil, ports.ErrAlreadyConsumed
	}
	entry.consumed = true
	return entry.value, nil
}

// Close stops the expiry loop
func (s *MemoryStore) Close() error {
	s.cache.Stop()
	return nil
}

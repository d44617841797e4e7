package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/aeralogin/ports"
	"github.com/redis/go-redis/v9"
)

const consumedSuffix = ":consumed"

// RedisStore is a Redis implementation of the Store interface
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis store
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "aeralogin:",
	}
}

var _ ports.Store = (*RedisStore)(nil)

// Put stores value under key with expiration
func (s *RedisStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store key: %w", err)
	}
	return nil
}

// PutIfAbsent stores value with SETNX
func (s *RedisStore) PutIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	stored, err := s.client.SetNX(ctx, s.prefix+key, value, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to store key: %w", err)
	}
	if !stored {
		return ports.ErrKeyExists
	}
	return nil
}

// Get returns the stored value
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key: %w", err)
	}
	return val, nil
}

// Consume claims key with SETNX on a marker that lives as long as the key.
// Only the caller that creates the marker gets the value.
func (s *RedisStore) Consume(ctx context.Context, key string) ([]byte, error) {
	full := s.prefix + key

	val, err := s.client.Get(ctx, full).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key: %w", err)
	}

	ttl, err := s.client.PTTL(ctx, full).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read key ttl: %w", err)
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	claimed, err := s.client.SetNX(ctx, full+consumedSuffix, 1, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to consume key: %w", err)
	}
	if !claimed {
		return nil, ports.ErrAlreadyConsumed
	}
	return val, nil
}

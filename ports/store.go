package ports

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("key not found")
	ErrAlreadyConsumed = errors.New("key already consumed")
	ErrKeyExists       = errors.New("key already exists")
)

// Store holds short-lived, single-use records (nonces, authorization
// requests and codes, redirect tokens)
type Store interface {
	// Put stores value under key; the store forgets it after ttl
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// PutIfAbsent stores value only when key is not held, consumed or not.
	// Otherwise it returns ErrKeyExists and leaves the existing record alone.
	PutIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns the value without consuming it
	Get(ctx context.Context, key string) ([]byte, error)

	// Consume atomically marks key as used and returns its value. Of any
	// number of concurrent callers exactly one succeeds; the others get
	// ErrAlreadyConsumed. A missing key yields ErrNotFound.
	Consume(ctx context.Context, key string) ([]byte, error)
}

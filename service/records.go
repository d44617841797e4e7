package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/aeralogin/ports"
)

// Store key prefixes
const (
	prefixNonce    = "nonce:"
	prefixRequest  = "authreq:"
	prefixCode     = "authcode:"
	prefixRedirect = "redirect:"
	prefixGrant    = "grant:"
)

// putRecord keeps records for twice their TTL so an expired record can be
// told apart from one that never existed
func putRecord(ctx context.Context, store ports.Store, key string, v any, ttl time.Duration) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := store.Put(ctx, key, payload, 2*ttl); err != nil {
		return fmt.Errorf("failed to store record: %w", err)
	}
	return nil
}

// insertRecord is putRecord for keys that must never be overwritten. It
// returns ports.ErrKeyExists when key is already held.
func insertRecord(ctx context.Context, store ports.Store, key string, v any, ttl time.Duration) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := store.PutIfAbsent(ctx, key, payload, 2*ttl); err != nil {
		if errors.Is(err, ports.ErrKeyExists) {
			return err
		}
		return fmt.Errorf("failed to store record: %w", err)
	}
	return nil
}

// consumeRecord atomically claims key and decodes it into v. Store errors are
// returned unchanged so callers can match ports.ErrNotFound and
// ports.ErrAlreadyConsumed.
func consumeRecord(ctx context.Context, store ports.Store, key string, v any) error {
	payload, err := store.Consume(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("failed to decode record: %w", err)
	}
	return nil
}

// randomToken returns n random bytes, hex encoded
func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

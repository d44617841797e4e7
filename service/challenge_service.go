package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/aeralogin/core"
	"github.com/layer-3/aeralogin/ports"
)

// ChallengeService issues and single-uses sign-in nonces
type ChallengeService struct {
	store ports.Store
	ttl   time.Duration
	now   func() time.Time
}

// NewChallengeService creates a challenge service
func NewChallengeService(store ports.Store, ttl time.Duration) *ChallengeService {
	return &ChallengeService{store: store, ttl: ttl, now: time.Now}
}

// Issue creates a fresh challenge
func (s *ChallengeService) Issue(ctx context.Context) (*core.Challenge, error) {
	nonce, err := randomToken(16)
	if err != nil {
		return nil, err
	}

	now := s.now()
	challenge := &core.Challenge{
		Nonce:     nonce,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := putRecord(ctx, s.store, prefixNonce+nonce, challenge, s.ttl); err != nil {
		return nil, fmt.Errorf("failed to store challenge: %w", err)
	}
	return challenge, nil
}

// Consume uses up a challenge. It succeeds at most once per nonce.
func (s *ChallengeService) Consume(ctx context.Context, nonce string) (*core.Challenge, error) {
	if nonce == "" {
		return nil, core.ErrChallengeNotFound
	}

	var challenge core.Challenge
	err := consumeRecord(ctx, s.store, prefixNonce+nonce, &challenge)
	switch {
	case errors.Is(err, ports.ErrNotFound):
		return nil, core.ErrChallengeNotFound
	case errors.Is(err, ports.ErrAlreadyConsumed):
		return nil, core.ErrChallengeAlreadyUsed
	case err != nil:
		return nil, fmt.Errorf("failed to consume challenge: %w", err)
	}

	if challenge.Expired(s.now()) {
		return nil, core.ErrChallengeExpired
	}
	challenge.Consumed = true
	return &challenge, nil
}

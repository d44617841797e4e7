package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/Rican7/retry"
	"github.com/Rican7/retry/backoff"
	"github.com/Rican7/retry/strategy"
	"github.com/layer-3/aeralogin/core"
	"github.com/layer-3/aeralogin/ports"
	"github.com/rs/zerolog/log"
)

// RetryingLedger retries a bounded number of times and then reports
// core.ErrLedgerUnavailable
type RetryingLedger struct {
	next     ports.Ledger
	attempts uint
	backoff  time.Duration
}

// NewRetryingLedger wraps next
func NewRetryingLedger(next ports.Ledger, attempts uint, backoff time.Duration) *RetryingLedger {
	if attempts == 0 {
		attempts = 1
	}
	return &RetryingLedger{next: next, attempts: attempts, backoff: backoff}
}

var _ ports.Ledger = (*RetryingLedger)(nil)

func (l *RetryingLedger) HasIdentityNFT(ctx context.Context, address string) (bool, error) {
	var has bool
	err := l.do(ctx, "balanceOf", func() error {
		var err error
		has, err = l.next.HasIdentityNFT(ctx, address)
		return err
	})
	return has, err
}

func (l *RetryingLedger) Score(ctx context.Context, address string) (int64, error) {
	var score int64
	err := l.do(ctx, "getResonance", func() error {
		var err error
		score, err = l.next.Score(ctx, address)
		return err
	})
	return score, err
}

func (l *RetryingLedger) SetScore(ctx context.Context, address string, score int64) error {
	return l.do(ctx, "adminAdjust", func() error {
		return l.next.SetScore(ctx, address, score)
	})
}

func (l *RetryingLedger) do(ctx context.Context, op string, action func() error) error {
	var tries uint
	err := retry.Retry(
		func(attempt uint) error {
			tries++
			if err := action(); err != nil {
				log.Debug().Err(err).Str("op", op).Uint("attempt", attempt).Msg("Ledger call failed")
				return err
			}
			return nil
		},
		// The first attempt always runs so a cancelled context still reports an error
		func(uint) bool { return tries == 0 || (tries < l.attempts && ctx.Err() == nil) },
		strategy.Backoff(backoff.Linear(l.backoff)),
	)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", core.ErrLedgerUnavailable, op, err)
	}
	return nil
}

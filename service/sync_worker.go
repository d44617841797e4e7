package service

import (
	"context"
	"fmt"

	"github.com/layer-3/aeralogin/core"
	"github.com/layer-3/aeralogin/internal/metrics"
	"github.com/layer-3/aeralogin/ports"
	"github.com/rs/zerolog/log"
)

// SyncWorker pushes local score totals to the ledger
type SyncWorker struct {
	scores *ScoreService
	ledger ports.Ledger
}

// NewSyncWorker creates a ledger sync worker
func NewSyncWorker(scores *ScoreService, ledger ports.Ledger) *SyncWorker {
	return &SyncWorker{scores: scores, ledger: ledger}
}

// HandleScoreChanged writes the current total on-chain and marks the record
// synced once the ledger agrees. Stale events resolve to the latest record.
func (w *SyncWorker) HandleScoreChanged(ctx context.Context, event core.ScoreChangedEvent) error {
	rec, err := w.scores.Score(ctx, event.Address)
	if err != nil {
		return err
	}
	if rec.SyncState == core.SyncStateSynced {
		return nil
	}

	total := rec.TotalInt()
	if err := w.ledger.SetScore(ctx, rec.Address, total); err != nil {
		metrics.LedgerSyncs.WithLabelValues(metrics.OutcomeFailure).Inc()
		return fmt.Errorf("failed to push score: %w", err)
	}

	onchain, err := w.ledger.Score(ctx, rec.Address)
	if err != nil {
		metrics.LedgerSyncs.WithLabelValues(metrics.OutcomeFailure).Inc()
		return fmt.Errorf("failed to read back score: %w", err)
	}

	rec, err = w.scores.MarkSynced(ctx, rec.Address, onchain)
	if err != nil {
		return err
	}

	metrics.LedgerSyncs.WithLabelValues(metrics.OutcomeSuccess).Inc()
	log.Info().
		Str("address", core.ShortAddress(rec.Address)).
		Int64("total", total).
		Int64("onchain", onchain).
		Str("state", string(rec.SyncState)).
		Msg("Score synced to ledger")
	return nil
}

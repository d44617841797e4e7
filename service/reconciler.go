package service

import (
	"context"
	"fmt"
	"time"

	"github.com/layer-3/aeralogin/core"
	"github.com/layer-3/aeralogin/ports"
	"github.com/rs/zerolog/log"
)

// ReasonReconcile marks score events synthesised by a sweep
const ReasonReconcile = "reconcile"

// Reconciler repairs what event delivery alone leaves stale: owner bonuses
// after follower scores move, and records whose change event was lost
type Reconciler struct {
	scores *ScoreService
	repo   ports.IdentityRepository
	sync   *SyncWorker
	batch  int
}

// SweepResult counts the work done by one sweep
type SweepResult struct {
	Owners  int
	Synced  int
	Pending int
}

// NewReconciler creates a reconciler. sync may be nil when the ledger is
// read-only, in which case sweeps only refresh owner bonuses.
func NewReconciler(scores *ScoreService, repo ports.IdentityRepository, sync *SyncWorker, batch int) *Reconciler {
	return &Reconciler{scores: scores, repo: repo, sync: sync, batch: batch}
}

// Sweep recomputes every owner bonus, then pushes up to one batch of pending
// records to the ledger. Per-record failures are logged and left pending.
func (r *Reconciler) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult

	owners, err := r.repo.ListOwners(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to list owners: %w", err)
	}
	for _, owner := range owners {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if _, err := r.scores.RecomputeOwnerBonus(ctx, owner); err != nil {
			log.Warn().Err(err).Str("owner", core.ShortAddress(owner)).Msg("Failed to recompute owner bonus")
			continue
		}
		res.Owners++
	}

	if r.sync == nil {
		return res, nil
	}

	pending, err := r.repo.ListPendingScores(ctx, r.batch)
	if err != nil {
		return res, fmt.Errorf("failed to list pending scores: %w", err)
	}
	for _, rec := range pending {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		event := core.ScoreChangedEvent{
			Address:   rec.Address,
			Total:     rec.TotalInt(),
			Reason:    ReasonReconcile,
			Version:   rec.Version,
			ChangedAt: rec.UpdatedAt,
		}
		if err := r.sync.HandleScoreChanged(ctx, event); err != nil {
			res.Pending++
			log.Warn().Err(err).Str("address", core.ShortAddress(rec.Address)).Msg("Reconcile sync failed")
			continue
		}
		res.Synced++
	}
	return res, nil
}

// Run sweeps once immediately and then every interval until ctx is done
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		res, err := r.Sweep(ctx)
		if err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("Reconcile sweep failed")
		} else if err == nil {
			log.Debug().
				Int("owners", res.Owners).
				Int("synced", res.Synced).
				Int("pending", res.Pending).
				Msg("Reconcile sweep finished")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

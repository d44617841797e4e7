package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/aeralogin/core"
	"github.com/layer-3/aeralogin/internal/metrics"
	"github.com/layer-3/aeralogin/ports"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Score change reasons
const (
	ReasonInteraction = "interaction"
	ReasonFollowers   = "followers"
	ReasonAdmin       = "admin_adjust"
)

// AdminAdjustRequest overrides an identity's own score
type AdminAdjustRequest struct {
	Address  string
	OwnScore decimal.Decimal
	Actor    string
	Reason   string
}

// ScoreService is the only writer of score records
type ScoreService struct {
	repo   ports.IdentityRepository
	events ports.EventPublisher
	now    func() time.Time
}

// NewScoreService creates a score service
func NewScoreService(repo ports.IdentityRepository, events ports.EventPublisher) *ScoreService {
	return &ScoreService{repo: repo, events: events, now: time.Now}
}

// Score returns the current record. Identities without one start at the floor.
func (s *ScoreService) Score(ctx context.Context, address string) (*core.ScoreRecord, error) {
	addr, err := core.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}

	rec, err := s.repo.GetScore(ctx, addr)
	if errors.Is(err, ports.ErrNotFound) {
		return core.NewScoreRecord(addr, s.now().UTC()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load score: %w", err)
	}
	return rec, nil
}

// ApplyInteraction accrues weight onto the identity's own score
func (s *ScoreService) ApplyInteraction(ctx context.Context, address string, weight decimal.Decimal) (*core.ScoreRecord, error) {
	addr, err := core.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	if !weight.IsPositive() {
		return nil, core.ErrInvalidWeight
	}

	var before decimal.Decimal
	rec, err := s.repo.UpdateScore(ctx, addr, func(rec *core.ScoreRecord) error {
		before = rec.OwnScore
		rec.OwnScore = core.Accrue(rec.OwnScore, weight)
		rec.SyncState = core.SyncStatePending
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply interaction: %w", err)
	}

	log.Debug().
		Str("address", core.ShortAddress(addr)).
		Str("weight", weight.String()).
		Str("from", before.String()).
		Str("to", rec.OwnScore.String()).
		Msg("Interaction applied")

	s.changed(ctx, rec, ReasonInteraction)
	return rec, nil
}

// AddFollower records that follower follows owner and refreshes the owner bonus
func (s *ScoreService) AddFollower(ctx context.Context, owner, follower string) (*core.ScoreRecord, error) {
	ownerAddr, followerAddr, err := normalizePair(owner, follower)
	if err != nil {
		return nil, err
	}
	if err := s.repo.AddFollower(ctx, ownerAddr, followerAddr); err != nil {
		return nil, fmt.Errorf("failed to add follower: %w", err)
	}
	return s.RecomputeOwnerBonus(ctx, ownerAddr)
}

// RemoveFollower drops a follower and refreshes the owner bonus
func (s *ScoreService) RemoveFollower(ctx context.Context, owner, follower string) (*core.ScoreRecord, error) {
	ownerAddr, followerAddr, err := normalizePair(owner, follower)
	if err != nil {
		return nil, err
	}
	if err := s.repo.RemoveFollower(ctx, ownerAddr, followerAddr); err != nil {
		return nil, fmt.Errorf("failed to remove follower: %w", err)
	}
	return s.RecomputeOwnerBonus(ctx, ownerAddr)
}

// RecomputeOwnerBonus sets the owner bonus to the mean own score of the
// current followers
func (s *ScoreService) RecomputeOwnerBonus(ctx context.Context, owner string) (*core.ScoreRecord, error) {
	addr, err := core.NormalizeAddress(owner)
	if err != nil {
		return nil, err
	}

	followers, err := s.repo.ListFollowers(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to list followers: %w", err)
	}

	ownScores := make([]decimal.Decimal, 0, len(followers))
	for _, f := range followers {
		rec, err := s.repo.GetScore(ctx, f)
		switch {
		case errors.Is(err, ports.ErrNotFound):
			ownScores = append(ownScores, core.OwnScoreFloor)
		case err != nil:
			return nil, fmt.Errorf("failed to load follower score: %w", err)
		default:
			ownScores = append(ownScores, rec.OwnScore)
		}
	}
	bonus := core.OwnerBonus(ownScores)

	changed := false
	rec, err := s.repo.UpdateScore(ctx, addr, func(rec *core.ScoreRecord) error {
		changed = !rec.OwnerBonus.Equal(bonus) || rec.FollowerCount != len(followers)
		before := rec.TotalInt()
		rec.OwnerBonus = bonus
		rec.FollowerCount = len(followers)
		if rec.TotalInt() != before {
			rec.SyncState = core.SyncStatePending
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update owner bonus: %w", err)
	}

	if changed {
		s.changed(ctx, rec, ReasonFollowers)
	}
	return rec, nil
}

// AdminAdjust overrides the own score. It is the only path that can lower a score.
func (s *ScoreService) AdminAdjust(ctx context.Context, req AdminAdjustRequest) (*core.ScoreRecord, error) {
	addr, err := core.NormalizeAddress(req.Address)
	if err != nil {
		return nil, err
	}
	if req.OwnScore.IsNegative() || req.OwnScore.GreaterThan(core.OwnScoreMax) {
		return nil, core.ErrScoreOutOfRange
	}

	var before decimal.Decimal
	rec, err := s.repo.UpdateScore(ctx, addr, func(rec *core.ScoreRecord) error {
		before = rec.OwnScore
		rec.OwnScore = req.OwnScore
		rec.SyncState = core.SyncStatePending
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to adjust score: %w", err)
	}

	log.Info().
		Str("address", addr).
		Str("actor", req.Actor).
		Str("reason", req.Reason).
		Str("from", before.String()).
		Str("to", rec.OwnScore.String()).
		Msg("Score adjusted by admin")

	s.changed(ctx, rec, ReasonAdmin)
	return rec, nil
}

// SetIdentityStatus changes an identity's administrative status
func (s *ScoreService) SetIdentityStatus(ctx context.Context, address string, status core.IdentityStatus, actor string) error {
	addr, err := core.NormalizeAddress(address)
	if err != nil {
		return err
	}
	if !status.Valid() {
		return core.ErrInvalidStatus
	}

	err = s.repo.SetIdentityStatus(ctx, addr, status)
	if errors.Is(err, ports.ErrNotFound) {
		return core.ErrIdentityNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to set identity status: %w", err)
	}

	log.Info().Str("address", addr).Str("status", string(status)).Str("actor", actor).Msg("Identity status changed")
	return nil
}

// MarkSynced records the value read back from the ledger. The record stays
// pending while the ledger disagrees with the local total.
func (s *ScoreService) MarkSynced(ctx context.Context, address string, onchain int64) (*core.ScoreRecord, error) {
	addr, err := core.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}

	return s.repo.UpdateScore(ctx, addr, func(rec *core.ScoreRecord) error {
		if rec.TotalInt() != onchain {
			rec.SyncState = core.SyncStatePending
			return nil
		}
		rec.SyncState = core.SyncStateSynced
		rec.LastSyncedOnchain = s.now().UTC()
		return nil
	})
}

func (s *ScoreService) changed(ctx context.Context, rec *core.ScoreRecord, reason string) {
	metrics.ScoreUpdates.WithLabelValues(reason).Inc()

	event := core.ScoreChangedEvent{
		Address:   rec.Address,
		Total:     rec.TotalInt(),
		Reason:    reason,
		Version:   rec.Version,
		ChangedAt: rec.UpdatedAt,
	}
	if err := s.events.PublishScoreChanged(ctx, event); err != nil {
		// The record stays sync_pending until the next reconcile sweep
		log.Warn().Err(err).Str("address", core.ShortAddress(rec.Address)).Msg("Failed to publish score change")
	}
}

func normalizePair(owner, follower string) (string, string, error) {
	ownerAddr, err := core.NormalizeAddress(owner)
	if err != nil {
		return "", "", err
	}
	followerAddr, err := core.NormalizeAddress(follower)
	if err != nil {
		return "", "", err
	}
	if ownerAddr == followerAddr {
		return "", "", core.ErrSelfFollow
	}
	return ownerAddr, followerAddr, nil
}

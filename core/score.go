package core

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	OwnScoreFloor = decimal.NewFromInt(50)
	OwnScoreMax   = decimal.NewFromInt(100)
	OwnerBonusMax = decimal.NewFromInt(100)
	TotalFloor    = decimal.NewFromInt(50)
	TotalMax      = decimal.NewFromInt(200)
)

// Tier is a score band with a fixed accrual rate per unit of interaction weight
type Tier struct {
	Floor   decimal.Decimal
	Ceiling decimal.Decimal
	Rate    decimal.Decimal
}

// ScoreTiers are ordered by floor. The marginal gain shrinks as the score grows.
var ScoreTiers = []Tier{
	{Floor: decimal.NewFromInt(50), Ceiling: decimal.NewFromInt(60), Rate: decimal.RequireFromString("1.0")},
	{Floor: decimal.NewFromInt(60), Ceiling: decimal.NewFromInt(70), Rate: decimal.RequireFromString("0.5")},
	{Floor: decimal.NewFromInt(70), Ceiling: decimal.NewFromInt(80), Rate: decimal.RequireFromString("0.2")},
	{Floor: decimal.NewFromInt(80), Ceiling: decimal.NewFromInt(90), Rate: decimal.RequireFromString("0.1")},
	{Floor: decimal.NewFromInt(90), Ceiling: decimal.NewFromInt(100), Rate: decimal.RequireFromString("0.01")},
}

// tierFor returns the band containing score. Scores below the first floor
// (only reachable through an admin adjustment) accrue at the first band's rate.
func tierFor(score decimal.Decimal) Tier {
	tier := ScoreTiers[0]
	for _, t := range ScoreTiers {
		if score.GreaterThanOrEqual(t.Floor) {
			tier = t
		}
	}
	return tier
}

// Accrue applies weight units of interaction to own, splitting the weight
// across band boundaries so each portion accrues at its own band's rate.
// The result never exceeds OwnScoreMax.
func Accrue(own, weight decimal.Decimal) decimal.Decimal {
	score := own
	remaining := weight
	for remaining.IsPositive() && score.LessThan(OwnScoreMax) {
		tier := tierFor(score)
		needed := tier.Ceiling.Sub(score).Div(tier.Rate)
		if remaining.LessThanOrEqual(needed) {
			score = score.Add(remaining.Mul(tier.Rate))
			break
		}
		score = tier.Ceiling
		remaining = remaining.Sub(needed)
	}
	return decimal.Min(score, OwnScoreMax)
}

// OwnerBonus is the mean own score of the followers, clamped to [0, OwnerBonusMax]
func OwnerBonus(followerScores []decimal.Decimal) decimal.Decimal {
	if len(followerScores) == 0 {
		return decimal.Zero
	}
	mean := decimal.Avg(followerScores[0], followerScores[1:]...)
	return clamp(mean, decimal.Zero, OwnerBonusMax)
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	return decimal.Max(lo, decimal.Min(v, hi))
}

// SyncState tracks reconciliation with the on-chain score
type SyncState string

const (
	SyncStateSynced  SyncState = "synced"
	SyncStatePending SyncState = "sync_pending"
)

// ScoreRecord is the local, eventually-reconciled copy of an identity's score
type ScoreRecord struct {
	Address           string          `json:"address"`
	OwnScore          decimal.Decimal `json:"own_score"`
	OwnerBonus        decimal.Decimal `json:"owner_bonus"`
	FollowerCount     int             `json:"follower_count"`
	SyncState         SyncState       `json:"sync_state"`
	LastSyncedOnchain time.Time       `json:"last_synced_onchain"`
	Version           int64           `json:"version"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// NewScoreRecord returns the starting record for a fresh identity
func NewScoreRecord(address string, now time.Time) *ScoreRecord {
	return &ScoreRecord{
		Address:    address,
		OwnScore:   OwnScoreFloor,
		OwnerBonus: decimal.Zero,
		SyncState:  SyncStatePending,
		UpdatedAt:  now,
	}
}

// Total is own score plus owner bonus, clamped to [TotalFloor, TotalMax]
func (r *ScoreRecord) Total() decimal.Decimal {
	return clamp(r.OwnScore.Add(r.OwnerBonus), TotalFloor, TotalMax)
}

// TotalInt is the floored total, the form written on-chain and embedded in tokens
func (r *ScoreRecord) TotalInt() int64 {
	return r.Total().Floor().IntPart()
}

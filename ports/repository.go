package ports

import (
	"context"

	"github.com/layer-3/aeralogin/core"
)

// IdentityRepository persists identities, score records and follower sets
type IdentityRepository interface {
	// CreateIdentity stores a new active identity. It reports false when the
	// identity already existed, in which case the stored one is returned.
	CreateIdentity(ctx context.Context, address string) (*core.Identity, bool, error)
	GetIdentity(ctx context.Context, address string) (*core.Identity, error)
	SetIdentityStatus(ctx context.Context, address string, status core.IdentityStatus) error

	GetScore(ctx context.Context, address string) (*core.ScoreRecord, error)

	// UpdateScore applies mutate to the current record (a fresh record when
	// none exists) and persists the result. Updates to the same address are
	// serialised.
	UpdateScore(ctx context.Context, address string, mutate func(rec *core.ScoreRecord) error) (*core.ScoreRecord, error)

	// ListPendingScores returns up to limit records still waiting for the
	// ledger, least recently updated first
	ListPendingScores(ctx context.Context, limit int) ([]*core.ScoreRecord, error)

	AddFollower(ctx context.Context, owner, follower string) error
	RemoveFollower(ctx context.Context, owner, follower string) error
	ListFollowers(ctx context.Context, owner string) ([]string, error)

	// ListOwners returns every address that has at least one follower
	ListOwners(ctx context.Context) ([]string, error)
}

// ClientRepository persists registered OAuth clients
type ClientRepository interface {
	CreateClient(ctx context.Context, client *core.Client) error
	GetClient(ctx context.Context, clientID string) (*core.Client, error)
}

package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/layer-3/aeralogin/core"
	"github.com/layer-3/aeralogin/ports"
)

// MemoryRepository keeps identities, scores, followers and clients in maps
type MemoryRepository struct {
	mu         sync.Mutex
	identities map[string]core.Identity
	scores     map[string]core.ScoreRecord
	followers  map[string]map[string]struct{}
	clients    map[string]core.Client
}

// NewMemoryRepository creates an empty repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		identities: make(map[string]core.Identity),
		scores:     make(map[string]core.ScoreRecord),
		followers:  make(map[string]map[string]struct{}),
		clients:    make(map[string]core.Client),
	}
}

var (
	_ ports.IdentityRepository = (*MemoryRepository)(nil)
	_ ports.ClientRepository   = (*MemoryRepository)(nil)
)

func (r *MemoryRepository) CreateIdentity(_ context.Context, address string) (*core.Identity, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.identities[address]; ok {
		return &existing, false, nil
	}
	identity := core.Identity{Address: address, Status: core.IdentityActive, CreatedAt: time.Now().UTC()}
	r.identities[address] = identity
	return &identity, true, nil
}

func (r *MemoryRepository) GetIdentity(_ context.Context, address string) (*core.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok := r.identities[address]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &identity, nil
}

func (r *MemoryRepository) SetIdentityStatus(_ context.Context, address string, status core.IdentityStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok := r.identities[address]
	if !ok {
		return ports.ErrNotFound
	}
	identity.Status = status
	r.identities[address] = identity
	return nil
}

func (r *MemoryRepository) GetScore(_ context.Context, address string) (*core.ScoreRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.scores[address]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &rec, nil
}

func (r *MemoryRepository) UpdateScore(_ context.Context, address string, mutate func(rec *core.ScoreRecord) error) (*core.ScoreRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.scores[address]
	if !ok {
		rec = *core.NewScoreRecord(address, time.Now().UTC())
	}
	if err := mutate(&rec); err != nil {
		return nil, err
	}
	rec.Version++
	rec.UpdatedAt = time.Now().UTC()
	r.scores[address] = rec
	return &rec, nil
}

func (r *MemoryRepository) ListPendingScores(_ context.Context, limit int) ([]*core.ScoreRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending := make([]*core.ScoreRecord, 0)
	for _, rec := range r.scores {
		if rec.SyncState == core.SyncStatePending {
			rec := rec
			pending = append(pending, &rec)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if !pending[i].UpdatedAt.Equal(pending[j].UpdatedAt) {
			return pending[i].UpdatedAt.Before(pending[j].UpdatedAt)
		}
		return pending[i].Address < pending[j].Address
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (r *MemoryRepository) AddFollower(_ context.Context, owner, follower string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.followers[owner]
	if !ok {
		set = make(map[string]struct{})
		r.followers[owner] = set
	}
	set[follower] = struct{}{}
	return nil
}

func (r *MemoryRepository) RemoveFollower(_ context.Context, owner, follower string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.followers[owner], follower)
	return nil
}

func (r *MemoryRepository) ListFollowers(_ context.Context, owner string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	followers := make([]string, 0, len(r.followers[owner]))
	for f := range r.followers[owner] {
		followers = append(followers, f)
	}
	sort.Strings(followers)
	return followers, nil
}

func (r *MemoryRepository) ListOwners(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	owners := make([]string, 0, len(r.followers))
	for owner, set := range r.followers {
		if len(set) > 0 {
			owners = append(owners, owner)
		}
	}
	sort.Strings(owners)
	return owners, nil
}

func (r *MemoryRepository) CreateClient(_ context.Context, client *core.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clients[client.ID] = *client
	return nil
}

func (r *MemoryRepository) GetClient(_ context.Context, clientID string) (*core.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	client, ok := r.clients[clientID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &client, nil
}

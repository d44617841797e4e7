package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/layer-3/aeralogin/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcilerSyncsLostEvents(t *testing.T) {
	h := newHarness(t)
	w := newWallet(t)
	ctx := context.Background()

	h.events.err = errors.New("broker down")
	_, err := h.scores.ApplyInteraction(ctx, w.address, d("12"))
	require.NoError(t, err)

	rec, err := h.scores.Score(ctx, w.address)
	require.NoError(t, err)
	require.Equal(t, core.SyncStatePending, rec.SyncState)

	r := NewReconciler(h.scores, h.repo, h.sync, 10)
	res, err := r.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Synced)
	assert.Zero(t, res.Pending)

	onchain, err := h.ledger.Score(ctx, w.address)
	require.NoError(t, err)
	assert.Equal(t, int64(61), onchain)

	rec, err = h.scores.Score(ctx, w.address)
	require.NoError(t, err)
	assert.Equal(t, core.SyncStateSynced, rec.SyncState)
	assert.Equal(t, h.clock.Now(), rec.LastSyncedOnchain)

	// Nothing left to push
	res, err = r.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Synced)
}

func TestReconcilerRefreshesOwnerBonus(t *testing.T) {
	h := newHarness(t)
	owner, follower := newWallet(t), newWallet(t)
	ctx := context.Background()

	_, err := h.scores.AddFollower(ctx, owner.address, follower.address)
	require.NoError(t, err)
	_, err = h.scores.ApplyInteraction(ctx, follower.address, d("10"))
	require.NoError(t, err)

	r := NewReconciler(h.scores, h.repo, h.sync, 10)
	res, err := r.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Owners)
	assert.Equal(t, 2, res.Synced)

	rec, err := h.scores.Score(ctx, owner.address)
	require.NoError(t, err)
	assert.True(t, rec.OwnerBonus.Equal(d("60")), "got %s", rec.OwnerBonus)
	assert.Equal(t, core.SyncStateSynced, rec.SyncState)

	onchain, err := h.ledger.Score(ctx, owner.address)
	require.NoError(t, err)
	assert.Equal(t, rec.TotalInt(), onchain)
}

func TestReconcilerLeavesFailedSyncPending(t *testing.T) {
	h := newHarness(t)
	w := newWallet(t)
	ctx := context.Background()

	_, err := h.scores.ApplyInteraction(ctx, w.address, d("3"))
	require.NoError(t, err)

	h.ledger.FailWith(errors.New("nonce too low"))
	r := NewReconciler(h.scores, h.repo, h.sync, 10)
	res, err := r.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pending)

	rec, err := h.scores.Score(ctx, w.address)
	require.NoError(t, err)
	assert.Equal(t, core.SyncStatePending, rec.SyncState)

	h.ledger.FailWith(nil)
	res, err = r.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Synced)
}

func TestReconcilerWithoutWritableLedger(t *testing.T) {
	h := newHarness(t)
	w := newWallet(t)
	ctx := context.Background()

	_, err := h.scores.ApplyInteraction(ctx, w.address, d("3"))
	require.NoError(t, err)

	r := NewReconciler(h.scores, h.repo, nil, 10)
	res, err := r.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Synced)
	assert.Zero(t, h.ledger.Calls())

	rec, err := h.scores.Score(ctx, w.address)
	require.NoError(t, err)
	assert.Equal(t, core.SyncStatePending, rec.SyncState)
}

func TestReconcilerRun(t *testing.T) {
	h := newHarness(t)
	w := newWallet(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.events.err = errors.New("broker down")
	_, err := h.scores.ApplyInteraction(context.Background(), w.address, d("12"))
	require.NoError(t, err)

	r := NewReconciler(h.scores, h.repo, h.sync, 10)
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, 10*time.Millisecond) }()

	require.Eventually(t, func() bool {
		rec, err := h.scores.Score(context.Background(), w.address)
		return err == nil && rec.SyncState == core.SyncStateSynced
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop")
	}
}

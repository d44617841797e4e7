package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/layer-3/aeralogin/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishAndConsumeScoreChanged(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var received []core.ScoreChangedEvent
	done := make(chan struct{})

	go func() {
		_ = ConsumeScoreChanged(ctx, pubSub, func(_ context.Context, e core.ScoreChangedEvent) error {
			mu.Lock()
			received = append(received, e)
			mu.Unlock()
			close(done)
			return nil
		})
	}()
	// Subscription is registered asynchronously
	time.Sleep(50 * time.Millisecond)

	pub := NewWatermillPublisher(pubSub)
	require.NoError(t, pub.PublishScoreChanged(ctx, core.ScoreChangedEvent{
		Address: "0xabc",
		Total:   61,
		Reason:  "interaction",
		Version: 3,
	}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, "0xabc", received[0].Address)
	assert.Equal(t, int64(61), received[0].Total)
	assert.Equal(t, int64(3), received[0].Version)
}

func TestConsumeScoreChangedRedeliversOnFailure(t *testing.T) {
	prev := RedeliveryDelay
	RedeliveryDelay = 10 * time.Millisecond
	t.Cleanup(func() { RedeliveryDelay = prev })

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var attempts int
	done := make(chan struct{})
	go func() {
		_ = ConsumeScoreChanged(ctx, pubSub, func(_ context.Context, _ core.ScoreChangedEvent) error {
			attempts++
			if attempts < 3 {
				return assert.AnError
			}
			close(done)
			return nil
		})
	}()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, NewWatermillPublisher(pubSub).PublishScoreChanged(ctx, core.ScoreChangedEvent{Address: "0xabc"}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event not redelivered")
	}
	assert.Equal(t, 3, attempts)
}

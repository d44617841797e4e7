package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/layer-3/aeralogin/core"
	"github.com/rs/zerolog/log"
)

// RedeliveryDelay is how long a failed message is held before it is nacked
var RedeliveryDelay = time.Second

// ScoreChangedHandler processes one score change. A returned error nacks the
// message so it is redelivered.
type ScoreChangedHandler func(ctx context.Context, event core.ScoreChangedEvent) error

// ConsumeScoreChanged feeds score.changed messages to handler until ctx is
// cancelled or the subscription closes
func ConsumeScoreChanged(ctx context.Context, subscriber message.Subscriber, handler ScoreChangedHandler) error {
	messages, err := subscriber.Subscribe(ctx, core.TopicScoreChanged)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", core.TopicScoreChanged, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}

			var event core.ScoreChangedEvent
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				// Undecodable payloads are dropped; redelivery cannot fix them
				log.Error().Err(err).Str("message_id", msg.UUID).Msg("Dropping malformed score event")
				msg.Ack()
				continue
			}

			if err := handler(ctx, event); err != nil {
				log.Warn().Err(err).Str("address", core.ShortAddress(event.Address)).Msg("Score event handler failed")
				select {
				case <-ctx.Done():
					msg.Nack()
					return ctx.Err()
				case <-time.After(RedeliveryDelay):
				}
				msg.Nack()
				continue
			}
			msg.Ack()
		}
	}
}

package ports

import (
	"context"

	"github.com/layer-3/aeralogin/core"
)

// EventPublisher publishes domain events for other instances and workers
type EventPublisher interface {
	PublishScoreChanged(ctx context.Context, event core.ScoreChangedEvent) error
}

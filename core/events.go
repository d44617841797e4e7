package core

import "time"

// TopicScoreChanged carries ScoreChangedEvent payloads
const TopicScoreChanged = "score.changed"

// ScoreChangedEvent is emitted after a local score update that still has to
// be reconciled with the ledger
type ScoreChangedEvent struct {
	Address   string    `json:"address"`
	Total     int64     `json:"total"`
	Reason    string    `json:"reason"`
	Version   int64     `json:"version"`
	ChangedAt time.Time `json:"changed_at"`
}

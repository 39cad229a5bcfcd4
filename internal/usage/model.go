package usage

import "time"

const (
	FlushReasonEnd     = "end"
	FlushReasonTimeout = "timeout"
)

type Event struct {
	Name      string         `json:"name" bson:"name"`
	Data      map[string]any `json:"data,omitempty" bson:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp" bson:"timestamp"`
}

// Record is one visit to a page: buffered in memory while open, persisted
// once on end or idle timeout.
type Record struct {
	UsageID     string     `json:"usage_id" bson:"usage_id"`
	ClientID    string     `json:"client_id" bson:"client_id"`
	Page        string     `json:"page" bson:"page"`
	Section     string     `json:"section,omitempty" bson:"section,omitempty"`
	StartAt     time.Time  `json:"start_at" bson:"start_at"`
	EndAt       *time.Time `json:"end_at" bson:"end_at"`
	DurationMs  int64      `json:"duration_ms" bson:"duration_ms"`
	Events      []Event    `json:"events" bson:"events"`
	FlushReason string     `json:"flush_reason,omitempty" bson:"flush_reason,omitempty"`
}

// StrayEvent is an event that arrived after its visit was already flushed,
// or for a visit that was never started. It is persisted on its own rather
// than dropped.
type StrayEvent struct {
	ClientID  string         `json:"client_id,omitempty" bson:"client_id,omitempty"`
	Page      string         `json:"page,omitempty" bson:"page,omitempty"`
	Name      string         `json:"name" bson:"name"`
	Data      map[string]any `json:"data,omitempty" bson:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp" bson:"timestamp"`
}

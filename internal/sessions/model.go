package sessions

import "time"

// Record captures one WebSocket connection lifecycle. Written once at
// disconnect or prune time, never mutated afterward.
type Record struct {
	ClientID     string    `json:"client_id,omitempty" bson:"client_id,omitempty"`
	ConnectionID string    `json:"connection_id" bson:"connection_id"`
	StartAt      time.Time `json:"start_at" bson:"start_at"`
	EndAt        time.Time `json:"end_at" bson:"end_at"`
	DurationMs   int64     `json:"duration_ms" bson:"duration_ms"`
}

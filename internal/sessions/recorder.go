package sessions

import (
	"context"
	"log/slog"
	"time"

	"github.com/classpad/activity-backend/internal/metrics"
	"github.com/classpad/activity-backend/internal/shared"
)

type Store interface {
	InsertSession(ctx context.Context, rec *Record) error
}

type Broadcaster interface {
	Publish(event string, payload any)
}

type Recorder struct {
	store     Store
	broadcast Broadcaster
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewRecorder(store Store, broadcast Broadcaster, m *metrics.Metrics, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:     store,
		broadcast: broadcast,
		metrics:   m,
		logger:    logger.With("component", "session_recorder"),
	}
}

// Record persists one session. A failed write is logged and swallowed:
// it must never block connection cleanup.
func (r *Recorder) Record(ctx context.Context, clientID, connectionID string, startAt, endAt time.Time) {
	rec := &Record{
		ClientID:     clientID,
		ConnectionID: connectionID,
		StartAt:      startAt,
		EndAt:        endAt,
		DurationMs:   shared.DurationMs(startAt, endAt),
	}

	if err := r.store.InsertSession(ctx, rec); err != nil {
		r.logger.Error("failed to persist session record",
			"error", err, "connection_id", connectionID, "client_id", clientID)
		return
	}

	r.metrics.SessionsRecorded.Inc()
	r.broadcast.Publish("session:recorded", rec)
}

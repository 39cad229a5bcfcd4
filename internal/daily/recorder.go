package daily

import (
	"context"
	"log/slog"
	"time"

	"github.com/classpad/activity-backend/internal/metrics"
	"github.com/classpad/activity-backend/internal/shared"
)

type Store interface {
	UpsertPageUser(ctx context.Context, clientID, page, day string, now time.Time) (created bool, err error)
	IncrPageCount(ctx context.Context, page, day string) error
	IncrPageView(ctx context.Context, page, day string) error
	UpsertActiveUser(ctx context.Context, clientID, day string, now time.Time) (created bool, err error)
	IncrActiveCount(ctx context.Context, day string) error
	GetPageCount(ctx context.Context, page, day string) (int64, error)
	GetPageViews(ctx context.Context, page, day string) (int64, error)
}

type Broadcaster interface {
	Publish(event string, payload any)
}

// Recorder implements the two-step unique counting design: an idempotent
// marker upsert, then a derived-aggregate increment only when the marker
// was newly created. Correctness rests on the store's unique index, not
// on reading back visitor sets.
type Recorder struct {
	store     Store
	broadcast Broadcaster
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

func NewRecorder(store Store, broadcast Broadcaster, m *metrics.Metrics, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:     store,
		broadcast: broadcast,
		metrics:   m,
		logger:    logger.With("component", "daily_recorder"),
		now:       time.Now,
	}
}

// RecordPageUser counts the client at most once per page per UTC day.
// Concurrent calls for the same key are safe: only the caller whose
// upsert actually created the marker increments the aggregate.
func (r *Recorder) RecordPageUser(ctx context.Context, clientID, page string) error {
	day := shared.Day(r.now())

	created, err := r.store.UpsertPageUser(ctx, clientID, page, day, r.now())
	if err != nil {
		return err
	}
	if !created {
		return nil
	}

	if err := r.store.IncrPageCount(ctx, page, day); err != nil {
		return err
	}
	r.metrics.FirstVisits.Inc()
	r.broadcast.Publish("daily:unique", map[string]any{
		"clientId": clientID,
		"page":     page,
		"day":      day,
	})
	return nil
}

// RecordPageView increments the raw view counter unconditionally.
func (r *Recorder) RecordPageView(ctx context.Context, page string) error {
	day := shared.Day(r.now())
	if err := r.store.IncrPageView(ctx, page, day); err != nil {
		return err
	}
	r.metrics.PageViews.Inc()
	r.broadcast.Publish("daily:views", map[string]any{
		"page": page,
		"day":  day,
	})
	return nil
}

// RecordActiveUser counts a client as active site-wide at most once per
// UTC day, independent of any page.
func (r *Recorder) RecordActiveUser(ctx context.Context, clientID string) error {
	day := shared.Day(r.now())

	created, err := r.store.UpsertActiveUser(ctx, clientID, day, r.now())
	if err != nil {
		return err
	}
	if !created {
		return nil
	}
	return r.store.IncrActiveCount(ctx, day)
}

// PageStats reads the aggregates back for the dashboard.
func (r *Recorder) PageStats(ctx context.Context, page, day string) (uniqueUsers, views int64, err error) {
	uniqueUsers, err = r.store.GetPageCount(ctx, page, day)
	if err != nil {
		return 0, 0, err
	}
	views, err = r.store.GetPageViews(ctx, page, day)
	if err != nil {
		return 0, 0, err
	}
	return uniqueUsers, views, nil
}

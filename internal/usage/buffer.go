package usage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/classpad/activity-backend/internal/metrics"
	"github.com/classpad/activity-backend/internal/shared"
)

const (
	idleTimeout   = 30 * time.Minute
	sweepInterval = time.Minute
)

type Store interface {
	SaveRecord(ctx context.Context, rec *Record) error
	SaveStrayEvent(ctx context.Context, ev *StrayEvent) error
}

// DailyRecorder is the slice of the daily counters the buffer needs for
// the start-time side effects.
type DailyRecorder interface {
	RecordPageUser(ctx context.Context, clientID, page string) error
	RecordPageView(ctx context.Context, page string) error
}

// Broadcaster pushes advisory snapshots toward live dashboards. Delivery
// is best-effort and never observed by callers.
type Broadcaster interface {
	Publish(event string, payload any)
}

type entry struct {
	rec          *Record
	lastActivity time.Time
}

// Buffer holds open visits in memory between start and end. It is the
// single owner of the map; mutations happen under the mutex and never
// span a store call.
type Buffer struct {
	store     Store
	daily     DailyRecorder
	broadcast Broadcaster
	metrics   *metrics.Metrics
	logger    *slog.Logger

	mu   sync.Mutex
	open map[string]*entry

	now  func() time.Time
	done chan struct{}
}

func NewBuffer(store Store, daily DailyRecorder, broadcast Broadcaster, m *metrics.Metrics, logger *slog.Logger) *Buffer {
	return &Buffer{
		store:     store,
		daily:     daily,
		broadcast: broadcast,
		metrics:   m,
		logger:    logger.With("component", "usage_buffer"),
		open:      make(map[string]*entry),
		now:       time.Now,
		done:      make(chan struct{}),
	}
}

type StartParams struct {
	ClientID  string
	Page      string
	Section   string
	Timestamp time.Time
}

// Start opens a new buffered visit. A fresh usage id is minted on every
// call; starts are never deduplicated against existing open buffers. The
// minted flag tells the caller a client id was generated server-side and
// must be handed back to the browser.
func (b *Buffer) Start(ctx context.Context, p StartParams) (usageID, clientID string, minted bool) {
	clientID = p.ClientID
	if clientID == "" {
		clientID = shared.NewID("c_")
		minted = true
	}

	startAt := p.Timestamp
	if startAt.IsZero() {
		startAt = b.now()
	}

	usageID = shared.NewID("u_")
	rec := &Record{
		UsageID:  usageID,
		ClientID: clientID,
		Page:     p.Page,
		Section:  p.Section,
		StartAt:  startAt,
		Events:   []Event{},
	}

	b.mu.Lock()
	b.open[usageID] = &entry{rec: rec, lastActivity: b.now()}
	n := len(b.open)
	b.mu.Unlock()
	b.metrics.OpenBuffers.Set(float64(n))

	// Daily bookkeeping is best-effort; a store failure never fails the
	// start path.
	if err := b.daily.RecordPageView(ctx, p.Page); err != nil {
		b.logger.Error("failed to record page view", "error", err, "page", p.Page)
	}
	if err := b.daily.RecordPageUser(ctx, clientID, p.Page); err != nil {
		b.logger.Error("failed to record daily page user", "error", err, "client_id", clientID, "page", p.Page)
	}

	return usageID, clientID, minted
}

type EventParams struct {
	UsageID   string
	ClientID  string
	Page      string
	Name      string
	Data      map[string]any
	Timestamp time.Time
}

// TrackEvent appends the event to the matching open visit and refreshes
// its idle clock. When nothing matches the event is persisted standalone
// so it is never silently dropped. Returns whether the event was buffered.
func (b *Buffer) TrackEvent(ctx context.Context, p EventParams) bool {
	ts := p.Timestamp
	if ts.IsZero() {
		ts = b.now()
	}

	b.mu.Lock()
	if e := b.resolveLocked(p.UsageID, p.ClientID, p.Page); e != nil {
		e.rec.Events = append(e.rec.Events, Event{Name: p.Name, Data: p.Data, Timestamp: ts})
		e.lastActivity = b.now()
		b.mu.Unlock()
		return true
	}
	b.mu.Unlock()

	stray := &StrayEvent{
		ClientID:  p.ClientID,
		Page:      p.Page,
		Name:      p.Name,
		Data:      p.Data,
		Timestamp: ts,
	}
	if err := b.store.SaveStrayEvent(ctx, stray); err != nil {
		b.logger.Error("failed to persist stray event, data lost", "error", err, "name", p.Name, "client_id", p.ClientID)
		return false
	}
	b.metrics.StrayEvents.Inc()
	return false
}

type EndParams struct {
	UsageID   string
	ClientID  string
	Page      string
	Section   string
	Timestamp time.Time
}

type EndResult struct {
	Found      bool
	UsageID    string
	DurationMs int64
}

// End closes the matching visit and flushes it. Resolution is by exact
// usage id first, then by (client id, page) among open buffers, newest
// start first. No match is not an error: the visit was never started,
// already flushed, or the server restarted.
func (b *Buffer) End(ctx context.Context, p EndParams) (EndResult, error) {
	endAt := p.Timestamp
	if endAt.IsZero() {
		endAt = b.now()
	}

	b.mu.Lock()
	e := b.resolveLocked(p.UsageID, p.ClientID, p.Page)
	if e == nil {
		b.mu.Unlock()
		return EndResult{}, nil
	}
	delete(b.open, e.rec.UsageID)
	n := len(b.open)
	b.mu.Unlock()
	b.metrics.OpenBuffers.Set(float64(n))

	rec := e.rec
	rec.EndAt = &endAt
	rec.DurationMs = shared.DurationMs(rec.StartAt, endAt)
	rec.FlushReason = FlushReasonEnd
	if p.Section != "" {
		rec.Section = p.Section
	}

	res := EndResult{Found: true, UsageID: rec.UsageID, DurationMs: rec.DurationMs}
	if err := b.flush(ctx, rec); err != nil {
		return res, err
	}
	return res, nil
}

// resolveLocked finds an open entry by exact usage id, falling back to the
// most recently started (client id, page) match. Substring id matching is
// deliberately not supported.
func (b *Buffer) resolveLocked(usageID, clientID, page string) *entry {
	if usageID != "" {
		if e, ok := b.open[usageID]; ok {
			return e
		}
	}
	if clientID == "" || page == "" {
		return nil
	}

	var best *entry
	for _, e := range b.open {
		if e.rec.ClientID != clientID || e.rec.Page != page {
			continue
		}
		if best == nil || e.rec.StartAt.After(best.rec.StartAt) {
			best = e
		}
	}
	return best
}

// flush persists the record. The entry is already out of the map, so a
// persistence failure means data loss; it is logged, never swallowed.
func (b *Buffer) flush(ctx context.Context, rec *Record) error {
	if err := b.store.SaveRecord(ctx, rec); err != nil {
		b.logger.Error("usage flush failed, record dropped",
			"error", err, "usage_id", rec.UsageID, "page", rec.Page, "reason", rec.FlushReason)
		return err
	}
	b.metrics.UsageFlushes.WithLabelValues(rec.FlushReason).Inc()
	b.broadcast.Publish("usage:flushed", rec)
	return nil
}

// Run drives the idle sweep until Stop is called.
func (b *Buffer) Run() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			b.sweep(context.Background())
		}
	}
}

func (b *Buffer) Stop() {
	close(b.done)
}

// sweep flushes every buffer idle past the timeout window with
// reason=timeout. Errors are per-record; one bad record never halts the
// rest of the sweep.
func (b *Buffer) sweep(ctx context.Context) {
	cutoff := b.now().Add(-idleTimeout)

	b.mu.Lock()
	var expired []*Record
	for id, e := range b.open {
		if e.lastActivity.Before(cutoff) {
			delete(b.open, id)
			expired = append(expired, e.rec)
		}
	}
	n := len(b.open)
	b.mu.Unlock()

	if len(expired) == 0 {
		return
	}
	b.metrics.OpenBuffers.Set(float64(n))

	for _, rec := range expired {
		endAt := b.now()
		rec.EndAt = &endAt
		rec.DurationMs = shared.DurationMs(rec.StartAt, endAt)
		rec.FlushReason = FlushReasonTimeout
		if err := b.flush(ctx, rec); err != nil {
			continue
		}
		b.logger.Info("idle usage buffer flushed", "usage_id", rec.UsageID, "page", rec.Page)
	}
}

func (b *Buffer) OpenCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.open)
}

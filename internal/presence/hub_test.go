package presence

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/classpad/activity-backend/internal/events"
	"github.com/classpad/activity-backend/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type fakeSocket struct{}

func (f *fakeSocket) ReadMessage() (int, []byte, error)          { select {} }
func (f *fakeSocket) WriteMessage(mt int, data []byte) error     { return nil }
func (f *fakeSocket) SetReadLimit(limit int64)                   {}
func (f *fakeSocket) SetReadDeadline(t time.Time) error          { return nil }
func (f *fakeSocket) SetWriteDeadline(t time.Time) error         { return nil }
func (f *fakeSocket) Close() error                               { return nil }

type fakeSessionRecorder struct {
	mu      sync.Mutex
	records []sessionCall
}

type sessionCall struct {
	clientID     string
	connectionID string
	startAt      time.Time
	endAt        time.Time
}

func (f *fakeSessionRecorder) Record(ctx context.Context, clientID, connectionID string, startAt, endAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, sessionCall{clientID, connectionID, startAt, endAt})
}

type fakeActiveRecorder struct {
	mu      sync.Mutex
	clients []string
}

func (f *fakeActiveRecorder) RecordActiveUser(ctx context.Context, clientID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clients = append(f.clients, clientID)
	return nil
}

func newTestHub() (*Hub, *fakeSessionRecorder, *fakeActiveRecorder, *events.Bus) {
	recorder := &fakeSessionRecorder{}
	daily := &fakeActiveRecorder{}
	bus := events.NewBus()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := NewHub(recorder, daily, bus, metrics.New(prometheus.NewRegistry()), logger)
	return hub, recorder, daily, bus
}

func newFakeConn(id string, dashboard bool) *conn {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return newConn(id, &fakeSocket{}, dashboard, logger)
}

// lastCount drains pending messages and returns the payload of the last
// clientCount seen, or -1 when none arrived.
func lastCount(t *testing.T, c *conn) int {
	t.Helper()
	count := -1
	for {
		select {
		case data := <-c.send:
			var msg Message
			if err := json.Unmarshal(data, &msg); err != nil {
				t.Fatalf("invalid broadcast json: %v", err)
			}
			if msg.Type == MessageTypeClientCount {
				count = int(msg.Payload.(float64))
			}
		default:
			return count
		}
	}
}

func TestHub_CountBroadcasts(t *testing.T) {
	hub, _, _, _ := newTestHub()

	conns := make([]*conn, 3)
	for i := range conns {
		conns[i] = newFakeConn(string(rune('a'+i)), false)
		hub.register(conns[i])
	}

	if hub.Count() != 3 {
		t.Fatalf("expected 3 connections, got %d", hub.Count())
	}
	for i, c := range conns {
		if got := lastCount(t, c); got != 3 {
			t.Errorf("conn %d: expected final count 3, got %d", i, got)
		}
	}

	hub.unregister(conns[0])
	if hub.Count() != 2 {
		t.Fatalf("expected 2 connections after close, got %d", hub.Count())
	}
	for _, c := range conns[1:] {
		if got := lastCount(t, c); got != 2 {
			t.Errorf("expected rebroadcast count 2, got %d", got)
		}
	}
}

func TestHub_Heartbeat_FirstClientIDRecordsDailyActive(t *testing.T) {
	hub, _, daily, _ := newTestHub()

	c := newFakeConn("conn1", false)
	hub.register(c)

	hub.heartbeat(c, "")
	if len(daily.clients) != 0 {
		t.Fatal("heartbeat without client id must not record daily active")
	}

	hub.heartbeat(c, "c1")
	hub.heartbeat(c, "c1")
	hub.heartbeat(c, "c1")

	if len(daily.clients) != 1 || daily.clients[0] != "c1" {
		t.Errorf("expected exactly one daily active record for c1, got %v", daily.clients)
	}
}

func TestHub_Unregister_RecordsSession(t *testing.T) {
	hub, recorder, _, _ := newTestHub()

	base := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	current := base
	hub.now = func() time.Time { return current }

	c := newFakeConn("conn1", false)
	hub.register(c)
	hub.heartbeat(c, "c1")

	current = base.Add(2 * time.Minute)
	hub.unregister(c)

	if len(recorder.records) != 1 {
		t.Fatalf("expected 1 session record, got %d", len(recorder.records))
	}
	rec := recorder.records[0]
	if rec.clientID != "c1" || rec.connectionID != "conn1" {
		t.Errorf("unexpected identifiers: %+v", rec)
	}
	if !rec.startAt.Equal(base) || !rec.endAt.Equal(current) {
		t.Errorf("unexpected session bounds: start=%v end=%v", rec.startAt, rec.endAt)
	}

	// A second unregister for the same connection is a no-op.
	hub.unregister(c)
	if len(recorder.records) != 1 {
		t.Errorf("duplicate unregister must not record again, got %d", len(recorder.records))
	}
}

func TestHub_Prune_StaleConnections(t *testing.T) {
	hub, recorder, _, _ := newTestHub()

	base := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	current := base
	hub.now = func() time.Time { return current }

	stale := newFakeConn("stale", false)
	fresh := newFakeConn("fresh", false)
	hub.register(stale)
	hub.register(fresh)
	hub.heartbeat(stale, "c1")

	current = base.Add(40 * time.Second)
	hub.heartbeat(fresh, "c2")
	hub.prune()

	if hub.Count() != 1 {
		t.Fatalf("expected only the fresh connection to remain, got %d", hub.Count())
	}
	if len(recorder.records) != 1 {
		t.Fatalf("expected 1 session record from prune, got %d", len(recorder.records))
	}
	rec := recorder.records[0]
	if rec.connectionID != "stale" {
		t.Errorf("expected stale connection recorded, got %s", rec.connectionID)
	}
	if !rec.endAt.Equal(base) {
		t.Errorf("prune must use the last heartbeat as end time, got %v", rec.endAt)
	}
	if got := lastCount(t, fresh); got != 1 {
		t.Errorf("expected rebroadcast count 1 after prune, got %d", got)
	}

	// The pruned connection is gone; a second sweep records nothing new.
	hub.prune()
	if len(recorder.records) != 1 {
		t.Errorf("second prune must not record again, got %d", len(recorder.records))
	}
}

func TestHub_DashboardFeed(t *testing.T) {
	hub, _, _, bus := newTestHub()

	client := newFakeConn("client", false)
	dashboard := newFakeConn("dash", true)
	hub.register(client)
	hub.register(dashboard)

	// Dashboards are observers, not counted.
	if hub.Count() != 1 {
		t.Fatalf("expected count 1, got %d", hub.Count())
	}

	drain(client)
	drain(dashboard)

	bus.Publish("usage:flushed", map[string]any{"page": "/coloring"})

	select {
	case data := <-dashboard.send:
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if msg.Type != "usage:flushed" {
			t.Errorf("expected usage:flushed, got %s", msg.Type)
		}
	default:
		t.Fatal("dashboard should have received the advisory event")
	}

	select {
	case <-client.send:
		t.Fatal("activity clients must not receive the dashboard feed")
	default:
	}
}

func drain(c *conn) {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}

package sessions

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/classpad/activity-backend/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type fakeStore struct {
	mu        sync.Mutex
	records   []*Record
	insertErr error
}

func (f *fakeStore) InsertSession(ctx context.Context, rec *Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.records = append(f.records, rec)
	return nil
}

type fakeBroadcast struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeBroadcast) Publish(event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func newTestRecorder(store *fakeStore) (*Recorder, *fakeBroadcast) {
	broadcast := &fakeBroadcast{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRecorder(store, broadcast, metrics.New(prometheus.NewRegistry()), logger), broadcast
}

func TestRecorder_Record(t *testing.T) {
	store := &fakeStore{}
	r, broadcast := newTestRecorder(store)

	start := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	r.Record(context.Background(), "c1", "conn_1", start, start.Add(90*time.Second))

	if len(store.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(store.records))
	}
	rec := store.records[0]
	if rec.DurationMs != 90000 {
		t.Errorf("expected 90000ms, got %d", rec.DurationMs)
	}
	if rec.ConnectionID != "conn_1" || rec.ClientID != "c1" {
		t.Errorf("unexpected identifiers: %+v", rec)
	}
	if len(broadcast.events) != 1 || broadcast.events[0] != "session:recorded" {
		t.Errorf("expected session:recorded broadcast, got %v", broadcast.events)
	}
}

func TestRecorder_NegativeDurationClamped(t *testing.T) {
	store := &fakeStore{}
	r, _ := newTestRecorder(store)

	start := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	r.Record(context.Background(), "c1", "conn_1", start, start.Add(-time.Minute))

	if store.records[0].DurationMs != 0 {
		t.Errorf("expected clamped duration 0, got %d", store.records[0].DurationMs)
	}
}

func TestRecorder_StoreFailureSwallowed(t *testing.T) {
	store := &fakeStore{insertErr: errors.New("store down")}
	r, broadcast := newTestRecorder(store)

	start := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	r.Record(context.Background(), "c1", "conn_1", start, start.Add(time.Minute))

	if len(store.records) != 0 {
		t.Error("no record should be stored")
	}
	if len(broadcast.events) != 0 {
		t.Errorf("no broadcast expected on failure, got %v", broadcast.events)
	}
}

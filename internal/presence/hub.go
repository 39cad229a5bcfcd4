package presence

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/classpad/activity-backend/internal/events"
	"github.com/classpad/activity-backend/internal/metrics"
)

const (
	heartbeatTimeout = 30 * time.Second
	pruneInterval    = 10 * time.Second
)

// SessionRecorder persists one record per connection lifecycle; it never
// reports failure to the hub.
type SessionRecorder interface {
	Record(ctx context.Context, clientID, connectionID string, startAt, endAt time.Time)
}

// ActiveRecorder is the site-wide daily-active bookkeeping hook fired on
// the first heartbeat that carries a client id.
type ActiveRecorder interface {
	RecordActiveUser(ctx context.Context, clientID string) error
}

// Hub is the registry of live WebSocket connections. It broadcasts the
// connected-client count to everyone and forwards advisory bus events to
// dashboard connections. Every broadcast reflects the registry state
// after the add or remove that triggered it.
type Hub struct {
	recorder SessionRecorder
	daily    ActiveRecorder
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu    sync.Mutex
	conns map[string]*conn

	now  func() time.Time
	done chan struct{}
}

func NewHub(recorder SessionRecorder, daily ActiveRecorder, bus *events.Bus, m *metrics.Metrics, logger *slog.Logger) *Hub {
	h := &Hub{
		recorder: recorder,
		daily:    daily,
		metrics:  m,
		logger:   logger.With("component", "presence_hub"),
		conns:    make(map[string]*conn),
		now:      time.Now,
		done:     make(chan struct{}),
	}
	bus.Subscribe(h.forwardToDashboards)
	return h
}

func (h *Hub) register(c *conn) {
	now := h.now()

	h.mu.Lock()
	c.connectedAt = now
	c.lastSeen = now
	h.conns[c.id] = c
	n := len(h.conns)
	h.broadcastCountLocked()
	h.mu.Unlock()

	h.metrics.LiveConnections.Set(float64(n))
	h.logger.Info("connection registered", "connection_id", c.id, "dashboard", c.dashboard)
}

// heartbeat refreshes the connection's last-seen clock and, the first
// time a client id arrives, associates it and rolls it into the daily
// active bookkeeping.
func (h *Hub) heartbeat(c *conn, clientID string) {
	h.mu.Lock()
	if _, ok := h.conns[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	c.lastSeen = h.now()
	first := clientID != "" && c.clientID == ""
	if clientID != "" {
		c.clientID = clientID
	}
	h.mu.Unlock()

	if first {
		if err := h.daily.RecordActiveUser(context.Background(), clientID); err != nil {
			h.logger.Error("failed to record daily active user", "error", err, "client_id", clientID)
		}
	}
}

// unregister handles an explicit disconnect: remove, rebroadcast, then
// persist the session from the recorded start time to now.
func (h *Hub) unregister(c *conn) {
	h.mu.Lock()
	if _, ok := h.conns[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.conns, c.id)
	n := len(h.conns)
	clientID := c.clientID
	startAt := c.connectedAt
	h.broadcastCountLocked()
	h.mu.Unlock()

	c.close()
	h.metrics.LiveConnections.Set(float64(n))
	h.recorder.Record(context.Background(), clientID, c.id, startAt, h.now())
	h.logger.Info("connection closed", "connection_id", c.id)
}

// Run drives the prune sweep until Stop is called.
func (h *Hub) Run() {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.prune()
		}
	}
}

func (h *Hub) Stop() {
	close(h.done)
}

// prune treats connections without a heartbeat inside the timeout window
// as dead. Their sessions end at the last heartbeat actually seen.
func (h *Hub) prune() {
	cutoff := h.now().Add(-heartbeatTimeout)

	h.mu.Lock()
	var dead []*conn
	for id, c := range h.conns {
		if c.lastSeen.Before(cutoff) {
			delete(h.conns, id)
			dead = append(dead, c)
		}
	}
	n := len(h.conns)
	if len(dead) > 0 {
		h.broadcastCountLocked()
	}
	h.mu.Unlock()

	if len(dead) == 0 {
		return
	}
	h.metrics.LiveConnections.Set(float64(n))

	for _, c := range dead {
		c.close()
		h.recorder.Record(context.Background(), c.clientID, c.id, c.connectedAt, c.lastSeen)
		h.logger.Info("stale connection pruned", "connection_id", c.id, "last_seen", c.lastSeen)
	}
}

// Count reports the number of live activity connections (dashboards are
// observers, not counted).
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clientCountLocked()
}

func (h *Hub) clientCountLocked() int {
	count := 0
	for _, c := range h.conns {
		if !c.dashboard {
			count++
		}
	}
	return count
}

func (h *Hub) broadcastCountLocked() {
	data, err := json.Marshal(Message{Type: MessageTypeClientCount, Payload: h.clientCountLocked()})
	if err != nil {
		h.logger.Error("failed to marshal client count", "error", err)
		return
	}
	for _, c := range h.conns {
		c.enqueue(data)
	}
}

// forwardToDashboards relays advisory events (usage:flushed, daily:unique,
// daily:views, session:recorded) to dashboard connections. Best-effort.
func (h *Hub) forwardToDashboards(event string, payload any) {
	data, err := json.Marshal(Message{Type: event, Payload: payload})
	if err != nil {
		h.logger.Error("failed to marshal dashboard event", "error", err, "event", event)
		return
	}

	h.mu.Lock()
	for _, c := range h.conns {
		if c.dashboard {
			c.enqueue(data)
		}
	}
	h.mu.Unlock()
}

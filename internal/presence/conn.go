package presence

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

const (
	MessageTypeHeartbeat   = "heartbeat"
	MessageTypeClientCount = "clientCount"
)

// Message is the wire envelope in both directions.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type inboundMessage struct {
	Type    string `json:"type"`
	Payload string `json:"payload,omitempty"`
}

// socket is the slice of *websocket.Conn the connection needs; tests
// substitute a fake.
type socket interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type conn struct {
	id        string
	ws        socket
	dashboard bool
	logger    *slog.Logger
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	// clientID, connectedAt and lastSeen are guarded by the hub mutex.
	clientID    string
	connectedAt time.Time
	lastSeen    time.Time
}

func newConn(id string, ws socket, dashboard bool, logger *slog.Logger) *conn {
	return &conn{
		id:        id,
		ws:        ws,
		dashboard: dashboard,
		logger:    logger.With("connection_id", id),
		send:      make(chan []byte, 64),
		done:      make(chan struct{}),
	}
}

// enqueue hands data to the write pump without blocking; a slow consumer
// loses broadcasts rather than stalling the hub.
func (c *conn) enqueue(data []byte) {
	select {
	case <-c.done:
	case c.send <- data:
	default:
		c.logger.Warn("send buffer full, dropping message")
	}
}

func (c *conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

func (c *conn) readPump(hub *Hub) {
	defer c.close()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket read error", "error", err)
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Error("failed to unmarshal message", "error", err)
			continue
		}

		if msg.Type == MessageTypeHeartbeat {
			hub.heartbeat(c, msg.Payload)
		}
	}
}

func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Error("websocket write error", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

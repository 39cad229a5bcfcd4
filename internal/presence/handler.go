package presence

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Handler struct {
	hub    *Hub
	logger *slog.Logger
}

func NewHandler(hub *Hub, logger *slog.Logger) *Handler {
	return &Handler{hub: hub, logger: logger}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", h.Connect)
}

// Connect upgrades to WebSocket and runs the connection until the client
// goes away. Dashboards connect with ?role=dashboard and additionally
// receive the advisory event feed.
func (h *Handler) Connect(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return err
	}

	conn := newConn(uuid.NewString(), ws, c.QueryParam("role") == "dashboard", h.logger)
	h.hub.register(conn)

	go conn.writePump()
	conn.readPump(h.hub)

	h.hub.unregister(conn)
	return nil
}

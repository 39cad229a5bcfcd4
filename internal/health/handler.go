package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

type ComponentStatus struct {
	Status    Status `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type RuntimeStats struct {
	Goroutines    int    `json:"goroutines"`
	MemoryAllocMB uint64 `json:"memory_alloc_mb"`
	MemorySysMB   uint64 `json:"memory_sys_mb"`
	NumGC         uint32 `json:"num_gc"`
}

type UsageStats struct {
	OpenBuffers     int `json:"open_buffers"`
	LiveConnections int `json:"live_connections"`
}

type Stats struct {
	Usage   UsageStats   `json:"usage"`
	Runtime RuntimeStats `json:"runtime"`
}

type HealthResponse struct {
	Status        Status                     `json:"status"`
	Timestamp     time.Time                  `json:"timestamp"`
	Version       string                     `json:"version"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	Stats         Stats                      `json:"stats"`
	Components    map[string]ComponentStatus `json:"components"`
}

// BufferStats reports the usage buffer's open record count.
type BufferStats interface {
	OpenCount() int
}

// PresenceStats reports the number of live websocket clients.
type PresenceStats interface {
	Count() int
}

type Handler struct {
	db        *mongo.Database
	buffer    BufferStats
	presence  PresenceStats
	version   string
	startTime time.Time
}

func NewHandler(db *mongo.Database, buffer BufferStats, presence PresenceStats, version string) *Handler {
	return &Handler{
		db:        db,
		buffer:    buffer,
		presence:  presence,
		version:   version,
		startTime: time.Now(),
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Liveness)
	e.GET("/health/ready", h.Readiness)
}

func (h *Handler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (h *Handler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	components := map[string]ComponentStatus{
		"mongo": h.checkMongo(ctx),
	}

	overallStatus := StatusHealthy
	for _, status := range components {
		if status.Status == StatusUnhealthy {
			overallStatus = StatusUnhealthy
		}
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	resp := HealthResponse{
		Status:        overallStatus,
		Timestamp:     time.Now().UTC(),
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Stats: Stats{
			Usage: UsageStats{
				OpenBuffers:     h.buffer.OpenCount(),
				LiveConnections: h.presence.Count(),
			},
			Runtime: RuntimeStats{
				Goroutines:    runtime.NumGoroutine(),
				MemoryAllocMB: memStats.Alloc / 1024 / 1024,
				MemorySysMB:   memStats.Sys / 1024 / 1024,
				NumGC:         memStats.NumGC,
			},
		},
		Components: components,
	}

	statusCode := http.StatusOK
	if overallStatus == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	return c.JSON(statusCode, resp)
}

func (h *Handler) checkMongo(ctx context.Context) ComponentStatus {
	start := time.Now()
	if h.db == nil {
		return ComponentStatus{
			Status:    StatusUnhealthy,
			LatencyMs: time.Since(start).Milliseconds(),
			Error:     "mongo not configured",
		}
	}

	if err := h.db.RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		return ComponentStatus{
			Status:    StatusUnhealthy,
			LatencyMs: time.Since(start).Milliseconds(),
			Error:     "ping failed",
		}
	}

	return ComponentStatus{
		Status:    StatusHealthy,
		LatencyMs: time.Since(start).Milliseconds(),
	}
}

package bootstrap

import (
	"log/slog"
	"os"

	"github.com/classpad/activity-backend/internal/daily"
	"github.com/classpad/activity-backend/internal/events"
	"github.com/classpad/activity-backend/internal/feedback"
	"github.com/classpad/activity-backend/internal/health"
	"github.com/classpad/activity-backend/internal/metrics"
	"github.com/classpad/activity-backend/internal/presence"
	"github.com/classpad/activity-backend/internal/sessions"
	"github.com/classpad/activity-backend/internal/upload"
	"github.com/classpad/activity-backend/internal/usage"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/fx"
)

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func ProvideLogger(cfg *Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
}

func ProvideDailyRecorder(store *daily.MongoStore, bus *events.Bus, m *metrics.Metrics, logger *slog.Logger) *daily.Recorder {
	return daily.NewRecorder(store, bus, m, logger.With("component", "daily"))
}

func ProvideSessionRecorder(store *sessions.MongoStore, bus *events.Bus, m *metrics.Metrics, logger *slog.Logger) *sessions.Recorder {
	return sessions.NewRecorder(store, bus, m, logger.With("component", "sessions"))
}

func ProvideBuffer(store *usage.MongoStore, dailyRecorder *daily.Recorder, bus *events.Bus, m *metrics.Metrics, logger *slog.Logger) *usage.Buffer {
	return usage.NewBuffer(store, dailyRecorder, bus, m, logger.With("component", "usage"))
}

func ProvideHub(recorder *sessions.Recorder, dailyRecorder *daily.Recorder, bus *events.Bus, m *metrics.Metrics, logger *slog.Logger) *presence.Hub {
	return presence.NewHub(recorder, dailyRecorder, bus, m, logger.With("component", "presence"))
}

func ProvideUsageHandler(buffer *usage.Buffer, cfg *Config, logger *slog.Logger) *usage.Handler {
	return usage.NewHandler(buffer, cfg.CookieSecure, cfg.CookieDomain, logger.With("handler", "usage"))
}

func ProvideDailyHandler(recorder *daily.Recorder, logger *slog.Logger) *daily.Handler {
	return daily.NewHandler(recorder, logger.With("handler", "stats"))
}

func ProvidePresenceHandler(hub *presence.Hub, logger *slog.Logger) *presence.Handler {
	return presence.NewHandler(hub, logger.With("handler", "presence"))
}

func ProvideFeedbackHandler(store *feedback.MongoStore, logger *slog.Logger) *feedback.Handler {
	return feedback.NewHandler(store, logger.With("handler", "feedback"))
}

func ProvideUploadHandler(cfg *Config, logger *slog.Logger) *upload.Handler {
	return upload.NewHandler(cfg.UploadDir, cfg.UploadMaxBytes, logger.With("handler", "upload"))
}

func ProvideHealthHandler(db *mongo.Database, buffer *usage.Buffer, hub *presence.Hub, cfg *Config) *health.Handler {
	return health.NewHandler(db, buffer, hub, cfg.Version)
}

type HandlerParams struct {
	fx.In

	UsageHandler    *usage.Handler
	DailyHandler    *daily.Handler
	PresenceHandler *presence.Handler
	FeedbackHandler *feedback.Handler
	UploadHandler   *upload.Handler
	HealthHandler   *health.Handler
}

func RegisterRoutes(e *echo.Echo, params HandlerParams) {
	params.UsageHandler.RegisterRoutes(e.Group("/usage"))
	params.DailyHandler.RegisterRoutes(e.Group("/stats"))
	params.PresenceHandler.RegisterRoutes(e)
	params.FeedbackHandler.RegisterRoutes(e)
	params.UploadHandler.RegisterRoutes(e)
	params.HealthHandler.RegisterRoutes(e)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)
}

var HandlersModule = fx.Options(
	fx.Provide(
		ProvideLogger,
		ProvideDailyRecorder,
		ProvideSessionRecorder,
		ProvideBuffer,
		ProvideHub,
		ProvideUsageHandler,
		ProvideDailyHandler,
		ProvidePresenceHandler,
		ProvideFeedbackHandler,
		ProvideUploadHandler,
		ProvideHealthHandler,
	),
	fx.Invoke(RegisterRoutes),
)

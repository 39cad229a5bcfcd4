package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the tracking subsystem.
type Metrics struct {
	UsageFlushes     *prometheus.CounterVec
	StrayEvents      prometheus.Counter
	OpenBuffers      prometheus.Gauge
	LiveConnections  prometheus.Gauge
	SessionsRecorded prometheus.Counter
	FirstVisits      prometheus.Counter
	PageViews        prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		UsageFlushes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "classpad",
				Subsystem: "usage",
				Name:      "flushes_total",
				Help:      "Buffered usage records flushed to the store",
			},
			[]string{"reason"},
		),
		StrayEvents: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "classpad",
				Subsystem: "usage",
				Name:      "stray_events_total",
				Help:      "Events persisted standalone because no open buffer matched",
			},
		),
		OpenBuffers: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "classpad",
				Subsystem: "usage",
				Name:      "open_buffers",
				Help:      "Usage records currently buffered in memory",
			},
		),
		LiveConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "classpad",
				Subsystem: "presence",
				Name:      "live_connections",
				Help:      "Currently registered WebSocket connections",
			},
		),
		SessionsRecorded: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "classpad",
				Subsystem: "sessions",
				Name:      "recorded_total",
				Help:      "Session records persisted at disconnect or prune time",
			},
		),
		FirstVisits: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "classpad",
				Subsystem: "daily",
				Name:      "first_visits_total",
				Help:      "First-time-today page visits that incremented a unique counter",
			},
		),
		PageViews: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "classpad",
				Subsystem: "daily",
				Name:      "page_views_total",
				Help:      "Raw page view increments",
			},
		),
	}
}

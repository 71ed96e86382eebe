// Package metrics exposes Prometheus instrumentation for the ingestion
// pipeline and the pattern engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	TelemetryReceived prometheus.Counter
	TelemetryRejected *prometheus.CounterVec
	ChannelDrops      *prometheus.CounterVec
	DBWriteSuccess    prometheus.Counter
	DBWriteFailures   prometheus.Counter

	AlertsRaised       *prometheus.CounterVec
	AlertsSuppressed   *prometheus.CounterVec
	EvaluationDuration prometheus.Histogram

	WebsocketClients prometheus.Gauge
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	return &Metrics{
		registry: registry,

		TelemetryReceived: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "fleetpredict_telemetry_received_total",
				Help: "Total telemetry payloads accepted for processing",
			},
		),
		TelemetryRejected: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "fleetpredict_telemetry_rejected_total",
				Help: "Total telemetry payloads rejected before dispatch",
			},
			[]string{"reason"},
		),
		ChannelDrops: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "fleetpredict_channel_drops_total",
				Help: "Total messages dropped because a pipeline channel was full",
			},
			[]string{"channel"},
		),
		DBWriteSuccess: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "fleetpredict_db_write_success_total",
				Help: "Total telemetry readings persisted",
			},
		),
		DBWriteFailures: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "fleetpredict_db_write_failures_total",
				Help: "Total telemetry persistence failures",
			},
		),

		AlertsRaised: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "fleetpredict_alerts_raised_total",
				Help: "Total alerts persisted, by type and severity",
			},
			[]string{"type", "severity"},
		),
		AlertsSuppressed: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "fleetpredict_alerts_suppressed_total",
				Help: "Total findings suppressed by the cooldown window",
			},
			[]string{"type"},
		),
		EvaluationDuration: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fleetpredict_evaluation_duration_seconds",
				Help:    "Time spent running all pattern checks for one reading",
				Buckets: prometheus.DefBuckets,
			},
		),

		WebsocketClients: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "fleetpredict_websocket_clients",
				Help: "Connected websocket subscribers",
			},
		),
	}
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Package metrics exposes Prometheus metrics for proctord.
//
// Counters track the event flow (ingested events, high-risk notifications,
// sessions); gauges mirror the engine's current derived state so a scrape
// sees the same numbers a proctor dashboard would.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all proctord metrics, bound to one registry.
type Metrics struct {
	registry *prometheus.Registry

	EventsTotal   *prometheus.CounterVec
	HighRiskTotal *prometheus.CounterVec
	SessionsTotal prometheus.Counter
	ImportsTotal  prometheus.Counter

	CurrentRisk prometheus.Gauge
	MaxRisk     prometheus.Gauge
	CopyStreak  prometheus.Gauge
	FocusStreak prometheus.Gauge
	EventCount  prometheus.Gauge
}

// New creates the metric set on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		EventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: "proctord", Name: "events_total", Help: "Activity events ingested, by type."},
			[]string{"type"},
		),
		HighRiskTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: "proctord", Name: "high_risk_events_total", Help: "High-risk notifications emitted, by severity."},
			[]string{"severity"},
		),
		SessionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{Namespace: "proctord", Name: "sessions_total", Help: "Monitoring sessions started."},
		),
		ImportsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{Namespace: "proctord", Name: "dataset_imports_total", Help: "Dataset imports accepted."},
		),
		CurrentRisk: prometheus.NewGauge(
			prometheus.GaugeOpts{Namespace: "proctord", Name: "total_risk_score", Help: "Current reported total risk score."},
		),
		MaxRisk: prometheus.NewGauge(
			prometheus.GaugeOpts{Namespace: "proctord", Name: "max_risk_score", Help: "Maximum instantaneous risk reached this session."},
		),
		CopyStreak: prometheus.NewGauge(
			prometheus.GaugeOpts{Namespace: "proctord", Name: "consecutive_copy_attempts", Help: "Current copy-family streak length."},
		),
		FocusStreak: prometheus.NewGauge(
			prometheus.GaugeOpts{Namespace: "proctord", Name: "consecutive_focus_changes", Help: "Current focus-change streak length."},
		),
		EventCount: prometheus.NewGauge(
			prometheus.GaugeOpts{Namespace: "proctord", Name: "event_count", Help: "Events currently in the session stream."},
		),
	}

	m.registry.MustRegister(
		m.EventsTotal, m.HighRiskTotal, m.SessionsTotal, m.ImportsTotal,
		m.CurrentRisk, m.MaxRisk, m.CopyStreak, m.FocusStreak, m.EventCount,
	)
	return m
}

// Handler returns the HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve starts an HTTP server exposing /metrics on addr. It blocks until
// the server stops.
func (m *Metrics) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return http.ListenAndServe(addr, mux)
}

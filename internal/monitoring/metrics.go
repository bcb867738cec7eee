// Package monitoring exposes the audit core's Prometheus metrics.
package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the audit core.
type Metrics struct {
	// HTTP surface
	RequestDuration *prometheus.HistogramVec

	// Domain counters
	ScansIngested      *prometheus.CounterVec
	SessionTransitions *prometheus.CounterVec
	ActionsApplied     *prometheus.CounterVec
	CollaboratorErrors *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "audit_http_request_duration_seconds",
				Help:    "Latency of audit API requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method", "status"},
		),
		ScansIngested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_scans_ingested_total",
				Help: "Scans accepted by the ingestor",
			},
			[]string{"outcome"}, // created, replayed
		),
		SessionTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_session_transitions_total",
				Help: "Committed session state transitions",
			},
			[]string{"to"},
		),
		ActionsApplied: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_actions_applied_total",
				Help: "Corrective actions by final status after an apply pass",
			},
			[]string{"status"}, // done, failed
		),
		CollaboratorErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_collaborator_errors_total",
				Help: "Failed collaborator calls by service",
			},
			[]string{"service"},
		),
	}
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Settlement - Order Settlement Core for the BazaarHQ Commerce Platform
// Copyright 2026 BazaarHQ Engineering
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bazaarhq/settlement

// Package metrics defines Prometheus collectors for the settlement service.
// All collectors register through promauto on the default registry and are
// exposed at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_requests",
			Help: "Number of HTTP requests currently in flight",
		},
	)

	// Settlement metrics

	OrdersCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Total number of orders created at checkout",
		},
		[]string{"mode"}, // "live", "demo"
	)

	PaymentsVerified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_verified_total",
			Help: "Total number of payment verification attempts",
		},
		[]string{"result"}, // "paid", "duplicate", "signature_mismatch", "expired", "error"
	)

	OrdersCancelled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_cancelled_total",
			Help: "Total number of customer cancellations applied",
		},
	)

	OrdersExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_expired_total",
			Help: "Total number of pending orders expired by the sweeper",
		},
	)

	MetricsReconciliations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "product_metrics_reconciliations_total",
			Help: "Total number of product metrics delta applications",
		},
		[]string{"direction"}, // "increment", "decrement", "recompute"
	)

	// Gateway circuit breaker metrics

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total requests through the circuit breaker by outcome",
		},
		[]string{"name", "outcome"}, // "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Notification metrics

	NotificationsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_updates_published_total",
			Help: "Total order update notifications published",
		},
		[]string{"outcome"}, // "ok", "error"
	)

	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_clients",
			Help: "Number of connected WebSocket clients",
		},
	)
)

// RecordAPIRequest records a completed HTTP request.
func RecordAPIRequest(method, path, status string, duration time.Duration) {
	APIRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
	APIRequestsTotal.WithLabelValues(method, path, status).Inc()
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(start bool) {
	if start {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

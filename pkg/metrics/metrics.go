// Package metrics holds Prometheus collectors shared across packages and the
// histogram buckets used by the OpenTelemetry instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultBuckets provides a common set of histogram buckets in seconds that can
// be reused across the application for latency metrics.
var DefaultBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10} //nolint: gochecknoglobals

//nolint: gochecknoglobals
var (
	// BotDecisions counts access gate outcomes by decision.
	BotDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "multiapi",
		Name:      "bot_gate_decisions_total",
		Help:      "Access gate decisions by outcome.",
	}, []string{"decision"})

	// RateLimited counts requests rejected by the per-client rate limiter.
	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "multiapi",
		Name:      "rate_limited_requests_total",
		Help:      "Requests rejected because the client exhausted its budget.",
	})

	// CORSRejected counts requests refused because of their Origin.
	CORSRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "multiapi",
		Name:      "cors_rejected_requests_total",
		Help:      "Requests refused because their origin is not allow-listed.",
	})

	// HTTPRequestDuration observes request latency by route pattern, method and status.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "multiapi",
		Name:      "http_request_duration_seconds",
		Help:      "Latency of HTTP requests.",
		Buckets:   DefaultBuckets,
	}, []string{"method", "status"})
)

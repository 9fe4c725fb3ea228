// Package metrics exposes Prometheus collectors on a dedicated registry so
// tests never collide on the global default.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var Registry = prometheus.NewRegistry()

var (
	HTTPRequests = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "fleetroute_http_requests_total",
		Help: "HTTP requests by method, path, and status.",
	}, []string{"method", "path", "status"})

	HTTPDuration = promauto.With(Registry).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fleetroute_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	PlansTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "fleetroute_plans_total",
		Help: "Plan requests by store and outcome.",
	}, []string{"store", "outcome"})

	SolverDuration = promauto.With(Registry).NewHistogram(prometheus.HistogramOpts{
		Name:    "fleetroute_solver_duration_seconds",
		Help:    "Wall-clock time spent in the route solver.",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 20},
	})

	SolverIterations = promauto.With(Registry).NewHistogram(prometheus.HistogramOpts{
		Name:    "fleetroute_solver_iterations",
		Help:    "Search iterations per solver call.",
		Buckets: prometheus.ExponentialBuckets(10, 4, 8),
	})

	WebhookDeliveries = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "fleetroute_webhook_deliveries_total",
		Help: "Webhook delivery attempts by outcome.",
	}, []string{"outcome"})
)

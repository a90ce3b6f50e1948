// Package telemetry holds logging setup and the Prometheus collectors
// exposed on GET /metrics.
//
// HTTP metrics are labelled with the gin route template (c.FullPath()), never
// the raw URL, so slugs and ids do not inflate label cardinality.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)
)

// Invitation lifecycle metrics.
//
// InvitationsTotal counts lifecycle transitions by event:
// created, accepted, revoked, rolled_back (email delivery failed).
// InvitationEmailFailuresTotal counts failed deliveries separately so an
// alert can fire on increase(invitation_email_failures_total[15m]) > 0.
var (
	InvitationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invitations_total",
			Help: "Invitation lifecycle events, by event and role.",
		},
		[]string{"event", "role"},
	)

	InvitationEmailFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "invitation_email_failures_total",
			Help: "Invitation emails that could not be delivered.",
		},
	)

	RateLimitedRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limited_requests_total",
			Help: "Requests rejected by the rate limiter, by route template.",
		},
		[]string{"path"},
	)
)

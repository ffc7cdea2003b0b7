// Package metrics holds Prometheus instruments that are used across the
// registrar.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_transitions_total",
			Help: "Committed registration transitions by action and resulting status.",
		}, []string{"action", "status"})

	Errors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_errors_total",
			Help: "API errors by action and envelope code.",
		}, []string{"action", "code"})

	AuthFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_auth_failures_total",
			Help: "Requests rejected by the API key gate.",
		}, []string{"action"})

	AutoRenewals = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "registry_auto_renewals_total",
			Help: "Registrations extended by the auto-renewal check.",
		})

	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_notifications_total",
			Help: "Post-commit notifications by kind (client, admin, webhook, event) and result.",
		}, []string{"kind", "result"})

	RequestSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "registry_request_seconds",
			Help:    "API request latency by action.",
			Buckets: prometheus.DefBuckets,
		}, []string{"action"})
)

func init() {
	prometheus.MustRegister(
		Transitions,
		Errors,
		AuthFailures,
		AutoRenewals,
		Notifications,
		RequestSeconds,
	)
}

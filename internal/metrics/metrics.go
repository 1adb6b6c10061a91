// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ndt_connect"

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)
)

// Business metrics
var (
	RecommendationsServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_served_total",
			Help:      "Total number of ranked provider lists returned",
		},
	)

	RecommendationCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recommendation_candidates",
			Help:      "Providers surviving the hard filters per request",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	ProviderCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_cache_lookups_total",
			Help:      "Provider directory cache lookups by result",
		},
		[]string{"result"},
	)

	FeeCalculations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fee_calculations_total",
			Help:      "Fee breakdowns computed, by outcome",
		},
		[]string{"outcome"},
	)

	WithdrawalsRequested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "withdrawals_requested_total",
			Help:      "Withdrawal requests created, by method",
		},
		[]string{"method"},
	)

	WithdrawalStatusChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "withdrawal_status_changes_total",
			Help:      "Administrative withdrawal status transitions",
		},
		[]string{"status"},
	)

	ProvidersImported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "providers_imported_total",
			Help:      "Provider rows processed by the directory import",
		},
		[]string{"result"},
	)
)

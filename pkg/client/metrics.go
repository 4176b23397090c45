package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for NetBox client operations.
var (
	netboxRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netbox_requests_total",
		Help: "Total NetBox requests by endpoint and status",
	}, []string{"endpoint", "status"})

	netboxRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "netbox_request_duration_seconds",
		Help:    "NetBox request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})

	netboxErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netbox_errors_total",
		Help: "Total NetBox transport errors by kind",
	}, []string{"kind"})

	netboxRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netbox_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	netboxRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "netbox_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"error_class"})

	netboxRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netbox_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netbox_pages_fetched_total",
		Help: "Total number of collection pages fetched",
	})

	drainsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netbox_drains_total",
		Help: "Total number of collection drains by outcome",
	}, []string{"outcome"}) // complete, truncated, failed, cycle, cancelled

	drainRecords = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "netbox_drain_records",
		Help:    "Records returned per drain",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})
)

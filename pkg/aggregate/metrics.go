package aggregate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fanOutBranchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netbox_fanout_branches_total",
		Help: "Total number of fan-out branches by outcome",
	}, []string{"outcome"}) // ok, degraded, aborted

	fanOutDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "netbox_fanout_duration_seconds",
		Help:    "Duration of one fan-out across all branches",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	resolvesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netbox_resolves_total",
		Help: "Total number of foreign-key resolutions by outcome",
	}, []string{"outcome"}) // found, absent, failed
)

package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks lookups answered from memory
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netbox_lookup_cache_hits_total",
			Help: "Total number of NetBox lookup cache hits",
		},
	)

	// CacheMisses tracks lookups that went to the server
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netbox_lookup_cache_misses_total",
			Help: "Total number of NetBox lookup cache misses",
		},
	)

	// CacheEvictions tracks entries dropped by the LRU policy
	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netbox_lookup_cache_evictions_total",
			Help: "Total number of NetBox lookup cache evictions",
		},
	)

	// CacheEntries tracks the number of memoised lookups
	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "netbox_lookup_cache_entries",
			Help: "Current number of memoised NetBox lookups",
		},
	)

	// CacheErrors tracks loader failures (never memoised)
	CacheErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netbox_lookup_cache_errors_total",
			Help: "Total number of failed NetBox lookups",
		},
	)
)

package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks read cache hits.
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "zotero_cache_hits_total",
			Help: "Total number of read cache hits",
		},
	)

	// CacheMisses tracks read cache misses.
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "zotero_cache_misses_total",
			Help: "Total number of read cache misses",
		},
	)

	// CacheEvictions tracks capacity evictions (oldest-inserted first).
	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "zotero_cache_evictions_total",
			Help: "Total number of cache entries evicted over capacity",
		},
	)

	// CacheExpirations tracks entries removed because their TTL elapsed.
	CacheExpirations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "zotero_cache_expirations_total",
			Help: "Total number of cache entries expired by TTL",
		},
	)

	// CacheEntries tracks the current number of live entries.
	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "zotero_cache_entries",
			Help: "Current number of live read cache entries",
		},
	)
)

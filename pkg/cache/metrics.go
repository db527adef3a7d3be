package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by backend (memory, redis)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_cache_hits_total",
			Help: "Total number of item cache hits",
		},
		[]string{"backend"},
	)

	// CacheMisses tracks cache misses, including expired entries
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_cache_misses_total",
			Help: "Total number of item cache misses",
		},
		[]string{"backend"},
	)

	// CacheEvictions tracks entries dropped on read because they expired
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_cache_evictions_total",
			Help: "Total number of expired item cache entries evicted on lookup",
		},
		[]string{"backend"},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_cache_errors_total",
			Help: "Total number of item cache operation errors",
		},
		[]string{"operation"}, // "load", "save", "delete"
	)
)

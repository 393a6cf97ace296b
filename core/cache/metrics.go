package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	lookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cinegraph_cache_lookups_total",
		Help: "Resolution cache lookups by result",
	}, []string{"result"})

	evictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cinegraph_cache_evictions_total",
		Help: "Entries evicted after a store ran out of quota",
	})

	writeFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cinegraph_cache_write_failures_total",
		Help: "Cache writes that were dropped",
	})
)

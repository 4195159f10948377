package discovery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MarketsDiscovered tracks the active market count per venue.
	MarketsDiscovered = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "predict_agent_discovery_markets",
		Help: "Active markets in the catalog per venue",
	}, []string{"venue"})

	// CacheServesTotal tracks lists served from the catalog cache.
	CacheServesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "predict_agent_discovery_cache_serves_total",
		Help: "Total market lists served from cache",
	}, []string{"venue"})

	// RefreshDurationSeconds tracks venue list fetch latency.
	RefreshDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "predict_agent_discovery_refresh_duration_seconds",
		Help:    "Duration of venue market list refreshes",
		Buckets: prometheus.DefBuckets,
	}, []string{"venue"})

	// RefreshErrorsTotal tracks venue list fetch failures.
	RefreshErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "predict_agent_discovery_refresh_errors_total",
		Help: "Total venue market list refresh failures",
	}, []string{"venue"})
)

package orderbook

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpdatesTotal tracks accepted book updates by venue and kind.
	UpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predict_agent_orderbook_updates_total",
			Help: "Total number of accepted orderbook updates",
		},
		[]string{"venue", "kind"},
	)

	// UpdatesDroppedTotal tracks updates and notifications that were dropped.
	UpdatesDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predict_agent_orderbook_updates_dropped_total",
			Help: "Total number of dropped orderbook updates",
		},
		[]string{"reason"},
	)

	// InvalidBooksTotal tracks books rejected by structural validation.
	InvalidBooksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predict_agent_orderbook_invalid_total",
			Help: "Total number of orderbooks rejected by validation",
		},
		[]string{"venue"},
	)

	// BooksTracked tracks the number of books in memory per venue.
	BooksTracked = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "predict_agent_orderbook_books_tracked",
		Help: "Number of orderbooks tracked in memory",
	}, []string{"venue"})

	// UpdateProcessingDuration tracks update handling latency.
	UpdateProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "predict_agent_orderbook_update_duration_seconds",
		Help:    "Orderbook update processing latency",
		Buckets: prometheus.ExponentialBuckets(0.000001, 4, 12),
	})

	// LockContentionDuration tracks time spent waiting for the store lock.
	LockContentionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "predict_agent_orderbook_lock_wait_seconds",
		Help:    "Time spent waiting to acquire the store write lock",
		Buckets: prometheus.ExponentialBuckets(0.000001, 4, 10),
	})
)

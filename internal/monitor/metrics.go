package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScansTotal counts scan passes by loop (periodic, realtime).
	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predict_agent_monitor_scans_total",
			Help: "Total number of arbitrage scan passes by loop",
		},
		[]string{"loop"},
	)

	// ScanDurationSeconds tracks scan latency by loop.
	ScanDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "predict_agent_monitor_scan_duration_seconds",
			Help:    "Duration of arbitrage scan passes",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"loop"},
	)

	// BooksLoadedTotal counts snapshot books by source (ws-cache, rest).
	BooksLoadedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predict_agent_monitor_books_loaded_total",
			Help: "Total orderbooks loaded into scan snapshots by source",
		},
		[]string{"source"},
	)

	// BookFetchErrorsTotal counts failed REST book fetches by venue.
	BookFetchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predict_agent_monitor_book_fetch_errors_total",
			Help: "Total failed REST orderbook fetches during scans",
		},
		[]string{"venue"},
	)

	// OpportunitiesSeenTotal counts every opportunity sighting by type,
	// including repeats of a persisting key.
	OpportunitiesSeenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predict_agent_monitor_opportunities_seen_total",
			Help: "Total opportunity sightings by type",
		},
		[]string{"type"},
	)

	// GateRejectionsTotal counts auto-execution gate rejections by reason.
	GateRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predict_agent_monitor_gate_rejections_total",
			Help: "Total opportunities rejected by the auto-execution gate",
		},
		[]string{"reason"},
	)

	// ExecutionsTotal counts executor handoffs by final record status.
	ExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predict_agent_monitor_executions_total",
			Help: "Total opportunity executions by record status",
		},
		[]string{"status"},
	)
)

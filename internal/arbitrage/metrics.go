package arbitrage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DetectedTotal tracks opportunities emitted per detector.
	DetectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "predict_agent_arb_opportunities_detected_total",
		Help: "Total number of opportunities detected",
	}, []string{"detector"})

	// RejectedTotal tracks candidates rejected per detector and reason.
	RejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "predict_agent_arb_opportunities_rejected_total",
		Help: "Total number of opportunity candidates rejected",
	}, []string{"detector", "reason"})

	// DetectionDurationSeconds tracks per-detector scan latency.
	DetectionDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "predict_agent_arb_detection_duration_seconds",
		Help:    "Duration of one detector scan",
		Buckets: prometheus.DefBuckets,
	}, []string{"detector"})

	// OpportunityEdgeBps tracks the edge of emitted opportunities.
	OpportunityEdgeBps = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "predict_agent_arb_opportunity_edge_bps",
		Help:    "Opportunity edge in basis points",
		Buckets: []float64{10, 25, 50, 100, 200, 500, 1000, 2000, 5000},
	})

	// OpportunitySizeUSD tracks the notional of emitted opportunities.
	OpportunitySizeUSD = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "predict_agent_arb_opportunity_size_usd",
		Help:    "Opportunity total notional in USD",
		Buckets: prometheus.ExponentialBuckets(10, 2, 10),
	})
)

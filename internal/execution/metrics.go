package execution

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersSubmittedTotal tracks submitted orders per venue, kind, and outcome.
	OrdersSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predict_agent_execution_orders_submitted_total",
			Help: "Total number of orders submitted",
		},
		[]string{"venue", "kind", "status"},
	)

	// ExecutionsTotal tracks opportunity executions per type and result.
	ExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predict_agent_execution_executions_total",
			Help: "Total number of opportunity executions",
		},
		[]string{"type", "status"},
	)

	// ExecutionDurationSeconds tracks end-to-end execution latency.
	ExecutionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "predict_agent_execution_duration_seconds",
		Help:    "Duration of one opportunity execution",
		Buckets: prometheus.DefBuckets,
	})

	// ProfitExpectedUSD accumulates the expected profit of executed
	// opportunities (hypothetical under paper execution).
	ProfitExpectedUSD = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predict_agent_execution_profit_expected_usd",
			Help: "Cumulative expected profit of executed opportunities",
		},
		[]string{"type"},
	)

	// HedgesTotal tracks hedge attempts per mode and result.
	HedgesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predict_agent_execution_hedges_total",
			Help: "Total number of fill hedges",
		},
		[]string{"mode", "status"},
	)
)

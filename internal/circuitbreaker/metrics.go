package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BreakerOpen indicates whether the error breaker is blocking execution.
	BreakerOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "predict_agent_breaker_open",
		Help: "Whether the error breaker is open (1=open, 0=closed)",
	})

	// BreakerErrorsTotal counts execution errors reported to the breaker.
	BreakerErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predict_agent_breaker_errors_total",
		Help: "Total execution errors recorded by the error breaker",
	})

	// BreakerTripsTotal counts how many times the error breaker tripped open.
	BreakerTripsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predict_agent_breaker_trips_total",
		Help: "Total number of times the error breaker tripped open",
	})

	// BalanceEnabled indicates whether the balance breaker allows live orders.
	BalanceEnabled = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "predict_agent_breaker_balance_enabled",
		Help: "Whether the balance breaker allows live orders (1=enabled, 0=disabled)",
	})

	// BalanceUSDC tracks the last checked funding-wallet balance.
	BalanceUSDC = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "predict_agent_breaker_balance_usdc",
		Help: "Last checked USDC balance in the funding wallet",
	})

	// BalanceDisableThreshold tracks the threshold below which live orders stop.
	BalanceDisableThreshold = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "predict_agent_breaker_balance_disable_threshold_usdc",
		Help: "USDC balance threshold for disabling live orders",
	})

	// BalanceEnableThreshold tracks the threshold for re-enabling live orders.
	BalanceEnableThreshold = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "predict_agent_breaker_balance_enable_threshold_usdc",
		Help: "USDC balance threshold for re-enabling live orders",
	})

	// BalanceAvgTradeSize tracks the rolling average trade size.
	BalanceAvgTradeSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "predict_agent_breaker_balance_avg_trade_size_usdc",
		Help: "Rolling average trade size used for threshold calculation",
	})

	// BalanceStateChanges counts balance breaker state transitions.
	BalanceStateChanges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predict_agent_breaker_balance_state_changes_total",
		Help: "Total number of balance breaker state changes",
	})
)

package wallet

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MATICBalance tracks the MATIC balance used for gas.
	MATICBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "predict_agent_wallet_matic_balance",
		Help: "Current MATIC balance in the funding wallet (native units)",
	})

	// USDCBalance tracks the USDC balance available for trading.
	USDCBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "predict_agent_wallet_usdc_balance",
		Help: "Current USDC balance in the funding wallet (USD)",
	})

	// USDCAllowance tracks the allowance approved to the CTF exchange.
	USDCAllowance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "predict_agent_wallet_usdc_allowance",
		Help: "USDC allowance approved to the CTF exchange (USD)",
	})

	// ActivePositions tracks the number of open positions.
	ActivePositions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "predict_agent_wallet_active_positions",
		Help: "Number of open positions",
	})

	// TotalPositionValue tracks the sum of current position values.
	TotalPositionValue = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "predict_agent_wallet_total_position_value",
		Help: "Sum of all position current values (USD)",
	})

	// TotalPositionCost tracks the sum of position cost bases.
	TotalPositionCost = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "predict_agent_wallet_total_position_cost",
		Help: "Sum of all position initial costs (USD)",
	})

	// UnrealizedPnL tracks total unrealized profit and loss.
	UnrealizedPnL = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "predict_agent_wallet_unrealized_pnl",
		Help: "Total unrealized P&L from positions (USD)",
	})

	// UnrealizedPnLPercent tracks unrealized P&L as a percentage of cost.
	UnrealizedPnLPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "predict_agent_wallet_unrealized_pnl_percent",
		Help: "Total unrealized P&L as a percentage of cost",
	})

	// PortfolioValue tracks USDC plus position value.
	PortfolioValue = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "predict_agent_wallet_portfolio_value",
		Help: "Total portfolio value: USDC + positions (USD)",
	})

	// UpdateErrorsTotal counts failed polling cycles.
	UpdateErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predict_agent_wallet_update_errors_total",
		Help: "Total number of failed funding-wallet update attempts",
	})

	// UpdateDuration tracks the time taken to fetch wallet data.
	UpdateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "predict_agent_wallet_update_duration_seconds",
		Help:    "Time taken to fetch funding-wallet data",
		Buckets: prometheus.DefBuckets,
	})

	// LastUpdateTimestamp tracks the Unix time of the last successful update.
	LastUpdateTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "predict_agent_wallet_last_update_timestamp",
		Help: "Unix timestamp of the last successful wallet update",
	})
)

package maker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QuotesPlacedTotal tracks placed quotes per side.
	QuotesPlacedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predict_agent_maker_quotes_placed_total",
			Help: "Total number of maker quotes placed",
		},
		[]string{"side"},
	)

	// CancelsTotal tracks canceled quotes per reason.
	CancelsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predict_agent_maker_cancels_total",
			Help: "Total number of maker quote cancels",
		},
		[]string{"reason"},
	)

	// FillsDetectedTotal tracks detected net-share changes per token.
	FillsDetectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predict_agent_maker_fills_detected_total",
			Help: "Total number of detected fills",
		},
		[]string{"token"},
	)

	// ProfileGauge exposes the active regime per token (0 calm, 1 normal,
	// 2 volatile).
	ProfileGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "predict_agent_maker_profile",
			Help: "Active volatility profile per token",
		},
		[]string{"token"},
	)

	// SessionPnLUSD exposes the session's running profit and loss.
	SessionPnLUSD = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "predict_agent_maker_session_pnl_usd",
		Help: "Session profit and loss in USD",
	})
)

package websocket

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveConnections tracks active WebSocket connections per venue.
	ActiveConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "predict_agent_ws_active_connections",
		Help: "Number of active WebSocket connections",
	}, []string{"venue"})

	// ReconnectAttemptsTotal tracks reconnection attempts.
	ReconnectAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "predict_agent_ws_reconnect_attempts_total",
		Help: "Total number of WebSocket reconnection attempts",
	}, []string{"venue"})

	// ReconnectFailuresTotal tracks reconnection failures.
	ReconnectFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "predict_agent_ws_reconnect_failures_total",
		Help: "Total number of WebSocket reconnection failures",
	}, []string{"venue"})

	// FramesReceivedTotal tracks raw frames received.
	FramesReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "predict_agent_ws_frames_received_total",
		Help: "Total number of WebSocket frames received",
	}, []string{"venue"})

	// FramesDroppedTotal tracks frames dropped due to a full delivery channel.
	FramesDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "predict_agent_ws_frames_dropped_total",
		Help: "Total number of WebSocket frames dropped",
	}, []string{"venue", "reason"})

	// SubscriptionCount tracks active topic subscriptions.
	SubscriptionCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "predict_agent_ws_subscription_count",
		Help: "Number of active topic subscriptions",
	}, []string{"venue"})

	// ConnectionDuration tracks WebSocket connection lifetime.
	ConnectionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "predict_agent_ws_connection_duration_seconds",
		Help:    "Duration of WebSocket connections before disconnect",
		Buckets: []float64{60, 300, 600, 1800, 3600, 7200, 14400, 28800, 43200, 86400},
	}, []string{"venue"})

	// StaleDisconnectsTotal tracks forced reconnects after frame silence.
	StaleDisconnectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "predict_agent_ws_stale_disconnects_total",
		Help: "Total number of connections closed for staleness",
	}, []string{"venue"})

	// PoolActiveConnections tracks connections in a sharded pool.
	PoolActiveConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "predict_agent_ws_pool_active_connections",
		Help: "Number of active connections in the WebSocket pool",
	}, []string{"venue"})

	// PoolSubscriptionDistribution tracks subscriptions per pool connection.
	PoolSubscriptionDistribution = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "predict_agent_ws_pool_subscription_distribution",
		Help:    "Distribution of subscriptions across pool connections",
		Buckets: prometheus.LinearBuckets(0, 100, 10),
	}, []string{"venue"})
)

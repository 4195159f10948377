package alert

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AlertsSentTotal counts webhook notifications delivered.
	AlertsSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predict_agent_alerts_sent_total",
		Help: "Total webhook alerts delivered",
	})

	// AlertsThrottledTotal counts notifications suppressed by the throttle.
	AlertsThrottledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predict_agent_alerts_throttled_total",
		Help: "Total webhook alerts suppressed by the per-key throttle",
	})

	// AlertErrorsTotal counts failed webhook deliveries.
	AlertErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predict_agent_alerts_errors_total",
		Help: "Total webhook alert delivery failures",
	})
)

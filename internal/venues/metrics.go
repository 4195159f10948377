package venues

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks REST requests by venue, endpoint, and outcome.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predict_agent_venue_requests_total",
			Help: "Total number of venue REST requests",
		},
		[]string{"venue", "endpoint", "status"},
	)

	// RequestDuration tracks REST request latency.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "predict_agent_venue_request_duration_seconds",
			Help:    "Venue REST request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"venue", "endpoint"},
	)

	// DecodeErrorsTotal tracks stream payloads that failed to normalize.
	DecodeErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predict_agent_venue_decode_errors_total",
			Help: "Total number of stream payloads dropped as malformed",
		},
		[]string{"venue"},
	)
)

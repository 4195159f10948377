package arbitrage

import (
	"testing"
)

func TestMetricsRegistration(t *testing.T) {
	if DetectedTotal == nil {
		t.Error("DetectedTotal not registered")
	}
	if RejectedTotal == nil {
		t.Error("RejectedTotal not registered")
	}
	if DetectionDurationSeconds == nil {
		t.Error("DetectionDurationSeconds not registered")
	}
	if OpportunityEdgeBps == nil {
		t.Error("OpportunityEdgeBps not registered")
	}
	if OpportunitySizeUSD == nil {
		t.Error("OpportunitySizeUSD not registered")
	}
}

func TestMetricsLabels(t *testing.T) {
	detectors := []string{"intra_venue", "cross_venue", "multi_outcome", "value_mismatch", "dependency"}
	for _, d := range detectors {
		DetectedTotal.WithLabelValues(d).Inc()
		DetectionDurationSeconds.WithLabelValues(d).Observe(0.001)
	}

	reasons := []string{"vwap_deviation", "below_min_profit", "notional_floor", "solver_error"}
	for _, reason := range reasons {
		RejectedTotal.WithLabelValues("intra_venue", reason).Inc()
	}

	OpportunityEdgeBps.Observe(300)
	OpportunitySizeUSD.Observe(97)
}

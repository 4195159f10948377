package arbitrage

import (
	"time"

	"github.com/mselser95/predict-agent/pkg/types"
)

// ValueMismatchConfig holds the single-token fair-value detector knobs.
type ValueMismatchConfig struct {
	EdgeThreshold float64
	ConfidenceMin float64
	TradingCost   float64 // round-trip cost as a fraction of price
	LiquidityRef  float64 // 24h liquidity treated as full confidence
	VolumeRef     float64 // 24h volume treated as full confidence
	TTL           time.Duration
}

// ValueMismatch flags tokens whose micro-price fair estimate strays from the
// mid by more than the trading cost plus the configured edge.
type ValueMismatch struct {
	cfg ValueMismatchConfig
}

// NewValueMismatch creates the fair-value detector.
func NewValueMismatch(cfg ValueMismatchConfig) *ValueMismatch {
	if cfg.LiquidityRef <= 0 {
		cfg.LiquidityRef = 10_000
	}
	if cfg.VolumeRef <= 0 {
		cfg.VolumeRef = 10_000
	}
	return &ValueMismatch{cfg: cfg}
}

// Name identifies the detector.
func (d *ValueMismatch) Name() string { return "value_mismatch" }

// Scan evaluates every Predict token independently.
func (d *ValueMismatch) Scan(snap *Snapshot) []Opportunity {
	start := time.Now()
	defer func() {
		DetectionDurationSeconds.WithLabelValues(d.Name()).Observe(time.Since(start).Seconds())
	}()

	var opps []Opportunity
	for i := range snap.Markets {
		m := &snap.Markets[i]
		if m.Venue != types.VenuePredict {
			continue
		}
		book := snap.Book(types.VenuePredict, m.TokenID)
		if book == nil {
			continue
		}
		if opp, ok := d.eval(m, book); ok {
			opps = append(opps, opp)
		}
	}

	DetectedTotal.WithLabelValues(d.Name()).Add(float64(len(opps)))
	return sortByEdge(opps)
}

func (d *ValueMismatch) eval(m *types.Market, book *types.Orderbook) (Opportunity, bool) {
	mid, ok := book.MidPrice()
	if !ok || mid <= 0 {
		return Opportunity{}, false
	}
	micro, ok := book.MicroPrice()
	if !ok {
		return Opportunity{}, false
	}

	fair := clipTail(micro)
	confidence := d.confidence(m, book)
	if confidence < d.cfg.ConfidenceMin {
		RejectedTotal.WithLabelValues(d.Name(), "low_confidence").Inc()
		return Opportunity{}, false
	}

	dev := (fair - mid) / mid
	abs := dev
	if abs < 0 {
		abs = -abs
	}
	edge := abs - d.cfg.TradingCost
	if edge < d.cfg.EdgeThreshold {
		RejectedTotal.WithLabelValues(d.Name(), "below_edge").Inc()
		return Opportunity{}, false
	}

	side := types.SideBuy
	if dev < 0 {
		side = types.SideSell
	}

	opp := newOpportunity(TypeValueMismatch, m.TokenID, d.cfg.TTL)
	opp.TokenID = m.TokenID
	opp.Side = side
	opp.FairPrice = fair
	opp.Edge = edge
	opp.Confidence = confidence
	opp.RiskLevel = RiskMed // single-leg directional exposure
	return opp, true
}

// clipTail pulls fair estimates in the tails halfway toward 0.1/0.9: the
// micro-price is least informative where books are one-sided.
func clipTail(fair float64) float64 {
	switch {
	case fair < 0.1:
		return (fair + 0.1) / 2
	case fair > 0.9:
		return (fair + 0.9) / 2
	default:
		return fair
	}
}

// confidence averages four [0,1] heuristics: level count, spread tightness,
// 24h liquidity, 24h volume.
func (d *ValueMismatch) confidence(m *types.Market, book *types.Orderbook) float64 {
	levels := clamp01(float64(len(book.Bids)+len(book.Asks)) / 10)

	spreadScore := 0.0
	if spread, ok := book.Spread(); ok {
		spreadScore = clamp01(1 - spread/0.05)
	}

	liquidity := clamp01(m.Liquidity24h / d.cfg.LiquidityRef)
	volume := clamp01(m.Volume24h / d.cfg.VolumeRef)

	return (levels + spreadScore + liquidity + volume) / 4
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

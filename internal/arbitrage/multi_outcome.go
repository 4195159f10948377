package arbitrage

import (
	"time"

	"github.com/mselser95/predict-agent/internal/vwap"
	"github.com/mselser95/predict-agent/pkg/types"
)

// MultiOutcomeConfig holds the N-outcome bundle detector knobs.
type MultiOutcomeConfig struct {
	MinOutcomes         int
	MinProfit           float64
	MaxShares           float64
	DepthUsage          float64
	MaxVwapDeviationBps float64
	MaxVwapLevels       int
	MinNotionalUsd      float64
	MinProfitUsd        float64
	SlippageBps         float64
	TTL                 time.Duration
}

// MultiOutcome detects condition groups whose outcome asks sum to less than
// $1 per share: buying every outcome locks in the difference.
type MultiOutcome struct {
	cfg MultiOutcomeConfig
}

// NewMultiOutcome creates the bundle detector.
func NewMultiOutcome(cfg MultiOutcomeConfig) *MultiOutcome {
	if cfg.MinOutcomes < 2 {
		cfg.MinOutcomes = 2
	}
	return &MultiOutcome{cfg: cfg}
}

// Name identifies the detector.
func (d *MultiOutcome) Name() string { return "multi_outcome" }

// Scan groups Predict markets by condition id and evaluates each group.
func (d *MultiOutcome) Scan(snap *Snapshot) []Opportunity {
	start := time.Now()
	defer func() {
		DetectionDurationSeconds.WithLabelValues(d.Name()).Observe(time.Since(start).Seconds())
	}()

	groups := make(map[string][]*types.Market)
	var order []string
	for i := range snap.Markets {
		m := &snap.Markets[i]
		if m.Venue != types.VenuePredict || m.ConditionID == "" || m.TokenID == "" {
			continue
		}
		if _, seen := groups[m.ConditionID]; !seen {
			order = append(order, m.ConditionID)
		}
		groups[m.ConditionID] = append(groups[m.ConditionID], m)
	}

	var opps []Opportunity
	for _, conditionID := range order {
		members := groups[conditionID]
		if len(members) < d.cfg.MinOutcomes {
			continue
		}
		if opp, ok := d.eval(conditionID, members, snap); ok {
			opps = append(opps, opp)
		}
	}

	DetectedTotal.WithLabelValues(d.Name()).Add(float64(len(opps)))
	return sortByEdge(opps)
}

func (d *MultiOutcome) eval(conditionID string, members []*types.Market, snap *Snapshot) (Opportunity, bool) {
	books := make([]*types.Orderbook, len(members))
	touches := make([]float64, len(members))
	minDepth := 0.0

	for i, m := range members {
		book := snap.Book(types.VenuePredict, m.TokenID)
		if book == nil {
			RejectedTotal.WithLabelValues(d.Name(), "missing_book").Inc()
			return Opportunity{}, false
		}
		ask, ok := book.BestAsk()
		if !ok {
			RejectedTotal.WithLabelValues(d.Name(), "empty_side").Inc()
			return Opportunity{}, false
		}
		books[i] = book
		touches[i] = ask.Price

		depth := vwap.SumDepth(book.Asks)
		if i == 0 || depth < minDepth {
			minDepth = depth
		}
	}

	startSize := d.cfg.DepthUsage * minDepth
	if startSize > d.cfg.MaxShares {
		startSize = d.cfg.MaxShares
	}

	var bestEsts []*vwap.Estimate
	size, edge, found := searchSize(startSize, func(n float64) (float64, bool) {
		ests := make([]*vwap.Estimate, len(members))
		sumAllIn := 0.0
		notional := 0.0
		for i, m := range members {
			est := vwap.EstimateBuy(books[i].Asks, n, fees(m), d.cfg.SlippageBps)
			if est == nil {
				return 0, false
			}
			if !d.withinDeviation(est, touches[i]) || !d.withinLevels(est) {
				return 0, false
			}
			ests[i] = est
			sumAllIn += est.TotalAllIn
			notional += est.TotalNotional
		}

		e := 1 - sumAllIn/n
		if e < d.cfg.MinProfit {
			return 0, false
		}
		if notional < d.cfg.MinNotionalUsd || e*n < d.cfg.MinProfitUsd {
			return 0, false
		}

		bestEsts = ests
		return e, true
	})
	if !found {
		RejectedTotal.WithLabelValues(d.Name(), "no_viable_size").Inc()
		return Opportunity{}, false
	}

	opp := newOpportunity(TypeMultiOutcome, conditionID, d.cfg.TTL)
	opp.GroupID = conditionID
	opp.Action = ActionBuyAll
	opp.Size = size
	opp.Edge = edge
	opp.Confidence = 1
	opp.RiskLevel = riskForEdge(edge)
	opp.Legs = make([]Leg, len(members))
	for i, m := range members {
		opp.Legs[i] = Leg{
			Venue:   types.VenuePredict,
			TokenID: m.TokenID,
			Outcome: m.Outcome,
			Side:    types.SideBuy,
			Shares:  size,
			Price:   bestEsts[i].AvgPrice,
		}
	}
	return opp, true
}

func (d *MultiOutcome) withinDeviation(est *vwap.Estimate, touch float64) bool {
	if touch <= 0 {
		return false
	}
	dev := est.AvgPrice/touch - 1
	if dev < 0 {
		dev = -dev
	}
	return d.cfg.MaxVwapDeviationBps <= 0 || dev*10000 <= d.cfg.MaxVwapDeviationBps
}

func (d *MultiOutcome) withinLevels(est *vwap.Estimate) bool {
	return d.cfg.MaxVwapLevels <= 0 || est.LevelsUsed <= d.cfg.MaxVwapLevels
}

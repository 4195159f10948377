package arbitrage

import (
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/predict-agent/internal/vwap"
	"github.com/mselser95/predict-agent/pkg/types"
)

// IntraVenueConfig holds the YES/NO parity detector knobs.
type IntraVenueConfig struct {
	MinProfit           float64 // per-share edge floor
	MaxShares           float64
	DepthUsage          float64 // fraction of the thinner side's depth to start from
	MaxVwapDeviationBps float64
	MaxVwapLevels       int
	MinNotionalUsd      float64
	MinProfitUsd        float64
	MinDepthUsd         float64
	RecheckDeviationBps float64
	AllowShorting       bool
	SlippageBps         float64
	TTL                 time.Duration
	Logger              *zap.Logger
}

// IntraVenue detects YES+NO parity breaks on the primary venue: buy both
// sides under $1, or sell both sides over $1 when shorting is allowed.
type IntraVenue struct {
	cfg IntraVenueConfig
}

// NewIntraVenue creates the parity detector.
func NewIntraVenue(cfg IntraVenueConfig) *IntraVenue {
	return &IntraVenue{cfg: cfg}
}

// Name identifies the detector.
func (d *IntraVenue) Name() string { return "intra_venue" }

// Scan pairs the Predict markets and evaluates both actions per pair.
func (d *IntraVenue) Scan(snap *Snapshot) []Opportunity {
	start := time.Now()
	defer func() {
		DetectionDurationSeconds.WithLabelValues(d.Name()).Observe(time.Since(start).Seconds())
	}()

	var opps []Opportunity
	for _, pair := range pairYesNo(snap.Markets, types.VenuePredict) {
		yesBook := snap.Book(types.VenuePredict, pair.yes.TokenID)
		noBook := snap.Book(types.VenuePredict, pair.no.TokenID)
		if yesBook == nil || noBook == nil {
			RejectedTotal.WithLabelValues(d.Name(), "missing_book").Inc()
			continue
		}

		if opp, ok := d.evalBuyBoth(pair, yesBook, noBook); ok {
			opps = append(opps, opp)
		}
		if d.cfg.AllowShorting {
			if opp, ok := d.evalSellBoth(pair, yesBook, noBook); ok {
				opps = append(opps, opp)
			}
		}
	}

	DetectedTotal.WithLabelValues(d.Name()).Add(float64(len(opps)))
	return sortByEdge(opps)
}

// fees builds the VWAP fee parameters for a market.
func fees(m *types.Market) vwap.FeeParams {
	return vwap.FeeParams{FeeBps: m.FeeRateBps}
}

func (d *IntraVenue) evalBuyBoth(pair yesNoPair, yesBook, noBook *types.Orderbook) (Opportunity, bool) {
	yesAsk, okY := yesBook.BestAsk()
	noAsk, okN := noBook.BestAsk()
	if !okY || !okN {
		RejectedTotal.WithLabelValues(d.Name(), "empty_side").Inc()
		return Opportunity{}, false
	}

	if !d.depthFloor(yesBook.Asks, yesAsk.Price) || !d.depthFloor(noBook.Asks, noAsk.Price) {
		RejectedTotal.WithLabelValues(d.Name(), "below_min_depth").Inc()
		return Opportunity{}, false
	}

	yesFees, noFees := fees(pair.yes), fees(pair.no)
	var bestYes, bestNo *vwap.Estimate

	startSize := d.startSize(vwap.SumDepth(yesBook.Asks), vwap.SumDepth(noBook.Asks))
	size, edge, found := searchSize(startSize, func(n float64) (float64, bool) {
		yes := vwap.EstimateBuy(yesBook.Asks, n, yesFees, d.cfg.SlippageBps)
		no := vwap.EstimateBuy(noBook.Asks, n, noFees, d.cfg.SlippageBps)
		if yes == nil || no == nil {
			return 0, false
		}
		if !d.withinDeviation(yes, yesAsk.Price) || !d.withinDeviation(no, noAsk.Price) {
			return 0, false
		}
		if !d.withinLevels(yes) || !d.withinLevels(no) {
			return 0, false
		}

		perShare := (yes.TotalAllIn + no.TotalAllIn) / n
		e := 1 - perShare
		if e < d.cfg.MinProfit {
			return 0, false
		}
		if yes.TotalNotional+no.TotalNotional < d.cfg.MinNotionalUsd || e*n < d.cfg.MinProfitUsd {
			return 0, false
		}

		bestYes, bestNo = yes, no
		return e, true
	})
	if !found {
		RejectedTotal.WithLabelValues(d.Name(), "no_viable_size").Inc()
		return Opportunity{}, false
	}

	opp := newOpportunity(TypeIntraVenue, pair.group, d.cfg.TTL)
	opp.MarketID = pair.yes.MarketID
	opp.YesTokenID = pair.yes.TokenID
	opp.NoTokenID = pair.no.TokenID
	opp.Action = ActionBuyBoth
	opp.Size = size
	opp.Edge = edge
	opp.PerShareCost = 1 - edge
	opp.Confidence = 1
	opp.RiskLevel = riskForEdge(edge)
	opp.Legs = []Leg{
		{Venue: types.VenuePredict, TokenID: pair.yes.TokenID, Outcome: types.OutcomeYes, Side: types.SideBuy, Shares: size, Price: bestYes.AvgPrice},
		{Venue: types.VenuePredict, TokenID: pair.no.TokenID, Outcome: types.OutcomeNo, Side: types.SideBuy, Shares: size, Price: bestNo.AvgPrice},
	}
	return opp, true
}

func (d *IntraVenue) evalSellBoth(pair yesNoPair, yesBook, noBook *types.Orderbook) (Opportunity, bool) {
	yesBid, okY := yesBook.BestBid()
	noBid, okN := noBook.BestBid()
	if !okY || !okN {
		return Opportunity{}, false
	}

	if !d.depthFloor(yesBook.Bids, yesBid.Price) || !d.depthFloor(noBook.Bids, noBid.Price) {
		RejectedTotal.WithLabelValues(d.Name(), "below_min_depth").Inc()
		return Opportunity{}, false
	}

	yesFees, noFees := fees(pair.yes), fees(pair.no)
	var bestYes, bestNo *vwap.Estimate

	startSize := d.startSize(vwap.SumDepth(yesBook.Bids), vwap.SumDepth(noBook.Bids))
	size, edge, found := searchSize(startSize, func(n float64) (float64, bool) {
		yes := vwap.EstimateSell(yesBook.Bids, n, yesFees, d.cfg.SlippageBps)
		no := vwap.EstimateSell(noBook.Bids, n, noFees, d.cfg.SlippageBps)
		if yes == nil || no == nil {
			return 0, false
		}
		if !d.withinDeviation(yes, yesBid.Price) || !d.withinDeviation(no, noBid.Price) {
			return 0, false
		}
		if !d.withinLevels(yes) || !d.withinLevels(no) {
			return 0, false
		}

		perShare := (yes.TotalAllIn + no.TotalAllIn) / n
		e := perShare - 1
		if e < d.cfg.MinProfit {
			return 0, false
		}
		if yes.TotalNotional+no.TotalNotional < d.cfg.MinNotionalUsd || e*n < d.cfg.MinProfitUsd {
			return 0, false
		}

		bestYes, bestNo = yes, no
		return e, true
	})
	if !found {
		return Opportunity{}, false
	}

	opp := newOpportunity(TypeIntraVenue, pair.group, d.cfg.TTL)
	opp.MarketID = pair.yes.MarketID
	opp.YesTokenID = pair.yes.TokenID
	opp.NoTokenID = pair.no.TokenID
	opp.Action = ActionSellBoth
	opp.Size = size
	opp.Edge = edge
	opp.PerShareCost = 1 + edge
	opp.Confidence = 1
	opp.RiskLevel = riskForEdge(edge)
	opp.Legs = []Leg{
		{Venue: types.VenuePredict, TokenID: pair.yes.TokenID, Outcome: types.OutcomeYes, Side: types.SideSell, Shares: size, Price: bestYes.AvgPrice},
		{Venue: types.VenuePredict, TokenID: pair.no.TokenID, Outcome: types.OutcomeNo, Side: types.SideSell, Shares: size, Price: bestNo.AvgPrice},
	}
	return opp, true
}

// Verify recomputes the opportunity against fresh books. Depth that moved the
// per-share cost by more than RecheckDeviationBps drops it outright.
func (d *IntraVenue) Verify(opp *Opportunity, snap *Snapshot) bool {
	if opp.Type != TypeIntraVenue {
		return false
	}
	yesBook := snap.Book(types.VenuePredict, opp.YesTokenID)
	noBook := snap.Book(types.VenuePredict, opp.NoTokenID)
	if yesBook == nil || noBook == nil {
		return false
	}

	yesM := snap.Market(types.VenuePredict, opp.YesTokenID)
	noM := snap.Market(types.VenuePredict, opp.NoTokenID)
	var yesFees, noFees vwap.FeeParams
	if yesM != nil {
		yesFees = fees(yesM)
	}
	if noM != nil {
		noFees = fees(noM)
	}

	var yes, no *vwap.Estimate
	if opp.Action == ActionSellBoth {
		yes = vwap.EstimateSell(yesBook.Bids, opp.Size, yesFees, d.cfg.SlippageBps)
		no = vwap.EstimateSell(noBook.Bids, opp.Size, noFees, d.cfg.SlippageBps)
	} else {
		yes = vwap.EstimateBuy(yesBook.Asks, opp.Size, yesFees, d.cfg.SlippageBps)
		no = vwap.EstimateBuy(noBook.Asks, opp.Size, noFees, d.cfg.SlippageBps)
	}
	if yes == nil || no == nil {
		RejectedTotal.WithLabelValues(d.Name(), "recheck_depth_gone").Inc()
		return false
	}

	perShare := (yes.TotalAllIn + no.TotalAllIn) / opp.Size
	moved := perShare/opp.PerShareCost - 1
	if moved < 0 {
		moved = -moved
	}
	if moved*10000 > d.cfg.RecheckDeviationBps {
		RejectedTotal.WithLabelValues(d.Name(), "recheck_deviation").Inc()
		return false
	}

	var edge float64
	if opp.Action == ActionSellBoth {
		edge = perShare - 1
	} else {
		edge = 1 - perShare
	}
	return edge >= d.cfg.MinProfit
}

func (d *IntraVenue) startSize(depthA, depthB float64) float64 {
	minDepth := depthA
	if depthB < minDepth {
		minDepth = depthB
	}
	start := d.cfg.DepthUsage * minDepth
	if start > d.cfg.MaxShares {
		start = d.cfg.MaxShares
	}
	return start
}

func (d *IntraVenue) withinDeviation(est *vwap.Estimate, touch float64) bool {
	if touch <= 0 {
		return false
	}
	dev := est.AvgPrice/touch - 1
	if dev < 0 {
		dev = -dev
	}
	return dev*10000 <= d.cfg.MaxVwapDeviationBps
}

func (d *IntraVenue) withinLevels(est *vwap.Estimate) bool {
	return d.cfg.MaxVwapLevels <= 0 || est.LevelsUsed <= d.cfg.MaxVwapLevels
}

func (d *IntraVenue) depthFloor(levels []types.Level, touch float64) bool {
	return vwap.SumDepth(levels)*touch >= d.cfg.MinDepthUsd
}

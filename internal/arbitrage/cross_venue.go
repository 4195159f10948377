package arbitrage

import (
	"time"

	"github.com/mselser95/predict-agent/internal/mapping"
	"github.com/mselser95/predict-agent/internal/vwap"
	"github.com/mselser95/predict-agent/pkg/types"
)

// PeerResolver finds peer-venue token pairs for a Predict market. The mapping
// store satisfies this.
type PeerResolver interface {
	Resolve(m *types.Market, peers []types.Market) []mapping.Match
}

// CrossVenueConfig holds the cross-venue pair detector knobs.
type CrossVenueConfig struct {
	MinProfit           float64
	MinSimilarity       float64
	TransferCost        float64 // per-share bridge/settlement cost, charged once
	SlippageBps         float64
	MaxShares           float64
	DepthUsage          float64
	MaxVwapLevels       int
	MinNotionalUsd      float64
	MinProfitUsd        float64
	AllowSellBoth       bool
	TTL                 time.Duration
}

// CrossVenue detects parity breaks between a Predict market and its peer on
// another venue: the complementary outcomes are bought (or sold) across the
// two books.
type CrossVenue struct {
	cfg      CrossVenueConfig
	resolver PeerResolver
}

// NewCrossVenue creates the cross-venue detector.
func NewCrossVenue(cfg CrossVenueConfig, resolver PeerResolver) *CrossVenue {
	return &CrossVenue{cfg: cfg, resolver: resolver}
}

// Name identifies the detector.
func (d *CrossVenue) Name() string { return "cross_venue" }

// assembly is one directed way to pair the two venues' books.
type assembly struct {
	action Action
	legs   [2]legSpec
}

type legSpec struct {
	venue   types.Venue
	tokenID string
	outcome string
	side    types.Side
}

// Scan resolves each Predict pair to its peers and evaluates the directed
// assemblies, keeping the best one per (pair, venue).
func (d *CrossVenue) Scan(snap *Snapshot) []Opportunity {
	start := time.Now()
	defer func() {
		DetectionDurationSeconds.WithLabelValues(d.Name()).Observe(time.Since(start).Seconds())
	}()

	var peers []types.Market
	for i := range snap.Markets {
		if snap.Markets[i].Venue != types.VenuePredict {
			peers = append(peers, snap.Markets[i])
		}
	}

	var opps []Opportunity
	for _, pair := range pairYesNo(snap.Markets, types.VenuePredict) {
		for _, match := range d.resolver.Resolve(pair.yes, peers) {
			if match.Similarity < d.cfg.MinSimilarity {
				RejectedTotal.WithLabelValues(d.Name(), "below_similarity").Inc()
				continue
			}
			if opp, ok := d.evalPair(pair, match, snap); ok {
				opps = append(opps, opp)
			}
		}
	}

	DetectedTotal.WithLabelValues(d.Name()).Add(float64(len(opps)))
	return sortByEdge(opps)
}

func (d *CrossVenue) evalPair(pair yesNoPair, match mapping.Match, snap *Snapshot) (Opportunity, bool) {
	assemblies := []assembly{
		{ActionBuyBoth, [2]legSpec{
			{types.VenuePredict, pair.yes.TokenID, types.OutcomeYes, types.SideBuy},
			{match.Venue, match.NoTokenID, types.OutcomeNo, types.SideBuy},
		}},
		{ActionBuyBoth, [2]legSpec{
			{match.Venue, match.YesTokenID, types.OutcomeYes, types.SideBuy},
			{types.VenuePredict, pair.no.TokenID, types.OutcomeNo, types.SideBuy},
		}},
	}
	if d.cfg.AllowSellBoth {
		assemblies = append(assemblies,
			assembly{ActionSellBoth, [2]legSpec{
				{types.VenuePredict, pair.yes.TokenID, types.OutcomeYes, types.SideSell},
				{match.Venue, match.NoTokenID, types.OutcomeNo, types.SideSell},
			}},
			assembly{ActionSellBoth, [2]legSpec{
				{match.Venue, match.YesTokenID, types.OutcomeYes, types.SideSell},
				{types.VenuePredict, pair.no.TokenID, types.OutcomeNo, types.SideSell},
			}},
		)
	}

	var best Opportunity
	found := false
	for _, asm := range assemblies {
		if opp, ok := d.evalAssembly(pair, match, asm, snap); ok {
			if !found || opp.Edge > best.Edge {
				best = opp
				found = true
			}
		}
	}
	return best, found
}

func (d *CrossVenue) evalAssembly(pair yesNoPair, match mapping.Match, asm assembly, snap *Snapshot) (Opportunity, bool) {
	var (
		sides   [2][]types.Level
		touches [2]float64
		params  [2]vwap.FeeParams
	)

	for i, spec := range asm.legs {
		book := snap.Book(spec.venue, spec.tokenID)
		if book == nil {
			RejectedTotal.WithLabelValues(d.Name(), "missing_book").Inc()
			return Opportunity{}, false
		}

		if spec.side == types.SideBuy {
			ask, ok := book.BestAsk()
			if !ok {
				return Opportunity{}, false
			}
			sides[i], touches[i] = book.Asks, ask.Price
		} else {
			bid, ok := book.BestBid()
			if !ok {
				return Opportunity{}, false
			}
			sides[i], touches[i] = book.Bids, bid.Price
		}

		if m := snap.Market(spec.venue, spec.tokenID); m != nil {
			params[i] = fees(m)
		}
	}

	minDepth := vwap.SumDepth(sides[0])
	if depth := vwap.SumDepth(sides[1]); depth < minDepth {
		minDepth = depth
	}
	startSize := d.cfg.DepthUsage * minDepth
	if startSize > d.cfg.MaxShares {
		startSize = d.cfg.MaxShares
	}

	var bestEsts [2]*vwap.Estimate
	size, edge, found := searchSize(startSize, func(n float64) (float64, bool) {
		var ests [2]*vwap.Estimate
		total := 0.0
		notional := 0.0
		for i := range asm.legs {
			var est *vwap.Estimate
			if asm.legs[i].side == types.SideBuy {
				est = vwap.EstimateBuy(sides[i], n, params[i], d.cfg.SlippageBps)
			} else {
				est = vwap.EstimateSell(sides[i], n, params[i], d.cfg.SlippageBps)
			}
			if est == nil || !d.withinLevels(est) {
				return 0, false
			}
			ests[i] = est
			total += est.TotalAllIn
			notional += est.TotalNotional
		}

		var e float64
		if asm.action == ActionSellBoth {
			e = total/n - 1 - d.cfg.TransferCost
		} else {
			e = 1 - total/n - d.cfg.TransferCost
		}
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
		return Opportunity{}, false
	}

	pairID := pair.group + "|" + string(match.Venue)
	opp := newOpportunity(TypeCrossVenue, pairID, d.cfg.TTL)
	opp.PairID = pairID
	opp.MarketID = pair.yes.MarketID
	opp.Action = asm.action
	opp.Size = size
	opp.Edge = edge
	opp.Similarity = match.Similarity
	opp.Confidence = match.Similarity
	opp.RiskLevel = riskForEdge(edge)
	if match.Source == "similarity" {
		opp.RiskLevel = RiskMed // textual matches can pair different questions
	}
	opp.Legs = []Leg{
		{Venue: asm.legs[0].venue, TokenID: asm.legs[0].tokenID, Outcome: asm.legs[0].outcome, Side: asm.legs[0].side, Shares: size, Price: bestEsts[0].AvgPrice},
		{Venue: asm.legs[1].venue, TokenID: asm.legs[1].tokenID, Outcome: asm.legs[1].outcome, Side: asm.legs[1].side, Shares: size, Price: bestEsts[1].AvgPrice},
	}
	return opp, true
}

func (d *CrossVenue) withinLevels(est *vwap.Estimate) bool {
	return d.cfg.MaxVwapLevels <= 0 || est.LevelsUsed <= d.cfg.MaxVwapLevels
}

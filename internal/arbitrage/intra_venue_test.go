package arbitrage

import (
	"math"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/predict-agent/pkg/types"
)

func intraConfig() IntraVenueConfig {
	return IntraVenueConfig{
		MinProfit:           0.02,
		MaxShares:           100,
		DepthUsage:          1.0,
		MaxVwapDeviationBps: 10_000,
		MaxVwapLevels:       10,
		TTL:                 30 * time.Second,
		Logger:              zap.NewNop(),
	}
}

func binaryPair() []types.Market {
	return []types.Market{
		testMarket(types.VenuePredict, "yes-tok", "cond-1", "Will it rain?", types.OutcomeYes),
		testMarket(types.VenuePredict, "no-tok", "cond-1", "Will it rain?", types.OutcomeNo),
	}
}

func TestIntraVenueBuyBoth(t *testing.T) {
	// YES asks (0.42, 200), NO asks (0.55, 200): the pair costs 0.97 per
	// share, capped at 100 shares.
	snap := newSnapshot(binaryPair(),
		testBook(types.VenuePredict, "yes-tok", [][2]float64{{0.40, 50}}, [][2]float64{{0.42, 200}}),
		testBook(types.VenuePredict, "no-tok", [][2]float64{{0.53, 50}}, [][2]float64{{0.55, 200}}),
	)

	opps := NewIntraVenue(intraConfig()).Scan(snap)
	if len(opps) != 1 {
		t.Fatalf("opportunities = %d, want 1", len(opps))
	}

	opp := opps[0]
	if opp.Type != TypeIntraVenue || opp.Action != ActionBuyBoth {
		t.Errorf("type/action = %s/%s", opp.Type, opp.Action)
	}
	if opp.Size != 100 {
		t.Errorf("size = %v, want 100", opp.Size)
	}
	if math.Abs(opp.PerShareCost-0.97) > 1e-9 {
		t.Errorf("perShareCost = %v, want 0.97", opp.PerShareCost)
	}
	if math.Abs(opp.Edge-0.03) > 1e-9 {
		t.Errorf("edge = %v, want 0.03", opp.Edge)
	}
	if len(opp.Legs) != 2 || opp.Legs[0].TokenID != "yes-tok" || opp.Legs[1].TokenID != "no-tok" {
		t.Errorf("legs = %+v", opp.Legs)
	}
	if opp.Key != "INTRA_VENUE:cond-1" {
		t.Errorf("key = %q", opp.Key)
	}
}

func TestIntraVenueRejectedByVwapDeviation(t *testing.T) {
	// The cheap YES level is 10 shares; every candidate size pulls the VWAP
	// far past the 100 bps deviation bound, so nothing is emitted.
	cfg := intraConfig()
	cfg.MaxShares = 500
	cfg.MaxVwapDeviationBps = 100

	snap := newSnapshot(binaryPair(),
		testBook(types.VenuePredict, "yes-tok", nil, [][2]float64{{0.40, 10}, {0.60, 500}}),
		testBook(types.VenuePredict, "no-tok", nil, [][2]float64{{0.55, 500}}),
	)

	if opps := NewIntraVenue(cfg).Scan(snap); len(opps) != 0 {
		t.Errorf("opportunities = %+v, want none", opps)
	}
}

func TestIntraVenueNoEdgeNoEmit(t *testing.T) {
	// 0.50 + 0.52 > 1: nothing to buy.
	snap := newSnapshot(binaryPair(),
		testBook(types.VenuePredict, "yes-tok", nil, [][2]float64{{0.50, 200}}),
		testBook(types.VenuePredict, "no-tok", nil, [][2]float64{{0.52, 200}}),
	)

	if opps := NewIntraVenue(intraConfig()).Scan(snap); len(opps) != 0 {
		t.Errorf("opportunities = %+v, want none", opps)
	}
}

func TestIntraVenueSellBothRequiresShorting(t *testing.T) {
	// Bids sum to 1.06: profitable to sell both, but only when allowed.
	books := func() []*types.Orderbook {
		return []*types.Orderbook{
			testBook(types.VenuePredict, "yes-tok", [][2]float64{{0.53, 200}}, [][2]float64{{0.56, 10}}),
			testBook(types.VenuePredict, "no-tok", [][2]float64{{0.53, 200}}, [][2]float64{{0.56, 10}}),
		}
	}

	cfg := intraConfig()
	snap := newSnapshot(binaryPair(), books()...)
	if opps := NewIntraVenue(cfg).Scan(snap); len(opps) != 0 {
		t.Errorf("shorting disabled but emitted %+v", opps)
	}

	cfg.AllowShorting = true
	snap = newSnapshot(binaryPair(), books()...)
	opps := NewIntraVenue(cfg).Scan(snap)
	if len(opps) != 1 || opps[0].Action != ActionSellBoth {
		t.Fatalf("opportunities = %+v, want one SELL_BOTH", opps)
	}
	if math.Abs(opps[0].Edge-0.06) > 1e-9 {
		t.Errorf("edge = %v, want 0.06", opps[0].Edge)
	}
}

func TestIntraVenueDollarFloors(t *testing.T) {
	cfg := intraConfig()
	cfg.MinProfitUsd = 5 // 100 shares x 0.03 edge = $3, below the floor

	snap := newSnapshot(binaryPair(),
		testBook(types.VenuePredict, "yes-tok", nil, [][2]float64{{0.42, 200}}),
		testBook(types.VenuePredict, "no-tok", nil, [][2]float64{{0.55, 200}}),
	)

	if opps := NewIntraVenue(cfg).Scan(snap); len(opps) != 0 {
		t.Errorf("opportunities = %+v, want none below profit floor", opps)
	}
}

func TestIntraVenueMissingBook(t *testing.T) {
	snap := newSnapshot(binaryPair(),
		testBook(types.VenuePredict, "yes-tok", nil, [][2]float64{{0.42, 200}}),
	)

	if opps := NewIntraVenue(intraConfig()).Scan(snap); len(opps) != 0 {
		t.Errorf("opportunities = %+v, want none with a missing book", opps)
	}
}

func TestIntraVenueCrossedBookSkipped(t *testing.T) {
	crossed := &types.Orderbook{
		Venue:     types.VenuePredict,
		TokenID:   "yes-tok",
		Bids:      []types.Level{{Price: 0.60, Shares: 10}},
		Asks:      []types.Level{{Price: 0.42, Shares: 200}},
		UpdatedAt: time.Now(),
	}
	snap := newSnapshot(binaryPair(),
		crossed,
		testBook(types.VenuePredict, "no-tok", nil, [][2]float64{{0.55, 200}}),
	)

	if opps := NewIntraVenue(intraConfig()).Scan(snap); len(opps) != 0 {
		t.Errorf("opportunities = %+v, want none with a crossed book", opps)
	}
}

func TestIntraVenueVerify(t *testing.T) {
	cfg := intraConfig()
	cfg.RecheckDeviationBps = 50

	detector := NewIntraVenue(cfg)
	snap := newSnapshot(binaryPair(),
		testBook(types.VenuePredict, "yes-tok", nil, [][2]float64{{0.42, 200}}),
		testBook(types.VenuePredict, "no-tok", nil, [][2]float64{{0.55, 200}}),
	)

	opps := detector.Scan(snap)
	if len(opps) != 1 {
		t.Fatalf("opportunities = %d, want 1", len(opps))
	}
	opp := opps[0]

	// Unchanged books re-verify.
	if !detector.Verify(&opp, snap) {
		t.Error("verify failed against the original books")
	}

	// Depth moved: per-share cost now 0.99 (+206 bps), beyond recheck bound.
	moved := newSnapshot(binaryPair(),
		testBook(types.VenuePredict, "yes-tok", nil, [][2]float64{{0.44, 200}}),
		testBook(types.VenuePredict, "no-tok", nil, [][2]float64{{0.55, 200}}),
	)
	if detector.Verify(&opp, moved) {
		t.Error("verify passed after depth moved past the recheck bound")
	}
}

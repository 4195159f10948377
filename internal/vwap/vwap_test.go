package vwap

import (
	"math"
	"testing"

	"github.com/mselser95/predict-agent/pkg/types"
)

const eps = 1e-9

func levels(pairs ...float64) []types.Level {
	ls := make([]types.Level, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		ls = append(ls, types.Level{Price: pairs[i], Shares: pairs[i+1]})
	}
	return ls
}

func TestEstimateBuySingleLevel(t *testing.T) {
	est := EstimateBuy(levels(0.42, 200), 100, FeeParams{}, 0)
	if est == nil {
		t.Fatal("EstimateBuy returned nil")
	}
	if math.Abs(est.AvgPrice-0.42) > eps {
		t.Errorf("AvgPrice = %v, want 0.42", est.AvgPrice)
	}
	if math.Abs(est.TotalNotional-42.0) > eps {
		t.Errorf("TotalNotional = %v, want 42", est.TotalNotional)
	}
	if est.LevelsUsed != 1 {
		t.Errorf("LevelsUsed = %d, want 1", est.LevelsUsed)
	}
	// Zero fees and slippage mean all-in equals raw price.
	if math.Abs(est.AvgAllIn-est.AvgPrice) > eps {
		t.Errorf("AvgAllIn = %v, want AvgPrice %v", est.AvgAllIn, est.AvgPrice)
	}
}

func TestEstimateBuyMultiLevel(t *testing.T) {
	// 10 @ 0.40 + 490 @ 0.60 = 298 notional for 500 shares.
	est := EstimateBuy(levels(0.40, 10, 0.60, 500), 500, FeeParams{}, 0)
	if est == nil {
		t.Fatal("EstimateBuy returned nil")
	}
	if math.Abs(est.AvgPrice-0.596) > eps {
		t.Errorf("AvgPrice = %v, want 0.596", est.AvgPrice)
	}
	if est.LevelsUsed != 2 {
		t.Errorf("LevelsUsed = %d, want 2", est.LevelsUsed)
	}
	// The average can never beat the top of book.
	if est.AvgPrice < 0.40 {
		t.Error("AvgPrice below best ask")
	}
}

func TestEstimateBuyBoundaries(t *testing.T) {
	if est := EstimateBuy(nil, 10, FeeParams{}, 0); est != nil {
		t.Error("empty asks should return nil")
	}
	if est := EstimateBuy(levels(0.5, 5), 10, FeeParams{}, 0); est != nil {
		t.Error("insufficient depth should return nil")
	}
	if est := EstimateBuy(levels(0.5, 5), 0, FeeParams{}, 0); est != nil {
		t.Error("zero shares should return nil")
	}
	if est := EstimateBuy(levels(0.5, 5), -3, FeeParams{}, 0); est != nil {
		t.Error("negative shares should return nil")
	}
}

func TestEstimateBuyFlatFee(t *testing.T) {
	// 200 bps on 0.50 is a fee of 0.01 per share.
	est := EstimateBuy(levels(0.50, 100), 100, FeeParams{FeeBps: 200}, 0)
	if est == nil {
		t.Fatal("EstimateBuy returned nil")
	}
	if math.Abs(est.TotalFees-1.0) > eps {
		t.Errorf("TotalFees = %v, want 1.0", est.TotalFees)
	}
	if math.Abs(est.AvgAllIn-0.51) > eps {
		t.Errorf("AvgAllIn = %v, want 0.51", est.AvgAllIn)
	}
}

func TestEstimateBuyFeeCurve(t *testing.T) {
	// One level fully consumed: fill fraction 1.0, so the curve adds
	// exactly CurveRate to the rate regardless of exponent.
	est := EstimateBuy(levels(0.50, 100), 100, FeeParams{FeeBps: 0, CurveRate: 0.02, CurveExp: 2}, 0)
	if est == nil {
		t.Fatal("EstimateBuy returned nil")
	}
	if math.Abs(est.TotalFees-1.0) > eps {
		t.Errorf("TotalFees = %v, want 1.0", est.TotalFees)
	}
}

func TestEstimateBuySlippage(t *testing.T) {
	est := EstimateBuy(levels(0.50, 100), 100, FeeParams{}, 100)
	if est == nil {
		t.Fatal("EstimateBuy returned nil")
	}
	if math.Abs(est.TotalSlippage-0.50) > eps {
		t.Errorf("TotalSlippage = %v, want 0.50", est.TotalSlippage)
	}
	if math.Abs(est.TotalAllIn-50.5) > eps {
		t.Errorf("TotalAllIn = %v, want 50.5", est.TotalAllIn)
	}
}

func TestEstimateSell(t *testing.T) {
	est := EstimateSell(levels(0.55, 100, 0.50, 100), 150, FeeParams{FeeBps: 100}, 0)
	if est == nil {
		t.Fatal("EstimateSell returned nil")
	}
	wantNotional := 0.55*100 + 0.50*50
	if math.Abs(est.TotalNotional-wantNotional) > eps {
		t.Errorf("TotalNotional = %v, want %v", est.TotalNotional, wantNotional)
	}
	// Sell proceeds shrink with fees.
	if est.TotalAllIn >= est.TotalNotional {
		t.Error("sell TotalAllIn should be below notional when fees apply")
	}
	if est.LevelsUsed != 2 {
		t.Errorf("LevelsUsed = %d, want 2", est.LevelsUsed)
	}
}

func TestAvgPriceNeverBeatsTopOfBook(t *testing.T) {
	asks := levels(0.30, 10, 0.35, 20, 0.50, 100)
	for _, n := range []float64{1, 10, 11, 30, 130} {
		est := EstimateBuy(asks, n, FeeParams{}, 0)
		if est == nil {
			t.Fatalf("EstimateBuy(%v) returned nil", n)
		}
		if est.AvgPrice < asks[0].Price-eps {
			t.Errorf("n=%v: AvgPrice %v below top of book %v", n, est.AvgPrice, asks[0].Price)
		}
		if n <= 10 && math.Abs(est.AvgPrice-asks[0].Price) > eps {
			t.Errorf("n=%v: single level fill should equal top price, got %v", n, est.AvgPrice)
		}
	}
}

func TestMaxBuySharesForLimit(t *testing.T) {
	tests := []struct {
		name   string
		asks   []types.Level
		best   float64
		devBps float64
		want   float64
	}{
		{
			name:   "deep first level within limit",
			asks:   levels(0.40, 100),
			best:   0.40,
			devBps: 100,
			want:   100,
		},
		{
			name: "crossing into expensive level",
			// avg(n) <= 0.404: n <= (0.60*10-4)/(0.60-0.404) = 10.2 -> 10.
			asks:   levels(0.40, 10, 0.60, 500),
			best:   0.40,
			devBps: 100,
			want:   10,
		},
		{
			name:   "second level partially admissible",
			asks:   levels(0.40, 100, 0.44, 100),
			best:   0.40,
			devBps: 500, // limit 0.42: n <= (0.44*100-40)/(0.44-0.42) = 200
			want:   200,
		},
		{
			name:   "empty book",
			asks:   nil,
			best:   0.40,
			devBps: 100,
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MaxBuySharesForLimit(tt.asks, tt.best, tt.devBps)
			if math.Abs(got-tt.want) > eps {
				t.Errorf("MaxBuySharesForLimit = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSumDepth(t *testing.T) {
	if got := SumDepth(levels(0.4, 10, 0.5, 20.5)); math.Abs(got-30.5) > eps {
		t.Errorf("SumDepth = %v, want 30.5", got)
	}
	if got := SumDepth(nil); got != 0 {
		t.Errorf("SumDepth(nil) = %v, want 0", got)
	}
}

package execution

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/predict-agent/pkg/types"
)

func paperBook() *types.Orderbook {
	return &types.Orderbook{
		Venue:     types.VenuePredict,
		TokenID:   "tok-1",
		Bids:      []types.Level{{Price: 0.48, Shares: 200}},
		Asks:      []types.Level{{Price: 0.52, Shares: 200}},
		UpdatedAt: time.Now(),
	}
}

func TestPaperLimitOrderRests(t *testing.T) {
	p := NewPaperSubmitter(types.VenuePredict, zap.NewNop())
	market := &types.Market{Venue: types.VenuePredict, TokenID: "tok-1"}

	receipt, err := p.BuildAndSubmitLimit(context.Background(), market, types.SideBuy, 0.45, 100)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if receipt.Hash == "" || receipt.Kind != types.OrderLimit {
		t.Errorf("receipt = %+v", receipt)
	}

	orders := p.Orders()
	if len(orders) != 1 || orders[0].Status != types.OrderOpen {
		t.Fatalf("orders = %+v", orders)
	}

	if err := p.Cancel(context.Background(), []string{receipt.Hash}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := p.Orders()[0].Status; got != types.OrderCanceled {
		t.Errorf("status = %s, want CANCELED", got)
	}
}

func TestPaperMarketOrderFillsAtPaddedTouch(t *testing.T) {
	p := NewPaperSubmitter(types.VenuePredict, zap.NewNop())
	market := &types.Market{Venue: types.VenuePredict, TokenID: "tok-1"}

	receipt, err := p.BuildAndSubmitMarket(context.Background(), market, types.SideBuy, 60, paperBook(), 100)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// Best ask 0.52 padded by 100 bps.
	if math.Abs(receipt.Price-0.52*1.01) > 1e-9 {
		t.Errorf("price = %v, want %v", receipt.Price, 0.52*1.01)
	}
	if p.Orders()[0].Status != types.OrderFilled {
		t.Errorf("market order did not fill: %+v", p.Orders())
	}
}

func TestPaperRejectsBadOrders(t *testing.T) {
	p := NewPaperSubmitter(types.VenuePredict, zap.NewNop())
	market := &types.Market{Venue: types.VenuePredict, TokenID: "tok-1"}

	cases := []struct {
		name   string
		price  float64
		shares float64
	}{
		{"zero price", 0, 100},
		{"price at one", 1, 100},
		{"zero shares", 0.5, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := p.BuildAndSubmitLimit(context.Background(), market, types.SideBuy, tc.price, tc.shares)
			var orderErr *types.OrderError
			if !errors.As(err, &orderErr) {
				t.Errorf("error = %v, want OrderError", err)
			}
		})
	}
}

func TestPaperCancelUnknownIsNoOp(t *testing.T) {
	p := NewPaperSubmitter(types.VenuePredict, zap.NewNop())
	if err := p.Cancel(context.Background(), []string{"never-seen"}); err != nil {
		t.Errorf("cancel unknown: %v", err)
	}
}

func TestPaperMarketOrderNeedsLiquidity(t *testing.T) {
	p := NewPaperSubmitter(types.VenuePredict, zap.NewNop())
	market := &types.Market{Venue: types.VenuePredict, TokenID: "tok-1"}

	empty := &types.Orderbook{Venue: types.VenuePredict, TokenID: "tok-1", UpdatedAt: time.Now()}
	if _, err := p.BuildAndSubmitMarket(context.Background(), market, types.SideBuy, 10, empty, 50); err == nil {
		t.Error("expected error against an empty book")
	}
}

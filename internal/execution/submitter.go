// Package execution turns opportunities and maker quotes into venue orders:
// signed payload construction per venue, the executor's leg sequencing, and
// the fill hedger.
package execution

import (
	"context"
	"time"

	"github.com/mselser95/predict-agent/pkg/types"
)

// Receipt is the submitter's acknowledgment of one order.
type Receipt struct {
	Hash   string          `json:"hash"`
	Venue  types.Venue     `json:"venue"`
	Kind   types.OrderKind `json:"kind"`
	Side   types.Side      `json:"side"`
	Price  float64         `json:"price"`
	Shares float64         `json:"shares"`
	At     time.Time       `json:"at"`
}

// OrderSubmitter builds, signs, and ships venue orders. Implementations own
// all cryptography and payload shape; failures are typed errors with no retry
// at this layer. Cancel of an unknown handle is a successful no-op.
type OrderSubmitter interface {
	BuildAndSubmitLimit(ctx context.Context, market *types.Market, side types.Side, price, shares float64) (*Receipt, error)
	BuildAndSubmitMarket(ctx context.Context, market *types.Market, side types.Side, shares float64, book *types.Orderbook, slippageBps float64) (*Receipt, error)
	Cancel(ctx context.Context, hashes []string) error
	Addresses() (maker, signer string)
}

// marketLimitPrice derives the marketable limit price from the opposing side
// of the book, padded by the slippage allowance.
func marketLimitPrice(side types.Side, book *types.Orderbook, slippageBps float64) (float64, bool) {
	if book == nil {
		return 0, false
	}

	pad := 1 + slippageBps/10_000
	if side == types.SideBuy {
		best, ok := book.BestAsk()
		if !ok {
			return 0, false
		}
		return clampPrice(best.Price * pad), true
	}

	best, ok := book.BestBid()
	if !ok {
		return 0, false
	}
	return clampPrice(best.Price / pad), true
}

func clampPrice(p float64) float64 {
	if p < 0.01 {
		return 0.01
	}
	if p > 0.99 {
		return 0.99
	}
	return p
}

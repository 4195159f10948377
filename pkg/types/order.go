package types

import "time"

// Side of an order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderKind distinguishes resting limit orders from immediate market orders.
type OrderKind string

const (
	OrderLimit  OrderKind = "LIMIT"
	OrderMarket OrderKind = "MARKET"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderOpen     OrderStatus = "OPEN"
	OrderFilled   OrderStatus = "FILLED"
	OrderCanceled OrderStatus = "CANCELED"
)

// Order is the agent's view of a submitted order. Hash is the handle
// returned by the submitter; ownership transfers to the venue on submission
// and returns as a terminal status update.
type Order struct {
	Hash      string      `json:"hash"`
	TokenID   string      `json:"tokenId"`
	Maker     string      `json:"maker,omitempty"`
	Signer    string      `json:"signer,omitempty"`
	Kind      OrderKind   `json:"kind"`
	Side      Side        `json:"side"`
	Price     float64     `json:"price"`
	Shares    float64     `json:"shares"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Position tracks per-token inventory. Net exposure is yesShares minus
// noShares; a matched YES/NO pair is worth $1 at settlement regardless of
// outcome.
type Position struct {
	TokenID   string  `json:"tokenId"`
	YesShares float64 `json:"yesShares"`
	NoShares  float64 `json:"noShares"`
	AvgEntry  float64 `json:"avgEntry"`
	Mark      float64 `json:"mark"`
	PnL       float64 `json:"pnl"`
}

// Net returns the directional exposure in shares.
func (p *Position) Net() float64 {
	return p.YesShares - p.NoShares
}

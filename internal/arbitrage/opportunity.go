package arbitrage

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mselser95/predict-agent/pkg/types"
)

// Type tags the opportunity variants.
type Type string

const (
	TypeValueMismatch Type = "VALUE_MISMATCH"
	TypeIntraVenue    Type = "INTRA_VENUE"
	TypeMultiOutcome  Type = "MULTI_OUTCOME"
	TypeCrossVenue    Type = "CROSS_VENUE"
	TypeDependency    Type = "DEPENDENCY"
)

// Action is what the executor should do with the legs.
type Action string

const (
	ActionBuy      Action = "BUY"
	ActionSell     Action = "SELL"
	ActionBuyBoth  Action = "BUY_BOTH"
	ActionSellBoth Action = "SELL_BOTH"
	ActionBuyAll   Action = "BUY_ALL"
)

// RiskLevel buckets opportunities for reporting and execution policy.
type RiskLevel string

const (
	RiskLow  RiskLevel = "LOW"
	RiskMed  RiskLevel = "MED"
	RiskHigh RiskLevel = "HIGH"
)

// Leg is one order the opportunity wants placed.
type Leg struct {
	Venue   types.Venue `json:"venue"`
	TokenID string      `json:"tokenId"`
	Outcome string      `json:"outcome,omitempty"`
	Side    types.Side  `json:"side"`
	Shares  float64     `json:"shares"`
	Price   float64     `json:"price"` // expected average fill price
}

// Notional is the leg's dollar value at the expected price.
func (l Leg) Notional() float64 {
	return l.Shares * l.Price
}

// Opportunity is the tagged union every detector emits. The header fields are
// always set; the variant fields depend on Type.
type Opportunity struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	Key        string    `json:"key"` // type + ":" + primary id, stable across scans
	DetectedAt time.Time `json:"detectedAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
	RiskLevel  RiskLevel `json:"riskLevel"`
	Confidence float64   `json:"confidence"`
	Edge       float64   `json:"edge"` // per-share profit in $1-payout units
	Size       float64   `json:"size"` // shares per leg
	Legs       []Leg     `json:"legs,omitempty"`

	// VALUE_MISMATCH
	TokenID   string     `json:"tokenId,omitempty"`
	Side      types.Side `json:"side,omitempty"`
	FairPrice float64    `json:"fairPrice,omitempty"`

	// INTRA_VENUE
	MarketID     string  `json:"marketId,omitempty"`
	YesTokenID   string  `json:"yesTokenId,omitempty"`
	NoTokenID    string  `json:"noTokenId,omitempty"`
	Action       Action  `json:"action,omitempty"`
	PerShareCost float64 `json:"perShareCost,omitempty"`

	// MULTI_OUTCOME
	GroupID string `json:"groupId,omitempty"`

	// CROSS_VENUE
	PairID     string  `json:"pairId,omitempty"`
	Similarity float64 `json:"similarity,omitempty"`

	// DEPENDENCY
	BundleID string `json:"bundleId,omitempty"`
}

// newOpportunity fills the shared header. Variant fields are the caller's.
func newOpportunity(typ Type, primaryID string, ttl time.Duration) Opportunity {
	now := time.Now()
	return Opportunity{
		ID:         uuid.New().String(),
		Type:       typ,
		Key:        string(typ) + ":" + primaryID,
		DetectedAt: now,
		ExpiresAt:  now.Add(ttl),
	}
}

// TotalNotional sums the leg notionals.
func (o *Opportunity) TotalNotional() float64 {
	total := 0.0
	for _, leg := range o.Legs {
		total += leg.Notional()
	}
	return total
}

// ExpectedProfit is edge × size.
func (o *Opportunity) ExpectedProfit() float64 {
	return o.Edge * o.Size
}

// Expired reports whether the opportunity is past its TTL.
func (o *Opportunity) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// riskForEdge buckets an edge into a risk level: fat edges are usually stale
// books, thin ones leave no room for slippage.
func riskForEdge(edge float64) RiskLevel {
	switch {
	case edge >= 0.10:
		return RiskHigh
	case edge >= 0.03:
		return RiskLow
	default:
		return RiskMed
	}
}

// String renders a one-line report form.
func (o *Opportunity) String() string {
	return fmt.Sprintf("%s key=%s edge=%.4f size=%.0f legs=%d risk=%s",
		o.Type, o.Key, o.Edge, o.Size, len(o.Legs), o.RiskLevel)
}

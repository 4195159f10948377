package types

import (
	"strings"
	"time"
)

// Outcome labels for binary markets. Venues that do not label their tokens
// leave Outcome empty and pairing falls back to question matching.
const (
	OutcomeYes = "YES"
	OutcomeNo  = "NO"
)

// Activation carries the venue-supplied quote eligibility rules for a
// liquidity rewards program. Quotes must be at least MinShares large and sit
// within MaxSpreadCents of the midpoint to qualify.
type Activation struct {
	Active         bool    `json:"active"`
	MinShares      float64 `json:"minShares"`
	MaxSpreadCents float64 `json:"maxSpreadCents"`
}

// Market is the normalized market record shared by all venues. One tradable
// outcome token per record; prices are probabilities paying $1 at settlement.
type Market struct {
	Venue       Venue  `json:"venue"`
	TokenID     string `json:"tokenId"`
	Question    string `json:"question"`
	ConditionID string `json:"conditionId,omitempty"`
	EventID     string `json:"eventId,omitempty"`
	// MarketID is the peer-venue identifier grouping a YES/NO pair.
	MarketID       string      `json:"marketId,omitempty"`
	Outcome        string      `json:"outcome,omitempty"`
	IsNegRisk      bool        `json:"isNegRisk,omitempty"`
	IsYieldBearing bool        `json:"isYieldBearing,omitempty"`
	FeeRateBps     float64     `json:"feeRateBps,omitempty"`
	Activation     *Activation `json:"activation,omitempty"`
	Liquidity24h   float64     `json:"liquidity24h,omitempty"`
	Volume24h      float64     `json:"volume24h,omitempty"`
	OrderCount     int         `json:"orderCount,omitempty"`
	Active         bool        `json:"active"`
	UpdatedAt      time.Time   `json:"updatedAt,omitempty"`
}

// GroupKey returns the identifier used to pair YES/NO outcomes of the same
// underlying market: conditionId first, then eventId, then the normalized
// question text.
func (m *Market) GroupKey() string {
	if m.ConditionID != "" {
		return m.ConditionID
	}
	if m.EventID != "" {
		return m.EventID
	}
	return NormalizeQuestion(m.Question)
}

// IsYes reports whether the token is labeled as the YES outcome.
// Case-insensitive matching (accepts YES/Yes, NO/No).
func (m *Market) IsYes() bool {
	return strings.EqualFold(m.Outcome, OutcomeYes)
}

// IsNo reports whether the token is labeled as the NO outcome.
func (m *Market) IsNo() bool {
	return strings.EqualFold(m.Outcome, OutcomeNo)
}

// NormalizeQuestion lowercases a question, strips punctuation, and collapses
// whitespace so textually equal questions compare equal across venues.
func NormalizeQuestion(q string) string {
	var b strings.Builder
	b.Grow(len(q))

	lastSpace := true
	for _, r := range strings.ToLower(q) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}

	return strings.TrimSpace(b.String())
}

// QuestionTokens splits a normalized question into its word set for
// similarity comparisons.
func QuestionTokens(q string) map[string]struct{} {
	words := strings.Fields(NormalizeQuestion(q))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Package polymarket is the venue adapter for Polymarket: Gamma discovery,
// CLOB book fetches, and the market-channel WebSocket feed.
package polymarket

import (
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/mselser95/predict-agent/pkg/types"
)

// gammaMarket is one market as the Gamma API returns it. Token and outcome
// lists arrive as JSON strings inside the JSON document.
type gammaMarket struct {
	ID           string  `json:"id"`
	ConditionID  string  `json:"conditionId"`
	Question     string  `json:"question"`
	ClobTokenIDs string  `json:"clobTokenIds"`
	Outcomes     string  `json:"outcomes"`
	NegRisk      bool    `json:"negRisk"`
	Active       bool    `json:"active"`
	Closed       bool    `json:"closed"`
	Liquidity    float64 `json:"liquidityNum"`
	Volume24h    float64 `json:"volume24hr"`
}

// toMarkets expands one Gamma record into one normalized market per outcome
// token. Records whose token or outcome lists cannot be parsed are skipped.
func (g *gammaMarket) toMarkets() []types.Market {
	var tokenIDs, outcomes []string
	if err := json.Unmarshal([]byte(g.ClobTokenIDs), &tokenIDs); err != nil {
		return nil
	}
	if err := json.Unmarshal([]byte(g.Outcomes), &outcomes); err != nil {
		return nil
	}
	if len(tokenIDs) == 0 || len(tokenIDs) != len(outcomes) {
		return nil
	}

	now := time.Now()
	out := make([]types.Market, 0, len(tokenIDs))
	for i, tokenID := range tokenIDs {
		if tokenID == "" {
			continue
		}
		out = append(out, types.Market{
			Venue:        types.VenuePolymarket,
			TokenID:      tokenID,
			MarketID:     g.ID,
			ConditionID:  g.ConditionID,
			Question:     g.Question,
			Outcome:      normalizeOutcome(outcomes[i]),
			IsNegRisk:    g.NegRisk,
			Active:       g.Active && !g.Closed,
			Liquidity24h: g.Liquidity,
			Volume24h:    g.Volume24h,
			UpdatedAt:    now,
		})
	}
	return out
}

// normalizeOutcome maps Polymarket's "Yes"/"No" labels onto the canonical
// YES/NO constants; anything else passes through unchanged.
func normalizeOutcome(o string) string {
	switch strings.ToUpper(o) {
	case types.OutcomeYes:
		return types.OutcomeYes
	case types.OutcomeNo:
		return types.OutcomeNo
	default:
		return o
	}
}

// clobLevel is one price level; the CLOB serializes numbers as strings.
type clobLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// clobBook is the REST book shape and the WS "book" event data shape.
type clobBook struct {
	AssetID   string      `json:"asset_id"`
	Bids      []clobLevel `json:"bids"`
	Asks      []clobLevel `json:"asks"`
	Timestamp string      `json:"timestamp"` // unix millis as string
}

func parseClobLevels(raw []clobLevel, side types.Side) ([]types.Level, bool) {
	levels := make([]types.Level, 0, len(raw))
	for _, cl := range raw {
		price, err := strconv.ParseFloat(cl.Price, 64)
		if err != nil {
			return nil, false
		}
		size, err := strconv.ParseFloat(cl.Size, 64)
		if err != nil {
			return nil, false
		}
		levels = append(levels, types.Level{Price: price, Shares: size})
	}
	return types.SortLevels(levels, side), true
}

// toOrderbook normalizes a CLOB book. tokenID wins when the payload omits
// its own asset id.
func (b *clobBook) toOrderbook(tokenID string) (*types.Orderbook, error) {
	id := b.AssetID
	if id == "" {
		id = tokenID
	}
	if id == "" {
		return nil, &types.DataError{Venue: types.VenuePolymarket, Reason: "book without asset id"}
	}

	bids, ok := parseClobLevels(b.Bids, types.SideBuy)
	if !ok {
		return nil, &types.DataError{Venue: types.VenuePolymarket, Reason: "unparseable bid levels"}
	}
	asks, ok := parseClobLevels(b.Asks, types.SideSell)
	if !ok {
		return nil, &types.DataError{Venue: types.VenuePolymarket, Reason: "unparseable ask levels"}
	}

	updated := time.Now()
	if ms, err := strconv.ParseInt(b.Timestamp, 10, 64); err == nil && ms > 0 {
		updated = time.UnixMilli(ms)
	}

	return &types.Orderbook{
		Venue:     types.VenuePolymarket,
		TokenID:   id,
		Bids:      bids,
		Asks:      asks,
		UpdatedAt: updated,
	}, nil
}

// wsEvent is one market-channel event. Frames carry either a single event or
// an array of them.
type wsEvent struct {
	EventType string `json:"event_type"`
	AssetID   string `json:"asset_id"`

	// book
	Bids      []clobLevel `json:"bids"`
	Asks      []clobLevel `json:"asks"`
	Timestamp string      `json:"timestamp"`

	// price_change
	Changes []priceChange `json:"changes"`

	// best_bid_ask
	BestBid     string `json:"best_bid"`
	BestBidSize string `json:"best_bid_size"`
	BestAsk     string `json:"best_ask"`
	BestAskSize string `json:"best_ask_size"`
}

type priceChange struct {
	Price string `json:"price"`
	Size  string `json:"size"`
	Side  string `json:"side"`
}

// decodeEvents parses a WS frame into its events. A frame may be an event
// array, a single event, or a venue control message (ignored, nil result).
func decodeEvents(frame []byte) ([]wsEvent, error) {
	trimmed := strings.TrimSpace(string(frame))
	if trimmed == "" || trimmed == "PONG" {
		return nil, nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var events []wsEvent
		if err := json.Unmarshal(frame, &events); err != nil {
			return nil, &types.DataError{Venue: types.VenuePolymarket, Reason: "unparseable frame: " + err.Error()}
		}
		return events, nil
	}

	var event wsEvent
	if err := json.Unmarshal(frame, &event); err != nil {
		return nil, &types.DataError{Venue: types.VenuePolymarket, Reason: "unparseable frame: " + err.Error()}
	}
	if event.EventType == "" {
		return nil, nil
	}
	return []wsEvent{event}, nil
}

// subscribeMessage is the client-to-server subscription shape. The initial
// message declares the channel type; later operations add or remove assets.
type subscribeMessage struct {
	AssetIDs  []string `json:"assets_ids"`
	Type      string   `json:"type,omitempty"`
	Operation string   `json:"operation,omitempty"`
}

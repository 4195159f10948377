// Package opinion is the venue adapter for the Opinion exchange OpenAPI:
// REST discovery and book fetches plus the channel-based WebSocket feed.
// Every endpoint authenticates with the operator's API key.
package opinion

import (
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"github.com/mselser95/predict-agent/pkg/types"
)

// marketRecord is one market as the OpenAPI returns it. Opinion groups the
// YES/NO pair in a single record.
type marketRecord struct {
	MarketID   int64   `json:"marketId"`
	Title      string  `json:"marketTitle"`
	YesTokenID string  `json:"yesTokenId"`
	NoTokenID  string  `json:"noTokenId"`
	Status     string  `json:"status"` // "activated" when tradable
	Volume24h  float64 `json:"volume24h"`
	Liquidity  float64 `json:"liquidity"`
}

// toMarkets expands one record into the two outcome markets.
func (r *marketRecord) toMarkets() []types.Market {
	if r.YesTokenID == "" || r.NoTokenID == "" {
		return nil
	}

	now := time.Now()
	base := types.Market{
		Venue:        types.VenueOpinion,
		MarketID:     formatMarketID(r.MarketID),
		Question:     r.Title,
		Active:       r.Status == "activated",
		Volume24h:    r.Volume24h,
		Liquidity24h: r.Liquidity,
		UpdatedAt:    now,
	}

	yes := base
	yes.TokenID = r.YesTokenID
	yes.Outcome = types.OutcomeYes

	no := base
	no.TokenID = r.NoTokenID
	no.Outcome = types.OutcomeNo

	return []types.Market{yes, no}
}

// formatMarketID maps the OpenAPI's numeric market ids onto the string keys
// everything downstream uses.
func formatMarketID(id int64) string {
	return "opinion-" + strconv.FormatInt(id, 10)
}

type marketsResponse struct {
	Code int `json:"code"`
	Data struct {
		List []marketRecord `json:"list"`
	} `json:"data"`
	Msg string `json:"msg"`
}

// bookLevel is one price level; Opinion serializes numbers natively.
type bookLevel struct {
	Price  float64 `json:"price"`
	Amount float64 `json:"amount"`
}

type bookPayload struct {
	TokenID string      `json:"tokenId"`
	Bids    []bookLevel `json:"bids"`
	Asks    []bookLevel `json:"asks"`
	TsMs    int64       `json:"ts"`
}

type orderbookResponse struct {
	Code int          `json:"code"`
	Data *bookPayload `json:"data"`
	Msg  string       `json:"msg"`
}

func toLevels(raw []bookLevel, side types.Side) []types.Level {
	levels := make([]types.Level, 0, len(raw))
	for _, l := range raw {
		levels = append(levels, types.Level{Price: l.Price, Shares: l.Amount})
	}
	return types.SortLevels(levels, side)
}

// decodeBook normalizes a book payload. tokenID wins when the payload omits
// its own field.
func decodeBook(p *bookPayload, tokenID string) (*types.Orderbook, error) {
	if p == nil {
		return nil, &types.DataError{Venue: types.VenueOpinion, Reason: "empty orderbook payload"}
	}

	id := p.TokenID
	if id == "" {
		id = tokenID
	}
	if id == "" {
		return nil, &types.DataError{Venue: types.VenueOpinion, Reason: "orderbook without token id"}
	}

	updated := time.Now()
	if p.TsMs > 0 {
		updated = time.UnixMilli(p.TsMs)
	}

	return &types.Orderbook{
		Venue:     types.VenueOpinion,
		TokenID:   id,
		Bids:      toLevels(p.Bids, types.SideBuy),
		Asks:      toLevels(p.Asks, types.SideSell),
		UpdatedAt: updated,
	}, nil
}

// wsMessage is the outer frame of every channel message.
type wsMessage struct {
	Channel string       `json:"channel"`
	Data    *bookPayload `json:"data"`
}

// decodeFrame parses one WS frame. nil book with nil error means a control
// or unknown-channel frame.
func decodeFrame(frame []byte) (*types.Orderbook, error) {
	var msg wsMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		return nil, &types.DataError{Venue: types.VenueOpinion, Reason: "unparseable frame: " + err.Error()}
	}

	if msg.Channel != "orderbook" || msg.Data == nil {
		return nil, nil
	}

	return decodeBook(msg.Data, "")
}

// channelRequest is the client-to-server subscription shape.
type channelRequest struct {
	Action   string   `json:"action"`
	Channel  string   `json:"channel"`
	TokenIDs []string `json:"tokenIds,omitempty"`
}

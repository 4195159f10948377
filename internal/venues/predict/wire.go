package predict

import (
	"fmt"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"github.com/mselser95/predict-agent/pkg/types"
)

// marketRecord is one market as the venue returns it.
type marketRecord struct {
	TokenID        string  `json:"tokenId"`
	MarketID       string  `json:"marketId"`
	ConditionID    string  `json:"conditionId"`
	EventID        string  `json:"eventId"`
	Question       string  `json:"question"`
	Outcome        string  `json:"outcome"`
	IsNegRisk      bool    `json:"isNegRisk"`
	IsYieldBearing bool    `json:"isYieldBearing"`
	FeeRateBps     float64 `json:"feeRateBps"`
	Active         bool    `json:"active"`
	Liquidity24h   float64 `json:"liquidity24h"`
	Volume24h      float64 `json:"volume24h"`
	OrderCount     int     `json:"orderCount"`
	Activation     *struct {
		Active         bool    `json:"active"`
		MinShares      float64 `json:"minShares"`
		MaxSpreadCents float64 `json:"maxSpreadCents"`
	} `json:"activation"`
}

func (r *marketRecord) toMarket() types.Market {
	m := types.Market{
		Venue:          types.VenuePredict,
		TokenID:        r.TokenID,
		MarketID:       r.MarketID,
		ConditionID:    r.ConditionID,
		EventID:        r.EventID,
		Question:       r.Question,
		Outcome:        r.Outcome,
		IsNegRisk:      r.IsNegRisk,
		IsYieldBearing: r.IsYieldBearing,
		FeeRateBps:     r.FeeRateBps,
		Active:         r.Active,
		Liquidity24h:   r.Liquidity24h,
		Volume24h:      r.Volume24h,
		OrderCount:     r.OrderCount,
		UpdatedAt:      time.Now(),
	}
	if r.Activation != nil {
		m.Activation = &types.Activation{
			Active:         r.Activation.Active,
			MinShares:      r.Activation.MinShares,
			MaxSpreadCents: r.Activation.MaxSpreadCents,
		}
	}
	return m
}

// wireLevel is one price level; the venue serializes numbers as strings.
type wireLevel struct {
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
}

// orderbookPayload is the book as the venue returns it, over REST and inside
// WS data frames alike.
type orderbookPayload struct {
	TokenID string      `json:"tokenId"`
	Bids    []wireLevel `json:"bids"`
	Asks    []wireLevel `json:"asks"`
	BestBid string      `json:"best_bid"`
	BestAsk string      `json:"best_ask"`
	TsMs    int64       `json:"ts"`
}

// wsEnvelope is the outer frame of every server message.
type wsEnvelope struct {
	Type  string `json:"type"`
	Topic string `json:"topic"`
	Data  struct {
		Orderbook *orderbookPayload `json:"orderbook"`
	} `json:"data"`
}

// subscribeRequest is the client-to-server subscription message.
type subscribeRequest struct {
	Method    string   `json:"method"`
	RequestID int64    `json:"requestId"`
	Params    []string `json:"params"`
}

// heartbeatReply acknowledges a server heartbeat so the session stays open.
type heartbeatReply struct {
	Method    string `json:"method"`
	RequestID int64  `json:"requestId"`
}

func parseLevels(raw []wireLevel, side types.Side) ([]types.Level, error) {
	levels := make([]types.Level, 0, len(raw))
	for _, wl := range raw {
		price, err := strconv.ParseFloat(wl.Price, 64)
		if err != nil {
			return nil, fmt.Errorf("parse price %q: %w", wl.Price, err)
		}
		shares, err := strconv.ParseFloat(wl.Quantity, 64)
		if err != nil {
			return nil, fmt.Errorf("parse quantity %q: %w", wl.Quantity, err)
		}
		levels = append(levels, types.Level{Price: price, Shares: shares})
	}
	return types.SortLevels(levels, side), nil
}

// decodeOrderbook normalizes a venue book payload. The tokenID argument wins
// over the payload's own field when the payload omits it.
func decodeOrderbook(p *orderbookPayload, tokenID string) (*types.Orderbook, error) {
	if p == nil {
		return nil, &types.DataError{Venue: types.VenuePredict, Reason: "empty orderbook payload"}
	}

	id := p.TokenID
	if id == "" {
		id = tokenID
	}
	if id == "" {
		return nil, &types.DataError{Venue: types.VenuePredict, Reason: "orderbook without token id"}
	}

	bids, err := parseLevels(p.Bids, types.SideBuy)
	if err != nil {
		return nil, &types.DataError{Venue: types.VenuePredict, Reason: "bids: " + err.Error()}
	}
	asks, err := parseLevels(p.Asks, types.SideSell)
	if err != nil {
		return nil, &types.DataError{Venue: types.VenuePredict, Reason: "asks: " + err.Error()}
	}

	updated := time.Now()
	if p.TsMs > 0 {
		updated = time.UnixMilli(p.TsMs)
	}

	return &types.Orderbook{
		Venue:     types.VenuePredict,
		TokenID:   id,
		Bids:      bids,
		Asks:      asks,
		UpdatedAt: updated,
	}, nil
}

// decodeFrame parses one WS frame. A nil book with nil error means the frame
// was a control message (subscription ack, unknown type).
func decodeFrame(frame []byte) (book *types.Orderbook, heartbeat bool, err error) {
	var env wsEnvelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, false, &types.DataError{Venue: types.VenuePredict, Reason: "unparseable frame: " + err.Error()}
	}

	if env.Type != "M" {
		return nil, false, nil
	}
	if env.Topic == "heartbeat" {
		return nil, true, nil
	}
	if env.Data.Orderbook == nil {
		return nil, false, nil
	}

	tokenID := topicSuffix(env.Topic)
	b, err := decodeOrderbook(env.Data.Orderbook, tokenID)
	if err != nil {
		return nil, false, err
	}
	return b, false, nil
}

// decodeMarkets accepts both the enveloped {data:[...]} and the bare array
// shape the venue has served at different times.
func decodeMarkets(body []byte) ([]marketRecord, error) {
	var envelope struct {
		Data []marketRecord `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Data != nil {
		return envelope.Data, nil
	}

	var bare []marketRecord
	if err := json.Unmarshal(body, &bare); err != nil {
		return nil, &types.DataError{Venue: types.VenuePredict, Reason: "unparseable markets response: " + err.Error()}
	}
	return bare, nil
}

// decodeOrderbookBody accepts both the enveloped and bare orderbook shapes.
func decodeOrderbookBody(body []byte, tokenID string) (*types.Orderbook, error) {
	var envelope struct {
		Data *orderbookPayload `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Data != nil {
		return decodeOrderbook(envelope.Data, tokenID)
	}

	var bare orderbookPayload
	if err := json.Unmarshal(body, &bare); err != nil {
		return nil, &types.DataError{Venue: types.VenuePredict, Reason: "unparseable orderbook response: " + err.Error()}
	}
	return decodeOrderbook(&bare, tokenID)
}

// SignedOrder is the venue order payload after signing. The submitter fills
// every field; this package only ships it.
type SignedOrder struct {
	Salt          string `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	Side          string `json:"side"`
	SignatureType int    `json:"signatureType"`
	Signature     string `json:"signature"`
	Hash          string `json:"hash"`
}

// SubmitOrderRequest is the inner body of POST /orders.
type SubmitOrderRequest struct {
	Order         *SignedOrder `json:"order"`
	PricePerShare float64      `json:"pricePerShare"`
	Strategy      string       `json:"strategy"`
	SlippageBps   *float64     `json:"slippageBps,omitempty"`
}

// SubmitOrderResult is the venue's acknowledgment.
type SubmitOrderResult struct {
	Hash   string
	Status string
}

type submitOrderEnvelope struct {
	Data *SubmitOrderRequest `json:"data"`
}

type submitOrderResponse struct {
	Data struct {
		Order struct {
			Hash   string `json:"hash"`
			Status string `json:"status"`
		} `json:"order"`
	} `json:"data"`
}

type cancelOrdersRequest struct {
	IDs []string `json:"ids"`
}

type orderRecord struct {
	Hash      string  `json:"hash"`
	TokenID   string  `json:"tokenId"`
	Maker     string  `json:"maker"`
	Signer    string  `json:"signer"`
	Kind      string  `json:"kind"`
	Side      string  `json:"side"`
	Price     float64 `json:"price"`
	Shares    float64 `json:"shares"`
	Status    string  `json:"status"`
	CreatedAt int64   `json:"createdAt"`
}

func (r *orderRecord) toOrder() types.Order {
	return types.Order{
		Hash:      r.Hash,
		TokenID:   r.TokenID,
		Maker:     r.Maker,
		Signer:    r.Signer,
		Kind:      types.OrderKind(r.Kind),
		Side:      types.Side(r.Side),
		Price:     r.Price,
		Shares:    r.Shares,
		Status:    types.OrderStatus(r.Status),
		CreatedAt: time.UnixMilli(r.CreatedAt),
	}
}

type openOrdersResponse struct {
	Data []orderRecord `json:"data"`
}

type positionRecord struct {
	TokenID   string  `json:"tokenId"`
	YesShares float64 `json:"yesShares"`
	NoShares  float64 `json:"noShares"`
	AvgEntry  float64 `json:"avgEntry"`
	Mark      float64 `json:"mark"`
	PnL       float64 `json:"pnl"`
}

func (r *positionRecord) toPosition() types.Position {
	return types.Position{
		TokenID:   r.TokenID,
		YesShares: r.YesShares,
		NoShares:  r.NoShares,
		AvgEntry:  r.AvgEntry,
		Mark:      r.Mark,
		PnL:       r.PnL,
	}
}

type positionsResponse struct {
	Data []positionRecord `json:"data"`
}

// topicSuffix extracts the topic id from "predictOrderbook/<topicId>".
func topicSuffix(topic string) string {
	for i := len(topic) - 1; i >= 0; i-- {
		if topic[i] == '/' {
			return topic[i+1:]
		}
	}
	return ""
}

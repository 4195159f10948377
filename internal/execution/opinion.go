package execution

import (
	"context"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/mselser95/predict-agent/pkg/types"
)

// OpinionSubmitter ships orders through the Opinion OpenAPI. Authentication
// is the apikey header; responses use the {code,data,msg} envelope with code
// zero on success.
type OpinionSubmitter struct {
	http    *resty.Client
	logger  *zap.Logger
	address string
}

// OpinionSubmitterConfig holds Opinion order credentials.
type OpinionSubmitterConfig struct {
	BaseURL string
	APIKey  string
	Address string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewOpinionSubmitter creates the live Opinion submitter.
func NewOpinionSubmitter(cfg OpinionSubmitterConfig) *OpinionSubmitter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &OpinionSubmitter{
		http: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetTimeout(cfg.Timeout).
			SetHeader("apikey", cfg.APIKey).
			SetHeader("Content-Type", "application/json"),
		logger:  cfg.Logger,
		address: cfg.Address,
	}
}

type opinionOrderRequest struct {
	TokenID   string  `json:"tokenId"`
	Side      string  `json:"side"`
	OrderType string  `json:"orderType"`
	Price     float64 `json:"price"`
	Amount    float64 `json:"amount"`
}

type opinionOrderEnvelope struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		OrderID string `json:"orderId"`
	} `json:"data"`
}

// BuildAndSubmitLimit posts a resting limit order.
func (s *OpinionSubmitter) BuildAndSubmitLimit(ctx context.Context, market *types.Market, side types.Side, price, shares float64) (*Receipt, error) {
	return s.submit(ctx, market, side, price, shares, types.OrderLimit)
}

// BuildAndSubmitMarket posts an immediate order at the padded touch price.
func (s *OpinionSubmitter) BuildAndSubmitMarket(ctx context.Context, market *types.Market, side types.Side, shares float64, book *types.Orderbook, slippageBps float64) (*Receipt, error) {
	price, ok := marketLimitPrice(side, book, slippageBps)
	if !ok {
		return nil, &types.OrderError{
			Venue:   types.VenueOpinion,
			Code:    "build",
			Message: "no opposing liquidity for market order",
		}
	}
	return s.submit(ctx, market, side, price, shares, types.OrderMarket)
}

func (s *OpinionSubmitter) submit(ctx context.Context, market *types.Market, side types.Side, price, shares float64, kind types.OrderKind) (*Receipt, error) {
	if market == nil || price <= 0 || price >= 1 || shares <= 0 {
		return nil, &types.OrderError{Venue: types.VenueOpinion, Code: "build", Message: "order out of range"}
	}

	orderType := "LIMIT"
	if kind == types.OrderMarket {
		orderType = "MARKET"
	}

	var result opinionOrderEnvelope
	resp, err := s.http.R().
		SetContext(ctx).
		SetBody(opinionOrderRequest{
			TokenID:   market.TokenID,
			Side:      string(side),
			OrderType: orderType,
			Price:     price,
			Amount:    shares,
		}).
		SetResult(&result).
		Post("/openapi/order")
	if err != nil {
		OrdersSubmittedTotal.WithLabelValues("opinion", string(kind), "error").Inc()
		return nil, &types.TransientNetworkError{Op: "opinion submit order", Err: err}
	}

	if resp.StatusCode() == 401 || resp.StatusCode() == 403 {
		OrdersSubmittedTotal.WithLabelValues("opinion", string(kind), "error").Inc()
		return nil, &types.AuthError{Venue: types.VenueOpinion, Reason: resp.String()}
	}
	if resp.StatusCode() != 200 || result.Code != 0 {
		OrdersSubmittedTotal.WithLabelValues("opinion", string(kind), "error").Inc()
		return nil, &types.OrderError{
			Venue:   types.VenueOpinion,
			Code:    strconv.Itoa(result.Code),
			Message: result.Msg,
		}
	}

	OrdersSubmittedTotal.WithLabelValues("opinion", string(kind), "ok").Inc()
	s.logger.Info("opinion-order-submitted",
		zap.String("token-id", market.TokenID),
		zap.String("side", string(side)),
		zap.Float64("price", price),
		zap.Float64("shares", shares),
		zap.String("order-id", result.Data.OrderID))

	return &Receipt{
		Hash:   result.Data.OrderID,
		Venue:  types.VenueOpinion,
		Kind:   kind,
		Side:   side,
		Price:  price,
		Shares: shares,
		At:     time.Now(),
	}, nil
}

// Cancel removes resting orders by id. Unknown ids succeed.
func (s *OpinionSubmitter) Cancel(ctx context.Context, hashes []string) error {
	if len(hashes) == 0 {
		return nil
	}

	var result opinionOrderEnvelope
	resp, err := s.http.R().
		SetContext(ctx).
		SetBody(map[string][]string{"orderIds": hashes}).
		SetResult(&result).
		Post("/openapi/order/cancel")
	if err != nil {
		return &types.TransientNetworkError{Op: "opinion cancel orders", Err: err}
	}

	if resp.StatusCode() != 200 || result.Code != 0 {
		return &types.OrderError{
			Venue:   types.VenueOpinion,
			Code:    strconv.Itoa(result.Code),
			Message: result.Msg,
		}
	}
	return nil
}

// Addresses returns the account address for both roles.
func (s *OpinionSubmitter) Addresses() (string, string) {
	return s.address, s.address
}

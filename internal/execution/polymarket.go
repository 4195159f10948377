package execution

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	json "github.com/goccy/go-json"
	"github.com/go-resty/resty/v2"
	"github.com/polymarket/go-order-utils/pkg/builder"
	"github.com/polymarket/go-order-utils/pkg/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mselser95/predict-agent/pkg/types"
	"github.com/mselser95/predict-agent/pkg/wallet"
)

const polygonChainID = 137

// PolymarketSubmitter ships signed CLOB orders. L1 auth is the EIP-712 order
// signature; L2 auth is an HMAC over timestamp+method+path+body with the
// url-safe base64 API secret.
type PolymarketSubmitter struct {
	http    *resty.Client
	signer  *wallet.Signer
	builder builder.ExchangeOrderBuilder
	logger  *zap.Logger

	apiKey        string
	secret        string
	passphrase    string
	signatureType model.SignatureType
}

// PolymarketSubmitterConfig holds CLOB credentials and wiring.
type PolymarketSubmitterConfig struct {
	BaseURL       string
	APIKey        string
	Secret        string
	Passphrase    string
	Signer        *wallet.Signer
	SignatureType int
	Timeout       time.Duration
	Logger        *zap.Logger
}

// NewPolymarketSubmitter creates the live Polymarket submitter.
func NewPolymarketSubmitter(cfg PolymarketSubmitterConfig) *PolymarketSubmitter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://clob.polymarket.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &PolymarketSubmitter{
		http: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetTimeout(cfg.Timeout).
			SetHeader("Content-Type", "application/json"),
		signer:        cfg.Signer,
		builder:       builder.NewExchangeOrderBuilderImpl(big.NewInt(polygonChainID), nil),
		logger:        cfg.Logger,
		apiKey:        cfg.APIKey,
		secret:        cfg.Secret,
		passphrase:    cfg.Passphrase,
		signatureType: model.SignatureType(cfg.SignatureType),
	}
}

// clobOrderJSON is the wire form of a signed order. Salt and signatureType
// are integers, everything else strings.
type clobOrderJSON struct {
	Salt          int64  `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Side          string `json:"side"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	SignatureType int    `json:"signatureType"`
	Signature     string `json:"signature"`
}

type clobOrderResponse struct {
	OrderID string `json:"orderID"`
	Status  string `json:"status"`
	Error   string `json:"error"`
}

// BuildAndSubmitLimit signs and posts a GTC limit order.
func (s *PolymarketSubmitter) BuildAndSubmitLimit(ctx context.Context, market *types.Market, side types.Side, price, shares float64) (*Receipt, error) {
	return s.submit(ctx, market, side, price, shares, types.OrderLimit, "GTC")
}

// BuildAndSubmitMarket posts a fill-or-kill order at the padded touch price.
func (s *PolymarketSubmitter) BuildAndSubmitMarket(ctx context.Context, market *types.Market, side types.Side, shares float64, book *types.Orderbook, slippageBps float64) (*Receipt, error) {
	price, ok := marketLimitPrice(side, book, slippageBps)
	if !ok {
		return nil, &types.OrderError{
			Venue:   types.VenuePolymarket,
			Code:    "build",
			Message: "no opposing liquidity for market order",
		}
	}
	return s.submit(ctx, market, side, price, shares, types.OrderMarket, "FOK")
}

func (s *PolymarketSubmitter) submit(ctx context.Context, market *types.Market, side types.Side, price, shares float64, kind types.OrderKind, orderType string) (*Receipt, error) {
	if market == nil || price <= 0 || price >= 1 || shares <= 0 {
		return nil, &types.OrderError{Venue: types.VenuePolymarket, Code: "build", Message: "order out of range"}
	}

	signed, err := s.buildSigned(market.TokenID, side, price, shares)
	if err != nil {
		return nil, &types.OrderError{Venue: types.VenuePolymarket, Code: "build", Message: err.Error()}
	}

	body, err := json.Marshal(map[string]any{
		"order":     signed,
		"owner":     s.apiKey,
		"orderType": orderType,
	})
	if err != nil {
		return nil, &types.OrderError{Venue: types.VenuePolymarket, Code: "encode", Message: err.Error()}
	}

	headers, err := s.l2Headers("POST", "/order", body)
	if err != nil {
		return nil, &types.AuthError{Venue: types.VenuePolymarket, Reason: err.Error()}
	}

	var result clobOrderResponse
	resp, err := s.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetBody(body).
		SetResult(&result).
		Post("/order")
	if err != nil {
		OrdersSubmittedTotal.WithLabelValues("polymarket", string(kind), "error").Inc()
		return nil, &types.TransientNetworkError{Op: "polymarket submit order", Err: err}
	}

	switch resp.StatusCode() {
	case 200, 201:
	case 401, 403:
		OrdersSubmittedTotal.WithLabelValues("polymarket", string(kind), "error").Inc()
		return nil, &types.AuthError{Venue: types.VenuePolymarket, Reason: resp.String()}
	default:
		OrdersSubmittedTotal.WithLabelValues("polymarket", string(kind), "error").Inc()
		return nil, &types.OrderError{
			Venue:   types.VenuePolymarket,
			Code:    strconv.Itoa(resp.StatusCode()),
			Message: resp.String(),
		}
	}

	OrdersSubmittedTotal.WithLabelValues("polymarket", string(kind), "ok").Inc()
	s.logger.Info("polymarket-order-submitted",
		zap.String("token-id", market.TokenID),
		zap.String("side", string(side)),
		zap.Float64("price", price),
		zap.Float64("shares", shares),
		zap.String("order-id", result.OrderID))

	return &Receipt{
		Hash:   result.OrderID,
		Venue:  types.VenuePolymarket,
		Kind:   kind,
		Side:   side,
		Price:  price,
		Shares: shares,
		At:     time.Now(),
	}, nil
}

// Cancel removes resting orders by id. Unknown ids succeed.
func (s *PolymarketSubmitter) Cancel(ctx context.Context, hashes []string) error {
	if len(hashes) == 0 {
		return nil
	}

	body, err := json.Marshal(map[string]any{"orderIDs": hashes})
	if err != nil {
		return &types.OrderError{Venue: types.VenuePolymarket, Code: "encode", Message: err.Error()}
	}

	headers, err := s.l2Headers("DELETE", "/orders", body)
	if err != nil {
		return &types.AuthError{Venue: types.VenuePolymarket, Reason: err.Error()}
	}

	resp, err := s.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetBody(body).
		Delete("/orders")
	if err != nil {
		return &types.TransientNetworkError{Op: "polymarket cancel orders", Err: err}
	}

	switch resp.StatusCode() {
	case 200, 204, 404:
		return nil
	default:
		return &types.OrderError{
			Venue:   types.VenuePolymarket,
			Code:    strconv.Itoa(resp.StatusCode()),
			Message: resp.String(),
		}
	}
}

// Addresses returns the funding and signing addresses.
func (s *PolymarketSubmitter) Addresses() (string, string) {
	return s.signer.MakerAddress(), s.signer.SignerAddress()
}

func (s *PolymarketSubmitter) buildSigned(tokenID string, side types.Side, price, shares float64) (*clobOrderJSON, error) {
	collateral := decimal.NewFromFloat(shares).Mul(decimal.NewFromFloat(price))

	makerAmount := collateral.Shift(6).Round(0).String()
	takerAmount := decimal.NewFromFloat(shares).Shift(6).Round(0).String()
	orderSide := model.BUY
	if side == types.SideSell {
		makerAmount, takerAmount = takerAmount, makerAmount
		orderSide = model.SELL
	}

	data := &model.OrderData{
		Maker:         s.signer.MakerAddress(),
		Taker:         zeroAddress,
		TokenId:       tokenID,
		MakerAmount:   makerAmount,
		TakerAmount:   takerAmount,
		Side:          orderSide,
		FeeRateBps:    "0",
		Nonce:         "0",
		Signer:        s.signer.SignerAddress(),
		Expiration:    "0",
		SignatureType: s.signatureType,
	}

	signed, err := s.builder.BuildSignedOrder(s.signer.Key(), data, model.CTFExchange)
	if err != nil {
		return nil, fmt.Errorf("build signed order: %w", err)
	}

	sideStr := "BUY"
	if signed.Side.Uint64() == uint64(model.SELL) {
		sideStr = "SELL"
	}

	return &clobOrderJSON{
		Salt:          signed.Salt.Int64(),
		Maker:         signed.Maker.Hex(),
		Signer:        signed.Signer.Hex(),
		Taker:         signed.Taker.Hex(),
		TokenID:       signed.TokenId.String(),
		MakerAmount:   signed.MakerAmount.String(),
		TakerAmount:   signed.TakerAmount.String(),
		Side:          sideStr,
		Expiration:    signed.Expiration.String(),
		Nonce:         signed.Nonce.String(),
		FeeRateBps:    signed.FeeRateBps.String(),
		SignatureType: int(signed.SignatureType.Int64()),
		Signature:     "0x" + common.Bytes2Hex(signed.Signature),
	}, nil
}

// l2Headers builds the HMAC request headers. The secret is url-safe base64,
// matching the venue's reference clients.
func (s *PolymarketSubmitter) l2Headers(method, path string, body []byte) (map[string]string, error) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	secret, err := base64.URLEncoding.DecodeString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("decode api secret: %w", err)
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(timestamp + method + path + string(body)))
	signature := base64.URLEncoding.EncodeToString(mac.Sum(nil))

	return map[string]string{
		"POLY_API_KEY":    s.apiKey,
		"POLY_SIGNATURE":  signature,
		"POLY_TIMESTAMP":  timestamp,
		"POLY_PASSPHRASE": s.passphrase,
		"POLY_ADDRESS":    s.signer.SignerAddress(),
	}, nil
}

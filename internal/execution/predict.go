package execution

import (
	"context"
	"encoding/hex"
	"math/rand"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mselser95/predict-agent/internal/venues/predict"
	"github.com/mselser95/predict-agent/pkg/types"
	"github.com/mselser95/predict-agent/pkg/wallet"
)

const zeroAddress = "0x0000000000000000000000000000000000000000"

// PredictSubmitter signs and ships orders to the Predict exchange.
type PredictSubmitter struct {
	client *predict.Client
	signer *wallet.Signer
	logger *zap.Logger

	signatureType int
	feeRateBps    float64
}

// PredictSubmitterConfig holds Predict submitter configuration.
type PredictSubmitterConfig struct {
	Client        *predict.Client
	Signer        *wallet.Signer
	SignatureType int
	FeeRateBps    float64
	Logger        *zap.Logger
}

// NewPredictSubmitter creates the live Predict submitter.
func NewPredictSubmitter(cfg PredictSubmitterConfig) *PredictSubmitter {
	return &PredictSubmitter{
		client:        cfg.Client,
		signer:        cfg.Signer,
		logger:        cfg.Logger,
		signatureType: cfg.SignatureType,
		feeRateBps:    cfg.FeeRateBps,
	}
}

// BuildAndSubmitLimit signs and posts a resting limit order.
func (s *PredictSubmitter) BuildAndSubmitLimit(ctx context.Context, market *types.Market, side types.Side, price, shares float64) (*Receipt, error) {
	if market == nil {
		return nil, &types.OrderError{Venue: types.VenuePredict, Code: "build", Message: "nil market"}
	}
	if price <= 0 || price >= 1 || shares <= 0 {
		return nil, &types.OrderError{
			Venue:   types.VenuePredict,
			Code:    "build",
			Message: "limit order out of range",
		}
	}

	order := s.buildOrder(market.TokenID, side, price, shares)
	req := &predict.SubmitOrderRequest{
		Order:         order,
		PricePerShare: price,
		Strategy:      "LIMIT",
	}

	result, err := s.client.SubmitOrder(ctx, req)
	if err != nil {
		OrdersSubmittedTotal.WithLabelValues("predict", "LIMIT", "error").Inc()
		return nil, err
	}

	OrdersSubmittedTotal.WithLabelValues("predict", "LIMIT", "ok").Inc()
	s.logger.Info("predict-limit-submitted",
		zap.String("token-id", market.TokenID),
		zap.String("side", string(side)),
		zap.Float64("price", price),
		zap.Float64("shares", shares),
		zap.String("hash", result.Hash))

	return &Receipt{
		Hash:   result.Hash,
		Venue:  types.VenuePredict,
		Kind:   types.OrderLimit,
		Side:   side,
		Price:  price,
		Shares: shares,
		At:     time.Now(),
	}, nil
}

// BuildAndSubmitMarket posts a marketable order priced off the opposing touch
// padded by the slippage allowance.
func (s *PredictSubmitter) BuildAndSubmitMarket(ctx context.Context, market *types.Market, side types.Side, shares float64, book *types.Orderbook, slippageBps float64) (*Receipt, error) {
	if market == nil || shares <= 0 {
		return nil, &types.OrderError{Venue: types.VenuePredict, Code: "build", Message: "market order out of range"}
	}

	price, ok := marketLimitPrice(side, book, slippageBps)
	if !ok {
		return nil, &types.OrderError{
			Venue:   types.VenuePredict,
			Code:    "build",
			Message: "no opposing liquidity for market order",
		}
	}

	order := s.buildOrder(market.TokenID, side, price, shares)
	req := &predict.SubmitOrderRequest{
		Order:         order,
		PricePerShare: price,
		Strategy:      "MARKET",
		SlippageBps:   &slippageBps,
	}

	result, err := s.client.SubmitOrder(ctx, req)
	if err != nil {
		OrdersSubmittedTotal.WithLabelValues("predict", "MARKET", "error").Inc()
		return nil, err
	}

	OrdersSubmittedTotal.WithLabelValues("predict", "MARKET", "ok").Inc()
	s.logger.Info("predict-market-submitted",
		zap.String("token-id", market.TokenID),
		zap.String("side", string(side)),
		zap.Float64("limit-price", price),
		zap.Float64("shares", shares),
		zap.String("hash", result.Hash))

	return &Receipt{
		Hash:   result.Hash,
		Venue:  types.VenuePredict,
		Kind:   types.OrderMarket,
		Side:   side,
		Price:  price,
		Shares: shares,
		At:     time.Now(),
	}, nil
}

// Cancel removes resting orders. Unknown hashes succeed.
func (s *PredictSubmitter) Cancel(ctx context.Context, hashes []string) error {
	return s.client.CancelOrders(ctx, hashes)
}

// Addresses returns the funding and signing addresses.
func (s *PredictSubmitter) Addresses() (string, string) {
	return s.signer.MakerAddress(), s.signer.SignerAddress()
}

// buildOrder assembles and signs the venue payload. Amounts are 6-decimal
// raw integers; for a BUY the maker amount is collateral and the taker amount
// shares, mirrored for a SELL.
func (s *PredictSubmitter) buildOrder(tokenID string, side types.Side, price, shares float64) *predict.SignedOrder {
	sharesRaw := rawAmount(shares)
	collateralRaw := rawAmount(decimal.NewFromFloat(shares).Mul(decimal.NewFromFloat(price)).InexactFloat64())

	makerAmount, takerAmount := collateralRaw, sharesRaw
	if side == types.SideSell {
		makerAmount, takerAmount = sharesRaw, collateralRaw
	}

	order := &predict.SignedOrder{
		Salt:          strconv.FormatInt(rand.Int63(), 10),
		Maker:         s.signer.MakerAddress(),
		Signer:        s.signer.SignerAddress(),
		Taker:         zeroAddress,
		TokenID:       tokenID,
		MakerAmount:   makerAmount,
		TakerAmount:   takerAmount,
		Expiration:    "0",
		Nonce:         "0",
		FeeRateBps:    strconv.FormatFloat(s.feeRateBps, 'f', -1, 64),
		Side:          string(side),
		SignatureType: s.signatureType,
	}

	digest := wallet.HashFields(
		order.Salt, order.Maker, order.Signer, order.Taker,
		order.TokenID, order.MakerAmount, order.TakerAmount,
		order.Expiration, order.Nonce, order.FeeRateBps,
		order.Side, strconv.Itoa(order.SignatureType),
	)

	sig, err := s.signer.SignDigest(digest)
	if err != nil {
		// Signing only fails on malformed digests; surface through submit.
		s.logger.Error("predict-order-sign-failed", zap.Error(err))
		return order
	}
	order.Signature = sig
	order.Hash = "0x" + hex.EncodeToString(digest)
	return order
}

// rawAmount renders a quantity as a 6-decimal integer string.
func rawAmount(v float64) string {
	return decimal.NewFromFloat(v).Shift(6).Round(0).String()
}

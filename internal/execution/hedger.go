package execution

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/mselser95/predict-agent/internal/arbitrage"
	"github.com/mselser95/predict-agent/pkg/types"
)

// Hedge modes. FLATTEN closes exposure with a Predict market order; CROSS
// buys the opposing outcome on a peer venue and falls back to FLATTEN.
const (
	HedgeModeNone    = "NONE"
	HedgeModeFlatten = "FLATTEN"
	HedgeModeCross   = "CROSS"
)

// BookSource fetches a current book for a hedge leg.
type BookSource func(ctx context.Context, venue types.Venue, tokenID string) (*types.Orderbook, error)

// Hedger closes directional exposure created by maker fills.
type Hedger struct {
	mode           string
	maxSlippageBps float64
	predict        OrderSubmitter
	peers          map[types.Venue]OrderSubmitter
	resolver       arbitrage.PeerResolver
	books          BookSource
	logger         *zap.Logger
}

// HedgerConfig holds hedger wiring and policy.
type HedgerConfig struct {
	Mode           string
	MaxSlippageBps float64
	Predict        OrderSubmitter
	Peers          map[types.Venue]OrderSubmitter
	Resolver       arbitrage.PeerResolver
	Books          BookSource
	Logger         *zap.Logger
}

// NewHedger creates a hedger.
func NewHedger(cfg HedgerConfig) *Hedger {
	mode := cfg.Mode
	if mode == "" {
		mode = HedgeModeNone
	}
	return &Hedger{
		mode:           mode,
		maxSlippageBps: cfg.MaxSlippageBps,
		predict:        cfg.Predict,
		peers:          cfg.Peers,
		resolver:       cfg.Resolver,
		books:          cfg.Books,
		logger:         cfg.Logger,
	}
}

// HedgeOnFill closes the exposure deltaNet (positive = net long the token).
// The book is the token's current Predict book; peers are the candidate peer
// markets for a cross hedge. Returns nil with no error when hedging is off.
func (h *Hedger) HedgeOnFill(ctx context.Context, market *types.Market, deltaNet float64, book *types.Orderbook, peers []types.Market) (*Receipt, error) {
	if h.mode == HedgeModeNone || deltaNet == 0 {
		return nil, nil
	}

	if h.mode == HedgeModeCross {
		receipt, err := h.hedgeCross(ctx, market, deltaNet, peers)
		if err == nil {
			HedgesTotal.WithLabelValues(HedgeModeCross, "ok").Inc()
			return receipt, nil
		}
		HedgesTotal.WithLabelValues(HedgeModeCross, "fallback").Inc()
		h.logger.Warn("cross-hedge-fallback",
			zap.String("token-id", market.TokenID),
			zap.Error(err))
	}

	receipt, err := h.flatten(ctx, market, deltaNet, book)
	if err != nil {
		HedgesTotal.WithLabelValues(HedgeModeFlatten, "error").Inc()
		return nil, err
	}
	HedgesTotal.WithLabelValues(HedgeModeFlatten, "ok").Inc()
	return receipt, nil
}

// flatten submits a Predict market order of |deltaNet| shares opposing the
// net direction.
func (h *Hedger) flatten(ctx context.Context, market *types.Market, deltaNet float64, book *types.Orderbook) (*Receipt, error) {
	side := types.SideSell
	if deltaNet < 0 {
		side = types.SideBuy
	}
	shares := math.Abs(deltaNet)

	receipt, err := h.predict.BuildAndSubmitMarket(ctx, market, side, shares, book, h.maxSlippageBps)
	if err != nil {
		return nil, err
	}

	h.logger.Info("hedge-flattened",
		zap.String("token-id", market.TokenID),
		zap.String("side", string(side)),
		zap.Float64("shares", shares),
		zap.String("hash", receipt.Hash))
	return receipt, nil
}

// hedgeCross buys the opposing outcome on a mapped or textually matched peer
// market at top-of-book.
func (h *Hedger) hedgeCross(ctx context.Context, market *types.Market, deltaNet float64, peers []types.Market) (*Receipt, error) {
	if h.resolver == nil || h.books == nil {
		return nil, fmt.Errorf("cross hedge not wired")
	}

	matches := h.resolver.Resolve(market, peers)
	if len(matches) == 0 {
		return nil, fmt.Errorf("no peer match for %q", market.Question)
	}
	match := matches[0]

	submitter := h.peers[match.Venue]
	if submitter == nil {
		return nil, fmt.Errorf("no submitter for venue %s", match.Venue)
	}

	// Long YES hedges with NO, short YES with YES; inverted for NO tokens.
	longYes := (deltaNet > 0) == market.IsYes()
	tokenID := match.NoTokenID
	outcome := types.OutcomeNo
	if !longYes {
		tokenID = match.YesTokenID
		outcome = types.OutcomeYes
	}
	if tokenID == "" {
		return nil, fmt.Errorf("match missing %s token", outcome)
	}

	book, err := h.books(ctx, match.Venue, tokenID)
	if err != nil {
		return nil, fmt.Errorf("fetch hedge book: %w", err)
	}

	peer := &types.Market{Venue: match.Venue, TokenID: tokenID, Outcome: outcome}
	receipt, err := submitter.BuildAndSubmitMarket(ctx, peer, types.SideBuy, math.Abs(deltaNet), book, h.maxSlippageBps)
	if err != nil {
		return nil, err
	}

	h.logger.Info("hedge-crossed",
		zap.String("token-id", market.TokenID),
		zap.String("peer-venue", string(match.Venue)),
		zap.String("peer-token-id", tokenID),
		zap.Float64("shares", math.Abs(deltaNet)),
		zap.String("hash", receipt.Hash))
	return receipt, nil
}

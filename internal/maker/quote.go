package maker

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/predict-agent/pkg/types"
)

// touchEpsilon keeps quotes strictly inside the observed touch.
const touchEpsilon = 1e-5

// quote is a finished two-sided target.
type quote struct {
	bid       float64
	ask       float64
	bidShares float64
	askShares float64
}

// computeQuote derives the target quote: micro-price, inventory skew,
// bounded imbalance skew, optional value blend, then tick rounding and touch
// clamping. Returns false when no valid quote exists.
func (m *Maker) computeQuote(s *tokenState, market *types.Market, book *types.Orderbook, mid float64) (quote, bool) {
	bestBid, okBid := book.BestBid()
	bestAsk, okAsk := book.BestAsk()
	if !okBid || !okAsk {
		return quote{}, false
	}

	spread := m.effectiveSpread(s)
	fair := mid

	// Inventory skew: shift away from the side we are already long.
	if m.cfg.MaxPosition > 0 && m.cfg.Positions != nil {
		bias := m.cfg.Positions.Net(market.TokenID) / m.cfg.MaxPosition
		fair *= 1 - bias*m.cfg.InventorySkewFactor*spread
	}

	// Order-book imbalance skew, bounded.
	if m.cfg.ImbalanceWeight > 0 {
		bidDepth := topDepthSide(book.Bids, m.cfg.DepthLevels)
		askDepth := topDepthSide(book.Asks, m.cfg.DepthLevels)
		if total := bidDepth + askDepth; total > 0 {
			skew := (bidDepth - askDepth) / total * m.cfg.ImbalanceWeight
			limit := m.cfg.ImbalanceMaxSkew
			if limit > 0 {
				skew = math.Max(-limit, math.Min(limit, skew))
			}
			fair *= 1 + skew
		}
	}

	// Value-signal blend, weight clamped to 0.9.
	if m.cfg.UseValueSignal && m.cfg.Value != nil {
		if value, confidence, ok := m.cfg.Value(market.TokenID); ok && confidence >= m.cfg.ValueConfidenceMin {
			w := confidence * m.cfg.ValueSignalWeight
			if w > 0.9 {
				w = 0.9
			}
			fair = fair*(1-w) + value*w
		}
	}

	half := spread / 2
	bid := fair * (1 - half)
	ask := fair * (1 + half)

	// Round toward the inside of the spread.
	tick := m.cfg.PriceTick
	bid = math.Ceil(bid/tick-1e-9) * tick
	ask = math.Floor(ask/tick+1e-9) * tick

	// Clamp into the touch, minus an optional buffer.
	buffer := touchEpsilon + m.cfg.TouchBufferBps/10_000
	low := bestBid.Price + buffer
	high := bestAsk.Price - buffer
	bid = math.Max(bid, low)
	bid = math.Min(bid, high)
	ask = math.Min(ask, high)
	ask = math.Max(ask, low)

	// Global price bounds.
	bid = math.Max(bid, 0.01)
	ask = math.Min(ask, 0.99)

	if bid >= ask-touchEpsilon {
		return quote{}, false
	}

	bidShares := m.sizeSide(s, market, book, bid, types.SideBuy)
	askShares := m.sizeSide(s, market, book, ask, types.SideSell)
	if bidShares < 1 && askShares < 1 {
		return quote{}, false
	}

	return quote{bid: bid, ask: ask, bidShares: bidShares, askShares: askShares}, true
}

// effectiveSpread applies the profile multiplier, the fill-risk bump, and the
// configured bounds.
func (m *Maker) effectiveSpread(s *tokenState) float64 {
	spread := m.cfg.Spread * s.profile.spreadMult()
	if s.recentAntiFill {
		spread += m.cfg.FillRiskSpreadBumpBps / 10_000
	}
	if m.cfg.MinSpread > 0 && spread < m.cfg.MinSpread {
		spread = m.cfg.MinSpread
	}
	if m.cfg.MaxSpread > 0 && spread > m.cfg.MaxSpread {
		spread = m.cfg.MaxSpread
	}
	return spread
}

// sizeSide walks the sizing chain: order size, position budget, single-order
// value cap, depth fraction, activation floor, profile scale, iceberg slice.
func (m *Maker) sizeSide(s *tokenState, market *types.Market, book *types.Orderbook, price float64, side types.Side) float64 {
	shares := m.cfg.OrderSize

	// Remaining position budget in shares, directional.
	if m.cfg.MaxPosition > 0 && m.cfg.Positions != nil {
		net := m.cfg.Positions.Net(market.TokenID)
		budget := m.cfg.MaxPosition - net
		if side == types.SideSell {
			budget = m.cfg.MaxPosition + net
		}
		if budget <= 0 {
			return 0
		}
		shares = math.Min(shares, budget)
	}

	if m.cfg.MaxSingleOrderValue > 0 && price > 0 {
		shares = math.Min(shares, m.cfg.MaxSingleOrderValue/price)
	}

	if m.cfg.OrderDepthUsage > 0 {
		levels := book.Asks
		if side == types.SideBuy {
			levels = book.Bids
		}
		if depth := topDepthSide(levels, m.cfg.DepthLevels); depth > 0 {
			shares = math.Min(shares, depth*m.cfg.OrderDepthUsage)
		}
	}

	// Rewards-program activation floor.
	if market.Activation != nil && market.Activation.Active && market.Activation.MinShares > shares {
		shares = market.Activation.MinShares
	}

	shares *= s.profile.sizeScale()

	if m.cfg.IcebergEnabled && m.cfg.IcebergRatio > 0 {
		slice := math.Max(1, shares*m.cfg.IcebergRatio)
		if m.cfg.IcebergMaxChunkShares > 0 {
			slice = math.Min(slice, m.cfg.IcebergMaxChunkShares)
		}
		shares = slice
	}

	return math.Floor(shares)
}

// manageOrders runs the per-order risk passes and tops both sides back up to
// the per-side order cap.
func (m *Maker) manageOrders(ctx context.Context, s *tokenState, market *types.Market, q quote, book *types.Orderbook, now time.Time) {
	bestBid, _ := book.BestBid()
	bestAsk, _ := book.BestAsk()
	volMul := m.volMultiplier(s)

	s.bids = m.riskPass(ctx, s, market, s.bids, q.bid, bestAsk.Price, volMul, now)
	s.asks = m.riskPass(ctx, s, market, s.asks, q.ask, bestBid.Price, volMul, now)
	if s.state == StatePaused || now.Before(s.pauseUntil) {
		return
	}

	requote := m.cfg.IcebergEnabled && m.cfg.IcebergRequote > 0 &&
		now.Sub(s.lastIcebergAt) >= m.cfg.IcebergRequote

	if now.Sub(s.lastOrderAt) < m.cfg.MinOrderInterval && !requote {
		return
	}

	placed := false
	if q.bidShares >= 1 {
		placed = m.fillLayers(ctx, s, market, types.SideBuy, q.bid, q.bidShares, now) || placed
	}
	if q.askShares >= 1 {
		placed = m.fillLayers(ctx, s, market, types.SideSell, q.ask, q.askShares, now) || placed
	}

	if placed {
		s.lastOrderAt = now
		s.lastIcebergAt = now
		s.state = StateQuoting
	} else if len(s.bids) == 0 && len(s.asks) == 0 {
		s.state = StateIdle
	}
}

// fillLayers places orders until the side holds MaxOrdersPerSide, each extra
// layer one tick further from the target. Returns true when anything was
// placed.
func (m *Maker) fillLayers(ctx context.Context, s *tokenState, market *types.Market, side types.Side, target, shares float64, now time.Time) bool {
	orders := &s.bids
	step := -m.cfg.PriceTick
	if side == types.SideSell {
		orders = &s.asks
		step = m.cfg.PriceTick
	}

	placed := false
	for layer := len(*orders); layer < m.cfg.MaxOrdersPerSide; layer++ {
		price := target + float64(layer)*step
		if price < 0.01 || price > 0.99 {
			break
		}
		order := m.place(ctx, market, side, price, shares, now)
		if order == nil {
			break
		}
		*orders = append(*orders, order)
		placed = true
	}
	return placed
}

// riskPass evaluates one side's resting orders and returns the survivors.
func (m *Maker) riskPass(ctx context.Context, s *tokenState, market *types.Market, orders []*openOrder, target, oppositeTouch, volMul float64, now time.Time) []*openOrder {
	kept := orders[:0]
	for _, order := range orders {
		if m.cancelAtRisk(ctx, s, market, order, target, oppositeTouch, volMul, now) {
			continue
		}
		kept = append(kept, order)
	}
	return kept
}

// cancelAtRisk cancels one resting order when a risk rule fires: anti-fill,
// near-touch, refresh, and reprice, in that order.
func (m *Maker) cancelAtRisk(ctx context.Context, s *tokenState, market *types.Market, order *openOrder, target, oppositeTouch, volMul float64, now time.Time) bool {
	distance := math.Abs(oppositeTouch-order.price) / order.price * 10_000

	if m.cfg.AntiFillBps > 0 && distance <= m.cfg.AntiFillBps*volMul {
		m.cancelOrder(ctx, market.TokenID, order, "anti-fill")
		s.recentAntiFill = true
		s.state = StatePaused
		s.pauseUntil = now.Add(m.cfg.PauseAfterVolatility)
		return true
	}

	if m.cfg.NearTouchBps > 0 && distance <= m.cfg.NearTouchBps*volMul {
		m.cancelOrder(ctx, market.TokenID, order, "near-touch")
		return true
	}

	if m.cfg.OrderRefresh > 0 && now.Sub(order.placedAt) > m.cfg.OrderRefresh {
		m.cancelOrder(ctx, market.TokenID, order, "refresh")
		return true
	}

	if m.cfg.RepriceThreshold > 0 && order.price > 0 {
		drift := math.Abs(target-order.price) / order.price
		if drift >= m.cfg.RepriceThreshold/volMul {
			m.cancelOrder(ctx, market.TokenID, order, "reprice")
			return true
		}
	}

	return false
}

func (m *Maker) place(ctx context.Context, market *types.Market, side types.Side, price, shares float64, now time.Time) *openOrder {
	receipt, err := m.cfg.Submitter.BuildAndSubmitLimit(ctx, market, side, price, shares)
	if err != nil {
		m.logger.Error("maker-quote-failed",
			zap.String("token-id", market.TokenID),
			zap.String("side", string(side)),
			zap.Float64("price", price),
			zap.Error(err))
		return nil
	}

	QuotesPlacedTotal.WithLabelValues(string(side)).Inc()
	m.logger.Debug("maker-quote-placed",
		zap.String("token-id", market.TokenID),
		zap.String("side", string(side)),
		zap.Float64("price", price),
		zap.Float64("shares", shares),
		zap.String("hash", receipt.Hash))

	return &openOrder{hash: receipt.Hash, price: price, shares: shares, placedAt: now}
}

// cancelQuotes cancels both resting sides for one token.
func (m *Maker) cancelQuotes(ctx context.Context, s *tokenState, tokenID, reason string) {
	var hashes []string
	for _, order := range s.bids {
		hashes = append(hashes, order.hash)
	}
	for _, order := range s.asks {
		hashes = append(hashes, order.hash)
	}
	if len(hashes) == 0 {
		return
	}

	if err := m.cfg.Submitter.Cancel(ctx, hashes); err != nil {
		m.logger.Error("maker-cancel-failed",
			zap.String("token-id", tokenID),
			zap.String("reason", reason),
			zap.Error(err))
		return
	}

	CancelsTotal.WithLabelValues(reason).Add(float64(len(hashes)))
	m.logger.Info("maker-quotes-canceled",
		zap.String("token-id", tokenID),
		zap.String("reason", reason),
		zap.Int("count", len(hashes)))

	s.bids = nil
	s.asks = nil
}

func (m *Maker) cancelOrder(ctx context.Context, tokenID string, order *openOrder, reason string) {
	if err := m.cfg.Submitter.Cancel(ctx, []string{order.hash}); err != nil {
		m.logger.Error("maker-cancel-failed",
			zap.String("token-id", tokenID),
			zap.String("reason", reason),
			zap.Error(err))
		return
	}
	CancelsTotal.WithLabelValues(reason).Inc()
}

func topDepthSide(levels []types.Level, n int) float64 {
	total := 0.0
	for i, l := range levels {
		if i >= n {
			break
		}
		total += l.Shares
	}
	return total
}

package execution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/predict-agent/pkg/types"
)

// PaperSubmitter simulates fills in memory. Limit orders rest until canceled;
// market orders fill against the provided book immediately. It is the default
// submitter so a misconfigured process never trades real money.
type PaperSubmitter struct {
	venue  types.Venue
	logger *zap.Logger

	mu     sync.Mutex
	seq    int
	orders map[string]types.Order
}

// NewPaperSubmitter creates a paper submitter for one venue.
func NewPaperSubmitter(venue types.Venue, logger *zap.Logger) *PaperSubmitter {
	return &PaperSubmitter{
		venue:  venue,
		logger: logger,
		orders: make(map[string]types.Order),
	}
}

// BuildAndSubmitLimit records a resting paper order.
func (p *PaperSubmitter) BuildAndSubmitLimit(_ context.Context, market *types.Market, side types.Side, price, shares float64) (*Receipt, error) {
	if market == nil {
		return nil, &types.OrderError{Venue: p.venue, Code: "paper", Message: "nil market"}
	}
	if price <= 0 || price >= 1 || shares <= 0 {
		return nil, &types.OrderError{
			Venue:   p.venue,
			Code:    "paper",
			Message: fmt.Sprintf("rejected limit %s %.4f x %.2f", side, price, shares),
		}
	}

	now := time.Now()
	hash := p.nextHash()
	p.mu.Lock()
	p.orders[hash] = types.Order{
		Hash:      hash,
		TokenID:   market.TokenID,
		Kind:      types.OrderLimit,
		Side:      side,
		Price:     price,
		Shares:    shares,
		Status:    types.OrderOpen,
		CreatedAt: now,
	}
	p.mu.Unlock()

	OrdersSubmittedTotal.WithLabelValues(string(p.venue), "LIMIT", "paper").Inc()
	p.logger.Info("paper-limit-order",
		zap.String("token-id", market.TokenID),
		zap.String("side", string(side)),
		zap.Float64("price", price),
		zap.Float64("shares", shares),
		zap.String("hash", hash))

	return &Receipt{Hash: hash, Venue: p.venue, Kind: types.OrderLimit, Side: side, Price: price, Shares: shares, At: now}, nil
}

// BuildAndSubmitMarket fills immediately at the book's marketable price.
func (p *PaperSubmitter) BuildAndSubmitMarket(_ context.Context, market *types.Market, side types.Side, shares float64, book *types.Orderbook, slippageBps float64) (*Receipt, error) {
	if market == nil || shares <= 0 {
		return nil, &types.OrderError{Venue: p.venue, Code: "paper", Message: "rejected market order"}
	}

	price, ok := marketLimitPrice(side, book, slippageBps)
	if !ok {
		return nil, &types.OrderError{Venue: p.venue, Code: "paper", Message: "no opposing liquidity for market order"}
	}

	now := time.Now()
	hash := p.nextHash()
	p.mu.Lock()
	p.orders[hash] = types.Order{
		Hash:      hash,
		TokenID:   market.TokenID,
		Kind:      types.OrderMarket,
		Side:      side,
		Price:     price,
		Shares:    shares,
		Status:    types.OrderFilled,
		CreatedAt: now,
	}
	p.mu.Unlock()

	OrdersSubmittedTotal.WithLabelValues(string(p.venue), "MARKET", "paper").Inc()
	p.logger.Info("paper-market-order",
		zap.String("token-id", market.TokenID),
		zap.String("side", string(side)),
		zap.Float64("price", price),
		zap.Float64("shares", shares),
		zap.String("hash", hash))

	return &Receipt{Hash: hash, Venue: p.venue, Kind: types.OrderMarket, Side: side, Price: price, Shares: shares, At: now}, nil
}

// Cancel marks resting paper orders canceled. Unknown hashes are a no-op.
func (p *PaperSubmitter) Cancel(_ context.Context, hashes []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, h := range hashes {
		order, ok := p.orders[h]
		if !ok || order.Status != types.OrderOpen {
			continue
		}
		order.Status = types.OrderCanceled
		p.orders[h] = order
	}
	return nil
}

// Addresses returns placeholder addresses.
func (p *PaperSubmitter) Addresses() (string, string) {
	return "paper", "paper"
}

// Orders returns a copy of every order the submitter has seen.
func (p *PaperSubmitter) Orders() []types.Order {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]types.Order, 0, len(p.orders))
	for _, o := range p.orders {
		out = append(out, o)
	}
	return out
}

func (p *PaperSubmitter) nextHash() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	return fmt.Sprintf("paper-%s-%d", p.venue, p.seq)
}

package circuitbreaker

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/mselser95/predict-agent/pkg/wallet"
)

// BalanceFetcher fetches on-chain balances for the funding wallet. Both
// wallet.Client and test mocks implement it.
type BalanceFetcher interface {
	GetBalances(ctx context.Context, address common.Address) (*wallet.Balances, error)
}

// BalanceBreaker pauses live order submission when the funding wallet can no
// longer cover a typical trade. Thresholds track the rolling average trade
// size and use hysteresis so a balance hovering near the line does not flap
// the breaker.
type BalanceBreaker struct {
	enabled atomic.Bool // Atomic for lock-free reads

	checkInterval   time.Duration
	fetcher         BalanceFetcher
	address         common.Address
	logger          *zap.Logger
	tradeMultiplier float64
	minAbsolute     float64
	hysteresisRatio float64

	mu               sync.RWMutex
	lastBalance      float64
	lastCheck        time.Time
	recentTrades     []float64
	disableThreshold float64
	enableThreshold  float64
}

// BalanceConfig holds balance breaker configuration.
type BalanceConfig struct {
	CheckInterval   time.Duration
	TradeMultiplier float64 // Disable below avg trade size * multiplier
	MinAbsolute     float64 // Absolute USD floor for the disable threshold
	HysteresisRatio float64 // Re-enable at ratio * disable threshold
	Fetcher         BalanceFetcher
	Address         common.Address
	Logger          *zap.Logger
}

// BalanceStatus holds current balance breaker state for the admin endpoint.
type BalanceStatus struct {
	Enabled          bool      `json:"enabled"`
	LastBalance      float64   `json:"lastBalance"`
	LastCheck        time.Time `json:"lastCheck"`
	DisableThreshold float64   `json:"disableThreshold"`
	EnableThreshold  float64   `json:"enableThreshold"`
	AvgTradeSize     float64   `json:"avgTradeSize"`
	RecentTradeCount int       `json:"recentTradeCount"`
}

// tradeWindow bounds the rolling trade-size sample.
const tradeWindow = 20

// NewBalance creates a new balance breaker with the given configuration.
func NewBalance(cfg *BalanceConfig) (*BalanceBreaker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("balance fetcher cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.CheckInterval <= 0 {
		return nil, fmt.Errorf("check interval must be positive")
	}
	if cfg.TradeMultiplier <= 0 {
		return nil, fmt.Errorf("trade multiplier must be positive")
	}
	if cfg.MinAbsolute <= 0 {
		return nil, fmt.Errorf("min absolute must be positive")
	}
	if cfg.HysteresisRatio < 1.0 {
		return nil, fmt.Errorf("hysteresis ratio must be >= 1.0")
	}

	b := &BalanceBreaker{
		checkInterval:    cfg.CheckInterval,
		fetcher:          cfg.Fetcher,
		address:          cfg.Address,
		logger:           cfg.Logger,
		tradeMultiplier:  cfg.TradeMultiplier,
		minAbsolute:      cfg.MinAbsolute,
		hysteresisRatio:  cfg.HysteresisRatio,
		recentTrades:     make([]float64, 0, tradeWindow),
		disableThreshold: cfg.MinAbsolute,
		enableThreshold:  cfg.MinAbsolute * cfg.HysteresisRatio,
	}

	// Start enabled; the first check corrects us if the wallet is dry.
	b.enabled.Store(true)

	BalanceEnabled.Set(1)
	BalanceDisableThreshold.Set(b.disableThreshold)
	BalanceEnableThreshold.Set(b.enableThreshold)

	return b, nil
}

// IsEnabled reports whether live orders may be submitted. Lock-free.
func (b *BalanceBreaker) IsEnabled() bool {
	return b.enabled.Load()
}

// RecordTrade adds a trade to the rolling window and recalculates thresholds.
// Call after a successful live execution.
func (b *BalanceBreaker) RecordTrade(tradeSize float64) {
	if tradeSize <= 0 {
		b.logger.Warn("invalid-trade-size",
			zap.Float64("size", tradeSize))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.recentTrades = append(b.recentTrades, tradeSize)
	if len(b.recentTrades) > tradeWindow {
		b.recentTrades = b.recentTrades[1:]
	}

	avg := avgOf(b.recentTrades)
	b.disableThreshold = math.Max(avg*b.tradeMultiplier, b.minAbsolute)
	b.enableThreshold = b.disableThreshold * b.hysteresisRatio

	BalanceAvgTradeSize.Set(avg)
	BalanceDisableThreshold.Set(b.disableThreshold)
	BalanceEnableThreshold.Set(b.enableThreshold)

	b.logger.Debug("balance-thresholds-updated",
		zap.Float64("avg-trade-size", avg),
		zap.Int("trade-count", len(b.recentTrades)),
		zap.Float64("disable-threshold", b.disableThreshold),
		zap.Float64("enable-threshold", b.enableThreshold))
}

// CheckBalance fetches the funding balance and applies the hysteresis rule.
func (b *BalanceBreaker) CheckBalance(ctx context.Context) error {
	balances, err := b.fetcher.GetBalances(ctx, b.address)
	if err != nil {
		b.logger.Error("balance-check-failed",
			zap.String("address", b.address.Hex()),
			zap.Error(err))
		return fmt.Errorf("get balances: %w", err)
	}

	usdc := new(big.Float).Quo(
		new(big.Float).SetInt(balances.USDC),
		big.NewFloat(1e6))
	balance, _ := usdc.Float64()

	b.mu.Lock()
	b.lastBalance = balance
	b.lastCheck = time.Now()
	disableThreshold := b.disableThreshold
	enableThreshold := b.enableThreshold
	b.mu.Unlock()

	BalanceUSDC.Set(balance)

	enabled := b.enabled.Load()
	switch {
	case enabled && balance < disableThreshold:
		b.enabled.Store(false)
		BalanceEnabled.Set(0)
		BalanceStateChanges.Inc()
		b.logger.Warn("balance-breaker-disabled",
			zap.Float64("balance", balance),
			zap.Float64("disable-threshold", disableThreshold))
	case !enabled && balance >= enableThreshold:
		b.enabled.Store(true)
		BalanceEnabled.Set(1)
		BalanceStateChanges.Inc()
		b.logger.Info("balance-breaker-enabled",
			zap.Float64("balance", balance),
			zap.Float64("enable-threshold", enableThreshold))
	default:
		b.logger.Debug("balance-checked",
			zap.Float64("balance", balance),
			zap.Bool("enabled", enabled))
	}

	return nil
}

// Start checks once immediately, then monitors in the background until the
// context is cancelled.
func (b *BalanceBreaker) Start(ctx context.Context) {
	b.logger.Info("balance-breaker-started",
		zap.Duration("check-interval", b.checkInterval),
		zap.Float64("trade-multiplier", b.tradeMultiplier),
		zap.Float64("min-absolute", b.minAbsolute))

	if err := b.CheckBalance(ctx); err != nil {
		b.logger.Error("initial-balance-check-failed", zap.Error(err))
	}

	go b.monitorLoop(ctx)
}

func (b *BalanceBreaker) monitorLoop(ctx context.Context) {
	ticker := time.NewTicker(b.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("balance-breaker-stopped")
			return
		case <-ticker.C:
			if err := b.CheckBalance(ctx); err != nil {
				b.logger.Error("balance-check-error", zap.Error(err))
			}
		}
	}
}

// GetStatus returns current balance breaker state for the admin endpoint.
func (b *BalanceBreaker) GetStatus() BalanceStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return BalanceStatus{
		Enabled:          b.enabled.Load(),
		LastBalance:      b.lastBalance,
		LastCheck:        b.lastCheck,
		DisableThreshold: b.disableThreshold,
		EnableThreshold:  b.enableThreshold,
		AvgTradeSize:     avgOf(b.recentTrades),
		RecentTradeCount: len(b.recentTrades),
	}
}

func avgOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Tracker polls the funding wallet and publishes balances, positions, and
// portfolio aggregates as Prometheus gauges.
type Tracker struct {
	client       *Client
	address      common.Address
	pollInterval time.Duration
	logger       *zap.Logger
}

// TrackerConfig holds tracker configuration.
type TrackerConfig struct {
	RPCURL       string
	DataAPIURL   string
	Address      common.Address
	PollInterval time.Duration
	Logger       *zap.Logger
}

// NewTracker creates a new funding-wallet tracker.
func NewTracker(cfg *TrackerConfig) (*Tracker, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.RPCURL == "" {
		return nil, errors.New("rpc url cannot be empty")
	}
	if cfg.PollInterval <= 0 {
		return nil, errors.New("poll interval must be positive")
	}

	client, err := NewClient(ClientConfig{
		RPCURL:     cfg.RPCURL,
		DataAPIURL: cfg.DataAPIURL,
		Logger:     cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	return &Tracker{
		client:       client,
		address:      cfg.Address,
		pollInterval: cfg.PollInterval,
		logger:       cfg.Logger,
	}, nil
}

// Run starts the polling loop and blocks until the context is cancelled.
func (t *Tracker) Run(ctx context.Context) error {
	t.logger.Info("wallet-tracker-starting",
		zap.Duration("poll-interval", t.pollInterval),
		zap.String("address", t.address.Hex()))

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	if err := t.poll(ctx); err != nil {
		t.logger.Error("initial-poll-failed", zap.Error(err))
		UpdateErrorsTotal.Inc()
	}

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("wallet-tracker-stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := t.poll(ctx); err != nil {
				t.logger.Error("poll-failed", zap.Error(err))
				UpdateErrorsTotal.Inc()
			}
		}
	}
}

func (t *Tracker) poll(ctx context.Context) error {
	start := time.Now()
	defer func() {
		UpdateDuration.Observe(time.Since(start).Seconds())
	}()

	balCtx, balCancel := context.WithTimeout(ctx, 15*time.Second)
	defer balCancel()

	balances, err := t.client.GetBalances(balCtx, t.address)
	if err != nil {
		return fmt.Errorf("get balances: %w", err)
	}

	posCtx, posCancel := context.WithTimeout(ctx, 15*time.Second)
	defer posCancel()

	positions, err := t.client.GetPositions(posCtx, t.address.Hex())
	if err != nil {
		return fmt.Errorf("get positions: %w", err)
	}

	t.updateMetrics(balances, positions)
	LastUpdateTimestamp.Set(float64(time.Now().Unix()))

	t.logger.Debug("wallet-poll-complete",
		zap.Int("position-count", len(positions)),
		zap.Duration("duration", time.Since(start)))

	return nil
}

func (t *Tracker) updateMetrics(balances *Balances, positions []WalletPosition) {
	MATICBalance.Set(bigToFloat(balances.MATIC, 1e18))
	usdcVal := bigToFloat(balances.USDC, 1e6)
	USDCBalance.Set(usdcVal)
	USDCAllowance.Set(bigToFloat(balances.USDCAllowance, 1e6))

	totalValue := 0.0
	totalCost := 0.0
	totalPnL := 0.0
	for _, pos := range positions {
		totalValue += pos.Value
		totalCost += pos.InitialValue
		totalPnL += pos.CashPnL
	}

	ActivePositions.Set(float64(len(positions)))
	TotalPositionValue.Set(totalValue)
	TotalPositionCost.Set(totalCost)
	UnrealizedPnL.Set(totalPnL)

	pnlPct := 0.0
	if totalCost > 0 {
		pnlPct = totalPnL / totalCost * 100
	}
	UnrealizedPnLPercent.Set(pnlPct)

	PortfolioValue.Set(usdcVal + totalValue)
}

func bigToFloat(v *big.Int, decimals float64) float64 {
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(v), big.NewFloat(decimals)).Float64()
	return f
}

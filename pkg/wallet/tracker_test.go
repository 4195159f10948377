package wallet

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

func TestNewTrackerValidation(t *testing.T) {
	logger := zap.NewNop()
	address := common.HexToAddress("0x1234567890123456789012345678901234567890")

	tests := []struct {
		name    string
		cfg     *TrackerConfig
		wantErr bool
	}{
		{
			name: "valid",
			cfg: &TrackerConfig{
				RPCURL:       "https://polygon-rpc.com",
				Address:      address,
				PollInterval: time.Minute,
				Logger:       logger,
			},
		},
		{name: "nil config", cfg: nil, wantErr: true},
		{
			name: "nil logger",
			cfg: &TrackerConfig{
				RPCURL:       "https://polygon-rpc.com",
				Address:      address,
				PollInterval: time.Minute,
			},
			wantErr: true,
		},
		{
			name: "empty rpc url",
			cfg: &TrackerConfig{
				Address:      address,
				PollInterval: time.Minute,
				Logger:       logger,
			},
			wantErr: true,
		},
		{
			name: "zero poll interval",
			cfg: &TrackerConfig{
				RPCURL:  "https://polygon-rpc.com",
				Address: address,
				Logger:  logger,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker, err := NewTracker(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewTracker() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && tracker == nil {
				t.Fatal("NewTracker() returned nil tracker")
			}
		})
	}
}

func TestTrackerRunStopsOnCancel(t *testing.T) {
	tracker, err := NewTracker(&TrackerConfig{
		RPCURL:       "https://polygon-rpc.com",
		Address:      common.HexToAddress("0x1234567890123456789012345678901234567890"),
		PollInterval: time.Minute,
		Logger:       zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() {
		done <- tracker.Run(ctx)
	}()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not exit after context cancellation")
	}
}

func TestTrackerUpdateMetrics(t *testing.T) {
	tracker, err := NewTracker(&TrackerConfig{
		RPCURL:       "https://polygon-rpc.com",
		Address:      common.HexToAddress("0x1234567890123456789012345678901234567890"),
		PollInterval: time.Minute,
		Logger:       zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}

	tests := []struct {
		name      string
		balances  *Balances
		positions []WalletPosition
	}{
		{
			name: "balances and positions",
			balances: &Balances{
				MATIC:         big.NewInt(5e18),
				USDC:          big.NewInt(100e6),
				USDCAllowance: big.NewInt(1000e6),
			},
			positions: []WalletPosition{
				{MarketSlug: "market-1", Value: 110, InitialValue: 100, CashPnL: 10},
				{MarketSlug: "market-2", Value: 48, InitialValue: 50, CashPnL: -2},
			},
		},
		{
			name: "zero balances no positions",
			balances: &Balances{
				MATIC:         big.NewInt(0),
				USDC:          big.NewInt(0),
				USDCAllowance: big.NewInt(0),
			},
		},
		{
			name: "zero cost avoids division by zero",
			balances: &Balances{
				MATIC:         big.NewInt(0),
				USDC:          big.NewInt(0),
				USDCAllowance: big.NewInt(0),
			},
			positions: []WalletPosition{
				{Value: 10, InitialValue: 0, CashPnL: 10},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker.updateMetrics(tt.balances, tt.positions)
		})
	}
}

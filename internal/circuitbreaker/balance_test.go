package circuitbreaker

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/mselser95/predict-agent/pkg/wallet"
)

type fakeFetcher struct {
	mu   sync.Mutex
	usdc *big.Int
	err  error
}

func (f *fakeFetcher) GetBalances(_ context.Context, _ common.Address) (*wallet.Balances, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &wallet.Balances{
		MATIC:         big.NewInt(0),
		USDC:          new(big.Int).Set(f.usdc),
		USDCAllowance: big.NewInt(0),
	}, nil
}

func (f *fakeFetcher) set(usdc *big.Int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.usdc = usdc
	f.err = err
}

func newTestBalanceBreaker(t *testing.T, fetcher *fakeFetcher) *BalanceBreaker {
	t.Helper()

	b, err := NewBalance(&BalanceConfig{
		CheckInterval:   time.Minute,
		TradeMultiplier: 2.0,
		MinAbsolute:     100,
		HysteresisRatio: 1.5,
		Fetcher:         fetcher,
		Address:         common.HexToAddress("0x1234567890abcdef1234567890abcdef12345678"),
		Logger:          zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("new balance breaker: %v", err)
	}
	return b
}

// usd converts a USD amount to 6-decimal USDC units.
func usd(v int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(v), big.NewInt(1_000_000))
}

func TestBalanceBreakerDisablesBelowThreshold(t *testing.T) {
	fetcher := &fakeFetcher{usdc: usd(500)}
	b := newTestBalanceBreaker(t, fetcher)

	if err := b.CheckBalance(context.Background()); err != nil {
		t.Fatalf("check: %v", err)
	}
	if !b.IsEnabled() {
		t.Fatal("disabled with healthy balance")
	}

	fetcher.set(usd(50), nil)
	if err := b.CheckBalance(context.Background()); err != nil {
		t.Fatalf("check: %v", err)
	}
	if b.IsEnabled() {
		t.Fatal("still enabled below the 100 USD floor")
	}
}

func TestBalanceBreakerHysteresis(t *testing.T) {
	fetcher := &fakeFetcher{usdc: usd(50)}
	b := newTestBalanceBreaker(t, fetcher)

	_ = b.CheckBalance(context.Background())
	if b.IsEnabled() {
		t.Fatal("should be disabled")
	}

	// Above the disable floor but below enable = floor * 1.5 stays disabled.
	fetcher.set(usd(120), nil)
	_ = b.CheckBalance(context.Background())
	if b.IsEnabled() {
		t.Fatal("re-enabled inside the hysteresis band")
	}

	fetcher.set(usd(160), nil)
	_ = b.CheckBalance(context.Background())
	if !b.IsEnabled() {
		t.Fatal("not re-enabled above the enable threshold")
	}
}

func TestBalanceBreakerTradeSizeRaisesThreshold(t *testing.T) {
	fetcher := &fakeFetcher{usdc: usd(500)}
	b := newTestBalanceBreaker(t, fetcher)

	// Average 200 USD per trade, multiplier 2 -> disable below 400.
	b.RecordTrade(150)
	b.RecordTrade(250)

	status := b.GetStatus()
	if status.DisableThreshold != 400 {
		t.Errorf("disable threshold = %v, want 400", status.DisableThreshold)
	}
	if status.EnableThreshold != 600 {
		t.Errorf("enable threshold = %v, want 600", status.EnableThreshold)
	}

	fetcher.set(usd(350), nil)
	_ = b.CheckBalance(context.Background())
	if b.IsEnabled() {
		t.Fatal("still enabled below the trade-derived threshold")
	}
}

func TestBalanceBreakerRollingWindowCaps(t *testing.T) {
	fetcher := &fakeFetcher{usdc: usd(500)}
	b := newTestBalanceBreaker(t, fetcher)

	for i := 0; i < 30; i++ {
		b.RecordTrade(10)
	}

	if status := b.GetStatus(); status.RecentTradeCount != tradeWindow {
		t.Errorf("trade count = %d, want %d", status.RecentTradeCount, tradeWindow)
	}
}

func TestBalanceBreakerIgnoresInvalidTrade(t *testing.T) {
	fetcher := &fakeFetcher{usdc: usd(500)}
	b := newTestBalanceBreaker(t, fetcher)

	b.RecordTrade(0)
	b.RecordTrade(-5)

	if status := b.GetStatus(); status.RecentTradeCount != 0 {
		t.Errorf("trade count = %d, want 0", status.RecentTradeCount)
	}
}

func TestBalanceBreakerFetchErrorKeepsState(t *testing.T) {
	fetcher := &fakeFetcher{usdc: usd(500)}
	b := newTestBalanceBreaker(t, fetcher)

	_ = b.CheckBalance(context.Background())
	if !b.IsEnabled() {
		t.Fatal("should be enabled")
	}

	fetcher.set(nil, errors.New("rpc down"))
	if err := b.CheckBalance(context.Background()); err == nil {
		t.Fatal("expected fetch error")
	}
	if !b.IsEnabled() {
		t.Fatal("fetch error flipped the breaker")
	}
}

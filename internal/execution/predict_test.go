package execution

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mselser95/predict-agent/internal/venues/predict"
	"github.com/mselser95/predict-agent/pkg/types"
	"github.com/mselser95/predict-agent/pkg/wallet"
)

// Throwaway key for signing tests.
const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func newPredictSubmitter(t *testing.T, baseURL string) *PredictSubmitter {
	t.Helper()

	signer, err := wallet.NewSigner(testKeyHex, "")
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	client := predict.NewClient(predict.Config{
		BaseURL: baseURL,
		Timeout: 5 * time.Second,
		Logger:  zap.NewNop(),
	})

	return NewPredictSubmitter(PredictSubmitterConfig{
		Client: client,
		Signer: signer,
		Logger: zap.NewNop(),
	})
}

func TestPredictSubmitterLimit(t *testing.T) {
	var captured struct {
		Data predict.SubmitOrderRequest `json:"data"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/orders" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"order":{"hash":"0xabc","status":"OPEN"}}}`))
	}))
	defer srv.Close()

	s := newPredictSubmitter(t, srv.URL)
	market := &types.Market{Venue: types.VenuePredict, TokenID: "tok-1", Outcome: types.OutcomeYes}

	receipt, err := s.BuildAndSubmitLimit(context.Background(), market, types.SideBuy, 0.42, 100)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if receipt.Hash != "0xabc" {
		t.Errorf("hash = %q", receipt.Hash)
	}

	order := captured.Data.Order
	if order == nil {
		t.Fatal("no order in request body")
	}
	if order.TokenID != "tok-1" || order.Side != "BUY" {
		t.Errorf("order = %+v", order)
	}
	// BUY: maker pays 42 USDC for 100 shares, 6-decimal raw integers.
	if order.MakerAmount != "42000000" || order.TakerAmount != "100000000" {
		t.Errorf("amounts = %s/%s, want 42000000/100000000", order.MakerAmount, order.TakerAmount)
	}
	if !strings.HasPrefix(order.Signature, "0x") || len(order.Signature) != 132 {
		t.Errorf("signature = %q", order.Signature)
	}
	if captured.Data.Strategy != "LIMIT" {
		t.Errorf("strategy = %q", captured.Data.Strategy)
	}
	maker, signer := s.Addresses()
	if order.Maker != maker || order.Signer != signer {
		t.Errorf("addresses = %s/%s, want %s/%s", order.Maker, order.Signer, maker, signer)
	}
}

func TestPredictSubmitterMarketUsesSlippage(t *testing.T) {
	var captured struct {
		Data predict.SubmitOrderRequest `json:"data"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte(`{"data":{"order":{"hash":"0xdef","status":"FILLED"}}}`))
	}))
	defer srv.Close()

	s := newPredictSubmitter(t, srv.URL)
	market := &types.Market{Venue: types.VenuePredict, TokenID: "tok-1"}
	book := &types.Orderbook{
		Venue:     types.VenuePredict,
		TokenID:   "tok-1",
		Bids:      []types.Level{{Price: 0.48, Shares: 100}},
		Asks:      []types.Level{{Price: 0.52, Shares: 100}},
		UpdatedAt: time.Now(),
	}

	receipt, err := s.BuildAndSubmitMarket(context.Background(), market, types.SideSell, 60, book, 100)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if receipt.Kind != types.OrderMarket {
		t.Errorf("kind = %s", receipt.Kind)
	}

	if captured.Data.Strategy != "MARKET" {
		t.Errorf("strategy = %q", captured.Data.Strategy)
	}
	if captured.Data.SlippageBps == nil || *captured.Data.SlippageBps != 100 {
		t.Errorf("slippageBps = %v", captured.Data.SlippageBps)
	}
}

func TestPredictSubmitterRejectsBadLimit(t *testing.T) {
	s := newPredictSubmitter(t, "http://127.0.0.1:0")
	market := &types.Market{Venue: types.VenuePredict, TokenID: "tok-1"}

	if _, err := s.BuildAndSubmitLimit(context.Background(), market, types.SideBuy, 1.2, 100); err == nil {
		t.Error("expected rejection of price above 1")
	}
	if _, err := s.BuildAndSubmitLimit(context.Background(), market, types.SideBuy, 0.5, 0); err == nil {
		t.Error("expected rejection of zero shares")
	}
}

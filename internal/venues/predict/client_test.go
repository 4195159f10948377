package predict

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/predict-agent/pkg/types"
)

func newTestClient(baseURL string) *Client {
	return NewClient(Config{
		BaseURL:           baseURL,
		Timeout:           2 * time.Second,
		RequestsPerSecond: 1000,
		Logger:            zap.NewNop(),
	})
}

func TestClientMarketsPathFallback(t *testing.T) {
	var v1Hits, fallbackHits atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/markets":
			v1Hits.Add(1)
			w.WriteHeader(http.StatusNotFound)
		case "/markets":
			fallbackHits.Add(1)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":[{"tokenId":"tok-1","question":"q","active":true}]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	markets, err := client.Markets(context.Background(), 10)
	if err != nil {
		t.Fatalf("Markets: %v", err)
	}
	if len(markets) != 1 || markets[0].TokenID != "tok-1" {
		t.Errorf("markets = %v", markets)
	}

	// The working path is cached: a second call must not probe /v1 again.
	_, err = client.Markets(context.Background(), 10)
	if err != nil {
		t.Fatalf("Markets second call: %v", err)
	}
	if v1Hits.Load() != 1 {
		t.Errorf("v1 probe hits = %d, want 1", v1Hits.Load())
	}
	if fallbackHits.Load() != 2 {
		t.Errorf("fallback hits = %d, want 2", fallbackHits.Load())
	}
}

func TestClientOrderbook(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/markets/tok-1/orderbook" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"tokenId": "tok-1",
			"bids": [{"price": "0.49", "quantity": "80"}],
			"asks": [{"price": "0.51", "quantity": "20"}]
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	book, err := client.Orderbook(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("Orderbook: %v", err)
	}
	if book.TokenID != "tok-1" || len(book.Bids) != 1 || len(book.Asks) != 1 {
		t.Errorf("book = %+v", book)
	}
	if err := book.Validate(); err != nil {
		t.Errorf("decoded book fails validation: %v", err)
	}
}

func TestClientAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Markets(context.Background(), 1)
	if !types.IsAuth(err) {
		t.Errorf("error = %v, want AuthError", err)
	}
}

func TestClientRateLimitError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Orderbook(context.Background(), "tok-1")
	if !types.IsRateLimit(err) {
		t.Fatalf("error = %v, want RateLimitError", err)
	}

	var rle *types.RateLimitError
	if errors.As(err, &rle) && rle.RetryAfter != 3*time.Second {
		t.Errorf("retry after = %v, want 3s", rle.RetryAfter)
	}
}

func TestClientTransientRetry(t *testing.T) {
	var hits atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Markets(context.Background(), 1)
	if err != nil {
		t.Fatalf("Markets after retry: %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("hits = %d, want 2 (one retry)", hits.Load())
	}
}

func TestClientSubmitOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/orders" || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"order":{"hash":"0xabc","status":"OPEN"}}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	result, err := client.SubmitOrder(context.Background(), &SubmitOrderRequest{
		Order:         &SignedOrder{Hash: "0xabc", TokenID: "tok-1"},
		PricePerShare: 0.5,
		Strategy:      "LIMIT",
	})
	if err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}
	if result.Hash != "0xabc" || result.Status != "OPEN" {
		t.Errorf("result = %+v", result)
	}
}

func TestClientSubmitOrderRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"insufficient balance"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.SubmitOrder(context.Background(), &SubmitOrderRequest{
		Order: &SignedOrder{Hash: "0xabc"},
	})

	var oe *types.OrderError
	if !errors.As(err, &oe) {
		t.Fatalf("error = %v, want OrderError", err)
	}
}

func TestClientCancelUnknownIsNoop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	err := client.CancelOrders(context.Background(), []string{"0xunknown"})
	if err != nil {
		t.Errorf("cancel of unknown handle should be a no-op, got %v", err)
	}
}

func TestClientCancelEmptyIsNoop(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1")
	if err := client.CancelOrders(context.Background(), nil); err != nil {
		t.Errorf("cancel with no ids should not touch the network, got %v", err)
	}
}

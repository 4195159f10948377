package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mselser95/predict-agent/internal/arbitrage"
	"github.com/mselser95/predict-agent/internal/maker"
	"github.com/mselser95/predict-agent/internal/orderbook"
	"github.com/mselser95/predict-agent/pkg/healthprobe"
	"github.com/mselser95/predict-agent/pkg/types"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	books := orderbook.New(&orderbook.Config{Logger: zap.NewNop()})
	if err := books.Put(&types.Orderbook{
		Venue:     types.VenuePredict,
		TokenID:   "tok-1",
		Bids:      []types.Level{{Price: 0.50, Shares: 80}},
		Asks:      []types.Level{{Price: 0.51, Shares: 20}},
		UpdatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("seed book: %v", err)
	}

	health := healthprobe.New()
	health.SetReady(true)

	return New(&Config{
		Port:   "8080",
		Logger: zap.NewNop(),
		Health: health,
		Books:  books,
		Markets: func() []types.Market {
			return []types.Market{{Venue: types.VenuePredict, TokenID: "tok-1", Question: "Will it rain?"}}
		},
		Opportunities: func() []arbitrage.Opportunity {
			return []arbitrage.Opportunity{{Type: arbitrage.TypeIntraVenue, Key: "INTRA_VENUE:mkt-1", Edge: 0.03, Size: 100}}
		},
		MakerStatus: func() []maker.TokenStatus {
			return []maker.TokenStatus{{TokenID: "tok-1", State: maker.StateQuoting}}
		},
	})
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestServerHealthAndReady(t *testing.T) {
	s := newTestServer(t)

	if w := get(t, s, "/health"); w.Code != http.StatusOK {
		t.Errorf("/health = %d", w.Code)
	}
	if w := get(t, s, "/ready"); w.Code != http.StatusOK {
		t.Errorf("/ready = %d", w.Code)
	}
	if w := get(t, s, "/metrics"); w.Code != http.StatusOK {
		t.Errorf("/metrics = %d", w.Code)
	}
}

func TestServerOrderbookEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := get(t, s, "/api/orderbook?venue=predict&token=tok-1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}

	var book types.Orderbook
	if err := json.NewDecoder(w.Body).Decode(&book); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if book.TokenID != "tok-1" || len(book.Bids) != 1 || book.Bids[0].Price != 0.50 {
		t.Errorf("book = %+v", book)
	}
}

func TestServerOrderbookErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		path string
		want int
	}{
		{name: "missing token", path: "/api/orderbook?venue=predict", want: http.StatusBadRequest},
		{name: "unknown venue", path: "/api/orderbook?venue=nyse&token=tok-1", want: http.StatusBadRequest},
		{name: "unknown token", path: "/api/orderbook?venue=predict&token=nope", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, s, tt.path)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			var errResp ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&errResp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if errResp.Error == "" {
				t.Error("empty error message")
			}
		})
	}
}

func TestServerDefaultVenueIsPredict(t *testing.T) {
	s := newTestServer(t)

	w := get(t, s, "/api/orderbook?token=tok-1")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}

func TestServerDataEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := get(t, s, "/api/markets")
	if w.Code != http.StatusOK {
		t.Fatalf("/api/markets = %d", w.Code)
	}
	var markets []types.Market
	if err := json.NewDecoder(w.Body).Decode(&markets); err != nil {
		t.Fatalf("decode markets: %v", err)
	}
	if len(markets) != 1 || markets[0].TokenID != "tok-1" {
		t.Errorf("markets = %+v", markets)
	}

	w = get(t, s, "/api/opportunities")
	if w.Code != http.StatusOK {
		t.Fatalf("/api/opportunities = %d", w.Code)
	}
	var opps []arbitrage.Opportunity
	if err := json.NewDecoder(w.Body).Decode(&opps); err != nil {
		t.Fatalf("decode opportunities: %v", err)
	}
	if len(opps) != 1 || opps[0].Key != "INTRA_VENUE:mkt-1" {
		t.Errorf("opportunities = %+v", opps)
	}

	if w := get(t, s, "/api/maker"); w.Code != http.StatusOK {
		t.Errorf("/api/maker = %d", w.Code)
	}
}

func TestServerUnmountedRoutes(t *testing.T) {
	health := healthprobe.New()
	s := New(&Config{Port: "8080", Logger: zap.NewNop(), Health: health})

	if w := get(t, s, "/api/orderbook?token=tok-1"); w.Code != http.StatusNotFound {
		t.Errorf("unmounted orderbook route = %d", w.Code)
	}
	if w := get(t, s, "/api/breaker"); w.Code != http.StatusNotFound {
		t.Errorf("unmounted breaker route = %d", w.Code)
	}
}

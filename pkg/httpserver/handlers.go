package httpserver

import (
	"net/http"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mselser95/predict-agent/pkg/types"
)

type handlers struct {
	cfg    *Config
	logger *zap.Logger
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleOrderbook serves GET /api/orderbook?venue=<venue>&token=<tokenId>.
func (h *handlers) handleOrderbook(w http.ResponseWriter, r *http.Request) {
	venue := types.Venue(r.URL.Query().Get("venue"))
	if venue == "" {
		venue = types.VenuePredict
	}
	if !venue.Valid() {
		h.writeError(w, "unknown venue "+string(venue), http.StatusBadRequest)
		return
	}

	tokenID := r.URL.Query().Get("token")
	if tokenID == "" {
		h.writeError(w, "missing required query parameter: token", http.StatusBadRequest)
		return
	}

	book, ok := h.cfg.Books.Get(types.BookKey{Venue: venue, TokenID: tokenID})
	if !ok {
		h.writeError(w, "orderbook not available", http.StatusNotFound)
		return
	}

	h.writeJSON(w, book)
}

// handleMarkets serves GET /api/markets.
func (h *handlers) handleMarkets(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, h.cfg.Markets())
}

// handleOpportunities serves GET /api/opportunities.
func (h *handlers) handleOpportunities(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, h.cfg.Opportunities())
}

// handleMaker serves GET /api/maker.
func (h *handlers) handleMaker(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, h.cfg.MakerStatus())
}

// handleBreaker serves GET /api/breaker.
func (h *handlers) handleBreaker(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, h.cfg.BreakerStatus())
}

func (h *handlers) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode-response-failed", zap.Error(err))
	}
}

func (h *handlers) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: message}); err != nil {
		h.logger.Error("encode-error-response-failed", zap.Error(err))
	}
}

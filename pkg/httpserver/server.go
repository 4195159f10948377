// Package httpserver serves the admin surface: Prometheus metrics, health
// probes, and read-only JSON views of books, opportunities, and maker state.
package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mselser95/predict-agent/internal/arbitrage"
	"github.com/mselser95/predict-agent/internal/circuitbreaker"
	"github.com/mselser95/predict-agent/internal/maker"
	"github.com/mselser95/predict-agent/internal/orderbook"
	"github.com/mselser95/predict-agent/pkg/healthprobe"
	"github.com/mselser95/predict-agent/pkg/types"
)

// Server provides the HTTP admin endpoints.
type Server struct {
	server *http.Server
	logger *zap.Logger
}

// Config holds server configuration. The data sources are optional; routes
// without a source are simply not mounted.
type Config struct {
	Port   string
	Logger *zap.Logger
	Health *healthprobe.HealthChecker

	Books         *orderbook.Store
	Markets       func() []types.Market
	Opportunities func() []arbitrage.Opportunity
	MakerStatus   func() []maker.TokenStatus
	BreakerStatus func() circuitbreaker.Status
}

// New creates a new HTTP server.
func New(cfg *Config) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/health", cfg.Health.Health())
	r.Get("/ready", cfg.Health.Ready())

	h := &handlers{cfg: cfg, logger: cfg.Logger}
	if cfg.Books != nil {
		r.Get("/api/orderbook", h.handleOrderbook)
	}
	if cfg.Markets != nil {
		r.Get("/api/markets", h.handleMarkets)
	}
	if cfg.Opportunities != nil {
		r.Get("/api/opportunities", h.handleOpportunities)
	}
	if cfg.MakerStatus != nil {
		r.Get("/api/maker", h.handleMaker)
	}
	if cfg.BreakerStatus != nil {
		r.Get("/api/breaker", h.handleBreaker)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{server: server, logger: cfg.Logger}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start blocks until the server stops or fails.
func (s *Server) Start() error {
	s.logger.Info("http-server-starting", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http-server-shutting-down")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("http-server-shutdown-complete")
	return nil
}

package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/predict-agent/pkg/types"
)

// Run starts every component and blocks until a shutdown signal arrives.
func (a *App) Run() error {
	a.logger.Info("agent-starting",
		zap.String("mode", a.cfg.ExecutionMode),
		zap.Bool("trading-enabled", a.cfg.EnableTrading),
		zap.Bool("maker", a.opts.RunMaker),
		zap.Bool("monitor", a.opts.RunMonitor),
		zap.String("log-level", a.cfg.LogLevel))

	if err := a.startComponents(); err != nil {
		return err
	}

	a.health.SetReady(true)
	a.logger.Info("agent-ready", zap.String("http-addr", ":"+a.cfg.HTTPPort))

	return a.waitForShutdown()
}

func (a *App) startComponents() error {
	a.wg.Add(1)
	go a.runHTTPServer()

	// Prime the catalog so feeds can subscribe and loops start with markets.
	if err := a.catalog.RefreshAll(a.ctx); err != nil {
		a.logger.Warn("catalog-initial-refresh-failed", zap.Error(err))
	}
	a.wg.Add(1)
	go a.runCatalog()

	a.startFeeds()

	a.wg.Add(1)
	go a.runFeedWatchdog()

	if a.opts.RunMaker {
		a.wg.Add(1)
		go a.runPositionRefresh()
		a.wg.Add(1)
		go a.runMaker()
	}

	if a.opts.RunMonitor {
		a.wg.Add(1)
		go a.runMonitor()
	}

	a.wg.Add(1)
	go a.runStateFlush()

	return nil
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	if err := a.server.Start(); err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) runCatalog() {
	defer a.wg.Done()
	err := a.catalog.Run(a.ctx, a.cfg.ArbMarketsCacheMs)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("catalog-error", zap.Error(err))
	}
}

// startFeeds dials every enabled feed and subscribes it to its venue's
// current market list. Failures are logged, not fatal; the monitor falls
// back to REST books.
func (a *App) startFeeds() {
	for venue, feed := range a.feeds {
		if err := feed.Start(); err != nil {
			a.logger.Error("feed-start-failed",
				zap.String("venue", string(venue)),
				zap.Error(err))
			a.health.SetComponent(string(venue)+"-ws", false)
			continue
		}
		a.subscribeFeed(venue)
	}
}

func (a *App) subscribeFeed(venue types.Venue) {
	markets, err := a.catalog.Markets(a.ctx, venue)
	if err != nil {
		a.logger.Warn("feed-subscribe-no-markets",
			zap.String("venue", string(venue)),
			zap.Error(err))
		return
	}
	if err := a.feeds[venue].Subscribe(a.ctx, markets); err != nil {
		a.logger.Error("feed-subscribe-failed",
			zap.String("venue", string(venue)),
			zap.Int("markets", len(markets)),
			zap.Error(err))
	}
}

// runFeedWatchdog keeps readiness components in sync with feed health and
// refreshes subscriptions so newly discovered markets start streaming.
func (a *App) runFeedWatchdog() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.cfg.WsHealthCheckMs)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			for venue, feed := range a.feeds {
				status := feed.Status()
				healthy := status.Healthy(a.cfg.WsHealthMaxAgeMs)
				a.health.SetComponent(string(venue)+"-ws", healthy)
				if !healthy {
					a.logger.Warn("feed-unhealthy",
						zap.String("venue", string(venue)),
						zap.Bool("connected", status.Connected),
						zap.Time("last-frame", status.LastFrameAt),
						zap.Uint64("reconnects", status.Reconnects))
					continue
				}
				// Subscribe is idempotent; this picks up new markets.
				a.subscribeFeed(venue)
			}
		}
	}
}

func (a *App) runPositionRefresh() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.cfg.MMPassIntervalMs)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			if err := a.positions.Refresh(a.ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Debug("position-refresh-failed", zap.Error(err))
			}
		}
	}
}

func (a *App) runMaker() {
	defer a.wg.Done()

	a.maker.Run(a.ctx,
		func(ctx context.Context) []types.Market {
			markets, err := a.catalog.PredictMarkets(ctx)
			if err != nil {
				return nil
			}
			return markets
		},
		func(ctx context.Context, tokenID string) (*types.Orderbook, error) {
			key := types.BookKey{Venue: types.VenuePredict, TokenID: tokenID}
			if book, ok := a.books.GetFresh(key, a.cfg.ArbWsMaxAgeMs); ok {
				return book, nil
			}
			return a.clients[types.VenuePredict].Orderbook(ctx, tokenID)
		},
	)
}

func (a *App) runMonitor() {
	defer a.wg.Done()
	err := a.monitor.Run(a.ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("monitor-error", zap.Error(err))
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}

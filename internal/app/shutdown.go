package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// shutdownTimeout bounds the whole teardown.
const shutdownTimeout = 5 * time.Second

// Shutdown stops every component, cancels resting quotes, and flushes state.
func (a *App) Shutdown() error {
	a.logger.Info("agent-shutting-down")

	a.health.SetReady(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// Pull resting quotes before the order path goes away.
	if a.opts.RunMaker {
		a.maker.CancelAll(shutdownCtx)
	}

	a.cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	for venue, feed := range a.feeds {
		if err := feed.Close(); err != nil {
			a.logger.Error("feed-close-error",
				zap.String("venue", string(venue)),
				zap.Error(err))
		}
	}

	a.wg.Wait()

	if err := a.store.Close(); err != nil {
		a.logger.Error("storage-close-error", zap.Error(err))
	}

	a.logger.Info("agent-shutdown-complete")
	return nil
}

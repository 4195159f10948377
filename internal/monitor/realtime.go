package monitor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/predict-agent/internal/arbitrage"
	"github.com/mselser95/predict-agent/pkg/types"
)

// realtimeLoop scans reactively off book updates instead of waiting for the
// next periodic tick. Updated tokens accumulate in a dirty set and are
// flushed on an interval as one batched scan over a restricted snapshot.
// Peer-venue updates go into a separate set so a busy Predict feed cannot
// starve cross-venue rescans.
func (m *Monitor) realtimeLoop(ctx context.Context) error {
	updates, cancel := m.cfg.Books.Subscribe(256)
	defer cancel()

	ticker := time.NewTicker(m.cfg.RealtimeInterval)
	defer ticker.Stop()

	m.logger.Info("realtime-loop-started",
		zap.Duration("interval", m.cfg.RealtimeInterval),
		zap.Int("max-batch", m.cfg.RealtimeMaxBatch))

	dirty := make(map[types.BookKey]struct{})
	crossDirty := make(map[types.BookKey]struct{})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case key, ok := <-updates:
			if !ok {
				return nil
			}
			if key.Venue == types.VenuePredict {
				dirty[key] = struct{}{}
			} else {
				crossDirty[key] = struct{}{}
			}
		case <-ticker.C:
			if len(dirty) == 0 && len(crossDirty) == 0 {
				continue
			}
			batch := takeBatch(dirty, m.cfg.RealtimeMaxBatch)
			crossBatch := takeBatch(crossDirty, m.cfg.RealtimeMaxBatch)
			m.realtimeScan(ctx, batch, crossBatch)
		}
	}
}

// takeBatch removes up to n keys from the set and returns them.
func takeBatch(set map[types.BookKey]struct{}, n int) []types.BookKey {
	if len(set) == 0 {
		return nil
	}
	batch := make([]types.BookKey, 0, n)
	for key := range set {
		batch = append(batch, key)
		delete(set, key)
		if len(batch) >= n {
			break
		}
	}
	return batch
}

// realtimeScan builds a restricted snapshot around the dirty tokens and runs
// the detectors on it. Books come from the store only; a token whose cached
// book has gone stale is simply absent and its markets are skipped by the
// detectors.
func (m *Monitor) realtimeScan(ctx context.Context, batch, crossBatch []types.BookKey) {
	start := m.now()
	defer func() {
		ScanDurationSeconds.WithLabelValues("realtime").Observe(time.Since(start).Seconds())
	}()
	ScansTotal.WithLabelValues("realtime").Inc()

	markets, err := m.cfg.Catalog.PredictMarkets(ctx)
	if err != nil {
		m.logger.Warn("realtime-markets-unavailable", zap.Error(err))
		return
	}

	dirtyTokens := make(map[string]struct{}, len(batch))
	for _, key := range batch {
		dirtyTokens[key.TokenID] = struct{}{}
	}

	// Expand dirty Predict tokens to their full YES/NO groups so a single
	// side's update still lets the pair detectors see both legs.
	dirtyGroups := make(map[string]struct{})
	for i := range markets {
		if _, ok := dirtyTokens[markets[i].TokenID]; ok {
			dirtyGroups[markets[i].GroupKey()] = struct{}{}
		}
	}

	snap := &arbitrage.Snapshot{
		Books: make(map[types.BookKey]*types.Orderbook),
		At:    m.now(),
	}

	crossActive := len(crossBatch) > 0
	for i := range markets {
		market := markets[i]
		_, inGroup := dirtyGroups[market.GroupKey()]
		if !inGroup && !crossActive {
			continue
		}
		snap.Markets = append(snap.Markets, market)
	}
	if m.cfg.MaxMarkets > 0 && len(snap.Markets) > m.cfg.MaxMarkets {
		snap.Markets = snap.Markets[:m.cfg.MaxMarkets]
	}

	if crossActive {
		crossTokens := make(map[string]struct{}, len(crossBatch))
		for _, key := range crossBatch {
			crossTokens[key.TokenID] = struct{}{}
		}
		for venue := range m.cfg.Clients {
			if venue == types.VenuePredict {
				continue
			}
			peers, err := m.cfg.Catalog.PeerMarkets(ctx, venue)
			if err != nil {
				continue
			}
			for i := range peers {
				if _, ok := crossTokens[peers[i].TokenID]; ok {
					snap.Markets = append(snap.Markets, peers[i])
				}
			}
		}
	}

	for i := range snap.Markets {
		market := snap.Markets[i]
		key := types.BookKey{Venue: market.Venue, TokenID: market.TokenID}
		if book, ok := m.cfg.Books.GetFresh(key, m.cfg.WsMaxAge); ok {
			snap.Books[key] = book
		}
	}

	if len(snap.Markets) == 0 || len(snap.Books) == 0 {
		return
	}

	m.scan(ctx, snap)
}

// Package discovery maintains the market catalog: the active Predict list
// plus normalized peer-venue lists, fetched through the venue clients and
// cached with per-venue TTLs so scan loops never hammer the REST APIs.
package discovery

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mselser95/predict-agent/internal/venues"
	"github.com/mselser95/predict-agent/pkg/cache"
	"github.com/mselser95/predict-agent/pkg/types"
)

// venueSource binds one venue client to its cache policy.
type venueSource struct {
	client venues.Client
	ttl    time.Duration
	max    int
}

// Catalog serves market lists for every venue, cache-first.
type Catalog struct {
	sources map[types.Venue]venueSource
	cache   cache.Cache
	logger  *zap.Logger
}

// Config holds catalog configuration. TTLs and caps come from the scanner
// settings (markets cache interval and the per-venue market caps).
type Config struct {
	Predict    venues.Client
	Polymarket venues.Client
	Opinion    venues.Client

	Cache cache.Cache

	PredictTTL    time.Duration
	PolymarketTTL time.Duration
	OpinionTTL    time.Duration

	PredictMax    int
	PolymarketMax int
	OpinionMax    int

	Logger *zap.Logger
}

// New creates a market catalog.
func New(cfg *Config) *Catalog {
	sources := make(map[types.Venue]venueSource, 3)
	if cfg.Predict != nil {
		sources[types.VenuePredict] = venueSource{cfg.Predict, cfg.PredictTTL, cfg.PredictMax}
	}
	if cfg.Polymarket != nil {
		sources[types.VenuePolymarket] = venueSource{cfg.Polymarket, cfg.PolymarketTTL, cfg.PolymarketMax}
	}
	if cfg.Opinion != nil {
		sources[types.VenueOpinion] = venueSource{cfg.Opinion, cfg.OpinionTTL, cfg.OpinionMax}
	}

	return &Catalog{
		sources: sources,
		cache:   cfg.Cache,
		logger:  cfg.Logger,
	}
}

// PredictMarkets returns the active primary-venue list.
func (c *Catalog) PredictMarkets(ctx context.Context) ([]types.Market, error) {
	return c.Markets(ctx, types.VenuePredict)
}

// PeerMarkets returns the normalized list for a peer venue.
func (c *Catalog) PeerMarkets(ctx context.Context, venue types.Venue) ([]types.Market, error) {
	if venue == types.VenuePredict {
		return nil, fmt.Errorf("peer markets: %s is the primary venue", venue)
	}
	return c.Markets(ctx, venue)
}

// Markets returns the market list for one venue, from cache when fresh.
func (c *Catalog) Markets(ctx context.Context, venue types.Venue) ([]types.Market, error) {
	src, ok := c.sources[venue]
	if !ok {
		return nil, fmt.Errorf("markets: no client for venue %s", venue)
	}

	key := cacheKey(venue)
	if cached, found := c.cache.Get(key); found {
		if markets, ok := cached.([]types.Market); ok {
			CacheServesTotal.WithLabelValues(string(venue)).Inc()
			return markets, nil
		}
	}

	return c.refresh(ctx, venue, src)
}

// RefreshAll repopulates every venue's list concurrently. One venue failing
// fails the call but the other lists still land in the cache.
func (c *Catalog) RefreshAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for venue, src := range c.sources {
		venue, src := venue, src
		g.Go(func() error {
			_, err := c.refresh(ctx, venue, src)
			if err != nil {
				return fmt.Errorf("refresh %s: %w", venue, err)
			}
			return nil
		})
	}

	return g.Wait()
}

// Run refreshes the catalog on an interval until the context ends.
func (c *Catalog) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := c.RefreshAll(ctx); err != nil {
		c.logger.Error("catalog-initial-refresh-failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.RefreshAll(ctx); err != nil {
				c.logger.Error("catalog-refresh-failed", zap.Error(err))
			}
		}
	}
}

// Invalidate drops one venue's cached list.
func (c *Catalog) Invalidate(venue types.Venue) {
	c.cache.Delete(cacheKey(venue))
}

func (c *Catalog) refresh(ctx context.Context, venue types.Venue, src venueSource) ([]types.Market, error) {
	start := time.Now()
	markets, err := src.client.Markets(ctx, src.max)
	RefreshDurationSeconds.WithLabelValues(string(venue)).Observe(time.Since(start).Seconds())
	if err != nil {
		RefreshErrorsTotal.WithLabelValues(string(venue)).Inc()
		return nil, err
	}

	active := make([]types.Market, 0, len(markets))
	for i := range markets {
		if markets[i].Active {
			active = append(active, markets[i])
		}
	}
	if src.max > 0 && len(active) > src.max {
		active = active[:src.max]
	}

	MarketsDiscovered.WithLabelValues(string(venue)).Set(float64(len(active)))
	c.cache.Set(cacheKey(venue), active, src.ttl)

	c.logger.Debug("catalog-refreshed",
		zap.String("venue", string(venue)),
		zap.Int("markets", len(active)),
		zap.Duration("took", time.Since(start)))

	return active, nil
}

func cacheKey(venue types.Venue) string {
	return "markets:" + string(venue)
}

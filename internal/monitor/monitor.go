// Package monitor runs the arbitrage scan loops: a periodic full scan over
// the market universe and an optional realtime loop driven by book updates.
// Detected opportunities are recorded, alerted, and — when every gate agrees —
// handed to the executor.
package monitor

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/mselser95/predict-agent/internal/alert"
	"github.com/mselser95/predict-agent/internal/arbitrage"
	"github.com/mselser95/predict-agent/internal/circuitbreaker"
	"github.com/mselser95/predict-agent/internal/discovery"
	"github.com/mselser95/predict-agent/internal/execution"
	"github.com/mselser95/predict-agent/internal/orderbook"
	"github.com/mselser95/predict-agent/internal/storage"
	"github.com/mselser95/predict-agent/internal/venues"
	"github.com/mselser95/predict-agent/pkg/types"
)

// recentBufferSize bounds the opportunity buffer served on the admin API.
const recentBufferSize = 100

// Config holds monitor configuration. Executor, Breaker, Store, and Alerter
// are optional; without an executor the monitor is report-only.
type Config struct {
	Catalog   *discovery.Catalog
	Books     *orderbook.Store
	Clients   map[types.Venue]venues.Client
	Feeds     map[types.Venue]venues.Feed
	Detectors []arbitrage.Detector

	Executor *execution.Executor
	Breaker  *circuitbreaker.Breaker
	Store    storage.Storage
	Alerter  *alert.Alerter

	ScanInterval    time.Duration
	MaxMarkets      int
	BookConcurrency int
	WsMaxAge        time.Duration
	// RequireWs restricts snapshots to the WS book cache; markets without a
	// fresh cached book are skipped instead of fetched over REST.
	RequireWs         bool
	AutoExecute       bool
	AutoExecuteValue  bool
	AutoExecuteCross  bool
	ExecuteTopN       int
	ExecutionCooldown time.Duration
	StabilityMinCount int
	StabilityWindow   time.Duration
	RequireWsHealth   bool
	WsHealthMaxAge    time.Duration

	Realtime         bool
	RealtimeInterval time.Duration
	RealtimeMaxBatch int

	Logger *zap.Logger
	Now    func() time.Time // Injectable clock for tests
}

// Monitor drives the scan loops and the execution gate.
type Monitor struct {
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
	byType   map[arbitrage.Type]arbitrage.Detector
	dedup    *keyLRU
	tracker  *stabilityTracker
	sem      *semaphore.Weighted

	mu              sync.Mutex
	lastExecutionAt map[string]time.Time
	recent          []arbitrage.Opportunity
}

// New creates a monitor. Detector types are resolved by name so the preflight
// can re-run the detector that produced an opportunity.
func New(cfg Config) *Monitor {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	if cfg.BookConcurrency <= 0 {
		cfg.BookConcurrency = 8
	}
	if cfg.ExecuteTopN <= 0 {
		cfg.ExecuteTopN = 1
	}
	if cfg.RealtimeMaxBatch <= 0 {
		cfg.RealtimeMaxBatch = 50
	}

	byType := make(map[arbitrage.Type]arbitrage.Detector, len(cfg.Detectors))
	for _, d := range cfg.Detectors {
		if typ, ok := detectorType(d.Name()); ok {
			byType[typ] = d
		}
	}

	return &Monitor{
		cfg:             cfg,
		logger:          cfg.Logger,
		now:             now,
		byType:          byType,
		dedup:           newKeyLRU(512),
		tracker:         newStabilityTracker(cfg.StabilityWindow),
		sem:             semaphore.NewWeighted(int64(cfg.BookConcurrency)),
		lastExecutionAt: make(map[string]time.Time),
	}
}

func detectorType(name string) (arbitrage.Type, bool) {
	switch name {
	case "intra_venue":
		return arbitrage.TypeIntraVenue, true
	case "cross_venue":
		return arbitrage.TypeCrossVenue, true
	case "multi_outcome":
		return arbitrage.TypeMultiOutcome, true
	case "value_mismatch":
		return arbitrage.TypeValueMismatch, true
	case "dependency":
		return arbitrage.TypeDependency, true
	default:
		return "", false
	}
}

// Run blocks driving the periodic loop and, when enabled, the realtime loop.
func (m *Monitor) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return m.periodicLoop(ctx) })
	if m.cfg.Realtime {
		g.Go(func() error { return m.realtimeLoop(ctx) })
	}

	return g.Wait()
}

// Recent returns a copy of the most recently seen opportunities, newest first.
func (m *Monitor) Recent() []arbitrage.Opportunity {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]arbitrage.Opportunity, len(m.recent))
	copy(out, m.recent)
	return out
}

func (m *Monitor) periodicLoop(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.ScanInterval)
	defer ticker.Stop()

	m.logger.Info("monitor-started",
		zap.Duration("scan-interval", m.cfg.ScanInterval),
		zap.Int("max-markets", m.cfg.MaxMarkets),
		zap.Bool("auto-execute", m.cfg.AutoExecute))

	if err := m.ScanOnce(ctx); err != nil {
		m.logger.Error("scan-failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor-stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := m.ScanOnce(ctx); err != nil {
				m.logger.Error("scan-failed", zap.Error(err))
			}
		}
	}
}

// ScanOnce runs one full periodic scan: markets, books, detectors, gate.
func (m *Monitor) ScanOnce(ctx context.Context) error {
	start := m.now()
	defer func() {
		ScanDurationSeconds.WithLabelValues("periodic").Observe(time.Since(start).Seconds())
	}()
	ScansTotal.WithLabelValues("periodic").Inc()

	snap, err := m.buildSnapshot(ctx)
	if err != nil {
		return err
	}

	m.scan(ctx, snap)
	return nil
}

// buildSnapshot assembles the full-universe snapshot: Predict markets capped
// at MaxMarkets plus every mapped peer venue's markets, with books from the
// WS cache when fresh enough, else fetched over REST at bounded concurrency.
// RequireWs disables the REST fallback entirely.
func (m *Monitor) buildSnapshot(ctx context.Context) (*arbitrage.Snapshot, error) {
	markets, err := m.cfg.Catalog.PredictMarkets(ctx)
	if err != nil {
		return nil, err
	}
	if m.cfg.MaxMarkets > 0 && len(markets) > m.cfg.MaxMarkets {
		markets = markets[:m.cfg.MaxMarkets]
	}

	for venue := range m.cfg.Clients {
		if venue == types.VenuePredict {
			continue
		}
		peers, err := m.cfg.Catalog.PeerMarkets(ctx, venue)
		if err != nil {
			m.logger.Warn("peer-markets-unavailable",
				zap.String("venue", string(venue)),
				zap.Error(err))
			continue
		}
		markets = append(markets, peers...)
	}

	snap := &arbitrage.Snapshot{
		Markets: markets,
		Books:   make(map[types.BookKey]*types.Orderbook, len(markets)),
		At:      m.now(),
	}

	g, gctx := errgroup.WithContext(ctx)
	var booksMu sync.Mutex

	for i := range markets {
		market := markets[i]
		key := types.BookKey{Venue: market.Venue, TokenID: market.TokenID}

		if book, ok := m.cfg.Books.GetFresh(key, m.cfg.WsMaxAge); ok {
			snap.Books[key] = book
			BooksLoadedTotal.WithLabelValues("ws-cache").Inc()
			continue
		}
		if m.cfg.RequireWs {
			continue
		}

		client, ok := m.cfg.Clients[market.Venue]
		if !ok {
			continue
		}

		g.Go(func() error {
			if err := m.sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer m.sem.Release(1)

			book, err := client.Orderbook(gctx, market.TokenID)
			if err != nil {
				m.logger.Debug("book-fetch-failed",
					zap.String("venue", string(market.Venue)),
					zap.String("token-id", market.TokenID),
					zap.Error(err))
				BookFetchErrorsTotal.WithLabelValues(string(market.Venue)).Inc()
				return nil
			}

			// Feed the store so the realtime loop and admin API see it too.
			_ = m.cfg.Books.Put(book)

			booksMu.Lock()
			snap.Books[key] = book
			booksMu.Unlock()
			BooksLoadedTotal.WithLabelValues("rest").Inc()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return snap, nil
}

// scan runs the detectors over snap and pushes results through the gate.
func (m *Monitor) scan(ctx context.Context, snap *arbitrage.Snapshot) {
	var all []arbitrage.Opportunity
	for _, d := range m.cfg.Detectors {
		all = append(all, d.Scan(snap)...)
	}
	if len(all) == 0 {
		return
	}

	m.record(ctx, all)

	eligible := m.gate(all)
	if len(eligible) > m.cfg.ExecuteTopN {
		eligible = eligible[:m.cfg.ExecuteTopN]
	}
	for i := range eligible {
		m.execute(ctx, &eligible[i])
	}
}

// record stores, buffers, and alerts newly seen opportunities and feeds the
// stability tracker for every sighting.
func (m *Monitor) record(ctx context.Context, opps []arbitrage.Opportunity) {
	now := m.now()
	for i := range opps {
		opp := &opps[i]

		OpportunitiesSeenTotal.WithLabelValues(string(opp.Type)).Inc()
		m.tracker.observe(opp.Key, now)

		fresh := m.dedup.add(opp.Key)
		if !fresh {
			continue
		}

		arbitrage.OpportunityEdgeBps.Observe(opp.Edge * 10000)
		arbitrage.OpportunitySizeUSD.Observe(opp.TotalNotional())

		m.logger.Info("opportunity-detected",
			zap.String("type", string(opp.Type)),
			zap.String("key", opp.Key),
			zap.Float64("edge", opp.Edge),
			zap.Float64("size", opp.Size))

		m.remember(*opp)

		if m.cfg.Store != nil {
			if err := m.cfg.Store.StoreOpportunity(ctx, opp); err != nil {
				m.logger.Error("store-opportunity-failed",
					zap.String("key", opp.Key),
					zap.Error(err))
			}
		}
		m.cfg.Alerter.Notify(ctx, opp.Key, opp)
	}
}

func (m *Monitor) remember(opp arbitrage.Opportunity) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.recent = append([]arbitrage.Opportunity{opp}, m.recent...)
	if len(m.recent) > recentBufferSize {
		m.recent = m.recent[:recentBufferSize]
	}
}

// gate applies every auto-execution precondition and returns the survivors
// in edge order.
func (m *Monitor) gate(opps []arbitrage.Opportunity) []arbitrage.Opportunity {
	if !m.cfg.AutoExecute || m.cfg.Executor == nil {
		return nil
	}

	now := m.now()
	var eligible []arbitrage.Opportunity
	for i := range opps {
		opp := opps[i]
		if reason, ok := m.eligible(&opp, now); !ok {
			GateRejectionsTotal.WithLabelValues(reason).Inc()
			continue
		}
		eligible = append(eligible, opp)
	}
	sort.Slice(eligible, func(i, j int) bool { return eligible[i].Edge > eligible[j].Edge })
	return eligible
}

func (m *Monitor) eligible(opp *arbitrage.Opportunity, now time.Time) (string, bool) {
	if opp.Type == arbitrage.TypeValueMismatch && !m.cfg.AutoExecuteValue {
		return "value-disabled", false
	}
	if opp.Type == arbitrage.TypeCrossVenue && !m.cfg.AutoExecuteCross {
		return "cross-disabled", false
	}
	if opp.Expired(now) {
		return "expired", false
	}
	if m.cfg.Breaker != nil && !m.cfg.Breaker.Allow() {
		return "breaker-open", false
	}
	if m.cfg.RequireWsHealth && !m.wsHealthy(opp) {
		return "ws-unhealthy", false
	}
	if !m.tracker.stable(opp.Key, now, m.cfg.StabilityMinCount) {
		return "unstable", false
	}

	m.mu.Lock()
	last, executed := m.lastExecutionAt[opp.Key]
	m.mu.Unlock()
	if executed && now.Sub(last) < m.cfg.ExecutionCooldown {
		return "cooldown", false
	}

	return "", true
}

// wsHealthy requires a healthy feed for every venue the legs touch.
func (m *Monitor) wsHealthy(opp *arbitrage.Opportunity) bool {
	for _, leg := range opp.Legs {
		feed, ok := m.cfg.Feeds[leg.Venue]
		if !ok {
			return false
		}
		if !feed.Status().Healthy(m.cfg.WsHealthMaxAge) {
			return false
		}
	}
	return true
}

// execute runs the preflight then hands the opportunity to the executor.
// Execution errors feed the circuit breaker.
func (m *Monitor) execute(ctx context.Context, opp *arbitrage.Opportunity) {
	fresh, ok := m.preflight(ctx, opp)
	if !ok {
		GateRejectionsTotal.WithLabelValues("preflight").Inc()
		m.logger.Info("opportunity-gone-on-preflight",
			zap.String("key", opp.Key))
		return
	}

	m.mu.Lock()
	m.lastExecutionAt[opp.Key] = m.now()
	m.mu.Unlock()

	rec, err := m.cfg.Executor.Execute(ctx, opp, fresh)
	if err != nil {
		if m.cfg.Breaker != nil {
			m.cfg.Breaker.RecordError(err)
		}
		m.logger.Error("execution-failed",
			zap.String("key", opp.Key),
			zap.Error(err))
	}
	if rec != nil {
		ExecutionsTotal.WithLabelValues(string(rec.Status)).Inc()
		if m.cfg.Store != nil {
			if err := m.cfg.Store.StoreExecution(ctx, rec); err != nil {
				m.logger.Error("store-execution-failed",
					zap.String("key", opp.Key),
					zap.Error(err))
			}
		}
	}
}

// preflight re-fetches the legs' books and re-runs the detector that emitted
// the opportunity; it must still find the same key with a positive edge.
func (m *Monitor) preflight(ctx context.Context, opp *arbitrage.Opportunity) (*arbitrage.Snapshot, bool) {
	detector, ok := m.byType[opp.Type]
	if !ok {
		return nil, false
	}

	snap, err := m.legSnapshot(ctx, opp)
	if err != nil {
		m.logger.Warn("preflight-snapshot-failed",
			zap.String("key", opp.Key),
			zap.Error(err))
		return nil, false
	}

	for _, cand := range detector.Scan(snap) {
		if cand.Key == opp.Key && cand.Edge > 0 {
			return snap, true
		}
	}
	return nil, false
}

// legSnapshot builds a restricted snapshot around the opportunity: the full
// catalog's market records but fresh books only for the legs' tokens.
func (m *Monitor) legSnapshot(ctx context.Context, opp *arbitrage.Opportunity) (*arbitrage.Snapshot, error) {
	markets, err := m.cfg.Catalog.PredictMarkets(ctx)
	if err != nil {
		return nil, err
	}
	for venue := range m.cfg.Clients {
		if venue == types.VenuePredict {
			continue
		}
		if peers, err := m.cfg.Catalog.PeerMarkets(ctx, venue); err == nil {
			markets = append(markets, peers...)
		}
	}

	snap := &arbitrage.Snapshot{
		Markets: markets,
		Books:   make(map[types.BookKey]*types.Orderbook, len(opp.Legs)),
		At:      m.now(),
	}

	for _, leg := range opp.Legs {
		key := types.BookKey{Venue: leg.Venue, TokenID: leg.TokenID}
		client, ok := m.cfg.Clients[leg.Venue]
		if !ok {
			if book, found := m.cfg.Books.GetFresh(key, m.cfg.WsMaxAge); found {
				snap.Books[key] = book
			}
			continue
		}

		book, err := client.Orderbook(ctx, leg.TokenID)
		if err != nil {
			return nil, err
		}
		snap.Books[key] = book
	}

	return snap, nil
}

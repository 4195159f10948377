// Package app wires the agent together: venue clients and feeds, the market
// catalog, the maker, the arbitrage monitor, storage, alerts, and the admin
// HTTP surface, all constructed from one Config.
package app

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mselser95/predict-agent/internal/alert"
	"github.com/mselser95/predict-agent/internal/arbitrage"
	"github.com/mselser95/predict-agent/internal/circuitbreaker"
	"github.com/mselser95/predict-agent/internal/discovery"
	"github.com/mselser95/predict-agent/internal/execution"
	"github.com/mselser95/predict-agent/internal/maker"
	"github.com/mselser95/predict-agent/internal/mapping"
	"github.com/mselser95/predict-agent/internal/monitor"
	"github.com/mselser95/predict-agent/internal/orderbook"
	"github.com/mselser95/predict-agent/internal/storage"
	"github.com/mselser95/predict-agent/internal/venues"
	"github.com/mselser95/predict-agent/internal/venues/opinion"
	"github.com/mselser95/predict-agent/internal/venues/polymarket"
	"github.com/mselser95/predict-agent/internal/venues/predict"
	"github.com/mselser95/predict-agent/pkg/cache"
	"github.com/mselser95/predict-agent/pkg/config"
	"github.com/mselser95/predict-agent/pkg/healthprobe"
	"github.com/mselser95/predict-agent/pkg/httpserver"
	"github.com/mselser95/predict-agent/pkg/types"
	"github.com/mselser95/predict-agent/pkg/wallet"
)

// Options selects which halves of the agent run.
type Options struct {
	RunMaker   bool
	RunMonitor bool
}

// App is the application orchestrator.
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	opts   Options

	health   *healthprobe.HealthChecker
	server   *httpserver.Server
	books    *orderbook.Store
	catalog  *discovery.Catalog
	mappings *mapping.Store

	clients map[types.Venue]venues.Client
	feeds   map[types.Venue]venues.Feed

	breaker   *circuitbreaker.Breaker
	store     storage.Storage
	alerter   *alert.Alerter
	positions *execution.PositionTracker
	maker     *maker.Maker
	monitor   *monitor.Monitor

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds the full component graph. Nothing is started; Run does that.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{RunMaker: true, RunMonitor: true}
	}

	ctx, cancel := context.WithCancel(context.Background())

	books := orderbook.New(&orderbook.Config{Logger: logger})

	marketCache, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		Name:        "markets",
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
		Logger:      logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	clients := setupClients(cfg, logger)
	catalog := setupCatalog(cfg, logger, clients, marketCache)
	feeds := setupFeeds(cfg, logger, books)

	mappings := mapping.NewStore(mapping.Config{
		Path:          cfg.MappingFile,
		MinSimilarity: cfg.CrossPlatformMinSimilarity,
		Logger:        logger,
	})
	if err := mappings.Load(); err != nil {
		logger.Warn("mapping-load-failed",
			zap.String("path", cfg.MappingFile),
			zap.Error(err))
	}

	store, err := storage.New(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	var alerter *alert.Alerter
	if cfg.AlertWebhookURL != "" {
		alerter, err = alert.New(alert.Config{
			WebhookURL:  cfg.AlertWebhookURL,
			MinInterval: cfg.AlertMinIntervalMs,
			Logger:      logger,
		})
		if err != nil {
			cancel()
			return nil, fmt.Errorf("setup alerter: %w", err)
		}
	}

	breaker, err := circuitbreaker.New(&circuitbreaker.Config{
		MaxErrors: cfg.ArbMaxErrors,
		Window:    cfg.ArbErrorWindowMs,
		Pause:     cfg.ArbPauseOnErrorMs,
		Logger:    logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup breaker: %w", err)
	}

	predictSub, peerSubs, err := setupSubmitters(cfg, logger, clients)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup submitters: %w", err)
	}

	positions := execution.NewPositionTracker(clients[types.VenuePredict].(*predict.Client), logger)

	hedger := execution.NewHedger(execution.HedgerConfig{
		Mode:           cfg.HedgeMode,
		MaxSlippageBps: cfg.HedgeMaxSlippageBps,
		Predict:        predictSub,
		Peers:          peerSubs,
		Resolver:       mappings,
		Books:          bookSource(cfg, books, clients),
		Logger:         logger,
	})

	mm := setupMaker(cfg, logger, predictSub, positions, hedger, catalog)

	executor := execution.NewExecutor(execution.ExecutorConfig{
		Predict:                  predictSub,
		Peers:                    peerSubs,
		MaxPositionSize:          cfg.MaxPositionSize,
		RequireConfirmation:      cfg.RequireConfirmation && !cfg.ArbAutoExecute,
		CrossRequireConfirmation: cfg.CrossPlatformRequireConfirm && !cfg.CrossPlatformAutoExecute,
		AutoConfirm:              cfg.AutoConfirm,
		HedgeOnFailure:           cfg.CrossPlatformEnabled,
		Logger:                   logger,
	})

	mon := monitor.New(monitor.Config{
		Catalog:           catalog,
		Books:             books,
		Clients:           clients,
		Feeds:             feeds,
		Detectors:         setupDetectors(cfg, logger, mappings),
		Executor:          executor,
		Breaker:           breaker,
		Store:             store,
		Alerter:           alerter,
		ScanInterval:      cfg.ArbScanIntervalMs,
		MaxMarkets:        cfg.ArbMaxMarkets,
		BookConcurrency:   cfg.ArbOrderbookConcurrency,
		WsMaxAge:          cfg.ArbWsMaxAgeMs,
		RequireWs:         cfg.ArbRequireWs,
		AutoExecute:       cfg.ArbAutoExecute,
		AutoExecuteValue:  cfg.ArbAutoExecuteValue,
		AutoExecuteCross:  cfg.CrossPlatformAutoExecute,
		ExecuteTopN:       cfg.ArbExecuteTopN,
		ExecutionCooldown: cfg.ArbExecutionCooldownMs,
		StabilityMinCount: cfg.ArbStabilityMinCount,
		StabilityWindow:   cfg.ArbStabilityWindowMs,
		RequireWsHealth:   cfg.ArbRequireWsHealth,
		WsHealthMaxAge:    cfg.WsHealthMaxAgeMs,
		Realtime:          cfg.ArbWsRealtime,
		RealtimeInterval:  cfg.ArbWsRealtimeIntervalMs,
		RealtimeMaxBatch:  cfg.ArbWsRealtimeMaxBatch,
		Logger:            logger,
	})

	health := healthprobe.New()
	server := httpserver.New(&httpserver.Config{
		Port:   cfg.HTTPPort,
		Logger: logger,
		Health: health,
		Books:  books,
		Markets: func() []types.Market {
			markets, err := catalog.PredictMarkets(context.Background())
			if err != nil {
				return nil
			}
			return markets
		},
		Opportunities: mon.Recent,
		MakerStatus:   mm.Status,
		BreakerStatus: breaker.GetStatus,
	})

	return &App{
		cfg:       cfg,
		logger:    logger,
		opts:      *opts,
		health:    health,
		server:    server,
		books:     books,
		catalog:   catalog,
		mappings:  mappings,
		clients:   clients,
		feeds:     feeds,
		breaker:   breaker,
		store:     store,
		alerter:   alerter,
		positions: positions,
		maker:     mm,
		monitor:   mon,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

func setupClients(cfg *config.Config, logger *zap.Logger) map[types.Venue]venues.Client {
	clients := map[types.Venue]venues.Client{
		types.VenuePredict: predict.NewClient(predict.Config{
			BaseURL:  cfg.APIBaseURL,
			APIKey:   cfg.APIKey,
			JWTToken: cfg.JWTToken,
			Timeout:  cfg.HTTPTimeoutMs,
			Logger:   logger,
		}),
	}

	if cfg.CrossPlatformEnabled {
		clients[types.VenuePolymarket] = polymarket.NewClient(polymarket.Config{
			GammaURL: cfg.PolymarketGammaURL,
			ClobURL:  cfg.PolymarketClobURL,
			Timeout:  cfg.HTTPTimeoutMs,
			Logger:   logger,
		})
		clients[types.VenueOpinion] = opinion.NewClient(opinion.Config{
			BaseURL: cfg.OpinionOpenAPIURL,
			APIKey:  cfg.OpinionAPIKey,
			Timeout: cfg.HTTPTimeoutMs,
			Logger:  logger,
		})
	}

	return clients
}

func setupCatalog(cfg *config.Config, logger *zap.Logger, clients map[types.Venue]venues.Client, marketCache cache.Cache) *discovery.Catalog {
	dcfg := &discovery.Config{
		Predict:    clients[types.VenuePredict],
		Cache:      marketCache,
		PredictTTL: cfg.ArbMarketsCacheMs,
		PredictMax: cfg.ArbMaxMarkets,
		Logger:     logger,
	}
	if c, ok := clients[types.VenuePolymarket]; ok {
		dcfg.Polymarket = c
		dcfg.PolymarketTTL = cfg.PolymarketCacheTTLMs
		dcfg.PolymarketMax = cfg.PolymarketMaxMarkets
	}
	if c, ok := clients[types.VenueOpinion]; ok {
		dcfg.Opinion = c
		dcfg.OpinionTTL = cfg.PolymarketCacheTTLMs
		dcfg.OpinionMax = cfg.OpinionMaxMarkets
	}
	return discovery.New(dcfg)
}

func setupFeeds(cfg *config.Config, logger *zap.Logger, books *orderbook.Store) map[types.Venue]venues.Feed {
	feeds := make(map[types.Venue]venues.Feed)

	if cfg.PredictWsEnabled {
		feeds[types.VenuePredict] = predict.NewFeed(predict.FeedConfig{
			URL:              cfg.PredictWsURL,
			APIKey:           cfg.PredictWsAPIKey,
			TopicKey:         cfg.PredictWsTopicKey,
			StaleAfter:       cfg.PredictWsStaleMs,
			ResetOnReconnect: cfg.PredictWsResetOnReconnect,
			ReconnectMin:     cfg.WsReconnectMinMs,
			ReconnectMax:     cfg.WsReconnectMaxMs,
			Store:            books,
			Logger:           logger,
		})
	}

	if cfg.CrossPlatformEnabled && cfg.PolymarketWsEnabled {
		feeds[types.VenuePolymarket] = polymarket.NewFeed(polymarket.FeedConfig{
			URL:              cfg.PolymarketWsURL,
			PoolSize:         cfg.PolymarketWsPoolSize,
			ResetOnReconnect: true,
			ReconnectMin:     cfg.WsReconnectMinMs,
			ReconnectMax:     cfg.WsReconnectMaxMs,
			CustomFeature:    cfg.PolymarketWsCustomFeature,
			InitialDump:      cfg.PolymarketWsInitialDump,
			Store:            books,
			Logger:           logger,
		})
	}

	if cfg.CrossPlatformEnabled && cfg.OpinionWsEnabled {
		feeds[types.VenueOpinion] = opinion.NewFeed(opinion.FeedConfig{
			URL:               cfg.OpinionWsURL,
			APIKey:            cfg.OpinionAPIKey,
			HeartbeatInterval: cfg.OpinionWsHeartbeat,
			ResetOnReconnect:  true,
			ReconnectMin:      cfg.WsReconnectMinMs,
			ReconnectMax:      cfg.WsReconnectMaxMs,
			Store:             books,
			Logger:            logger,
		})
	}

	return feeds
}

// setupSubmitters builds the order path. Paper mode fakes every venue; live
// mode signs Predict orders and enables peer venues that have credentials.
func setupSubmitters(cfg *config.Config, logger *zap.Logger, clients map[types.Venue]venues.Client) (execution.OrderSubmitter, map[types.Venue]execution.OrderSubmitter, error) {
	peers := make(map[types.Venue]execution.OrderSubmitter)

	if cfg.ExecutionMode != "live" || !cfg.EnableTrading {
		for venue := range clients {
			if venue != types.VenuePredict {
				peers[venue] = execution.NewPaperSubmitter(venue, logger)
			}
		}
		return execution.NewPaperSubmitter(types.VenuePredict, logger), peers, nil
	}

	signer, err := wallet.NewSigner(cfg.PrivateKey, cfg.PredictAccountAddress)
	if err != nil {
		return nil, nil, fmt.Errorf("signer: %w", err)
	}

	predictSub := execution.NewPredictSubmitter(execution.PredictSubmitterConfig{
		Client: clients[types.VenuePredict].(*predict.Client),
		Signer: signer,
		Logger: logger,
	})

	if _, ok := clients[types.VenuePolymarket]; ok {
		peers[types.VenuePolymarket] = execution.NewPolymarketSubmitter(execution.PolymarketSubmitterConfig{
			BaseURL: cfg.PolymarketClobURL,
			Signer:  signer,
			Logger:  logger,
		})
	}
	if _, ok := clients[types.VenueOpinion]; ok {
		if cfg.OpinionAPIKey != "" {
			peers[types.VenueOpinion] = execution.NewOpinionSubmitter(execution.OpinionSubmitterConfig{
				BaseURL: cfg.OpinionOpenAPIURL,
				APIKey:  cfg.OpinionAPIKey,
				Logger:  logger,
			})
		} else {
			logger.Warn("opinion-submitter-paper-fallback",
				zap.String("reason", "no OPINION_API_KEY"))
			peers[types.VenueOpinion] = execution.NewPaperSubmitter(types.VenueOpinion, logger)
		}
	}

	return predictSub, peers, nil
}

// bookSource serves the hedger: cached WS book first, REST fallback.
func bookSource(cfg *config.Config, books *orderbook.Store, clients map[types.Venue]venues.Client) execution.BookSource {
	return func(ctx context.Context, venue types.Venue, tokenID string) (*types.Orderbook, error) {
		key := types.BookKey{Venue: venue, TokenID: tokenID}
		if book, ok := books.GetFresh(key, cfg.ArbWsMaxAgeMs); ok {
			return book, nil
		}
		client, ok := clients[venue]
		if !ok {
			return nil, fmt.Errorf("no client for venue %s", venue)
		}
		return client.Orderbook(ctx, tokenID)
	}
}

func setupMaker(
	cfg *config.Config,
	logger *zap.Logger,
	submitter execution.OrderSubmitter,
	positions *execution.PositionTracker,
	hedger *execution.Hedger,
	catalog *discovery.Catalog,
) *maker.Maker {
	return maker.New(maker.Config{
		Submitter: submitter,
		Positions: positions,
		Hedger:    hedger,
		PeerMarkets: func() []types.Market {
			var out []types.Market
			for _, venue := range []types.Venue{types.VenuePolymarket, types.VenueOpinion} {
				if peers, err := catalog.PeerMarkets(context.Background(), venue); err == nil {
					out = append(out, peers...)
				}
			}
			return out
		},
		Logger: logger,

		EnableTrading: cfg.EnableTrading,
		Spread:        cfg.MMSpread,
		MinSpread:     cfg.MMMinSpread,
		MaxSpread:     cfg.MMMaxSpread,
		PriceTick:     cfg.MMPriceTick,

		OrderSize:           cfg.MMOrderSize,
		MaxSingleOrderValue: cfg.MMMaxSingleOrderValue,
		MaxPosition:         cfg.MMMaxPosition,
		MaxDailyLoss:        cfg.MMMaxDailyLoss,
		OrderDepthUsage:     cfg.MMOrderDepthUsage,
		MaxOrdersPerSide:    cfg.MMMaxOrdersPerMarket,
		MinOrderInterval:    cfg.MMMinOrderIntervalMs,
		OrderRefresh:        cfg.MMOrderRefreshMs,
		PassInterval:        cfg.MMPassIntervalMs,
		InventorySkewFactor: cfg.MMInventorySkewFactor,

		CancelThreshold:  cfg.MMCancelThreshold,
		RepriceThreshold: cfg.MMRepriceThreshold,

		UseValueSignal:     cfg.MMUseValueSignal,
		ValueSignalWeight:  cfg.MMValueSignalWeight,
		ValueConfidenceMin: cfg.MMValueConfidenceMin,

		AntiFillBps:          cfg.MMAntiFillBps,
		NearTouchBps:         cfg.MMNearTouchBps,
		CooldownAfterCancel:  cfg.MMCooldownAfterCancelMs,
		VolatilityPauseBps:   cfg.MMVolatilityPauseBps,
		VolatilityLookback:   cfg.MMVolatilityLookbackMs,
		PauseAfterVolatility: cfg.MMPauseAfterVolatility,
		MinTopDepthShares:    cfg.MMMinTopDepthShares,
		MinTopDepthUsd:       cfg.MMMinTopDepthUsd,

		Adaptive:              cfg.MMAdaptive,
		VolEmaAlpha:           cfg.MMVolEmaAlpha,
		DepthEmaAlpha:         cfg.MMDepthEmaAlpha,
		DepthRef:              cfg.MMDepthRef,
		DepthLevels:           cfg.MMDepthLevels,
		ImbalanceWeight:       cfg.MMImbalanceWeight,
		ImbalanceMaxSkew:      cfg.MMImbalanceMaxSkew,
		CalmVolBps:            cfg.MMCalmVolBps,
		VolatileVolBps:        cfg.MMVolatileVolBps,
		ProfileHysteresis:     cfg.MMProfileHysteresis,
		TouchBufferBps:        cfg.MMTouchBufferBps,
		FillRiskSpreadBumpBps: cfg.MMFillRiskSpreadBumpBps,

		IcebergEnabled:        cfg.MMIcebergEnabled,
		IcebergRatio:          cfg.MMIcebergRatio,
		IcebergMaxChunkShares: cfg.MMIcebergMaxChunkShares,
		IcebergRequote:        cfg.MMIcebergRequoteMs,

		HedgeOnFill:        cfg.HedgeOnFill,
		HedgeTriggerShares: cfg.HedgeTriggerShares,
	})
}

func setupDetectors(cfg *config.Config, logger *zap.Logger, mappings *mapping.Store) []arbitrage.Detector {
	detectors := []arbitrage.Detector{
		arbitrage.NewIntraVenue(arbitrage.IntraVenueConfig{
			MinProfit:           cfg.ArbMinProfit,
			MaxShares:           cfg.ArbMaxShares,
			DepthUsage:          cfg.ArbDepthUsage,
			MaxVwapDeviationBps: cfg.ArbMaxVwapDeviationBps,
			MaxVwapLevels:       cfg.ArbMaxVwapLevels,
			MinNotionalUsd:      cfg.ArbMinNotionalUsd,
			MinProfitUsd:        cfg.ArbMinProfitUsd,
			MinDepthUsd:         cfg.ArbMinDepthUsd,
			RecheckDeviationBps: cfg.ArbRecheckDeviationBps,
			AllowShorting:       cfg.ArbAllowShorting,
			SlippageBps:         cfg.ArbSlippageBps,
			TTL:                 cfg.ArbScanIntervalMs * 2,
			Logger:              logger,
		}),
		arbitrage.NewValueMismatch(arbitrage.ValueMismatchConfig{
			EdgeThreshold: cfg.ValueEdgeThreshold,
			ConfidenceMin: cfg.ValueConfidenceMin,
			TradingCost:   cfg.ValueTradingCost,
			TTL:           cfg.ArbScanIntervalMs * 2,
		}),
	}

	if cfg.MultiOutcomeEnabled {
		detectors = append(detectors, arbitrage.NewMultiOutcome(arbitrage.MultiOutcomeConfig{
			MinOutcomes:         cfg.MultiOutcomeMinOutcomes,
			MinProfit:           cfg.ArbMinProfit,
			MaxShares:           cfg.MultiOutcomeMaxShares,
			DepthUsage:          cfg.ArbDepthUsage,
			MaxVwapDeviationBps: cfg.ArbMaxVwapDeviationBps,
			MaxVwapLevels:       cfg.ArbMaxVwapLevels,
			MinNotionalUsd:      cfg.ArbMinNotionalUsd,
			MinProfitUsd:        cfg.ArbMinProfitUsd,
			SlippageBps:         cfg.ArbSlippageBps,
			TTL:                 cfg.ArbScanIntervalMs * 2,
		}))
	}

	if cfg.CrossPlatformEnabled {
		detectors = append(detectors, arbitrage.NewCrossVenue(arbitrage.CrossVenueConfig{
			MinProfit:      cfg.CrossPlatformMinProfit,
			MinSimilarity:  cfg.CrossPlatformMinSimilarity,
			TransferCost:   cfg.CrossPlatformTransferCost,
			SlippageBps:    cfg.CrossPlatformSlippageBps,
			MaxShares:      cfg.CrossPlatformMaxShares,
			DepthUsage:     cfg.CrossPlatformDepthUsage,
			MaxVwapLevels:  cfg.CrossPlatformDepthLevels,
			MinNotionalUsd: cfg.ArbMinNotionalUsd,
			MinProfitUsd:   cfg.ArbMinProfitUsd,
			AllowSellBoth:  cfg.CrossPlatformAllowSellBoth,
			TTL:            cfg.ArbScanIntervalMs * 2,
		}, mappings))
	}

	if cfg.DependencyEnabled {
		detectors = append(detectors, arbitrage.NewDependency(arbitrage.DependencyConfig{
			SolverPath:      cfg.DependencySolverPath,
			ConstraintsPath: cfg.DependencyConstraintsPath,
			MinEdge:         cfg.DependencyMinEdge,
			MaxLegs:         cfg.DependencyMaxLegs,
			MaxNotionalUsd:  cfg.DependencyMaxNotionalUsd,
			Timeout:         cfg.DependencyTimeoutMs,
			TTL:             cfg.ArbScanIntervalMs * 2,
			Logger:          logger,
		}))
	}

	return detectors
}

// ScanOnce runs a single arbitrage scan pass without starting any loops.
// Used by the one-shot scan command.
func (a *App) ScanOnce(ctx context.Context) error {
	return a.monitor.ScanOnce(ctx)
}

// RecentOpportunities returns the monitor's recent detections.
func (a *App) RecentOpportunities() []arbitrage.Opportunity {
	return a.monitor.Recent()
}

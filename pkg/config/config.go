package config

import (
	"os"
	"strconv"
	"time"

	"github.com/mselser95/predict-agent/pkg/types"
)

// Config holds all agent configuration. Loaded once at startup from the
// environment and immutable afterwards; components receive the values they
// need through their own constructor configs.
type Config struct {
	// Application
	LogLevel      string
	HTTPPort      string
	ExecutionMode string // "paper" or "live"
	EnableTrading bool
	AutoConfirm   bool
	StateDir      string
	StateFlushMs  time.Duration
	HTTPTimeoutMs time.Duration

	// Predict REST / signing
	APIBaseURL            string
	APIKey                string
	JWTToken              string
	PrivateKey            string
	PredictAccountAddress string

	// Predict WebSocket
	PredictWsEnabled          bool
	PredictWsURL              string
	PredictWsTopicKey         string // tokenId, conditionId, or eventId
	PredictWsAPIKey           string
	PredictWsStaleMs          time.Duration
	PredictWsResetOnReconnect bool

	// Polymarket
	PolymarketGammaURL        string
	PolymarketClobURL         string
	PolymarketWsEnabled       bool
	PolymarketWsURL           string
	PolymarketWsCustomFeature bool
	PolymarketWsInitialDump   bool
	PolymarketWsPoolSize      int
	PolymarketCacheTTLMs      time.Duration
	PolymarketMaxMarkets      int

	// Opinion
	OpinionOpenAPIURL   string
	OpinionAPIKey       string
	OpinionWsEnabled    bool
	OpinionWsURL        string
	OpinionWsHeartbeat  time.Duration
	OpinionMaxMarkets   int

	// Shared WebSocket behavior
	WsReconnectMinMs time.Duration
	WsReconnectMaxMs time.Duration
	WsHealthMaxAgeMs time.Duration
	WsHealthCheckMs  time.Duration

	// Market maker
	MMSpread              float64
	MMMinSpread           float64
	MMMaxSpread           float64
	MMOrderSize           float64
	MMMaxSingleOrderValue float64
	MMMaxPosition         float64
	MMMaxDailyLoss        float64
	MMInventorySkewFactor float64
	MMCancelThreshold     float64
	MMRepriceThreshold    float64
	MMMinOrderIntervalMs  time.Duration
	MMMaxOrdersPerMarket  int
	MMOrderRefreshMs      time.Duration
	MMOrderDepthUsage     float64
	MMPassIntervalMs      time.Duration
	MMPriceTick           float64

	// Market maker value blend
	MMUseValueSignal     bool
	MMValueSignalWeight  float64
	MMValueConfidenceMin float64

	// Market maker risk guards
	MMAntiFillBps           float64
	MMNearTouchBps          float64
	MMCooldownAfterCancelMs time.Duration
	MMVolatilityPauseBps    float64
	MMVolatilityLookbackMs  time.Duration
	MMPauseAfterVolatility  time.Duration
	MMMinTopDepthShares     float64
	MMMinTopDepthUsd        float64

	// Market maker adaptive tuning
	MMAdaptive              bool
	MMVolEmaAlpha           float64
	MMDepthEmaAlpha         float64
	MMDepthRef              float64
	MMDepthLevels           int
	MMImbalanceWeight       float64
	MMImbalanceMaxSkew      float64
	MMCalmVolBps            float64
	MMVolatileVolBps        float64
	MMProfileHysteresis     float64
	MMTouchBufferBps        float64
	MMFillRiskSpreadBumpBps float64

	// Market maker iceberg
	MMIcebergEnabled        bool
	MMIcebergRatio          float64
	MMIcebergMaxChunkShares float64
	MMIcebergRequoteMs      time.Duration

	// Hedging
	HedgeOnFill         bool
	HedgeTriggerShares  float64
	HedgeMode           string // NONE, FLATTEN, or CROSS
	HedgeMaxSlippageBps float64

	// Arbitrage scanner
	ArbScanIntervalMs      time.Duration
	ArbMaxMarkets          int
	ArbOrderbookConcurrency int
	ArbMarketsCacheMs      time.Duration
	ArbWsMaxAgeMs          time.Duration
	ArbMaxErrors           int
	ArbErrorWindowMs       time.Duration
	ArbPauseOnErrorMs      time.Duration
	ArbExecuteTopN         int
	ArbExecutionCooldownMs time.Duration
	ArbStabilityMinCount   int
	ArbStabilityWindowMs   time.Duration
	ArbRequireWs           bool
	ArbRequireWsHealth     bool
	ArbWsRealtime          bool
	ArbWsRealtimeIntervalMs time.Duration
	ArbWsRealtimeMaxBatch  int
	ArbAutoExecute         bool
	ArbAutoExecuteValue    bool

	// Intra-venue detector
	ArbMinProfit           float64
	ArbMaxShares           float64
	ArbDepthUsage          float64
	ArbMaxVwapDeviationBps float64
	ArbMaxVwapLevels       int
	ArbMinNotionalUsd      float64
	ArbMinProfitUsd        float64
	ArbMinDepthUsd         float64
	ArbRecheckDeviationBps float64
	ArbAllowShorting       bool
	ArbSlippageBps         float64

	// Value detector
	ValueEdgeThreshold  float64
	ValueConfidenceMin  float64
	ValueTradingCost    float64

	// Multi-outcome detector
	MultiOutcomeEnabled     bool
	MultiOutcomeMinOutcomes int
	MultiOutcomeMaxShares   float64

	// Cross-venue detector
	CrossPlatformEnabled        bool
	CrossPlatformMinProfit      float64
	CrossPlatformMinSimilarity  float64
	CrossPlatformTransferCost   float64
	CrossPlatformSlippageBps    float64
	CrossPlatformMaxShares      float64
	CrossPlatformDepthLevels    int
	CrossPlatformDepthUsage     float64
	CrossPlatformUseMapping     bool
	CrossPlatformAutoExecute    bool
	CrossPlatformRequireConfirm bool
	CrossPlatformAllowSellBoth  bool

	// Dependency plug-in
	DependencyEnabled        bool
	DependencySolverPath     string
	DependencyConstraintsPath string
	DependencyMinEdge        float64
	DependencyMaxLegs        int
	DependencyMaxNotionalUsd float64
	DependencyTimeoutMs      time.Duration

	// Executor
	RequireConfirmation bool
	MaxPositionSize     float64

	// Alerts
	AlertWebhookURL   string
	AlertMinIntervalMs time.Duration

	// Files
	MappingFile string

	// Storage
	StorageMode  string // "console", "postgres", or "sqlite"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
	SQLitePath   string
}

// LoadFromEnv loads configuration from environment variables with defaults
// and validates it.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel:      getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort:      getEnvOrDefault("HTTP_PORT", "8080"),
		ExecutionMode: getEnvOrDefault("EXECUTION_MODE", "paper"),
		EnableTrading: getBoolOrDefault("ENABLE_TRADING", false),
		AutoConfirm:   getBoolOrDefault("AUTO_CONFIRM_ALL", false),
		StateDir:      getEnvOrDefault("STATE_DIR", "."),
		StateFlushMs:  getMillisOrDefault("STATE_FLUSH_MS", 30_000),
		HTTPTimeoutMs: getMillisOrDefault("HTTP_TIMEOUT_MS", 10_000),

		// Predict defaults
		APIBaseURL:            getEnvOrDefault("API_BASE_URL", "https://api.predict.fun"),
		APIKey:                os.Getenv("API_KEY"),
		JWTToken:              os.Getenv("JWT_TOKEN"),
		PrivateKey:            os.Getenv("PRIVATE_KEY"),
		PredictAccountAddress: os.Getenv("PREDICT_ACCOUNT_ADDRESS"),

		PredictWsEnabled:          getBoolOrDefault("PREDICT_WS_ENABLED", true),
		PredictWsURL:              getEnvOrDefault("PREDICT_WS_URL", "wss://ws.predict.fun"),
		PredictWsTopicKey:         getEnvOrDefault("PREDICT_WS_TOPIC_KEY", "tokenId"),
		PredictWsAPIKey:           os.Getenv("PREDICT_WS_API_KEY"),
		PredictWsStaleMs:          getMillisOrDefault("PREDICT_WS_STALE_MS", 0),
		PredictWsResetOnReconnect: getBoolOrDefault("PREDICT_WS_RESET_ON_RECONNECT", true),

		// Polymarket defaults
		PolymarketGammaURL:        getEnvOrDefault("POLYMARKET_GAMMA_URL", "https://gamma-api.polymarket.com"),
		PolymarketClobURL:         getEnvOrDefault("POLYMARKET_CLOB_URL", "https://clob.polymarket.com"),
		PolymarketWsEnabled:       getBoolOrDefault("POLYMARKET_WS_ENABLED", true),
		PolymarketWsURL:           getEnvOrDefault("POLYMARKET_WS_URL", "wss://ws-subscriptions-clob.polymarket.com/ws/market"),
		PolymarketWsCustomFeature: getBoolOrDefault("POLYMARKET_WS_CUSTOM_FEATURE", false),
		PolymarketWsInitialDump:   getBoolOrDefault("POLYMARKET_WS_INITIAL_DUMP", true),
		PolymarketWsPoolSize:      getIntOrDefault("POLYMARKET_WS_POOL_SIZE", 2),
		PolymarketCacheTTLMs:      getMillisOrDefault("POLYMARKET_CACHE_TTL_MS", 60_000),
		PolymarketMaxMarkets:      getIntOrDefault("POLYMARKET_MAX_MARKETS", 200),

		// Opinion defaults
		OpinionOpenAPIURL:  getEnvOrDefault("OPINION_OPENAPI_URL", "https://openapi.opinion.trade"),
		OpinionAPIKey:      os.Getenv("OPINION_API_KEY"),
		OpinionWsEnabled:   getBoolOrDefault("OPINION_WS_ENABLED", false),
		OpinionWsURL:       getEnvOrDefault("OPINION_WS_URL", "wss://ws.opinion.trade"),
		OpinionWsHeartbeat: getMillisOrDefault("OPINION_WS_HEARTBEAT_MS", 15_000),
		OpinionMaxMarkets:  getIntOrDefault("OPINION_MAX_MARKETS", 100),

		// Shared WebSocket defaults
		WsReconnectMinMs: getMillisOrDefault("WS_RECONNECT_MIN_MS", 1_000),
		WsReconnectMaxMs: getMillisOrDefault("WS_RECONNECT_MAX_MS", 30_000),
		WsHealthMaxAgeMs: getMillisOrDefault("WS_HEALTH_MAX_AGE_MS", 30_000),
		WsHealthCheckMs:  getMillisOrDefault("WS_HEALTH_CHECK_MS", 10_000),

		// Market maker defaults
		MMSpread:              getFloat64OrDefault("MM_SPREAD", 0.02),
		MMMinSpread:           getFloat64OrDefault("MM_MIN_SPREAD", 0.005),
		MMMaxSpread:           getFloat64OrDefault("MM_MAX_SPREAD", 0.08),
		MMOrderSize:           getFloat64OrDefault("MM_ORDER_SIZE", 100),
		MMMaxSingleOrderValue: getFloat64OrDefault("MM_MAX_SINGLE_ORDER_VALUE", 250),
		MMMaxPosition:         getFloat64OrDefault("MM_MAX_POSITION", 1_000),
		MMMaxDailyLoss:        getFloat64OrDefault("MM_MAX_DAILY_LOSS", 100),
		MMInventorySkewFactor: getFloat64OrDefault("MM_INVENTORY_SKEW_FACTOR", 0.2),
		MMCancelThreshold:     getFloat64OrDefault("MM_CANCEL_THRESHOLD", 0.05),
		MMRepriceThreshold:    getFloat64OrDefault("MM_REPRICE_THRESHOLD", 0.01),
		MMMinOrderIntervalMs:  getMillisOrDefault("MM_MIN_ORDER_INTERVAL_MS", 2_000),
		MMMaxOrdersPerMarket:  getIntOrDefault("MM_MAX_ORDERS_PER_MARKET", 2),
		MMOrderRefreshMs:      getMillisOrDefault("MM_ORDER_REFRESH_MS", 45_000),
		MMOrderDepthUsage:     getFloat64OrDefault("MM_ORDER_DEPTH_USAGE", 0.25),
		MMPassIntervalMs:      getMillisOrDefault("MM_PASS_INTERVAL_MS", 1_000),
		MMPriceTick:           getFloat64OrDefault("MM_PRICE_TICK", 0.0001),

		MMUseValueSignal:     getBoolOrDefault("MM_USE_VALUE_SIGNAL", false),
		MMValueSignalWeight:  getFloat64OrDefault("MM_VALUE_SIGNAL_WEIGHT", 0.3),
		MMValueConfidenceMin: getFloat64OrDefault("MM_VALUE_CONFIDENCE_MIN", 0.5),

		MMAntiFillBps:           getFloat64OrDefault("MM_ANTI_FILL_BPS", 40),
		MMNearTouchBps:          getFloat64OrDefault("MM_NEAR_TOUCH_BPS", 20),
		MMCooldownAfterCancelMs: getMillisOrDefault("MM_COOLDOWN_AFTER_CANCEL_MS", 3_000),
		MMVolatilityPauseBps:    getFloat64OrDefault("MM_VOLATILITY_PAUSE_BPS", 300),
		MMVolatilityLookbackMs:  getMillisOrDefault("MM_VOLATILITY_LOOKBACK_MS", 10_000),
		MMPauseAfterVolatility:  getMillisOrDefault("MM_PAUSE_AFTER_VOLATILITY_MS", 20_000),
		MMMinTopDepthShares:     getFloat64OrDefault("MM_MIN_TOP_DEPTH_SHARES", 10),
		MMMinTopDepthUsd:        getFloat64OrDefault("MM_MIN_TOP_DEPTH_USD", 5),

		MMAdaptive:              getBoolOrDefault("MM_ADAPTIVE", true),
		MMVolEmaAlpha:           getFloat64OrDefault("MM_VOL_EMA_ALPHA", 0.25),
		MMDepthEmaAlpha:         getFloat64OrDefault("MM_DEPTH_EMA_ALPHA", 0.2),
		MMDepthRef:              getFloat64OrDefault("MM_DEPTH_REF", 500),
		MMDepthLevels:           getIntOrDefault("MM_DEPTH_LEVELS", 3),
		MMImbalanceWeight:       getFloat64OrDefault("MM_IMBALANCE_WEIGHT", 0.3),
		MMImbalanceMaxSkew:      getFloat64OrDefault("MM_IMBALANCE_MAX_SKEW", 0.004),
		MMCalmVolBps:            getFloat64OrDefault("MM_CALM_VOL_BPS", 15),
		MMVolatileVolBps:        getFloat64OrDefault("MM_VOLATILE_VOL_BPS", 80),
		MMProfileHysteresis:     getFloat64OrDefault("MM_PROFILE_HYSTERESIS", 0.2),
		MMTouchBufferBps:        getFloat64OrDefault("MM_TOUCH_BUFFER_BPS", 0),
		MMFillRiskSpreadBumpBps: getFloat64OrDefault("MM_FILL_RISK_SPREAD_BUMP_BPS", 25),

		MMIcebergEnabled:        getBoolOrDefault("MM_ICEBERG_ENABLED", false),
		MMIcebergRatio:          getFloat64OrDefault("MM_ICEBERG_RATIO", 0.25),
		MMIcebergMaxChunkShares: getFloat64OrDefault("MM_ICEBERG_MAX_CHUNK_SHARES", 200),
		MMIcebergRequoteMs:      getMillisOrDefault("MM_ICEBERG_REQUOTE_MS", 15_000),

		// Hedging defaults
		HedgeOnFill:         getBoolOrDefault("HEDGE_ON_FILL", false),
		HedgeTriggerShares:  getFloat64OrDefault("HEDGE_TRIGGER_SHARES", 50),
		HedgeMode:           getEnvOrDefault("HEDGE_MODE", "NONE"),
		HedgeMaxSlippageBps: getFloat64OrDefault("HEDGE_MAX_SLIPPAGE_BPS", 150),

		// Scanner defaults
		ArbScanIntervalMs:       getMillisOrDefault("ARB_SCAN_INTERVAL_MS", 5_000),
		ArbMaxMarkets:           getIntOrDefault("ARB_MAX_MARKETS", 120),
		ArbOrderbookConcurrency: getIntOrDefault("ARB_ORDERBOOK_CONCURRENCY", 8),
		ArbMarketsCacheMs:       getMillisOrDefault("ARB_MARKETS_CACHE_MS", 60_000),
		ArbWsMaxAgeMs:           getMillisOrDefault("ARB_WS_MAX_AGE_MS", 5_000),
		ArbMaxErrors:            getIntOrDefault("ARB_MAX_ERRORS", 5),
		ArbErrorWindowMs:        getMillisOrDefault("ARB_ERROR_WINDOW_MS", 60_000),
		ArbPauseOnErrorMs:       getMillisOrDefault("ARB_PAUSE_ON_ERROR_MS", 120_000),
		ArbExecuteTopN:          getIntOrDefault("ARB_EXECUTE_TOP_N", 1),
		ArbExecutionCooldownMs:  getMillisOrDefault("ARB_EXECUTION_COOLDOWN_MS", 60_000),
		ArbStabilityMinCount:    getIntOrDefault("ARB_STABILITY_MIN_COUNT", 2),
		ArbStabilityWindowMs:    getMillisOrDefault("ARB_STABILITY_WINDOW_MS", 30_000),
		ArbRequireWs:            getBoolOrDefault("ARB_REQUIRE_WS", false),
		ArbRequireWsHealth:      getBoolOrDefault("ARB_REQUIRE_WS_HEALTH", true),
		ArbWsRealtime:           getBoolOrDefault("ARB_WS_REALTIME", true),
		ArbWsRealtimeIntervalMs: getMillisOrDefault("ARB_WS_REALTIME_INTERVAL_MS", 750),
		ArbWsRealtimeMaxBatch:   getIntOrDefault("ARB_WS_REALTIME_MAX_BATCH", 25),
		ArbAutoExecute:          getBoolOrDefault("ARB_AUTO_EXECUTE", false),
		ArbAutoExecuteValue:     getBoolOrDefault("ARB_AUTO_EXECUTE_VALUE", false),

		// Intra-venue detector defaults
		ArbMinProfit:           getFloat64OrDefault("ARB_MIN_PROFIT", 0.02),
		ArbMaxShares:           getFloat64OrDefault("ARB_MAX_SHARES", 500),
		ArbDepthUsage:          getFloat64OrDefault("ARB_DEPTH_USAGE", 0.5),
		ArbMaxVwapDeviationBps: getFloat64OrDefault("ARB_MAX_VWAP_DEVIATION_BPS", 150),
		ArbMaxVwapLevels:       getIntOrDefault("ARB_MAX_VWAP_LEVELS", 6),
		ArbMinNotionalUsd:      getFloat64OrDefault("ARB_MIN_NOTIONAL_USD", 10),
		ArbMinProfitUsd:        getFloat64OrDefault("ARB_MIN_PROFIT_USD", 1),
		ArbMinDepthUsd:         getFloat64OrDefault("ARB_MIN_DEPTH_USD", 25),
		ArbRecheckDeviationBps: getFloat64OrDefault("ARB_RECHECK_DEVIATION_BPS", 50),
		ArbAllowShorting:       getBoolOrDefault("ARB_ALLOW_SHORTING", false),
		ArbSlippageBps:         getFloat64OrDefault("ARB_SLIPPAGE_BPS", 0),

		// Value detector defaults
		ValueEdgeThreshold: getFloat64OrDefault("VALUE_EDGE_THRESHOLD", 0.05),
		ValueConfidenceMin: getFloat64OrDefault("VALUE_CONFIDENCE_MIN", 0.6),
		ValueTradingCost:   getFloat64OrDefault("VALUE_TRADING_COST", 0.01),

		// Multi-outcome defaults
		MultiOutcomeEnabled:     getBoolOrDefault("MULTI_OUTCOME_ENABLED", true),
		MultiOutcomeMinOutcomes: getIntOrDefault("MULTI_OUTCOME_MIN_OUTCOMES", 3),
		MultiOutcomeMaxShares:   getFloat64OrDefault("MULTI_OUTCOME_MAX_SHARES", 300),

		// Cross-venue defaults
		CrossPlatformEnabled:        getBoolOrDefault("CROSS_PLATFORM_ENABLED", false),
		CrossPlatformMinProfit:      getFloat64OrDefault("CROSS_PLATFORM_MIN_PROFIT", 0.03),
		CrossPlatformMinSimilarity:  getFloat64OrDefault("CROSS_PLATFORM_MIN_SIMILARITY", 0.78),
		CrossPlatformTransferCost:   getFloat64OrDefault("CROSS_PLATFORM_TRANSFER_COST", 0.01),
		CrossPlatformSlippageBps:    getFloat64OrDefault("CROSS_PLATFORM_SLIPPAGE_BPS", 50),
		CrossPlatformMaxShares:      getFloat64OrDefault("CROSS_PLATFORM_MAX_SHARES", 400),
		CrossPlatformDepthLevels:    getIntOrDefault("CROSS_PLATFORM_DEPTH_LEVELS", 5),
		CrossPlatformDepthUsage:     getFloat64OrDefault("CROSS_PLATFORM_DEPTH_USAGE", 1.0),
		CrossPlatformUseMapping:     getBoolOrDefault("CROSS_PLATFORM_USE_MAPPING", true),
		CrossPlatformAutoExecute:    getBoolOrDefault("CROSS_PLATFORM_AUTO_EXECUTE", false),
		CrossPlatformRequireConfirm: getBoolOrDefault("CROSS_PLATFORM_REQUIRE_CONFIRM", true),
		CrossPlatformAllowSellBoth:  getBoolOrDefault("CROSS_PLATFORM_ALLOW_SELL_BOTH", false),

		// Dependency plug-in defaults
		DependencyEnabled:         getBoolOrDefault("DEPENDENCY_ENABLED", false),
		DependencySolverPath:      os.Getenv("DEPENDENCY_SOLVER_PATH"),
		DependencyConstraintsPath: getEnvOrDefault("DEPENDENCY_CONSTRAINTS_PATH", "dependency-constraints.json"),
		DependencyMinEdge:         getFloat64OrDefault("DEPENDENCY_MIN_EDGE", 0.02),
		DependencyMaxLegs:         getIntOrDefault("DEPENDENCY_MAX_LEGS", 6),
		DependencyMaxNotionalUsd:  getFloat64OrDefault("DEPENDENCY_MAX_NOTIONAL_USD", 500),
		DependencyTimeoutMs:       getMillisOrDefault("DEPENDENCY_TIMEOUT_MS", 5_000),

		// Executor defaults
		RequireConfirmation: getBoolOrDefault("EXECUTION_REQUIRE_CONFIRMATION", true),
		MaxPositionSize:     getFloat64OrDefault("EXECUTION_MAX_POSITION_SIZE", 1_000),

		// Alert defaults
		AlertWebhookURL:    os.Getenv("ALERT_WEBHOOK_URL"),
		AlertMinIntervalMs: getMillisOrDefault("ALERT_MIN_INTERVAL_MS", 60_000),

		// File defaults
		MappingFile: getEnvOrDefault("MAPPING_FILE", "cross-platform-mapping.json"),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "predict"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "predict123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "predict_agent"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
		SQLitePath:   getEnvOrDefault("SQLITE_PATH", "predict-agent.db"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks enumerations and value ranges. Violations are fatal at
// startup.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return &types.ConfigError{Key: "HTTP_PORT", Reason: "cannot be empty"}
	}
	if c.ExecutionMode != "paper" && c.ExecutionMode != "live" {
		return &types.ConfigError{Key: "EXECUTION_MODE", Reason: "must be 'paper' or 'live', got " + strconv.Quote(c.ExecutionMode)}
	}
	if c.StorageMode != "console" && c.StorageMode != "postgres" && c.StorageMode != "sqlite" {
		return &types.ConfigError{Key: "STORAGE_MODE", Reason: "must be 'console', 'postgres', or 'sqlite', got " + strconv.Quote(c.StorageMode)}
	}
	switch c.HedgeMode {
	case "NONE", "FLATTEN", "CROSS":
	default:
		return &types.ConfigError{Key: "HEDGE_MODE", Reason: "must be NONE, FLATTEN, or CROSS, got " + strconv.Quote(c.HedgeMode)}
	}
	switch c.PredictWsTopicKey {
	case "tokenId", "conditionId", "eventId":
	default:
		return &types.ConfigError{Key: "PREDICT_WS_TOPIC_KEY", Reason: "must be tokenId, conditionId, or eventId, got " + strconv.Quote(c.PredictWsTopicKey)}
	}
	if c.MMSpread <= 0 || c.MMSpread >= 1 {
		return &types.ConfigError{Key: "MM_SPREAD", Reason: "must be in (0, 1)"}
	}
	if c.MMMinSpread > c.MMMaxSpread {
		return &types.ConfigError{Key: "MM_MIN_SPREAD", Reason: "must not exceed MM_MAX_SPREAD"}
	}
	if c.MMValueSignalWeight < 0 || c.MMValueSignalWeight > 1 {
		return &types.ConfigError{Key: "MM_VALUE_SIGNAL_WEIGHT", Reason: "must be in [0, 1]"}
	}
	if c.MMIcebergRatio <= 0 || c.MMIcebergRatio > 1 {
		return &types.ConfigError{Key: "MM_ICEBERG_RATIO", Reason: "must be in (0, 1]"}
	}
	if c.MMPriceTick <= 0 || c.MMPriceTick >= 0.1 {
		return &types.ConfigError{Key: "MM_PRICE_TICK", Reason: "must be in (0, 0.1)"}
	}
	if c.ArbOrderbookConcurrency < 1 {
		return &types.ConfigError{Key: "ARB_ORDERBOOK_CONCURRENCY", Reason: "must be at least 1"}
	}
	if c.PolymarketWsPoolSize < 1 || c.PolymarketWsPoolSize > 20 {
		return &types.ConfigError{Key: "POLYMARKET_WS_POOL_SIZE", Reason: "must be between 1 and 20"}
	}
	if c.ArbDepthUsage <= 0 || c.ArbDepthUsage > 1 {
		return &types.ConfigError{Key: "ARB_DEPTH_USAGE", Reason: "must be in (0, 1]"}
	}
	if c.ArbMinProfit < 0 {
		return &types.ConfigError{Key: "ARB_MIN_PROFIT", Reason: "must be non-negative"}
	}
	if c.CrossPlatformMinSimilarity < 0 || c.CrossPlatformMinSimilarity > 1 {
		return &types.ConfigError{Key: "CROSS_PLATFORM_MIN_SIMILARITY", Reason: "must be in [0, 1]"}
	}
	if c.CrossPlatformDepthUsage <= 0 || c.CrossPlatformDepthUsage > 1 {
		return &types.ConfigError{Key: "CROSS_PLATFORM_DEPTH_USAGE", Reason: "must be in (0, 1]"}
	}
	if c.MultiOutcomeMinOutcomes < 2 {
		return &types.ConfigError{Key: "MULTI_OUTCOME_MIN_OUTCOMES", Reason: "must be at least 2"}
	}
	if c.ValueConfidenceMin < 0 || c.ValueConfidenceMin > 1 {
		return &types.ConfigError{Key: "VALUE_CONFIDENCE_MIN", Reason: "must be in [0, 1]"}
	}
	if c.EnableTrading && c.ExecutionMode == "live" && c.PrivateKey == "" {
		return &types.AuthError{Venue: types.VenuePredict, Reason: "PRIVATE_KEY required for live trading"}
	}
	if c.DependencyEnabled && c.DependencySolverPath == "" {
		return &types.ConfigError{Key: "DEPENDENCY_SOLVER_PATH", Reason: "required when DEPENDENCY_ENABLED"}
	}
	return nil
}

// EnvMap serializes the effective configuration back to environment form.
// Loading from the returned map reproduces the same configuration, so
// serialize-then-load is a fixed point.
func (c *Config) EnvMap() map[string]string {
	m := map[string]string{
		"LOG_LEVEL":       c.LogLevel,
		"HTTP_PORT":       c.HTTPPort,
		"EXECUTION_MODE":  c.ExecutionMode,
		"ENABLE_TRADING":  formatBool(c.EnableTrading),
		"AUTO_CONFIRM_ALL": formatBool(c.AutoConfirm),
		"STATE_DIR":       c.StateDir,
		"STATE_FLUSH_MS":  formatMillis(c.StateFlushMs),
		"HTTP_TIMEOUT_MS": formatMillis(c.HTTPTimeoutMs),

		"API_BASE_URL":            c.APIBaseURL,
		"API_KEY":                 c.APIKey,
		"JWT_TOKEN":               c.JWTToken,
		"PRIVATE_KEY":             c.PrivateKey,
		"PREDICT_ACCOUNT_ADDRESS": c.PredictAccountAddress,

		"PREDICT_WS_ENABLED":            formatBool(c.PredictWsEnabled),
		"PREDICT_WS_URL":                c.PredictWsURL,
		"PREDICT_WS_TOPIC_KEY":          c.PredictWsTopicKey,
		"PREDICT_WS_API_KEY":            c.PredictWsAPIKey,
		"PREDICT_WS_STALE_MS":           formatMillis(c.PredictWsStaleMs),
		"PREDICT_WS_RESET_ON_RECONNECT": formatBool(c.PredictWsResetOnReconnect),

		"POLYMARKET_GAMMA_URL":         c.PolymarketGammaURL,
		"POLYMARKET_CLOB_URL":          c.PolymarketClobURL,
		"POLYMARKET_WS_ENABLED":        formatBool(c.PolymarketWsEnabled),
		"POLYMARKET_WS_URL":            c.PolymarketWsURL,
		"POLYMARKET_WS_CUSTOM_FEATURE": formatBool(c.PolymarketWsCustomFeature),
		"POLYMARKET_WS_INITIAL_DUMP":   formatBool(c.PolymarketWsInitialDump),
		"POLYMARKET_WS_POOL_SIZE":      strconv.Itoa(c.PolymarketWsPoolSize),
		"POLYMARKET_CACHE_TTL_MS":      formatMillis(c.PolymarketCacheTTLMs),
		"POLYMARKET_MAX_MARKETS":       strconv.Itoa(c.PolymarketMaxMarkets),

		"OPINION_OPENAPI_URL":     c.OpinionOpenAPIURL,
		"OPINION_API_KEY":         c.OpinionAPIKey,
		"OPINION_WS_ENABLED":      formatBool(c.OpinionWsEnabled),
		"OPINION_WS_URL":          c.OpinionWsURL,
		"OPINION_WS_HEARTBEAT_MS": formatMillis(c.OpinionWsHeartbeat),
		"OPINION_MAX_MARKETS":     strconv.Itoa(c.OpinionMaxMarkets),

		"WS_RECONNECT_MIN_MS": formatMillis(c.WsReconnectMinMs),
		"WS_RECONNECT_MAX_MS": formatMillis(c.WsReconnectMaxMs),
		"WS_HEALTH_MAX_AGE_MS": formatMillis(c.WsHealthMaxAgeMs),
		"WS_HEALTH_CHECK_MS":  formatMillis(c.WsHealthCheckMs),

		"MM_SPREAD":                 formatFloat(c.MMSpread),
		"MM_MIN_SPREAD":             formatFloat(c.MMMinSpread),
		"MM_MAX_SPREAD":             formatFloat(c.MMMaxSpread),
		"MM_ORDER_SIZE":             formatFloat(c.MMOrderSize),
		"MM_MAX_SINGLE_ORDER_VALUE": formatFloat(c.MMMaxSingleOrderValue),
		"MM_MAX_POSITION":           formatFloat(c.MMMaxPosition),
		"MM_MAX_DAILY_LOSS":         formatFloat(c.MMMaxDailyLoss),
		"MM_INVENTORY_SKEW_FACTOR":  formatFloat(c.MMInventorySkewFactor),
		"MM_CANCEL_THRESHOLD":       formatFloat(c.MMCancelThreshold),
		"MM_REPRICE_THRESHOLD":      formatFloat(c.MMRepriceThreshold),
		"MM_MIN_ORDER_INTERVAL_MS":  formatMillis(c.MMMinOrderIntervalMs),
		"MM_MAX_ORDERS_PER_MARKET":  strconv.Itoa(c.MMMaxOrdersPerMarket),
		"MM_ORDER_REFRESH_MS":       formatMillis(c.MMOrderRefreshMs),
		"MM_ORDER_DEPTH_USAGE":      formatFloat(c.MMOrderDepthUsage),
		"MM_PASS_INTERVAL_MS":       formatMillis(c.MMPassIntervalMs),
		"MM_PRICE_TICK":             formatFloat(c.MMPriceTick),

		"MM_USE_VALUE_SIGNAL":     formatBool(c.MMUseValueSignal),
		"MM_VALUE_SIGNAL_WEIGHT":  formatFloat(c.MMValueSignalWeight),
		"MM_VALUE_CONFIDENCE_MIN": formatFloat(c.MMValueConfidenceMin),

		"MM_ANTI_FILL_BPS":            formatFloat(c.MMAntiFillBps),
		"MM_NEAR_TOUCH_BPS":           formatFloat(c.MMNearTouchBps),
		"MM_COOLDOWN_AFTER_CANCEL_MS": formatMillis(c.MMCooldownAfterCancelMs),
		"MM_VOLATILITY_PAUSE_BPS":     formatFloat(c.MMVolatilityPauseBps),
		"MM_VOLATILITY_LOOKBACK_MS":   formatMillis(c.MMVolatilityLookbackMs),
		"MM_PAUSE_AFTER_VOLATILITY_MS": formatMillis(c.MMPauseAfterVolatility),
		"MM_MIN_TOP_DEPTH_SHARES":     formatFloat(c.MMMinTopDepthShares),
		"MM_MIN_TOP_DEPTH_USD":        formatFloat(c.MMMinTopDepthUsd),

		"MM_ADAPTIVE":                  formatBool(c.MMAdaptive),
		"MM_VOL_EMA_ALPHA":             formatFloat(c.MMVolEmaAlpha),
		"MM_DEPTH_EMA_ALPHA":           formatFloat(c.MMDepthEmaAlpha),
		"MM_DEPTH_REF":                 formatFloat(c.MMDepthRef),
		"MM_DEPTH_LEVELS":              strconv.Itoa(c.MMDepthLevels),
		"MM_IMBALANCE_WEIGHT":          formatFloat(c.MMImbalanceWeight),
		"MM_IMBALANCE_MAX_SKEW":        formatFloat(c.MMImbalanceMaxSkew),
		"MM_CALM_VOL_BPS":              formatFloat(c.MMCalmVolBps),
		"MM_VOLATILE_VOL_BPS":          formatFloat(c.MMVolatileVolBps),
		"MM_PROFILE_HYSTERESIS":        formatFloat(c.MMProfileHysteresis),
		"MM_TOUCH_BUFFER_BPS":          formatFloat(c.MMTouchBufferBps),
		"MM_FILL_RISK_SPREAD_BUMP_BPS": formatFloat(c.MMFillRiskSpreadBumpBps),

		"MM_ICEBERG_ENABLED":          formatBool(c.MMIcebergEnabled),
		"MM_ICEBERG_RATIO":            formatFloat(c.MMIcebergRatio),
		"MM_ICEBERG_MAX_CHUNK_SHARES": formatFloat(c.MMIcebergMaxChunkShares),
		"MM_ICEBERG_REQUOTE_MS":       formatMillis(c.MMIcebergRequoteMs),

		"HEDGE_ON_FILL":          formatBool(c.HedgeOnFill),
		"HEDGE_TRIGGER_SHARES":   formatFloat(c.HedgeTriggerShares),
		"HEDGE_MODE":             c.HedgeMode,
		"HEDGE_MAX_SLIPPAGE_BPS": formatFloat(c.HedgeMaxSlippageBps),

		"ARB_SCAN_INTERVAL_MS":        formatMillis(c.ArbScanIntervalMs),
		"ARB_MAX_MARKETS":             strconv.Itoa(c.ArbMaxMarkets),
		"ARB_ORDERBOOK_CONCURRENCY":   strconv.Itoa(c.ArbOrderbookConcurrency),
		"ARB_MARKETS_CACHE_MS":        formatMillis(c.ArbMarketsCacheMs),
		"ARB_WS_MAX_AGE_MS":           formatMillis(c.ArbWsMaxAgeMs),
		"ARB_MAX_ERRORS":              strconv.Itoa(c.ArbMaxErrors),
		"ARB_ERROR_WINDOW_MS":         formatMillis(c.ArbErrorWindowMs),
		"ARB_PAUSE_ON_ERROR_MS":       formatMillis(c.ArbPauseOnErrorMs),
		"ARB_EXECUTE_TOP_N":           strconv.Itoa(c.ArbExecuteTopN),
		"ARB_EXECUTION_COOLDOWN_MS":   formatMillis(c.ArbExecutionCooldownMs),
		"ARB_STABILITY_MIN_COUNT":     strconv.Itoa(c.ArbStabilityMinCount),
		"ARB_STABILITY_WINDOW_MS":     formatMillis(c.ArbStabilityWindowMs),
		"ARB_REQUIRE_WS":              formatBool(c.ArbRequireWs),
		"ARB_REQUIRE_WS_HEALTH":       formatBool(c.ArbRequireWsHealth),
		"ARB_WS_REALTIME":             formatBool(c.ArbWsRealtime),
		"ARB_WS_REALTIME_INTERVAL_MS": formatMillis(c.ArbWsRealtimeIntervalMs),
		"ARB_WS_REALTIME_MAX_BATCH":   strconv.Itoa(c.ArbWsRealtimeMaxBatch),
		"ARB_AUTO_EXECUTE":            formatBool(c.ArbAutoExecute),
		"ARB_AUTO_EXECUTE_VALUE":      formatBool(c.ArbAutoExecuteValue),

		"ARB_MIN_PROFIT":             formatFloat(c.ArbMinProfit),
		"ARB_MAX_SHARES":             formatFloat(c.ArbMaxShares),
		"ARB_DEPTH_USAGE":            formatFloat(c.ArbDepthUsage),
		"ARB_MAX_VWAP_DEVIATION_BPS": formatFloat(c.ArbMaxVwapDeviationBps),
		"ARB_MAX_VWAP_LEVELS":        strconv.Itoa(c.ArbMaxVwapLevels),
		"ARB_MIN_NOTIONAL_USD":       formatFloat(c.ArbMinNotionalUsd),
		"ARB_MIN_PROFIT_USD":         formatFloat(c.ArbMinProfitUsd),
		"ARB_MIN_DEPTH_USD":          formatFloat(c.ArbMinDepthUsd),
		"ARB_RECHECK_DEVIATION_BPS":  formatFloat(c.ArbRecheckDeviationBps),
		"ARB_ALLOW_SHORTING":         formatBool(c.ArbAllowShorting),
		"ARB_SLIPPAGE_BPS":           formatFloat(c.ArbSlippageBps),

		"VALUE_EDGE_THRESHOLD": formatFloat(c.ValueEdgeThreshold),
		"VALUE_CONFIDENCE_MIN": formatFloat(c.ValueConfidenceMin),
		"VALUE_TRADING_COST":   formatFloat(c.ValueTradingCost),

		"MULTI_OUTCOME_ENABLED":      formatBool(c.MultiOutcomeEnabled),
		"MULTI_OUTCOME_MIN_OUTCOMES": strconv.Itoa(c.MultiOutcomeMinOutcomes),
		"MULTI_OUTCOME_MAX_SHARES":   formatFloat(c.MultiOutcomeMaxShares),

		"CROSS_PLATFORM_ENABLED":         formatBool(c.CrossPlatformEnabled),
		"CROSS_PLATFORM_MIN_PROFIT":      formatFloat(c.CrossPlatformMinProfit),
		"CROSS_PLATFORM_MIN_SIMILARITY":  formatFloat(c.CrossPlatformMinSimilarity),
		"CROSS_PLATFORM_TRANSFER_COST":   formatFloat(c.CrossPlatformTransferCost),
		"CROSS_PLATFORM_SLIPPAGE_BPS":    formatFloat(c.CrossPlatformSlippageBps),
		"CROSS_PLATFORM_MAX_SHARES":      formatFloat(c.CrossPlatformMaxShares),
		"CROSS_PLATFORM_DEPTH_LEVELS":    strconv.Itoa(c.CrossPlatformDepthLevels),
		"CROSS_PLATFORM_DEPTH_USAGE":     formatFloat(c.CrossPlatformDepthUsage),
		"CROSS_PLATFORM_USE_MAPPING":     formatBool(c.CrossPlatformUseMapping),
		"CROSS_PLATFORM_AUTO_EXECUTE":    formatBool(c.CrossPlatformAutoExecute),
		"CROSS_PLATFORM_REQUIRE_CONFIRM": formatBool(c.CrossPlatformRequireConfirm),
		"CROSS_PLATFORM_ALLOW_SELL_BOTH": formatBool(c.CrossPlatformAllowSellBoth),

		"DEPENDENCY_ENABLED":          formatBool(c.DependencyEnabled),
		"DEPENDENCY_SOLVER_PATH":      c.DependencySolverPath,
		"DEPENDENCY_CONSTRAINTS_PATH": c.DependencyConstraintsPath,
		"DEPENDENCY_MIN_EDGE":         formatFloat(c.DependencyMinEdge),
		"DEPENDENCY_MAX_LEGS":         strconv.Itoa(c.DependencyMaxLegs),
		"DEPENDENCY_MAX_NOTIONAL_USD": formatFloat(c.DependencyMaxNotionalUsd),
		"DEPENDENCY_TIMEOUT_MS":       formatMillis(c.DependencyTimeoutMs),

		"EXECUTION_REQUIRE_CONFIRMATION": formatBool(c.RequireConfirmation),
		"EXECUTION_MAX_POSITION_SIZE":    formatFloat(c.MaxPositionSize),

		"ALERT_WEBHOOK_URL":     c.AlertWebhookURL,
		"ALERT_MIN_INTERVAL_MS": formatMillis(c.AlertMinIntervalMs),

		"MAPPING_FILE": c.MappingFile,

		"STORAGE_MODE":      c.StorageMode,
		"POSTGRES_HOST":     c.PostgresHost,
		"POSTGRES_PORT":     c.PostgresPort,
		"POSTGRES_USER":     c.PostgresUser,
		"POSTGRES_PASSWORD": c.PostgresPass,
		"POSTGRES_DB":       c.PostgresDB,
		"POSTGRES_SSLMODE":  c.PostgresSSL,
		"SQLITE_PATH":       c.SQLitePath,
	}
	return m
}

func formatBool(v bool) string {
	return strconv.FormatBool(v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatMillis(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10)
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}

// getMillisOrDefault reads an integer number of milliseconds.
func getMillisOrDefault(key string, defaultMillis int64) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return time.Duration(defaultMillis) * time.Millisecond
	}

	ms, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Duration(defaultMillis) * time.Millisecond
	}

	return time.Duration(ms) * time.Millisecond
}

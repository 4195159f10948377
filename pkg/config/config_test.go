package config

import (
	"os"
	"reflect"
	"testing"
	"time"
)

// validConfig returns a configuration built from defaults. Individual tests
// mutate fields before calling Validate.
func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	return cfg
}

func TestConfig_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.ExecutionMode != "paper" {
		t.Errorf("expected default ExecutionMode to be paper, got %q", cfg.ExecutionMode)
	}
	if cfg.EnableTrading {
		t.Error("expected trading disabled by default")
	}
	if cfg.MMSpread != 0.02 {
		t.Errorf("expected default MMSpread to be 0.02, got %v", cfg.MMSpread)
	}
	if cfg.ArbScanIntervalMs != 5*time.Second {
		t.Errorf("expected default scan interval to be 5s, got %v", cfg.ArbScanIntervalMs)
	}
	if !cfg.MMAdaptive {
		t.Error("expected adaptive quoting enabled by default")
	}
	if cfg.HedgeMode != "NONE" {
		t.Errorf("expected default HedgeMode to be NONE, got %q", cfg.HedgeMode)
	}
	if cfg.PredictWsTopicKey != "tokenId" {
		t.Errorf("expected default topic key to be tokenId, got %q", cfg.PredictWsTopicKey)
	}
	if cfg.CrossPlatformEnabled {
		t.Error("expected cross-platform scanning disabled by default")
	}
	if cfg.StorageMode != "console" {
		t.Errorf("expected default StorageMode to be console, got %q", cfg.StorageMode)
	}
}

func TestConfig_Overrides(t *testing.T) {
	os.Setenv("MM_SPREAD", "0.035")
	os.Setenv("ARB_SCAN_INTERVAL_MS", "750")
	os.Setenv("CROSS_PLATFORM_ENABLED", "true")
	os.Setenv("HEDGE_MODE", "FLATTEN")
	os.Setenv("ARB_MAX_MARKETS", "40")
	t.Cleanup(func() {
		os.Unsetenv("MM_SPREAD")
		os.Unsetenv("ARB_SCAN_INTERVAL_MS")
		os.Unsetenv("CROSS_PLATFORM_ENABLED")
		os.Unsetenv("HEDGE_MODE")
		os.Unsetenv("ARB_MAX_MARKETS")
	})

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.MMSpread != 0.035 {
		t.Errorf("expected MMSpread 0.035, got %v", cfg.MMSpread)
	}
	if cfg.ArbScanIntervalMs != 750*time.Millisecond {
		t.Errorf("expected scan interval 750ms, got %v", cfg.ArbScanIntervalMs)
	}
	if !cfg.CrossPlatformEnabled {
		t.Error("expected cross-platform scanning enabled")
	}
	if cfg.HedgeMode != "FLATTEN" {
		t.Errorf("expected HedgeMode FLATTEN, got %q", cfg.HedgeMode)
	}
	if cfg.ArbMaxMarkets != 40 {
		t.Errorf("expected ArbMaxMarkets 40, got %d", cfg.ArbMaxMarkets)
	}
}

func TestConfig_MalformedValuesFallBackToDefaults(t *testing.T) {
	os.Setenv("MM_SPREAD", "not-a-number")
	os.Setenv("ARB_MAX_MARKETS", "forty")
	os.Setenv("MM_ADAPTIVE", "maybe")
	os.Setenv("STATE_FLUSH_MS", "soon")
	t.Cleanup(func() {
		os.Unsetenv("MM_SPREAD")
		os.Unsetenv("ARB_MAX_MARKETS")
		os.Unsetenv("MM_ADAPTIVE")
		os.Unsetenv("STATE_FLUSH_MS")
	})

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.MMSpread != 0.02 {
		t.Errorf("expected MMSpread default 0.02, got %v", cfg.MMSpread)
	}
	if cfg.ArbMaxMarkets != 120 {
		t.Errorf("expected ArbMaxMarkets default 120, got %d", cfg.ArbMaxMarkets)
	}
	if !cfg.MMAdaptive {
		t.Error("expected MMAdaptive default true")
	}
	if cfg.StateFlushMs != 30*time.Second {
		t.Errorf("expected StateFlushMs default 30s, got %v", cfg.StateFlushMs)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "bad_execution_mode",
			mutate:  func(c *Config) { c.ExecutionMode = "dry" },
			wantErr: `config EXECUTION_MODE: must be 'paper' or 'live', got "dry"`,
		},
		{
			name:    "bad_storage_mode",
			mutate:  func(c *Config) { c.StorageMode = "redis" },
			wantErr: `config STORAGE_MODE: must be 'console', 'postgres', or 'sqlite', got "redis"`,
		},
		{
			name:    "bad_hedge_mode",
			mutate:  func(c *Config) { c.HedgeMode = "flatten" },
			wantErr: `config HEDGE_MODE: must be NONE, FLATTEN, or CROSS, got "flatten"`,
		},
		{
			name:    "bad_topic_key",
			mutate:  func(c *Config) { c.PredictWsTopicKey = "marketId" },
			wantErr: `config PREDICT_WS_TOPIC_KEY: must be tokenId, conditionId, or eventId, got "marketId"`,
		},
		{
			name:    "spread_out_of_range",
			mutate:  func(c *Config) { c.MMSpread = 1.5 },
			wantErr: "config MM_SPREAD: must be in (0, 1)",
		},
		{
			name:    "min_spread_above_max",
			mutate:  func(c *Config) { c.MMMinSpread = 0.1; c.MMMaxSpread = 0.05 },
			wantErr: "config MM_MIN_SPREAD: must not exceed MM_MAX_SPREAD",
		},
		{
			name:    "iceberg_ratio_zero",
			mutate:  func(c *Config) { c.MMIcebergRatio = 0 },
			wantErr: "config MM_ICEBERG_RATIO: must be in (0, 1]",
		},
		{
			name:    "concurrency_zero",
			mutate:  func(c *Config) { c.ArbOrderbookConcurrency = 0 },
			wantErr: "config ARB_ORDERBOOK_CONCURRENCY: must be at least 1",
		},
		{
			name:    "similarity_above_one",
			mutate:  func(c *Config) { c.CrossPlatformMinSimilarity = 1.01 },
			wantErr: "config CROSS_PLATFORM_MIN_SIMILARITY: must be in [0, 1]",
		},
		{
			name:    "min_outcomes_too_small",
			mutate:  func(c *Config) { c.MultiOutcomeMinOutcomes = 1 },
			wantErr: "config MULTI_OUTCOME_MIN_OUTCOMES: must be at least 2",
		},
		{
			name: "live_trading_without_key",
			mutate: func(c *Config) {
				c.EnableTrading = true
				c.ExecutionMode = "live"
				c.PrivateKey = ""
			},
			wantErr: "predict auth: PRIVATE_KEY required for live trading",
		},
		{
			name: "dependency_without_solver",
			mutate: func(c *Config) {
				c.DependencyEnabled = true
				c.DependencySolverPath = ""
			},
			wantErr: "config DEPENDENCY_SOLVER_PATH: required when DEPENDENCY_ENABLED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if err.Error() != tt.wantErr {
				t.Errorf("expected error %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

// TestConfig_EnvMapRoundTrip verifies that serializing the effective
// configuration back to environment form and loading again reproduces the
// same configuration.
func TestConfig_EnvMapRoundTrip(t *testing.T) {
	first, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}

	first.MMSpread = 0.037
	first.HedgeMode = "CROSS"
	first.ArbScanIntervalMs = 1234 * time.Millisecond
	first.PredictWsTopicKey = "conditionId"
	first.CrossPlatformEnabled = true
	first.MMMaxOrdersPerMarket = 4
	first.OpinionAPIKey = "test-key"

	for key, value := range first.EnvMap() {
		t.Setenv(key, value)
	}

	second, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("reload from serialized env: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("round trip changed configuration:\n first: %+v\nsecond: %+v", first, second)
	}

	// Serializing the reloaded configuration must be stable too.
	if !reflect.DeepEqual(first.EnvMap(), second.EnvMap()) {
		t.Error("serialized forms differ after round trip")
	}
}

func TestNewLogger(t *testing.T) {
	t.Run("valid_levels", func(t *testing.T) {
		for _, level := range []string{"", "debug", "info", "warn", "error"} {
			logger, err := NewLogger(level)
			if err != nil {
				t.Errorf("level %q: expected no error, got %v", level, err)
				continue
			}
			_ = logger.Sync()
		}
	})

	t.Run("invalid_level_rejected", func(t *testing.T) {
		_, err := NewLogger("loud")
		if err == nil {
			t.Fatal("expected error for invalid level, got nil")
		}
	})
}

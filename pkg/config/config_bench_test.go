package config

import (
	"os"
	"testing"
)

// BenchmarkConfig_Validate benchmarks configuration validation
func BenchmarkConfig_Validate(b *testing.B) {
	cfg, err := LoadFromEnv()
	if err != nil {
		b.Fatalf("load defaults: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cfg.Validate()
	}
}

// BenchmarkConfig_LoadFromEnv benchmarks environment variable loading
func BenchmarkConfig_LoadFromEnv(b *testing.B) {
	os.Setenv("MM_SPREAD", "0.02")
	os.Setenv("ARB_SCAN_INTERVAL_MS", "5000")
	os.Setenv("EXECUTION_MODE", "paper")
	defer func() {
		os.Unsetenv("MM_SPREAD")
		os.Unsetenv("ARB_SCAN_INTERVAL_MS")
		os.Unsetenv("EXECUTION_MODE")
	}()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = LoadFromEnv()
	}
}

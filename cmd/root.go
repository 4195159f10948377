package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mselser95/predict-agent/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "predict-agent",
	Short: "Predict trading agent",
	Long: `Trading agent for binary YES/NO prediction markets.

Runs a market maker on Predict and an arbitrage scanner that watches
Predict, Polymarket, and Opinion orderbooks for intra-venue, cross-venue,
multi-outcome, and value-mismatch opportunities.

The agent discovers markets over REST, streams orderbooks via WebSocket,
and executes in paper mode unless live trading is explicitly enabled.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	// Flags can be added here if needed
}

// loadConfig reads .env (when present) and the process environment.
func loadConfig() (*config.Config, error) {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return logger, nil
}

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mselser95/predict-agent/internal/venues/predict"
)

//nolint:gochecknoglobals // Cobra boilerplate
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Verify Predict API access",
	Long: `Fetches the market list and one orderbook to confirm the configured
credentials and base URL work. Exits non-zero on failure, so it can back a
container healthcheck or a deploy smoke test.`,
	Args: cobra.NoArgs,
	RunE: runHealthcheck,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(healthcheckCmd)
	healthcheckCmd.Flags().Duration("timeout", 15*time.Second, "Overall check timeout")
}

func runHealthcheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client := predict.NewClient(predict.Config{
		BaseURL:  cfg.APIBaseURL,
		APIKey:   cfg.APIKey,
		JWTToken: cfg.JWTToken,
		Timeout:  cfg.HTTPTimeoutMs,
		Logger:   logger,
	})

	start := time.Now()
	markets, err := client.Markets(ctx, 5)
	if err != nil {
		return fmt.Errorf("markets check failed: %w", err)
	}
	fmt.Printf("markets: ok (%d returned, %s)\n", len(markets), time.Since(start).Round(time.Millisecond))

	if len(markets) == 0 {
		fmt.Println("orderbook: skipped (no markets)")
		return nil
	}

	start = time.Now()
	book, err := client.Orderbook(ctx, markets[0].TokenID)
	if err != nil {
		return fmt.Errorf("orderbook check failed for %s: %w", markets[0].TokenID, err)
	}
	fmt.Printf("orderbook: ok (%d bids / %d asks, %s)\n",
		len(book.Bids), len(book.Asks), time.Since(start).Round(time.Millisecond))

	return nil
}

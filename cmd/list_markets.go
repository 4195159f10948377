package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mselser95/predict-agent/internal/venues/predict"
)

//nolint:gochecknoglobals // Cobra boilerplate
var listMarketsCmd = &cobra.Command{
	Use:   "list-markets",
	Short: "List active markets from the Predict API",
	Long:  `Fetches and displays active markets from the Predict API for debugging purposes.`,
	RunE:  runListMarkets,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(listMarketsCmd)
	listMarketsCmd.Flags().IntP("limit", "l", 20, "Maximum number of markets to fetch")
	listMarketsCmd.Flags().BoolP("verbose", "v", false, "Show detailed market information")
	listMarketsCmd.Flags().StringP("sort", "s", "volume", "Sort by: volume, liquidity, orders")
}

func runListMarkets(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

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

	limit, _ := cmd.Flags().GetInt("limit")
	verbose, _ := cmd.Flags().GetBool("verbose")
	sortBy, _ := cmd.Flags().GetString("sort")

	validSorts := map[string]bool{"volume": true, "liquidity": true, "orders": true}
	if !validSorts[sortBy] {
		return fmt.Errorf("invalid sort option: %s. Valid options: volume, liquidity, orders", sortBy)
	}

	client := predict.NewClient(predict.Config{
		BaseURL:  cfg.APIBaseURL,
		APIKey:   cfg.APIKey,
		JWTToken: cfg.JWTToken,
		Timeout:  cfg.HTTPTimeoutMs,
		Logger:   logger,
	})

	fmt.Printf("Fetching up to %d active markets from Predict...\n\n", limit)

	markets, err := client.Markets(ctx, limit)
	if err != nil {
		return fmt.Errorf("fetch markets: %w", err)
	}

	if len(markets) == 0 {
		fmt.Println("No active markets found.")
		return nil
	}

	switch sortBy {
	case "liquidity":
		sort.Slice(markets, func(i, j int) bool { return markets[i].Liquidity24h > markets[j].Liquidity24h })
	case "orders":
		sort.Slice(markets, func(i, j int) bool { return markets[i].OrderCount > markets[j].OrderCount })
	default:
		sort.Slice(markets, func(i, j int) bool { return markets[i].Volume24h > markets[j].Volume24h })
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "TOKEN\tOUTCOME\tQUESTION\tVOLUME 24H\n")
	fmt.Fprintf(w, "-----\t-------\t--------\t----------\n")

	for i := range markets {
		market := &markets[i]

		question := market.Question
		if len(question) > 60 {
			question = question[:57] + "..."
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t$%.0f\n",
			shortID(market.TokenID), market.Outcome, question, market.Volume24h)

		if verbose {
			fmt.Fprintf(w, "\tMarket ID: %s\n", market.MarketID)
			fmt.Fprintf(w, "\tCondition: %s\n", market.ConditionID)
			fmt.Fprintf(w, "\tActive: %v, NegRisk: %v, Fee: %.0f bps\n",
				market.Active, market.IsNegRisk, market.FeeRateBps)
			fmt.Fprintf(w, "\tLiquidity 24h: $%.0f, Orders: %d\n",
				market.Liquidity24h, market.OrderCount)
			fmt.Fprintf(w, "\n")
		}
	}

	w.Flush()

	fmt.Printf("\nTotal: %d markets\n", len(markets))

	return nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12] + "..."
	}
	return id
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/mselser95/predict-agent/internal/venues/predict"
)

//nolint:gochecknoglobals // Cobra boilerplate
var listOrdersCmd = &cobra.Command{
	Use:   "list-orders",
	Short: "List your open orders on Predict",
	Long: `Fetches and displays your open orders.

Examples:
  predict-agent list-orders
  predict-agent list-orders --format json`,
	Args: cobra.NoArgs,
	RunE: runListOrders,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(listOrdersCmd)
	listOrdersCmd.Flags().String("format", "table", "Output format: table, json")
}

func runListOrders(cmd *cobra.Command, args []string) error {
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

	format, _ := cmd.Flags().GetString("format")
	if format != "table" && format != "json" {
		return fmt.Errorf("invalid format: %s (valid: table, json)", format)
	}

	client := predict.NewClient(predict.Config{
		BaseURL:  cfg.APIBaseURL,
		APIKey:   cfg.APIKey,
		JWTToken: cfg.JWTToken,
		Timeout:  cfg.HTTPTimeoutMs,
		Logger:   logger,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	orders, err := client.OpenOrders(ctx)
	if err != nil {
		return fmt.Errorf("fetch open orders: %w", err)
	}

	if len(orders) == 0 {
		fmt.Println("No open orders found.")
		return nil
	}

	if format == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(orders)
	}

	displayOrdersTable(orders)
	fmt.Printf("\nTotal: %d orders, $%.2f locked\n", len(orders), lockedValue(orders))
	return nil
}

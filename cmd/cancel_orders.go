package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mselser95/predict-agent/internal/venues/predict"
	"github.com/mselser95/predict-agent/pkg/types"
)

//nolint:gochecknoglobals // Cobra boilerplate
var cancelOrdersCmd = &cobra.Command{
	Use:   "cancel-orders",
	Short: "Cancel all open orders on Predict",
	Long: `Fetches your open orders and cancels them in one batch.

Use --dry-run to preview orders without canceling.

Examples:
  # Preview orders without canceling
  predict-agent cancel-orders --dry-run

  # Cancel all orders immediately
  predict-agent cancel-orders`,
	Args: cobra.NoArgs,
	RunE: runCancelOrders,
}

//nolint:gochecknoglobals // Cobra boilerplate
var dryRunFlag bool

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(cancelOrdersCmd)
	cancelOrdersCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Preview orders without canceling")
}

func runCancelOrders(cmd *cobra.Command, args []string) error {
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

	displayOrdersTable(orders)
	fmt.Printf("\nTotal: %d orders, $%.2f locked\n", len(orders), lockedValue(orders))

	if dryRunFlag {
		fmt.Println("\n[DRY RUN] No orders were canceled.")
		return nil
	}

	fmt.Println("\nCanceling all orders...")

	hashes := make([]string, len(orders))
	for i := range orders {
		hashes[i] = orders[i].Hash
	}

	err = client.CancelOrders(ctx, hashes)
	if err != nil {
		return fmt.Errorf("cancel orders: %w", err)
	}

	fmt.Printf("Canceled %d orders.\n", len(hashes))
	return nil
}

func displayOrdersTable(orders []types.Order) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ORDER\tTOKEN\tSIDE\tPRICE\tSHARES\tAGE\n")
	fmt.Fprintf(w, "-----\t-----\t----\t-----\t------\t---\n")

	for i := range orders {
		order := &orders[i]
		fmt.Fprintf(w, "%s\t%s\t%s\t$%.3f\t%.1f\t%s\n",
			shortID(order.Hash), shortID(order.TokenID), order.Side,
			order.Price, order.Shares,
			time.Since(order.CreatedAt).Round(time.Second))
	}
	w.Flush()
}

// lockedValue sums the notional tied up in resting orders.
func lockedValue(orders []types.Order) (total float64) {
	for i := range orders {
		total += orders[i].Price * orders[i].Shares
	}
	return total
}

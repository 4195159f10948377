package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/mselser95/predict-agent/internal/venues/predict"
	"github.com/mselser95/predict-agent/pkg/types"
)

//nolint:gochecknoglobals // Cobra boilerplate
var watchOrderbookCmd = &cobra.Command{
	Use:   "watch-orderbook <token-id>",
	Short: "Watch orderbook updates for a specific token",
	Long: `Polls the Predict API and displays the orderbook for a token at a fixed
interval. Useful for debugging and understanding market dynamics.

Example:
  predict-agent watch-orderbook 0xabc123`,
	Args: cobra.ExactArgs(1),
	RunE: runWatchOrderbook,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(watchOrderbookCmd)
	watchOrderbookCmd.Flags().BoolP("json", "j", false, "Output raw JSON snapshots")
	watchOrderbookCmd.Flags().DurationP("interval", "i", 2*time.Second, "Polling interval")
	watchOrderbookCmd.Flags().IntP("depth", "d", 5, "Book levels to display per side")
}

func runWatchOrderbook(cmd *cobra.Command, args []string) error {
	tokenID := args[0]

	ctx, cancel := context.WithCancel(context.Background())
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

	rawJSON, _ := cmd.Flags().GetBool("json")
	interval, _ := cmd.Flags().GetDuration("interval")
	depth, _ := cmd.Flags().GetInt("depth")

	client := predict.NewClient(predict.Config{
		BaseURL:  cfg.APIBaseURL,
		APIKey:   cfg.APIKey,
		JWTToken: cfg.JWTToken,
		Timeout:  cfg.HTTPTimeoutMs,
		Logger:   logger,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	fmt.Printf("Watching orderbook for %s (every %s, Ctrl+C to stop)\n\n", tokenID, interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		book, err := client.Orderbook(ctx, tokenID)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Printf("fetch orderbook: %v\n", err)
		} else if rawJSON {
			encoder := json.NewEncoder(os.Stdout)
			if err := encoder.Encode(book); err != nil {
				return fmt.Errorf("encode orderbook: %w", err)
			}
		} else {
			displayBook(book, depth)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func displayBook(book *types.Orderbook, depth int) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "--- %s ---\n", time.Now().Format("15:04:05"))
	fmt.Fprintf(w, "BID SIZE\tBID\t\tASK\tASK SIZE\n")

	for i := 0; i < depth; i++ {
		bidPrice, bidSize := "", ""
		if i < len(book.Bids) {
			bidPrice = fmt.Sprintf("%.3f", book.Bids[i].Price)
			bidSize = fmt.Sprintf("%.1f", book.Bids[i].Shares)
		}
		askPrice, askSize := "", ""
		if i < len(book.Asks) {
			askPrice = fmt.Sprintf("%.3f", book.Asks[i].Price)
			askSize = fmt.Sprintf("%.1f", book.Asks[i].Shares)
		}
		fmt.Fprintf(w, "%s\t%s\t\t%s\t%s\n", bidSize, bidPrice, askPrice, askSize)
	}

	if bid, ok := book.BestBid(); ok {
		if ask, ok := book.BestAsk(); ok {
			fmt.Fprintf(w, "spread\t%.3f\t\tmid\t%.3f\n",
				ask.Price-bid.Price, (ask.Price+bid.Price)/2)
		}
	}

	w.Flush()
	fmt.Println()
}

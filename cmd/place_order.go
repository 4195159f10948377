package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mselser95/predict-agent/internal/execution"
	"github.com/mselser95/predict-agent/internal/venues/predict"
	"github.com/mselser95/predict-agent/pkg/types"
	"github.com/mselser95/predict-agent/pkg/wallet"
)

//nolint:gochecknoglobals // Cobra boilerplate
var placeOrderCmd = &cobra.Command{
	Use:   "place-order <token-id>",
	Short: "Place a single limit order on Predict",
	Long: `Builds, signs, and submits one limit order. Defaults to paper mode;
pass --live to sign and ship a real order (requires PRIVATE_KEY and
PREDICT_ACCOUNT_ADDRESS).

Examples:
  # Paper order, nothing leaves the process
  predict-agent place-order 0xabc123 --side BUY --price 0.45 --shares 10

  # Live order
  predict-agent place-order 0xabc123 --side BUY --price 0.45 --shares 10 --live`,
	Args: cobra.ExactArgs(1),
	RunE: runPlaceOrder,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(placeOrderCmd)
	placeOrderCmd.Flags().String("side", "BUY", "Order side: BUY or SELL")
	placeOrderCmd.Flags().Float64("price", 0, "Limit price in (0, 1)")
	placeOrderCmd.Flags().Float64("shares", 0, "Order size in shares")
	placeOrderCmd.Flags().Bool("live", false, "Sign and submit a real order")
}

func runPlaceOrder(cmd *cobra.Command, args []string) error {
	tokenID := args[0]

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

	sideStr, _ := cmd.Flags().GetString("side")
	price, _ := cmd.Flags().GetFloat64("price")
	shares, _ := cmd.Flags().GetFloat64("shares")
	live, _ := cmd.Flags().GetBool("live")

	side := types.Side(strings.ToUpper(sideStr))
	if side != types.SideBuy && side != types.SideSell {
		return fmt.Errorf("invalid side: %s (valid: BUY, SELL)", sideStr)
	}
	if price <= 0 || price >= 1 {
		return fmt.Errorf("price must be in (0, 1), got %v", price)
	}
	if shares <= 0 {
		return fmt.Errorf("shares must be positive, got %v", shares)
	}

	var submitter execution.OrderSubmitter
	if live {
		if cfg.PrivateKey == "" {
			return fmt.Errorf("PRIVATE_KEY not set")
		}
		signer, err := wallet.NewSigner(cfg.PrivateKey, cfg.PredictAccountAddress)
		if err != nil {
			return fmt.Errorf("create signer: %w", err)
		}
		client := predict.NewClient(predict.Config{
			BaseURL:  cfg.APIBaseURL,
			APIKey:   cfg.APIKey,
			JWTToken: cfg.JWTToken,
			Timeout:  cfg.HTTPTimeoutMs,
			Logger:   logger,
		})
		submitter = execution.NewPredictSubmitter(execution.PredictSubmitterConfig{
			Client: client,
			Signer: signer,
			Logger: logger,
		})
		maker, _ := submitter.Addresses()
		fmt.Printf("LIVE order as %s\n", maker)
	} else {
		submitter = execution.NewPaperSubmitter(types.VenuePredict, logger)
		fmt.Println("Paper order (use --live to submit for real)")
	}

	market := &types.Market{
		Venue:   types.VenuePredict,
		TokenID: tokenID,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	receipt, err := submitter.BuildAndSubmitLimit(ctx, market, side, price, shares)
	if err != nil {
		return fmt.Errorf("submit order: %w", err)
	}

	fmt.Printf("\nOrder accepted\n")
	fmt.Printf("  Hash:   %s\n", receipt.Hash)
	fmt.Printf("  Side:   %s\n", receipt.Side)
	fmt.Printf("  Price:  $%.3f\n", receipt.Price)
	fmt.Printf("  Shares: %.2f\n", receipt.Shares)
	fmt.Printf("  At:     %s\n", receipt.At.Format(time.RFC3339))

	return nil
}

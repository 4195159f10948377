package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mselser95/predict-agent/pkg/healthprobe"
	"github.com/mselser95/predict-agent/pkg/httpserver"
	"github.com/mselser95/predict-agent/pkg/wallet"
)

//nolint:gochecknoglobals // Cobra boilerplate
var trackBalanceCmd = &cobra.Command{
	Use:   "track-balance",
	Short: "Track the hedge wallet with Prometheus metrics",
	Long: `Continuously polls the Polygon funding wallet and exposes metrics over HTTP.

Metrics exposed at http://localhost:<port>/metrics:
- predict_agent_wallet_matic_balance - MATIC balance (for gas)
- predict_agent_wallet_usdc_balance - USDC balance (for trading)
- predict_agent_wallet_usdc_allowance - USDC approved to the CTF Exchange
- predict_agent_wallet_active_positions - Number of open positions
- predict_agent_wallet_total_position_value - Sum of position values (USD)
- predict_agent_wallet_unrealized_pnl - Total unrealized P&L (USD)
- predict_agent_wallet_portfolio_value - USDC + positions (USD)

Example usage:
  track-balance                  # Update every 1 minute
  track-balance --interval 30s   # Update every 30 seconds
  track-balance --port 8081      # Use custom port`,
	Args: cobra.NoArgs,
	RunE: runTrackBalance,
}

var (
	//nolint:gochecknoglobals // Cobra boilerplate
	trackInterval time.Duration
	//nolint:gochecknoglobals // Cobra boilerplate
	trackRPC string
	//nolint:gochecknoglobals // Cobra boilerplate
	trackPort string
)

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(trackBalanceCmd)
	trackBalanceCmd.Flags().DurationVarP(&trackInterval, "interval", "i", time.Minute, "Polling interval")
	trackBalanceCmd.Flags().StringVarP(&trackRPC, "rpc", "r", "https://polygon-rpc.com", "Polygon RPC endpoint")
	trackBalanceCmd.Flags().StringVarP(&trackPort, "port", "p", "8080", "HTTP server port for /metrics")
}

func runTrackBalance(cmd *cobra.Command, args []string) error {
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

	address, err := walletAddress(cfg.PrivateKey, cfg.PredictAccountAddress)
	if err != nil {
		return err
	}

	tracker, err := wallet.NewTracker(&wallet.TrackerConfig{
		RPCURL:       trackRPC,
		Address:      address,
		PollInterval: trackInterval,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("create tracker: %w", err)
	}

	health := healthprobe.New()
	health.SetReady(true)
	server := httpserver.New(&httpserver.Config{
		Port:   trackPort,
		Logger: logger,
		Health: health,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		err := server.Start()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http-server-error", zap.Error(err))
		}
	}()

	fmt.Printf("Tracking %s every %s, metrics at :%s/metrics (Ctrl+C to stop)\n",
		address.Hex(), trackInterval, trackPort)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	err = tracker.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("tracker: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)

	return nil
}

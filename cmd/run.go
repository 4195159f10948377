package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mselser95/predict-agent/internal/app"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the trading agent",
	Long: `Starts the Predict trading agent, which will:
1. Discover markets on Predict (and peer venues when cross-platform is enabled)
2. Subscribe to their orderbooks via WebSocket
3. Quote two-sided markets on Predict
4. Scan for arbitrage opportunities and execute them in paper or live mode

Use --maker-only or --monitor-only to run a single half of the agent.`,
	RunE: runAgent,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("maker-only", false, "Run only the market maker")
	runCmd.Flags().Bool("monitor-only", false, "Run only the arbitrage monitor")
}

func runAgent(cmd *cobra.Command, args []string) error {
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

	makerOnly, _ := cmd.Flags().GetBool("maker-only")
	monitorOnly, _ := cmd.Flags().GetBool("monitor-only")
	if makerOnly && monitorOnly {
		return fmt.Errorf("cannot use both --maker-only and --monitor-only")
	}

	opts := &app.Options{
		RunMaker:   !monitorOnly,
		RunMonitor: !makerOnly,
	}

	application, err := app.New(cfg, logger, opts)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}

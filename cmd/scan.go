package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/mselser95/predict-agent/internal/app"
	"github.com/mselser95/predict-agent/internal/arbitrage"
)

//nolint:gochecknoglobals // Cobra boilerplate
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a single arbitrage scan and print the opportunities",
	Long: `Fetches current markets and orderbooks, runs every enabled detector once,
and prints the detected opportunities. No orders are placed regardless of
the execution mode.

Useful for checking detector thresholds before starting the full agent.

Example:
  predict-agent scan
  predict-agent scan --format json`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().String("format", "table", "Output format: table, json")
	scanCmd.Flags().Duration("timeout", 60*time.Second, "Scan timeout")
}

func runScan(cmd *cobra.Command, args []string) error {
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
	timeout, _ := cmd.Flags().GetDuration("timeout")

	// A one-shot scan never executes, whatever the env says.
	cfg.ArbAutoExecute = false
	cfg.ExecutionMode = "paper"

	application, err := app.New(cfg, logger, &app.Options{RunMaker: false, RunMonitor: true})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err = application.ScanOnce(ctx)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	opportunities := application.RecentOpportunities()
	if len(opportunities) == 0 {
		fmt.Println("No opportunities detected.")
		return nil
	}

	if format == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(opportunities)
	}

	displayOpportunities(opportunities)
	return nil
}

func displayOpportunities(opportunities []arbitrage.Opportunity) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "TYPE\tKEY\tEDGE\tSIZE\tNOTIONAL\tLEGS\n")
	fmt.Fprintf(w, "----\t---\t----\t----\t--------\t----\n")

	for i := range opportunities {
		opp := &opportunities[i]
		fmt.Fprintf(w, "%s\t%s\t$%.4f\t%.1f\t$%.2f\t%d\n",
			opp.Type, opp.Key, opp.Edge, opp.Size, opp.TotalNotional(), len(opp.Legs))
	}
	w.Flush()

	fmt.Printf("\nTotal: %d opportunities\n", len(opportunities))
}

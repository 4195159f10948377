package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/mselser95/predict-agent/internal/venues/predict"
	"github.com/mselser95/predict-agent/pkg/types"
)

//nolint:gochecknoglobals // Cobra boilerplate
var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "Display your Predict positions with P&L",
	Long: `Fetches positions from your Predict account.

For each position, displays:
- Token and net YES/NO shares
- Average entry price and current mark
- P&L (profit/loss)

Examples:
  # Show all positions (default table format)
  predict-agent positions

  # Export to JSON
  predict-agent positions --format json > positions.json

  # Export to CSV
  predict-agent positions --format csv > positions.csv

  # Sort by P&L (most profitable first)
  predict-agent positions --sort-by-pnl`,
	Args: cobra.NoArgs,
	RunE: runPositions,
}

var (
	//nolint:gochecknoglobals // Cobra boilerplate
	positionsFormat string
	//nolint:gochecknoglobals // Cobra boilerplate
	sortByPnL bool
)

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(positionsCmd)
	positionsCmd.Flags().StringVar(&positionsFormat, "format", "table", "Output format: table, json, csv")
	positionsCmd.Flags().BoolVar(&sortByPnL, "sort-by-pnl", false, "Sort positions by P&L (highest first)")
}

// positionSummary holds aggregate statistics across all positions.
type positionSummary struct {
	Count         int     `json:"count"`
	TotalValueUSD float64 `json:"totalValueUsd"`
	TotalPnLUSD   float64 `json:"totalPnlUsd"`
}

func runPositions(cmd *cobra.Command, args []string) error {
	validFormats := map[string]bool{"table": true, "json": true, "csv": true}
	if !validFormats[positionsFormat] {
		return fmt.Errorf("invalid format: %s (valid: table, json, csv)", positionsFormat)
	}

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

	positions, err := client.Positions(ctx)
	if err != nil {
		return fmt.Errorf("fetch positions: %w", err)
	}

	if len(positions) == 0 {
		fmt.Println("No positions found.")
		return nil
	}

	if sortByPnL {
		sort.Slice(positions, func(i, j int) bool { return positions[i].PnL > positions[j].PnL })
	}

	switch positionsFormat {
	case "json":
		return displayPositionsJSON(positions)
	case "csv":
		return displayPositionsCSV(positions)
	default:
		displayPositionsTable(positions)
		return nil
	}
}

func displayPositionsTable(positions []types.Position) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "TOKEN\tYES\tNO\tENTRY\tMARK\tVALUE\tP&L\n")
	fmt.Fprintf(w, "-----\t---\t--\t-----\t----\t-----\t---\n")

	for i := range positions {
		p := &positions[i]
		fmt.Fprintf(w, "%s\t%.1f\t%.1f\t$%.3f\t$%.3f\t$%.2f\t%s\n",
			shortID(p.TokenID), p.YesShares, p.NoShares,
			p.AvgEntry, p.Mark, positionValue(p), formatPnL(p.PnL))
	}
	w.Flush()

	summary := summarizePositions(positions)
	fmt.Printf("\nTotal: %d positions, $%.2f value, %s P&L\n",
		summary.Count, summary.TotalValueUSD, formatPnL(summary.TotalPnLUSD))
}

func displayPositionsJSON(positions []types.Position) error {
	output := struct {
		Positions []types.Position `json:"positions"`
		Summary   positionSummary  `json:"summary"`
	}{
		Positions: positions,
		Summary:   summarizePositions(positions),
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	err := encoder.Encode(output)
	if err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

func displayPositionsCSV(positions []types.Position) error {
	writer := csv.NewWriter(os.Stdout)
	defer writer.Flush()

	err := writer.Write([]string{"Token", "YesShares", "NoShares", "AvgEntry", "Mark", "Value", "PnL"})
	if err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}

	for i := range positions {
		p := &positions[i]
		err = writer.Write([]string{
			p.TokenID,
			fmt.Sprintf("%.2f", p.YesShares),
			fmt.Sprintf("%.2f", p.NoShares),
			fmt.Sprintf("%.4f", p.AvgEntry),
			fmt.Sprintf("%.4f", p.Mark),
			fmt.Sprintf("%.2f", positionValue(p)),
			fmt.Sprintf("%.2f", p.PnL),
		})
		if err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
	}

	return nil
}

// positionValue marks the net exposure at the current YES price. NO shares
// are worth the complement.
func positionValue(p *types.Position) float64 {
	return p.YesShares*p.Mark + p.NoShares*(1-p.Mark)
}

func summarizePositions(positions []types.Position) (summary positionSummary) {
	summary.Count = len(positions)
	for i := range positions {
		summary.TotalValueUSD += positionValue(&positions[i])
		summary.TotalPnLUSD += positions[i].PnL
	}
	return summary
}

func formatPnL(pnl float64) string {
	if pnl > 0 {
		return fmt.Sprintf("+$%.2f", pnl)
	}
	if pnl < 0 {
		return fmt.Sprintf("-$%.2f", -pnl)
	}
	return "$0.00"
}

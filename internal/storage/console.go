package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mselser95/predict-agent/internal/arbitrage"
	"github.com/mselser95/predict-agent/internal/execution"
)

const consoleRule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// ConsoleStorage implements Storage by pretty-printing to the console.
type ConsoleStorage struct {
	logger *zap.Logger
}

// NewConsoleStorage creates a new console storage.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{logger: logger}
}

// StoreOpportunity pretty-prints a detected opportunity.
func (c *ConsoleStorage) StoreOpportunity(_ context.Context, opp *arbitrage.Opportunity) error {
	fmt.Println("\n" + consoleRule)
	fmt.Printf("🎯 %s OPPORTUNITY DETECTED\n", opp.Type)
	fmt.Println(consoleRule)
	fmt.Printf("ID:       %s\n", shortID(opp.ID))
	fmt.Printf("Key:      %s\n", opp.Key)
	fmt.Printf("Time:     %s\n", opp.DetectedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Risk:     %s (confidence %.2f)\n", opp.RiskLevel, opp.Confidence)
	fmt.Println(consoleRule)
	fmt.Printf("📊 LEGS\n")
	for _, leg := range opp.Legs {
		fmt.Printf("  %-4s %-10s %-10s %8.0f @ %.4f  ($%.2f)\n",
			leg.Side, leg.Venue, leg.Outcome, leg.Shares, leg.Price, leg.Notional())
	}
	fmt.Println(consoleRule)
	fmt.Printf("💰 PROFIT\n")
	fmt.Printf("  Edge:            %.4f/share\n", opp.Edge)
	fmt.Printf("  Size:            %.0f shares\n", opp.Size)
	fmt.Printf("  Total Notional:  $%.2f\n", opp.TotalNotional())
	fmt.Printf("  Expected Profit: $%.2f\n", opp.ExpectedProfit())
	fmt.Println(consoleRule)

	return nil
}

// StoreExecution pretty-prints an execution record.
func (c *ConsoleStorage) StoreExecution(_ context.Context, rec *execution.Record) error {
	fmt.Println("\n" + consoleRule)
	marker := "✅"
	if rec.Status != execution.StatusExecuted {
		marker = "❌"
	}
	fmt.Printf("%s EXECUTION %s\n", marker, rec.Status)
	fmt.Println(consoleRule)
	fmt.Printf("Opportunity: %s (%s)\n", shortID(rec.OpportunityID), rec.Key)
	fmt.Printf("Time:        %s\n", rec.ExecutedAt.Format("2006-01-02 15:04:05"))
	for _, trade := range rec.Trades {
		line := fmt.Sprintf("  %-4s %-10s %8.0f @ %.4f  %s",
			trade.Side, trade.Venue, trade.Shares, trade.Price, trade.Status)
		if trade.Error != "" {
			line += "  (" + trade.Error + ")"
		}
		fmt.Println(line)
	}
	fmt.Printf("Total Cost:      $%.2f\n", rec.TotalCost)
	fmt.Printf("Expected Profit: $%.2f\n", rec.ExpectedProfit)
	fmt.Println(consoleRule)

	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

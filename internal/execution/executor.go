package execution

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/predict-agent/internal/arbitrage"
	"github.com/mselser95/predict-agent/pkg/types"
)

// Status is the lifecycle state of one execution.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusExecuted Status = "EXECUTED"
	StatusFailed   Status = "FAILED"
)

// Trade records one leg's submission outcome.
type Trade struct {
	Venue   types.Venue `json:"venue"`
	TokenID string      `json:"tokenId"`
	Side    types.Side  `json:"side"`
	Price   float64     `json:"price"`
	Shares  float64     `json:"shares"`
	Hash    string      `json:"hash,omitempty"`
	Status  Status      `json:"status"`
	Error   string      `json:"error,omitempty"`
	At      time.Time   `json:"at"`
}

// Record is the durable result of one opportunity execution.
type Record struct {
	OpportunityID  string         `json:"opportunityId"`
	Key            string         `json:"key"`
	Type           arbitrage.Type `json:"type"`
	Status         Status         `json:"status"`
	Trades         []Trade        `json:"trades"`
	TotalCost      float64        `json:"totalCost"`
	ExpectedProfit float64        `json:"expectedProfit"`
	ExecutedAt     time.Time      `json:"executedAt"`
}

// Executor turns opportunities into orders: confirmation policy, leg scaling,
// and sequential submission in declared leg order.
type Executor struct {
	predict OrderSubmitter
	peers   map[types.Venue]OrderSubmitter
	logger  *zap.Logger

	maxPositionSize          float64
	requireConfirmation      bool
	crossRequireConfirmation bool
	autoConfirm              bool
	hedgeOnFailure           bool
	prompt                   func(opp *arbitrage.Opportunity) bool
}

// ExecutorConfig holds executor wiring and policy.
type ExecutorConfig struct {
	Predict OrderSubmitter
	Peers   map[types.Venue]OrderSubmitter
	// MaxPositionSize caps the largest leg's notional in USD; legs are scaled
	// down proportionally to preserve their ratios.
	MaxPositionSize     float64
	RequireConfirmation bool
	// CrossRequireConfirmation forces the confirmation step for cross-venue
	// opportunities even when the global policy is off.
	CrossRequireConfirmation bool
	AutoConfirm              bool
	HedgeOnFailure           bool
	// Prompt overrides the terminal yes/no prompt, mainly for tests.
	Prompt func(opp *arbitrage.Opportunity) bool
	Logger *zap.Logger
}

// NewExecutor creates an executor.
func NewExecutor(cfg ExecutorConfig) *Executor {
	return &Executor{
		predict:                  cfg.Predict,
		peers:                    cfg.Peers,
		logger:                   cfg.Logger,
		maxPositionSize:          cfg.MaxPositionSize,
		requireConfirmation:      cfg.RequireConfirmation,
		crossRequireConfirmation: cfg.CrossRequireConfirmation,
		autoConfirm:              cfg.AutoConfirm,
		hedgeOnFailure:           cfg.HedgeOnFailure,
		prompt:                   cfg.Prompt,
	}
}

// Execute runs one opportunity end to end and always returns a record; the
// error mirrors Record.Status for callers that only branch on failure.
func (e *Executor) Execute(ctx context.Context, opp *arbitrage.Opportunity, snap *arbitrage.Snapshot) (*Record, error) {
	start := time.Now()
	defer func() {
		ExecutionDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	record := &Record{
		OpportunityID:  opp.ID,
		Key:            opp.Key,
		Type:           opp.Type,
		Status:         StatusPending,
		ExpectedProfit: opp.ExpectedProfit(),
		ExecutedAt:     start,
	}

	if !e.confirmed(opp) {
		record.Status = StatusFailed
		ExecutionsTotal.WithLabelValues(string(opp.Type), "rejected").Inc()
		return record, &types.OrderError{Venue: types.VenuePredict, Code: "confirmation", Message: "execution not confirmed"}
	}

	legs := scaleLegs(opp.Legs, e.maxPositionSize)
	if len(legs) == 0 {
		record.Status = StatusFailed
		ExecutionsTotal.WithLabelValues(string(opp.Type), "rejected").Inc()
		return record, &types.OrderError{Venue: types.VenuePredict, Code: "legs", Message: "opportunity has no legs"}
	}

	failed := false
	for _, leg := range legs {
		trade := e.submitLeg(ctx, leg, snap)
		record.Trades = append(record.Trades, trade)
		if trade.Status == StatusFailed {
			failed = true
			break
		}
		record.TotalCost += trade.Price * trade.Shares
	}

	if failed {
		record.Status = StatusFailed
		ExecutionsTotal.WithLabelValues(string(opp.Type), "failed").Inc()
		if e.hedgeOnFailure && opp.Type == arbitrage.TypeCrossVenue {
			e.unwind(ctx, record, snap)
		}
		e.logger.Error("execution-failed",
			zap.String("opportunity-id", opp.ID),
			zap.String("key", opp.Key),
			zap.Int("legs-filled", len(record.Trades)-1))
		return record, &types.OrderError{Venue: types.VenuePredict, Code: "leg", Message: "leg submission failed"}
	}

	record.Status = StatusExecuted
	ExecutionsTotal.WithLabelValues(string(opp.Type), "executed").Inc()
	ProfitExpectedUSD.WithLabelValues(string(opp.Type)).Add(record.ExpectedProfit)

	e.logger.Info("execution-complete",
		zap.String("opportunity-id", opp.ID),
		zap.String("key", opp.Key),
		zap.Float64("total-cost", record.TotalCost),
		zap.Float64("expected-profit", record.ExpectedProfit))

	return record, nil
}

// submitLeg ships one leg through the venue's submitter.
func (e *Executor) submitLeg(ctx context.Context, leg arbitrage.Leg, snap *arbitrage.Snapshot) Trade {
	trade := Trade{
		Venue:   leg.Venue,
		TokenID: leg.TokenID,
		Side:    leg.Side,
		Price:   leg.Price,
		Shares:  leg.Shares,
		Status:  StatusFailed,
		At:      time.Now(),
	}

	submitter := e.submitterFor(leg.Venue)
	if submitter == nil {
		trade.Error = fmt.Sprintf("no submitter for venue %s", leg.Venue)
		return trade
	}

	market := e.legMarket(leg, snap)
	receipt, err := submitter.BuildAndSubmitLimit(ctx, market, leg.Side, leg.Price, leg.Shares)
	if err != nil {
		trade.Error = err.Error()
		return trade
	}

	trade.Hash = receipt.Hash
	trade.Price = receipt.Price
	trade.Status = StatusExecuted
	return trade
}

// unwind flattens already-submitted legs with market orders after a later leg
// failed, leaving no one-sided exposure.
func (e *Executor) unwind(ctx context.Context, record *Record, snap *arbitrage.Snapshot) {
	for _, trade := range record.Trades {
		if trade.Status != StatusExecuted {
			continue
		}
		submitter := e.submitterFor(trade.Venue)
		if submitter == nil {
			continue
		}

		var book *types.Orderbook
		if snap != nil {
			book = snap.Book(trade.Venue, trade.TokenID)
		}
		market := &types.Market{Venue: trade.Venue, TokenID: trade.TokenID}
		if snap != nil {
			if m := snap.Market(trade.Venue, trade.TokenID); m != nil {
				market = m
			}
		}

		_, err := submitter.BuildAndSubmitMarket(ctx, market, trade.Side.Opposite(), trade.Shares, book, 100)
		if err != nil {
			e.logger.Error("unwind-failed",
				zap.String("token-id", trade.TokenID),
				zap.String("venue", string(trade.Venue)),
				zap.Error(err))
		}
	}
}

func (e *Executor) submitterFor(venue types.Venue) OrderSubmitter {
	if venue == types.VenuePredict {
		return e.predict
	}
	return e.peers[venue]
}

func (e *Executor) legMarket(leg arbitrage.Leg, snap *arbitrage.Snapshot) *types.Market {
	if snap != nil {
		if m := snap.Market(leg.Venue, leg.TokenID); m != nil {
			return m
		}
	}
	return &types.Market{Venue: leg.Venue, TokenID: leg.TokenID, Outcome: leg.Outcome}
}

// confirmed applies the confirmation policy: auto-confirm wins, otherwise a
// terminal prompt is required and a non-interactive process rejects.
// Cross-venue opportunities carry their own confirmation flag.
func (e *Executor) confirmed(opp *arbitrage.Opportunity) bool {
	required := e.requireConfirmation
	if e.crossRequireConfirmation && opp.Type == arbitrage.TypeCrossVenue {
		required = true
	}
	if !required || e.autoConfirm {
		return true
	}
	if e.prompt != nil {
		return e.prompt(opp)
	}
	if !stdinIsTerminal() {
		e.logger.Warn("execution-rejected-no-terminal", zap.String("key", opp.Key))
		return false
	}
	return terminalPrompt(opp)
}

// scaleLegs shrinks every leg by a common factor so the largest leg's
// notional stays at or under the cap, preserving leg ratios.
func scaleLegs(legs []arbitrage.Leg, maxPositionSize float64) []arbitrage.Leg {
	if maxPositionSize <= 0 {
		return legs
	}

	largest := 0.0
	for _, leg := range legs {
		if n := leg.Notional(); n > largest {
			largest = n
		}
	}
	if largest <= maxPositionSize {
		return legs
	}

	factor := maxPositionSize / largest
	scaled := make([]arbitrage.Leg, len(legs))
	for i, leg := range legs {
		leg.Shares = leg.Shares * factor
		scaled[i] = leg
	}
	return scaled
}

func stdinIsTerminal() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func terminalPrompt(opp *arbitrage.Opportunity) bool {
	fmt.Printf("execute %s (edge %.4f, size %.0f)? [y/N] ", opp.Key, opp.Edge, opp.Size)
	var answer string
	if _, err := fmt.Scanln(&answer); err != nil {
		return false
	}
	return answer == "y" || answer == "Y" || answer == "yes"
}

package arbitrage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mselser95/predict-agent/pkg/types"
)

// DependencyConfig holds the external-solver plug-in knobs. The solver is an
// opaque process: constraints plus current books on stdin, legs and edge on
// stdout. The agent neither invents constraints nor evaluates them.
type DependencyConfig struct {
	SolverPath      string
	ConstraintsPath string
	MinEdge         float64
	MaxLegs         int
	MaxNotionalUsd  float64
	Timeout         time.Duration
	TTL             time.Duration
	Logger          *zap.Logger
}

// Dependency shells out to the configured solver per scan.
type Dependency struct {
	cfg DependencyConfig
}

// NewDependency creates the solver plug-in detector.
func NewDependency(cfg DependencyConfig) *Dependency {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Dependency{cfg: cfg}
}

// Name identifies the detector.
func (d *Dependency) Name() string { return "dependency" }

// solverRequest is the stdin wire shape.
type solverRequest struct {
	Version     int             `json:"version"`
	Constraints json.RawMessage `json:"constraints"`
	Books       []solverBook    `json:"books"`
}

type solverBook struct {
	Venue   string        `json:"venue"`
	TokenID string        `json:"tokenId"`
	Bids    []types.Level `json:"bids"`
	Asks    []types.Level `json:"asks"`
}

// solverResponse is the stdout wire shape.
type solverResponse struct {
	Legs []solverLeg `json:"legs"`
	Edge float64     `json:"edge"`
}

type solverLeg struct {
	Venue   string  `json:"venue"`
	TokenID string  `json:"tokenId"`
	Side    string  `json:"side"`
	Shares  float64 `json:"shares"`
	Price   float64 `json:"price"`
}

// Scan runs the solver over the snapshot's books. Any solver failure yields
// an empty result, never an error to the caller.
func (d *Dependency) Scan(snap *Snapshot) []Opportunity {
	start := time.Now()
	defer func() {
		DetectionDurationSeconds.WithLabelValues(d.Name()).Observe(time.Since(start).Seconds())
	}()

	opp, err := d.solve(snap)
	if err != nil {
		RejectedTotal.WithLabelValues(d.Name(), "solver_error").Inc()
		d.cfg.Logger.Warn("dependency-solver-failed", zap.Error(err))
		return nil
	}
	if opp == nil {
		return nil
	}

	DetectedTotal.WithLabelValues(d.Name()).Inc()
	return []Opportunity{*opp}
}

func (d *Dependency) solve(snap *Snapshot) (*Opportunity, error) {
	constraints, err := os.ReadFile(d.cfg.ConstraintsPath)
	if err != nil {
		return nil, fmt.Errorf("read constraints: %w", err)
	}

	req := solverRequest{Version: 1, Constraints: constraints}
	for key, book := range snap.Books {
		if book == nil || book.Validate() != nil {
			continue
		}
		req.Books = append(req.Books, solverBook{
			Venue:   string(key.Venue),
			TokenID: key.TokenID,
			Bids:    book.Bids,
			Asks:    book.Asks,
		})
	}

	input, err := json.Marshal(&req)
	if err != nil {
		return nil, fmt.Errorf("encode solver request: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.cfg.SolverPath)
	cmd.Stdin = bytes.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("run solver: %w (stderr: %s)", err, stderr.String())
	}

	var resp solverResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("decode solver response: %w", err)
	}

	if len(resp.Legs) == 0 || resp.Edge < d.cfg.MinEdge {
		return nil, nil
	}
	if d.cfg.MaxLegs > 0 && len(resp.Legs) > d.cfg.MaxLegs {
		return nil, fmt.Errorf("solver returned %d legs, cap is %d", len(resp.Legs), d.cfg.MaxLegs)
	}

	legs := make([]Leg, len(resp.Legs))
	notional := 0.0
	size := 0.0
	for i, l := range resp.Legs {
		side := types.Side(l.Side)
		if side != types.SideBuy && side != types.SideSell {
			return nil, fmt.Errorf("solver leg %d has side %q", i, l.Side)
		}
		if l.Shares <= 0 || l.Price <= 0 || l.Price >= 1 {
			return nil, fmt.Errorf("solver leg %d out of range: %+v", i, l)
		}
		legs[i] = Leg{
			Venue:   types.Venue(l.Venue),
			TokenID: l.TokenID,
			Side:    side,
			Shares:  l.Shares,
			Price:   l.Price,
		}
		notional += l.Shares * l.Price
		if l.Shares > size {
			size = l.Shares
		}
	}
	if d.cfg.MaxNotionalUsd > 0 && notional > d.cfg.MaxNotionalUsd {
		return nil, fmt.Errorf("solver bundle notional %.2f exceeds cap %.2f", notional, d.cfg.MaxNotionalUsd)
	}

	bundleID := fmt.Sprintf("%s@%d", d.cfg.ConstraintsPath, len(legs))
	opp := newOpportunity(TypeDependency, bundleID, d.cfg.TTL)
	opp.BundleID = bundleID
	opp.Edge = resp.Edge
	opp.Size = size
	opp.Legs = legs
	opp.Confidence = 1
	opp.RiskLevel = RiskHigh
	return &opp, nil
}

package execution

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/predict-agent/pkg/types"
)

// PositionSource lists the account's per-token positions.
type PositionSource interface {
	Positions(ctx context.Context) ([]types.Position, error)
}

// PositionTracker caches Predict positions so the maker can detect fills as
// net-share deltas between passes without a venue round trip per token.
type PositionTracker struct {
	source PositionSource
	logger *zap.Logger

	mu        sync.RWMutex
	byToken   map[string]types.Position
	refreshed time.Time
}

// NewPositionTracker creates a tracker over the given source.
func NewPositionTracker(source PositionSource, logger *zap.Logger) *PositionTracker {
	return &PositionTracker{
		source:  source,
		logger:  logger,
		byToken: make(map[string]types.Position),
	}
}

// Refresh replaces the cached positions with a fresh fetch.
func (t *PositionTracker) Refresh(ctx context.Context) error {
	positions, err := t.source.Positions(ctx)
	if err != nil {
		return err
	}

	byToken := make(map[string]types.Position, len(positions))
	for _, p := range positions {
		byToken[p.TokenID] = p
	}

	t.mu.Lock()
	t.byToken = byToken
	t.refreshed = time.Now()
	t.mu.Unlock()

	t.logger.Debug("positions-refreshed", zap.Int("count", len(positions)))
	return nil
}

// Net returns the directional exposure in shares for a token; zero when the
// account holds nothing.
func (t *PositionTracker) Net(tokenID string) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, ok := t.byToken[tokenID]
	if !ok {
		return 0
	}
	return p.Net()
}

// Position returns the cached position and whether one exists.
func (t *PositionTracker) Position(tokenID string) (types.Position, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, ok := t.byToken[tokenID]
	return p, ok
}

// RefreshedAt is the time of the last successful refresh.
func (t *PositionTracker) RefreshedAt() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.refreshed
}

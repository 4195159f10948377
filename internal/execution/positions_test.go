package execution

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/mselser95/predict-agent/pkg/types"
)

type fakePositions struct {
	positions []types.Position
	err       error
}

func (f *fakePositions) Positions(context.Context) ([]types.Position, error) {
	return f.positions, f.err
}

func TestPositionTrackerNet(t *testing.T) {
	source := &fakePositions{positions: []types.Position{
		{TokenID: "tok-1", YesShares: 100, NoShares: 40},
		{TokenID: "tok-2", YesShares: 0, NoShares: 25},
	}}

	tracker := NewPositionTracker(source, zap.NewNop())
	if err := tracker.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if got := tracker.Net("tok-1"); got != 60 {
		t.Errorf("net(tok-1) = %v, want 60", got)
	}
	if got := tracker.Net("tok-2"); got != -25 {
		t.Errorf("net(tok-2) = %v, want -25", got)
	}
	if got := tracker.Net("unknown"); got != 0 {
		t.Errorf("net(unknown) = %v, want 0", got)
	}
}

func TestPositionTrackerRefreshError(t *testing.T) {
	source := &fakePositions{positions: []types.Position{{TokenID: "tok-1", YesShares: 10}}}
	tracker := NewPositionTracker(source, zap.NewNop())

	if err := tracker.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	// A failed refresh keeps the previous snapshot.
	source.err = errors.New("venue down")
	if err := tracker.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
	if got := tracker.Net("tok-1"); got != 10 {
		t.Errorf("net after failed refresh = %v, want 10", got)
	}
}

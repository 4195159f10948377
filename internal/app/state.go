package app

import (
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/predict-agent/internal/arbitrage"
	"github.com/mselser95/predict-agent/internal/circuitbreaker"
	"github.com/mselser95/predict-agent/internal/maker"
	"github.com/mselser95/predict-agent/internal/statefile"
	"github.com/mselser95/predict-agent/pkg/types"
)

// State file names under StateDir. Operators tail these between restarts.
const (
	makerMetricsFile = "mm-metrics.json"
	crossMetricsFile = "cross-platform-metrics.json"
	crossStateFile   = "cross-platform-state.json"
)

type makerSnapshot struct {
	Tokens []maker.TokenStatus `json:"tokens"`
	Halted bool                `json:"halted"`
}

type scannerSnapshot struct {
	Opportunities []arbitrage.Opportunity `json:"opportunities"`
	Breaker       circuitbreaker.Status   `json:"breaker"`
}

type mappingSnapshot struct {
	Entries []types.MappingEntry `json:"entries"`
}

// runStateFlush periodically snapshots maker and scanner state to disk.
func (a *App) runStateFlush() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.cfg.StateFlushMs)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			// One final flush so a clean shutdown leaves current state.
			a.flushState()
			return
		case <-ticker.C:
			a.flushState()
		}
	}
}

func (a *App) flushState() {
	dir := a.cfg.StateDir

	if a.opts.RunMaker {
		a.saveState(filepath.Join(dir, makerMetricsFile), makerSnapshot{
			Tokens: a.maker.Status(),
			Halted: a.maker.Halted(),
		})
	}

	if a.opts.RunMonitor {
		a.saveState(filepath.Join(dir, crossMetricsFile), scannerSnapshot{
			Opportunities: a.monitor.Recent(),
			Breaker:       a.breaker.GetStatus(),
		})
	}

	a.saveState(filepath.Join(dir, crossStateFile), mappingSnapshot{
		Entries: a.mappings.Entries(),
	})
}

func (a *App) saveState(path string, data any) {
	if err := statefile.Save(path, data); err != nil {
		a.logger.Error("state-flush-failed",
			zap.String("path", path),
			zap.Error(err))
	}
}

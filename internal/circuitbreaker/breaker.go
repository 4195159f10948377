// Package circuitbreaker pauses trade execution when things look wrong:
// the error breaker trips on a burst of execution failures, the balance
// breaker trips when the funding wallet runs low.
package circuitbreaker

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Breaker trips open when too many execution errors land inside a rolling
// window, and closes again after a fixed pause.
type Breaker struct {
	open atomic.Bool // Atomic for lock-free reads on the hot path

	maxErrors int
	window    time.Duration
	pause     time.Duration
	logger    *zap.Logger
	now       func() time.Time

	mu        sync.Mutex
	errors    []time.Time
	openedAt  time.Time
	openUntil time.Time
	trips     int
}

// Config holds error breaker configuration.
type Config struct {
	MaxErrors int           // Errors inside Window that trip the breaker
	Window    time.Duration // Rolling window for counting errors
	Pause     time.Duration // How long the breaker stays open after a trip
	Logger    *zap.Logger
	Now       func() time.Time // Injectable clock for tests
}

// Status holds current breaker state for the admin endpoint.
type Status struct {
	Open       bool      `json:"open"`
	ErrorCount int       `json:"errorCount"`
	OpenedAt   time.Time `json:"openedAt"`
	OpenUntil  time.Time `json:"openUntil"`
	Trips      int       `json:"trips"`
}

// New creates a new error breaker with the given configuration.
func New(cfg *Config) (*Breaker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.MaxErrors <= 0 {
		return nil, fmt.Errorf("max errors must be positive")
	}
	if cfg.Window <= 0 {
		return nil, fmt.Errorf("error window must be positive")
	}
	if cfg.Pause <= 0 {
		return nil, fmt.Errorf("pause duration must be positive")
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	b := &Breaker{
		maxErrors: cfg.MaxErrors,
		window:    cfg.Window,
		pause:     cfg.Pause,
		logger:    cfg.Logger,
		now:       now,
		errors:    make([]time.Time, 0, cfg.MaxErrors),
	}

	BreakerOpen.Set(0)

	return b, nil
}

// Allow reports whether execution may proceed. The closed-state path is
// lock-free; once the pause has elapsed the breaker closes itself.
func (b *Breaker) Allow() bool {
	if !b.open.Load() {
		return true
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open.Load() {
		return true
	}
	if b.now().Before(b.openUntil) {
		return false
	}

	b.closeLocked("pause-elapsed")
	return true
}

// RecordError adds one execution error to the rolling window, tripping the
// breaker when the window fills up. Errors recorded while open are dropped.
func (b *Breaker) RecordError(err error) {
	BreakerErrorsTotal.Inc()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.open.Load() {
		return
	}

	now := b.now()
	b.errors = append(b.errors, now)
	b.pruneLocked(now)

	if len(b.errors) < b.maxErrors {
		b.logger.Debug("breaker-error-recorded",
			zap.Int("count", len(b.errors)),
			zap.Int("max", b.maxErrors),
			zap.Error(err))
		return
	}

	b.open.Store(true)
	b.openedAt = now
	b.openUntil = now.Add(b.pause)
	b.trips++
	b.errors = b.errors[:0]

	BreakerOpen.Set(1)
	BreakerTripsTotal.Inc()

	b.logger.Warn("breaker-tripped",
		zap.Int("errors", b.maxErrors),
		zap.Duration("window", b.window),
		zap.Time("open-until", b.openUntil),
		zap.Error(err))
}

// Reset force-closes the breaker and clears the error window.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.errors = b.errors[:0]
	if b.open.Load() {
		b.closeLocked("manual-reset")
	}
}

// GetStatus returns current breaker state for debugging and HTTP endpoints.
func (b *Breaker) GetStatus() Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pruneLocked(b.now())

	status := Status{
		Open:       b.open.Load(),
		ErrorCount: len(b.errors),
		Trips:      b.trips,
	}
	if status.Open {
		status.OpenedAt = b.openedAt
		status.OpenUntil = b.openUntil
	}

	return status
}

func (b *Breaker) closeLocked(reason string) {
	b.open.Store(false)
	b.openedAt = time.Time{}
	b.openUntil = time.Time{}

	BreakerOpen.Set(0)

	b.logger.Info("breaker-closed",
		zap.String("reason", reason))
}

// pruneLocked drops errors that fell out of the rolling window.
func (b *Breaker) pruneLocked(now time.Time) {
	cutoff := now.Add(-b.window)
	kept := b.errors[:0]
	for _, at := range b.errors {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	b.errors = kept
}

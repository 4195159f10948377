// Package alert posts opportunity notifications to a webhook, throttled per
// key so a persistent mispricing does not flood the channel.
package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Alerter sends webhook notifications with a per-key minimum interval.
// A nil *Alerter or an empty webhook URL disables alerting.
type Alerter struct {
	client      *resty.Client
	webhookURL  string
	minInterval time.Duration
	logger      *zap.Logger
	now         func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// Config holds alerter configuration.
type Config struct {
	WebhookURL  string
	MinInterval time.Duration
	Timeout     time.Duration
	Logger      *zap.Logger
	Now         func() time.Time // Injectable clock for tests
}

// New creates an alerter. With an empty webhook URL every Notify is a no-op.
func New(cfg Config) (*Alerter, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.MinInterval < 0 {
		return nil, fmt.Errorf("min interval cannot be negative")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Alerter{
		client:      resty.New().SetTimeout(timeout),
		webhookURL:  cfg.WebhookURL,
		minInterval: cfg.MinInterval,
		logger:      cfg.Logger,
		now:         now,
		lastSent:    make(map[string]time.Time),
	}, nil
}

// Notify posts payload as JSON unless key fired within the minimum interval.
// Throttled and failed sends are not errors to the caller; the scan loop must
// not stall on a slow webhook.
func (a *Alerter) Notify(ctx context.Context, key string, payload any) {
	if a == nil || a.webhookURL == "" {
		return
	}

	if !a.claim(key) {
		AlertsThrottledTotal.Inc()
		return
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(a.webhookURL)
	if err != nil {
		AlertErrorsTotal.Inc()
		a.logger.Error("alert-send-failed",
			zap.String("key", key),
			zap.Error(err))
		return
	}
	if resp.IsError() {
		AlertErrorsTotal.Inc()
		a.logger.Error("alert-rejected",
			zap.String("key", key),
			zap.Int("status", resp.StatusCode()))
		return
	}

	AlertsSentTotal.Inc()
	a.logger.Debug("alert-sent",
		zap.String("key", key),
		zap.Int("status", resp.StatusCode()))
}

// claim reserves the send slot for key if the interval has passed.
func (a *Alerter) claim(key string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	if last, seen := a.lastSent[key]; seen && now.Sub(last) < a.minInterval {
		return false
	}
	a.lastSent[key] = now
	return true
}

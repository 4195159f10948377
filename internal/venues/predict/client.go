// Package predict is the venue adapter for the Predict exchange: REST
// discovery and order management plus the WebSocket book feed. All payloads
// are normalized to pkg/types at this boundary.
package predict

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mselser95/predict-agent/internal/venues"
	"github.com/mselser95/predict-agent/pkg/types"
)

// Endpoint path candidates, probed in order. 404/405/501 during the probe
// moves to the next candidate; the winner is cached for the process lifetime.
var (
	marketsPaths   = []string{"/v1/markets", "/markets"}
	orderbookPaths = []string{"/v1/markets/%s/orderbook", "/orderbooks/%s"}
)

// Client is the Predict REST client.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	logger  *zap.Logger

	mu           sync.Mutex
	marketsIdx   int
	orderbookIdx int
}

// Config holds Predict client configuration.
type Config struct {
	BaseURL  string
	APIKey   string
	JWTToken string
	Timeout  time.Duration
	// RequestsPerSecond caps outbound request rate. 0 uses a safe default.
	RequestsPerSecond float64
	Logger            *zap.Logger
}

// NewClient creates a Predict REST client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 10
	}

	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "predict-agent/1.0")

	if cfg.APIKey != "" {
		http.SetHeader("x-api-key", cfg.APIKey)
	}
	if cfg.JWTToken != "" {
		http.SetHeader("Authorization", "Bearer "+cfg.JWTToken)
	}

	return &Client{
		http:    http,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), int(cfg.RequestsPerSecond)+1),
		logger:  cfg.Logger,
	}
}

// Venue identifies the adapter.
func (c *Client) Venue() types.Venue {
	return types.VenuePredict
}

// Markets lists active markets, at most limit (0 = venue default).
func (c *Client) Markets(ctx context.Context, limit int) ([]types.Market, error) {
	records, err := retryGet(ctx, func() ([]marketRecord, error) {
		return c.fetchMarkets(ctx, limit)
	})
	if err != nil {
		return nil, err
	}

	out := make([]types.Market, 0, len(records))
	for _, r := range records {
		m := r.toMarket()
		if !m.Active {
			continue
		}
		out = append(out, m)
		if limit > 0 && len(out) >= limit {
			break
		}
	}

	c.logger.Debug("predict-markets-fetched", zap.Int("count", len(out)))
	return out, nil
}

func (c *Client) fetchMarkets(ctx context.Context, limit int) ([]marketRecord, error) {
	err := c.limiter.Wait(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	idx := c.marketsIdx
	c.mu.Unlock()

	for ; idx < len(marketsPaths); idx++ {
		path := marketsPaths[idx]

		req := c.http.R().SetContext(ctx)
		if limit > 0 {
			req.SetQueryParam("limit", strconv.Itoa(limit))
		}

		start := time.Now()
		resp, err := req.Get(path)
		venues.RequestDuration.WithLabelValues("predict", "markets").Observe(time.Since(start).Seconds())
		if err != nil {
			venues.RequestsTotal.WithLabelValues("predict", "markets", "error").Inc()
			return nil, &types.TransientNetworkError{Op: "predict markets", Err: err}
		}

		if probeMiss(resp.StatusCode()) {
			continue
		}

		venues.RequestsTotal.WithLabelValues("predict", "markets", strconv.Itoa(resp.StatusCode())).Inc()
		if resp.StatusCode() != 200 {
			return nil, venues.StatusError(types.VenuePredict, resp.StatusCode(), resp.String(), retryAfter(resp))
		}

		c.mu.Lock()
		c.marketsIdx = idx
		c.mu.Unlock()

		records, err := decodeMarkets(resp.Body())
		if err != nil {
			return nil, err
		}
		return records, nil
	}

	return nil, &types.TransientNetworkError{
		Op:  "predict markets",
		Err: fmt.Errorf("no markets endpoint responded (tried %v)", marketsPaths),
	}
}

// Orderbook fetches the full book for one token.
func (c *Client) Orderbook(ctx context.Context, tokenID string) (*types.Orderbook, error) {
	return retryGet(ctx, func() (*types.Orderbook, error) {
		return c.fetchOrderbook(ctx, tokenID)
	})
}

func (c *Client) fetchOrderbook(ctx context.Context, tokenID string) (*types.Orderbook, error) {
	err := c.limiter.Wait(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	idx := c.orderbookIdx
	c.mu.Unlock()

	for ; idx < len(orderbookPaths); idx++ {
		path := fmt.Sprintf(orderbookPaths[idx], tokenID)

		start := time.Now()
		resp, err := c.http.R().SetContext(ctx).Get(path)
		venues.RequestDuration.WithLabelValues("predict", "orderbook").Observe(time.Since(start).Seconds())
		if err != nil {
			venues.RequestsTotal.WithLabelValues("predict", "orderbook", "error").Inc()
			return nil, &types.TransientNetworkError{Op: "predict orderbook", Err: err}
		}

		if probeMiss(resp.StatusCode()) {
			continue
		}

		venues.RequestsTotal.WithLabelValues("predict", "orderbook", strconv.Itoa(resp.StatusCode())).Inc()
		if resp.StatusCode() != 200 {
			return nil, venues.StatusError(types.VenuePredict, resp.StatusCode(), resp.String(), retryAfter(resp))
		}

		c.mu.Lock()
		c.orderbookIdx = idx
		c.mu.Unlock()

		return decodeOrderbookBody(resp.Body(), tokenID)
	}

	return nil, &types.TransientNetworkError{
		Op:  "predict orderbook",
		Err: fmt.Errorf("no orderbook endpoint responded for token %s", tokenID),
	}
}

// SubmitOrder posts a signed order. The signed payload is built by the
// submitter; this client only ships it.
func (c *Client) SubmitOrder(ctx context.Context, req *SubmitOrderRequest) (*SubmitOrderResult, error) {
	err := c.limiter.Wait(ctx)
	if err != nil {
		return nil, err
	}

	var result submitOrderResponse
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(submitOrderEnvelope{Data: req}).
		SetResult(&result).
		Post("/orders")
	venues.RequestDuration.WithLabelValues("predict", "submit").Observe(time.Since(start).Seconds())
	if err != nil {
		venues.RequestsTotal.WithLabelValues("predict", "submit", "error").Inc()
		return nil, &types.TransientNetworkError{Op: "predict submit order", Err: err}
	}

	venues.RequestsTotal.WithLabelValues("predict", "submit", strconv.Itoa(resp.StatusCode())).Inc()
	switch {
	case resp.StatusCode() == 200 || resp.StatusCode() == 201:
	case resp.StatusCode() == 400 || resp.StatusCode() == 422:
		return nil, &types.OrderError{
			Venue:   types.VenuePredict,
			Code:    strconv.Itoa(resp.StatusCode()),
			Message: resp.String(),
		}
	default:
		return nil, venues.StatusError(types.VenuePredict, resp.StatusCode(), resp.String(), retryAfter(resp))
	}

	hash := result.Data.Order.Hash
	if hash == "" {
		hash = req.Order.Hash
	}
	if hash == "" {
		return nil, &types.DataError{Venue: types.VenuePredict, Reason: "submit response without order hash"}
	}

	return &SubmitOrderResult{Hash: hash, Status: result.Data.Order.Status}, nil
}

// CancelOrders cancels orders by hash. Unknown hashes are a successful no-op.
func (c *Client) CancelOrders(ctx context.Context, hashes []string) error {
	if len(hashes) == 0 {
		return nil
	}

	err := c.limiter.Wait(ctx)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(cancelOrdersRequest{IDs: hashes}).
		Post("/orders/remove")
	venues.RequestDuration.WithLabelValues("predict", "cancel").Observe(time.Since(start).Seconds())
	if err != nil {
		venues.RequestsTotal.WithLabelValues("predict", "cancel", "error").Inc()
		return &types.TransientNetworkError{Op: "predict cancel orders", Err: err}
	}

	venues.RequestsTotal.WithLabelValues("predict", "cancel", strconv.Itoa(resp.StatusCode())).Inc()
	switch resp.StatusCode() {
	case 200, 204:
		return nil
	case 404:
		// Already gone; cancellation is idempotent.
		return nil
	default:
		return venues.StatusError(types.VenuePredict, resp.StatusCode(), resp.String(), retryAfter(resp))
	}
}

// OpenOrders lists the account's resting orders.
func (c *Client) OpenOrders(ctx context.Context) ([]types.Order, error) {
	err := c.limiter.Wait(ctx)
	if err != nil {
		return nil, err
	}

	var result openOrdersResponse
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("status", "OPEN").
		SetResult(&result).
		Get("/orders")
	venues.RequestDuration.WithLabelValues("predict", "orders").Observe(time.Since(start).Seconds())
	if err != nil {
		venues.RequestsTotal.WithLabelValues("predict", "orders", "error").Inc()
		return nil, &types.TransientNetworkError{Op: "predict open orders", Err: err}
	}

	venues.RequestsTotal.WithLabelValues("predict", "orders", strconv.Itoa(resp.StatusCode())).Inc()
	if resp.StatusCode() != 200 {
		return nil, venues.StatusError(types.VenuePredict, resp.StatusCode(), resp.String(), retryAfter(resp))
	}

	out := make([]types.Order, 0, len(result.Data))
	for _, r := range result.Data {
		out = append(out, r.toOrder())
	}
	return out, nil
}

// Positions lists the account's per-token positions.
func (c *Client) Positions(ctx context.Context) ([]types.Position, error) {
	err := c.limiter.Wait(ctx)
	if err != nil {
		return nil, err
	}

	var result positionsResponse
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/positions")
	venues.RequestDuration.WithLabelValues("predict", "positions").Observe(time.Since(start).Seconds())
	if err != nil {
		venues.RequestsTotal.WithLabelValues("predict", "positions", "error").Inc()
		return nil, &types.TransientNetworkError{Op: "predict positions", Err: err}
	}

	venues.RequestsTotal.WithLabelValues("predict", "positions", strconv.Itoa(resp.StatusCode())).Inc()
	if resp.StatusCode() != 200 {
		return nil, venues.StatusError(types.VenuePredict, resp.StatusCode(), resp.String(), retryAfter(resp))
	}

	out := make([]types.Position, 0, len(result.Data))
	for _, r := range result.Data {
		out = append(out, r.toPosition())
	}
	return out, nil
}

// probeMiss reports whether the status means "wrong path, try the next one".
func probeMiss(status int) bool {
	return status == 404 || status == 405 || status == 501
}

func retryAfter(resp *resty.Response) time.Duration {
	raw := resp.Header().Get("Retry-After")
	if raw == "" {
		return 0
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// retryGet runs an idempotent fetch with a single backoff retry on transient
// failures. Everything else is permanent.
func retryGet[T any](ctx context.Context, op func() (T, error)) (T, error) {
	wrapped := func() (T, error) {
		v, err := op()
		if err != nil && !types.IsTransient(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 250 * time.Millisecond

	return backoff.Retry(ctx, wrapped, backoff.WithBackOff(exp), backoff.WithMaxTries(2))
}

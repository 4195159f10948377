package opinion

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mselser95/predict-agent/internal/venues"
	"github.com/mselser95/predict-agent/pkg/types"
)

// Client is the Opinion OpenAPI REST client.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// Config holds Opinion client configuration.
type Config struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64
	Logger            *zap.Logger
}

// NewClient creates an Opinion REST client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}

	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "predict-agent/1.0").
		SetHeader("apikey", cfg.APIKey)

	return &Client{
		http:    http,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), int(cfg.RequestsPerSecond)+1),
		logger:  cfg.Logger,
	}
}

// Venue identifies the adapter.
func (c *Client) Venue() types.Venue {
	return types.VenueOpinion
}

// Markets lists active markets, at most limit token records (0 = venue
// default).
func (c *Client) Markets(ctx context.Context, limit int) ([]types.Market, error) {
	records, err := retryGet(ctx, func() ([]marketRecord, error) {
		return c.fetchMarkets(ctx, limit)
	})
	if err != nil {
		return nil, err
	}

	out := make([]types.Market, 0, 2*len(records))
	for i := range records {
		for _, m := range records[i].toMarkets() {
			if !m.Active {
				continue
			}
			out = append(out, m)
		}
		if limit > 0 && len(out) >= limit {
			out = out[:limit]
			break
		}
	}

	c.logger.Debug("opinion-markets-fetched", zap.Int("count", len(out)))
	return out, nil
}

func (c *Client) fetchMarkets(ctx context.Context, limit int) ([]marketRecord, error) {
	err := c.limiter.Wait(ctx)
	if err != nil {
		return nil, err
	}

	var result marketsResponse
	req := c.http.R().SetContext(ctx).SetResult(&result)
	if limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(limit))
	}

	start := time.Now()
	resp, err := req.Get("/openapi/markets")
	venues.RequestDuration.WithLabelValues("opinion", "markets").Observe(time.Since(start).Seconds())
	if err != nil {
		venues.RequestsTotal.WithLabelValues("opinion", "markets", "error").Inc()
		return nil, &types.TransientNetworkError{Op: "opinion markets", Err: err}
	}

	venues.RequestsTotal.WithLabelValues("opinion", "markets", strconv.Itoa(resp.StatusCode())).Inc()
	if resp.StatusCode() != 200 {
		return nil, venues.StatusError(types.VenueOpinion, resp.StatusCode(), resp.String(), 0)
	}
	if result.Code != 0 {
		return nil, &types.DataError{
			Venue:  types.VenueOpinion,
			Reason: fmt.Sprintf("markets error code %d: %s", result.Code, result.Msg),
		}
	}

	return result.Data.List, nil
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

	var result orderbookResponse
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("tokenId", tokenID).
		SetResult(&result).
		Get("/openapi/token/orderbooks")
	venues.RequestDuration.WithLabelValues("opinion", "orderbook").Observe(time.Since(start).Seconds())
	if err != nil {
		venues.RequestsTotal.WithLabelValues("opinion", "orderbook", "error").Inc()
		return nil, &types.TransientNetworkError{Op: "opinion orderbook", Err: err}
	}

	venues.RequestsTotal.WithLabelValues("opinion", "orderbook", strconv.Itoa(resp.StatusCode())).Inc()
	if resp.StatusCode() != 200 {
		return nil, venues.StatusError(types.VenueOpinion, resp.StatusCode(), resp.String(), 0)
	}
	if result.Code != 0 {
		return nil, &types.DataError{
			Venue:  types.VenueOpinion,
			Reason: fmt.Sprintf("orderbook error code %d: %s", result.Code, result.Msg),
		}
	}

	return decodeBook(result.Data, tokenID)
}

// retryGet runs an idempotent fetch with a single backoff retry on transient
// failures.
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

package polymarket

import (
	"context"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mselser95/predict-agent/internal/venues"
	"github.com/mselser95/predict-agent/pkg/types"
)

// gammaPageSize is the largest page the Gamma API serves per request.
const gammaPageSize = 100

// Client is the Polymarket REST client: Gamma for discovery, CLOB for books.
type Client struct {
	gamma   *resty.Client
	clob    *resty.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// Config holds Polymarket client configuration.
type Config struct {
	GammaURL          string
	ClobURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Logger            *zap.Logger
}

// NewClient creates a Polymarket REST client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 10
	}

	newHTTP := func(base string) *resty.Client {
		return resty.New().
			SetBaseURL(base).
			SetTimeout(cfg.Timeout).
			SetHeader("Accept", "application/json").
			SetHeader("User-Agent", "predict-agent/1.0")
	}

	return &Client{
		gamma:   newHTTP(cfg.GammaURL),
		clob:    newHTTP(cfg.ClobURL),
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), int(cfg.RequestsPerSecond)+1),
		logger:  cfg.Logger,
	}
}

// Venue identifies the adapter.
func (c *Client) Venue() types.Venue {
	return types.VenuePolymarket
}

// Markets lists active markets, paging through Gamma until limit tokens are
// collected (0 = one page).
func (c *Client) Markets(ctx context.Context, limit int) ([]types.Market, error) {
	var out []types.Market
	offset := 0

	for {
		records, err := retryGet(ctx, func() ([]gammaMarket, error) {
			return c.fetchMarketsPage(ctx, offset)
		})
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			break
		}

		for i := range records {
			out = append(out, records[i].toMarkets()...)
		}

		offset += len(records)
		if limit <= 0 || len(out) >= limit || len(records) < gammaPageSize {
			break
		}
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	c.logger.Debug("polymarket-markets-fetched", zap.Int("count", len(out)))
	return out, nil
}

func (c *Client) fetchMarketsPage(ctx context.Context, offset int) ([]gammaMarket, error) {
	err := c.limiter.Wait(ctx)
	if err != nil {
		return nil, err
	}

	var records []gammaMarket
	start := time.Now()
	resp, err := c.gamma.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"closed":    "false",
			"active":    "true",
			"limit":     strconv.Itoa(gammaPageSize),
			"offset":    strconv.Itoa(offset),
			"order":     "volume24hr",
			"ascending": "false",
		}).
		SetResult(&records).
		Get("/markets")
	venues.RequestDuration.WithLabelValues("polymarket", "markets").Observe(time.Since(start).Seconds())
	if err != nil {
		venues.RequestsTotal.WithLabelValues("polymarket", "markets", "error").Inc()
		return nil, &types.TransientNetworkError{Op: "polymarket markets", Err: err}
	}

	venues.RequestsTotal.WithLabelValues("polymarket", "markets", strconv.Itoa(resp.StatusCode())).Inc()
	if resp.StatusCode() != 200 {
		return nil, venues.StatusError(types.VenuePolymarket, resp.StatusCode(), resp.String(), 0)
	}

	return records, nil
}

// Orderbook fetches the full CLOB book for one token.
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

	var book clobBook
	start := time.Now()
	resp, err := c.clob.R().
		SetContext(ctx).
		SetQueryParam("token_id", tokenID).
		SetResult(&book).
		Get("/book")
	venues.RequestDuration.WithLabelValues("polymarket", "orderbook").Observe(time.Since(start).Seconds())
	if err != nil {
		venues.RequestsTotal.WithLabelValues("polymarket", "orderbook", "error").Inc()
		return nil, &types.TransientNetworkError{Op: "polymarket orderbook", Err: err}
	}

	venues.RequestsTotal.WithLabelValues("polymarket", "orderbook", strconv.Itoa(resp.StatusCode())).Inc()
	if resp.StatusCode() != 200 {
		return nil, venues.StatusError(types.VenuePolymarket, resp.StatusCode(), resp.String(), 0)
	}

	return book.toOrderbook(tokenID)
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

// Package venues defines the contracts every market venue adapter satisfies
// and shared plumbing for their REST clients. Concrete adapters live in the
// subpackages predict, polymarket, and opinion.
package venues

import (
	"context"
	"fmt"
	"time"

	"github.com/mselser95/predict-agent/pkg/types"
	"github.com/mselser95/predict-agent/pkg/websocket"
)

// Client is the REST surface of one venue.
type Client interface {
	// Venue identifies the adapter.
	Venue() types.Venue

	// Markets lists active markets, at most limit (0 = venue default).
	Markets(ctx context.Context, limit int) ([]types.Market, error)

	// Orderbook fetches the full book for one token.
	Orderbook(ctx context.Context, tokenID string) (*types.Orderbook, error)
}

// Feed is the streaming surface of one venue. Implementations write decoded
// books into the shared orderbook store.
type Feed interface {
	// Start dials the venue and begins decoding frames.
	Start() error

	// Subscribe begins streaming books for the given markets.
	Subscribe(ctx context.Context, markets []types.Market) error

	// Status reports connection health.
	Status() websocket.Status

	// Close tears the connection down.
	Close() error
}

// StatusError maps an HTTP response code onto the error taxonomy. body is
// included for diagnostics; retryAfter comes from the Retry-After header
// when present.
func StatusError(venue types.Venue, status int, body string, retryAfter time.Duration) error {
	switch {
	case status == 401 || status == 403:
		return &types.AuthError{Venue: venue, Reason: fmt.Sprintf("status %d: %s", status, truncate(body, 200))}
	case status == 429:
		return &types.RateLimitError{Venue: venue, RetryAfter: retryAfter}
	case status >= 500:
		return &types.TransientNetworkError{
			Op:  fmt.Sprintf("%s request", venue),
			Err: fmt.Errorf("status %d: %s", status, truncate(body, 200)),
		}
	default:
		return fmt.Errorf("%s: unexpected status code %d: %s", venue, status, truncate(body, 200))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

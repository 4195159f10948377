package types

import (
	"sort"
	"time"
)

// Level is a single price level. Price is a probability in (0, 1); Shares is
// the quantity resting at that price. Venues may report fractional shares.
type Level struct {
	Price  float64 `json:"price"`
	Shares float64 `json:"shares"`
}

// BookKey addresses one order book in the merged store.
type BookKey struct {
	Venue   Venue
	TokenID string
}

// Orderbook is the normalized book for one token on one venue. Bids are
// sorted descending by price, asks ascending. Levels with zero size are
// absent.
type Orderbook struct {
	Venue     Venue     `json:"venue"`
	TokenID   string    `json:"tokenId"`
	Bids      []Level   `json:"bids"`
	Asks      []Level   `json:"asks"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Key returns the merged-store key for this book.
func (b *Orderbook) Key() BookKey {
	return BookKey{Venue: b.Venue, TokenID: b.TokenID}
}

// BestBid returns the highest bid, if any.
func (b *Orderbook) BestBid() (Level, bool) {
	if len(b.Bids) == 0 {
		return Level{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the lowest ask, if any.
func (b *Orderbook) BestAsk() (Level, bool) {
	if len(b.Asks) == 0 {
		return Level{}, false
	}
	return b.Asks[0], true
}

// Spread returns bestAsk minus bestBid when both sides exist.
func (b *Orderbook) Spread() (float64, bool) {
	bid, okB := b.BestBid()
	ask, okA := b.BestAsk()
	if !okB || !okA {
		return 0, false
	}
	return ask.Price - bid.Price, true
}

// MidPrice returns the arithmetic midpoint of the touch.
func (b *Orderbook) MidPrice() (float64, bool) {
	bid, okB := b.BestBid()
	ask, okA := b.BestAsk()
	if !okB || !okA {
		return 0, false
	}
	return (bid.Price + ask.Price) / 2, true
}

// MicroPrice returns the size-weighted midpoint: the ask weighted by bid
// size plus the bid weighted by ask size. Falls back to MidPrice when the
// touch sizes sum to zero.
func (b *Orderbook) MicroPrice() (float64, bool) {
	bid, okB := b.BestBid()
	ask, okA := b.BestAsk()
	if !okB || !okA {
		return 0, false
	}
	total := bid.Shares + ask.Shares
	if total <= 0 {
		return (bid.Price + ask.Price) / 2, true
	}
	return (ask.Price*bid.Shares + bid.Price*ask.Shares) / total, true
}

// TopDepthShares sums the share quantity of the first n levels of a side.
func TopDepthShares(levels []Level, n int) float64 {
	if n > len(levels) {
		n = len(levels)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += levels[i].Shares
	}
	return sum
}

// Imbalance returns (bidDepth-askDepth)/(bidDepth+askDepth) over the top n
// levels, in [-1, 1]. Zero when the book is empty.
func (b *Orderbook) Imbalance(n int) float64 {
	bid := TopDepthShares(b.Bids, n)
	ask := TopDepthShares(b.Asks, n)
	total := bid + ask
	if total <= 0 {
		return 0
	}
	return (bid - ask) / total
}

// Validate checks the book invariants: prices inside (0, 1), positive sizes,
// strictly monotone levels per side, and best bid below best ask. A failure
// is reported as an InvariantError and the book must not be used for the
// cycle.
func (b *Orderbook) Validate() error {
	for i, l := range b.Bids {
		if l.Price <= 0 || l.Price >= 1 {
			return &InvariantError{TokenID: b.TokenID, Reason: "bid price outside (0,1)"}
		}
		if l.Shares <= 0 {
			return &InvariantError{TokenID: b.TokenID, Reason: "bid with non-positive size"}
		}
		if i > 0 && l.Price >= b.Bids[i-1].Price {
			return &InvariantError{TokenID: b.TokenID, Reason: "bids not strictly descending"}
		}
	}
	for i, l := range b.Asks {
		if l.Price <= 0 || l.Price >= 1 {
			return &InvariantError{TokenID: b.TokenID, Reason: "ask price outside (0,1)"}
		}
		if l.Shares <= 0 {
			return &InvariantError{TokenID: b.TokenID, Reason: "ask with non-positive size"}
		}
		if i > 0 && l.Price <= b.Asks[i-1].Price {
			return &InvariantError{TokenID: b.TokenID, Reason: "asks not strictly ascending"}
		}
	}
	if bid, ok := b.BestBid(); ok {
		if ask, ok := b.BestAsk(); ok && bid.Price >= ask.Price {
			return &InvariantError{TokenID: b.TokenID, Reason: "best bid at or above best ask"}
		}
	}
	return nil
}

// Clone returns a deep copy safe to hand to readers.
func (b *Orderbook) Clone() *Orderbook {
	cp := &Orderbook{
		Venue:     b.Venue,
		TokenID:   b.TokenID,
		UpdatedAt: b.UpdatedAt,
	}
	if len(b.Bids) > 0 {
		cp.Bids = make([]Level, len(b.Bids))
		copy(cp.Bids, b.Bids)
	}
	if len(b.Asks) > 0 {
		cp.Asks = make([]Level, len(b.Asks))
		copy(cp.Asks, b.Asks)
	}
	return cp
}

// SetBid inserts, replaces, or removes (shares == 0) a bid level, keeping
// the descending order.
func (b *Orderbook) SetBid(price, shares float64) {
	b.Bids = setLevel(b.Bids, price, shares, func(a, bp float64) bool { return a > bp })
}

// SetAsk inserts, replaces, or removes (shares == 0) an ask level, keeping
// the ascending order.
func (b *Orderbook) SetAsk(price, shares float64) {
	b.Asks = setLevel(b.Asks, price, shares, func(a, bp float64) bool { return a < bp })
}

// setLevel applies a single-price delta to a sorted side. before reports
// whether price a sorts before price b on this side.
func setLevel(levels []Level, price, shares float64, before func(a, b float64) bool) []Level {
	idx := sort.Search(len(levels), func(i int) bool {
		return !before(levels[i].Price, price)
	})

	exists := idx < len(levels) && levels[idx].Price == price
	switch {
	case shares <= 0 && exists:
		return append(levels[:idx], levels[idx+1:]...)
	case shares <= 0:
		return levels
	case exists:
		levels[idx].Shares = shares
		return levels
	default:
		levels = append(levels, Level{})
		copy(levels[idx+1:], levels[idx:])
		levels[idx] = Level{Price: price, Shares: shares}
		return levels
	}
}

// SortLevels normalizes raw levels into canonical order for the given side
// and drops empty levels.
func SortLevels(levels []Level, side Side) []Level {
	out := levels[:0]
	for _, l := range levels {
		if l.Shares > 0 {
			out = append(out, l)
		}
	}
	if side == SideBuy {
		sort.Slice(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	}
	return out
}

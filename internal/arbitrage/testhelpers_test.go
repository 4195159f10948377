package arbitrage

import (
	"time"

	"github.com/mselser95/predict-agent/pkg/types"
)

// testMarket builds one outcome market for snapshot fixtures.
func testMarket(venue types.Venue, tokenID, conditionID, question, outcome string) types.Market {
	return types.Market{
		Venue:       venue,
		TokenID:     tokenID,
		MarketID:    "mkt-" + conditionID,
		ConditionID: conditionID,
		Question:    question,
		Outcome:     outcome,
		Active:      true,
	}
}

// testBook builds a validated book from (price, shares) pairs.
func testBook(venue types.Venue, tokenID string, bids, asks [][2]float64) *types.Orderbook {
	book := &types.Orderbook{
		Venue:     venue,
		TokenID:   tokenID,
		UpdatedAt: time.Now(),
	}
	for _, l := range bids {
		book.Bids = append(book.Bids, types.Level{Price: l[0], Shares: l[1]})
	}
	for _, l := range asks {
		book.Asks = append(book.Asks, types.Level{Price: l[0], Shares: l[1]})
	}
	book.Bids = types.SortLevels(book.Bids, types.SideBuy)
	book.Asks = types.SortLevels(book.Asks, types.SideSell)
	return book
}

// newSnapshot assembles markets and books into a scan snapshot.
func newSnapshot(markets []types.Market, books ...*types.Orderbook) *Snapshot {
	snap := &Snapshot{
		Markets: markets,
		Books:   make(map[types.BookKey]*types.Orderbook, len(books)),
		At:      time.Now(),
	}
	for _, b := range books {
		snap.Books[b.Key()] = b
	}
	return snap
}

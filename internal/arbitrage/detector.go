// Package arbitrage holds the opportunity detectors: pure scans over a
// snapshot of markets and books that emit typed opportunities for the monitor
// to report and, policy permitting, execute.
package arbitrage

import (
	"sort"
	"time"

	"github.com/mselser95/predict-agent/pkg/types"
)

// Snapshot is one scan's view of the world. Books are keyed by (venue,
// tokenId); detectors must tolerate missing or invalid books.
type Snapshot struct {
	Markets []types.Market
	Books   map[types.BookKey]*types.Orderbook
	At      time.Time
}

// Book returns a validated book for the token, or nil.
func (s *Snapshot) Book(venue types.Venue, tokenID string) *types.Orderbook {
	book, ok := s.Books[types.BookKey{Venue: venue, TokenID: tokenID}]
	if !ok || book == nil {
		return nil
	}
	if err := book.Validate(); err != nil {
		return nil
	}
	return book
}

// Market returns the snapshot's market record for a token.
func (s *Snapshot) Market(venue types.Venue, tokenID string) *types.Market {
	for i := range s.Markets {
		if s.Markets[i].Venue == venue && s.Markets[i].TokenID == tokenID {
			return &s.Markets[i]
		}
	}
	return nil
}

// Detector is the common detector surface. Scan never panics and returns
// opportunities sorted by edge descending.
type Detector interface {
	Name() string
	Scan(snap *Snapshot) []Opportunity
}

// sortByEdge orders opportunities by edge descending, stable for equal edges.
func sortByEdge(opps []Opportunity) []Opportunity {
	sort.SliceStable(opps, func(i, j int) bool {
		return opps[i].Edge > opps[j].Edge
	})
	return opps
}

// yesNoPair is a venue's YES/NO token pair for one logical market.
type yesNoPair struct {
	group string
	yes   *types.Market
	no    *types.Market
}

// pairYesNo groups one venue's markets into YES/NO pairs by shared condition
// id, event id, or normalized question. Incomplete pairs are dropped.
func pairYesNo(markets []types.Market, venue types.Venue) []yesNoPair {
	byGroup := make(map[string]*yesNoPair)
	var order []string

	for i := range markets {
		m := &markets[i]
		if m.Venue != venue || m.TokenID == "" {
			continue
		}
		key := m.GroupKey()
		if key == "" {
			continue
		}
		pair := byGroup[key]
		if pair == nil {
			pair = &yesNoPair{group: key}
			byGroup[key] = pair
			order = append(order, key)
		}
		switch {
		case m.IsYes():
			pair.yes = m
		case m.IsNo():
			pair.no = m
		}
	}

	pairs := make([]yesNoPair, 0, len(order))
	for _, key := range order {
		pair := byGroup[key]
		if pair.yes != nil && pair.no != nil {
			pairs = append(pairs, *pair)
		}
	}
	return pairs
}

// shrinkFactor and shrinkSteps define the size search: the starting size and
// four 0.6x reductions, keeping the candidate with the best edge.
const (
	shrinkFactor = 0.6
	shrinkSteps  = 4
)

// searchSize walks the shrink ladder. eval returns (edge, ok); sizes are
// floored to whole shares. Ties keep the larger size.
func searchSize(start float64, eval func(shares float64) (float64, bool)) (float64, float64, bool) {
	var (
		bestShares float64
		bestEdge   float64
		found      bool
	)

	size := float64(int(start))
	for step := 0; step <= shrinkSteps; step++ {
		if size < 1 {
			break
		}
		if edge, ok := eval(size); ok && (!found || edge > bestEdge) {
			bestShares = size
			bestEdge = edge
			found = true
		}
		size = float64(int(size * shrinkFactor))
	}

	return bestShares, bestEdge, found
}

// Package orderbook holds the canonical in-memory books for every venue.
// Feeds write snapshots and deltas; detectors and the maker read cloned
// copies, so a reader never observes a book mid-update.
package orderbook

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/mselser95/predict-agent/pkg/types"
)

// Store manages orderbook state for all venues.
type Store struct {
	books       map[types.BookKey]*types.Orderbook
	mu          sync.RWMutex
	logger      *zap.Logger
	subscribers map[int]chan types.BookKey
	subMu       sync.RWMutex
	nextSubID   int
}

// Config holds store configuration.
type Config struct {
	Logger *zap.Logger
}

// New creates an empty store.
func New(cfg *Config) *Store {
	return &Store{
		books:       make(map[types.BookKey]*types.Orderbook),
		logger:      cfg.Logger,
		subscribers: make(map[int]chan types.BookKey),
	}
}

// Put replaces the book for its key with a full snapshot. Books that fail
// structural validation are rejected and the previous book, if any, stays
// visible. Snapshots older than the stored book are dropped, so a REST fetch
// racing a fresher feed push never rolls the book back.
func (s *Store) Put(book *types.Orderbook) error {
	timer := prometheus.NewTimer(UpdateProcessingDuration)
	defer timer.ObserveDuration()

	err := book.Validate()
	if err != nil {
		InvalidBooksTotal.WithLabelValues(string(book.Venue)).Inc()
		s.logger.Warn("book-rejected",
			zap.String("venue", string(book.Venue)),
			zap.String("token-id", book.TokenID),
			zap.Error(err))
		return err
	}

	stored := book.Clone()
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = time.Now()
	}

	key := stored.Key()

	lockStart := time.Now()
	s.mu.Lock()
	LockContentionDuration.Observe(time.Since(lockStart).Seconds())

	if prev, exists := s.books[key]; exists && stored.UpdatedAt.Before(prev.UpdatedAt) {
		s.mu.Unlock()
		UpdatesDroppedTotal.WithLabelValues("stale_snapshot").Inc()
		s.logger.Debug("book-snapshot-stale",
			zap.String("venue", string(book.Venue)),
			zap.String("token-id", book.TokenID),
			zap.Time("stored-at", prev.UpdatedAt),
			zap.Time("snapshot-at", stored.UpdatedAt))
		return nil
	}

	s.books[key] = stored
	BooksTracked.WithLabelValues(string(book.Venue)).Set(float64(s.countVenueLocked(book.Venue)))
	s.mu.Unlock()

	UpdatesTotal.WithLabelValues(string(book.Venue), "snapshot").Inc()

	s.notify(key)

	return nil
}

// ApplyDelta applies level changes to an existing book. A level with zero
// shares is removed, an unknown price is inserted in order. Deltas for
// unknown books are dropped; the feed is expected to fetch a snapshot first.
func (s *Store) ApplyDelta(key types.BookKey, bids, asks []types.Level, ts time.Time) error {
	timer := prometheus.NewTimer(UpdateProcessingDuration)
	defer timer.ObserveDuration()

	lockStart := time.Now()
	s.mu.Lock()
	LockContentionDuration.Observe(time.Since(lockStart).Seconds())

	book, exists := s.books[key]
	if !exists {
		s.mu.Unlock()
		UpdatesDroppedTotal.WithLabelValues("unknown_book").Inc()
		return &types.DataError{Venue: key.Venue, Reason: "delta for unknown book " + key.TokenID}
	}

	for _, lvl := range bids {
		book.SetBid(lvl.Price, lvl.Shares)
	}
	for _, lvl := range asks {
		book.SetAsk(lvl.Price, lvl.Shares)
	}

	if ts.IsZero() {
		ts = time.Now()
	}
	book.UpdatedAt = ts

	err := book.Validate()
	if err != nil {
		// A delta that crosses the book marks it unusable until the next
		// snapshot replaces it.
		delete(s.books, key)
		BooksTracked.WithLabelValues(string(key.Venue)).Set(float64(s.countVenueLocked(key.Venue)))
		s.mu.Unlock()

		InvalidBooksTotal.WithLabelValues(string(key.Venue)).Inc()
		s.logger.Warn("book-invalidated-by-delta",
			zap.String("venue", string(key.Venue)),
			zap.String("token-id", key.TokenID),
			zap.Error(err))
		return err
	}
	s.mu.Unlock()

	UpdatesTotal.WithLabelValues(string(key.Venue), "delta").Inc()

	s.notify(key)

	return nil
}

// Get returns a copy of the book for key.
func (s *Store) Get(key types.BookKey) (*types.Orderbook, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	book, exists := s.books[key]
	if !exists {
		return nil, false
	}

	return book.Clone(), true
}

// GetFresh returns the book only when its last update is younger than maxAge.
// maxAge <= 0 disables the freshness check.
func (s *Store) GetFresh(key types.BookKey, maxAge time.Duration) (*types.Orderbook, bool) {
	book, exists := s.Get(key)
	if !exists {
		return nil, false
	}
	if maxAge > 0 && time.Since(book.UpdatedAt) > maxAge {
		return nil, false
	}
	return book, true
}

// Venue returns copies of every book for one venue, keyed by token ID.
func (s *Store) Venue(venue types.Venue) map[string]*types.Orderbook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*types.Orderbook)
	for key, book := range s.books {
		if key.Venue == venue {
			out[key.TokenID] = book.Clone()
		}
	}
	return out
}

// Keys returns every book key currently tracked.
func (s *Store) Keys() []types.BookKey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]types.BookKey, 0, len(s.books))
	for key := range s.books {
		keys = append(keys, key)
	}
	return keys
}

// Len returns the number of tracked books.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.books)
}

// DropVenue removes every book for a venue. Used when a feed reconnects and
// its server replays full state.
func (s *Store) DropVenue(venue types.Venue) {
	s.mu.Lock()
	for key := range s.books {
		if key.Venue == venue {
			delete(s.books, key)
		}
	}
	BooksTracked.WithLabelValues(string(venue)).Set(0)
	s.mu.Unlock()

	s.logger.Info("venue-books-dropped", zap.String("venue", string(venue)))
}

// Subscribe registers a change listener. Notifications carry only the key;
// slow consumers lose notifications, never book state. The returned cancel
// removes the subscription and closes the channel.
func (s *Store) Subscribe(buffer int) (<-chan types.BookKey, func()) {
	if buffer <= 0 {
		buffer = 1024
	}

	ch := make(chan types.BookKey, buffer)

	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		if existing, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(existing)
		}
		s.subMu.Unlock()
	}

	return ch, cancel
}

func (s *Store) notify(key types.BookKey) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()

	for _, ch := range s.subscribers {
		select {
		case ch <- key:
		default:
			UpdatesDroppedTotal.WithLabelValues("subscriber_full").Inc()
		}
	}
}

// countVenueLocked counts books for a venue. Callers hold s.mu.
func (s *Store) countVenueLocked(venue types.Venue) int {
	n := 0
	for key := range s.books {
		if key.Venue == venue {
			n++
		}
	}
	return n
}

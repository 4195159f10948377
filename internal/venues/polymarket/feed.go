package polymarket

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/predict-agent/internal/orderbook"
	"github.com/mselser95/predict-agent/internal/venues"
	"github.com/mselser95/predict-agent/pkg/types"
	"github.com/mselser95/predict-agent/pkg/websocket"
)

// Feed streams Polymarket market-channel events into the shared store.
// Subscriptions are sharded across a connection pool because the venue caps
// assets per socket.
type Feed struct {
	pool   *websocket.Pool
	store  *orderbook.Store
	logger *zap.Logger

	resetOnReconnect bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// FeedConfig holds Polymarket feed configuration.
type FeedConfig struct {
	URL              string
	PoolSize         int
	StaleAfter       time.Duration
	ResetOnReconnect bool
	ReconnectMin     time.Duration
	ReconnectMax     time.Duration
	// CustomFeature opts into the venue's extended subscribe shape;
	// InitialDump asks for a full book snapshot on subscribe.
	CustomFeature bool
	InitialDump   bool
	Store         *orderbook.Store
	Logger        *zap.Logger
}

// protocol builds the market-channel wire payloads.
type protocol struct {
	customFeature bool
	initialDump   bool
}

func (p *protocol) SubscribePayload(topics []string, initial bool) (interface{}, bool) {
	if initial {
		msg := &subscribeMessage{AssetIDs: topics, Type: "MARKET"}
		if p.customFeature && !p.initialDump {
			msg.Operation = "subscribe"
		}
		return msg, true
	}
	return &subscribeMessage{AssetIDs: topics, Operation: "subscribe"}, true
}

func (p *protocol) UnsubscribePayload(topics []string) (interface{}, bool) {
	return &subscribeMessage{AssetIDs: topics, Operation: "unsubscribe"}, true
}

func (p *protocol) HeartbeatPayload() (interface{}, bool) {
	return nil, false
}

// NewFeed creates a Polymarket WebSocket feed.
func NewFeed(cfg FeedConfig) *Feed {
	ctx, cancel := context.WithCancel(context.Background())

	feed := &Feed{
		store:            cfg.Store,
		logger:           cfg.Logger,
		resetOnReconnect: cfg.ResetOnReconnect,
		ctx:              ctx,
		cancel:           cancel,
	}

	feed.pool = websocket.NewPool(websocket.PoolConfig{
		Size: cfg.PoolSize,
		Conn: websocket.Config{
			URL:                   cfg.URL,
			Venue:                 string(types.VenuePolymarket),
			StaleAfter:            cfg.StaleAfter,
			ReconnectInitialDelay: cfg.ReconnectMin,
			ReconnectMaxDelay:     cfg.ReconnectMax,
			Protocol: &protocol{
				customFeature: cfg.CustomFeature,
				initialDump:   cfg.InitialDump,
			},
			OnReconnect: feed.onReconnect,
			Logger:      cfg.Logger,
		},
	})

	return feed
}

// Start starts the pool and the decode loop.
func (f *Feed) Start() error {
	err := f.pool.Start()
	if err != nil {
		return err
	}

	f.wg.Add(1)
	go f.decodeLoop()

	return nil
}

// Subscribe begins streaming books for the given markets.
func (f *Feed) Subscribe(ctx context.Context, markets []types.Market) error {
	topics := make([]string, 0, len(markets))
	for i := range markets {
		if markets[i].TokenID != "" {
			topics = append(topics, markets[i].TokenID)
		}
	}
	return f.pool.Subscribe(ctx, topics)
}

// Status reports merged pool health.
func (f *Feed) Status() websocket.Status {
	return f.pool.Status()
}

// Close tears the pool down.
func (f *Feed) Close() error {
	f.cancel()
	err := f.pool.Close()
	f.wg.Wait()
	return err
}

func (f *Feed) onReconnect() {
	if f.resetOnReconnect {
		f.store.DropVenue(types.VenuePolymarket)
	}
}

func (f *Feed) decodeLoop() {
	defer f.wg.Done()

	for {
		select {
		case <-f.ctx.Done():
			return
		case frame, ok := <-f.pool.Frames():
			if !ok {
				return
			}
			f.handleFrame(frame)
		}
	}
}

func (f *Feed) handleFrame(frame []byte) {
	events, err := decodeEvents(frame)
	if err != nil {
		venues.DecodeErrorsTotal.WithLabelValues(string(types.VenuePolymarket)).Inc()
		f.logger.Debug("polymarket-frame-dropped", zap.Error(err))
		return
	}

	for i := range events {
		f.applyEvent(&events[i])
	}
}

// applyEvent dispatches one event by type. Unknown event types are dropped.
func (f *Feed) applyEvent(ev *wsEvent) {
	switch ev.EventType {
	case "book":
		f.applyBook(ev)
	case "price_change":
		f.applyPriceChange(ev)
	case "best_bid_ask":
		f.applyBestBidAsk(ev)
	default:
	}
}

func (f *Feed) applyBook(ev *wsEvent) {
	book := clobBook{AssetID: ev.AssetID, Bids: ev.Bids, Asks: ev.Asks, Timestamp: ev.Timestamp}
	normalized, err := book.toOrderbook(ev.AssetID)
	if err != nil {
		venues.DecodeErrorsTotal.WithLabelValues(string(types.VenuePolymarket)).Inc()
		return
	}
	_ = f.store.Put(normalized)
}

func (f *Feed) applyPriceChange(ev *wsEvent) {
	if ev.AssetID == "" || len(ev.Changes) == 0 {
		return
	}

	var bids, asks []types.Level
	for _, ch := range ev.Changes {
		price, err := strconv.ParseFloat(ch.Price, 64)
		if err != nil {
			venues.DecodeErrorsTotal.WithLabelValues(string(types.VenuePolymarket)).Inc()
			return
		}
		size, err := strconv.ParseFloat(ch.Size, 64)
		if err != nil {
			venues.DecodeErrorsTotal.WithLabelValues(string(types.VenuePolymarket)).Inc()
			return
		}

		lvl := types.Level{Price: price, Shares: size}
		if types.Side(ch.Side) == types.SideBuy {
			bids = append(bids, lvl)
		} else {
			asks = append(asks, lvl)
		}
	}

	key := types.BookKey{Venue: types.VenuePolymarket, TokenID: ev.AssetID}
	// Deltas against books we have never snapshotted are dropped; the next
	// full book event (or a REST fetch) seeds the state.
	_ = f.store.ApplyDelta(key, bids, asks, time.Now())
}

func (f *Feed) applyBestBidAsk(ev *wsEvent) {
	if ev.AssetID == "" {
		return
	}

	var bids, asks []types.Level
	if ev.BestBid != "" {
		price, errP := strconv.ParseFloat(ev.BestBid, 64)
		size, errS := strconv.ParseFloat(ev.BestBidSize, 64)
		if errP == nil && errS == nil {
			bids = append(bids, types.Level{Price: price, Shares: size})
		}
	}
	if ev.BestAsk != "" {
		price, errP := strconv.ParseFloat(ev.BestAsk, 64)
		size, errS := strconv.ParseFloat(ev.BestAskSize, 64)
		if errP == nil && errS == nil {
			asks = append(asks, types.Level{Price: price, Shares: size})
		}
	}
	if len(bids) == 0 && len(asks) == 0 {
		return
	}

	key := types.BookKey{Venue: types.VenuePolymarket, TokenID: ev.AssetID}
	_ = f.store.ApplyDelta(key, bids, asks, time.Now())
}

package opinion

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/predict-agent/internal/orderbook"
	"github.com/mselser95/predict-agent/internal/venues"
	"github.com/mselser95/predict-agent/pkg/types"
	"github.com/mselser95/predict-agent/pkg/websocket"
)

// Feed streams Opinion order books into the shared store. The venue expects
// a client-side heartbeat on an operator-configured interval.
type Feed struct {
	conn   *websocket.Conn
	store  *orderbook.Store
	logger *zap.Logger

	resetOnReconnect bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// FeedConfig holds Opinion feed configuration.
type FeedConfig struct {
	URL               string
	APIKey            string
	HeartbeatInterval time.Duration
	StaleAfter        time.Duration
	ResetOnReconnect  bool
	ReconnectMin      time.Duration
	ReconnectMax      time.Duration
	Store             *orderbook.Store
	Logger            *zap.Logger
}

// protocol builds the channel-subscription wire payloads.
type protocol struct{}

func (protocol) SubscribePayload(topics []string, _ bool) (interface{}, bool) {
	return &channelRequest{Action: "subscribe", Channel: "orderbook", TokenIDs: topics}, true
}

func (protocol) UnsubscribePayload(topics []string) (interface{}, bool) {
	return &channelRequest{Action: "unsubscribe", Channel: "orderbook", TokenIDs: topics}, true
}

func (protocol) HeartbeatPayload() (interface{}, bool) {
	return &channelRequest{Action: "ping"}, true
}

// NewFeed creates an Opinion WebSocket feed.
func NewFeed(cfg FeedConfig) *Feed {
	ctx, cancel := context.WithCancel(context.Background())

	feed := &Feed{
		store:            cfg.Store,
		logger:           cfg.Logger,
		resetOnReconnect: cfg.ResetOnReconnect,
		ctx:              ctx,
		cancel:           cancel,
	}

	header := http.Header{}
	if cfg.APIKey != "" {
		header.Set("apikey", cfg.APIKey)
	}

	feed.conn = websocket.New(websocket.Config{
		URL:                   cfg.URL,
		Venue:                 string(types.VenueOpinion),
		Header:                header,
		HeartbeatInterval:     cfg.HeartbeatInterval,
		StaleAfter:            cfg.StaleAfter,
		ReconnectInitialDelay: cfg.ReconnectMin,
		ReconnectMaxDelay:     cfg.ReconnectMax,
		Protocol:              protocol{},
		OnReconnect:           feed.onReconnect,
		Logger:                cfg.Logger,
	})

	return feed
}

// Start dials the venue and begins decoding frames.
func (f *Feed) Start() error {
	err := f.conn.Start()
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
	return f.conn.Subscribe(ctx, topics)
}

// Status reports connection health.
func (f *Feed) Status() websocket.Status {
	return f.conn.Status()
}

// Close tears the connection down.
func (f *Feed) Close() error {
	f.cancel()
	err := f.conn.Close()
	f.wg.Wait()
	return err
}

func (f *Feed) onReconnect() {
	if f.resetOnReconnect {
		f.store.DropVenue(types.VenueOpinion)
	}
}

func (f *Feed) decodeLoop() {
	defer f.wg.Done()

	for {
		select {
		case <-f.ctx.Done():
			return
		case frame, ok := <-f.conn.Frames():
			if !ok {
				return
			}

			book, err := decodeFrame(frame)
			if err != nil {
				venues.DecodeErrorsTotal.WithLabelValues(string(types.VenueOpinion)).Inc()
				f.logger.Debug("opinion-frame-dropped", zap.Error(err))
				continue
			}
			if book == nil {
				continue
			}

			_ = f.store.Put(book)
		}
	}
}

package predict

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/predict-agent/internal/orderbook"
	"github.com/mselser95/predict-agent/internal/venues"
	"github.com/mselser95/predict-agent/pkg/types"
	"github.com/mselser95/predict-agent/pkg/websocket"
)

// Topic key selects which market identifier names a subscription topic.
const (
	TopicKeyTokenID     = "tokenId"
	TopicKeyConditionID = "conditionId"
	TopicKeyEventID     = "eventId"
)

// Feed streams Predict order books into the shared store.
type Feed struct {
	conn   *websocket.Conn
	store  *orderbook.Store
	logger *zap.Logger

	topicKey         string
	resetOnReconnect bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// FeedConfig holds Predict feed configuration.
type FeedConfig struct {
	URL              string
	APIKey           string
	TopicKey         string // tokenId, conditionId, or eventId
	StaleAfter       time.Duration
	ResetOnReconnect bool
	ReconnectMin     time.Duration
	ReconnectMax     time.Duration
	Store            *orderbook.Store
	Logger           *zap.Logger
}

// protocol builds the Predict JSON-RPC-ish wire payloads.
type protocol struct {
	requestID atomic.Int64
}

func (p *protocol) SubscribePayload(topics []string, _ bool) (interface{}, bool) {
	params := make([]string, len(topics))
	for i, t := range topics {
		params[i] = "predictOrderbook/" + t
	}
	return &subscribeRequest{
		Method:    "subscribe",
		RequestID: p.requestID.Add(1),
		Params:    params,
	}, true
}

func (p *protocol) UnsubscribePayload(topics []string) (interface{}, bool) {
	params := make([]string, len(topics))
	for i, t := range topics {
		params[i] = "predictOrderbook/" + t
	}
	return &subscribeRequest{
		Method:    "unsubscribe",
		RequestID: p.requestID.Add(1),
		Params:    params,
	}, true
}

func (p *protocol) HeartbeatPayload() (interface{}, bool) {
	// Predict heartbeats are echoes, not timers; the feed replies when the
	// server's heartbeat frame arrives.
	return nil, false
}

// NewFeed creates a Predict WebSocket feed.
func NewFeed(cfg FeedConfig) *Feed {
	ctx, cancel := context.WithCancel(context.Background())

	feed := &Feed{
		store:            cfg.Store,
		logger:           cfg.Logger,
		topicKey:         cfg.TopicKey,
		resetOnReconnect: cfg.ResetOnReconnect,
		ctx:              ctx,
		cancel:           cancel,
	}

	header := http.Header{}
	if cfg.APIKey != "" {
		header.Set("x-api-key", cfg.APIKey)
	}

	feed.conn = websocket.New(websocket.Config{
		URL:                   cfg.URL,
		Venue:                 string(types.VenuePredict),
		Header:                header,
		StaleAfter:            cfg.StaleAfter,
		ReconnectInitialDelay: cfg.ReconnectMin,
		ReconnectMaxDelay:     cfg.ReconnectMax,
		Protocol:              &protocol{},
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

// Subscribe begins streaming books for the given markets. Idempotent; the
// connection replays the subscription set after every reconnect.
func (f *Feed) Subscribe(ctx context.Context, markets []types.Market) error {
	seen := make(map[string]bool, len(markets))
	topics := make([]string, 0, len(markets))

	for i := range markets {
		topic := f.topicFor(&markets[i])
		if topic == "" || seen[topic] {
			continue
		}
		seen[topic] = true
		topics = append(topics, topic)
	}

	return f.conn.Subscribe(ctx, topics)
}

// topicFor picks the subscription topic per the configured key, falling back
// to the token ID when the preferred identifier is missing.
func (f *Feed) topicFor(m *types.Market) string {
	switch f.topicKey {
	case TopicKeyConditionID:
		if m.ConditionID != "" {
			return m.ConditionID
		}
	case TopicKeyEventID:
		if m.EventID != "" {
			return m.EventID
		}
	}
	return m.TokenID
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
		f.store.DropVenue(types.VenuePredict)
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
			f.handleFrame(frame)
		}
	}
}

func (f *Feed) handleFrame(frame []byte) {
	book, heartbeat, err := decodeFrame(frame)
	if err != nil {
		venues.DecodeErrorsTotal.WithLabelValues(string(types.VenuePredict)).Inc()
		f.logger.Debug("predict-frame-dropped", zap.Error(err))
		return
	}

	if heartbeat {
		err = f.conn.Send(&heartbeatReply{Method: "heartbeat", RequestID: 0})
		if err != nil {
			f.logger.Debug("predict-heartbeat-reply-failed", zap.Error(err))
		}
		return
	}

	if book == nil {
		// Control frame (subscription ack or unknown type).
		return
	}

	err = f.store.Put(book)
	if err != nil {
		// The store already counted and logged the rejection.
		return
	}
}

package websocket

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Conn manages a single WebSocket connection to one venue.
type Conn struct {
	url          string
	venue        string
	conn         *websocket.Conn
	logger       *zap.Logger
	reconnectMgr *ReconnectManager
	config       Config
	frameChan    chan []byte
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	mu           sync.RWMutex
	writeMu      sync.Mutex
	subscribed   map[string]bool
	dialed       atomic.Bool  // socket established; drives the reconnect loop
	connected    atomic.Bool  // first inbound frame seen on the current socket
	lastFrame    atomic.Int64 // Unix millis of the last received frame
	connStart    atomic.Int64 // Unix seconds of connection start
	reconnects   atomic.Uint64
}

// Config holds WebSocket connection configuration.
type Config struct {
	URL                   string
	Venue                 string // metrics and log label
	Header                http.Header
	DialTimeout           time.Duration
	PingInterval          time.Duration
	HeartbeatInterval     time.Duration // application heartbeat, 0 disables
	StaleAfter            time.Duration // force reconnect when no frames, 0 disables
	ReconnectInitialDelay time.Duration
	ReconnectMaxDelay     time.Duration
	ReconnectBackoffMult  float64
	FrameBufferSize       int
	Protocol              Protocol
	OnReconnect           func() // called after resubscription completes
	Logger                *zap.Logger
}

// New creates a new WebSocket connection. Start must be called before frames
// are delivered.
func New(cfg Config) *Conn {
	ctx, cancel := context.WithCancel(context.Background())

	if cfg.FrameBufferSize <= 0 {
		cfg.FrameBufferSize = 1024
	}
	if cfg.ReconnectBackoffMult <= 1 {
		cfg.ReconnectBackoffMult = 1.7
	}

	reconnectCfg := ReconnectConfig{
		InitialDelay:      cfg.ReconnectInitialDelay,
		MaxDelay:          cfg.ReconnectMaxDelay,
		BackoffMultiplier: cfg.ReconnectBackoffMult,
		JitterPercent:     0.2,
	}

	return &Conn{
		url:          cfg.URL,
		venue:        cfg.Venue,
		logger:       cfg.Logger,
		reconnectMgr: NewReconnectManager(cfg.Venue, reconnectCfg, cfg.Logger),
		config:       cfg,
		frameChan:    make(chan []byte, cfg.FrameBufferSize),
		ctx:          ctx,
		cancel:       cancel,
		subscribed:   make(map[string]bool),
	}
}

// Start dials the venue and launches the read, keepalive, and reconnect
// loops.
func (c *Conn) Start() error {
	c.logger.Info("websocket-starting",
		zap.String("venue", c.venue),
		zap.String("url", c.url))

	err := c.connect(c.ctx)
	if err != nil {
		return fmt.Errorf("initial connection: %w", err)
	}

	c.wg.Add(3)
	go c.readLoop()
	go c.keepaliveLoop()
	go c.reconnectLoop()

	return nil
}

func (c *Conn) connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: c.config.DialTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, c.url, c.config.Header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.venue, err)
	}

	conn.SetPongHandler(func(string) error {
		c.markFrame()
		return nil
	})

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	// The connection reports Connected only once the venue has sent a frame;
	// a frameless dial stays unhealthy.
	c.connected.Store(false)
	c.lastFrame.Store(0)
	c.connStart.Store(time.Now().Unix())
	c.dialed.Store(true)
	ActiveConnections.WithLabelValues(c.venue).Set(1)

	c.logger.Info("websocket-dialed", zap.String("venue", c.venue))

	return nil
}

// markFrame records inbound traffic; the first frame after a dial flips the
// connection to connected.
func (c *Conn) markFrame() {
	c.lastFrame.Store(time.Now().UnixMilli())
	if c.connected.CompareAndSwap(false, true) {
		c.logger.Info("websocket-connected", zap.String("venue", c.venue))
	}
}

// Subscribe adds topics to the connection. Already-subscribed topics are
// skipped. The subscription set is replayed after every reconnect.
func (c *Conn) Subscribe(ctx context.Context, topics []string) error {
	if len(topics) == 0 {
		return nil
	}

	c.mu.Lock()
	newTopics := make([]string, 0, len(topics))
	for _, topic := range topics {
		if !c.subscribed[topic] {
			newTopics = append(newTopics, topic)
			c.subscribed[topic] = true
		}
	}

	if len(newTopics) == 0 {
		c.mu.Unlock()
		return nil
	}

	initial := len(c.subscribed) == len(newTopics)
	total := len(c.subscribed)
	c.mu.Unlock()

	payload, ok := c.config.Protocol.SubscribePayload(newTopics, initial)
	if !ok {
		SubscriptionCount.WithLabelValues(c.venue).Set(float64(total))
		return nil
	}

	err := c.writeJSON(payload)
	if err != nil {
		c.mu.Lock()
		for _, topic := range newTopics {
			delete(c.subscribed, topic)
		}
		total = len(c.subscribed)
		c.mu.Unlock()

		SubscriptionCount.WithLabelValues(c.venue).Set(float64(total))
		return fmt.Errorf("write subscribe message: %w", err)
	}

	SubscriptionCount.WithLabelValues(c.venue).Set(float64(total))

	c.logger.Info("subscribed",
		zap.String("venue", c.venue),
		zap.Int("new-count", len(newTopics)),
		zap.Int("total-count", total))

	return nil
}

// Unsubscribe removes topics. Topics the venue cannot unsubscribe remain in
// the replay set and their frames are ignored upstream.
func (c *Conn) Unsubscribe(ctx context.Context, topics []string) error {
	if len(topics) == 0 {
		return nil
	}

	payload, ok := c.config.Protocol.UnsubscribePayload(topics)
	if !ok {
		return nil
	}

	c.mu.Lock()
	removed := make([]string, 0, len(topics))
	for _, topic := range topics {
		if c.subscribed[topic] {
			removed = append(removed, topic)
			delete(c.subscribed, topic)
		}
	}

	if len(removed) == 0 {
		c.mu.Unlock()
		return nil
	}

	total := len(c.subscribed)
	c.mu.Unlock()

	err := c.writeJSON(payload)
	if err != nil {
		c.mu.Lock()
		for _, topic := range removed {
			c.subscribed[topic] = true
		}
		total = len(c.subscribed)
		c.mu.Unlock()

		SubscriptionCount.WithLabelValues(c.venue).Set(float64(total))
		return fmt.Errorf("write unsubscribe message: %w", err)
	}

	SubscriptionCount.WithLabelValues(c.venue).Set(float64(total))

	c.logger.Info("unsubscribed",
		zap.String("venue", c.venue),
		zap.Int("count", len(removed)),
		zap.Int("remaining-count", total))

	return nil
}

// readLoop reads frames until the connection drops, then exits so the
// reconnect loop can take over.
func (c *Conn) readLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		if conn == nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.ctx.Done():
			default:
				c.logger.Warn("read-error",
					zap.String("venue", c.venue),
					zap.Error(err))
			}

			startTime := c.connStart.Load()
			if startTime > 0 {
				ConnectionDuration.WithLabelValues(c.venue).
					Observe(time.Since(time.Unix(startTime, 0)).Seconds())
			}

			c.connected.Store(false)
			c.dialed.Store(false)
			ActiveConnections.WithLabelValues(c.venue).Set(0)
			return
		}

		c.markFrame()
		FramesReceivedTotal.WithLabelValues(c.venue).Inc()

		select {
		case c.frameChan <- message:
		default:
			c.logger.Warn("frame-channel-full", zap.String("venue", c.venue))
			FramesDroppedTotal.WithLabelValues(c.venue, "channel_full").Inc()
		}
	}
}

// keepaliveLoop sends protocol pings, the optional application heartbeat,
// and forces a reconnect when the connection has gone stale.
func (c *Conn) keepaliveLoop() {
	defer c.wg.Done()

	pingInterval := c.config.PingInterval
	if pingInterval <= 0 {
		pingInterval = 10 * time.Second
	}
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	var heartbeat <-chan time.Time
	if c.config.HeartbeatInterval > 0 {
		ht := time.NewTicker(c.config.HeartbeatInterval)
		defer ht.Stop()
		heartbeat = ht.C
	}

	for {
		select {
		case <-c.ctx.Done():
			return

		case <-ticker.C:
			if !c.dialed.Load() {
				continue
			}

			if c.staleExceeded() {
				c.logger.Warn("connection-stale-forcing-reconnect",
					zap.String("venue", c.venue),
					zap.Duration("stale-after", c.config.StaleAfter))
				StaleDisconnectsTotal.WithLabelValues(c.venue).Inc()
				c.closeConn()
				continue
			}

			c.mu.RLock()
			conn := c.conn
			c.mu.RUnlock()

			if conn == nil {
				continue
			}

			err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(time.Second))
			if err != nil {
				c.logger.Warn("ping-error",
					zap.String("venue", c.venue),
					zap.Error(err))
			}

		case <-heartbeat:
			if !c.dialed.Load() {
				continue
			}

			payload, ok := c.config.Protocol.HeartbeatPayload()
			if !ok {
				continue
			}

			err := c.writeJSON(payload)
			if err != nil {
				c.logger.Warn("heartbeat-error",
					zap.String("venue", c.venue),
					zap.Error(err))
			}
		}
	}
}

// reconnectLoop watches the connected flag and re-establishes the session
// with backoff when it drops.
func (c *Conn) reconnectLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		if c.dialed.Load() {
			time.Sleep(time.Second)
			continue
		}

		c.logger.Warn("connection-lost-initiating-reconnect", zap.String("venue", c.venue))

		err := c.reconnectMgr.Reconnect(c.ctx, c.connect)
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			c.logger.Error("reconnection-failed",
				zap.String("venue", c.venue),
				zap.Error(err))
			continue
		}

		c.reconnects.Add(1)

		err = c.resubscribeAll()
		if err != nil {
			c.logger.Error("resubscribe-failed",
				zap.String("venue", c.venue),
				zap.Error(err))
			// Drop the half-set-up socket before dialing again.
			c.closeConn()
			c.connected.Store(false)
			c.dialed.Store(false)
			continue
		}

		if c.config.OnReconnect != nil {
			c.config.OnReconnect()
		}

		c.logger.Info("reconnection-complete", zap.String("venue", c.venue))

		c.wg.Add(1)
		go c.readLoop()
	}
}

func (c *Conn) resubscribeAll() error {
	c.mu.RLock()
	topics := make([]string, 0, len(c.subscribed))
	for topic := range c.subscribed {
		topics = append(topics, topic)
	}
	c.mu.RUnlock()

	if len(topics) == 0 {
		return nil
	}

	payload, ok := c.config.Protocol.SubscribePayload(topics, true)
	if !ok {
		return nil
	}

	err := c.writeJSON(payload)
	if err != nil {
		return fmt.Errorf("write resubscribe message: %w", err)
	}

	c.logger.Info("resubscribed-all",
		zap.String("venue", c.venue),
		zap.Int("count", len(topics)))

	return nil
}

// Send writes an application payload to the socket. Used by feeds that must
// answer venue control messages, like heartbeat echoes.
func (c *Conn) Send(payload interface{}) error {
	return c.writeJSON(payload)
}

// writeJSON serializes writer access; gorilla allows only one concurrent
// writer per connection.
func (c *Conn) writeJSON(payload interface{}) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("%s: not connected", c.venue)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return conn.WriteJSON(payload)
}

func (c *Conn) staleExceeded() bool {
	if c.config.StaleAfter <= 0 {
		return false
	}
	last := c.lastFrame.Load()
	if last == 0 {
		// No frame since the dial; measure from connection start.
		start := c.connStart.Load()
		return start > 0 && time.Since(time.Unix(start, 0)) > c.config.StaleAfter
	}
	return time.Since(time.UnixMilli(last)) > c.config.StaleAfter
}

func (c *Conn) closeConn() {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn != nil {
		_ = conn.Close()
	}
}

// Frames returns the channel delivering raw frames. The channel is closed by
// Close.
func (c *Conn) Frames() <-chan []byte {
	return c.frameChan
}

// Connected reports whether the socket is up and has delivered at least one
// inbound frame.
func (c *Conn) Connected() bool {
	return c.connected.Load()
}

// Status returns a health snapshot.
func (c *Conn) Status() Status {
	c.mu.RLock()
	subscribed := len(c.subscribed)
	c.mu.RUnlock()

	return Status{
		Connected:   c.connected.Load(),
		LastFrameAt: time.UnixMilli(c.lastFrame.Load()),
		Subscribed:  subscribed,
		Reconnects:  c.reconnects.Load(),
	}
}

// Close stops all loops and closes the frame channel.
func (c *Conn) Close() error {
	c.logger.Info("closing-websocket", zap.String("venue", c.venue))

	c.cancel()
	c.closeConn()
	c.wg.Wait()

	close(c.frameChan)

	ActiveConnections.WithLabelValues(c.venue).Set(0)

	c.logger.Info("websocket-closed", zap.String("venue", c.venue))

	return nil
}

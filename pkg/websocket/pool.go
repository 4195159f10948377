package websocket

import (
	"context"
	"fmt"
	"hash/crc32"
	"sync"

	"go.uber.org/zap"
)

// Pool shards topic subscriptions across several connections to one venue.
// Venues cap subscriptions per socket, so wide market coverage needs more
// than one.
type Pool struct {
	cfg        PoolConfig
	conns      []*Conn
	topicIndex map[string]int // topic -> connection index
	mu         sync.RWMutex
	frameChan  chan []byte
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	logger     *zap.Logger
}

// PoolConfig holds pool configuration. Conn holds the per-connection part.
type PoolConfig struct {
	Size int
	Conn Config
}

// NewPool creates a pool of Size connections sharing one Protocol.
func NewPool(cfg PoolConfig) *Pool {
	ctx, cancel := context.WithCancel(context.Background())

	if cfg.Size <= 0 {
		cfg.Size = 1
	}
	if cfg.Conn.FrameBufferSize <= 0 {
		cfg.Conn.FrameBufferSize = 1024
	}

	pool := &Pool{
		cfg:        cfg,
		conns:      make([]*Conn, cfg.Size),
		topicIndex: make(map[string]int),
		frameChan:  make(chan []byte, cfg.Size*cfg.Conn.FrameBufferSize),
		ctx:        ctx,
		cancel:     cancel,
		logger:     cfg.Conn.Logger,
	}

	for i := range cfg.Size {
		connCfg := cfg.Conn
		connCfg.Logger = cfg.Conn.Logger.With(zap.Int("conn-id", i))
		pool.conns[i] = New(connCfg)
	}

	return pool
}

// Start starts every connection and the frame forwarders.
func (p *Pool) Start() error {
	p.logger.Info("websocket-pool-starting",
		zap.String("venue", p.cfg.Conn.Venue),
		zap.Int("pool-size", p.cfg.Size))

	errChan := make(chan error, p.cfg.Size)
	var startWg sync.WaitGroup

	for i, conn := range p.conns {
		startWg.Add(1)
		go func(index int, cn *Conn) {
			defer startWg.Done()

			err := cn.Start()
			if err != nil {
				errChan <- fmt.Errorf("connection %d start failed: %w", index, err)
			}
		}(i, conn)
	}

	startWg.Wait()
	close(errChan)

	var startErrors []error
	for err := range errChan {
		startErrors = append(startErrors, err)
	}
	if len(startErrors) > 0 {
		return fmt.Errorf("failed to start %d connections: %v", len(startErrors), startErrors)
	}

	for i, conn := range p.conns {
		p.wg.Add(1)
		go p.forwardFrames(i, conn)
	}

	PoolActiveConnections.WithLabelValues(p.cfg.Conn.Venue).Set(float64(p.cfg.Size))

	p.logger.Info("websocket-pool-started", zap.Int("active-connections", p.cfg.Size))

	return nil
}

// Subscribe shards topics across connections with a stable hash so a topic
// always lands on the same socket.
func (p *Pool) Subscribe(ctx context.Context, topics []string) error {
	if len(topics) == 0 {
		return nil
	}

	topicsByConn := make(map[int][]string)

	p.mu.Lock()
	for _, topic := range topics {
		if _, exists := p.topicIndex[topic]; exists {
			continue
		}
		idx := p.connIndex(topic)
		p.topicIndex[topic] = idx
		topicsByConn[idx] = append(topicsByConn[idx], topic)
	}
	p.mu.Unlock()

	if len(topicsByConn) == 0 {
		return nil
	}

	errChan := make(chan error, len(topicsByConn))
	var subWg sync.WaitGroup

	for idx, shard := range topicsByConn {
		subWg.Add(1)
		go func(i int, ts []string) {
			defer subWg.Done()

			err := p.conns[i].Subscribe(ctx, ts)
			if err != nil {
				errChan <- fmt.Errorf("connection %d subscribe failed: %w", i, err)
			}
		}(idx, shard)
	}

	subWg.Wait()
	close(errChan)

	var subErrors []error
	for err := range errChan {
		subErrors = append(subErrors, err)
	}
	if len(subErrors) > 0 {
		return fmt.Errorf("failed to subscribe on %d connections: %v", len(subErrors), subErrors)
	}

	p.observeDistribution()

	return nil
}

// Unsubscribe removes topics from their assigned connections.
func (p *Pool) Unsubscribe(ctx context.Context, topics []string) error {
	if len(topics) == 0 {
		return nil
	}

	topicsByConn := make(map[int][]string)

	p.mu.Lock()
	for _, topic := range topics {
		if idx, exists := p.topicIndex[topic]; exists {
			topicsByConn[idx] = append(topicsByConn[idx], topic)
			delete(p.topicIndex, topic)
		}
	}
	p.mu.Unlock()

	for idx, shard := range topicsByConn {
		err := p.conns[idx].Unsubscribe(ctx, shard)
		if err != nil {
			return fmt.Errorf("connection %d unsubscribe failed: %w", idx, err)
		}
	}

	return nil
}

// Frames returns the multiplexed frame channel from all connections.
func (p *Pool) Frames() <-chan []byte {
	return p.frameChan
}

// Status merges per-connection health: connected only when every socket is
// up, last frame is the freshest of any socket.
func (p *Pool) Status() Status {
	merged := Status{Connected: true}

	p.mu.RLock()
	merged.Subscribed = len(p.topicIndex)
	p.mu.RUnlock()

	for _, conn := range p.conns {
		st := conn.Status()
		if !st.Connected {
			merged.Connected = false
		}
		if st.LastFrameAt.After(merged.LastFrameAt) {
			merged.LastFrameAt = st.LastFrameAt
		}
		merged.Reconnects += st.Reconnects
	}

	return merged
}

// Close stops every connection and the forwarders.
func (p *Pool) Close() error {
	p.logger.Info("closing-websocket-pool", zap.String("venue", p.cfg.Conn.Venue))

	p.cancel()

	var closeWg sync.WaitGroup
	for i, conn := range p.conns {
		closeWg.Add(1)
		go func(index int, cn *Conn) {
			defer closeWg.Done()

			err := cn.Close()
			if err != nil {
				p.logger.Error("connection-close-failed",
					zap.Int("conn-id", index),
					zap.Error(err))
			}
		}(i, conn)
	}

	closeWg.Wait()
	p.wg.Wait()

	close(p.frameChan)

	PoolActiveConnections.WithLabelValues(p.cfg.Conn.Venue).Set(0)

	p.logger.Info("websocket-pool-closed")

	return nil
}

// forwardFrames drains one connection into the shared channel.
func (p *Pool) forwardFrames(index int, conn *Conn) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case frame, ok := <-conn.Frames():
			if !ok {
				return
			}

			select {
			case p.frameChan <- frame:
			default:
				p.logger.Warn("pool-frame-dropped", zap.Int("conn-id", index))
				FramesDroppedTotal.WithLabelValues(p.cfg.Conn.Venue, "pool_full").Inc()
			}
		}
	}
}

// connIndex shards a topic onto a connection with CRC32.
func (p *Pool) connIndex(topic string) int {
	hash := crc32.ChecksumIEEE([]byte(topic))
	return int(hash) % p.cfg.Size
}

func (p *Pool) observeDistribution() {
	perConn := make(map[int]int)

	p.mu.RLock()
	for _, idx := range p.topicIndex {
		perConn[idx]++
	}
	p.mu.RUnlock()

	for _, count := range perConn {
		PoolSubscriptionDistribution.WithLabelValues(p.cfg.Conn.Venue).Observe(float64(count))
	}
}

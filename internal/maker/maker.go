// Package maker runs the per-token quoting state machine: adaptive volatility
// profiles, guard rails, micro-price quotes with inventory and imbalance
// skew, and fill detection feeding the hedger.
package maker

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/predict-agent/internal/execution"
	"github.com/mselser95/predict-agent/pkg/types"
)

// State is the per-token machine state.
type State string

const (
	StateIdle     State = "IDLE"
	StateQuoting  State = "QUOTING"
	StateCooldown State = "COOLDOWN"
	StatePaused   State = "PAUSED"
	StateHedging  State = "HEDGING"
)

// Profile buckets market regimes; each selects spread bounds and a size scale.
type Profile string

const (
	ProfileCalm     Profile = "CALM"
	ProfileNormal   Profile = "NORMAL"
	ProfileVolatile Profile = "VOLATILE"
)

func (p Profile) sizeScale() float64 {
	switch p {
	case ProfileCalm:
		return 1.0
	case ProfileVolatile:
		return 0.6
	default:
		return 0.85
	}
}

func (p Profile) spreadMult() float64 {
	switch p {
	case ProfileCalm:
		return 0.75
	case ProfileVolatile:
		return 1.5
	default:
		return 1.0
	}
}

// NetSource exposes the account's directional exposure per token.
type NetSource interface {
	Net(tokenID string) float64
}

// FillHedger closes exposure created by fills.
type FillHedger interface {
	HedgeOnFill(ctx context.Context, market *types.Market, deltaNet float64, book *types.Orderbook, peers []types.Market) (*execution.Receipt, error)
}

// ValueSignal supplies an external fair-price estimate with a confidence.
type ValueSignal func(tokenID string) (fair, confidence float64, ok bool)

// Config holds maker tuning. Bps knobs are basis points; durations are
// already parsed.
type Config struct {
	Submitter execution.OrderSubmitter
	Positions NetSource
	Hedger    FillHedger
	// PeerMarkets supplies candidate peer markets for a cross hedge.
	PeerMarkets func() []types.Market
	Value       ValueSignal
	Logger      *zap.Logger
	// Now overrides the clock, mainly for tests.
	Now func() time.Time

	EnableTrading bool
	Spread        float64
	MinSpread     float64
	MaxSpread     float64
	PriceTick     float64

	OrderSize           float64
	MaxSingleOrderValue float64
	// MaxPosition caps absolute net exposure in shares and normalizes the
	// inventory bias.
	MaxPosition     float64
	MaxDailyLoss    float64
	OrderDepthUsage float64
	// MaxOrdersPerSide caps resting orders per side per token; layers beyond
	// the first step one tick further from the touch.
	MaxOrdersPerSide    int
	MinOrderInterval    time.Duration
	OrderRefresh        time.Duration
	PassInterval        time.Duration
	InventorySkewFactor float64

	CancelThreshold  float64
	RepriceThreshold float64

	UseValueSignal     bool
	ValueSignalWeight  float64
	ValueConfidenceMin float64

	AntiFillBps          float64
	NearTouchBps         float64
	CooldownAfterCancel  time.Duration
	VolatilityPauseBps   float64
	VolatilityLookback   time.Duration
	PauseAfterVolatility time.Duration
	MinTopDepthShares    float64
	MinTopDepthUsd       float64

	Adaptive              bool
	VolEmaAlpha           float64
	DepthEmaAlpha         float64
	DepthRef              float64
	DepthLevels           int
	ImbalanceWeight       float64
	ImbalanceMaxSkew      float64
	CalmVolBps            float64
	VolatileVolBps        float64
	ProfileHysteresis     float64
	TouchBufferBps        float64
	FillRiskSpreadBumpBps float64

	IcebergEnabled        bool
	IcebergRatio          float64
	IcebergMaxChunkShares float64
	IcebergRequote        time.Duration

	HedgeOnFill        bool
	HedgeTriggerShares float64
}

// openOrder is one resting quote handle.
type openOrder struct {
	hash     string
	price    float64
	shares   float64
	placedAt time.Time
}

// tokenState is the per-token memory kept between passes.
type tokenState struct {
	state   State
	profile Profile

	lastMid   float64
	lastMidAt time.Time
	volEma    float64
	depthEma  float64
	lastDepth float64

	actionCooldownUntil time.Time
	pauseUntil          time.Time
	lastOrderAt         time.Time
	lastIcebergAt       time.Time
	recentAntiFill      bool

	bids []*openOrder
	asks []*openOrder

	lastNet    float64
	netTracked bool
}

// TokenStatus is the admin view of one token's quoting state.
type TokenStatus struct {
	TokenID  string  `json:"tokenId"`
	State    State   `json:"state"`
	Profile  Profile `json:"profile"`
	LastMid  float64 `json:"lastMid"`
	VolEma   float64 `json:"volEma"`
	DepthEma float64 `json:"depthEma"`
	BidPrice float64 `json:"bidPrice,omitempty"`
	AskPrice float64 `json:"askPrice,omitempty"`
	Net      float64 `json:"net"`
}

// Maker quotes two-sided liquidity token by token. Passes for all tokens run
// sequentially in one goroutine to preserve per-token ordering.
type Maker struct {
	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	mu         sync.Mutex
	tokens     map[string]*tokenState
	sessionPnL float64
	halted     bool
}

// New creates a maker.
func New(cfg Config) *Maker {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.PriceTick <= 0 {
		cfg.PriceTick = 1e-4
	}
	if cfg.MaxOrdersPerSide <= 0 {
		cfg.MaxOrdersPerSide = 1
	}
	if cfg.DepthLevels <= 0 {
		cfg.DepthLevels = 3
	}
	return &Maker{
		cfg:    cfg,
		logger: cfg.Logger,
		now:    cfg.Now,
		tokens: make(map[string]*tokenState),
	}
}

// RecordPnL folds a realized profit or loss into the session total. Breaching
// the daily loss cap halts quoting for the process lifetime.
func (m *Maker) RecordPnL(delta float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessionPnL += delta
	SessionPnLUSD.Set(m.sessionPnL)
	if m.cfg.MaxDailyLoss > 0 && m.sessionPnL <= -m.cfg.MaxDailyLoss && !m.halted {
		m.halted = true
		m.logger.Error("maker-halted-daily-loss",
			zap.Float64("session-pnl", m.sessionPnL),
			zap.Float64("max-daily-loss", m.cfg.MaxDailyLoss))
	}
}

// Halted reports whether the daily loss latch has tripped.
func (m *Maker) Halted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.halted
}

// Pass runs one quoting pass for a token with a fresh market and book.
func (m *Maker) Pass(ctx context.Context, market *types.Market, book *types.Orderbook) {
	if market == nil || book == nil {
		return
	}

	m.mu.Lock()
	halted := m.halted
	m.mu.Unlock()
	if !m.cfg.EnableTrading || halted {
		return
	}

	s := m.state(market.TokenID)
	now := m.now()

	mid, ok := book.MicroPrice()
	if !ok {
		return
	}

	move := 0.0
	if s.lastMid > 0 {
		move = math.Abs(mid-s.lastMid) / s.lastMid
	}
	m.updateEmas(s, book, mid, move, now)
	m.selectProfile(s)
	ProfileGauge.WithLabelValues(market.TokenID).Set(profileValue(s.profile))

	// Time gates before anything else: transitions out of COOLDOWN/PAUSED
	// happen implicitly when the gate expires.
	if now.Before(s.pauseUntil) {
		s.state = StatePaused
		return
	}
	if now.Before(s.actionCooldownUntil) {
		s.state = StateCooldown
		return
	}

	if m.runGuards(ctx, s, market, book, mid, move, now) {
		return
	}

	m.detectFill(ctx, s, market, book, now)
	if m.Halted() {
		m.cancelQuotes(ctx, s, market.TokenID, "daily-loss")
		return
	}

	quote, ok := m.computeQuote(s, market, book, mid)
	if !ok {
		return
	}

	m.manageOrders(ctx, s, market, quote, book, now)
	s.lastMid = mid
	s.lastMidAt = now
}

// CancelAll cancels every resting quote, token by token.
func (m *Maker) CancelAll(ctx context.Context) {
	m.mu.Lock()
	tokens := make(map[string]*tokenState, len(m.tokens))
	for k, v := range m.tokens {
		tokens[k] = v
	}
	m.mu.Unlock()

	for tokenID, s := range tokens {
		m.cancelQuotes(ctx, s, tokenID, "shutdown")
	}
}

// Run drives sequential passes over the provided markets every pass interval
// until the context ends. books fetches the current book for one token.
func (m *Maker) Run(ctx context.Context, markets func(ctx context.Context) []types.Market, books func(ctx context.Context, tokenID string) (*types.Orderbook, error)) {
	interval := m.cfg.PassInterval
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.CancelAll(context.WithoutCancel(ctx))
			return
		case <-ticker.C:
			for _, market := range markets(ctx) {
				book, err := books(ctx, market.TokenID)
				if err != nil {
					m.logger.Warn("maker-book-fetch-failed",
						zap.String("token-id", market.TokenID),
						zap.Error(err))
					continue
				}
				m.Pass(ctx, &market, book)
			}
		}
	}
}

// Status snapshots every token's quoting state for the admin endpoint.
func (m *Maker) Status() []TokenStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]TokenStatus, 0, len(m.tokens))
	for tokenID, s := range m.tokens {
		ts := TokenStatus{
			TokenID:  tokenID,
			State:    s.state,
			Profile:  s.profile,
			LastMid:  s.lastMid,
			VolEma:   s.volEma,
			DepthEma: s.depthEma,
			Net:      s.lastNet,
		}
		if len(s.bids) > 0 {
			ts.BidPrice = s.bids[0].price
		}
		if len(s.asks) > 0 {
			ts.AskPrice = s.asks[0].price
		}
		out = append(out, ts)
	}
	return out
}

func (m *Maker) state(tokenID string) *tokenState {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.tokens[tokenID]
	if !ok {
		s = &tokenState{state: StateIdle, profile: ProfileNormal}
		m.tokens[tokenID] = s
	}
	return s
}

// updateEmas folds the pass's observations into the volatility and depth EMAs.
func (m *Maker) updateEmas(s *tokenState, book *types.Orderbook, mid, move float64, now time.Time) {
	depth := topDepth(book, m.cfg.DepthLevels)
	s.lastDepth = depth

	if !m.cfg.Adaptive {
		return
	}

	alpha := m.cfg.VolEmaAlpha
	if alpha <= 0 {
		alpha = 0.2
	}
	if s.lastMid > 0 {
		s.volEma = alpha*move + (1-alpha)*s.volEma
	}

	dalpha := m.cfg.DepthEmaAlpha
	if dalpha <= 0 {
		dalpha = 0.2
	}
	if s.depthEma == 0 {
		s.depthEma = depth
	} else {
		s.depthEma = dalpha*depth + (1-dalpha)*s.depthEma
	}
}

// selectProfile applies the regime bands with hysteresis; non-adaptive makers
// pin NORMAL.
func (m *Maker) selectProfile(s *tokenState) {
	if !m.cfg.Adaptive {
		s.profile = ProfileNormal
		return
	}

	volBps := s.volEma * 10_000
	depthRatio := 1.0
	if m.cfg.DepthRef > 0 {
		depthRatio = s.depthEma / m.cfg.DepthRef
	}

	h := m.cfg.ProfileHysteresis
	calm := m.cfg.CalmVolBps
	volatile := m.cfg.VolatileVolBps

	switch s.profile {
	case ProfileCalm:
		// Leaving CALM needs a clear break above the band.
		if volBps > calm*(1+h) || depthRatio < 0.5 {
			s.profile = ProfileNormal
		}
	case ProfileVolatile:
		if volBps < volatile*(1-h) && depthRatio >= 0.5 {
			s.profile = ProfileNormal
		}
	default:
		if volBps >= volatile || depthRatio < 0.25 {
			s.profile = ProfileVolatile
		} else if volBps <= calm && depthRatio >= 1 {
			s.profile = ProfileCalm
		}
	}
}

// runGuards applies the fail-fast checks. Returns true when the pass stops.
func (m *Maker) runGuards(ctx context.Context, s *tokenState, market *types.Market, book *types.Orderbook, mid, move float64, now time.Time) bool {
	// Thin liquidity.
	if s.lastDepth < m.cfg.MinTopDepthShares || s.lastDepth*mid < m.cfg.MinTopDepthUsd {
		m.cancelQuotes(ctx, s, market.TokenID, "thin-liquidity")
		s.state = StateCooldown
		s.actionCooldownUntil = now.Add(m.cfg.CooldownAfterCancel)
		return true
	}

	// Volatility spike: pause, not just cooldown.
	if s.lastMid > 0 && move >= m.cfg.VolatilityPauseBps/10_000 &&
		m.cfg.VolatilityPauseBps > 0 &&
		(m.cfg.VolatilityLookback <= 0 || now.Sub(s.lastMidAt) <= m.cfg.VolatilityLookback) {
		m.cancelQuotes(ctx, s, market.TokenID, "volatility-spike")
		s.state = StatePaused
		s.pauseUntil = now.Add(m.cfg.PauseAfterVolatility)
		s.lastMid = mid
		s.lastMidAt = now
		return true
	}

	// Big move since the last quote.
	if s.lastMid > 0 && m.cfg.CancelThreshold > 0 && move > m.cfg.CancelThreshold/m.volMultiplier(s) {
		m.cancelQuotes(ctx, s, market.TokenID, "big-move")
		s.state = StateCooldown
		s.actionCooldownUntil = now.Add(m.cfg.CooldownAfterCancel)
		s.lastMid = mid
		s.lastMidAt = now
		return true
	}

	return false
}

// detectFill compares net shares against the last pass, records the fill's
// mark-to-market PnL, and hedges when the delta crosses the trigger.
func (m *Maker) detectFill(ctx context.Context, s *tokenState, market *types.Market, book *types.Orderbook, now time.Time) {
	if m.cfg.Positions == nil {
		return
	}

	net := m.cfg.Positions.Net(market.TokenID)
	if !s.netTracked {
		s.lastNet = net
		s.netTracked = true
		return
	}

	delta := net - s.lastNet
	s.lastNet = net
	if delta == 0 {
		return
	}

	FillsDetectedTotal.WithLabelValues(market.TokenID).Inc()
	m.recordFillPnL(s, book, delta)

	if !m.cfg.HedgeOnFill || m.cfg.Hedger == nil || math.Abs(delta) < m.cfg.HedgeTriggerShares {
		return
	}

	s.state = StateHedging
	var peers []types.Market
	if m.cfg.PeerMarkets != nil {
		peers = m.cfg.PeerMarkets()
	}

	if _, err := m.cfg.Hedger.HedgeOnFill(ctx, market, delta, book, peers); err != nil {
		m.logger.Error("maker-hedge-failed",
			zap.String("token-id", market.TokenID),
			zap.Float64("delta-net", delta),
			zap.Error(err))
	}
	s.state = StateIdle
}

// recordFillPnL marks a detected fill against the current micro-price: buying
// below the mark or selling above it realizes a gain, getting picked off
// realizes a loss. Feeds the daily loss latch.
func (m *Maker) recordFillPnL(s *tokenState, book *types.Orderbook, delta float64) {
	mid, ok := book.MicroPrice()
	if !ok {
		return
	}

	fillPrice := mid
	if delta > 0 && len(s.bids) > 0 {
		fillPrice = s.bids[0].price
	} else if delta < 0 && len(s.asks) > 0 {
		fillPrice = s.asks[0].price
	}

	m.RecordPnL((mid - fillPrice) * delta)
}

// volMultiplier widens thresholds as realized volatility climbs, bounded to
// keep the guards meaningful.
func (m *Maker) volMultiplier(s *tokenState) float64 {
	if !m.cfg.Adaptive || m.cfg.VolatileVolBps <= 0 {
		return 1
	}
	mul := 1 + s.volEma*10_000/m.cfg.VolatileVolBps
	if mul > 3 {
		return 3
	}
	return mul
}

// topDepth sums the first n levels of both sides' shares, taking the smaller
// side as the binding one.
func topDepth(book *types.Orderbook, n int) float64 {
	sum := func(levels []types.Level) float64 {
		total := 0.0
		for i, l := range levels {
			if i >= n {
				break
			}
			total += l.Shares
		}
		return total
	}

	bid := sum(book.Bids)
	ask := sum(book.Asks)
	if bid < ask {
		return bid
	}
	return ask
}

func profileValue(p Profile) float64 {
	switch p {
	case ProfileCalm:
		return 0
	case ProfileVolatile:
		return 2
	default:
		return 1
	}
}

// Package base supplies the shared Connector machinery (C4): the
// INIT..STOPPED state machine, per-market coalescing, WebSocket transport
// and circuit-broken/rate-limited REST discovery and resync. Each venue
// package only supplies an app.VenueAdapter for wire-format and endpoint
// differences.
package base

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	connapp "github.com/fd1az/arbitrage-bot/business/connectors/app"
	condomain "github.com/fd1az/arbitrage-bot/business/connectors/domain"
	marketdata "github.com/fd1az/arbitrage-bot/business/marketdata/app"
	mdomain "github.com/fd1az/arbitrage-bot/business/marketdata/domain"
	"github.com/fd1az/arbitrage-bot/internal/apperror"
	"github.com/fd1az/arbitrage-bot/internal/logger"
	"github.com/fd1az/arbitrage-bot/internal/ratelimit"
	"github.com/fd1az/arbitrage-bot/internal/wsconn"
)

const (
	tracerName = "connectors.base"
	meterName  = "connectors.base"
)

// Config configures the shared machinery. Venue packages supply sensible
// defaults through their constructors.
type Config struct {
	DepthLevels      int
	CoalesceInterval time.Duration
	RESTTimeout      time.Duration
	RequestsPerMin   int
}

type connectorMetrics struct {
	messages     metric.Int64Counter
	parseErrors  metric.Int64Counter
	resyncs      metric.Int64Counter
	publishes    metric.Int64Counter
	staleDropped metric.Int64Counter
}

// BaseConnector implements app.Connector by driving an app.VenueAdapter
// through the shared FSM, coalescing and transport logic.
type BaseConnector struct {
	adapter  connapp.VenueAdapter
	registry *marketdata.SymbolRegistry
	store    *marketdata.BookStore
	log      logger.LoggerInterface
	cfg      Config

	limiter *ratelimit.Limiter
	breaker *gobreaker.CircuitBreaker[any]
	ws      *wsconn.Client

	mu          sync.Mutex
	state       condomain.State
	tracked     map[mdomain.Pair]mdomain.Market
	byNative    map[string]mdomain.Pair
	shadow      map[mdomain.Pair]*shadowBook
	lastPublish map[mdomain.Pair]time.Time

	lastMessageAt  atomic.Int64
	reconnectCount atomic.Int32

	tracer  trace.Tracer
	metrics *connectorMetrics
}

// New creates a BaseConnector wired to adapter.
func New(adapter connapp.VenueAdapter, registry *marketdata.SymbolRegistry, store *marketdata.BookStore, log logger.LoggerInterface, cfg Config) *BaseConnector {
	if cfg.DepthLevels <= 0 {
		cfg.DepthLevels = 20
	}
	if cfg.CoalesceInterval <= 0 {
		cfg.CoalesceInterval = 100 * time.Millisecond
	}
	if cfg.RESTTimeout <= 0 {
		cfg.RESTTimeout = 5 * time.Second
	}
	if cfg.RequestsPerMin <= 0 {
		cfg.RequestsPerMin = 300
	}

	breakerSettings := gobreaker.Settings{
		Name:        string(adapter.Venue()) + ".rest",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	bc := &BaseConnector{
		adapter:     adapter,
		registry:    registry,
		store:       store,
		log:         log,
		cfg:         cfg,
		limiter:     ratelimit.New(cfg.RequestsPerMin),
		breaker:     gobreaker.NewCircuitBreaker[any](breakerSettings),
		state:       condomain.StateInit,
		tracked:     make(map[mdomain.Pair]mdomain.Market),
		byNative:    make(map[string]mdomain.Pair),
		shadow:      make(map[mdomain.Pair]*shadowBook),
		lastPublish: make(map[mdomain.Pair]time.Time),
		tracer:      otel.Tracer(tracerName),
	}
	bc.initMetrics()
	return bc
}

func (c *BaseConnector) initMetrics() {
	meter := otel.Meter(meterName)
	c.metrics = &connectorMetrics{}
	c.metrics.messages, _ = meter.Int64Counter("connector_messages_total", metric.WithDescription("depth messages received"))
	c.metrics.parseErrors, _ = meter.Int64Counter("connector_parse_errors_total", metric.WithDescription("messages that failed to parse"))
	c.metrics.resyncs, _ = meter.Int64Counter("connector_resyncs_total", metric.WithDescription("sequence-gap resyncs performed"))
	c.metrics.publishes, _ = meter.Int64Counter("connector_publishes_total", metric.WithDescription("book store publishes"))
	c.metrics.staleDropped, _ = meter.Int64Counter("connector_stale_dropped_total", metric.WithDescription("snapshots the book store rejected"))
}

// Venue returns the venue id this connector serves.
func (c *BaseConnector) Venue() mdomain.VenueID { return c.adapter.Venue() }

func (c *BaseConnector) setState(s condomain.State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *BaseConnector) getState() condomain.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Discover runs REST instrument discovery through the rate limiter and
// circuit breaker, canonicalizes results through the Symbol Registry, and
// returns the Markets the venue currently lists.
func (c *BaseConnector) Discover(ctx context.Context) ([]mdomain.Market, error) {
	c.setState(condomain.StateDiscover)
	ctx, span := c.tracer.Start(ctx, "connector.discover", trace.WithAttributes(attribute.String("venue", string(c.Venue()))))
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperror.New(apperror.CodeVenueDiscoveryFailed, apperror.WithCause(err))
	}

	result, err := c.breaker.Execute(func() (any, error) {
		return c.adapter.FetchInstruments(ctx)
	})
	if err != nil {
		span.RecordError(err)
		c.setState(condomain.StateDegraded)
		return nil, apperror.New(apperror.CodeVenueDiscoveryFailed,
			apperror.WithContext(string(c.Venue())), apperror.WithCause(err))
	}
	raw, _ := result.([]marketdata.RawInstrument)

	markets := c.registry.Load(c.Venue(), raw)
	return markets, nil
}

// Subscribe opens the transport (if not already open) and starts tracking
// markets, merging every inbound update into each market's shadow book and
// coalesce-publishing to the Book Store.
func (c *BaseConnector) Subscribe(ctx context.Context, markets []mdomain.Market) error {
	c.setState(condomain.StateSubscribing)

	c.mu.Lock()
	native := make([]string, 0, len(markets))
	for _, m := range markets {
		c.tracked[m.Pair] = m
		c.byNative[m.NativeSymbol] = m.Pair
		if _, ok := c.shadow[m.Pair]; !ok {
			c.shadow[m.Pair] = newShadowBook()
		}
		native = append(native, m.NativeSymbol)
	}
	ws := c.ws
	c.mu.Unlock()

	if len(native) == 0 {
		return nil
	}

	if ws == nil {
		streamURL, err := c.adapter.StreamURL(native, c.cfg.DepthLevels)
		if err != nil {
			return apperror.New(apperror.CodeTransportFault, apperror.WithCause(err))
		}
		wsCfg := wsconn.DefaultConfig(streamURL, string(c.Venue()))
		conn, err := wsconn.New(wsCfg)
		if err != nil {
			return apperror.New(apperror.CodeTransportFault, apperror.WithCause(err))
		}
		conn.OnMessage(c.handleMessage)
		conn.OnStateChange(c.handleTransportState)
		if err := conn.ConnectWithRetry(ctx); err != nil {
			return apperror.New(apperror.CodeTransportFault, apperror.WithCause(err))
		}
		c.mu.Lock()
		c.ws = conn
		c.mu.Unlock()
		ws = conn
	}

	if msg, err := c.adapter.SubscribeMessage(native, c.cfg.DepthLevels); err == nil && msg != nil {
		if err := ws.Send(ctx, msg); err != nil {
			c.log.Warn(ctx, "subscribe message send failed", "venue", c.Venue(), "error", err)
		}
	}

	c.setState(condomain.StateStreaming)
	return nil
}

// Unsubscribe stops tracking markets; the transport is left open for the
// remaining subscriptions.
func (c *BaseConnector) Unsubscribe(ctx context.Context, markets []mdomain.Market) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range markets {
		delete(c.tracked, m.Pair)
		delete(c.byNative, m.NativeSymbol)
		delete(c.shadow, m.Pair)
		delete(c.lastPublish, m.Pair)
	}
	return nil
}

// Shutdown marks the connector STOPPED and closes the transport at once.
// ctx is not consulted, and frames still in flight are not drained.
func (c *BaseConnector) Shutdown(ctx context.Context) error {
	c.setState(condomain.StateStopped)
	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()
	if ws == nil {
		return nil
	}
	return ws.Close()
}

// Status reports the connector's current FSM state and basic counters.
func (c *BaseConnector) Status() condomain.Status {
	c.mu.Lock()
	state := c.state
	tracked := len(c.tracked)
	c.mu.Unlock()
	return condomain.Status{
		Venue:          string(c.Venue()),
		State:          state,
		MarketsTracked: tracked,
		LastMessageAt:  c.lastMessageAt.Load(),
		ReconnectCount: int(c.reconnectCount.Load()),
	}
}

func (c *BaseConnector) handleTransportState(state wsconn.State, err error) {
	switch state {
	case wsconn.StateReconnecting:
		c.reconnectCount.Add(1)
		c.setState(condomain.StateReconnecting)
	case wsconn.StateConnected:
		c.setState(condomain.StateStreaming)
	}
}

// handleMessage parses one inbound frame and merges every resulting depth
// update into the corresponding market's shadow book, publishing to the
// Book Store at most once per cfg.CoalesceInterval per market.
func (c *BaseConnector) handleMessage(ctx context.Context, raw []byte) {
	c.lastMessageAt.Store(time.Now().UnixNano())
	c.metrics.messages.Add(ctx, 1)

	updates, err := c.adapter.ParseMessage(raw)
	if err != nil {
		c.metrics.parseErrors.Add(ctx, 1)
		return
	}

	for _, u := range updates {
		c.applyUpdate(ctx, u)
	}
}

func (c *BaseConnector) applyUpdate(ctx context.Context, u connapp.DepthUpdate) {
	c.mu.Lock()
	target, found := c.byNative[u.NativeSymbol]
	if !found {
		c.mu.Unlock()
		return
	}

	sb, ok := c.shadow[target]
	if !ok {
		sb = newShadowBook()
		c.shadow[target] = sb
	}

	gap := sb.seq > 0 && u.Seq > 0 && u.Seq != sb.seq+1 && !u.FullSnapshot
	sb.apply(u.Bids, u.Asks, u.FullSnapshot, u.Seq)

	last := c.lastPublish[target]
	due := time.Since(last) >= c.cfg.CoalesceInterval
	var bids, asks []mdomain.Level
	var seq int64
	if due {
		bids, asks = sb.snapshot(c.cfg.DepthLevels)
		seq = sb.seq
		c.lastPublish[target] = time.Now()
	}
	c.mu.Unlock()

	if gap {
		c.metrics.resyncs.Add(ctx, 1)
		go c.resync(context.Background(), target, u.NativeSymbol)
	}

	if !due {
		return
	}

	snap := &mdomain.BookSnapshot{
		Venue:      c.Venue(),
		Pair:       target,
		Bids:       bids,
		Asks:       asks,
		TsExchange: u.TsExchange,
		TsLocal:    time.Now(),
		Seq:        seq,
	}
	if err := c.store.Put(snap); err != nil {
		c.metrics.staleDropped.Add(ctx, 1)
		return
	}
	c.metrics.publishes.Add(ctx, 1)
}

// resync fetches a fresh REST snapshot after a sequence gap and replaces the
// shadow book wholesale. The FSM stays in STREAMING unless the resync itself
// fails, in which case the connector degrades until the next successful
// resync brings it back.
func (c *BaseConnector) resync(ctx context.Context, pair mdomain.Pair, nativeSymbol string) {
	if err := c.limiter.Wait(ctx); err != nil {
		return
	}

	result, err := c.breaker.Execute(func() (any, error) {
		return c.adapter.FetchSnapshot(ctx, nativeSymbol, c.cfg.DepthLevels)
	})
	if err != nil {
		c.setState(condomain.StateDegraded)
		c.log.Warn(ctx, "resync failed", "venue", c.Venue(), "symbol", nativeSymbol, "error", err)
		return
	}
	update, _ := result.(connapp.DepthUpdate)

	c.mu.Lock()
	sb, ok := c.shadow[pair]
	if !ok {
		sb = newShadowBook()
		c.shadow[pair] = sb
	}
	sb.apply(update.Bids, update.Asks, true, update.Seq)
	bids, asks := sb.snapshot(c.cfg.DepthLevels)
	c.lastPublish[pair] = time.Now()
	c.mu.Unlock()

	snap := &mdomain.BookSnapshot{
		Venue:      c.Venue(),
		Pair:       pair,
		Bids:       bids,
		Asks:       asks,
		TsExchange: update.TsExchange,
		TsLocal:    time.Now(),
		Seq:        update.Seq,
	}
	_ = c.store.Put(snap)
	if c.getState() == condomain.StateDegraded {
		c.setState(condomain.StateStreaming)
	}
}

var _ connapp.Connector = (*BaseConnector)(nil)

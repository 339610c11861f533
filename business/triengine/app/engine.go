// Package app implements the Tri Engine (C7): a periodic per-venue scan for
// profitable 3-leg cycles over a venue's known markets.
package app

import (
	"context"
	"time"

	depth "github.com/fd1az/arbitrage-bot/business/depth/app"
	marketdata "github.com/fd1az/arbitrage-bot/business/marketdata/app"
	mdomain "github.com/fd1az/arbitrage-bot/business/marketdata/domain"
	"github.com/fd1az/arbitrage-bot/business/triengine/domain"
	"github.com/fd1az/arbitrage-bot/internal/logger"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	tracerName = "github.com/fd1az/arbitrage-bot/business/triengine/app"
	meterName  = "github.com/fd1az/arbitrage-bot/business/triengine/app"
)

var bps10000 = decimal.NewFromInt(10000)
var one = decimal.NewFromInt(1)

// Config holds the Tri Engine's scan cadence and thresholds (spec.md §6).
type Config struct {
	ScanInterval    time.Duration
	MinNotional     decimal.Decimal
	MinTriGainBps   decimal.Decimal
	MaxStaleness    time.Duration
	Bases           []string
	ExcludeQuotes   map[string]bool
	MaxNeighbors    int
}

type engineMetrics struct {
	scans          metric.Int64Counter
	basesSkipped   metric.Int64Counter
	emitted        metric.Int64Counter
	scanLatency    metric.Float64Histogram
}

// Engine scans, per venue, a directed market graph for qualifying 3-cycles,
// grounded on the same periodic-ticker shape the Cross Engine and the
// CEX/DEX detector both use.
type Engine struct {
	store *marketdata.BookStore
	fees  *marketdata.FeeTable
	sink  Sink
	cfg   Config
	log   logger.LoggerInterface

	tracer  trace.Tracer
	metrics *engineMetrics

	cancel context.CancelFunc
	done   chan struct{}
}

// NewEngine creates a Tri Engine.
func NewEngine(store *marketdata.BookStore, fees *marketdata.FeeTable, sink Sink, cfg Config, log logger.LoggerInterface) *Engine {
	e := &Engine{
		store:  store,
		fees:   fees,
		sink:   sink,
		cfg:    cfg,
		log:    log,
		tracer: otel.Tracer(tracerName),
	}
	if err := e.initMetrics(); err != nil {
		log.Error(context.Background(), "failed to initialize tri engine metrics", "error", err)
	}
	return e
}

func (e *Engine) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error
	e.metrics = &engineMetrics{}

	e.metrics.scans, err = meter.Int64Counter("tri_engine_scans_total",
		metric.WithDescription("Total number of tri engine scan ticks"))
	if err != nil {
		return err
	}
	e.metrics.basesSkipped, err = meter.Int64Counter("tri_engine_bases_skipped_total",
		metric.WithDescription("Total number of bases skipped for exceeding the neighbor safety bound"))
	if err != nil {
		return err
	}
	e.metrics.emitted, err = meter.Int64Counter("tri_engine_opportunities_emitted_total",
		metric.WithDescription("Total number of tri opportunities emitted"))
	if err != nil {
		return err
	}
	e.metrics.scanLatency, err = meter.Float64Histogram("tri_engine_scan_latency_ms",
		metric.WithDescription("Wall-clock time to complete one scan tick"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000))
	if err != nil {
		return err
	}
	return nil
}

// Start begins the periodic scan loop in the background.
func (e *Engine) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})

	e.log.Info(ctx, "tri engine starting", "scan_interval", e.cfg.ScanInterval, "bases", e.cfg.Bases)
	go e.run(ctx)
	return nil
}

func (e *Engine) run(ctx context.Context) {
	defer close(e.done)
	ticker := time.NewTicker(e.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.log.Info(ctx, "tri engine stopping", "reason", ctx.Err())
			return
		case <-ticker.C:
			e.scan(ctx)
		}
	}
}

func (e *Engine) scan(ctx context.Context) {
	start := time.Now()
	if e.metrics != nil {
		e.metrics.scans.Add(ctx, 1)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, venue := range mdomain.AllVenues {
		venue := venue
		g.Go(func() error {
			e.scanVenue(gctx, venue)
			return nil
		})
	}
	_ = g.Wait()

	if e.metrics != nil {
		e.metrics.scanLatency.Record(ctx, float64(time.Since(start).Microseconds())/1000.0)
	}
}

type triCandidate struct {
	legs     [3]domain.Edge
	netBps   decimal.Decimal
	grossBps decimal.Decimal
	depthUsed decimal.Decimal
}

func (e *Engine) scanVenue(ctx context.Context, venue mdomain.VenueID) {
	now := time.Now()
	pairs := e.store.PairsOf(venue)
	if len(pairs) == 0 {
		return
	}

	ctx, span := e.tracer.Start(ctx, "scanVenue", trace.WithAttributes(attribute.String("venue", string(venue))))
	defer span.End()

	graph := domain.NewGraph()
	for _, pair := range pairs {
		snap, err := e.store.Get(venue, pair, now)
		if err != nil {
			continue
		}
		taker, err := e.fees.Taker(venue, pair)
		if err != nil {
			continue
		}
		if sell, ok := depth.VWAP(snap.Bids, e.cfg.MinNotional); ok {
			graph.AddEdge(domain.Edge{From: pair.Base, To: pair.Quote, Rate: sell.VWAP, Fee: taker, Pair: pair, Sell: true, FilledNotional: sell.FilledNotional})
		}
		if buy, ok := depth.VWAP(snap.Asks, e.cfg.MinNotional); ok {
			graph.AddEdge(domain.Edge{From: pair.Quote, To: pair.Base, Rate: one.Div(buy.VWAP), Fee: taker, Pair: pair, Sell: false, FilledNotional: buy.FilledNotional})
		}
	}

	for _, base := range e.cfg.Bases {
		cycles, ok := graph.Cycles3(base, e.cfg.ExcludeQuotes, e.cfg.MaxNeighbors)
		if !ok {
			e.log.Warn(ctx, "tri engine skipping base: neighbor count exceeds safety bound",
				"venue", venue, "base", base, "max_neighbors", e.cfg.MaxNeighbors)
			if e.metrics != nil {
				e.metrics.basesSkipped.Add(ctx, 1)
			}
			continue
		}
		e.scoreAndEmit(ctx, venue, base, cycles, now)
	}
}

func (e *Engine) scoreAndEmit(ctx context.Context, venue mdomain.VenueID, base string, cycles []domain.Cycle, now time.Time) {
	var best *triCandidate
	for _, c := range cycles {
		grossFactor := c.Legs[0].Rate.Mul(c.Legs[1].Rate).Mul(c.Legs[2].Rate)

		netFactor := decimal.NewFromInt(1)
		depthUsed := decimal.Zero
		for _, leg := range c.Legs {
			netFactor = netFactor.Mul(leg.Rate).Mul(one.Sub(leg.Fee))
			depthUsed = depthUsed.Add(leg.FilledNotional)
		}
		netBps := netFactor.Sub(one).Mul(bps10000)
		if netBps.LessThan(e.cfg.MinTriGainBps) {
			continue
		}
		grossBps := grossFactor.Sub(one).Mul(bps10000)

		cand := triCandidate{legs: c.Legs, netBps: netBps, grossBps: grossBps, depthUsed: depthUsed}
		if best == nil || triBetter(cand, *best) {
			cc := cand
			best = &cc
		}
	}

	if best == nil {
		return
	}

	opp := domain.Opportunity{
		Venue:     venue,
		Base:      base,
		Legs:      [3]domain.Leg{{Pair: best.legs[0].Pair, Sell: best.legs[0].Sell}, {Pair: best.legs[1].Pair, Sell: best.legs[1].Sell}, {Pair: best.legs[2].Pair, Sell: best.legs[2].Sell}},
		GrossBps:  best.grossBps,
		NetBps:    best.netBps,
		TDetected: now,
	}

	if err := e.sink.SubmitTri(ctx, opp); err != nil {
		e.log.Warn(ctx, "tri opportunity submit failed", "venue", venue, "base", base, "error", err)
		return
	}
	if e.metrics != nil {
		e.metrics.emitted.Add(ctx, 1)
	}
}

// triBetter reports whether cand beats cur under spec.md §4.7's
// tie-breaking rule: highest net_bps, then shortest total VWAP depth used.
func triBetter(cand, cur triCandidate) bool {
	if !cand.netBps.Equal(cur.netBps) {
		return cand.netBps.GreaterThan(cur.netBps)
	}
	return cand.depthUsed.LessThan(cur.depthUsed)
}

// Stop signals the scan loop to exit and waits for it to finish.
func (e *Engine) Stop() error {
	if e.cancel == nil {
		return nil
	}
	e.cancel()
	select {
	case <-e.done:
	case <-time.After(5 * time.Second):
	}
	return nil
}

// Package app implements the Cross Engine (C6): a periodic scan of the Book
// Store for cross-venue spreads on the same canonical pair.
package app

import (
	"context"
	"time"

	depth "github.com/fd1az/arbitrage-bot/business/depth/app"
	"github.com/fd1az/arbitrage-bot/business/crossengine/domain"
	marketdata "github.com/fd1az/arbitrage-bot/business/marketdata/app"
	mdomain "github.com/fd1az/arbitrage-bot/business/marketdata/domain"
	"github.com/fd1az/arbitrage-bot/internal/logger"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	tracerName = "github.com/fd1az/arbitrage-bot/business/crossengine/app"
	meterName  = "github.com/fd1az/arbitrage-bot/business/crossengine/app"
)

var bps10000 = decimal.NewFromInt(10000)

// Config holds the Cross Engine's scan cadence and thresholds (spec.md §6).
type Config struct {
	ScanInterval time.Duration
	MinNotional  decimal.Decimal
	MinSpreadBps decimal.Decimal
	MaxStaleness time.Duration
}

type engineMetrics struct {
	scans       metric.Int64Counter
	pairsScored metric.Int64Counter
	emitted     metric.Int64Counter
	scanLatency metric.Float64Histogram
}

// Engine scans the Book Store every Config.ScanInterval for qualifying
// cross-venue spreads, grounded on the periodic-ticker/errgroup-fan-out
// shape of the CEX/DEX detector's Start/run loop.
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

// NewEngine creates a Cross Engine.
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
		log.Error(context.Background(), "failed to initialize cross engine metrics", "error", err)
	}
	return e
}

func (e *Engine) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error
	e.metrics = &engineMetrics{}

	e.metrics.scans, err = meter.Int64Counter("cross_engine_scans_total",
		metric.WithDescription("Total number of cross engine scan ticks"))
	if err != nil {
		return err
	}
	e.metrics.pairsScored, err = meter.Int64Counter("cross_engine_pairs_scored_total",
		metric.WithDescription("Total number of pairs with >=2 live books considered"))
	if err != nil {
		return err
	}
	e.metrics.emitted, err = meter.Int64Counter("cross_engine_opportunities_emitted_total",
		metric.WithDescription("Total number of cross opportunities emitted"))
	if err != nil {
		return err
	}
	e.metrics.scanLatency, err = meter.Float64Histogram("cross_engine_scan_latency_ms",
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

	e.log.Info(ctx, "cross engine starting", "scan_interval", e.cfg.ScanInterval)
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
			e.log.Info(ctx, "cross engine stopping", "reason", ctx.Err())
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

	now := time.Now()
	pairVenues := make(map[mdomain.Pair][]mdomain.VenueID)
	for _, v := range mdomain.AllVenues {
		for _, p := range e.store.PairsOf(v) {
			pairVenues[p] = append(pairVenues[p], v)
		}
	}

	var scored int64
	g, gctx := errgroup.WithContext(ctx)
	for pair, venues := range pairVenues {
		if len(venues) < 2 {
			continue
		}
		scored++
		pair, venues := pair, venues
		g.Go(func() error {
			e.scanPair(gctx, pair, venues, now)
			return nil
		})
	}
	_ = g.Wait()

	if e.metrics != nil {
		e.metrics.pairsScored.Add(ctx, scored)
		e.metrics.scanLatency.Record(ctx, float64(time.Since(start).Microseconds())/1000.0)
	}
}

type crossCandidate struct {
	buyVenue, sellVenue         mdomain.VenueID
	netBps, grossBps            decimal.Decimal
	buyVWAP, sellVWAP           decimal.Decimal
	fillableNotional            decimal.Decimal
}

// scanPair evaluates every ordered venue pair (A, B) for pair and emits the
// single best qualifying opportunity, per spec.md §4.6's tie-breaking rule.
func (e *Engine) scanPair(ctx context.Context, pair mdomain.Pair, venues []mdomain.VenueID, now time.Time) {
	ctx, span := e.tracer.Start(ctx, "scanPair", trace.WithAttributes(attribute.String("pair", pair.String())))
	defer span.End()

	var best *crossCandidate

	for _, a := range venues {
		snapA, err := e.store.Get(a, pair, now)
		if err != nil {
			continue
		}
		takerA, err := e.fees.Taker(a, pair)
		if err != nil {
			continue
		}
		for _, b := range venues {
			if a == b {
				continue
			}
			snapB, err := e.store.Get(b, pair, now)
			if err != nil {
				continue
			}
			takerB, err := e.fees.Taker(b, pair)
			if err != nil {
				continue
			}

			buy, ok := depth.VWAP(snapA.Asks, e.cfg.MinNotional)
			if !ok {
				continue
			}
			sell, ok := depth.VWAP(snapB.Bids, e.cfg.MinNotional)
			if !ok {
				continue
			}

			grossBps := sell.VWAP.Div(buy.VWAP).Sub(decimal.NewFromInt(1)).Mul(bps10000)
			netBps := grossBps.Sub(takerA.Add(takerB).Mul(bps10000))
			if netBps.LessThan(e.cfg.MinSpreadBps) {
				continue
			}

			cand := crossCandidate{
				buyVenue:         a,
				sellVenue:        b,
				netBps:           netBps,
				grossBps:         grossBps,
				buyVWAP:          buy.VWAP,
				sellVWAP:         sell.VWAP,
				fillableNotional: decimal.Min(buy.FillableNotional, sell.FillableNotional),
			}
			if best == nil || crossBetter(cand, *best) {
				c := cand
				best = &c
			}
		}
	}

	if best == nil {
		return
	}

	opp := domain.Opportunity{
		Pair:             pair,
		BuyVenue:         best.buyVenue,
		SellVenue:        best.sellVenue,
		Notional:         best.fillableNotional,
		GrossBps:         best.grossBps,
		NetBps:           best.netBps,
		BuyVWAP:          best.buyVWAP,
		SellVWAP:         best.sellVWAP,
		FillableNotional: best.fillableNotional,
		TDetected:        now,
	}

	span.SetAttributes(
		attribute.String("buy_venue", string(best.buyVenue)),
		attribute.String("sell_venue", string(best.sellVenue)),
		attribute.String("net_bps", best.netBps.StringFixed(2)),
	)

	if err := e.sink.SubmitCross(ctx, opp); err != nil {
		e.log.Warn(ctx, "cross opportunity submit failed", "pair", pair.String(), "error", err)
		return
	}
	if e.metrics != nil {
		e.metrics.emitted.Add(ctx, 1)
	}
}

// crossBetter reports whether cand beats cur under spec.md §4.6's
// tie-breaking rule: max net_bps, then max fillable notional, then
// lexicographic (buy_venue, sell_venue).
func crossBetter(cand, cur crossCandidate) bool {
	if !cand.netBps.Equal(cur.netBps) {
		return cand.netBps.GreaterThan(cur.netBps)
	}
	if !cand.fillableNotional.Equal(cur.fillableNotional) {
		return cand.fillableNotional.GreaterThan(cur.fillableNotional)
	}
	if cand.buyVenue != cur.buyVenue {
		return cand.buyVenue < cur.buyVenue
	}
	return cand.sellVenue < cur.sellVenue
}

// Stop signals the scan loop to exit and waits for it to finish, for at most
// 5 seconds.
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

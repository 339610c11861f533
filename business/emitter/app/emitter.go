// Package app implements the Emitter (C8): opportunity dedup, cooldown, and
// dispatch to the notifier and persistence sinks.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	crossdomain "github.com/fd1az/arbitrage-bot/business/crossengine/domain"
	"github.com/fd1az/arbitrage-bot/business/emitter/domain"
	tridomain "github.com/fd1az/arbitrage-bot/business/triengine/domain"
	"github.com/fd1az/arbitrage-bot/internal/logger"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/fd1az/arbitrage-bot/business/emitter/app"
	meterName  = "github.com/fd1az/arbitrage-bot/business/emitter/app"
)

// Config holds the Emitter's queueing, cooldown and retry parameters
// (spec.md §4.8, §5).
type Config struct {
	QueueSize       int
	Cooldown        time.Duration
	GraceShutdown   time.Duration
	RetryAttempts   int
	RetryBaseDelay  time.Duration
	NotifierTimeout time.Duration
}

type emitterMetrics struct {
	suppressed     metric.Int64Counter
	dispatched     metric.Int64Counter
	notifyDropped  metric.Int64Counter
	persistDropped metric.Int64Counter
}

// Emitter deduplicates, throttles, and dispatches opportunities handed in by
// the Cross Engine and Tri Engine to two independently-queued downstream
// sinks, grounded on the Reporter shape of the CEX/DEX detector's Start/
// Report/Stop contract and on internal/wsconn's non-blocking select/default
// send for its bounded buffers.
type Emitter struct {
	notifier    Notifier
	persistence PersistenceSink
	cfg         Config
	log         logger.LoggerInterface

	mu          sync.Mutex
	lastEmitted map[string]time.Time

	notifyCh  chan domain.Submission
	persistCh chan domain.Submission

	notifyDropped  atomic.Int64
	persistDropped atomic.Int64

	tracer  trace.Tracer
	metrics *emitterMetrics

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewEmitter creates an Emitter. A nil notifier or persistence sink is
// accepted (e.g. for tests exercising dedup alone); a nil sink's queue is
// drained by discarding submissions rather than dispatching them.
func NewEmitter(notifier Notifier, persistence PersistenceSink, cfg Config, log logger.LoggerInterface) *Emitter {
	e := &Emitter{
		notifier:    notifier,
		persistence: persistence,
		cfg:         cfg,
		log:         log,
		lastEmitted: make(map[string]time.Time),
		notifyCh:    make(chan domain.Submission, cfg.QueueSize),
		persistCh:   make(chan domain.Submission, cfg.QueueSize),
		tracer:      otel.Tracer(tracerName),
	}
	if err := e.initMetrics(); err != nil {
		log.Error(context.Background(), "failed to initialize emitter metrics", "error", err)
	}
	return e
}

func (e *Emitter) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error
	e.metrics = &emitterMetrics{}

	e.metrics.suppressed, err = meter.Int64Counter("emitter_suppressed_total",
		metric.WithDescription("Total number of submissions suppressed by dedup cooldown"))
	if err != nil {
		return err
	}
	e.metrics.dispatched, err = meter.Int64Counter("emitter_notifier_dispatched_total",
		metric.WithDescription("Total number of notifier sends that succeeded"))
	if err != nil {
		return err
	}
	e.metrics.notifyDropped, err = meter.Int64Counter("emitter_notify_queue_dropped_total",
		metric.WithDescription("Total number of notifier queue overflow drops"))
	if err != nil {
		return err
	}
	e.metrics.persistDropped, err = meter.Int64Counter("emitter_persist_queue_dropped_total",
		metric.WithDescription("Total number of persistence queue overflow drops"))
	if err != nil {
		return err
	}
	return nil
}

// Start spawns the two sink dispatch loops.
func (e *Emitter) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.wg.Add(2)
	go e.runNotify(ctx)
	go e.runPersist(ctx)

	e.log.Info(ctx, "emitter started", "queue_size", e.cfg.QueueSize, "cooldown", e.cfg.Cooldown)
	return nil
}

// SubmitCross implements crossengine/app.Sink.
func (e *Emitter) SubmitCross(ctx context.Context, opp crossdomain.Opportunity) error {
	payload, err := json.Marshal(opp)
	if err != nil {
		return fmt.Errorf("marshal cross opportunity: %w", err)
	}
	sub := domain.Submission{
		Kind:      domain.KindCross,
		Detected:  opp.TDetected,
		NetBps:    opp.NetBps,
		Pair:      opp.Pair.String(),
		BuyVenue:  string(opp.BuyVenue),
		SellVenue: string(opp.SellVenue),
		Payload:   json.RawMessage(payload),
		Summary: fmt.Sprintf("cross %s: buy %s / sell %s, net %s bps, notional %s",
			opp.Pair.String(), opp.BuyVenue, opp.SellVenue, opp.NetBps.StringFixed(2), opp.Notional.StringFixed(2)),
	}
	return e.submit(ctx, sub)
}

// SubmitTri implements triengine/app.Sink.
func (e *Emitter) SubmitTri(ctx context.Context, opp tridomain.Opportunity) error {
	payload, err := json.Marshal(opp)
	if err != nil {
		return fmt.Errorf("marshal tri opportunity: %w", err)
	}
	legs := make([]string, 0, len(opp.Legs))
	for _, leg := range opp.Legs {
		legs = append(legs, leg.Pair.String())
	}
	sorted := append([]string(nil), legs...)
	sort.Strings(sorted)

	sub := domain.Submission{
		Kind:     domain.KindTri,
		Detected: opp.TDetected,
		NetBps:   opp.NetBps,
		Venue:    string(opp.Venue),
		Base:     opp.Base,
		LegPairs: sorted,
		Payload:  json.RawMessage(payload),
		Summary: fmt.Sprintf("tri %s on %s: %s, net %s bps",
			opp.Base, opp.Venue, legs, opp.NetBps.StringFixed(2)),
	}
	return e.submit(ctx, sub)
}

func (e *Emitter) submit(ctx context.Context, sub domain.Submission) error {
	key := sub.DedupKey()

	e.mu.Lock()
	last, seen := e.lastEmitted[key]
	if seen && sub.Detected.Sub(last) < e.cfg.Cooldown {
		e.mu.Unlock()
		if e.metrics != nil {
			e.metrics.suppressed.Add(ctx, 1)
		}
		return nil
	}
	e.lastEmitted[key] = sub.Detected
	e.mu.Unlock()

	dropOldestAndPush(e.persistCh, sub, &e.persistDropped, e.metrics, e.metrics.persistDropped, ctx)
	dropOldestAndPush(e.notifyCh, sub, &e.notifyDropped, e.metrics, e.metrics.notifyDropped, ctx)
	return nil
}

// dropOldestAndPush is the bounded-queue overflow policy from spec.md §4.8:
// on overflow the oldest queued item is dropped and a counter incremented;
// the pipeline never blocks the caller (engines).
func dropOldestAndPush(ch chan domain.Submission, item domain.Submission, dropped *atomic.Int64, m *emitterMetrics, counter metric.Int64Counter, ctx context.Context) {
	select {
	case ch <- item:
		return
	default:
	}
	select {
	case <-ch:
		dropped.Add(1)
		if m != nil {
			counter.Add(ctx, 1)
		}
	default:
	}
	select {
	case ch <- item:
	default:
	}
}

func (e *Emitter) runNotify(ctx context.Context) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			e.drainNotify()
			return
		case sub := <-e.notifyCh:
			e.notifyOne(ctx, sub)
		}
	}
}

func (e *Emitter) notifyOne(ctx context.Context, sub domain.Submission) {
	if e.notifier == nil {
		return
	}
	ctx, span := e.tracer.Start(ctx, "notify")
	defer span.End()

	backoff := e.cfg.RetryBaseDelay
	var lastErr error
	for attempt := 1; attempt <= e.cfg.RetryAttempts; attempt++ {
		sendCtx, cancel := context.WithTimeout(ctx, e.cfg.NotifierTimeout)
		err := e.notifier.Send(sendCtx, sub.Summary)
		cancel()
		if err == nil {
			if e.metrics != nil {
				e.metrics.dispatched.Add(ctx, 1)
			}
			return
		}
		lastErr = err
		if attempt < e.cfg.RetryAttempts {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			backoff *= 2
		}
	}
	e.log.Warn(ctx, "notifier send failed after retries", "attempts", e.cfg.RetryAttempts, "error", lastErr)
}

// drainNotify makes a single best-effort attempt per queued submission
// within GraceShutdown, with no further retries — matching spec.md §5's
// "Emitter flushes its queues subject to the same grace" shutdown rule.
func (e *Emitter) drainNotify() {
	deadline := time.Now().Add(e.cfg.GraceShutdown)
	for time.Now().Before(deadline) {
		select {
		case sub := <-e.notifyCh:
			if e.notifier != nil {
				ctx, cancel := context.WithTimeout(context.Background(), e.cfg.NotifierTimeout)
				_ = e.notifier.Send(ctx, sub.Summary)
				cancel()
			}
		default:
			return
		}
	}
}

func (e *Emitter) runPersist(ctx context.Context) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			e.drainPersist()
			return
		case sub := <-e.persistCh:
			e.persistOne(ctx, sub)
		}
	}
}

func (e *Emitter) persistOne(ctx context.Context, sub domain.Submission) {
	if e.persistence == nil {
		return
	}
	payload, _ := sub.Payload.(json.RawMessage)
	rec := domain.Record{ID: uuid.NewString(), TDetected: sub.Detected, Kind: sub.Kind, PayloadJSON: payload}
	if err := e.persistence.Append(ctx, rec); err != nil {
		e.log.Warn(ctx, "persistence append failed", "error", err)
	}
}

func (e *Emitter) drainPersist() {
	deadline := time.Now().Add(e.cfg.GraceShutdown)
	for time.Now().Before(deadline) {
		select {
		case sub := <-e.persistCh:
			e.persistOne(context.Background(), sub)
		default:
			return
		}
	}
}

// Stop cancels both dispatch loops and waits for their grace-bounded drain
// to finish.
func (e *Emitter) Stop() error {
	if e.cancel == nil {
		return nil
	}
	e.cancel()
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(e.cfg.GraceShutdown + time.Second):
	}
	return nil
}

// Package app implements the clock context: a monotonic heartbeat broadcast
// to subscribers, and a periodic sweep of the Book Store for stale markets. Repurposed from the blockchain context's
// BlockSubscriber/GasOracle composition in service.go.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/fd1az/arbitrage-bot/business/clock/domain"
	mdomain "github.com/fd1az/arbitrage-bot/business/marketdata/domain"
	"github.com/fd1az/arbitrage-bot/internal/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/fd1az/arbitrage-bot/business/clock/app"
	meterName  = "github.com/fd1az/arbitrage-bot/business/clock/app"
)

// BookSweeper is the subset of marketdata/app.BookStore the clock needs: the
// staleness sweep that lists markets whose latest book is older than
// MAX_STALENESS_MS.
type BookSweeper interface {
	Sweep(now time.Time) []mdomain.MarketKey
}

// Config holds the heartbeat cadence and sweep cadence.
type Config struct {
	TickInterval  time.Duration
	SweepInterval time.Duration
}

type serviceMetrics struct {
	ticks      metric.Int64Counter
	sweeps     metric.Int64Counter
	staleTotal metric.Int64Counter
}

// Service is the clock bounded context's single implementation of both
// TickSource and StalenessSweeper, composed the way BlockchainService
// composed a BlockSubscriber and a GasOracle.
type Service struct {
	sweeper BookSweeper
	cfg     Config
	log     logger.LoggerInterface

	mu    sync.Mutex
	subs  []chan domain.Tick
	state domain.ConnectionState
	seq   int64

	tracer  trace.Tracer
	metrics *serviceMetrics

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a clock Service.
func NewService(sweeper BookSweeper, cfg Config, log logger.LoggerInterface) *Service {
	s := &Service{
		sweeper: sweeper,
		cfg:     cfg,
		log:     log,
		state:   domain.StateStopped,
		tracer:  otel.Tracer(tracerName),
	}
	if err := s.initMetrics(); err != nil {
		log.Error(context.Background(), "failed to initialize clock metrics", "error", err)
	}
	return s
}

func (s *Service) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error
	s.metrics = &serviceMetrics{}

	s.metrics.ticks, err = meter.Int64Counter("clock_ticks_total",
		metric.WithDescription("Total number of heartbeat ticks emitted"))
	if err != nil {
		return err
	}
	s.metrics.sweeps, err = meter.Int64Counter("clock_sweeps_total",
		metric.WithDescription("Total number of staleness sweeps run"))
	if err != nil {
		return err
	}
	s.metrics.staleTotal, err = meter.Int64Counter("clock_stale_markets_total",
		metric.WithDescription("Total number of markets found stale across all sweeps"))
	if err != nil {
		return err
	}
	return nil
}

// Subscribe implements TickSource: returns a buffered channel of ticks, one
// per TickInterval, until ctx is canceled or Stop is called.
func (s *Service) Subscribe(ctx context.Context) (<-chan domain.Tick, error) {
	ch := make(chan domain.Tick, 1)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch, nil
}

// State implements TickSource.
func (s *Service) State() domain.ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start runs the heartbeat and sweep loops in the background.
func (s *Service) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	s.mu.Lock()
	s.state = domain.StateRunning
	s.mu.Unlock()

	s.log.Info(ctx, "clock starting", "tick_interval", s.cfg.TickInterval, "sweep_interval", s.cfg.SweepInterval)
	go s.run(ctx)
	return nil
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	tickTicker := time.NewTicker(s.cfg.TickInterval)
	defer tickTicker.Stop()
	sweepTicker := time.NewTicker(s.cfg.SweepInterval)
	defer sweepTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.state = domain.StateStopped
			s.mu.Unlock()
			s.log.Info(ctx, "clock stopping", "reason", ctx.Err())
			return
		case <-tickTicker.C:
			s.tick(ctx)
		case <-sweepTicker.C:
			s.Sweep(ctx)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	subs := append([]chan domain.Tick(nil), s.subs...)
	s.mu.Unlock()

	tk := domain.Tick{Seq: seq, At: time.Now()}
	for _, ch := range subs {
		select {
		case ch <- tk:
		default:
		}
	}
	if s.metrics != nil {
		s.metrics.ticks.Add(ctx, 1)
	}
}

// Sweep implements StalenessSweeper: reports how many markets the Book Store
// lists as stale and adds that count to a metric. Nothing is evicted.
func (s *Service) Sweep(ctx context.Context) domain.SweepReport {
	ctx, span := s.tracer.Start(ctx, "sweep")
	defer span.End()

	now := time.Now()
	stale := s.sweeper.Sweep(now)
	report := domain.SweepReport{At: now, StaleMarkets: len(stale)}

	if s.metrics != nil {
		s.metrics.sweeps.Add(ctx, 1)
		s.metrics.staleTotal.Add(ctx, int64(len(stale)))
	}
	return report
}

// Stop signals the heartbeat/sweep loop to exit and waits for it to finish.
func (s *Service) Stop() error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	select {
	case <-s.done:
	case <-time.After(5 * time.Second):
	}
	return nil
}

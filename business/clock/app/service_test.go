package app

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/fd1az/arbitrage-bot/business/clock/domain"
	mdomain "github.com/fd1az/arbitrage-bot/business/marketdata/domain"
	"github.com/fd1az/arbitrage-bot/internal/logger"
)

type fakeSweeper struct {
	stale []mdomain.MarketKey
}

func (f *fakeSweeper) Sweep(now time.Time) []mdomain.MarketKey {
	return f.stale
}

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelError, "test", nil)
}

func TestService_Subscribe_ReceivesTicks(t *testing.T) {
	sweeper := &fakeSweeper{}
	svc := NewService(sweeper, Config{TickInterval: 5 * time.Millisecond, SweepInterval: time.Hour}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := svc.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer svc.Stop()

	select {
	case tk := <-ch:
		if tk.Seq < 1 {
			t.Errorf("expected a positive tick sequence, got %d", tk.Seq)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a tick")
	}

	if got := svc.State(); got != domain.StateRunning {
		t.Errorf("expected state running while started, got %v", got)
	}
}

func TestService_Sweep_ReportsStaleCount(t *testing.T) {
	sweeper := &fakeSweeper{stale: []mdomain.MarketKey{{Venue: mdomain.VenueBinance, Pair: mdomain.NewPair("BTC", "USDT")}}}
	svc := NewService(sweeper, Config{TickInterval: time.Hour, SweepInterval: time.Hour}, testLogger())

	report := svc.Sweep(context.Background())
	if report.StaleMarkets != 1 {
		t.Errorf("expected 1 stale market, got %d", report.StaleMarkets)
	}
}

func TestService_Stop_TransitionsToStopped(t *testing.T) {
	sweeper := &fakeSweeper{}
	svc := NewService(sweeper, Config{TickInterval: 5 * time.Millisecond, SweepInterval: time.Hour}, testLogger())

	ctx := context.Background()
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if got := svc.State(); got != domain.StateStopped {
		t.Errorf("expected state stopped after Stop, got %v", got)
	}
}

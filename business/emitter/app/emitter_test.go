package app

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	crossdomain "github.com/fd1az/arbitrage-bot/business/crossengine/domain"
	mdomain "github.com/fd1az/arbitrage-bot/business/marketdata/domain"
	"github.com/fd1az/arbitrage-bot/business/emitter/domain"
	tridomain "github.com/fd1az/arbitrage-bot/business/triengine/domain"
	"github.com/fd1az/arbitrage-bot/internal/logger"
	"github.com/shopspring/decimal"
)

type fakeNotifier struct {
	mu  sync.Mutex
	got []string
}

func (f *fakeNotifier) Send(ctx context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, text)
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.got)
}

type fakePersistence struct {
	mu   sync.Mutex
	recs []domain.Record
}

func (f *fakePersistence) Append(ctx context.Context, rec domain.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs = append(f.recs, rec)
	return nil
}

func (f *fakePersistence) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.recs)
}

func testConfig() Config {
	return Config{
		QueueSize:       8,
		Cooldown:        time.Minute,
		GraceShutdown:   100 * time.Millisecond,
		RetryAttempts:   1,
		RetryBaseDelay:  time.Millisecond,
		NotifierTimeout: time.Second,
	}
}

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelError, "test", nil)
}

func crossOpp(netBps string) crossdomain.Opportunity {
	return crossdomain.Opportunity{
		Pair:      mdomain.NewPair("BTC", "USDT"),
		BuyVenue:  mdomain.VenueBinance,
		SellVenue: mdomain.VenueOKX,
		Notional:  decimal.RequireFromString("1000"),
		NetBps:    decimal.RequireFromString(netBps),
		TDetected: time.Now(),
	}
}

func triOpp(netBps string) tridomain.Opportunity {
	return tridomain.Opportunity{
		Venue: mdomain.VenueBinance,
		Base:  "BTC",
		Legs: [3]tridomain.Leg{
			{Pair: mdomain.NewPair("BTC", "USDT")},
			{Pair: mdomain.NewPair("BTC", "ETH"), Sell: true},
			{Pair: mdomain.NewPair("ETH", "USDT")},
		},
		NetBps:    decimal.RequireFromString(netBps),
		TDetected: time.Now(),
	}
}

func waitForCount(t *testing.T, get func() int, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if get() >= want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for count >= %d, got %d", want, get())
}

func TestEmitter_SubmitCross_DispatchesToBothSinks(t *testing.T) {
	notifier := &fakeNotifier{}
	persistence := &fakePersistence{}
	e := NewEmitter(notifier, persistence, testConfig(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := e.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer e.Stop()

	if err := e.SubmitCross(ctx, crossOpp("12")); err != nil {
		t.Fatalf("SubmitCross: %v", err)
	}

	waitForCount(t, notifier.count, 1)
	waitForCount(t, persistence.count, 1)
}

func TestEmitter_Cooldown_SuppressesDuplicate(t *testing.T) {
	notifier := &fakeNotifier{}
	persistence := &fakePersistence{}
	e := NewEmitter(notifier, persistence, testConfig(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := e.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer e.Stop()

	first := crossOpp("12")
	second := first
	second.TDetected = first.TDetected.Add(time.Second) // well within the cooldown

	if err := e.SubmitCross(ctx, first); err != nil {
		t.Fatalf("SubmitCross: %v", err)
	}
	if err := e.SubmitCross(ctx, second); err != nil {
		t.Fatalf("SubmitCross: %v", err)
	}

	waitForCount(t, notifier.count, 1)
	time.Sleep(20 * time.Millisecond)
	if got := notifier.count(); got != 1 {
		t.Errorf("expected cooldown to suppress the second submission, got %d notifier sends", got)
	}
}

func TestEmitter_SubmitTri_Dispatches(t *testing.T) {
	notifier := &fakeNotifier{}
	persistence := &fakePersistence{}
	e := NewEmitter(notifier, persistence, testConfig(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := e.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer e.Stop()

	if err := e.SubmitTri(ctx, triOpp("30")); err != nil {
		t.Fatalf("SubmitTri: %v", err)
	}

	waitForCount(t, notifier.count, 1)
	waitForCount(t, persistence.count, 1)
}

func TestEmitter_QueueOverflow_DropsOldest(t *testing.T) {
	notifier := &fakeNotifier{}
	cfg := testConfig()
	cfg.QueueSize = 1
	cfg.Cooldown = 0
	e := NewEmitter(notifier, nil, cfg, testLogger())

	// Fill and overflow the notify channel directly, without starting the
	// dispatch loop, to exercise dropOldestAndPush in isolation.
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		opp := crossOpp("10")
		opp.TDetected = opp.TDetected.Add(time.Duration(i) * time.Hour)
		if err := e.submit(ctx, domain.Submission{Kind: domain.KindCross, Detected: opp.TDetected, NetBps: opp.NetBps, Pair: "BTC/USDT", BuyVenue: "binance", SellVenue: string(rune('A' + i))}); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	if got := e.notifyDropped.Load(); got < 1 {
		t.Errorf("expected at least one dropped submission on overflow, got %d", got)
	}
}

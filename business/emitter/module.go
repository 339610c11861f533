// Package emitter implements the Emitter bounded context (C8): dedup,
// cooldown, and dispatch of detected opportunities to the chat notifier and
// the append-only opportunity log.
package emitter

import (
	"context"
	"fmt"
	"time"

	"github.com/fd1az/arbitrage-bot/business/emitter/app"
	"github.com/fd1az/arbitrage-bot/business/emitter/di"
	"github.com/fd1az/arbitrage-bot/business/emitter/infra/notifier"
	"github.com/fd1az/arbitrage-bot/business/emitter/infra/persistence"
	idi "github.com/fd1az/arbitrage-bot/internal/di"
	"github.com/fd1az/arbitrage-bot/internal/health"
	"github.com/fd1az/arbitrage-bot/internal/httpclient"
	"github.com/fd1az/arbitrage-bot/internal/monolith"
)

const defaultDBPath = "arbiscan-opportunities.db"

// Module wires the emitter context into the monolith. Startup must run
// before the Cross Engine's and Tri Engine's Startup, since those modules
// resolve the di.Emitter token eagerly during their own Startup.
type Module struct {
	emitter *app.Emitter
	store   *persistence.BoltStore
}

// RegisterServices registers the Emitter token against the instance Startup
// will construct; the factory is only invoked once a downstream module
// resolves it, by which point Startup has already run.
func (m *Module) RegisterServices(c idi.Container) error {
	idi.RegisterToken(c, di.Emitter, func(sr idi.ServiceRegistry) *app.Emitter {
		return m.emitter
	})
	return nil
}

// Startup builds the notifier HTTP client, opens the bbolt opportunity log,
// and starts the Emitter's dispatch loops.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	cfg := mono.Config()
	log := mono.Logger()
	sr := mono.Services()

	httpClient, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("telegram-notifier"),
		httpclient.WithRequestTimeout(10*time.Second),
	)
	if err != nil {
		return fmt.Errorf("failed to build notifier http client: %w", err)
	}
	tgNotifier := notifier.NewTelegramNotifier(httpClient, cfg.Notifier.Token, cfg.Notifier.Chat)

	store, err := persistence.Open(defaultDBPath)
	if err != nil {
		return fmt.Errorf("failed to open opportunity store: %w", err)
	}
	m.store = store

	m.emitter = app.NewEmitter(tgNotifier, store, app.Config{
		QueueSize:       1024,
		Cooldown:        cfg.Detection.AlertCooldown(),
		GraceShutdown:   cfg.Detection.GraceShutdown(),
		RetryAttempts:   3,
		RetryBaseDelay:  time.Second,
		NotifierTimeout: 5 * time.Second,
	}, log)

	if err := m.emitter.Start(ctx); err != nil {
		return fmt.Errorf("failed to start emitter: %w", err)
	}

	if healthServer, ok := idi.TryGetToken[*health.Server](sr, "health"); ok {
		healthServer.RegisterCheck("emitter.store", func(ctx context.Context) (bool, string) {
			return true, "open"
		})
	}

	log.Info(ctx, "emitter started", "db_path", defaultDBPath)
	return nil
}

// Stop flushes the Emitter's queues and closes the opportunity store. Called
// directly by cmd/arbitrage during graceful shutdown, since monolith.Module
// carries no Stop hook.
func (m *Module) Stop() error {
	if m.emitter != nil {
		if err := m.emitter.Stop(); err != nil {
			return err
		}
	}
	if m.store != nil {
		return m.store.Close()
	}
	return nil
}

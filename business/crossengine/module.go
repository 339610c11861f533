// Package crossengine implements the Cross Engine bounded context (C6):
// periodic cross-venue spread detection over the Book Store.
package crossengine

import (
	"context"
	"fmt"

	"github.com/fd1az/arbitrage-bot/business/crossengine/app"
	"github.com/fd1az/arbitrage-bot/business/crossengine/di"
	emitterapp "github.com/fd1az/arbitrage-bot/business/emitter/app"
	emitterdi "github.com/fd1az/arbitrage-bot/business/emitter/di"
	marketdata "github.com/fd1az/arbitrage-bot/business/marketdata/app"
	mdi "github.com/fd1az/arbitrage-bot/business/marketdata/di"
	"github.com/fd1az/arbitrage-bot/internal/config"
	idi "github.com/fd1az/arbitrage-bot/internal/di"
	"github.com/fd1az/arbitrage-bot/internal/logger"
	"github.com/fd1az/arbitrage-bot/internal/monolith"
)

// Module wires the cross engine context into the monolith.
type Module struct{}

// RegisterServices registers the Engine as a lazy singleton, wired against
// the Book Store, Fee Table and Emitter tokens registered by other modules.
func (m *Module) RegisterServices(c idi.Container) error {
	idi.RegisterToken(c, di.Engine, func(sr idi.ServiceRegistry) *app.Engine {
		cfg := idi.GetToken[*config.Config](sr, "config")
		store := idi.GetToken[*marketdata.BookStore](sr, mdi.BookStore)
		fees := idi.GetToken[*marketdata.FeeTable](sr, mdi.FeeTable)
		emitter := idi.GetToken[*emitterapp.Emitter](sr, emitterdi.Emitter)
		log := idi.GetToken[logger.LoggerInterface](sr, "logger")

		return app.NewEngine(store, fees, emitter, app.Config{
			ScanInterval: cfg.Detection.CrossScanInterval(),
			MinNotional:  cfg.Detection.MinNotionalDecimal(),
			MinSpreadBps: cfg.Detection.MinSpreadBpsDecimal(),
			MaxStaleness: cfg.Detection.MaxStaleness(),
		}, log)
	})
	return nil
}

// Startup starts the scan loop.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	engine := idi.GetToken[*app.Engine](mono.Services(), di.Engine)
	if err := engine.Start(ctx); err != nil {
		return fmt.Errorf("failed to start cross engine: %w", err)
	}
	return nil
}

// Package triengine implements the Tri Engine bounded context (C7):
// periodic per-venue triangular cycle detection over the Book Store.
package triengine

import (
	"context"
	"fmt"

	emitterapp "github.com/fd1az/arbitrage-bot/business/emitter/app"
	emitterdi "github.com/fd1az/arbitrage-bot/business/emitter/di"
	marketdata "github.com/fd1az/arbitrage-bot/business/marketdata/app"
	mdi "github.com/fd1az/arbitrage-bot/business/marketdata/di"
	"github.com/fd1az/arbitrage-bot/business/triengine/app"
	"github.com/fd1az/arbitrage-bot/business/triengine/di"
	"github.com/fd1az/arbitrage-bot/internal/config"
	idi "github.com/fd1az/arbitrage-bot/internal/di"
	"github.com/fd1az/arbitrage-bot/internal/logger"
	"github.com/fd1az/arbitrage-bot/internal/monolith"
)

// Module wires the tri engine context into the monolith.
type Module struct{}

// RegisterServices registers the Engine as a lazy singleton.
func (m *Module) RegisterServices(c idi.Container) error {
	idi.RegisterToken(c, di.Engine, func(sr idi.ServiceRegistry) *app.Engine {
		cfg := idi.GetToken[*config.Config](sr, "config")
		store := idi.GetToken[*marketdata.BookStore](sr, mdi.BookStore)
		fees := idi.GetToken[*marketdata.FeeTable](sr, mdi.FeeTable)
		emitter := idi.GetToken[*emitterapp.Emitter](sr, emitterdi.Emitter)
		log := idi.GetToken[logger.LoggerInterface](sr, "logger")

		exclude := make(map[string]bool, len(cfg.Detection.TriExcludeQuotes))
		for _, q := range cfg.Detection.TriExcludeQuotes {
			exclude[q] = true
		}

		return app.NewEngine(store, fees, emitter, app.Config{
			ScanInterval:  cfg.Detection.TriScanInterval(),
			MinNotional:   cfg.Detection.MinNotionalDecimal(),
			MinTriGainBps: cfg.Detection.MinTriGainBpsDecimal(),
			MaxStaleness:  cfg.Detection.MaxStaleness(),
			Bases:         cfg.Detection.TriBases,
			ExcludeQuotes: exclude,
			MaxNeighbors:  cfg.Detection.TriMaxNeighbors,
		}, log)
	})
	return nil
}

// Startup starts the scan loop.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	engine := idi.GetToken[*app.Engine](mono.Services(), di.Engine)
	if err := engine.Start(ctx); err != nil {
		return fmt.Errorf("failed to start tri engine: %w", err)
	}
	return nil
}

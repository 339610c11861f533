// Package marketdata implements the marketdata bounded context: the Symbol
// Registry (C1), Fee Table (C2) and Book Store (C3).
package marketdata

import (
	"context"

	"github.com/fd1az/arbitrage-bot/business/marketdata/app"
	"github.com/fd1az/arbitrage-bot/business/marketdata/di"
	"github.com/fd1az/arbitrage-bot/internal/config"
	idi "github.com/fd1az/arbitrage-bot/internal/di"
	"github.com/fd1az/arbitrage-bot/internal/logger"
	"github.com/fd1az/arbitrage-bot/internal/monolith"
)

// Module wires the marketdata context into the monolith.
type Module struct{}

// RegisterServices registers the SymbolRegistry, FeeTable and BookStore.
func (m *Module) RegisterServices(c idi.Container) error {
	idi.RegisterToken(c, di.SymbolRegistry, func(sr idi.ServiceRegistry) *app.SymbolRegistry {
		log := idi.GetToken[logger.LoggerInterface](sr, "logger")
		return app.NewSymbolRegistry(log)
	})

	idi.RegisterToken(c, di.FeeTable, func(sr idi.ServiceRegistry) *app.FeeTable {
		t := app.NewFeeTable()
		app.SeedDefaults(t)
		return t
	})

	idi.RegisterToken(c, di.BookStore, func(sr idi.ServiceRegistry) *app.BookStore {
		cfg := idi.GetToken[*config.Config](sr, "config")
		return app.NewBookStore(cfg.Detection.MaxStaleness())
	})

	return nil
}

// Startup applies configured fee overrides and wires hot-reload of
// FEE_OVERRIDE_* keys into the live FeeTable.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	feeTable := idi.GetToken[*app.FeeTable](mono.Services(), di.FeeTable)
	cfg := mono.Config()

	app.ApplyOverrides(feeTable, cfg.Fees.Overrides)

	cfg.WatchFeeOverrides(func(overrides map[string]string) {
		app.ApplyOverrides(feeTable, overrides)
	})

	return nil
}

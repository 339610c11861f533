// Package clock implements the clock bounded context: a monotonic heartbeat
// and Book Store staleness sweep, repurposed from the blockchain context's
// Ethereum block subscription and gas oracle.
package clock

import (
	"context"
	"fmt"

	"github.com/fd1az/arbitrage-bot/business/clock/app"
	"github.com/fd1az/arbitrage-bot/business/clock/di"
	marketdata "github.com/fd1az/arbitrage-bot/business/marketdata/app"
	mdi "github.com/fd1az/arbitrage-bot/business/marketdata/di"
	"github.com/fd1az/arbitrage-bot/internal/config"
	idi "github.com/fd1az/arbitrage-bot/internal/di"
	"github.com/fd1az/arbitrage-bot/internal/logger"
	"github.com/fd1az/arbitrage-bot/internal/monolith"
)

// Module wires the clock context into the monolith.
type Module struct{}

// RegisterServices registers the Service as a lazy singleton.
func (m *Module) RegisterServices(c idi.Container) error {
	idi.RegisterToken(c, di.Service, func(sr idi.ServiceRegistry) *app.Service {
		cfg := idi.GetToken[*config.Config](sr, "config")
		store := idi.GetToken[*marketdata.BookStore](sr, mdi.BookStore)
		log := idi.GetToken[logger.LoggerInterface](sr, "logger")

		return app.NewService(store, app.Config{
			TickInterval:  cfg.Detection.CoalesceInterval(),
			SweepInterval: cfg.Detection.MaxStaleness(),
		}, log)
	})
	return nil
}

// Startup starts the heartbeat/sweep loop.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	svc := idi.GetToken[*app.Service](mono.Services(), di.Service)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start clock: %w", err)
	}
	return nil
}

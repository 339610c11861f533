// Package connectors implements the per-venue Connector context (C4): the
// shared FSM-driven transport in infra/base, one VenueAdapter per exchange,
// and the live Registry modules downstream read venue status from.
package connectors

import (
	"context"
	"fmt"
	"strings"

	connapp "github.com/fd1az/arbitrage-bot/business/connectors/app"
	condomain "github.com/fd1az/arbitrage-bot/business/connectors/domain"
	"github.com/fd1az/arbitrage-bot/business/connectors/di"
	"github.com/fd1az/arbitrage-bot/business/connectors/infra"
	"github.com/fd1az/arbitrage-bot/business/connectors/infra/base"
	marketdata "github.com/fd1az/arbitrage-bot/business/marketdata/app"
	mdomain "github.com/fd1az/arbitrage-bot/business/marketdata/domain"
	mdi "github.com/fd1az/arbitrage-bot/business/marketdata/di"
	idi "github.com/fd1az/arbitrage-bot/internal/di"
	"github.com/fd1az/arbitrage-bot/internal/health"
	"github.com/fd1az/arbitrage-bot/internal/logger"
	"github.com/fd1az/arbitrage-bot/internal/monolith"
)

// Module wires the connectors context into the monolith.
type Module struct{}

// RegisterServices registers the empty connector Registry; Startup populates it.
func (m *Module) RegisterServices(c idi.Container) error {
	idi.RegisterToken(c, di.Registry, func(sr idi.ServiceRegistry) *connapp.Registry {
		return connapp.NewRegistry()
	})
	return nil
}

// Startup discovers instruments on every allowed venue, filters them against
// the configured symbol universe, subscribes to live depth, and registers a
// health check per venue. A venue that fails discovery is logged and skipped
// rather than failing the whole module: the rest of the fleet keeps running.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	cfg := mono.Config()
	log := mono.Logger()
	sr := mono.Services()

	symbolRegistry := idi.GetToken[*marketdata.SymbolRegistry](sr, mdi.SymbolRegistry)
	bookStore := idi.GetToken[*marketdata.BookStore](sr, mdi.BookStore)
	registry := idi.GetToken[*connapp.Registry](sr, di.Registry)

	universe := parseUniverse(cfg.Detection.SymbolUniverse)

	connCfg := base.Config{
		DepthLevels:      cfg.Detection.DepthLevels,
		CoalesceInterval: cfg.Detection.CoalesceInterval(),
	}

	var healthServer *health.Server
	if hs, ok := idi.TryGetToken[*health.Server](sr, "health"); ok {
		healthServer = hs
	}

	for _, venue := range mdomain.AllVenues {
		if !cfg.Venues.Allowed(string(venue)) {
			continue
		}

		connector, err := infra.NewConnector(venue, symbolRegistry, bookStore, log, connCfg)
		if err != nil {
			log.Error(ctx, "failed to construct connector", "venue", venue, "error", err)
			continue
		}

		markets, err := connector.Discover(ctx)
		if err != nil {
			log.Error(ctx, "venue discovery failed", "venue", venue, "error", err)
			continue
		}

		markets = filterUniverse(markets, universe)
		if len(markets) == 0 {
			log.Warn(ctx, "no tracked markets after universe filter", "venue", venue)
			continue
		}

		if err := connector.Subscribe(ctx, markets); err != nil {
			log.Error(ctx, "venue subscribe failed", "venue", venue, "error", err)
			continue
		}

		registry.Add(connector)
		log.Info(ctx, "connector streaming", "venue", venue, "markets", len(markets))

		if healthServer != nil {
			healthServer.RegisterCheck(fmt.Sprintf("connector.%s", venue), connectorCheck(connector))
		}
	}

	return nil
}

// connectorCheck reports a Connector healthy while streaming or degraded
// (still publishing via REST resync); any other state fails the check.
func connectorCheck(c connapp.Connector) health.CheckFunc {
	return func(ctx context.Context) (bool, string) {
		st := c.Status()
		switch st.State {
		case condomain.StateStreaming, condomain.StateDegraded:
			return true, string(st.State)
		default:
			return false, string(st.State)
		}
	}
}

// parseUniverse turns the configured "BASE/QUOTE" strings into a canonical
// Pair set. An empty universe means "track everything a venue discovers".
func parseUniverse(raw []string) map[mdomain.Pair]struct{} {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[mdomain.Pair]struct{}, len(raw))
	for _, s := range raw {
		parts := strings.SplitN(s, "/", 2)
		if len(parts) != 2 {
			continue
		}
		out[mdomain.NewPair(parts[0], parts[1])] = struct{}{}
	}
	return out
}

// filterUniverse restricts markets to the configured universe. A nil
// universe (unset SYMBOL_UNIVERSE) passes every discovered market through.
func filterUniverse(markets []mdomain.Market, universe map[mdomain.Pair]struct{}) []mdomain.Market {
	if universe == nil {
		return markets
	}
	out := make([]mdomain.Market, 0, len(markets))
	for _, mkt := range markets {
		if _, ok := universe[mkt.Pair]; ok {
			out = append(out, mkt)
		}
	}
	return out
}

package app

import (
	"context"

	"github.com/fd1az/arbitrage-bot/business/clock/domain"
)

// TickSource is the heartbeat subscription port, repurposed from the
// blockchain context's BlockSubscriber: instead of pushing new blocks it
// pushes a monotonic tick every TickInterval to each subscriber. The engines
// run their own scan tickers and Connectors stamp ts_local themselves; neither
// subscribes here.
type TickSource interface {
	// Subscribe starts the heartbeat and returns a channel of ticks.
	Subscribe(ctx context.Context) (<-chan domain.Tick, error)

	// State returns the current run state.
	State() domain.ConnectionState
}

// StalenessSweeper is the periodic-refresh port, repurposed from the
// blockchain context's GasOracle: instead of refreshing a gas price it
// sweeps the Book Store for markets whose newest snapshot has aged past
// MAX_STALENESS_MS.
type StalenessSweeper interface {
	Sweep(ctx context.Context) domain.SweepReport
}

package app

import (
	"context"

	"github.com/fd1az/arbitrage-bot/business/triengine/domain"
)

// Sink is the Tri Engine's outbound port, mirrored from crossengine's Sink
// so each engine owns the contract it needs independent of how Emitter
// implements delivery.
type Sink interface {
	SubmitTri(ctx context.Context, opp domain.Opportunity) error
}

package app

import (
	"context"

	"github.com/fd1az/arbitrage-bot/business/crossengine/domain"
)

// Sink is the Cross Engine's outbound port: every qualifying opportunity is
// handed to Sink rather than dispatched directly, mirroring the Reporter
// shape the CEX/DEX detector used to decouple detection from delivery.
type Sink interface {
	SubmitCross(ctx context.Context, opp domain.Opportunity) error
}

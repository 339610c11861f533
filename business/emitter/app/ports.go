package app

import (
	"context"

	"github.com/fd1az/arbitrage-bot/business/emitter/domain"
)

// Notifier is the chat-bot transport outbound port (spec.md §6):
// send(text) -> ok|error.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// PersistenceSink is the append-only opportunity log outbound port
// (spec.md §6): durability is best-effort, loss on crash acceptable.
type PersistenceSink interface {
	Append(ctx context.Context, rec domain.Record) error
}

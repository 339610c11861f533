// Package app defines the Connector capability contract (C4): the fixed set
// of operations every venue implementation exposes, selected by a tagged
// factory keyed on venue id (spec.md §9, "Dynamic exchange dispatch").
package app

import (
	"context"
	"time"

	"github.com/fd1az/arbitrage-bot/business/connectors/domain"
	marketdata "github.com/fd1az/arbitrage-bot/business/marketdata/app"
	mdomain "github.com/fd1az/arbitrage-bot/business/marketdata/domain"
)

// Connector is the capability contract every venue implementation
// satisfies: discover markets, subscribe/unsubscribe to depth streams for a
// working set, and shut down cleanly.
type Connector interface {
	Venue() mdomain.VenueID

	// Discover loads the venue's public instrument list (C1 feeds off this)
	// and returns the canonicalized Markets it offers.
	Discover(ctx context.Context) ([]mdomain.Market, error)

	// Subscribe opens (or re-uses) the transport and starts streaming depth
	// for markets. Received updates are coalesced and written to the shared
	// BookStore; Subscribe returns once the initial subscription request has
	// been sent, not once the first snapshot arrives.
	Subscribe(ctx context.Context, markets []mdomain.Market) error

	// Unsubscribe stops streaming the given markets without tearing down the
	// transport.
	Unsubscribe(ctx context.Context, markets []mdomain.Market) error

	// Shutdown closes the transport and stops all background work.
	Shutdown(ctx context.Context) error

	// Status reports the Connector's current FSM state and basic health
	// counters.
	Status() domain.Status
}

// DepthUpdate is one venue message translated into canonical units: a full
// or partial view of one market's book, ready to be merged into a shadow
// book and coalesce-published.
type DepthUpdate struct {
	NativeSymbol string
	Bids         []mdomain.Level
	Asks         []mdomain.Level
	FullSnapshot bool // true if Bids/Asks replace the whole side, not a delta
	Seq          int64
	TsExchange   time.Time
}

// VenueAdapter is what distinguishes one venue's Connector from another: the
// wire formats, endpoints and symbol conventions. infra/base.BaseConnector
// supplies the shared FSM, coalescing, transport and REST-resync machinery
// and drives a VenueAdapter to do the venue-specific parsing.
type VenueAdapter interface {
	Venue() mdomain.VenueID

	// RESTBaseURL and WSBaseURL are the venue's public API roots.
	RESTBaseURL() string
	WSBaseURL() string

	// FetchInstruments retrieves and parses the venue's public instrument
	// list. Implements marketdata/app.InstrumentSource.
	FetchInstruments(ctx context.Context) ([]marketdata.RawInstrument, error)

	// StreamURL builds the (possibly combined) WebSocket URL to subscribe to
	// depth updates for the given native symbols at depthLevels per side.
	StreamURL(nativeSymbols []string, depthLevels int) (string, error)

	// SubscribeMessage optionally returns a message to send after connecting
	// (for venues that subscribe via a post-connect frame rather than a
	// query string). Returns nil if the URL alone suffices.
	SubscribeMessage(nativeSymbols []string, depthLevels int) ([]byte, error)

	// ParseMessage decodes one inbound WebSocket frame into zero or more
	// DepthUpdates (zero for control/heartbeat frames).
	ParseMessage(raw []byte) ([]DepthUpdate, error)

	// FetchSnapshot performs a REST depth-snapshot fetch for resync after a
	// sequence gap.
	FetchSnapshot(ctx context.Context, nativeSymbol string, depthLevels int) (DepthUpdate, error)
}

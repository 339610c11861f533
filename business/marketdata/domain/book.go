package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Level is a single price/size point in an order book side.
type Level struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// BookSnapshot is an immutable point-in-time view of both sides of a
// market's order book depth, published atomically by a Connector.
type BookSnapshot struct {
	Venue     VenueID
	Pair      Pair
	Bids      []Level // descending by price
	Asks      []Level // ascending by price
	TsExchange time.Time // zero if the venue doesn't supply one
	TsLocal   time.Time // when the Connector committed this snapshot
	Seq       int64     // <=0 means "venue has no sequence numbers"
}

// Key returns the (venue, pair) identity this snapshot belongs to.
func (b *BookSnapshot) Key() MarketKey {
	return MarketKey{Venue: b.Venue, Pair: b.Pair}
}

// BestBid returns the highest bid level, or the zero Level if there are none.
func (b *BookSnapshot) BestBid() (Level, bool) {
	if len(b.Bids) == 0 {
		return Level{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the lowest ask level, or the zero Level if there are none.
func (b *BookSnapshot) BestAsk() (Level, bool) {
	if len(b.Asks) == 0 {
		return Level{}, false
	}
	return b.Asks[0], true
}

// IsStale reports whether this snapshot's TsLocal is older than maxAge as of now.
func (b *BookSnapshot) IsStale(now time.Time, maxAge time.Duration) bool {
	if b == nil {
		return true
	}
	return now.Sub(b.TsLocal) > maxAge
}

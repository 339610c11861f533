package domain

import "github.com/shopspring/decimal"

// Market is a record of one (venue, pair), immutable after first discovery.
type Market struct {
	Venue          VenueID
	Pair           Pair
	NativeSymbol   string
	PricePrecision int32
	SizePrecision  int32
	MinNotional    decimal.Decimal
}

// Key returns the (venue, pair) identity used as a map key throughout the
// marketdata and connector packages.
func (m Market) Key() MarketKey {
	return MarketKey{Venue: m.Venue, Pair: m.Pair}
}

// MarketKey identifies a market by venue and canonical pair.
type MarketKey struct {
	Venue VenueID
	Pair  Pair
}

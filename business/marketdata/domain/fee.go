package domain

import "github.com/shopspring/decimal"

// FeeEntry is a maker/taker fee rate for a venue, optionally scoped to one pair.
// A nil Pair means "venue default"; it matches every pair not covered by a
// more specific entry.
type FeeEntry struct {
	Venue  VenueID
	Pair   *Pair
	Maker  decimal.Decimal
	Taker  decimal.Decimal
}

// Key returns the lookup key: (venue, pair-string-or-empty-for-default).
func (f FeeEntry) Key() string {
	if f.Pair == nil {
		return string(f.Venue)
	}
	return string(f.Venue) + ":" + f.Pair.String()
}

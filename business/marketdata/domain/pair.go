// Package domain contains the core domain types for the marketdata context:
// venues, canonical pairs, markets, book snapshots and fee entries.
package domain

import "strings"

// VenueID is a short lowercase identifier drawn from a closed set.
type VenueID string

const (
	VenueBinance VenueID = "binance"
	VenueBybit   VenueID = "bybit"
	VenueOKX     VenueID = "okx"
	VenueKucoin  VenueID = "kucoin"
	VenueMEXC    VenueID = "mexc"
	VenueHuobi   VenueID = "huobi"
	VenueCointr  VenueID = "cointr"
)

// AllVenues is the closed set of supported venue ids, in a stable order.
var AllVenues = []VenueID{VenueBinance, VenueBybit, VenueOKX, VenueKucoin, VenueMEXC, VenueHuobi, VenueCointr}

// IsValidVenue reports whether id is a member of the closed venue set.
func IsValidVenue(id VenueID) bool {
	for _, v := range AllVenues {
		if v == id {
			return true
		}
	}
	return false
}

// Pair is a canonical trading pair: uppercase base and quote asset codes.
type Pair struct {
	Base  string
	Quote string
}

// NewPair builds a canonical Pair, upper-casing both legs.
func NewPair(base, quote string) Pair {
	return Pair{Base: strings.ToUpper(base), Quote: strings.ToUpper(quote)}
}

// String renders the canonical form "BASE/QUOTE".
func (p Pair) String() string {
	return p.Base + "/" + p.Quote
}

// Invert swaps base and quote.
func (p Pair) Invert() Pair {
	return Pair{Base: p.Quote, Quote: p.Base}
}

// IsZero reports whether the pair is the zero value.
func (p Pair) IsZero() bool {
	return p.Base == "" && p.Quote == ""
}

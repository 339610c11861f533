package domain

import "errors"

// ErrUnresolvableSymbol is returned by the Symbol Registry when a venue's
// native symbol cannot be canonicalized by any known quote suffix.
var ErrUnresolvableSymbol = errors.New("marketdata: unresolvable native symbol")

// ErrUnknownPair is returned when a (venue, pair) has no registered Market.
var ErrUnknownPair = errors.New("marketdata: pair not known for venue")

// ErrNoFeeEntry is returned when neither a per-pair nor a venue-default fee
// entry exists for a lookup.
var ErrNoFeeEntry = errors.New("marketdata: no fee entry for venue")

// ErrBookAbsent is returned by the Book Store when no snapshot exists, or
// the existing one is older than MAX_STALENESS_MS.
var ErrBookAbsent = errors.New("marketdata: book absent or stale")

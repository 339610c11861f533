package app

import (
	"sync"

	"github.com/fd1az/arbitrage-bot/business/marketdata/domain"
	"github.com/fd1az/arbitrage-bot/internal/apperror"
	"github.com/shopspring/decimal"
)

// Fee is a resolved maker/taker rate pair.
type Fee struct {
	Maker decimal.Decimal
	Taker decimal.Decimal
}

// FeeTable resolves (venue, pair) to a maker/taker fee, preferring a
// per-pair override over the venue default. Lookup order: (venue, pair)
// override -> (venue) default -> fail.
type FeeTable struct {
	mu       sync.RWMutex
	byVenue  map[domain.VenueID]Fee
	byPair   map[domain.MarketKey]Fee
}

// NewFeeTable creates an empty FeeTable.
func NewFeeTable() *FeeTable {
	return &FeeTable{
		byVenue: make(map[domain.VenueID]Fee),
		byPair:  make(map[domain.MarketKey]Fee),
	}
}

// SetVenueDefault sets the venue-wide default maker/taker fee.
func (t *FeeTable) SetVenueDefault(venue domain.VenueID, maker, taker decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byVenue[venue] = Fee{Maker: maker, Taker: taker}
}

// SetPairOverride sets a (venue, pair)-specific fee, overriding the venue default.
func (t *FeeTable) SetPairOverride(venue domain.VenueID, pair domain.Pair, maker, taker decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byPair[domain.MarketKey{Venue: venue, Pair: pair}] = Fee{Maker: maker, Taker: taker}
}

// Lookup resolves the fee for (venue, pair): pair override first, venue
// default second, error if neither is configured.
func (t *FeeTable) Lookup(venue domain.VenueID, pair domain.Pair) (Fee, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if f, ok := t.byPair[domain.MarketKey{Venue: venue, Pair: pair}]; ok {
		return f, nil
	}
	if f, ok := t.byVenue[venue]; ok {
		return f, nil
	}
	return Fee{}, apperror.New(apperror.CodeFeeMissing,
		apperror.WithContext(string(venue)+" "+pair.String()),
		apperror.WithCause(domain.ErrNoFeeEntry))
}

// Taker is a convenience wrapper for the common case: this system charges
// taker fees for every leg (spec.md glossary).
func (t *FeeTable) Taker(venue domain.VenueID, pair domain.Pair) (decimal.Decimal, error) {
	f, err := t.Lookup(venue, pair)
	if err != nil {
		return decimal.Zero, err
	}
	return f.Taker, nil
}

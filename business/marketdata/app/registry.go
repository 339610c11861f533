// Package app contains the marketdata application services: the Symbol
// Registry (C1), Fee Table (C2) and Book Store (C3).
package app

import (
	"context"
	"strings"
	"sync"

	"github.com/fd1az/arbitrage-bot/business/marketdata/domain"
	"github.com/fd1az/arbitrage-bot/internal/apperror"
	"github.com/fd1az/arbitrage-bot/internal/logger"
	"github.com/shopspring/decimal"
)

// quoteSuffixes is the longest-first ordered list of known quote asset
// suffixes used to split a venue-native symbol into base/quote. Longest
// match wins so "USDT" is preferred over "USD" etc.
var quoteSuffixes = []string{"USDT", "USDC", "BUSD", "TUSD", "DAI", "BTC", "ETH", "USD"}

func init() {
	// Keep the list sorted longest-first regardless of edits above.
	for i := 1; i < len(quoteSuffixes); i++ {
		for j := i; j > 0 && len(quoteSuffixes[j]) > len(quoteSuffixes[j-1]); j-- {
			quoteSuffixes[j], quoteSuffixes[j-1] = quoteSuffixes[j-1], quoteSuffixes[j]
		}
	}
}

// assetAlias maps a venue-local spelling to the canonical asset code.
var assetAlias = map[string]string{
	"XBT": "BTC",
}

// InstrumentSource discovers the instruments/markets published by a venue.
// Each venue Connector (or its REST client) implements this.
type InstrumentSource interface {
	// FetchInstruments returns the raw (native symbol, precision, min
	// notional) tuples the venue currently lists.
	FetchInstruments(ctx context.Context) ([]RawInstrument, error)
}

// RawInstrument is what a venue's instruments endpoint hands back, before
// canonicalization.
type RawInstrument struct {
	NativeSymbol   string
	PricePrecision int32
	SizePrecision  int32
	MinNotional    string // decimal string, parsed by the caller
}

// SymbolRegistry canonicalizes venue-native symbols to (base, quote) pairs
// and back, and tracks the Market set discovered per venue.
type SymbolRegistry struct {
	mu       sync.RWMutex
	byKey    map[domain.MarketKey]domain.Market
	native   map[nativeKey]domain.Pair // (venue, native) -> pair, for round-trip checks
	skipped  map[string]bool          // "venue:symbol" already logged as unresolvable
	log      logger.LoggerInterface
}

type nativeKey struct {
	venue domain.VenueID
	sym   string
}

// NewSymbolRegistry creates an empty registry.
func NewSymbolRegistry(log logger.LoggerInterface) *SymbolRegistry {
	return &SymbolRegistry{
		byKey:   make(map[domain.MarketKey]domain.Market),
		native:  make(map[nativeKey]domain.Pair),
		skipped: make(map[string]bool),
		log:     log,
	}
}

// Canonicalize splits a venue-native symbol into a canonical Pair using
// longest-quote-suffix matching, applying known per-venue asset aliases.
func (r *SymbolRegistry) Canonicalize(venue domain.VenueID, native string) (domain.Pair, error) {
	sym := strings.ToUpper(native)
	for _, q := range quoteSuffixes {
		if len(sym) > len(q) && strings.HasSuffix(sym, q) {
			base := sym[:len(sym)-len(q)]
			if alias, ok := assetAlias[base]; ok {
				base = alias
			}
			quote := q
			if alias, ok := assetAlias[quote]; ok {
				quote = alias
			}
			if base == "" {
				continue
			}
			return domain.NewPair(base, quote), nil
		}
	}
	key := string(venue) + ":" + native
	r.mu.Lock()
	alreadyLogged := r.skipped[key]
	r.skipped[key] = true
	r.mu.Unlock()
	if !alreadyLogged && r.log != nil {
		r.log.Warn(context.Background(), "unresolvable native symbol, skipping",
			"venue", venue, "symbol", native)
	}
	return domain.Pair{}, apperror.New(apperror.CodeSymbolUnresolved,
		apperror.WithContext(key), apperror.WithCause(domain.ErrUnresolvableSymbol))
}

// Native returns the native symbol previously registered for (venue, pair),
// if the venue has been loaded and the pair is known.
func (r *SymbolRegistry) Native(venue domain.VenueID, pair domain.Pair) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byKey[domain.MarketKey{Venue: venue, Pair: pair}]
	if !ok {
		return "", false
	}
	return m.NativeSymbol, true
}

// Load replaces the Market set for venue with markets derived from raw,
// canonicalizing each native symbol and skipping ones that don't resolve.
func (r *SymbolRegistry) Load(venue domain.VenueID, raw []RawInstrument) []domain.Market {
	markets := make([]domain.Market, 0, len(raw))
	for _, ri := range raw {
		pair, err := r.Canonicalize(venue, ri.NativeSymbol)
		if err != nil {
			continue
		}
		minNotional, _ := decimal.NewFromString(ri.MinNotional)
		markets = append(markets, domain.Market{
			Venue:          venue,
			Pair:           pair,
			NativeSymbol:   ri.NativeSymbol,
			PricePrecision: ri.PricePrecision,
			SizePrecision:  ri.SizePrecision,
			MinNotional:    minNotional,
		})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range markets {
		r.byKey[m.Key()] = m
		r.native[nativeKey{venue: venue, sym: m.NativeSymbol}] = m.Pair
	}
	return markets
}

// Markets returns every Market known for venue.
func (r *SymbolRegistry) Markets(venue domain.VenueID) []domain.Market {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Market, 0)
	for _, m := range r.byKey {
		if m.Venue == venue {
			out = append(out, m)
		}
	}
	return out
}

// Get returns the Market registered for (venue, pair).
func (r *SymbolRegistry) Get(venue domain.VenueID, pair domain.Pair) (domain.Market, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byKey[domain.MarketKey{Venue: venue, Pair: pair}]
	return m, ok
}

// VenuesFor returns every venue with a registered Market for pair.
func (r *SymbolRegistry) VenuesFor(pair domain.Pair) []domain.VenueID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[domain.VenueID]bool)
	out := make([]domain.VenueID, 0)
	for k := range r.byKey {
		if k.Pair == pair && !seen[k.Venue] {
			seen[k.Venue] = true
			out = append(out, k.Venue)
		}
	}
	return out
}

package app

import (
	"strings"

	"github.com/fd1az/arbitrage-bot/business/marketdata/domain"
	"github.com/shopspring/decimal"
)

// defaultFee (maker and taker) is applied to every venue before overrides are parsed, so
// engines never fail to score a market just because no FEE_OVERRIDE_* was
// ever set for it.
var defaultFee = Fee{Maker: decimal.NewFromFloat(0.001), Taker: decimal.NewFromFloat(0.001)}

// SeedDefaults installs defaultFee as the venue default for every known
// venue, giving the Fee Table a baseline that ApplyOverrides can then refine.
func SeedDefaults(t *FeeTable) {
	for _, v := range domain.AllVenues {
		t.SetVenueDefault(v, defaultFee.Maker, defaultFee.Taker)
	}
}

// ApplyOverrides parses FEE_OVERRIDE_<VENUE>_(MAKER|TAKER) and
// FEE_OVERRIDE_<VENUE>_<BASE>-<QUOTE>_(MAKER|TAKER) keys (as surfaced by
// config.Config.Fees.Overrides, upper-cased) and installs them into t.
// Malformed or unrecognized keys are ignored; this mirrors the registry's
// "skip and keep going" posture for untrusted external input.
func ApplyOverrides(t *FeeTable, overrides map[string]string) {
	for key, raw := range overrides {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			continue
		}
		rest := strings.TrimPrefix(key, "FEE_OVERRIDE_")
		if rest == key {
			continue
		}

		var kind string
		switch {
		case strings.HasSuffix(rest, "_MAKER"):
			kind = "MAKER"
			rest = strings.TrimSuffix(rest, "_MAKER")
		case strings.HasSuffix(rest, "_TAKER"):
			kind = "TAKER"
			rest = strings.TrimSuffix(rest, "_TAKER")
		default:
			continue
		}

		parts := strings.SplitN(rest, "_", 2)
		venue := domain.VenueID(strings.ToLower(parts[0]))
		if !domain.IsValidVenue(venue) {
			continue
		}

		if len(parts) == 1 {
			applyRate(t, venue, domain.Pair{}, kind, rate)
			continue
		}

		baseQuote := strings.SplitN(parts[1], "-", 2)
		if len(baseQuote) != 2 {
			continue
		}
		pair := domain.NewPair(baseQuote[0], baseQuote[1])
		applyRate(t, venue, pair, kind, rate)
	}
}

func applyRate(t *FeeTable, venue domain.VenueID, pair domain.Pair, kind string, rate decimal.Decimal) {
	if pair.IsZero() {
		existing, err := t.Lookup(venue, domain.Pair{})
		if err != nil {
			existing = defaultFee
		}
		maker, taker := existing.Maker, existing.Taker
		if kind == "MAKER" {
			maker = rate
		} else {
			taker = rate
		}
		t.SetVenueDefault(venue, maker, taker)
		return
	}

	existing, err := t.Lookup(venue, pair)
	if err != nil {
		existing = defaultFee
	}
	maker, taker := existing.Maker, existing.Taker
	if kind == "MAKER" {
		maker = rate
	} else {
		taker = rate
	}
	t.SetPairOverride(venue, pair, maker, taker)
}

package base

import (
	"sort"

	mdomain "github.com/fd1az/arbitrage-bot/business/marketdata/domain"
)

// shadowBook is the per-market working copy a Connector mutates as deltas
// arrive, before it is coalesce-published to the shared BookStore.
type shadowBook struct {
	bids map[string]mdomain.Level
	asks map[string]mdomain.Level
	seq  int64
}

func newShadowBook() *shadowBook {
	return &shadowBook{
		bids: make(map[string]mdomain.Level),
		asks: make(map[string]mdomain.Level),
	}
}

// apply merges bids/asks deltas into the shadow book. A zero-size level
// deletes the price point, matching the teacher's depth-merge convention.
// full replaces the relevant side wholesale instead of merging (used for
// REST snapshot resync and for venues that only ever publish full books).
func (sb *shadowBook) apply(bids, asks []mdomain.Level, full bool, seq int64) {
	if full {
		sb.bids = make(map[string]mdomain.Level, len(bids))
		sb.asks = make(map[string]mdomain.Level, len(asks))
	}
	mergeSide(sb.bids, bids)
	mergeSide(sb.asks, asks)
	if seq > 0 {
		sb.seq = seq
	}
}

func mergeSide(side map[string]mdomain.Level, updates []mdomain.Level) {
	for _, lvl := range updates {
		key := lvl.Price.String()
		if lvl.Size.IsZero() {
			delete(side, key)
			continue
		}
		side[key] = lvl
	}
}

// snapshot renders the shadow book's current state as ordered, depth-capped
// slices: bids descending, asks ascending.
func (sb *shadowBook) snapshot(maxDepth int) (bids, asks []mdomain.Level) {
	bids = toSortedLevels(sb.bids, true, maxDepth)
	asks = toSortedLevels(sb.asks, false, maxDepth)
	return bids, asks
}

func toSortedLevels(side map[string]mdomain.Level, descending bool, maxDepth int) []mdomain.Level {
	out := make([]mdomain.Level, 0, len(side))
	for _, lvl := range side {
		out = append(out, lvl)
	}
	if descending {
		sort.Slice(out, func(i, j int) bool { return out[i].Price.GreaterThan(out[j].Price) })
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	}
	if len(out) > maxDepth {
		out = out[:maxDepth]
	}
	return out
}

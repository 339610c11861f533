// Package domain holds the Emitter's (C8) dedup/cooldown types: the
// venue-agnostic Submission handed in by either engine, and the persisted
// Record shape.
package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind distinguishes a cross-venue spread from a triangular cycle.
type Kind string

const (
	KindCross Kind = "cross"
	KindTri   Kind = "tri"
)

// dedupBucketWidth is the `w` in spec.md §4.8's bucket(x, w) = floor(x/w)*w.
var dedupBucketWidth = decimal.NewFromInt(5)

// Bucket implements spec.md §4.8's bucket(x, w) = floor(x / w) * w.
func Bucket(x, w decimal.Decimal) decimal.Decimal {
	return x.Div(w).Floor().Mul(w)
}

// Submission is what Cross Engine and Tri Engine hand to the Emitter: enough
// fields to build a dedup key and a human-readable notifier message without
// the Emitter knowing either engine's opportunity type.
type Submission struct {
	Kind     Kind
	Detected time.Time
	NetBps   decimal.Decimal
	Summary  string
	Payload  any

	// cross-specific
	Pair      string
	BuyVenue  string
	SellVenue string

	// tri-specific
	Venue    string
	Base     string
	LegPairs []string
}

// DedupKey builds the composite dedup key per spec.md §4.8:
// cross -> (pair, buy_venue, sell_venue, bucket(net_bps,5));
// tri   -> (venue, leg_pairs_sorted, base, bucket(net_bps,5)).
func (s Submission) DedupKey() string {
	bucket := Bucket(s.NetBps, dedupBucketWidth)
	switch s.Kind {
	case KindCross:
		return fmt.Sprintf("cross|%s|%s|%s|%s", s.Pair, s.BuyVenue, s.SellVenue, bucket.String())
	case KindTri:
		legs := append([]string(nil), s.LegPairs...)
		sort.Strings(legs)
		return fmt.Sprintf("tri|%s|%s|%s|%s", s.Venue, strings.Join(legs, ","), s.Base, bucket.String())
	default:
		return fmt.Sprintf("%s|%s", s.Kind, bucket.String())
	}
}

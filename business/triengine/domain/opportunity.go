// Package domain holds the Tri Engine's (C7) market graph and opportunity
// type.
package domain

import (
	"time"

	mdomain "github.com/fd1az/arbitrage-bot/business/marketdata/domain"
	"github.com/shopspring/decimal"
)

// Leg is one trade in a triangular cycle: which pair, and which side of it.
type Leg struct {
	Pair mdomain.Pair
	Sell bool // true: sell Pair.Base at the bid. false: buy Pair.Base at the ask.
}

// Opportunity is a detected 3-leg cycle on a single venue that returns to
// Base at a net gain.
type Opportunity struct {
	Venue     mdomain.VenueID
	Base      string
	Legs      [3]Leg
	GrossBps  decimal.Decimal
	NetBps    decimal.Decimal
	TDetected time.Time
}

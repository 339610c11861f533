// Package domain holds the Cross Engine's (C6) opportunity type.
package domain

import (
	"time"

	mdomain "github.com/fd1az/arbitrage-bot/business/marketdata/domain"
	"github.com/shopspring/decimal"
)

// Opportunity is a detected cross-venue spread: the same pair buyable on
// BuyVenue and simultaneously sellable for more on SellVenue.
type Opportunity struct {
	Pair             mdomain.Pair
	BuyVenue         mdomain.VenueID
	SellVenue        mdomain.VenueID
	Notional         decimal.Decimal
	GrossBps         decimal.Decimal
	NetBps           decimal.Decimal
	BuyVWAP          decimal.Decimal
	SellVWAP         decimal.Decimal
	FillableNotional decimal.Decimal
	TDetected        time.Time
}

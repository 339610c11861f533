// Package app implements the Depth/VWAP component (C5): a pure cost model
// over one side of an order book.
package app

import (
	"github.com/fd1az/arbitrage-bot/business/marketdata/domain"
	"github.com/shopspring/decimal"
)

// VWAPResult is the outcome of walking a book side to fill a target notional.
type VWAPResult struct {
	VWAP             decimal.Decimal // filled_notional / filled_qty
	FilledQty        decimal.Decimal
	FilledNotional   decimal.Decimal
	FillableNotional decimal.Decimal // min(filled_notional, target notional)
}

// VWAP walks levels (assumed already ordered nearest-to-touch first, as
// every domain.BookSnapshot side is) accumulating filled quantity and
// notional until the target notional is reached or the side is exhausted.
// It reports false ("unfillable") if the side cannot fill notional at all,
// i.e. the accumulated notional never reaches the target.
func VWAP(levels []domain.Level, notional decimal.Decimal) (VWAPResult, bool) {
	filledQty := decimal.Zero
	filledNotional := decimal.Zero

	for _, lvl := range levels {
		if filledNotional.GreaterThanOrEqual(notional) {
			break
		}
		levelNotional := lvl.Price.Mul(lvl.Size)
		remaining := notional.Sub(filledNotional)

		if levelNotional.LessThanOrEqual(remaining) {
			filledQty = filledQty.Add(lvl.Size)
			filledNotional = filledNotional.Add(levelNotional)
			continue
		}

		// Partial fill of this level: take only the size needed to reach
		// notional.
		partialQty := remaining.Div(lvl.Price)
		filledQty = filledQty.Add(partialQty)
		filledNotional = filledNotional.Add(remaining)
	}

	if filledNotional.LessThan(notional) || filledQty.IsZero() {
		return VWAPResult{}, false
	}

	return VWAPResult{
		VWAP:             filledNotional.Div(filledQty),
		FilledQty:        filledQty,
		FilledNotional:   filledNotional,
		FillableNotional: decimal.Min(filledNotional, notional),
	}, true
}

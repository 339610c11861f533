package app

import (
	"testing"

	"github.com/fd1az/arbitrage-bot/business/marketdata/domain"
	"github.com/shopspring/decimal"
)

func lvl(price, size float64) domain.Level {
	return domain.Level{Price: decimal.NewFromFloat(price), Size: decimal.NewFromFloat(size)}
}

func TestVWAP_SingleLevelFill(t *testing.T) {
	levels := []domain.Level{lvl(30000, 1)}
	res, ok := VWAP(levels, decimal.NewFromInt(100))
	if !ok {
		t.Fatalf("expected fillable")
	}
	// 100/30000 is inexact at decimal.DivisionPrecision (16 places), so the
	// VWAP carries a residue far below 1e-10; compare at 10 places.
	if !res.VWAP.Round(10).Equal(decimal.NewFromInt(30000)) {
		t.Errorf("vwap = %s, want 30000", res.VWAP)
	}
}

func TestVWAP_PartialLevelFill(t *testing.T) {
	levels := []domain.Level{lvl(100, 1), lvl(110, 2)}
	// target notional 150 -> fully fills level 1 (100), then 50/110 of level 2
	res, ok := VWAP(levels, decimal.NewFromInt(150))
	if !ok {
		t.Fatalf("expected fillable")
	}
	if !res.FilledNotional.Equal(decimal.NewFromInt(150)) {
		t.Errorf("filled_notional = %s, want 150", res.FilledNotional)
	}
	wantQty := decimal.NewFromInt(1).Add(decimal.NewFromInt(50).Div(decimal.NewFromInt(110)))
	if !res.FilledQty.Equal(wantQty) {
		t.Errorf("filled_qty = %s, want %s", res.FilledQty, wantQty)
	}
}

func TestVWAP_Unfillable(t *testing.T) {
	levels := []domain.Level{lvl(100, 1)}
	_, ok := VWAP(levels, decimal.NewFromInt(1000))
	if ok {
		t.Fatalf("expected unfillable")
	}
}

func TestVWAP_EmptyBook(t *testing.T) {
	_, ok := VWAP(nil, decimal.NewFromInt(100))
	if ok {
		t.Fatalf("expected unfillable on empty book")
	}
}

func TestVWAP_BoundsWithinTouch(t *testing.T) {
	// Property 2: vwap must lie within [first.price, last.price] for asks.
	levels := []domain.Level{lvl(100, 1), lvl(105, 1), lvl(110, 1)}
	res, ok := VWAP(levels, decimal.NewFromInt(300))
	if !ok {
		t.Fatalf("expected fillable")
	}
	if res.VWAP.LessThan(levels[0].Price) || res.VWAP.GreaterThan(levels[len(levels)-1].Price) {
		t.Errorf("vwap %s out of bounds [%s, %s]", res.VWAP, levels[0].Price, levels[len(levels)-1].Price)
	}
}

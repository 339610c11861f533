package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestBucket(t *testing.T) {
	tests := []struct {
		name string
		x, w string
		want string
	}{
		{"exact multiple", "10", "5", "10"},
		{"rounds down", "12", "5", "10"},
		{"below width", "3", "5", "0"},
		{"negative rounds toward -inf", "-3", "5", "-5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := decimal.RequireFromString(tt.x)
			w := decimal.RequireFromString(tt.w)
			got := Bucket(x, w)
			want := decimal.RequireFromString(tt.want)
			if !got.Equal(want) {
				t.Errorf("Bucket(%s, %s) = %s, want %s", tt.x, tt.w, got, want)
			}
		})
	}
}

func TestSubmission_DedupKey_Cross(t *testing.T) {
	s1 := Submission{Kind: KindCross, Pair: "BTC-USDT", BuyVenue: "binance", SellVenue: "okx", NetBps: decimal.RequireFromString("12")}
	s2 := Submission{Kind: KindCross, Pair: "BTC-USDT", BuyVenue: "binance", SellVenue: "okx", NetBps: decimal.RequireFromString("14")}
	if s1.DedupKey() != s2.DedupKey() {
		t.Errorf("expected same bucket to dedup key equally: %q vs %q", s1.DedupKey(), s2.DedupKey())
	}

	s3 := Submission{Kind: KindCross, Pair: "BTC-USDT", BuyVenue: "binance", SellVenue: "okx", NetBps: decimal.RequireFromString("20")}
	if s1.DedupKey() == s3.DedupKey() {
		t.Errorf("expected a different bucket to produce a different dedup key")
	}
}

func TestSubmission_DedupKey_Tri_LegOrderInsensitive(t *testing.T) {
	a := Submission{Kind: KindTri, Venue: "binance", Base: "BTC", LegPairs: []string{"ETH-USDT", "BTC-ETH", "BTC-USDT"}, NetBps: decimal.RequireFromString("10")}
	b := Submission{Kind: KindTri, Venue: "binance", Base: "BTC", LegPairs: []string{"BTC-USDT", "BTC-ETH", "ETH-USDT"}, NetBps: decimal.RequireFromString("10")}
	if a.DedupKey() != b.DedupKey() {
		t.Errorf("expected leg order to not affect dedup key: %q vs %q", a.DedupKey(), b.DedupKey())
	}
}

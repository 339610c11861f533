// Package mexc implements the MEXC spot VenueAdapter. MEXC's public spot
// API closely mirrors Binance's wire format.
package mexc

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	connapp "github.com/fd1az/arbitrage-bot/business/connectors/app"
	marketdata "github.com/fd1az/arbitrage-bot/business/marketdata/app"
	mdomain "github.com/fd1az/arbitrage-bot/business/marketdata/domain"
	"github.com/fd1az/arbitrage-bot/internal/apperror"
	"github.com/fd1az/arbitrage-bot/internal/httpclient"
)

const (
	restBaseURL = "https://api.mexc.com"
	wsBaseURL   = "wss://wbs.mexc.com/ws"
	venueID     = mdomain.VenueID("mexc")
)

// Adapter is the MEXC spot VenueAdapter.
type Adapter struct {
	http httpclient.Client
}

// New creates a MEXC adapter.
func New() (*Adapter, error) {
	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("mexc"),
		httpclient.WithBaseURL(restBaseURL),
		httpclient.WithRequestTimeout(10*time.Second),
		httpclient.WithHeaders(map[string]string{"Accept": "application/json"}),
	)
	if err != nil {
		return nil, err
	}
	return &Adapter{http: client}, nil
}

func (a *Adapter) Venue() mdomain.VenueID { return venueID }
func (a *Adapter) RESTBaseURL() string    { return restBaseURL }
func (a *Adapter) WSBaseURL() string      { return wsBaseURL }

type exchangeInfoResponse struct {
	Symbols []struct {
		Symbol              string `json:"symbol"`
		Status              string `json:"status"`
		BaseSizePrecision   string `json:"baseSizePrecision"`
		QuotePrecision      int32  `json:"quotePrecision"`
		QuoteAmountPrecison string `json:"quoteAmountPrecision"`
	} `json:"symbols"`
}

// FetchInstruments loads the public spot instrument list.
func (a *Adapter) FetchInstruments(ctx context.Context) ([]marketdata.RawInstrument, error) {
	var result exchangeInfoResponse
	resp, err := a.http.NewRequest().SetResult(&result).Get(ctx, "/api/v3/exchangeInfo")
	if err != nil {
		return nil, apperror.New(apperror.CodeVenueDiscoveryFailed, apperror.WithCause(err))
	}
	if resp.IsError() {
		return nil, apperror.New(apperror.CodeVenueDiscoveryFailed,
			apperror.WithContext(fmt.Sprintf("HTTP %d", resp.StatusCode)))
	}

	out := make([]marketdata.RawInstrument, 0, len(result.Symbols))
	for _, s := range result.Symbols {
		if s.Status != "ENABLED" && s.Status != "1" {
			continue
		}
		minNotional := s.QuoteAmountPrecison
		if minNotional == "" {
			minNotional = "0"
		}
		out = append(out, marketdata.RawInstrument{
			NativeSymbol:   s.Symbol,
			PricePrecision: s.QuotePrecision,
			SizePrecision:  decimalsOf(s.BaseSizePrecision),
			MinNotional:    minNotional,
		})
	}
	return out, nil
}

func decimalsOf(tick string) int32 {
	d, err := decimal.NewFromString(tick)
	if err != nil {
		return 8
	}
	return int32(d.Exponent() * -1)
}

// StreamURL returns the shared WebSocket endpoint; subscriptions are sent as
// a post-connect frame.
func (a *Adapter) StreamURL(nativeSymbols []string, depthLevels int) (string, error) {
	if len(nativeSymbols) == 0 {
		return "", apperror.New(apperror.CodeFatalConfigError, apperror.WithContext("no symbols"))
	}
	return wsBaseURL, nil
}

type subscribeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
}

// SubscribeMessage builds the partial-depth channel subscription frame.
func (a *Adapter) SubscribeMessage(nativeSymbols []string, depthLevels int) ([]byte, error) {
	level := nearestDepthLevel(depthLevels)
	params := make([]string, 0, len(nativeSymbols))
	for _, sym := range nativeSymbols {
		params = append(params, fmt.Sprintf("spot@public.limit.depth.v3.api@%s@%d", sym, level))
	}
	return json.Marshal(subscribeRequest{Method: "SUBSCRIPTION", Params: params})
}

func nearestDepthLevel(depthLevels int) int {
	for _, l := range []int{5, 10, 20} {
		if depthLevels <= l {
			return l
		}
	}
	return 20
}

type depthPush struct {
	Channel string `json:"c"`
	Symbol  string `json:"s"`
	Data    struct {
		Bids [][]string `json:"bids"`
		Asks [][]string `json:"asks"`
		Ver  string     `json:"version"`
	} `json:"d"`
	Timestamp int64 `json:"t"`
}

// ParseMessage decodes a limit-depth push frame.
func (a *Adapter) ParseMessage(raw []byte) ([]connapp.DepthUpdate, error) {
	var push depthPush
	if err := json.Unmarshal(raw, &push); err != nil {
		return nil, err
	}
	if !strings.Contains(push.Channel, "limit.depth") {
		return nil, nil
	}

	bids, err := parseLevels(push.Data.Bids)
	if err != nil {
		return nil, err
	}
	asks, err := parseLevels(push.Data.Asks)
	if err != nil {
		return nil, err
	}
	seq, _ := strconv.ParseInt(push.Data.Ver, 10, 64)
	ts := time.Now()
	if push.Timestamp > 0 {
		ts = time.UnixMilli(push.Timestamp)
	}

	return []connapp.DepthUpdate{{
		NativeSymbol: push.Symbol,
		Bids:         bids,
		Asks:         asks,
		FullSnapshot: true,
		Seq:          seq,
		TsExchange:   ts,
	}}, nil
}

func parseLevels(raw [][]string) ([]mdomain.Level, error) {
	out := make([]mdomain.Level, 0, len(raw))
	for _, r := range raw {
		if len(r) < 2 {
			continue
		}
		price, err := decimal.NewFromString(r[0])
		if err != nil {
			return nil, err
		}
		size, err := decimal.NewFromString(r[1])
		if err != nil {
			return nil, err
		}
		out = append(out, mdomain.Level{Price: price, Size: size})
	}
	return out, nil
}

type depthRESTResponse struct {
	LastUpdateID int64      `json:"lastUpdateId"`
	Bids         [][]string `json:"bids"`
	Asks         [][]string `json:"asks"`
}

// FetchSnapshot fetches a REST order book snapshot for resync.
func (a *Adapter) FetchSnapshot(ctx context.Context, nativeSymbol string, depthLevels int) (connapp.DepthUpdate, error) {
	var result depthRESTResponse
	resp, err := a.http.NewRequest().
		SetQueryParam("symbol", nativeSymbol).
		SetQueryParam("limit", strconv.Itoa(nearestDepthLevel(depthLevels))).
		SetResult(&result).
		Get(ctx, "/api/v3/depth")
	if err != nil {
		return connapp.DepthUpdate{}, apperror.New(apperror.CodeTransportFault, apperror.WithCause(err))
	}
	if resp.IsError() {
		return connapp.DepthUpdate{}, apperror.New(apperror.CodeTransportFault,
			apperror.WithContext(fmt.Sprintf("HTTP %d", resp.StatusCode)))
	}

	bids, err := parseLevels(result.Bids)
	if err != nil {
		return connapp.DepthUpdate{}, err
	}
	asks, err := parseLevels(result.Asks)
	if err != nil {
		return connapp.DepthUpdate{}, err
	}

	return connapp.DepthUpdate{
		NativeSymbol: nativeSymbol,
		Bids:         bids,
		Asks:         asks,
		FullSnapshot: true,
		Seq:          result.LastUpdateID,
		TsExchange:   time.Now(),
	}, nil
}

var _ connapp.VenueAdapter = (*Adapter)(nil)

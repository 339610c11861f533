// Package bybit implements the Bybit spot VenueAdapter.
package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	connapp "github.com/fd1az/arbitrage-bot/business/connectors/app"
	marketdata "github.com/fd1az/arbitrage-bot/business/marketdata/app"
	mdomain "github.com/fd1az/arbitrage-bot/business/marketdata/domain"
	"github.com/fd1az/arbitrage-bot/internal/apperror"
	"github.com/fd1az/arbitrage-bot/internal/httpclient"
)

const (
	restBaseURL = "https://api.bybit.com"
	wsBaseURL   = "wss://stream.bybit.com/v5/public/spot"
	venueID     = mdomain.VenueID("bybit")
)

// Adapter is the Bybit spot VenueAdapter.
type Adapter struct {
	http httpclient.Client
}

// New creates a Bybit adapter.
func New() (*Adapter, error) {
	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("bybit"),
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

type instrumentsInfoResponse struct {
	Result struct {
		List []struct {
			Symbol     string `json:"symbol"`
			Status     string `json:"status"`
			LotSizeFlt struct {
				BasePrecision  string `json:"basePrecision"`
				QuotePrecision string `json:"quotePrecision"`
				MinOrderAmt    string `json:"minOrderAmt"`
			} `json:"lotSizeFilter"`
			PriceFilter struct {
				TickSize string `json:"tickSize"`
			} `json:"priceFilter"`
		} `json:"list"`
	} `json:"result"`
}

// FetchInstruments loads the public spot instrument list.
func (a *Adapter) FetchInstruments(ctx context.Context) ([]marketdata.RawInstrument, error) {
	var result instrumentsInfoResponse
	resp, err := a.http.NewRequest().
		SetQueryParam("category", "spot").
		SetResult(&result).
		Get(ctx, "/v5/market/instruments-info")
	if err != nil {
		return nil, apperror.New(apperror.CodeVenueDiscoveryFailed, apperror.WithCause(err))
	}
	if resp.IsError() {
		return nil, apperror.New(apperror.CodeVenueDiscoveryFailed,
			apperror.WithContext(fmt.Sprintf("HTTP %d", resp.StatusCode)))
	}

	out := make([]marketdata.RawInstrument, 0, len(result.Result.List))
	for _, s := range result.Result.List {
		if s.Status != "Trading" {
			continue
		}
		out = append(out, marketdata.RawInstrument{
			NativeSymbol:   s.Symbol,
			PricePrecision: decimalsOf(s.PriceFilter.TickSize),
			SizePrecision:  decimalsOf(s.LotSizeFlt.BasePrecision),
			MinNotional:    s.LotSizeFlt.MinOrderAmt,
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

// StreamURL returns the public v5 WebSocket endpoint; subscriptions are
// sent as a post-connect frame rather than encoded in the URL.
func (a *Adapter) StreamURL(nativeSymbols []string, depthLevels int) (string, error) {
	if len(nativeSymbols) == 0 {
		return "", apperror.New(apperror.CodeFatalConfigError, apperror.WithContext("no symbols"))
	}
	return wsBaseURL, nil
}

type subscribeRequest struct {
	Op   string   `json:"op"`
	Args []string `json:"args"`
}

// SubscribeMessage builds the orderbook topic subscription frame.
func (a *Adapter) SubscribeMessage(nativeSymbols []string, depthLevels int) ([]byte, error) {
	depth := nearestDepth(depthLevels)
	args := make([]string, 0, len(nativeSymbols))
	for _, sym := range nativeSymbols {
		args = append(args, fmt.Sprintf("orderbook.%d.%s", depth, sym))
	}
	return json.Marshal(subscribeRequest{Op: "subscribe", Args: args})
}

func nearestDepth(depthLevels int) int {
	for _, l := range []int{1, 50, 200} {
		if depthLevels <= l {
			return l
		}
	}
	return 200
}

type orderbookPush struct {
	Topic string `json:"topic"`
	Type  string `json:"type"`
	Data  struct {
		Symbol string     `json:"s"`
		Bids   [][]string `json:"b"`
		Asks   [][]string `json:"a"`
		Seq    int64      `json:"seq"`
	} `json:"data"`
}

// ParseMessage decodes a v5 orderbook push frame.
func (a *Adapter) ParseMessage(raw []byte) ([]connapp.DepthUpdate, error) {
	var push orderbookPush
	if err := json.Unmarshal(raw, &push); err != nil {
		return nil, err
	}
	if push.Topic == "" || push.Data.Symbol == "" {
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

	return []connapp.DepthUpdate{{
		NativeSymbol: push.Data.Symbol,
		Bids:         bids,
		Asks:         asks,
		FullSnapshot: push.Type == "snapshot",
		Seq:          push.Data.Seq,
		TsExchange:   time.Now(),
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

type orderbookRESTResponse struct {
	Result struct {
		Symbol string     `json:"s"`
		Bids   [][]string `json:"b"`
		Asks   [][]string `json:"a"`
		Seq    int64      `json:"u"`
	} `json:"result"`
}

// FetchSnapshot fetches a REST order book snapshot for resync.
func (a *Adapter) FetchSnapshot(ctx context.Context, nativeSymbol string, depthLevels int) (connapp.DepthUpdate, error) {
	var result orderbookRESTResponse
	resp, err := a.http.NewRequest().
		SetQueryParam("category", "spot").
		SetQueryParam("symbol", nativeSymbol).
		SetQueryParam("limit", strconv.Itoa(nearestDepth(depthLevels))).
		SetResult(&result).
		Get(ctx, "/v5/market/orderbook")
	if err != nil {
		return connapp.DepthUpdate{}, apperror.New(apperror.CodeTransportFault, apperror.WithCause(err))
	}
	if resp.IsError() {
		return connapp.DepthUpdate{}, apperror.New(apperror.CodeTransportFault,
			apperror.WithContext(fmt.Sprintf("HTTP %d", resp.StatusCode)))
	}

	bids, err := parseLevels(result.Result.Bids)
	if err != nil {
		return connapp.DepthUpdate{}, err
	}
	asks, err := parseLevels(result.Result.Asks)
	if err != nil {
		return connapp.DepthUpdate{}, err
	}

	return connapp.DepthUpdate{
		NativeSymbol: nativeSymbol,
		Bids:         bids,
		Asks:         asks,
		FullSnapshot: true,
		Seq:          result.Result.Seq,
		TsExchange:   time.Now(),
	}, nil
}

var _ connapp.VenueAdapter = (*Adapter)(nil)

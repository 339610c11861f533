// Package cointr implements the CoinTR spot VenueAdapter. Like several
// regional exchanges, CoinTR's public REST and WebSocket surface is a
// close clone of Binance's.
package cointr

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
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
	restBaseURL = "https://api.cointr.com"
	wsBaseURL   = "wss://stream.cointr.com"
	venueID     = mdomain.VenueID("cointr")
)

// Adapter is the CoinTR spot VenueAdapter.
type Adapter struct {
	http httpclient.Client
}

// New creates a CoinTR adapter.
func New() (*Adapter, error) {
	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("cointr"),
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
		Symbol  string `json:"symbol"`
		Status  string `json:"status"`
		Filters []struct {
			FilterType  string `json:"filterType"`
			TickSize    string `json:"tickSize"`
			StepSize    string `json:"stepSize"`
			MinNotional string `json:"minNotional"`
		} `json:"filters"`
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
		if s.Status != "TRADING" {
			continue
		}
		pricePrec, sizePrec := int32(8), int32(8)
		minNotional := "0"
		for _, f := range s.Filters {
			switch f.FilterType {
			case "PRICE_FILTER":
				pricePrec = decimalsOf(f.TickSize)
			case "LOT_SIZE":
				sizePrec = decimalsOf(f.StepSize)
			case "MIN_NOTIONAL":
				if f.MinNotional != "" {
					minNotional = f.MinNotional
				}
			}
		}
		out = append(out, marketdata.RawInstrument{
			NativeSymbol:   s.Symbol,
			PricePrecision: pricePrec,
			SizePrecision:  sizePrec,
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

// StreamURL builds the combined partial-depth stream URL for nativeSymbols.
func (a *Adapter) StreamURL(nativeSymbols []string, depthLevels int) (string, error) {
	if len(nativeSymbols) == 0 {
		return "", apperror.New(apperror.CodeFatalConfigError, apperror.WithContext("no symbols"))
	}
	level := nearestDepthLevel(depthLevels)
	streams := make([]string, 0, len(nativeSymbols))
	for _, sym := range nativeSymbols {
		streams = append(streams, strings.ToLower(sym)+"@depth"+strconv.Itoa(level))
	}
	u, err := url.Parse(wsBaseURL)
	if err != nil {
		return "", err
	}
	u.Path = "/stream"
	u.RawQuery = "streams=" + strings.Join(streams, "/")
	return u.String(), nil
}

func nearestDepthLevel(depthLevels int) int {
	for _, l := range []int{5, 10, 20} {
		if depthLevels <= l {
			return l
		}
	}
	return 20
}

// SubscribeMessage is unused: CoinTR combined streams subscribe via the URL.
func (a *Adapter) SubscribeMessage(nativeSymbols []string, depthLevels int) ([]byte, error) {
	return nil, nil
}

type streamEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

type partialDepthEvent struct {
	LastUpdateID int64      `json:"lastUpdateId"`
	Bids         [][]string `json:"bids"`
	Asks         [][]string `json:"asks"`
}

// ParseMessage decodes a combined-stream partial-depth frame.
func (a *Adapter) ParseMessage(raw []byte) ([]connapp.DepthUpdate, error) {
	var env streamEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	if !strings.Contains(env.Stream, "@depth") {
		return nil, nil
	}

	var depth partialDepthEvent
	if err := json.Unmarshal(env.Data, &depth); err != nil {
		return nil, err
	}

	symbol := strings.ToUpper(strings.SplitN(env.Stream, "@", 2)[0])
	bids, err := parseLevels(depth.Bids)
	if err != nil {
		return nil, err
	}
	asks, err := parseLevels(depth.Asks)
	if err != nil {
		return nil, err
	}

	return []connapp.DepthUpdate{{
		NativeSymbol: symbol,
		Bids:         bids,
		Asks:         asks,
		FullSnapshot: true,
		Seq:          depth.LastUpdateID,
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

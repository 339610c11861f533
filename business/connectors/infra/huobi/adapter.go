// Package huobi implements the Huobi (HTX) spot VenueAdapter. Huobi's
// WebSocket frames are gzip-compressed; ParseMessage decodes plain JSON only
// and does not inflate them, and internal/wsconn passes frames through
// unchanged.
package huobi

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
	restBaseURL = "https://api.huobi.pro"
	wsBaseURL   = "wss://api.huobi.pro/ws"
	venueID     = mdomain.VenueID("huobi")
)

// Adapter is the Huobi spot VenueAdapter.
type Adapter struct {
	http httpclient.Client
}

// New creates a Huobi adapter.
func New() (*Adapter, error) {
	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("huobi"),
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

type symbolsResponse struct {
	Data []struct {
		Symbol       string `json:"symbol"`
		State        string `json:"state"`
		PricePrec    int32  `json:"price-precision"`
		AmountPrec   int32  `json:"amount-precision"`
		MinOrderValu string `json:"min-order-value"`
	} `json:"data"`
}

// FetchInstruments loads the public spot instrument list.
func (a *Adapter) FetchInstruments(ctx context.Context) ([]marketdata.RawInstrument, error) {
	var result symbolsResponse
	resp, err := a.http.NewRequest().SetResult(&result).Get(ctx, "/v1/common/symbols")
	if err != nil {
		return nil, apperror.New(apperror.CodeVenueDiscoveryFailed, apperror.WithCause(err))
	}
	if resp.IsError() {
		return nil, apperror.New(apperror.CodeVenueDiscoveryFailed,
			apperror.WithContext(fmt.Sprintf("HTTP %d", resp.StatusCode)))
	}

	out := make([]marketdata.RawInstrument, 0, len(result.Data))
	for _, s := range result.Data {
		if s.State != "online" {
			continue
		}
		minNotional := s.MinOrderValu
		if minNotional == "" {
			minNotional = "0"
		}
		out = append(out, marketdata.RawInstrument{
			NativeSymbol:   strings.ToUpper(s.Symbol),
			PricePrecision: s.PricePrec,
			SizePrecision:  s.AmountPrec,
			MinNotional:    minNotional,
		})
	}
	return out, nil
}

// StreamURL returns the shared WebSocket endpoint; channel subscriptions are
// sent as a post-connect frame.
func (a *Adapter) StreamURL(nativeSymbols []string, depthLevels int) (string, error) {
	if len(nativeSymbols) == 0 {
		return "", apperror.New(apperror.CodeFatalConfigError, apperror.WithContext("no symbols"))
	}
	return wsBaseURL, nil
}

type subscribeRequest struct {
	Sub string `json:"sub"`
	ID  string `json:"id"`
}

// SubscribeMessage builds a depth.step0 subscription frame for the first
// symbol in nativeSymbols only; the remaining symbols get no frame.
func (a *Adapter) SubscribeMessage(nativeSymbols []string, depthLevels int) ([]byte, error) {
	if len(nativeSymbols) == 0 {
		return nil, nil
	}
	sym := strings.ToLower(nativeSymbols[0])
	req := subscribeRequest{
		Sub: fmt.Sprintf("market.%s.depth.step0", sym),
		ID:  strconv.FormatInt(time.Now().UnixNano(), 10),
	}
	return json.Marshal(req)
}

type depthPush struct {
	Ch   string `json:"ch"`
	Ts   int64  `json:"ts"`
	Tick struct {
		Bids    [][]float64 `json:"bids"`
		Asks    [][]float64 `json:"asks"`
		Version int64       `json:"version"`
	} `json:"tick"`
}

// ParseMessage decodes a market.<symbol>.depth.step0 push frame.
func (a *Adapter) ParseMessage(raw []byte) ([]connapp.DepthUpdate, error) {
	var push depthPush
	if err := json.Unmarshal(raw, &push); err != nil {
		return nil, err
	}
	if !strings.Contains(push.Ch, ".depth.") {
		return nil, nil
	}
	symbol := extractSymbol(push.Ch)

	return []connapp.DepthUpdate{{
		NativeSymbol: symbol,
		Bids:         toLevels(push.Tick.Bids),
		Asks:         toLevels(push.Tick.Asks),
		FullSnapshot: true,
		Seq:          push.Tick.Version,
		TsExchange:   time.UnixMilli(push.Ts),
	}}, nil
}

func extractSymbol(channel string) string {
	parts := strings.Split(channel, ".")
	if len(parts) < 2 {
		return ""
	}
	return strings.ToUpper(parts[1])
}

func toLevels(raw [][]float64) []mdomain.Level {
	out := make([]mdomain.Level, 0, len(raw))
	for _, r := range raw {
		if len(r) < 2 {
			continue
		}
		out = append(out, mdomain.Level{
			Price: decimal.NewFromFloat(r[0]),
			Size:  decimal.NewFromFloat(r[1]),
		})
	}
	return out
}

type depthRESTResponse struct {
	Tick struct {
		Bids    [][]float64 `json:"bids"`
		Asks    [][]float64 `json:"asks"`
		Version int64       `json:"version"`
		Ts      int64       `json:"ts"`
	} `json:"tick"`
}

// FetchSnapshot fetches a REST order book snapshot for resync.
func (a *Adapter) FetchSnapshot(ctx context.Context, nativeSymbol string, depthLevels int) (connapp.DepthUpdate, error) {
	var result depthRESTResponse
	resp, err := a.http.NewRequest().
		SetQueryParam("symbol", strings.ToLower(nativeSymbol)).
		SetQueryParam("type", "step0").
		SetResult(&result).
		Get(ctx, "/market/depth")
	if err != nil {
		return connapp.DepthUpdate{}, apperror.New(apperror.CodeTransportFault, apperror.WithCause(err))
	}
	if resp.IsError() {
		return connapp.DepthUpdate{}, apperror.New(apperror.CodeTransportFault,
			apperror.WithContext(fmt.Sprintf("HTTP %d", resp.StatusCode)))
	}

	ts := time.Now()
	if result.Tick.Ts > 0 {
		ts = time.UnixMilli(result.Tick.Ts)
	}

	return connapp.DepthUpdate{
		NativeSymbol: nativeSymbol,
		Bids:         toLevels(result.Tick.Bids),
		Asks:         toLevels(result.Tick.Asks),
		FullSnapshot: true,
		Seq:          result.Tick.Version,
		TsExchange:   ts,
	}, nil
}

var _ connapp.VenueAdapter = (*Adapter)(nil)

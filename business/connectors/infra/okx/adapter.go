// Package okx implements the OKX spot VenueAdapter.
package okx

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
	restBaseURL = "https://www.okx.com"
	wsBaseURL   = "wss://ws.okx.com:8443/ws/v5/public"
	venueID     = mdomain.VenueID("okx")
)

// Adapter is the OKX spot VenueAdapter.
type Adapter struct {
	http httpclient.Client
}

// New creates an OKX adapter.
func New() (*Adapter, error) {
	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("okx"),
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

type instrumentsResponse struct {
	Data []struct {
		InstID  string `json:"instId"`
		State   string `json:"state"`
		TickSz  string `json:"tickSz"`
		LotSz   string `json:"lotSz"`
		MinSz   string `json:"minSz"`
	} `json:"data"`
}

// FetchInstruments loads the public spot instrument list.
func (a *Adapter) FetchInstruments(ctx context.Context) ([]marketdata.RawInstrument, error) {
	var result instrumentsResponse
	resp, err := a.http.NewRequest().
		SetQueryParam("instType", "SPOT").
		SetResult(&result).
		Get(ctx, "/api/v5/public/instruments")
	if err != nil {
		return nil, apperror.New(apperror.CodeVenueDiscoveryFailed, apperror.WithCause(err))
	}
	if resp.IsError() {
		return nil, apperror.New(apperror.CodeVenueDiscoveryFailed,
			apperror.WithContext(fmt.Sprintf("HTTP %d", resp.StatusCode)))
	}

	out := make([]marketdata.RawInstrument, 0, len(result.Data))
	for _, s := range result.Data {
		if s.State != "live" {
			continue
		}
		out = append(out, marketdata.RawInstrument{
			NativeSymbol:   s.InstID,
			PricePrecision: decimalsOf(s.TickSz),
			SizePrecision:  decimalsOf(s.LotSz),
			MinNotional:    s.MinSz,
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

// StreamURL returns the public WebSocket endpoint; channel subscriptions are
// sent as a post-connect frame.
func (a *Adapter) StreamURL(nativeSymbols []string, depthLevels int) (string, error) {
	if len(nativeSymbols) == 0 {
		return "", apperror.New(apperror.CodeFatalConfigError, apperror.WithContext("no symbols"))
	}
	return wsBaseURL, nil
}

type subscribeArg struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

type subscribeRequest struct {
	Op   string         `json:"op"`
	Args []subscribeArg `json:"args"`
}

// SubscribeMessage builds the channel subscription frame: books5 when
// depthLevels is 5 or fewer, the full books channel otherwise.
func (a *Adapter) SubscribeMessage(nativeSymbols []string, depthLevels int) ([]byte, error) {
	channel := "books5"
	if depthLevels > 5 {
		channel = "books"
	}
	args := make([]subscribeArg, 0, len(nativeSymbols))
	for _, sym := range nativeSymbols {
		args = append(args, subscribeArg{Channel: channel, InstID: sym})
	}
	return json.Marshal(subscribeRequest{Op: "subscribe", Args: args})
}

type booksPush struct {
	Arg struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	} `json:"arg"`
	Action string `json:"action"`
	Data   []struct {
		Bids [][]string `json:"bids"`
		Asks [][]string `json:"asks"`
		Seq  string     `json:"seqId"`
		TS   string     `json:"ts"`
	} `json:"data"`
}

// ParseMessage decodes a books/books5 channel push frame.
func (a *Adapter) ParseMessage(raw []byte) ([]connapp.DepthUpdate, error) {
	var push booksPush
	if err := json.Unmarshal(raw, &push); err != nil {
		return nil, err
	}
	if push.Arg.InstID == "" || len(push.Data) == 0 {
		return nil, nil
	}

	updates := make([]connapp.DepthUpdate, 0, len(push.Data))
	for _, d := range push.Data {
		bids, err := parseLevels(d.Bids)
		if err != nil {
			return nil, err
		}
		asks, err := parseLevels(d.Asks)
		if err != nil {
			return nil, err
		}
		seq, _ := strconv.ParseInt(d.Seq, 10, 64)
		ts := time.Now()
		if ms, err := strconv.ParseInt(d.TS, 10, 64); err == nil && ms > 0 {
			ts = time.UnixMilli(ms)
		}
		updates = append(updates, connapp.DepthUpdate{
			NativeSymbol: push.Arg.InstID,
			Bids:         bids,
			Asks:         asks,
			FullSnapshot: push.Action == "snapshot" || push.Action == "",
			Seq:          seq,
			TsExchange:   ts,
		})
	}
	return updates, nil
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

type booksRESTResponse struct {
	Data []struct {
		Bids [][]string `json:"bids"`
		Asks [][]string `json:"asks"`
		TS   string     `json:"ts"`
	} `json:"data"`
}

// FetchSnapshot fetches a REST order book snapshot for resync.
func (a *Adapter) FetchSnapshot(ctx context.Context, nativeSymbol string, depthLevels int) (connapp.DepthUpdate, error) {
	var result booksRESTResponse
	resp, err := a.http.NewRequest().
		SetQueryParam("instId", nativeSymbol).
		SetQueryParam("sz", strconv.Itoa(depthLevels)).
		SetResult(&result).
		Get(ctx, "/api/v5/market/books")
	if err != nil {
		return connapp.DepthUpdate{}, apperror.New(apperror.CodeTransportFault, apperror.WithCause(err))
	}
	if resp.IsError() || len(result.Data) == 0 {
		return connapp.DepthUpdate{}, apperror.New(apperror.CodeTransportFault,
			apperror.WithContext(fmt.Sprintf("HTTP %d", resp.StatusCode)))
	}

	d := result.Data[0]
	bids, err := parseLevels(d.Bids)
	if err != nil {
		return connapp.DepthUpdate{}, err
	}
	asks, err := parseLevels(d.Asks)
	if err != nil {
		return connapp.DepthUpdate{}, err
	}

	return connapp.DepthUpdate{
		NativeSymbol: nativeSymbol,
		Bids:         bids,
		Asks:         asks,
		FullSnapshot: true,
		TsExchange:   time.Now(),
	}, nil
}

var _ connapp.VenueAdapter = (*Adapter)(nil)

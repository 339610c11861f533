// Package kucoin implements the KuCoin spot VenueAdapter.
package kucoin

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
	restBaseURL = "https://api.kucoin.com"
	venueID     = mdomain.VenueID("kucoin")
)

// Adapter is the KuCoin spot VenueAdapter. Unlike most venues, KuCoin hands
// out a short-lived WebSocket endpoint ("bullet") via a REST call, so
// StreamURL performs that exchange on every call.
type Adapter struct {
	http httpclient.Client
}

// New creates a KuCoin adapter.
func New() (*Adapter, error) {
	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("kucoin"),
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
func (a *Adapter) WSBaseURL() string      { return "" } // resolved per-connect via the bullet endpoint

type symbolsResponse struct {
	Data []struct {
		Symbol        string `json:"symbol"`
		EnableTrading bool   `json:"enableTrading"`
		PriceIncr     string `json:"priceIncrement"`
		BaseIncr      string `json:"baseIncrement"`
		MinFunds      string `json:"minFunds"`
	} `json:"data"`
}

// FetchInstruments loads the public spot instrument list.
func (a *Adapter) FetchInstruments(ctx context.Context) ([]marketdata.RawInstrument, error) {
	var result symbolsResponse
	resp, err := a.http.NewRequest().SetResult(&result).Get(ctx, "/api/v1/symbols")
	if err != nil {
		return nil, apperror.New(apperror.CodeVenueDiscoveryFailed, apperror.WithCause(err))
	}
	if resp.IsError() {
		return nil, apperror.New(apperror.CodeVenueDiscoveryFailed,
			apperror.WithContext(fmt.Sprintf("HTTP %d", resp.StatusCode)))
	}

	out := make([]marketdata.RawInstrument, 0, len(result.Data))
	for _, s := range result.Data {
		if !s.EnableTrading {
			continue
		}
		minFunds := s.MinFunds
		if minFunds == "" {
			minFunds = "0"
		}
		out = append(out, marketdata.RawInstrument{
			NativeSymbol:   s.Symbol,
			PricePrecision: decimalsOf(s.PriceIncr),
			SizePrecision:  decimalsOf(s.BaseIncr),
			MinNotional:    minFunds,
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

type bulletResponse struct {
	Data struct {
		Token           string `json:"token"`
		InstanceServers []struct {
			Endpoint     string `json:"endpoint"`
			PingInterval int    `json:"pingInterval"`
		} `json:"instanceServers"`
	} `json:"data"`
}

// StreamURL requests a fresh public bullet token and returns the resulting
// connect URL. The caller subscribes to individual symbols over the
// connection via SubscribeMessage.
func (a *Adapter) StreamURL(nativeSymbols []string, depthLevels int) (string, error) {
	if len(nativeSymbols) == 0 {
		return "", apperror.New(apperror.CodeFatalConfigError, apperror.WithContext("no symbols"))
	}

	var bullet bulletResponse
	resp, err := a.http.NewRequest().SetResult(&bullet).Post(context.Background(), "/api/v1/bullet-public")
	if err != nil {
		return "", apperror.New(apperror.CodeTransportFault, apperror.WithCause(err))
	}
	if resp.IsError() || len(bullet.Data.InstanceServers) == 0 {
		return "", apperror.New(apperror.CodeTransportFault,
			apperror.WithContext(fmt.Sprintf("HTTP %d, bullet token unavailable", resp.StatusCode)))
	}

	server := bullet.Data.InstanceServers[0]
	connectID := strconv.FormatInt(time.Now().UnixNano(), 10)
	return fmt.Sprintf("%s?token=%s&connectId=%s", server.Endpoint, bullet.Data.Token, connectID), nil
}

type subscribeRequest struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	Topic          string `json:"topic"`
	Response       bool   `json:"response"`
	PrivateChannel bool   `json:"privateChannel"`
}

// SubscribeMessage builds the level2Depth50 topic subscription frame for
// all nativeSymbols, comma-joined per KuCoin's multi-symbol topic format.
func (a *Adapter) SubscribeMessage(nativeSymbols []string, depthLevels int) ([]byte, error) {
	topic := "/spotMarket/level2Depth50:" + strings.Join(nativeSymbols, ",")
	req := subscribeRequest{
		ID:       strconv.FormatInt(time.Now().UnixNano(), 10),
		Type:     "subscribe",
		Topic:    topic,
		Response: true,
	}
	return json.Marshal(req)
}

type depthPush struct {
	Type  string `json:"type"`
	Topic string `json:"topic"`
	Data  struct {
		Asks      [][]string `json:"asks"`
		Bids      [][]string `json:"bids"`
		Timestamp int64      `json:"timestamp"`
	} `json:"data"`
}

// ParseMessage decodes a level2Depth50 push frame.
func (a *Adapter) ParseMessage(raw []byte) ([]connapp.DepthUpdate, error) {
	var push depthPush
	if err := json.Unmarshal(raw, &push); err != nil {
		return nil, err
	}
	if push.Type != "message" || !strings.HasPrefix(push.Topic, "/spotMarket/level2Depth50:") {
		return nil, nil
	}
	symbol := strings.TrimPrefix(push.Topic, "/spotMarket/level2Depth50:")

	bids, err := parseLevels(push.Data.Bids)
	if err != nil {
		return nil, err
	}
	asks, err := parseLevels(push.Data.Asks)
	if err != nil {
		return nil, err
	}

	ts := time.Now()
	if push.Data.Timestamp > 0 {
		ts = time.UnixMilli(push.Data.Timestamp)
	}

	return []connapp.DepthUpdate{{
		NativeSymbol: symbol,
		Bids:         bids,
		Asks:         asks,
		FullSnapshot: true,
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

type orderbookRESTResponse struct {
	Data struct {
		Sequence string     `json:"sequence"`
		Bids     [][]string `json:"bids"`
		Asks     [][]string `json:"asks"`
		Time     int64      `json:"time"`
	} `json:"data"`
}

// FetchSnapshot fetches a REST order book snapshot for resync.
func (a *Adapter) FetchSnapshot(ctx context.Context, nativeSymbol string, depthLevels int) (connapp.DepthUpdate, error) {
	var result orderbookRESTResponse
	resp, err := a.http.NewRequest().
		SetQueryParam("symbol", nativeSymbol).
		SetResult(&result).
		Get(ctx, "/api/v1/market/orderbook/level2_100")
	if err != nil {
		return connapp.DepthUpdate{}, apperror.New(apperror.CodeTransportFault, apperror.WithCause(err))
	}
	if resp.IsError() {
		return connapp.DepthUpdate{}, apperror.New(apperror.CodeTransportFault,
			apperror.WithContext(fmt.Sprintf("HTTP %d", resp.StatusCode)))
	}

	bids, err := parseLevels(result.Data.Bids)
	if err != nil {
		return connapp.DepthUpdate{}, err
	}
	asks, err := parseLevels(result.Data.Asks)
	if err != nil {
		return connapp.DepthUpdate{}, err
	}
	seq, _ := strconv.ParseInt(result.Data.Sequence, 10, 64)

	return connapp.DepthUpdate{
		NativeSymbol: nativeSymbol,
		Bids:         bids,
		Asks:         asks,
		FullSnapshot: true,
		Seq:          seq,
		TsExchange:   time.Now(),
	}, nil
}

var _ connapp.VenueAdapter = (*Adapter)(nil)

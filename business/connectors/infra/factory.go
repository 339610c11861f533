package infra

import (
	"fmt"

	connapp "github.com/fd1az/arbitrage-bot/business/connectors/app"
	"github.com/fd1az/arbitrage-bot/business/connectors/infra/base"
	"github.com/fd1az/arbitrage-bot/business/connectors/infra/binance"
	"github.com/fd1az/arbitrage-bot/business/connectors/infra/bybit"
	"github.com/fd1az/arbitrage-bot/business/connectors/infra/cointr"
	"github.com/fd1az/arbitrage-bot/business/connectors/infra/huobi"
	"github.com/fd1az/arbitrage-bot/business/connectors/infra/kucoin"
	"github.com/fd1az/arbitrage-bot/business/connectors/infra/mexc"
	"github.com/fd1az/arbitrage-bot/business/connectors/infra/okx"
	marketdata "github.com/fd1az/arbitrage-bot/business/marketdata/app"
	mdomain "github.com/fd1az/arbitrage-bot/business/marketdata/domain"
	"github.com/fd1az/arbitrage-bot/internal/apperror"
	"github.com/fd1az/arbitrage-bot/internal/logger"
)

// NewConnector builds a fully-wired Connector for venue, dispatching to the
// matching VenueAdapter constructor and wrapping it in the shared base FSM.
func NewConnector(
	venue mdomain.VenueID,
	registry *marketdata.SymbolRegistry,
	store *marketdata.BookStore,
	log logger.LoggerInterface,
	cfg base.Config,
) (connapp.Connector, error) {
	adapter, err := newAdapter(venue)
	if err != nil {
		return nil, err
	}
	return base.New(adapter, registry, store, log.With("venue", string(venue)), cfg), nil
}

func newAdapter(venue mdomain.VenueID) (connapp.VenueAdapter, error) {
	switch venue {
	case "binance":
		return binance.New()
	case "bybit":
		return bybit.New()
	case "okx":
		return okx.New()
	case "kucoin":
		return kucoin.New()
	case "mexc":
		return mexc.New()
	case "huobi":
		return huobi.New()
	case "cointr":
		return cointr.New()
	default:
		return nil, apperror.New(apperror.CodeFatalConfigError,
			apperror.WithContext(fmt.Sprintf("unknown venue %q", venue)))
	}
}

package port

import (
	"context"

	"github.com/smart845/QuantumTrader/internal/domain/model"
)

// Ticker 行情源返回的原始报价，未经过滤
type Ticker struct {
	Base             string
	Target           string   // quote currency as reported, any case
	Last             *float64 // nil when the venue did not report it
	ConvertedLastUSD *float64
	MarketName       string
	MarketIdentifier string
}

// UniverseProvider lists the top instruments by market capitalization.
type UniverseProvider interface {
	ListTopInstruments(ctx context.Context, limit int) ([]model.Instrument, error)
}

// QuoteSource lists venue tickers for one instrument.
type QuoteSource interface {
	ListTickers(ctx context.Context, instrumentID string) ([]Ticker, error)
}

// MarketData is what a single upstream provider usually offers.
type MarketData interface {
	UniverseProvider
	QuoteSource
}

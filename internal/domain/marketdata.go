package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Quote represents a live market quote in the quote's own currency
type Quote struct {
	MarketPrice decimal.Decimal
	Currency    string
}

// QuoteProvider fetches "now" quotes for a set of symbols.
// A symbol the provider cannot price is simply absent from the result.
type QuoteProvider interface {
	// GetQuotes retrieves live quotes keyed by symbol
	GetQuotes(ctx context.Context, assets []UniqueAsset) (map[string]Quote, error)
}

// HistoricalProvider fetches daily closing prices for a set of symbols.
// Missing symbols or dates are simply absent from the result.
type HistoricalProvider interface {
	// GetHistorical retrieves daily closes keyed by symbol, then by day
	// (normalized to midnight UTC), in each symbol's native currency
	GetHistorical(ctx context.Context, assets []UniqueAsset, from, to time.Time) (map[string]map[time.Time]decimal.Decimal, error)
}

// CurrencyConverter converts amounts between currencies.
// Conversion never fails: an unresolvable rate degrades to the unconverted
// value.
type CurrencyConverter interface {
	// Convert returns value expressed in the target currency
	Convert(value decimal.Decimal, from, to string) decimal.Decimal
}

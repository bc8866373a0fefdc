package exchange

import (
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// bridgeCurrency is the pivot used when no direct rate exists for a pair.
const bridgeCurrency = "USD"

// RatesTable holds pairwise exchange rates keyed by the concatenated currency
// pair (e.g. "EURUSD"). A table is immutable after construction; refreshes
// build a new table and publish it in a single atomic swap, so concurrent
// readers never observe a half-updated table.
type RatesTable struct {
	rates map[string]decimal.Decimal
}

// NewRatesTable creates a rates table from pairwise rates
func NewRatesTable(rates map[string]decimal.Decimal) *RatesTable {
	copied := make(map[string]decimal.Decimal, len(rates))
	for pair, rate := range rates {
		copied[pair] = rate
	}
	return &RatesTable{rates: copied}
}

// Rate returns the direct rate for a currency pair, if present
func (t *RatesTable) Rate(from, to string) (decimal.Decimal, bool) {
	rate, ok := t.rates[from+to]
	return rate, ok
}

// Converter converts amounts between currencies using the current rates
// table. Missing rates degrade to the unconverted value with a warning;
// conversion never fails.
type Converter struct {
	table atomic.Pointer[RatesTable]
	log   zerolog.Logger
}

// NewConverter creates a new Converter seeded with the given table
func NewConverter(table *RatesTable, log zerolog.Logger) *Converter {
	c := &Converter{
		log: log.With().Str("service", "currency_converter").Logger(),
	}
	if table == nil {
		table = NewRatesTable(nil)
	}
	c.table.Store(table)
	return c
}

// SetTable atomically publishes a new rates table
func (c *Converter) SetTable(table *RatesTable) {
	if table == nil {
		return
	}
	c.table.Store(table)
}

// Convert converts value from one currency into another
// Logic:
//  1. Zero in, zero out, with no rate lookup
//  2. Identity pair needs no rate
//  3. Cached direct rate if present
//  4. Otherwise bridge via USD: rate(from,USD) x rate(USD,to)
//  5. If no rate resolves, log a warning and return the value unconverted
func (c *Converter) Convert(value decimal.Decimal, from, to string) decimal.Decimal {
	if value.IsZero() {
		return decimal.Zero
	}

	if from == to {
		return value
	}

	table := c.table.Load()

	if rate, ok := table.Rate(from, to); ok {
		return value.Mul(rate)
	}

	toBridge, okFrom := table.Rate(from, bridgeCurrency)
	fromBridge, okTo := table.Rate(bridgeCurrency, to)
	if okFrom && okTo {
		return value.Mul(toBridge).Mul(fromBridge)
	}

	c.log.Warn().
		Str("from", from).
		Str("to", to).
		Str("value", value.String()).
		Msg("No exchange rate resolvable, returning value unconverted")

	return value
}

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionPointSymbol represents the cumulative cost-basis state of one
// symbol as of a transaction point's date
type TransactionPointSymbol struct {
	Symbol           string
	DataSource       string
	AccountID        uuid.UUID
	Currency         string
	Quantity         decimal.Decimal
	AveragePrice     decimal.Decimal
	Investment       decimal.Decimal // Quantity x AveragePrice (cost basis)
	Fee              decimal.Decimal // Running total of fees for this symbol
	TransactionCount int
	FirstBuyDate     time.Time
}

// TransactionPoint represents an immutable snapshot of every symbol active up
// to one order date. Points form an append-only sequence sorted ascending by
// date; once produced they are never mutated.
type TransactionPoint struct {
	Date  time.Time
	Items []TransactionPointSymbol
}

// Item returns the state of the given symbol at this point, or nil when the
// symbol is not active yet.
func (p *TransactionPoint) Item(symbol string) *TransactionPointSymbol {
	for i := range p.Items {
		if p.Items[i].Symbol == symbol {
			return &p.Items[i]
		}
	}
	return nil
}

// Oversell records a SELL order exceeding the held quantity. The sale is
// capped at the held quantity; the overage is reported, never applied.
type Oversell struct {
	Symbol     string
	DataSource string
	Date       time.Time
}

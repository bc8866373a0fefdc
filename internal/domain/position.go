package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CurrentPosition represents the computed state of one symbol at query time.
// It is a pure projection over orders and market data: never persisted,
// recomputed on every query.
type CurrentPosition struct {
	Symbol                     string
	DataSource                 string
	AccountID                  uuid.UUID
	Currency                   string
	Quantity                   decimal.Decimal
	AveragePrice               decimal.Decimal
	MarketPrice                decimal.Decimal
	Investment                 decimal.Decimal
	GrossPerformance           decimal.Decimal
	GrossPerformancePercentage decimal.Decimal
	NetPerformance             decimal.Decimal
	NetPerformancePercentage   decimal.Decimal
	TransactionCount           int
	MarketPriceAvailable       bool
}

// PortfolioSnapshot represents the aggregate result of a performance
// calculation. Aggregate figures are expressed in the requested base currency.
// Errors lists the assets excluded from aggregation because of missing market
// data or capped oversells; callers inspect HasErrors to decide whether to
// present a partial result.
type PortfolioSnapshot struct {
	Positions                  []CurrentPosition
	TotalInvestment            decimal.Decimal
	CurrentValue               decimal.Decimal
	GrossPerformance           decimal.Decimal
	GrossPerformancePercentage decimal.Decimal
	NetPerformance             decimal.Decimal
	NetPerformancePercentage   decimal.Decimal
	Errors                     []UniqueAsset
	HasErrors                  bool
}

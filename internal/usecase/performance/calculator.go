package performance

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/simaogato/portfolio-engine/internal/domain"
	"github.com/simaogato/portfolio-engine/internal/usecase/transactionpoint"
	"github.com/simaogato/portfolio-engine/internal/usecase/valuation"
)

// Valuator resolves market values for a set of symbols
type Valuator interface {
	GetValues(ctx context.Context, params valuation.GetValueParams) ([]valuation.GetValueObject, error)
}

// Calculator derives point-in-time portfolio performance from a fixed list of
// orders. It is a synchronous, deterministic transformation over in-memory
// data: safe to use concurrently for different portfolios, recomputed on every
// query.
type Calculator struct {
	orders    []*domain.Order
	valuator  Valuator
	converter domain.CurrencyConverter
	log       zerolog.Logger
	now       func() time.Time

	points    []domain.TransactionPoint
	oversells []domain.Oversell
	computed  bool
}

// NewCalculator creates a new Calculator over the given orders
func NewCalculator(
	orders []*domain.Order,
	valuator Valuator,
	converter domain.CurrencyConverter,
	log zerolog.Logger,
) *Calculator {
	return &Calculator{
		orders:    orders,
		valuator:  valuator,
		converter: converter,
		log:       log.With().Str("service", "performance_calculator").Logger(),
		now:       time.Now,
	}
}

// ComputeTransactionPoints builds the transaction point sequence from the
// calculator's orders. Malformed orders fail fast with a ValidationError
// before any point is produced.
func (c *Calculator) ComputeTransactionPoints() error {
	points, oversells, err := transactionpoint.Build(c.orders)
	if err != nil {
		return err
	}
	c.points = points
	c.oversells = oversells
	c.computed = true
	return nil
}

// TransactionPoints returns the computed transaction point sequence
func (c *Calculator) TransactionPoints() []domain.TransactionPoint {
	return c.points
}

// SetTransactionPoints restores a previously computed point sequence, e.g.
// from a memoization cache. Oversell records are recomputed on the next
// ComputeTransactionPoints call only.
func (c *Calculator) SetTransactionPoints(points []domain.TransactionPoint) {
	c.points = points
	c.computed = true
}

// symbolMetrics is the per-symbol working state of one GetCurrentPositions
// call
type symbolMetrics struct {
	anchorInvestment decimal.Decimal
	anchorDate       time.Time
	realizedGain     decimal.Decimal
	fees             decimal.Decimal
	transactionCount int
}

// GetCurrentPositions computes per-symbol and aggregate performance with the
// given anchor date fixing every percentage denominator.
//
// The call never fails on missing market data: a symbol without a live quote
// is recorded in Errors, excluded from the aggregate figures and the snapshot
// is returned with HasErrors set.
func (c *Calculator) GetCurrentPositions(ctx context.Context, since time.Time, baseCurrency string) (*domain.PortfolioSnapshot, error) {
	if !c.computed {
		if err := c.ComputeTransactionPoints(); err != nil {
			return nil, err
		}
	}

	snapshot := &domain.PortfolioSnapshot{
		TotalInvestment:            decimal.Zero,
		CurrentValue:               decimal.Zero,
		GrossPerformance:           decimal.Zero,
		GrossPerformancePercentage: decimal.Zero,
		NetPerformance:             decimal.Zero,
		NetPerformancePercentage:   decimal.Zero,
	}

	for _, oversell := range c.oversells {
		snapshot.Errors = append(snapshot.Errors, domain.UniqueAsset{
			Symbol:     oversell.Symbol,
			DataSource: oversell.DataSource,
		})
		snapshot.HasErrors = true
	}

	now := c.now()
	last := c.lastPointBefore(now)
	if last == nil {
		return snapshot, nil
	}

	metrics := make(map[string]*symbolMetrics, len(last.Items))
	for _, item := range last.Items {
		m := &symbolMetrics{
			anchorInvestment: decimal.Zero,
			realizedGain:     decimal.Zero,
			fees:             item.Fee,
			transactionCount: item.TransactionCount,
		}
		c.anchor(m, item.Symbol, since)
		metrics[item.Symbol] = m
	}
	c.accumulateRealizedGains(metrics, now)

	prices := c.fetchMarketPrices(ctx, last.Items)

	var (
		totalAnchorInvestment = decimal.Zero
		totalGross            = decimal.Zero
		totalNet              = decimal.Zero
	)

	for _, item := range last.Items {
		m := metrics[item.Symbol]

		position := domain.CurrentPosition{
			Symbol:                     item.Symbol,
			DataSource:                 item.DataSource,
			AccountID:                  item.AccountID,
			Currency:                   item.Currency,
			Quantity:                   item.Quantity,
			AveragePrice:               item.AveragePrice,
			Investment:                 item.Quantity.Mul(item.AveragePrice),
			GrossPerformancePercentage: decimal.Zero,
			NetPerformancePercentage:   decimal.Zero,
			TransactionCount:           m.transactionCount,
		}

		marketPrice, ok := prices[item.Symbol]
		if !ok {
			c.log.Warn().
				Str("symbol", item.Symbol).
				Msg("No market price available, excluding symbol from aggregation")
			position.GrossPerformance = decimal.Zero
			position.NetPerformance = decimal.Zero
			snapshot.Positions = append(snapshot.Positions, position)
			snapshot.Errors = append(snapshot.Errors, domain.UniqueAsset{
				Symbol:     item.Symbol,
				DataSource: item.DataSource,
			})
			snapshot.HasErrors = true
			continue
		}

		position.MarketPrice = marketPrice
		position.MarketPriceAvailable = true

		unrealizedGain := item.Quantity.Mul(marketPrice.Sub(item.AveragePrice))
		currentValue := item.Quantity.Mul(marketPrice)

		position.GrossPerformance = m.realizedGain.Add(unrealizedGain)
		position.NetPerformance = position.GrossPerformance.Sub(m.fees)
		if m.anchorInvestment.IsPositive() {
			position.GrossPerformancePercentage = position.GrossPerformance.Div(m.anchorInvestment)
			position.NetPerformancePercentage = position.NetPerformance.Div(m.anchorInvestment)
		}

		snapshot.Positions = append(snapshot.Positions, position)

		// Aggregate figures in the base currency, weighted by the anchor
		// investment rather than averaging percentages.
		snapshot.TotalInvestment = snapshot.TotalInvestment.Add(
			c.converter.Convert(position.Investment, item.Currency, baseCurrency))
		snapshot.CurrentValue = snapshot.CurrentValue.Add(
			c.converter.Convert(currentValue, item.Currency, baseCurrency))
		totalGross = totalGross.Add(
			c.converter.Convert(position.GrossPerformance, item.Currency, baseCurrency))
		totalNet = totalNet.Add(
			c.converter.Convert(position.NetPerformance, item.Currency, baseCurrency))
		totalAnchorInvestment = totalAnchorInvestment.Add(
			c.converter.Convert(m.anchorInvestment, item.Currency, baseCurrency))
	}

	snapshot.GrossPerformance = totalGross
	snapshot.NetPerformance = totalNet
	if totalAnchorInvestment.IsPositive() {
		snapshot.GrossPerformancePercentage = totalGross.Div(totalAnchorInvestment)
		snapshot.NetPerformancePercentage = totalNet.Div(totalAnchorInvestment)
	}

	return snapshot, nil
}

// lastPointBefore returns the latest transaction point at or before t
func (c *Calculator) lastPointBefore(t time.Time) *domain.TransactionPoint {
	var last *domain.TransactionPoint
	for i := range c.points {
		if c.points[i].Date.After(t) {
			break
		}
		last = &c.points[i]
	}
	return last
}

// anchor fixes the symbol's anchor point: the transaction point at or
// immediately before since that already contains the symbol. A symbol whose
// first point lies after since is its own anchor. The anchor investment is
// the percentage denominator for the whole call, regardless of later sells;
// fees and transaction counts accumulate from the anchor point inclusive.
func (c *Calculator) anchor(m *symbolMetrics, symbol string, since time.Time) {
	var (
		anchorItem *domain.TransactionPointSymbol
		anchorDate time.Time
		prevItem   *domain.TransactionPointSymbol
	)

	for i := range c.points {
		item := c.points[i].Item(symbol)
		if item == nil {
			continue
		}
		if anchorItem == nil {
			// First point containing the symbol is its own anchor when no
			// earlier point qualifies.
			anchorItem = item
			anchorDate = c.points[i].Date
			continue
		}
		if c.points[i].Date.After(since) {
			break
		}
		prevItem = anchorItem
		anchorItem = item
		anchorDate = c.points[i].Date
	}

	if anchorItem == nil {
		return
	}

	m.anchorInvestment = anchorItem.Investment
	m.anchorDate = anchorDate
	if prevItem != nil {
		m.fees = m.fees.Sub(prevItem.Fee)
		m.transactionCount -= prevItem.TransactionCount
	}
}

// accumulateRealizedGains replays the order list chronologically and credits
// each symbol with the gains locked in by sells strictly after its anchor:
// cappedQuantity x (unitPrice - averagePrice immediately before the sale).
func (c *Calculator) accumulateRealizedGains(metrics map[string]*symbolMetrics, now time.Time) {
	sorted := make([]*domain.Order, len(c.orders))
	copy(sorted, c.orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	type runningState struct {
		quantity     decimal.Decimal
		investment   decimal.Decimal
		averagePrice decimal.Decimal
	}
	states := make(map[string]*runningState)

	for _, order := range sorted {
		if order.Date.After(now) {
			break
		}
		state, ok := states[order.Symbol]
		if !ok {
			state = &runningState{
				quantity:     decimal.Zero,
				investment:   decimal.Zero,
				averagePrice: decimal.Zero,
			}
			states[order.Symbol] = state
		}

		switch order.Type {
		case domain.OrderTypeBuy:
			state.investment = state.investment.Add(order.Quantity.Mul(order.UnitPrice))
			state.quantity = state.quantity.Add(order.Quantity)
			if state.quantity.IsPositive() {
				state.averagePrice = state.investment.Div(state.quantity)
			}

		case domain.OrderTypeSell:
			sellQuantity := decimal.Min(order.Quantity, state.quantity)

			if m, tracked := metrics[order.Symbol]; tracked && order.Date.After(m.anchorDate) {
				m.realizedGain = m.realizedGain.Add(
					sellQuantity.Mul(order.UnitPrice.Sub(state.averagePrice)))
			}

			oldQuantity := state.quantity
			state.quantity = state.quantity.Sub(sellQuantity)
			if oldQuantity.IsPositive() {
				state.investment = state.investment.Mul(state.quantity).Div(oldQuantity)
			}
		}
	}
}

// fetchMarketPrices resolves a live quote per symbol through the valuator.
// Missing symbols stay absent from the returned map.
func (c *Calculator) fetchMarketPrices(ctx context.Context, items []domain.TransactionPointSymbol) map[string]decimal.Decimal {
	assets := make([]domain.UniqueAsset, 0, len(items))
	currencies := make(map[string]string, len(items))
	for _, item := range items {
		assets = append(assets, domain.UniqueAsset{Symbol: item.Symbol, DataSource: item.DataSource})
		currencies[item.Symbol] = item.Currency
	}

	values, err := c.valuator.GetValues(ctx, valuation.GetValueParams{
		Assets:     assets,
		Currencies: currencies,
	})
	if err != nil {
		c.log.Warn().Err(err).Msg("Valuation failed, treating all quotes as missing")
		return nil
	}

	prices := make(map[string]decimal.Decimal, len(values))
	for _, value := range values {
		// Live quotes carry a zero date; historical values answer other
		// questions and are skipped here.
		if value.Date.IsZero() {
			prices[value.Symbol] = value.MarketPrice
		}
	}
	return prices
}

package transactionpoint

import (
	"sort"

	"github.com/simaogato/portfolio-engine/internal/domain"
)

// Build compresses a list of orders into an ordered sequence of transaction
// points: one immutable snapshot per distinct order date, holding the
// cumulative cost-basis state of every symbol active so far.
//
// Logic per order type:
//   - BUY: investment += quantity x unitPrice; averagePrice is the
//     cost-weighted average of all buys
//   - SELL: quantity shrinks, investment shrinks proportionally (cost basis
//     per unit is preserved); a sale exceeding the held quantity is capped and
//     recorded as an oversell, never applied
//   - DIVIDEND/ITEM: transaction count only
//
// Fees accumulate per symbol across all order types.
//
// The output is deterministic: the same order list always yields the same
// sequence. Malformed input fails fast before any point is produced.
func Build(orders []*domain.Order) ([]domain.TransactionPoint, []domain.Oversell, error) {
	for _, order := range orders {
		if err := order.Validate(); err != nil {
			return nil, nil, err
		}
	}

	// Sort ascending by date. Stable keeps same-day orders in insertion order.
	sorted := make([]*domain.Order, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	var (
		points    []domain.TransactionPoint
		oversells []domain.Oversell
	)

	// Running state per symbol, plus symbol order of first appearance so the
	// emitted items are deterministic.
	states := make(map[string]*domain.TransactionPointSymbol)
	var symbolOrder []string

	for i, order := range sorted {
		state, ok := states[order.Symbol]
		if !ok {
			state = &domain.TransactionPointSymbol{
				Symbol:     order.Symbol,
				DataSource: order.DataSource,
				AccountID:  order.AccountID,
				Currency:   order.Currency,
			}
			states[order.Symbol] = state
			symbolOrder = append(symbolOrder, order.Symbol)
		}

		switch order.Type {
		case domain.OrderTypeBuy:
			state.Investment = state.Investment.Add(order.Quantity.Mul(order.UnitPrice))
			state.Quantity = state.Quantity.Add(order.Quantity)
			if state.Quantity.IsPositive() {
				state.AveragePrice = state.Investment.Div(state.Quantity)
			}
			state.TransactionCount++
			if state.FirstBuyDate.IsZero() {
				state.FirstBuyDate = order.Date
			}

		case domain.OrderTypeSell:
			sellQuantity := order.Quantity
			if sellQuantity.GreaterThan(state.Quantity) {
				oversells = append(oversells, domain.Oversell{
					Symbol:     order.Symbol,
					DataSource: order.DataSource,
					Date:       order.Date,
				})
				sellQuantity = state.Quantity
			}
			oldQuantity := state.Quantity
			state.Quantity = state.Quantity.Sub(sellQuantity)
			if oldQuantity.IsPositive() {
				// Proportional cost reduction: averagePrice is untouched.
				state.Investment = state.Investment.Mul(state.Quantity).Div(oldQuantity)
			}
			state.TransactionCount++

		case domain.OrderTypeDividend, domain.OrderTypeItem:
			// Activity accounting only.
			state.TransactionCount++
		}

		state.Fee = state.Fee.Add(order.Fee)

		// Emit one point per distinct date, after the last order of that date.
		if i+1 < len(sorted) && sorted[i+1].Date.Equal(order.Date) {
			continue
		}

		items := make([]domain.TransactionPointSymbol, 0, len(symbolOrder))
		for _, symbol := range symbolOrder {
			items = append(items, *states[symbol])
		}
		points = append(points, domain.TransactionPoint{
			Date:  order.Date,
			Items: items,
		})
	}

	return points, oversells, nil
}

package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderType represents the type of a portfolio order
type OrderType string

const (
	OrderTypeBuy      OrderType = "BUY"
	OrderTypeSell     OrderType = "SELL"
	OrderTypeDividend OrderType = "DIVIDEND"
	OrderTypeItem     OrderType = "ITEM"
)

// Order represents a single buy/sell/dividend/item activity for a security.
// Orders are immutable inputs owned by the persistence layer; the engine only
// ever reads them.
type Order struct {
	ID         uuid.UUID
	AccountID  uuid.UUID
	Symbol     string
	DataSource string
	Type       OrderType
	Date       time.Time
	Quantity   decimal.Decimal
	UnitPrice  decimal.Decimal
	Fee        decimal.Decimal
	Currency   string
}

// ValidationError signals malformed boundary input. It is fatal to the call
// that received the input; no partial computation is exposed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid order: %s %s", e.Field, e.Reason)
}

// Validate ensures the order adheres to domain rules
// Returns a *ValidationError if validation fails
func (o *Order) Validate() error {
	if o.Symbol == "" {
		return &ValidationError{Field: "symbol", Reason: "cannot be empty"}
	}

	if o.Date.IsZero() {
		return &ValidationError{Field: "date", Reason: "cannot be zero"}
	}

	switch o.Type {
	case OrderTypeBuy, OrderTypeSell, OrderTypeDividend, OrderTypeItem:
	default:
		return &ValidationError{Field: "type", Reason: "must be BUY, SELL, DIVIDEND or ITEM"}
	}

	if o.Quantity.IsNegative() {
		return &ValidationError{Field: "quantity", Reason: "cannot be negative"}
	}

	if o.UnitPrice.IsNegative() {
		return &ValidationError{Field: "unitPrice", Reason: "cannot be negative"}
	}

	if o.Fee.IsNegative() {
		return &ValidationError{Field: "fee", Reason: "cannot be negative"}
	}

	return nil
}

// UniqueAsset identifies a security across data sources
type UniqueAsset struct {
	Symbol     string
	DataSource string
}

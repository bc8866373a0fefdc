package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OrderFilter narrows the orders returned by an OrderRepository.
// Nil fields are ignored.
type OrderFilter struct {
	AccountID *uuid.UUID
	Symbols   []string
	From      *time.Time
	To        *time.Time
}

// OrderRepository defines the interface for order persistence operations
type OrderRepository interface {
	// List retrieves orders matching the filter
	// Results carry no ordering guarantee; callers sort as needed
	List(ctx context.Context, filter OrderFilter) ([]*Order, error)
}

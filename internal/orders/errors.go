package orders

import (
	"errors"
	"fmt"
)

// ErrOrderNotFound covers both unknown ids and soft-deleted orders.
var ErrOrderNotFound = errors.New("order not found")

// StockError rejects a single requested item: the product does not exist or
// its stock cannot cover the requested quantity. Nothing is committed when
// one of these is returned.
//
// Index is the item's position in the request for fresh reservations, or -1
// when the failure concerns a line item already on the order (updates), in
// which case ProductID identifies it.
type StockError struct {
	Index     int    `json:"index"`
	ProductID string `json:"product_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock or invalid product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// ProcessingError wraps any non-validation failure (storage down, tx abort).
// The transaction is rolled back before one of these is returned.
type ProcessingError struct {
	Op  string
	Err error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("order %s failed: %v", e.Op, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

package orders

import "context"

// Tx is the set of storage operations available inside one atomic unit.
// Product rows returned by FindProductsForUpdate stay locked until the
// enclosing transaction ends, so read-then-adjust on stock is safe against
// concurrent reservations of the same product.
type Tx interface {
	// FindProductsForUpdate locks the product rows and returns stock by id.
	// Ids absent from the result do not exist.
	FindProductsForUpdate(ctx context.Context, ids []string) (map[string]int, error)
	// AdjustProductStock applies stock = stock + delta (delta may be negative).
	AdjustProductStock(ctx context.Context, productID string, delta int) error

	InsertOrder(ctx context.Context, o *Order) error
	// GetOrder returns an active order without its items, or ErrOrderNotFound.
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	MarkOrderDeleted(ctx context.Context, orderID string) error

	ListLineItems(ctx context.Context, orderID string) ([]LineItem, error)
	AddLineItem(ctx context.Context, orderID, productID string, qty int) error
	UpdateLineItemQuantity(ctx context.Context, orderID, productID string, qty int) error
	RemoveLineItem(ctx context.Context, orderID, productID string) error
}

// Store gives the service transactional access plus the plain reads the API
// layer needs. WithinTx commits when fn returns nil and rolls everything
// back otherwise.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	// GetOrder returns an active order with its line items loaded.
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	// ListOrdersByUser returns the user's active orders, newest first.
	ListOrdersByUser(ctx context.Context, userID string, limit, offset int) ([]Order, error)
}

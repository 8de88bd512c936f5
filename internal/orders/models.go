package orders

import "time"

// LineItem is one (product, quantity) reservation belonging to an order.
type LineItem struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type Order struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Status    Status     `json:"status"`
	Items     []LineItem `json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ItemInput is a requested (product, quantity) pair. Quantities are
// validated positive by the HTTP layer before they reach the service.
type ItemInput struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

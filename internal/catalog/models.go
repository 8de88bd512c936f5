package catalog

import "time"

type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Product struct {
	ID           string    `json:"id"`
	CategoryID   string    `json:"category_id"`
	CategoryName string    `json:"category_name,omitempty"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	PriceCents   int       `json:"price_cents"`
	Stock        int       `json:"stock"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Filter narrows a product listing. Zero values mean "no constraint";
// filtered listings skip the cache and hit the database directly.
type Filter struct {
	Name     string
	PriceMin int // cents
	PriceMax int // cents
	Page     int
	PageSize int
}

func (f Filter) Filtered() bool {
	return f.Name != "" || f.PriceMin > 0 || f.PriceMax > 0
}

func (f Filter) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

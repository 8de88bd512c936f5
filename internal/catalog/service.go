package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/danisworo/go-commerce-api/internal/redisx"
)

// Cache is the small slice of Redis the service uses. Misses and errors are
// indistinguishable on purpose; the database stays the source of truth.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, val string, ttl time.Duration)
	Del(ctx context.Context, keys ...string)
}

// Service fronts the product/category store. Unfiltered product listings are
// cached per page; staleness is bounded by the TTL. Filtered listings always
// go to the database.
type Service struct {
	Store    Store
	Cache    Cache
	PageSize int

	group singleflight.Group
}

func (s *Service) ListProducts(ctx context.Context, f Filter) ([]Product, error) {
	if f.PageSize <= 0 {
		f.PageSize = s.PageSize
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Filtered() || s.Cache == nil {
		return s.Store.ListProducts(ctx, f)
	}

	key := fmt.Sprintf(redisx.KeyProductsPage, f.Page)
	if raw, ok := s.Cache.Get(ctx, key); ok {
		var out []Product
		if err := json.Unmarshal([]byte(raw), &out); err == nil {
			return out, nil
		}
		// poisoned entry, drop it and fall through
		s.Cache.Del(ctx, key)
	}

	// collapse concurrent misses for the same page into one query
	v, err, _ := s.group.Do(key, func() (any, error) {
		out, err := s.Store.ListProducts(ctx, f)
		if err != nil {
			return nil, err
		}
		if b, err := json.Marshal(out); err == nil {
			s.Cache.Set(ctx, key, string(b), redisx.TTLProductsPage)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Product), nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (*Product, error) {
	return s.Store.GetProduct(ctx, id)
}

func (s *Service) CreateProduct(ctx context.Context, p *Product) error {
	return s.Store.CreateProduct(ctx, p)
}

func (s *Service) UpdateProduct(ctx context.Context, p *Product) error {
	return s.Store.UpdateProduct(ctx, p)
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	return s.Store.DeleteProduct(ctx, id)
}

func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.Store.ListCategories(ctx)
}

func (s *Service) GetCategory(ctx context.Context, id string) (*Category, error) {
	return s.Store.GetCategory(ctx, id)
}

func (s *Service) CreateCategory(ctx context.Context, c *Category) error {
	return s.Store.CreateCategory(ctx, c)
}

func (s *Service) UpdateCategory(ctx context.Context, c *Category) error {
	return s.Store.UpdateCategory(ctx, c)
}

func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	return s.Store.DeleteCategory(ctx, id)
}

package catalog

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")

// Store is what the service and handlers need from persistence.
type Store interface {
	ListProducts(ctx context.Context, f Filter) ([]Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	CreateProduct(ctx context.Context, p *Product) error
	UpdateProduct(ctx context.Context, p *Product) error
	DeleteProduct(ctx context.Context, id string) error

	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, id string) (*Category, error)
	CreateCategory(ctx context.Context, c *Category) error
	UpdateCategory(ctx context.Context, c *Category) error
	DeleteCategory(ctx context.Context, id string) error
}

type Repo struct{ DB *pgxpool.Pool }

const productCols = `p.id, p.category_id, COALESCE(c.name,''), p.name, p.description,
	p.price_cents, p.stock, p.created_at, p.updated_at`

func (r *Repo) ListProducts(ctx context.Context, f Filter) ([]Product, error) {
	q := `SELECT ` + productCols + `
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.deleted_at IS NULL`
	args := []any{}
	if f.Name != "" {
		args = append(args, "%"+f.Name+"%")
		q += ` AND p.name ILIKE $` + itoa(len(args))
	}
	if f.PriceMin > 0 {
		args = append(args, f.PriceMin)
		q += ` AND p.price_cents >= $` + itoa(len(args))
	}
	if f.PriceMax > 0 {
		args = append(args, f.PriceMax)
		q += ` AND p.price_cents <= $` + itoa(len(args))
	}
	args = append(args, f.PageSize)
	q += ` ORDER BY p.created_at DESC LIMIT $` + itoa(len(args))
	args = append(args, f.Offset())
	q += ` OFFSET $` + itoa(len(args))

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.CategoryID, &p.CategoryName, &p.Name, &p.Description,
			&p.PriceCents, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) GetProduct(ctx context.Context, id string) (*Product, error) {
	var p Product
	err := r.DB.QueryRow(ctx, `SELECT `+productCols+`
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.id=$1 AND p.deleted_at IS NULL`, id).
		Scan(&p.ID, &p.CategoryID, &p.CategoryName, &p.Name, &p.Description,
			&p.PriceCents, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repo) CreateProduct(ctx context.Context, p *Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	_, err := r.DB.Exec(ctx, `
		INSERT INTO products(id, category_id, name, description, price_cents, stock, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.CategoryID, p.Name, p.Description, p.PriceCents, p.Stock, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *Repo) UpdateProduct(ctx context.Context, p *Product) error {
	p.UpdatedAt = time.Now().UTC()
	ct, err := r.DB.Exec(ctx, `
		UPDATE products SET category_id=$2, name=$3, description=$4, price_cents=$5, stock=$6, updated_at=$7
		WHERE id=$1 AND deleted_at IS NULL`,
		p.ID, p.CategoryID, p.Name, p.Description, p.PriceCents, p.Stock, p.UpdatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) DeleteProduct(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE products SET deleted_at=now() WHERE id=$1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) GetCategory(ctx context.Context, id string) (*Category, error) {
	var c Category
	err := r.DB.QueryRow(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM categories WHERE id=$1`, id).
		Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repo) CreateCategory(ctx context.Context, c *Category) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	_, err := r.DB.Exec(ctx, `
		INSERT INTO categories(id, name, description, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5)`,
		c.ID, c.Name, c.Description, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *Repo) UpdateCategory(ctx context.Context, c *Category) error {
	c.UpdatedAt = time.Now().UTC()
	ct, err := r.DB.Exec(ctx, `
		UPDATE categories SET name=$2, description=$3, updated_at=$4 WHERE id=$1`,
		c.ID, c.Name, c.Description, c.UpdatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) DeleteCategory(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM categories WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func itoa(n int) string { return strconv.Itoa(n) }

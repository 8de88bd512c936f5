package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore backs the service with Postgres. Row locks taken by
// FindProductsForUpdate serialize concurrent operations on the same
// products; operations on disjoint products do not contend.
type PGStore struct{ DB *pgxpool.Pool }

func (s *PGStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PGStore) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var o Order
	err := s.DB.QueryRow(ctx, `
		SELECT id, user_id, status, created_at, updated_at
		FROM orders WHERE id=$1 AND status='ACTIVE'`, orderID).
		Scan(&o.ID, &o.UserID, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.Query(ctx, `
		SELECT product_id, quantity FROM order_products WHERE order_id=$1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var li LineItem
		if err := rows.Scan(&li.ProductID, &li.Qty); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, li)
	}
	return &o, rows.Err()
}

func (s *PGStore) ListOrdersByUser(ctx context.Context, userID string, limit, offset int) ([]Order, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, user_id, status, created_at, updated_at
		FROM orders
		WHERE user_id=$1 AND status='ACTIVE'
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		lis, err := s.listItems(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = lis
	}
	return out, nil
}

func (s *PGStore) listItems(ctx context.Context, orderID string) ([]LineItem, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT product_id, quantity FROM order_products WHERE order_id=$1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LineItem
	for rows.Next() {
		var li LineItem
		if err := rows.Scan(&li.ProductID, &li.Qty); err != nil {
			return nil, err
		}
		out = append(out, li)
	}
	return out, rows.Err()
}

type pgTx struct{ tx pgx.Tx }

func (t *pgTx) FindProductsForUpdate(ctx context.Context, ids []string) (map[string]int, error) {
	out := map[string]int{}
	if len(ids) == 0 {
		return out, nil
	}
	// ORDER BY id keeps lock acquisition order stable across transactions.
	rows, err := t.tx.Query(ctx, `
		SELECT id, stock FROM products
		WHERE id = ANY($1) AND deleted_at IS NULL
		ORDER BY id
		FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var stock int
		if err := rows.Scan(&id, &stock); err != nil {
			return nil, err
		}
		out[id] = stock
	}
	return out, rows.Err()
}

func (t *pgTx) AdjustProductStock(ctx context.Context, productID string, delta int) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = now() WHERE id=$1`, productID, delta)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return errors.New("product vanished mid-transaction: " + productID)
	}
	return nil
}

func (t *pgTx) InsertOrder(ctx context.Context, o *Order) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO orders(id, user_id, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5)`,
		o.ID, o.UserID, o.Status, o.CreatedAt, o.UpdatedAt)
	return err
}

func (t *pgTx) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var o Order
	err := t.tx.QueryRow(ctx, `
		SELECT id, user_id, status, created_at, updated_at
		FROM orders WHERE id=$1 AND status='ACTIVE'
		FOR UPDATE`, orderID).
		Scan(&o.ID, &o.UserID, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (t *pgTx) MarkOrderDeleted(ctx context.Context, orderID string) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE orders SET status='DELETED', updated_at=now() WHERE id=$1`, orderID)
	return err
}

func (t *pgTx) ListLineItems(ctx context.Context, orderID string) ([]LineItem, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT product_id, quantity FROM order_products
		WHERE order_id=$1 ORDER BY product_id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LineItem
	for rows.Next() {
		var li LineItem
		if err := rows.Scan(&li.ProductID, &li.Qty); err != nil {
			return nil, err
		}
		out = append(out, li)
	}
	return out, rows.Err()
}

func (t *pgTx) AddLineItem(ctx context.Context, orderID, productID string, qty int) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO order_products(order_id, product_id, quantity)
		VALUES ($1,$2,$3)`, orderID, productID, qty)
	return err
}

func (t *pgTx) UpdateLineItemQuantity(ctx context.Context, orderID, productID string, qty int) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE order_products SET quantity=$3
		WHERE order_id=$1 AND product_id=$2`, orderID, productID, qty)
	return err
}

func (t *pgTx) RemoveLineItem(ctx context.Context, orderID, productID string) error {
	_, err := t.tx.Exec(ctx, `
		DELETE FROM order_products WHERE order_id=$1 AND product_id=$2`, orderID, productID)
	return err
}

package cart

import (
	"context"
	"database/sql"
	"fmt"
)

// Store is the cart data the product-change handlers mutate. Every method is
// idempotent: applying the same change twice leaves the same rows.
type Store interface {
	RemoveItemsByProduct(ctx context.Context, productID string) (int64, error)
	UpdateStock(ctx context.Context, productID string, stock int) (int64, error)
	UpdatePrice(ctx context.Context, productID string, price float64) (int64, error)
	UpdateName(ctx context.Context, productID, name string) (int64, error)
	ItemsByProduct(ctx context.Context, productID string) ([]Item, error)
}

type postgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) Store {
	return &postgresStore{db: db}
}

func (s *postgresStore) RemoveItemsByProduct(ctx context.Context, productID string) (int64, error) {
	const q = `DELETE FROM cart_items WHERE product_id = $1`
	return s.exec(ctx, "remove items", q, productID)
}

// UpdateStock also clamps quantities so no line asks for more than is left.
func (s *postgresStore) UpdateStock(ctx context.Context, productID string, stock int) (int64, error) {
	const q = `UPDATE cart_items
SET stock = $2, quantity = LEAST(quantity, $2), updated_at = NOW()
WHERE product_id = $1`
	return s.exec(ctx, "update stock", q, productID, stock)
}

func (s *postgresStore) UpdatePrice(ctx context.Context, productID string, price float64) (int64, error) {
	const q = `UPDATE cart_items SET price = $2, updated_at = NOW() WHERE product_id = $1`
	return s.exec(ctx, "update price", q, productID, price)
}

func (s *postgresStore) UpdateName(ctx context.Context, productID, name string) (int64, error) {
	const q = `UPDATE cart_items SET product_name = $2, updated_at = NOW() WHERE product_id = $1`
	return s.exec(ctx, "update name", q, productID, name)
}

func (s *postgresStore) ItemsByProduct(ctx context.Context, productID string) ([]Item, error) {
	const q = `SELECT id, cart_id, product_id, product_name, price, stock, quantity, updated_at
FROM cart_items WHERE product_id = $1 ORDER BY cart_id`

	rows, err := s.db.QueryContext(ctx, q, productID)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.CartID, &it.ProductID, &it.ProductName,
			&it.Price, &it.Stock, &it.Quantity, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

func (s *postgresStore) exec(ctx context.Context, op, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: rows affected: %w", op, err)
	}
	return n, nil
}

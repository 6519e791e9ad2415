package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Executor is the subset of pgx used by the store; *pgxpool.Pool and pgx.Tx satisfy it.
type Executor interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type Store interface {
	Get(ctx context.Context, id string) (*Product, error)
	UpdateStock(ctx context.Context, id string, stock int) error
	UpdatePrice(ctx context.Context, id string, price float64) error
	UpdateName(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id string) error
}

type PostgresStore struct {
	executor Executor
}

func NewPostgresStore(exec Executor) *PostgresStore {
	return &PostgresStore{executor: exec}
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Product, error) {
	var p Product
	err := s.executor.QueryRow(ctx, `
		SELECT id, name, price::float8, stock, updated_at
		FROM products WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select product: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) UpdateStock(ctx context.Context, id string, stock int) error {
	return s.exec(ctx, "update stock",
		`UPDATE products SET stock = $2, updated_at = NOW() WHERE id = $1`, id, stock)
}

func (s *PostgresStore) UpdatePrice(ctx context.Context, id string, price float64) error {
	return s.exec(ctx, "update price",
		`UPDATE products SET price = $2, updated_at = NOW() WHERE id = $1`, id, price)
}

func (s *PostgresStore) UpdateName(ctx context.Context, id, name string) error {
	return s.exec(ctx, "update name",
		`UPDATE products SET name = $2, updated_at = NOW() WHERE id = $1`, id, name)
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	return s.exec(ctx, "delete product", `DELETE FROM products WHERE id = $1`, id)
}

// exec runs a single-row statement and maps zero affected rows to ErrNotFound.
func (s *PostgresStore) exec(ctx context.Context, op, sql string, args ...any) error {
	tag, err := s.executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

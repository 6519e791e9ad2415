package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrNotFound = errors.New("order not found")

// Executor is the subset of pgx used by the store; *pgxpool.Pool and pgx.Tx satisfy it.
type Executor interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type Store interface {
	Amount(ctx context.Context, orderID string) (float64, error)
	MarkPaid(ctx context.Context, orderID string) (bool, error)
	Get(ctx context.Context, orderID string) (*Order, error)
}

type PostgresStore struct {
	executor Executor
}

func NewPostgresStore(exec Executor) *PostgresStore {
	return &PostgresStore{executor: exec}
}

// Amount returns the order total, or ErrNotFound.
func (s *PostgresStore) Amount(ctx context.Context, orderID string) (float64, error) {
	var amount float64
	err := s.executor.QueryRow(ctx,
		`SELECT total_amount::float8 FROM orders WHERE id = $1`, orderID).Scan(&amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("select amount: %w", err)
	}
	return amount, nil
}

// MarkPaid moves the order to paid. It reports false when the order was
// already paid, so a redelivered event changes nothing. Missing orders give ErrNotFound.
func (s *PostgresStore) MarkPaid(ctx context.Context, orderID string) (bool, error) {
	tag, err := s.executor.Exec(ctx, `
		UPDATE orders
		SET status = 'paid', paid_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status <> 'paid'
	`, orderID)
	if err != nil {
		return false, fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	if _, err := s.Get(ctx, orderID); err != nil {
		return false, err
	}
	return false, nil
}

func (s *PostgresStore) Get(ctx context.Context, orderID string) (*Order, error) {
	var o Order
	var status string
	err := s.executor.QueryRow(ctx, `
		SELECT id, user_id, total_amount::float8, status, paid_at, created_at
		FROM orders WHERE id = $1
	`, orderID).Scan(&o.ID, &o.UserID, &o.TotalAmount, &status, &o.PaidAt, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select order: %w", err)
	}
	o.Status = Status(status)
	return &o, nil
}

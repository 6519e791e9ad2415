package order

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresStore(mock), mock
}

func TestStoreAmount(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT total_amount::float8 FROM orders WHERE id = $1`)).
		WithArgs("o1").
		WillReturnRows(pgxmock.NewRows([]string{"total_amount"}).AddRow(150000.0))

	amount, err := store.Amount(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, 150000.0, amount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreAmount_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT total_amount::float8 FROM orders WHERE id = $1`)).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.Amount(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreAmount_QueryError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT total_amount::float8 FROM orders WHERE id = $1`)).
		WithArgs("o1").
		WillReturnError(errors.New("conn lost"))

	_, err := store.Amount(context.Background(), "o1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestStoreMarkPaid_Transitions(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`WHERE id = $1 AND status <> 'paid'`)).
		WithArgs("o1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	changed, err := store.MarkPaid(context.Background(), "o1")
	require.NoError(t, err)
	assert.True(t, changed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreMarkPaid_AlreadyPaid(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()
	paidAt := now

	mock.ExpectExec(regexp.QuoteMeta(`WHERE id = $1 AND status <> 'paid'`)).
		WithArgs("o1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM orders WHERE id = $1`)).
		WithArgs("o1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "total_amount", "status", "paid_at", "created_at"}).
			AddRow("o1", "u1", 150000.0, "paid", &paidAt, now))

	changed, err := store.MarkPaid(context.Background(), "o1")
	require.NoError(t, err)
	assert.False(t, changed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreMarkPaid_UnknownOrder(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`WHERE id = $1 AND status <> 'paid'`)).
		WithArgs("ghost").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM orders WHERE id = $1`)).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.MarkPaid(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

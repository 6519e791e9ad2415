package cart

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRemoveItemsByProduct(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM cart_items WHERE product_id = $1`)).
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := NewPostgresStore(db).RemoveItemsByProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreUpdateStock_ClampsQuantity(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE cart_items
SET stock = $2, quantity = LEAST(quantity, $2), updated_at = NOW()
WHERE product_id = $1`)).
		WithArgs("p1", 5).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := NewPostgresStore(db).UpdateStock(context.Background(), "p1", 5)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreUpdatePrice(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE cart_items SET price = $2, updated_at = NOW() WHERE product_id = $1`)).
		WithArgs("p1", 12.5).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err = NewPostgresStore(db).UpdatePrice(context.Background(), "p1", 12.5)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreUpdateName_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE cart_items SET product_name = $2, updated_at = NOW() WHERE product_id = $1`)).
		WithArgs("p1", "New").
		WillReturnError(errors.New("update failed"))

	_, err = NewPostgresStore(db).UpdateName(context.Background(), "p1", "New")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update name")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreItemsByProduct(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "cart_id", "product_id", "product_name", "price", "stock", "quantity", "updated_at"}).
		AddRow("i1", "c1", "p1", "Phone", 10.0, 4, 2, now).
		AddRow("i2", "c2", "p1", "Phone", 10.0, 4, 1, now)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, cart_id, product_id, product_name, price, stock, quantity, updated_at
FROM cart_items WHERE product_id = $1 ORDER BY cart_id`)).
		WithArgs("p1").
		WillReturnRows(rows)

	items, err := NewPostgresStore(db).ItemsByProduct(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "c1", items[0].CartID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, "Phone", items[1].ProductName)
	require.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/pharmadirect/pharmacy-backend/models"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
	require.NoError(t, err)
	return db, mock
}

func TestFindByIDReturnsNilWhenAbsent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormOrderRepository(db)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders" WHERE id = $1`)).
		WithArgs(id, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	order, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, order, "missing order is (nil, nil), not an error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDLoadsOrderWithItems(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormOrderRepository(db)
	orderID := uuid.New()
	itemID := uuid.New()
	productID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders" WHERE id = $1`)).
		WithArgs(orderID, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "status", "total_amount"}).
			AddRow(orderID, "user-1", "PaymentReceived", int64(4500)))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "order_items" WHERE "order_items"."order_id" = $1`)).
		WithArgs(orderID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "product_id", "product_name", "quantity", "unit_price", "rx_required"}).
			AddRow(itemID, orderID, productID, "Amoxicillin 500mg", 3, int64(1500), true))

	order, err := repo.FindByID(context.Background(), orderID)
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, models.StatusPaymentReceived, order.Status)
	assert.Equal(t, int64(4500), order.TotalAmount)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Amoxicillin 500mg", order.Items[0].ProductName)
	assert.True(t, order.RequiresPrescription())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindBySessionIDReturnsNilWhenAbsent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormOrderRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders" WHERE session_id = $1`)).
		WithArgs("cs_test_unknown", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	order, err := repo.FindBySessionID(context.Background(), "cs_test_unknown")
	require.NoError(t, err)
	assert.Nil(t, order)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHasPendingCountsPendingOnly(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormPrescriptionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "prescriptions" WHERE status = $1`)).
		WithArgs("Pending").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(2)))

	pending, err := repo.HasPending(context.Background())
	require.NoError(t, err)
	assert.True(t, pending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

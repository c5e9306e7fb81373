package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cloudpos/backend/internal/domain/sales"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestGormOrderRepository_FindByClientRef(t *testing.T) {
	t.Run("loads lines and payments", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()
		repo := NewGormOrderRepository(gormDB)

		tenantID, branchID, orderID := uuid.New(), uuid.New(), uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "orders" WHERE tenant_id = \$1 AND client_ref = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(tenantID, "pos-7f3a", 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "branch_id", "invoice_number", "client_ref", "status", "grand_total"}).
				AddRow(orderID, tenantID, branchID, "INV-COL-000007", "pos-7f3a", "COMPLETED", "1200.00"))
		mock.ExpectQuery(`SELECT \* FROM "order_lines" WHERE "order_lines"."order_id" = \$1 ORDER BY line_no`).
			WithArgs(orderID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "line_no", "variant_id", "product_name", "quantity", "unit_price", "line_total"}).
				AddRow(uuid.New(), orderID, 1, uuid.New(), "Ceylon Tea", "1", "1200.00", "1200.00"))
		mock.ExpectQuery(`SELECT \* FROM "order_payments" WHERE "order_payments"."order_id" = \$1`).
			WithArgs(orderID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "method", "amount"}).
				AddRow(uuid.New(), orderID, "CASH", "1200.00"))

		order, err := repo.FindByClientRef(context.Background(), tenantID, "pos-7f3a")

		require.NoError(t, err)
		assert.Equal(t, "INV-COL-000007", order.InvoiceNumber)
		assert.Equal(t, branchID, order.BranchID)
		assert.Equal(t, sales.OrderStatusCompleted, order.Status)
		require.Len(t, order.Lines, 1)
		assert.Equal(t, "Ceylon Tea", order.Lines[0].ProductName)
		require.Len(t, order.Payments, 1)
		assert.Equal(t, sales.PaymentCash, order.Payments[0].Method)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown reference", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()
		repo := NewGormOrderRepository(gormDB)

		mock.ExpectQuery(`SELECT \* FROM "orders"`).WillReturnError(gorm.ErrRecordNotFound)

		_, err := repo.FindByClientRef(context.Background(), uuid.New(), "missing")
		assert.Equal(t, shared.ErrNotFound, err)
	})
}

func TestGormOrderRepository_CountPending(t *testing.T) {
	gormDB, mock, mockDB := newMockGorm(t)
	defer mockDB.Close()
	repo := NewGormOrderRepository(gormDB)

	tenantID, branchID := uuid.New(), uuid.New()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "orders" WHERE tenant_id = \$1 AND branch_id = \$2 AND status = \$3`).
		WithArgs(tenantID, branchID, "PENDING_PAYMENT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := repo.CountPending(context.Background(), tenantID, branchID)

	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOrderRepository_FindStalePending(t *testing.T) {
	gormDB, mock, mockDB := newMockGorm(t)
	defer mockDB.Close()
	repo := NewGormOrderRepository(gormDB)

	cutoff := time.Now().Add(-30 * time.Minute)
	mock.ExpectQuery(`SELECT \* FROM "orders" WHERE status = \$1 AND created_at < \$2 ORDER BY created_at LIMIT \$3`).
		WithArgs("PENDING_PAYMENT", cutoff, 50).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	orders, err := repo.FindStalePending(context.Background(), cutoff, 50)

	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func voidedOrder(t *testing.T) *sales.Order {
	t.Helper()
	o, err := sales.NewOrder(sales.OrderInput{
		TenantID:  uuid.New(),
		BranchID:  uuid.New(),
		CashierID: uuid.New(),
		Lines:     []sales.LineInput{{VariantID: uuid.New(), ProductName: "Ceylon Tea", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(1200)}},
		Payments:  []sales.OrderPayment{{Method: sales.PaymentCash, Amount: decimal.NewFromInt(1200)}},
	})
	require.NoError(t, err)
	require.NoError(t, o.Void("wrong item", time.Now(), time.UTC, false))
	require.Equal(t, 2, o.Version)
	return o
}

func TestGormOrderRepository_Save(t *testing.T) {
	t.Run("updates when the stored version matches", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()
		repo := NewGormOrderRepository(gormDB)
		o := voidedOrder(t)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "orders" SET .* WHERE tenant_id = \$\d+ AND id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO "order_payments" .* ON CONFLICT \("id"\) DO UPDATE SET "reference"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.Save(context.Background(), o))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("a second void from a stale copy is rejected", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()
		repo := NewGormOrderRepository(gormDB)
		o := voidedOrder(t)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "orders" SET .* WHERE tenant_id = \$\d+ AND id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.Save(context.Background(), o)

		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cloudpos/backend/internal/domain/inventory"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newStockItem(t *testing.T, qty int64) *inventory.StockItem {
	item, err := inventory.NewStockItem(uuid.New(), uuid.New(), uuid.New())
	require.NoError(t, err)
	item.Quantity = decimal.NewFromInt(qty)
	return item
}

func TestGormInventoryRepository_Save(t *testing.T) {
	t.Run("updates when the version matches", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()
		repo := NewGormInventoryRepository(gormDB)

		item := newStockItem(t, 10)
		_, err := item.Change(decimal.NewFromInt(-3), inventory.MovementSale, "INV-COL-000001", "", nil, false)
		require.NoError(t, err)

		mock.ExpectExec(`UPDATE "stock_items" SET .* WHERE .*version = `).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Save(context.Background(), item))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports a conflict when another writer got there first", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()
		repo := NewGormInventoryRepository(gormDB)

		item := newStockItem(t, 10)
		item.IncrementVersion()

		mock.ExpectExec(`UPDATE "stock_items"`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT count\(\*\) FROM "stock_items" WHERE id = \$1`).
			WithArgs(item.ID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		err := repo.Save(context.Background(), item)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "OPTIMISTIC_LOCK_ERROR", domainErr.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormInventoryRepository_Get(t *testing.T) {
	gormDB, mock, mockDB := newMockGorm(t)
	defer mockDB.Close()
	repo := NewGormInventoryRepository(gormDB)

	tenantID, branchID, variantID := uuid.New(), uuid.New(), uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "stock_items" WHERE tenant_id = \$1 AND branch_id = \$2 AND variant_id = \$3`).
		WithArgs(tenantID, branchID, variantID, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "branch_id", "variant_id", "quantity", "reorder_level", "version"}).
			AddRow(uuid.New(), tenantID, branchID, variantID, "12.500", "5.000", 7))

	item, err := repo.Get(context.Background(), tenantID, branchID, variantID)

	require.NoError(t, err)
	assert.Equal(t, branchID, item.BranchID)
	assert.True(t, item.Quantity.Equal(decimal.RequireFromString("12.5")))
	assert.False(t, item.IsLow())
	assert.Equal(t, 7, item.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormInventoryRepository_GetForUpdate_ExistingRow(t *testing.T) {
	gormDB, mock, mockDB := newMockGorm(t)
	defer mockDB.Close()
	repo := NewGormInventoryRepository(gormDB)

	tenantID, branchID, variantID := uuid.New(), uuid.New(), uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "stock_items" WHERE .* FOR UPDATE`).
		WithArgs(tenantID, branchID, variantID, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "branch_id", "variant_id", "quantity"}).
			AddRow(uuid.New(), tenantID, branchID, variantID, "3"))

	item, err := repo.GetForUpdate(context.Background(), tenantID, branchID, variantID)

	require.NoError(t, err)
	assert.True(t, item.Quantity.Equal(decimal.NewFromInt(3)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormInventoryRepository_List(t *testing.T) {
	gormDB, mock, mockDB := newMockGorm(t)
	defer mockDB.Close()
	repo := NewGormInventoryRepository(gormDB)

	tenantID := uuid.New()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "stock_items" WHERE stock_items.tenant_id = \$1 AND \(stock_items.reorder_level > 0 AND stock_items.quantity <= stock_items.reorder_level\)`).
		WithArgs(tenantID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT \* FROM "stock_items"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	items, total, err := repo.List(context.Background(), tenantID, inventory.StockFilter{LowOnly: true})

	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormInventoryRepository_NotFound(t *testing.T) {
	gormDB, mock, mockDB := newMockGorm(t)
	defer mockDB.Close()
	repo := NewGormInventoryRepository(gormDB)

	mock.ExpectQuery(`SELECT \* FROM "stock_items"`).WillReturnError(gorm.ErrRecordNotFound)

	_, err := repo.FindByID(context.Background(), uuid.New(), uuid.New())
	assert.Equal(t, shared.ErrNotFound, err)
}

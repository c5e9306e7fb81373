package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var variantViewCols = []string{
	"id", "tenant_id", "product_id", "sku", "barcode", "variation_name", "attributes",
	"cost_price", "retail_price", "price_tiers", "is_active",
	"product_name", "category", "unit", "track_stock", "image_key", "product_active",
}

func TestGormProductRepository_FindVariantBySKU(t *testing.T) {
	t.Run("returns the joined view", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()
		repo := NewGormProductRepository(gormDB)

		tenantID, variantID, productID := uuid.New(), uuid.New(), uuid.New()
		mock.ExpectQuery(`SELECT v\.\*, p\.name AS product_name.* FROM product_variants v JOIN products p ON p\.id = v\.product_id WHERE v\.tenant_id = \$1 AND v\.sku = \$2 LIMIT \$3`).
			WithArgs(tenantID, "TEA-400G", 1).
			WillReturnRows(sqlmock.NewRows(variantViewCols).AddRow(
				variantID, tenantID, productID, "TEA-400G", "4791234567890", "400g", `{"weight":"400g"}`,
				"850.00", "1100.00", `[{"name":"wholesale","min_qty":"12","price":"1000"}]`, true,
				"Ceylon Tea", "Beverages", "pcs", true, "", true))

		v, err := repo.FindVariantBySKU(context.Background(), tenantID, "TEA-400G")

		require.NoError(t, err)
		assert.Equal(t, variantID, v.ID)
		assert.Equal(t, "Ceylon Tea", v.ProductName)
		assert.Equal(t, "400g", v.Attributes["weight"])
		require.Len(t, v.PriceTiers, 1)
		assert.True(t, v.Sellable())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty result is ErrNotFound", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()
		repo := NewGormProductRepository(gormDB)

		mock.ExpectQuery(`FROM product_variants v`).WillReturnRows(sqlmock.NewRows(variantViewCols))

		v, err := repo.FindVariantBySKU(context.Background(), uuid.New(), "NOPE")
		assert.Nil(t, v)
		assert.Equal(t, shared.ErrNotFound, err)
	})
}

func TestGormProductRepository_SKUExists(t *testing.T) {
	gormDB, mock, mockDB := newMockGorm(t)
	defer mockDB.Close()
	repo := NewGormProductRepository(gormDB)

	tenantID, self := uuid.New(), uuid.New()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "product_variants" WHERE \(tenant_id = \$1 AND sku = \$2\) AND id <> \$3`).
		WithArgs(tenantID, "TEA-400G", self).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	exists, err := repo.SKUExists(context.Background(), tenantID, "TEA-400G", self)

	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormProductRepository_BarcodeExists_Empty(t *testing.T) {
	gormDB, mock, mockDB := newMockGorm(t)
	defer mockDB.Close()
	repo := NewGormProductRepository(gormDB)

	exists, err := repo.BarcodeExists(context.Background(), uuid.New(), "", uuid.Nil)

	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormProductRepository_RenameCategory(t *testing.T) {
	gormDB, mock, mockDB := newMockGorm(t)
	defer mockDB.Close()
	repo := NewGormProductRepository(gormDB)

	tenantID := uuid.New()
	mock.ExpectExec(`UPDATE "products" SET "category"=\$1,"updated_at"=\$2 WHERE tenant_id = \$3 AND category = \$4`).
		WithArgs("Drinks", sqlmock.AnyArg(), tenantID, "Beverages").
		WillReturnResult(sqlmock.NewResult(0, 12))

	assert.NoError(t, repo.RenameCategory(context.Background(), tenantID, "Beverages", "Drinks"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockGorm opens GORM over a sqlmock connection
func newMockGorm(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func TestDatabase_Stats(t *testing.T) {
	gormDB, _, mockDB := newMockGorm(t)
	defer mockDB.Close()

	db := &Database{DB: gormDB}
	stats, err := db.Stats()

	assert.NoError(t, err)
	assert.IsType(t, ConnectionStats{}, stats)
}

func TestDatabase_Ping(t *testing.T) {
	gormDB, mock, mockDB := newMockGorm(t)
	defer mockDB.Close()

	db := &Database{DB: gormDB}
	assert.NoError(t, db.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_Close(t *testing.T) {
	gormDB, mock, _ := newMockGorm(t)
	mock.ExpectClose()

	db := &Database{DB: gormDB}
	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormTxManager_WithinTx(t *testing.T) {
	type TestModel struct {
		ID   uint
		Name string
	}

	t.Run("commits and exposes the transaction through ctx", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO "test_models"`).
			WithArgs("test").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectCommit()

		tm := NewGormTxManager(gormDB)
		err := tm.WithinTx(context.Background(), func(ctx context.Context) error {
			assert.True(t, InTx(ctx))
			return conn(ctx, gormDB).Create(&TestModel{Name: "test"}).Error
		})

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		tm := NewGormTxManager(gormDB)
		err := tm.WithinTx(context.Background(), func(ctx context.Context) error {
			return assert.AnError
		})

		assert.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nested calls join the outer transaction", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectCommit()

		tm := NewGormTxManager(gormDB)
		calls := 0
		err := tm.WithinTx(context.Background(), func(ctx context.Context) error {
			return tm.WithinTx(ctx, func(inner context.Context) error {
				calls++
				return nil
			})
		})

		assert.NoError(t, err)
		assert.Equal(t, 1, calls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("outside a transaction conn uses the pool", func(t *testing.T) {
		gormDB, _, mockDB := newMockGorm(t)
		defer mockDB.Close()

		assert.False(t, InTx(context.Background()))
		assert.NotNil(t, conn(context.Background(), gormDB))
	})
}

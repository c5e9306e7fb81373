package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cloudpos/backend/internal/domain/identity"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newMockUserRepository(t *testing.T) (*GormUserRepository, sqlmock.Sqlmock, func()) {
	gormDB, mock, mockDB := newMockGorm(t)
	return NewGormUserRepository(gormDB), mock, func() { _ = mockDB.Close() }
}

func TestGormUserRepository_FindByID(t *testing.T) {
	t.Run("loads user with role ids", func(t *testing.T) {
		repo, mock, done := newMockUserRepository(t)
		defer done()

		tenantID, userID, roleID := uuid.New(), uuid.New(), uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "users" WHERE tenant_id = \$1 AND id = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(tenantID, userID, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "username", "status", "version"}).
				AddRow(userID, tenantID, "cashier1", "ACTIVE", 3))
		mock.ExpectQuery(`SELECT \* FROM "user_roles" WHERE user_id IN \(\$1\) ORDER BY created_at`).
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "role_id", "tenant_id", "created_at"}).
				AddRow(userID, roleID, tenantID, time.Now()))

		user, err := repo.FindByID(context.Background(), tenantID, userID)

		require.NoError(t, err)
		assert.Equal(t, "cashier1", user.Username)
		assert.Equal(t, identity.UserStatusActive, user.Status)
		assert.Equal(t, 3, user.Version)
		assert.Equal(t, []uuid.UUID{roleID}, user.RoleIDs)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps missing rows to ErrNotFound", func(t *testing.T) {
		repo, mock, done := newMockUserRepository(t)
		defer done()

		mock.ExpectQuery(`SELECT \* FROM "users"`).
			WillReturnError(gorm.ErrRecordNotFound)

		user, err := repo.FindByID(context.Background(), uuid.New(), uuid.New())

		assert.Nil(t, user)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormUserRepository_ExistsByUsername(t *testing.T) {
	repo, mock, done := newMockUserRepository(t)
	defer done()

	tenantID := uuid.New()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "users" WHERE tenant_id = \$1 AND username = \$2`).
		WithArgs(tenantID, "owner").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := repo.ExistsByUsername(context.Background(), tenantID, "owner")

	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUserRepository_CountByRole(t *testing.T) {
	repo, mock, done := newMockUserRepository(t)
	defer done()

	tenantID, roleID := uuid.New(), uuid.New()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "user_roles" WHERE tenant_id = \$1 AND role_id = \$2`).
		WithArgs(tenantID, roleID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := repo.CountByRole(context.Background(), tenantID, roleID)

	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUserRepository_Delete(t *testing.T) {
	t.Run("removes role links then the user", func(t *testing.T) {
		repo, mock, done := newMockUserRepository(t)
		defer done()

		tenantID, userID := uuid.New(), uuid.New()
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "user_roles" WHERE user_id = \$1`).
			WithArgs(userID).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(`DELETE FROM "users" WHERE tenant_id = \$1 AND id = \$2`).
			WithArgs(tenantID, userID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, repo.Delete(context.Background(), tenantID, userID))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound when nothing was deleted", func(t *testing.T) {
		repo, mock, done := newMockUserRepository(t)
		defer done()

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "user_roles"`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`DELETE FROM "users"`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.Delete(context.Background(), uuid.New(), uuid.New())
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

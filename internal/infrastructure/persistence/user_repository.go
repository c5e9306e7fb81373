package persistence

import (
	"context"
	"time"

	"github.com/cloudpos/backend/internal/domain/identity"
	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/cloudpos/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormUserRepository implements identity.UserRepository using GORM
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Save upserts the user and replaces its role assignments
func (r *GormUserRepository) Save(ctx context.Context, user *identity.User) error {
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(models.UserModelFromDomain(user)).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.UserRoleModel{}).Error; err != nil {
			return err
		}
		if len(user.RoleIDs) == 0 {
			return nil
		}
		now := time.Now()
		links := make([]models.UserRoleModel, len(user.RoleIDs))
		for i, roleID := range user.RoleIDs {
			links[i] = models.UserRoleModel{UserID: user.ID, RoleID: roleID, TenantID: user.TenantID, CreatedAt: now}
		}
		return tx.Create(&links).Error
	})
}

// Delete removes the user and its role links
func (r *GormUserRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.UserRoleModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.UserModel{}, "tenant_id = ? AND id = ?", tenantID, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// FindByID finds a user by ID within a tenant
func (r *GormUserRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*identity.User, error) {
	var model models.UserModel
	if err := conn(ctx, r.db).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return r.withRoles(ctx, &model)
}

// FindByUsername finds a user by username within a tenant
func (r *GormUserRepository) FindByUsername(ctx context.Context, tenantID uuid.UUID, username string) (*identity.User, error) {
	var model models.UserModel
	if err := conn(ctx, r.db).
		Where("tenant_id = ? AND username = ?", tenantID, username).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return r.withRoles(ctx, &model)
}

// FindAll lists users matching the filter
func (r *GormUserRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter identity.UserFilter) ([]*identity.User, int64, error) {
	query := conn(ctx, r.db).Model(&models.UserModel{}).Where("users.tenant_id = ?", tenantID)
	query = r.applyFilter(query, filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var userModels []models.UserModel
	if err := paginate(query, filter.Filter, UserSortFields, "created_at").Find(&userModels).Error; err != nil {
		return nil, 0, err
	}
	if len(userModels) == 0 {
		return []*identity.User{}, total, nil
	}

	ids := make([]uuid.UUID, len(userModels))
	for i := range userModels {
		ids[i] = userModels[i].ID
	}
	roleIDs, err := r.roleIDsByUser(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	users := make([]*identity.User, len(userModels))
	for i := range userModels {
		users[i] = userModels[i].ToDomain()
		if ids, ok := roleIDs[users[i].ID]; ok {
			users[i].RoleIDs = ids
		}
	}
	return users, total, nil
}

// ExistsByUsername checks if a username is taken within a tenant
func (r *GormUserRepository) ExistsByUsername(ctx context.Context, tenantID uuid.UUID, username string) (bool, error) {
	var count int64
	if err := conn(ctx, r.db).Model(&models.UserModel{}).
		Where("tenant_id = ? AND username = ?", tenantID, username).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountByRole counts users holding the role
func (r *GormUserRepository) CountByRole(ctx context.Context, tenantID, roleID uuid.UUID) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.UserRoleModel{}).
		Where("tenant_id = ? AND role_id = ?", tenantID, roleID).
		Count(&count).Error
	return count, err
}

// Count counts the users of a tenant
func (r *GormUserRepository) Count(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.UserModel{}).
		Where("tenant_id = ?", tenantID).
		Count(&count).Error
	return count, err
}

func (r *GormUserRepository) applyFilter(query *gorm.DB, filter identity.UserFilter) *gorm.DB {
	if filter.Search != "" {
		p := likePattern(filter.Search)
		query = query.Where("users.username ILIKE ? OR users.display_name ILIKE ? OR users.phone ILIKE ?", p, p, p)
	}
	if filter.Status != nil {
		query = query.Where("users.status = ?", *filter.Status)
	}
	if filter.BranchID != nil {
		query = query.Where("users.branch_id = ?", *filter.BranchID)
	}
	if filter.RoleID != nil {
		query = query.Where("EXISTS (SELECT 1 FROM user_roles ur WHERE ur.user_id = users.id AND ur.role_id = ?)", *filter.RoleID)
	}
	return query
}

func (r *GormUserRepository) withRoles(ctx context.Context, model *models.UserModel) (*identity.User, error) {
	user := model.ToDomain()
	byUser, err := r.roleIDsByUser(ctx, []uuid.UUID{user.ID})
	if err != nil {
		return nil, err
	}
	if ids, ok := byUser[user.ID]; ok {
		user.RoleIDs = ids
	}
	return user, nil
}

func (r *GormUserRepository) roleIDsByUser(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	var links []models.UserRoleModel
	if err := conn(ctx, r.db).
		Where("user_id IN ?", userIDs).
		Order("created_at").
		Find(&links).Error; err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID][]uuid.UUID, len(userIDs))
	for _, l := range links {
		out[l.UserID] = append(out[l.UserID], l.RoleID)
	}
	return out, nil
}

var _ identity.UserRepository = (*GormUserRepository)(nil)

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

// GormRoleRepository implements identity.RoleRepository using GORM
type GormRoleRepository struct {
	db *gorm.DB
}

// NewGormRoleRepository creates a new GormRoleRepository
func NewGormRoleRepository(db *gorm.DB) *GormRoleRepository {
	return &GormRoleRepository{db: db}
}

// Save upserts the role and replaces its permission rows
func (r *GormRoleRepository) Save(ctx context.Context, role *identity.Role) error {
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(models.RoleModelFromDomain(role)).Error; err != nil {
			return err
		}
		if err := tx.Where("role_id = ?", role.ID).Delete(&models.RolePermissionModel{}).Error; err != nil {
			return err
		}
		if len(role.Permissions) == 0 {
			return nil
		}
		now := time.Now()
		rows := make([]models.RolePermissionModel, len(role.Permissions))
		for i, p := range role.Permissions {
			rows[i] = models.RolePermissionModel{RoleID: role.ID, Permission: p, TenantID: role.TenantID, CreatedAt: now}
		}
		return tx.Create(&rows).Error
	})
}

// Delete removes the role and its permissions
func (r *GormRoleRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", id).Delete(&models.RolePermissionModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.RoleModel{}, "tenant_id = ? AND id = ?", tenantID, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// FindByID finds a role by ID within a tenant
func (r *GormRoleRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*identity.Role, error) {
	var model models.RoleModel
	if err := conn(ctx, r.db).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	roles, err := r.withPermissions(ctx, []models.RoleModel{model})
	if err != nil {
		return nil, err
	}
	return roles[0], nil
}

// FindByIDs loads several roles at once; unknown IDs are skipped
func (r *GormRoleRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*identity.Role, error) {
	if len(ids) == 0 {
		return []*identity.Role{}, nil
	}
	var roleModels []models.RoleModel
	if err := conn(ctx, r.db).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&roleModels).Error; err != nil {
		return nil, err
	}
	return r.withPermissions(ctx, roleModels)
}

// FindByCode finds a role by code within a tenant
func (r *GormRoleRepository) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*identity.Role, error) {
	var model models.RoleModel
	if err := conn(ctx, r.db).
		Where("tenant_id = ? AND code = ?", tenantID, code).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	roles, err := r.withPermissions(ctx, []models.RoleModel{model})
	if err != nil {
		return nil, err
	}
	return roles[0], nil
}

// FindAll lists roles with pagination
func (r *GormRoleRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]*identity.Role, int64, error) {
	query := conn(ctx, r.db).Model(&models.RoleModel{}).Where("tenant_id = ?", tenantID)
	if filter.Search != "" {
		p := likePattern(filter.Search)
		query = query.Where("code ILIKE ? OR name ILIKE ?", p, p)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var roleModels []models.RoleModel
	if err := paginate(query, filter, RoleSortFields, "created_at").Find(&roleModels).Error; err != nil {
		return nil, 0, err
	}
	roles, err := r.withPermissions(ctx, roleModels)
	if err != nil {
		return nil, 0, err
	}
	return roles, total, nil
}

// ExistsByCode checks if a role code is taken within a tenant
func (r *GormRoleRepository) ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error) {
	var count int64
	if err := conn(ctx, r.db).Model(&models.RoleModel{}).
		Where("tenant_id = ? AND code = ?", tenantID, code).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormRoleRepository) withPermissions(ctx context.Context, roleModels []models.RoleModel) ([]*identity.Role, error) {
	roles := make([]*identity.Role, len(roleModels))
	if len(roleModels) == 0 {
		return roles, nil
	}
	ids := make([]uuid.UUID, len(roleModels))
	for i := range roleModels {
		ids[i] = roleModels[i].ID
	}

	var perms []models.RolePermissionModel
	if err := conn(ctx, r.db).
		Where("role_id IN ?", ids).
		Order("permission").
		Find(&perms).Error; err != nil {
		return nil, err
	}
	byRole := make(map[uuid.UUID][]string, len(roleModels))
	for _, p := range perms {
		byRole[p.RoleID] = append(byRole[p.RoleID], p.Permission)
	}

	for i := range roleModels {
		roles[i] = roleModels[i].ToDomain()
		if p, ok := byRole[roles[i].ID]; ok {
			roles[i].Permissions = p
		}
	}
	return roles, nil
}

var _ identity.RoleRepository = (*GormRoleRepository)(nil)

package repository

import (
	"context"
	"strings"

	"github.com/yukikurage/periodical/internal/database"
	"github.com/yukikurage/periodical/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail finds a user by email
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// List retrieves users with filtering and pagination
func (r *GormUserRepository) List(ctx context.Context, filter UserFilter) ([]models.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.User{})
	if filter.OrganizationID != nil {
		query = query.Where("organization_id = ?", *filter.OrganizationID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	err := query.
		Scopes(database.Paginate(filter.Pagination)).
		Order("created_at DESC").
		Preload("Organization").
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Update updates a user
func (r *GormUserRepository) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(user).Error
}

// DetachFromOrganization removes the user from their organization
func (r *GormUserRepository) DetachFromOrganization(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"organization_id": nil,
			"role":            models.RoleContentWriter,
		}).Error
}

// CountActiveWriters counts active content writers in an organization
func (r *GormUserRepository) CountActiveWriters(ctx context.Context, organizationID uint64) (int64, error) {
	return countActiveWriters(r.db.WithContext(ctx), organizationID)
}

func countActiveWriters(db *gorm.DB, organizationID uint64) (int64, error) {
	var count int64
	err := db.Model(&models.User{}).
		Where("organization_id = ? AND role = ? AND status = ?",
			organizationID, models.RoleContentWriter, models.UserStatusActive).
		Count(&count).Error
	return count, err
}

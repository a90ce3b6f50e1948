package repository

import (
	"context"

	"github.com/yukikurage/periodical/internal/database"
	"github.com/yukikurage/periodical/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormGistRepository is a GORM implementation of GistRepository
type GormGistRepository struct {
	db *gorm.DB
}

// NewGistRepository creates a new GistRepository
func NewGistRepository(db *gorm.DB) GistRepository {
	return &GormGistRepository{db: db}
}

// Create creates a new gist
func (r *GormGistRepository) Create(ctx context.Context, gist *models.Gist) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(gist).Error
}

// FindByID finds a gist by ID
func (r *GormGistRepository) FindByID(ctx context.Context, id uint64) (*models.Gist, error) {
	var gist models.Gist
	if err := r.db.WithContext(ctx).Preload("Author").First(&gist, id).Error; err != nil {
		return nil, err
	}
	return &gist, nil
}

// FindBySlug finds a gist by slug with optional preloading
func (r *GormGistRepository) FindBySlug(ctx context.Context, slug string, preload ...string) (*models.Gist, error) {
	var gist models.Gist
	query := r.db.WithContext(ctx)

	for _, p := range preload {
		if p == "Topics" {
			query = query.Preload("Topics", func(db *gorm.DB) *gorm.DB {
				return db.Order("sort_order ASC")
			})
			continue
		}
		query = query.Preload(p)
	}

	if err := query.Where("slug = ?", slug).First(&gist).Error; err != nil {
		return nil, err
	}
	return &gist, nil
}

// List retrieves gists with filtering and pagination
func (r *GormGistRepository) List(ctx context.Context, filter GistFilter) ([]models.Gist, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Gist{})

	if filter.OrganizationID != nil {
		query = query.Where("gists.organization_id = ?", *filter.OrganizationID)
	}
	if filter.AuthorID != nil {
		query = query.Where("gists.author_id = ?", *filter.AuthorID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var gists []models.Gist
	err := query.
		Scopes(database.Paginate(filter.Pagination)).
		Order("gists.created_at DESC").
		Preload("Author").
		Find(&gists).Error
	if err != nil {
		return nil, 0, err
	}

	return gists, total, nil
}

// Update updates a gist
func (r *GormGistRepository) Update(ctx context.Context, gist *models.Gist) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(gist).Error
}

// Delete deletes a gist and its topics in a transaction
func (r *GormGistRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("gist_id = ?", id).Delete(&models.Topic{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Gist{}, id).Error
	})
}

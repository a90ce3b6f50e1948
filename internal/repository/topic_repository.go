package repository

import (
	"context"
	"database/sql"

	"github.com/yukikurage/periodical/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTopicRepository is a GORM implementation of TopicRepository
type GormTopicRepository struct {
	db *gorm.DB
}

// NewTopicRepository creates a new TopicRepository
func NewTopicRepository(db *gorm.DB) TopicRepository {
	return &GormTopicRepository{db: db}
}

// CreateAppended creates the topic at max(order)+1
func (r *GormTopicRepository) CreateAppended(ctx context.Context, topic *models.Topic) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var gist models.Gist
		if err := forUpdate(tx).Select("id").First(&gist, topic.GistID).Error; err != nil {
			return err
		}

		var last sql.NullInt64
		if err := tx.Model(&models.Topic{}).
			Select("MAX(sort_order)").
			Where("gist_id = ?", topic.GistID).
			Row().Scan(&last); err != nil {
			return err
		}

		topic.Order = 0
		if last.Valid {
			topic.Order = int(last.Int64) + 1
		}

		return tx.Omit(clause.Associations).Create(topic).Error
	})
}

// FindByID finds a topic by ID
func (r *GormTopicRepository) FindByID(ctx context.Context, id uint64) (*models.Topic, error) {
	var topic models.Topic
	if err := r.db.WithContext(ctx).Preload("Gist").First(&topic, id).Error; err != nil {
		return nil, err
	}
	return &topic, nil
}

// FindByIDs finds topics by IDs
func (r *GormTopicRepository) FindByIDs(ctx context.Context, ids []uint64) ([]models.Topic, error) {
	var topics []models.Topic
	if len(ids) == 0 {
		return topics, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&topics).Error; err != nil {
		return nil, err
	}
	return topics, nil
}

// ListByGist lists topics of a gist ordered by position
func (r *GormTopicRepository) ListByGist(ctx context.Context, gistID uint64) ([]models.Topic, error) {
	var topics []models.Topic
	err := r.db.WithContext(ctx).
		Where("gist_id = ?", gistID).
		Order("sort_order ASC").
		Find(&topics).Error
	if err != nil {
		return nil, err
	}
	return topics, nil
}

// CountByGist counts topics of a gist
func (r *GormTopicRepository) CountByGist(ctx context.Context, gistID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Topic{}).Where("gist_id = ?", gistID).Count(&count).Error
	return count, err
}

// Update updates a topic
func (r *GormTopicRepository) Update(ctx context.Context, topic *models.Topic) error {
	return r.db.WithContext(ctx).Model(topic).
		Select("title", "content").
		Updates(models.Topic{Title: topic.Title, Content: topic.Content}).Error
}

// Delete deletes a topic and shifts the following topics up by one
func (r *GormTopicRepository) Delete(ctx context.Context, topic *models.Topic) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Topic{}, topic.ID).Error; err != nil {
			return err
		}

		return tx.Model(&models.Topic{}).
			Where("gist_id = ? AND sort_order > ?", topic.GistID, topic.Order).
			UpdateColumn("sort_order", gorm.Expr("sort_order - 1")).Error
	})
}

// Reorder rewrites topic orders; any failure rolls back the whole batch
func (r *GormTopicRepository) Reorder(ctx context.Context, gistID uint64, orders []TopicOrder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, o := range orders {
			res := tx.Model(&models.Topic{}).
				Where("id = ? AND gist_id = ?", o.ID, gistID).
				Update("sort_order", o.Order)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrStaleTopicOrder
			}
		}
		return nil
	})
}

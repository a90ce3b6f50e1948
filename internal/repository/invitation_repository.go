package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yukikurage/periodical/internal/models"
	"github.com/yukikurage/periodical/internal/policy"
	"gorm.io/gorm"
)

// GormInvitationRepository is a GORM implementation of InvitationRepository
type GormInvitationRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewInvitationRepository creates a new InvitationRepository
func NewInvitationRepository(db *gorm.DB) InvitationRepository {
	return &GormInvitationRepository{db: db, now: time.Now}
}

// CreatePending inserts a pending invitation
func (r *GormInvitationRepository) CreatePending(ctx context.Context, invitation *models.Invitation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var org models.Organization
		if err := forUpdate(tx).First(&org, invitation.OrganizationID).Error; err != nil {
			return err
		}

		key := models.PendingInvitationKey(invitation.OrganizationID, invitation.Email)

		// Expired invitations give up their key so a new one can be sent.
		if err := tx.Model(&models.Invitation{}).
			Where("pending_key = ? AND expires_at < ?", key, r.now()).
			Update("pending_key", nil).Error; err != nil {
			return err
		}

		var live int64
		if err := tx.Model(&models.Invitation{}).Where("pending_key = ?", key).Count(&live).Error; err != nil {
			return err
		}
		if live > 0 {
			return ErrPendingInvitationExists
		}

		if invitation.Role == models.RoleContentWriter {
			writers, err := countActiveWriters(tx, org.ID)
			if err != nil {
				return err
			}
			if err := policy.CheckWriterCapacity(writers, policy.WriterCap(org.PlanType, org.MaxWriters)); err != nil {
				return err
			}
		}

		invitation.PendingKey = &key
		invitation.Status = models.InvitationStatusPending
		if err := tx.Create(invitation).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrPendingInvitationExists
			}
			return err
		}
		return nil
	})
}

// FindByID finds an invitation by ID
func (r *GormInvitationRepository) FindByID(ctx context.Context, id uint64) (*models.Invitation, error) {
	var invitation models.Invitation
	if err := r.db.WithContext(ctx).First(&invitation, id).Error; err != nil {
		return nil, err
	}
	return &invitation, nil
}

// FindByToken finds an invitation by token
func (r *GormInvitationRepository) FindByToken(ctx context.Context, token string) (*models.Invitation, error) {
	var invitation models.Invitation
	err := r.db.WithContext(ctx).
		Preload("Organization").
		Preload("InvitedBy").
		Where("token = ?", token).
		First(&invitation).Error
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

// ListUnaccepted lists invitations that have not been accepted
func (r *GormInvitationRepository) ListUnaccepted(ctx context.Context, organizationID uint64) ([]models.Invitation, error) {
	var invitations []models.Invitation
	err := r.db.WithContext(ctx).
		Preload("InvitedBy").
		Where("organization_id = ? AND accepted_at IS NULL", organizationID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&invitations).Error
	if err != nil {
		return nil, err
	}
	return invitations, nil
}

// Accept consumes the invitation and attaches the user to its organization.
// A user with ID 0 is created.
func (r *GormInvitationRepository) Accept(ctx context.Context, invitation *models.Invitation, user *models.User) error {
	now := r.now()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Invitation{}).
			Where("id = ? AND accepted_at IS NULL", invitation.ID).
			Updates(map[string]interface{}{
				"accepted_at": now,
				"status":      models.InvitationStatusAccepted,
				"pending_key": nil,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvitationConsumed
		}

		orgID := invitation.OrganizationID
		if user.ID == 0 {
			user.OrganizationID = &orgID
			user.Role = invitation.Role
			if err := tx.Create(user).Error; err != nil {
				return err
			}
		} else {
			res := tx.Model(&models.User{}).
				Where("id = ? AND organization_id IS NULL", user.ID).
				Updates(map[string]interface{}{
					"organization_id": orgID,
					"role":            invitation.Role,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrUserAlreadyAttached
			}
			user.OrganizationID = &orgID
			user.Role = invitation.Role
		}

		if err := tx.Model(&models.Invitation{}).
			Where("id = ?", invitation.ID).
			Update("invited_user_id", user.ID).Error; err != nil {
			return err
		}

		invitation.AcceptedAt = &now
		invitation.Status = models.InvitationStatusAccepted
		invitation.PendingKey = nil
		invitation.InvitedUserID = &user.ID
		return nil
	})
}

// Delete hard deletes an invitation
func (r *GormInvitationRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&models.Invitation{}, id).Error
}

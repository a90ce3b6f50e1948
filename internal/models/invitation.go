package models

import (
	"fmt"
	"strings"
	"time"
)

type InvitationStatus string

const (
	InvitationStatusPending  InvitationStatus = "pending"
	InvitationStatusAccepted InvitationStatus = "accepted"
)

type Invitation struct {
	ID             uint64           `gorm:"primarykey" json:"id"`
	Email          string           `gorm:"type:varchar(255);not null;index" json:"email"`
	Role           Role             `gorm:"type:varchar(20);not null" json:"role"`
	Token          string           `gorm:"type:varchar(128);uniqueIndex;not null" json:"-"`
	OrganizationID uint64           `gorm:"not null;index" json:"organization_id"`
	InvitedByID    uint64           `gorm:"not null" json:"invited_by_id"`
	InvitedUserID  *uint64          `json:"invited_user_id"`
	ExpiresAt      time.Time        `gorm:"not null;index" json:"expires_at"`
	AcceptedAt     *time.Time       `json:"accepted_at"`
	Status         InvitationStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	// PendingKey is set while the invitation is pending and cleared on
	// acceptance; its unique index allows one live invitation per email and
	// organization.
	PendingKey *string   `gorm:"type:varchar(300);uniqueIndex" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Relations
	Organization Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	InvitedBy    User         `gorm:"foreignKey:InvitedByID" json:"invited_by,omitempty"`
	InvitedUser  *User        `gorm:"foreignKey:InvitedUserID" json:"invited_user,omitempty"`
}

// IsExpired reports whether the invitation expired before now.
func (i *Invitation) IsExpired(now time.Time) bool {
	return i.ExpiresAt.Before(now)
}

// IsAccepted reports whether the invitation was already consumed.
func (i *Invitation) IsAccepted() bool {
	return i.AcceptedAt != nil
}

// PendingInvitationKey builds the value stored in PendingKey.
func PendingInvitationKey(organizationID uint64, email string) string {
	return fmt.Sprintf("%d:%s", organizationID, strings.ToLower(email))
}

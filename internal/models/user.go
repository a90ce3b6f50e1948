package models

import (
	"time"

	"gorm.io/gorm"
)

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

type User struct {
	ID              uint64         `gorm:"primarykey" json:"id"`
	Name            string         `gorm:"type:varchar(255)" json:"name"`
	Email           string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash    *string        `gorm:"type:varchar(255)" json:"-"`
	Role            Role           `gorm:"type:varchar(20);not null;default:'content_writer'" json:"role"`
	Status          UserStatus     `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	OrganizationID  *uint64        `gorm:"index" json:"organization_id"`
	EmailVerifiedAt *time.Time     `json:"email_verified_at"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Organization  *Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	AuthoredGists []Gist        `gorm:"foreignKey:AuthorID" json:"-"`
}

// IsActive reports whether the user may sign in.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// BelongsTo reports whether the user is a member of the organization.
func (u *User) BelongsTo(orgID uint64) bool {
	return u.OrganizationID != nil && *u.OrganizationID == orgID
}

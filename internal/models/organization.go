package models

import "time"

type PlanType string

const (
	PlanFree       PlanType = "free"
	PlanPremium    PlanType = "premium"
	PlanEnterprise PlanType = "enterprise"
)

// Valid reports whether p is a known plan.
func (p PlanType) Valid() bool {
	switch p {
	case PlanFree, PlanPremium, PlanEnterprise:
		return true
	}
	return false
}

type OrganizationStatus string

const (
	OrganizationStatusActive   OrganizationStatus = "active"
	OrganizationStatusInactive OrganizationStatus = "inactive"
)

type Organization struct {
	ID          uint64             `gorm:"primarykey" json:"id"`
	Name        string             `gorm:"type:varchar(255);not null" json:"name"`
	Slug        string             `gorm:"type:varchar(255);uniqueIndex;not null" json:"slug"`
	Description string             `gorm:"type:text" json:"description"`
	Logo        string             `gorm:"type:varchar(512)" json:"logo"`
	PlanType    PlanType           `gorm:"type:varchar(20);not null;default:'free'" json:"plan_type"`
	MaxWriters  int                `gorm:"not null;default:5" json:"max_writers"`
	Status      OrganizationStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`

	// Relations
	Users       []User       `gorm:"foreignKey:OrganizationID" json:"users,omitempty"`
	Invitations []Invitation `gorm:"foreignKey:OrganizationID" json:"-"`
	Gists       []Gist       `gorm:"foreignKey:OrganizationID" json:"-"`
}

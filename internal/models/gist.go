package models

import "time"

type Gist struct {
	ID             uint64         `gorm:"primarykey" json:"id"`
	Title          string         `gorm:"type:varchar(100);not null" json:"title"`
	Slug           string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"slug"`
	Description    string         `gorm:"type:text" json:"description"`
	From           time.Time      `gorm:"column:from_date;not null" json:"from"`
	To             time.Time      `gorm:"column:to_date;not null" json:"to"`
	AuthorID       uint64         `gorm:"not null;index" json:"author_id"`
	AssignerID     *uint64        `json:"assigner_id"`
	OrganizationID uint64         `gorm:"not null;index" json:"organization_id"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`

	// Relations
	Author       User         `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Assigner     *User        `gorm:"foreignKey:AssignerID" json:"assigner,omitempty"`
	Organization Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	Topics       []Topic      `gorm:"foreignKey:GistID" json:"topics,omitempty"`
}

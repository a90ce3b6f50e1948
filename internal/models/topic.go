package models

import "time"

type Topic struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	Title     string    `gorm:"type:varchar(100);not null" json:"title"`
	Content   string    `gorm:"type:text" json:"content"`
	Order     int       `gorm:"column:sort_order;not null;default:0" json:"order"`
	GistID    uint64    `gorm:"not null;index" json:"gist_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Gist Gist `gorm:"foreignKey:GistID" json:"gist,omitempty"`
}

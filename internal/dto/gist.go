package dto

import (
	"time"

	"github.com/yukikurage/periodical/internal/models"
	"github.com/yukikurage/periodical/internal/utils"
)

// TopicDTO represents a topic in API responses
type TopicDTO struct {
	ID        uint64    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Order     int       `json:"order"`
	GistID    uint64    `json:"gist_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GistDTO represents a gist in API responses
type GistDTO struct {
	ID             uint64      `json:"id"`
	Title          string      `json:"title"`
	Slug           string      `json:"slug"`
	Description    string      `json:"description"`
	From           time.Time   `json:"from"`
	To             time.Time   `json:"to"`
	AuthorID       uint64      `json:"author_id"`
	AssignerID     *uint64     `json:"assigner_id"`
	OrganizationID uint64      `json:"organization_id"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
	Author         *UserRefDTO `json:"author,omitempty"`
	Assigner       *UserRefDTO `json:"assigner,omitempty"`
	Topics         []TopicDTO  `json:"topics,omitempty"`
}

// GistListResponse represents a paginated list of gists
type GistListResponse struct {
	Gists      []GistDTO                `json:"gists"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// ToTopicDTO converts a Topic model to TopicDTO
func ToTopicDTO(topic models.Topic) TopicDTO {
	return TopicDTO{
		ID:        topic.ID,
		Title:     topic.Title,
		Content:   topic.Content,
		Order:     topic.Order,
		GistID:    topic.GistID,
		CreatedAt: topic.CreatedAt,
		UpdatedAt: topic.UpdatedAt,
	}
}

// ToTopicDTOs converts topics keeping their order
func ToTopicDTOs(topics []models.Topic) []TopicDTO {
	items := make([]TopicDTO, len(topics))
	for i, topic := range topics {
		items[i] = ToTopicDTO(topic)
	}
	return items
}

// ToGistDTO converts a Gist model to GistDTO
func ToGistDTO(gist models.Gist) GistDTO {
	dto := GistDTO{
		ID:             gist.ID,
		Title:          gist.Title,
		Slug:           gist.Slug,
		Description:    gist.Description,
		From:           gist.From,
		To:             gist.To,
		AuthorID:       gist.AuthorID,
		AssignerID:     gist.AssignerID,
		OrganizationID: gist.OrganizationID,
		CreatedAt:      gist.CreatedAt,
		UpdatedAt:      gist.UpdatedAt,
	}

	// Include author if preloaded
	if gist.Author.ID != 0 {
		author := ToUserRefDTO(gist.Author)
		dto.Author = &author
	}

	if gist.Assigner != nil && gist.Assigner.ID != 0 {
		assigner := ToUserRefDTO(*gist.Assigner)
		dto.Assigner = &assigner
	}

	if len(gist.Topics) > 0 {
		dto.Topics = ToTopicDTOs(gist.Topics)
	}

	return dto
}

// ToGistListResponse builds a paginated gist list
func ToGistListResponse(gists []models.Gist, pagination utils.PaginationResponse) GistListResponse {
	items := make([]GistDTO, len(gists))
	for i, gist := range gists {
		items[i] = ToGistDTO(gist)
	}
	return GistListResponse{Gists: items, Pagination: pagination}
}

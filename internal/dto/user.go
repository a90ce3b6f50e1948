package dto

import (
	"time"

	"github.com/yukikurage/periodical/internal/models"
	"github.com/yukikurage/periodical/internal/utils"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID              uint64              `json:"id"`
	Name            string              `json:"name"`
	Email           string              `json:"email"`
	Role            models.Role         `json:"role"`
	Status          models.UserStatus   `json:"status"`
	OrganizationID  *uint64             `json:"organization_id"`
	EmailVerifiedAt *time.Time          `json:"email_verified_at"`
	CreatedAt       time.Time           `json:"created_at"`
	Organization    *OrganizationRefDTO `json:"organization,omitempty"`
}

// UserRefDTO is the short form used inside other resources
type UserRefDTO struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UserListResponse represents a paginated list of users
type UserListResponse struct {
	Users      []UserDTO                `json:"users"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// Conversion functions

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	dto := UserDTO{
		ID:              user.ID,
		Name:            user.Name,
		Email:           user.Email,
		Role:            user.Role,
		Status:          user.Status,
		OrganizationID:  user.OrganizationID,
		EmailVerifiedAt: user.EmailVerifiedAt,
		CreatedAt:       user.CreatedAt,
	}

	// Include organization if preloaded
	if user.Organization != nil && user.Organization.ID != 0 {
		org := ToOrganizationRefDTO(*user.Organization)
		dto.Organization = &org
	}

	return dto
}

// ToUserRefDTO converts a User model to UserRefDTO
func ToUserRefDTO(user models.User) UserRefDTO {
	return UserRefDTO{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
	}
}

// ToUserListResponse builds a paginated user list
func ToUserListResponse(users []models.User, pagination utils.PaginationResponse) UserListResponse {
	items := make([]UserDTO, len(users))
	for i, user := range users {
		items[i] = ToUserDTO(user)
	}
	return UserListResponse{Users: items, Pagination: pagination}
}

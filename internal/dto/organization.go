package dto

import (
	"time"

	"github.com/yukikurage/periodical/internal/models"
)

// OrganizationDTO represents an organization in API responses
type OrganizationDTO struct {
	ID          uint64                    `json:"id"`
	Name        string                    `json:"name"`
	Slug        string                    `json:"slug"`
	Description string                    `json:"description"`
	Logo        string                    `json:"logo"`
	PlanType    models.PlanType           `json:"plan_type"`
	MaxWriters  int                       `json:"max_writers"`
	Status      models.OrganizationStatus `json:"status"`
	CreatedAt   time.Time                 `json:"created_at"`
	UpdatedAt   time.Time                 `json:"updated_at"`
}

// OrganizationDetailDTO adds seat usage to an organization
type OrganizationDetailDTO struct {
	OrganizationDTO
	ActiveWriters int64 `json:"active_writers"`
}

// OrganizationRefDTO is the short form used inside other resources
type OrganizationRefDTO struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// ToOrganizationDTO converts an Organization model to OrganizationDTO
func ToOrganizationDTO(org models.Organization) OrganizationDTO {
	return OrganizationDTO{
		ID:          org.ID,
		Name:        org.Name,
		Slug:        org.Slug,
		Description: org.Description,
		Logo:        org.Logo,
		PlanType:    org.PlanType,
		MaxWriters:  org.MaxWriters,
		Status:      org.Status,
		CreatedAt:   org.CreatedAt,
		UpdatedAt:   org.UpdatedAt,
	}
}

// ToOrganizationDetailDTO converts an organization with its writer count
func ToOrganizationDetailDTO(org models.Organization, activeWriters int64) OrganizationDetailDTO {
	return OrganizationDetailDTO{
		OrganizationDTO: ToOrganizationDTO(org),
		ActiveWriters:   activeWriters,
	}
}

// ToOrganizationRefDTO converts an Organization model to OrganizationRefDTO
func ToOrganizationRefDTO(org models.Organization) OrganizationRefDTO {
	return OrganizationRefDTO{
		ID:   org.ID,
		Name: org.Name,
		Slug: org.Slug,
	}
}

// ToOrganizationDTOs converts a slice of organizations
func ToOrganizationDTOs(orgs []models.Organization) []OrganizationDTO {
	items := make([]OrganizationDTO, len(orgs))
	for i, org := range orgs {
		items[i] = ToOrganizationDTO(org)
	}
	return items
}

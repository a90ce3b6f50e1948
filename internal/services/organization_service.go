package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/periodical/internal/models"
	"github.com/yukikurage/periodical/internal/policy"
	"github.com/yukikurage/periodical/internal/repository"
	"github.com/yukikurage/periodical/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrInvalidOrganizationName   = errors.New("organization name cannot be empty")
	ErrInvalidPlanType           = errors.New("invalid plan type")
	ErrInvalidMaxWriters         = errors.New("max writers must be positive")
	ErrInvalidOrganizationStatus = errors.New("invalid organization status")
	ErrOrganizationExists        = errors.New("organization with this name already exists")
)

// OrganizationService provides business logic for organization operations.
type OrganizationService struct {
	orgRepo  repository.OrganizationRepository
	userRepo repository.UserRepository
}

// NewOrganizationService creates a new OrganizationService.
func NewOrganizationService(orgRepo repository.OrganizationRepository, userRepo repository.UserRepository) *OrganizationService {
	return &OrganizationService{
		orgRepo:  orgRepo,
		userRepo: userRepo,
	}
}

// OrganizationSummary is an organization with its seat usage.
type OrganizationSummary struct {
	Organization  *models.Organization
	ActiveWriters int64
}

// CreateOrganizationInput represents parameters to create a new organization.
type CreateOrganizationInput struct {
	Name        string
	Description string
	Logo        string
	PlanType    string
	MaxWriters  int
}

// CreateOrganization creates a tenant. Super admins only.
func (s *OrganizationService) CreateOrganization(ctx context.Context, actor policy.Actor, input CreateOrganizationInput) (*models.Organization, error) {
	if !actor.IsSuperAdmin() {
		return nil, ErrForbidden
	}

	name := strings.TrimSpace(input.Name)
	slug := utils.Slugify(name)
	if slug == "" {
		return nil, ErrInvalidOrganizationName
	}
	plan := models.PlanType(input.PlanType)
	if !plan.Valid() {
		return nil, ErrInvalidPlanType
	}
	if input.MaxWriters < 0 {
		return nil, ErrInvalidMaxWriters
	}

	if err := s.ensureSlugFree(ctx, slug, 0); err != nil {
		return nil, err
	}

	org := &models.Organization{
		Name:        name,
		Slug:        slug,
		Description: input.Description,
		Logo:        input.Logo,
		PlanType:    plan,
		MaxWriters:  policy.WriterCap(plan, input.MaxWriters),
		Status:      models.OrganizationStatusActive,
	}
	if err := s.orgRepo.Create(ctx, org); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrOrganizationExists
		}
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	return org, nil
}

func (s *OrganizationService) ensureSlugFree(ctx context.Context, slug string, selfID uint64) error {
	existing, err := s.orgRepo.FindBySlug(ctx, slug)
	if err == nil && existing.ID != selfID {
		return ErrOrganizationExists
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check organization slug: %w", err)
	}
	return nil
}

// ListOrganizations returns every organization. Super admins only.
func (s *OrganizationService) ListOrganizations(ctx context.Context, actor policy.Actor) ([]models.Organization, error) {
	if !actor.IsSuperAdmin() {
		return nil, ErrForbidden
	}
	orgs, err := s.orgRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	return orgs, nil
}

// GetOrganization returns an organization by ID. Members may read their own.
func (s *OrganizationService) GetOrganization(ctx context.Context, actor policy.Actor, id uint64) (*OrganizationSummary, error) {
	if !policy.CanAccessOrganization(actor, id) {
		return nil, ErrOrganizationNotFound
	}
	return s.summary(ctx, func() (*models.Organization, error) { return s.orgRepo.FindByID(ctx, id) })
}

// GetOrganizationBySlug returns an organization by slug. Super admins only.
func (s *OrganizationService) GetOrganizationBySlug(ctx context.Context, actor policy.Actor, slug string) (*OrganizationSummary, error) {
	if !actor.IsSuperAdmin() {
		return nil, ErrForbidden
	}
	return s.summary(ctx, func() (*models.Organization, error) { return s.orgRepo.FindBySlug(ctx, slug) })
}

// GetCurrentOrganization returns the actor's own organization.
func (s *OrganizationService) GetCurrentOrganization(ctx context.Context, actor policy.Actor) (*OrganizationSummary, error) {
	if actor.OrganizationID == nil {
		return nil, ErrActorWithoutOrganization
	}
	return s.GetOrganization(ctx, actor, *actor.OrganizationID)
}

func (s *OrganizationService) summary(ctx context.Context, find func() (*models.Organization, error)) (*OrganizationSummary, error) {
	org, err := find()
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to find organization: %w", err)
	}

	writers, err := s.userRepo.CountActiveWriters(ctx, org.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count writers: %w", err)
	}

	return &OrganizationSummary{Organization: org, ActiveWriters: writers}, nil
}

// UpdateOrganizationInput holds the optional fields of an update.
type UpdateOrganizationInput struct {
	Name        *string
	Description *string
	Logo        *string
	PlanType    *string
	MaxWriters  *int
	Status      *string
}

// UpdateOrganization updates an organization. Super admins only. Changing
// the plan without an explicit max writers resets the cap to the plan's.
func (s *OrganizationService) UpdateOrganization(ctx context.Context, actor policy.Actor, id uint64, input UpdateOrganizationInput) (*models.Organization, error) {
	if !actor.IsSuperAdmin() {
		return nil, ErrForbidden
	}

	org, err := s.orgRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to find organization: %w", err)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		slug := utils.Slugify(name)
		if slug == "" {
			return nil, ErrInvalidOrganizationName
		}
		if err := s.ensureSlugFree(ctx, slug, org.ID); err != nil {
			return nil, err
		}
		org.Name = name
		org.Slug = slug
	}
	if input.Description != nil {
		org.Description = *input.Description
	}
	if input.Logo != nil {
		org.Logo = *input.Logo
	}
	if input.PlanType != nil {
		plan := models.PlanType(*input.PlanType)
		if !plan.Valid() {
			return nil, ErrInvalidPlanType
		}
		if plan != org.PlanType && input.MaxWriters == nil {
			org.MaxWriters = policy.WriterCap(plan, 0)
		}
		org.PlanType = plan
	}
	if input.MaxWriters != nil {
		if *input.MaxWriters <= 0 {
			return nil, ErrInvalidMaxWriters
		}
		org.MaxWriters = *input.MaxWriters
	}
	if input.Status != nil {
		status := models.OrganizationStatus(*input.Status)
		if status != models.OrganizationStatusActive && status != models.OrganizationStatusInactive {
			return nil, ErrInvalidOrganizationStatus
		}
		org.Status = status
	}

	if err := s.orgRepo.Update(ctx, org); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrOrganizationExists
		}
		return nil, fmt.Errorf("failed to update organization: %w", err)
	}

	return org, nil
}

// DeleteOrganization removes an organization with its invitations, gists and
// topics. Members are detached, not deleted. Super admins only.
func (s *OrganizationService) DeleteOrganization(ctx context.Context, actor policy.Actor, id uint64) error {
	if !actor.IsSuperAdmin() {
		return ErrForbidden
	}

	if _, err := s.orgRepo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrganizationNotFound
		}
		return fmt.Errorf("failed to find organization: %w", err)
	}

	if err := s.orgRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}

	return nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yukikurage/periodical/internal/constants"
	"github.com/yukikurage/periodical/internal/models"
	"github.com/yukikurage/periodical/internal/policy"
	"github.com/yukikurage/periodical/internal/repository"
	"github.com/yukikurage/periodical/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrGistNotFound     = errors.New("gist not found")
	ErrInvalidGistTitle = errors.New("title must be between 1 and 100 characters")
	ErrInvalidGistDates = errors.New("from date must not be after to date")
	ErrAuthorNotFound   = errors.New("author not found")
)

const maxSlugAttempts = 3

// reservedSlugs collide with static routes under /gist.
var reservedSlugs = map[string]bool{"topic": true}

// GistService provides business logic for gists.
type GistService struct {
	gistRepo repository.GistRepository
	userRepo repository.UserRepository
}

// NewGistService creates a new GistService.
func NewGistService(gistRepo repository.GistRepository, userRepo repository.UserRepository) *GistService {
	return &GistService{
		gistRepo: gistRepo,
		userRepo: userRepo,
	}
}

func validateTitle(title string) (string, bool) {
	title = strings.TrimSpace(title)
	n := utf8.RuneCountInString(title)
	return title, n >= 1 && n <= constants.MaxTitleLength
}

// CreateGistInput represents parameters to create a gist. AuthorID lets a
// higher-ranked member create a gist on a writer's behalf.
type CreateGistInput struct {
	Title       string
	Description string
	From        time.Time
	To          time.Time
	AuthorID    *uint64
}

// CreateGist creates a gist with a unique slug derived from its title.
func (s *GistService) CreateGist(ctx context.Context, actor policy.Actor, input CreateGistInput) (*models.Gist, error) {
	title, ok := validateTitle(input.Title)
	if !ok {
		return nil, ErrInvalidGistTitle
	}
	if input.From.After(input.To) {
		return nil, ErrInvalidGistDates
	}

	gist := &models.Gist{
		Title:       title,
		Description: input.Description,
		From:        input.From,
		To:          input.To,
	}

	if input.AuthorID != nil && *input.AuthorID != actor.UserID {
		author, err := s.userRepo.FindByID(ctx, *input.AuthorID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrAuthorNotFound
			}
			return nil, fmt.Errorf("failed to find author: %w", err)
		}
		if !policy.CanManageUser(actor, author) || author.OrganizationID == nil {
			return nil, ErrForbidden
		}
		assigner := actor.UserID
		gist.AuthorID = author.ID
		gist.AssignerID = &assigner
		gist.OrganizationID = *author.OrganizationID
	} else {
		if actor.OrganizationID == nil {
			return nil, ErrActorWithoutOrganization
		}
		gist.AuthorID = actor.UserID
		gist.OrganizationID = *actor.OrganizationID
	}

	for attempt := 0; ; attempt++ {
		slug, err := s.uniqueSlug(ctx, title, 0)
		if err != nil {
			return nil, err
		}
		gist.Slug = slug

		err = s.gistRepo.Create(ctx, gist)
		if err == nil {
			break
		}
		// Another request took the slug between the check and the insert.
		if errors.Is(err, gorm.ErrDuplicatedKey) && attempt < maxSlugAttempts {
			continue
		}
		return nil, fmt.Errorf("failed to create gist: %w", err)
	}

	return s.gistRepo.FindByID(ctx, gist.ID)
}

// uniqueSlug returns the title's slug, suffixed -2, -3, ... when taken by a
// gist other than selfID.
func (s *GistService) uniqueSlug(ctx context.Context, title string, selfID uint64) (string, error) {
	base := utils.Slugify(title)
	if base == "" {
		base = "gist"
	}

	candidate := base
	for n := 2; ; n++ {
		if reservedSlugs[candidate] {
			candidate = fmt.Sprintf("%s-%d", base, n)
			continue
		}
		existing, err := s.gistRepo.FindBySlug(ctx, candidate)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check slug: %w", err)
		}
		if existing.ID == selfID {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}

// ListGists lists gists visible to the actor. Content writers only see their
// own; super admins may pick any organization or none.
func (s *GistService) ListGists(ctx context.Context, actor policy.Actor, organizationID *uint64, params utils.PaginationParams) ([]models.Gist, int64, error) {
	filter := repository.GistFilter{Pagination: params}

	switch {
	case actor.IsSuperAdmin():
		filter.OrganizationID = organizationID
	case actor.OrganizationID == nil:
		return nil, 0, ErrActorWithoutOrganization
	default:
		filter.OrganizationID = actor.OrganizationID
		if actor.Role == models.RoleContentWriter {
			filter.AuthorID = &actor.UserID
		}
	}

	gists, total, err := s.gistRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list gists: %w", err)
	}
	return gists, total, nil
}

// GetGist returns a gist with its author and ordered topics.
func (s *GistService) GetGist(ctx context.Context, actor policy.Actor, slug string) (*models.Gist, error) {
	gist, err := s.gistRepo.FindBySlug(ctx, slug, "Author", "Assigner", "Topics")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGistNotFound
		}
		return nil, fmt.Errorf("failed to find gist: %w", err)
	}
	if !policy.CanAccessOrganization(actor, gist.OrganizationID) {
		return nil, ErrGistNotFound
	}
	return gist, nil
}

// UpdateGistInput holds the optional fields of a gist update.
type UpdateGistInput struct {
	Title       *string
	Description *string
	From        *time.Time
	To          *time.Time
}

// UpdateGist updates a gist the actor may modify. A new title re-derives the slug.
func (s *GistService) UpdateGist(ctx context.Context, actor policy.Actor, slug string, input UpdateGistInput) (*models.Gist, error) {
	gist, err := s.GetGist(ctx, actor, slug)
	if err != nil {
		return nil, err
	}
	if !policy.CanModifyGist(actor, &gist.Author) {
		return nil, ErrForbidden
	}

	if input.Title != nil {
		title, ok := validateTitle(*input.Title)
		if !ok {
			return nil, ErrInvalidGistTitle
		}
		if title != gist.Title {
			newSlug, err := s.uniqueSlug(ctx, title, gist.ID)
			if err != nil {
				return nil, err
			}
			gist.Title = title
			gist.Slug = newSlug
		}
	}
	if input.Description != nil {
		gist.Description = *input.Description
	}
	if input.From != nil {
		gist.From = *input.From
	}
	if input.To != nil {
		gist.To = *input.To
	}
	if gist.From.After(gist.To) {
		return nil, ErrInvalidGistDates
	}

	if err := s.gistRepo.Update(ctx, gist); err != nil {
		return nil, fmt.Errorf("failed to update gist: %w", err)
	}
	return gist, nil
}

// DeleteGist deletes a gist the actor may modify, along with its topics.
func (s *GistService) DeleteGist(ctx context.Context, actor policy.Actor, slug string) error {
	gist, err := s.GetGist(ctx, actor, slug)
	if err != nil {
		return err
	}
	if !policy.CanModifyGist(actor, &gist.Author) {
		return ErrForbidden
	}

	if err := s.gistRepo.Delete(ctx, gist.ID); err != nil {
		return fmt.Errorf("failed to delete gist: %w", err)
	}
	return nil
}

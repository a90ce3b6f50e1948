package repository

import (
	"context"
	"errors"

	"github.com/yukikurage/periodical/internal/models"
	"github.com/yukikurage/periodical/internal/utils"
)

var (
	// ErrPendingInvitationExists is returned when an unexpired pending
	// invitation already exists for the email in the organization.
	ErrPendingInvitationExists = errors.New("invitation repository: pending invitation exists")
	// ErrInvitationConsumed is returned when the conditional accept update
	// matched no row.
	ErrInvitationConsumed = errors.New("invitation repository: invitation already accepted")
	// ErrUserAlreadyAttached is returned when the accepting user joined an
	// organization concurrently.
	ErrUserAlreadyAttached = errors.New("invitation repository: user already in an organization")
	// ErrStaleTopicOrder is returned when a reorder update matched no row.
	ErrStaleTopicOrder = errors.New("topic repository: topic changed during reorder")
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByEmail finds a user by email, case-insensitively
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// List retrieves users with filtering and pagination
	List(ctx context.Context, filter UserFilter) ([]models.User, int64, error)

	// Update saves the user's columns without touching associations
	Update(ctx context.Context, user *models.User) error

	// DetachFromOrganization clears the user's organization and resets the role
	DetachFromOrganization(ctx context.Context, id uint64) error

	// CountActiveWriters counts active content writers in an organization
	CountActiveWriters(ctx context.Context, organizationID uint64) (int64, error)
}

// UserFilter holds filtering options for listing users
type UserFilter struct {
	OrganizationID *uint64
	Pagination     utils.PaginationParams
}

// OrganizationRepository defines the interface for organization data access
type OrganizationRepository interface {
	// Create creates a new organization
	Create(ctx context.Context, org *models.Organization) error

	// FindByID finds an organization by ID
	FindByID(ctx context.Context, id uint64) (*models.Organization, error)

	// FindBySlug finds an organization by slug
	FindBySlug(ctx context.Context, slug string) (*models.Organization, error)

	// List lists all organizations, newest first
	List(ctx context.Context) ([]models.Organization, error)

	// Update updates an organization
	Update(ctx context.Context, org *models.Organization) error

	// Delete detaches members and deletes the organization's invitations,
	// gists and topics in one transaction
	Delete(ctx context.Context, id uint64) error
}

// InvitationRepository defines the interface for invitation data access
type InvitationRepository interface {
	// CreatePending inserts a pending invitation after releasing expired ones
	// and checking for a live duplicate and, for content writers, the
	// organization's writer cap
	CreatePending(ctx context.Context, invitation *models.Invitation) error

	// FindByID finds an invitation by ID
	FindByID(ctx context.Context, id uint64) (*models.Invitation, error)

	// FindByToken finds an invitation by token with organization and inviter loaded
	FindByToken(ctx context.Context, token string) (*models.Invitation, error)

	// ListUnaccepted lists invitations not yet accepted, newest first
	ListUnaccepted(ctx context.Context, organizationID uint64) ([]models.Invitation, error)

	// Accept attaches or creates the user and consumes the invitation atomically
	Accept(ctx context.Context, invitation *models.Invitation, user *models.User) error

	// Delete hard deletes an invitation
	Delete(ctx context.Context, id uint64) error
}

// GistRepository defines the interface for gist data access
type GistRepository interface {
	// Create creates a new gist
	Create(ctx context.Context, gist *models.Gist) error

	// FindByID finds a gist by ID with its author
	FindByID(ctx context.Context, id uint64) (*models.Gist, error)

	// FindBySlug finds a gist by slug with optional preloading
	FindBySlug(ctx context.Context, slug string, preload ...string) (*models.Gist, error)

	// List retrieves gists with filtering and pagination
	List(ctx context.Context, filter GistFilter) ([]models.Gist, int64, error)

	// Update updates a gist
	Update(ctx context.Context, gist *models.Gist) error

	// Delete deletes a gist and its topics
	Delete(ctx context.Context, id uint64) error
}

// GistFilter holds filtering options for listing gists
type GistFilter struct {
	OrganizationID *uint64
	AuthorID       *uint64
	Pagination     utils.PaginationParams
}

// TopicRepository defines the interface for topic data access
type TopicRepository interface {
	// CreateAppended inserts the topic after the gist's last topic
	CreateAppended(ctx context.Context, topic *models.Topic) error

	// FindByID finds a topic by ID with its gist
	FindByID(ctx context.Context, id uint64) (*models.Topic, error)

	// FindByIDs finds topics by ID in any order
	FindByIDs(ctx context.Context, ids []uint64) ([]models.Topic, error)

	// ListByGist lists a gist's topics by order
	ListByGist(ctx context.Context, gistID uint64) ([]models.Topic, error)

	// CountByGist counts a gist's topics
	CountByGist(ctx context.Context, gistID uint64) (int64, error)

	// Update updates a topic's title and content
	Update(ctx context.Context, topic *models.Topic) error

	// Delete deletes a topic and closes the gap it leaves in the order
	Delete(ctx context.Context, topic *models.Topic) error

	// Reorder writes every topic's new order in one transaction
	Reorder(ctx context.Context, gistID uint64, orders []TopicOrder) error
}

// TopicOrder is one row of a reorder batch
type TopicOrder struct {
	ID    uint64
	Order int
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/yukikurage/periodical/internal/constants"
	"github.com/yukikurage/periodical/internal/models"
	"github.com/yukikurage/periodical/internal/policy"
	"github.com/yukikurage/periodical/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrAccountInactive     = errors.New("account is inactive")
	ErrIncorrectPassword   = errors.New("current password is incorrect")
	ErrNameRequired        = errors.New("name is required")
	ErrEmailRequired       = errors.New("email is required")
	ErrBootstrapIncomplete = errors.New("super admin email and password are required")
)

// AuthService handles authentication related business logic.
type AuthService struct {
	userRepo repository.UserRepository
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository) *AuthService {
	return &AuthService{
		userRepo: userRepo,
	}
}

// normalizeEmail is the canonical form used for storage and lookups.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashPassword(password string) (string, error) {
	if len(password) < constants.MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), constants.BcryptCost)
	if err != nil {
		return "", ErrFailedToHashPassword
	}
	return string(hashed), nil
}

// SignupInput represents the required information to create a new user.
type SignupInput struct {
	Name     string
	Email    string
	Password string
}

// Signup creates an active content writer that belongs to no organization
// until an invitation is accepted.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*models.User, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}

	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hashed, err := hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: &hashed,
		Role:         models.RoleContentWriter,
		Status:       models.UserStatusActive,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials and returns the authenticated user.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive() {
		return nil, ErrAccountInactive
	}

	return user, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// ResolveActor loads the session user and returns the request principal.
// Deactivated accounts are rejected.
func (s *AuthService) ResolveActor(ctx context.Context, userID uint64) (policy.Actor, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return policy.Actor{}, err
	}
	if !user.IsActive() {
		return policy.Actor{}, ErrAccountInactive
	}
	return policy.NewActor(user), nil
}

// ChangePassword replaces the password after verifying the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID uint64, current, next string) error {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	if user.PasswordHash == nil ||
		bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(current)) != nil {
		return ErrIncorrectPassword
	}

	hashed, err := hashPassword(next)
	if err != nil {
		return err
	}

	user.PasswordHash = &hashed
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// BootstrapInput describes the super admin created at startup.
type BootstrapInput struct {
	Email    string
	Password string
	Name     string
}

// EnsureSuperAdmin creates the configured super admin, or promotes and
// reactivates an existing account with that email. The password of an
// existing account is left untouched.
func (s *AuthService) EnsureSuperAdmin(ctx context.Context, input BootstrapInput) (*models.User, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, ErrBootstrapIncomplete
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if user.Role == models.RoleSuperAdmin && user.IsActive() {
			return user, nil
		}
		user.Role = models.RoleSuperAdmin
		user.Status = models.UserStatusActive
		if err := s.userRepo.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to promote super admin: %w", err)
		}
		slog.InfoContext(ctx, "promoted existing user to super admin", "user_id", user.ID)
		return user, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("failed to find super admin: %w", err)
	}

	hashed, err := hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = models.RoleSuperAdmin.Label()
	}
	now := time.Now()
	user = &models.User{
		Name:            name,
		Email:           email,
		PasswordHash:    &hashed,
		Role:            models.RoleSuperAdmin,
		Status:          models.UserStatusActive,
		EmailVerifiedAt: &now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create super admin: %w", err)
	}

	slog.InfoContext(ctx, "created super admin", "user_id", user.ID)
	return user, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/yukikurage/review-portal/internal/constants"
	"github.com/yukikurage/review-portal/internal/identity"
	"github.com/yukikurage/review-portal/internal/logger"
	"github.com/yukikurage/review-portal/internal/metrics"
	"github.com/yukikurage/review-portal/internal/models"
	"github.com/yukikurage/review-portal/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles registration, authentication and manager admission.
type AuthService struct {
	userRepo   repository.UserRepository
	bcryptCost int
	log        *zap.Logger
	metrics    *metrics.Metrics
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository, bcryptCost int, log *zap.Logger, m *metrics.Metrics) *AuthService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		userRepo:   userRepo,
		bcryptCost: bcryptCost,
		log:        logger.OrNop(log),
		metrics:    m,
	}
}

// RegisterInput represents the required information to create a new user.
type RegisterInput struct {
	Email    string
	Password string
	Role     models.Role
	Name     string
}

// Register creates a new account. Managers start unapproved; everyone else
// is approved immediately.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	email := normalizeEmail(input.Email)
	name := strings.TrimSpace(input.Name)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if name == "" {
		return nil, ErrNameRequired
	}
	if utf8.RuneCountInString(name) > constants.MaxNameLength {
		return nil, ErrNameTooLong
	}
	if !input.Role.Valid() {
		return nil, ErrInvalidRole
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fromRepository(err)
	}

	hash, err := s.hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         input.Role,
		Name:         name,
		IsApproved:   !input.Role.RequiresApproval(),
		Version:      1,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateEmail
		}
		return nil, fromRepository(err)
	}

	s.log.Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.Bool("approved", user.IsApproved),
	)
	return user, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// Authenticate verifies credentials and returns the user. A manager awaiting
// approval is refused even with the right password.
func (s *AuthService) Authenticate(ctx context.Context, input LoginInput) (*models.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.AuthAttempt("password", "invalid")
			return nil, ErrInvalidCredential
		}
		return nil, fromRepository(err)
	}

	if user.PasswordHash == "" {
		s.metrics.AuthAttempt("password", "invalid")
		return nil, ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		s.metrics.AuthAttempt("password", "invalid")
		return nil, ErrInvalidCredential
	}

	if user.PendingApproval() {
		s.metrics.AuthAttempt("password", "pending")
		return nil, ErrPendingApproval
	}

	s.metrics.AuthAttempt("password", "success")
	return user, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fromRepository(err)
	}
	return user, nil
}

// ApproveManager lets an admin admit a pending manager.
func (s *AuthService) ApproveManager(ctx context.Context, actor *models.User, id string) (*models.User, error) {
	if actor.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}

	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fromRepository(err)
	}
	if !user.PendingApproval() {
		return nil, ErrNotFound
	}

	updated, err := s.userRepo.UpdateIf(ctx, id, user.Version,
		repository.Condition{"role": models.RoleManager, "is_approved": false},
		repository.Fields{"is_approved": true},
	)
	if err != nil {
		return nil, fromRepository(err)
	}

	s.log.Info("manager approved", zap.String("manager_id", id), zap.String("admin_id", actor.ID))
	return updated, nil
}

// RejectManager deletes a pending manager account.
func (s *AuthService) RejectManager(ctx context.Context, actor *models.User, id string) error {
	if actor.Role != models.RoleAdmin {
		return ErrForbidden
	}

	err := s.userRepo.DeleteIf(ctx, id, repository.Condition{"role": models.RoleManager, "is_approved": false})
	if err != nil {
		return fromRepository(err)
	}

	s.log.Info("manager rejected", zap.String("manager_id", id), zap.String("admin_id", actor.ID))
	return nil
}

// SSOProvision finds or creates the account for an external identity.
//
// A known (provider, providerId) pair returns its account. An email that
// already belongs to a password account must be linked by signing in with
// that password first; an email held by another SSO-only account is a
// conflict. Otherwise a new approved user is created with the provider's
// display name cut to fit.
func (s *AuthService) SSOProvision(ctx context.Context, profile *identity.Profile) (*models.User, error) {
	user, err := s.userRepo.FindByProvider(ctx, profile.Provider, profile.ProviderID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fromRepository(err)
	}

	email := normalizeEmail(profile.Email)
	if existing, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		if existing.PasswordHash == "" {
			return nil, ErrConflict
		}
		return nil, ErrRequiresPasswordLinkage
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fromRepository(err)
	}

	name := strings.TrimSpace(profile.Name)
	if name == "" {
		name = email
	}
	name = truncateRunes(name, constants.MaxNameLength)
	provider, providerID := profile.Provider, profile.ProviderID
	user = &models.User{
		ID:         uuid.NewString(),
		Email:      email,
		Role:       models.RoleUser,
		Name:       name,
		IsApproved: true,
		SSOLinked:  true,
		Provider:   &provider,
		ProviderID: &providerID,
		Version:    1,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrRequiresPasswordLinkage
		}
		return nil, fromRepository(err)
	}

	s.log.Info("sso user provisioned", zap.String("user_id", user.ID), zap.String("provider", provider))
	return user, nil
}

// LinkSSO attaches an external identity to the signed-in account.
func (s *AuthService) LinkSSO(ctx context.Context, actor *models.User, profile *identity.Profile) (*models.User, error) {
	existing, err := s.userRepo.FindByProvider(ctx, profile.Provider, profile.ProviderID)
	if err == nil {
		if existing.ID == actor.ID {
			return existing, nil
		}
		return nil, ErrConflict
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fromRepository(err)
	}

	updated, err := s.userRepo.UpdateIf(ctx, actor.ID, actor.Version, nil, repository.Fields{
		"provider":    profile.Provider,
		"provider_id": profile.ProviderID,
		"sso_linked":  true,
	})
	if err != nil {
		return nil, fromRepository(err)
	}

	s.log.Info("sso identity linked", zap.String("user_id", actor.ID), zap.String("provider", profile.Provider))
	return updated, nil
}

// UpdateProfileInput holds optional profile changes.
type UpdateProfileInput struct {
	Name     *string
	Password *string
}

// UpdateProfile applies self-service changes to the actor's own account.
func (s *AuthService) UpdateProfile(ctx context.Context, actor *models.User, input UpdateProfileInput) (*models.User, error) {
	fields := repository.Fields{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		if utf8.RuneCountInString(name) > constants.MaxNameLength {
			return nil, ErrNameTooLong
		}
		fields["name"] = name
	}
	if input.Password != nil {
		if len(*input.Password) < constants.MinPasswordLength {
			return nil, ErrPasswordTooShort
		}
		hash, err := s.hashPassword(*input.Password)
		if err != nil {
			return nil, err
		}
		fields["password_hash"] = hash
	}
	if len(fields) == 0 {
		return actor, nil
	}

	updated, err := s.userRepo.UpdateIf(ctx, actor.ID, actor.Version, nil, fields)
	if err != nil {
		return nil, fromRepository(err)
	}
	return updated, nil
}

// EnsureAdmin creates the bootstrap admin account when no admin exists yet.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password, name string) (bool, error) {
	count, err := s.userRepo.CountByRole(ctx, models.RoleAdmin)
	if err != nil {
		return false, fromRepository(err)
	}
	if count > 0 {
		return false, nil
	}

	_, err = s.Register(ctx, RegisterInput{
		Email:    email,
		Password: password,
		Role:     models.RoleAdmin,
		Name:     name,
	})
	if err != nil {
		return false, fmt.Errorf("failed to seed admin: %w", err)
	}
	return true, nil
}

func (s *AuthService) hashPassword(password string) (string, error) {
	return hashSecret(password, s.bcryptCost)
}

func hashSecret(secret string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// truncateRunes cuts s to at most n characters without splitting a rune.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

package services

import (
	"context"

	"github.com/yukikurage/review-portal/internal/models"
	"github.com/yukikurage/review-portal/internal/repository"
	"github.com/yukikurage/review-portal/internal/visibility"
)

// UserService serves the user directory as seen by each role.
type UserService struct {
	gw *repository.Gateway
}

// NewUserService creates a new UserService
func NewUserService(gw *repository.Gateway) *UserService {
	return &UserService{gw: gw}
}

// ListUsers returns the directory visible to actor.
func (s *UserService) ListUsers(ctx context.Context, actor *models.User) ([]models.User, error) {
	view, err := resolveView(ctx, s.gw, actor, 0)
	if err != nil {
		return nil, err
	}
	return view.Users, nil
}

// PendingManagers returns the manager-approval queue. Admin only.
func (s *UserService) PendingManagers(ctx context.Context, actor *models.User) ([]models.User, error) {
	if actor.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	view, err := resolveView(ctx, s.gw, actor, 0)
	if err != nil {
		return nil, err
	}
	return view.PendingManagers, nil
}

// AssignableUsers returns the accounts a task may be assigned to.
func (s *UserService) AssignableUsers(ctx context.Context, actor *models.User) ([]models.User, error) {
	view, err := resolveView(ctx, s.gw, actor, 0)
	if err != nil {
		return nil, err
	}
	return view.Assignable, nil
}

// GetUser returns a single account if actor may see it.
func (s *UserService) GetUser(ctx context.Context, actor *models.User, id string) (*models.User, error) {
	user, err := s.gw.Users.FindByID(ctx, id)
	if err != nil {
		return nil, fromRepository(err)
	}
	if !visibility.CanSeeUser(visibility.ActorFor(actor), user) {
		return nil, ErrNotFound
	}
	return user, nil
}

package services

import (
	"context"
	"errors"

	"github.com/yukikurage/review-portal/internal/identity"
	"github.com/yukikurage/review-portal/internal/models"
)

// SSOService signs users in through an injected identity provider.
type SSOService struct {
	auth      *AuthService
	providers *identity.Registry
}

// NewSSOService creates a new SSOService.
func NewSSOService(auth *AuthService, providers *identity.Registry) *SSOService {
	return &SSOService{auth: auth, providers: providers}
}

// Providers lists the provider names accepted by Login and Link.
func (s *SSOService) Providers() []string {
	return s.providers.Names()
}

// AuthURL returns the consent page URL for provider carrying state.
func (s *SSOService) AuthURL(provider, state string) (string, error) {
	p, err := s.providers.Get(provider)
	if err != nil {
		return "", ErrUnknownProvider
	}
	r, ok := p.(identity.Redirector)
	if !ok {
		return "", ErrNoRedirect
	}
	return r.AuthCodeURL(state), nil
}

// RequiresState reports whether callbacks from provider must echo the state
// handed out by AuthURL.
func (s *SSOService) RequiresState(provider string) bool {
	p, err := s.providers.Get(provider)
	if err != nil {
		return false
	}
	_, ok := p.(identity.Redirector)
	return ok
}

// Login exchanges code with the named provider and returns the matching or
// newly provisioned account.
func (s *SSOService) Login(ctx context.Context, provider, code string) (*models.User, error) {
	profile, err := s.exchange(ctx, provider, code)
	if err != nil {
		s.auth.metrics.AuthAttempt("sso", "invalid")
		return nil, err
	}

	user, err := s.auth.SSOProvision(ctx, profile)
	if err != nil {
		return nil, err
	}
	if user.PendingApproval() {
		s.auth.metrics.AuthAttempt("sso", "pending")
		return nil, ErrPendingApproval
	}

	s.auth.metrics.AuthAttempt("sso", "success")
	return user, nil
}

// Link attaches the identity behind code to the signed-in account.
func (s *SSOService) Link(ctx context.Context, actor *models.User, provider, code string) (*models.User, error) {
	profile, err := s.exchange(ctx, provider, code)
	if err != nil {
		return nil, err
	}
	return s.auth.LinkSSO(ctx, actor, profile)
}

func (s *SSOService) exchange(ctx context.Context, provider, code string) (*identity.Profile, error) {
	p, err := s.providers.Get(provider)
	if err != nil {
		return nil, ErrUnknownProvider
	}

	profile, err := p.ExchangeCode(ctx, code)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, ErrSSOExchangeFailed
	}
	return profile, nil
}

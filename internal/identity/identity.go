// Package identity abstracts external identity providers used for SSO.
package identity

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUnknownProvider   = errors.New("identity: unknown provider")
	ErrInvalidCode       = errors.New("identity: authorization code rejected")
	ErrIncompleteProfile = errors.New("identity: provider returned no email or subject")
)

// Profile is what an identity provider tells us about an account.
type Profile struct {
	Provider   string
	ProviderID string
	Email      string
	Name       string
	Picture    string
}

// Provider exchanges an authorization code for a profile.
type Provider interface {
	Name() string
	ExchangeCode(ctx context.Context, code string) (*Profile, error)
}

// Redirector is implemented by providers that send the browser to a consent
// page and call back with a code and the state they were given.
type Redirector interface {
	AuthCodeURL(state string) string
}

// Registry looks providers up by name.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry indexes providers by their lower-cased name.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.providers[strings.ToLower(p.Name())] = p
	}
	return r
}

// Get returns the named provider.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p, nil
}

// Names lists registered providers in alphabetical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func validate(p *Profile) error {
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	if p.Email == "" || p.ProviderID == "" {
		return ErrIncompleteProfile
	}
	if strings.TrimSpace(p.Name) == "" {
		p.Name = p.Email
	}
	return nil
}

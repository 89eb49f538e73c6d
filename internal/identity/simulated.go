package identity

import (
	"context"
	"fmt"
	"strings"
)

// SimulatedProvider fabricates a profile from the authorization code without
// contacting anyone. The same code always yields the same identity.
type SimulatedProvider struct {
	name        string
	displayName string
	emailDomain string
}

// NewSimulatedProvider creates a simulated provider.
func NewSimulatedProvider(name, displayName, emailDomain string) *SimulatedProvider {
	return &SimulatedProvider{name: name, displayName: displayName, emailDomain: emailDomain}
}

// DefaultSimulatedProviders returns the providers the portal offers out of the box.
func DefaultSimulatedProviders() []Provider {
	return []Provider{
		NewSimulatedProvider("google", "Google User", "gmail.com"),
		NewSimulatedProvider("microsoft", "Microsoft User", "outlook.com"),
		NewSimulatedProvider("github", "GitHub User", "users.noreply.github.com"),
	}
}

func (p *SimulatedProvider) Name() string { return p.name }

func (p *SimulatedProvider) ExchangeCode(ctx context.Context, code string) (*Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if code == "" || strings.ContainsAny(code, "@ /") {
		return nil, ErrInvalidCode
	}

	profile := &Profile{
		Provider:   p.name,
		ProviderID: fmt.Sprintf("%s_%s", p.name, code),
		Email:      fmt.Sprintf("%s@%s", code, p.emailDomain),
		Name:       p.displayName,
		Picture:    "https://via.placeholder.com/150",
	}
	if err := validate(profile); err != nil {
		return nil, err
	}
	return profile, nil
}

package identity

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
)

// OAuth2Provider performs a standard authorization-code exchange and reads
// the account from an OIDC-style userinfo endpoint.
type OAuth2Provider struct {
	name        string
	conf        *oauth2.Config
	userInfoURL string
	client      *resty.Client
}

// NewOAuth2Provider creates a provider for conf.
func NewOAuth2Provider(name string, conf *oauth2.Config, userInfoURL string) *OAuth2Provider {
	return &OAuth2Provider{
		name:        name,
		conf:        conf,
		userInfoURL: userInfoURL,
		client:      resty.New(),
	}
}

type userInfo struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (p *OAuth2Provider) Name() string { return p.name }

// AuthCodeURL returns the URL the browser is sent to for consent.
func (p *OAuth2Provider) AuthCodeURL(state string) string {
	return p.conf.AuthCodeURL(state)
}

func (p *OAuth2Provider) ExchangeCode(ctx context.Context, code string) (*Profile, error) {
	if code == "" {
		return nil, ErrInvalidCode
	}

	token, err := p.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}

	var info userInfo
	resp, err := p.client.R().
		SetContext(ctx).
		SetAuthToken(token.AccessToken).
		SetResult(&info).
		Get(p.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch userinfo: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("userinfo endpoint returned %d", resp.StatusCode())
	}

	profile := &Profile{
		Provider:   p.name,
		ProviderID: info.Sub,
		Email:      info.Email,
		Name:       info.Name,
		Picture:    info.Picture,
	}
	if err := validate(profile); err != nil {
		return nil, err
	}
	return profile, nil
}

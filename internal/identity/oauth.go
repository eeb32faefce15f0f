package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/oggyb/hwreports/internal/config"
	"github.com/oggyb/hwreports/internal/db"
)

var ErrNoEmail = errors.New("oauth provider did not return an email")

// Provider is an OAuth2 identity provider whose user info endpoint returns a
// JSON object with an "email" field.
type Provider struct {
	Name        string
	OAuth       *oauth2.Config
	UserInfoURL string
}

// ProvidersFromConfig builds the providers whose credentials are configured.
func ProvidersFromConfig(cfg config.AuthConfig) map[string]*Provider {
	providers := make(map[string]*Provider)
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" && cfg.GoogleRedirectURI != "" {
		providers[db.ProviderGoogle] = &Provider{
			Name: "Google",
			OAuth: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				RedirectURL:  cfg.GoogleRedirectURI,
				Endpoint:     endpoints.Google,
				Scopes:       []string{"openid", "email", "profile"},
			},
			UserInfoURL: "https://openidconnect.googleapis.com/v1/userinfo",
		}
	}
	if cfg.GitHubClientID != "" && cfg.GitHubClientSecret != "" && cfg.GitHubRedirectURI != "" {
		providers[db.ProviderGitHub] = &Provider{
			Name: "GitHub",
			OAuth: &oauth2.Config{
				ClientID:     cfg.GitHubClientID,
				ClientSecret: cfg.GitHubClientSecret,
				RedirectURL:  cfg.GitHubRedirectURI,
				Endpoint:     endpoints.GitHub,
				Scopes:       []string{"read:user", "user:email"},
			},
			UserInfoURL: "https://api.github.com/user",
		}
	}
	return providers
}

// fetchEmail exchanges code for a token and reads the user's email.
func (p *Provider) fetchEmail(ctx context.Context, code string) (string, error) {
	tok, err := p.OAuth.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("%s: exchange code: %w", p.Name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.UserInfoURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.OAuth.Client(ctx, tok).Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: fetch user info: %w", p.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%s: user info returned %d: %s", p.Name, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var info struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("%s: decode user info: %w", p.Name, err)
	}
	if info.Email == "" {
		return "", ErrNoEmail
	}
	return info.Email, nil
}

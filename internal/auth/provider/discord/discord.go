package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"kluvs-auth/internal/auth"
	"kluvs-auth/internal/logger"

	"golang.org/x/oauth2"
)

const providerName = "discord"

const userEndpoint = "https://discord.com/api/users/@me"

// Provider implements OAuth2 authentication against Discord.
// Discord does not speak OIDC, so instead of verifying an id_token the
// provider fetches /users/@me with the access token. Identity facts only;
// no member/session decisions are made here.
type Provider struct {
	oauthConfig *oauth2.Config
	httpClient  *http.Client
}

func New(
	clientID string,
	clientSecret string,
	redirectURL string,
) (*Provider, error) {

	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, errors.New("discord oauth config missing required fields")
	}

	oauthCfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://discord.com/oauth2/authorize",
			TokenURL: "https://discord.com/api/oauth2/token",
		},
		Scopes: []string{"identify", "email"},
	}

	return &Provider{
		oauthConfig: oauthCfg,
		httpClient:  http.DefaultClient,
	}, nil
}

// Name returns the provider identifier used by the registry.
func (p *Provider) Name() string {
	return providerName
}

// AuthCodeURL builds the OAuth authorization URL with PKCE parameters.
func (p *Provider) AuthCodeURL(state string, codeChallenge string) string {
	return p.oauthConfig.AuthCodeURL(
		state,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

func (p *Provider) ExchangeCode(
	ctx context.Context,
	code string,
	codeVerifier string,
) (*auth.Identity, error) {

	token, err := p.oauthConfig.Exchange(
		ctx,
		code,
		oauth2.SetAuthURLParam("code_verifier", codeVerifier),
	)
	if err != nil {
		return nil, fmt.Errorf("discord token exchange failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, userEndpoint, nil)
	if err != nil {
		return nil, err
	}
	token.SetAuthHeader(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("discord user fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discord user fetch returned %d", resp.StatusCode)
	}

	var user struct {
		ID         string `json:"id"`
		Username   string `json:"username"`
		GlobalName string `json:"global_name"`
		Email      string `json:"email"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("discord user decode failed: %w", err)
	}

	if user.ID == "" {
		return nil, errors.New("discord user response missing id")
	}

	logger.Info("discord user verified", map[string]any{
		"username_present": user.Username != "",
		"email_present":    user.Email != "",
	})

	metadata := map[string]string{}
	if user.GlobalName != "" {
		metadata[auth.MetaFullName] = user.GlobalName
	}
	if user.Username != "" {
		metadata[auth.MetaName] = user.Username
	}

	return &auth.Identity{
		Provider: providerName,
		ID:       user.ID,
		Email:    user.Email,
		Metadata: metadata,
	}, nil
}

package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/desertthunder/trackpick/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

// Authenticator owns both OAuth2 grants against the provider token endpoint.
//
// The client-credentials token source backs public read-only search. It is
// process-scoped, refreshes itself, and is never written to a user session.
// User tokens come from the authorization-code grant and live in the session
// store, outside this package.
type Authenticator struct {
	config *oauth2.Config
	public *http.Client
}

// NewAuthenticator validates credentials and performs the client-credentials
// grant eagerly, so a bad client id/secret fails at startup instead of on the
// first search. The context governs the grant and all later refreshes of the
// public token.
func NewAuthenticator(ctx context.Context, creds shared.SpotifyConfig) (*Authenticator, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: client_id and client_secret are required", shared.ErrMissingCredentials)
	}

	redirectURI := creds.RedirectURI
	if redirectURI == "" {
		redirectURI = "http://127.0.0.1:3000/authorize"
	}

	cc := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     spotifyTokenURL,
	}

	if _, err := cc.Token(ctx); err != nil {
		return nil, fmt.Errorf("%w: client credentials grant: %v", shared.ErrAuthFailed, err)
	}

	config := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       []string{"playlist-modify-private", "playlist-read-private"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &Authenticator{config: config, public: cc.Client(ctx)}, nil
}

// AuthCodeURL returns the provider authorize URL for the given state token.
func (a *Authenticator) AuthCodeURL(state string) string {
	return a.config.AuthCodeURL(state)
}

// Exchange performs the authorization-code grant.
func (a *Authenticator) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := a.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: code exchange: %v", shared.ErrAuthFailed, err)
	}
	return token, nil
}

// Client returns an HTTP client backed by the given user token. The client
// refreshes the token transparently when the provider allows it.
func (a *Authenticator) Client(ctx context.Context, token *oauth2.Token) *http.Client {
	return a.config.Client(ctx, token)
}

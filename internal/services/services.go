package services

import (
	"context"
	"net/http"

	"github.com/desertthunder/trackpick/internal/models"
	"golang.org/x/oauth2"
)

// Service defines the provider operations the web and CLI layers consume.
type Service interface {
	// SearchSongs aggregates paginated search results for query, filtered to
	// tracks whose canonicalized name contains the canonicalized query, until
	// count matches accumulate or the provider reports no further pages.
	// Transient provider failures degrade to a short (possibly empty) result.
	SearchSongs(ctx context.Context, query string, count int) ([]models.Track, error)

	// AuthCodeURL returns the provider authorize URL for the
	// authorization-code grant, embedding the configured callback and state.
	AuthCodeURL(state string) string

	// Exchange trades an authorization code for a user token. Failures here
	// are hard errors; there is no graceful degradation on this path.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)

	// CurrentUser resolves the stored token to a provider user. Any provider
	// error is reported as ErrNotAuthenticated so callers restart the
	// authorization flow instead of retrying.
	CurrentUser(ctx context.Context, token *oauth2.Token) (*AuthenticatedUser, error)

	// EnsurePlaylist finds or creates the named playlist for the user,
	// appends the given track ids minus any already present, and returns the
	// playlist id in all cases.
	EnsurePlaylist(ctx context.Context, user *AuthenticatedUser, name string, songIDs []string) (string, error)

	// GetPlaylist fetches a playlist's metadata and ordered track listing.
	GetPlaylist(ctx context.Context, user *AuthenticatedUser, playlistID string) (*models.Playlist, error)

	// ListPlaylists pages through the user's playlists until the provider
	// reports no further page.
	ListPlaylists(ctx context.Context, user *AuthenticatedUser) ([]models.PlaylistSummary, error)

	// Name returns the name of the provider (e.g., "Spotify")
	Name() string
}

// AuthenticatedUser pairs a provider user id with the token-backed HTTP
// client that produced it. It is derived on demand from a session token and
// never persisted independently.
type AuthenticatedUser struct {
	UserID string
	client *http.Client
}

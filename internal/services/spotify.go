// Spotify API implementation of [Service]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/trackpick/internal/models"
	"github.com/desertthunder/trackpick/internal/search"
	"github.com/desertthunder/trackpick/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// pageSize is the provider's maximum page size for search and playlist listings.
const pageSize = 50

// playlistDescription is the fixed tag applied to playlists the app creates.
const playlistDescription = "Made with trackpick"

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Artists      []SpotifyArtist   `json:"artists"`
	ReleaseDate  string            `json:"release_date"`
	Images       []SpotifyImage    `json:"images"`
	ExternalURLs map[string]string `json:"external_urls"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	Popularity int             `json:"popularity"`
	URI        string          `json:"uri"`
}

type searchTracks struct {
	Items []SpotifyTrack `json:"items"`
	Next  *string        `json:"next"`
}

// SpotifySearchResponse represents the track portion of a search response.
type SpotifySearchResponse struct {
	Tracks searchTracks `json:"tracks"`
}

// SpotifyUser represents the authenticated user's profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifyPlaylistTrack represents a track within a playlist context.
type SpotifyPlaylistTrack struct {
	Track SpotifyTrack `json:"track"`
}

type playlistTracks struct {
	Items []SpotifyPlaylistTrack `json:"items"`
}

// SpotifyPlaylist represents a full playlist object.
type SpotifyPlaylist struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Images       []SpotifyImage    `json:"images"`
	ExternalURLs map[string]string `json:"external_urls"`
	Tracks       playlistTracks    `json:"tracks"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items  []SpotifySimplePlaylist `json:"items"`
	Total  int                     `json:"total"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
	Next   *string                 `json:"next"`
}

// SpotifyService implements [Service] against the Spotify Web API.
//
// All requests share one client-side rate limiter so concurrent inbound
// requests stay inside the provider's request budget.
type SpotifyService struct {
	auth    *Authenticator
	baseURL string
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewSpotifyService creates a Spotify service on top of an [Authenticator].
// rateLimit is requests per second against the API; values <= 0 fall back to
// a conservative default.
func NewSpotifyService(auth *Authenticator, rateLimit float64, logger *log.Logger) *SpotifyService {
	if rateLimit <= 0 {
		rateLimit = 5.0
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &SpotifyService{
		auth:    auth,
		baseURL: spotifyBaseURL,
		limiter: rate.NewLimiter(rate.Limit(rateLimit), 1),
		logger:  logger,
	}
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// AuthCodeURL returns the provider authorize URL for user login.
func (s *SpotifyService) AuthCodeURL(state string) string {
	return s.auth.AuthCodeURL(state)
}

// Exchange performs the authorization-code grant.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return s.auth.Exchange(ctx, code)
}

// doRequest performs a rate-limited HTTP request to the Spotify API using the
// given client and decodes the JSON response into result when non-nil.
func (s *SpotifyService) doRequest(ctx context.Context, client *http.Client, method, endpoint string, body, result any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	apiURL := s.baseURL + endpoint

	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// SearchSongs aggregates paginated search pages, keeping candidates whose
// canonicalized name contains the canonicalized query, until count matches
// accumulate or the provider is exhausted.
//
// A failed or malformed page ends the aggregation quietly: search is
// best-effort discovery, so a transient provider error yields fewer results,
// never an error to the caller. Filtering happens after each full page, so
// the accumulator can overshoot; the result is truncated to count before
// returning.
func (s *SpotifyService) SearchSongs(ctx context.Context, query string, count int) ([]models.Track, error) {
	songs := []models.Track{}
	if query == "" || count <= 0 {
		return songs, nil
	}

	canonical := search.Canonicalize(query)

	offset := 0
	more := true
	for len(songs) < count && more {
		endpoint := fmt.Sprintf("/search?q=%s&type=track&limit=%d&offset=%d", url.QueryEscape(query), pageSize, offset)

		var page SpotifySearchResponse
		if err := s.doRequest(ctx, s.auth.public, http.MethodGet, endpoint, nil, &page); err != nil {
			s.logger.Warn("search page fetch failed, treating as exhausted", "offset", offset, "err", err)
			break
		}

		for _, item := range page.Tracks.Items {
			if !strings.Contains(search.Canonicalize(item.Name), canonical) {
				continue
			}
			songs = append(songs, trackFromAPI(item))
		}

		more = page.Tracks.Next != nil
		offset += pageSize
	}

	if len(songs) > count {
		songs = songs[:count]
	}

	return songs, nil
}

// trackFromAPI maps a provider track onto the app's [models.Track] snapshot.
func trackFromAPI(item SpotifyTrack) models.Track {
	names := make([]string, 0, len(item.Artists))
	for _, artist := range item.Artists {
		names = append(names, artist.Name)
	}

	var icon string
	for _, image := range item.Album.Images {
		if image.Width == 64 {
			icon = image.URL
			break
		}
	}

	var year string
	if len(item.Album.ReleaseDate) >= 4 {
		year = item.Album.ReleaseDate[:4]
	}

	return models.Track{
		ID:          item.ID,
		Name:        item.Name,
		Artists:     strings.Join(names, ", "),
		Popularity:  item.Popularity,
		URL:         item.Album.ExternalURLs["spotify"],
		IconURL:     icon,
		ReleaseYear: year,
	}
}

// CurrentUser resolves a stored session token to a provider user by calling
// the "who am I" endpoint. Any failure means the token is no longer usable,
// so the caller gets ErrNotAuthenticated and must restart the authorization
// flow; the check is never retried.
func (s *SpotifyService) CurrentUser(ctx context.Context, token *oauth2.Token) (*AuthenticatedUser, error) {
	if token == nil {
		return nil, shared.ErrNotAuthenticated
	}

	client := s.auth.Client(ctx, token)

	var user SpotifyUser
	if err := s.doRequest(ctx, client, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, err)
	}

	return &AuthenticatedUser{UserID: user.ID, client: client}, nil
}

// ListPlaylists pages through the user's playlists until the provider reports
// no further page.
func (s *SpotifyService) ListPlaylists(ctx context.Context, user *AuthenticatedUser) ([]models.PlaylistSummary, error) {
	var playlists []models.PlaylistSummary

	offset := 0
	for {
		endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", pageSize, offset)

		var page SpotifyPaginatedPlaylists
		if err := s.doRequest(ctx, user.client, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			playlists = append(playlists, models.PlaylistSummary{ID: item.ID, Name: item.Name})
		}

		if page.Next == nil {
			break
		}
		offset += pageSize
	}

	return playlists, nil
}

// GetPlaylist fetches a playlist's name, external URL, representative icon
// (first image the provider returns), and ordered track listing.
func (s *SpotifyService) GetPlaylist(ctx context.Context, user *AuthenticatedUser, playlistID string) (*models.Playlist, error) {
	endpoint := fmt.Sprintf("/playlists/%s", playlistID)

	var playlist SpotifyPlaylist
	if err := s.doRequest(ctx, user.client, http.MethodGet, endpoint, nil, &playlist); err != nil {
		return nil, err
	}

	var icon string
	if len(playlist.Images) > 0 {
		icon = playlist.Images[0].URL
	}

	songs := make([]models.PlaylistEntry, 0, len(playlist.Tracks.Items))
	for _, item := range playlist.Tracks.Items {
		songs = append(songs, models.PlaylistEntry{ID: item.Track.ID, Name: item.Track.Name})
	}

	return &models.Playlist{
		ID:      playlist.ID,
		Name:    playlist.Name,
		URL:     playlist.ExternalURLs["spotify"],
		IconURL: icon,
		Songs:   songs,
	}, nil
}

// EnsurePlaylist finds or creates the playlist with the given name (exact,
// case-sensitive match) and appends songIDs minus any track already present.
//
// The pre-filtering makes a repeated add for the same playlist name
// idempotent with respect to duplicate tracks. The append is issued even when
// every id was filtered out; an empty append is a legal no-op. Errors on this
// path are hard failures for the request, with no retry.
func (s *SpotifyService) EnsurePlaylist(ctx context.Context, user *AuthenticatedUser, name string, songIDs []string) (string, error) {
	playlists, err := s.ListPlaylists(ctx, user)
	if err != nil {
		return "", err
	}

	var playlistID string
	for _, playlist := range playlists {
		if playlist.Name == name {
			playlistID = playlist.ID
			break
		}
	}

	if playlistID != "" {
		existing, err := s.GetPlaylist(ctx, user, playlistID)
		if err != nil {
			return "", err
		}

		present := make(map[string]struct{}, len(existing.Songs))
		for _, song := range existing.Songs {
			present[song.ID] = struct{}{}
		}

		remaining := make([]string, 0, len(songIDs))
		for _, id := range songIDs {
			if _, ok := present[id]; ok {
				continue
			}
			remaining = append(remaining, id)
		}
		songIDs = remaining
	} else {
		endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(user.UserID))
		body := map[string]any{
			"name":        name,
			"description": playlistDescription,
			"public":      false,
		}

		var created SpotifyPlaylist
		if err := s.doRequest(ctx, user.client, http.MethodPost, endpoint, body, &created); err != nil {
			return "", err
		}
		playlistID = created.ID
	}

	uris := make([]string, 0, len(songIDs))
	for _, id := range songIDs {
		uris = append(uris, "spotify:track:"+id)
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", playlistID)
	if err := s.doRequest(ctx, user.client, http.MethodPost, endpoint, map[string]any{"uris": uris}, nil); err != nil {
		return "", err
	}

	return playlistID, nil
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/desertthunder/trackpick/internal/shared"
	"golang.org/x/oauth2"
)

// newTestService wires a SpotifyService against an httptest provider.
func newTestService(t *testing.T, handler http.Handler) (*SpotifyService, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	auth := &Authenticator{
		config: &oauth2.Config{
			ClientID:     "test_client_id",
			ClientSecret: "test_client_secret",
			RedirectURL:  "http://127.0.0.1:3000/authorize",
			Scopes:       []string{"playlist-modify-private", "playlist-read-private"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  srv.URL + "/authorize",
				TokenURL: srv.URL + "/token",
			},
		},
		public: srv.Client(),
	}

	svc := NewSpotifyService(auth, 1000, shared.NewLogger(io.Discard))
	svc.baseURL = srv.URL

	return svc, srv
}

func testUser(id string, srv *httptest.Server) *AuthenticatedUser {
	return &AuthenticatedUser{UserID: id, client: srv.Client()}
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatalf("failed to encode response: %v", err)
	}
}

func searchTrack(id, name, artist string, popularity int) SpotifyTrack {
	return SpotifyTrack{
		ID:         id,
		Name:       name,
		Artists:    []SpotifyArtist{{ID: artist, Name: artist}},
		Popularity: popularity,
		URI:        "spotify:track:" + id,
		Album: SpotifyAlbum{
			ReleaseDate:  "1965-08-06",
			Images:       []SpotifyImage{{URL: "http://img/640", Width: 640}, {URL: "http://img/64", Width: 64}},
			ExternalURLs: map[string]string{"spotify": "http://open/" + id},
		},
	}
}

func TestSearchSongs(t *testing.T) {
	t.Run("Filters And Paginates", func(t *testing.T) {
		// Two pages: 3 matching tracks scattered among 7 non-matching ones.
		pages := map[string]SpotifySearchResponse{
			"0": {Tracks: searchTracks{
				Items: []SpotifyTrack{
					searchTrack("m1", "Yesterday", "The Beatles", 90),
					searchTrack("x1", "Something Else", "A", 80),
					searchTrack("m2", "Yesterday Once More", "Carpenters", 70),
					searchTrack("x2", "Another", "B", 60),
					searchTrack("x3", "Nope", "C", 50),
				},
				Next: ptr("next-page"),
			}},
			"50": {Tracks: searchTracks{
				Items: []SpotifyTrack{
					searchTrack("x4", "Wrong", "D", 40),
					searchTrack("m3", "yesterday!!!", "Covers Inc", 30),
					searchTrack("x5", "Off Topic", "E", 20),
					searchTrack("x6", "Miss", "F", 10),
					searchTrack("x7", "Nothing", "G", 5),
				},
				Next: nil,
			}},
		}

		var queries []string
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/search" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			queries = append(queries, r.URL.Query().Get("q"))
			if got := r.URL.Query().Get("limit"); got != "50" {
				t.Errorf("expected limit 50, got %s", got)
			}
			writeJSON(t, w, pages[r.URL.Query().Get("offset")])
		})

		svc, _ := newTestService(t, handler)

		songs, err := svc.SearchSongs(context.Background(), "yesterday", 5)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(songs) != 3 {
			t.Fatalf("expected 3 matching tracks, got %d", len(songs))
		}
		for _, song := range songs {
			canonical := strings.ToLower(song.Name)
			if !strings.Contains(canonical, "yesterday") {
				t.Errorf("track %q does not contain the query", song.Name)
			}
		}

		if len(queries) != 2 {
			t.Errorf("expected 2 page fetches, got %d", len(queries))
		}
	})

	t.Run("Maps Provider Fields", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, SpotifySearchResponse{Tracks: searchTracks{
				Items: []SpotifyTrack{{
					ID:         "t1",
					Name:       "Yesterday",
					Artists:    []SpotifyArtist{{Name: "The Beatles"}, {Name: "George Martin"}},
					Popularity: 88,
					Album: SpotifyAlbum{
						ReleaseDate:  "1965-08-06",
						Images:       []SpotifyImage{{URL: "http://img/64", Width: 64}},
						ExternalURLs: map[string]string{"spotify": "http://open/t1"},
					},
				}},
			}})
		})

		svc, _ := newTestService(t, handler)

		songs, err := svc.SearchSongs(context.Background(), "yesterday", 1)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(songs) != 1 {
			t.Fatalf("expected 1 track, got %d", len(songs))
		}

		track := songs[0]
		if track.Artists != "The Beatles, George Martin" {
			t.Errorf("expected joined artists, got %q", track.Artists)
		}
		if track.ReleaseYear != "1965" {
			t.Errorf("expected release year 1965, got %q", track.ReleaseYear)
		}
		if track.IconURL != "http://img/64" {
			t.Errorf("expected 64px icon, got %q", track.IconURL)
		}
		if track.URL != "http://open/t1" {
			t.Errorf("expected album URL, got %q", track.URL)
		}
	})

	t.Run("Truncates To Count", func(t *testing.T) {
		items := make([]SpotifyTrack, 0, 10)
		for i := 0; i < 10; i++ {
			id := fmt.Sprintf("t%d", i)
			items = append(items, searchTrack(id, "Yesterday "+id, "Artist "+id, i))
		}

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, SpotifySearchResponse{Tracks: searchTracks{Items: items}})
		})

		svc, _ := newTestService(t, handler)

		songs, err := svc.SearchSongs(context.Background(), "yesterday", 4)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(songs) != 4 {
			t.Errorf("expected exactly 4 tracks, got %d", len(songs))
		}
	})

	t.Run("Provider Failure Degrades To Exhaustion", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream sad", http.StatusInternalServerError)
		})

		svc, _ := newTestService(t, handler)

		songs, err := svc.SearchSongs(context.Background(), "yesterday", 5)
		if err != nil {
			t.Fatalf("search must not surface provider errors, got %v", err)
		}
		if len(songs) != 0 {
			t.Errorf("expected empty result, got %d tracks", len(songs))
		}
	})

	t.Run("Malformed Page Degrades To Exhaustion", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		})

		svc, _ := newTestService(t, handler)

		songs, err := svc.SearchSongs(context.Background(), "yesterday", 5)
		if err != nil {
			t.Fatalf("search must not surface decode errors, got %v", err)
		}
		if len(songs) != 0 {
			t.Errorf("expected empty result, got %d tracks", len(songs))
		}
	})

	t.Run("Empty Query And Zero Count", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request should be made")
		})

		svc, _ := newTestService(t, handler)

		if songs, err := svc.SearchSongs(context.Background(), "", 5); err != nil || len(songs) != 0 {
			t.Errorf("expected empty result for empty query, got %d tracks, err %v", len(songs), err)
		}
		if songs, err := svc.SearchSongs(context.Background(), "yesterday", 0); err != nil || len(songs) != 0 {
			t.Errorf("expected empty result for zero count, got %d tracks, err %v", len(songs), err)
		}
	})
}

func TestCurrentUser(t *testing.T) {
	t.Run("Resolves User From Token", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/me" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if auth := r.Header.Get("Authorization"); !strings.Contains(auth, "user-token") {
				t.Errorf("expected bearer token on request, got %q", auth)
			}
			writeJSON(t, w, SpotifyUser{ID: "user1", DisplayName: "Test User"})
		})

		svc, _ := newTestService(t, handler)

		user, err := svc.CurrentUser(context.Background(), &oauth2.Token{AccessToken: "user-token"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if user.UserID != "user1" {
			t.Errorf("expected user1, got %s", user.UserID)
		}
	})

	t.Run("Nil Token", func(t *testing.T) {
		svc, _ := newTestService(t, http.NotFoundHandler())

		_, err := svc.CurrentUser(context.Background(), nil)
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("Provider Error Means Deauthenticated", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad token", http.StatusUnauthorized)
		})

		svc, _ := newTestService(t, handler)

		_, err := svc.CurrentUser(context.Background(), &oauth2.Token{AccessToken: "stale"})
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}

func TestAuthCodeURL(t *testing.T) {
	svc, _ := newTestService(t, http.NotFoundHandler())

	authURL := svc.AuthCodeURL("test_state")
	if authURL == "" {
		t.Fatal("expected auth URL to be generated")
	}

	for _, want := range []string{"test_client_id", "test_state", "response_type=code", "playlist-modify-private"} {
		if !strings.Contains(authURL, want) {
			t.Errorf("auth URL should contain %q, got %s", want, authURL)
		}
	}
}

func TestExchange(t *testing.T) {
	t.Run("Trades Code For Token", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/token" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			writeJSON(t, w, map[string]any{
				"access_token":  "fresh-token",
				"token_type":    "Bearer",
				"refresh_token": "refresh",
				"expires_in":    3600,
			})
		})

		svc, _ := newTestService(t, handler)

		token, err := svc.Exchange(context.Background(), "auth-code")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token.AccessToken != "fresh-token" {
			t.Errorf("expected fresh-token, got %s", token.AccessToken)
		}
	})

	t.Run("Propagates Failure", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "denied", http.StatusBadRequest)
		})

		svc, _ := newTestService(t, handler)

		if _, err := svc.Exchange(context.Background(), "bad-code"); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})
}

func TestListPlaylists(t *testing.T) {
	t.Run("Paginates Until Exhausted", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/me/playlists" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}

			offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
			switch offset {
			case 0:
				writeJSON(t, w, SpotifyPaginatedPlaylists{
					Items: []SpotifySimplePlaylist{{ID: "p1", Name: "First"}, {ID: "p2", Name: "Second"}},
					Next:  ptr("more"),
				})
			default:
				writeJSON(t, w, SpotifyPaginatedPlaylists{
					Items: []SpotifySimplePlaylist{{ID: "p3", Name: "Third"}},
				})
			}
		})

		svc, srv := newTestService(t, handler)

		playlists, err := svc.ListPlaylists(context.Background(), testUser("user1", srv))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(playlists) != 3 {
			t.Fatalf("expected 3 playlists, got %d", len(playlists))
		}
		if playlists[2].ID != "p3" {
			t.Errorf("expected p3 last, got %s", playlists[2].ID)
		}
	})

	t.Run("Propagates Errors", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusForbidden)
		})

		svc, srv := newTestService(t, handler)

		if _, err := svc.ListPlaylists(context.Background(), testUser("user1", srv)); err == nil {
			t.Error("expected error from playlist listing")
		}
	})
}

// fakePlaylistProvider simulates the provider's playlist endpoints with
// in-memory state so find-or-create and append behavior can be exercised
// end to end.
type fakePlaylistProvider struct {
	t        *testing.T
	name     string
	tracks   []string
	created  int
	appended int
}

func (f *fakePlaylistProvider) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/me/playlists", func(w http.ResponseWriter, r *http.Request) {
		items := []SpotifySimplePlaylist{}
		if f.name != "" {
			items = append(items, SpotifySimplePlaylist{ID: "pl1", Name: f.name})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(SpotifyPaginatedPlaylists{Items: items})
	})

	mux.HandleFunc("/users/user1/playlists", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			Public      bool   `json:"public"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			f.t.Errorf("bad create body: %v", err)
		}
		if body.Public {
			f.t.Error("created playlist should be private")
		}
		if body.Description == "" {
			f.t.Error("created playlist should carry the app description")
		}

		f.name = body.Name
		f.created++
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(SpotifyPlaylist{ID: "pl1", Name: body.Name})
	})

	mux.HandleFunc("/playlists/pl1", func(w http.ResponseWriter, r *http.Request) {
		items := make([]SpotifyPlaylistTrack, 0, len(f.tracks))
		for _, id := range f.tracks {
			items = append(items, SpotifyPlaylistTrack{Track: SpotifyTrack{ID: id, Name: "Track " + id}})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(SpotifyPlaylist{
			ID:           "pl1",
			Name:         f.name,
			ExternalURLs: map[string]string{"spotify": "http://open/pl1"},
			Images:       []SpotifyImage{{URL: "http://img/pl1"}},
			Tracks:       playlistTracks{Items: items},
		})
	})

	mux.HandleFunc("/playlists/pl1/tracks", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			URIs []string `json:"uris"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			f.t.Errorf("bad append body: %v", err)
		}

		f.appended++
		for _, uri := range body.URIs {
			f.tracks = append(f.tracks, strings.TrimPrefix(uri, "spotify:track:"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"snapshot_id":"snap"}`))
	})

	return mux
}

func TestEnsurePlaylist(t *testing.T) {
	t.Run("Creates When Missing", func(t *testing.T) {
		provider := &fakePlaylistProvider{t: t}
		svc, srv := newTestService(t, provider.handler())

		id, err := svc.EnsurePlaylist(context.Background(), testUser("user1", srv), "My Mix", []string{"a", "b"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if id != "pl1" {
			t.Errorf("expected pl1, got %s", id)
		}
		if provider.created != 1 {
			t.Errorf("expected 1 create call, got %d", provider.created)
		}
		if len(provider.tracks) != 2 {
			t.Errorf("expected 2 tracks appended, got %d", len(provider.tracks))
		}
	})

	t.Run("Repeated Add Is Idempotent", func(t *testing.T) {
		provider := &fakePlaylistProvider{t: t}
		svc, srv := newTestService(t, provider.handler())
		user := testUser("user1", srv)

		for i := 0; i < 2; i++ {
			if _, err := svc.EnsurePlaylist(context.Background(), user, "My Mix", []string{"a", "b"}); err != nil {
				t.Fatalf("round %d: expected no error, got %v", i, err)
			}
		}

		if provider.created != 1 {
			t.Errorf("expected playlist created once, got %d", provider.created)
		}

		counts := map[string]int{}
		for _, id := range provider.tracks {
			counts[id]++
		}
		for id, n := range counts {
			if n != 1 {
				t.Errorf("track %s appended %d times", id, n)
			}
		}
	})

	t.Run("Empty Append Still Issued", func(t *testing.T) {
		provider := &fakePlaylistProvider{t: t, name: "My Mix", tracks: []string{"a", "b"}}
		svc, srv := newTestService(t, provider.handler())

		id, err := svc.EnsurePlaylist(context.Background(), testUser("user1", srv), "My Mix", []string{"a", "b"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if id != "pl1" {
			t.Errorf("expected pl1, got %s", id)
		}
		if provider.appended != 1 {
			t.Errorf("expected the empty append call to be issued, got %d calls", provider.appended)
		}
		if len(provider.tracks) != 2 {
			t.Errorf("expected no new tracks, got %d total", len(provider.tracks))
		}
	})

	t.Run("Name Match Is Exact", func(t *testing.T) {
		provider := &fakePlaylistProvider{t: t, name: "my mix"}
		svc, srv := newTestService(t, provider.handler())

		if _, err := svc.EnsurePlaylist(context.Background(), testUser("user1", srv), "My Mix", []string{"a"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if provider.created != 1 {
			t.Errorf("differently-cased name should not match; expected a create call, got %d", provider.created)
		}
	})
}

func TestGetPlaylist(t *testing.T) {
	provider := &fakePlaylistProvider{t: t, name: "My Mix", tracks: []string{"a", "b"}}
	svc, srv := newTestService(t, provider.handler())

	playlist, err := svc.GetPlaylist(context.Background(), testUser("user1", srv), "pl1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if playlist.Name != "My Mix" {
		t.Errorf("expected name My Mix, got %s", playlist.Name)
	}
	if playlist.URL != "http://open/pl1" {
		t.Errorf("expected external URL, got %s", playlist.URL)
	}
	if playlist.IconURL != "http://img/pl1" {
		t.Errorf("expected first image as icon, got %s", playlist.IconURL)
	}
	if len(playlist.Songs) != 2 || playlist.Songs[0].ID != "a" {
		t.Errorf("expected ordered track listing, got %+v", playlist.Songs)
	}
}

func TestNewAuthenticator(t *testing.T) {
	t.Run("Missing Credentials", func(t *testing.T) {
		_, err := NewAuthenticator(context.Background(), shared.SpotifyConfig{})
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Missing Secret", func(t *testing.T) {
		_, err := NewAuthenticator(context.Background(), shared.SpotifyConfig{ClientID: "id"})
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func ptr(s string) *string { return &s }

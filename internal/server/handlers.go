package server

import (
	"context"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/trackpick/internal/models"
	"github.com/desertthunder/trackpick/internal/search"
	"github.com/desertthunder/trackpick/internal/services"
	"github.com/desertthunder/trackpick/internal/session"
	"github.com/desertthunder/trackpick/internal/shared"
	"github.com/desertthunder/trackpick/internal/web"
)

// sessionCookie names the browser cookie carrying the session id.
const sessionCookie = "trackpick_session"

// authWarning is the non-blocking advisory shown after a declined or
// malformed authorization callback. Search keeps working; the next playlist
// add re-prompts for authorization.
const authWarning = "Spotify authorization didn't complete. You can keep searching; adding to a playlist will ask again."

// App handles the four routes of the playlist builder: the search page, the
// add-to-playlist post, the confirmation page, and the authorization
// callback. It implements [Handler].
type App struct {
	service   services.Service
	sessions  *session.Store
	views     *web.Templates
	logger    *log.Logger
	maxSongs  int
	overfetch int
}

// AppOpts contains configuration options for creating an App.
type AppOpts struct {
	Service   services.Service
	Sessions  *session.Store
	Views     *web.Templates
	Logger    *log.Logger
	MaxSongs  int
	Overfetch int
}

// NewApp creates the route handler with the provided dependencies.
func NewApp(opts AppOpts) *App {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.MaxSongs <= 0 {
		opts.MaxSongs = 32
	}
	if opts.Overfetch <= 0 {
		opts.Overfetch = 10
	}

	return &App{
		service:   opts.Service,
		sessions:  opts.Sessions,
		views:     opts.Views,
		logger:    opts.Logger,
		maxSongs:  opts.MaxSongs,
		overfetch: opts.Overfetch,
	}
}

// Routes returns the HTTP routes this handler serves.
func (a *App) Routes() []string {
	return []string{"/", "/add", "/added", "/authorize"}
}

// ServeHTTP dispatches to the route handlers.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/":
		a.handleIndex(w, r)
	case "/add":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		a.handleAdd(w, r)
	case "/added":
		a.handleAdded(w, r)
	case "/authorize":
		a.handleAuthorize(w, r)
	default:
		http.NotFound(w, r)
	}
}

// session returns the request's live session id, creating a session and
// setting the cookie when the browser has none (or an expired one).
func (a *App) session(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookie); err == nil && a.sessions.Exists(cookie.Value) {
		return cookie.Value
	}

	id, err := a.sessions.Create()
	if err != nil {
		a.logger.Error("failed to create session", "err", err)
		return ""
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   int(a.sessions.Lifetime().Seconds()),
	})

	return id
}

// currentUser resolves the session's stored token to a provider user.
// Any failure (no token, expired session, provider rejecting the token)
// reads as "no user": the caller re-initiates authorization.
func (a *App) currentUser(ctx context.Context, sessionID string) *services.AuthenticatedUser {
	token, err := a.sessions.Token(sessionID)
	if err != nil || token == nil {
		return nil
	}

	user, err := a.service.CurrentUser(ctx, token)
	if err != nil {
		a.logger.Debug("stored token rejected", "err", err)
		return nil
	}

	return user
}

// handleIndex renders the search form, or runs a search when ?s= is present.
func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("s")
	if query == "" {
		page := web.SearchPage{}
		if r.URL.Query().Get("warn") != "" {
			page.Warning = authWarning
		}
		a.render(w, "search.html", page)
		return
	}

	// Over-fetch so name filtering and per-artist dedup still leave a full
	// page. Search errors degrade to the empty-state page, never a failure.
	tracks, err := a.service.SearchSongs(r.Context(), query, a.maxSongs*a.overfetch)
	if err != nil {
		a.logger.Warn("search failed", "query", query, "err", err)
		tracks = nil
	}

	top := search.RankAndDedup(tracks, a.maxSongs)
	a.render(w, "songs.html", web.SongsPage{Search: query, Songs: top})
}

// handleAdd builds the playlist for an authenticated user, or stashes the
// request and redirects into the authorization flow.
func (a *App) handleAdd(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad form data", http.StatusBadRequest)
		return
	}

	name := r.PostFormValue("s")
	songIDs := r.PostForm["song_id"]
	if name == "" || len(songIDs) == 0 {
		http.Error(w, "A playlist name and at least one song are required", http.StatusBadRequest)
		return
	}

	sessionID := a.session(w, r)
	user := a.currentUser(r.Context(), sessionID)
	if user == nil {
		// Remember what they were adding, then send them to the provider.
		// Two tabs adding at once race on this stash; last write wins.
		if err := a.sessions.StashPendingAdd(sessionID, models.PendingAdd{Name: name, SongIDs: songIDs}); err != nil {
			a.logger.Error("failed to stash pending add", "err", err)
			http.Error(w, "Something went wrong", http.StatusInternalServerError)
			return
		}

		state := shared.GenerateID()
		if err := a.sessions.SetOAuthState(sessionID, state); err != nil {
			a.logger.Error("failed to store oauth state", "err", err)
			http.Error(w, "Something went wrong", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, a.service.AuthCodeURL(state), http.StatusSeeOther)
		return
	}

	playlistID, err := a.service.EnsurePlaylist(r.Context(), user, name, songIDs)
	if err != nil {
		a.logger.Error("failed to build playlist", "name", name, "err", err)
		http.Error(w, "Could not update the playlist", http.StatusBadGateway)
		return
	}

	// Post/Redirect/Get so a refresh doesn't re-submit the add.
	http.Redirect(w, r, "/added?id="+url.QueryEscape(playlistID), http.StatusSeeOther)
}

// handleAdded shows the playlist a user just added to.
func (a *App) handleAdded(w http.ResponseWriter, r *http.Request) {
	playlistID := r.URL.Query().Get("id")
	if playlistID == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	sessionID := a.session(w, r)
	user := a.currentUser(r.Context(), sessionID)
	if user == nil {
		// The page may be revisited after the session lapsed.
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	playlist, err := a.service.GetPlaylist(r.Context(), user, playlistID)
	if err != nil {
		a.logger.Error("failed to fetch playlist", "id", playlistID, "err", err)
		http.Error(w, "Could not fetch the playlist", http.StatusBadGateway)
		return
	}

	a.render(w, "added.html", web.AddedPage{Playlist: playlist})
}

// handleAuthorize is the provider's redirect target. On success it stores the
// user token and replays any pending add; on a declined or malformed callback
// it returns to the search page with an advisory.
func (a *App) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	sessionID := a.session(w, r)

	code := r.URL.Query().Get("code")
	if code == "" || r.URL.Query().Get("error") != "" {
		a.logger.Warn("authorization declined", "error", r.URL.Query().Get("error"))
		http.Redirect(w, r, "/?warn=auth", http.StatusFound)
		return
	}

	state, err := a.sessions.TakeOAuthState(sessionID)
	if err != nil || state == "" || state != r.URL.Query().Get("state") {
		a.logger.Warn("state mismatch on authorization callback")
		http.Redirect(w, r, "/?warn=auth", http.StatusFound)
		return
	}

	token, err := a.service.Exchange(r.Context(), code)
	if err != nil {
		a.logger.Error("token exchange failed", "err", err)
		http.Error(w, "Authorization failed", http.StatusBadGateway)
		return
	}

	if err := a.sessions.SetToken(sessionID, token); err != nil {
		a.logger.Error("failed to store token", "err", err)
		http.Error(w, "Something went wrong", http.StatusInternalServerError)
		return
	}

	pending, ok, err := a.sessions.TakePendingAdd(sessionID)
	if err != nil {
		a.logger.Error("failed to take pending add", "err", err)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	if ok {
		user := a.currentUser(r.Context(), sessionID)
		if user == nil {
			http.Redirect(w, r, "/?warn=auth", http.StatusFound)
			return
		}

		playlistID, err := a.service.EnsurePlaylist(r.Context(), user, pending.Name, pending.SongIDs)
		if err != nil {
			a.logger.Error("failed to replay pending add", "name", pending.Name, "err", err)
			http.Error(w, "Could not update the playlist", http.StatusBadGateway)
			return
		}

		http.Redirect(w, r, "/added?id="+url.QueryEscape(playlistID), http.StatusFound)
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

func (a *App) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := a.views.Render(w, name, data); err != nil {
		a.logger.Error("render failed", "template", name, "err", err)
	}
}

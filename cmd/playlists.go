package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/trackpick/internal/server"
	"github.com/desertthunder/trackpick/internal/services"
	"github.com/desertthunder/trackpick/internal/shared"
	"github.com/desertthunder/trackpick/internal/ui"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Playlists runs the authorization flow from the terminal and lists the
// user's playlists.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	r.reload(cmd.String("config"))

	svc, err := r.ensureService(ctx)
	if err != nil {
		return err
	}

	token, err := r.doOAuth(ctx, svc)
	if err != nil {
		return err
	}

	user, err := svc.CurrentUser(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to resolve user: %w", err)
	}

	playlists, err := svc.ListPlaylists(ctx, user)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if limit := cmd.Int("limit"); limit > 0 && limit < len(playlists) {
		playlists = playlists[:limit]
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	return r.writePlain("%s", ui.PlaylistTable(playlists))
}

// doOAuth runs a one-shot authorization-code flow: a local HTTP server
// handles the callback registered as the redirect URI, and the user opens
// the printed authorize URL in a browser.
func (r *Runner) doOAuth(ctx context.Context, svc services.Service) (*oauth2.Token, error) {
	state := shared.GenerateID()
	authURL := svc.AuthCodeURL(state)

	redirect, err := url.Parse(r.config.Credentials.Spotify.RedirectURI)
	if err != nil {
		return nil, fmt.Errorf("%w: bad redirect URI: %v", shared.ErrInvalidConfig, err)
	}

	handler := server.NewOAuthHandler(svc, state, redirect.Path)
	router := server.NewBasicRouter()
	router.Handler(handler)

	httpServer := &http.Server{
		Addr:    redirect.Host,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("waiting for authorization callback", "addr", redirect.Host)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	r.writePlain("Open this URL in your browser to authorize:\n%s\n\n", authURL)
	r.writePlain("Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult
	select {
	case result = <-handler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, errors.New("authorization timed out after 2 minutes")
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Token == nil {
		return nil, errors.New("no token received")
	}

	return result.Token, nil
}

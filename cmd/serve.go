package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/trackpick/internal/server"
	"github.com/desertthunder/trackpick/internal/session"
	"github.com/desertthunder/trackpick/internal/shared"
	"github.com/desertthunder/trackpick/internal/web"
	"github.com/urfave/cli/v3"
)

// Serve wires the session store, provider service and route handlers together
// and runs the web app until the context is cancelled.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	r.reload(cmd.String("config"))

	if host := cmd.String("host"); host != "" {
		r.config.Server.Host = host
	}
	if port := cmd.Int("port"); port != 0 {
		r.config.Server.Port = port
	}

	svc, err := r.ensureService(ctx)
	if err != nil {
		return err
	}

	db, err := shared.NewDatabase(r.config.Session.Path)
	if err != nil {
		return fmt.Errorf("failed to open session database: %w", err)
	}
	defer db.Close()
	shared.ConfigureDatabase(db, r.config.Session.MaxOpenConns, r.config.Session.MaxIdleConns)

	store, err := session.NewStore(db, r.config.Session.Lifetime())
	if err != nil {
		return fmt.Errorf("failed to create session store: %w", err)
	}

	views, err := web.New()
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}

	app := server.NewApp(server.AppOpts{
		Service:   svc,
		Sessions:  store,
		Views:     views,
		Logger:    r.logger,
		MaxSongs:  r.config.Search.MaxSongs,
		Overfetch: r.config.Search.Overfetch,
	})

	router := server.NewBasicRouter()
	router.Use(server.Recoverer(r.logger), server.RequestLogger(r.logger))
	router.Handler(app)

	addr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

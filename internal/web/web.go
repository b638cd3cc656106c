// Package web renders the HTML shell around the search and playlist flows.
//
// Pages are server-rendered html/template files embedded in the binary. The
// web layer is deliberately thin: handlers hand it view data, it writes HTML,
// nothing here talks to the provider or the session store.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/desertthunder/trackpick/internal/models"
)

//go:embed templates/*.html
var files embed.FS

// SearchPage is the view data for the search form.
type SearchPage struct {
	// Warning carries the non-blocking advisory shown after a declined or
	// malformed authorization callback.
	Warning string
}

// SongsPage is the view data for the search results listing.
type SongsPage struct {
	Search string
	Songs  []models.Track
}

// AddedPage is the view data for the playlist confirmation page.
type AddedPage struct {
	Playlist *models.Playlist
}

// Templates holds the parsed page templates.
type Templates struct {
	pages *template.Template
}

// New parses the embedded templates.
func New() (*Templates, error) {
	pages, err := template.ParseFS(files, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Templates{pages: pages}, nil
}

// Render writes the named page with the given view data.
func (t *Templates) Render(w io.Writer, name string, data any) error {
	if err := t.pages.ExecuteTemplate(w, name, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	return nil
}

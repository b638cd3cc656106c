// package ui renders styled terminal output for the CLI commands
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/trackpick/internal/models"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title  lipgloss.Style
	name   lipgloss.Style
	artist lipgloss.Style
	meta   lipgloss.Style
}

func NewPalette(t, a, w, m string) *Palette {
	return &Palette{
		title:  NewBold(t).MarginBottom(1),
		name:   lipgloss.NewStyle().Bold(true),
		artist: NewStyle(a),
		meta:   NewEm(m),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// TrackList renders search results as a numbered listing under a query title.
func TrackList(query string, tracks []models.Track) string {
	var b strings.Builder

	b.WriteString(styles.title.Render(fmt.Sprintf("Results for %q", query)))
	b.WriteString("\n")

	if len(tracks) == 0 {
		b.WriteString(styles.meta.Render("No matching songs found."))
		b.WriteString("\n")
		return b.String()
	}

	for i, track := range tracks {
		b.WriteString(fmt.Sprintf("%2d. %s %s %s\n",
			i+1,
			styles.name.Render(track.Name),
			styles.artist.Render(track.Artists),
			styles.meta.Render(fmt.Sprintf("(%s, popularity %d)", track.ReleaseYear, track.Popularity)),
		))
	}

	return b.String()
}

// PlaylistTable renders a user's playlists as an id/name listing.
func PlaylistTable(playlists []models.PlaylistSummary) string {
	var b strings.Builder

	b.WriteString(styles.title.Render("Playlists"))
	b.WriteString("\n")

	if len(playlists) == 0 {
		b.WriteString(styles.meta.Render("No playlists."))
		b.WriteString("\n")
		return b.String()
	}

	for _, playlist := range playlists {
		b.WriteString(fmt.Sprintf("%s  %s\n", styles.meta.Render(playlist.ID), styles.name.Render(playlist.Name)))
	}

	return b.String()
}

package models

// Track is an immutable snapshot of a provider track at query time.
//
// Artists holds the joined display string ("Artist A, Artist B"); it doubles
// as the dedup key when capping results to one track per artist combination.
// Popularity is only used for ranking and carries no ordering guarantee.
type Track struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Artists     string `json:"artists"`
	Popularity  int    `json:"popularity"`
	URL         string `json:"url"`
	IconURL     string `json:"icon_url,omitempty"`
	ReleaseYear string `json:"release_year"`
}

// PlaylistEntry is a track already present in a playlist.
type PlaylistEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Playlist represents remote playlist truth at fetch time: metadata plus the
// ordered listing of tracks the provider reported.
type Playlist struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	URL     string          `json:"url"`
	IconURL string          `json:"icon_url,omitempty"`
	Songs   []PlaylistEntry `json:"songs"`
}

// PlaylistSummary is the lightweight projection returned when paging the
// user's playlist listing.
type PlaylistSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PendingAdd captures an add-to-playlist request made before the user
// authorized the app. It is stashed in the session, consumed exactly once
// after a successful authorization callback, then discarded. At most one
// exists per session; a second add before the first resolves overwrites it.
type PendingAdd struct {
	Name    string   `json:"name"`
	SongIDs []string `json:"song_ids"`
}

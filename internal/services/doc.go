// Package services wraps the Spotify Web API for song search and playlist assembly.
//
// # Authentication
//
// [Authenticator] owns both OAuth2 grants. A client-credentials grant runs
// once at construction and backs public read-only search; the resulting token
// source is process-scoped and safe for concurrent use. The
// authorization-code grant runs per user: [Authenticator.AuthCodeURL]
// produces the provider authorize URL and [Authenticator.Exchange] trades the
// callback code for a token, which the caller stores in the user's session.
//
// # Search
//
// [SpotifyService.SearchSongs] aggregates paginated search results, keeping
// only candidates whose canonicalized name contains the canonicalized query.
// Provider failures mid-aggregation degrade to "no more results" rather than
// erroring; discovery is best-effort, not transactional.
//
// # Playlists
//
// [SpotifyService.EnsurePlaylist] finds or creates a playlist by exact name
// and appends tracks, pre-filtering ids already present so a repeated add for
// the same playlist name never duplicates tracks. Failures on this path are
// hard errors for the request.
//
// All remote calls go through a client-side rate limiter sized for the
// provider's request budget.
package services

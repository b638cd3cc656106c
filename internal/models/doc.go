// Package models defines the value types the playlist builder service passes between its layers.
//
// Every type here is a snapshot of remote Spotify state at query time, plus
// [PendingAdd], the one piece of state the app itself owns. Nothing in this
// package is persisted beyond the lifetime of a browser session: tracks and
// playlists are rebuilt from the provider on every request.
//
//   - [Track] : A search candidate with the fields the UI ranks and renders
//   - [Playlist] : A user playlist with its ordered track listing
//   - [PlaylistSummary] : The id+name projection used when paging playlist listings
//   - [PlaylistEntry] : A (name, id) pair already present in a playlist
//   - [PendingAdd] : An add-to-playlist request deferred across the authorization redirect
package models

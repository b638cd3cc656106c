// Package server provides HTTP routing, middleware, and the route handlers for the playlist builder.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Application Routes
//
// [App] implements the [Handler] interface and serves the whole user flow:
//
//	GET  /           → search form, or results when ?s= is present
//	POST /add        → build playlist, or stash the add and redirect to the provider
//	GET  /added      → confirmation page for a playlist the user added to
//	GET  /authorize  → OAuth2 callback: store token, replay any pending add
//
// Every request resolves its session from a cookie; sessions, user tokens and
// the pending add live in the session store, never in process memory, so each
// request is handled independently.
//
// # Authorization Flow
//
//  1. POST /add without a usable token stashes the pending add, stores a
//     state nonce, and redirects to the provider authorize URL.
//  2. The provider redirects back to /authorize with a code (or an error).
//  3. A declined or malformed callback returns to / with an advisory banner.
//  4. On success the code is exchanged, the token stored, and the pending
//     add replayed, landing on /added.
package server

// Package session implements the short-lived, cookie-keyed session store.
//
// A session holds at most three things: the user's OAuth token, one pending
// add-to-playlist request deferred across the authorization redirect, and the
// state nonce for the in-flight authorization. Nothing else is persisted;
// songs, playlists and users live in the remote service.
//
// Sessions expire after a configured lifetime kept shorter than the
// provider's token lifetime, so a stored token is never replayed after the
// provider would have expired it. Expired rows read as absent and are purged
// opportunistically on session creation.
//
// There is no locking across requests for the same session: two tabs racing
// an add can each overwrite the pending request. Last write wins; this is an
// accepted limitation, not a bug to guard against.
package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/trackpick/internal/models"
	"github.com/desertthunder/trackpick/internal/shared"
	"golang.org/x/oauth2"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	token_json TEXT,
	pending_json TEXT,
	oauth_state TEXT,
	created_at TIMESTAMP NOT NULL,
	expires_at TIMESTAMP NOT NULL
)`

// DefaultLifetime bounds sessions when no lifetime is configured. It sits
// well below the provider's ~60 minute token lifetime.
const DefaultLifetime = 30 * time.Minute

// Store persists sessions in SQLite.
type Store struct {
	db       *sql.DB
	lifetime time.Duration
}

// NewStore creates the sessions table if needed and returns a Store with the
// given lifetime (DefaultLifetime when <= 0).
func NewStore(db *sql.DB, lifetime time.Duration) (*Store, error) {
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create sessions table: %w", err)
	}

	return &Store{db: db, lifetime: lifetime}, nil
}

// Create inserts a fresh session and returns its id. Expired rows are purged
// on the way in.
func (s *Store) Create() (string, error) {
	now := time.Now()

	if _, err := s.db.Exec("DELETE FROM sessions WHERE expires_at <= ?", now); err != nil {
		return "", fmt.Errorf("failed to purge expired sessions: %w", err)
	}

	id := shared.GenerateID()
	query := "INSERT INTO sessions (id, created_at, expires_at) VALUES (?, ?, ?)"
	if _, err := s.db.Exec(query, id, now, now.Add(s.lifetime)); err != nil {
		return "", fmt.Errorf("failed to insert session: %w", err)
	}

	return id, nil
}

// Exists reports whether the session id refers to a live (unexpired) session.
func (s *Store) Exists(id string) bool {
	var one int
	err := s.db.QueryRow("SELECT 1 FROM sessions WHERE id = ? AND expires_at > ?", id, time.Now()).Scan(&one)
	return err == nil
}

// Lifetime returns the configured session lifetime.
func (s *Store) Lifetime() time.Duration {
	return s.lifetime
}

// SetToken stores the user's OAuth token in the session.
func (s *Store) SetToken(id string, token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	return s.update(id, "token_json", string(data))
}

// Token returns the stored OAuth token, or nil when the session has none.
// A missing or expired session is an error; an unauthenticated session is not.
func (s *Store) Token(id string) (*oauth2.Token, error) {
	var raw sql.NullString
	err := s.db.QueryRow("SELECT token_json FROM sessions WHERE id = ? AND expires_at > ?", id, time.Now()).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	if !raw.Valid || raw.String == "" {
		return nil, nil
	}

	var token oauth2.Token
	if err := json.Unmarshal([]byte(raw.String), &token); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}

	return &token, nil
}

// StashPendingAdd remembers an add-to-playlist request across the
// authorization redirect, overwriting any pending add already stashed.
func (s *Store) StashPendingAdd(id string, add models.PendingAdd) error {
	data, err := json.Marshal(add)
	if err != nil {
		return fmt.Errorf("failed to encode pending add: %w", err)
	}
	return s.update(id, "pending_json", string(data))
}

// TakePendingAdd returns and clears the pending add in one transaction.
// The second return value is false when nothing was stashed.
func (s *Store) TakePendingAdd(id string) (models.PendingAdd, bool, error) {
	var add models.PendingAdd

	tx, err := s.db.Begin()
	if err != nil {
		return add, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var raw sql.NullString
	err = tx.QueryRow("SELECT pending_json FROM sessions WHERE id = ? AND expires_at > ?", id, time.Now()).Scan(&raw)
	if err == sql.ErrNoRows {
		return add, false, nil
	}
	if err != nil {
		return add, false, fmt.Errorf("failed to query session: %w", err)
	}

	if !raw.Valid || raw.String == "" {
		return add, false, nil
	}

	if err := json.Unmarshal([]byte(raw.String), &add); err != nil {
		return add, false, fmt.Errorf("failed to decode pending add: %w", err)
	}

	if _, err := tx.Exec("UPDATE sessions SET pending_json = NULL WHERE id = ?", id); err != nil {
		return add, false, fmt.Errorf("failed to clear pending add: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return add, false, fmt.Errorf("failed to commit: %w", err)
	}

	return add, true, nil
}

// SetOAuthState stores the state nonce for an in-flight authorization.
func (s *Store) SetOAuthState(id, state string) error {
	return s.update(id, "oauth_state", state)
}

// TakeOAuthState returns and clears the stored state nonce. Empty when no
// authorization is in flight.
func (s *Store) TakeOAuthState(id string) (string, error) {
	var raw sql.NullString
	err := s.db.QueryRow("SELECT oauth_state FROM sessions WHERE id = ? AND expires_at > ?", id, time.Now()).Scan(&raw)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query session: %w", err)
	}

	if _, err := s.db.Exec("UPDATE sessions SET oauth_state = NULL WHERE id = ?", id); err != nil {
		return "", fmt.Errorf("failed to clear oauth state: %w", err)
	}

	return raw.String, nil
}

// update writes a single column on a live session.
func (s *Store) update(id, column, value string) error {
	query := fmt.Sprintf("UPDATE sessions SET %s = ? WHERE id = ? AND expires_at > ?", column)

	result, err := s.db.Exec(query, value, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}

	return nil
}

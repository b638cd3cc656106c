package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Server      ServerConfig      `toml:"server"`
	Session     SessionConfig     `toml:"session"`
	Search      SearchConfig      `toml:"search"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
//
// RedirectURI must match an authorize callback registered with Spotify.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// SessionConfig contains session store settings.
//
// LifetimeMinutes bounds how long a stored user token is trusted. It should
// stay below the provider's own token lifetime (about an hour for Spotify)
// so the app never replays a token that expired upstream.
type SessionConfig struct {
	Path            string `toml:"path"`
	LifetimeMinutes int    `toml:"lifetime_minutes"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
}

// SearchConfig contains search tuning values.
//
// MaxSongs is the page size shown to the user. Overfetch multiplies it when
// aggregating from the provider, since name filtering and per-artist dedup
// discard most candidates. RateLimit is requests per second against the API.
type SearchConfig struct {
	MaxSongs  int     `toml:"max_songs"`
	Overfetch int     `toml:"overfetch"`
	RateLimit float64 `toml:"rate_limit"`
}

// Lifetime returns the session lifetime as a [time.Duration].
func (s SessionConfig) Lifetime() time.Duration {
	return time.Duration(s.LifetimeMinutes) * time.Minute
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingConfig, err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

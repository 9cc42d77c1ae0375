// Package config loads application configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/justestif/go-songamizer/internal/auth"
	"github.com/justestif/go-songamizer/internal/store"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Common errors.
var (
	// ErrMissingCredentials is returned when the Spotify client ID or secret is not set.
	ErrMissingCredentials = auth.ErrMissingCredentials

	// ErrMissingStoreURL is returned when the selected store driver has no connection URL.
	ErrMissingStoreURL = errors.New("missing store connection URL")

	// ErrUnknownDriver is returned for an unsupported STORE_DRIVER.
	ErrUnknownDriver = errors.New("unknown store driver")

	// ErrInvalidCurated is returned when a CURATED_PLAYLISTS entry is malformed.
	ErrInvalidCurated = errors.New("invalid curated playlist entry")

	// ErrInvalidDuration is returned for a non-positive duration setting.
	ErrInvalidDuration = errors.New("invalid duration")
)

// Spotify holds the OAuth client and API endpoints.
type Spotify struct {
	ClientID     string `env:"SPOTIFY_CLIENT_ID"`
	ClientSecret string `env:"SPOTIFY_CLIENT_SECRET"`
	RedirectURL  string `env:"SPOTIFY_REDIRECT_URI" envDefault:"http://127.0.0.1:8080/callback"`
	AuthURL      string `env:"SPOTIFY_AUTH_URL"`
	TokenURL     string `env:"SPOTIFY_TOKEN_URL"`
	APIURL       string `env:"SPOTIFY_API_URL"`
}

// Store selects and locates the persistence backend.
type Store struct {
	Driver        string `env:"STORE_DRIVER" envDefault:"memory"`
	DatabaseURL   string `env:"DATABASE_URL"`
	MongoURI      string `env:"MONGO_URI"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"songamizer"`
	RedisURL      string `env:"REDIS_URL"`
}

// MusicBrainz configures the release date lookup service.
type MusicBrainz struct {
	URL       string        `env:"MUSICBRAINZ_URL"`
	UserAgent string        `env:"MUSICBRAINZ_USER_AGENT"`
	Interval  time.Duration `env:"MUSICBRAINZ_INTERVAL" envDefault:"1s"`
}

// Log configures the logger.
type Log struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
	File  string `env:"LOG_FILE"`
}

// Config is the complete application configuration.
type Config struct {
	Spotify     Spotify
	Store       Store
	MusicBrainz MusicBrainz
	Log         Log

	HTTPAddr          string        `env:"HTTP_ADDR" envDefault:":8080"`
	FrontendURL       string        `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	CORSOrigins       []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	HTTPClientTimeout time.Duration `env:"HTTP_CLIENT_TIMEOUT" envDefault:"10s"`

	PlaylistCacheTTL time.Duration `env:"PLAYLIST_CACHE_TTL" envDefault:"5m"`
	YearCacheTTL     time.Duration `env:"YEAR_CACHE_TTL" envDefault:"720h"`
	HistoryTTL       time.Duration `env:"HISTORY_TTL" envDefault:"2h"`
	SweepInterval    time.Duration `env:"SWEEP_INTERVAL" envDefault:"10m"`

	// YTMusicURL is the ytmusicapi proxy used for YouTube links. Empty disables lookups.
	YTMusicURL string `env:"YTMUSIC_URL"`

	// CuratedPlaylists holds "id|name|icon" entries separated by ";".
	CuratedPlaylists []string `env:"CURATED_PLAYLISTS" envSeparator:";"`
}

// Load reads an optional .env file, then parses and validates the environment.
// Variables already set in the environment take precedence over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	return parse(env.Options{})
}

// FromMap parses and validates configuration from a fixed set of variables.
func FromMap(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required settings.
func (c *Config) Validate() error {
	if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" {
		return ErrMissingCredentials
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("%w: DATABASE_URL is required for %s", ErrMissingStoreURL, DriverPostgres)
		}
	case DriverMongo:
		if c.Store.MongoURI == "" {
			return fmt.Errorf("%w: MONGO_URI is required for %s", ErrMissingStoreURL, DriverMongo)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Store.Driver)
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"HTTP_CLIENT_TIMEOUT", c.HTTPClientTimeout},
		{"PLAYLIST_CACHE_TTL", c.PlaylistCacheTTL},
		{"YEAR_CACHE_TTL", c.YearCacheTTL},
		{"HISTORY_TTL", c.HistoryTTL},
		{"SWEEP_INTERVAL", c.SweepInterval},
		{"MUSICBRAINZ_INTERVAL", c.MusicBrainz.Interval},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %s", ErrInvalidDuration, d.name, d.value)
		}
	}

	_, err := c.Curated()
	return err
}

// Curated parses CuratedPlaylists. Name and icon are optional.
func (c *Config) Curated() ([]store.CuratedPlaylist, error) {
	var playlists []store.CuratedPlaylist
	for _, raw := range c.CuratedPlaylists {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parts := strings.Split(raw, "|")
		if len(parts) > 3 || strings.TrimSpace(parts[0]) == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCurated, raw)
		}
		for len(parts) < 3 {
			parts = append(parts, "")
		}
		playlists = append(playlists, store.CuratedPlaylist{
			ID:   strings.TrimSpace(parts[0]),
			Name: strings.TrimSpace(parts[1]),
			Icon: strings.TrimSpace(parts[2]),
		})
	}
	return playlists, nil
}

// AllowedOrigins returns the CORS origins, defaulting to the frontend URL.
func (c *Config) AllowedOrigins() []string {
	if len(c.CORSOrigins) == 0 {
		return []string{c.FrontendURL}
	}
	return slices.Clone(c.CORSOrigins)
}

// Package store defines the persistence contracts shared by every storage backend.
//
// Five logical collections exist: sessions, the playlist track cache, the track
// metadata (release year) cache, the played-track history and the curated playlist
// registry. Backends (memory, Postgres, MongoDB, Redis for the track cache) implement
// the repository interfaces below and are assembled into a Store.
package store

import (
	"context"
	"errors"
	"time"
)

// Common errors.
var (
	// ErrNotFound is returned when a keyed lookup has no matching entity.
	ErrNotFound = errors.New("not found")

	// ErrInvalidYear is returned when a metadata entry carries a year outside [MinYear, current year].
	ErrInvalidYear = errors.New("release year out of range")
)

// Sessions persists per-session OAuth state and play history.
type Sessions interface {
	Create(ctx context.Context, session *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	// Activate stores the first token pair and marks the session active.
	Activate(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error
	// UpdateToken replaces the token pair and expiry in a single write.
	UpdateToken(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error
	// AppendPlayed adds trackID to the played set and records playlistID as current.
	AppendPlayed(ctx context.Context, id, playlistID, trackID string) error
	// ResetPlayed clears the played set. When clearPlaylist is true the current playlist is cleared too.
	ResetPlayed(ctx context.Context, id string, clearPlaylist bool) error
	Delete(ctx context.Context, id string) error
}

// PlaylistCache persists fetched playlist track lists.
type PlaylistCache interface {
	Get(ctx context.Context, playlistID string) (*PlaylistEntry, error)
	Put(ctx context.Context, entry *PlaylistEntry) error
}

// YearCache persists resolved original release years keyed by (track, artist).
type YearCache interface {
	Get(ctx context.Context, trackName, artistName string) (*YearEntry, error)
	Upsert(ctx context.Context, entry *YearEntry) error
}

// History persists played-track records.
type History interface {
	Record(ctx context.Context, played *PlayedTrack) error
	ListForSession(ctx context.Context, sessionID string) ([]PlayedTrack, error)
	DeleteForSession(ctx context.Context, sessionID string) error
}

// Curated persists the curated playlist registry.
type Curated interface {
	List(ctx context.Context) ([]CuratedPlaylist, error)
	Upsert(ctx context.Context, playlist *CuratedPlaylist) error
	Delete(ctx context.Context, id string) error
}

// Sweeper removes expired entries for backends without native expiry.
type Sweeper interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// Store groups the repositories used by the application.
type Store struct {
	Sessions  Sessions
	Playlists PlaylistCache
	Years     YearCache
	History   History
	Curated   Curated
}

package store

import (
	"slices"
	"strconv"
	"strings"
	"time"
)

// MinYear is the earliest release year accepted anywhere in the system.
const MinYear = 1900

// Session represents one player's game instance.
type Session struct {
	ID                string
	AccessToken       string
	RefreshToken      string
	TokenExpiresAt    time.Time
	PlayedTrackIDs    []string
	CurrentPlaylistID string // empty when no playlist has been played yet
	IsActive          bool
	OAuthState        string
	CreatedAt         time.Time
}

// HasPlayed reports whether trackID is in the session's played set.
func (s *Session) HasPlayed(trackID string) bool {
	return slices.Contains(s.PlayedTrackIDs, trackID)
}

// Track is a playable playlist entry.
type Track struct {
	ID          string   `json:"id" bson:"id"`
	Name        string   `json:"name" bson:"name"`
	Artists     []string `json:"artists" bson:"artists"`
	Album       string   `json:"album" bson:"album"`
	ReleaseDate string   `json:"release_date" bson:"release_date"` // YYYY, YYYY-MM, YYYY-MM-DD or empty
}

// Artist returns the artist names joined by ", ".
func (t Track) Artist() string {
	return strings.Join(t.Artists, ", ")
}

// PrimaryArtist returns the first credited artist, or "" when there is none.
func (t Track) PrimaryArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}

// ReleaseYear parses the year prefix of the album release date.
// Returns 0 when the date is empty or malformed.
func (t Track) ReleaseYear() int {
	return YearFromDate(t.ReleaseDate)
}

// YearFromDate extracts the year from a "YYYY[-MM[-DD]]" date string.
// Returns 0 when no four-digit year prefix is present.
func YearFromDate(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}

// ValidYear reports whether year lies within [MinYear, now.Year()].
func ValidYear(year int, now time.Time) bool {
	return year >= MinYear && year <= now.Year()
}

// PlaylistEntry is a cached playlist track list.
type PlaylistEntry struct {
	PlaylistID string
	Tracks     []Track
	CachedAt   time.Time
}

// Fresh reports whether the entry is younger than ttl at now.
func (e *PlaylistEntry) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Before(e.CachedAt.Add(ttl))
}

// YearEntry is a cached original release year.
type YearEntry struct {
	TrackName    string
	ArtistName   string
	OriginalYear int
	ExpiresAt    time.Time
}

// PlayedTrack is a history record of a surfaced track.
type PlayedTrack struct {
	SessionID   string    `json:"-"`
	TrackID     string    `json:"track_id"`
	Title       string    `json:"title"`
	Artist      string    `json:"artist"`
	Album       string    `json:"album"`
	ReleaseYear int       `json:"release_year"`
	PlaylistID  string    `json:"playlist_id"`
	PlayedAt    time.Time `json:"played_at"`
	ExpiresAt   time.Time `json:"-"`
}

// CuratedPlaylist is an entry of the curated playlist registry.
type CuratedPlaylist struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon"`
	CreatedAt time.Time `json:"created_at"`
}

package mongostore

import (
	"time"

	"github.com/justestif/go-songamizer/internal/store"
)

type sessionDoc struct {
	ID                string    `bson:"_id"`
	AccessToken       string    `bson:"access_token"`
	RefreshToken      string    `bson:"refresh_token"`
	TokenExpiresAt    time.Time `bson:"token_expires_at"`
	PlayedTrackIDs    []string  `bson:"played_track_ids"`
	CurrentPlaylistID string    `bson:"current_playlist_id"`
	IsActive          bool      `bson:"is_active"`
	OAuthState        string    `bson:"oauth_state"`
	CreatedAt         time.Time `bson:"created_at"`
}

func toSessionDoc(s *store.Session) sessionDoc {
	played := s.PlayedTrackIDs
	if played == nil {
		played = []string{}
	}
	return sessionDoc{
		ID:                s.ID,
		AccessToken:       s.AccessToken,
		RefreshToken:      s.RefreshToken,
		TokenExpiresAt:    s.TokenExpiresAt,
		PlayedTrackIDs:    played,
		CurrentPlaylistID: s.CurrentPlaylistID,
		IsActive:          s.IsActive,
		OAuthState:        s.OAuthState,
		CreatedAt:         s.CreatedAt,
	}
}

func (d sessionDoc) session() *store.Session {
	return &store.Session{
		ID:                d.ID,
		AccessToken:       d.AccessToken,
		RefreshToken:      d.RefreshToken,
		TokenExpiresAt:    d.TokenExpiresAt,
		PlayedTrackIDs:    d.PlayedTrackIDs,
		CurrentPlaylistID: d.CurrentPlaylistID,
		IsActive:          d.IsActive,
		OAuthState:        d.OAuthState,
		CreatedAt:         d.CreatedAt,
	}
}

type playlistDoc struct {
	ID       string        `bson:"_id"`
	Tracks   []store.Track `bson:"tracks"`
	CachedAt time.Time     `bson:"cached_at"`
}

func toPlaylistDoc(e *store.PlaylistEntry) playlistDoc {
	tracks := e.Tracks
	if tracks == nil {
		tracks = []store.Track{}
	}
	return playlistDoc{ID: e.PlaylistID, Tracks: tracks, CachedAt: e.CachedAt}
}

func (d playlistDoc) entry() *store.PlaylistEntry {
	return &store.PlaylistEntry{PlaylistID: d.ID, Tracks: d.Tracks, CachedAt: d.CachedAt}
}

type yearDoc struct {
	TrackName    string    `bson:"track_name"`
	ArtistName   string    `bson:"artist_name"`
	OriginalYear int       `bson:"original_year"`
	ExpiresAt    time.Time `bson:"expires_at"`
}

func (d yearDoc) entry() *store.YearEntry {
	return &store.YearEntry{
		TrackName:    d.TrackName,
		ArtistName:   d.ArtistName,
		OriginalYear: d.OriginalYear,
		ExpiresAt:    d.ExpiresAt,
	}
}

type playedDoc struct {
	SessionID   string    `bson:"session_id"`
	TrackID     string    `bson:"track_id"`
	Title       string    `bson:"title"`
	Artist      string    `bson:"artist"`
	Album       string    `bson:"album"`
	ReleaseYear int       `bson:"release_year"`
	PlaylistID  string    `bson:"playlist_id"`
	PlayedAt    time.Time `bson:"played_at"`
	ExpiresAt   time.Time `bson:"expires_at"`
}

func toPlayedDoc(p *store.PlayedTrack) playedDoc {
	return playedDoc(*p)
}

func (d playedDoc) record() store.PlayedTrack {
	return store.PlayedTrack(d)
}

type curatedDoc struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Icon      string    `bson:"icon"`
	CreatedAt time.Time `bson:"created_at"`
}

func (d curatedDoc) playlist() store.CuratedPlaylist {
	return store.CuratedPlaylist(d)
}

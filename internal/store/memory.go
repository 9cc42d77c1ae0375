package store

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"
)

// ============================================================================
// In-Memory Store (for development/testing)
// ============================================================================

// Memory is an in-process implementation of every repository.
// Entries are copied on the way in and out so callers never share state.
type Memory struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	playlists map[string]*PlaylistEntry
	years     map[yearKey]*YearEntry
	history   map[string][]PlayedTrack
	curated   map[string]*CuratedPlaylist
	now       func() time.Time
}

type yearKey struct {
	track  string
	artist string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		sessions:  make(map[string]*Session),
		playlists: make(map[string]*PlaylistEntry),
		years:     make(map[yearKey]*YearEntry),
		history:   make(map[string][]PlayedTrack),
		curated:   make(map[string]*CuratedPlaylist),
		now:       time.Now,
	}
}

// Store returns a Store backed entirely by m.
func (m *Memory) Store() Store {
	return Store{
		Sessions:  memorySessions{m},
		Playlists: memoryPlaylists{m},
		Years:     memoryYears{m},
		History:   memoryHistory{m},
		Curated:   memoryCurated{m},
	}
}

// DeleteExpired drops history records and year entries past their expiry.
func (m *Memory) DeleteExpired(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var removed int64
	for k, e := range m.years {
		if !now.Before(e.ExpiresAt) {
			delete(m.years, k)
			removed++
		}
	}
	for id, records := range m.history {
		kept := records[:0]
		for _, r := range records {
			if now.Before(r.ExpiresAt) {
				kept = append(kept, r)
			} else {
				removed++
			}
		}
		if len(kept) == 0 {
			delete(m.history, id)
		} else {
			m.history[id] = kept
		}
	}
	return removed, nil
}

func copySession(s *Session) *Session {
	c := *s
	c.PlayedTrackIDs = slices.Clone(s.PlayedTrackIDs)
	return &c
}

type memorySessions struct{ m *Memory }

func (r memorySessions) Create(_ context.Context, session *Session) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.sessions[session.ID] = copySession(session)
	return nil
}

func (r memorySessions) Get(_ context.Context, id string) (*Session, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	s, ok := r.m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copySession(s), nil
}

func (r memorySessions) Activate(_ context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error {
	return r.update(id, func(s *Session) {
		s.AccessToken = accessToken
		s.RefreshToken = refreshToken
		s.TokenExpiresAt = expiresAt
		s.IsActive = true
		s.OAuthState = ""
	})
}

func (r memorySessions) UpdateToken(_ context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error {
	return r.update(id, func(s *Session) {
		s.AccessToken = accessToken
		s.RefreshToken = refreshToken
		s.TokenExpiresAt = expiresAt
	})
}

func (r memorySessions) AppendPlayed(_ context.Context, id, playlistID, trackID string) error {
	return r.update(id, func(s *Session) {
		if !s.HasPlayed(trackID) {
			s.PlayedTrackIDs = append(s.PlayedTrackIDs, trackID)
		}
		s.CurrentPlaylistID = playlistID
	})
}

func (r memorySessions) ResetPlayed(_ context.Context, id string, clearPlaylist bool) error {
	return r.update(id, func(s *Session) {
		s.PlayedTrackIDs = nil
		if clearPlaylist {
			s.CurrentPlaylistID = ""
		}
	})
}

func (r memorySessions) Delete(_ context.Context, id string) error {
	r.m.mu.Lock()
	delete(r.m.sessions, id)
	r.m.mu.Unlock()
	return nil
}

func (r memorySessions) update(id string, fn func(*Session)) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	fn(s)
	return nil
}

type memoryPlaylists struct{ m *Memory }

func (r memoryPlaylists) Get(_ context.Context, playlistID string) (*PlaylistEntry, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	e, ok := r.m.playlists[playlistID]
	if !ok {
		return nil, ErrNotFound
	}
	c := *e
	c.Tracks = slices.Clone(e.Tracks)
	return &c, nil
}

func (r memoryPlaylists) Put(_ context.Context, entry *PlaylistEntry) error {
	c := *entry
	c.Tracks = slices.Clone(entry.Tracks)
	r.m.mu.Lock()
	r.m.playlists[entry.PlaylistID] = &c
	r.m.mu.Unlock()
	return nil
}

type memoryYears struct{ m *Memory }

func (r memoryYears) Get(_ context.Context, trackName, artistName string) (*YearEntry, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	e, ok := r.m.years[yearKey{trackName, artistName}]
	if !ok || !r.m.now().Before(e.ExpiresAt) {
		return nil, ErrNotFound
	}
	c := *e
	return &c, nil
}

func (r memoryYears) Upsert(_ context.Context, entry *YearEntry) error {
	if !ValidYear(entry.OriginalYear, r.m.now()) {
		return ErrInvalidYear
	}
	c := *entry
	r.m.mu.Lock()
	r.m.years[yearKey{entry.TrackName, entry.ArtistName}] = &c
	r.m.mu.Unlock()
	return nil
}

type memoryHistory struct{ m *Memory }

func (r memoryHistory) Record(_ context.Context, played *PlayedTrack) error {
	r.m.mu.Lock()
	r.m.history[played.SessionID] = append(r.m.history[played.SessionID], *played)
	r.m.mu.Unlock()
	return nil
}

func (r memoryHistory) ListForSession(_ context.Context, sessionID string) ([]PlayedTrack, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	now := r.m.now()
	var out []PlayedTrack
	for _, p := range r.m.history[sessionID] {
		if now.Before(p.ExpiresAt) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PlayedAt.After(out[j].PlayedAt) })
	return out, nil
}

func (r memoryHistory) DeleteForSession(_ context.Context, sessionID string) error {
	r.m.mu.Lock()
	delete(r.m.history, sessionID)
	r.m.mu.Unlock()
	return nil
}

type memoryCurated struct{ m *Memory }

func (r memoryCurated) List(_ context.Context) ([]CuratedPlaylist, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	out := make([]CuratedPlaylist, 0, len(r.m.curated))
	for _, p := range r.m.curated {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r memoryCurated) Upsert(_ context.Context, playlist *CuratedPlaylist) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c := *playlist
	if existing, ok := r.m.curated[playlist.ID]; ok {
		c.CreatedAt = existing.CreatedAt
	} else if c.CreatedAt.IsZero() {
		c.CreatedAt = r.m.now()
	}
	r.m.curated[playlist.ID] = &c
	return nil
}

func (r memoryCurated) Delete(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.curated[id]; !ok {
		return ErrNotFound
	}
	delete(r.m.curated, id)
	return nil
}

// Ensure Memory implements Sweeper.
var _ Sweeper = (*Memory)(nil)

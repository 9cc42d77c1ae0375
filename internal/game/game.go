// Package game implements the session and track-rotation engine: a session never hears
// the same track twice until every track of the playlist has been played.
package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/justestif/go-songamizer/internal/auth"
	"github.com/justestif/go-songamizer/internal/store"
)

// DefaultHistoryTTL is how long played-track records are kept.
const DefaultHistoryTTL = 2 * time.Hour

// TrackSource returns the playable tracks of a playlist. It never fails.
type TrackSource interface {
	PlaylistTracks(ctx context.Context, playlistID string) []store.Track
}

// YearResolver resolves original release years. It never fails.
type YearResolver interface {
	Resolve(ctx context.Context, trackName, artistName, albumName string, fallbackYear int) int
}

// Dispatcher starts playback for a session.
type Dispatcher interface {
	Play(ctx context.Context, sessionID, trackID string) error
}

// Authorizer runs the OAuth handshake for a session.
type Authorizer interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, sessionID, code string) error
}

// StreamFinder looks up an alternative listening link for a track.
type StreamFinder interface {
	StreamURL(ctx context.Context, title, artist string) (string, error)
}

// Selection is a track that was just started for a session.
type Selection struct {
	TrackID     string `json:"track_id"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Album       string `json:"album"`
	ReleaseYear int    `json:"release_year"`
	PlaylistID  string `json:"playlist_id"`
	CycleReset  bool   `json:"cycle_reset"` // every track had been played; the rotation started over
	Remaining   int    `json:"remaining"`   // unplayed tracks left after this one
	Total       int    `json:"total"`
	YouTubeURL  string `json:"youtube_url,omitempty"`
}

// Engine coordinates sessions, track selection and playback.
type Engine struct {
	sessions   store.Sessions
	history    store.History
	tracks     TrackSource
	years      YearResolver
	player     Dispatcher
	authorizer Authorizer
	streams    StreamFinder // optional

	historyTTL time.Duration
	pick       func(n int) int
	now        func() time.Time
	logger     *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithHistoryTTL sets how long played-track records are kept.
func WithHistoryTTL(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.historyTTL = d
		}
	}
}

// WithPicker replaces the uniform random choice. pick(n) must return a value in [0, n).
func WithPicker(pick func(n int) int) Option {
	return func(e *Engine) { e.pick = pick }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithStreamFinder attaches a YouTube link to every selection when one is found.
func WithStreamFinder(f StreamFinder) Option {
	return func(e *Engine) { e.streams = f }
}

// New creates an Engine.
func New(st store.Store, tracks TrackSource, years YearResolver, player Dispatcher, authorizer Authorizer, opts ...Option) *Engine {
	e := &Engine{
		sessions:   st.Sessions,
		history:    st.History,
		tracks:     tracks,
		years:      years,
		player:     player,
		authorizer: authorizer,
		historyTTL: DefaultHistoryTTL,
		pick:       rand.IntN,
		now:        time.Now,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ============================================================================
// Session lifecycle
// ============================================================================

// StartSession creates an inactive session and returns it with the URL the player must
// visit to authorize. The OAuth state embeds the session ID so the callback can find it.
func (e *Engine) StartSession(ctx context.Context) (*store.Session, string, error) {
	nonce, err := auth.GenerateState()
	if err != nil {
		return nil, "", fmt.Errorf("generating state: %w", err)
	}

	id := uuid.NewString()
	session := &store.Session{
		ID:         id,
		OAuthState: id + "." + nonce,
		CreatedAt:  e.now(),
	}
	if err := e.sessions.Create(ctx, session); err != nil {
		return nil, "", fmt.Errorf("creating session: %w", err)
	}

	e.logger.Info("session started", zap.String("session_id", id))
	return session, e.authorizer.AuthURL(session.OAuthState), nil
}

// Activate completes authorization for the session named by state.
// Returns the session ID.
func (e *Engine) Activate(ctx context.Context, state, code string) (string, error) {
	id, _, ok := strings.Cut(state, ".")
	if !ok || code == "" {
		return "", auth.ErrStateMismatch
	}

	session, err := e.Session(ctx, id)
	if err != nil {
		return "", err
	}
	if session.OAuthState == "" || session.OAuthState != state {
		return "", auth.ErrStateMismatch
	}

	if err := e.authorizer.Exchange(ctx, id, code); err != nil {
		return "", err
	}
	return id, nil
}

// Session returns a session by ID.
func (e *Engine) Session(ctx context.Context, sessionID string) (*store.Session, error) {
	session, err := e.sessions.Get(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	return session, nil
}

// History returns the session's unexpired played tracks, newest first.
func (e *Engine) History(ctx context.Context, sessionID string) ([]store.PlayedTrack, error) {
	if _, err := e.Session(ctx, sessionID); err != nil {
		return nil, err
	}
	played, err := e.history.ListForSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing played tracks: %w", err)
	}
	if played == nil {
		played = []store.PlayedTrack{}
	}
	return played, nil
}

// Reset clears the session's played tracks, current playlist and history.
func (e *Engine) Reset(ctx context.Context, sessionID string) error {
	if _, err := e.Session(ctx, sessionID); err != nil {
		return err
	}
	if err := e.sessions.ResetPlayed(ctx, sessionID, true); err != nil {
		return fmt.Errorf("resetting played tracks: %w", err)
	}
	if err := e.history.DeleteForSession(ctx, sessionID); err != nil {
		return fmt.Errorf("deleting history: %w", err)
	}
	e.logger.Info("session reset", zap.String("session_id", sessionID))
	return nil
}

// DeleteSession removes the session and its history.
func (e *Engine) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := e.Session(ctx, sessionID); err != nil {
		return err
	}
	if err := e.history.DeleteForSession(ctx, sessionID); err != nil {
		return fmt.Errorf("deleting history: %w", err)
	}
	if err := e.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	e.logger.Info("session deleted", zap.String("session_id", sessionID))
	return nil
}

// ============================================================================
// Track rotation
// ============================================================================

// NextTrack picks a random unplayed track of the playlist, resolves its release year,
// starts it on the player's device and records the play. When every track has been
// played the rotation starts over. Nothing is recorded if playback fails.
func (e *Engine) NextTrack(ctx context.Context, sessionID, playlistID string) (*Selection, error) {
	session, err := e.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsActive {
		return nil, ErrSessionInactive
	}

	log := e.logger.With(zap.String("session_id", sessionID), zap.String("playlist_id", playlistID))

	tracks := e.tracks.PlaylistTracks(ctx, playlistID)
	if len(tracks) == 0 {
		return nil, ErrNoTracksAvailable
	}

	candidates := unplayed(tracks, session)
	cycleReset := false
	if len(candidates) == 0 {
		if err := e.sessions.ResetPlayed(ctx, sessionID, false); err != nil {
			return nil, fmt.Errorf("resetting played tracks: %w", err)
		}
		candidates = tracks
		cycleReset = true
		log.Info("all tracks played, starting over", zap.Int("tracks", len(tracks)))
	}

	track := candidates[e.pick(len(candidates))]
	year := e.years.Resolve(ctx, track.Name, track.PrimaryArtist(), track.Album, track.ReleaseYear())

	if err := e.player.Play(ctx, sessionID, track.ID); err != nil {
		return nil, fmt.Errorf("playing track: %w", err)
	}

	if err := e.sessions.AppendPlayed(ctx, sessionID, playlistID, track.ID); err != nil {
		return nil, fmt.Errorf("recording played track: %w", err)
	}

	now := e.now()
	err = e.history.Record(ctx, &store.PlayedTrack{
		SessionID:   sessionID,
		TrackID:     track.ID,
		Title:       track.Name,
		Artist:      track.Artist(),
		Album:       track.Album,
		ReleaseYear: year,
		PlaylistID:  playlistID,
		PlayedAt:    now,
		ExpiresAt:   now.Add(e.historyTTL),
	})
	if err != nil {
		log.Warn("recording history", zap.Error(err))
	}

	var youtubeURL string
	if e.streams != nil {
		youtubeURL, err = e.streams.StreamURL(ctx, track.Name, track.PrimaryArtist())
		if err != nil {
			log.Warn("looking up youtube link", zap.String("track_id", track.ID), zap.Error(err))
			youtubeURL = ""
		}
	}

	log.Info("track selected", zap.String("track_id", track.ID), zap.Int("year", year))
	return &Selection{
		TrackID:     track.ID,
		Title:       track.Name,
		Artist:      track.Artist(),
		Album:       track.Album,
		ReleaseYear: year,
		PlaylistID:  playlistID,
		CycleReset:  cycleReset,
		Remaining:   len(candidates) - 1,
		Total:       len(tracks),
		YouTubeURL:  youtubeURL,
	}, nil
}

// unplayed returns the tracks the session has not played yet, in playlist order.
func unplayed(tracks []store.Track, session *store.Session) []store.Track {
	played := make(map[string]struct{}, len(session.PlayedTrackIDs))
	for _, id := range session.PlayedTrackIDs {
		played[id] = struct{}{}
	}

	out := make([]store.Track, 0, len(tracks))
	for _, t := range tracks {
		if _, ok := played[t.ID]; !ok {
			out = append(out, t)
		}
	}
	return out
}

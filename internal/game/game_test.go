package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justestif/go-songamizer/internal/auth"
	"github.com/justestif/go-songamizer/internal/playback"
	"github.com/justestif/go-songamizer/internal/store"
)

type fakeTracks struct {
	tracks map[string][]store.Track
}

func (f *fakeTracks) PlaylistTracks(_ context.Context, playlistID string) []store.Track {
	return f.tracks[playlistID]
}

type yearCall struct {
	track, artist, album string
	fallback             int
}

type fakeYears struct {
	year  int
	calls []yearCall
}

func (f *fakeYears) Resolve(_ context.Context, track, artist, album string, fallback int) int {
	f.calls = append(f.calls, yearCall{track, artist, album, fallback})
	if fallback >= store.MinYear {
		return fallback
	}
	return f.year
}

type fakeDispatcher struct {
	err    error
	played []string
}

func (f *fakeDispatcher) Play(_ context.Context, _, trackID string) error {
	if f.err != nil {
		return f.err
	}
	f.played = append(f.played, trackID)
	return nil
}

type fakeAuthorizer struct {
	sessions store.Sessions
	err      error
	codes    []string
}

func (f *fakeAuthorizer) AuthURL(state string) string {
	return "https://accounts.example/authorize?state=" + state
}

func (f *fakeAuthorizer) Exchange(ctx context.Context, sessionID, code string) error {
	if f.err != nil {
		return f.err
	}
	f.codes = append(f.codes, code)
	return f.sessions.Activate(ctx, sessionID, "access", "refresh", time.Now().Add(time.Hour))
}

type fakeStreams struct {
	err     error
	queries []string
}

func (f *fakeStreams) StreamURL(_ context.Context, title, artist string) (string, error) {
	f.queries = append(f.queries, title+" / "+artist)
	if f.err != nil {
		return "", f.err
	}
	return "https://www.youtube.com/watch?v=" + strings.ReplaceAll(title, " ", "_"), nil
}

type fixture struct {
	engine *Engine
	store  store.Store
	tracks *fakeTracks
	years  *fakeYears
	player *fakeDispatcher
	auth   *fakeAuthorizer
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	st := store.NewMemory().Store()
	f := &fixture{
		store:  st,
		tracks: &fakeTracks{tracks: map[string][]store.Track{}},
		years:  &fakeYears{year: 1999},
		player: &fakeDispatcher{},
		auth:   &fakeAuthorizer{sessions: st.Sessions},
	}
	f.engine = New(st, f.tracks, f.years, f.player, f.auth, opts...)
	return f
}

// activeSession creates an authorized session and returns its ID.
func (f *fixture) activeSession(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	session, _, err := f.engine.StartSession(ctx)
	require.NoError(t, err)
	id, err := f.engine.Activate(ctx, session.OAuthState, "code")
	require.NoError(t, err)
	return id
}

func makeTracks(n int) []store.Track {
	tracks := make([]store.Track, n)
	for i := range tracks {
		tracks[i] = store.Track{
			ID:          fmt.Sprintf("t%d", i),
			Name:        fmt.Sprintf("Song %d", i),
			Artists:     []string{"Artist", "Guest"},
			Album:       "Album",
			ReleaseDate: "2015-06-01",
		}
	}
	return tracks
}

func TestStartSessionAndActivate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	session, authURL, err := f.engine.StartSession(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.True(t, strings.HasPrefix(session.OAuthState, session.ID+"."))
	assert.Contains(t, authURL, session.OAuthState)

	stored, err := f.engine.Session(ctx, session.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	id, err := f.engine.Activate(ctx, session.OAuthState, "the-code")
	require.NoError(t, err)
	assert.Equal(t, session.ID, id)
	assert.Equal(t, []string{"the-code"}, f.auth.codes)

	stored, err = f.engine.Session(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)
	assert.Equal(t, "access", stored.AccessToken)
}

func TestActivateRejectsBadState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	session, _, err := f.engine.StartSession(ctx)
	require.NoError(t, err)

	tests := []struct {
		name  string
		state string
		code  string
		want  error
	}{
		{"no separator", "garbage", "code", auth.ErrStateMismatch},
		{"wrong nonce", session.ID + ".deadbeef", "code", auth.ErrStateMismatch},
		{"missing code", session.OAuthState, "", auth.ErrStateMismatch},
		{"unknown session", "nope.deadbeef", "code", ErrSessionNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.Activate(ctx, tt.state, tt.code)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, f.auth.codes)

	// A state can only be used once.
	_, err = f.engine.Activate(ctx, session.OAuthState, "code")
	require.NoError(t, err)
	_, err = f.engine.Activate(ctx, session.OAuthState, "code")
	assert.ErrorIs(t, err, auth.ErrStateMismatch)
}

func TestActivateExchangeFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.auth.err = errors.New("token endpoint down")

	session, _, err := f.engine.StartSession(ctx)
	require.NoError(t, err)

	_, err = f.engine.Activate(ctx, session.OAuthState, "code")
	require.Error(t, err)

	stored, err := f.engine.Session(ctx, session.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
}

func TestNextTrackNeverRepeatsWithinCycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.tracks.tracks["p1"] = makeTracks(10)
	id := f.activeSession(t)

	seen := make(map[string]bool)
	for i := range 10 {
		sel, err := f.engine.NextTrack(ctx, id, "p1")
		require.NoError(t, err)
		assert.False(t, seen[sel.TrackID], "track %s repeated", sel.TrackID)
		seen[sel.TrackID] = true
		assert.False(t, sel.CycleReset)
		assert.Equal(t, 9-i, sel.Remaining)
		assert.Equal(t, 10, sel.Total)
	}
	assert.Len(t, seen, 10)

	session, err := f.engine.Session(ctx, id)
	require.NoError(t, err)
	assert.Len(t, session.PlayedTrackIDs, 10)
	assert.Equal(t, "p1", session.CurrentPlaylistID)
}

func TestNextTrackCycleReset(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithPicker(func(int) int { return 0 }))
	f.tracks.tracks["p1"] = makeTracks(3)
	id := f.activeSession(t)

	for range 3 {
		_, err := f.engine.NextTrack(ctx, id, "p1")
		require.NoError(t, err)
	}

	sel, err := f.engine.NextTrack(ctx, id, "p1")
	require.NoError(t, err)
	assert.True(t, sel.CycleReset)
	assert.Equal(t, "t0", sel.TrackID)
	assert.Equal(t, 2, sel.Remaining)

	session, err := f.engine.Session(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"t0"}, session.PlayedTrackIDs)

	// The wrap keeps the history of the previous cycle.
	history, err := f.engine.History(ctx, id)
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestNextTrackEmptyPlaylist(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.activeSession(t)

	_, err := f.engine.NextTrack(ctx, id, "empty")
	assert.ErrorIs(t, err, ErrNoTracksAvailable)
	assert.Empty(t, f.player.played)
	assert.Empty(t, f.years.calls)
}

func TestNextTrackPlaybackFailureRecordsNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.tracks.tracks["p1"] = makeTracks(2)
	f.player.err = playback.ErrNoActiveDevice
	id := f.activeSession(t)

	_, err := f.engine.NextTrack(ctx, id, "p1")
	assert.ErrorIs(t, err, playback.ErrNoActiveDevice)

	session, err := f.engine.Session(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, session.PlayedTrackIDs)
	assert.Empty(t, session.CurrentPlaylistID)

	history, err := f.engine.History(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestNextTrackSessionChecks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.tracks.tracks["p1"] = makeTracks(1)

	_, err := f.engine.NextTrack(ctx, "missing", "p1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, err, store.ErrNotFound)

	session, _, err := f.engine.StartSession(ctx)
	require.NoError(t, err)
	_, err = f.engine.NextTrack(ctx, session.ID, "p1")
	assert.ErrorIs(t, err, ErrSessionInactive)
	assert.Empty(t, f.player.played)
}

func TestNextTrackResolvesYear(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	f := newFixture(t, WithClock(func() time.Time { return now }), WithHistoryTTL(time.Hour))
	f.tracks.tracks["p1"] = []store.Track{
		{ID: "x", Name: "Remastered Hit", Artists: []string{"Band", "Feat"}, Album: "Best Of", ReleaseDate: ""},
	}
	f.years.year = 1967
	id := f.activeSession(t)

	sel, err := f.engine.NextTrack(ctx, id, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1967, sel.ReleaseYear)
	assert.Equal(t, "Band, Feat", sel.Artist)
	require.Len(t, f.years.calls, 1)
	assert.Equal(t, yearCall{"Remastered Hit", "Band", "Best Of", 0}, f.years.calls[0])

	records, err := f.store.History.ListForSession(ctx, id)
	require.NoError(t, err)
	if assert.Len(t, records, 1) {
		assert.Equal(t, 1967, records[0].ReleaseYear)
		assert.Equal(t, now, records[0].PlayedAt)
		assert.Equal(t, now.Add(time.Hour), records[0].ExpiresAt)
	}
}

func TestNextTrackYouTubeLink(t *testing.T) {
	ctx := context.Background()

	t.Run("attached when found", func(t *testing.T) {
		streams := &fakeStreams{}
		f := newFixture(t, WithStreamFinder(streams))
		f.tracks.tracks["p1"] = makeTracks(1)
		id := f.activeSession(t)

		sel, err := f.engine.NextTrack(ctx, id, "p1")
		require.NoError(t, err)
		assert.Equal(t, "https://www.youtube.com/watch?v=Song_0", sel.YouTubeURL)
		assert.Equal(t, []string{"Song 0 / Artist"}, streams.queries)
	})

	t.Run("lookup failure keeps the selection", func(t *testing.T) {
		streams := &fakeStreams{err: errors.New("proxy down")}
		f := newFixture(t, WithStreamFinder(streams))
		f.tracks.tracks["p1"] = makeTracks(1)
		id := f.activeSession(t)

		sel, err := f.engine.NextTrack(ctx, id, "p1")
		require.NoError(t, err)
		assert.Empty(t, sel.YouTubeURL)
		assert.Equal(t, []string{"t0"}, f.player.played)
	})

	t.Run("not looked up when playback fails", func(t *testing.T) {
		streams := &fakeStreams{}
		f := newFixture(t, WithStreamFinder(streams))
		f.tracks.tracks["p1"] = makeTracks(1)
		f.player.err = playback.ErrNoActiveDevice
		id := f.activeSession(t)

		_, err := f.engine.NextTrack(ctx, id, "p1")
		require.Error(t, err)
		assert.Empty(t, streams.queries)
	})
}

func TestPlayedSetSpansPlaylists(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	shared := makeTracks(2)
	f.tracks.tracks["p1"] = shared
	f.tracks.tracks["p2"] = shared[:1]
	id := f.activeSession(t)

	_, err := f.engine.NextTrack(ctx, id, "p1")
	require.NoError(t, err)
	_, err = f.engine.NextTrack(ctx, id, "p1")
	require.NoError(t, err)

	sel, err := f.engine.NextTrack(ctx, id, "p2")
	require.NoError(t, err)
	assert.True(t, sel.CycleReset)
}

func TestResetAndDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.tracks.tracks["p1"] = makeTracks(3)
	id := f.activeSession(t)

	_, err := f.engine.NextTrack(ctx, id, "p1")
	require.NoError(t, err)

	require.NoError(t, f.engine.Reset(ctx, id))
	session, err := f.engine.Session(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, session.PlayedTrackIDs)
	assert.Empty(t, session.CurrentPlaylistID)
	history, err := f.engine.History(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, history)

	require.NoError(t, f.engine.DeleteSession(ctx, id))
	_, err = f.engine.Session(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, f.engine.Reset(ctx, id), ErrSessionNotFound)
	assert.ErrorIs(t, f.engine.DeleteSession(ctx, id), ErrSessionNotFound)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{playback.ErrNoActiveDevice, KindEnvironment},
		{fmt.Errorf("playing track: %w", playback.ErrPremiumRequired), KindEnvironment},
		{playback.ErrAuthExpired, KindSession},
		{fmt.Errorf("%w: invalid_grant", auth.ErrRefreshFailed), KindSession},
		{auth.ErrStateMismatch, KindSession},
		{ErrSessionNotFound, KindSession},
		{ErrSessionInactive, KindSession},
		{ErrNoTracksAvailable, KindNoTracks},
		{ErrPlaylistNotFound, KindNotFound},
		{ErrInvalidIcon, KindInvalid},
		{fmt.Errorf("%w: 500 oops", playback.ErrProviderError), KindTransient},
		{errors.New("boom"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			kind, msg := Classify(tt.err)
			assert.Equal(t, tt.want, kind)
			assert.NotEmpty(t, msg)
		})
	}

	_, msg := Classify(playback.ErrNoActiveDevice)
	assert.Contains(t, msg, "Spotify app")
}

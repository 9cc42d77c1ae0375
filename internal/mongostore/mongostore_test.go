package mongostore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/justestif/go-songamizer/internal/store"
)

func TestSessionDocument(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	session := &store.Session{
		ID:             "s1",
		AccessToken:    "access",
		RefreshToken:   "refresh",
		TokenExpiresAt: created.Add(time.Hour),
		IsActive:       true,
		CreatedAt:      created,
	}

	raw, err := bson.Marshal(toSessionDoc(session))
	require.NoError(t, err)

	var fields bson.M
	require.NoError(t, bson.Unmarshal(raw, &fields))
	assert.Equal(t, "s1", fields["_id"])
	assert.IsType(t, bson.A{}, fields["played_track_ids"])
	assert.Len(t, fields["played_track_ids"], 0)
	assert.Equal(t, "", fields["current_playlist_id"])

	var doc sessionDoc
	require.NoError(t, bson.Unmarshal(raw, &doc))
	got := doc.session()
	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, session.AccessToken, got.AccessToken)
	assert.True(t, session.TokenExpiresAt.Equal(got.TokenExpiresAt))
	assert.True(t, got.IsActive)
	assert.Empty(t, got.PlayedTrackIDs)
}

func TestSessionUpdates(t *testing.T) {
	update := appendPlayedUpdate("p1", "t1")
	assert.Equal(t, bson.M{"played_track_ids": "t1"}, update["$addToSet"])
	assert.Equal(t, bson.M{"current_playlist_id": "p1"}, update["$set"])

	tests := []struct {
		name          string
		clearPlaylist bool
		want          bson.M
	}{
		{"cycle wrap keeps playlist", false, bson.M{"played_track_ids": []string{}}},
		{"reset clears playlist", true, bson.M{"played_track_ids": []string{}, "current_playlist_id": ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, bson.M{"$set": tt.want}, resetPlayedUpdate(tt.clearPlaylist))
		})
	}
}

func TestPlaylistDocument(t *testing.T) {
	entry := &store.PlaylistEntry{
		PlaylistID: "p1",
		Tracks: []store.Track{
			{ID: "t1", Name: "Song", Artists: []string{"A", "B"}, Album: "LP", ReleaseDate: "1999-01-01"},
		},
		CachedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	raw, err := bson.Marshal(toPlaylistDoc(entry))
	require.NoError(t, err)

	var doc playlistDoc
	require.NoError(t, bson.Unmarshal(raw, &doc))
	got := doc.entry()
	assert.Equal(t, entry.PlaylistID, got.PlaylistID)
	assert.Equal(t, entry.Tracks, got.Tracks)

	empty := toPlaylistDoc(&store.PlaylistEntry{PlaylistID: "p2"})
	assert.NotNil(t, empty.Tracks)
}

func TestYearFilter(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	filter := yearFilter("Yesterday", "The Beatles", now)
	assert.Equal(t, "Yesterday", filter["track_name"])
	assert.Equal(t, "The Beatles", filter["artist_name"])
	assert.Equal(t, bson.M{"$gt": now}, filter["expires_at"])
}

func TestPlayedAndCuratedDocuments(t *testing.T) {
	played := &store.PlayedTrack{
		SessionID:   "s1",
		TrackID:     "t1",
		Title:       "Song",
		Artist:      "A, B",
		Album:       "LP",
		ReleaseYear: 1967,
		PlaylistID:  "p1",
		PlayedAt:    time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		ExpiresAt:   time.Date(2026, 1, 1, 14, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, *played, toPlayedDoc(played).record())

	raw, err := bson.Marshal(toPlayedDoc(played))
	require.NoError(t, err)
	var fields bson.M
	require.NoError(t, bson.Unmarshal(raw, &fields))
	assert.Contains(t, fields, "expires_at")
	assert.Contains(t, fields, "session_id")
	assert.NotContains(t, fields, "_id")

	curated := curatedDoc{ID: "c1", Name: "Hits", Icon: "jukebox"}
	assert.Equal(t, store.CuratedPlaylist{ID: "c1", Name: "Hits", Icon: "jukebox"}, curated.playlist())
}

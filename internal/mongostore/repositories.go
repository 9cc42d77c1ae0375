package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/justestif/go-songamizer/internal/store"
)

// ============================================================================
// Sessions
// ============================================================================

// SessionRepository handles session documents.
type SessionRepository struct {
	coll *mongo.Collection
}

// Create inserts a new session.
func (r *SessionRepository) Create(ctx context.Context, session *store.Session) error {
	if _, err := r.coll.InsertOne(ctx, toSessionDoc(session)); err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// Get retrieves a session by ID.
func (r *SessionRepository) Get(ctx context.Context, id string) (*store.Session, error) {
	var doc sessionDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding session: %w", err)
	}
	return doc.session(), nil
}

// Activate stores the first token pair, marks the session active and clears its OAuth state.
func (r *SessionRepository) Activate(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error {
	return r.update(ctx, id, bson.M{"$set": bson.M{
		"access_token":     accessToken,
		"refresh_token":    refreshToken,
		"token_expires_at": expiresAt,
		"is_active":        true,
		"oauth_state":      "",
	}})
}

// UpdateToken replaces the token pair and expiry in one update.
func (r *SessionRepository) UpdateToken(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error {
	return r.update(ctx, id, bson.M{"$set": bson.M{
		"access_token":     accessToken,
		"refresh_token":    refreshToken,
		"token_expires_at": expiresAt,
	}})
}

// AppendPlayed adds a track to the played set and records the current playlist.
func (r *SessionRepository) AppendPlayed(ctx context.Context, id, playlistID, trackID string) error {
	return r.update(ctx, id, appendPlayedUpdate(playlistID, trackID))
}

// ResetPlayed clears the played set, and the current playlist when clearPlaylist is true.
func (r *SessionRepository) ResetPlayed(ctx context.Context, id string, clearPlaylist bool) error {
	return r.update(ctx, id, resetPlayedUpdate(clearPlaylist))
}

// Delete removes a session.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func (r *SessionRepository) update(ctx context.Context, id string, update bson.M) error {
	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func appendPlayedUpdate(playlistID, trackID string) bson.M {
	return bson.M{
		"$addToSet": bson.M{"played_track_ids": trackID},
		"$set":      bson.M{"current_playlist_id": playlistID},
	}
}

func resetPlayedUpdate(clearPlaylist bool) bson.M {
	set := bson.M{"played_track_ids": []string{}}
	if clearPlaylist {
		set["current_playlist_id"] = ""
	}
	return bson.M{"$set": set}
}

// ============================================================================
// Playlist track cache
// ============================================================================

// PlaylistRepository handles cached playlist track lists.
type PlaylistRepository struct {
	coll *mongo.Collection
}

// Get retrieves the cached tracks of a playlist.
func (r *PlaylistRepository) Get(ctx context.Context, playlistID string) (*store.PlaylistEntry, error) {
	var doc playlistDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": playlistID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding playlist tracks: %w", err)
	}
	return doc.entry(), nil
}

// Put creates or replaces the cached tracks of a playlist.
func (r *PlaylistRepository) Put(ctx context.Context, entry *store.PlaylistEntry) error {
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": entry.PlaylistID}, toPlaylistDoc(entry),
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("replacing playlist tracks: %w", err)
	}
	return nil
}

// ============================================================================
// Track metadata
// ============================================================================

// YearRepository handles cached original release years.
type YearRepository struct {
	coll *mongo.Collection
}

// Get retrieves an unexpired year entry.
func (r *YearRepository) Get(ctx context.Context, trackName, artistName string) (*store.YearEntry, error) {
	var doc yearDoc
	err := r.coll.FindOne(ctx, yearFilter(trackName, artistName, time.Now())).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding track metadata: %w", err)
	}
	return doc.entry(), nil
}

// Upsert creates or updates a year entry. Out-of-range years are rejected.
func (r *YearRepository) Upsert(ctx context.Context, entry *store.YearEntry) error {
	if !store.ValidYear(entry.OriginalYear, time.Now()) {
		return store.ErrInvalidYear
	}
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"track_name": entry.TrackName, "artist_name": entry.ArtistName},
		bson.M{"$set": bson.M{
			"original_year": entry.OriginalYear,
			"expires_at":    entry.ExpiresAt,
		}},
		options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upserting track metadata: %w", err)
	}
	return nil
}

func yearFilter(trackName, artistName string, now time.Time) bson.M {
	return bson.M{
		"track_name":  trackName,
		"artist_name": artistName,
		"expires_at":  bson.M{"$gt": now},
	}
}

// ============================================================================
// Played tracks
// ============================================================================

// HistoryRepository handles played-track records.
type HistoryRepository struct {
	coll *mongo.Collection
}

// Record inserts a played-track record.
func (r *HistoryRepository) Record(ctx context.Context, played *store.PlayedTrack) error {
	if _, err := r.coll.InsertOne(ctx, toPlayedDoc(played)); err != nil {
		return fmt.Errorf("inserting played track: %w", err)
	}
	return nil
}

// ListForSession retrieves unexpired records for a session, newest first.
func (r *HistoryRepository) ListForSession(ctx context.Context, sessionID string) ([]store.PlayedTrack, error) {
	cursor, err := r.coll.Find(ctx,
		bson.M{"session_id": sessionID, "expires_at": bson.M{"$gt": time.Now()}},
		options.Find().SetSort(bson.D{{Key: "played_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("finding played tracks: %w", err)
	}

	var docs []playedDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding played tracks: %w", err)
	}

	records := make([]store.PlayedTrack, 0, len(docs))
	for _, d := range docs {
		records = append(records, d.record())
	}
	return records, nil
}

// DeleteForSession removes every record of a session.
func (r *HistoryRepository) DeleteForSession(ctx context.Context, sessionID string) error {
	if _, err := r.coll.DeleteMany(ctx, bson.M{"session_id": sessionID}); err != nil {
		return fmt.Errorf("deleting played tracks: %w", err)
	}
	return nil
}

// ============================================================================
// Curated playlists
// ============================================================================

// CuratedRepository handles the curated playlist registry.
type CuratedRepository struct {
	coll *mongo.Collection
}

// List retrieves every curated playlist in insertion order.
func (r *CuratedRepository) List(ctx context.Context) ([]store.CuratedPlaylist, error) {
	cursor, err := r.coll.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("finding curated playlists: %w", err)
	}

	var docs []curatedDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding curated playlists: %w", err)
	}

	playlists := make([]store.CuratedPlaylist, 0, len(docs))
	for _, d := range docs {
		playlists = append(playlists, d.playlist())
	}
	return playlists, nil
}

// Upsert creates or renames a curated playlist. CreatedAt is set from the stored document.
func (r *CuratedRepository) Upsert(ctx context.Context, playlist *store.CuratedPlaylist) error {
	createdAt := playlist.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var doc curatedDoc
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": playlist.ID},
		bson.M{
			"$set":         bson.M{"name": playlist.Name, "icon": playlist.Icon},
			"$setOnInsert": bson.M{"created_at": createdAt},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return fmt.Errorf("upserting curated playlist: %w", err)
	}
	playlist.CreatedAt = doc.CreatedAt
	return nil
}

// Delete removes a curated playlist.
func (r *CuratedRepository) Delete(ctx context.Context, id string) error {
	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("deleting curated playlist: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

var (
	_ store.Sessions      = (*SessionRepository)(nil)
	_ store.PlaylistCache = (*PlaylistRepository)(nil)
	_ store.YearCache     = (*YearRepository)(nil)
	_ store.History       = (*HistoryRepository)(nil)
	_ store.Curated       = (*CuratedRepository)(nil)
)

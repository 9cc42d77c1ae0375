// Package mongostore implements the store repositories on MongoDB.
//
// Expiring collections (track metadata, played tracks) carry a TTL index on expires_at,
// so no sweeper is needed. TTL deletion runs in the background, which is why reads still
// filter on expires_at.
package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/justestif/go-songamizer/internal/store"
)

// DefaultDatabase is used when no database name is configured.
const DefaultDatabase = "songamizer"

// Collection names.
const (
	sessionsCollection  = "sessions"
	playlistsCollection = "playlist_tracks"
	yearsCollection     = "track_metadata"
	historyCollection   = "played_tracks"
	curatedCollection   = "curated_playlists"
)

// ErrNotFound is returned when a document is not found.
var ErrNotFound = store.ErrNotFound

// DB wraps a MongoDB client and database.
type DB struct {
	client *mongo.Client
	db     *mongo.Database
}

// New connects to MongoDB, verifies the connection and ensures indexes exist.
func New(ctx context.Context, uri, database string) (*DB, error) {
	if database == "" {
		database = DefaultDatabase
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	d := &DB{client: client, db: client.Database(database)}
	if err := d.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return d, nil
}

// Close disconnects from MongoDB.
func (d *DB) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

// EnsureIndexes creates the lookup and TTL indexes. It is idempotent.
func (d *DB) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		yearsCollection: {
			{
				Keys:    bson.D{{Key: "track_name", Value: 1}, {Key: "artist_name", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "expires_at", Value: 1}},
				Options: options.Index().SetExpireAfterSeconds(0),
			},
		},
		historyCollection: {
			{Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "played_at", Value: -1}}},
			{
				Keys:    bson.D{{Key: "expires_at", Value: 1}},
				Options: options.Index().SetExpireAfterSeconds(0),
			},
		},
	}

	for name, models := range indexes {
		if _, err := d.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("creating %s indexes: %w", name, err)
		}
	}
	return nil
}

// Sessions returns the session repository.
func (d *DB) Sessions() *SessionRepository {
	return &SessionRepository{coll: d.db.Collection(sessionsCollection)}
}

// Playlists returns the playlist track cache repository.
func (d *DB) Playlists() *PlaylistRepository {
	return &PlaylistRepository{coll: d.db.Collection(playlistsCollection)}
}

// Years returns the track metadata repository.
func (d *DB) Years() *YearRepository {
	return &YearRepository{coll: d.db.Collection(yearsCollection)}
}

// History returns the played-track repository.
func (d *DB) History() *HistoryRepository {
	return &HistoryRepository{coll: d.db.Collection(historyCollection)}
}

// Curated returns the curated playlist repository.
func (d *DB) Curated() *CuratedRepository {
	return &CuratedRepository{coll: d.db.Collection(curatedCollection)}
}

// Store assembles every repository into a store.Store.
func (d *DB) Store() store.Store {
	return store.Store{
		Sessions:  d.Sessions(),
		Playlists: d.Playlists(),
		Years:     d.Years(),
		History:   d.History(),
		Curated:   d.Curated(),
	}
}

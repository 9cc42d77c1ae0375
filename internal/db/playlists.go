package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/justestif/go-songamizer/internal/store"
)

// PlaylistRepository handles the playlist track cache.
type PlaylistRepository struct {
	db querier
}

// Get retrieves the cached tracks of a playlist.
func (r *PlaylistRepository) Get(ctx context.Context, playlistID string) (*store.PlaylistEntry, error) {
	query := `
		SELECT playlist_id, tracks, cached_at
		FROM playlist_tracks
		WHERE playlist_id = $1
	`
	var (
		entry store.PlaylistEntry
		raw   []byte
	)
	err := r.db.QueryRow(ctx, query, playlistID).Scan(&entry.PlaylistID, &raw, &entry.CachedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying playlist tracks: %w", err)
	}
	if err := json.Unmarshal(raw, &entry.Tracks); err != nil {
		return nil, fmt.Errorf("decoding playlist tracks: %w", err)
	}
	return &entry, nil
}

// Put creates or replaces the cached tracks of a playlist.
func (r *PlaylistRepository) Put(ctx context.Context, entry *store.PlaylistEntry) error {
	tracks := entry.Tracks
	if tracks == nil {
		tracks = []store.Track{}
	}
	raw, err := json.Marshal(tracks)
	if err != nil {
		return fmt.Errorf("encoding playlist tracks: %w", err)
	}

	query := `
		INSERT INTO playlist_tracks (playlist_id, tracks, cached_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (playlist_id) DO UPDATE SET
			tracks = EXCLUDED.tracks,
			cached_at = EXCLUDED.cached_at
	`
	if _, err := r.db.Exec(ctx, query, entry.PlaylistID, raw, entry.CachedAt); err != nil {
		return fmt.Errorf("upserting playlist tracks: %w", err)
	}
	return nil
}

var _ store.PlaylistCache = (*PlaylistRepository)(nil)

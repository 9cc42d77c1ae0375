package db

import (
	"context"
	"fmt"

	"github.com/justestif/go-songamizer/internal/store"
)

// HistoryRepository handles played-track records.
type HistoryRepository struct {
	db querier
}

// Record inserts a played-track record.
func (r *HistoryRepository) Record(ctx context.Context, played *store.PlayedTrack) error {
	query := `
		INSERT INTO played_tracks (session_id, track_id, title, artist, album, release_year, playlist_id, played_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		played.SessionID,
		played.TrackID,
		played.Title,
		played.Artist,
		played.Album,
		played.ReleaseYear,
		played.PlaylistID,
		played.PlayedAt,
		played.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("inserting played track: %w", err)
	}
	return nil
}

// ListForSession retrieves unexpired records for a session, newest first.
func (r *HistoryRepository) ListForSession(ctx context.Context, sessionID string) ([]store.PlayedTrack, error) {
	query := `
		SELECT session_id, track_id, title, artist, album, release_year, playlist_id, played_at, expires_at
		FROM played_tracks
		WHERE session_id = $1 AND expires_at > NOW()
		ORDER BY played_at DESC
	`
	rows, err := r.db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying played tracks: %w", err)
	}
	defer rows.Close()

	var records []store.PlayedTrack
	for rows.Next() {
		var p store.PlayedTrack
		if err := rows.Scan(
			&p.SessionID,
			&p.TrackID,
			&p.Title,
			&p.Artist,
			&p.Album,
			&p.ReleaseYear,
			&p.PlaylistID,
			&p.PlayedAt,
			&p.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("scanning played track: %w", err)
		}
		records = append(records, p)
	}
	return records, rows.Err()
}

// DeleteForSession removes every record of a session.
func (r *HistoryRepository) DeleteForSession(ctx context.Context, sessionID string) error {
	query := `DELETE FROM played_tracks WHERE session_id = $1`
	if _, err := r.db.Exec(ctx, query, sessionID); err != nil {
		return fmt.Errorf("deleting played tracks: %w", err)
	}
	return nil
}

// DeleteExpired removes all expired records.
func (r *HistoryRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM played_tracks WHERE expires_at <= NOW()`
	result, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("deleting expired played tracks: %w", err)
	}
	return result.RowsAffected(), nil
}

var _ store.History = (*HistoryRepository)(nil)

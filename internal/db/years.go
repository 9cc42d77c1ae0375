package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/justestif/go-songamizer/internal/store"
)

// YearRepository handles the track metadata (original release year) cache.
type YearRepository struct {
	db querier
}

// Get retrieves an unexpired year entry for a track and artist.
func (r *YearRepository) Get(ctx context.Context, trackName, artistName string) (*store.YearEntry, error) {
	query := `
		SELECT track_name, artist_name, original_year, expires_at
		FROM track_metadata
		WHERE track_name = $1 AND artist_name = $2 AND expires_at > NOW()
	`
	var entry store.YearEntry
	err := r.db.QueryRow(ctx, query, trackName, artistName).Scan(
		&entry.TrackName,
		&entry.ArtistName,
		&entry.OriginalYear,
		&entry.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying track metadata: %w", err)
	}
	return &entry, nil
}

// Upsert creates or updates a year entry. Out-of-range years are rejected.
func (r *YearRepository) Upsert(ctx context.Context, entry *store.YearEntry) error {
	if !store.ValidYear(entry.OriginalYear, time.Now()) {
		return store.ErrInvalidYear
	}

	query := `
		INSERT INTO track_metadata (track_name, artist_name, original_year, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (track_name, artist_name) DO UPDATE SET
			original_year = EXCLUDED.original_year,
			expires_at = EXCLUDED.expires_at
	`
	_, err := r.db.Exec(ctx, query, entry.TrackName, entry.ArtistName, entry.OriginalYear, entry.ExpiresAt)
	if err != nil {
		return fmt.Errorf("upserting track metadata: %w", err)
	}
	return nil
}

// DeleteExpired removes all expired year entries.
func (r *YearRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM track_metadata WHERE expires_at <= NOW()`
	result, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("deleting expired track metadata: %w", err)
	}
	return result.RowsAffected(), nil
}

var _ store.YearCache = (*YearRepository)(nil)

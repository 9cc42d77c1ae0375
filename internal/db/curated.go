package db

import (
	"context"
	"fmt"

	"github.com/justestif/go-songamizer/internal/store"
)

// CuratedRepository handles the curated playlist registry.
type CuratedRepository struct {
	db querier
}

// List retrieves every curated playlist in insertion order.
func (r *CuratedRepository) List(ctx context.Context) ([]store.CuratedPlaylist, error) {
	query := `
		SELECT id, name, icon, created_at
		FROM curated_playlists
		ORDER BY created_at, id
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying curated playlists: %w", err)
	}
	defer rows.Close()

	var playlists []store.CuratedPlaylist
	for rows.Next() {
		var p store.CuratedPlaylist
		if err := rows.Scan(&p.ID, &p.Name, &p.Icon, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning curated playlist: %w", err)
		}
		playlists = append(playlists, p)
	}
	return playlists, rows.Err()
}

// Upsert creates or renames a curated playlist.
func (r *CuratedRepository) Upsert(ctx context.Context, playlist *store.CuratedPlaylist) error {
	query := `
		INSERT INTO curated_playlists (id, name, icon, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			icon = EXCLUDED.icon
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query, playlist.ID, playlist.Name, playlist.Icon).Scan(&playlist.CreatedAt)
	if err != nil {
		return fmt.Errorf("upserting curated playlist: %w", err)
	}
	return nil
}

// Delete removes a curated playlist.
func (r *CuratedRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM curated_playlists WHERE id = $1`
	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deleting curated playlist: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

var _ store.Curated = (*CuratedRepository)(nil)

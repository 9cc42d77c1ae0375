package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/justestif/go-songamizer/internal/store"
)

// SessionRepository handles session database operations.
type SessionRepository struct {
	db querier
}

// Create inserts a new session.
func (r *SessionRepository) Create(ctx context.Context, session *store.Session) error {
	query := `
		INSERT INTO sessions (id, access_token, refresh_token, token_expires_at, played_track_ids,
			current_playlist_id, is_active, oauth_state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	played := session.PlayedTrackIDs
	if played == nil {
		played = []string{}
	}
	_, err := r.db.Exec(ctx, query,
		session.ID,
		session.AccessToken,
		session.RefreshToken,
		session.TokenExpiresAt,
		played,
		session.CurrentPlaylistID,
		session.IsActive,
		session.OAuthState,
		session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// Get retrieves a session by ID.
func (r *SessionRepository) Get(ctx context.Context, id string) (*store.Session, error) {
	query := `
		SELECT id, access_token, refresh_token, token_expires_at, played_track_ids,
			current_playlist_id, is_active, oauth_state, created_at
		FROM sessions
		WHERE id = $1
	`
	var session store.Session
	err := r.db.QueryRow(ctx, query, id).Scan(
		&session.ID,
		&session.AccessToken,
		&session.RefreshToken,
		&session.TokenExpiresAt,
		&session.PlayedTrackIDs,
		&session.CurrentPlaylistID,
		&session.IsActive,
		&session.OAuthState,
		&session.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	return &session, nil
}

// Activate stores the first token pair and marks the session active.
func (r *SessionRepository) Activate(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error {
	query := `
		UPDATE sessions
		SET access_token = $2, refresh_token = $3, token_expires_at = $4, is_active = TRUE, oauth_state = ''
		WHERE id = $1
	`
	return r.exec(ctx, "activating session", query, id, accessToken, refreshToken, expiresAt)
}

// UpdateToken updates the OAuth tokens for a session.
func (r *SessionRepository) UpdateToken(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error {
	query := `
		UPDATE sessions
		SET access_token = $2, refresh_token = $3, token_expires_at = $4
		WHERE id = $1
	`
	return r.exec(ctx, "updating session token", query, id, accessToken, refreshToken, expiresAt)
}

// AppendPlayed adds a track to the played set and records the current playlist.
func (r *SessionRepository) AppendPlayed(ctx context.Context, id, playlistID, trackID string) error {
	query := `
		UPDATE sessions
		SET played_track_ids = CASE
				WHEN $3 = ANY(played_track_ids) THEN played_track_ids
				ELSE array_append(played_track_ids, $3)
			END,
			current_playlist_id = $2
		WHERE id = $1
	`
	return r.exec(ctx, "appending played track", query, id, playlistID, trackID)
}

// ResetPlayed clears the played set, and the current playlist when clearPlaylist is set.
func (r *SessionRepository) ResetPlayed(ctx context.Context, id string, clearPlaylist bool) error {
	query := `
		UPDATE sessions
		SET played_track_ids = '{}',
			current_playlist_id = CASE WHEN $2 THEN '' ELSE current_playlist_id END
		WHERE id = $1
	`
	return r.exec(ctx, "resetting played tracks", query, id, clearPlaylist)
}

// Delete removes a session by ID.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM sessions WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func (r *SessionRepository) exec(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

var _ store.Sessions = (*SessionRepository)(nil)

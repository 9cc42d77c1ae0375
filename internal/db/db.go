// Package db provides PostgreSQL persistence for Songamizer.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/justestif/go-songamizer/internal/store"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = store.ErrNotFound

// querier is the subset of pgxpool.Pool used by repositories.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB wraps a PostgreSQL connection pool.
type DB struct {
	pool *pgxpool.Pool
	q    querier
}

// New creates a new database connection pool.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DB{pool: pool, q: pool}, nil
}

// Close closes the database connection pool.
func (db *DB) Close() {
	db.pool.Close()
}

// Sessions returns a SessionRepository.
func (db *DB) Sessions() *SessionRepository {
	return &SessionRepository{db: db.q}
}

// Playlists returns a PlaylistRepository.
func (db *DB) Playlists() *PlaylistRepository {
	return &PlaylistRepository{db: db.q}
}

// Years returns a YearRepository.
func (db *DB) Years() *YearRepository {
	return &YearRepository{db: db.q}
}

// History returns a HistoryRepository.
func (db *DB) History() *HistoryRepository {
	return &HistoryRepository{db: db.q}
}

// Curated returns a CuratedRepository.
func (db *DB) Curated() *CuratedRepository {
	return &CuratedRepository{db: db.q}
}

// Store assembles the repositories into a store.Store.
func (db *DB) Store() store.Store {
	return store.Store{
		Sessions:  db.Sessions(),
		Playlists: db.Playlists(),
		Years:     db.Years(),
		History:   db.History(),
		Curated:   db.Curated(),
	}
}

// DeleteExpired removes history records and year entries past their expiry.
// Postgres has no native row expiry, so this runs periodically.
func (db *DB) DeleteExpired(ctx context.Context) (int64, error) {
	history, err := db.History().DeleteExpired(ctx)
	if err != nil {
		return 0, err
	}
	years, err := db.Years().DeleteExpired(ctx)
	if err != nil {
		return history, err
	}
	return history + years, nil
}

var _ store.Sweeper = (*DB)(nil)

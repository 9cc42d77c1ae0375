// Package tracks provides read-through access to playlist track lists.
package tracks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/justestif/go-songamizer/internal/spotify"
	"github.com/justestif/go-songamizer/internal/store"
)

// DefaultCacheTTL is how long a fetched playlist stays fresh.
const DefaultCacheTTL = 5 * time.Minute

// PageSource fetches one page of playable playlist tracks with the app token.
type PageSource interface {
	PlaylistPage(ctx context.Context, playlistID string, offset int) (*spotify.Page, error)
}

// TokenInvalidator drops a cached app token so the next request renews it.
type TokenInvalidator interface {
	Invalidate()
}

// Service serves playlist tracks from the cache, fetching from Spotify when stale.
type Service struct {
	source   PageSource
	tokens   TokenInvalidator
	cache    store.PlaylistCache
	cacheTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithCacheTTL sets how long cached playlists are considered fresh.
func WithCacheTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.cacheTTL = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a new track service.
func New(source PageSource, tokens TokenInvalidator, cache store.PlaylistCache, opts ...Option) *Service {
	s := &Service{
		source:   source,
		tokens:   tokens,
		cache:    cache,
		cacheTTL: DefaultCacheTTL,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlaylistTracks returns the playable tracks of a playlist. A fresh cache entry is
// returned as is; otherwise every page is fetched and the cache replaced.
// It never fails: errors are logged and an empty slice is returned.
func (s *Service) PlaylistTracks(ctx context.Context, playlistID string) []store.Track {
	log := s.logger.With(zap.String("playlist_id", playlistID))

	entry, err := s.cache.Get(ctx, playlistID)
	switch {
	case err == nil && entry.Fresh(s.now(), s.cacheTTL):
		return entry.Tracks
	case err != nil && !errors.Is(err, store.ErrNotFound):
		log.Warn("reading playlist cache", zap.Error(err))
	}

	tracks, err := s.fetchAll(ctx, playlistID)
	if err != nil {
		log.Error("fetching playlist tracks", zap.Error(err))
		return []store.Track{}
	}

	err = s.cache.Put(ctx, &store.PlaylistEntry{
		PlaylistID: playlistID,
		Tracks:     tracks,
		CachedAt:   s.now(),
	})
	if err != nil {
		log.Warn("writing playlist cache", zap.Error(err))
	}

	log.Info("fetched playlist", zap.Int("tracks", len(tracks)))
	return tracks
}

// fetchAll walks the playlist pages sequentially.
func (s *Service) fetchAll(ctx context.Context, playlistID string) ([]store.Track, error) {
	tracks := []store.Track{}
	offset := 0
	for {
		page, err := s.fetchPage(ctx, playlistID, offset)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, page.Tracks...)
		if !page.HasNext {
			return tracks, nil
		}
		offset = page.NextOffset
	}
}

// fetchPage fetches one page, renewing the app token and retrying once on a 401.
func (s *Service) fetchPage(ctx context.Context, playlistID string, offset int) (*spotify.Page, error) {
	page, err := s.source.PlaylistPage(ctx, playlistID, offset)
	if err == nil {
		return page, nil
	}
	if !spotify.IsUnauthorized(err) {
		return nil, fmt.Errorf("fetching page at offset %d: %w", offset, err)
	}

	s.logger.Info("app token rejected, renewing", zap.String("playlist_id", playlistID))
	s.tokens.Invalidate()

	page, err = s.source.PlaylistPage(ctx, playlistID, offset)
	if err != nil {
		return nil, fmt.Errorf("fetching page at offset %d after token renewal: %w", offset, err)
	}
	return page, nil
}

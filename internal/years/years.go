// Package years resolves a track's original release year.
//
// The album release date reported by Spotify is often a remaster or compilation date, so
// a missing or out-of-range album year is looked up on MusicBrainz and cached.
package years

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/justestif/go-songamizer/internal/store"
)

// CacheTTL is how long a resolved year stays cached.
const CacheTTL = 30 * 24 * time.Hour // 30 days

// DateFetcher abstracts the discography lookup for testing.
type DateFetcher interface {
	ReleaseDates(ctx context.Context, track, artist, album string) ([]string, error)
}

// Resolver implements the year resolution policy.
type Resolver struct {
	fetcher  DateFetcher
	cache    store.YearCache
	cacheTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCacheTTL sets how long resolved years are cached.
func WithCacheTTL(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.cacheTTL = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// NewResolver creates a Resolver.
func NewResolver(fetcher DateFetcher, cache store.YearCache, opts ...Option) *Resolver {
	r := &Resolver{
		fetcher:  fetcher,
		cache:    cache,
		cacheTTL: CacheTTL,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the original release year of a track. It never fails: a valid
// fallbackYear is returned as is without any lookup, otherwise the cache and then
// MusicBrainz are consulted, and the current year is the last resort.
func (r *Resolver) Resolve(ctx context.Context, trackName, artistName, albumName string, fallbackYear int) int {
	now := r.now()
	if store.ValidYear(fallbackYear, now) {
		return fallbackYear
	}

	log := r.logger.With(zap.String("track", trackName), zap.String("artist", artistName))

	entry, err := r.cache.Get(ctx, trackName, artistName)
	switch {
	case err == nil && store.ValidYear(entry.OriginalYear, now):
		return entry.OriginalYear
	case err != nil && !errors.Is(err, store.ErrNotFound):
		log.Warn("reading year cache", zap.Error(err))
	}

	dates, err := r.fetcher.ReleaseDates(ctx, trackName, artistName, albumName)
	if err != nil {
		log.Warn("release date lookup failed", zap.Error(err))
		return now.Year()
	}

	year := EarliestYear(dates, now)
	if year == 0 {
		log.Debug("no valid release year found")
		return now.Year()
	}

	err = r.cache.Upsert(ctx, &store.YearEntry{
		TrackName:    trackName,
		ArtistName:   artistName,
		OriginalYear: year,
		ExpiresAt:    now.Add(r.cacheTTL),
	})
	if err != nil {
		log.Warn("writing year cache", zap.Error(err))
	}
	return year
}

// EarliestYear returns the smallest valid year among dates, or 0 when none is valid.
func EarliestYear(dates []string, now time.Time) int {
	earliest := 0
	for _, d := range dates {
		year := store.YearFromDate(d)
		if !store.ValidYear(year, now) {
			continue
		}
		if earliest == 0 || year < earliest {
			earliest = year
		}
	}
	return earliest
}

// Package cache stores playlist track lists in Redis with native key expiry.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/justestif/go-songamizer/internal/store"
)

// DefaultTTL bounds how long Redis keeps a playlist entry. Freshness is decided by the
// track cache; this only keeps stale entries from piling up.
const DefaultTTL = time.Hour

const keyPrefix = "songamizer:playlist:"

// PlaylistCache is a store.PlaylistCache backed by Redis.
type PlaylistCache struct {
	rdb *redis.Client
	ttl time.Duration
}

type entry struct {
	Tracks   []store.Track `json:"tracks"`
	CachedAt time.Time     `json:"cached_at"`
}

// Connect parses a redis:// URL, connects and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}

// New creates a PlaylistCache. A non-positive ttl uses DefaultTTL.
func New(rdb *redis.Client, ttl time.Duration) *PlaylistCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PlaylistCache{rdb: rdb, ttl: ttl}
}

// Get retrieves the cached tracks of a playlist.
func (c *PlaylistCache) Get(ctx context.Context, playlistID string) (*store.PlaylistEntry, error) {
	raw, err := c.rdb.Get(ctx, key(playlistID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading playlist tracks: %w", err)
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("decoding playlist tracks: %w", err)
	}
	return &store.PlaylistEntry{PlaylistID: playlistID, Tracks: e.Tracks, CachedAt: e.CachedAt}, nil
}

// Put creates or replaces the cached tracks of a playlist.
func (c *PlaylistCache) Put(ctx context.Context, pe *store.PlaylistEntry) error {
	raw, err := json.Marshal(entry{Tracks: pe.Tracks, CachedAt: pe.CachedAt})
	if err != nil {
		return fmt.Errorf("encoding playlist tracks: %w", err)
	}
	if err := c.rdb.Set(ctx, key(pe.PlaylistID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("writing playlist tracks: %w", err)
	}
	return nil
}

func key(playlistID string) string {
	return keyPrefix + playlistID
}

var _ store.PlaylistCache = (*PlaylistCache)(nil)

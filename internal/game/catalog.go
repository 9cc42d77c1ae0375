package game

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/justestif/go-songamizer/internal/spotify"
	"github.com/justestif/go-songamizer/internal/store"
)

// DefaultIcon is used when a curated playlist is added without an icon.
const DefaultIcon = "music-note"

// ValidIcons lists the icons a curated playlist may use.
var ValidIcons = []string{
	"jukebox",
	"boombox",
	"microphone",
	"bells",
	"music-note",
	"record-player",
	"guitar",
	"headphones",
}

// PlaylistDirectory looks up playlists on the provider.
type PlaylistDirectory interface {
	Playlist(ctx context.Context, playlistID string) (*spotify.Playlist, error)
	UserPlaylists(ctx context.Context, accessToken string) ([]spotify.Playlist, error)
}

// TokenSource returns a valid access token for a session.
type TokenSource interface {
	AccessToken(ctx context.Context, sessionID string) (string, error)
}

// CatalogEntry is a playlist offered to a player.
type CatalogEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Icon     string `json:"icon,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	Curated  bool   `json:"curated"`
}

// Catalog merges the curated playlist registry with a player's own playlists.
type Catalog struct {
	curated   store.Curated
	directory PlaylistDirectory
	tokens    TokenSource
	logger    *zap.Logger
}

// NewCatalog creates a Catalog.
func NewCatalog(curated store.Curated, directory PlaylistDirectory, tokens TokenSource, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{
		curated:   curated,
		directory: directory,
		tokens:    tokens,
		logger:    logger,
	}
}

// List returns the curated playlists followed by the session's own playlists.
// Playlists present in both appear once, as curated. When sessionID is empty or the
// provider cannot be reached only the curated playlists are returned.
func (c *Catalog) List(ctx context.Context, sessionID string) ([]CatalogEntry, error) {
	curated, err := c.curated.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing curated playlists: %w", err)
	}

	entries := make([]CatalogEntry, 0, len(curated))
	seen := make(map[string]struct{}, len(curated))
	for _, p := range curated {
		entries = append(entries, CatalogEntry{ID: p.ID, Name: p.Name, Icon: p.Icon, Curated: true})
		seen[p.ID] = struct{}{}
	}

	if sessionID == "" {
		return entries, nil
	}

	log := c.logger.With(zap.String("session_id", sessionID))
	token, err := c.tokens.AccessToken(ctx, sessionID)
	if err != nil {
		log.Warn("skipping user playlists", zap.Error(err))
		return entries, nil
	}
	own, err := c.directory.UserPlaylists(ctx, token)
	if err != nil {
		log.Warn("listing user playlists", zap.Error(err))
		return entries, nil
	}

	for _, p := range own {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		entries = append(entries, CatalogEntry{ID: p.ID, Name: p.Name, ImageURL: p.ImageURL})
	}
	return entries, nil
}

// Add registers a curated playlist from a Spotify URL, URI or ID. An empty name is
// looked up on the provider; an empty icon becomes DefaultIcon.
func (c *Catalog) Add(ctx context.Context, urlOrID, name, icon string) (*store.CuratedPlaylist, error) {
	id, err := spotify.ParsePlaylistID(urlOrID)
	if err != nil {
		return nil, err
	}

	if icon == "" {
		icon = DefaultIcon
	}
	if !slices.Contains(ValidIcons, icon) {
		return nil, ErrInvalidIcon
	}

	name = strings.TrimSpace(name)
	if name == "" {
		p, err := c.directory.Playlist(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPlaylistLookup, err)
		}
		name = p.Name
	}

	playlist := &store.CuratedPlaylist{ID: id, Name: name, Icon: icon}
	if err := c.curated.Upsert(ctx, playlist); err != nil {
		return nil, fmt.Errorf("saving curated playlist: %w", err)
	}

	c.logger.Info("curated playlist added", zap.String("playlist_id", id), zap.String("name", name))
	return playlist, nil
}

// Remove deletes a curated playlist.
func (c *Catalog) Remove(ctx context.Context, playlistID string) error {
	err := c.curated.Delete(ctx, playlistID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrPlaylistNotFound
	}
	if err != nil {
		return fmt.Errorf("removing curated playlist: %w", err)
	}
	c.logger.Info("curated playlist removed", zap.String("playlist_id", playlistID))
	return nil
}

// Seed adds playlists that are not registered yet. Existing entries keep their name and icon.
// Seeding continues past individual failures; the first error is returned.
func (c *Catalog) Seed(ctx context.Context, playlists []store.CuratedPlaylist) error {
	existing, err := c.curated.List(ctx)
	if err != nil {
		return fmt.Errorf("listing curated playlists: %w", err)
	}
	known := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		known[p.ID] = struct{}{}
	}

	var firstErr error
	for _, p := range playlists {
		if _, ok := known[p.ID]; ok {
			continue
		}
		if _, err := c.Add(ctx, p.ID, p.Name, p.Icon); err != nil {
			c.logger.Warn("seeding curated playlist", zap.String("playlist_id", p.ID), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

package spotify

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/zmb3/spotify/v2"
	"go.uber.org/zap"
)

// PageSize is the number of playlist items requested per page (API maximum).
const PageSize = 50

// ErrInvalidPlaylist is returned when a playlist URL, URI or ID cannot be parsed.
var ErrInvalidPlaylist = errors.New("invalid Spotify playlist URL or ID")

var playlistIDPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// PlaylistPage fetches one page of playlist items starting at offset, using the app token.
func (c *Client) PlaylistPage(ctx context.Context, playlistID string, offset int) (*Page, error) {
	items, err := c.app.GetPlaylistItems(ctx, spotify.ID(playlistID),
		spotify.Limit(PageSize), spotify.Offset(offset))
	if err != nil {
		return nil, wrap("fetching playlist items", err)
	}

	page := &Page{
		Tracks: convertItems(items.Items),
		Offset: offset,
	}
	if items.Next != "" && len(items.Items) > 0 {
		page.HasNext = true
		page.NextOffset = offset + len(items.Items)
	}

	c.logger.Debug("fetched playlist page",
		zap.String("playlist_id", playlistID),
		zap.Int("offset", offset),
		zap.Int("items", len(items.Items)),
		zap.Int("playable", len(page.Tracks)))
	return page, nil
}

// Playlist looks up playlist metadata using the app token.
func (c *Client) Playlist(ctx context.Context, playlistID string) (*Playlist, error) {
	p, err := c.app.GetPlaylist(ctx, spotify.ID(playlistID))
	if err != nil {
		return nil, wrap("fetching playlist", err)
	}
	return convertPlaylist(p.SimplePlaylist), nil
}

// UserPlaylists lists the playlists of the user owning accessToken (first page).
func (c *Client) UserPlaylists(ctx context.Context, accessToken string) ([]Playlist, error) {
	page, err := c.user(accessToken).CurrentUsersPlaylists(ctx, spotify.Limit(PageSize))
	if err != nil {
		return nil, wrap("fetching user playlists", err)
	}

	playlists := make([]Playlist, 0, len(page.Playlists))
	for _, p := range page.Playlists {
		playlists = append(playlists, *convertPlaylist(p))
	}
	return playlists, nil
}

func convertPlaylist(p spotify.SimplePlaylist) *Playlist {
	out := &Playlist{ID: p.ID.String(), Name: p.Name}
	if len(p.Images) > 0 {
		out.ImageURL = p.Images[0].URL
	}
	return out
}

// ParsePlaylistID extracts a playlist ID from an open.spotify.com URL,
// a spotify:playlist: URI or a bare ID.
func ParsePlaylistID(s string) (string, error) {
	s = strings.TrimSpace(s)

	var id string
	switch {
	case strings.HasPrefix(s, "spotify:playlist:"):
		id = strings.TrimPrefix(s, "spotify:playlist:")
	case strings.Contains(s, "open.spotify.com"):
		u, err := url.Parse(s)
		if err != nil {
			return "", ErrInvalidPlaylist
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		for i := 0; i+1 < len(parts); i++ {
			if parts[i] == "playlist" {
				id = parts[i+1]
				break
			}
		}
	default:
		id = s
	}

	if !playlistIDPattern.MatchString(id) {
		return "", ErrInvalidPlaylist
	}
	return id, nil
}

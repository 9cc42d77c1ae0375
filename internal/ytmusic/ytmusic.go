// Package ytmusic finds YouTube Music links for tracks through a ytmusicapi HTTP proxy.
package ytmusic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const watchURL = "https://www.youtube.com/watch?v="

// ErrNoResults is returned when a search matches no songs.
var ErrNoResults = errors.New("no youtube music results")

// Track is the best song match for a search.
type Track struct {
	VideoID string
	Title   string
	Artist  string
	Album   string
}

// WatchURL returns the YouTube link for the track.
func (t Track) WatchURL() string {
	return watchURL + url.QueryEscape(t.VideoID)
}

type searchResult struct {
	VideoID string `json:"videoId"`
	Title   string `json:"title"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album *struct {
		Name string `json:"name"`
	} `json:"album"`
}

// Client talks to the proxy.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for the proxy at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchTrack returns the top song result for title and artist.
//
// Calls GET /api/search?q={title} {artist}&filter=songs on the proxy.
func (c *Client) SearchTrack(ctx context.Context, title, artist string) (*Track, error) {
	params := url.Values{}
	params.Set("q", strings.TrimSpace(title+" "+artist))
	params.Set("filter", "songs")

	var results []searchResult
	if err := c.get(ctx, "/api/search?"+params.Encode(), &results); err != nil {
		return nil, err
	}

	for _, r := range results {
		if r.VideoID == "" {
			continue
		}
		track := &Track{VideoID: r.VideoID, Title: r.Title}
		if len(r.Artists) > 0 {
			track.Artist = r.Artists[0].Name
		}
		if r.Album != nil {
			track.Album = r.Album.Name
		}
		return track, nil
	}
	return nil, fmt.Errorf("%w: %q by %q", ErrNoResults, title, artist)
}

// StreamURL returns the watch link of the top match for title and artist.
func (c *Client) StreamURL(ctx context.Context, title, artist string) (string, error) {
	track, err := c.SearchTrack(ctx, title, artist)
	if err != nil {
		return "", err
	}
	c.logger.Debug("youtube music match",
		zap.String("title", title), zap.String("artist", artist), zap.String("video_id", track.VideoID))
	return track.WatchURL(), nil
}

func (c *Client) get(ctx context.Context, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("youtube music request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Detail != "" {
			return fmt.Errorf("youtube music API error (status %d): %s", resp.StatusCode, errResp.Detail)
		}
		return fmt.Errorf("youtube music API error: status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

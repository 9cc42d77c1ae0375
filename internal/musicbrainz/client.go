package musicbrainz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const searchLimit = 25

// Sentinel errors.
var (
	// ErrRateLimited is returned when MusicBrainz rejects a request with 503.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// Client is a MusicBrainz search client. Every request waits on a shared limiter.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
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

// NewClient creates a new MusicBrainz API client from the provided configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg = cfg.withDefaults()
	c := &Client{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(cfg.Interval), 1),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ReleaseDates returns every release date MusicBrainz reports for a song.
// When album is known it searches releases by album and artist, otherwise recordings
// by track and artist. Dates are returned as given ("YYYY", "YYYY-MM" or "YYYY-MM-DD").
// Exactly one request is made.
func (c *Client) ReleaseDates(ctx context.Context, track, artist, album string) ([]string, error) {
	if album != "" {
		return c.releaseDates(ctx, album, artist)
	}
	return c.recordingDates(ctx, track, artist)
}

func (c *Client) releaseDates(ctx context.Context, album, artist string) ([]string, error) {
	query := fmt.Sprintf(`release:"%s" AND artist:"%s"`, escape(album), escape(artist))
	body, err := c.search(ctx, "release", query)
	if err != nil {
		return nil, fmt.Errorf("searching releases: %w", err)
	}

	var resp releaseSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing release search response: %w", err)
	}

	dates := make([]string, 0, len(resp.Releases))
	for _, r := range resp.Releases {
		if r.Date != "" {
			dates = append(dates, r.Date)
		}
	}
	return dates, nil
}

func (c *Client) recordingDates(ctx context.Context, track, artist string) ([]string, error) {
	query := fmt.Sprintf(`recording:"%s" AND artist:"%s"`, escape(track), escape(artist))
	body, err := c.search(ctx, "recording", query)
	if err != nil {
		return nil, fmt.Errorf("searching recordings: %w", err)
	}

	var resp recordingSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing recording search response: %w", err)
	}

	var dates []string
	for _, rec := range resp.Recordings {
		if rec.FirstReleaseDate != "" {
			dates = append(dates, rec.FirstReleaseDate)
		}
		for _, r := range rec.Releases {
			if r.Date != "" {
				dates = append(dates, r.Date)
			}
		}
	}
	if dates == nil {
		dates = []string{}
	}
	return dates, nil
}

// search performs a single rate-limited search request against an entity endpoint.
func (c *Client) search(ctx context.Context, entity, query string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	params := url.Values{
		"query": {query},
		"fmt":   {"json"},
		"limit": {fmt.Sprint(searchLimit)},
	}
	reqURL := c.baseURL + entity + "/?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusServiceUnavailable:
		return nil, ErrRateLimited
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	c.logger.Debug("musicbrainz search", zap.String("entity", entity), zap.String("query", query))
	return body, nil
}

// escape quotes a value for use inside a Lucene phrase.
func escape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

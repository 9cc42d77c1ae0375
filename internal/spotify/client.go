// Package spotify provides a wrapper around the Spotify Web API.
//
// Catalog reads (playlist items, playlist lookup) use the app token source given to New.
// Player calls and user-library reads take the session's access token per call.
package spotify

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/zmb3/spotify/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Client wraps the Spotify API client with convenience methods.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	app        *spotify.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root (used by tests).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" && !strings.HasSuffix(url, "/") {
			url += "/"
		}
		c.baseURL = url
	}
}

// WithHTTPClient sets the underlying HTTP client. Its Timeout and Transport are kept;
// authorization is layered on top.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a new Spotify client wrapper. appToken authorizes catalog reads.
func New(appToken oauth2.TokenSource, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.app = c.api(appToken)
	return c
}

// api builds a zmb3 client authorized by src.
func (c *Client) api(src oauth2.TokenSource) *spotify.Client {
	hc := &http.Client{
		Timeout: c.httpClient.Timeout,
		Transport: &oauth2.Transport{
			Source: src,
			Base:   c.httpClient.Transport,
		},
	}
	var opts []spotify.ClientOption
	if c.baseURL != "" {
		opts = append(opts, spotify.WithBaseURL(c.baseURL))
	}
	return spotify.New(hc, opts...)
}

// user builds a client authorized with a session access token.
func (c *Client) user(accessToken string) *spotify.Client {
	return c.api(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}))
}

// StatusError is an error response returned by the Web API.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("spotify: %d %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the Web API.
func IsUnauthorized(err error) bool {
	return HasStatus(err, http.StatusUnauthorized)
}

// HasStatus reports whether err is a Web API error with the given status.
func HasStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == status
}

// convertError turns zmb3 API errors into *StatusError; other errors pass through.
func convertError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		return &StatusError{Status: apiErr.Status, Message: apiErr.Message}
	}
	var apiErrPtr *spotify.Error
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &StatusError{Status: apiErrPtr.Status, Message: apiErrPtr.Message}
	}
	return err
}

// wrap annotates err with the operation, preserving *StatusError for errors.As.
func wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, convertError(err))
}

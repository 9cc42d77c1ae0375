// Package auth manages Spotify OAuth2 credentials: per-session user tokens kept in the
// session store, and the process-wide app token used for catalog reads.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/justestif/go-songamizer/internal/store"
)

// defaultTokenLifetime is assumed when the token endpoint omits expires_in.
const defaultTokenLifetime = time.Hour

var (
	// ErrMissingCredentials is returned when the client ID or secret is not configured.
	ErrMissingCredentials = errors.New("missing Spotify client ID or secret")

	// ErrStateMismatch is returned when the OAuth state parameter doesn't match.
	ErrStateMismatch = errors.New("OAuth state mismatch")

	// ErrNoCredential is returned when a session holds neither an access nor a refresh token.
	ErrNoCredential = errors.New("session has no credentials")

	// ErrRefreshFailed is returned when the token endpoint rejects a refresh.
	ErrRefreshFailed = errors.New("token refresh failed")
)

// Scopes requested during authorization.
var Scopes = []string{
	spotifyauth.ScopeUserReadPrivate,
	spotifyauth.ScopeUserReadEmail,
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistReadCollaborative,
	spotifyauth.ScopeUserModifyPlaybackState,
	spotifyauth.ScopeUserReadPlaybackState,
}

// Config holds the OAuth client settings.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string // defaults to the Spotify accounts endpoint
	TokenURL     string // defaults to the Spotify accounts endpoint
}

func (c Config) oauth2Config() *oauth2.Config {
	authURL, tokenURL := c.AuthURL, c.TokenURL
	if authURL == "" {
		authURL = spotifyauth.AuthURL
	}
	if tokenURL == "" {
		tokenURL = spotifyauth.TokenURL
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURL,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   authURL,
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// Credentials hands out valid access tokens for sessions, refreshing them as needed.
// It is the only writer of a session's token fields.
type Credentials struct {
	sessions   store.Sessions
	oauth      *oauth2.Config
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time
	refreshes  singleflight.Group
}

// Option configures Credentials and AppTokenSource.
type Option func(*options)

type options struct {
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time
}

// WithHTTPClient sets the client used to reach the token endpoint.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New creates Credentials backed by the given session repository.
// Returns ErrMissingCredentials if the client ID or secret is empty.
func New(cfg Config, sessions store.Sessions, opts ...Option) (*Credentials, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}
	o := buildOptions(opts)
	return &Credentials{
		sessions:   sessions,
		oauth:      cfg.oauth2Config(),
		httpClient: o.httpClient,
		logger:     o.logger,
		now:        o.now,
	}, nil
}

// AuthURL returns the provider authorization URL for the given state.
func (c *Credentials) AuthURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for the session's first token pair and
// activates the session.
func (c *Credentials) Exchange(ctx context.Context, sessionID, code string) error {
	token, err := c.oauth.Exchange(c.tokenContext(ctx), code)
	if err != nil {
		return fmt.Errorf("exchanging code for token: %w", err)
	}
	if err := c.sessions.Activate(ctx, sessionID, token.AccessToken, token.RefreshToken, c.expiry(token)); err != nil {
		return fmt.Errorf("activating session: %w", err)
	}
	c.logger.Info("session authorized", zap.String("session_id", sessionID))
	return nil
}

// AccessToken returns a usable access token for the session, refreshing first when the
// stored token is missing or expired.
func (c *Credentials) AccessToken(ctx context.Context, sessionID string) (string, error) {
	session, err := c.sessions.Get(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("loading session: %w", err)
	}
	if session.AccessToken == "" && session.RefreshToken == "" {
		return "", ErrNoCredential
	}
	if session.AccessToken != "" && c.now().Before(session.TokenExpiresAt) {
		return session.AccessToken, nil
	}
	return c.refreshShared(ctx, sessionID, false)
}

// Refresh forces a token refresh for the session and returns the new access token.
// Concurrent refreshes of the same session share one upstream call. On failure the
// stored credentials are left untouched.
func (c *Credentials) Refresh(ctx context.Context, sessionID string) (string, error) {
	return c.refreshShared(ctx, sessionID, true)
}

// refreshShared runs one refresh per session at a time. Unless force is set, a token
// stored by a flight that finished after the caller's read is returned as is.
func (c *Credentials) refreshShared(ctx context.Context, sessionID string, force bool) (string, error) {
	v, err, _ := c.refreshes.Do(sessionID, func() (any, error) {
		return c.refresh(ctx, sessionID, force)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Credentials) refresh(ctx context.Context, sessionID string, force bool) (string, error) {
	session, err := c.sessions.Get(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("loading session: %w", err)
	}
	if !force && session.AccessToken != "" && c.now().Before(session.TokenExpiresAt) {
		return session.AccessToken, nil
	}
	if session.RefreshToken == "" {
		return "", ErrNoCredential
	}

	src := c.oauth.TokenSource(c.tokenContext(ctx), &oauth2.Token{RefreshToken: session.RefreshToken})
	token, err := src.Token()
	if err != nil {
		c.logger.Warn("token refresh rejected", zap.String("session_id", sessionID), zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	// Spotify only sometimes rotates the refresh token.
	refreshToken := token.RefreshToken
	if refreshToken == "" {
		refreshToken = session.RefreshToken
	}
	expiresAt := c.expiry(token)
	if err := c.sessions.UpdateToken(ctx, sessionID, token.AccessToken, refreshToken, expiresAt); err != nil {
		return "", fmt.Errorf("storing refreshed token: %w", err)
	}

	c.logger.Debug("token refreshed", zap.String("session_id", sessionID), zap.Time("expires_at", expiresAt))
	return token.AccessToken, nil
}

func (c *Credentials) tokenContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func (c *Credentials) expiry(token *oauth2.Token) time.Time {
	if token.Expiry.IsZero() {
		return c.now().Add(defaultTokenLifetime)
	}
	return token.Expiry
}

// GenerateState creates a random state string for OAuth.
func GenerateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// expiryDelta renews the app token slightly before it actually expires.
const expiryDelta = 10 * time.Second

// AppTokenSource issues client-credentials tokens for reads that need no user
// (playlist items, playlist lookup). The token is cached process-wide until it
// expires or is invalidated.
type AppTokenSource struct {
	cfg        *clientcredentials.Config
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time

	mu    sync.Mutex
	token *oauth2.Token
}

// NewAppTokenSource creates an AppTokenSource.
// Returns ErrMissingCredentials if the client ID or secret is empty.
func NewAppTokenSource(cfg Config, opts ...Option) (*AppTokenSource, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}
	o := buildOptions(opts)
	endpoint := cfg.oauth2Config().Endpoint
	return &AppTokenSource{
		cfg: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     endpoint.TokenURL,
			AuthStyle:    endpoint.AuthStyle,
		},
		httpClient: o.httpClient,
		logger:     o.logger,
		now:        o.now,
	}, nil
}

// Token implements oauth2.TokenSource.
func (s *AppTokenSource) Token() (*oauth2.Token, error) {
	return s.TokenContext(context.Background())
}

// TokenContext returns the cached app token, fetching a new one when none is cached
// or the cached one has expired.
func (s *AppTokenSource) TokenContext(ctx context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != nil && s.now().Add(expiryDelta).Before(s.token.Expiry) {
		return s.token, nil
	}

	token, err := s.cfg.Token(context.WithValue(ctx, oauth2.HTTPClient, s.httpClient))
	if err != nil {
		return nil, fmt.Errorf("requesting app token: %w", err)
	}
	if token.Expiry.IsZero() {
		token.Expiry = s.now().Add(defaultTokenLifetime)
	}
	s.token = token
	s.logger.Debug("app token issued", zap.Time("expires_at", token.Expiry))
	return token, nil
}

// Invalidate drops the cached token so the next call fetches a new one.
func (s *AppTokenSource) Invalidate() {
	s.mu.Lock()
	s.token = nil
	s.mu.Unlock()
}

var _ oauth2.TokenSource = (*AppTokenSource)(nil)

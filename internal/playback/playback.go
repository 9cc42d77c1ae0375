// Package playback starts a track on the player's Spotify device.
package playback

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/justestif/go-songamizer/internal/spotify"
)

// Sentinel errors.
var (
	// ErrNoActiveDevice is returned when the user has no Spotify device available.
	ErrNoActiveDevice = errors.New("no active Spotify device: open the Spotify app and start or pause something")

	// ErrPremiumRequired is returned when playback control needs a Premium account.
	ErrPremiumRequired = errors.New("Spotify Premium is required for playback")

	// ErrAuthExpired is returned when the user's authorization could not be renewed.
	ErrAuthExpired = errors.New("Spotify authorization expired")

	// ErrProviderError is returned for any other Spotify failure.
	ErrProviderError = errors.New("Spotify request failed")
)

// Player is the subset of the Spotify client used for playback.
type Player interface {
	Devices(ctx context.Context, accessToken string) ([]spotify.Device, error)
	Play(ctx context.Context, accessToken, deviceID, trackID string) error
}

// Tokens provides session access tokens.
type Tokens interface {
	AccessToken(ctx context.Context, sessionID string) (string, error)
	Refresh(ctx context.Context, sessionID string) (string, error)
}

// Dispatcher sends play commands on behalf of a session.
type Dispatcher struct {
	player Player
	tokens Tokens
	logger *zap.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// New creates a Dispatcher.
func New(player Player, tokens Tokens, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		player: player,
		tokens: tokens,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// withRetry runs fn with *token. On a 401 the session token is refreshed once and fn
// retried once; a second 401 or a failed refresh yields ErrAuthExpired.
func (d *Dispatcher) withRetry(ctx context.Context, sessionID string, token *string, fn func(token string) error) error {
	err := fn(*token)
	if err == nil || !spotify.IsUnauthorized(err) {
		return err
	}

	refreshed, rerr := d.tokens.Refresh(ctx, sessionID)
	if rerr != nil {
		d.logger.Warn("refresh after 401 failed", zap.String("session_id", sessionID), zap.Error(rerr))
		return fmt.Errorf("%w: %w", ErrAuthExpired, rerr)
	}
	*token = refreshed

	err = fn(*token)
	if spotify.IsUnauthorized(err) {
		return ErrAuthExpired
	}
	return err
}

// Play starts trackID on the session's active device, or the first available one.
func (d *Dispatcher) Play(ctx context.Context, sessionID, trackID string) error {
	token, err := d.tokens.AccessToken(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("getting access token: %w", err)
	}
	var devices []spotify.Device
	err = d.withRetry(ctx, sessionID, &token, func(token string) error {
		var err error
		devices, err = d.player.Devices(ctx, token)
		return err
	})
	if err != nil {
		return classify(err)
	}

	device, ok := pickDevice(devices)
	if !ok {
		return ErrNoActiveDevice
	}

	err = d.withRetry(ctx, sessionID, &token, func(token string) error {
		return d.player.Play(ctx, token, device.ID, trackID)
	})
	if err != nil {
		return classify(err)
	}

	d.logger.Info("playback started",
		zap.String("session_id", sessionID),
		zap.String("track_id", trackID),
		zap.String("device", device.Name))
	return nil
}

// pickDevice prefers the active device and falls back to the first one.
func pickDevice(devices []spotify.Device) (spotify.Device, bool) {
	if len(devices) == 0 {
		return spotify.Device{}, false
	}
	for _, dev := range devices {
		if dev.Active {
			return dev, true
		}
	}
	return devices[0], true
}

// classify maps provider errors to this package's sentinels.
func classify(err error) error {
	if errors.Is(err, ErrAuthExpired) {
		return err
	}
	var se *spotify.StatusError
	if errors.As(err, &se) {
		if se.Status == http.StatusForbidden && strings.Contains(strings.ToLower(se.Message), "premium") {
			return ErrPremiumRequired
		}
		return fmt.Errorf("%w: %s", ErrProviderError, se.Message)
	}
	return fmt.Errorf("%w: %w", ErrProviderError, err)
}

package game

import (
	"errors"
	"fmt"

	"github.com/justestif/go-songamizer/internal/auth"
	"github.com/justestif/go-songamizer/internal/playback"
	"github.com/justestif/go-songamizer/internal/spotify"
	"github.com/justestif/go-songamizer/internal/store"
)

// Common errors.
var (
	// ErrSessionNotFound is returned when a session ID does not exist.
	ErrSessionNotFound = fmt.Errorf("session %w", store.ErrNotFound)

	// ErrSessionInactive is returned when a session has not completed authorization.
	ErrSessionInactive = errors.New("session is not authorized yet")

	// ErrNoTracksAvailable is returned when a playlist has no playable tracks.
	ErrNoTracksAvailable = errors.New("no tracks available in this playlist")

	// ErrPlaylistNotFound is returned when removing a playlist that is not in the catalog.
	ErrPlaylistNotFound = errors.New("playlist not found")

	// ErrInvalidIcon is returned when a playlist icon is not one of ValidIcons.
	ErrInvalidIcon = errors.New("invalid playlist icon")

	// ErrPlaylistLookup is returned when playlist details cannot be fetched from Spotify.
	ErrPlaylistLookup = errors.New("could not look up playlist")
)

// Kind groups errors by how a caller should react.
type Kind int

const (
	// KindInternal is an unexpected failure.
	KindInternal Kind = iota
	// KindEnvironment needs the player to act (open Spotify, upgrade to Premium).
	KindEnvironment
	// KindTransient is a provider failure worth retrying later.
	KindTransient
	// KindSession means the session is missing or must authorize again.
	KindSession
	// KindNoTracks means the playlist has nothing to play.
	KindNoTracks
	// KindInvalid is a malformed request.
	KindInvalid
	// KindNotFound is a missing catalog entry.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindEnvironment:
		return "environment"
	case KindTransient:
		return "transient"
	case KindSession:
		return "session"
	case KindNoTracks:
		return "no_tracks"
	case KindInvalid:
		return "invalid"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Classify returns the kind of err and a message suitable for players.
func Classify(err error) (Kind, string) {
	switch {
	case err == nil:
		return KindInternal, ""
	case errors.Is(err, playback.ErrNoActiveDevice):
		return KindEnvironment, "No active device found. Open the Spotify app and start or pause something, then try again."
	case errors.Is(err, playback.ErrPremiumRequired):
		return KindEnvironment, "A Spotify Premium account is required to play tracks."
	case errors.Is(err, playback.ErrAuthExpired),
		errors.Is(err, auth.ErrRefreshFailed),
		errors.Is(err, auth.ErrNoCredential):
		return KindSession, "Your Spotify authorization expired. Please connect again."
	case errors.Is(err, auth.ErrStateMismatch):
		return KindSession, "Authorization could not be verified. Please connect again."
	case errors.Is(err, ErrSessionInactive):
		return KindSession, "This session has not been connected to Spotify yet."
	case errors.Is(err, ErrNoTracksAvailable):
		return KindNoTracks, "No tracks available in this playlist."
	case errors.Is(err, ErrPlaylistNotFound):
		return KindNotFound, "Playlist not found."
	case errors.Is(err, store.ErrNotFound):
		return KindSession, "Session not found. Please connect again."
	case errors.Is(err, spotify.ErrInvalidPlaylist):
		return KindInvalid, "Invalid Spotify playlist URL."
	case errors.Is(err, ErrInvalidIcon):
		return KindInvalid, "Invalid playlist icon."
	case errors.Is(err, playback.ErrProviderError), errors.Is(err, ErrPlaylistLookup):
		return KindTransient, "Spotify request failed. Please try again."
	default:
		return KindInternal, "Something went wrong."
	}
}

package web

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/justestif/go-songamizer/internal/game"
)

// Handlers contains HTTP handlers for the game API.
type Handlers struct {
	game          Game
	catalog       Catalog
	frontendURL   string
	secureCookies bool
	logger        *zap.Logger
}

// sessionResponse summarizes a session.
type sessionResponse struct {
	SessionID         string    `json:"session_id"`
	CurrentPlaylistID string    `json:"playlist_id,omitempty"`
	TracksPlayed      []string  `json:"tracks_played"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
}

type addPlaylistRequest struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// Health reports liveness (GET /healthz).
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Authorize starts a session and returns the Spotify authorization URL (GET /api/spotify/authorize).
func (h *Handlers) Authorize(w http.ResponseWriter, r *http.Request) {
	session, authURL, err := h.game.StartSession(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.setCookie(w, stateCookieName, session.OAuthState, stateTTL)
	h.setCookie(w, sessionCookieName, session.ID, sessionTTL)
	writeJSON(w, http.StatusOK, map[string]string{
		"auth_url":   authURL,
		"session_id": session.ID,
	})
}

// Callback completes the OAuth flow and redirects to the frontend (GET /callback).
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.clearCookie(w, stateCookieName)

	if errMsg := q.Get("error"); errMsg != "" {
		h.logger.Info("authorization declined", zap.String("error", errMsg))
		h.redirect(w, r, "error", "auth_failed")
		return
	}

	// Browsers that kept the state cookie must return the same state.
	if c, err := r.Cookie(stateCookieName); err == nil && c.Value != q.Get("state") {
		h.logger.Warn("authorization state does not match cookie")
		h.redirect(w, r, "error", "auth_failed")
		return
	}

	id, err := h.game.Activate(r.Context(), q.Get("state"), q.Get("code"))
	if err != nil {
		h.logger.Warn("authorization failed", zap.Error(err))
		kind, _ := game.Classify(err)
		if kind == game.KindSession {
			h.redirect(w, r, "error", "auth_failed")
		} else {
			h.redirect(w, r, "error", "token_failed")
		}
		return
	}

	h.setCookie(w, sessionCookieName, id, sessionTTL)
	h.redirect(w, r, "session_id", id)
}

// Session returns the session summary (GET /api/spotify/session).
func (h *Handlers) Session(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	session, err := h.game.Session(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	played := session.PlayedTrackIDs
	if played == nil {
		played = []string{}
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		SessionID:         session.ID,
		CurrentPlaylistID: session.CurrentPlaylistID,
		TracksPlayed:      played,
		IsActive:          session.IsActive,
		CreatedAt:         session.CreatedAt,
	})
}

// DeleteSession removes the session and its history (DELETE /api/session).
func (h *Handlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	if err := h.game.DeleteSession(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	h.clearCookie(w, sessionCookieName)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Session deleted"})
}

// ListPlaylists returns the playlist catalog (GET /api/playlists).
func (h *Handlers) ListPlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := h.catalog.List(r.Context(), sessionID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"playlists": playlists})
}

// AddPlaylist adds a curated playlist (POST /api/playlists).
func (h *Handlers) AddPlaylist(w http.ResponseWriter, r *http.Request) {
	var req addPlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Playlist URL required", Kind: game.KindInvalid.String()})
		return
	}

	playlist, err := h.catalog.Add(r.Context(), req.URL, req.Name, req.Icon)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "playlist": playlist})
}

// RemovePlaylist removes a curated playlist (DELETE /api/playlists/{id}).
func (h *Handlers) RemovePlaylist(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// History returns the session's played tracks, newest first (GET /api/tracks).
func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	played, err := h.game.History(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, played)
}

// PlayTrack starts the next track of a playlist (POST /api/play-track/{playlistID}).
func (h *Handlers) PlayTrack(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	selection, err := h.game.NextTrack(r.Context(), id, chi.URLParam(r, "playlistID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"track": selection})
}

// Reset clears the session's played tracks and history (POST /api/reset).
func (h *Handlers) Reset(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	if err := h.game.Reset(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Game session reset"})
}

// ============================================================================
// Helper Functions
// ============================================================================

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (h *Handlers) requireSession(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := sessionID(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Session ID required", Kind: game.KindInvalid.String()})
		return "", false
	}
	return id, true
}

func (h *Handlers) redirect(w http.ResponseWriter, r *http.Request, key, value string) {
	target := h.frontendURL
	if target == "" {
		target = "/"
	}
	u, err := url.Parse(target)
	if err != nil {
		u = &url.URL{Path: "/"}
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	http.Redirect(w, r, u.String(), http.StatusFound)
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	kind, msg := game.Classify(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err), zap.String("kind", kind.String()))
	} else {
		h.logger.Info("request rejected", zap.Error(err), zap.String("kind", kind.String()))
	}
	writeJSON(w, status, errorResponse{Error: msg, Kind: kind.String()})
}

func statusFor(kind game.Kind) int {
	switch kind {
	case game.KindEnvironment:
		return http.StatusConflict
	case game.KindTransient:
		return http.StatusBadGateway
	case game.KindSession:
		return http.StatusUnauthorized
	case game.KindNoTracks, game.KindNotFound:
		return http.StatusNotFound
	case game.KindInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

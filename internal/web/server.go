// Package web exposes the game over a JSON HTTP API.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/justestif/go-songamizer/internal/game"
	"github.com/justestif/go-songamizer/internal/store"
)

// DefaultAddr is the default server address.
const DefaultAddr = ":8080"

// Game is the session and rotation engine used by the handlers.
type Game interface {
	StartSession(ctx context.Context) (*store.Session, string, error)
	Activate(ctx context.Context, state, code string) (string, error)
	Session(ctx context.Context, sessionID string) (*store.Session, error)
	NextTrack(ctx context.Context, sessionID, playlistID string) (*game.Selection, error)
	History(ctx context.Context, sessionID string) ([]store.PlayedTrack, error)
	Reset(ctx context.Context, sessionID string) error
	DeleteSession(ctx context.Context, sessionID string) error
}

// Catalog lists and edits the playlists offered to players.
type Catalog interface {
	List(ctx context.Context, sessionID string) ([]game.CatalogEntry, error)
	Add(ctx context.Context, urlOrID, name, icon string) (*store.CuratedPlaylist, error)
	Remove(ctx context.Context, playlistID string) error
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr           string
	FrontendURL    string   // players are redirected here after authorization
	AllowedOrigins []string // CORS origins; "*" allows any
	SecureCookies  bool
	Logger         *zap.Logger
}

// Server is the HTTP server for the game API.
type Server struct {
	router   chi.Router
	server   *http.Server
	handlers *Handlers
	logger   *zap.Logger
	origins  []string
}

// NewServer creates a new web server.
func NewServer(cfg ServerConfig, g Game, catalog Catalog) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := chi.NewRouter()
	s := &Server{
		router: router,
		handlers: &Handlers{
			game:          g,
			catalog:       catalog,
			frontendURL:   cfg.FrontendURL,
			secureCookies: cfg.SecureCookies,
			logger:        logger,
		},
		logger:  logger,
		origins: cfg.AllowedOrigins,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// setupMiddleware configures middleware for the router.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors(s.origins))
	s.router.Use(middleware.Compress(5))
}

// setupRoutes configures routes for the application.
func (s *Server) setupRoutes() {
	h := s.handlers

	s.router.Get("/healthz", h.Health)
	s.router.Get("/callback", h.Callback)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/spotify/authorize", h.Authorize)
		r.Get("/spotify/session", h.Session)
		r.Delete("/session", h.DeleteSession)

		r.Get("/playlists", h.ListPlaylists)
		r.Post("/playlists", h.AddPlaylist)
		r.Delete("/playlists/{id}", h.RemovePlaylist)

		r.Get("/tracks", h.History)
		r.Get("/play-track/{playlistID}", h.PlayTrack)
		r.Post("/play-track/{playlistID}", h.PlayTrack)
		r.Post("/reset", h.Reset)
	})
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting server", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

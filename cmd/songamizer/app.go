package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/justestif/go-songamizer/internal/auth"
	"github.com/justestif/go-songamizer/internal/cache"
	"github.com/justestif/go-songamizer/internal/config"
	"github.com/justestif/go-songamizer/internal/db"
	"github.com/justestif/go-songamizer/internal/game"
	"github.com/justestif/go-songamizer/internal/mongostore"
	"github.com/justestif/go-songamizer/internal/musicbrainz"
	"github.com/justestif/go-songamizer/internal/playback"
	"github.com/justestif/go-songamizer/internal/spotify"
	"github.com/justestif/go-songamizer/internal/store"
	"github.com/justestif/go-songamizer/internal/tracks"
	"github.com/justestif/go-songamizer/internal/web"
	"github.com/justestif/go-songamizer/internal/years"
	"github.com/justestif/go-songamizer/internal/ytmusic"
)

// backend is an opened store with its optional sweeper and cleanup.
type backend struct {
	store   store.Store
	sweeper store.Sweeper // nil when the backend expires entries itself
	close   func()
}

// openStore connects the configured store driver and, when REDIS_URL is set,
// replaces the playlist track cache with Redis.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*backend, error) {
	var b backend

	switch cfg.Store.Driver {
	case config.DriverPostgres:
		database, err := db.New(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		b = backend{store: database.Store(), sweeper: database, close: database.Close}
	case config.DriverMongo:
		database, err := mongostore.New(ctx, cfg.Store.MongoURI, cfg.Store.MongoDatabase)
		if err != nil {
			return nil, err
		}
		b = backend{store: database.Store(), close: func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = database.Close(ctx)
		}}
	default:
		mem := store.NewMemory()
		b = backend{store: mem.Store(), sweeper: mem, close: func() {}}
	}
	logger.Info("store opened", zap.String("driver", cfg.Store.Driver))

	if cfg.Store.RedisURL != "" {
		rdb, err := cache.Connect(ctx, cfg.Store.RedisURL)
		if err != nil {
			b.close()
			return nil, err
		}
		b.store.Playlists = cache.New(rdb, cfg.PlaylistCacheTTL)
		closeStore := b.close
		b.close = func() {
			_ = rdb.Close()
			closeStore()
		}
		logger.Info("using redis playlist cache")
	}
	return &b, nil
}

// app is the assembled service graph.
type app struct {
	backend *backend
	engine  *game.Engine
	catalog *game.Catalog
	server  *web.Server
}

func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	b, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.HTTPClientTimeout}
	authCfg := auth.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RedirectURL:  cfg.Spotify.RedirectURL,
		AuthURL:      cfg.Spotify.AuthURL,
		TokenURL:     cfg.Spotify.TokenURL,
	}
	authOpts := []auth.Option{auth.WithHTTPClient(httpClient), auth.WithLogger(logger.Named("auth"))}

	credentials, err := auth.New(authCfg, b.store.Sessions, authOpts...)
	if err != nil {
		b.close()
		return nil, err
	}
	appToken, err := auth.NewAppTokenSource(authCfg, authOpts...)
	if err != nil {
		b.close()
		return nil, err
	}

	spotifyOpts := []spotify.Option{spotify.WithHTTPClient(httpClient), spotify.WithLogger(logger.Named("spotify"))}
	if cfg.Spotify.APIURL != "" {
		spotifyOpts = append(spotifyOpts, spotify.WithBaseURL(cfg.Spotify.APIURL))
	}
	provider := spotify.New(appToken, spotifyOpts...)

	mb := musicbrainz.NewClient(musicbrainz.Config{
		BaseURL:   cfg.MusicBrainz.URL,
		UserAgent: cfg.MusicBrainz.UserAgent,
		Interval:  cfg.MusicBrainz.Interval,
	}, musicbrainz.WithHTTPClient(httpClient), musicbrainz.WithLogger(logger.Named("musicbrainz")))

	trackService := tracks.New(provider, appToken, b.store.Playlists,
		tracks.WithCacheTTL(cfg.PlaylistCacheTTL), tracks.WithLogger(logger.Named("tracks")))
	resolver := years.NewResolver(mb, b.store.Years,
		years.WithCacheTTL(cfg.YearCacheTTL), years.WithLogger(logger.Named("years")))
	dispatcher := playback.New(provider, credentials, playback.WithLogger(logger.Named("playback")))

	gameOpts := []game.Option{game.WithHistoryTTL(cfg.HistoryTTL), game.WithLogger(logger.Named("game"))}
	if cfg.YTMusicURL != "" {
		yt := ytmusic.New(cfg.YTMusicURL, ytmusic.WithHTTPClient(httpClient), ytmusic.WithLogger(logger.Named("ytmusic")))
		gameOpts = append(gameOpts, game.WithStreamFinder(yt))
	}
	engine := game.New(b.store, trackService, resolver, dispatcher, credentials, gameOpts...)
	catalog := game.NewCatalog(b.store.Curated, provider, credentials, logger.Named("catalog"))

	server := web.NewServer(web.ServerConfig{
		Addr:           cfg.HTTPAddr,
		FrontendURL:    cfg.FrontendURL,
		AllowedOrigins: cfg.AllowedOrigins(),
		Logger:         logger.Named("http"),
	}, engine, catalog)

	return &app{backend: b, engine: engine, catalog: catalog, server: server}, nil
}

// sweep deletes expired entries every interval until ctx is canceled.
func sweep(ctx context.Context, sweeper store.Sweeper, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := sweeper.DeleteExpired(ctx)
			if err != nil {
				logger.Warn("sweeping expired entries", zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.Info("swept expired entries", zap.Int64("removed", removed))
			}
		}
	}
}

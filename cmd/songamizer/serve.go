package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/justestif/go-songamizer/internal/config"
	"github.com/justestif/go-songamizer/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.backend.close()

	curated, err := cfg.Curated()
	if err != nil {
		return err
	}
	if err := a.catalog.Seed(ctx, curated); err != nil {
		logger.Warn("seeding curated playlists", zap.Error(err))
	}

	if a.backend.sweeper != nil {
		go sweep(ctx, a.backend.sweeper, cfg.SweepInterval, logger.Named("sweeper"))
	}

	return a.server.Run(ctx)
}

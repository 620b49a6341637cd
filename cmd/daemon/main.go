// Command daemon runs the hackhub discovery daemon: it supervises provider
// event streams, merges and persists results, and serves the HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/hackhub/hackhub/internal/api"
	"github.com/hackhub/hackhub/internal/auth"
	"github.com/hackhub/hackhub/internal/config"
	"github.com/hackhub/hackhub/internal/favorites"
	"github.com/hackhub/hackhub/internal/ingest"
	hublog "github.com/hackhub/hackhub/internal/log"
	"github.com/hackhub/hackhub/internal/snapshot"
	"github.com/hackhub/hackhub/internal/stream"
	"github.com/hackhub/hackhub/internal/telemetry"
)

var (
	version   = "v1.0.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Auto-load ${HACKHUB_DATA}/config.yaml when no explicit path is given.
	effectivePath := strings.TrimSpace(*configPath)
	if effectivePath == "" {
		dataDir := strings.TrimSpace(config.ParseString("HACKHUB_DATA", "/var/lib/hackhub"))
		autoPath := filepath.Join(dataDir, "config.yaml")
		if _, err := os.Stat(autoPath); err == nil {
			effectivePath = autoPath
		}
	}

	cfg, err := config.Load(effectivePath)
	if err != nil {
		hublog.Configure(hublog.Config{Level: "info", Service: "hackhub", Version: version})
		fatalLogger := hublog.WithComponent("daemon")
		fatalLogger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", effectivePath).
			Msg("failed to load configuration")
	}

	hublog.Configure(hublog.Config{
		Level:   cfg.LogLevel,
		Service: "hackhub",
		Version: version,
	})
	logger := hublog.WithComponent("daemon")

	if effectivePath != "" {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "file").
			Str("path", effectivePath).
			Msg("loaded configuration from file")
	} else {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "env+defaults").
			Msg("loaded configuration from environment and defaults")
	}

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		logger.Fatal().Err(err).
			Str("event", "startup.data_dir_failed").
			Str("path", cfg.DataDir).
			Msg("failed to create data directory")
	}

	tracer, err := telemetry.NewProvider(ctx, telemetry.Config{
		ServiceName:    cfg.TracingService,
		ServiceVersion: version,
		ExporterType:   cfg.TracingExporter,
		Endpoint:       cfg.TracingEndpoint,
		SamplingRate:   1.0,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("tracing initialization failed, continuing without it")
	}

	snapshots, err := snapshot.Open(ctx, cfg.SnapshotBackend, cfg.DataDir, cfg.RedisAddr)
	if err != nil {
		logger.Fatal().Err(err).
			Str("event", "startup.snapshot_failed").
			Str("backend", cfg.SnapshotBackend).
			Msg("failed to open snapshot store")
	}

	favs, err := favorites.Open(cfg.FavoritesDB)
	if err != nil {
		logger.Fatal().Err(err).
			Str("event", "startup.favorites_failed").
			Str("path", cfg.FavoritesDB).
			Msg("failed to open favorites database")
	}

	streamer := stream.New(cfg.BackendURL,
		stream.WithConnectRate(rate.NewLimiter(rate.Limit(cfg.ConnectRPS), 1)),
	)

	server := api.New(ctx, cfg, api.Deps{
		Supervisor: ingest.NewSupervisor(streamer, snapshots),
		Runs:       ingest.NewRegistry(),
		Snapshots:  snapshots,
		Favorites:  favs,
		AuthClient: auth.NewClient(cfg.BackendURL),
		Sessions:   auth.NewSessionStore(cfg.SessionTTL),
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info().
		Str("event", "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str("addr", cfg.ListenAddr).
		Str(hublog.FieldBaseURL, cfg.BackendURL).
		Msg("starting hackhub daemon")

	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		logger.Error().Err(err).Msg("server failed")
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown error")
	}
	if err := favs.Close(); err != nil {
		logger.Error().Err(err).Msg("favorites close error")
	}
	if err := snapshots.Close(); err != nil {
		logger.Error().Err(err).Msg("snapshot store close error")
	}
	if tracer != nil {
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("tracer shutdown error")
		}
	}

	logger.Info().Msg("daemon stopped")
}

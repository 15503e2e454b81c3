package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/voxlate/internal/capture"
	"github.com/zhouzirui/voxlate/internal/config"
	"github.com/zhouzirui/voxlate/internal/handler"
	"github.com/zhouzirui/voxlate/internal/handler/events"
	"github.com/zhouzirui/voxlate/internal/logging"
	"github.com/zhouzirui/voxlate/internal/service/recording"
	sessionstore "github.com/zhouzirui/voxlate/internal/service/session"
	"github.com/zhouzirui/voxlate/internal/service/transcribe"
	"github.com/zhouzirui/voxlate/internal/telemetry"
)

const serviceName = "voxlate-app"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	closeLog, err := logging.Setup(cfg.Log, serviceName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up logging")
	}
	defer closeLog()
	if envErr != nil {
		log.Warn().Err(envErr).Msg("no .env file, using process environment only")
	}

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry, serviceName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up telemetry")
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			log.Error().Err(err).Msg("telemetry shutdown")
		}
	}()

	store, err := openStore(ctx, cfg.App)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open session store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("session store close")
		}
	}()

	controller := capture.NewController(capture.NewExecFactory(capture.ExecOptions{
		Command: cfg.App.CaptureCommand,
		Dir:     cfg.App.CaptureDir,
	}), nil, nil)

	client := transcribe.NewClient(transcribe.Options{
		BaseURL:       cfg.App.BackendURL,
		UploadTimeout: cfg.App.UploadTimeout,
		HealthTimeout: cfg.App.HealthTimeout,
	})

	broadcaster := events.NewBroadcaster()
	defer broadcaster.Close()

	manager, err := recording.NewManager(ctx, recording.Options{
		Capture:       controller,
		Client:        client,
		Store:         store,
		Notifier:      broadcaster,
		DefaultTarget: cfg.App.DefaultTarget,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create session manager")
	}
	defer func() {
		if err := manager.Close(); err != nil {
			log.Error().Err(err).Msg("session manager close")
		}
	}()

	if err := manager.Bootstrap(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to restore active session")
	}
	go manager.MonitorHealth(ctx, cfg.App.HealthInterval)

	srv := &http.Server{
		Addr:              cfg.App.Addr,
		Handler:           handler.NewAppRouter(manager, broadcaster),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	// streaming subscribers end when their channel closes
	srv.RegisterOnShutdown(broadcaster.Close)

	log.Info().
		Str("addr", cfg.App.Addr).
		Str("backend", cfg.App.BackendURL).
		Str("target", string(cfg.App.DefaultTarget)).
		Msg("voxlate app listening")
	if err := runServer(ctx, srv); err != nil {
		log.Error().Err(err).Msg("server error")
	}
}

func openStore(ctx context.Context, cfg config.AppConfig) (sessionstore.Store, error) {
	if cfg.Ephemeral {
		log.Info().Str("component", "store").Msg("using in-memory session store")
		return sessionstore.NewMemoryStore(), nil
	}

	path := cfg.DBPath
	if path == "" {
		path = sessionstore.DefaultDBPath()
	}
	store, err := sessionstore.OpenSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	log.Info().Str("component", "store").Str("path", path).Msg("session store opened")
	return store, nil
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

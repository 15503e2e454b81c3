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

	"github.com/zhouzirui/voxlate/internal/config"
	"github.com/zhouzirui/voxlate/internal/handler"
	"github.com/zhouzirui/voxlate/internal/logging"
	"github.com/zhouzirui/voxlate/internal/service/ai"
	"github.com/zhouzirui/voxlate/internal/service/speech"
	"github.com/zhouzirui/voxlate/internal/service/translate"
	"github.com/zhouzirui/voxlate/internal/telemetry"
)

const serviceName = "voxlate-server"

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

	if !cfg.Speech.Enabled {
		log.Fatal().Msg("speech credentials missing: set SPEECH_APP_ID and SPEECH_ACCESS_TOKEN")
	}
	speechService := speech.NewService(cfg.Speech.Model(), speech.ASROptions{})

	chatModel, err := cfg.AI.NewChatModel(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create chat model")
	}
	translator, err := ai.NewTranslator(ctx, chatModel)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build translator")
	}

	pipeline := translate.NewPipeline(speechService, translator)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler.NewBackendRouter(pipeline, cfg.App.DefaultTarget),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().
		Str("addr", cfg.Server.Addr).
		Str("model", cfg.AI.Model).
		Str("default_target", string(cfg.App.DefaultTarget)).
		Msg("voxlate backend listening")
	if err := runServer(ctx, srv); err != nil {
		log.Error().Err(err).Msg("server error")
	}
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

// Command transcribetester exercises the speech path by hand: straight against
// Volcengine ASR, end to end through a running backend, or from a fresh
// microphone capture.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/voxlate/internal/capture"
	"github.com/zhouzirui/voxlate/internal/config"
	"github.com/zhouzirui/voxlate/internal/model/session"
	"github.com/zhouzirui/voxlate/internal/service/speech"
	"github.com/zhouzirui/voxlate/internal/service/transcribe"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"})

	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("no .env file, using process environment only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	mode := flag.String("mode", "", "asr, backend, record or health")
	audioPath := flag.String("audio", "", "input audio file")
	format := flag.String("format", "", "audio format for asr mode (default: file extension)")
	language := flag.String("lang", "", "ASR language hint, empty for auto-detection")
	target := flag.String("target", "", "target language for backend mode")
	backend := flag.String("backend", "", "backend base URL (default: BACKEND_URL)")
	sessionID := flag.String("session", "", "ASR session id, generated when empty")
	duration := flag.Duration("duration", 5*time.Second, "capture length for record mode")
	timeout := flag.Duration("timeout", 45*time.Second, "request timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch *mode {
	case "asr":
		runASR(ctx, cfg, *sessionID, *audioPath, *format, *language)
	case "backend":
		runBackend(ctx, cfg, *backend, *audioPath, *target)
	case "record":
		runRecord(ctx, cfg, *backend, *target, *duration)
	case "health":
		runHealth(ctx, cfg, *backend)
	default:
		flag.Usage()
		log.Fatal().Msg("choose -mode=asr, -mode=backend, -mode=record or -mode=health")
	}
}

func runASR(ctx context.Context, cfg *config.Config, sessionID, audioPath, format, language string) {
	if !cfg.Speech.Enabled {
		log.Fatal().Msg("speech credentials missing: set SPEECH_APP_ID and SPEECH_ACCESS_TOKEN")
	}
	if audioPath == "" {
		log.Fatal().Msg("asr mode needs -audio")
	}

	audio, err := os.ReadFile(audioPath)
	if err != nil {
		log.Fatal().Err(err).Msg("read audio file")
	}

	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(audioPath)), ".")
		if format == "" {
			format = "wav"
		}
	}
	if language == "" {
		language = cfg.Speech.ASRLanguage
	}
	if sessionID == "" {
		sessionID = fmt.Sprintf("manual-%d", time.Now().UnixNano())
	}

	log.Info().Str("session", sessionID).Str("format", format).Str("language", language).Msg("starting ASR")

	svc := speech.NewService(cfg.Speech.Model(), speech.ASROptions{})
	resp, err := svc.Transcribe(ctx, sessionID, audio, format, language)
	if err != nil {
		log.Fatal().Err(err).Msg("ASR failed")
	}

	log.Info().
		Str("text", resp.Text).
		Str("language", resp.Language).
		Int64("duration_ms", resp.Duration).
		Msg("ASR succeeded")
}

func runBackend(ctx context.Context, cfg *config.Config, backend, audioPath, rawTarget string) {
	if audioPath == "" {
		log.Fatal().Msg("backend mode needs -audio")
	}
	abs, err := filepath.Abs(audioPath)
	if err != nil {
		log.Fatal().Err(err).Msg("resolve audio path")
	}
	upload(ctx, cfg, backend, "file://"+abs, rawTarget)
}

func runRecord(ctx context.Context, cfg *config.Config, backend, rawTarget string, duration time.Duration) {
	controller := capture.NewController(capture.NewExecFactory(capture.ExecOptions{
		Command: cfg.App.CaptureCommand,
		Dir:     cfg.App.CaptureDir,
	}), nil, nil)

	if _, err := controller.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("start capture")
	}
	log.Info().Dur("duration", duration).Msg("recording, speak now")

	select {
	case <-time.After(duration):
	case <-ctx.Done():
	}

	handle, err := controller.Stop(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("stop capture")
	}
	log.Info().Str("file", handle.Path()).Msg("capture finished")
	upload(ctx, cfg, backend, handle.URI, rawTarget)
}

func upload(ctx context.Context, cfg *config.Config, backend, uri, rawTarget string) {
	target := cfg.App.DefaultTarget
	if rawTarget != "" {
		parsed, err := session.ParseTargetLanguage(rawTarget)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid -target")
		}
		target = parsed
	}

	client := newClient(cfg, backend)
	log.Info().Str("backend", client.BaseURL()).Str("target", string(target)).Msg("uploading")
	result, err := client.Send(ctx, uri, target)
	if err != nil {
		log.Fatal().Err(err).Msg("upload failed")
	}

	log.Info().
		Str("transcript", result.Transcript).
		Str("translation", result.Translation).
		Str("detected", result.DetectedLanguage).
		Msg("backend succeeded")
}

func runHealth(ctx context.Context, cfg *config.Config, backend string) {
	client := newClient(cfg, backend)
	online := client.HealthCheck(ctx)
	log.Info().Str("backend", client.BaseURL()).Bool("online", online).Msg("health check")
	if !online {
		os.Exit(1)
	}
}

func newClient(cfg *config.Config, backend string) *transcribe.Client {
	if backend == "" {
		backend = cfg.App.BackendURL
	}
	return transcribe.NewClient(transcribe.Options{
		BaseURL:       backend,
		UploadTimeout: cfg.App.UploadTimeout,
		HealthTimeout: cfg.App.HealthTimeout,
	})
}

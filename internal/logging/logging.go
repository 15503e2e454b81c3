// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/zhouzirui/voxlate/internal/config"
)

// Setup points the global logger at stderr and, when cfg.File is set, a
// rotating JSON file. The returned func closes the file.
func Setup(cfg config.LogConfig, service string) (func() error, error) {
	zerolog.SetGlobalLevel(cfg.Level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}
	closer := func() error { return nil }

	var out io.Writer = console
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return closer, err
		}
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10, // MB
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}
		out = zerolog.MultiLevelWriter(console, file)
		closer = file.Close
	}

	log.Logger = zerolog.New(out).With().Timestamp().Str("service", service).Logger()
	return closer, nil
}

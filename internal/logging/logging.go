// Package logging configures the global zerolog logger.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Jay160412/jay-website/internal/config"
)

// Setup configures the global logger from cfg. Unknown levels fall back to info.
func Setup(cfg config.LogConfig, role string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logger := zerolog.New(os.Stderr)
	if cfg.Pretty {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	log.Logger = logger.With().Timestamp().Str("role", role).Logger()

	// Requests without a trace logger still log through the global one
	zerolog.DefaultContextLogger = &log.Logger
}

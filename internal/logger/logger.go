// Package logger configures the process-wide zerolog instance. Components
// derive their own child loggers from the one returned here via
// log.With().Str("component", ...).
package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Setup builds the root logger. format "pretty" selects the human-readable
// console writer for development; anything else emits JSON lines. An
// unparseable level falls back to info rather than failing startup.
func Setup(level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var log zerolog.Logger
	if format == "pretty" {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		log = zerolog.New(os.Stdout)
	}

	return log.With().Timestamp().Caller().Logger()
}

// Package logging configures zerolog for the host tools and adapts it to the
// dust driver's Logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/itohio/dustnode/pkg/dust"
)

// Setup configures the global logger. Level names follow zerolog
// ("debug", "info", "warn", ...). Console selects human-readable output.
func Setup(level string, console bool) error {
	return SetupWriter(os.Stderr, level, console)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(w io.Writer, level string, console bool) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if console {
		w = zerolog.ConsoleWriter{Out: w}
	}
	log.Logger = zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	return nil
}

// Dust adapts l to the driver's Logger.
func Dust(l zerolog.Logger) dust.Logger {
	return dustLogger{l: l.With().Str("component", "dust").Logger()}
}

type dustLogger struct {
	l zerolog.Logger
}

func (d dustLogger) Infof(format string, args ...any) {
	d.l.Info().Msgf(format, args...)
}

func (d dustLogger) Warnf(format string, args ...any) {
	d.l.Warn().Msgf(format, args...)
}

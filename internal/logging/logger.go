package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// VerboseEnv forces debug logging when set to "1".
const VerboseEnv = "SESSIONCTL_VERBOSE"

// New builds the CLI logger: a console writer on w at the given level.
// An unknown level falls back to info; verbose (or SESSIONCTL_VERBOSE=1) forces debug.
func New(w io.Writer, level string, verbose bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if verbose || os.Getenv(VerboseEnv) == "1" {
		lvl = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

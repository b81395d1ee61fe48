// README: zerolog construction; console output in dev, JSON otherwise.
package infra

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a logger tagged with component. env "dev" selects the
// human-readable console writer.
func NewLogger(env, level, component string) zerolog.Logger {
	return newLogger(os.Stdout, env, level, component)
}

func newLogger(out io.Writer, env, level, component string) zerolog.Logger {
	if strings.EqualFold(env, "dev") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Str("component", component).Logger()
}

// Package logging sets up the zerolog logger shared by every command.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

type Config struct {
	// Level is a zerolog level name; empty means info.
	Level string
	// Format is json or console; empty means console.
	Format string
	// Command is attached to every line.
	Command string
	// Out defaults to stderr so that archives written to stdout stay clean.
	Out io.Writer
}

// Configure returns a logger tagged with a fresh run_id.
func Configure(cfg Config) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		var err error
		level, err = zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("log level: %w", err)
		}
	}

	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}
	switch strings.ToLower(cfg.Format) {
	case FormatJSON:
	case "", FormatConsole:
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", cfg.Format)
	}

	ctx := zerolog.New(out).Level(level).With().
		Timestamp().
		Str("run_id", uuid.NewString())
	if cfg.Command != "" {
		ctx = ctx.Str("command", cfg.Command)
	}
	return ctx.Logger(), nil
}

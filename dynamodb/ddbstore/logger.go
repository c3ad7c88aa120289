package ddbstore

import (
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

type badgerLogger struct {
	log zerolog.Logger
}

// NewLogger routes BadgerDB's log output to a zerolog logger.
func NewLogger(log zerolog.Logger) badger.Logger {
	return badgerLogger{log: log.With().Str("component", "badger").Logger()}
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(strings.TrimSuffix(format, "\n"), args...)
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.log.Warn().Msgf(strings.TrimSuffix(format, "\n"), args...)
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.log.Debug().Msgf(strings.TrimSuffix(format, "\n"), args...)
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.log.Trace().Msgf(strings.TrimSuffix(format, "\n"), args...)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pdiddy/docsmith/pkg/types"
)

// Setup installs the global logger. Text output uses a console writer;
// json output writes one object per line. A nil w means os.Stderr.
func Setup(cfg types.LogConfig, w io.Writer) error {
	if w == nil {
		w = os.Stderr
	}

	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return errors.Wrapf(err, "parsing log level %q", cfg.Level)
		}
		level = parsed
	}
	zerolog.SetGlobalLevel(level)

	switch cfg.Format {
	case types.LogJSON:
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
	case types.LogText, "":
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
			With().Timestamp().Logger()
	default:
		return errors.Newf("unsupported log format %q: use text or json", cfg.Format)
	}
	return nil
}

// Component creates a new logger with a component identifier.
// Uses the "cmp" key for consistency with zerolog conventions.
func Component(name string) zerolog.Logger {
	return log.With().Str("cmp", name).Logger()
}

// Package obslog builds the simulator's structured operational logger. It
// reports process-level events (config warnings, sink failures, run
// lifecycle) and is a distinct concern from the per-peer debug NDJSON
// stream, which records protocol-level transitions instead.
package obslog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// EnvLevel is the environment variable controlling log verbosity, in the
// same spirit as the corpus's own peer-level log-level variable.
const EnvLevel = "BULLYSIM_LOG_LEVEL"

// New builds a zerolog.Logger writing to w (defaulting to os.Stderr via a
// console writer when w is nil), honoring EnvLevel for verbosity.
func New(w io.Writer) zerolog.Logger {
	if w == nil {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	}
	level := zerolog.InfoLevel
	switch os.Getenv(EnvLevel) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	case "trace":
		level = zerolog.TraceLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// SetVerbose raises log to DebugLevel when verbose is true, unless EnvLevel
// already requested a level at least as verbose. This backs the
// configuration file's "logging.verbose" flag (SPEC_FULL.md section 6A),
// which is resolved after New because it is read from the config file New
// itself has no access to.
func SetVerbose(log zerolog.Logger, verbose bool) zerolog.Logger {
	if verbose && log.GetLevel() > zerolog.DebugLevel {
		return log.Level(zerolog.DebugLevel)
	}
	return log
}

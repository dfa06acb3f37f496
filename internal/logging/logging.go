// Package logging builds the journal's zerolog logger and the event helpers
// shared by the CLI, importer and statistics service.
package logging

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string
	Console    bool
	NoColor    bool
	File       bool
	FilePath   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
}

// NewLoggerWithConfig builds the journal logger. Console output goes to
// stderr so command output on stdout stays parseable.
func NewLoggerWithConfig(cfg LogConfig) zerolog.Logger {
	return newLogger(cfg, os.Stderr)
}

func newLogger(cfg LogConfig, console io.Writer) zerolog.Logger {
	var writers []io.Writer

	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        console,
			NoColor:    cfg.NoColor,
			TimeFormat: time.Kitchen,
		})
	}

	if cfg.File && cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err == nil {
			writers = append(writers, &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   true,
			})
		}
	}

	var out io.Writer = io.Discard
	if len(writers) > 0 {
		out = zerolog.MultiLevelWriter(writers...)
	}
	return zerolog.New(out).Level(ParseLevel(cfg.Level)).With().Timestamp().Logger()
}

// ParseLevel maps a config level name to a zerolog level, defaulting to info.
// "warning" is accepted for warn.
func ParseLevel(level string) zerolog.Level {
	name := strings.ToLower(strings.TrimSpace(level))
	if name == "warning" {
		name = "warn"
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil || name == "" || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

type ctxKey struct{}

// WithLogger attaches logger to ctx for code that only receives a context.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger attached by WithLogger, or a no-op logger.
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
		return logger
	}
	return zerolog.Nop()
}

// WithAccount scopes the logger to a journal account.
func WithAccount(logger zerolog.Logger, userID, accountID, mode string) zerolog.Logger {
	return logger.With().
		Str("user_id", userID).
		Str("account_id", accountID).
		Str("mode", mode).
		Logger()
}

// WithOperation adds an operation name to the logger context.
func WithOperation(logger zerolog.Logger, operation string) zerolog.Logger {
	return logger.With().Str("operation", operation).Logger()
}

// LogTradeSaved logs a persisted trade.
func LogTradeSaved(logger zerolog.Logger, id, market, outcome string, profit float64) {
	logger.Info().
		Str("event", "trade_saved").
		Str("trade_id", id).
		Str("market", market).
		Str("outcome", outcome).
		Float64("profit", profit).
		Msg("Trade saved")
}

// LogImport logs the result of a CSV import.
func LogImport(logger zerolog.Logger, source string, imported, skipped int, duration time.Duration) {
	event := logger.Info()
	if skipped > 0 {
		event = logger.Warn()
	}
	event.
		Str("event", "import").
		Str("source", source).
		Int("imported", imported).
		Int("skipped", skipped).
		Dur("duration", duration).
		Msg("Import finished")
}

// LogStatsComputed logs a statistics computation.
func LogStatsComputed(logger zerolog.Logger, kind string, trades int, duration time.Duration) {
	logger.Debug().
		Str("event", "stats").
		Str("kind", kind).
		Int("trades", trades).
		Dur("duration", duration).
		Msg("Statistics computed")
}

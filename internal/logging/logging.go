// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

// DefaultLevel is the log level used when not configured.
const DefaultLevel = slog.LevelInfo

// Rotation limits for the log file.
const (
	maxSizeMB  = 10
	maxBackups = 3
	maxAgeDays = 28
)

// Options selects level, console format and an optional log file.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text or json, for the console handler
	File   string // rotated JSON log; empty disables
}

// ParseLevel converts a string log level to slog.Level.
// Supported values: "debug", "info", "warn", "error" (case-insensitive).
// Returns (DefaultLevel, false) if the string is not recognized.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return DefaultLevel, false
	}
}

// New builds a logger writing to console. When opts.File is set, records
// fan out to a size-rotated JSON file as well. The returned closer releases
// the file and is never nil.
func New(console io.Writer, opts Options) (*slog.Logger, io.Closer, error) {
	level, ok := ParseLevel(opts.Level)
	if !ok {
		return nil, nil, fmt.Errorf("unknown log level %q", opts.Level)
	}
	hopts := &slog.HandlerOptions{Level: level}

	var consoleHandler slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", "text":
		consoleHandler = slog.NewTextHandler(console, hopts)
	case "json":
		consoleHandler = slog.NewJSONHandler(console, hopts)
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	if opts.File == "" {
		return slog.New(consoleHandler), io.NopCloser(nil), nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	rotator := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
	}
	handler := slogmulti.Fanout(
		consoleHandler,
		slog.NewJSONHandler(rotator, hopts),
	)
	return slog.New(handler), rotator, nil
}

// Setup installs a logger on stderr as the slog default.
func Setup(opts Options) (io.Closer, error) {
	logger, closer, err := New(os.Stderr, opts)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return closer, nil
}

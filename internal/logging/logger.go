// Package logging builds the slog loggers used by the CLI and the LLM client.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// DebugLogPath is the fixed path of the --debug log, relative to the working directory.
const DebugLogPath = "q4s-debug.log"

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	// Path is the log file. "stdout" and "stderr" name the standard streams.
	// Ignored when Writer is set.
	Path   string
	Writer io.Writer
}

// New constructs a slog logger using the provided options.
// The returned close function releases the log file, if one was opened.
func New(opts Options) (*slog.Logger, func() error, error) {
	writer, closeFn, err := openWriter(opts)
	if err != nil {
		return nil, nil, err
	}

	level := parseLevel(opts.Level)
	handlerOpts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}

	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "json", "":
		handler = slog.NewJSONHandler(writer, handlerOpts)
	case "text":
		handler = slog.NewTextHandler(writer, handlerOpts)
	default:
		_ = closeFn()
		return nil, nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	return slog.New(handler), closeFn, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ForDebug returns the logger for the --debug flag: JSON at debug level into
// DebugLogPath when enabled, a discarding logger otherwise.
func ForDebug(enabled bool) (*slog.Logger, func() error, error) {
	if !enabled {
		return Discard(), func() error { return nil }, nil
	}
	logger, closeFn, err := New(Options{Level: "debug", Format: "json", Path: DebugLogPath})
	if err != nil {
		return nil, nil, fmt.Errorf("creating debug log: %w", err)
	}
	logger.Debug("debug log started", "path", DebugLogPath)
	return logger, closeFn, nil
}

func openWriter(opts Options) (io.Writer, func() error, error) {
	noop := func() error { return nil }
	if opts.Writer != nil {
		return opts.Writer, noop, nil
	}

	switch path := strings.TrimSpace(opts.Path); path {
	case "", "stderr":
		return os.Stderr, noop, nil
	case "stdout":
		return os.Stdout, noop, nil
	default:
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file %q: %w", path, err)
		}
		return f, f.Close, nil
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

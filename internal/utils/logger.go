package utils

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger returns a slog.Logger configured for the desired verbosity and
// format, writing to stdout.
func NewLogger(level string, json bool) *slog.Logger {
	return slog.New(newHandler(os.Stdout, level, json))
}

// RotationConfig sizes a rotating log file sink.
type RotationConfig struct {
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// NewRotatingLogger returns a slog.Logger writing to a size-rotated file
// instead of stdout. Long-running detection loops use this to keep their
// own logs bounded.
func NewRotatingLogger(level string, json bool, cfg RotationConfig) *slog.Logger {
	sink := &lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	return slog.New(newHandler(sink, level, json))
}

func newHandler(w io.Writer, level string, json bool) slog.Handler {
	handlerLevel := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		handlerLevel = slog.LevelDebug
	case "warn":
		handlerLevel = slog.LevelWarn
	case "error":
		handlerLevel = slog.LevelError
	}

	if json {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: handlerLevel})
	}
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: handlerLevel})
}

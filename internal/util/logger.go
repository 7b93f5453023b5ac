// internal/util/logger.go
package util

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	logger   *slog.Logger
	loggerMu sync.Mutex
)

// ParseLevel maps a LOG_LEVEL value to a slog level. Unknown values mean info.
func ParseLevel(level string) slog.Level {
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

// NewLogger builds a JSON logger writing to w at the given level.
func NewLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: true, // Add file and line number to logs
		Level:     ParseLevel(level),
	}))
}

// InitLogger initializes the global structured logger on stdout.
func InitLogger(level string) *slog.Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	logger = NewLogger(os.Stdout, level)
	slog.SetDefault(logger) // Set as default logger for convenience
	return logger
}

// GetLogger returns the initialized global logger.
func GetLogger() *slog.Logger {
	loggerMu.Lock()
	l := logger
	loggerMu.Unlock()
	if l == nil {
		return InitLogger("info")
	}
	return l
}

// Package logger builds the process-wide structured logger shared by the
// web API, the payment bot, and the audit archiver.
package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/stars-deposit-ledger/internal/config"
)

// NewLogger returns a JSON slog logger at the configured level. An
// unrecognized level falls back to info rather than failing startup.
func NewLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
		// Source locations only at debug; the settlement path logs on
		// every payment and the extra frames are noise in production.
		AddSource: level == slog.LevelDebug,
	}

	handler := slog.NewJSONHandler(os.Stdout, opts)
	logger := slog.New(handler)

	logger.Info("Logger ready", "level", level, "app", cfg.Application.Name)

	return logger
}

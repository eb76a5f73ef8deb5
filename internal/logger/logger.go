// Package logger builds the process-wide *slog.Logger from LoggerSettings.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/natefinch/lumberjack"

	"github.com/wichananm65/storefront-backend/internal/config"
)

// New returns a console or rotating-file logger depending on settings.
func New(settings config.LoggerSettings) (*slog.Logger, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	opts := &slog.HandlerOptions{Level: parseLevel(settings.LogLevel)}

	switch settings.LogType {
	case config.LogTypeConsole:
		return slog.New(slog.NewTextHandler(os.Stdout, opts)), nil
	case config.LogTypeFile:
		return slog.New(slog.NewJSONHandler(newRotatingWriter(settings), opts)), nil
	default:
		return nil, fmt.Errorf("unsupported log type: %s", settings.LogType)
	}
}

// Discard is used by tests and by components constructed without a logger.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRotatingWriter(s config.LoggerSettings) io.Writer {
	return &lumberjack.Logger{
		Filename:   s.FilePath,
		MaxSize:    s.MaxSize,
		MaxBackups: s.MaxBackups,
		MaxAge:     s.MaxAge,
		Compress:   true,
	}
}

func parseLevel(level string) slog.Level {
	switch level {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelInfo:
		return slog.LevelInfo
	case config.LogLevelWarning:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// Log level constants
const (
	LogLevelDebug   = "debug"
	LogLevelInfo    = "info"
	LogLevelWarning = "warning"
	LogLevelError   = "error"
)

// Log type constants
const (
	LogTypeConsole = "console"
	LogTypeFile    = "file"
)

// LoggerSettings holds configuration settings for logging, including log level, type and file path
type LoggerSettings struct {
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info" validate:"required,oneof=debug info warning error"`
	LogType    string `envconfig:"LOG_TYPE" default:"console" validate:"required,oneof=console file"`
	FilePath   string `envconfig:"LOG_FILE"`
	MaxSize    int    `envconfig:"LOG_MAX_SIZE" default:"10"`
	MaxBackups int    `envconfig:"LOG_MAX_BACKUPS" default:"3"`
	MaxAge     int    `envconfig:"LOG_MAX_AGE" default:"28"`
}

// LoadLoggerSettings reads the LOG_* variables and validates them.
func LoadLoggerSettings() (LoggerSettings, error) {
	var s LoggerSettings
	if err := envconfig.Process("", &s); err != nil {
		return LoggerSettings{}, err
	}
	if err := s.Validate(); err != nil {
		return LoggerSettings{}, err
	}
	return s, nil
}

// Validate checks that all fields in LoggerSettings are valid
func (s *LoggerSettings) Validate() error {
	validate := validator.New()

	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("validation failed for LoggerSettings: %w", err)
	}

	if s.LogType == LogTypeFile {
		if s.FilePath == "" {
			return fmt.Errorf("file path is required for file logger")
		}
		if s.MaxSize < 1 || s.MaxSize > 100 {
			return fmt.Errorf("max size must be between 1 and 100 MB")
		}
		if s.MaxBackups < 1 || s.MaxBackups > 10 {
			return fmt.Errorf("max backups must be between 1 and 10")
		}
		if s.MaxAge < 1 || s.MaxAge > 365 {
			return fmt.Errorf("max age must be between 1 and 365 days")
		}
	}

	return nil
}

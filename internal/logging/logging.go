// Package logging provides structured logging for netsweep using Go's slog
// package. It supports text and JSON output, configurable levels, and helpers
// that attach the session, stage and host fields used throughout a scan.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	logDirPerm  = 0750
	logFilePerm = 0600
)

// LogLevel represents the available log levels.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// LogFormat represents the available log formats.
type LogFormat string

const (
	FormatText LogFormat = "text"
	FormatJSON LogFormat = "json"
)

// Config holds logging configuration.
type Config struct {
	Level     LogLevel  `yaml:"level" json:"level" mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format    LogFormat `yaml:"format" json:"format" mapstructure:"format" validate:"omitempty,oneof=text json"`
	Output    string    `yaml:"output" json:"output" mapstructure:"output"`
	AddSource bool      `yaml:"add_source" json:"add_source" mapstructure:"add_source"`
}

// DefaultConfig returns a default logging configuration. Logs go to stderr
// so that reports written to stdout stay clean.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Format: FormatText,
		Output: "stderr",
	}
}

// Logger wraps slog.Logger with scan-oriented helpers.
type Logger struct {
	*slog.Logger
	config Config
}

// ParseLevel maps a configured level to its slog equivalent, defaulting to info.
func ParseLevel(level LogLevel) slog.Level {
	switch strings.ToLower(string(level)) {
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

// New creates a new structured logger with the given configuration.
func New(cfg Config) (*Logger, error) {
	var writer io.Writer
	switch cfg.Output {
	case "", "stderr":
		writer = os.Stderr
	case "stdout":
		writer = os.Stdout
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.Output), logDirPerm); err != nil {
			return nil, err
		}
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePerm)
		if err != nil {
			return nil, err
		}
		writer = file
	}
	return NewWithWriter(cfg, writer), nil
}

// NewWithWriter creates a logger that writes to w regardless of cfg.Output.
func NewWithWriter(cfg Config, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	switch cfg.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
		config: cfg,
	}
}

// NewDefault creates a logger with default configuration.
func NewDefault() *Logger {
	return NewWithWriter(DefaultConfig(), os.Stderr)
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// WithFields adds structured fields to the logger.
func (l *Logger) WithFields(fields ...any) *Logger {
	return &Logger{
		Logger: l.With(fields...),
		config: l.config,
	}
}

// WithComponent adds a component field to the logger.
func (l *Logger) WithComponent(component string) *Logger {
	return l.WithFields("component", component)
}

// WithSession adds a session ID field to the logger.
func (l *Logger) WithSession(sessionID string) *Logger {
	return l.WithFields("session_id", sessionID)
}

// WithHost adds a host address field to the logger.
func (l *Logger) WithHost(addr string) *Logger {
	return l.WithFields("host", addr)
}

// WithError adds an error field to the logger.
func (l *Logger) WithError(err error) *Logger {
	return l.WithFields("error", err)
}

// InfoDiscovery logs discovery-stage information.
func (l *Logger) InfoDiscovery(msg, network string, fields ...any) {
	allFields := append([]any{"stage", "discovery", "network", network}, fields...)
	l.Info(msg, allFields...)
}

// InfoEnumeration logs enumeration-stage information for one host.
func (l *Logger) InfoEnumeration(msg, host string, fields ...any) {
	allFields := append([]any{"stage", "enumeration", "host", host}, fields...)
	l.Info(msg, allFields...)
}

// DebugProbe logs a probe outcome that did not produce a result.
func (l *Logger) DebugProbe(msg, target string, err error) {
	l.Debug(msg, "target", target, "error", err)
}

// InfoDatabase logs database-related information.
func (l *Logger) InfoDatabase(msg string, fields ...any) {
	allFields := append([]any{"component", "database"}, fields...)
	l.Info(msg, allFields...)
}

// ErrorDatabase logs database-related errors.
func (l *Logger) ErrorDatabase(msg string, err error, fields ...any) {
	allFields := append([]any{"component", "database", "error", err}, fields...)
	l.Error(msg, allFields...)
}

// Global logger instance - can be replaced for testing.
var defaultLogger = NewDefault()

// SetDefault sets the default logger instance.
func SetDefault(logger *Logger) {
	defaultLogger = logger
	slog.SetDefault(logger.Logger)
}

// Default returns the default logger instance.
func Default() *Logger {
	return defaultLogger
}

// Debug logs at debug level using the default logger.
func Debug(msg string, fields ...any) {
	defaultLogger.Debug(msg, fields...)
}

// Info logs at info level using the default logger.
func Info(msg string, fields ...any) {
	defaultLogger.Info(msg, fields...)
}

// Warn logs at warn level using the default logger.
func Warn(msg string, fields ...any) {
	defaultLogger.Warn(msg, fields...)
}

// Error logs at error level using the default logger.
func Error(msg string, fields ...any) {
	defaultLogger.Error(msg, fields...)
}

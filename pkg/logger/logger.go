// Package logger provides the leveled, structured logging used across the
// scheduling engine and its CLI/daemon front ends. The task generator's
// defaulting warnings (quantity defaults, productivity defaults) are logged
// at Warn and never escalated to an error.
package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

// Logger is the structured logging surface every component depends on.
// Fields are passed as alternating key, value pairs.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})
	// With returns a logger that prepends the given fields to every
	// subsequent call, used to tag every log line of a run with its run id.
	With(fields ...interface{}) Logger
}

// LogLevel represents different logging levels
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// String returns string representation of log level
func (ll LogLevel) String() string {
	switch ll {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// DefaultLogger implements the Logger interface
type DefaultLogger struct {
	component string
	level     LogLevel
	logger    *log.Logger
	fields    []interface{}
}

// NewDefaultLogger creates a new default logger
func NewDefaultLogger(component, levelStr string) *DefaultLogger {
	level := parseLogLevel(levelStr)

	logger := log.New(os.Stdout, "", 0) // No default prefix, we'll format ourselves

	return &DefaultLogger{
		component: component,
		level:     level,
		logger:    logger,
	}
}

// With returns a copy of the logger that always includes the given fields.
func (dl *DefaultLogger) With(fields ...interface{}) Logger {
	merged := make([]interface{}, 0, len(dl.fields)+len(fields))
	merged = append(merged, dl.fields...)
	merged = append(merged, fields...)
	return &DefaultLogger{component: dl.component, level: dl.level, logger: dl.logger, fields: merged}
}

// parseLogLevel converts string to LogLevel
func parseLogLevel(levelStr string) LogLevel {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "FATAL":
		return LevelFatal
	default:
		return LevelInfo
	}
}

// formatMessage formats log message with timestamp and structured fields
func (dl *DefaultLogger) formatMessage(level LogLevel, msg string, fields ...interface{}) string {
	timestamp := time.Now().Format("2006-01-02T15:04:05.000Z07:00")

	all := make([]interface{}, 0, len(dl.fields)+len(fields))
	all = append(all, dl.fields...)
	all = append(all, fields...)

	var fieldStr strings.Builder
	if len(all) > 0 {
		fieldStr.WriteString(" |")
		for i := 0; i < len(all); i += 2 {
			if i+1 < len(all) {
				fieldStr.WriteString(fmt.Sprintf(" %s=%v", all[i], all[i+1]))
			}
		}
	}

	return fmt.Sprintf("[%s] %s [%s] %s%s",
		timestamp, level.String(), dl.component, msg, fieldStr.String())
}

// shouldLog checks if message should be logged based on level
func (dl *DefaultLogger) shouldLog(level LogLevel) bool {
	return level >= dl.level
}

// Debug logs a debug message
func (dl *DefaultLogger) Debug(msg string, fields ...interface{}) {
	if dl.shouldLog(LevelDebug) {
		dl.logger.Println(dl.formatMessage(LevelDebug, msg, fields...))
	}
}

// Info logs an info message
func (dl *DefaultLogger) Info(msg string, fields ...interface{}) {
	if dl.shouldLog(LevelInfo) {
		dl.logger.Println(dl.formatMessage(LevelInfo, msg, fields...))
	}
}

// Warn logs a warning message
func (dl *DefaultLogger) Warn(msg string, fields ...interface{}) {
	if dl.shouldLog(LevelWarn) {
		dl.logger.Println(dl.formatMessage(LevelWarn, msg, fields...))
	}
}

// Error logs an error message
func (dl *DefaultLogger) Error(msg string, fields ...interface{}) {
	if dl.shouldLog(LevelError) {
		dl.logger.Println(dl.formatMessage(LevelError, msg, fields...))
	}
}

// Fatal logs a fatal message and exits
func (dl *DefaultLogger) Fatal(msg string, fields ...interface{}) {
	dl.logger.Println(dl.formatMessage(LevelFatal, msg, fields...))
	os.Exit(1)
}
// Package logger provides a simple logging interface for cmon components.
// It allows packages to log debug, info, warn, and error messages without
// being coupled to a specific logging implementation.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// DebugEnv enables debug output when set to any non-empty value.
const DebugEnv = "CMON_DEBUG"

// Logger defines the interface for logging operations.
// All methods accept a format string and arguments, similar to fmt.Printf.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// base is the shared logrus instance behind every env logger.
var base = newBase(os.Stderr)

// forceDebug is set by --debug and overrides the environment.
var (
	forceDebug   bool
	forceDebugMu sync.RWMutex
)

func newBase(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return l
}

// SetOutput redirects all env loggers. Used by the CLI to silence logs
// under the dashboard and by tests to capture them.
func SetOutput(w io.Writer) {
	base.SetOutput(w)
}

// SetDebug forces debug output on regardless of CMON_DEBUG.
func SetDebug(enabled bool) {
	forceDebugMu.Lock()
	defer forceDebugMu.Unlock()
	forceDebug = enabled
}

func debugEnabled() bool {
	forceDebugMu.RLock()
	defer forceDebugMu.RUnlock()
	return forceDebug || os.Getenv(DebugEnv) != ""
}

// envLogger implements Logger on top of logrus.
// Debug messages are only printed when CMON_DEBUG is set or SetDebug(true) was called.
type envLogger struct {
	entry *logrus.Entry
}

// NewEnvLogger creates a logger that respects the CMON_DEBUG environment variable.
// The prefix becomes the "component" field (e.g., "session" or "fortios").
func NewEnvLogger(prefix string) Logger {
	entry := logrus.NewEntry(base)
	if prefix != "" {
		entry = entry.WithField("component", prefix)
	}
	return &envLogger{entry: entry}
}

// With returns a child logger carrying an extra structured field.
// Non-logrus loggers are returned unchanged.
func With(l Logger, key string, value interface{}) Logger {
	if el, ok := l.(*envLogger); ok {
		return &envLogger{entry: el.entry.WithField(key, value)}
	}
	return l
}

func (l *envLogger) Debug(format string, args ...interface{}) {
	if debugEnabled() {
		l.entry.Debugf(format, args...)
	}
}

func (l *envLogger) Info(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

func (l *envLogger) Warn(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

func (l *envLogger) Error(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

// noopLogger implements Logger but discards all messages.
type noopLogger struct{}

// Noop returns a logger that discards all messages.
func Noop() Logger {
	return &noopLogger{}
}

func (l *noopLogger) Debug(format string, args ...interface{}) {}
func (l *noopLogger) Info(format string, args ...interface{})  {}
func (l *noopLogger) Warn(format string, args ...interface{})  {}
func (l *noopLogger) Error(format string, args ...interface{}) {}

// LogMessage represents a captured log message.
type LogMessage struct {
	Level   string
	Message string
}

// BufferLogger captures log messages for testing.
// Safe for concurrent use since device sessions log from their own goroutines.
type BufferLogger struct {
	mu       sync.Mutex
	Messages []LogMessage
}

// NewBufferLogger creates a logger that captures messages for inspection.
func NewBufferLogger() *BufferLogger {
	return &BufferLogger{
		Messages: make([]LogMessage, 0),
	}
}

func (l *BufferLogger) add(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = append(l.Messages, LogMessage{Level: level, Message: fmt.Sprintf(format, args...)})
}

func (l *BufferLogger) Debug(format string, args ...interface{}) { l.add("debug", format, args...) }
func (l *BufferLogger) Info(format string, args ...interface{})  { l.add("info", format, args...) }
func (l *BufferLogger) Warn(format string, args ...interface{})  { l.add("warn", format, args...) }
func (l *BufferLogger) Error(format string, args ...interface{}) { l.add("error", format, args...) }

// Snapshot returns a copy of the captured messages.
func (l *BufferLogger) Snapshot() []LogMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogMessage, len(l.Messages))
	copy(out, l.Messages)
	return out
}

// HasLevel returns true if any message was logged at the given level.
func (l *BufferLogger) HasLevel(level string) bool {
	for _, m := range l.Snapshot() {
		if m.Level == level {
			return true
		}
	}
	return false
}

// Clear removes all captured messages.
func (l *BufferLogger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = l.Messages[:0]
}

// defaultLogger is the package-level default logger.
var defaultLogger = NewEnvLogger("")

// Default returns the default logger for the package.
func Default() Logger {
	return defaultLogger
}

// SetDefault sets the default logger for the package.
func SetDefault(l Logger) {
	defaultLogger = l
}

// Package log provides structured logging for symtab.
// Lines carry level, category and key=value fields. A process-wide default
// logger backs the package functions; components that need deterministic
// diagnostics (the registry) take an instance logger at construction.
package log

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zjrosen/symtab/internal/pubsub"
)

// Level represents log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a case-insensitive level name to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Category groups related log messages.
type Category string

const (
	CatRegistry Category = "registry" // Symbol table mutations and lookups
	CatMemory   Category = "memory"   // Memory guard decisions
	CatAPI      Category = "api"      // HTTP transport
	CatConfig   Category = "config"   // Configuration loading/saving
	CatTrace    Category = "trace"    // Tracing provider lifecycle
	CatCache    Category = "cache"    // cache operations
	CatWatcher  Category = "watch"    // Config file watcher events
)

// Logger provides structured logging.
// A nil *Logger is valid and discards everything.
type Logger struct {
	mu       sync.Mutex
	writer   io.Writer
	enabled  bool
	minLevel Level
	broker   *pubsub.Broker[string] // Pub/sub for log events
	now      func() time.Time
}

var defaultLogger *Logger

// New creates an enabled logger writing to w at or above minLevel.
func New(w io.Writer, minLevel Level) *Logger {
	return &Logger{
		writer:   w,
		enabled:  true,
		minLevel: minLevel,
		broker:   pubsub.NewBroker[string](),
		now:      time.Now,
	}
}

// InitWithTeaLog uses tea.LogToFile for initialization.
func InitWithTeaLog(path string, prefix string) (func(), error) {
	f, err := tea.LogToFile(path, prefix)
	if err != nil {
		return nil, err
	}

	l := New(f, LevelDebug)
	defaultLogger = l

	return func() { _ = f.Close() }, nil
}

// InitWriter points the global logger at an arbitrary writer (stderr in the daemon).
func InitWriter(w io.Writer, minLevel Level) {
	defaultLogger = New(w, minLevel)
}

// Default returns the process-wide logger, or nil if none was initialized.
func Default() *Logger {
	return defaultLogger
}

// SetEnabled toggles logging on/off.
func SetEnabled(enabled bool) {
	defaultLogger.SetEnabled(enabled)
}

// SetMinLevel sets the minimum log level.
func SetMinLevel(level Level) {
	defaultLogger.SetMinLevel(level)
}

// Debug logs at debug level.
func Debug(cat Category, msg string, fields ...any) {
	defaultLogger.Log(LevelDebug, cat, msg, fields...)
}

// Info logs at info level.
func Info(cat Category, msg string, fields ...any) {
	defaultLogger.Log(LevelInfo, cat, msg, fields...)
}

// Warn logs at warning level.
func Warn(cat Category, msg string, fields ...any) {
	defaultLogger.Log(LevelWarn, cat, msg, fields...)
}

// Error logs at error level.
func Error(cat Category, msg string, fields ...any) {
	defaultLogger.Log(LevelError, cat, msg, fields...)
}

// ErrorErr logs an error with the error value.
func ErrorErr(cat Category, msg string, err error, fields ...any) {
	defaultLogger.ErrorErr(cat, msg, err, fields...)
}

// SetEnabled toggles this logger on/off.
func (l *Logger) SetEnabled(enabled bool) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.enabled = enabled
	l.mu.Unlock()
}

// SetMinLevel sets the minimum level this logger emits.
func (l *Logger) SetMinLevel(level Level) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.minLevel = level
	l.mu.Unlock()
}

// Debug logs at debug level.
func (l *Logger) Debug(cat Category, msg string, fields ...any) {
	l.Log(LevelDebug, cat, msg, fields...)
}

// Info logs at info level.
func (l *Logger) Info(cat Category, msg string, fields ...any) {
	l.Log(LevelInfo, cat, msg, fields...)
}

// Warn logs at warning level.
func (l *Logger) Warn(cat Category, msg string, fields ...any) {
	l.Log(LevelWarn, cat, msg, fields...)
}

// Error logs at error level.
func (l *Logger) Error(cat Category, msg string, fields ...any) {
	l.Log(LevelError, cat, msg, fields...)
}

// ErrorErr logs an error with the error value.
func (l *Logger) ErrorErr(cat Category, msg string, err error, fields ...any) {
	if err != nil {
		fields = append(fields, "error", err.Error())
	} else {
		fields = append(fields, "error", "<nil>")
	}
	l.Log(LevelError, cat, msg, fields...)
}

// Log writes one entry if the logger is enabled and level passes the filter.
func (l *Logger) Log(level Level, cat Category, msg string, fields ...any) {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled || level < l.minLevel {
		return
	}

	entry := l.format(level, cat, msg, fields)

	if l.writer != nil {
		_, _ = l.writer.Write([]byte(entry))
	}

	// Publish event to subscribers (non-blocking)
	if l.broker != nil {
		l.broker.Publish(pubsub.CreatedEvent, entry)
	}
}

// format renders: 2025-12-06T10:45:00 [ERROR] [registry] message key=value key2=value2
func (l *Logger) format(level Level, cat Category, msg string, fields []any) string {
	now := time.Now
	if l.now != nil {
		now = l.now
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s [%s] [%s] %s", now().Format("2006-01-02T15:04:05"), level, cat, msg)

	for i := 0; i+1 < len(fields); i += 2 {
		fmt.Fprintf(&sb, " %v=%v", fields[i], fields[i+1])
	}
	// Handle odd field count - append orphan key with no value
	if len(fields)%2 != 0 {
		fmt.Fprintf(&sb, " %v=<missing>", fields[len(fields)-1])
	}
	sb.WriteByte('\n')
	return sb.String()
}

// LogEvent is a pubsub event containing a log entry.
type LogEvent = pubsub.Event[string]

// Subscribe returns a channel of this logger's entries.
func (l *Logger) Subscribe(ctx context.Context) <-chan LogEvent {
	if l == nil || l.broker == nil {
		return nil
	}
	return l.broker.Subscribe(ctx)
}

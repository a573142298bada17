// Package logging provides leveled, component-tagged logging with an
// in-memory ring sink the dashboard reads from. While the terminal UI owns
// the screen nothing may write to stdout, so the default sink is the ring
// plus an optional log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Level represents log level
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a log level string
func ParseLevel(level string) Level {
	switch level {
	case "DEBUG", "debug":
		return DEBUG
	case "INFO", "info":
		return INFO
	case "WARN", "warn", "WARNING", "warning":
		return WARN
	case "ERROR", "error":
		return ERROR
	default:
		return INFO
	}
}

// Logger writes leveled, component-tagged entries to a ring and an optional
// extra writer. Safe for concurrent use; output pumps for every supervised
// process log through it.
type Logger struct {
	mu        sync.Mutex
	level     Level
	component string
	ring      *Ring
	extra     io.Writer
	logFile   *os.File
}

// NewLogger creates a logger backed by the given ring.
func NewLogger(level Level, ring *Ring) *Logger {
	return &Logger{
		level: level,
		ring:  ring,
	}
}

// NewFileLogger creates a logger that also appends to a log file at path,
// creating parent directories as needed.
func NewFileLogger(level Level, ring *Ring, path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return &Logger{
		level:   level,
		ring:    ring,
		extra:   f,
		logFile: f,
	}, nil
}

// WithComponent returns a logger tagged with the given component name.
// Supervised processes get one per name so pump lines carry their origin.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		level:     l.level,
		component: component,
		ring:      l.ring,
		extra:     l.extra,
	}
}

// SetExtra sets an additional output writer.
func (l *Logger) SetExtra(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.extra = w
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	if level < l.level {
		return
	}
	entry := Entry{
		Time:      time.Now(),
		Level:     level,
		Component: l.component,
		Message:   fmt.Sprintf(format, args...),
	}
	if l.ring != nil {
		l.ring.Push(entry)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.extra != nil {
		fmt.Fprintf(l.extra, "[%s] %s %s: %s\n",
			entry.Time.Format("2006-01-02 15:04:05"), level, entry.Component, entry.Message)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) { l.log(DEBUG, format, args...) }

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) { l.log(INFO, format, args...) }

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) { l.log(WARN, format, args...) }

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) { l.log(ERROR, format, args...) }

// Close closes the log file if one was opened.
func (l *Logger) Close() error {
	if l.logFile != nil {
		return l.logFile.Close()
	}
	return nil
}

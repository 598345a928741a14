package logger

import (
	"io"
	"os"
	"testing"

	"github.com/charmbracelet/log"
)

const (
	LogLevelInfo  = "info"
	LogLevelDebug = "debug"
	LogLevelTrace = "trace"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Logger defines a abstract logger that can be used to log to the output
type Logger interface {
	// Set the logger level
	SetLevel(level string)

	Level() string

	// Set the logger output
	SetOutput(w io.Writer)

	Output() io.Writer

	// Info logs to info level
	Info(message string, keyvals ...interface{})
	// Debug logs to debug level
	Debug(message string, keyvals ...interface{})
	// Error logs to error level
	Error(message string, keyvals ...interface{})
	// Warn logs to warn level
	Warn(message string, keyvals ...interface{})
	// Trace logs to trace level
	Trace(message string, keyvals ...interface{})

	StandardWriter() io.Writer

	IsInfo() bool
	IsDebug() bool
	IsError() bool
	IsTrace() bool
	IsWarn() bool
}

type CharmLogger struct {
	internal *log.Logger
	writer   io.Writer
	level    string
}

func NewLogger(w io.Writer, level string) Logger {
	l := log.New(w)
	lvl, _ := log.ParseLevel(level)
	l.SetLevel(lvl)

	return &CharmLogger{l, w, level}
}

// NewTestLogger creates a logger that writes debug level output to stdout,
// used when testing
func NewTestLogger(t *testing.T) Logger {
	l := log.New(os.Stdout)
	l.SetLevel(log.DebugLevel)

	return &CharmLogger{l, os.Stdout, LogLevelDebug}
}

func (l *CharmLogger) SetOutput(w io.Writer) {
	l.writer = w
	l.internal.SetOutput(w)
}

func (l *CharmLogger) Output() io.Writer {
	return l.writer
}

func (l *CharmLogger) IsInfo() bool {
	return l.level == LogLevelInfo
}

func (l *CharmLogger) IsDebug() bool {
	return l.level == LogLevelDebug
}

func (l *CharmLogger) IsError() bool {
	return l.level == LogLevelError
}

func (l *CharmLogger) IsWarn() bool {
	return l.level == LogLevelWarn
}

func (l *CharmLogger) IsTrace() bool {
	return l.level == LogLevelTrace
}

func (l *CharmLogger) SetLevel(level string) {
	l.level = level
	lvl, _ := log.ParseLevel(level)
	l.internal.SetLevel(lvl)
}

func (l *CharmLogger) Level() string {
	return l.level
}

func (l *CharmLogger) StandardWriter() io.Writer {
	return l.internal.StandardLog(log.StandardLogOptions{ForceLevel: log.DebugLevel}).Writer()
}

func (l *CharmLogger) Info(message string, keyvals ...interface{}) {
	l.internal.Info(message, keyvals...)
}

func (l *CharmLogger) Debug(message string, keyvals ...interface{}) {
	l.internal.Debug(message, keyvals...)
}

func (l *CharmLogger) Error(message string, keyvals ...interface{}) {
	l.internal.Error(message, keyvals...)
}

func (l *CharmLogger) Warn(message string, keyvals ...interface{}) {
	l.internal.Warn(message, keyvals...)
}

func (l *CharmLogger) Trace(message string, keyvals ...interface{}) {
	l.internal.Debug(message, keyvals...)
}

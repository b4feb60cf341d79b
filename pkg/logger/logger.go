// Package logger provides the structured logger shared by every flock
// component. It is a thin layer over logrus so callers keep the familiar
// WithField/WithError chaining.
package logger

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// LoggingConfig controls logger construction.
type LoggingConfig struct {
	Level      string `yaml:"level" env:"LEVEL"`
	Format     string `yaml:"format" env:"FORMAT"`
	Output     string `yaml:"output" env:"OUTPUT"`
	FilePrefix string `yaml:"file_prefix" env:"FILE_PREFIX"`
}

// Logger wraps a logrus entry pre-populated with the component field.
type Logger struct {
	*logrus.Entry
	closer io.Closer
}

// New builds a logger from configuration. Unknown levels fall back to info and
// unknown formats fall back to JSON.
func New(cfg LoggingConfig) *Logger {
	base := logrus.New()

	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	base.SetLevel(level)

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "text":
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		base.SetFormatter(&logrus.JSONFormatter{})
	}

	var closer io.Closer
	switch out := strings.TrimSpace(cfg.Output); strings.ToLower(out) {
	case "", "stdout":
		base.SetOutput(os.Stdout)
	case "stderr":
		base.SetOutput(os.Stderr)
	case "file":
		prefix := cfg.FilePrefix
		if prefix == "" {
			prefix = "flock"
		}
		if f, err := os.OpenFile(prefix+".log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640); err == nil {
			base.SetOutput(f)
			closer = f
		} else {
			base.SetOutput(os.Stderr)
			base.WithError(err).Warn("open log file; falling back to stderr")
		}
	default:
		if f, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640); err == nil {
			base.SetOutput(f)
			closer = f
		} else {
			base.SetOutput(os.Stderr)
			base.WithError(err).Warn("open log output; falling back to stderr")
		}
	}

	return &Logger{Entry: logrus.NewEntry(base), closer: closer}
}

// NewDefault returns an info-level JSON logger tagged with component.
func NewDefault(component string) *Logger {
	l := New(LoggingConfig{Level: "info", Format: "json"})
	return l.Named(component)
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *Logger {
	base := logrus.New()
	base.SetOutput(io.Discard)
	return &Logger{Entry: logrus.NewEntry(base)}
}

// Named returns a child logger whose entries carry component=name.
func (l *Logger) Named(name string) *Logger {
	if name == "" {
		return l
	}
	return &Logger{Entry: l.Entry.WithField("component", name), closer: l.closer}
}

// Ctx returns an entry carrying the trace id stored on ctx, if any.
func (l *Logger) Ctx(ctx context.Context) *logrus.Entry {
	entry := l.Entry
	if id := TraceID(ctx); id != "" {
		entry = entry.WithField("trace_id", id)
	}
	return entry
}

// Close releases the log file, if one was opened.
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

type traceKey struct{}

// NewTraceID returns a fresh request trace identifier.
func NewTraceID() string {
	return uuid.NewString()
}

// WithTraceID stores id on ctx.
func WithTraceID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, traceKey{}, id)
}

// TraceID extracts the trace id from ctx.
func TraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}

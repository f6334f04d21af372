package core

import (
	"fmt"
	"log"
	"log/slog"
	"strings"
)

// Logger is the structured logging sink used by the scheduler.
// Scheduling decisions go to Debug, thread lifecycle to Info, rejected calls
// to Warn, thread panics and system errors to Error.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value any
}

// F creates a new Field with the given key and value
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// DefaultLogger writes through the standard log package.
type DefaultLogger struct {
	prefix string
}

// NewDefaultLogger creates a new DefaultLogger
func NewDefaultLogger() *DefaultLogger {
	return &DefaultLogger{prefix: "uthread"}
}

func (l *DefaultLogger) Debug(msg string, fields ...Field) {
	l.log("DEBUG", msg, fields...)
}

func (l *DefaultLogger) Info(msg string, fields ...Field) {
	l.log("INFO", msg, fields...)
}

func (l *DefaultLogger) Warn(msg string, fields ...Field) {
	l.log("WARN", msg, fields...)
}

func (l *DefaultLogger) Error(msg string, fields ...Field) {
	l.log("ERROR", msg, fields...)
}

func (l *DefaultLogger) log(level, msg string, fields ...Field) {
	log.Println(formatLine(l.prefix, level, msg, fields))
}

// formatLine renders "[prefix] [LEVEL] msg {k: v, ...}".
func formatLine(prefix, level, msg string, fields []Field) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s] %s", prefix, level, msg)
	if len(fields) > 0 {
		b.WriteString(" {")
		for i, f := range fields {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s: %v", f.Key, f.Value)
		}
		b.WriteString("}")
	}
	return b.String()
}

// NoOpLogger discards everything. It is the scheduler default.
type NoOpLogger struct{}

// NewNoOpLogger creates a new NoOpLogger
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (l *NoOpLogger) Debug(msg string, fields ...Field) {}
func (l *NoOpLogger) Info(msg string, fields ...Field)  {}
func (l *NoOpLogger) Warn(msg string, fields ...Field)  {}
func (l *NoOpLogger) Error(msg string, fields ...Field) {}

// =============================================================================
// slog adapter
// =============================================================================

// SlogLogger forwards to a *slog.Logger, turning fields into attributes.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger wraps l. A nil l uses slog.Default().
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{logger: l}
}

func (l *SlogLogger) Debug(msg string, fields ...Field) {
	l.logger.Debug(msg, attrs(fields)...)
}

func (l *SlogLogger) Info(msg string, fields ...Field) {
	l.logger.Info(msg, attrs(fields)...)
}

func (l *SlogLogger) Warn(msg string, fields ...Field) {
	l.logger.Warn(msg, attrs(fields)...)
}

func (l *SlogLogger) Error(msg string, fields ...Field) {
	l.logger.Error(msg, attrs(fields)...)
}

func attrs(fields []Field) []any {
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		out = append(out, slog.Any(f.Key, f.Value))
	}
	return out
}

package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// StdoutLogger is a structured logger that prints JSON lines.
// It implements Logger on top of charmbracelet/log.
type StdoutLogger struct {
	l *log.Logger
}

// NewStdoutLogger creates an info-level StdoutLogger writing to stdout.
// component is optional and is attached as a persistent field.
func NewStdoutLogger(component string) *StdoutLogger {
	l, _ := NewLogger(os.Stdout, component, "info")
	return l
}

// NewLogger creates a StdoutLogger writing to w at the given level
// ("debug", "info", "warn", "error").
func NewLogger(w io.Writer, component, level string) (*StdoutLogger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", level, err)
	}

	l := log.NewWithOptions(w, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       log.JSONFormatter,
	})
	if component != "" {
		l = l.With("component", component)
	}
	return &StdoutLogger{l: l}, nil
}

func (s *StdoutLogger) Debug(msg string, fields ...Field) {
	s.l.Debug(msg, keyvals(fields)...)
}

func (s *StdoutLogger) Info(msg string, fields ...Field) {
	s.l.Info(msg, keyvals(fields)...)
}

func (s *StdoutLogger) Warn(msg string, fields ...Field) {
	s.l.Warn(msg, keyvals(fields)...)
}

func (s *StdoutLogger) Error(msg string, fields ...Field) {
	s.l.Error(msg, keyvals(fields)...)
}

func (s *StdoutLogger) With(fields ...Field) Logger {
	return &StdoutLogger{l: s.l.With(keyvals(fields)...)}
}

func keyvals(fields []Field) []any {
	if len(fields) == 0 {
		return nil
	}
	kv := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		kv = append(kv, f.Key, f.Value)
	}
	return kv
}

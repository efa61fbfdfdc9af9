package common

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// LogLevel represents logging verbosity levels
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LogLevelError:
		return "error"
	case LogLevelWarn:
		return "warn"
	case LogLevelDebug:
		return "debug"
	default:
		return "info"
	}
}

// ToSlogLevel converts LogLevel to slog.Level
func (l LogLevel) ToSlogLevel() slog.Level {
	switch l {
	case LogLevelError:
		return slog.LevelError
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelDebug:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// ParseLogLevel maps a config string onto a LogLevel. Unknown values fall back to info
// and report ok=false.
func ParseLogLevel(s string) (LogLevel, bool) {
	switch s {
	case "error":
		return LogLevelError, true
	case "warn", "warning":
		return LogLevelWarn, true
	case "info", "":
		return LogLevelInfo, true
	case "debug":
		return LogLevelDebug, true
	default:
		return LogLevelInfo, false
	}
}

// Logger wraps slog.Logger with the context helpers used across zephyrrun.
type Logger struct {
	*slog.Logger
	level  LogLevel
	masker *Masker
}

// NewLogger creates a text logger writing to stderr.
func NewLogger(level LogLevel) *Logger {
	return NewLoggerTo(os.Stderr, level, "text")
}

// NewJSONLogger creates a structured logger with JSON output on stderr.
func NewJSONLogger(level LogLevel) *Logger {
	return NewLoggerTo(os.Stderr, level, "json")
}

// NewColorLogger creates a colorized logger on stderr.
func NewColorLogger(level LogLevel) *Logger {
	return NewLoggerTo(os.Stderr, level, "color")
}

// NewLoggerTo builds a logger for the given writer and format (text, json, color).
// Every format masks credentials before they reach the writer.
func NewLoggerTo(w io.Writer, level LogLevel, format string) *Logger {
	opts := &slog.HandlerOptions{Level: level.ToSlogLevel()}
	m := NewMasker()
	var h slog.Handler
	switch format {
	case "json":
		h = NewMaskingHandler(slog.NewJSONHandler(w, opts), m)
	case "color":
		ch := NewColorHandler(w, opts)
		ch.SetMasker(m)
		h = ch
	default:
		h = NewMaskingHandler(slog.NewTextHandler(w, opts), m)
	}
	return &Logger{Logger: slog.New(h), level: level, masker: m}
}

// NewDiscardLogger returns a logger that drops everything. Used by tests.
func NewDiscardLogger() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil)), level: LogLevelError}
}

// Level returns the current log level
func (l *Logger) Level() LogLevel {
	return l.level
}

// EnableMasking toggles credential masking for this logger and every logger derived from it.
func (l *Logger) EnableMasking(enabled bool) {
	if l.masker != nil {
		l.masker.SetEnabled(enabled)
	}
}

func (l *Logger) with(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), level: l.level, masker: l.masker}
}

// WithComponent returns a logger with component context
func (l *Logger) WithComponent(component string) *Logger {
	return l.with("component", component)
}

// WithStrategy returns a logger tagged with the auth strategy being attempted
func (l *Logger) WithStrategy(name string) *Logger {
	return l.with("strategy", name)
}

// WithRequest returns a logger with HTTP request context
func (l *Logger) WithRequest(method, url string) *Logger {
	return l.with("method", method, "url", url)
}

// WithStore returns a logger with history store context
func (l *Logger) WithStore(storeType string) *Logger {
	return l.with("store", storeType)
}

// MaskingHandler filters attributes through a Masker before delegating.
type MaskingHandler struct {
	next   slog.Handler
	masker *Masker
}

func NewMaskingHandler(next slog.Handler, m *Masker) *MaskingHandler {
	return &MaskingHandler{next: next, masker: m}
}

func (h *MaskingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *MaskingHandler) Handle(ctx context.Context, r slog.Record) error {
	if !h.masker.IsEnabled() {
		return h.next.Handle(ctx, r)
	}
	nr := slog.NewRecord(r.Time, r.Level, h.masker.MaskString(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		nr.AddAttrs(h.masker.MaskAttr(a))
		return true
	})
	return h.next.Handle(ctx, nr)
}

func (h *MaskingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = h.masker.MaskAttr(a)
	}
	return &MaskingHandler{next: h.next.WithAttrs(masked), masker: h.masker}
}

func (h *MaskingHandler) WithGroup(name string) slog.Handler {
	return &MaskingHandler{next: h.next.WithGroup(name), masker: h.masker}
}

var defaultLogger = NewLogger(LogLevelInfo)

// SetDefaultLogger sets the global default logger
func SetDefaultLogger(logger *Logger) {
	if logger != nil {
		defaultLogger = logger
	}
}

// GetLogger returns the default logger
func GetLogger() *Logger {
	return defaultLogger
}

// OrDefault returns l, or the default logger when l is nil.
func OrDefault(l *Logger) *Logger {
	if l == nil {
		return defaultLogger
	}
	return l
}

package zephyrrun

import (
	"io"

	"github.com/loykin/zephyrrun/internal/common"
)

type (
	Logger   = common.Logger
	LogLevel = common.LogLevel
)

const (
	LogLevelError = common.LogLevelError
	LogLevelWarn  = common.LogLevelWarn
	LogLevelInfo  = common.LogLevelInfo
	LogLevelDebug = common.LogLevelDebug
)

func NewLogger(level LogLevel) *Logger { return common.NewLogger(level) }
func NewJSONLogger(level LogLevel) *Logger { return common.NewJSONLogger(level) }
func NewColorLogger(level LogLevel) *Logger { return common.NewColorLogger(level) }

// NewLoggerTo writes to w using format "text", "json" or "color".
func NewLoggerTo(w io.Writer, level LogLevel, format string) *Logger {
	return common.NewLoggerTo(w, level, format)
}

// SetDefaultLogger replaces the logger used when none is passed explicitly.
func SetDefaultLogger(l *Logger) { common.SetDefaultLogger(l) }

func GetLogger() *Logger { return common.GetLogger() }

// ParseLogLevel maps error, warn, info or debug onto a LogLevel.
func ParseLogLevel(s string) (LogLevel, bool) { return common.ParseLogLevel(s) }

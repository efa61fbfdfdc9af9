package common

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"
)

// ANSI color codes
const (
	Reset   = "\033[0m"
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
	White   = "\033[37m"
	Gray    = "\033[90m"
)

// ColorHandler is a human oriented slog handler. Components are rendered as a
// bracketed prefix, outcome-like values (reachable, success, challenge) are colored.
type ColorHandler struct {
	opts     *slog.HandlerOptions
	writer   io.Writer
	attrs    []slog.Attr
	groups   []string
	masker   *Masker
	useColor bool
}

// NewColorHandler creates a new color handler. Colors are only emitted to terminals.
func NewColorHandler(w io.Writer, opts *slog.HandlerOptions) *ColorHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &ColorHandler{
		opts:     opts,
		writer:   w,
		useColor: shouldUseColor(w),
		masker:   NewMasker(),
	}
}

func shouldUseColor(w io.Writer) bool {
	if runtime.GOOS == "windows" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return stat.Mode()&os.ModeCharDevice != 0
}

func (h *ColorHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

func (h *ColorHandler) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder
	if !r.Time.IsZero() {
		sb.WriteString(h.colorize(Gray, r.Time.Format(time.RFC3339)))
		sb.WriteByte(' ')
	}
	sb.WriteString(h.formatLevel(r.Level))
	sb.WriteByte(' ')

	attrs := make([]slog.Attr, 0, r.NumAttrs()+len(h.attrs))
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)
		return true
	})

	// component is lifted out of the attribute list into the prefix
	rest := attrs[:0:0]
	for _, a := range attrs {
		if a.Key == "component" {
			sb.WriteString(h.colorize(Cyan, "["+a.Value.String()+"]"))
			sb.WriteByte(' ')
			continue
		}
		rest = append(rest, a)
	}
	if len(h.groups) > 0 {
		sb.WriteString(h.colorize(Cyan, "("+strings.Join(h.groups, ".")+")"))
		sb.WriteByte(' ')
	}

	sb.WriteString(h.colorize(White, h.masker.MaskString(r.Message)))
	for _, a := range rest {
		a = h.masker.MaskAttr(a)
		sb.WriteByte(' ')
		sb.WriteString(h.colorize(Cyan, a.Key))
		sb.WriteByte('=')
		sb.WriteString(h.formatValue(a.Value))
	}
	sb.WriteByte('\n')

	_, err := io.WriteString(h.writer, sb.String())
	return err
}

func (h *ColorHandler) formatLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return h.colorize(Red, "[ERROR]")
	case level >= slog.LevelWarn:
		return h.colorize(Yellow, "[WARN ]")
	case level >= slog.LevelInfo:
		return h.colorize(Green, "[INFO ]")
	default:
		return h.colorize(Gray, "[DEBUG]")
	}
}

func (h *ColorHandler) formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		return h.colorize(outcomeColor(s), fmt.Sprintf("%q", s))
	case slog.KindInt64:
		return h.colorize(Magenta, fmt.Sprintf("%d", v.Int64()))
	case slog.KindFloat64:
		return h.colorize(Magenta, fmt.Sprintf("%g", v.Float64()))
	case slog.KindBool:
		if v.Bool() {
			return h.colorize(Green, "true")
		}
		return h.colorize(Red, "false")
	case slog.KindDuration:
		return h.colorize(Yellow, v.Duration().String())
	case slog.KindTime:
		return h.colorize(Gray, v.Time().Format(time.RFC3339))
	default:
		return h.colorize(White, v.String())
	}
}

// outcomeColor picks a color for the outcome vocabulary used by auth and probe logs.
func outcomeColor(s string) string {
	switch strings.ToLower(s) {
	case "success", "reachable", "acknowledged", "pass":
		return Green
	case "soft_failure", "auth_required", "wip", "blocked":
		return Yellow
	case "challenge_required", "invalid_credentials", "transport_error", "broken", "fail":
		return Red
	default:
		return White
	}
}

func (h *ColorHandler) colorize(color, text string) string {
	if !h.useColor {
		return text
	}
	return color + text + Reset
}

func (h *ColorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &nh
}

func (h *ColorHandler) WithGroup(name string) slog.Handler {
	nh := *h
	nh.groups = append(append([]string{}, h.groups...), name)
	return &nh
}

// SetMasker replaces the masker for this handler
func (h *ColorHandler) SetMasker(masker *Masker) { h.masker = masker }

// SetColorEnabled forces colors on or off
func (h *ColorHandler) SetColorEnabled(enabled bool) { h.useColor = enabled }

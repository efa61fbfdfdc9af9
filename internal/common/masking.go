package common

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

const maskedValue = "***MASKED***"

// SensitivePattern detects one family of secrets in free text and in attribute keys.
type SensitivePattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
	Keys        []string // attribute keys masked wholesale (case-insensitive)
}

// DefaultSensitivePatterns covers credentials that travel through the client:
// passwords, API tokens, Authorization headers, session cookies and XSRF tokens.
var DefaultSensitivePatterns = []SensitivePattern{
	{
		Name:        "password",
		Regex:       regexp.MustCompile(`(?i)("?(?:password|passwd|pwd)"?\s*[:=]\s*)"?[^"',}\]\s]+"?`),
		Replacement: `${1}"` + maskedValue + `"`,
		Keys:        []string{"password", "passwd", "pwd", "secret"},
	},
	{
		Name:        "token",
		Regex:       regexp.MustCompile(`(?i)("?(?:api[_-]?token|access[_-]?token|token)"?\s*[:=]\s*)"?[^"',}\]\s]+"?`),
		Replacement: `${1}"` + maskedValue + `"`,
		Keys:        []string{"token", "api_token", "access_token"},
	},
	{
		Name:        "xsrf",
		Regex:       regexp.MustCompile(`(?i)((?:atl_token|atlassian\.xsrf\.token|xsrf-token|x-xsrf-token)\s*[:=]\s*)[^;,\s"]+`),
		Replacement: "${1}" + maskedValue,
		Keys:        []string{"csrf", "xsrf", "csrf_token", "atl_token"},
	},
	{
		Name:        "session_cookie",
		Regex:       regexp.MustCompile(`(?i)((?:JSESSIONID|seraph\.rememberme\.cookie|cloud\.session\.token)\s*=\s*)[^;,\s"]+`),
		Replacement: "${1}" + maskedValue,
		Keys:        []string{"cookie", "cookies", "set-cookie"},
	},
	{
		Name:        "authorization",
		Regex:       regexp.MustCompile(`(Basic|Bearer)\s+[A-Za-z0-9\-._~+/]{8,}=*`),
		Replacement: "${1} " + maskedValue,
		Keys:        []string{"authorization"},
	},
}

// Masker hides credentials in log output.
type Masker struct {
	patterns []SensitivePattern
	enabled  bool
}

// NewMasker creates a masker with the default patterns
func NewMasker() *Masker {
	return &Masker{patterns: DefaultSensitivePatterns, enabled: true}
}

// SetEnabled enables or disables masking
func (m *Masker) SetEnabled(enabled bool) { m.enabled = enabled }

// IsEnabled returns whether masking is enabled
func (m *Masker) IsEnabled() bool { return m != nil && m.enabled }

// AddPattern registers an extra pattern. When Regex is nil the Keys are turned into a
// key=value matcher.
func (m *Masker) AddPattern(p SensitivePattern) {
	if p.Regex == nil && len(p.Keys) > 0 {
		p.Regex = regexp.MustCompile(fmt.Sprintf(`(?i)\b(%s)\s*[:=]\s*['"]?[^'",\s}\]]+['"]?`, strings.Join(p.Keys, "|")))
		if p.Replacement == "" {
			p.Replacement = "$1=" + maskedValue
		}
	}
	m.patterns = append(m.patterns, p)
}

// MaskString masks sensitive information in a string
func (m *Masker) MaskString(input string) string {
	if !m.IsEnabled() {
		return input
	}
	out := input
	for _, p := range m.patterns {
		if p.Regex != nil {
			out = p.Regex.ReplaceAllString(out, p.Replacement)
		}
	}
	return out
}

func (m *Masker) sensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, p := range m.patterns {
		for _, sk := range p.Keys {
			if k == sk {
				return true
			}
		}
	}
	return false
}

// MaskValue masks a value based on its key, then on its content.
func (m *Masker) MaskValue(key string, value any) any {
	if !m.IsEnabled() {
		return value
	}
	if m.sensitiveKey(key) {
		return maskedValue
	}
	switch v := value.(type) {
	case string:
		return m.MaskString(v)
	case error:
		return m.MaskString(v.Error())
	default:
		return value
	}
}

// MaskAttr applies MaskValue to a slog attribute, recursing into groups.
func (m *Masker) MaskAttr(a slog.Attr) slog.Attr {
	if !m.IsEnabled() {
		return a
	}
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		masked := make([]any, 0, len(group))
		for _, ga := range group {
			masked = append(masked, m.MaskAttr(ga))
		}
		return slog.Group(a.Key, masked...)
	}
	if m.sensitiveKey(a.Key) {
		return slog.String(a.Key, maskedValue)
	}
	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, m.MaskString(a.Value.String()))
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			return slog.String(a.Key, m.MaskString(err.Error()))
		}
	}
	return a
}

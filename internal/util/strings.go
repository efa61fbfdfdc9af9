package util

import "strings"

// TrimAndLower trims whitespace and converts to lowercase
func TrimAndLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// TrimEmptyCheck trims whitespace and checks if non-empty
func TrimEmptyCheck(s string) (string, bool) {
	trimmed := strings.TrimSpace(s)
	return trimmed, trimmed != ""
}

// TrimWithDefault trims whitespace and returns default if empty
func TrimWithDefault(s, defaultValue string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return defaultValue
	}
	return trimmed
}

// NormalizeBaseURL trims whitespace and any trailing slashes.
func NormalizeBaseURL(u string) string {
	return strings.TrimRight(strings.TrimSpace(u), "/")
}

// ContainsAnyFold reports whether s contains any of the needles, ignoring case.
func ContainsAnyFold(s string, needles ...string) bool {
	ls := strings.ToLower(s)
	for _, n := range needles {
		if n != "" && strings.Contains(ls, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

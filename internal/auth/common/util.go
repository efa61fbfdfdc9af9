package common

import "strings"

// HeaderOrDefault returns Authorization if h is empty.
func HeaderOrDefault(h string) string {
	h = strings.TrimSpace(h)
	if h == "" {
		return "Authorization"
	}
	return h
}

package zephyr

import (
	"fmt"
	"strings"
)

// StatusCode is the numeric execution status used by ZAPI.
type StatusCode int

const (
	StatusPass       StatusCode = 1
	StatusFail       StatusCode = 2
	StatusWIP        StatusCode = 3
	StatusBlocked    StatusCode = 4
	StatusUnexecuted StatusCode = -1
)

var statusNames = []struct {
	name string
	code StatusCode
}{
	{"PASS", StatusPass},
	{"FAIL", StatusFail},
	{"WIP", StatusWIP},
	{"BLOCKED", StatusBlocked},
	{"UNEXECUTED", StatusUnexecuted},
}

// StatusNames lists the accepted status names in canonical order.
func StatusNames() []string {
	out := make([]string, 0, len(statusNames))
	for _, s := range statusNames {
		out = append(out, s.name)
	}
	return out
}

// ParseStatus maps a status name (case-insensitive) to its code.
func ParseStatus(name string) (StatusCode, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	for _, s := range statusNames {
		if s.name == n {
			return s.code, nil
		}
	}
	return 0, &InvalidStatusError{Name: name}
}

func (c StatusCode) String() string {
	for _, s := range statusNames {
		if s.code == c {
			return s.name
		}
	}
	return fmt.Sprintf("STATUS(%d)", int(c))
}

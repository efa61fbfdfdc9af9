package zephyr

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyExecutionList is returned by SetStatusBulk when no ids are given.
var ErrEmptyExecutionList = errors.New("zephyr: bulk update requires at least one execution id")

// ErrEmptyExecutionID is returned by SetStatus for a blank execution id.
var ErrEmptyExecutionID = errors.New("zephyr: execution id is required")

// InvalidStatusError reports a status name outside the supported set. No remote call is made.
type InvalidStatusError struct {
	Name string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("zephyr: invalid status %q: must be one of %s", e.Name, strings.Join(StatusNames(), ", "))
}

// RemoteRejectedError is a non-2xx answer to an authenticated call.
type RemoteRejectedError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
}

func (e *RemoteRejectedError) Error() string {
	body := strings.TrimSpace(string(e.Body))
	if len(body) > 256 {
		body = body[:256] + "..."
	}
	if body == "" {
		return fmt.Sprintf("zephyr: %s %s rejected with status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("zephyr: %s %s rejected with status %d: %s", e.Method, e.Path, e.StatusCode, body)
}

// IsRemoteStatus reports whether err is a rejection carrying the given HTTP status.
func IsRemoteStatus(err error, code int) bool {
	var re *RemoteRejectedError
	return errors.As(err, &re) && re.StatusCode == code
}

package main

import (
	"os"

	"github.com/loykin/zephyrrun"
)

// ExitHandler provides a testable way to handle program termination
type ExitHandler interface {
	Exit(code int)
	LogFatalError(err error, msg string, keyvals ...any)
}

type DefaultExitHandler struct{}

func (h *DefaultExitHandler) Exit(code int) {
	os.Exit(code)
}

// LogFatalError logs through the logger configured by the command, then exits with 1.
// Auth failures exit with 2 so CI scripts can tell bad credentials from other errors.
func (h *DefaultExitHandler) LogFatalError(err error, msg string, keyvals ...any) {
	allKeyvals := append([]any{"error", err}, keyvals...)
	zephyrrun.GetLogger().WithComponent("main").Error(msg, allKeyvals...)
	code := 1
	if zephyrrun.IsAuthReason(err, zephyrrun.ReasonInvalidCredentials) || zephyrrun.IsAuthReason(err, zephyrrun.ReasonChallengeRequired) {
		code = 2
	}
	h.Exit(code)
}

// Global exit handler (can be replaced for testing)
var exitHandler ExitHandler = &DefaultExitHandler{}

package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/loykin/zephyrrun/internal/auth/common"
	"github.com/loykin/zephyrrun/internal/session"
)

// Strategy and Outcome are defined next to the strategy implementations.
type (
	Strategy = common.Strategy
	Outcome  = common.Outcome
	Kind     = common.Kind
)

// Reason is the terminal cause reported by the negotiator.
type Reason int

const (
	ReasonInvalidCredentials Reason = iota + 1
	ReasonChallengeRequired
	ReasonAllStrategiesExhausted
	ReasonTransportError
)

func (r Reason) String() string {
	switch r {
	case ReasonInvalidCredentials:
		return "invalid_credentials"
	case ReasonChallengeRequired:
		return "challenge_required"
	case ReasonAllStrategiesExhausted:
		return "all_strategies_exhausted"
	case ReasonTransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

// Attempt records what one strategy did during negotiation.
type Attempt struct {
	Scheme  session.Scheme
	Outcome Outcome
	// Verified is true when the identity check after a strategy success passed.
	Verified bool
}

// AuthFailure is returned by Negotiator.Authenticate when no session could be established.
type AuthFailure struct {
	Reason   Reason
	Attempts []Attempt
	Err      error
}

func (e *AuthFailure) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		s := fmt.Sprintf("%s=%s", a.Scheme, a.Outcome.Kind)
		if a.Outcome.Reason != "" {
			s += " (" + a.Outcome.Reason + ")"
		}
		parts = append(parts, s)
	}
	msg := "auth: " + e.Reason.String()
	if len(parts) > 0 {
		msg += ": " + strings.Join(parts, "; ")
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthFailure) Unwrap() error { return e.Err }

// IsReason reports whether err is an AuthFailure with the given reason.
func IsReason(err error, r Reason) bool {
	var af *AuthFailure
	return errors.As(err, &af) && af.Reason == r
}

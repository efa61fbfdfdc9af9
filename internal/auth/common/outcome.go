package common

import (
	"context"
	"net/http"

	"github.com/loykin/zephyrrun/internal/httpc"
	"github.com/loykin/zephyrrun/internal/session"
)

// Kind classifies one strategy attempt.
type Kind int

const (
	// Success means the strategy believes it is authenticated; the negotiator still verifies.
	Success Kind = iota
	// SoftFailure falls through to the next strategy.
	SoftFailure
	// InvalidCredentials: the remote service rejected the identity/secret. Falls through.
	InvalidCredentials
	// ChallengeRequired: a bot challenge was presented. Terminal.
	ChallengeRequired
	// TransportFailure: no response was obtained. Terminal.
	TransportFailure
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case SoftFailure:
		return "soft_failure"
	case InvalidCredentials:
		return "invalid_credentials"
	case ChallengeRequired:
		return "challenge_required"
	case TransportFailure:
		return "transport_error"
	default:
		return "unknown"
	}
}

// Outcome is the result of Strategy.Attempt.
type Outcome struct {
	Kind   Kind
	Status int    // last HTTP status observed, 0 when no call was made
	Reason string // short human readable cause
	Err    error
}

func Succeeded(reason string) Outcome { return Outcome{Kind: Success, Reason: reason} }

func Soft(status int, reason string) Outcome {
	return Outcome{Kind: SoftFailure, Status: status, Reason: reason}
}

func Invalid(status int, reason string) Outcome {
	return Outcome{Kind: InvalidCredentials, Status: status, Reason: reason}
}

func Challenge(status int, reason string) Outcome {
	return Outcome{Kind: ChallengeRequired, Status: status, Reason: reason}
}

func Transport(err error) Outcome {
	return Outcome{Kind: TransportFailure, Reason: "transport failure", Err: err}
}

// Unauthorized reports whether the remote service refused the credentials themselves.
func (o Outcome) Unauthorized() bool {
	return o.Kind == InvalidCredentials || o.Status == http.StatusUnauthorized
}

// Strategy turns credentials into request-authorization state on st.
// Implementations must route every call through st.Do so cookies are absorbed.
type Strategy interface {
	Scheme() session.Scheme
	Attempt(ctx context.Context, creds session.Credentials, st *session.State, tr httpc.Transport) Outcome
}

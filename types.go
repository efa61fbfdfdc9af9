package zephyrrun

import (
	"iter"

	"github.com/loykin/zephyrrun/internal/auth"
	acommon "github.com/loykin/zephyrrun/internal/auth/common"
	"github.com/loykin/zephyrrun/internal/httpc"
	"github.com/loykin/zephyrrun/internal/probe"
	"github.com/loykin/zephyrrun/internal/session"
	"github.com/loykin/zephyrrun/internal/store"
	"github.com/loykin/zephyrrun/internal/zephyr"
)

// Re-export commonly used types for public API

type (
	Credentials = session.Credentials
	Scheme      = session.Scheme
)

const (
	SchemeBasic   = session.SchemeBasic
	SchemeBearer  = session.SchemeBearer
	SchemeSession = session.SchemeSession
)

// NewCredentials validates and builds login credentials. The scheme defaults to basic.
func NewCredentials(identity, secret string, scheme Scheme) (Credentials, error) {
	return session.NewCredentials(identity, secret, scheme)
}

// ParseScheme accepts scheme names and their aliases (token, pat, form, cookie).
func ParseScheme(s string) (Scheme, error) { return session.ParseScheme(s) }

// DefaultOrder is the strategy order used when Options.Order is empty.
func DefaultOrder() []Scheme { return session.DefaultOrder() }

// Transport is the HTTP capability the client sends every call through.
type (
	Transport      = httpc.Transport
	Request        = httpc.Request
	Response       = httpc.Response
	TransportError = httpc.TransportError
)

// Authentication results.
type (
	AuthFailure = auth.AuthFailure
	AuthReason  = auth.Reason
	AuthAttempt = auth.Attempt
	Strategy    = acommon.Strategy
	Outcome     = acommon.Outcome
	OutcomeKind = acommon.Kind
	AuthFactory = auth.Factory
	LoginResult = auth.Result
)

const (
	ReasonInvalidCredentials     = auth.ReasonInvalidCredentials
	ReasonChallengeRequired      = auth.ReasonChallengeRequired
	ReasonAllStrategiesExhausted = auth.ReasonAllStrategiesExhausted
	ReasonTransportError         = auth.ReasonTransportError
)

// IsAuthReason reports whether err is an AuthFailure with the given reason.
func IsAuthReason(err error, r AuthReason) bool { return auth.IsReason(err, r) }

// RegisterStrategy installs a custom strategy factory for a scheme.
func RegisterStrategy(scheme Scheme, f AuthFactory) { auth.Register(scheme, f) }

// Execution data and errors.
type (
	Execution           = zephyr.Execution
	Cycle               = zephyr.Cycle
	UpdatedExecution    = zephyr.UpdatedExecution
	BulkResult          = zephyr.BulkResult
	StatusCode          = zephyr.StatusCode
	InvalidStatusError  = zephyr.InvalidStatusError
	RemoteRejectedError = zephyr.RemoteRejectedError
)

const (
	StatusPass       = zephyr.StatusPass
	StatusFail       = zephyr.StatusFail
	StatusWIP        = zephyr.StatusWIP
	StatusBlocked    = zephyr.StatusBlocked
	StatusUnexecuted = zephyr.StatusUnexecuted
)

var (
	ErrEmptyExecutionList = zephyr.ErrEmptyExecutionList
	ErrEmptyExecutionID   = zephyr.ErrEmptyExecutionID
)

// ParseStatus maps PASS, FAIL, WIP, BLOCKED or UNEXECUTED (any case) to its code.
func ParseStatus(name string) (StatusCode, error) { return zephyr.ParseStatus(name) }

// Probing.
type (
	EndpointStatus = probe.EndpointStatus
	Reachability   = probe.Reachability
	Candidate      = probe.Candidate
	Capability     = probe.Capability
)

const (
	Reachable      = probe.Reachable
	AuthRequired   = probe.AuthRequired
	Broken         = probe.Broken
	ProbeTransport = probe.TransportError
)

// Catalogue returns the default probe candidates.
func Catalogue() []Candidate { return probe.Catalogue() }

// FirstReachable stops probing at the first reachable candidate.
func FirstReachable(seq iter.Seq[EndpointStatus]) (EndpointStatus, bool) {
	return probe.FirstReachable(seq)
}

// CollectProbe drains a probe sequence.
func CollectProbe(seq iter.Seq[EndpointStatus]) []EndpointStatus { return probe.Collect(seq) }

// History store.
type (
	Store          = store.Store
	StoreConfig    = store.Config
	SqliteConfig   = store.SqliteConfig
	PostgresConfig = store.PostgresConfig
	Transition     = store.Transition
	HistoryFilter  = store.Filter
)

const (
	DriverSqlite     = store.DriverSqlite
	DriverPostgresql = store.DriverPostgresql
)

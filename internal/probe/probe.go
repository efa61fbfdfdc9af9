// Package probe checks which API path variants a deployment answers, without changing
// anything on the remote side.
package probe

import (
	"context"
	"errors"
	"iter"
	"net/http"
	"net/url"

	"github.com/loykin/zephyrrun/internal/common"
	"github.com/loykin/zephyrrun/internal/constants"
	"github.com/loykin/zephyrrun/internal/httpc"
	"github.com/loykin/zephyrrun/internal/session"
)

// Reachability is the classification of one probed path.
type Reachability int

const (
	Reachable Reachability = iota + 1
	AuthRequired
	Broken
	TransportError
)

func (r Reachability) String() string {
	switch r {
	case Reachable:
		return "reachable"
	case AuthRequired:
		return "auth_required"
	case Broken:
		return "broken"
	case TransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

// Capability groups path variants that serve the same purpose.
type Capability string

const (
	CapIdentity   Capability = "identity"
	CapServer     Capability = "server"
	CapProject    Capability = "project"
	CapCycles     Capability = "cycles"
	CapExecutions Capability = "executions"
	CapStatuses   Capability = "statuses"
	CapSearch     Capability = "search"
)

// Candidate is one path variant with the placeholder query it is probed with.
type Candidate struct {
	Capability Capability
	Path       string
	Query      url.Values
}

// EndpointStatus is the observation for one candidate.
type EndpointStatus struct {
	Capability Capability
	Path       string
	Status     Reachability
	StatusCode int
	Err        error
}

// Catalogue returns the default candidates in probe order. Variants of one capability are
// listed newest first.
func Catalogue() []Candidate {
	q := func(kv ...string) url.Values {
		v := url.Values{}
		for i := 0; i+1 < len(kv); i += 2 {
			v.Set(kv[i], kv[i+1])
		}
		return v
	}
	return []Candidate{
		{Capability: CapIdentity, Path: constants.MyselfPath},
		{Capability: CapServer, Path: constants.ServerInfoPath},
		{Capability: CapServer, Path: constants.ZapiModuleInfoPath},
		{Capability: CapCycles, Path: constants.CyclePath, Query: q("projectId", constants.DummyProjectID)},
		{Capability: CapCycles, Path: constants.ZapiCycleAltPath, Query: q("projectId", constants.DummyProjectID)},
		{Capability: CapExecutions, Path: constants.ExecutionPath, Query: q("cycleId", constants.DummyCycleID, "projectId", constants.DummyProjectID)},
		{Capability: CapExecutions, Path: constants.ZapiExecAltPath, Query: q("cycleId", constants.DummyCycleID, "projectId", constants.DummyProjectID)},
		{Capability: CapStatuses, Path: constants.ZapiStatusPath},
		{Capability: CapSearch, Path: constants.SearchPath, Query: q("jql", constants.SearchTestIssueJQL, "maxResults", constants.DummyMaxResults)},
	}
}

// ForCapability filters candidates, keeping their order.
func ForCapability(cands []Candidate, c Capability) []Candidate {
	var out []Candidate
	for _, cand := range cands {
		if cand.Capability == c {
			out = append(out, cand)
		}
	}
	return out
}

// Classify maps one observation onto a Reachability.
func Classify(resp *httpc.Response, err error) Reachability {
	if err != nil {
		return TransportError
	}
	switch {
	case resp.IsSuccess():
		return Reachable
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return AuthRequired
	default:
		return Broken
	}
}

// Probe returns a lazy sequence issuing one GET per candidate as it is consumed. Ranging
// over it again probes again. Cookies set by the responses are absorbed into st.
func Probe(ctx context.Context, st *session.State, tr httpc.Transport, cands []Candidate, logger *common.Logger) iter.Seq[EndpointStatus] {
	log := common.OrDefault(logger).WithComponent("probe")
	return func(yield func(EndpointStatus) bool) {
		for _, c := range cands {
			req := httpc.NewRequest(http.MethodGet, st.URL(c.Path))
			req.Header.Set("Accept", "application/json")
			if len(c.Query) > 0 {
				req.Query = url.Values{}
				for k, vs := range c.Query {
					req.Query[k] = append([]string(nil), vs...)
				}
			}
			resp, err := st.Do(ctx, tr, req)
			es := EndpointStatus{Capability: c.Capability, Path: c.Path, Status: Classify(resp, err), Err: err}
			if resp != nil {
				es.StatusCode = resp.StatusCode
			}
			log.Debug("probed", "path", c.Path, "status", es.Status.String(), "code", es.StatusCode)
			if !yield(es) {
				return
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
		}
	}
}

// FirstReachable consumes seq until a Reachable entry shows up; later candidates are not probed.
func FirstReachable(seq iter.Seq[EndpointStatus]) (EndpointStatus, bool) {
	for es := range seq {
		if es.Status == Reachable {
			return es, true
		}
	}
	return EndpointStatus{}, false
}

// Collect drains seq.
func Collect(seq iter.Seq[EndpointStatus]) []EndpointStatus {
	var out []EndpointStatus
	for es := range seq {
		out = append(out, es)
	}
	return out
}

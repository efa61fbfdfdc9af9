package auth

import (
	"context"
	"fmt"
	"net/http"

	acommon "github.com/loykin/zephyrrun/internal/auth/common"
	"github.com/loykin/zephyrrun/internal/common"
	"github.com/loykin/zephyrrun/internal/constants"
	"github.com/loykin/zephyrrun/internal/httpc"
	"github.com/loykin/zephyrrun/internal/session"
	"github.com/tidwall/gjson"
)

// Result describes an established session.
type Result struct {
	Scheme   session.Scheme
	Identity string
	Attempts []Attempt
}

// Negotiator tries strategies in priority order until one yields a verified session.
type Negotiator struct {
	Transport httpc.Transport
	Logger    *common.Logger
	// Options are per-scheme option maps handed to the registered factories.
	Options map[session.Scheme]map[string]interface{}
	// Strategies override the registry for the given schemes.
	Strategies map[session.Scheme]Strategy
}

// NewNegotiator returns a Negotiator using registry-built strategies.
func NewNegotiator(tr httpc.Transport, logger *common.Logger) *Negotiator {
	return &Negotiator{Transport: tr, Logger: logger}
}

func (n *Negotiator) strategy(sc session.Scheme) (Strategy, error) {
	if s, ok := n.Strategies[sc]; ok && s != nil {
		return s, nil
	}
	return Build(sc, n.Options[sc])
}

func dedupe(order []session.Scheme) []session.Scheme {
	if len(order) == 0 {
		return session.DefaultOrder()
	}
	seen := map[session.Scheme]bool{}
	out := make([]session.Scheme, 0, len(order))
	for _, s := range order {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// Authenticate runs the fallback protocol and populates st on success.
//
// A strategy success is only accepted after the identity check passes; a failed check
// downgrades it to a soft failure. Soft failures and rejected credentials fall through to
// the next strategy. A bot challenge or a transport failure stops negotiation at once.
// On failure st keeps its cookies but no auth headers.
func (n *Negotiator) Authenticate(ctx context.Context, creds session.Credentials, st *session.State, order []session.Scheme) (*Result, error) {
	if n.Transport == nil {
		return nil, fmt.Errorf("auth: negotiator has no transport")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	logger := common.OrDefault(n.Logger).WithComponent("auth")
	var attempts []Attempt

	for _, sc := range dedupe(order) {
		if err := ctx.Err(); err != nil {
			st.Reset()
			return nil, &AuthFailure{Reason: ReasonTransportError, Attempts: attempts, Err: err}
		}
		strat, err := n.strategy(sc)
		if err != nil {
			st.Reset()
			return nil, err
		}
		log := logger.WithStrategy(string(sc))
		st.Reset()

		out := strat.Attempt(ctx, creds, st, n.Transport)
		att := Attempt{Scheme: sc, Outcome: out}
		if out.Kind == acommon.Success {
			name, verified := n.verify(ctx, st)
			if verified.Kind == acommon.Success {
				att.Verified = true
				attempts = append(attempts, att)
				st.MarkAuthenticated(sc, name)
				log.Info("session established", "identity", st.Identity(), "csrf", st.CSRFToken() != "")
				return &Result{Scheme: sc, Identity: st.Identity(), Attempts: attempts}, nil
			}
			out = verified
			att.Outcome = verified
		}
		attempts = append(attempts, att)
		log.Debug("strategy did not yield a session", "outcome", out.Kind.String(), "status", out.Status, "reason", out.Reason)

		switch out.Kind {
		case acommon.ChallengeRequired:
			st.Reset()
			log.Warn("login challenge presented; not trying further strategies")
			return nil, &AuthFailure{Reason: ReasonChallengeRequired, Attempts: attempts}
		case acommon.TransportFailure:
			st.Reset()
			return nil, &AuthFailure{Reason: ReasonTransportError, Attempts: attempts, Err: out.Err}
		}
	}

	st.Reset()
	reason := ReasonAllStrategiesExhausted
	if allUnauthorized(attempts) {
		reason = ReasonInvalidCredentials
	}
	logger.Warn("authentication failed", "reason", reason.String(), "attempts", len(attempts))
	return nil, &AuthFailure{Reason: reason, Attempts: attempts}
}

func allUnauthorized(attempts []Attempt) bool {
	if len(attempts) == 0 {
		return false
	}
	for _, a := range attempts {
		if !a.Outcome.Unauthorized() {
			return false
		}
	}
	return true
}

// verify fetches the caller's own identity. A 2xx that is not JSON (a login page served
// with 200) does not count.
func (n *Negotiator) verify(ctx context.Context, st *session.State) (string, Outcome) {
	req := httpc.NewRequest(http.MethodGet, st.URL(constants.MyselfPath))
	req.Header.Set("Accept", "application/json")
	resp, err := st.Do(ctx, n.Transport, req)
	if err != nil {
		return "", acommon.Transport(err)
	}
	if acommon.IsChallenge(resp, nil) {
		return "", acommon.Challenge(resp.StatusCode, "identity check: challenge presented")
	}
	if !resp.IsSuccess() {
		return "", acommon.Soft(resp.StatusCode, fmt.Sprintf("identity check returned %d", resp.StatusCode))
	}
	if acommon.LooksLikeHTML(resp) || !gjson.ValidBytes(resp.Body) {
		return "", acommon.Soft(resp.StatusCode, "identity check returned a page instead of JSON")
	}
	doc := gjson.ParseBytes(resp.Body)
	for _, field := range []string{"displayName", "name", "emailAddress", "accountId"} {
		if v := doc.Get(field).String(); v != "" {
			return v, acommon.Succeeded("identity verified")
		}
	}
	return constants.DefaultIdentityName, acommon.Succeeded("identity verified")
}

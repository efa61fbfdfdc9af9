package form

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/loykin/zephyrrun/internal/auth/common"
	"github.com/loykin/zephyrrun/internal/constants"
	"github.com/loykin/zephyrrun/internal/httpc"
	"github.com/loykin/zephyrrun/internal/session"
	"github.com/tidwall/gjson"
)

// Config holds options for the session (form) login.
type Config struct {
	LoginPaths           []string `mapstructure:"login_paths"`
	SessionPath          string   `mapstructure:"session_path"`
	ChallengeMarkers     []string `mapstructure:"challenge_markers"`
	AuthenticatedMarkers []string `mapstructure:"authenticated_markers"`
}

// ToMap returns the option map for the session strategy factory.
func (c Config) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"login_paths":           c.LoginPaths,
		"session_path":          c.SessionPath,
		"challenge_markers":     c.ChallengeMarkers,
		"authenticated_markers": c.AuthenticatedMarkers,
	}
}

func (c Config) withDefaults() Config {
	if len(c.LoginPaths) == 0 {
		c.LoginPaths = []string{constants.LoginPagePath, constants.DashboardPath}
	}
	if c.SessionPath == "" {
		c.SessionPath = constants.SessionPath
	}
	if len(c.ChallengeMarkers) == 0 {
		c.ChallengeMarkers = common.DefaultChallengeMarkers
	}
	if len(c.AuthenticatedMarkers) == 0 {
		c.AuthenticatedMarkers = common.DefaultAuthenticatedMarkers
	}
	return c
}

// Strategy performs the multi-step cookie login:
// seed cookies from the login surface, scrape an XSRF token, POST the credentials,
// then classify the reply.
type Strategy struct{ C Config }

func (Strategy) Scheme() session.Scheme { return session.SchemeSession }

func (s Strategy) Attempt(ctx context.Context, creds session.Credentials, st *session.State, tr httpc.Transport) common.Outcome {
	cfg := s.C.withDefaults()
	if creds.Identity() == "" {
		return common.Soft(0, "session: identity is empty")
	}

	if out, ok := seed(ctx, cfg, st, tr); !ok {
		return out
	}

	body, err := json.Marshal(map[string]string{"username": creds.Identity(), "password": creds.Secret()})
	if err != nil {
		return common.Soft(0, "session: encode login body: "+err.Error())
	}
	req := httpc.NewRequest(http.MethodPost, st.URL(cfg.SessionPath))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Body = body
	resp, err := st.Do(ctx, tr, req)
	if err != nil {
		return common.Transport(err)
	}
	return classify(cfg, st, resp)
}

// seed GETs the login surfaces in order until one answers, harvesting cookies and the
// XSRF token. A missing token is tolerated.
func seed(ctx context.Context, cfg Config, st *session.State, tr httpc.Transport) (common.Outcome, bool) {
	for _, p := range cfg.LoginPaths {
		req := httpc.NewRequest(http.MethodGet, st.URL(p))
		req.Header.Set("Accept", "text/html")
		resp, err := st.Do(ctx, tr, req)
		if err != nil {
			return common.Transport(err), false
		}
		if resp.StatusCode == http.StatusNotFound || resp.StatusCode >= 500 {
			continue
		}
		if st.CSRFToken() == "" {
			st.SetCSRFToken(common.ExtractMetaToken(resp.Body))
		}
		return common.Outcome{}, true
	}
	// no login surface answered; the POST may still work on API-only deployments
	return common.Outcome{}, true
}

func classify(cfg Config, st *session.State, resp *httpc.Response) common.Outcome {
	if common.IsChallenge(resp, cfg.ChallengeMarkers) {
		return common.Challenge(resp.StatusCode, "session: CAPTCHA challenge presented")
	}
	if resp.StatusCode == http.StatusUnauthorized || common.SeraphFailed(resp) {
		return common.Invalid(resp.StatusCode, "session: credentials rejected")
	}
	if common.IsLoginRedirect(resp) {
		return common.Soft(resp.StatusCode, "session: redirected to login")
	}
	if !resp.IsSuccess() {
		return common.Soft(resp.StatusCode, "session: unexpected status")
	}

	if !common.LooksLikeHTML(resp) && gjson.ValidBytes(resp.Body) {
		doc := gjson.ParseBytes(resp.Body)
		name, value := doc.Get("session.name").String(), doc.Get("session.value").String()
		if name != "" && value != "" {
			st.SetCookie(name, value)
			if tok := doc.Get("session.xsrfToken").String(); tok != "" {
				st.SetCSRFToken(tok)
			}
			return common.Succeeded("session cookie issued")
		}
		return common.Soft(resp.StatusCode, "session: JSON reply without session")
	}
	if common.IsAuthenticatedPage(resp.Body, cfg.AuthenticatedMarkers) {
		return common.Succeeded("authenticated page returned")
	}
	return common.Soft(resp.StatusCode, "session: 2xx without authenticated markers")
}

package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/loykin/zephyrrun/internal/constants"
	"github.com/loykin/zephyrrun/internal/httpc"
	"github.com/loykin/zephyrrun/internal/util"
)

// Scheme tags one way of authenticating against the remote service.
type Scheme string

const (
	SchemeBasic   Scheme = "basic"
	SchemeBearer  Scheme = "bearer"
	SchemeSession Scheme = "session"
)

// ParseScheme accepts the canonical names plus the "form" alias for session login.
func ParseScheme(s string) (Scheme, error) {
	switch util.TrimAndLower(s) {
	case "basic":
		return SchemeBasic, nil
	case "bearer", "token", "pat":
		return SchemeBearer, nil
	case "session", "form", "session-form", "cookie":
		return SchemeSession, nil
	default:
		return "", fmt.Errorf("session: unknown auth scheme %q", s)
	}
}

// DefaultOrder is the negotiation priority when the caller does not supply one.
func DefaultOrder() []Scheme {
	return []Scheme{SchemeBasic, SchemeBearer, SchemeSession}
}

// Credentials are immutable once built.
type Credentials struct {
	identity string
	secret   string
	scheme   Scheme
}

// NewCredentials trims identity and validates the preferred scheme. The secret is kept
// verbatim. Bearer credentials may carry an empty identity.
func NewCredentials(identity, secret string, scheme Scheme) (Credentials, error) {
	id := strings.TrimSpace(identity)
	if secret == "" {
		return Credentials{}, errors.New("session: secret is required")
	}
	if scheme == "" {
		scheme = SchemeBasic
	}
	if _, err := ParseScheme(string(scheme)); err != nil {
		return Credentials{}, err
	}
	if id == "" && scheme != SchemeBearer {
		return Credentials{}, fmt.Errorf("session: identity is required for %s", scheme)
	}
	return Credentials{identity: id, secret: secret, scheme: scheme}, nil
}

func (c Credentials) Identity() string { return c.identity }
func (c Credentials) Secret() string   { return c.secret }
func (c Credentials) Scheme() Scheme   { return c.scheme }

// String never includes the secret.
func (c Credentials) String() string {
	return fmt.Sprintf("%s(%s)", c.scheme, c.identity)
}

// State is the mutable session of one client: cookies, negotiated CSRF token, the
// headers the winning strategy computed and the verified identity. It is not safe for
// concurrent use; callers serialize access.
type State struct {
	baseURL   string
	cookies   map[string]string
	headers   http.Header
	csrfToken string
	scheme    Scheme
	identity  string
}

// New creates an empty State for baseURL.
func New(baseURL string) (*State, error) {
	u := util.NormalizeBaseURL(baseURL)
	if u == "" {
		return nil, errors.New("session: base url is required")
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return nil, fmt.Errorf("session: base url %q must start with http:// or https://", baseURL)
	}
	return &State{baseURL: u, cookies: map[string]string{}, headers: http.Header{}}, nil
}

func (s *State) BaseURL() string { return s.baseURL }

// URL joins path onto the base URL.
func (s *State) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return s.baseURL + path
}

func (s *State) Scheme() Scheme    { return s.scheme }
func (s *State) Identity() string  { return s.identity }
func (s *State) CSRFToken() string { return s.csrfToken }

// Authenticated reports whether a strategy succeeded and the identity was verified.
func (s *State) Authenticated() bool { return s.scheme != "" && s.identity != "" }

// Cookie returns one jar entry.
func (s *State) Cookie(name string) (string, bool) {
	v, ok := s.cookies[name]
	return v, ok
}

// CookieNames lists jar entries in sorted order.
func (s *State) CookieNames() []string {
	names := make([]string, 0, len(s.cookies))
	for n := range s.cookies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SetCookie stores or replaces a jar entry.
func (s *State) SetCookie(name, value string) {
	if name == "" {
		return
	}
	s.cookies[name] = value
}

// SetHeader records a header presented on every later request (e.g. Authorization).
func (s *State) SetHeader(name, value string) { s.headers.Set(name, value) }

// Header returns a recorded header value.
func (s *State) Header(name string) string { return s.headers.Get(name) }

// SetCSRFToken records the token scraped during login. Empty values are ignored.
func (s *State) SetCSRFToken(tok string) {
	if t := strings.TrimSpace(tok); t != "" {
		s.csrfToken = t
	}
}

// MarkAuthenticated records the winning scheme and verified display name.
func (s *State) MarkAuthenticated(scheme Scheme, identity string) {
	s.scheme = scheme
	s.identity = util.TrimWithDefault(identity, constants.DefaultIdentityName)
}

// Reset drops headers, token and identity. Cookies survive: they may have been issued to
// the anonymous session and are still needed by the next strategy. The XSRF cookie is only
// sent once per browser session, so the token is re-derived from the jar.
func (s *State) Reset() {
	s.headers = http.Header{}
	s.csrfToken = ""
	s.scheme = ""
	s.identity = ""
	for _, name := range []string{constants.CookieXSRFAtlassian, constants.CookieXSRFGeneric} {
		if v, ok := s.cookies[name]; ok && strings.TrimSpace(v) != "" {
			s.SetCSRFToken(v)
			break
		}
	}
}

// Apply presents headers, cookies and the CSRF token on req. Headers already set on req win.
func (s *State) Apply(req *httpc.Request) {
	if req.Header == nil {
		req.Header = http.Header{}
	}
	for k, vs := range s.headers {
		if req.Header.Get(k) != "" {
			continue
		}
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if len(s.cookies) > 0 {
		parts := make([]string, 0, len(s.cookies))
		for _, n := range s.CookieNames() {
			parts = append(parts, (&http.Cookie{Name: n, Value: s.cookies[n]}).String())
		}
		req.Header.Set("Cookie", strings.Join(parts, "; "))
	}
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		req.Header.Set(constants.HeaderAtlassianTok, constants.NoCheck)
		if s.csrfToken != "" {
			req.Header.Set(constants.HeaderXSRF, s.csrfToken)
		}
	}
}

// Absorb merges the response's Set-Cookie entries into the jar. Expired cookies are removed.
// A refreshed XSRF cookie also refreshes the token.
func (s *State) Absorb(resp *httpc.Response) {
	if resp == nil {
		return
	}
	for _, c := range resp.Cookies {
		if c == nil || c.Name == "" {
			continue
		}
		if c.MaxAge < 0 {
			delete(s.cookies, c.Name)
			continue
		}
		s.cookies[c.Name] = c.Value
		if c.Name == constants.CookieXSRFAtlassian || c.Name == constants.CookieXSRFGeneric {
			s.SetCSRFToken(c.Value)
		}
	}
}

// Do applies the session to req, sends it once and absorbs the response cookies.
// Transport failures are returned untouched.
func (s *State) Do(ctx context.Context, tr httpc.Transport, req *httpc.Request) (*httpc.Response, error) {
	s.Apply(req)
	resp, err := tr.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	s.Absorb(resp)
	return resp, nil
}

// Package jiratest provides an in-process fake of the Jira + ZAPI surface used by
// zephyrrun tests.
package jiratest

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// Execution is one record served by the fake execution listing.
type Execution struct {
	ID       string
	IssueKey string
	Status   int
	Comment  string
}

// Cycle is one record served by the fake cycle listing.
type Cycle struct {
	ID        string
	Name      string
	ProjectID string
	VersionID string
}

// Options shapes the behavior of the fake deployment.
type Options struct {
	Username    string
	Password    string
	Token       string
	DisplayName string

	DisableBasic    bool // basic header is ignored (401), like Cloud without API token
	DisableBearer   bool
	Captcha         bool // session POST answers with a CAPTCHA challenge
	SoftLogin       bool // session POST answers 200 with the login page
	MyselfStatus    int  // forces the status of /rest/api/2/myself when non-zero
	CSRFInCookie    bool
	CSRFInMeta      bool
	XSRFOnce        bool // XSRF cookie only on the first response without it, like a browser session
	RedirectAnon    bool // unauthenticated REST calls get 302 to /login.jsp
	EmptyUpdate     bool // execute endpoints answer 200 with no body
	UpdateStatus    int  // forces the status of execute endpoints when non-zero
	ExecutionsAsMap bool

	Projects   map[string]string // key -> id
	Cycles     []Cycle
	Executions map[string][]Execution // cycleId -> executions
	PathStatus map[string]int         // forced status per path
}

// Call records one request seen by the fake.
type Call struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// Server is a running fake.
type Server struct {
	*httptest.Server
	opts Options

	mu    sync.Mutex
	calls []Call
}

const (
	sessionCookie = "JSESSIONID"
	sessionValue  = "fake-session-1"
	xsrfValue     = "BXYZ-FAKE|token|lin"
)

// New starts a fake server. Callers must Close it.
func New(opts Options) *Server {
	if opts.DisplayName == "" {
		opts.DisplayName = "Test User"
	}
	s := &Server{opts: opts}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Calls returns a copy of the recorded calls.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsTo returns the recorded calls for a method and path.
func (s *Server) CallsTo(method, path string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Method == method && c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// CSRFValue is the token the fake issues.
func CSRFValue() string { return xsrfValue }

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.calls = append(s.calls, Call{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Header: r.Header.Clone(), Body: body})
	s.mu.Unlock()

	if s.opts.XSRFOnce {
		if _, err := r.Cookie("atlassian.xsrf.token"); err != nil {
			http.SetCookie(w, &http.Cookie{Name: "atlassian.xsrf.token", Value: xsrfValue, Path: "/"})
		}
	}

	if code, ok := s.opts.PathStatus[r.URL.Path]; ok {
		w.WriteHeader(code)
		return
	}

	switch {
	case r.URL.Path == "/login.jsp" || r.URL.Path == "/secure/Dashboard.jspa":
		s.loginPage(w)
	case r.URL.Path == "/rest/auth/1/session" && r.Method == http.MethodPost:
		s.sessionLogin(w, body)
	case !s.authorized(r):
		if s.opts.RedirectAnon {
			http.Redirect(w, r, "/login.jsp?os_destination="+r.URL.Path, http.StatusFound)
			return
		}
		w.Header().Set("X-Seraph-LoginReason", "AUTHENTICATED_FAILED")
		writeJSON(w, http.StatusUnauthorized, map[string]any{"errorMessages": []string{"You are not authenticated."}})
	case r.URL.Path == "/rest/api/2/myself":
		if s.opts.MyselfStatus != 0 {
			w.WriteHeader(s.opts.MyselfStatus)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"name": s.opts.Username, "displayName": s.opts.DisplayName})
	case strings.HasPrefix(r.URL.Path, "/rest/api/2/project/"):
		key := strings.TrimPrefix(r.URL.Path, "/rest/api/2/project/")
		id, ok := s.opts.Projects[key]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"errorMessages": []string{"No project could be found with key '" + key + "'."}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "key": key})
	case r.URL.Path == "/rest/zapi/latest/cycle":
		s.cycles(w, r)
	case r.URL.Path == "/rest/zapi/latest/execution" && r.Method == http.MethodGet:
		s.executions(w, r)
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/rest/zapi/latest/execution/"):
		s.execute(w, r, body)
	case r.URL.Path == "/rest/api/2/serverInfo" || r.URL.Path == "/rest/zapi/latest/moduleInfo":
		writeJSON(w, http.StatusOK, map[string]any{"version": "9.12.0"})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *Server) loginPage(w http.ResponseWriter) {
	if s.opts.CSRFInCookie {
		http.SetCookie(w, &http.Cookie{Name: "atlassian.xsrf.token", Value: xsrfValue, Path: "/"})
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "anonymous-seed", Path: "/"})
	w.Header().Set("Content-Type", "text/html;charset=UTF-8")
	meta := ""
	if s.opts.CSRFInMeta {
		meta = `<meta id="atlassian-token" name="atlassian-token" content="` + xsrfValue + `">`
	}
	_, _ = fmt.Fprintf(w, `<html><head>%s<meta name="ajs-remote-user" content=""></head><body><form id="login-form"><input name="os_password"></form></body></html>`, meta)
}

func (s *Server) sessionLogin(w http.ResponseWriter, body []byte) {
	if s.opts.Captcha {
		w.Header().Set("X-Seraph-LoginReason", "AUTHENTICATION_DENIED")
		w.Header().Set("X-Authentication-Denied-Reason", "CAPTCHA_CHALLENGE; login-url=/login.jsp")
		writeJSON(w, http.StatusForbidden, map[string]any{"errorMessages": []string{"CAPTCHA_CHALLENGE"}})
		return
	}
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	_ = json.Unmarshal(body, &in)
	if in.Username != s.opts.Username || in.Password != s.opts.Password {
		w.Header().Set("X-Seraph-LoginReason", "AUTHENTICATED_FAILED")
		writeJSON(w, http.StatusUnauthorized, map[string]any{"errorMessages": []string{"Login failed"}})
		return
	}
	if s.opts.SoftLogin {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, `<html><body><form id="login-form"><input name="os_password"></form></body></html>`)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: sessionValue, Path: "/"})
	writeJSON(w, http.StatusOK, map[string]any{
		"session":   map[string]any{"name": sessionCookie, "value": sessionValue},
		"loginInfo": map[string]any{"loginCount": 1},
	})
}

func (s *Server) authorized(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Basic ") && !s.opts.DisableBasic {
		raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
		if err == nil && string(raw) == s.opts.Username+":"+s.opts.Password {
			return true
		}
	}
	if strings.HasPrefix(auth, "Bearer ") && !s.opts.DisableBearer && s.opts.Token != "" {
		if strings.TrimPrefix(auth, "Bearer ") == s.opts.Token {
			return true
		}
	}
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value == sessionValue {
		return true
	}
	return false
}

func (s *Server) cycles(w http.ResponseWriter, r *http.Request) {
	pid := r.URL.Query().Get("projectId")
	if pid == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errorDesc": "projectId is required"})
		return
	}
	// ZAPI keys cycles by id and appends a recordsCount entry
	var b strings.Builder
	b.WriteString("{")
	n := 0
	for _, c := range s.opts.Cycles {
		if c.ProjectID != pid {
			continue
		}
		if v := r.URL.Query().Get("versionId"); v != "" && c.VersionID != v {
			continue
		}
		rec, _ := json.Marshal(map[string]any{"name": c.Name, "projectId": c.ProjectID, "versionId": c.VersionID})
		fmt.Fprintf(&b, "%q:%s,", c.ID, rec)
		n++
	}
	fmt.Fprintf(&b, `"recordsCount":%d}`, n)
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, b.String())
}

func (s *Server) executions(w http.ResponseWriter, r *http.Request) {
	cid := r.URL.Query().Get("cycleId")
	execs := s.opts.Executions[cid]
	w.Header().Set("Content-Type", "application/json")
	if s.opts.ExecutionsAsMap {
		var b strings.Builder
		b.WriteString(`{"executions":{`)
		for i, e := range execs {
			if i > 0 {
				b.WriteString(",")
			}
			rec, _ := json.Marshal(map[string]any{"issueKey": e.IssueKey, "executionStatus": fmt.Sprint(e.Status), "comment": e.Comment})
			fmt.Fprintf(&b, "%q:%s", e.ID, rec)
		}
		b.WriteString("}}")
		_, _ = io.WriteString(w, b.String())
		return
	}
	list := make([]map[string]any, 0, len(execs))
	for _, e := range execs {
		list = append(list, map[string]any{"id": e.ID, "issueKey": e.IssueKey, "executionStatus": fmt.Sprint(e.Status), "comment": e.Comment, "cycleId": cid})
	}
	writeJSON(w, http.StatusOK, map[string]any{"executions": list, "recordsCount": len(list)})
}

func (s *Server) execute(w http.ResponseWriter, r *http.Request, body []byte) {
	if s.opts.UpdateStatus != 0 {
		writeJSON(w, s.opts.UpdateStatus, map[string]any{"errorDesc": "rejected"})
		return
	}
	if s.opts.EmptyUpdate {
		w.WriteHeader(http.StatusOK)
		return
	}
	var in map[string]any
	_ = json.Unmarshal(body, &in)
	if r.URL.Path == "/rest/zapi/latest/execution/execute/bulk" {
		writeJSON(w, http.StatusOK, map[string]any{"jobProgressToken": "0001"})
		return
	}
	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/rest/zapi/latest/execution/"), "/execute")
	out := map[string]any{"id": id, "executionStatus": fmt.Sprint(in["status"])}
	if c, ok := in["comment"]; ok {
		out["comment"] = c
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

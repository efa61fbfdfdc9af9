package server

import (
	"context"
	"encoding/json"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/loykin/zephyrrun/internal/common"
	"github.com/loykin/zephyrrun/internal/probe"
	"github.com/loykin/zephyrrun/internal/zephyr"
)

func init() { gin.SetMode(gin.TestMode) }

type stubClient struct {
	executions map[string]zephyr.Execution
	updated    []string
	bulk       [][]string
	probed     int
}

func (s *stubClient) Identity() string { return "Relay Bot" }

func (s *stubClient) FindExecution(_ context.Context, testKey, _, _ string) (zephyr.Execution, bool, error) {
	e, ok := s.executions[testKey]
	return e, ok, nil
}

func (s *stubClient) SetStatus(_ context.Context, id, status string, _ *string) (zephyr.UpdatedExecution, error) {
	code, err := zephyr.ParseStatus(status)
	if err != nil {
		return zephyr.UpdatedExecution{}, err
	}
	s.updated = append(s.updated, id)
	return zephyr.UpdatedExecution{ID: id, Status: code}, nil
}

func (s *stubClient) SetStatusBulk(_ context.Context, ids []string, status string, _ *string) (zephyr.BulkResult, error) {
	code, err := zephyr.ParseStatus(status)
	if err != nil {
		return zephyr.BulkResult{}, err
	}
	if len(ids) == 0 {
		return zephyr.BulkResult{}, zephyr.ErrEmptyExecutionList
	}
	s.bulk = append(s.bulk, ids)
	return zephyr.BulkResult{IDs: ids, Status: code, JobToken: "0001"}, nil
}

func (s *stubClient) Probe(_ context.Context, cands []probe.Candidate) iter.Seq[probe.EndpointStatus] {
	return func(yield func(probe.EndpointStatus) bool) {
		for _, c := range cands {
			s.probed++
			if !yield(probe.EndpointStatus{Capability: c.Capability, Path: c.Path, Status: probe.Reachable, StatusCode: 200}) {
				return
			}
		}
	}
}

var secret = []byte("relay-secret")

func token(t *testing.T, key []byte, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "ci", "exp": exp.Unix()}).SignedString(key)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func do(h http.Handler, method, path, body, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func newServer(c Client, withJWT bool) *Server {
	cfg := Config{Logger: common.NewDiscardLogger()}
	if withJWT {
		cfg.JWT = VerifyConfig{Secret: secret}
	}
	return New(cfg, c)
}

func TestHealthzIsOpen(t *testing.T) {
	rec := do(newServer(&stubClient{}, true).Handler(), http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Fatal("missing request id")
	}
}

func TestJWTMiddleware(t *testing.T) {
	h := newServer(&stubClient{}, true).Handler()
	cases := []struct {
		name   string
		bearer string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "not-a-jwt", http.StatusUnauthorized},
		{"wrong key", token(t, []byte("other"), time.Now().Add(time.Minute)), http.StatusUnauthorized},
		{"expired", token(t, secret, time.Now().Add(-time.Hour)), http.StatusUnauthorized},
		{"valid", token(t, secret, time.Now().Add(time.Minute)), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(h, http.MethodGet, "/api/v1/probe?capability=identity", "", tc.bearer)
			if rec.Code != tc.want {
				t.Fatalf("got %d want %d: %s", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestSetStatusRelay(t *testing.T) {
	c := &stubClient{executions: map[string]zephyr.Execution{"TEST-123": {ID: "55", IssueKey: "TEST-123"}}}
	h := newServer(c, false).Handler()

	rec := do(h, http.MethodPost, "/api/v1/executions/status",
		`{"testKey":"TEST-123","cycleId":"7","projectId":"10001","status":"pass","comment":"ok"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d %s", rec.Code, rec.Body.String())
	}
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out["executionId"] != "55" || out["status"] != "PASS" || out["identity"] != "Relay Bot" {
		t.Fatalf("unexpected body %v", out)
	}

	rec = do(h, http.MethodPost, "/api/v1/executions/status",
		`{"testKey":"TEST-999","cycleId":"7","projectId":"10001","status":"PASS"}`, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec = do(h, http.MethodPost, "/api/v1/executions/status",
		`{"testKey":"TEST-123","cycleId":"7","projectId":"10001","status":"DONE"}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(c.updated) != 1 {
		t.Fatalf("expected exactly one update, got %v", c.updated)
	}
}

func TestSetStatusBulkRelay(t *testing.T) {
	c := &stubClient{}
	h := newServer(c, false).Handler()
	rec := do(h, http.MethodPost, "/api/v1/executions/bulk", `{"executionIds":["1","2"],"status":"FAIL"}`, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"jobToken":"0001"`) {
		t.Fatalf("bulk: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(h, http.MethodPost, "/api/v1/executions/bulk", `{"executionIds":[],"status":"FAIL"}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty list, got %d", rec.Code)
	}
	if len(c.bulk) != 1 {
		t.Fatalf("unexpected bulk calls %v", c.bulk)
	}
}

func TestProbeFiltersByCapability(t *testing.T) {
	c := &stubClient{}
	rec := do(newServer(c, false).Handler(), http.MethodGet, "/api/v1/probe?capability=identity", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("probe: %d", rec.Code)
	}
	want := len(probe.ForCapability(probe.Catalogue(), probe.CapIdentity))
	if c.probed != want {
		t.Fatalf("probed %d candidates, want %d", c.probed, want)
	}
}

package bearer

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/loykin/zephyrrun/internal/auth/common"
	"github.com/loykin/zephyrrun/internal/httpc"
	"github.com/loykin/zephyrrun/internal/session"
)

type stubTransport struct {
	fn    func(*httpc.Request) (*httpc.Response, error)
	calls int
}

func (s *stubTransport) Send(_ context.Context, r *httpc.Request) (*httpc.Response, error) {
	s.calls++
	return s.fn(r)
}

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "ci", "exp": exp.Unix()}).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func newState(t *testing.T) *session.State {
	t.Helper()
	st, err := session.New("http://jira")
	if err != nil {
		t.Fatal(err)
	}
	return st
}

func TestAttempt_OpaqueToken(t *testing.T) {
	st := newState(t)
	creds, _ := session.NewCredentials("", "NjM0OTk2-personal-access-token", session.SchemeBearer)
	out := Strategy{}.Attempt(context.Background(), creds, st, nil)
	if out.Kind != common.Success {
		t.Fatalf("expected success, got %v (%s)", out.Kind, out.Reason)
	}
	if st.Header("Authorization") != "Bearer NjM0OTk2-personal-access-token" {
		t.Fatalf("header: %q", st.Header("Authorization"))
	}
}

func TestAttempt_ExpiredJWTRejectedLocally(t *testing.T) {
	st := newState(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	creds, _ := session.NewCredentials("", signed(t, now.Add(-time.Minute)), session.SchemeBearer)
	out := Strategy{Now: func() time.Time { return now }}.Attempt(context.Background(), creds, st, nil)
	if out.Kind != common.InvalidCredentials {
		t.Fatalf("expected invalid credentials, got %v", out.Kind)
	}
	if st.Header("Authorization") != "" {
		t.Fatal("expired token must not be installed")
	}
}

func TestAttempt_ValidJWTWithSkew(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	creds, _ := session.NewCredentials("", signed(t, now.Add(30*time.Second)), session.SchemeBearer)

	out := Strategy{Now: func() time.Time { return now }}.Attempt(context.Background(), creds, newState(t), nil)
	if out.Kind != common.Success {
		t.Fatalf("expected success, got %v", out.Kind)
	}
	out = Strategy{C: Config{ExpirySkew: time.Minute}, Now: func() time.Time { return now }}.Attempt(context.Background(), creds, newState(t), nil)
	if out.Kind != common.InvalidCredentials {
		t.Fatalf("skew should treat near-expiry token as expired, got %v", out.Kind)
	}
}

func TestAttempt_PasswordGrantExchange(t *testing.T) {
	tr := &stubTransport{fn: func(r *httpc.Request) (*httpc.Response, error) {
		if r.URL != "http://idp/token" {
			t.Errorf("unexpected url %s", r.URL)
		}
		form, _ := url.ParseQuery(string(r.Body))
		if form.Get("grant_type") != "password" || form.Get("username") != "alice" || form.Get("client_id") != "zephyr" {
			t.Errorf("unexpected form: %v", form)
		}
		return &httpc.Response{
			StatusCode: 200,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       []byte(`{"access_token":"exchanged","token_type":"Bearer","expires_in":3600}`),
		}, nil
	}}
	st := newState(t)
	creds, _ := session.NewCredentials("alice", "pw", session.SchemeBearer)
	out := Strategy{C: Config{TokenURL: "http://idp/token", ClientID: "zephyr"}}.Attempt(context.Background(), creds, st, tr)
	if out.Kind != common.Success {
		t.Fatalf("expected success, got %v (%s)", out.Kind, out.Reason)
	}
	if st.Header("Authorization") != "Bearer exchanged" || tr.calls != 1 {
		t.Fatalf("header=%q calls=%d", st.Header("Authorization"), tr.calls)
	}
}

func TestAttempt_PasswordGrantRejected(t *testing.T) {
	tr := &stubTransport{fn: func(*httpc.Request) (*httpc.Response, error) {
		return &httpc.Response{
			StatusCode: 401,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       []byte(`{"error":"invalid_grant"}`),
		}, nil
	}}
	creds, _ := session.NewCredentials("alice", "bad", session.SchemeBearer)
	out := Strategy{C: Config{TokenURL: "http://idp/token", ClientID: "zephyr"}}.Attempt(context.Background(), creds, newState(t), tr)
	if out.Kind != common.InvalidCredentials {
		t.Fatalf("expected invalid credentials, got %v (%s)", out.Kind, out.Reason)
	}
}

func TestAttempt_PasswordGrantTransportFailure(t *testing.T) {
	tr := &stubTransport{fn: func(r *httpc.Request) (*httpc.Response, error) {
		return nil, &httpc.TransportError{Method: r.Method, URL: r.URL, Err: errors.New("connection refused")}
	}}
	creds, _ := session.NewCredentials("alice", "pw", session.SchemeBearer)
	out := Strategy{C: Config{TokenURL: "http://idp/token", ClientID: "zephyr"}}.Attempt(context.Background(), creds, newState(t), tr)
	if out.Kind != common.TransportFailure {
		t.Fatalf("expected transport failure, got %v (%s)", out.Kind, out.Reason)
	}
}

func TestConfig_ToMap(t *testing.T) {
	m := Config{ClientID: "c"}.ToMap()
	if m["client_id"] != "c" {
		t.Fatalf("ToMap: %+v", m)
	}
	if _, ok := m["scopes"]; ok {
		t.Fatal("scopes should be absent when empty")
	}
}

package session

import (
	"net/http"
	"testing"

	"github.com/loykin/zephyrrun/internal/httpc"
)

func TestParseScheme(t *testing.T) {
	cases := map[string]Scheme{"BASIC": SchemeBasic, " bearer ": SchemeBearer, "pat": SchemeBearer, "form": SchemeSession, "session": SchemeSession}
	for in, want := range cases {
		got, err := ParseScheme(in)
		if err != nil || got != want {
			t.Fatalf("ParseScheme(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseScheme("kerberos"); err == nil {
		t.Fatal("expected error for unknown scheme")
	}
}

func TestNewCredentials(t *testing.T) {
	c, err := NewCredentials("  alice ", "s3cret", "")
	if err != nil {
		t.Fatalf("NewCredentials: %v", err)
	}
	if c.Identity() != "alice" || c.Secret() != "s3cret" || c.Scheme() != SchemeBasic {
		t.Fatalf("unexpected credentials: %+v", c)
	}
	if c.String() != "basic(alice)" {
		t.Fatalf("String leaked or malformed: %s", c.String())
	}
	if _, err := NewCredentials("alice", "", SchemeBasic); err == nil {
		t.Fatal("expected error for empty secret")
	}
	if _, err := NewCredentials("", "x", SchemeSession); err == nil {
		t.Fatal("expected error for missing identity with session scheme")
	}
	if _, err := NewCredentials("", "pat-token", SchemeBearer); err != nil {
		t.Fatalf("bearer without identity should be accepted: %v", err)
	}
	if _, err := NewCredentials("a", "b", Scheme("ntlm")); err == nil {
		t.Fatal("expected error for unknown scheme")
	}
}

func TestNew_NormalizesBaseURL(t *testing.T) {
	s, err := New("https://jira.example.com/jira/")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.BaseURL() != "https://jira.example.com/jira" {
		t.Fatalf("base url not normalized: %s", s.BaseURL())
	}
	if s.URL("rest/api/2/myself") != "https://jira.example.com/jira/rest/api/2/myself" {
		t.Fatalf("URL join: %s", s.URL("rest/api/2/myself"))
	}
	if _, err := New("  "); err == nil {
		t.Fatal("expected error for empty url")
	}
	if _, err := New("jira.example.com"); err == nil {
		t.Fatal("expected error for missing scheme")
	}
}

func TestAbsorb_UpdatesJarAndToken(t *testing.T) {
	s, _ := New("http://x")
	s.Absorb(&httpc.Response{Cookies: []*http.Cookie{
		{Name: "JSESSIONID", Value: "one"},
		{Name: "atlassian.xsrf.token", Value: "BXYZ|abc|lin"},
	}})
	if v, _ := s.Cookie("JSESSIONID"); v != "one" {
		t.Fatalf("cookie not stored: %q", v)
	}
	if s.CSRFToken() != "BXYZ|abc|lin" {
		t.Fatalf("xsrf cookie should set token: %q", s.CSRFToken())
	}
	s.Absorb(&httpc.Response{Cookies: []*http.Cookie{
		{Name: "JSESSIONID", Value: "two"},
		{Name: "atlassian.xsrf.token", MaxAge: -1},
	}})
	if v, _ := s.Cookie("JSESSIONID"); v != "two" {
		t.Fatalf("cookie not refreshed: %q", v)
	}
	if _, ok := s.Cookie("atlassian.xsrf.token"); ok {
		t.Fatal("expired cookie should be removed")
	}
	s.Absorb(nil)
}

func TestApply_PresentsStateOnRequest(t *testing.T) {
	s, _ := New("http://x")
	s.SetCookie("b", "2")
	s.SetCookie("a", "1")
	s.SetHeader("Authorization", "Basic abc")
	s.SetCSRFToken("tok")

	get := httpc.NewRequest(http.MethodGet, s.URL("/x"))
	s.Apply(get)
	if get.Header.Get("Cookie") != "a=1; b=2" {
		t.Fatalf("cookie header: %q", get.Header.Get("Cookie"))
	}
	if get.Header.Get("Authorization") != "Basic abc" {
		t.Fatal("authorization missing")
	}
	if get.Header.Get("X-XSRF-TOKEN") != "" {
		t.Fatal("GET should not carry the xsrf header")
	}

	put := httpc.NewRequest(http.MethodPut, s.URL("/x"))
	put.Header.Set("Authorization", "Bearer override")
	s.Apply(put)
	if put.Header.Get("X-XSRF-TOKEN") != "tok" || put.Header.Get("X-Atlassian-Token") != "no-check" {
		t.Fatalf("state-changing request missing xsrf headers: %v", put.Header)
	}
	if put.Header.Get("Authorization") != "Bearer override" {
		t.Fatal("explicit request header must win")
	}
}

func TestMarkAuthenticatedAndReset(t *testing.T) {
	s, _ := New("http://x")
	if s.Authenticated() {
		t.Fatal("fresh state must not be authenticated")
	}
	s.SetCookie("JSESSIONID", "keep")
	s.SetHeader("Authorization", "Basic x")
	s.MarkAuthenticated(SchemeBasic, "")
	if !s.Authenticated() || s.Identity() != "unknown" || s.Scheme() != SchemeBasic {
		t.Fatalf("unexpected state: scheme=%s id=%s", s.Scheme(), s.Identity())
	}
	s.Reset()
	if s.Authenticated() || s.Header("Authorization") != "" {
		t.Fatal("reset should clear auth")
	}
	if _, ok := s.Cookie("JSESSIONID"); !ok {
		t.Fatal("reset must keep cookies")
	}
}

func TestReset_KeepsTokenFromXSRFCookie(t *testing.T) {
	s, _ := New("http://x")
	s.Absorb(&httpc.Response{Cookies: []*http.Cookie{{Name: "atlassian.xsrf.token", Value: "TOK-1"}}})
	s.SetHeader("Authorization", "Basic x")
	s.Reset()
	if s.CSRFToken() != "TOK-1" {
		t.Fatalf("token should survive reset while its cookie is in the jar, got %q", s.CSRFToken())
	}

	s2, _ := New("http://x")
	s2.SetCSRFToken("from-meta")
	s2.Reset()
	if s2.CSRFToken() != "" {
		t.Fatalf("token without a cookie must be dropped, got %q", s2.CSRFToken())
	}
}

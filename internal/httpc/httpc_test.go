package httpc

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/loykin/zephyrrun/internal/common"
)

func newTestTransport(t *testing.T, opts Options) *RestyTransport {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = common.NewDiscardLogger()
	}
	tr, err := NewTransport(opts)
	if err != nil {
		t.Fatalf("NewTransport: %v", err)
	}
	return tr
}

func TestSend_PassesHeadersQueryAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Query().Get("cycleId") != "7" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		if r.Header.Get("X-Atlassian-Token") != "no-check" {
			t.Errorf("header missing")
		}
		b, _ := io.ReadAll(r.Body)
		if string(b) != `{"status":1}` {
			t.Errorf("body = %s", b)
		}
		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "abc"})
		w.WriteHeader(201)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tr := newTestTransport(t, Options{})
	req := NewRequest(http.MethodPut, srv.URL+"/x")
	req.Header.Set("X-Atlassian-Token", "no-check")
	req.Header.Set("Content-Type", "application/json")
	req.Query.Set("cycleId", "7")
	req.Body = []byte(`{"status":1}`)
	resp, err := tr.Send(context.Background(), req)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if resp.StatusCode != 201 || !resp.IsSuccess() || string(resp.Body) != `{"ok":true}` {
		t.Fatalf("unexpected response: %d %s", resp.StatusCode, resp.Body)
	}
	if len(resp.Cookies) != 1 || resp.Cookies[0].Name != "JSESSIONID" {
		t.Fatalf("cookies not surfaced: %+v", resp.Cookies)
	}
}

func TestSend_DoesNotFollowRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login.jsp" {
			t.Errorf("redirect was followed")
		}
		http.Redirect(w, r, "/login.jsp", http.StatusFound)
	}))
	defer srv.Close()

	tr := newTestTransport(t, Options{})
	resp, err := tr.Send(context.Background(), NewRequest(http.MethodGet, srv.URL+"/rest/api/2/myself"))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/login.jsp" {
		t.Fatalf("expected raw 302, got %d %v", resp.StatusCode, resp.Header)
	}
}

func TestSend_NoImplicitCookieJar(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 && r.Header.Get("Cookie") != "" {
			t.Errorf("transport replayed cookies on its own: %s", r.Header.Get("Cookie"))
		}
		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "abc", Path: "/"})
	}))
	defer srv.Close()

	tr := newTestTransport(t, Options{})
	for i := 0; i < 2; i++ {
		if _, err := tr.Send(context.Background(), NewRequest(http.MethodGet, srv.URL)); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
}

func TestSend_ConnectionRefusedIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	tr := newTestTransport(t, Options{Timeout: 2 * time.Second})
	_, err := tr.Send(context.Background(), NewRequest(http.MethodGet, addr))
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if te.Method != http.MethodGet || te.Unwrap() == nil {
		t.Fatalf("unexpected TransportError: %+v", te)
	}
}

func TestSend_InsecureAllowsSelfSigned(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	strict := newTestTransport(t, Options{})
	if _, err := strict.Send(context.Background(), NewRequest(http.MethodGet, srv.URL)); err == nil {
		t.Fatal("expected certificate error without insecure")
	}
	loose := newTestTransport(t, Options{Insecure: true})
	resp, err := loose.Send(context.Background(), NewRequest(http.MethodGet, srv.URL))
	if err != nil || resp.StatusCode != 200 {
		t.Fatalf("expected 200 with insecure, got %v %v", resp, err)
	}
}

func TestNewTransport_TLSVersionValidation(t *testing.T) {
	if _, err := NewTransport(Options{MinTLSVersion: "9.9", Logger: common.NewDiscardLogger()}); err == nil {
		t.Fatal("expected error for unknown version")
	}
	if _, err := NewTransport(Options{MinTLSVersion: "1.3", MaxTLSVersion: "1.2", Logger: common.NewDiscardLogger()}); err == nil {
		t.Fatal("expected error for inverted bounds")
	}
}

func TestParseTLSVersion(t *testing.T) {
	cases := map[string]uint16{"1.2": tls.VersionTLS12, "TLS13": tls.VersionTLS13, " 10 ": tls.VersionTLS10, "x": 0}
	for in, want := range cases {
		if got := ParseTLSVersion(in); got != want {
			t.Fatalf("ParseTLSVersion(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestHttpc_DefaultMinVersion(t *testing.T) {
	cfg := &tls.Config{}
	(&Httpc{TlsConfig: cfg}).New()
	if cfg.MinVersion != tls.VersionTLS12 {
		t.Fatalf("expected TLS1.2 floor, got %x", cfg.MinVersion)
	}
}

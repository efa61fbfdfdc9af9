package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/loykin/zephyrrun"
	"github.com/loykin/zephyrrun/internal/credential"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestConfigDoc_Load_NotRegularFile(t *testing.T) {
	var c ConfigDoc
	if err := c.Load(t.TempDir()); err == nil {
		t.Fatalf("expected error for directory path (not a regular file)")
	}
}

func TestConfigDoc_LoadAndBuildOptions(t *testing.T) {
	p := writeConfig(t, `
base_url: https://jira.example.com/
identity: alice
secret_from_env: ZR_TEST_SECRET
order: [session, basic]
strategies:
  session:
    login_paths: [/login.jsp]
client:
  insecure: true
  timeout: 15s
history:
  type: postgres
  table: zr_history
  postgres:
    host: db
    dbname: zr
`)
	t.Setenv("ZR_TEST_SECRET", "s3cret")
	var doc ConfigDoc
	if err := doc.Load(p); err != nil {
		t.Fatal(err)
	}
	opts, err := doc.ClientOptions(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if opts.Credentials.Secret() != "s3cret" || opts.Credentials.Identity() != "alice" {
		t.Fatalf("unexpected credentials %v", opts.Credentials)
	}
	if len(opts.Order) != 2 || opts.Order[0] != zephyrrun.SchemeSession {
		t.Fatalf("unexpected order %v", opts.Order)
	}
	if _, ok := opts.StrategyOptions[zephyrrun.SchemeSession]; !ok {
		t.Fatal("session strategy options missing")
	}
	if !opts.Insecure || opts.Timeout != 15*time.Second {
		t.Fatalf("client options not applied: %+v", opts)
	}

	sc := doc.StoreConfig()
	if sc == nil || sc.Driver != zephyrrun.DriverPostgresql || sc.Table != "zr_history" {
		t.Fatalf("unexpected store config %+v", sc)
	}
	pg, ok := sc.DriverConfig.(*zephyrrun.PostgresConfig)
	if !ok || pg.Host != "db" || pg.DBName != "zr" {
		t.Fatalf("unexpected postgres config %+v", sc.DriverConfig)
	}
}

func TestConfigDoc_Validation(t *testing.T) {
	cases := []struct {
		name string
		doc  ConfigDoc
	}{
		{"no base url", ConfigDoc{Identity: "a", Secret: "x"}},
		{"no secret", ConfigDoc{BaseURL: "http://j"}},
		{"bad order", ConfigDoc{BaseURL: "http://j", Identity: "a", Secret: "x", Order: []string{"kerberos"}}},
		{"bad timeout", ConfigDoc{BaseURL: "http://j", Identity: "a", Secret: "x", Client: ClientConfig{Timeout: "soon"}}},
		{"bad scheme", ConfigDoc{BaseURL: "http://j", Identity: "a", Secret: "x", Scheme: "ntlm"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.doc.ClientOptions(nil, nil); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestConfigDoc_SecretFromKeyring(t *testing.T) {
	ring := keyring.NewArrayKeyring(nil)
	prev := credential.Opener
	credential.Opener = func() (keyring.Keyring, error) { return ring, nil }
	t.Cleanup(func() { credential.Opener = prev })

	if err := credential.Set("ci/alice", "from-ring"); err != nil {
		t.Fatal(err)
	}
	doc := ConfigDoc{SecretFromKeyring: "ci/alice"}
	if got, err := doc.ResolveSecret(); err != nil || got != "from-ring" {
		t.Fatalf("got %q %v", got, err)
	}

	if err := credential.Set(credential.KeyFor("https://jira.example.com", "bob"), "saved"); err != nil {
		t.Fatal(err)
	}
	doc = ConfigDoc{BaseURL: "https://jira.example.com", Identity: "bob"}
	if got, err := doc.ResolveSecret(); err != nil || got != "saved" {
		t.Fatalf("login --save fallback: got %q %v", got, err)
	}
}

func TestConfigDoc_StoreConfigDefaults(t *testing.T) {
	var doc ConfigDoc
	sc := doc.StoreConfig()
	if sc == nil || sc.Driver != zephyrrun.DriverSqlite {
		t.Fatalf("expected sqlite default, got %+v", sc)
	}
	doc.History.Disabled = true
	if doc.StoreConfig() != nil {
		t.Fatal("disabled history must yield nil")
	}
}

func TestConfigDoc_SetupLogging(t *testing.T) {
	doc := ConfigDoc{Logging: LoggingConfig{Level: "DEBUG", Format: "json"}}
	l, err := doc.SetupLogging()
	if err != nil {
		t.Fatal(err)
	}
	if l.Level() != zephyrrun.LogLevelDebug {
		t.Fatalf("level %v", l.Level())
	}
	doc.Logging.Format = "xml"
	if _, err := doc.SetupLogging(); err == nil {
		t.Fatal("expected format error")
	}
}

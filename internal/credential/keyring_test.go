package credential

import (
	"errors"
	"testing"

	"github.com/99designs/keyring"
)

func useMemoryRing(t *testing.T) {
	t.Helper()
	ring := keyring.NewArrayKeyring(nil)
	prev := Opener
	Opener = func() (keyring.Keyring, error) { return ring, nil }
	t.Cleanup(func() { Opener = prev })
}

func TestSetGetDelete(t *testing.T) {
	useMemoryRing(t)
	if err := Set("jira.local/alice", "s3cret"); err != nil {
		t.Fatal(err)
	}
	v, err := Get("jira.local/alice")
	if err != nil || v != "s3cret" {
		t.Fatalf("Get = %q, %v", v, err)
	}
	if err := Delete("jira.local/alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := Get("jira.local/alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestResolve(t *testing.T) {
	useMemoryRing(t)
	_ = Set("k", "from-ring")
	t.Setenv("ZEPHYRRUN_TEST_SECRET", "from-env")

	tests := []struct {
		ref     string
		want    string
		wantErr bool
	}{
		{ref: "keyring:k", want: "from-ring"},
		{ref: "env:ZEPHYRRUN_TEST_SECRET", want: "from-env"},
		{ref: "plain", want: "plain"},
		{ref: "keyring:missing", wantErr: true},
		{ref: "env:ZEPHYRRUN_TEST_UNSET_VAR", wantErr: true},
	}
	for _, tt := range tests {
		got, err := Resolve(tt.ref)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("Resolve(%q) = %q, %v", tt.ref, got, err)
		}
	}
}

func TestKeyFor(t *testing.T) {
	if got := KeyFor("https://jira.example.com/", "alice"); got != "jira.example.com/alice" {
		t.Fatalf("KeyFor = %q", got)
	}
}

func TestRingConfig(t *testing.T) {
	env := func(m map[string]string) func(string) (string, bool) {
		return func(k string) (string, bool) { v, ok := m[k]; return v, ok }
	}

	cfg, err := ringConfig(env(nil))
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.AllowedBackends) != 5 || cfg.AllowedBackends[4] != keyring.FileBackend {
		t.Fatalf("file backend should be the last resort: %v", cfg.AllowedBackends)
	}

	cfg, err = ringConfig(env(map[string]string{EnvBackend: "File", EnvFileDir: "/tmp/zr", EnvFilePassword: "ci-pass"}))
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.AllowedBackends) != 1 || cfg.AllowedBackends[0] != keyring.FileBackend || cfg.FileDir != "/tmp/zr" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if pw, err := cfg.FilePasswordFunc("prompt"); err != nil || pw != "ci-pass" {
		t.Fatalf("file password = %q, %v", pw, err)
	}

	if _, err := ringConfig(env(map[string]string{EnvBackend: "vault"})); err == nil {
		t.Fatal("expected unknown backend error")
	}
}

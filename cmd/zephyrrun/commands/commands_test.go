package commands

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/loykin/zephyrrun/internal/jiratest"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func setupFake(t *testing.T) *jiratest.Server {
	t.Helper()
	srv := jiratest.New(jiratest.Options{
		Username:    "alice",
		Password:    "pw",
		DisplayName: "Alice A",
		Projects:    map[string]string{"PRJ": "10001"},
		Cycles:      []jiratest.Cycle{{ID: "7", Name: "Sprint 1", ProjectID: "10001"}},
		Executions: map[string][]jiratest.Execution{
			"7": {{ID: "100", IssueKey: "TEST-1", Status: -1}, {ID: "101", IssueKey: "TEST-123", Status: -1}},
		},
	})
	t.Cleanup(srv.Close)

	cfg := filepath.Join(t.TempDir(), "zephyrrun.yaml")
	body := "base_url: " + srv.URL + "\nidentity: alice\nsecret_from_env: ZR_CMD_SECRET\n" +
		"logging:\n  level: error\nhistory:\n  sqlite:\n    path: " + filepath.Join(t.TempDir(), "h.db") + "\n"
	if err := os.WriteFile(cfg, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ZR_CMD_SECRET", "pw")
	viper.Reset()
	viper.Set("config", cfg)
	t.Cleanup(viper.Reset)
	return srv
}

func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSetStatusByTestKeyThenHistory(t *testing.T) {
	srv := setupFake(t)

	out, err := run(t, SetStatusCmd, "TEST-123", "pass", "--project", "PRJ", "--cycle", "sprint 1", "--comment", "nightly")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "execution 101: PASS") {
		t.Fatalf("unexpected output %q", out)
	}
	puts := srv.CallsTo(http.MethodPut, "/rest/zapi/latest/execution/101/execute")
	if len(puts) != 1 || !strings.Contains(string(puts[0].Body), `"comment":"nightly"`) {
		t.Fatalf("unexpected update calls %+v", puts)
	}

	out, err = run(t, HistoryCmd, "--execution", "101")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "PASS") || !strings.Contains(out, "Alice A") {
		t.Fatalf("history missing transition: %q", out)
	}
}

func TestBulkInvalidStatusMakesNoCalls(t *testing.T) {
	srv := setupFake(t)
	if _, err := run(t, BulkCmd, "DONE", "1", "2"); err == nil {
		t.Fatal("expected invalid status error")
	}
	if _, err := run(t, BulkCmd, "PASS", " , "); err == nil {
		t.Fatal("expected empty list error")
	}
	if n := len(srv.Calls()); n != 0 {
		t.Fatalf("expected no remote calls, got %d", n)
	}
}

func TestLoginPrintsIdentity(t *testing.T) {
	setupFake(t)
	out, err := run(t, LoginCmd)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "logged in as Alice A via basic") {
		t.Fatalf("unexpected output %q", out)
	}
}

package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anivault/anivault/internal/tools/common"
)

func setTestEnv(t *testing.T) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/ip" {
			_, _ = io.WriteString(w, `{"ip":"203.0.113.9"}`)
			return
		}
		_, _ = io.WriteString(w, `{}`)
	}))
	t.Cleanup(srv.Close)

	t.Setenv("AUTH_URL", srv.URL)
	t.Setenv("AUTH_API_KEY", "anon-key")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_")))
	t.Setenv("IP_LOOKUP_URL", srv.URL+"/ip")
	t.Setenv("SESSION_FILE", filepath.Join(t.TempDir(), "session.json"))
	t.Setenv("SESSION_CONNECT_ATTEMPTS", "1")
	t.Setenv("LOG_LEVEL", "error")
}

func runCI(t *testing.T, args ...string) (common.CIResult, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--ci", "--env-file", filepath.Join(t.TempDir(), "none.env")}, args...))
	err := cmd.Execute()

	var res common.CIResult
	if decodeErr := json.Unmarshal(out.Bytes(), &res); decodeErr != nil {
		t.Fatalf("decode ci output %q: %v", out.String(), decodeErr)
	}
	return res, err
}

func TestCatalogListCI(t *testing.T) {
	setTestEnv(t)
	res, err := runCI(t, "catalog", "list", "--genre", "fantasy")
	if err != nil {
		t.Fatalf("catalog list: %v", err)
	}
	if !res.OK || res.Title != "anivault catalog list" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(res.Details) < 2 || res.Details[0] != "session: ready" || res.Details[1] != "0 entries" {
		t.Fatalf("unexpected details %v", res.Details)
	}
}

func TestWhoamiAnonymousFails(t *testing.T) {
	setTestEnv(t)
	res, err := runCI(t, "whoami")
	if err == nil || res.OK {
		t.Fatalf("expected failure when signed out, got %+v", res)
	}
	if res.Error != errNotSignedIn.Error() {
		t.Fatalf("unexpected error %q", res.Error)
	}
}

func TestPasswordFromEnvFallback(t *testing.T) {
	t.Setenv("ANIVAULT_PASSWORD", "from-env")
	if got := passwordFrom(""); got != "from-env" {
		t.Fatalf("expected env fallback, got %q", got)
	}
	if got := passwordFrom("flag"); got != "flag" {
		t.Fatalf("expected flag to win, got %q", got)
	}
}

func TestRootRegistersCommands(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"serve", "login", "register", "logout", "whoami", "catalog"} {
		if sub, _, err := cmd.Find([]string{name}); err != nil || sub.Name() != name {
			t.Fatalf("missing command %q", name)
		}
	}
	if sub, _, err := cmd.Find([]string{"catalog", "list"}); err != nil || sub.Name() != "list" {
		t.Fatal("missing catalog list command")
	}
}

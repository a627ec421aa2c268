package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/anivault/anivault/internal/config"
	"github.com/anivault/anivault/internal/di"
	"github.com/anivault/anivault/internal/domain"
	"github.com/anivault/anivault/internal/security"
)

const (
	jwtSecret = "integration-secret-integration-secret"
	password  = "correct-horse"
)

// fakeGoTrue serves the subset of the GoTrue API the client uses plus a
// public IP endpoint whose answer tests can change.
type fakeGoTrue struct {
	t        *testing.T
	srv      *httptest.Server
	verifier *security.TokenVerifier
	userID   uuid.UUID
	email    string

	mu      sync.Mutex
	ip      string
	logouts int
}

func newFakeGoTrue(t *testing.T) *fakeGoTrue {
	t.Helper()
	f := &fakeGoTrue{
		t:        t,
		verifier: security.NewTokenVerifier(jwtSecret, "authenticated"),
		userID:   uuid.New(),
		email:    "kira@example.com",
		ip:       "203.0.113.7",
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ip", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		ip := f.ip
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]string{"ip": ip})
	})
	mux.HandleFunc("GET /auth/v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"name": "GoTrue"})
	})
	mux.HandleFunc("POST /auth/v1/token", f.token)
	mux.HandleFunc("POST /auth/v1/logout", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		f.logouts++
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("PUT /auth/v1/user", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"id": f.userID.String()})
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeGoTrue) setIP(ip string) {
	f.mu.Lock()
	f.ip = ip
	f.mu.Unlock()
}

func (f *fakeGoTrue) logoutCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logouts
}

func (f *fakeGoTrue) token(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email        string `json:"email"`
		Password     string `json:"password"`
		RefreshToken string `json:"refresh_token"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	switch r.URL.Query().Get("grant_type") {
	case "password":
		if body.Email != f.email || body.Password != password {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "Invalid login credentials"})
			return
		}
	case "refresh_token":
		if body.RefreshToken == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "Invalid Refresh Token"})
			return
		}
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
		return
	}

	access, err := f.verifier.Sign(f.userID, f.email, time.Hour)
	if err != nil {
		f.t.Errorf("sign token: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  access,
		"token_type":    "bearer",
		"expires_in":    3600,
		"refresh_token": uuid.NewString(),
		"user":          map[string]string{"id": f.userID.String(), "email": f.email},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// deployment is one machine's persistent state: database and session file.
type deployment struct {
	t       *testing.T
	gotrue  *fakeGoTrue
	dbPath  string
	session string
}

func newDeployment(t *testing.T) *deployment {
	t.Helper()
	dir := t.TempDir()
	return &deployment{
		t:       t,
		gotrue:  newFakeGoTrue(t),
		dbPath:  filepath.Join(dir, "anivault.db"),
		session: filepath.Join(dir, "session.json"),
	}
}

func (d *deployment) dsn() string {
	return "file:" + d.dbPath + "?_busy_timeout=5000"
}

func (d *deployment) config() *config.Config {
	return &config.Config{
		AppEnv:                       "test",
		HTTPAddr:                     "127.0.0.1:0",
		AllowedOrigins:               []string{"http://127.0.0.1"},
		AuthURL:                      d.gotrue.srv.URL,
		AuthAPIKey:                   "anon-key",
		AuthJWTSecret:                jwtSecret,
		AuthTimeout:                  2 * time.Second,
		DBDriver:                     "sqlite",
		DBURL:                        d.dsn(),
		IPLookupURL:                  d.gotrue.srv.URL + "/ip",
		IPLookupTimeout:              time.Second,
		IPCacheTTL:                   time.Minute,
		IPSessionWindow:              time.Hour,
		IPPruneInterval:              time.Hour,
		IPRetention:                  24 * time.Hour,
		SessionFile:                  d.session,
		SessionInitLimit:             5 * time.Second,
		SessionRetries:               3,
		SessionRetryWait:             10 * time.Millisecond,
		OTELServiceName:              "anivault-test",
		LogLevel:                     "error",
		ShutdownTimeout:              2 * time.Second,
		ShutdownHTTPDrainTimeout:     time.Second,
		ShutdownObservabilityTimeout: time.Second,
	}
}

// seedProfile writes the profile row the identity provider's signup hook
// would have created.
func (d *deployment) seedProfile(role domain.Role) {
	d.t.Helper()
	db, err := gorm.Open(sqlite.Open(d.dsn()), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		d.t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.Profile{}, &domain.IPSession{}, &domain.AnimeEntry{}); err != nil {
		d.t.Fatalf("migrate: %v", err)
	}
	p := &domain.Profile{ID: d.gotrue.userID, Username: "kira", Email: d.gotrue.email, Role: string(role)}
	if err := db.Create(p).Error; err != nil {
		d.t.Fatalf("seed profile: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// running is a started process: container plus an HTTP front.
type running struct {
	c       *di.Container
	baseURL string
	client  *http.Client
}

// start boots a fresh process against the deployment's persistent state and
// waits for session startup to resolve.
func (d *deployment) start() *running {
	d.t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, cleanup, err := di.InitializeContainer(context.Background(), d.config(), logger, nil)
	if err != nil {
		d.t.Fatalf("initialize container: %v", err)
	}
	c.App.OnStop(cleanup)
	srv := httptest.NewServer(c.App.Server.Handler)
	d.t.Cleanup(func() {
		srv.Close()
		_ = c.App.Shutdown(context.Background())
	})
	if _, err := c.App.Bootstrap(context.Background()); err != nil {
		d.t.Logf("bootstrap finished with error: %v", err)
	}
	return &running{c: c, baseURL: srv.URL, client: srv.Client()}
}

func (r *running) stop(t *testing.T) {
	t.Helper()
	if err := r.c.App.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any) (*http.Response, apiEnvelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	var env apiEnvelope
	if resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
	}
	return resp, env
}

type sessionData struct {
	Authenticated bool   `json:"authenticated"`
	Initialized   bool   `json:"initialized"`
	Loading       bool   `json:"loading"`
	Phase         string `json:"phase"`
	Error         string `json:"error"`
	User          *struct {
		Username string `json:"username"`
		Role     string `json:"role"`
	} `json:"user"`
}

func (r *running) session(t *testing.T) sessionData {
	t.Helper()
	_, env := doJSON(t, r.client, http.MethodGet, r.baseURL+"/api/v1/session", nil)
	var s sessionData
	if err := json.Unmarshal(env.Data, &s); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return s
}

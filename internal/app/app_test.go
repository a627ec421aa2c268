package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anivault/anivault/internal/config"
	"github.com/anivault/anivault/internal/health"
	"github.com/anivault/anivault/internal/session"
)

type fakeBootstrapper struct {
	phase   session.Phase
	err     error
	started atomic.Int32
	closed  atomic.Int32
}

func (f *fakeBootstrapper) Start(context.Context) (session.Phase, error) {
	f.started.Add(1)
	return f.phase, f.err
}

func (f *fakeBootstrapper) Close() { f.closed.Add(1) }

type fakePruner struct {
	mu        sync.Mutex
	calls     int
	retention time.Duration
}

func (p *fakePruner) Prune(_ context.Context, retention time.Duration) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.retention = retention
	return 1, nil
}

func (p *fakePruner) snapshot() (int, time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls, p.retention
}

func testConfig() *config.Config {
	return &config.Config{
		ShutdownTimeout:              10 * time.Second,
		ShutdownHTTPDrainTimeout:     2 * time.Second,
		ShutdownObservabilityTimeout: 3 * time.Second,
		IPPruneInterval:              10 * time.Millisecond,
		IPRetention:                  48 * time.Hour,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewAssignsDependenciesAndTimeouts(t *testing.T) {
	cfg := testConfig()
	logger := discardLogger()
	server := &http.Server{Addr: ":8080", ReadHeaderTimeout: time.Second}
	readiness := health.NewProbeRunner(100*time.Millisecond, 50*time.Millisecond)
	released := false
	sess := &fakeBootstrapper{phase: session.PhaseReady}

	a := New(cfg, logger, server, nil, sess, nil, readiness)
	a.OnStop(func() { released = true })
	if a.Config != cfg || a.Logger != logger || a.Server != server || a.Readiness != readiness {
		t.Fatal("expected app dependencies to be assigned")
	}
	if a.ShutdownTimeout != cfg.ShutdownTimeout || a.ShutdownHTTPDrainTimeout != cfg.ShutdownHTTPDrainTimeout || a.ShutdownObservabilityTimeout != cfg.ShutdownObservabilityTimeout {
		t.Fatal("expected app shutdown timeouts copied from config")
	}

	a.StopBackgroundTasks()
	if !released || sess.closed.Load() != 1 {
		t.Fatal("expected release callback and session close")
	}
}

func TestBootstrapReportsPhase(t *testing.T) {
	sess := &fakeBootstrapper{phase: session.PhaseFailed, err: errors.New("connectivity")}
	a := New(testConfig(), discardLogger(), nil, nil, sess, nil, nil)
	phase, err := a.Bootstrap(context.Background())
	if phase != session.PhaseFailed || err == nil {
		t.Fatalf("unexpected bootstrap result %s %v", phase, err)
	}

	a = New(testConfig(), discardLogger(), nil, nil, nil, nil, nil)
	if phase, err := a.Bootstrap(context.Background()); phase != session.PhaseReady || err != nil {
		t.Fatalf("app without session manager should be ready, got %s %v", phase, err)
	}
}

func TestServeRunsStartupPruneAndShutsDown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	server := &http.Server{
		Handler:           http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }),
		ReadHeaderTimeout: time.Second,
	}
	sess := &fakeBootstrapper{phase: session.PhaseReady}
	pruner := &fakePruner{}
	released := atomic.Bool{}
	a := New(testConfig(), discardLogger(), server, nil, sess, pruner, nil)
	a.OnStop(func() { released.Store(true) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get("http://" + ln.Addr().String() + "/")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode != http.StatusNoContent {
				t.Fatalf("expected 204, got %d", resp.StatusCode)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	for {
		if calls, _ := pruner.snapshot(); calls > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("prune loop never ran")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
	if sess.started.Load() != 1 || sess.closed.Load() != 1 || !released.Load() {
		t.Fatalf("unexpected lifecycle: started=%d closed=%d released=%v", sess.started.Load(), sess.closed.Load(), released.Load())
	}
	if _, retention := pruner.snapshot(); retention != 48*time.Hour {
		t.Fatalf("expected configured retention, got %s", retention)
	}
	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("second shutdown should be a no-op: %v", err)
	}
}

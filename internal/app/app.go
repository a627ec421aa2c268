package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/anivault/anivault/internal/config"
	"github.com/anivault/anivault/internal/health"
	"github.com/anivault/anivault/internal/observability"
	"github.com/anivault/anivault/internal/session"
)

// Bootstrapper runs session startup.
type Bootstrapper interface {
	Start(ctx context.Context) (session.Phase, error)
	Close()
}

// IPSessionPruner removes IP session rows that have been idle past a
// retention period.
type IPSessionPruner interface {
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	Observability *observability.Runtime
	Session       Bootstrapper
	Pruner        IPSessionPruner
	Readiness     *health.ProbeRunner

	ShutdownTimeout              time.Duration
	ShutdownHTTPDrainTimeout     time.Duration
	ShutdownObservabilityTimeout time.Duration

	mu       sync.Mutex
	cleanups []func()
	stopOnce sync.Once
}

func New(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	sess Bootstrapper,
	pruner IPSessionPruner,
	readiness *health.ProbeRunner,
) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		Config:                       cfg,
		Logger:                       logger,
		Server:                       server,
		Observability:                runtime,
		Session:                      sess,
		Pruner:                       pruner,
		Readiness:                    readiness,
		ShutdownTimeout:              cfg.ShutdownTimeout,
		ShutdownHTTPDrainTimeout:     cfg.ShutdownHTTPDrainTimeout,
		ShutdownObservabilityTimeout: cfg.ShutdownObservabilityTimeout,
	}
}

// Bootstrap runs session startup and blocks until it resolves. A failed
// startup is reported but leaves the app usable anonymously.
func (a *App) Bootstrap(ctx context.Context) (session.Phase, error) {
	if a.Session == nil {
		return session.PhaseReady, nil
	}
	phase, err := a.Session.Start(ctx)
	if err != nil {
		a.Logger.Warn("session startup finished with error", "phase", string(phase), "error", err)
	} else {
		a.Logger.Info("session startup finished", "phase", string(phase))
	}
	return phase, err
}

// Run serves the local API until ctx is cancelled. Session startup runs
// alongside the listener so its progress is observable over HTTP.
func (a *App) Run(ctx context.Context) error {
	if a.Server == nil {
		return errors.New("app has no http server")
	}
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("http server starting", "addr", ln.Addr().String())
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		_, _ = a.Bootstrap(gctx)
		return nil
	})
	g.Go(func() error {
		a.pruneLoop(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		drainCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), a.ShutdownHTTPDrainTimeout)
		defer cancel()
		if err := a.Server.Shutdown(drainCtx); err != nil {
			return fmt.Errorf("drain http server: %w", err)
		}
		return nil
	})

	err := g.Wait()
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.ShutdownTimeout)
	defer cancel()
	return errors.Join(err, a.Shutdown(shutdownCtx))
}

func (a *App) pruneLoop(ctx context.Context) {
	if a.Pruner == nil || a.Config == nil || a.Config.IPPruneInterval <= 0 {
		return
	}
	ticker := time.NewTicker(a.Config.IPPruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.Pruner.Prune(ctx, a.Config.IPRetention)
			if err != nil {
				a.Logger.Warn("prune ip sessions failed", "error", err)
				continue
			}
			if n > 0 {
				a.Logger.Info("pruned ip sessions", "removed", n)
			}
		}
	}
}

// Shutdown stops background work and flushes telemetry.
// It is safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	a.stopOnce.Do(func() {
		a.StopBackgroundTasks()
		if a.Observability != nil {
			obsCtx, cancel := context.WithTimeout(ctx, a.ShutdownObservabilityTimeout)
			defer cancel()
			if shutdownErr := a.Observability.Shutdown(obsCtx); shutdownErr != nil {
				err = fmt.Errorf("shutdown observability: %w", shutdownErr)
			}
		}
	})
	return err
}

// OnStop registers fn to run when background tasks stop. Callbacks run in
// reverse registration order.
func (a *App) OnStop(fn func()) {
	if fn == nil {
		return
	}
	a.mu.Lock()
	a.cleanups = append(a.cleanups, fn)
	a.mu.Unlock()
}

func (a *App) StopBackgroundTasks() {
	if a.Session != nil {
		a.Session.Close()
	}
	a.mu.Lock()
	cleanups := a.cleanups
	a.cleanups = nil
	a.mu.Unlock()
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/anivault/anivault/internal/domain"
	"github.com/anivault/anivault/internal/i18n"
	"github.com/anivault/anivault/internal/identity"
	"github.com/anivault/anivault/internal/notify"
	"github.com/anivault/anivault/internal/observability"

	"github.com/google/uuid"
)

var (
	ErrConnectivity   = errors.New("identity provider unreachable")
	ErrInitTimeout    = errors.New("session initialization timed out")
	ErrProfileMissing = errors.New("profile not found for session")
	ErrAlreadyStarted = errors.New("session manager already started")
)

// IPValidator gates restored sessions on the client's public IP.
type IPValidator interface {
	CheckIPSession(ctx context.Context, userID uuid.UUID) bool
	TrackIPSession(ctx context.Context, userID uuid.UUID) error
	UpdateIPActivity(ctx context.Context, userID uuid.UUID)
}

// ProfileFetcher reads a user's profile without touching the Store. A nil
// user with nil error means no profile row exists.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

type Options struct {
	InitTimeout time.Duration
	Attempts    int
	RetryDelay  time.Duration
}

func (o Options) withDefaults() Options {
	if o.InitTimeout <= 0 {
		o.InitTimeout = 15 * time.Second
	}
	if o.Attempts <= 0 {
		o.Attempts = 3
	}
	if o.RetryDelay < 0 {
		o.RetryDelay = 0
	}
	return o
}

// Manager restores the session at startup and keeps the Store in step with
// provider auth events until Close.
type Manager struct {
	store    *Store
	provider identity.Provider
	tokens   identity.TokenStore
	ip       IPValidator
	profiles ProfileFetcher
	notifier notify.Notifier
	logger   *slog.Logger
	opts     Options

	mu      sync.Mutex
	phase   Phase
	started bool

	resolveOnce sync.Once
	done        chan struct{}
	timer       *time.Timer
	cancelSeq   context.CancelFunc

	sub          *identity.Subscription
	cancelEvents context.CancelFunc
	listener     sync.WaitGroup
	closeOnce    sync.Once
}

func NewManager(
	store *Store,
	provider identity.Provider,
	tokens identity.TokenStore,
	ip IPValidator,
	profiles ProfileFetcher,
	notifier notify.Notifier,
	logger *slog.Logger,
	opts Options,
) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = notify.Fanout{}
	}
	return &Manager{
		store:    store,
		provider: provider,
		tokens:   tokens,
		ip:       ip,
		profiles: profiles,
		notifier: notifier,
		logger:   logger,
		opts:     opts.withDefaults(),
		phase:    PhaseUninitialized,
		done:     make(chan struct{}),
	}
}

func (m *Manager) Store() *Store { return m.store }

func (m *Manager) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

func (m *Manager) setPhase(p Phase) {
	m.mu.Lock()
	prev := m.phase
	if !prev.Terminal() || p.Terminal() {
		m.phase = p
	}
	m.mu.Unlock()
	if prev != p {
		m.logger.Debug("session phase", "from", string(prev), "to", string(p))
	}
}

// Start subscribes to auth events and runs the startup sequence. It returns
// once the sequence resolves or the init timeout fires, whichever is first.
func (m *Manager) Start(ctx context.Context) (Phase, error) {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return m.Phase(), ErrAlreadyStarted
	}
	m.started = true
	m.mu.Unlock()

	m.store.SetLoading(true)

	eventsCtx, cancelEvents := context.WithCancel(context.WithoutCancel(ctx))
	sub := m.provider.Subscribe()
	m.listener.Add(1)
	go m.listen(eventsCtx, sub)

	seqCtx, cancelSeq := context.WithCancel(ctx)
	m.mu.Lock()
	m.sub = sub
	m.cancelEvents = cancelEvents
	m.cancelSeq = cancelSeq
	m.timer = time.AfterFunc(m.opts.InitTimeout, func() {
		m.resolve(ctx, outcome{phase: PhaseFailed, err: ErrInitTimeout, timedOut: true})
	})
	m.mu.Unlock()

	go func() {
		out := m.run(seqCtx)
		m.resolve(ctx, out)
	}()

	select {
	case <-m.done:
	case <-ctx.Done():
		m.resolve(ctx, outcome{phase: PhaseFailed, err: ctx.Err()})
		<-m.done
	}
	st := m.store.Snapshot()
	return m.Phase(), st.Err
}

// Done is closed once startup has resolved.
func (m *Manager) Done() <-chan struct{} { return m.done }

type outcome struct {
	phase    Phase
	session  *identity.Session
	user     *domain.User
	err      error
	signOut  bool
	timedOut bool
	notice   string
}

func (m *Manager) run(ctx context.Context) outcome {
	ctx, span := observability.StartSpan(ctx, "session.startup")
	defer span.End()

	m.setPhase(PhaseConnecting)
	if err := m.connect(ctx); err != nil {
		return outcome{phase: PhaseFailed, err: err, notice: i18n.ConnectionFailed}
	}

	m.setPhase(PhaseSessionCheck)
	sess, err := m.provider.GetSession(ctx)
	if err != nil {
		return outcome{phase: PhaseFailed, err: fmt.Errorf("get session: %w", err), notice: i18n.SessionError}
	}
	if sess == nil {
		return outcome{phase: PhaseReady}
	}

	m.setPhase(PhaseIPValidating)
	if !m.ip.CheckIPSession(ctx, sess.UserID) {
		m.logger.Info("restored session rejected by ip check", "user_id", sess.UserID.String())
		return outcome{phase: PhaseReady, signOut: true, notice: i18n.SessionExpired}
	}

	user, err := m.profiles.FetchProfile(ctx, sess.UserID)
	if err != nil {
		return outcome{phase: PhaseFailed, err: fmt.Errorf("load profile: %w", err), notice: i18n.ProfileLoadError}
	}
	if user == nil {
		return outcome{phase: PhaseFailed, err: ErrProfileMissing, signOut: true, notice: i18n.ProfileMissing}
	}
	return outcome{phase: PhaseReady, session: sess, user: user}
}

func (m *Manager) connect(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= m.opts.Attempts; attempt++ {
		lastErr = m.provider.Health(ctx)
		if lastErr == nil {
			return nil
		}
		m.logger.Warn("identity provider health check failed", "attempt", attempt, "max_attempts", m.opts.Attempts, "error", lastErr)
		if attempt == m.opts.Attempts {
			break
		}
		m.setPhase(PhaseRetrying)
		select {
		case <-time.After(m.opts.RetryDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
		m.setPhase(PhaseConnecting)
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrConnectivity, m.opts.Attempts, lastErr)
}

// resolve applies the first outcome and discards any later one.
func (m *Manager) resolve(ctx context.Context, out outcome) {
	m.resolveOnce.Do(func() {
		m.mu.Lock()
		if m.timer != nil {
			m.timer.Stop()
		}
		if m.cancelSeq != nil {
			m.cancelSeq()
		}
		m.mu.Unlock()

		m.apply(context.WithoutCancel(ctx), out)
		close(m.done)
	})
}

func (m *Manager) apply(ctx context.Context, out outcome) {
	if out.timedOut || out.signOut {
		m.forceSignOut(ctx)
	}

	switch {
	case out.phase == PhaseReady && out.session != nil:
		m.store.SetSession(out.session)
		m.store.SetUser(out.user)
		m.store.SetError(nil)
		m.ip.UpdateIPActivity(ctx, out.session.UserID)
	default:
		m.store.Reset()
		if out.err != nil {
			m.store.SetError(out.err)
		}
	}
	m.store.SetInitialized(true)
	m.store.SetLoading(false)
	m.setPhase(out.phase)

	result := string(out.phase)
	switch {
	case out.timedOut:
		result = "timeout"
		m.notifier.Notify(ctx, notify.LevelError, i18n.InitTimeout)
	case out.notice != "":
		level := notify.LevelError
		if out.phase == PhaseReady {
			level = notify.LevelInfo
		}
		m.notifier.Notify(ctx, level, out.notice)
	}
	observability.RecordSessionBootstrap(ctx, result)
	if out.err != nil {
		m.logger.Warn("session startup resolved with error", "phase", string(out.phase), "error", out.err)
		return
	}
	m.logger.Info("session startup resolved", "phase", string(out.phase), "authenticated", out.session != nil)
}

func (m *Manager) forceSignOut(ctx context.Context) {
	sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := m.provider.SignOut(sctx); err != nil {
		m.logger.Warn("forced sign out failed", "error", err)
	}
	if m.tokens != nil {
		if err := m.tokens.Clear(sctx); err != nil {
			m.logger.Warn("clear persisted session failed", "error", err)
		}
	}
}

func (m *Manager) listen(ctx context.Context, sub *identity.Subscription) {
	defer m.listener.Done()
	for {
		select {
		case ev := <-sub.C:
			m.handleEvent(ctx, ev)
		case <-sub.Done():
			return
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) handleEvent(ctx context.Context, ev identity.Event) {
	// Login owns the store while an interactive sign-in is in flight.
	if ev.Interactive && ev.Kind == identity.EventSignedIn {
		observability.RecordAuthStateEvent(ctx, string(ev.Kind), "interactive")
		return
	}
	defer m.store.SetLoading(false)

	if ev.Kind == identity.EventSignedOut || ev.Session == nil {
		// An already-empty store keeps its error.
		if st := m.store.Snapshot(); st.User != nil || st.Session != nil {
			m.store.Reset()
		}
		observability.RecordAuthStateEvent(ctx, string(ev.Kind), "reset")
		return
	}

	hadUser := m.store.Snapshot().User != nil
	if ev.Kind == identity.EventSignedIn {
		if err := m.ip.TrackIPSession(ctx, ev.Session.UserID); err != nil {
			m.logger.Warn("track ip session failed", "user_id", ev.Session.UserID.String(), "error", err)
		}
	}

	user, err := m.profiles.FetchProfile(ctx, ev.Session.UserID)
	if err != nil {
		m.store.Reset()
		m.store.SetError(fmt.Errorf("load profile: %w", err))
		observability.RecordAuthStateEvent(ctx, string(ev.Kind), "error")
		return
	}
	if user == nil {
		m.store.Reset()
		m.store.SetError(ErrProfileMissing)
		observability.RecordAuthStateEvent(ctx, string(ev.Kind), "profile_missing")
		return
	}

	m.store.SetSession(ev.Session)
	m.store.SetUser(user)
	m.store.SetError(nil)
	observability.RecordAuthStateEvent(ctx, string(ev.Kind), "applied")
	if ev.Kind == identity.EventSignedIn && !hadUser {
		m.notifier.Notify(ctx, notify.LevelSuccess, i18n.WelcomeBack)
	}
}

// Close stops event handling, cancels a pending startup and closes the Store.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		if m.timer != nil {
			m.timer.Stop()
		}
		if m.cancelSeq != nil {
			m.cancelSeq()
		}
		sub, cancelEvents := m.sub, m.cancelEvents
		m.mu.Unlock()
		if sub != nil {
			sub.Unsubscribe()
		}
		if cancelEvents != nil {
			cancelEvents()
		}
		m.listener.Wait()
		m.store.Close()
	})
}

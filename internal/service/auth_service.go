package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/anivault/anivault/internal/domain"
	"github.com/anivault/anivault/internal/i18n"
	"github.com/anivault/anivault/internal/identity"
	"github.com/anivault/anivault/internal/notify"
	"github.com/anivault/anivault/internal/observability"
	"github.com/anivault/anivault/internal/session"
)

type AuthService struct {
	provider identity.Provider
	tokens   identity.TokenStore
	store    *session.Store
	tracker  *IPSessionTracker
	profiles *ProfileLoader
	notifier notify.Notifier
	logger   *slog.Logger
}

func NewAuthService(
	provider identity.Provider,
	tokens identity.TokenStore,
	store *session.Store,
	tracker *IPSessionTracker,
	profiles *ProfileLoader,
	notifier notify.Notifier,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		provider: provider,
		tokens:   tokens,
		store:    store,
		tracker:  tracker,
		profiles: profiles,
		notifier: notifier,
		logger:   logger,
	}
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	ctx, span := observability.StartSpan(ctx, "auth.login")
	defer span.End()

	s.store.SetLoading(true)
	defer s.store.SetLoading(false)

	email = NormalizeEmail(email)
	sess, err := s.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		msg := LocalizeAuthError(err)
		s.notifier.Notify(ctx, notify.LevelError, msg)
		observability.RecordAuthLogin(ctx, "failure")
		return nil, &AuthError{Message: msg, Err: err}
	}
	s.store.SetSession(sess)

	if err := s.tracker.TrackIPSession(ctx, sess.UserID); err != nil {
		s.logger.Warn("track ip session after login failed", "user_id", sess.UserID.String(), "error", err)
	}

	user, err := s.profiles.LoadUserProfile(ctx, sess.UserID)
	if err != nil {
		s.store.Reset()
		observability.RecordAuthLogin(ctx, "failure")
		return nil, fmt.Errorf("login: %w", err)
	}
	if user == nil {
		s.store.Reset()
		s.notifier.Notify(ctx, notify.LevelError, i18n.ProfileMissing)
		observability.RecordAuthLogin(ctx, "failure")
		return nil, ErrProfileMissing
	}

	s.store.SetError(nil)
	s.store.SetInitialized(true)
	s.notifier.Notify(ctx, notify.LevelSuccess, i18n.LoginSuccess)
	observability.RecordAuthLogin(ctx, "success")
	observability.Audit(ctx, "auth.login", "user_id", user.ID.String())
	return user, nil
}

func (s *AuthService) Register(ctx context.Context, email, password, username string) error {
	ctx, span := observability.StartSpan(ctx, "auth.register")
	defer span.End()

	s.store.SetLoading(true)
	defer s.store.SetLoading(false)

	email = NormalizeEmail(email)
	_, err := s.provider.SignUp(ctx, email, password, map[string]any{
		"username": username,
		"role":     string(domain.RoleUser),
	})
	if err != nil {
		msg := LocalizeAuthError(err)
		s.notifier.Notify(ctx, notify.LevelError, msg)
		observability.RecordAuthRegister(ctx, "failure")
		return &AuthError{Message: msg, Err: err}
	}
	s.notifier.Notify(ctx, notify.LevelSuccess, i18n.RegisterSuccess)
	observability.RecordAuthRegister(ctx, "success")
	observability.Audit(ctx, "auth.register", "email", email)
	return nil
}

// Logout signs out remotely. Local state is cleared whatever the remote
// outcome.
func (s *AuthService) Logout(ctx context.Context) (err error) {
	ctx, span := observability.StartSpan(ctx, "auth.logout")
	defer span.End()

	s.store.SetLoading(true)
	defer func() {
		s.store.Reset()
		if s.tokens != nil {
			if clearErr := s.tokens.Clear(context.WithoutCancel(ctx)); clearErr != nil {
				s.logger.Warn("clear persisted session failed", "error", clearErr)
			}
		}
		if err != nil {
			s.notifier.Notify(ctx, notify.LevelError, i18n.LogoutFailed)
			observability.RecordAuthLogout(ctx, "failure")
			return
		}
		s.notifier.Notify(ctx, notify.LevelSuccess, i18n.LogoutSuccess)
		observability.RecordAuthLogout(ctx, "success")
	}()

	if err := s.provider.SignOut(ctx); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anivault/anivault/internal/domain"
	"github.com/anivault/anivault/internal/i18n"
	"github.com/anivault/anivault/internal/identity"
	"github.com/anivault/anivault/internal/notify"
	"github.com/anivault/anivault/internal/observability"
	"github.com/anivault/anivault/internal/repository"
	"github.com/anivault/anivault/internal/session"

	"github.com/google/uuid"
)

// ProfilePatch lists the profile fields a caller may change. Nil fields are
// kept.
type ProfilePatch struct {
	Username *string      `json:"username,omitempty"`
	Role     *domain.Role `json:"role,omitempty"`
}

type ProfileLoader struct {
	repo     repository.ProfileRepository
	store    *session.Store
	provider identity.Provider
	notifier notify.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewProfileLoader(repo repository.ProfileRepository, store *session.Store, provider identity.Provider, notifier notify.Notifier, logger *slog.Logger) *ProfileLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileLoader{repo: repo, store: store, provider: provider, notifier: notifier, logger: logger, now: time.Now}
}

// FetchProfile reads the profile for userID. A missing row yields (nil, nil);
// a failed read notifies the user.
func (l *ProfileLoader) FetchProfile(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	p, err := l.repo.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrProfileNotFound) {
		return nil, nil
	}
	if err != nil {
		l.notifier.Notify(ctx, notify.LevelError, i18n.ProfileLoadError)
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	return p.ToUser(), nil
}

// LoadUserProfile fetches the profile and writes the result, possibly nil,
// into the Store.
func (l *ProfileLoader) LoadUserProfile(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := l.FetchProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	l.store.SetUser(user)
	return user, nil
}

func (l *ProfileLoader) UpdateProfile(ctx context.Context, patch ProfilePatch) (*domain.User, error) {
	st := l.store.Snapshot()
	if st.Session == nil {
		return nil, ErrUnauthenticated
	}

	upd := repository.ProfileUpdate{}
	if patch.Username != nil {
		name := strings.TrimSpace(*patch.Username)
		if name == "" || len(name) > 64 {
			return nil, fmt.Errorf("%w: username must be 1-64 characters", ErrInvalidEntry)
		}
		upd.Username = &name
	}
	if patch.Role != nil {
		role := domain.Role(strings.ToLower(strings.TrimSpace(string(*patch.Role))))
		if !role.Valid() {
			return nil, ErrInvalidRole
		}
		if st.User == nil || (role != st.User.Role && !st.User.CanGrant(role)) {
			return nil, ErrForbidden
		}
		upd.Role = &role
	}

	userID := st.Session.UserID
	if err := l.repo.Update(ctx, userID, upd, l.now()); err != nil {
		l.notifier.Notify(ctx, notify.LevelError, i18n.ProfileUpdateErr)
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if upd.Username != nil && l.provider != nil {
		if _, err := l.provider.UpdateUser(ctx, map[string]any{"username": *upd.Username}); err != nil {
			l.logger.Warn("sync username to identity provider failed", "user_id", userID.String(), "error", err)
		}
	}

	user, err := l.LoadUserProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	l.notifier.Notify(ctx, notify.LevelSuccess, i18n.ProfileUpdated)
	observability.Audit(ctx, "profile.updated", "user_id", userID.String())
	return user, nil
}

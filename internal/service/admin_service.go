package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anivault/anivault/internal/domain"
	"github.com/anivault/anivault/internal/observability"
	"github.com/anivault/anivault/internal/repository"
	"github.com/anivault/anivault/internal/session"

	"github.com/google/uuid"
)

type AdminService struct {
	profiles repository.ProfileRepository
	store    *session.Store
	loader   *ProfileLoader
	now      func() time.Time
}

func NewAdminService(profiles repository.ProfileRepository, store *session.Store, loader *ProfileLoader) *AdminService {
	return &AdminService{profiles: profiles, store: store, loader: loader, now: time.Now}
}

func (s *AdminService) ListUsers(ctx context.Context, query repository.ProfileListQuery) (repository.PageResult[domain.User], error) {
	if _, err := s.requireManager(); err != nil {
		return repository.PageResult[domain.User]{}, err
	}
	page, err := s.profiles.ListPaged(ctx, query)
	if err != nil {
		return repository.PageResult[domain.User]{}, fmt.Errorf("list users: %w", err)
	}
	return repository.MapPage(page, func(p *domain.Profile) domain.User { return *p.ToUser() }), nil
}

// SetUserRole assigns role to userID. Admin and creator can only be granted,
// or taken away, by a creator or superadmin.
func (s *AdminService) SetUserRole(ctx context.Context, userID uuid.UUID, rawRole string) (*domain.User, error) {
	actor, err := s.requireManager()
	if err != nil {
		return nil, err
	}
	role := domain.Role(strings.ToLower(strings.TrimSpace(rawRole)))
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if !actor.CanGrant(role) {
		return nil, ErrForbidden
	}

	target, err := s.profiles.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrProfileNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	current := domain.ParseRole(target.Role)
	if current.Privileged() && !actor.CanGrant(current) {
		return nil, ErrForbidden
	}

	if err := s.profiles.Update(ctx, userID, repository.ProfileUpdate{Role: &role}, s.now()); err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update role: %w", err)
	}
	observability.RecordAdminRoleMutation(ctx, string(role))
	observability.Audit(ctx, "admin.role_changed", "actor_id", actor.ID.String(), "user_id", userID.String(), "from", string(current), "to", string(role))

	if userID == actor.ID {
		return s.loader.LoadUserProfile(ctx, userID)
	}
	target.Role = string(role)
	return target.ToUser(), nil
}

func (s *AdminService) requireManager() (*domain.User, error) {
	st := s.store.Snapshot()
	if !st.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if !st.User.CanManageRoles() {
		return nil, ErrForbidden
	}
	return st.User, nil
}

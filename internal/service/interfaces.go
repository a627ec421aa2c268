package service

import (
	"context"

	"github.com/anivault/anivault/internal/catalog"
	"github.com/anivault/anivault/internal/domain"
	"github.com/anivault/anivault/internal/repository"

	"github.com/google/uuid"
)

type AuthServiceInterface interface {
	Login(ctx context.Context, email, password string) (*domain.User, error)
	Register(ctx context.Context, email, password, username string) error
	Logout(ctx context.Context) error
}

type ProfileServiceInterface interface {
	UpdateProfile(ctx context.Context, patch ProfilePatch) (*domain.User, error)
}

type CatalogServiceInterface interface {
	List(ctx context.Context, criteria catalog.Criteria) ([]domain.AnimeEntry, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.AnimeEntry, error)
	Stats(ctx context.Context) (*CatalogStats, error)
	Create(ctx context.Context, in AnimeInput) (*domain.AnimeEntry, error)
	Update(ctx context.Context, id uuid.UUID, in AnimeInput) (*domain.AnimeEntry, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type AdminServiceInterface interface {
	ListUsers(ctx context.Context, query repository.ProfileListQuery) (repository.PageResult[domain.User], error)
	SetUserRole(ctx context.Context, userID uuid.UUID, role string) (*domain.User, error)
}

var (
	_ AuthServiceInterface    = (*AuthService)(nil)
	_ ProfileServiceInterface = (*ProfileLoader)(nil)
	_ CatalogServiceInterface = (*CatalogService)(nil)
	_ AdminServiceInterface   = (*AdminService)(nil)
)

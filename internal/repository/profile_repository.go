package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anivault/anivault/internal/domain"
	"github.com/anivault/anivault/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrProfileNotFound = errors.New("profile not found")

// ProfileUpdate carries the writable profile columns. Nil fields are left
// untouched.
type ProfileUpdate struct {
	Username *string
	Role     *domain.Role
}

type ProfileListQuery struct {
	PageRequest
	Email string
	Role  string
}

type ProfileRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
	Create(ctx context.Context, p *domain.Profile) error
	Update(ctx context.Context, id uuid.UUID, upd ProfileUpdate, at time.Time) error
	ListPaged(ctx context.Context, query ProfileListQuery) (PageResult[domain.Profile], error)
}

type GormProfileRepository struct{ db *gorm.DB }

func NewProfileRepository(db *gorm.DB) ProfileRepository { return &GormProfileRepository{db: db} }

func (r *GormProfileRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	var p domain.Profile
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&p).Error
	notFound := errors.Is(err, gorm.ErrRecordNotFound)
	observability.RecordRepositoryOperation(ctx, "profile", "find_by_id", observeOutcome(err, notFound))
	if notFound {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormProfileRepository) Create(ctx context.Context, p *domain.Profile) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).Create(p).Error
	observability.RecordRepositoryOperation(ctx, "profile", "create", observeOutcome(err, false))
	return err
}

func (r *GormProfileRepository) Update(ctx context.Context, id uuid.UUID, upd ProfileUpdate, at time.Time) error {
	updates := map[string]any{"updated_at": at.UTC()}
	if upd.Username != nil {
		updates["username"] = strings.TrimSpace(*upd.Username)
	}
	if upd.Role != nil {
		updates["role"] = string(*upd.Role)
	}
	res := r.db.WithContext(ctx).Model(&domain.Profile{}).Where("id = ?", id).Updates(updates)
	notFound := res.Error == nil && res.RowsAffected == 0
	observability.RecordRepositoryOperation(ctx, "profile", "update", observeOutcome(res.Error, notFound))
	if res.Error != nil {
		return res.Error
	}
	if notFound {
		return ErrProfileNotFound
	}
	return nil
}

func (r *GormProfileRepository) ListPaged(ctx context.Context, query ProfileListQuery) (PageResult[domain.Profile], error) {
	req := normalizePageRequest(query.PageRequest)
	result := PageResult[domain.Profile]{
		Page:     req.Page,
		PageSize: req.PageSize,
	}

	base := r.db.WithContext(ctx).Model(&domain.Profile{})
	if query.Email != "" {
		base = base.Where("email LIKE ?", strings.ToLower(query.Email)+"%")
	}
	if query.Role != "" {
		base = base.Where("role = ?", query.Role)
	}

	if err := base.Session(&gorm.Session{}).Count(&result.Total).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "profile", "list_paged", "error")
		return PageResult[domain.Profile]{}, err
	}
	if err := base.Order("created_at DESC").Order("id").Offset(req.Offset()).Limit(req.PageSize).Find(&result.Items).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "profile", "list_paged", "error")
		return PageResult[domain.Profile]{}, err
	}
	result.TotalPages = calcTotalPages(result.Total, req.PageSize)
	observability.RecordRepositoryOperation(ctx, "profile", "list_paged", "success")
	return result, nil
}

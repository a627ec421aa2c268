package repository

import (
	"context"
	"errors"

	"github.com/anivault/anivault/internal/domain"
	"github.com/anivault/anivault/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrAnimeNotFound = errors.New("anime entry not found")

type AnimeRepository interface {
	List(ctx context.Context) ([]domain.AnimeEntry, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.AnimeEntry, error)
	Create(ctx context.Context, entry *domain.AnimeEntry) error
	Update(ctx context.Context, entry *domain.AnimeEntry) error
	DeleteByID(ctx context.Context, id uuid.UUID) error
}

type GormAnimeRepository struct{ db *gorm.DB }

func NewAnimeRepository(db *gorm.DB) AnimeRepository { return &GormAnimeRepository{db: db} }

// List returns every entry, newest first.
func (r *GormAnimeRepository) List(ctx context.Context) ([]domain.AnimeEntry, error) {
	var entries []domain.AnimeEntry
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("title").Find(&entries).Error
	observability.RecordRepositoryOperation(ctx, "anime", "list", observeOutcome(err, false))
	return entries, err
}

func (r *GormAnimeRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.AnimeEntry, error) {
	var e domain.AnimeEntry
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&e).Error
	notFound := errors.Is(err, gorm.ErrRecordNotFound)
	observability.RecordRepositoryOperation(ctx, "anime", "find_by_id", observeOutcome(err, notFound))
	if notFound {
		return nil, ErrAnimeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *GormAnimeRepository) Create(ctx context.Context, entry *domain.AnimeEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).Create(entry).Error
	observability.RecordRepositoryOperation(ctx, "anime", "create", observeOutcome(err, false))
	return err
}

func (r *GormAnimeRepository) Update(ctx context.Context, entry *domain.AnimeEntry) error {
	res := r.db.WithContext(ctx).Model(&domain.AnimeEntry{}).Where("id = ?", entry.ID).
		Select("title", "title_english", "description", "genre", "year", "season", "studio",
			"episodes", "status", "poster_url", "video_url", "rating", "updated_at").
		Updates(entry)
	notFound := res.Error == nil && res.RowsAffected == 0
	observability.RecordRepositoryOperation(ctx, "anime", "update", observeOutcome(res.Error, notFound))
	if res.Error != nil {
		return res.Error
	}
	if notFound {
		return ErrAnimeNotFound
	}
	return nil
}

func (r *GormAnimeRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.AnimeEntry{})
	notFound := res.Error == nil && res.RowsAffected == 0
	observability.RecordRepositoryOperation(ctx, "anime", "delete", observeOutcome(res.Error, notFound))
	if res.Error != nil {
		return res.Error
	}
	if notFound {
		return ErrAnimeNotFound
	}
	return nil
}

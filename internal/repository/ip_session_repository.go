package repository

import (
	"context"
	"errors"
	"time"

	"github.com/anivault/anivault/internal/domain"
	"github.com/anivault/anivault/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrIPSessionNotFound = errors.New("ip session not found")

type IPSessionRepository interface {
	// Upsert records activity for (userID, ip), creating the row if needed.
	Upsert(ctx context.Context, userID uuid.UUID, ip string, at time.Time) error
	Find(ctx context.Context, userID uuid.UUID, ip string) (*domain.IPSession, error)
	// Touch moves last_active of an existing row. It reports whether a row
	// was updated.
	Touch(ctx context.Context, userID uuid.UUID, ip string, at time.Time) (bool, error)
	DeleteStale(ctx context.Context, before time.Time) (int64, error)
}

type GormIPSessionRepository struct{ db *gorm.DB }

func NewIPSessionRepository(db *gorm.DB) IPSessionRepository {
	return &GormIPSessionRepository{db: db}
}

func (r *GormIPSessionRepository) Upsert(ctx context.Context, userID uuid.UUID, ip string, at time.Time) error {
	rec := domain.IPSession{UserID: userID, IPAddress: ip, LastActive: at.UTC()}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "ip_address"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_active"}),
	}).Create(&rec).Error
	observability.RecordRepositoryOperation(ctx, "ip_session", "upsert", observeOutcome(err, false))
	return err
}

func (r *GormIPSessionRepository) Find(ctx context.Context, userID uuid.UUID, ip string) (*domain.IPSession, error) {
	var rec domain.IPSession
	err := r.db.WithContext(ctx).Where("user_id = ? AND ip_address = ?", userID, ip).Take(&rec).Error
	notFound := errors.Is(err, gorm.ErrRecordNotFound)
	observability.RecordRepositoryOperation(ctx, "ip_session", "find", observeOutcome(err, notFound))
	if notFound {
		return nil, ErrIPSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *GormIPSessionRepository) Touch(ctx context.Context, userID uuid.UUID, ip string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.IPSession{}).
		Where("user_id = ? AND ip_address = ?", userID, ip).
		Update("last_active", at.UTC())
	observability.RecordRepositoryOperation(ctx, "ip_session", "touch", observeOutcome(res.Error, res.Error == nil && res.RowsAffected == 0))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormIPSessionRepository) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("last_active < ?", before.UTC()).Delete(&domain.IPSession{})
	observability.RecordRepositoryOperation(ctx, "ip_session", "delete_stale", observeOutcome(res.Error, false))
	return res.RowsAffected, res.Error
}

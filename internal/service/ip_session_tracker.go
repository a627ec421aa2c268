package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anivault/anivault/internal/netutil"
	"github.com/anivault/anivault/internal/observability"
	"github.com/anivault/anivault/internal/repository"

	"github.com/google/uuid"
)

// IPSessionTracker records which public IP a user was last active from and
// treats a restored session as valid only while that record is fresh.
type IPSessionTracker struct {
	repo     repository.IPSessionRepository
	resolver netutil.PublicIPResolver
	window   time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

func NewIPSessionTracker(repo repository.IPSessionRepository, resolver netutil.PublicIPResolver, window time.Duration, logger *slog.Logger) *IPSessionTracker {
	if window <= 0 {
		window = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IPSessionTracker{repo: repo, resolver: resolver, window: window, now: time.Now, logger: logger}
}

func (t *IPSessionTracker) TrackIPSession(ctx context.Context, userID uuid.UUID) error {
	ip, err := t.resolver.PublicIP(ctx)
	if err != nil {
		return fmt.Errorf("resolve public ip: %w", err)
	}
	if err := t.repo.Upsert(ctx, userID, ip, t.now()); err != nil {
		return fmt.Errorf("upsert ip session: %w", err)
	}
	return nil
}

func (t *IPSessionTracker) CheckIPSession(ctx context.Context, userID uuid.UUID) bool {
	ip, err := t.resolver.PublicIP(ctx)
	if err != nil {
		t.logger.Warn("ip session check without public ip", "user_id", userID.String(), "error", err)
		observability.RecordIPSessionCheck(ctx, "ip_unavailable")
		return false
	}
	rec, err := t.repo.Find(ctx, userID, ip)
	if errors.Is(err, repository.ErrIPSessionNotFound) {
		observability.RecordIPSessionCheck(ctx, "missing")
		return false
	}
	if err != nil {
		t.logger.Warn("ip session lookup failed", "user_id", userID.String(), "error", err)
		observability.RecordIPSessionCheck(ctx, "error")
		return false
	}
	if !rec.FreshAt(t.now(), t.window) {
		observability.RecordIPSessionCheck(ctx, "stale")
		return false
	}
	observability.RecordIPSessionCheck(ctx, "fresh")
	return true
}

func (t *IPSessionTracker) UpdateIPActivity(ctx context.Context, userID uuid.UUID) {
	ip, err := t.resolver.PublicIP(ctx)
	if err != nil {
		return
	}
	if _, err := t.repo.Touch(ctx, userID, ip, t.now()); err != nil {
		t.logger.Warn("ip activity update failed", "user_id", userID.String(), "error", err)
	}
}

// Prune removes records idle for longer than retention.
func (t *IPSessionTracker) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	return t.repo.DeleteStale(ctx, t.now().Add(-retention))
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/anivault/anivault/internal/netutil"

	"github.com/google/uuid"
)

func TestCheckIPSessionWindowBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	f.tracker.now = func() time.Time { return now }

	if f.tracker.CheckIPSession(ctx, userID) {
		t.Fatal("missing record must be invalid")
	}

	if err := f.ipRepo.Upsert(ctx, userID, testIP, now.Add(-time.Hour)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if f.tracker.CheckIPSession(ctx, userID) {
		t.Fatal("record exactly one hour old must be stale")
	}

	if err := f.ipRepo.Upsert(ctx, userID, testIP, now.Add(-time.Hour+time.Second)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !f.tracker.CheckIPSession(ctx, userID) {
		t.Fatal("record one second inside the window must be fresh")
	}
}

func TestCheckIPSessionWithoutPublicIP(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	_ = f.ipRepo.Upsert(ctx, userID, testIP, time.Now())

	tr := NewIPSessionTracker(f.ipRepo, netutil.StaticResolver{Err: netutil.ErrIPUnavailable}, time.Hour, nil)
	if tr.CheckIPSession(ctx, userID) {
		t.Fatal("unavailable ip must fail the check")
	}
	if err := tr.TrackIPSession(ctx, userID); err == nil {
		t.Fatal("track must report ip resolution failure")
	}
	tr.UpdateIPActivity(ctx, userID)
}

func TestUpdateIPActivityAndPrune(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	start := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	now := start
	f.tracker.now = func() time.Time { return now }

	if err := f.tracker.TrackIPSession(ctx, userID); err != nil {
		t.Fatalf("track: %v", err)
	}
	now = start.Add(50 * time.Minute)
	f.tracker.UpdateIPActivity(ctx, userID)
	now = start.Add(100 * time.Minute)
	if !f.tracker.CheckIPSession(ctx, userID) {
		t.Fatal("activity refresh should keep the session fresh")
	}

	now = start.Add(48 * time.Hour)
	removed, err := f.tracker.Prune(ctx, 24*time.Hour)
	if err != nil || removed != 1 {
		t.Fatalf("prune: removed=%d err=%v", removed, err)
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/anivault/anivault/internal/catalog"
	"github.com/anivault/anivault/internal/domain"
	"github.com/anivault/anivault/internal/observability"
	"github.com/anivault/anivault/internal/repository"
	"github.com/anivault/anivault/internal/session"

	"github.com/google/uuid"
)

const entryMissTTL = 30 * time.Second

var validSeasons = map[string]struct{}{
	"":       {},
	"winter": {},
	"spring": {},
	"summer": {},
	"fall":   {},
}

// AnimeInput is the writable part of a catalog entry.
type AnimeInput struct {
	Title        string  `json:"title"`
	TitleEnglish string  `json:"title_english"`
	Description  string  `json:"description"`
	Genre        string  `json:"genre"`
	Year         int     `json:"year"`
	Season       string  `json:"season"`
	Studio       string  `json:"studio"`
	Episodes     int     `json:"episodes"`
	Status       string  `json:"status"`
	PosterURL    string  `json:"poster_url"`
	VideoURL     string  `json:"video_url"`
	Rating       float64 `json:"rating"`
}

func (in AnimeInput) normalized() AnimeInput {
	in.Title = strings.TrimSpace(in.Title)
	in.TitleEnglish = strings.TrimSpace(in.TitleEnglish)
	in.Genre = strings.TrimSpace(in.Genre)
	in.Season = strings.ToLower(strings.TrimSpace(in.Season))
	in.Studio = strings.TrimSpace(in.Studio)
	in.Status = strings.TrimSpace(in.Status)
	return in
}

func (in AnimeInput) validate(now time.Time) error {
	switch {
	case in.Title == "" || len(in.Title) > 255:
		return fmt.Errorf("%w: title must be 1-255 characters", ErrInvalidEntry)
	case in.Year < 1900 || in.Year > now.Year()+5:
		return fmt.Errorf("%w: year out of range", ErrInvalidEntry)
	case in.Episodes < 0:
		return fmt.Errorf("%w: episodes must not be negative", ErrInvalidEntry)
	case in.Rating < 0 || in.Rating > 10:
		return fmt.Errorf("%w: rating must be within 0-10", ErrInvalidEntry)
	}
	if _, ok := validSeasons[in.Season]; !ok {
		return fmt.Errorf("%w: unknown season %q", ErrInvalidEntry, in.Season)
	}
	return nil
}

func (in AnimeInput) apply(e *domain.AnimeEntry) {
	e.Title = in.Title
	e.TitleEnglish = in.TitleEnglish
	e.Description = in.Description
	e.Genre = in.Genre
	e.Year = in.Year
	e.Season = in.Season
	e.Studio = in.Studio
	e.Episodes = in.Episodes
	e.Status = in.Status
	e.PosterURL = in.PosterURL
	e.VideoURL = in.VideoURL
	e.Rating = in.Rating
}

// CatalogStats backs the browse view's selector options.
type CatalogStats struct {
	Total    int            `json:"total"`
	ByGenre  map[string]int `json:"by_genre"`
	BySeason map[string]int `json:"by_season"`
	ByYear   map[int]int    `json:"by_year"`
	Genres   []string       `json:"genres"`
	Years    []int          `json:"years"`
	Studios  []string       `json:"studios"`
}

type CatalogService struct {
	repo   repository.AnimeRepository
	store  *session.Store
	misses EntryMissCache
	logger *slog.Logger
	now    func() time.Time
}

func NewCatalogService(repo repository.AnimeRepository, store *session.Store, misses EntryMissCache, logger *slog.Logger) *CatalogService {
	if misses == nil {
		misses = NoopEntryMissCache{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogService{repo: repo, store: store, misses: misses, logger: logger, now: time.Now}
}

func (s *CatalogService) List(ctx context.Context, criteria catalog.Criteria) ([]domain.AnimeEntry, error) {
	entries, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	return catalog.Filter(entries, criteria), nil
}

func (s *CatalogService) Get(ctx context.Context, id uuid.UUID) (*domain.AnimeEntry, error) {
	if missing, err := s.misses.IsMissing(ctx, id.String()); err != nil {
		s.logger.Warn("catalog miss cache read failed", "error", err)
	} else if missing {
		return nil, ErrEntryNotFound
	}
	entry, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrAnimeNotFound) {
		if err := s.misses.MarkMissing(ctx, id.String(), entryMissTTL); err != nil {
			s.logger.Warn("catalog miss cache write failed", "error", err)
		}
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get catalog entry: %w", err)
	}
	return entry, nil
}

func (s *CatalogService) Stats(ctx context.Context) (*CatalogStats, error) {
	entries, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog stats: %w", err)
	}
	stats := &CatalogStats{
		Total:    len(entries),
		ByGenre:  map[string]int{},
		BySeason: map[string]int{},
		ByYear:   map[int]int{},
	}
	studios := map[string]struct{}{}
	for _, e := range entries {
		if e.Genre != "" {
			stats.ByGenre[e.Genre]++
		}
		if e.Season != "" {
			stats.BySeason[e.Season]++
		}
		if e.Year != 0 {
			stats.ByYear[e.Year]++
		}
		if e.Studio != "" {
			studios[e.Studio] = struct{}{}
		}
	}
	for g := range stats.ByGenre {
		stats.Genres = append(stats.Genres, g)
	}
	for y := range stats.ByYear {
		stats.Years = append(stats.Years, y)
	}
	for st := range studios {
		stats.Studios = append(stats.Studios, st)
	}
	sort.Strings(stats.Genres)
	sort.Sort(sort.Reverse(sort.IntSlice(stats.Years)))
	sort.Strings(stats.Studios)
	return stats, nil
}

func (s *CatalogService) Create(ctx context.Context, in AnimeInput) (*domain.AnimeEntry, error) {
	actor, err := s.requireEditor()
	if err != nil {
		return nil, err
	}
	in = in.normalized()
	if err := in.validate(s.now()); err != nil {
		observability.RecordCatalogMutation(ctx, "create", "invalid")
		return nil, err
	}
	entry := &domain.AnimeEntry{}
	in.apply(entry)
	if err := s.repo.Create(ctx, entry); err != nil {
		observability.RecordCatalogMutation(ctx, "create", "error")
		return nil, fmt.Errorf("create catalog entry: %w", err)
	}
	if err := s.misses.Reset(ctx); err != nil {
		s.logger.Warn("catalog miss cache reset failed", "error", err)
	}
	observability.RecordCatalogMutation(ctx, "create", "success")
	observability.Audit(ctx, "catalog.created", "entry_id", entry.ID.String(), "actor_id", actor.ID.String())
	return entry, nil
}

func (s *CatalogService) Update(ctx context.Context, id uuid.UUID, in AnimeInput) (*domain.AnimeEntry, error) {
	actor, err := s.requireEditor()
	if err != nil {
		return nil, err
	}
	in = in.normalized()
	if err := in.validate(s.now()); err != nil {
		observability.RecordCatalogMutation(ctx, "update", "invalid")
		return nil, err
	}
	entry, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrAnimeNotFound) {
		observability.RecordCatalogMutation(ctx, "update", "not_found")
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load catalog entry: %w", err)
	}
	in.apply(entry)
	entry.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, entry); err != nil {
		if errors.Is(err, repository.ErrAnimeNotFound) {
			return nil, ErrEntryNotFound
		}
		observability.RecordCatalogMutation(ctx, "update", "error")
		return nil, fmt.Errorf("update catalog entry: %w", err)
	}
	observability.RecordCatalogMutation(ctx, "update", "success")
	observability.Audit(ctx, "catalog.updated", "entry_id", id.String(), "actor_id", actor.ID.String())
	return entry, nil
}

func (s *CatalogService) Delete(ctx context.Context, id uuid.UUID) error {
	actor, err := s.requireEditor()
	if err != nil {
		return err
	}
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrAnimeNotFound) {
			observability.RecordCatalogMutation(ctx, "delete", "not_found")
			return ErrEntryNotFound
		}
		observability.RecordCatalogMutation(ctx, "delete", "error")
		return fmt.Errorf("delete catalog entry: %w", err)
	}
	observability.RecordCatalogMutation(ctx, "delete", "success")
	observability.Audit(ctx, "catalog.deleted", "entry_id", id.String(), "actor_id", actor.ID.String())
	return nil
}

func (s *CatalogService) requireEditor() (*domain.User, error) {
	st := s.store.Snapshot()
	if !st.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if !st.User.CanEditCatalog() {
		return nil, ErrForbidden
	}
	return st.User, nil
}

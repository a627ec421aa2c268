// Package catalog filters anime entries for the browse view.
package catalog

import (
	"strconv"
	"strings"

	"github.com/anivault/anivault/internal/domain"
)

// Wildcard matches every value of a selector.
const Wildcard = "all"

// Criteria selects entries. Empty or Wildcard selectors match everything; an
// empty Query matches every title.
type Criteria struct {
	Query  string `json:"query"`
	Genre  string `json:"genre"`
	Year   string `json:"year"`
	Season string `json:"season"`
	Studio string `json:"studio"`
}

// Filter returns the entries matching c, preserving input order. The query
// is a case-insensitive substring match on the title or English title;
// selectors compare exactly.
func Filter(entries []domain.AnimeEntry, c Criteria) []domain.AnimeEntry {
	query := strings.ToLower(c.Query)
	out := make([]domain.AnimeEntry, 0, len(entries))
	for _, e := range entries {
		if !matchesQuery(e, query) {
			continue
		}
		if !selected(c.Genre, e.Genre) || !selected(c.Season, e.Season) || !selected(c.Studio, e.Studio) {
			continue
		}
		if !selected(c.Year, strconv.Itoa(e.Year)) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func matchesQuery(e domain.AnimeEntry, query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(e.Title), query) ||
		strings.Contains(strings.ToLower(e.TitleEnglish), query)
}

func selected(want, got string) bool {
	return want == "" || want == Wildcard || want == got
}

package search

import (
	"sort"
	"strings"

	"github.com/xaenox/promptlab/internal/models"
)

// Criteria is the navigation state the visible list is derived from.
// Favorites takes precedence over CategoryID.
type Criteria struct {
	Favorites  bool
	CategoryID *string
	Query      string
}

// Filter returns the prompts matching c, most recently updated first. Prompts
// with equal UpdatedAt keep their input order. The input slice is not modified.
func Filter(prompts []models.Prompt, c Criteria) []models.Prompt {
	q := strings.ToLower(c.Query)

	out := make([]models.Prompt, 0, len(prompts))
	for _, p := range prompts {
		switch {
		case c.Favorites:
			if !p.IsFavorite {
				continue
			}
		case c.CategoryID != nil:
			// Exact match only, prompts in child categories are not included.
			if !p.InCategory(*c.CategoryID) {
				continue
			}
		}
		if q != "" && !matches(p, q) {
			continue
		}
		out = append(out, p)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

func matches(p models.Prompt, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(p.Title), lowerQuery) ||
		strings.Contains(strings.ToLower(p.Content), lowerQuery)
}

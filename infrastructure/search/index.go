// Package search provides the competitor index used for id lookups and
// partial id/name search.
package search

import (
	"cmp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/ahrav/go-cuberank/internal/domain"
	"github.com/ahrav/go-cuberank/internal/ports"
)

var _ ports.CompetitorIndex = (*Index)(nil)

// entry is a competitor with its precomputed search keys.
type entry struct {
	competitor domain.Competitor
	id         string
	name       string
	words      []string
}

// Index is an immutable lookup structure over competitors.
//
// Search is case-insensitive using Unicode case folding and ignores
// diacritics, so "labas" finds "Zoltán Lábas". Entries are kept sorted by
// id so results come out in ascending id order without a per-query sort.
//
// Concurrency: built once and never mutated; safe for concurrent use.
type Index struct {
	byID    map[string]int
	entries []entry
}

// NewIndex builds an index over competitors. Input order does not matter.
// If an id appears more than once the first occurrence wins.
func NewIndex(competitors []domain.Competitor) *Index {
	entries := make([]entry, 0, len(competitors))
	for _, c := range competitors {
		entries = append(entries, entry{
			competitor: c,
			id:         Normalize(c.ID),
			name:       Normalize(c.Name),
			words:      strings.Fields(Normalize(c.Name)),
		})
	}
	slices.SortStableFunc(entries, func(a, b entry) int {
		return strings.Compare(a.competitor.ID, b.competitor.ID)
	})

	byID := make(map[string]int, len(entries))
	kept := entries[:0]
	for _, e := range entries {
		if _, dup := byID[e.competitor.ID]; dup {
			continue
		}
		byID[e.competitor.ID] = len(kept)
		kept = append(kept, e)
	}

	return &Index{byID: byID, entries: kept}
}

// Len returns the number of indexed competitors.
func (ix *Index) Len() int { return len(ix.entries) }

// ByID performs an exact, case-sensitive id lookup.
func (ix *Index) ByID(id string) (domain.Competitor, bool) {
	i, ok := ix.byID[id]
	if !ok {
		return domain.Competitor{}, false
	}
	return ix.entries[i].competitor, true
}

// Search returns competitors whose id or display name contains query.
// A blank query matches nothing. Results are ordered by ascending id and
// capped at limit when limit > 0.
func (ix *Index) Search(query string, limit int) []domain.Competitor {
	q := Normalize(strings.TrimSpace(query))
	if q == "" {
		return []domain.Competitor{}
	}

	out := make([]domain.Competitor, 0)
	for _, e := range ix.entries {
		if strings.Contains(e.id, q) || strings.Contains(e.name, q) {
			out = append(out, e.competitor)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out
}

// Suggest returns competitors whose name, or one word of it, is within
// edit distance of query. Similarity is 1 - distance/longer rune length and
// must reach threshold. Results are ordered by best similarity, then id,
// and capped at limit when limit > 0. A blank query suggests nothing.
func (ix *Index) Suggest(query string, threshold float64, limit int) []domain.Competitor {
	q := Normalize(strings.TrimSpace(query))
	if q == "" {
		return []domain.Competitor{}
	}

	type scored struct {
		index int
		score float64
	}
	var hits []scored
	for i, e := range ix.entries {
		best := similarity(q, e.name)
		for _, w := range e.words {
			best = max(best, similarity(q, w))
		}
		if best >= threshold {
			hits = append(hits, scored{index: i, score: best})
		}
	}
	// entries are already in id order, so a stable sort keeps ties by id.
	slices.SortStableFunc(hits, func(a, b scored) int {
		return cmp.Compare(b.score, a.score)
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	out := make([]domain.Competitor, 0, len(hits))
	for _, h := range hits {
		out = append(out, ix.entries[h.index].competitor)
	}
	return out
}

// similarity maps the Levenshtein distance of two normalized strings to
// [0, 1], where 1 means equal.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// Normalize folds case and strips combining marks so that strings compare
// equal regardless of case and accents.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC, cases.Fold())
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-cuberank/internal/domain"
)

func fixtureCompetitors() []domain.Competitor {
	return []domain.Competitor{
		{ID: "2009BACH02", Name: "Sophie Bachmann", Country: "Germany"},
		{ID: "2007HABE01", Name: "Tim Habermaas", Gender: domain.GenderMale, Country: "Germany"},
		{ID: "2009BACH01", Name: "Benoit Bacher", Gender: domain.GenderMale, Country: "France"},
		{ID: "1982LABA01", Name: "Zoltán Lábas", Gender: domain.GenderMale, Country: "Hungary"},
		{ID: "1982LAET01", Name: "Luc Van Laethem", Gender: domain.GenderMale, Country: "Belgium"},
		{ID: "2009BACA01", Name: "Marco Bacallao", Country: "Cuba"},
		{ID: "2009BACK01", Name: "Anna Backlund", Country: "Sweden"},
		{ID: "1982FRID01", Name: "Jessica Fridrich", Gender: domain.GenderFemale, Country: "Czech Republic"},
	}
}

func ids(cs []domain.Competitor) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.ID)
	}
	return out
}

func TestIndex_ByID(t *testing.T) {
	ix := NewIndex(fixtureCompetitors())

	c, ok := ix.ByID("2007HABE01")
	require.True(t, ok)
	assert.Equal(t, "Tim Habermaas", c.Name)

	_, ok = ix.ByID("2007habe01")
	assert.False(t, ok, "id lookup is exact")

	_, ok = ix.ByID("")
	assert.False(t, ok)
	assert.Equal(t, 8, ix.Len())
}

func TestIndex_Search(t *testing.T) {
	ix := NewIndex(fixtureCompetitors())

	tests := []struct {
		name  string
		query string
		limit int
		want  []string
	}{
		{
			name:  "id prefix",
			query: "2009BAC",
			want:  []string{"2009BACA01", "2009BACH01", "2009BACH02", "2009BACK01"},
		},
		{
			name:  "id prefix is case-insensitive",
			query: "1982l",
			want:  []string{"1982LABA01", "1982LAET01"},
		},
		{
			name:  "exact id",
			query: "1982FRID01",
			want:  []string{"1982FRID01"},
		},
		{
			name:  "name substring",
			query: "habermaas",
			want:  []string{"2007HABE01"},
		},
		{
			name:  "name substring ignores accents",
			query: "labas",
			want:  []string{"1982LABA01"},
		},
		{
			name:  "accented query matches plain name",
			query: "Fridrích",
			want:  []string{"1982FRID01"},
		},
		{
			name:  "matches across id and name",
			query: "bach",
			want:  []string{"2009BACH01", "2009BACH02"},
		},
		{
			name:  "limit truncates in id order",
			query: "2009BAC",
			limit: 2,
			want:  []string{"2009BACA01", "2009BACH01"},
		},
		{
			name:  "empty query matches nothing",
			query: "",
			want:  []string{},
		},
		{
			name:  "blank query matches nothing",
			query: "   ",
			want:  []string{},
		},
		{
			name:  "no match",
			query: "zzz",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(ix.Search(tt.query, tt.limit)))
		})
	}
}

func TestIndex_SearchFirstResult(t *testing.T) {
	ix := NewIndex(fixtureCompetitors())

	got := ix.Search("2009BACH", 0)
	require.NotEmpty(t, got)
	assert.Equal(t, "Benoit Bacher", got[0].Name)
	assert.Equal(t, "France", got[0].Country)
}

func TestIndex_SearchIsDeterministic(t *testing.T) {
	competitors := fixtureCompetitors()
	a := NewIndex(competitors)

	reversed := make([]domain.Competitor, len(competitors))
	for i, c := range competitors {
		reversed[len(competitors)-1-i] = c
	}
	b := NewIndex(reversed)

	for _, q := range []string{"2009", "a", "bach", "1982"} {
		first := a.Search(q, 0)
		assert.Equal(t, first, a.Search(q, 0), "repeat query %q", q)
		assert.Equal(t, first, b.Search(q, 0), "input order must not matter for %q", q)
	}
}

func TestIndex_Suggest(t *testing.T) {
	ix := NewIndex(fixtureCompetitors())

	tests := []struct {
		name      string
		query     string
		threshold float64
		limit     int
		want      []string
	}{
		{name: "one letter missing", query: "habermas", threshold: 0.75, want: []string{"2007HABE01"}},
		{name: "inner letter dropped", query: "Fridrch", threshold: 0.75, want: []string{"1982FRID01"}},
		{name: "accents ignored", query: "Labas", threshold: 0.75, want: []string{"1982LABA01"}},
		{name: "full name typo", query: "tim habermas", threshold: 0.75, want: []string{"2007HABE01"}},
		{
			name:      "best similarity first",
			query:     "bacher",
			threshold: 0.5,
			want:      []string{"2009BACH01", "2009BACH02"},
		},
		{name: "limit", query: "bacher", threshold: 0.5, limit: 1, want: []string{"2009BACH01"}},
		{name: "nothing close", query: "zzzz", threshold: 0.75, want: []string{}},
		{name: "blank", query: "   ", threshold: 0, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(ix.Suggest(tt.query, tt.threshold, tt.limit)))
		})
	}
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, similarity("bacher", "bacher"))
	assert.Equal(t, 1.0, similarity("", ""))
	assert.Equal(t, 0.0, similarity("abc", ""))
	assert.InDelta(t, 0.875, similarity("fridrch", "fridrich"), 1e-9)
	assert.InDelta(t, 0.8, similarity("labas", "lábas"), 1e-9, "distance counts runes")
}

func TestIndex_DuplicateIDsKeepFirst(t *testing.T) {
	ix := NewIndex([]domain.Competitor{
		{ID: "2010DUPE01", Name: "Current Name"},
		{ID: "2010DUPE01", Name: "Old Name"},
	})
	assert.Equal(t, 1, ix.Len())
	c, ok := ix.ByID("2010DUPE01")
	require.True(t, ok)
	assert.Equal(t, "Current Name", c.Name)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "zoltan labas", Normalize("Zoltán Lábas"))
	assert.Equal(t, "2007habe01", Normalize("2007HABE01"))
	assert.Equal(t, "strasse", Normalize("STRASSE"))
}

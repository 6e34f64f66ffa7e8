package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ahrav/go-cuberank/infrastructure/store"
	"github.com/ahrav/go-cuberank/internal/domain"
)

const fixtureDir = "../../testdata/wca"

func fixtureFiles() Files {
	return Files{Persons: "persons.tsv", Results: "results.tsv", Events: "events.tsv"}
}

func TestLoader_LoadDir(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := store.NewMemory()
	l := New(s, nil, zap.New(core))

	sum, err := l.LoadDir(context.Background(), fixtureDir, fixtureFiles())
	require.NoError(t, err)

	assert.Equal(t, 18, sum.Events)
	assert.Equal(t, 23, sum.Competitors)
	assert.Equal(t, 1, sum.SkippedPersons)
	assert.Equal(t, 332, sum.Attempts)
	assert.True(t, s.Sealed())

	tim, ok := s.CompetitorByID("2007HABE01")
	require.True(t, ok)
	assert.Equal(t, "Tim Habermaas", tim.Name)
	assert.Equal(t, domain.GenderMale, tim.Gender)
	assert.Equal(t, "Germany", tim.Country)
	assert.Equal(t, 36, s.CompetitionCount("2007HABE01"))
	assert.Len(t, s.EventIDsFor("2007HABE01"), 16)

	rahm, ok := s.CompetitorByID("2011RAHM01")
	require.True(t, ok)
	assert.Equal(t, "Sara Rahman", rahm.Name, "only the current profile row is kept")

	rodr, ok := s.CompetitorByID("2014RODR25")
	require.True(t, ok)
	assert.Equal(t, domain.GenderUnknown, rodr.Gender)

	fm, ok := s.EventByID("333fm")
	require.True(t, ok)
	assert.Equal(t, domain.ValueNumber, fm.Kind)
	assert.Equal(t, domain.MovesMeanOf3, fm.Format)

	mbf, ok := s.EventByID("333mbf")
	require.True(t, ok)
	assert.Equal(t, domain.ValueMulti, mbf.Kind)
	assert.False(t, mbf.Format.HasAverage())

	assert.Len(t, s.CompetitorIDsFor("333mbf"), 12)
	assert.Len(t, s.CompetitorIDsFor("333"), 9)

	entries := logs.FilterMessage("ingestion complete").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(332), entries[0].ContextMap()["attempts"])
}

func TestLoader_FormatOverrides(t *testing.T) {
	s := store.NewMemory()
	custom := domain.Format{Attempts: 3, Trim: 0, Scale: 1}
	l := New(s, map[string]domain.Format{"333": custom}, nil)

	_, err := l.LoadDir(context.Background(), fixtureDir, fixtureFiles())
	require.NoError(t, err)

	e, ok := s.EventByID("333")
	require.True(t, ok)
	assert.Equal(t, custom, e.Format)

	e, ok = s.EventByID("444")
	require.True(t, ok)
	assert.Equal(t, domain.AverageOf5, e.Format)
}

func TestLoader_LoadResults(t *testing.T) {
	const header = "competitionId\teventId\troundTypeId\tpersonId\tvalue1\tvalue2\tvalue3\tvalue4\tvalue5\n"

	tests := []struct {
		name      string
		body      string
		want      int
		wantErr   error
		wantLine  int
		wantField string
	}{
		{
			name: "zero slots are skipped",
			body: "Open2010\t333\tf\t2010ABCD01\t1000\t-1\t0\t0\t0\n",
			want: 2,
		},
		{
			name: "windows line endings and blank lines",
			body: "Open2010\t333\tf\t2010ABCD01\t1000\t1100\t1200\t1300\t1400\r\n\r\n",
			want: 5,
		},
		{
			name:      "non-integer value",
			body:      "Open2010\t333\tf\t2010ABCD01\t1000\tfast\t0\t0\t0\n",
			wantErr:   domain.ErrMalformedRecord,
			wantLine:  2,
			wantField: "value2",
		},
		{
			name:      "unknown sentinel",
			body:      "Open2010\t333\tf\t2010ABCD01\t1000\t1000\t0\t0\t0\nOpen2010\t333\tf\t2010ABCD01\t-7\t0\t0\t0\t0\n",
			wantErr:   domain.ErrMalformedRecord,
			wantLine:  3,
			wantField: "unknown sentinel",
		},
		{
			name:      "missing person id",
			body:      "Open2010\t333\tf\t\t1000\t0\t0\t0\t0\n",
			wantErr:   domain.ErrMalformedRecord,
			wantLine:  2,
			wantField: "CompetitorID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(store.NewMemory(), nil, nil)
			n, err := l.LoadResults(context.Background(), strings.NewReader(header+tt.body))
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, tt.want, n)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
			var merr *domain.MalformedRecordError
			require.True(t, errors.As(err, &merr))
			assert.Equal(t, tt.wantLine, merr.Line)
			assert.Contains(t, strings.Join(merr.Fields, ";"), tt.wantField)
		})
	}
}

func TestLoader_MissingColumns(t *testing.T) {
	l := New(store.NewMemory(), nil, nil)

	_, err := l.LoadPersons(context.Background(), strings.NewReader("id\tname\tgender\n2010ABCD01\tA\tm\n"))
	var merr *domain.MalformedRecordError
	require.True(t, errors.As(err, &merr))
	assert.Equal(t, 1, merr.Line)
	assert.Equal(t, "competitor header", merr.Kind)
	assert.Contains(t, merr.Error(), "countryId|country_id")

	_, err = l.LoadEvents(context.Background(), strings.NewReader(""))
	assert.ErrorIs(t, err, domain.ErrMalformedRecord)
}

func TestLoader_SnakeCaseHeaders(t *testing.T) {
	l := New(store.NewMemory(), nil, nil)
	n, err := l.LoadPersons(context.Background(),
		strings.NewReader("\ufeffwca_id\tsub_id\tname\tcountry_id\tgender\n2010ABCD01\t1\tAda\tItaly\tf\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLoader_DuplicatePerson(t *testing.T) {
	l := New(store.NewMemory(), nil, nil)
	body := "id\tsubid\tname\tcountryId\tgender\n" +
		"2010ABCD01\t1\tAda\tItaly\tf\n" +
		"2010ABCD01\t1\tAda Again\tItaly\tf\n"

	_, err := l.LoadPersons(context.Background(), strings.NewReader(body))
	require.ErrorIs(t, err, domain.ErrDuplicateID)
	assert.Contains(t, err.Error(), "line 3")
}

func TestLoader_LoadDirErrors(t *testing.T) {
	l := New(store.NewMemory(), nil, nil)
	files := fixtureFiles()
	files.Results = "missing.tsv"

	_, err := l.LoadDir(context.Background(), fixtureDir, files)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load results")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	big := strings.Repeat("Open2010\t333\tf\t2010ABCD01\t1000\t0\t0\t0\t0\n", checkEvery+1)
	_, err = New(store.NewMemory(), nil, nil).LoadResults(ctx,
		strings.NewReader("competitionId\teventId\troundTypeId\tpersonId\tvalue1\tvalue2\tvalue3\tvalue4\tvalue5\n"+big))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoader_HonoursCancelledContext(t *testing.T) {
	rows := func(header string, row func(i int) string) string {
		var b strings.Builder
		b.WriteString(header + "\n")
		for i := range checkEvery + 1 {
			b.WriteString(row(i) + "\n")
		}
		return b.String()
	}

	tests := []struct {
		name string
		load func(*Loader, context.Context, string) error
		body string
	}{
		{
			name: "events",
			load: func(l *Loader, ctx context.Context, body string) error {
				_, err := l.LoadEvents(ctx, strings.NewReader(body))
				return err
			},
			body: rows("id\tname\trank", func(i int) string {
				return fmt.Sprintf("ev%d\tEvent %d\t%d", i, i, i)
			}),
		},
		{
			name: "persons",
			load: func(l *Loader, ctx context.Context, body string) error {
				_, err := l.LoadPersons(ctx, strings.NewReader(body))
				return err
			},
			body: rows("id\tsubid\tname\tcountryId\tgender", func(i int) string {
				return fmt.Sprintf("2010P%05d\t1\tPerson %d\tFrance\tf", i, i)
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			err := tt.load(New(store.NewMemory(), nil, nil), ctx, tt.body)
			assert.ErrorIs(t, err, context.Canceled)
		})
	}
}

func TestLoader_RejectsLoadAfterSeal(t *testing.T) {
	s := store.NewMemory()
	s.Seal()
	l := New(s, nil, nil)

	_, err := l.LoadEvents(context.Background(), strings.NewReader("id\tname\n333\t3x3x3 Cube\n"))
	assert.ErrorIs(t, err, domain.ErrStoreSealed)
}

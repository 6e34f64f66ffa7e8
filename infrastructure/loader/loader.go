// Package loader ingests competition export files into a ResultStore.
//
// Ingestion is all-or-nothing: the first malformed row aborts the load with
// an error naming the file and line, and callers must refuse to serve.
package loader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ahrav/go-cuberank/internal/domain"
	"github.com/ahrav/go-cuberank/internal/ports"
)

// Column aliases. Older exports use camelCase headers, newer ones snake_case.
var (
	colID          = []string{"id", "wca_id"}
	colSubID       = []string{"subid", "sub_id"}
	colName        = []string{"name"}
	colCountry     = []string{"countryId", "country_id"}
	colGender      = []string{"gender"}
	colRank        = []string{"rank"}
	colFormat      = []string{"format"}
	colCompetition = []string{"competitionId", "competition_id"}
	colEvent       = []string{"eventId", "event_id"}
	colRound       = []string{"roundTypeId", "roundId", "round_type_id"}
	colPerson      = []string{"personId", "person_id"}
	colValues      = [][]string{{"value1"}, {"value2"}, {"value3"}, {"value4"}, {"value5"}}
)

// checkEvery is how many rows pass between context checks.
const checkEvery = 4096

// Files names the export files inside a data directory.
type Files struct {
	Persons string `yaml:"persons" validate:"required"`
	Results string `yaml:"results" validate:"required"`
	Events  string `yaml:"events" validate:"required"`
}

// DefaultFiles returns the file names used by the public results export.
func DefaultFiles() Files {
	return Files{
		Persons: "WCA_export_Persons.tsv",
		Results: "WCA_export_Results.tsv",
		Events:  "WCA_export_Events.tsv",
	}
}

// Summary reports what a load ingested.
type Summary struct {
	Events      int
	Competitors int
	Attempts    int
	// SkippedPersons counts non-current profile rows (subid > 1).
	SkippedPersons int
	Duration       time.Duration
}

// Loader parses export files and feeds a ResultStore.
type Loader struct {
	store   ports.ResultStore
	formats map[string]domain.Format
	logger  *zap.Logger
}

// New creates a loader. formats overrides the built-in per-event averaging
// formats; a nil logger disables logging.
func New(store ports.ResultStore, formats map[string]domain.Format, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{store: store, formats: formats, logger: logger}
}

// LoadDir ingests events, persons and results from dir in that order and
// seals the store on success.
func (l *Loader) LoadDir(ctx context.Context, dir string, files Files) (Summary, error) {
	start := time.Now()
	var sum Summary

	steps := []struct {
		name string
		file string
		load func(context.Context, io.Reader, *Summary) error
	}{
		{"events", files.Events, l.loadEvents},
		{"persons", files.Persons, l.loadPersons},
		{"results", files.Results, l.loadResults},
	}
	for _, step := range steps {
		path := filepath.Join(dir, filepath.Clean(step.file))
		if err := l.loadFile(ctx, path, step.load, &sum); err != nil {
			return sum, fmt.Errorf("load %s: %w", step.name, err)
		}
		l.logger.Debug("loaded export file", zap.String("kind", step.name), zap.String("path", path))
	}

	l.store.Seal()
	sum.Duration = time.Since(start)
	l.logger.Info("ingestion complete",
		zap.Int("events", sum.Events),
		zap.Int("competitors", sum.Competitors),
		zap.Int("attempts", sum.Attempts),
		zap.Int("skipped_persons", sum.SkippedPersons),
		zap.Duration("duration", sum.Duration),
	)
	return sum, nil
}

func (l *Loader) loadFile(
	ctx context.Context,
	path string,
	load func(context.Context, io.Reader, *Summary) error,
	sum *Summary,
) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if err := load(ctx, f, sum); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return nil
}

// LoadEvents ingests an events export.
func (l *Loader) LoadEvents(ctx context.Context, r io.Reader) (int, error) {
	var sum Summary
	err := l.loadEvents(ctx, r, &sum)
	return sum.Events, err
}

// LoadPersons ingests a persons export.
func (l *Loader) LoadPersons(ctx context.Context, r io.Reader) (int, error) {
	var sum Summary
	err := l.loadPersons(ctx, r, &sum)
	return sum.Competitors, err
}

// LoadResults ingests a results export.
func (l *Loader) LoadResults(ctx context.Context, r io.Reader) (int, error) {
	var sum Summary
	err := l.loadResults(ctx, r, &sum)
	return sum.Attempts, err
}

func (l *Loader) loadEvents(ctx context.Context, r io.Reader, sum *Summary) error {
	t, err := newTSVReader("event", r, colID, colName)
	if err != nil {
		return err
	}
	for {
		ok, err := t.next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if t.line%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		id := t.get(colID...)
		rank := 0
		if raw := t.get(colRank...); raw != "" {
			if rank, err = strconv.Atoi(raw); err != nil {
				return malformed("event", t.line, "rank: not an integer")
			}
		}
		event := domain.Event{
			ID:     id,
			Name:   t.get(colName...),
			Rank:   rank,
			Kind:   parseKind(t.get(colFormat...)),
			Format: l.formatFor(id),
		}
		if err := l.store.LoadEvent(event); err != nil {
			return atLine(err, t.line)
		}
		sum.Events++
	}
}

func (l *Loader) loadPersons(ctx context.Context, r io.Reader, sum *Summary) error {
	t, err := newTSVReader("competitor", r, colID, colName, colCountry, colGender)
	if err != nil {
		return err
	}
	for {
		ok, err := t.next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if t.line%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		// Rows with subid > 1 are earlier names/countries of the same person.
		if sub := t.get(colSubID...); sub != "" && sub != "1" {
			sum.SkippedPersons++
			continue
		}
		c := domain.Competitor{
			ID:      t.get(colID...),
			Name:    t.get(colName...),
			Gender:  domain.ParseGender(t.get(colGender...)),
			Country: t.get(colCountry...),
		}
		if err := l.store.LoadCompetitor(c); err != nil {
			return atLine(err, t.line)
		}
		sum.Competitors++
	}
}

func (l *Loader) loadResults(ctx context.Context, r io.Reader, sum *Summary) error {
	required := append([][]string{colCompetition, colEvent, colRound, colPerson}, colValues...)
	t, err := newTSVReader("attempt", r, required...)
	if err != nil {
		return err
	}
	for {
		ok, err := t.next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if t.line%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		round := domain.Round{
			CompetitionID: t.get(colCompetition...),
			RoundID:       t.get(colRound...),
		}
		for i, col := range colValues {
			raw := t.get(col...)
			v, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return malformed("attempt", t.line, fmt.Sprintf("%s: not an integer", col[0]))
			}
			// Zero marks an unused slot, e.g. after a missed cutoff.
			if v == 0 {
				continue
			}
			a := domain.Attempt{
				CompetitorID: t.get(colPerson...),
				EventID:      t.get(colEvent...),
				Round:        round,
				Position:     i + 1,
				Value:        domain.Duration(v),
			}
			if err := l.store.LoadAttempt(a); err != nil {
				return atLine(err, t.line)
			}
			sum.Attempts++
		}
	}
}

func (l *Loader) formatFor(eventID string) domain.Format {
	if f, ok := l.formats[eventID]; ok {
		return f
	}
	return domain.DefaultFormat(eventID)
}

func parseKind(s string) domain.ValueKind {
	switch domain.ValueKind(s) {
	case domain.ValueNumber, domain.ValueMulti:
		return domain.ValueKind(s)
	default:
		return domain.ValueTime
	}
}

func malformed(kind string, line int, field string) error {
	merr := domain.NewMalformedRecordError(kind)
	merr.Line = line
	merr.AddField(field)
	return merr
}

// atLine stamps the source line on store validation errors.
func atLine(err error, line int) error {
	if merr, ok := err.(*domain.MalformedRecordError); ok {
		merr.Line = line
		return merr
	}
	return fmt.Errorf("line %d: %w", line, err)
}

// Package ports defines the interfaces between the query service and the
// infrastructure that stores, derives and indexes competition results.
package ports

import (
	"github.com/ahrav/go-cuberank/internal/domain"
)

// ResultStore holds ingested competitors, events and raw attempts.
// Implementations accept loads until Seal is called and are read-only and
// safe for concurrent readers afterwards.
type ResultStore interface {
	// LoadCompetitor inserts a competitor. Returns a *domain.DuplicateIDError
	// if the id exists and a *domain.MalformedRecordError if required fields
	// are missing.
	LoadCompetitor(c domain.Competitor) error

	// LoadEvent inserts an event into the catalog.
	LoadEvent(e domain.Event) error

	// LoadAttempt inserts a raw attempt under its (competitor, event, round)
	// key. Only structural completeness is checked.
	LoadAttempt(a domain.Attempt) error

	// Seal ends the load phase.
	Seal()

	// AttemptsFor returns the attempts of a pair in ingestion order. The
	// result is empty, not an error, when the pair has no attempts.
	// Callers must not modify the returned slice.
	AttemptsFor(competitorID, eventID string) []domain.Attempt

	// CompetitorByID returns the competitor with the given id.
	CompetitorByID(id string) (domain.Competitor, bool)

	// Competitors returns every competitor ordered by ascending id.
	Competitors() []domain.Competitor

	// EventByID returns the catalog entry for an event.
	EventByID(id string) (domain.Event, bool)

	// Events returns the catalog ordered by rank, then id.
	Events() []domain.Event

	// EventIDsFor returns the events a competitor has attempts in.
	EventIDsFor(competitorID string) []string

	// CompetitorIDsFor returns the competitors with attempts in an event,
	// ordered by ascending id.
	CompetitorIDsFor(eventID string) []string

	// CompetitionCount returns the number of distinct competitions a
	// competitor has attempts in.
	CompetitionCount(competitorID string) int
}

// RecordCalculator derives single and average records from a ResultStore.
// Absence of a record is expressed by omission, never by an error.
type RecordCalculator interface {
	// FormatFor returns the averaging format used for an event, whether or
	// not the event is catalogued.
	FormatFor(eventID string) domain.Format

	// Records returns the single/average pair of one competitor in one event.
	Records(competitorID, eventID string) domain.RecordPair

	// RecordsFor returns every event the competitor has attempts in, ordered
	// by catalog rank.
	RecordsFor(competitorID string) []domain.EventRecords

	// RecordsForEvent returns the pairs of the requested competitors that
	// have at least one qualifying record, ordered by ascending id.
	RecordsForEvent(eventID string, competitorIDs []string) []domain.CompetitorRecords

	// BestOfEvent returns the leaderboard for one event and record kind,
	// fastest first with ties broken by competitor id.
	BestOfEvent(eventID string, kind domain.RecordKind) []domain.Ranking
}

// CompetitorIndex resolves competitors by exact id and by partial id/name.
type CompetitorIndex interface {
	// ByID performs an exact id lookup.
	ByID(id string) (domain.Competitor, bool)

	// Search returns competitors whose id or name contains query, ordered by
	// ascending id and capped at limit when limit > 0.
	Search(query string, limit int) []domain.Competitor

	// Suggest returns competitors whose name is similar to query within the
	// given threshold (0..1), most similar first, capped at limit when
	// limit > 0.
	Suggest(query string, threshold float64, limit int) []domain.Competitor
}

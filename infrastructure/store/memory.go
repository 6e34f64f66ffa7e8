// Package store provides the in-memory result store that every query reads
// from. It is populated once during ingestion and sealed before serving.
package store

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-cuberank/internal/domain"
	"github.com/ahrav/go-cuberank/internal/ports"
)

var _ ports.ResultStore = (*Memory)(nil)

// Package-level validator instance for structural record validation.
var validate = validator.New()

type pairKey struct {
	competitorID string
	eventID      string
}

// Memory is an in-memory ResultStore.
//
// Loading is single-threaded and must complete before Seal. After Seal the
// store is immutable and every read method is safe for concurrent use
// without locking.
type Memory struct {
	competitors map[string]domain.Competitor
	events      map[string]domain.Event
	attempts    map[pairKey][]domain.Attempt

	// eventsOf keeps a competitor's events in first-seen order.
	eventsOf     map[string][]string
	entrants     map[string]map[string]struct{}
	competitions map[string]map[string]struct{}

	sealed bool

	// Views built by Seal.
	competitorList []domain.Competitor
	eventList      []domain.Event
	entrantList    map[string][]string
}

// NewMemory creates an empty, unsealed store.
func NewMemory() *Memory {
	return &Memory{
		competitors:  make(map[string]domain.Competitor),
		events:       make(map[string]domain.Event),
		attempts:     make(map[pairKey][]domain.Attempt),
		eventsOf:     make(map[string][]string),
		entrants:     make(map[string]map[string]struct{}),
		competitions: make(map[string]map[string]struct{}),
	}
}

// LoadCompetitor inserts a competitor.
func (m *Memory) LoadCompetitor(c domain.Competitor) error {
	if m.sealed {
		return domain.ErrStoreSealed
	}
	if err := checkStruct("competitor", c); err != nil {
		return err
	}
	if _, exists := m.competitors[c.ID]; exists {
		return domain.NewDuplicateIDError("competitor", c.ID)
	}
	m.competitors[c.ID] = c
	return nil
}

// LoadEvent inserts an event into the catalog.
func (m *Memory) LoadEvent(e domain.Event) error {
	if m.sealed {
		return domain.ErrStoreSealed
	}
	if err := checkStruct("event", e); err != nil {
		return err
	}
	if _, exists := m.events[e.ID]; exists {
		return domain.NewDuplicateIDError("event", e.ID)
	}
	m.events[e.ID] = e
	return nil
}

// LoadAttempt appends an attempt to its pair. Attempts are kept in the
// order they are loaded, which the loader guarantees is round/position order.
func (m *Memory) LoadAttempt(a domain.Attempt) error {
	if m.sealed {
		return domain.ErrStoreSealed
	}
	if err := checkStruct("attempt", a); err != nil {
		return err
	}
	if !a.Value.Known() {
		merr := domain.NewMalformedRecordError("attempt")
		merr.AddField(fmt.Sprintf("value: unknown sentinel %d", a.Value))
		return merr
	}

	key := pairKey{competitorID: a.CompetitorID, eventID: a.EventID}
	if _, seen := m.attempts[key]; !seen {
		m.eventsOf[a.CompetitorID] = append(m.eventsOf[a.CompetitorID], a.EventID)
	}
	m.attempts[key] = append(m.attempts[key], a)

	addToSet(m.entrants, a.EventID, a.CompetitorID)
	addToSet(m.competitions, a.CompetitorID, a.Round.CompetitionID)
	return nil
}

// Seal ends the load phase and builds the sorted read views.
func (m *Memory) Seal() {
	if m.sealed {
		return
	}
	m.competitorList = m.sortedCompetitors()
	m.eventList = m.sortedEvents()
	m.entrantList = make(map[string][]string, len(m.entrants))
	for eventID := range m.entrants {
		m.entrantList[eventID] = m.sortedEntrants(eventID)
	}
	m.sealed = true
}

// Sealed reports whether Seal has been called.
func (m *Memory) Sealed() bool { return m.sealed }

// AttemptsFor returns the attempts of a pair in load order.
func (m *Memory) AttemptsFor(competitorID, eventID string) []domain.Attempt {
	return m.attempts[pairKey{competitorID: competitorID, eventID: eventID}]
}

// CompetitorByID returns the competitor with the given id.
func (m *Memory) CompetitorByID(id string) (domain.Competitor, bool) {
	c, ok := m.competitors[id]
	return c, ok
}

// Competitors returns every competitor ordered by ascending id.
func (m *Memory) Competitors() []domain.Competitor {
	if m.sealed {
		return m.competitorList
	}
	return m.sortedCompetitors()
}

// EventByID returns the catalog entry for an event.
func (m *Memory) EventByID(id string) (domain.Event, bool) {
	e, ok := m.events[id]
	return e, ok
}

// Events returns the catalog ordered by rank, then id.
func (m *Memory) Events() []domain.Event {
	if m.sealed {
		return m.eventList
	}
	return m.sortedEvents()
}

// EventIDsFor returns the events a competitor has attempts in, in the order
// they were first seen.
func (m *Memory) EventIDsFor(competitorID string) []string {
	return m.eventsOf[competitorID]
}

// CompetitorIDsFor returns the competitors with attempts in an event.
func (m *Memory) CompetitorIDsFor(eventID string) []string {
	if m.sealed {
		return m.entrantList[eventID]
	}
	return m.sortedEntrants(eventID)
}

// CompetitionCount returns the number of distinct competitions a competitor
// has attempts in.
func (m *Memory) CompetitionCount(competitorID string) int {
	return len(m.competitions[competitorID])
}

// Stats summarises the store contents for logging.
type Stats struct {
	Competitors int
	Events      int
	Pairs       int
	Attempts    int
}

// Stats returns the current store size.
func (m *Memory) Stats() Stats {
	s := Stats{
		Competitors: len(m.competitors),
		Events:      len(m.events),
		Pairs:       len(m.attempts),
	}
	for _, as := range m.attempts {
		s.Attempts += len(as)
	}
	return s
}

func (m *Memory) sortedCompetitors() []domain.Competitor {
	out := make([]domain.Competitor, 0, len(m.competitors))
	for _, c := range m.competitors {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b domain.Competitor) int { return strings.Compare(a.ID, b.ID) })
	return out
}

func (m *Memory) sortedEvents() []domain.Event {
	out := make([]domain.Event, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b domain.Event) int {
		if a.Rank != b.Rank {
			return a.Rank - b.Rank
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

func (m *Memory) sortedEntrants(eventID string) []string {
	set := m.entrants[eventID]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func addToSet(sets map[string]map[string]struct{}, key, member string) {
	set, ok := sets[key]
	if !ok {
		set = make(map[string]struct{})
		sets[key] = set
	}
	set[member] = struct{}{}
}

// checkStruct runs tag validation and converts failures into a
// MalformedRecordError naming every offending field.
func checkStruct(kind string, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate %s: %w", kind, err)
	}
	merr := domain.NewMalformedRecordError(kind)
	for _, fe := range verrs {
		merr.AddField(fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
	}
	return merr
}

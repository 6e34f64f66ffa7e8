package application

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-cuberank/internal/domain"
	"github.com/ahrav/go-cuberank/internal/ports"
)

// CompetitorProfile is a competitor with its participation summary.
type CompetitorProfile struct {
	domain.Competitor
	// CompetitionCount is the number of distinct competitions the competitor
	// has attempts in.
	CompetitionCount int `json:"competition_count"`
	// EventCount is the number of events the competitor has attempts in.
	EventCount int `json:"event_count"`
}

// CompetitorSummary is a competitor as listed in search results and
// leaderboards.
type CompetitorSummary struct {
	domain.Competitor
	CompetitionCount int `json:"competition_count"`
}

// RankingEntry is one row of an event leaderboard.
type RankingEntry struct {
	Competitor CompetitorSummary `json:"competitor"`
	Value      domain.Duration   `json:"time"`
	// Display is Value rendered for humans, e.g. "9.56" or "41/41 32:54".
	Display string `json:"display"`
}

// Comparison is the result of comparing competitors on one event.
//
// Records holds the requested competitors that have at least one qualifying
// record, ordered by ascending id. Missing lists requested ids that are not
// registered competitors, deduplicated, in request order.
type Comparison struct {
	Records []domain.CompetitorRecords
	Missing []string
}

// Err reports the ids that could not be resolved as an
// *domain.UnknownCompetitorsError, or nil when every id was known.
func (c Comparison) Err() error {
	if len(c.Missing) == 0 {
		return nil
	}
	return &domain.UnknownCompetitorsError{IDs: c.Missing}
}

// QueryService composes the result store, record calculator and competitor
// index into the read operations exposed to clients. It holds no state of its
// own beyond configuration, so it is safe for concurrent use whenever its
// collaborators are.
type QueryService struct {
	store   ports.ResultStore
	records ports.RecordCalculator
	index   ports.CompetitorIndex
	metrics ports.MetricsCollector
	tracer  trace.Tracer
	cfg     QueryConfig
}

// NewQueryService wires a query service. A nil metrics collector disables
// measurements.
func NewQueryService(
	store ports.ResultStore,
	records ports.RecordCalculator,
	index ports.CompetitorIndex,
	metrics ports.MetricsCollector,
	cfg QueryConfig,
) *QueryService {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &QueryService{
		store:   store,
		records: records,
		index:   index,
		metrics: metrics,
		tracer:  otel.Tracer("query-service"),
		cfg:     cfg,
	}
}

// GetCompetitor returns the profile of one competitor or a
// *domain.NotFoundError.
func (s *QueryService) GetCompetitor(ctx context.Context, id string) (profile CompetitorProfile, err error) {
	_, span := s.tracer.Start(ctx, "QueryService.GetCompetitor",
		trace.WithAttributes(attribute.String("competitor.id", id)))
	defer s.finish(span, "get_competitor", time.Now(), &err)

	c, ok := s.index.ByID(id)
	if !ok {
		return CompetitorProfile{}, domain.NewNotFoundError("competitor", id)
	}
	return CompetitorProfile{
		Competitor:       c,
		CompetitionCount: s.store.CompetitionCount(id),
		EventCount:       len(s.store.EventIDsFor(id)),
	}, nil
}

// SearchCompetitors returns competitors whose id or name contains query,
// ordered by id and capped at the configured maximum. A blank query returns
// an empty list.
func (s *QueryService) SearchCompetitors(ctx context.Context, query string) []CompetitorSummary {
	_, span := s.tracer.Start(ctx, "QueryService.SearchCompetitors",
		trace.WithAttributes(attribute.String("query", query)))
	var err error
	defer s.finish(span, "search_competitors", time.Now(), &err)

	out := s.summarize(s.index.Search(query, s.cfg.MaxSearchResults))
	span.SetAttributes(attribute.Int("results", len(out)))
	return out
}

// SuggestCompetitors returns competitors whose name is close to query by
// edit distance, most similar first. It backs "did you mean" lookups when a
// search finds nothing.
func (s *QueryService) SuggestCompetitors(ctx context.Context, query string) []CompetitorSummary {
	_, span := s.tracer.Start(ctx, "QueryService.SuggestCompetitors",
		trace.WithAttributes(attribute.String("query", query)))
	var err error
	defer s.finish(span, "suggest_competitors", time.Now(), &err)

	threshold := s.cfg.SuggestThreshold
	if threshold <= 0 {
		threshold = DefaultSuggestThreshold
	}
	out := s.summarize(s.index.Suggest(query, threshold, s.cfg.MaxSuggestions))
	span.SetAttributes(attribute.Int("results", len(out)))
	return out
}

// EventRankings returns the leaderboard of one event, fastest first.
func (s *QueryService) EventRankings(
	ctx context.Context,
	eventID string,
	kind domain.RecordKind,
) (entries []RankingEntry, err error) {
	_, span := s.tracer.Start(ctx, "QueryService.EventRankings",
		trace.WithAttributes(
			attribute.String("event.id", eventID),
			attribute.String("record.kind", string(kind)),
		))
	defer s.finish(span, "event_rankings", time.Now(), &err)

	event, err := s.event(eventID)
	if err != nil {
		return nil, err
	}

	rankings := s.records.BestOfEvent(eventID, kind)
	if limit := s.cfg.MaxRankings; limit > 0 && len(rankings) > limit {
		rankings = rankings[:limit]
	}
	entries = make([]RankingEntry, 0, len(rankings))
	for _, r := range rankings {
		entries = append(entries, RankingEntry{
			Competitor: s.competitor(r.CompetitorID),
			Value:      r.Value,
			Display:    event.FormatValue(kind, r.Value),
		})
	}
	span.SetAttributes(attribute.Int("results", len(entries)))
	return entries, nil
}

// CompareCompetitors returns the records of the given competitors in one
// event. Unknown competitor ids do not fail the call; they are reported in
// Comparison.Missing. The returned error is reserved for an unknown event.
func (s *QueryService) CompareCompetitors(
	ctx context.Context,
	eventID string,
	ids []string,
) (cmp Comparison, err error) {
	_, span := s.tracer.Start(ctx, "QueryService.CompareCompetitors",
		trace.WithAttributes(
			attribute.String("event.id", eventID),
			attribute.StringSlice("competitor.ids", ids),
		))
	defer s.finish(span, "compare_competitors", time.Now(), &err)

	if _, err := s.event(eventID); err != nil {
		return Comparison{}, err
	}

	known := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	cmp.Missing = []string{}
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := s.index.ByID(id); !ok {
			cmp.Missing = append(cmp.Missing, id)
			continue
		}
		known = append(known, id)
	}

	cmp.Records = s.records.RecordsForEvent(eventID, known)
	if len(cmp.Missing) > 0 {
		span.AddEvent("competitors.unknown",
			trace.WithAttributes(attribute.StringSlice("competitor.ids", cmp.Missing)))
	}
	return cmp, nil
}

// CompetitorRecords returns the record pair of every event the competitor
// has attempts in, ordered by event catalog rank.
func (s *QueryService) CompetitorRecords(ctx context.Context, id string) (recs []domain.EventRecords, err error) {
	_, span := s.tracer.Start(ctx, "QueryService.CompetitorRecords",
		trace.WithAttributes(attribute.String("competitor.id", id)))
	defer s.finish(span, "competitor_records", time.Now(), &err)

	if _, ok := s.index.ByID(id); !ok {
		return nil, domain.NewNotFoundError("competitor", id)
	}
	return s.records.RecordsFor(id), nil
}

// Events returns the event catalog in rank order.
func (s *QueryService) Events(ctx context.Context) []domain.Event {
	_, span := s.tracer.Start(ctx, "QueryService.Events")
	var err error
	defer s.finish(span, "events", time.Now(), &err)

	return s.store.Events()
}

// event resolves a catalogued event. Events missing from the catalog but
// present in results are still served with their default format.
func (s *QueryService) event(id string) (domain.Event, error) {
	if e, ok := s.store.EventByID(id); ok {
		return e, nil
	}
	if len(s.store.CompetitorIDsFor(id)) > 0 {
		return domain.Event{ID: id, Name: id, Kind: domain.ValueTime, Format: s.records.FormatFor(id)}, nil
	}
	return domain.Event{}, domain.NewNotFoundError("event", id)
}

// competitor resolves an id for display. Results may reference ids absent
// from the persons export; those render with the id alone.
func (s *QueryService) competitor(id string) CompetitorSummary {
	c, ok := s.index.ByID(id)
	if !ok {
		c = domain.Competitor{ID: id}
	}
	return CompetitorSummary{Competitor: c, CompetitionCount: s.store.CompetitionCount(id)}
}

func (s *QueryService) summarize(cs []domain.Competitor) []CompetitorSummary {
	out := make([]CompetitorSummary, 0, len(cs))
	for _, c := range cs {
		out = append(out, CompetitorSummary{Competitor: c, CompetitionCount: s.store.CompetitionCount(c.ID)})
	}
	return out
}

// finish ends span and reports latency and outcome for operation.
func (s *QueryService) finish(span trace.Span, operation string, start time.Time, errp *error) {
	status := "ok"
	if err := *errp; err != nil {
		status = "error"
		if errors.Is(err, domain.ErrNotFound) {
			status = "not_found"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	labels := map[string]string{"operation": operation, "status": status}
	s.metrics.RecordLatency("query", time.Since(start), labels)
	s.metrics.RecordCounter("queries_total", 1, labels)
	span.End()
}

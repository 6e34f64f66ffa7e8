package records

import (
	"context"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/ahrav/go-cuberank/internal/domain"
	"github.com/ahrav/go-cuberank/internal/ports"
)

var _ ports.RecordCalculator = (*Calculator)(nil)

// Calculator derives records from a sealed ResultStore and memoizes them.
//
// Every cached value is the result of a pure function over the store, so a
// cache hit is indistinguishable from recomputation. Misses are filled
// through a singleflight group: concurrent requests for the same uncached
// pair share one computation and the cache is written once per key.
//
// Concurrency: safe for any number of concurrent readers once the store is
// sealed. Records and rankings returned to callers are shared and must be
// treated as read-only.
type Calculator struct {
	store   ports.ResultStore
	metrics ports.MetricsCollector
	formats map[string]domain.Format

	// pairs caches domain.RecordPair by pairKey.
	pairs sync.Map
	// rankings caches []domain.Ranking by rankingKey.
	rankings sync.Map
	sf       singleflight.Group
}

type pairKey struct {
	competitorID string
	eventID      string
}

type rankingKey struct {
	eventID string
	kind    domain.RecordKind
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithFormats sets per-event format overrides for events missing from the
// store's catalog. Catalogued events already carry their resolved format.
func WithFormats(formats map[string]domain.Format) Option {
	return func(c *Calculator) { c.formats = formats }
}

// NewCalculator creates a calculator over store. A nil metrics collector
// disables measurements.
func NewCalculator(store ports.ResultStore, metrics ports.MetricsCollector, opts ...Option) *Calculator {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	c := &Calculator{store: store, metrics: metrics}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FormatFor returns the averaging format of an event: the catalog entry's
// format when the event is catalogued, then a configured override, then
// the built-in default.
func (c *Calculator) FormatFor(eventID string) domain.Format {
	if e, ok := c.store.EventByID(eventID); ok {
		return e.Format
	}
	if f, ok := c.formats[eventID]; ok {
		return f
	}
	return domain.DefaultFormat(eventID)
}

// Records returns the single/average pair of one competitor in one event.
func (c *Calculator) Records(competitorID, eventID string) domain.RecordPair {
	key := pairKey{competitorID: competitorID, eventID: eventID}
	if v, ok := c.pairs.Load(key); ok {
		c.metrics.RecordCounter("record_cache_hits_total", 1, map[string]string{"cache": "pair"})
		return v.(domain.RecordPair)
	}
	c.metrics.RecordCounter("record_cache_misses_total", 1, map[string]string{"cache": "pair"})

	v, _, _ := c.sf.Do("pair\x00"+competitorID+"\x00"+eventID, func() (any, error) {
		if v, ok := c.pairs.Load(key); ok {
			return v, nil
		}
		pair := Derive(competitorID, eventID, c.store.AttemptsFor(competitorID, eventID), c.FormatFor(eventID))
		v, _ := c.pairs.LoadOrStore(key, pair)
		return v, nil
	})
	return v.(domain.RecordPair)
}

// Single returns the single record of a pair.
func (c *Calculator) Single(competitorID, eventID string) (domain.Record, bool) {
	return c.Records(competitorID, eventID).Get(domain.KindSingle)
}

// Average returns the average record of a pair.
func (c *Calculator) Average(competitorID, eventID string) (domain.Record, bool) {
	return c.Records(competitorID, eventID).Get(domain.KindAverage)
}

// RecordsFor returns an entry for every event the competitor has attempts
// in, including events where neither record qualifies. Entries follow the
// event catalog order; uncatalogued events come last by id.
func (c *Calculator) RecordsFor(competitorID string) []domain.EventRecords {
	eventIDs := slices.Clone(c.store.EventIDsFor(competitorID))
	slices.SortFunc(eventIDs, c.compareEvents)

	out := make([]domain.EventRecords, 0, len(eventIDs))
	for _, eventID := range eventIDs {
		out = append(out, domain.EventRecords{
			EventID:    eventID,
			RecordPair: c.Records(competitorID, eventID),
		})
	}
	return out
}

// RecordsForEvent returns the pairs of the requested competitors that hold
// at least one qualifying record in the event. The result is ordered by
// ascending competitor id independent of input order, and repeated ids
// appear once.
func (c *Calculator) RecordsForEvent(eventID string, competitorIDs []string) []domain.CompetitorRecords {
	ids := slices.Clone(competitorIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	out := make([]domain.CompetitorRecords, 0, len(ids))
	for _, id := range ids {
		pair := c.Records(id, eventID)
		if pair.Empty() {
			continue
		}
		out = append(out, domain.CompetitorRecords{CompetitorID: id, RecordPair: pair})
	}
	return out
}

// BestOfEvent returns every qualifying record of the given kind in the
// event, fastest first; equal values are ordered by competitor id.
func (c *Calculator) BestOfEvent(eventID string, kind domain.RecordKind) []domain.Ranking {
	key := rankingKey{eventID: eventID, kind: kind}
	if v, ok := c.rankings.Load(key); ok {
		c.metrics.RecordCounter("record_cache_hits_total", 1, map[string]string{"cache": "ranking"})
		return v.([]domain.Ranking)
	}
	c.metrics.RecordCounter("record_cache_misses_total", 1, map[string]string{"cache": "ranking"})

	v, _, _ := c.sf.Do("rank\x00"+eventID+"\x00"+string(kind), func() (any, error) {
		if v, ok := c.rankings.Load(key); ok {
			return v, nil
		}
		v, _ := c.rankings.LoadOrStore(key, c.rank(eventID, kind))
		return v, nil
	})
	return v.([]domain.Ranking)
}

func (c *Calculator) rank(eventID string, kind domain.RecordKind) []domain.Ranking {
	entrants := c.store.CompetitorIDsFor(eventID)
	out := make([]domain.Ranking, 0, len(entrants))
	for _, id := range entrants {
		rec, ok := c.Records(id, eventID).Get(kind)
		if !ok {
			continue
		}
		out = append(out, domain.Ranking{CompetitorID: id, Value: rec.Value})
	}
	slices.SortFunc(out, func(a, b domain.Ranking) int {
		if a.Value != b.Value {
			if a.Value < b.Value {
				return -1
			}
			return 1
		}
		return strings.Compare(a.CompetitorID, b.CompetitorID)
	})
	return out
}

// Precompute fills the cache for every (competitor, event) pair and every
// leaderboard using up to workers goroutines. It stops early when ctx is
// cancelled and returns the context error.
func (c *Calculator) Precompute(ctx context.Context, workers int) error {
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, event := range c.eventIDs() {
		for _, competitorID := range c.store.CompetitorIDsFor(event) {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				c.Records(competitorID, event)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, event := range c.eventIDs() {
		c.BestOfEvent(event, domain.KindSingle)
		c.BestOfEvent(event, domain.KindAverage)
	}
	return nil
}

func (c *Calculator) eventIDs() []string {
	events := c.store.Events()
	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	return ids
}

func (c *Calculator) compareEvents(a, b string) int {
	ea, aok := c.store.EventByID(a)
	eb, bok := c.store.EventByID(b)
	switch {
	case aok && bok:
		if ea.Rank != eb.Rank {
			return ea.Rank - eb.Rank
		}
	case aok:
		return -1
	case bok:
		return 1
	}
	return strings.Compare(a, b)
}

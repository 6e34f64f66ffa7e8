// Package records derives single and average records from raw attempts and
// serves them through a memoizing calculator.
package records

import (
	"slices"

	"github.com/ahrav/go-cuberank/internal/domain"
)

// BestSingle returns the fastest valid attempt. Ties keep the earliest
// attempt so provenance is stable. ok is false when no attempt is valid.
func BestSingle(attempts []domain.Attempt) (best domain.Attempt, ok bool) {
	for _, a := range attempts {
		if !a.Value.Valid() {
			continue
		}
		if !ok || a.Value < best.Value {
			best, ok = a, true
		}
	}
	return best, ok
}

// SetAverage computes the average of one round's attempt set under f.
//
// Algorithm:
//  1. The set must hold at least f.Attempts attempts; only the first
//     f.Attempts in position order are used.
//  2. Attempts are sorted best to worst. Invalid attempts sort after every
//     valid one; among themselves they keep position order.
//  3. f.Trim attempts are dropped from each end.
//  4. Any invalid attempt left after trimming voids the average.
//  5. The mean of the retained values, scaled by f.Multiplier, is rounded
//     half up to an integer.
func SetAverage(set []domain.Attempt, f domain.Format) (domain.Duration, bool) {
	if !f.HasAverage() || len(set) < f.Attempts {
		return 0, false
	}

	values := make([]positioned, f.Attempts)
	for i, a := range set[:f.Attempts] {
		values[i] = positioned{value: a.Value, position: a.Position, index: i}
	}
	slices.SortStableFunc(values, compareForTrim)

	retained := values[f.Trim : len(values)-f.Trim]
	var sum int64
	for _, v := range retained {
		if !v.value.Valid() {
			return 0, false
		}
		sum += int64(v.value)
	}

	n := int64(len(retained))
	return domain.Duration((sum*f.Multiplier() + n/2) / n), true
}

type positioned struct {
	value    domain.Duration
	position int
	index    int
}

func compareForTrim(a, b positioned) int {
	av, bv := a.value.Valid(), b.value.Valid()
	switch {
	case av && bv:
		if a.value != b.value {
			if a.value < b.value {
				return -1
			}
			return 1
		}
	case av:
		return -1
	case bv:
		return 1
	}
	if a.position != b.position {
		return a.position - b.position
	}
	return a.index - b.index
}

// roundSet is the attempts of one round in load order.
type roundSet struct {
	round    domain.Round
	attempts []domain.Attempt
}

// groupByRound splits a pair's attempts into rounds, keeping first-seen
// round order.
func groupByRound(attempts []domain.Attempt) []roundSet {
	var sets []roundSet
	index := make(map[domain.Round]int)
	for _, a := range attempts {
		i, ok := index[a.Round]
		if !ok {
			i = len(sets)
			index[a.Round] = i
			sets = append(sets, roundSet{round: a.Round})
		}
		sets[i].attempts = append(sets[i].attempts, a)
	}
	return sets
}

// Derive computes the record pair of one competitor in one event from the
// pair's attempts. It is a pure function of its inputs.
func Derive(competitorID, eventID string, attempts []domain.Attempt, f domain.Format) domain.RecordPair {
	var pair domain.RecordPair

	if best, ok := BestSingle(attempts); ok {
		pair.Single = &domain.Record{
			CompetitorID: competitorID,
			EventID:      eventID,
			Kind:         domain.KindSingle,
			Value:        best.Value,
			Round:        best.Round,
			Attempts:     []domain.Attempt{best},
		}
	}

	if !f.HasAverage() {
		return pair
	}
	for _, rs := range groupByRound(attempts) {
		avg, ok := SetAverage(rs.attempts, f)
		if !ok {
			continue
		}
		if pair.Average != nil && avg >= pair.Average.Value {
			continue
		}
		pair.Average = &domain.Record{
			CompetitorID: competitorID,
			EventID:      eventID,
			Kind:         domain.KindAverage,
			Value:        avg,
			Round:        rs.round,
			Attempts:     slices.Clone(rs.attempts),
		}
	}
	return pair
}
